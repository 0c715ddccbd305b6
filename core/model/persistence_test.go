package model_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/delvitaw/obesity/core/model"
)

type toyModel struct {
	State   *model.StateManager
	Weights []float64
	Labels  []string
}

func TestSaveLoadModel(t *testing.T) {
	m := &toyModel{State: model.NewStateManager(), Weights: []float64{1.5, -2}, Labels: []string{"a", "b"}}
	m.State.SetFitted()

	path := filepath.Join(t.TempDir(), "toy.gob")
	require.NoError(t, model.SaveModel(m, path))

	var loaded toyModel
	require.NoError(t, model.LoadModel(&loaded, path))
	assert.True(t, loaded.State.IsFitted())
	assert.Equal(t, m.Weights, loaded.Weights)
	assert.Equal(t, m.Labels, loaded.Labels)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file must be renamed away")
}

func TestSaveLoadModelToWriter(t *testing.T) {
	m := &toyModel{State: model.NewStateManager(), Weights: []float64{3}}

	var buf bytes.Buffer
	require.NoError(t, model.SaveModelToWriter(m, &buf))

	var loaded toyModel
	require.NoError(t, model.LoadModelFromReader(&loaded, &buf))
	assert.False(t, loaded.State.IsFitted())
	assert.Equal(t, []float64{3}, loaded.Weights)
}

func TestLoadModelFileNotFound(t *testing.T) {
	var m toyModel
	err := model.LoadModel(&m, filepath.Join(t.TempDir(), "nonexistent_file.gob"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open file")
}

func TestSaveModelInvalidPath(t *testing.T) {
	err := model.SaveModel(&toyModel{}, "/invalid/path/model.gob")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create file")
}

func TestChecksumStable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "toy.gob")
	require.NoError(t, model.SaveModel(&toyModel{Weights: []float64{1}}, path))

	a, err := model.Checksum(path)
	require.NoError(t, err)
	b, err := model.Checksum(path)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}
