package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/delvitaw/obesity/obesity"
	"github.com/delvitaw/obesity/pkg/config"
	"github.com/delvitaw/obesity/pkg/errors"
)

func trainArtifact(t *testing.T, path string) {
	t.Helper()
	prev := errors.SetWarningHandler(func(error) {})
	defer errors.SetWarningHandler(prev)

	f, err := obesity.SyntheticFrame(140, 5)
	require.NoError(t, err)
	cfg := config.DefaultConfig()
	cfg.Train.NIter = 1
	cfg.Train.CV = 2
	cfg.Train.NEstimators = []int{5}
	cfg.Train.MaxDepth = []int{0}
	cfg.Train.MinSamplesSplit = []int{2}
	cfg.Output = config.OutputConfig{Artifact: path}
	_, err = obesity.TrainFrame(context.Background(), f, cfg, nil)
	require.NoError(t, err)
}

func TestSetup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.gob")
	trainArtifact(t, path)

	srv, cfg, err := setup([]string{"-artifact", path, "-addr", ":0", "-log-level", "error"})
	require.NoError(t, err)
	assert.Equal(t, ":0", cfg.Server.Addr)
	assert.False(t, cfg.Server.WatchReload)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSetup_Errors(t *testing.T) {
	dir := t.TempDir()
	_, _, err := setup([]string{"-artifact", filepath.Join(dir, "missing.gob"), "-log-level", "error"})
	assert.Error(t, err)

	_, _, err = setup([]string{"-artifact", ""})
	assert.Error(t, err)
}

func TestRun_StopsOnCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.gob")
	trainArtifact(t, path)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := run(ctx, []string{"-artifact", path, "-addr", "127.0.0.1:0", "-watch", "-log-level", "error"})
	assert.NoError(t, err)
}
