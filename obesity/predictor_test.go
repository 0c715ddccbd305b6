package obesity

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/delvitaw/obesity/core/model"
	"github.com/delvitaw/obesity/pkg/errors"
)

func TestPredictor_DefaultSample(t *testing.T) {
	p, err := NewPredictor(trained.Artifact, nil)
	require.NoError(t, err)

	got, err := p.Predict(DefaultSample())
	require.NoError(t, err)
	assert.Contains(t, Classes, got.Label)
	assert.InDelta(t, 70/(1.70*1.70), got.BMI, 1e-12)

	sum := 0.0
	for _, c := range p.Classes() {
		pr, ok := got.Probabilities[c]
		require.True(t, ok, c)
		assert.GreaterOrEqual(t, pr, 0.0)
		assert.GreaterOrEqual(t, got.Probabilities[got.Label], pr)
		sum += pr
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestPredictor_Deterministic(t *testing.T) {
	p, err := NewPredictor(trained.Artifact, nil)
	require.NoError(t, err)

	s := DefaultSample()
	s.Weight = 110
	first, err := p.Predict(s)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := p.Predict(s)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestPredictor_FollowsBMI(t *testing.T) {
	p, err := NewPredictor(trained.Artifact, nil)
	require.NoError(t, err)

	light := DefaultSample()
	light.Weight = 45 // BMI 15.6
	heavy := DefaultSample()
	heavy.Weight = 140 // BMI 48.4

	l, err := p.Predict(light)
	require.NoError(t, err)
	h, err := p.Predict(heavy)
	require.NoError(t, err)
	assert.Equal(t, "Insufficient_Weight", l.Label)
	assert.Equal(t, "Obesity_Type_III", h.Label)
}

func TestPredictor_UnknownCategory(t *testing.T) {
	p, err := NewPredictor(trained.Artifact, nil)
	require.NoError(t, err)

	s := DefaultSample()
	s.MTRANS = "Scooter"
	s.CALC = ""
	got, err := p.Predict(s)
	require.NoError(t, err)
	assert.Contains(t, Classes, got.Label)
}

func TestPredictor_RejectsInvalidSample(t *testing.T) {
	p, err := NewPredictor(trained.Artifact, nil)
	require.NoError(t, err)

	s := DefaultSample()
	s.Height = 0
	_, err = p.Predict(s)
	assert.Error(t, err)

	var verr *errors.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestNewPredictor_Errors(t *testing.T) {
	_, err := NewPredictor(nil, nil)
	assert.Error(t, err)

	bad := *trained.Artifact
	bad.Format = ArtifactFormat + 1
	_, err = NewPredictor(&bad, nil)
	assert.Error(t, err)

	bad = *trained.Artifact
	bad.Classes = nil
	_, err = NewPredictor(&bad, nil)
	assert.Error(t, err)
}

func TestArtifact_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifact.gob")
	require.NoError(t, SaveArtifact(trained.Artifact, path))

	loaded, err := LoadArtifact(path)
	require.NoError(t, err)
	assert.Equal(t, trained.Artifact.Schema, loaded.Schema)
	assert.Equal(t, trained.Artifact.Classes, loaded.Classes)
	assert.Equal(t, trained.Artifact.BestParams, loaded.BestParams)
	assert.Equal(t, trained.Artifact.TestAccuracy, loaded.TestAccuracy)
	assert.True(t, trained.Artifact.CreatedAt.Equal(loaded.CreatedAt))

	orig, err := NewPredictor(trained.Artifact, nil)
	require.NoError(t, err)
	p, err := LoadPredictor(path, nil)
	require.NoError(t, err)

	for _, w := range []float64{45, 60, 75, 85, 95, 110, 140} {
		s := DefaultSample()
		s.Weight = w
		want, err := orig.Predict(s)
		require.NoError(t, err)
		got, err := p.Predict(s)
		require.NoError(t, err)
		assert.Equal(t, want, got, "weight %g", w)
	}
}

func TestReadArtifact(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, model.SaveModelToWriter(trained.Artifact, &buf))
	a, err := ReadArtifact(&buf)
	require.NoError(t, err)
	assert.Equal(t, trained.Artifact.Classes, a.Classes)

	_, err = ReadArtifact(bytes.NewBufferString("not a gob stream"))
	assert.Error(t, err)

	_, err = LoadArtifact(filepath.Join(t.TempDir(), "missing.gob"))
	assert.Error(t, err)
}
