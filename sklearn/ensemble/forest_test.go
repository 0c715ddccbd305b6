package ensemble_test

import (
	"bytes"
	"context"
	"encoding/gob"
	"math"
	"math/rand"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/delvitaw/obesity/pkg/errors"
	"github.com/delvitaw/obesity/pkg/log"
	"github.com/delvitaw/obesity/sklearn/ensemble"
)

// blobs generates three well separated classes in 4 dimensions; the last
// two features are noise.
func blobs(n int, seed int64) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewSource(seed))
	X := mat.NewDense(n, 4, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		class := i % 3
		X.Set(i, 0, float64(class)*5+rng.NormFloat64()*0.5)
		X.Set(i, 1, float64(class)*-3+rng.NormFloat64()*0.5)
		X.Set(i, 2, rng.NormFloat64())
		X.Set(i, 3, rng.NormFloat64())
		y.Set(i, 0, float64(class))
	}
	return X, y
}

func TestRandomForest_FitPredict(t *testing.T) {
	X, y := blobs(150, 1)
	rf := ensemble.NewRandomForestClassifier(
		ensemble.WithNEstimators(25),
		ensemble.WithRandomState(42),
	)
	require.NoError(t, rf.Fit(X, y))

	assert.Len(t, rf.Estimators, 25)
	assert.Equal(t, []int{0, 1, 2}, rf.Classes)

	Xt, yt := blobs(60, 2)
	score, err := rf.Score(Xt, yt)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, score, 0.95)

	proba, err := rf.PredictProba(Xt)
	require.NoError(t, err)
	r, c := proba.Dims()
	require.Equal(t, 3, c)
	for i := 0; i < r; i++ {
		assert.InDelta(t, 1.0, mat.Sum(proba.(*mat.Dense).RowView(i)), 1e-9)
	}

	imp := rf.GetFeatureImportances()
	assert.InDelta(t, 1.0, imp[0]+imp[1]+imp[2]+imp[3], 1e-9)
	assert.Greater(t, imp[0]+imp[1], imp[2]+imp[3], "informative features dominate")
}

func TestRandomForest_Deterministic(t *testing.T) {
	X, y := blobs(90, 3)
	fit := func(jobs int) mat.Matrix {
		rf := ensemble.NewRandomForestClassifier(
			ensemble.WithNEstimators(10),
			ensemble.WithRandomState(7),
			ensemble.WithNJobs(jobs),
		)
		require.NoError(t, rf.Fit(X, y))
		p, err := rf.PredictProba(X)
		require.NoError(t, err)
		return p
	}
	// The result does not depend on how many trees grow at once.
	assert.True(t, mat.Equal(fit(1), fit(4)))
}

func TestRandomForest_MissingValues(t *testing.T) {
	X, y := blobs(60, 4)
	for i := 0; i < 60; i += 7 {
		X.Set(i, 0, math.NaN())
	}
	rf := ensemble.NewRandomForestClassifier(ensemble.WithNEstimators(5), ensemble.WithRandomState(1))
	require.NoError(t, rf.Fit(X, y))

	row := mat.NewDense(1, 4, []float64{math.NaN(), 0, 0, 0})
	first, err := rf.Predict(row)
	require.NoError(t, err)
	second, err := rf.Predict(row)
	require.NoError(t, err)
	assert.Equal(t, first.At(0, 0), second.At(0, 0))
}

func TestRandomForest_NoBootstrap(t *testing.T) {
	X, y := blobs(30, 5)
	rf := ensemble.NewRandomForestClassifier(
		ensemble.WithNEstimators(3),
		ensemble.WithBootstrap(false),
		ensemble.WithMaxFeatures("all"),
		ensemble.WithRandomState(1),
	)
	require.NoError(t, rf.Fit(X, y))
	for _, dt := range rf.Estimators {
		assert.Equal(t, 30, dt.Root.NSamples)
	}
}

func TestRandomForest_Errors(t *testing.T) {
	rf := ensemble.NewRandomForestClassifier()
	_, err := rf.Predict(mat.NewDense(1, 4, nil))
	assert.True(t, errors.Is(err, errors.ErrNotFitted))

	X, y := blobs(30, 6)
	assert.True(t, errors.Is(rf.Fit(X, mat.NewDense(2, 1, nil)), errors.ErrDimensionMismatch))

	bad := ensemble.NewRandomForestClassifier(ensemble.WithNEstimators(0))
	assert.Error(t, bad.Fit(X, y))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, rf.FitContext(ctx, X, y), context.Canceled)
	assert.False(t, rf.IsFitted())
}

func TestRandomForest_ParamsAndClone(t *testing.T) {
	rf := ensemble.NewRandomForestClassifier()
	require.NoError(t, rf.SetParams(map[string]interface{}{
		"n_estimators":      200,
		"max_depth":         nil,
		"min_samples_split": int64(5),
		"random_state":      42,
	}))
	assert.Equal(t, 200, rf.NEstimators)
	assert.Equal(t, 0, rf.MaxDepth)
	assert.Equal(t, 5, rf.MinSamplesSplit)
	assert.Equal(t, int64(42), rf.RandomState)
	assert.Equal(t, "sqrt", rf.MaxFeatures)

	assert.Error(t, rf.SetParams(map[string]interface{}{"oob_score": true}))
	assert.Error(t, rf.SetParams(map[string]interface{}{"bootstrap": 3}))

	clone := rf.CloneEstimator().(*ensemble.RandomForestClassifier)
	assert.Equal(t, rf.GetParams(), clone.GetParams())
	assert.False(t, clone.IsFitted())
}

func TestRandomForest_GobRoundTrip(t *testing.T) {
	X, y := blobs(45, 8)
	rf := ensemble.NewRandomForestClassifier(ensemble.WithNEstimators(5), ensemble.WithRandomState(3))
	require.NoError(t, rf.Fit(X, y))

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(rf))
	var decoded ensemble.RandomForestClassifier
	require.NoError(t, gob.NewDecoder(&buf).Decode(&decoded))

	want, err := rf.Predict(X)
	require.NoError(t, err)
	got, err := decoded.Predict(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(want, got))
}

func TestRandomForest_DebugLogsFollowConfiguredLevel(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf, zerolog.DebugLevel)
	t.Cleanup(func() { log.SetupLogger("info") })

	X, y := blobs(30, 3)
	rf := ensemble.NewRandomForestClassifier(ensemble.WithNEstimators(3), ensemble.WithRandomState(1))
	require.NoError(t, rf.Fit(X, y))
	assert.Contains(t, buf.String(), `"message":"Training started"`)
	assert.Contains(t, buf.String(), `"logger":"ensemble"`)

	buf.Reset()
	log.SetOutput(&buf, zerolog.InfoLevel)
	quiet := ensemble.NewRandomForestClassifier(ensemble.WithNEstimators(3), ensemble.WithRandomState(1))
	require.NoError(t, quiet.Fit(X, y))
	assert.NotContains(t, buf.String(), "Training started")
}
