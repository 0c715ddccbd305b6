package tree_test

import (
	"bytes"
	"encoding/gob"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/delvitaw/obesity/pkg/errors"
	"github.com/delvitaw/obesity/sklearn/tree"
)

// twoBlobs returns rows where feature 0 separates labels 3 and 7 and
// feature 1 is noise.
func twoBlobs() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(8, 2, []float64{
		1.0, 5,
		1.5, 1,
		2.0, 4,
		2.5, 2,
		7.0, 5,
		7.5, 1,
		8.0, 4,
		8.5, 2,
	})
	y := mat.NewDense(8, 1, []float64{3, 3, 3, 3, 7, 7, 7, 7})
	return X, y
}

func TestDecisionTree_FitPredict(t *testing.T) {
	X, y := twoBlobs()
	dt := tree.NewDecisionTreeClassifier(tree.WithDTRandomState(1))
	require.NoError(t, dt.Fit(X, y))

	assert.Equal(t, []int{3, 7}, dt.Classes)
	assert.Equal(t, 1, dt.GetDepth())
	assert.Equal(t, 2, dt.GetNLeaves())
	assert.Equal(t, 0, dt.Root.Feature)
	assert.InDelta(t, 4.75, dt.Root.Threshold, 1e-12)

	pred, err := dt.Predict(mat.NewDense(2, 2, []float64{0, 0, 9, 0}))
	require.NoError(t, err)
	assert.Equal(t, 3.0, pred.At(0, 0))
	assert.Equal(t, 7.0, pred.At(1, 0))

	score, err := dt.Score(X, y)
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)

	imp := dt.GetFeatureImportances()
	assert.InDelta(t, 1.0, imp[0], 1e-12)
	assert.InDelta(t, 0.0, imp[1], 1e-12)
}

func TestDecisionTree_PredictProbaSumsToOne(t *testing.T) {
	X := mat.NewDense(6, 1, []float64{1, 1, 1, 2, 2, 2})
	y := mat.NewDense(6, 1, []float64{0, 0, 1, 1, 1, 2})

	dt := tree.NewDecisionTreeClassifier(tree.WithMaxDepth(1))
	require.NoError(t, dt.Fit(X, y))

	proba, err := dt.PredictProba(mat.NewDense(1, 1, []float64{1}))
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3.0, proba.At(0, 0), 1e-12)
	assert.InDelta(t, 1.0/3.0, proba.At(0, 1), 1e-12)
	assert.InDelta(t, 0.0, proba.At(0, 2), 1e-12)
}

func TestDecisionTree_MissingValuesGoRight(t *testing.T) {
	nan := math.NaN()
	// Missing values belong with the high class during training.
	X := mat.NewDense(6, 1, []float64{1, 2, 3, 10, nan, nan})
	y := mat.NewDense(6, 1, []float64{0, 0, 0, 1, 1, 1})

	dt := tree.NewDecisionTreeClassifier()
	require.NoError(t, dt.Fit(X, y))
	assert.True(t, tree.GoesLeft(3, dt.Root.Threshold))
	assert.False(t, tree.GoesLeft(nan, dt.Root.Threshold))

	pred, err := dt.Predict(mat.NewDense(2, 1, []float64{nan, 2}))
	require.NoError(t, err)
	assert.Equal(t, 1.0, pred.At(0, 0))
	assert.Equal(t, 0.0, pred.At(1, 0))
}

func TestDecisionTree_SplitsOffMissingBlock(t *testing.T) {
	nan := math.NaN()
	// All present values are equal; only missingness separates the classes.
	X := mat.NewDense(4, 1, []float64{5, 5, nan, nan})
	y := mat.NewDense(4, 1, []float64{0, 0, 1, 1})

	dt := tree.NewDecisionTreeClassifier()
	require.NoError(t, dt.Fit(X, y))
	require.False(t, dt.Root.IsLeaf)
	assert.Equal(t, 5.0, dt.Root.Threshold)
}

func TestDecisionTree_MinSamples(t *testing.T) {
	X, y := twoBlobs()

	dt := tree.NewDecisionTreeClassifier(tree.WithMinSamplesSplit(9))
	require.NoError(t, dt.Fit(X, y))
	assert.True(t, dt.Root.IsLeaf)

	dt = tree.NewDecisionTreeClassifier(tree.WithMinSamplesLeaf(5))
	require.NoError(t, dt.Fit(X, y))
	assert.True(t, dt.Root.IsLeaf, "no split can leave 5 samples on both sides of 8")
}

func TestDecisionTree_Deterministic(t *testing.T) {
	X, y := twoBlobs()
	fit := func() *tree.DecisionTreeClassifier {
		dt := tree.NewDecisionTreeClassifier(tree.WithMaxFeatures("1"), tree.WithDTRandomState(42))
		require.NoError(t, dt.Fit(X, y))
		return dt
	}
	a, b := fit(), fit()
	pa, err := a.Predict(X)
	require.NoError(t, err)
	pb, err := b.Predict(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(pa, pb))
	assert.Equal(t, a.GetFeatureImportances(), b.GetFeatureImportances())
}

func TestDecisionTree_FitDatasetWithRepeats(t *testing.T) {
	X, _ := twoBlobs()
	codes := []int{0, 0, 0, 0, 1, 1, 1, 1}
	data, err := tree.NewDataset(X, codes, 3)
	require.NoError(t, err)

	dt := tree.NewDecisionTreeClassifier()
	require.NoError(t, dt.FitDataset(data, []int{0, 0, 0, 5}))
	assert.Equal(t, 3, dt.NClasses)
	assert.Equal(t, []int{3, 1, 0}, dt.Root.ClassCounts)

	proba, err := dt.PredictProba(X)
	require.NoError(t, err)
	_, c := proba.Dims()
	assert.Equal(t, 3, c, "probabilities cover classes absent from the sample")

	_, err = tree.NewDataset(X, []int{0, 1}, 2)
	assert.True(t, errors.Is(err, errors.ErrDimensionMismatch))
	_, err = tree.NewDataset(X, []int{0, 0, 0, 0, 0, 0, 0, 2}, 2)
	assert.Error(t, err)
}

func TestResolveMaxFeatures(t *testing.T) {
	tests := []struct {
		spec string
		n    int
		want int
	}{
		{"sqrt", 31, 5},
		{"log2", 31, 4},
		{"all", 31, 31},
		{"", 7, 7},
		{"3", 31, 3},
		{"50", 31, 31},
		{"sqrt", 1, 1},
	}
	for _, tt := range tests {
		got, err := tree.ResolveMaxFeatures(tt.spec, tt.n)
		require.NoError(t, err, tt.spec)
		assert.Equal(t, tt.want, got, "%s of %d", tt.spec, tt.n)
	}
	_, err := tree.ResolveMaxFeatures("half", 4)
	assert.Error(t, err)
}

func TestDecisionTree_Errors(t *testing.T) {
	dt := tree.NewDecisionTreeClassifier()
	_, err := dt.Predict(mat.NewDense(1, 2, nil))
	assert.True(t, errors.Is(err, errors.ErrNotFitted))

	X, y := twoBlobs()
	assert.True(t, errors.Is(dt.Fit(X, mat.NewDense(3, 1, nil)), errors.ErrDimensionMismatch))

	bad := tree.NewDecisionTreeClassifier(tree.WithCriterion("mse"))
	assert.Error(t, bad.Fit(X, y))
	bad = tree.NewDecisionTreeClassifier(tree.WithMinSamplesSplit(1))
	assert.Error(t, bad.Fit(X, y))

	require.NoError(t, dt.Fit(X, y))
	_, err = dt.Predict(mat.NewDense(1, 3, nil))
	assert.True(t, errors.Is(err, errors.ErrDimensionMismatch))
}

func TestDecisionTree_ParamsAndClone(t *testing.T) {
	dt := tree.NewDecisionTreeClassifier()
	require.NoError(t, dt.SetParams(map[string]interface{}{
		"max_depth":         nil,
		"min_samples_split": 5.0,
		"max_features":      "sqrt",
		"random_state":      7,
	}))
	assert.Equal(t, 0, dt.MaxDepth)
	assert.Equal(t, 5, dt.MinSamplesSplit)
	assert.Equal(t, int64(7), dt.RandomState)

	assert.Error(t, dt.SetParams(map[string]interface{}{"max_depth": 2.5}))
	assert.Error(t, dt.SetParams(map[string]interface{}{"splitter": "best"}))

	clone := dt.CloneEstimator().(*tree.DecisionTreeClassifier)
	assert.Equal(t, dt.GetParams(), clone.GetParams())
	assert.False(t, clone.IsFitted())
}

func TestDecisionTree_GobRoundTrip(t *testing.T) {
	X, y := twoBlobs()
	dt := tree.NewDecisionTreeClassifier(tree.WithDTRandomState(3))
	require.NoError(t, dt.Fit(X, y))

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(dt))
	var decoded tree.DecisionTreeClassifier
	require.NoError(t, gob.NewDecoder(&buf).Decode(&decoded))

	want, err := dt.PredictProba(X)
	require.NoError(t, err)
	got, err := decoded.PredictProba(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(want, got))
}
