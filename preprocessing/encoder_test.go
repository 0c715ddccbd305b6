package preprocessing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/delvitaw/obesity/pkg/errors"
	"github.com/delvitaw/obesity/preprocessing"
)

func TestOneHotEncoder_Fit(t *testing.T) {
	data := [][]string{
		{"Male", "Sometimes"},
		{"Female", "no"},
		{"Male", "Sometimes"},
		{"Female", "Always"},
	}

	encoder := preprocessing.NewOneHotEncoder()
	if err := encoder.Fit(data); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	if !encoder.IsFitted() {
		t.Error("Encoder should be fitted after Fit()")
	}
	if encoder.NFeatures != 2 {
		t.Errorf("Expected NFeatures=2, got %d", encoder.NFeatures)
	}

	// Categories are sorted byte-wise, so upper case sorts first.
	assert.Equal(t, [][]string{
		{"Female", "Male"},
		{"Always", "Sometimes", "no"},
	}, encoder.Categories)
	assert.Equal(t, 5, encoder.NOutputs)
}

func TestOneHotEncoder_Transform(t *testing.T) {
	encoder := preprocessing.NewOneHotEncoder()
	require.NoError(t, encoder.Fit([][]string{
		{"cat", "red"},
		{"dog", "blue"},
		{"fish", "green"},
	}))

	result, err := encoder.Transform([][]string{
		{"dog", "red"},
		{"fish", "blue"},
	})
	require.NoError(t, err)

	expected := [][]float64{
		{0, 1, 0, 0, 0, 1},
		{0, 0, 1, 1, 0, 0},
	}
	r, c := result.Dims()
	require.Equal(t, 2, r)
	require.Equal(t, 6, c)
	for i := range expected {
		for j := range expected[i] {
			if result.At(i, j) != expected[i][j] {
				t.Errorf("Result[%d][%d]: expected %f, got %f", i, j, expected[i][j], result.At(i, j))
			}
		}
	}
}

func TestOneHotEncoder_MissingIsCategory(t *testing.T) {
	encoder := preprocessing.NewOneHotEncoder()
	require.NoError(t, encoder.Fit([][]string{{"no"}, {""}, {"yes"}}))
	assert.Equal(t, []string{"", "no", "yes"}, encoder.Categories[0])
}

func TestOneHotEncoder_Errors(t *testing.T) {
	encoder := preprocessing.NewOneHotEncoder()

	_, err := encoder.Transform([][]string{{"A"}})
	assert.True(t, errors.Is(err, errors.ErrNotFitted))

	assert.True(t, errors.Is(encoder.Fit(nil), errors.ErrEmptyData))
	assert.True(t, errors.Is(encoder.Fit([][]string{{}}), errors.ErrEmptyData))
	assert.True(t, errors.Is(encoder.Fit([][]string{{"A", "B"}, {"A"}}), errors.ErrDimensionMismatch))

	require.NoError(t, encoder.Fit([][]string{{"A", "X"}, {"B", "Y"}}))
	_, err = encoder.Transform([][]string{{"A", "X", "Z"}})
	assert.True(t, errors.Is(err, errors.ErrDimensionMismatch))

	encoder.HandleUnknown = "drop"
	assert.Error(t, encoder.Fit([][]string{{"A"}}))
}

func TestOneHotEncoder_UnknownCategory(t *testing.T) {
	trainData := [][]string{
		{"cat", "red"},
		{"dog", "blue"},
	}
	testData := [][]string{
		{"cat", "red"},
		{"fish", "yellow"},
		{"dog", "blue"},
	}

	t.Run("error", func(t *testing.T) {
		encoder := preprocessing.NewOneHotEncoder()
		require.NoError(t, encoder.Fit(trainData))
		_, err := encoder.Transform(testData)
		assert.True(t, errors.Is(err, errors.ErrUnknownCategory))
	})

	t.Run("ignore", func(t *testing.T) {
		encoder := preprocessing.NewOneHotEncoderIgnoreUnknown()
		require.NoError(t, encoder.Fit(trainData))
		result, err := encoder.Transform(testData)
		require.NoError(t, err)

		expected := [][]float64{
			{1, 0, 0, 1},
			{0, 0, 0, 0},
			{0, 1, 1, 0},
		}
		for i := range expected {
			for j := range expected[i] {
				assert.Equal(t, expected[i][j], result.At(i, j), "cell %d,%d", i, j)
			}
		}
	})
}

func TestOneHotEncoder_GetFeatureNamesOut(t *testing.T) {
	encoder := preprocessing.NewOneHotEncoder()
	assert.Nil(t, encoder.GetFeatureNamesOut(nil))

	require.NoError(t, encoder.Fit([][]string{{"small", "red"}, {"large", "blue"}}))

	assert.Equal(t,
		[]string{"size_large", "size_small", "color_blue", "color_red"},
		encoder.GetFeatureNamesOut([]string{"size", "color"}))
	assert.Equal(t,
		[]string{"x0_large", "x0_small", "x1_blue", "x1_red"},
		encoder.GetFeatureNamesOut(nil))
}

func TestOneHotEncoder_Params(t *testing.T) {
	encoder := preprocessing.NewOneHotEncoder()
	require.NoError(t, encoder.SetParams(map[string]interface{}{"handle_unknown": "ignore"}))
	assert.Equal(t, "ignore", encoder.GetParams()["handle_unknown"])
	assert.Error(t, encoder.SetParams(map[string]interface{}{"handle_unknown": "drop"}))
	assert.Error(t, encoder.SetParams(map[string]interface{}{"sparse": false}))

	clone := encoder.CloneEstimator().(*preprocessing.OneHotEncoder)
	assert.Equal(t, "ignore", clone.HandleUnknown)
	assert.False(t, clone.IsFitted())
}

func TestLabelEncoder(t *testing.T) {
	le := preprocessing.NewLabelEncoder()
	codes, err := le.FitTransform([]string{"Obesity_Type_I", "Normal_Weight", "Obesity_Type_I", "Insufficient_Weight"})
	require.NoError(t, err)

	assert.Equal(t, []string{"Insufficient_Weight", "Normal_Weight", "Obesity_Type_I"}, le.Classes)
	assert.Equal(t, []int{2, 1, 2, 0}, codes)

	labels, err := le.InverseTransform([]int{0, 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"Insufficient_Weight", "Obesity_Type_I"}, labels)

	_, err = le.Transform([]string{"Overweight_Level_I"})
	assert.True(t, errors.Is(err, errors.ErrUnknownCategory))

	_, err = le.InverseTransform([]int{3})
	assert.Error(t, err)

	assert.Error(t, preprocessing.NewLabelEncoder().Fit([]string{"a", ""}))
	assert.True(t, errors.Is(preprocessing.NewLabelEncoder().Fit(nil), errors.ErrEmptyData))

	_, err = preprocessing.NewLabelEncoder().Transform([]string{"a"})
	assert.True(t, errors.Is(err, errors.ErrNotFitted))
}
