package pipeline_test

import (
	"bytes"
	"encoding/gob"
	"math/rand"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/delvitaw/obesity/dataset"
	"github.com/delvitaw/obesity/pkg/errors"
	"github.com/delvitaw/obesity/pkg/log"
	"github.com/delvitaw/obesity/preprocessing"
	"github.com/delvitaw/obesity/sklearn/compose"
	"github.com/delvitaw/obesity/sklearn/ensemble"
	"github.com/delvitaw/obesity/sklearn/pipeline"
)

// weightFrame builds rows whose label follows Weight, with a categorical
// column that carries no signal.
func weightFrame(t *testing.T, n int, seed int64) (*dataset.Frame, []string) {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	weights := make([]float64, n)
	ages := make([]float64, n)
	genders := make([]string, n)
	labels := make([]string, n)
	for i := 0; i < n; i++ {
		switch i % 3 {
		case 0:
			weights[i], labels[i] = 50+rng.Float64()*10, "Normal_Weight"
		case 1:
			weights[i], labels[i] = 80+rng.Float64()*10, "Overweight_Level_I"
		default:
			weights[i], labels[i] = 110+rng.Float64()*10, "Obesity_Type_II"
		}
		ages[i] = 18 + rng.Float64()*40
		genders[i] = []string{"Male", "Female"}[rng.Intn(2)]
	}
	f, err := dataset.NewFrame(
		dataset.NumericColumn("Weight", weights),
		dataset.NumericColumn("Age", ages),
		dataset.CategoricalColumn("Gender", genders),
	)
	require.NoError(t, err)
	return f, labels
}

func newPipeline() *pipeline.Pipeline {
	pre := compose.NewColumnTransformer(
		compose.NamedTransformer{Name: "num", Transformer: preprocessing.NewStandardScalerDefault(), Columns: []string{"Weight", "Age"}},
		compose.NamedTransformer{Name: "cat", Transformer: preprocessing.NewOneHotEncoderIgnoreUnknown(), Columns: []string{"Gender"}},
	)
	clf := ensemble.NewRandomForestClassifier(ensemble.WithNEstimators(15), ensemble.WithRandomState(42))
	return pipeline.New(
		pipeline.Step{Name: "preprocessor", Estimator: pre},
		pipeline.Step{Name: "classifier", Estimator: clf},
	)
}

func TestPipeline_FitPredict(t *testing.T) {
	f, y := weightFrame(t, 90, 1)
	p := newPipeline()
	require.NoError(t, p.Fit(f, y))

	assert.True(t, p.IsFitted())
	assert.Equal(t, []string{"Normal_Weight", "Obesity_Type_II", "Overweight_Level_I"}, p.Classes())
	assert.Equal(t, []string{"num__Weight", "num__Age", "cat__Gender_Female", "cat__Gender_Male"}, p.FeatureNamesOut())

	ft, yt := weightFrame(t, 30, 2)
	score, err := p.Score(ft, yt)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, score, 0.9)

	proba, err := p.PredictProba(ft)
	require.NoError(t, err)
	_, c := proba.Dims()
	assert.Equal(t, 3, c)
}

func TestPipeline_UnknownCategoryAndExtraColumns(t *testing.T) {
	f, y := weightFrame(t, 60, 3)
	p := newPipeline()
	require.NoError(t, p.Fit(f, y))

	row, err := dataset.NewFrame(
		dataset.CategoricalColumn("Gender", []string{"Other"}),
		dataset.NumericColumn("Age", []float64{30}),
		dataset.NumericColumn("Weight", []float64{115}),
		dataset.CategoricalColumn("Comment", []string{"ignored"}),
	)
	require.NoError(t, err)

	pred, err := p.Predict(row)
	require.NoError(t, err)
	require.Len(t, pred, 1)
	assert.Contains(t, p.Classes(), pred[0])
}

func TestPipeline_SchemaMismatch(t *testing.T) {
	f, y := weightFrame(t, 30, 4)
	p := newPipeline()
	require.NoError(t, p.Fit(f, y))

	row, err := dataset.NewFrame(
		dataset.CategoricalColumn("Gender", []string{"Male"}),
		dataset.CategoricalColumn("Age", []string{"thirty"}),
	)
	require.NoError(t, err)
	_, err = p.Predict(row)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrSchemaMismatch))
	assert.Contains(t, err.Error(), `missing column "Weight"`)
}

func TestPipeline_Validation(t *testing.T) {
	f, y := weightFrame(t, 30, 5)

	_, err := newPipeline().Predict(f)
	assert.True(t, errors.Is(err, errors.ErrNotFitted))

	assert.Error(t, pipeline.New().Fit(f, y))
	onlyScaler := pipeline.New(
		pipeline.Step{Name: "scale", Estimator: preprocessing.NewStandardScalerDefault()},
		pipeline.Step{Name: "clf", Estimator: ensemble.NewRandomForestClassifier()},
	)
	assert.Error(t, onlyScaler.Fit(f, y), "first step must consume a frame")

	assert.True(t, errors.Is(newPipeline().Fit(f, y[:10]), errors.ErrDimensionMismatch))
}

func TestPipeline_ParamsRouting(t *testing.T) {
	p := newPipeline()
	params := p.GetParams()
	assert.Equal(t, 15, params["classifier__n_estimators"])
	assert.Equal(t, true, params["preprocessor__num__with_mean"])

	require.NoError(t, p.SetParams(map[string]interface{}{
		"classifier__n_estimators":          30,
		"classifier__max_depth":             10,
		"preprocessor__cat__handle_unknown": "error",
	}))
	params = p.GetParams()
	assert.Equal(t, 30, params["classifier__n_estimators"])
	assert.Equal(t, 10, params["classifier__max_depth"])
	assert.Equal(t, "error", params["preprocessor__cat__handle_unknown"])

	assert.Error(t, p.SetParams(map[string]interface{}{"n_estimators": 3}))
	assert.Error(t, p.SetParams(map[string]interface{}{"model__n_estimators": 3}))

	clone := p.Clone()
	assert.False(t, clone.IsFitted())
	assert.Equal(t, p.GetParams(), clone.GetParams())

	// Changing the clone leaves the original alone.
	require.NoError(t, clone.SetParams(map[string]interface{}{"classifier__n_estimators": 5}))
	assert.Equal(t, 30, p.GetParams()["classifier__n_estimators"])
}

func TestPipeline_GobRoundTrip(t *testing.T) {
	f, y := weightFrame(t, 45, 6)
	p := newPipeline()
	require.NoError(t, p.Fit(f, y))

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(p))
	var decoded pipeline.Pipeline
	require.NoError(t, gob.NewDecoder(&buf).Decode(&decoded))

	want, err := p.Predict(f)
	require.NoError(t, err)
	got, err := decoded.Predict(f)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, p.Classes(), decoded.Classes())
	assert.Equal(t, p.InputSchema, decoded.InputSchema)
}

func TestPipeline_DebugLogs(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf, zerolog.DebugLevel)
	t.Cleanup(func() { log.SetupLogger("info") })

	f, y := weightFrame(t, 30, 2)
	require.NoError(t, newPipeline().Fit(f, y))
	out := buf.String()
	assert.Contains(t, out, "Pipeline fitted")
	assert.Contains(t, out, `"logger":"ColumnTransformer"`)
	assert.Contains(t, out, "Training started")
}
