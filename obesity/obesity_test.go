package obesity

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/delvitaw/obesity/dataset"
	"github.com/delvitaw/obesity/pkg/config"
	"github.com/delvitaw/obesity/pkg/errors"
)

func survey(n int, seed int64) *dataset.Frame {
	f, err := SyntheticFrame(n, seed)
	if err != nil {
		panic(err)
	}
	return f
}

func smallConfig(dir string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Train.NIter = 3
	cfg.Train.CV = 3
	cfg.Train.NEstimators = []int{10, 20}
	cfg.Train.MaxDepth = []int{0, 6}
	cfg.Train.MinSamplesSplit = []int{2, 5}
	cfg.Output.Artifact = filepath.Join(dir, "model", DefaultArtifactPath)
	cfg.Output.PlotsDir = filepath.Join(dir, "plots")
	cfg.Output.Report = filepath.Join(dir, "report.html")
	return cfg
}

var (
	trained  *TrainResult
	trainCfg *config.Config
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "obesity-test")
	if err != nil {
		panic(err)
	}
	prev := errors.SetWarningHandler(func(error) {})
	trainCfg = smallConfig(dir)
	trained, err = TrainFrame(context.Background(), survey(350, 1), trainCfg, nil)
	errors.SetWarningHandler(prev)
	if err != nil {
		panic(fmt.Sprintf("training failed: %+v", err))
	}

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

func TestBMI(t *testing.T) {
	tests := []struct {
		name           string
		weight, height float64
		want           float64
		ok             bool
	}{
		{"typical", 70, 1.70, 70 / (1.70 * 1.70), true},
		{"one metre", 50, 1, 50, true},
		{"zero height", 70, 0, 0, false},
		{"negative height", 70, -1.7, 0, false},
		{"missing weight", math.NaN(), 1.7, 0, false},
		{"missing height", 70, math.NaN(), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := BMI(tt.weight, tt.height)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 1e-12)
			} else {
				assert.True(t, math.IsNaN(got))
			}
		})
	}
}

func TestAddBMI(t *testing.T) {
	f, err := dataset.NewFrame(
		dataset.NumericColumn(ColWeight, []float64{70, 80, 60}),
		dataset.NumericColumn(ColHeight, []float64{1.75, 0, math.NaN()}),
	)
	require.NoError(t, err)

	undefined, err := AddBMI(f)
	require.NoError(t, err)
	assert.Equal(t, 2, undefined)

	c, ok := f.Column(ColBMI)
	require.True(t, ok)
	assert.InDelta(t, 70/(1.75*1.75), c.Floats[0], 1e-12)
	assert.True(t, math.IsNaN(c.Floats[1]))
	assert.True(t, math.IsNaN(c.Floats[2]))
	assert.Equal(t, 2, c.MissingCount())

	noHeight, err := dataset.NewFrame(dataset.NumericColumn(ColWeight, []float64{70}))
	require.NoError(t, err)
	_, err = AddBMI(noHeight)
	assert.True(t, errors.Is(err, errors.ErrSchemaMismatch))

	textHeight, err := dataset.NewFrame(
		dataset.NumericColumn(ColWeight, []float64{70}),
		dataset.CategoricalColumn(ColHeight, []string{"tall"}),
	)
	require.NoError(t, err)
	_, err = AddBMI(textHeight)
	assert.True(t, errors.Is(err, errors.ErrSchemaMismatch))
}

func TestSampleValidate(t *testing.T) {
	require.NoError(t, DefaultSample().Validate())

	tests := []struct {
		name   string
		mutate func(*Sample)
	}{
		{"age too low", func(s *Sample) { s.Age = 9 }},
		{"age not whole", func(s *Sample) { s.Age = 25.5 }},
		{"height too low", func(s *Sample) { s.Height = 1.0 }},
		{"zero height", func(s *Sample) { s.Height = 0 }},
		{"weight too high", func(s *Sample) { s.Weight = 250 }},
		{"ncp out of range", func(s *Sample) { s.NCP = 5 }},
		{"faf off step", func(s *Sample) { s.FAF = 1.1 }},
		{"tue nan", func(s *Sample) { s.TUE = math.NaN() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSample()
			tt.mutate(&s)
			assert.Error(t, s.Validate())
		})
	}

	s := DefaultSample()
	s.MTRANS = "Hoverboard"
	assert.NoError(t, s.Validate(), "categorical values are not checked")
}

func TestSampleBMI(t *testing.T) {
	bmi, err := DefaultSample().BMI()
	require.NoError(t, err)
	assert.InDelta(t, 24.22, bmi, 0.01)

	s := DefaultSample()
	s.Height = 0
	_, err = s.BMI()
	assert.True(t, errors.Is(err, errors.ErrUndefinedBMI))
}

func TestSampleFrame(t *testing.T) {
	f, err := DefaultSample().Frame()
	require.NoError(t, err)
	assert.Equal(t, 1, f.Len())
	assert.Equal(t, FeatureSchema, f.Schema())

	c, _ := f.Column(ColBMI)
	want, _ := BMI(70, 1.70)
	assert.Equal(t, want, c.Floats[0])
	g, _ := f.Column(ColGender)
	assert.Equal(t, []string{"Male"}, g.Strings)
}

func TestTrainFrame_Result(t *testing.T) {
	res := trained
	assert.Equal(t, 350, res.Rows)
	assert.Zero(t, res.UndefinedBMI)
	assert.Empty(t, res.Missing)
	assert.ElementsMatch(t, []string{ColAge, ColHeight, ColWeight, ColFCVC, ColNCP, ColCH2O, ColFAF, ColTUE, ColBMI}, res.NumericColumns)
	assert.ElementsMatch(t, []string{ColGender, ColFamilyHistory, ColFAVC, ColCAEC, ColSMOKE, ColSCC, ColCALC, ColMTRANS}, res.CategoricalColumns)
	assert.Len(t, res.ClassCounts, len(Classes))

	assert.Len(t, res.Search.CVResults.Params, 3)
	assert.Greater(t, res.Search.BestScore, 0.5)
	assert.Greater(t, res.Report.Accuracy, 0.5)
	assert.Len(t, res.Labels, len(Classes))

	r, c := res.Confusion.Dims()
	assert.Equal(t, len(Classes), r)
	assert.Equal(t, len(Classes), c)
	total := 0.0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			total += res.Confusion.At(i, j)
		}
	}
	assert.Equal(t, float64(res.Artifact.TestSamples), total)
	assert.Equal(t, 70, res.Artifact.TestSamples) // ceil(350 * 0.2)
	assert.Equal(t, 280, res.Artifact.TrainSamples)

	for _, p := range res.Plots {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}
	assert.Len(t, res.Plots, 3)
	assert.FileExists(t, res.ReportPath)
	assert.FileExists(t, res.ArtifactPath)

	a := res.Artifact
	assert.Contains(t, []string{"None", "6"}, a.BestParams["clf__max_depth"])
	assert.Contains(t, []string{"10", "20"}, a.BestParams["clf__n_estimators"])
}

func TestTrainFrame_Errors(t *testing.T) {
	dir := t.TempDir()
	cfg := smallConfig(dir)

	f := survey(70, 2)
	noTarget, err := f.Drop(ColTarget)
	require.NoError(t, err)
	_, err = TrainFrame(context.Background(), noTarget, cfg, nil)
	assert.True(t, errors.Is(err, errors.ErrSchemaMismatch))

	bad := config.DefaultConfig()
	bad.Train.CV = 1
	_, err = TrainFrame(context.Background(), survey(70, 2), bad, nil)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = TrainFrame(ctx, survey(70, 2), cfg, nil)
	assert.Error(t, err)
	assert.NoFileExists(t, cfg.Output.Artifact)
}

func TestTrain_LoadsCSV(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "obesitas.csv")
	out, err := os.Create(csvPath)
	require.NoError(t, err)
	require.NoError(t, dataset.WriteCSV(out, survey(140, 3)))
	require.NoError(t, out.Close())

	cfg := smallConfig(dir)
	cfg.Data.Path = csvPath
	cfg.Output.PlotsDir = ""
	cfg.Output.Report = ""
	prev := errors.SetWarningHandler(func(error) {})
	defer errors.SetWarningHandler(prev)

	res, err := Train(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 140, res.Rows)
	assert.Empty(t, res.Plots)
	assert.FileExists(t, cfg.Output.Artifact)

	cfg.Data.Path = filepath.Join(dir, "missing.csv")
	_, err = Train(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestSearchSpace(t *testing.T) {
	d := SearchSpace(config.DefaultConfig().Train)
	assert.Equal(t, []interface{}{100, 200, 300}, d["clf__n_estimators"])
	assert.Equal(t, []interface{}{nil, 10, 20, 30}, d["clf__max_depth"])
	assert.Equal(t, []interface{}{2, 5, 10}, d["clf__min_samples_split"])
	assert.Equal(t, 36, d.GridSize())
}

func TestSampleValue(t *testing.T) {
	s := DefaultSample()
	for name, want := range map[string]string{
		ColHeight:        "1.7",
		ColAge:           "25",
		ColFamilyHistory: "yes",
		ColMTRANS:        "Public_Transportation",
	} {
		got, ok := s.Value(name)
		assert.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}
	_, ok := s.Value(ColBMI)
	assert.False(t, ok)
}

func TestSyntheticFrame(t *testing.T) {
	f, err := SyntheticFrame(70, 9)
	require.NoError(t, err)
	assert.Equal(t, 70, f.Len())
	assert.Equal(t, append(append([]string{}, InputColumns...), ColTarget), f.Names())

	counts, err := f.ValueCounts(ColTarget)
	require.NoError(t, err)
	require.Len(t, counts, len(Classes))
	for _, vc := range counts {
		assert.Equal(t, 10, vc.Count, vc.Value)
	}

	s := DefaultSample()
	require.NoError(t, s.Validate())
	faf, _ := f.Column(ColFAF)
	for _, v := range faf.Floats {
		s.FAF = v
		assert.NoError(t, s.Validate())
	}

	again, err := SyntheticFrame(70, 9)
	require.NoError(t, err)
	w1, _ := f.Column(ColWeight)
	w2, _ := again.Column(ColWeight)
	assert.Equal(t, w1.Floats, w2.Floats)
}
