package obesity

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/delvitaw/obesity/core/model"
	"github.com/delvitaw/obesity/dataset"
	"github.com/delvitaw/obesity/metrics"
	"github.com/delvitaw/obesity/pkg/config"
	"github.com/delvitaw/obesity/pkg/errors"
	"github.com/delvitaw/obesity/pkg/log"
	"github.com/delvitaw/obesity/preprocessing"
	"github.com/delvitaw/obesity/sklearn/compose"
	"github.com/delvitaw/obesity/sklearn/ensemble"
	ms "github.com/delvitaw/obesity/sklearn/model_selection"
	"github.com/delvitaw/obesity/sklearn/pipeline"
	"github.com/delvitaw/obesity/viz"
)

// Pipeline step names. Search parameters are addressed as "clf__<param>".
const (
	StepPreprocess = "prep"
	StepClassifier = "clf"
)

// CorrelationColumns are the columns of the correlation heatmap.
var CorrelationColumns = []string{ColAge, ColHeight, ColWeight, ColBMI}

// TrainResult is everything the trainer reports.
type TrainResult struct {
	Artifact     *Artifact
	ArtifactPath string

	Rows         int
	UndefinedBMI int
	// Missing lists the columns with at least one missing cell.
	Missing     []dataset.ColumnCount
	ClassCounts []dataset.ValueCount

	NumericColumns     []string
	CategoricalColumns []string

	Correlation *mat.SymDense
	Search      *ms.RandomizedSearchCV
	Report      *metrics.ClassificationReport
	Confusion   *mat.Dense
	Labels      []string

	Plots      []string
	ReportPath string
}

// NewPipeline builds the unfitted model: standard scaling of numeric
// columns and one-hot encoding of categorical columns that ignores unknown
// values, followed by a random forest.
func NewPipeline(numeric, categorical []string, randomState int64) *pipeline.Pipeline {
	prep := compose.NewColumnTransformer(
		compose.NamedTransformer{Name: "num", Transformer: preprocessing.NewStandardScalerDefault(), Columns: numeric},
		compose.NamedTransformer{Name: "cat", Transformer: preprocessing.NewOneHotEncoderIgnoreUnknown(), Columns: categorical},
	)
	clf := ensemble.NewRandomForestClassifier(
		ensemble.WithRandomState(randomState),
		ensemble.WithNJobs(1),
	)
	return pipeline.New(
		pipeline.Step{Name: StepPreprocess, Estimator: prep},
		pipeline.Step{Name: StepClassifier, Estimator: clf},
	)
}

// SearchSpace turns the configured grids into search distributions. A max
// depth of 0 becomes None.
func SearchSpace(t config.TrainConfig) ms.ParamDistributions {
	toValues := func(xs []int, zeroIsNone bool) []interface{} {
		out := make([]interface{}, len(xs))
		for i, x := range xs {
			if zeroIsNone && x == 0 {
				out[i] = nil
			} else {
				out[i] = x
			}
		}
		return out
	}
	return ms.ParamDistributions{
		StepClassifier + "__n_estimators":      toValues(t.NEstimators, false),
		StepClassifier + "__max_depth":         toValues(t.MaxDepth, true),
		StepClassifier + "__min_samples_split": toValues(t.MinSamplesSplit, false),
	}
}

// Train runs the full training workflow on the CSV named in cfg.
func Train(ctx context.Context, cfg *config.Config, logger log.Logger) (*TrainResult, error) {
	if logger == nil {
		logger = log.Nop()
	}
	f, err := dataset.LoadCSV(cfg.Data.Path)
	if err != nil {
		return nil, err
	}
	logger.Info("Dataset loaded", log.PathKey, cfg.Data.Path, log.SamplesKey, f.Len(), log.FeaturesKey, f.Width())
	return TrainFrame(ctx, f, cfg, logger)
}

// TrainFrame runs the training workflow on an already loaded dataset. The
// BMI column is added to f.
func TrainFrame(ctx context.Context, f *dataset.Frame, cfg *config.Config, logger log.Logger) (*TrainResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Nop()
	}
	start := time.Now()
	res := &TrainResult{Rows: f.Len()}

	required := append(append([]string{}, InputColumns...), cfg.Data.Target)
	var missingCols []string
	for _, name := range required {
		if _, ok := f.Column(name); !ok {
			missingCols = append(missingCols, name)
		}
	}
	if len(missingCols) > 0 {
		return nil, errors.Wrapf(errors.ErrSchemaMismatch, "dataset is missing columns %v", missingCols)
	}

	var err error
	if res.UndefinedBMI, err = AddBMI(f); err != nil {
		return nil, err
	}
	if res.UndefinedBMI > 0 {
		logger.Warn("BMI undefined for rows with non-positive height", log.SamplesKey, res.UndefinedBMI)
	}

	for _, mc := range f.MissingCounts() {
		if mc.Count > 0 {
			res.Missing = append(res.Missing, mc)
		}
	}

	y, err := f.Strings(cfg.Data.Target)
	if err != nil {
		return nil, errors.Wrap(err, "target column")
	}
	for _, label := range y {
		if label == "" {
			return nil, errors.NewValueError("TrainFrame", fmt.Sprintf("target column %q has missing labels", cfg.Data.Target))
		}
	}
	if res.ClassCounts, err = f.ValueCounts(cfg.Data.Target); err != nil {
		return nil, err
	}
	if res.Correlation, err = dataset.Correlation(f, CorrelationColumns); err != nil {
		return nil, err
	}

	X, err := f.Drop(cfg.Data.Target)
	if err != nil {
		return nil, err
	}
	// The predictor builds rows from FeatureSchema, so the training columns
	// must have the same kinds.
	if err := FeatureSchema.Validate(X); err != nil {
		return nil, err
	}
	res.CategoricalColumns = X.NamesOfKind(dataset.Categorical)
	res.NumericColumns = X.NamesOfKind(dataset.Numeric)

	t := cfg.Train
	split, err := ms.TrainTestSplit(y, t.TestSize, t.RandomState, true)
	if err != nil {
		return nil, err
	}
	xTrain, xTest := X.Take(split.Train), X.Take(split.Test)
	yTrain, yTest := pick(y, split.Train), pick(y, split.Test)
	logger.Info("Data split",
		log.PhaseKey, log.PhaseTraining,
		"train_samples", len(yTrain),
		"test_samples", len(yTest),
	)

	search := ms.NewRandomizedSearchCV(
		NewPipeline(res.NumericColumns, res.CategoricalColumns, t.RandomState),
		SearchSpace(t),
	)
	search.NIter = t.NIter
	search.CV = t.CV
	search.NJobs = t.NJobs
	search.RandomState = t.RandomState
	search.SetLogger(logger)
	if err := search.Fit(ctx, xTrain, yTrain); err != nil {
		return nil, errors.Wrap(err, "hyperparameter search")
	}
	res.Search = search

	best, ok := search.BestEstimator.(*pipeline.Pipeline)
	if !ok {
		return nil, errors.NewValueError("TrainFrame", "best estimator is not a pipeline")
	}
	yPred, err := best.Predict(xTest)
	if err != nil {
		return nil, errors.Wrap(err, "predict held-out split")
	}
	res.Labels = best.Classes()
	if res.Report, err = metrics.NewClassificationReport(yTest, yPred, res.Labels); err != nil {
		return nil, err
	}
	if res.Confusion, _, err = metrics.ConfusionMatrix(yTest, yPred, res.Labels); err != nil {
		return nil, err
	}
	logger.Info("Held-out evaluation",
		log.PhaseKey, log.PhaseTesting,
		log.AccuracyKey, res.Report.Accuracy,
		log.SamplesKey, len(yTest),
	)

	bestParams := make(map[string]string, len(search.BestParams))
	for k, v := range search.BestParams {
		bestParams[k] = model.FormatParam(k, v)
	}
	res.Artifact = &Artifact{
		Format:       ArtifactFormat,
		Pipeline:     best,
		Schema:       X.Schema(),
		Classes:      res.Labels,
		BestParams:   bestParams,
		CVScore:      search.BestScore,
		TestAccuracy: res.Report.Accuracy,
		TrainSamples: len(yTrain),
		TestSamples:  len(yTest),
		CreatedAt:    time.Now().UTC(),
	}

	if err := writeOutputs(res, cfg.Output, logger); err != nil {
		return nil, err
	}
	logger.Info("Training finished", log.DurationMsKey, time.Since(start).Milliseconds())
	return res, nil
}

func writeOutputs(res *TrainResult, out config.OutputConfig, logger log.Logger) error {
	if out.PlotsDir != "" {
		if err := os.MkdirAll(out.PlotsDir, 0o755); err != nil {
			return errors.Wrap(err, "create plots directory")
		}
		labels := make([]string, len(res.ClassCounts))
		counts := make([]int, len(res.ClassCounts))
		for i, vc := range res.ClassCounts {
			labels[i], counts[i] = vc.Value, vc.Count
		}
		plots := []struct {
			file string
			draw func(path string) error
		}{
			{viz.CorrelationFile, func(p string) error { return viz.CorrelationHeatmap(p, res.Correlation, CorrelationColumns) }},
			{viz.ClassBalanceFile, func(p string) error { return viz.ClassDistribution(p, labels, counts) }},
			{viz.ConfusionFile, func(p string) error { return viz.ConfusionHeatmap(p, res.Confusion, res.Labels) }},
		}
		for _, pl := range plots {
			path := filepath.Join(out.PlotsDir, pl.file)
			if err := pl.draw(path); err != nil {
				return err
			}
			res.Plots = append(res.Plots, path)
			logger.Debug("Plot written", log.PathKey, path)
		}
	}

	if out.Report != "" {
		if err := htmlReport(res).WriteFile(out.Report); err != nil {
			return err
		}
		res.ReportPath = out.Report
		logger.Debug("Report written", log.PathKey, out.Report)
	}

	if out.Artifact != "" {
		if dir := filepath.Dir(out.Artifact); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return errors.Wrap(err, "create artifact directory")
			}
		}
		if err := SaveArtifact(res.Artifact, out.Artifact); err != nil {
			return err
		}
		res.ArtifactPath = out.Artifact
		logger.Info("Artifact saved", log.PathKey, out.Artifact)
	}
	return nil
}

func htmlReport(res *TrainResult) *viz.Report {
	r := &viz.Report{
		Title:           "Obesity classifier training report",
		Confusion:       res.Confusion,
		ConfusionLabels: res.Labels,
	}
	for _, vc := range res.ClassCounts {
		r.ClassLabels = append(r.ClassLabels, vc.Value)
		r.ClassCounts = append(r.ClassCounts, vc.Count)
	}
	cv := res.Search.CVResults
	for _, i := range cv.Ranked() {
		r.CandidateNames = append(r.CandidateNames, ms.FormatParams(cv.Params[i]))
		r.CandidateScores = append(r.CandidateScores, cv.MeanTestScore[i])
	}
	return r
}

func pick(src []string, idx []int) []string {
	out := make([]string, len(idx))
	for i, j := range idx {
		out[i] = src[j]
	}
	return out
}
