// Package ensemble implements a random forest classifier on top of
// sklearn/tree.
package ensemble

import (
	"context"
	"encoding/gob"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/delvitaw/obesity/core/model"
	"github.com/delvitaw/obesity/core/parallel"
	"github.com/delvitaw/obesity/pkg/errors"
	"github.com/delvitaw/obesity/pkg/log"
	"github.com/delvitaw/obesity/sklearn/tree"
)

func init() {
	gob.Register(&RandomForestClassifier{})
}

// RandomForestClassifier averages the class probabilities of decision trees
// grown on bootstrap samples with a random subset of features per split.
type RandomForestClassifier struct {
	model.BaseEstimator

	// Hyperparameters
	NEstimators     int
	Criterion       string
	MaxDepth        int // 0 = unlimited
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     string
	Bootstrap       bool
	RandomState     int64 // negative seeds from the clock
	NJobs           int   // -1 = one worker per CPU

	// Fitted state
	Estimators         []*tree.DecisionTreeClassifier
	Classes            []int
	NFeatures          int
	FeatureImportances []float64
}

// RandomForestOption is a functional option
type RandomForestOption func(*RandomForestClassifier)

// WithNEstimators sets the number of trees
func WithNEstimators(n int) RandomForestOption {
	return func(rf *RandomForestClassifier) { rf.NEstimators = n }
}

// WithMaxDepth sets the maximum depth of every tree
func WithMaxDepth(d int) RandomForestOption {
	return func(rf *RandomForestClassifier) { rf.MaxDepth = d }
}

// WithMinSamplesSplit sets the minimum samples required to split a node
func WithMinSamplesSplit(n int) RandomForestOption {
	return func(rf *RandomForestClassifier) { rf.MinSamplesSplit = n }
}

// WithMaxFeatures sets the features drawn per split
func WithMaxFeatures(s string) RandomForestOption {
	return func(rf *RandomForestClassifier) { rf.MaxFeatures = s }
}

// WithBootstrap toggles bootstrap sampling
func WithBootstrap(b bool) RandomForestOption {
	return func(rf *RandomForestClassifier) { rf.Bootstrap = b }
}

// WithRandomState sets the seed; tree i uses seed+i.
func WithRandomState(seed int64) RandomForestOption {
	return func(rf *RandomForestClassifier) { rf.RandomState = seed }
}

// WithNJobs sets the number of trees fitted concurrently
func WithNJobs(n int) RandomForestOption {
	return func(rf *RandomForestClassifier) { rf.NJobs = n }
}

// NewRandomForestClassifier creates a forest with scikit-learn's defaults:
// 100 trees, gini, unlimited depth, sqrt features per split, bootstrap.
func NewRandomForestClassifier(opts ...RandomForestOption) *RandomForestClassifier {
	rf := &RandomForestClassifier{
		NEstimators:     100,
		Criterion:       "gini",
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		MaxFeatures:     "sqrt",
		Bootstrap:       true,
		RandomState:     -1,
		NJobs:           -1,
	}
	rf.ModelType = "RandomForestClassifier"
	for _, o := range opts {
		o(rf)
	}
	rf.SetLogger(log.GetLoggerWithName("ensemble").With(log.ModelNameKey, rf.ModelType))
	return rf
}

// Fit trains the forest on X and a single-column y of class labels.
func (rf *RandomForestClassifier) Fit(X, y mat.Matrix) error {
	return rf.FitContext(context.Background(), X, y)
}

// FitContext is Fit with cancellation. Trees are grown concurrently on a
// shared column-major copy of X.
func (rf *RandomForestClassifier) FitContext(ctx context.Context, X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "RandomForestClassifier.Fit")
	if rf.NEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be >= 1", rf.NEstimators)
	}
	nSamples, nFeatures := X.Dims()
	yRows, yCols := y.Dims()
	if nSamples != yRows {
		return errors.NewDimensionError("RandomForestClassifier.Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("RandomForestClassifier.Fit", 1, yCols, 1)
	}

	classes, codes := tree.EncodeClasses(y)
	data, err := tree.NewDataset(X, codes, len(classes))
	if err != nil {
		return err
	}

	seed := rf.RandomState
	if seed < 0 {
		seed = time.Now().UnixNano()
	}

	start := time.Now()
	rf.LogDebug("Training started",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
		log.ClassesKey, len(classes),
		"n_estimators", rf.NEstimators,
	)

	estimators := make([]*tree.DecisionTreeClassifier, rf.NEstimators)
	err = parallel.ForEach(ctx, rf.NEstimators, parallel.Workers(rf.NJobs), func(_ context.Context, idx int) error {
		treeSeed := seed + int64(idx)
		samples := make([]int, nSamples)
		if rf.Bootstrap {
			rng := rand.New(rand.NewSource(treeSeed))
			for j := range samples {
				samples[j] = rng.Intn(nSamples)
			}
		} else {
			for j := range samples {
				samples[j] = j
			}
		}

		dt := tree.NewDecisionTreeClassifier(
			tree.WithCriterion(rf.Criterion),
			tree.WithMaxDepth(rf.MaxDepth),
			tree.WithMinSamplesSplit(rf.MinSamplesSplit),
			tree.WithMinSamplesLeaf(rf.MinSamplesLeaf),
			tree.WithMaxFeatures(rf.MaxFeatures),
			tree.WithDTRandomState(treeSeed),
		)
		if err := dt.FitDataset(data, samples); err != nil {
			return errors.Wrapf(err, "tree %d", idx)
		}
		estimators[idx] = dt
		return nil
	})
	if err != nil {
		return err
	}

	rf.Estimators = estimators
	rf.Classes = classes
	rf.NFeatures = nFeatures
	rf.computeFeatureImportances()
	rf.SetFitted()

	rf.LogDebug("Training completed",
		log.OperationKey, log.OperationFit,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

func (rf *RandomForestClassifier) computeFeatureImportances() {
	rf.FeatureImportances = make([]float64, rf.NFeatures)
	for _, dt := range rf.Estimators {
		for j, v := range dt.FeatureImportances {
			rf.FeatureImportances[j] += v
		}
	}
	sum := 0.0
	for _, v := range rf.FeatureImportances {
		sum += v
	}
	if sum > 0 {
		for j := range rf.FeatureImportances {
			rf.FeatureImportances[j] /= sum
		}
	}
}

// PredictProba returns the mean of the trees' class probabilities. Columns
// follow Classes.
func (rf *RandomForestClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if !rf.IsFitted() {
		return nil, errors.NewNotFittedError("RandomForestClassifier", "PredictProba")
	}
	nSamples, nFeatures := X.Dims()
	if nFeatures != rf.NFeatures {
		return nil, errors.NewDimensionError("RandomForestClassifier.PredictProba", rf.NFeatures, nFeatures, 1)
	}
	if nSamples == 0 {
		return nil, errors.NewModelError("RandomForestClassifier.PredictProba", "empty data", errors.ErrEmptyData)
	}

	proba := mat.NewDense(nSamples, len(rf.Classes), nil)
	scale := 1.0 / float64(len(rf.Estimators))
	parallel.ParallelizeWithThreshold(nSamples, 64, func(start, end int) {
		row := make([]float64, nFeatures)
		for i := start; i < end; i++ {
			mat.Row(row, i, X)
			dst := proba.RawRowView(i)
			for _, dt := range rf.Estimators {
				dt.AddProba(dst, row)
			}
			for j := range dst {
				dst[j] *= scale
			}
		}
	})
	return proba, nil
}

// Predict returns the class with the highest mean probability. Ties go to
// the class that sorts first.
func (rf *RandomForestClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := rf.PredictProba(X)
	if err != nil {
		return nil, err
	}
	nSamples, nClasses := proba.Dims()
	out := mat.NewDense(nSamples, 1, nil)
	for i := 0; i < nSamples; i++ {
		best := 0
		for j := 1; j < nClasses; j++ {
			if proba.At(i, j) > proba.At(i, best) {
				best = j
			}
		}
		out.Set(i, 0, float64(rf.Classes[best]))
	}
	return out, nil
}

// Score returns the mean accuracy on X and y.
func (rf *RandomForestClassifier) Score(X, y mat.Matrix) (float64, error) {
	pred, err := rf.Predict(X)
	if err != nil {
		return 0, err
	}
	n, _ := pred.Dims()
	correct := 0
	for i := 0; i < n; i++ {
		if pred.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// GetClasses returns the class labels in probability column order.
func (rf *RandomForestClassifier) GetClasses() []int {
	return rf.Classes
}

// GetFeatureImportances returns the normalized mean impurity decrease per
// feature.
func (rf *RandomForestClassifier) GetFeatureImportances() []float64 {
	out := make([]float64, len(rf.FeatureImportances))
	copy(out, rf.FeatureImportances)
	return out
}

// GetParams returns the model hyperparameters
func (rf *RandomForestClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":      rf.NEstimators,
		"criterion":         rf.Criterion,
		"max_depth":         rf.MaxDepth,
		"min_samples_split": rf.MinSamplesSplit,
		"min_samples_leaf":  rf.MinSamplesLeaf,
		"max_features":      rf.MaxFeatures,
		"bootstrap":         rf.Bootstrap,
		"random_state":      rf.RandomState,
		"n_jobs":            rf.NJobs,
	}
}

// SetParams sets the model hyperparameters
func (rf *RandomForestClassifier) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var err error
		switch key {
		case "n_estimators":
			rf.NEstimators, err = model.ParamInt(value)
		case "criterion":
			rf.Criterion, err = model.ParamString(value)
		case "max_depth":
			rf.MaxDepth, err = model.ParamInt(value)
		case "min_samples_split":
			rf.MinSamplesSplit, err = model.ParamInt(value)
		case "min_samples_leaf":
			rf.MinSamplesLeaf, err = model.ParamInt(value)
		case "max_features":
			rf.MaxFeatures, err = model.ParamString(value)
		case "bootstrap":
			rf.Bootstrap, err = model.ParamBool(value)
		case "random_state":
			rf.RandomState, err = model.ParamInt64(value)
		case "n_jobs":
			rf.NJobs, err = model.ParamInt(value)
		default:
			return errors.NewValidationError(key, "unknown parameter for RandomForestClassifier", value)
		}
		if err != nil {
			return errors.NewValidationError(key, err.Error(), value)
		}
	}
	return nil
}

// CloneEstimator returns an unfitted forest with the same hyperparameters.
func (rf *RandomForestClassifier) CloneEstimator() interface{} {
	clone := NewRandomForestClassifier()
	_ = clone.SetParams(rf.GetParams())
	if l := rf.GetLogger(); l != nil {
		clone.SetLogger(l)
	}
	return clone
}
