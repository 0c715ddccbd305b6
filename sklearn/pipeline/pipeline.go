// Package pipeline implements scikit-learn compatible Pipeline for chaining
// a column transformer and a classifier over string class labels.
//
// The first step turns a dataset.Frame into a numeric matrix, any middle
// steps are matrix transformers and the final step is a classifier. The
// pipeline owns the label vocabulary and the input schema, so a fitted
// pipeline is the single object needed to go from a raw row to a label.
package pipeline

import (
	"context"
	"encoding/gob"
	"fmt"
	"strings"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/delvitaw/obesity/core/model"
	"github.com/delvitaw/obesity/dataset"
	"github.com/delvitaw/obesity/pkg/errors"
	"github.com/delvitaw/obesity/pkg/log"
	"github.com/delvitaw/obesity/preprocessing"
)

func init() {
	gob.Register(&Pipeline{})
}

// Step represents a single step in the pipeline.
// Each step is a tuple of (name, transformer/estimator).
type Step struct {
	Name      string      // Name of this step (for identification)
	Estimator interface{} // FrameTransformer, Transformer or classifier
}

// contextFitter is implemented by classifiers whose Fit can be cancelled.
type contextFitter interface {
	FitContext(ctx context.Context, X, y mat.Matrix) error
}

type classLister interface {
	GetClasses() []int
}

// Pipeline chains a frame transformer, optional matrix transformers and a
// final classifier. Fields are exported for gob encoding.
type Pipeline struct {
	State *model.StateManager

	Steps []Step

	// Labels maps class labels to the codes the classifier is trained on.
	Labels *preprocessing.LabelEncoder

	// InputSchema is the column contract of the frame passed to Fit.
	InputSchema dataset.Schema

	logger log.Logger
}

// New creates a new Pipeline with the given steps.
// This is equivalent to sklearn.pipeline.Pipeline(steps)
func New(steps ...Step) *Pipeline {
	p := &Pipeline{
		State: model.NewStateManager(),
		Steps: steps,
	}
	p.logger = log.GetLoggerWithName("Pipeline")
	return p
}

// NewPipeline is an alias for New to match sklearn naming conventions
func NewPipeline(steps ...Step) *Pipeline {
	return New(steps...)
}

// SetLogger replaces the pipeline's logger.
func (p *Pipeline) SetLogger(l log.Logger) {
	p.logger = l
}

func (p *Pipeline) getLogger() log.Logger {
	if p.logger == nil {
		return log.Nop()
	}
	return p.logger
}

// IsFitted reports whether Fit has completed.
func (p *Pipeline) IsFitted() bool {
	return p.State.IsFitted()
}

func (p *Pipeline) validate() error {
	if len(p.Steps) < 2 {
		return errors.NewValidationError("steps", "need a frame transformer and a final classifier", len(p.Steps))
	}
	names := make(map[string]bool, len(p.Steps))
	for _, s := range p.Steps {
		if s.Name == "" || strings.Contains(s.Name, "__") {
			return errors.NewValidationError("step name", "must be non-empty and not contain '__'", s.Name)
		}
		if names[s.Name] {
			return errors.NewValidationError("step name", "must be unique", s.Name)
		}
		names[s.Name] = true
	}
	if _, ok := p.Steps[0].Estimator.(model.FrameTransformer); !ok {
		return errors.NewValidationError("pipeline first step", "must transform a dataset.Frame", p.Steps[0].Name)
	}
	for _, s := range p.Steps[1 : len(p.Steps)-1] {
		if _, ok := s.Estimator.(model.Transformer); !ok {
			return errors.NewValidationError("pipeline step", "intermediate steps must be transformers", s.Name)
		}
	}
	last := p.Steps[len(p.Steps)-1]
	if _, ok := last.Estimator.(model.Classifier); !ok {
		return errors.NewValidationError("pipeline final step", "final step must be a classifier", last.Name)
	}
	return nil
}

// Fit trains the pipeline on the feature frame f and labels y.
func (p *Pipeline) Fit(f *dataset.Frame, y []string) error {
	return p.FitContext(context.Background(), f, y)
}

// FitContext fits every transformer in order on the output of the previous
// one, then fits the final classifier on the label codes.
func (p *Pipeline) FitContext(ctx context.Context, f *dataset.Frame, y []string) (err error) {
	defer errors.Recover(&err, "Pipeline.Fit")
	if err := p.validate(); err != nil {
		return err
	}
	if f.Len() != len(y) {
		return errors.NewDimensionError("Pipeline.Fit", f.Len(), len(y), 0)
	}

	start := time.Now()
	labels := preprocessing.NewLabelEncoder()
	codes, err := labels.FitTransform(y)
	if err != nil {
		return errors.Wrap(err, "encoding labels")
	}

	first := p.Steps[0]
	Xt, err := first.Estimator.(model.FrameTransformer).FitTransform(f)
	if err != nil {
		return errors.Wrapf(err, "failed to fit step '%s'", first.Name)
	}

	var X mat.Matrix = Xt
	for _, step := range p.Steps[1 : len(p.Steps)-1] {
		if X, err = step.Estimator.(model.Transformer).FitTransform(X); err != nil {
			return errors.Wrapf(err, "failed to fit step '%s'", step.Name)
		}
	}

	yCodes := mat.NewDense(len(codes), 1, nil)
	for i, c := range codes {
		yCodes.Set(i, 0, float64(c))
	}

	last := p.Steps[len(p.Steps)-1]
	if cf, ok := last.Estimator.(contextFitter); ok {
		err = cf.FitContext(ctx, X, yCodes)
	} else {
		err = last.Estimator.(model.Classifier).Fit(X, yCodes)
	}
	if err != nil {
		return errors.Wrapf(err, "failed to fit final step '%s'", last.Name)
	}

	p.Labels = labels
	p.InputSchema = f.Schema()
	if p.State == nil {
		p.State = model.NewStateManager()
	}
	p.State.SetFitted()

	_, nFeatures := X.Dims()
	p.getLogger().Debug("Pipeline fitted",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, f.Len(),
		log.FeaturesKey, nFeatures,
		log.ClassesKey, len(labels.Classes),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// Classes returns the class labels in probability column order.
func (p *Pipeline) Classes() []string {
	if p.Labels == nil {
		return nil
	}
	out := make([]string, len(p.Labels.Classes))
	copy(out, p.Labels.Classes)
	return out
}

// Transform applies every step but the classifier to f after checking f
// against the input schema.
func (p *Pipeline) Transform(f *dataset.Frame) (mat.Matrix, error) {
	if !p.IsFitted() {
		return nil, errors.NewNotFittedError("Pipeline", "Transform")
	}
	if err := p.InputSchema.Validate(f); err != nil {
		return nil, err
	}

	first := p.Steps[0]
	Xt, err := first.Estimator.(model.FrameTransformer).Transform(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to transform at step '%s'", first.Name)
	}
	var X mat.Matrix = Xt
	for _, step := range p.Steps[1 : len(p.Steps)-1] {
		if X, err = step.Estimator.(model.Transformer).Transform(X); err != nil {
			return nil, errors.Wrapf(err, "failed to transform at step '%s'", step.Name)
		}
	}
	return X, nil
}

// PredictProba returns one row per sample and one column per class in
// Classes order.
func (p *Pipeline) PredictProba(f *dataset.Frame) (*mat.Dense, error) {
	if !p.IsFitted() {
		return nil, errors.NewNotFittedError("Pipeline", "PredictProba")
	}
	X, err := p.Transform(f)
	if err != nil {
		return nil, err
	}

	clf := p.Steps[len(p.Steps)-1].Estimator.(model.Classifier)
	raw, err := clf.PredictProba(X)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to predict at step '%s'", p.Steps[len(p.Steps)-1].Name)
	}

	nClasses := len(p.Labels.Classes)
	rows, cols := raw.Dims()
	out := mat.NewDense(rows, nClasses, nil)

	// Map the classifier's columns onto label codes; a classifier trained on
	// a subset of the classes leaves the others at zero.
	codes := make([]int, cols)
	for j := range codes {
		codes[j] = j
	}
	if cl, ok := clf.(classLister); ok && len(cl.GetClasses()) == cols {
		codes = cl.GetClasses()
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if codes[j] >= 0 && codes[j] < nClasses {
				out.Set(i, codes[j], raw.At(i, j))
			}
		}
	}
	return out, nil
}

// Predict returns the most probable label of each row. Ties go to the label
// that sorts first.
func (p *Pipeline) Predict(f *dataset.Frame) ([]string, error) {
	proba, err := p.PredictProba(f)
	if err != nil {
		return nil, err
	}
	rows, cols := proba.Dims()
	out := make([]string, rows)
	for i := 0; i < rows; i++ {
		best := 0
		for j := 1; j < cols; j++ {
			if proba.At(i, j) > proba.At(i, best) {
				best = j
			}
		}
		out[i] = p.Labels.Classes[best]
	}
	return out, nil
}

// Score returns the accuracy of Predict(f) against y.
func (p *Pipeline) Score(f *dataset.Frame, y []string) (float64, error) {
	pred, err := p.Predict(f)
	if err != nil {
		return 0, err
	}
	if len(pred) != len(y) {
		return 0, errors.NewDimensionError("Pipeline.Score", len(pred), len(y), 0)
	}
	if len(y) == 0 {
		return 0, errors.NewModelError("Pipeline.Score", "empty data", errors.ErrEmptyData)
	}
	correct := 0
	for i := range y {
		if pred[i] == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(y)), nil
}

// GetParams returns the parameters of every step as "<step>__<param>".
func (p *Pipeline) GetParams() map[string]interface{} {
	params := make(map[string]interface{})
	for _, step := range p.Steps {
		if g, ok := step.Estimator.(model.ParamSetter); ok {
			for key, value := range g.GetParams() {
				params[fmt.Sprintf("%s__%s", step.Name, key)] = value
			}
		}
	}
	return params
}

// SetParams routes "<step>__<param>" keys to the named step, the way
// sklearn's set_params does. Nested keys such as "pre__num__with_mean" are
// passed on with the first segment removed.
func (p *Pipeline) SetParams(params map[string]interface{}) error {
	byStep := make(map[string]map[string]interface{})
	for key, value := range params {
		name, rest, ok := strings.Cut(key, "__")
		if !ok {
			return errors.NewValidationError(key, "pipeline parameters must be named <step>__<param>", value)
		}
		if byStep[name] == nil {
			byStep[name] = make(map[string]interface{})
		}
		byStep[name][rest] = value
	}

	named := p.NamedSteps()
	for name, sub := range byStep {
		est, ok := named[name]
		if !ok {
			return errors.NewValidationError(name, "unknown pipeline step", sub)
		}
		s, ok := est.(model.ParamSetter)
		if !ok {
			return errors.NewValidationError(name, "step does not accept parameters", sub)
		}
		if err := s.SetParams(sub); err != nil {
			return errors.Wrapf(err, "step '%s'", name)
		}
	}
	return nil
}

// CloneEstimator returns an unfitted pipeline whose steps are unfitted
// clones with the same hyperparameters.
func (p *Pipeline) CloneEstimator() interface{} {
	steps := make([]Step, len(p.Steps))
	for i, s := range p.Steps {
		est := s.Estimator
		if c, ok := est.(model.Cloner); ok {
			est = c.CloneEstimator()
		}
		steps[i] = Step{Name: s.Name, Estimator: est}
	}
	clone := New(steps...)
	clone.logger = p.logger
	return clone
}

// Clone is CloneEstimator with a concrete return type.
func (p *Pipeline) Clone() *Pipeline {
	return p.CloneEstimator().(*Pipeline)
}

// NamedSteps returns the steps as a map for easy access by name.
func (p *Pipeline) NamedSteps() map[string]interface{} {
	named := make(map[string]interface{}, len(p.Steps))
	for _, s := range p.Steps {
		named[s.Name] = s.Estimator
	}
	return named
}

// FeatureNamesOut returns the column names produced by the first step.
func (p *Pipeline) FeatureNamesOut() []string {
	if len(p.Steps) == 0 {
		return nil
	}
	if ft, ok := p.Steps[0].Estimator.(model.FrameTransformer); ok {
		return ft.GetFeatureNamesOut()
	}
	return nil
}
