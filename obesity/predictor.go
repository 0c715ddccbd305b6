package obesity

import (
	"time"

	"github.com/delvitaw/obesity/pkg/errors"
	"github.com/delvitaw/obesity/pkg/log"
)

// Prediction is the outcome for one Sample.
type Prediction struct {
	Label         string             `json:"label"`
	Probabilities map[string]float64 `json:"probabilities"`
	BMI           float64            `json:"bmi"`
}

// Predictor classifies Samples with a loaded Artifact. It is safe for
// concurrent use.
type Predictor struct {
	artifact *Artifact
	logger   log.Logger
}

// NewPredictor wraps a validated artifact.
func NewPredictor(a *Artifact, logger log.Logger) (*Predictor, error) {
	if a == nil {
		return nil, errors.NewValueError("NewPredictor", "artifact is nil")
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Predictor{artifact: a, logger: logger}, nil
}

// LoadPredictor loads the artifact at path.
func LoadPredictor(path string, logger log.Logger) (*Predictor, error) {
	a, err := LoadArtifact(path)
	if err != nil {
		return nil, err
	}
	return NewPredictor(a, logger)
}

// Artifact returns the loaded artifact.
func (p *Predictor) Artifact() *Artifact { return p.artifact }

// Classes returns the labels the model can predict.
func (p *Predictor) Classes() []string { return p.artifact.Pipeline.Classes() }

// Predict validates s, builds its one-row frame with BMI and returns the
// most probable label. Ties go to the label that sorts first, so the result
// is a pure function of the artifact and the sample.
func (p *Predictor) Predict(s Sample) (Prediction, error) {
	if err := s.Validate(); err != nil {
		return Prediction{}, err
	}
	bmi, err := s.BMI()
	if err != nil {
		return Prediction{}, err
	}
	f, err := s.Frame()
	if err != nil {
		return Prediction{}, err
	}

	start := time.Now()
	proba, err := p.artifact.Pipeline.PredictProba(f)
	if err != nil {
		return Prediction{}, errors.Wrap(err, "predict")
	}

	classes := p.artifact.Pipeline.Classes()
	out := Prediction{Probabilities: make(map[string]float64, len(classes)), BMI: bmi}
	best := 0
	for j, c := range classes {
		out.Probabilities[c] = proba.At(0, j)
		if proba.At(0, j) > proba.At(0, best) {
			best = j
		}
	}
	out.Label = classes[best]

	p.logger.Debug("Prediction",
		log.OperationKey, log.OperationPredict,
		log.LabelKey, out.Label,
		log.ConfidenceKey, out.Probabilities[out.Label],
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return out, nil
}
