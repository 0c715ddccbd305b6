package obesity

import (
	"io"
	"time"

	"github.com/delvitaw/obesity/core/model"
	"github.com/delvitaw/obesity/dataset"
	"github.com/delvitaw/obesity/pkg/errors"
	"github.com/delvitaw/obesity/sklearn/pipeline"
)

// ArtifactFormat is bumped whenever the Artifact layout changes.
const ArtifactFormat = 1

// DefaultArtifactPath is where the trainer writes the artifact.
const DefaultArtifactPath = "obesity_pipeline.gob"

// Artifact bundles the fitted pipeline with the metadata needed to use and
// audit it.
type Artifact struct {
	Format int

	// Pipeline is the fitted preprocessing and random forest pipeline.
	Pipeline *pipeline.Pipeline

	// Schema is the input contract: feature names, order and kinds.
	Schema  dataset.Schema
	Classes []string

	// BestParams holds the chosen hyperparameters in printable form.
	BestParams   map[string]string
	CVScore      float64
	TestAccuracy float64
	TrainSamples int
	TestSamples  int
	CreatedAt    time.Time
}

// Validate checks that the artifact can serve predictions.
func (a *Artifact) Validate() error {
	if a.Format != ArtifactFormat {
		return errors.NewValueError("Artifact", "unsupported artifact format")
	}
	if a.Pipeline == nil || !a.Pipeline.IsFitted() {
		return errors.NewNotFittedError("Artifact", "Validate")
	}
	if len(a.Classes) == 0 {
		return errors.NewModelError("Artifact", "no classes", errors.ErrEmptyData)
	}
	return nil
}

// SaveArtifact writes a to path atomically.
func SaveArtifact(a *Artifact, path string) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if err := model.SaveModel(a, path); err != nil {
		return errors.Wrapf(err, "save artifact %s", path)
	}
	return nil
}

// LoadArtifact reads and validates the artifact at path.
func LoadArtifact(path string) (*Artifact, error) {
	var a Artifact
	if err := model.LoadModel(&a, path); err != nil {
		return nil, errors.Wrapf(err, "load artifact %s", path)
	}
	if err := a.Validate(); err != nil {
		return nil, errors.Wrapf(err, "artifact %s", path)
	}
	return &a, nil
}

// ReadArtifact decodes and validates an artifact from r.
func ReadArtifact(r io.Reader) (*Artifact, error) {
	var a Artifact
	if err := model.LoadModelFromReader(&a, r); err != nil {
		return nil, err
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}
