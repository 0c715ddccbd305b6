package model

import (
	"gonum.org/v1/gonum/mat"

	"github.com/delvitaw/obesity/dataset"
)

// Transformer learns parameters from a numeric matrix and applies them.
type Transformer interface {
	// Fit learns parameters necessary for transformation
	Fit(X mat.Matrix) error

	// Transform transforms data
	Transform(X mat.Matrix) (mat.Matrix, error)

	// FitTransform executes Fit and Transform simultaneously
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}

// Classifier is a supervised estimator over class codes stored as floats in
// a single-column y.
type Classifier interface {
	Fit(X, y mat.Matrix) error
	Predict(X mat.Matrix) (mat.Matrix, error)
	PredictProba(X mat.Matrix) (mat.Matrix, error)
}

// Cloner returns an unfitted copy with the same hyperparameters, like
// sklearn.base.clone.
type Cloner interface {
	CloneEstimator() interface{}
}

// ParamSetter exposes hyperparameters by name.
type ParamSetter interface {
	GetParams() map[string]interface{}
	SetParams(params map[string]interface{}) error
}

// FrameTransformer learns parameters from named, typed columns and emits a
// numeric design matrix.
type FrameTransformer interface {
	Fit(f *dataset.Frame) error
	Transform(f *dataset.Frame) (*mat.Dense, error)
	FitTransform(f *dataset.Frame) (*mat.Dense, error)
	GetFeatureNamesOut() []string
}
