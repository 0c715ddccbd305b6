// Package preprocessing provides the per-column transformers used in front
// of the classifier:
//
//   - StandardScaler: centers numeric features and scales them to unit variance
//   - OneHotEncoder: expands categorical features into 0/1 indicator columns
//   - LabelEncoder: maps target strings to class codes and back
//
// The transformers follow the Fit / Transform / FitTransform pattern and embed
// model.BaseEstimator for fitted-state tracking. Their fields are exported so
// a fitted pipeline can be gob encoded.
//
// Missing numeric values are NaN. StandardScaler ignores them when computing
// statistics and passes them through Transform unchanged, so the tree models
// downstream can route them.
//
// Example usage:
//
//	scaler := preprocessing.NewStandardScaler(true, true)
//	err := scaler.Fit(trainingData)
//	if err != nil {
//		log.Fatal(err)
//	}
//	scaledData, err := scaler.Transform(testData)
package preprocessing

import (
	"encoding/gob"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/delvitaw/obesity/core/model"
	"github.com/delvitaw/obesity/pkg/errors"
)

func init() {
	gob.Register(&StandardScaler{})
	gob.Register(&OneHotEncoder{})
	gob.Register(&LabelEncoder{})
}

// StandardScaler standardizes features by removing the mean and scaling to
// unit variance.
type StandardScaler struct {
	model.BaseEstimator

	// Mean is the per-feature mean of the non-missing training values.
	Mean []float64

	// Scale is the per-feature population standard deviation. Constant
	// features get a scale of 1.
	Scale []float64

	// NSamplesSeen counts the non-missing training values per feature.
	NSamplesSeen []int

	// NFeatures is the number of input columns seen during Fit.
	NFeatures int

	// WithMean subtracts the mean (default: true).
	WithMean bool

	// WithStd divides by the standard deviation (default: true).
	WithStd bool
}

// NewStandardScaler creates a new StandardScaler for feature standardization.
//
// Parameters:
//   - withMean: whether to center the data at zero by removing the mean
//   - withStd: whether to scale the data to unit variance
//
// Example:
//
//	// Standard z-score normalization (mean=0, std=1)
//	scaler := preprocessing.NewStandardScaler(true, true)
//	err := scaler.Fit(X_train)
//	X_scaled, err := scaler.Transform(X_test)
func NewStandardScaler(withMean, withStd bool) *StandardScaler {
	s := &StandardScaler{
		WithMean: withMean,
		WithStd:  withStd,
	}
	s.ModelType = "StandardScaler"
	return s
}

// NewStandardScalerDefault creates a StandardScaler with both centering and
// scaling enabled.
func NewStandardScalerDefault() *StandardScaler {
	return NewStandardScaler(true, true)
}

// Fit computes the per-feature mean and scale from the training data.
//
// NaN cells are skipped. A feature whose values are all NaN keeps a mean of 0
// and a scale of 1.
//
// Errors:
//   - ErrEmptyData: if X has no rows or no columns
func (s *StandardScaler) Fit(X mat.Matrix) (err error) {
	defer errors.Recover(&err, "StandardScaler.Fit")
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("StandardScaler.Fit", "empty data", errors.ErrEmptyData)
	}

	s.NFeatures = c
	s.Mean = make([]float64, c)
	s.Scale = make([]float64, c)
	s.NSamplesSeen = make([]int, c)

	col := make([]float64, 0, r)
	for j := 0; j < c; j++ {
		col = col[:0]
		for i := 0; i < r; i++ {
			if v := X.At(i, j); !math.IsNaN(v) {
				col = append(col, v)
			}
		}
		s.NSamplesSeen[j] = len(col)
		s.Scale[j] = 1.0
		if len(col) == 0 {
			continue
		}

		mean, std := stat.PopMeanStdDev(col, nil)
		if s.WithMean {
			s.Mean[j] = mean
		}
		if s.WithStd && std >= 1e-8 {
			s.Scale[j] = std
		}
	}

	s.SetFitted()
	return nil
}

// Transform applies X_scaled = (X - mean) / scale using the fitted
// statistics. NaN cells stay NaN.
//
// Errors:
//   - ErrNotFitted: if the scaler hasn't been fitted yet
//   - ErrDimensionMismatch: if X doesn't have the fitted number of columns
func (s *StandardScaler) Transform(X mat.Matrix) (_ mat.Matrix, err error) {
	defer errors.Recover(&err, "StandardScaler.Transform")
	if !s.IsFitted() {
		return nil, errors.NewNotFittedError("StandardScaler", "Transform")
	}

	r, c := X.Dims()
	if c != s.NFeatures {
		return nil, errors.NewDimensionError("StandardScaler.Transform", s.NFeatures, c, 1)
	}
	if r == 0 {
		return &mat.Dense{}, nil
	}

	result := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			result.Set(i, j, (X.At(i, j)-s.Mean[j])/s.Scale[j])
		}
	}
	return result, nil
}

// FitTransform fits the scaler and transforms the training data in one step.
func (s *StandardScaler) FitTransform(X mat.Matrix) (_ mat.Matrix, err error) {
	defer errors.Recover(&err, "StandardScaler.FitTransform")
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// InverseTransform reverses the standardization: X_orig = X_scaled * scale + mean.
func (s *StandardScaler) InverseTransform(X mat.Matrix) (_ mat.Matrix, err error) {
	defer errors.Recover(&err, "StandardScaler.InverseTransform")
	if !s.IsFitted() {
		return nil, errors.NewNotFittedError("StandardScaler", "InverseTransform")
	}

	r, c := X.Dims()
	if c != s.NFeatures {
		return nil, errors.NewDimensionError("StandardScaler.InverseTransform", s.NFeatures, c, 1)
	}
	if r == 0 {
		return &mat.Dense{}, nil
	}

	result := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			result.Set(i, j, X.At(i, j)*s.Scale[j]+s.Mean[j])
		}
	}
	return result, nil
}

// GetParams returns the scaler's hyperparameters.
func (s *StandardScaler) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"with_mean": s.WithMean,
		"with_std":  s.WithStd,
	}
}

// SetParams updates with_mean and with_std.
func (s *StandardScaler) SetParams(params map[string]interface{}) error {
	for k, v := range params {
		b, ok := v.(bool)
		if !ok {
			return errors.NewValidationError(k, "must be a bool", v)
		}
		switch k {
		case "with_mean":
			s.WithMean = b
		case "with_std":
			s.WithStd = b
		default:
			return errors.NewValidationError(k, "unknown parameter for StandardScaler", v)
		}
	}
	return nil
}

// CloneEstimator returns an unfitted scaler with the same settings.
func (s *StandardScaler) CloneEstimator() interface{} {
	return NewStandardScaler(s.WithMean, s.WithStd)
}

// String returns a description of the scaler.
func (s *StandardScaler) String() string {
	if !s.IsFitted() {
		return fmt.Sprintf("StandardScaler(with_mean=%t, with_std=%t)", s.WithMean, s.WithStd)
	}
	return fmt.Sprintf("StandardScaler(with_mean=%t, with_std=%t, n_features=%d)",
		s.WithMean, s.WithStd, s.NFeatures)
}
