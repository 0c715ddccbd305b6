package preprocessing

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/delvitaw/obesity/core/model"
	"github.com/delvitaw/obesity/pkg/errors"
)

// Values for OneHotEncoder.HandleUnknown.
const (
	HandleUnknownError  = "error"
	HandleUnknownIgnore = "ignore"
)

// OneHotEncoder encodes categorical string features as one-hot numeric
// columns. Each input feature contributes one output column per category
// seen during Fit, in sorted order.
type OneHotEncoder struct {
	model.BaseEstimator

	// Categories holds the sorted categories of each input feature.
	Categories [][]string

	// CategoryToIdx maps a category to its offset within its feature block.
	CategoryToIdx []map[string]int

	// NFeatures is the number of input features.
	NFeatures int

	// NOutputs is the total number of output columns.
	NOutputs int

	// HandleUnknown is "error" or "ignore". With "ignore" a category not seen
	// during Fit encodes as an all-zero block.
	HandleUnknown string
}

// NewOneHotEncoder creates an encoder that fails on unknown categories.
//
//	encoder := preprocessing.NewOneHotEncoder()
//	err := encoder.Fit(data)
//	encoded, err := encoder.Transform(data)
func NewOneHotEncoder() *OneHotEncoder {
	e := &OneHotEncoder{HandleUnknown: HandleUnknownError}
	e.ModelType = "OneHotEncoder"
	return e
}

// NewOneHotEncoderIgnoreUnknown creates an encoder that encodes unseen
// categories as all zeros.
func NewOneHotEncoderIgnoreUnknown() *OneHotEncoder {
	e := NewOneHotEncoder()
	e.HandleUnknown = HandleUnknownIgnore
	return e
}

// Fit learns the categories of each column of data (n_samples × n_features).
// The empty string (a missing cell) is treated as a category of its own.
func (e *OneHotEncoder) Fit(data [][]string) (err error) {
	defer errors.Recover(&err, "OneHotEncoder.Fit")
	if e.HandleUnknown != HandleUnknownError && e.HandleUnknown != HandleUnknownIgnore {
		return errors.NewValidationError("handle_unknown", "must be 'error' or 'ignore'", e.HandleUnknown)
	}
	if len(data) == 0 {
		return errors.NewModelError("OneHotEncoder.Fit", "empty data", errors.ErrEmptyData)
	}
	if len(data[0]) == 0 {
		return errors.NewModelError("OneHotEncoder.Fit", "empty features", errors.ErrEmptyData)
	}

	nFeatures := len(data[0])
	for _, row := range data {
		if len(row) != nFeatures {
			return errors.NewDimensionError("OneHotEncoder.Fit", nFeatures, len(row), 1)
		}
	}

	e.NFeatures = nFeatures
	e.Categories = make([][]string, nFeatures)
	e.CategoryToIdx = make([]map[string]int, nFeatures)
	e.NOutputs = 0

	for j := 0; j < nFeatures; j++ {
		seen := make(map[string]struct{})
		for _, row := range data {
			seen[row[j]] = struct{}{}
		}
		categories := make([]string, 0, len(seen))
		for category := range seen {
			categories = append(categories, category)
		}
		sort.Strings(categories)

		idx := make(map[string]int, len(categories))
		for k, category := range categories {
			idx[category] = k
		}
		e.Categories[j] = categories
		e.CategoryToIdx[j] = idx
		e.NOutputs += len(categories)
	}

	e.SetFitted()
	return nil
}

// Transform one-hot encodes data with the fitted categories.
//
// Errors:
//   - ErrNotFitted: if the encoder hasn't been fitted yet
//   - ErrDimensionMismatch: if a row doesn't have the fitted number of features
//   - ErrUnknownCategory: if HandleUnknown is "error" and a category is new
func (e *OneHotEncoder) Transform(data [][]string) (_ mat.Matrix, err error) {
	defer errors.Recover(&err, "OneHotEncoder.Transform")
	if !e.IsFitted() {
		return nil, errors.NewNotFittedError("OneHotEncoder", "Transform")
	}
	if len(data) == 0 {
		return &mat.Dense{}, nil
	}

	result := mat.NewDense(len(data), e.NOutputs, nil)
	for i, row := range data {
		if len(row) != e.NFeatures {
			return nil, errors.NewDimensionError("OneHotEncoder.Transform", e.NFeatures, len(row), 1)
		}
		offset := 0
		for j, category := range row {
			if k, ok := e.CategoryToIdx[j][category]; ok {
				result.Set(i, offset+k, 1.0)
			} else if e.HandleUnknown != HandleUnknownIgnore {
				return nil, errors.Wrapf(errors.ErrUnknownCategory,
					"OneHotEncoder.Transform: feature %d: %q", j, category)
			}
			offset += len(e.Categories[j])
		}
	}
	return result, nil
}

// FitTransform fits the encoder and encodes the same data.
func (e *OneHotEncoder) FitTransform(data [][]string) (_ mat.Matrix, err error) {
	defer errors.Recover(&err, "OneHotEncoder.FitTransform")
	if err := e.Fit(data); err != nil {
		return nil, err
	}
	return e.Transform(data)
}

// GetFeatureNamesOut returns the output column names, "<feature>_<category>".
// When inputFeatures is nil the features are named x0, x1, ...
//
// For input features ["animal", "size"] the result looks like
// ["animal_cat", "animal_dog", "size_large", "size_small"].
func (e *OneHotEncoder) GetFeatureNamesOut(inputFeatures []string) []string {
	if !e.IsFitted() {
		return nil
	}

	out := make([]string, 0, e.NOutputs)
	for i, categories := range e.Categories {
		name := fmt.Sprintf("x%d", i)
		if i < len(inputFeatures) {
			name = inputFeatures[i]
		}
		for _, category := range categories {
			out = append(out, name+"_"+category)
		}
	}
	return out
}

// GetParams returns the encoder's hyperparameters.
func (e *OneHotEncoder) GetParams() map[string]interface{} {
	return map[string]interface{}{"handle_unknown": e.HandleUnknown}
}

// SetParams updates handle_unknown.
func (e *OneHotEncoder) SetParams(params map[string]interface{}) error {
	for k, v := range params {
		if k != "handle_unknown" {
			return errors.NewValidationError(k, "unknown parameter for OneHotEncoder", v)
		}
		s, ok := v.(string)
		if !ok || (s != HandleUnknownError && s != HandleUnknownIgnore) {
			return errors.NewValidationError(k, "must be 'error' or 'ignore'", v)
		}
		e.HandleUnknown = s
	}
	return nil
}

// CloneEstimator returns an unfitted encoder with the same settings.
func (e *OneHotEncoder) CloneEstimator() interface{} {
	c := NewOneHotEncoder()
	c.HandleUnknown = e.HandleUnknown
	return c
}
