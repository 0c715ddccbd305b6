package preprocessing

import (
	"sort"
	"strconv"

	"github.com/delvitaw/obesity/core/model"
	"github.com/delvitaw/obesity/pkg/errors"
)

// LabelEncoder maps target labels to integer codes 0..n_classes-1 in
// sorted label order.
type LabelEncoder struct {
	model.BaseEstimator

	// Classes holds the sorted distinct labels; the code of Classes[i] is i.
	Classes []string
}

// NewLabelEncoder creates an unfitted LabelEncoder.
func NewLabelEncoder() *LabelEncoder {
	e := &LabelEncoder{}
	e.ModelType = "LabelEncoder"
	return e
}

// Fit learns the distinct labels of y. Missing (empty) labels are rejected.
func (e *LabelEncoder) Fit(y []string) error {
	if len(y) == 0 {
		return errors.NewModelError("LabelEncoder.Fit", "empty data", errors.ErrEmptyData)
	}
	seen := make(map[string]struct{})
	for i, label := range y {
		if label == "" {
			return errors.NewValueError("LabelEncoder.Fit", "missing label at row "+strconv.Itoa(i))
		}
		seen[label] = struct{}{}
	}
	e.Classes = make([]string, 0, len(seen))
	for label := range seen {
		e.Classes = append(e.Classes, label)
	}
	sort.Strings(e.Classes)
	e.SetFitted()
	return nil
}

// Transform returns the code of each label.
func (e *LabelEncoder) Transform(y []string) ([]int, error) {
	if !e.IsFitted() {
		return nil, errors.NewNotFittedError("LabelEncoder", "Transform")
	}
	codes := make([]int, len(y))
	for i, label := range y {
		code, ok := e.code(label)
		if !ok {
			return nil, errors.Wrapf(errors.ErrUnknownCategory, "LabelEncoder.Transform: label %q", label)
		}
		codes[i] = code
	}
	return codes, nil
}

// FitTransform fits the encoder and returns the codes of y.
func (e *LabelEncoder) FitTransform(y []string) ([]int, error) {
	if err := e.Fit(y); err != nil {
		return nil, err
	}
	return e.Transform(y)
}

// InverseTransform maps codes back to labels.
func (e *LabelEncoder) InverseTransform(codes []int) ([]string, error) {
	if !e.IsFitted() {
		return nil, errors.NewNotFittedError("LabelEncoder", "InverseTransform")
	}
	out := make([]string, len(codes))
	for i, c := range codes {
		if c < 0 || c >= len(e.Classes) {
			return nil, errors.NewValueError("LabelEncoder.InverseTransform", "code "+strconv.Itoa(c)+" out of range")
		}
		out[i] = e.Classes[c]
	}
	return out, nil
}

func (e *LabelEncoder) code(label string) (int, bool) {
	i := sort.SearchStrings(e.Classes, label)
	if i < len(e.Classes) && e.Classes[i] == label {
		return i, true
	}
	return 0, false
}
