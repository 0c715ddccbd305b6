package obesity

import (
	"math"

	"github.com/delvitaw/obesity/dataset"
	"github.com/delvitaw/obesity/pkg/errors"
)

// BMI returns weight / height². It is undefined (ok is false) when height is
// not positive or either input is missing. Training and prediction both go
// through this function.
func BMI(weight, height float64) (bmi float64, ok bool) {
	if math.IsNaN(weight) || math.IsNaN(height) || height <= 0 {
		return math.NaN(), false
	}
	return weight / (height * height), true
}

// AddBMI sets the BMI column of f from its Weight and Height columns.
// Undefined values are stored as missing. It returns the number of rows
// whose BMI is undefined.
func AddBMI(f *dataset.Frame) (int, error) {
	weight, err := numericColumn(f, ColWeight)
	if err != nil {
		return 0, err
	}
	height, err := numericColumn(f, ColHeight)
	if err != nil {
		return 0, err
	}

	values := make([]float64, f.Len())
	undefined := 0
	for i := range values {
		var ok bool
		if values[i], ok = BMI(weight[i], height[i]); !ok {
			undefined++
		}
	}
	if err := f.Set(dataset.NumericColumn(ColBMI, values)); err != nil {
		return 0, err
	}
	return undefined, nil
}

func numericColumn(f *dataset.Frame, name string) ([]float64, error) {
	c, ok := f.Column(name)
	if !ok {
		return nil, errors.Wrapf(errors.ErrSchemaMismatch, "missing column %q", name)
	}
	if c.Kind != dataset.Numeric {
		return nil, errors.Wrapf(errors.ErrSchemaMismatch, "column %q is %s, want numeric", name, c.Kind)
	}
	return c.Floats, nil
}
