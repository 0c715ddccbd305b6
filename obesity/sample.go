package obesity

import (
	"fmt"
	"math"
	"strconv"

	"github.com/delvitaw/obesity/dataset"
	"github.com/delvitaw/obesity/pkg/errors"
)

// Sample is one survey answer without the target. The json and form tags use
// the CSV column names.
type Sample struct {
	Gender        string  `json:"Gender" form:"Gender"`
	Age           float64 `json:"Age" form:"Age"`
	Height        float64 `json:"Height" form:"Height"`
	Weight        float64 `json:"Weight" form:"Weight"`
	FamilyHistory string  `json:"family_history_with_overweight" form:"family_history_with_overweight"`
	FAVC          string  `json:"FAVC" form:"FAVC"`
	FCVC          float64 `json:"FCVC" form:"FCVC"`
	NCP           float64 `json:"NCP" form:"NCP"`
	CAEC          string  `json:"CAEC" form:"CAEC"`
	SMOKE         string  `json:"SMOKE" form:"SMOKE"`
	CH2O          float64 `json:"CH2O" form:"CH2O"`
	SCC           string  `json:"SCC" form:"SCC"`
	FAF           float64 `json:"FAF" form:"FAF"`
	TUE           float64 `json:"TUE" form:"TUE"`
	CALC          string  `json:"CALC" form:"CALC"`
	MTRANS        string  `json:"MTRANS" form:"MTRANS"`
}

func (s Sample) numeric() map[string]float64 {
	return map[string]float64{
		ColAge:    s.Age,
		ColHeight: s.Height,
		ColWeight: s.Weight,
		ColFCVC:   s.FCVC,
		ColNCP:    s.NCP,
		ColCH2O:   s.CH2O,
		ColFAF:    s.FAF,
		ColTUE:    s.TUE,
	}
}

func (s Sample) categorical() map[string]string {
	return map[string]string{
		ColGender:        s.Gender,
		ColFamilyHistory: s.FamilyHistory,
		ColFAVC:          s.FAVC,
		ColCAEC:          s.CAEC,
		ColSMOKE:         s.SMOKE,
		ColSCC:           s.SCC,
		ColCALC:          s.CALC,
		ColMTRANS:        s.MTRANS,
	}
}

// Value returns the input stored under a CSV column name, formatted for
// display.
func (s Sample) Value(name string) (string, bool) {
	if v, ok := s.numeric()[name]; ok {
		return strconv.FormatFloat(v, 'f', -1, 64), true
	}
	v, ok := s.categorical()[name]
	return v, ok
}

// Validate checks the numeric inputs against Bounds. Categorical values are
// not checked; values unseen in training encode to all zeros.
func (s Sample) Validate() error {
	var errs error
	values := s.numeric()
	for _, name := range InputColumns {
		v, ok := values[name]
		if !ok {
			continue
		}
		b := Bounds[name]
		if !(v >= b.Min && v <= b.Max) {
			errs = errors.CombineErrors(errs, errors.NewValidationError(name,
				fmt.Sprintf("must be between %g and %g", b.Min, b.Max), v))
			continue
		}
		// Only coarse steps are enforced; 0.1 and 0.01 are not exact in binary.
		if b.Step >= 0.25 {
			q := v / b.Step
			if math.Abs(q-math.Round(q)) > 1e-9 {
				errs = errors.CombineErrors(errs, errors.NewValidationError(name,
					fmt.Sprintf("must be a multiple of %g", b.Step), v))
			}
		}
	}
	return errs
}

// BMI returns the sample's body-mass index or ErrUndefinedBMI.
func (s Sample) BMI() (float64, error) {
	bmi, ok := BMI(s.Weight, s.Height)
	if !ok {
		return 0, errors.Wrapf(errors.ErrUndefinedBMI, "height %g", s.Height)
	}
	return bmi, nil
}

// Frame builds the one-row model input in FeatureSchema order, BMI
// included.
func (s Sample) Frame() (*dataset.Frame, error) {
	nums := s.numeric()
	cats := s.categorical()
	bmi, _ := BMI(s.Weight, s.Height)
	nums[ColBMI] = bmi

	cols := make([]*dataset.Column, len(FeatureSchema))
	for i, spec := range FeatureSchema {
		if spec.Kind == dataset.Numeric {
			cols[i] = dataset.NumericColumn(spec.Name, []float64{nums[spec.Name]})
		} else {
			cols[i] = dataset.CategoricalColumn(spec.Name, []string{cats[spec.Name]})
		}
	}
	return dataset.NewFrame(cols...)
}
