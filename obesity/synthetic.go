package obesity

import (
	"math/rand"

	"github.com/delvitaw/obesity/dataset"
)

// classBMI is the BMI interval SyntheticFrame draws from for each class.
var classBMI = map[string][2]float64{
	"Insufficient_Weight": {16, 18.4},
	"Normal_Weight":       {19, 24.5},
	"Overweight_Level_I":  {25.2, 27.2},
	"Overweight_Level_II": {27.8, 29.8},
	"Obesity_Type_I":      {30.5, 34.5},
	"Obesity_Type_II":     {35.5, 39.5},
	"Obesity_Type_III":    {40.5, 48},
}

// SyntheticFrame generates n labelled survey rows, balanced across Classes.
// Weight follows the class's BMI band; the lifestyle answers are random
// draws from the form choices. The frame has the CSV columns, BMI excluded.
func SyntheticFrame(n int, seed int64) (*dataset.Frame, error) {
	rng := rand.New(rand.NewSource(seed))
	pick := func(xs []string) string { return xs[rng.Intn(len(xs))] }
	steps := func(b Bound) float64 {
		k := int((b.Max-b.Min)/b.Step + 0.5)
		return b.Min + float64(rng.Intn(k+1))*b.Step
	}

	nums := make(map[string][]float64)
	cats := make(map[string][]string)
	target := make([]string, n)
	for i := 0; i < n; i++ {
		label := Classes[i%len(Classes)]
		band := classBMI[label]
		bmi := band[0] + rng.Float64()*(band[1]-band[0])
		h := 1.5 + rng.Float64()*0.4

		nums[ColAge] = append(nums[ColAge], float64(14+rng.Intn(47)))
		nums[ColHeight] = append(nums[ColHeight], h)
		nums[ColWeight] = append(nums[ColWeight], bmi*h*h)
		for _, col := range []string{ColFCVC, ColNCP, ColCH2O, ColFAF, ColTUE} {
			nums[col] = append(nums[col], steps(Bounds[col]))
		}

		cats[ColGender] = append(cats[ColGender], pick(GenderChoices))
		cats[ColCAEC] = append(cats[ColCAEC], pick(FrequencyChoices))
		cats[ColCALC] = append(cats[ColCALC], pick(FrequencyChoices))
		cats[ColMTRANS] = append(cats[ColMTRANS], pick(MTRANSChoices))
		for _, col := range []string{ColFamilyHistory, ColFAVC, ColSMOKE, ColSCC} {
			cats[col] = append(cats[col], pick(YesNoChoices))
		}
		target[i] = label
	}

	cols := make([]*dataset.Column, 0, len(InputColumns)+1)
	for _, spec := range FeatureSchema {
		switch {
		case spec.Name == ColBMI:
		case spec.Kind == dataset.Numeric:
			cols = append(cols, dataset.NumericColumn(spec.Name, nums[spec.Name]))
		default:
			cols = append(cols, dataset.CategoricalColumn(spec.Name, cats[spec.Name]))
		}
	}
	cols = append(cols, dataset.CategoricalColumn(ColTarget, target))
	return dataset.NewFrame(cols...)
}
