package server

import (
	"sort"

	"github.com/delvitaw/obesity/obesity"
)

// Input widgets of the form.
const (
	inputNumber = "number"
	inputRange  = "range"
	inputSelect = "select"
)

type fieldDef struct {
	name    string
	label   string
	input   string
	options []string
}

// formFields is the form layout in CSV column order.
var formFields = []fieldDef{
	{obesity.ColGender, "Gender", inputSelect, obesity.GenderChoices},
	{obesity.ColAge, "Age (years)", inputNumber, nil},
	{obesity.ColHeight, "Height (m)", inputNumber, nil},
	{obesity.ColWeight, "Weight (kg)", inputNumber, nil},
	{obesity.ColFamilyHistory, "Family history with overweight", inputSelect, obesity.YesNoChoices},
	{obesity.ColFAVC, "Frequent high-caloric food (FAVC)", inputSelect, obesity.YesNoChoices},
	{obesity.ColFCVC, "Veggies consumption (FCVC)", inputRange, nil},
	{obesity.ColNCP, "Meals per day (NCP)", inputRange, nil},
	{obesity.ColCAEC, "Snacks (CAEC)", inputSelect, obesity.FrequencyChoices},
	{obesity.ColSMOKE, "SMOKE", inputSelect, obesity.YesNoChoices},
	{obesity.ColCH2O, "Water cups / day (CH2O)", inputRange, nil},
	{obesity.ColSCC, "Calories monitoring (SCC)", inputSelect, obesity.YesNoChoices},
	{obesity.ColFAF, "Physical activity (hrs) FAF", inputRange, nil},
	{obesity.ColTUE, "Technology use hrs (TUE)", inputRange, nil},
	{obesity.ColCALC, "Alcohol (CALC)", inputSelect, obesity.FrequencyChoices},
	{obesity.ColMTRANS, "Transportation", inputSelect, obesity.MTRANSChoices},
}

type field struct {
	Name    string
	Label   string
	Input   string
	Value   string
	Min     float64
	Max     float64
	Step    float64
	Options []string
}

type classProb struct {
	Label string
	Prob  float64
}

type page struct {
	Fields []field
	Error  string

	Result *obesity.Prediction
	Probs  []classProb
	Cached bool

	Model modelInfo
}

type modelInfo struct {
	Classes      int
	CVScore      float64
	TestAccuracy float64
	CreatedAt    string
}

func newPage(s obesity.Sample, a *obesity.Artifact) page {
	p := page{Fields: make([]field, len(formFields))}
	for i, def := range formFields {
		v, _ := s.Value(def.name)
		b := obesity.Bounds[def.name]
		p.Fields[i] = field{
			Name:    def.name,
			Label:   def.label,
			Input:   def.input,
			Value:   v,
			Min:     b.Min,
			Max:     b.Max,
			Step:    b.Step,
			Options: def.options,
		}
	}
	if a != nil {
		p.Model = modelInfo{
			Classes:      len(a.Classes),
			CVScore:      a.CVScore,
			TestAccuracy: a.TestAccuracy,
			CreatedAt:    a.CreatedAt.Format("2006-01-02 15:04 MST"),
		}
	}
	return p
}

func (p *page) setResult(pred obesity.Prediction, cached bool) {
	p.Result = &pred
	p.Cached = cached
	p.Probs = p.Probs[:0]
	for label, pr := range pred.Probabilities {
		p.Probs = append(p.Probs, classProb{Label: label, Prob: pr})
	}
	sort.Slice(p.Probs, func(i, j int) bool {
		if p.Probs[i].Prob != p.Probs[j].Prob {
			return p.Probs[i].Prob > p.Probs[j].Prob
		}
		return p.Probs[i].Label < p.Probs[j].Label
	})
}
