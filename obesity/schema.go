// Package obesity trains and serves the obesity category classifier.
//
// The trainer reads the survey CSV, derives BMI, tunes a preprocessing and
// random forest pipeline with randomized search and writes an Artifact. The
// predictor loads that Artifact and classifies one Sample at a time. Both
// sides compute BMI with the same function.
package obesity

import "github.com/delvitaw/obesity/dataset"

// Column names of the survey CSV.
const (
	ColGender        = "Gender"
	ColAge           = "Age"
	ColHeight        = "Height"
	ColWeight        = "Weight"
	ColFamilyHistory = "family_history_with_overweight"
	ColFAVC          = "FAVC"
	ColFCVC          = "FCVC"
	ColNCP           = "NCP"
	ColCAEC          = "CAEC"
	ColSMOKE         = "SMOKE"
	ColCH2O          = "CH2O"
	ColSCC           = "SCC"
	ColFAF           = "FAF"
	ColTUE           = "TUE"
	ColCALC          = "CALC"
	ColMTRANS        = "MTRANS"
	ColBMI           = "BMI"
	ColTarget        = "NObeyesdad"
)

// InputColumns lists the 16 raw features in CSV order.
var InputColumns = []string{
	ColGender, ColAge, ColHeight, ColWeight, ColFamilyHistory, ColFAVC, ColFCVC, ColNCP,
	ColCAEC, ColSMOKE, ColCH2O, ColSCC, ColFAF, ColTUE, ColCALC, ColMTRANS,
}

// FeatureSchema is the column contract of the model input: the raw
// features followed by BMI.
var FeatureSchema = dataset.Schema{
	{Name: ColGender, Kind: dataset.Categorical},
	{Name: ColAge, Kind: dataset.Numeric},
	{Name: ColHeight, Kind: dataset.Numeric},
	{Name: ColWeight, Kind: dataset.Numeric},
	{Name: ColFamilyHistory, Kind: dataset.Categorical},
	{Name: ColFAVC, Kind: dataset.Categorical},
	{Name: ColFCVC, Kind: dataset.Numeric},
	{Name: ColNCP, Kind: dataset.Numeric},
	{Name: ColCAEC, Kind: dataset.Categorical},
	{Name: ColSMOKE, Kind: dataset.Categorical},
	{Name: ColCH2O, Kind: dataset.Numeric},
	{Name: ColSCC, Kind: dataset.Categorical},
	{Name: ColFAF, Kind: dataset.Numeric},
	{Name: ColTUE, Kind: dataset.Numeric},
	{Name: ColCALC, Kind: dataset.Categorical},
	{Name: ColMTRANS, Kind: dataset.Categorical},
	{Name: ColBMI, Kind: dataset.Numeric},
}

// Classes are the obesity categories found in the survey, from lightest to
// heaviest.
var Classes = []string{
	"Insufficient_Weight",
	"Normal_Weight",
	"Overweight_Level_I",
	"Overweight_Level_II",
	"Obesity_Type_I",
	"Obesity_Type_II",
	"Obesity_Type_III",
}

// Choices offered by the predictor form.
var (
	GenderChoices    = []string{"Male", "Female"}
	YesNoChoices     = []string{"yes", "no"}
	FrequencyChoices = []string{"no", "Sometimes", "Frequently", "Always"}
	MTRANSChoices    = []string{"Public_Transportation", "Walking", "Automobile", "Motorbike", "Bike"}
)

// Bound is the allowed range of a numeric form input. Step 1 means the value
// must be whole.
type Bound struct {
	Min, Max, Step float64
}

// Bounds of the numeric form inputs.
var Bounds = map[string]Bound{
	ColAge:    {10, 90, 1},
	ColHeight: {1.2, 2.5, 0.01},
	ColWeight: {30, 200, 0.1},
	ColFCVC:   {1, 3, 1},
	ColNCP:    {1, 4, 1},
	ColCH2O:   {1, 3, 1},
	ColFAF:    {0, 3, 0.25},
	ColTUE:    {0, 2, 0.25},
}

// DefaultSample holds the initial form values. Selects start on their first
// choice.
func DefaultSample() Sample {
	return Sample{
		Gender:        "Male",
		Age:           25,
		Height:        1.70,
		Weight:        70.0,
		FamilyHistory: "yes",
		FAVC:          "yes",
		FCVC:          2,
		NCP:           3,
		CAEC:          "no",
		SMOKE:         "yes",
		CH2O:          2,
		SCC:           "yes",
		FAF:           1.0,
		TUE:           1.0,
		CALC:          "no",
		MTRANS:        "Public_Transportation",
	}
}
