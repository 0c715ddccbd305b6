package metrics

import (
	"fmt"
	"strings"
)

// ClassificationReport summarizes per-class precision, recall and F1 with
// overall accuracy and macro and support-weighted averages.
type ClassificationReport struct {
	Classes     []ClassScores
	Accuracy    float64
	MacroAvg    ClassScores
	WeightedAvg ClassScores
	// Digits is the number of decimals printed by String. Zero means 2.
	Digits int
}

// NewClassificationReport builds a report for yTrue and yPred. When labels is
// nil the sorted union of both slices is used.
func NewClassificationReport(yTrue, yPred, labels []string) (*ClassificationReport, error) {
	classes, err := PrecisionRecallFScoreSupport(yTrue, yPred, labels)
	if err != nil {
		return nil, err
	}
	acc, err := Accuracy(yTrue, yPred)
	if err != nil {
		return nil, err
	}

	r := &ClassificationReport{
		Classes:     classes,
		Accuracy:    acc,
		MacroAvg:    ClassScores{Label: "macro avg"},
		WeightedAvg: ClassScores{Label: "weighted avg"},
	}
	total := 0
	for _, c := range classes {
		total += c.Support
	}
	for _, c := range classes {
		r.MacroAvg.Precision += c.Precision / float64(len(classes))
		r.MacroAvg.Recall += c.Recall / float64(len(classes))
		r.MacroAvg.F1 += c.F1 / float64(len(classes))
		if total > 0 {
			w := float64(c.Support) / float64(total)
			r.WeightedAvg.Precision += c.Precision * w
			r.WeightedAvg.Recall += c.Recall * w
			r.WeightedAvg.F1 += c.F1 * w
		}
	}
	r.MacroAvg.Support = total
	r.WeightedAvg.Support = total
	return r, nil
}

// String renders the report in scikit-learn's text layout.
func (r *ClassificationReport) String() string {
	digits := r.Digits
	if digits <= 0 {
		digits = 2
	}
	width := len(r.WeightedAvg.Label)
	for _, c := range r.Classes {
		width = max(width, len(c.Label))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%*s ", width, "")
	for _, h := range []string{"precision", "recall", "f1-score", "support"} {
		fmt.Fprintf(&sb, " %9s", h)
	}
	sb.WriteString("\n\n")

	row := func(c ClassScores) {
		fmt.Fprintf(&sb, "%*s  %9.*f %9.*f %9.*f %9d\n",
			width, c.Label, digits, c.Precision, digits, c.Recall, digits, c.F1, c.Support)
	}
	for _, c := range r.Classes {
		row(c)
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "%*s  %9s %9s %9.*f %9d\n",
		width, "accuracy", "", "", digits, r.Accuracy, r.MacroAvg.Support)
	row(r.MacroAvg)
	row(r.WeightedAvg)
	return sb.String()
}
