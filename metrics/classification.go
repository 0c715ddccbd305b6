// Package metrics provides evaluation metrics for multiclass classifiers.
//
// Labels are compared as strings, which keeps the metrics independent of how
// a model encodes its classes:
//
//   - Accuracy and ClassificationError: fraction of (in)correct predictions
//   - ConfusionMatrix: counts of true label against predicted label
//   - PrecisionRecallFScoreSupport: per-class scores
//   - ClassificationReport: per-class scores plus accuracy and averages,
//     printable in scikit-learn's layout
//
// Example usage:
//
//	acc, err := metrics.Accuracy(yTrue, yPred)
//	cm, labels, err := metrics.ConfusionMatrix(yTrue, yPred, nil)
//	report, err := metrics.NewClassificationReport(yTrue, yPred, nil)
//	fmt.Print(report)
package metrics

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	obErrors "github.com/delvitaw/obesity/pkg/errors"
)

func checkLabels(op string, yTrue, yPred []string) error {
	if len(yTrue) == 0 {
		return obErrors.NewValueError(op, "input label slices cannot be empty")
	}
	if len(yTrue) != len(yPred) {
		return obErrors.NewDimensionError(op, len(yTrue), len(yPred), 0)
	}
	return nil
}

// ClassificationError calculates the classification error rate.
//
// The error rate is the fraction of incorrect predictions.
//
// Parameters:
//   - yTrue: Ground truth labels
//   - yPred: Predicted labels
//
// Returns:
//   - The error rate (between 0 and 1)
//   - An error if inputs are empty or of different lengths
//
// Example:
//
//	yTrue := []string{"a", "b", "c", "b", "a"}
//	yPred := []string{"a", "b", "b", "b", "a"}
//	errorRate, err := ClassificationError(yTrue, yPred)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Error Rate: %f\n", errorRate) // Output: Error Rate: 0.2
func ClassificationError(yTrue, yPred []string) (float64, error) {
	if err := checkLabels("ClassificationError", yTrue, yPred); err != nil {
		return 0, err
	}

	errors := 0
	for i := range yTrue {
		if yTrue[i] != yPred[i] {
			errors++
		}
	}
	return float64(errors) / float64(len(yTrue)), nil
}

// Accuracy calculates the classification accuracy.
//
// Accuracy is the fraction of correct predictions.
//
// Parameters:
//   - yTrue: Ground truth labels
//   - yPred: Predicted labels
//
// Returns:
//   - The accuracy (between 0 and 1)
//   - An error if inputs are invalid
func Accuracy(yTrue, yPred []string) (float64, error) {
	errorRate, err := ClassificationError(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return 1.0 - errorRate, nil
}

// UniqueLabels returns the sorted union of the labels in all slices.
func UniqueLabels(ys ...[]string) []string {
	seen := make(map[string]struct{})
	for _, y := range ys {
		for _, v := range y {
			seen[v] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// ConfusionMatrix counts how often each true label (row) was predicted as
// each label (column).
//
// When labels is nil the sorted union of yTrue and yPred is used. Pairs
// involving a label outside labels are not counted.
//
// Returns the matrix, the labels in row/column order, and an error if the
// inputs are invalid.
func ConfusionMatrix(yTrue, yPred, labels []string) (*mat.Dense, []string, error) {
	if err := checkLabels("ConfusionMatrix", yTrue, yPred); err != nil {
		return nil, nil, err
	}
	if labels == nil {
		labels = UniqueLabels(yTrue, yPred)
	}
	if len(labels) == 0 {
		return nil, nil, obErrors.NewValueError("ConfusionMatrix", "labels cannot be empty")
	}

	index := make(map[string]int, len(labels))
	for i, l := range labels {
		if _, dup := index[l]; dup {
			return nil, nil, obErrors.NewValueError("ConfusionMatrix", "labels must be unique")
		}
		index[l] = i
	}

	cm := mat.NewDense(len(labels), len(labels), nil)
	for k := range yTrue {
		i, okT := index[yTrue[k]]
		j, okP := index[yPred[k]]
		if okT && okP {
			cm.Set(i, j, cm.At(i, j)+1)
		}
	}
	return cm, labels, nil
}

// ClassScores holds the scores of one class.
type ClassScores struct {
	Label     string
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// PrecisionRecallFScoreSupport computes precision, recall, F1 and support
// for every label.
//
// Ill-defined scores, such as the precision of a label that was never
// predicted, are set to 0 and reported through errors.Warn as an
// UndefinedMetricWarning.
func PrecisionRecallFScoreSupport(yTrue, yPred, labels []string) ([]ClassScores, error) {
	cm, labels, err := ConfusionMatrix(yTrue, yPred, labels)
	if err != nil {
		return nil, err
	}

	n := len(labels)
	scores := make([]ClassScores, n)
	for i, label := range labels {
		tp := cm.At(i, i)
		predicted, actual := 0.0, 0.0
		for k := 0; k < n; k++ {
			predicted += cm.At(k, i)
			actual += cm.At(i, k)
		}

		s := ClassScores{Label: label, Support: int(actual)}
		if predicted > 0 {
			s.Precision = tp / predicted
		} else {
			obErrors.Warn(obErrors.NewUndefinedMetricWarning("Precision", label))
		}
		if actual > 0 {
			s.Recall = tp / actual
		} else {
			obErrors.Warn(obErrors.NewUndefinedMetricWarning("Recall", label))
		}
		if s.Precision+s.Recall > 0 {
			s.F1 = 2 * s.Precision * s.Recall / (s.Precision + s.Recall)
		}
		scores[i] = s
	}
	return scores, nil
}
