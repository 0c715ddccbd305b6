package model_selection

import (
	"fmt"
	"math/rand"

	"github.com/delvitaw/obesity/pkg/errors"
)

// StratifiedKFold splits rows into NSplits folds that each keep roughly the
// class proportions of the whole set. Without Shuffle the rows of each
// class are assigned to folds in their original order, like scikit-learn.
type StratifiedKFold struct {
	NSplits     int
	Shuffle     bool
	RandomState int64
}

// NewStratifiedKFold creates an unshuffled splitter.
func NewStratifiedKFold(nSplits int) *StratifiedKFold {
	return &StratifiedKFold{NSplits: nSplits}
}

// Split returns NSplits train/test partitions of the rows of y. Each row is
// in exactly one test fold. A warning is raised when a class has fewer
// members than folds.
func (k *StratifiedKFold) Split(y []string) ([]Split, error) {
	n := len(y)
	if k.NSplits < 2 {
		return nil, errors.NewValidationError("n_splits", "must be at least 2", k.NSplits)
	}
	if n < k.NSplits {
		return nil, errors.NewValueError("StratifiedKFold.Split",
			fmt.Sprintf("cannot have n_splits=%d greater than the number of samples %d", k.NSplits, n))
	}

	// Encode classes in order of first appearance.
	codeOf := make(map[string]int)
	codes := make([]int, n)
	var counts []int
	for i, label := range y {
		c, ok := codeOf[label]
		if !ok {
			c = len(counts)
			codeOf[label] = c
			counts = append(counts, 0)
		}
		codes[i] = c
		counts[c]++
	}

	minCount, maxCount := n, 0
	for _, c := range counts {
		minCount = min(minCount, c)
		maxCount = max(maxCount, c)
	}
	if maxCount < k.NSplits {
		return nil, errors.NewValueError("StratifiedKFold.Split",
			fmt.Sprintf("n_splits=%d cannot be greater than the number of members in each class", k.NSplits))
	}
	if minCount < k.NSplits {
		errors.Warn(errors.NewSplitWarning("StratifiedKFold.Split",
			fmt.Sprintf("the least populated class in y has only %d members, which is less than n_splits=%d", minCount, k.NSplits)))
	}

	// Sorting the codes and dealing them round robin decides how many rows of
	// each class every fold receives.
	sorted := make([]int, 0, n)
	for c, cnt := range counts {
		for i := 0; i < cnt; i++ {
			sorted = append(sorted, c)
		}
	}
	allocation := make([][]int, k.NSplits)
	for f := range allocation {
		allocation[f] = make([]int, len(counts))
		for i := f; i < n; i += k.NSplits {
			allocation[f][sorted[i]]++
		}
	}

	var rng *rand.Rand
	if k.Shuffle {
		rng = rand.New(rand.NewSource(k.RandomState))
	}

	testFold := make([]int, n)
	for c := range counts {
		folds := make([]int, 0, counts[c])
		for f := 0; f < k.NSplits; f++ {
			for i := 0; i < allocation[f][c]; i++ {
				folds = append(folds, f)
			}
		}
		if rng != nil {
			rng.Shuffle(len(folds), func(a, b int) { folds[a], folds[b] = folds[b], folds[a] })
		}
		next := 0
		for i, code := range codes {
			if code == c {
				testFold[i] = folds[next]
				next++
			}
		}
	}

	splits := make([]Split, k.NSplits)
	for i, f := range testFold {
		for s := range splits {
			if s == f {
				splits[s].Test = append(splits[s].Test, i)
			} else {
				splits[s].Train = append(splits[s].Train, i)
			}
		}
	}
	return splits, nil
}
