// Package model_selection provides data splitting, hyperparameter sampling
// and randomized search with stratified cross-validation.
//
// Splitters work on label slices and return row indices, so the same split
// can be applied to a dataset.Frame with Frame.Take.
package model_selection

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/delvitaw/obesity/pkg/errors"
)

// Split holds the row indices of one train/test partition.
type Split struct {
	Train []int
	Test  []int
}

// TrainTestSplit partitions the rows of y into train and test sets. The test
// set has ceil(n * testSize) rows. With stratify set, every class keeps its
// share of the rows in both sets. The result only depends on randomState.
func TrainTestSplit(y []string, testSize float64, randomState int64, stratify bool) (Split, error) {
	n := len(y)
	if n == 0 {
		return Split{}, errors.NewModelError("TrainTestSplit", "empty data", errors.ErrEmptyData)
	}
	if !(testSize > 0 && testSize < 1) {
		return Split{}, errors.NewValidationError("test_size", "must be in (0, 1)", testSize)
	}
	nTest := int(math.Ceil(testSize * float64(n)))
	nTrain := n - nTest
	if nTrain == 0 {
		return Split{}, errors.NewValueError("TrainTestSplit",
			fmt.Sprintf("with n_samples=%d and test_size=%v the train set would be empty", n, testSize))
	}

	rng := rand.New(rand.NewSource(randomState))
	if !stratify {
		perm := rng.Perm(n)
		return Split{Train: perm[nTest:], Test: perm[:nTest]}, nil
	}

	classes, members := groupByClass(y)
	for i, m := range members {
		if len(m) < 2 {
			return Split{}, errors.NewValueError("TrainTestSplit",
				fmt.Sprintf("the least populated class %q has only %d member; stratified splits need at least 2", classes[i], len(m)))
		}
	}
	if nTest < len(classes) || nTrain < len(classes) {
		return Split{}, errors.NewValueError("TrainTestSplit",
			fmt.Sprintf("train size %d and test size %d must each be at least the number of classes %d", nTrain, nTest, len(classes)))
	}

	counts := make([]int, len(members))
	for i, m := range members {
		counts[i] = len(m)
	}
	testPerClass := allocate(counts, nTest)

	var split Split
	for i, m := range members {
		idx := make([]int, len(m))
		copy(idx, m)
		rng.Shuffle(len(idx), func(a, b int) { idx[a], idx[b] = idx[b], idx[a] })
		split.Test = append(split.Test, idx[:testPerClass[i]]...)
		split.Train = append(split.Train, idx[testPerClass[i]:]...)
	}
	rng.Shuffle(len(split.Train), func(a, b int) { split.Train[a], split.Train[b] = split.Train[b], split.Train[a] })
	rng.Shuffle(len(split.Test), func(a, b int) { split.Test[a], split.Test[b] = split.Test[b], split.Test[a] })
	return split, nil
}

// groupByClass returns the sorted classes of y and the row indices of each.
func groupByClass(y []string) ([]string, [][]int) {
	byLabel := make(map[string][]int)
	for i, label := range y {
		byLabel[label] = append(byLabel[label], i)
	}
	classes := make([]string, 0, len(byLabel))
	for label := range byLabel {
		classes = append(classes, label)
	}
	sort.Strings(classes)
	members := make([][]int, len(classes))
	for i, c := range classes {
		members[i] = byLabel[c]
	}
	return classes, members
}

// allocate distributes total draws over groups proportionally to counts
// using the largest remainder method. Ties in the remainder go to the larger
// group, then to the earlier one. No group receives more than its count.
func allocate(counts []int, total int) []int {
	n := 0
	for _, c := range counts {
		n += c
	}
	out := make([]int, len(counts))
	rem := make([]float64, len(counts))
	assigned := 0
	for i, c := range counts {
		exact := float64(total) * float64(c) / float64(n)
		out[i] = int(math.Floor(exact))
		rem[i] = exact - float64(out[i])
		assigned += out[i]
	}

	order := make([]int, len(counts))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ia, ib := order[a], order[b]
		if rem[ia] != rem[ib] {
			return rem[ia] > rem[ib]
		}
		return counts[ia] > counts[ib]
	})
	for k := 0; assigned < total; k = (k + 1) % len(order) {
		if i := order[k]; out[i] < counts[i] {
			out[i]++
			assigned++
		}
	}
	return out
}
