package model_selection

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/delvitaw/obesity/pkg/errors"
)

// ParamDistributions maps a parameter name to the list of values to try.
type ParamDistributions map[string][]interface{}

// Keys returns the parameter names in sorted order.
func (d ParamDistributions) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GridSize returns the number of distinct combinations.
func (d ParamDistributions) GridSize() int {
	if len(d) == 0 {
		return 0
	}
	size := 1
	for _, values := range d {
		size *= len(values)
	}
	return size
}

// At returns combination i of the grid. Keys are taken in sorted order with
// the last key varying fastest.
func (d ParamDistributions) At(i int) map[string]interface{} {
	keys := d.Keys()
	params := make(map[string]interface{}, len(keys))
	for k := len(keys) - 1; k >= 0; k-- {
		values := d[keys[k]]
		params[keys[k]] = values[i%len(values)]
		i /= len(values)
	}
	return params
}

// ParameterSampler draws nIter distinct combinations from the grid. When the
// grid is smaller than nIter every combination is returned and a warning is
// raised.
func ParameterSampler(dist ParamDistributions, nIter int, randomState int64) ([]map[string]interface{}, error) {
	if len(dist) == 0 {
		return nil, errors.NewValidationError("param_distributions", "must not be empty", 0)
	}
	for k, values := range dist {
		if len(values) == 0 {
			return nil, errors.NewValidationError("param_distributions", fmt.Sprintf("parameter %q has no values", k), 0)
		}
	}
	if nIter < 1 {
		return nil, errors.NewValidationError("n_iter", "must be >= 1", nIter)
	}

	size := dist.GridSize()
	if size < nIter {
		errors.Warn(errors.NewSplitWarning("ParameterSampler",
			fmt.Sprintf("the total space of parameters %d is smaller than n_iter=%d; running %d iterations", size, nIter, size)))
		nIter = size
	}

	rng := rand.New(rand.NewSource(randomState))
	picks := rng.Perm(size)[:nIter]
	out := make([]map[string]interface{}, nIter)
	for i, idx := range picks {
		out[i] = dist.At(idx)
	}
	return out, nil
}
