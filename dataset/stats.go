package dataset

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/delvitaw/obesity/pkg/errors"
)

// Correlation returns the Pearson correlation matrix of the named numeric
// columns. Each pair uses only rows where both values are present; a pair
// with fewer than two such rows, or zero variance, gets NaN.
func Correlation(f *Frame, names []string) (*mat.SymDense, error) {
	if len(names) == 0 {
		return nil, errors.NewValueError("Correlation", "no columns given")
	}
	cols := make([][]float64, len(names))
	for j, name := range names {
		c, ok := f.Column(name)
		if !ok {
			return nil, errors.Wrapf(errors.ErrSchemaMismatch, "column %q not found", name)
		}
		if c.Kind != Numeric {
			return nil, errors.NewValueError("Correlation", "column "+name+" is not numeric")
		}
		cols[j] = c.Floats
	}

	out := mat.NewSymDense(len(names), nil)
	for a := range cols {
		for b := a; b < len(cols); b++ {
			out.SetSym(a, b, pairwiseCorrelation(cols[a], cols[b]))
		}
	}
	return out, nil
}

func pairwiseCorrelation(x, y []float64) float64 {
	xs := make([]float64, 0, len(x))
	ys := make([]float64, 0, len(y))
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	if len(xs) < 2 {
		return math.NaN()
	}
	if stat.Variance(xs, nil) == 0 || stat.Variance(ys, nil) == 0 {
		return math.NaN()
	}
	return stat.Correlation(xs, ys, nil)
}
