// Package viz renders training diagnostics: static PNG plots with
// gonum/plot and an interactive HTML report with go-echarts.
package viz

import (
	"fmt"
	"math"
	"path/filepath"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/brewer"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/delvitaw/obesity/pkg/errors"
)

// Default file names written by the trainer.
const (
	CorrelationFile  = "correlation.png"
	ClassBalanceFile = "class_distribution.png"
	ConfusionFile    = "confusion_matrix.png"
)

// matrixGrid adapts a square matrix to plotter.GridXYZ. Row 0 of the matrix
// is drawn at the top.
type matrixGrid struct {
	m mat.Matrix
}

func (g matrixGrid) Dims() (c, r int) {
	r, c = g.m.Dims()
	return c, r
}

func (g matrixGrid) Z(c, r int) float64 {
	rows, _ := g.m.Dims()
	return g.m.At(rows-1-r, c)
}

func (g matrixGrid) X(c int) float64 { return float64(c) }
func (g matrixGrid) Y(r int) float64 { return float64(r) }

func reversed(s []string) []string {
	out := make([]string, len(s))
	for i, v := range s {
		out[len(s)-1-i] = v
	}
	return out
}

// annotate writes the value of every cell at its centre.
func annotate(m mat.Matrix, format string) (*plotter.Labels, error) {
	rows, cols := m.Dims()
	xys := make(plotter.XYs, 0, rows*cols)
	texts := make([]string, 0, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			xys = append(xys, plotter.XY{X: float64(j), Y: float64(rows - 1 - i)})
			v := m.At(i, j)
			if math.IsNaN(v) {
				texts = append(texts, "nan")
			} else {
				texts = append(texts, fmt.Sprintf(format, v))
			}
		}
	}
	labels, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: texts})
	if err != nil {
		return nil, err
	}
	for i := range labels.TextStyle {
		labels.TextStyle[i].XAlign = draw.XCenter
		labels.TextStyle[i].YAlign = draw.YCenter
	}
	return labels, nil
}

func heatmap(title string, m mat.Matrix, xNames, yNames []string, p palette.Palette, lo, hi float64, format string) (*plot.Plot, error) {
	rows, cols := m.Dims()
	if rows == 0 || cols == 0 {
		return nil, errors.NewModelError("viz.heatmap", "empty matrix", errors.ErrEmptyData)
	}
	if len(xNames) != cols || len(yNames) != rows {
		return nil, errors.NewDimensionError("viz.heatmap", cols, len(xNames), 1)
	}

	pl := plot.New()
	pl.Title.Text = title
	hm := plotter.NewHeatMap(matrixGrid{m}, p)
	hm.Min, hm.Max = lo, hi
	hm.NaN = plotter.DefaultLineStyle.Color
	pl.Add(hm)

	labels, err := annotate(m, format)
	if err != nil {
		return nil, err
	}
	pl.Add(labels)

	pl.NominalX(xNames...)
	pl.NominalY(reversed(yNames)...)
	pl.X.Tick.Label.Rotation = math.Pi / 4
	pl.X.Tick.Label.XAlign = draw.XRight
	pl.X.Tick.Label.YAlign = draw.YCenter
	return pl, nil
}

// CorrelationHeatmap saves an annotated heatmap of a correlation matrix.
func CorrelationHeatmap(path string, corr mat.Matrix, names []string) error {
	cmap := moreland.BlackBody()
	pl, err := heatmap("Numeric correlation", corr, names, names, cmap.Palette(255), -1, 1, "%.2f")
	if err != nil {
		return errors.Wrap(err, "correlation heatmap")
	}
	return save(pl, 6*vg.Inch, 4*vg.Inch, path)
}

// ConfusionHeatmap saves a confusion matrix with true labels on the Y axis
// and predicted labels on the X axis.
func ConfusionHeatmap(path string, cm mat.Matrix, labels []string) error {
	blues, err := brewer.GetPalette(brewer.TypeSequential, "Blues", 9)
	if err != nil {
		return errors.Wrap(err, "confusion palette")
	}
	top := mat.Max(cm)
	if top <= 0 {
		top = 1
	}
	pl, err := heatmap("Confusion Matrix", cm, labels, labels, blues, 0, top, "%.0f")
	if err != nil {
		return errors.Wrap(err, "confusion heatmap")
	}
	pl.X.Label.Text = "Predicted label"
	pl.Y.Label.Text = "True label"
	return save(pl, 6*vg.Inch, 6*vg.Inch, path)
}

// ClassDistribution saves a bar chart of counts in the given order.
func ClassDistribution(path string, labels []string, counts []int) error {
	if len(labels) == 0 {
		return errors.NewModelError("viz.ClassDistribution", "no classes", errors.ErrEmptyData)
	}
	if len(labels) != len(counts) {
		return errors.NewDimensionError("viz.ClassDistribution", len(labels), len(counts), 0)
	}

	values := make(plotter.Values, len(counts))
	for i, c := range counts {
		values[i] = float64(c)
	}

	pl := plot.New()
	pl.Title.Text = "Class distribution"
	pl.Y.Label.Text = "count"
	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return errors.Wrap(err, "class distribution bars")
	}
	bars.Color = plotter.DefaultLineStyle.Color
	pl.Add(bars)
	pl.NominalX(labels...)
	pl.X.Tick.Label.Rotation = math.Pi / 4
	pl.X.Tick.Label.XAlign = draw.XRight
	pl.X.Tick.Label.YAlign = draw.YCenter
	return save(pl, 6*vg.Inch, 3*vg.Inch, path)
}

func save(pl *plot.Plot, w, h vg.Length, path string) error {
	if filepath.Ext(path) == "" {
		return errors.NewValueError("viz.save", fmt.Sprintf("path %q needs an image extension", path))
	}
	if err := pl.Save(w, h, path); err != nil {
		return errors.Wrapf(err, "save plot %s", path)
	}
	return nil
}
