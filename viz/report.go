package viz

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/mat"

	"github.com/delvitaw/obesity/pkg/errors"
)

// Report is the content of the HTML training report.
type Report struct {
	Title string

	// Class balance of the full dataset, in display order.
	ClassLabels []string
	ClassCounts []int

	// Held-out confusion matrix; rows are true labels.
	Confusion       mat.Matrix
	ConfusionLabels []string

	// Mean cross-validation accuracy per candidate, best first.
	CandidateNames  []string
	CandidateScores []float64
}

func initOpts() charts.GlobalOpts {
	return charts.WithInitializationOpts(opts.Initialization{
		Width:  "900px",
		Height: "500px",
		Theme:  "light",
	})
}

func classBar(r *Report) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		initOpts(),
		charts.WithTitleOpts(opts.Title{Title: "Class distribution"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Rotate: 45, Interval: "0"}}),
	)
	data := make([]opts.BarData, len(r.ClassCounts))
	for i, c := range r.ClassCounts {
		data[i] = opts.BarData{Value: c}
	}
	bar.SetXAxis(r.ClassLabels).AddSeries("count", data)
	return bar
}

func confusionHeatMap(r *Report) *charts.HeatMap {
	rows, cols := r.Confusion.Dims()
	data := make([]opts.HeatMapData, 0, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			data = append(data, opts.HeatMapData{Value: [3]interface{}{j, rows - 1 - i, r.Confusion.At(i, j)}})
		}
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		initOpts(),
		charts.WithTitleOpts(opts.Title{Title: "Confusion matrix", Subtitle: "rows: true label, columns: predicted label"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Data: r.ConfusionLabels, AxisLabel: &opts.AxisLabel{Rotate: 45, Interval: "0"}}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: reversed(r.ConfusionLabels)}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(mat.Max(r.Confusion)),
			InRange:    &opts.VisualMapInRange{Color: []string{"#f7fbff", "#6baed6", "#08306b"}},
		}),
	)
	hm.AddSeries("count", data, charts.WithLabelOpts(opts.Label{Show: opts.Bool(true)}))
	return hm
}

func candidateBar(r *Report) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		initOpts(),
		charts.WithTitleOpts(opts.Title{Title: "Cross-validation accuracy per candidate"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Show: opts.Bool(false)}}),
	)
	data := make([]opts.BarData, len(r.CandidateScores))
	for i, s := range r.CandidateScores {
		data[i] = opts.BarData{Value: fmt.Sprintf("%.4f", s)}
	}
	bar.SetXAxis(r.CandidateNames).AddSeries("mean accuracy", data)
	return bar
}

// Render writes the report as a single HTML page.
func (r *Report) Render(w io.Writer) error {
	if len(r.ClassLabels) != len(r.ClassCounts) {
		return errors.NewDimensionError("viz.Report", len(r.ClassLabels), len(r.ClassCounts), 0)
	}
	if len(r.CandidateNames) != len(r.CandidateScores) {
		return errors.NewDimensionError("viz.Report", len(r.CandidateNames), len(r.CandidateScores), 0)
	}

	page := components.NewPage()
	page.PageTitle = r.Title
	if len(r.ClassLabels) > 0 {
		page.AddCharts(classBar(r))
	}
	if r.Confusion != nil {
		rows, cols := r.Confusion.Dims()
		if rows != len(r.ConfusionLabels) || cols != len(r.ConfusionLabels) {
			return errors.NewDimensionError("viz.Report", len(r.ConfusionLabels), rows, 0)
		}
		page.AddCharts(confusionHeatMap(r))
	}
	if len(r.CandidateScores) > 0 {
		page.AddCharts(candidateBar(r))
	}
	if err := page.Render(w); err != nil {
		return errors.Wrap(err, "render report")
	}
	return nil
}

// WriteFile renders the report to path, creating parent directories.
func (r *Report) WriteFile(path string) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create report directory")
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create report file")
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return r.Render(f)
}
