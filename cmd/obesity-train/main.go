// Command obesity-train fits the obesity category classifier on the survey
// CSV and writes the pipeline artifact, plots and a training report.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/delvitaw/obesity/dataset"
	"github.com/delvitaw/obesity/obesity"
	"github.com/delvitaw/obesity/pkg/config"
	"github.com/delvitaw/obesity/pkg/errors"
	"github.com/delvitaw/obesity/pkg/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		log.LogError(err, "Training failed")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("obesity-train", flag.ContinueOnError)
	configPath := fs.String("config", "", "TOML configuration file")
	dataPath := fs.String("data", "", "Survey CSV (overrides data.path)")
	outPath := fs.String("out", "", "Artifact path (overrides output.artifact)")
	plotsDir := fs.String("plots", "", "Plot directory (overrides output.plots_dir)")
	reportPath := fs.String("report", "", "HTML report path (overrides output.report)")
	logLevel := fs.String("log-level", "", "Log level: debug, info, warn, error")
	synthetic := fs.Int("synthetic", 0, "Generate this many rows and train on them instead of the data path")
	syntheticOut := fs.String("synthetic-out", "", "Where -synthetic writes its CSV (default <data>.synthetic.csv)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	// Only flags given on the command line override the file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "data":
			cfg.Data.Path = *dataPath
		case "out":
			cfg.Output.Artifact = *outPath
		case "plots":
			cfg.Output.PlotsDir = *plotsDir
		case "report":
			cfg.Output.Report = *reportPath
		case "log-level":
			cfg.Log.Level = *logLevel
		}
	})
	if err := log.Setup(cfg.LogSettings()); err != nil {
		return err
	}
	logger := log.GetLoggerWithName("obesity-train")

	if *synthetic > 0 {
		out := *syntheticOut
		if out == "" {
			out = syntheticPath(cfg.Data.Path)
		}
		if err := writeSynthetic(out, cfg.Data.Path, *synthetic, cfg.Train.RandomState); err != nil {
			return err
		}
		logger.Info("Synthetic dataset written", log.PathKey, out, log.SamplesKey, *synthetic)
		cfg.Data.Path = out
	}

	res, err := obesity.Train(ctx, cfg, logger)
	if err != nil {
		return err
	}
	printResult(stdout, res)
	return nil
}

// syntheticPath derives the generated CSV's name from the survey path:
// data/obesitas.csv becomes data/obesitas.synthetic.csv.
func syntheticPath(dataPath string) string {
	if dataPath == "" {
		return "synthetic.csv"
	}
	ext := filepath.Ext(dataPath)
	return strings.TrimSuffix(dataPath, ext) + ".synthetic" + ext
}

// writeSynthetic writes n generated rows to path. It never writes over the
// survey file at dataPath.
func writeSynthetic(path, dataPath string, n int, seed int64) error {
	if dataPath != "" && sameFile(path, dataPath) {
		return errors.NewValidationError("synthetic-out", "must differ from the survey data path", path)
	}
	f, err := obesity.SyntheticFrame(n, seed)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "create data directory")
		}
	}
	out, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create synthetic dataset")
	}
	if err := dataset.WriteCSV(out, f); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func sameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA == nil && errB == nil && absA == absB {
		return true
	}
	infoA, errA := os.Stat(a)
	infoB, errB := os.Stat(b)
	return errA == nil && errB == nil && os.SameFile(infoA, infoB)
}

func printResult(w io.Writer, res *obesity.TrainResult) {
	fmt.Fprintf(w, "Rows: %d\n", res.Rows)
	fmt.Fprintln(w, "Missing values per column:")
	if len(res.Missing) == 0 {
		fmt.Fprintln(w, "  none")
	}
	for _, mc := range res.Missing {
		fmt.Fprintf(w, "  %-32s %d\n", mc.Name, mc.Count)
	}
	if res.UndefinedBMI > 0 {
		fmt.Fprintf(w, "BMI undefined for %d rows (non-positive height)\n", res.UndefinedBMI)
	}

	fmt.Fprintln(w, "\nClass distribution:")
	for _, vc := range res.ClassCounts {
		fmt.Fprintf(w, "  %-22s %d\n", vc.Value, vc.Count)
	}

	params := res.Artifact.BestParams
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("'%s': %s", k, params[k])
	}
	fmt.Fprintf(w, "\nBest Parameters: {%s}\n", strings.Join(parts, ", "))
	fmt.Fprintf(w, "Best CV accuracy: %.4f\n", res.Artifact.CVScore)

	fmt.Fprintln(w, "\nClassification Report:")
	fmt.Fprintln(w, res.Report.String())
	fmt.Fprintln(w, "Confusion Matrix:")
	printConfusion(w, res.Confusion, res.Labels)

	for _, p := range res.Plots {
		fmt.Fprintf(w, "Plot saved as %s\n", p)
	}
	if res.ReportPath != "" {
		fmt.Fprintf(w, "Report saved as %s\n", res.ReportPath)
	}
	fmt.Fprintf(w, "Model saved as %s\n", res.ArtifactPath)
}

// printConfusion writes rows as true labels and columns as predictions.
func printConfusion(w io.Writer, cm *mat.Dense, labels []string) {
	width := 0
	for _, l := range labels {
		if len(l) > width {
			width = len(l)
		}
	}
	fmt.Fprintf(w, "%*s", width, "")
	for j := range labels {
		fmt.Fprintf(w, " %4d", j)
	}
	fmt.Fprintln(w)
	for i, l := range labels {
		fmt.Fprintf(w, "%*s", width, l)
		for j := range labels {
			fmt.Fprintf(w, " %4.0f", cm.At(i, j))
		}
		fmt.Fprintf(w, "  (%d)\n", i)
	}
}
