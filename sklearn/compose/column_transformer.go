// Package compose applies different transformers to different columns of a
// dataset.Frame and concatenates their outputs, like
// sklearn.compose.ColumnTransformer.
package compose

import (
	"encoding/gob"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/delvitaw/obesity/core/model"
	"github.com/delvitaw/obesity/dataset"
	"github.com/delvitaw/obesity/pkg/errors"
	"github.com/delvitaw/obesity/pkg/log"
)

func init() {
	gob.Register(&ColumnTransformer{})
}

// categoricalTransformer is implemented by transformers that consume string
// columns, such as preprocessing.OneHotEncoder.
type categoricalTransformer interface {
	Fit(data [][]string) error
	Transform(data [][]string) (mat.Matrix, error)
}

// featureNamer is implemented by transformers whose outputs do not map one
// to one onto their inputs.
type featureNamer interface {
	GetFeatureNamesOut(inputFeatures []string) []string
}

// NamedTransformer binds a transformer to the columns it consumes.
//
// Transformer is either a model.Transformer, fed the columns as a numeric
// matrix, or a transformer over [][]string, fed categorical rows.
type NamedTransformer struct {
	Name        string
	Transformer interface{}
	Columns     []string
}

// ColumnTransformer fits each NamedTransformer on its own columns and
// horizontally stacks the results in declaration order. Columns that no
// transformer names are dropped.
type ColumnTransformer struct {
	model.BaseEstimator

	Transformers []NamedTransformer

	// OutputWidths is the number of output columns of each transformer.
	OutputWidths []int

	// FeatureNamesOut names every output column, "<transformer>__<feature>".
	FeatureNamesOut []string
}

// NewColumnTransformer creates a ColumnTransformer. Transformer names must be
// unique and may not contain "__".
func NewColumnTransformer(transformers ...NamedTransformer) *ColumnTransformer {
	ct := &ColumnTransformer{Transformers: transformers}
	ct.ModelType = "ColumnTransformer"
	ct.SetLogger(log.GetLoggerWithName("ColumnTransformer"))
	return ct
}

func (ct *ColumnTransformer) validate() error {
	if len(ct.Transformers) == 0 {
		return errors.NewValidationError("transformers", "at least one transformer is required", 0)
	}
	seen := make(map[string]bool, len(ct.Transformers))
	for _, t := range ct.Transformers {
		if t.Name == "" || strings.Contains(t.Name, "__") {
			return errors.NewValidationError("transformer name", "must be non-empty and not contain '__'", t.Name)
		}
		if seen[t.Name] {
			return errors.NewValidationError("transformer name", "must be unique", t.Name)
		}
		seen[t.Name] = true
		switch t.Transformer.(type) {
		case model.Transformer, categoricalTransformer:
		default:
			return errors.NewValidationError("transformer "+t.Name, "unsupported transformer type", fmt.Sprintf("%T", t.Transformer))
		}
	}
	return nil
}

// Fit fits every transformer on its columns of f.
func (ct *ColumnTransformer) Fit(f *dataset.Frame) error {
	_, err := ct.FitTransform(f)
	return err
}

// FitTransform fits every transformer and returns the stacked output.
func (ct *ColumnTransformer) FitTransform(f *dataset.Frame) (_ *mat.Dense, err error) {
	defer errors.Recover(&err, "ColumnTransformer.FitTransform")
	if err := ct.validate(); err != nil {
		return nil, err
	}
	if f.Len() == 0 {
		return nil, errors.NewModelError("ColumnTransformer.Fit", "empty data", errors.ErrEmptyData)
	}

	ct.OutputWidths = make([]int, len(ct.Transformers))
	ct.FeatureNamesOut = nil
	blocks := make([]mat.Matrix, len(ct.Transformers))

	for i, t := range ct.Transformers {
		var out mat.Matrix
		switch tr := t.Transformer.(type) {
		case model.Transformer:
			X, err := f.NumericMatrix(t.Columns)
			if err != nil {
				return nil, errors.Wrapf(err, "transformer %q", t.Name)
			}
			if out, err = tr.FitTransform(X); err != nil {
				return nil, errors.Wrapf(err, "fitting transformer %q", t.Name)
			}
		case categoricalTransformer:
			rows, err := f.CategoricalRows(t.Columns)
			if err != nil {
				return nil, errors.Wrapf(err, "transformer %q", t.Name)
			}
			if err := tr.Fit(rows); err != nil {
				return nil, errors.Wrapf(err, "fitting transformer %q", t.Name)
			}
			if out, err = tr.Transform(rows); err != nil {
				return nil, errors.Wrapf(err, "transforming with %q", t.Name)
			}
		}
		_, ct.OutputWidths[i] = out.Dims()
		blocks[i] = out
		ct.FeatureNamesOut = append(ct.FeatureNamesOut, featureNames(t)...)
	}

	ct.SetFitted()
	ct.LogDebug("Column transformer fitted",
		log.SamplesKey, f.Len(),
		log.FeaturesKey, len(ct.FeatureNamesOut),
	)
	return hstack(f.Len(), blocks), nil
}

// Transform applies the fitted transformers to f. f must contain every
// column named at fit time; other columns are ignored.
func (ct *ColumnTransformer) Transform(f *dataset.Frame) (_ *mat.Dense, err error) {
	defer errors.Recover(&err, "ColumnTransformer.Transform")
	if !ct.IsFitted() {
		return nil, errors.NewNotFittedError("ColumnTransformer", "Transform")
	}
	if f.Len() == 0 {
		return nil, errors.NewModelError("ColumnTransformer.Transform", "empty data", errors.ErrEmptyData)
	}

	blocks := make([]mat.Matrix, len(ct.Transformers))
	for i, t := range ct.Transformers {
		var out mat.Matrix
		switch tr := t.Transformer.(type) {
		case model.Transformer:
			X, err := f.NumericMatrix(t.Columns)
			if err != nil {
				return nil, errors.Wrapf(err, "transformer %q", t.Name)
			}
			if out, err = tr.Transform(X); err != nil {
				return nil, errors.Wrapf(err, "transforming with %q", t.Name)
			}
		case categoricalTransformer:
			rows, err := f.CategoricalRows(t.Columns)
			if err != nil {
				return nil, errors.Wrapf(err, "transformer %q", t.Name)
			}
			if out, err = tr.Transform(rows); err != nil {
				return nil, errors.Wrapf(err, "transforming with %q", t.Name)
			}
		default:
			return nil, errors.NewValidationError("transformer "+t.Name, "unsupported transformer type", fmt.Sprintf("%T", t.Transformer))
		}
		if _, c := out.Dims(); c != ct.OutputWidths[i] {
			return nil, errors.NewDimensionError("ColumnTransformer.Transform", ct.OutputWidths[i], c, 1)
		}
		blocks[i] = out
	}
	return hstack(f.Len(), blocks), nil
}

// GetFeatureNamesOut returns the output column names.
func (ct *ColumnTransformer) GetFeatureNamesOut() []string {
	out := make([]string, len(ct.FeatureNamesOut))
	copy(out, ct.FeatureNamesOut)
	return out
}

// InputColumns returns every column consumed by a transformer, in
// declaration order.
func (ct *ColumnTransformer) InputColumns() []string {
	var cols []string
	for _, t := range ct.Transformers {
		cols = append(cols, t.Columns...)
	}
	return cols
}

// GetParams returns the transformers' parameters as "<name>__<param>".
func (ct *ColumnTransformer) GetParams() map[string]interface{} {
	params := make(map[string]interface{})
	for _, t := range ct.Transformers {
		if g, ok := t.Transformer.(model.ParamSetter); ok {
			for k, v := range g.GetParams() {
				params[t.Name+"__"+k] = v
			}
		}
	}
	return params
}

// SetParams routes "<name>__<param>" keys to the named transformer.
func (ct *ColumnTransformer) SetParams(params map[string]interface{}) error {
	routed, err := routeParams(params, ct.names())
	if err != nil {
		return err
	}
	for _, t := range ct.Transformers {
		sub, ok := routed[t.Name]
		if !ok {
			continue
		}
		s, ok := t.Transformer.(model.ParamSetter)
		if !ok {
			return errors.NewValidationError(t.Name, "transformer does not accept parameters", sub)
		}
		if err := s.SetParams(sub); err != nil {
			return err
		}
	}
	return nil
}

// CloneEstimator returns an unfitted ColumnTransformer with cloned
// transformers bound to the same columns.
func (ct *ColumnTransformer) CloneEstimator() interface{} {
	transformers := make([]NamedTransformer, len(ct.Transformers))
	for i, t := range ct.Transformers {
		tr := t.Transformer
		if c, ok := tr.(model.Cloner); ok {
			tr = c.CloneEstimator()
		}
		cols := make([]string, len(t.Columns))
		copy(cols, t.Columns)
		transformers[i] = NamedTransformer{Name: t.Name, Transformer: tr, Columns: cols}
	}
	clone := NewColumnTransformer(transformers...)
	clone.SetLogger(ct.GetLogger())
	return clone
}

func (ct *ColumnTransformer) names() []string {
	names := make([]string, len(ct.Transformers))
	for i, t := range ct.Transformers {
		names[i] = t.Name
	}
	return names
}

func featureNames(t NamedTransformer) []string {
	var inner []string
	if n, ok := t.Transformer.(featureNamer); ok {
		inner = n.GetFeatureNamesOut(t.Columns)
	} else {
		inner = t.Columns
	}
	out := make([]string, len(inner))
	for i, name := range inner {
		out[i] = t.Name + "__" + name
	}
	return out
}

func hstack(rows int, blocks []mat.Matrix) *mat.Dense {
	width := 0
	for _, b := range blocks {
		_, c := b.Dims()
		width += c
	}
	out := mat.NewDense(rows, width, nil)
	offset := 0
	for _, b := range blocks {
		_, c := b.Dims()
		for i := 0; i < rows; i++ {
			for j := 0; j < c; j++ {
				out.Set(i, offset+j, b.At(i, j))
			}
		}
		offset += c
	}
	return out
}

// routeParams splits "<name>__<rest>" keys by name.
func routeParams(params map[string]interface{}, names []string) (map[string]map[string]interface{}, error) {
	known := make(map[string]bool, len(names))
	for _, n := range names {
		known[n] = true
	}
	routed := make(map[string]map[string]interface{})
	for key, v := range params {
		name, rest, ok := strings.Cut(key, "__")
		if !ok || !known[name] {
			return nil, errors.NewValidationError(key, "unknown parameter", v)
		}
		if routed[name] == nil {
			routed[name] = make(map[string]interface{})
		}
		routed[name][rest] = v
	}
	return routed, nil
}
