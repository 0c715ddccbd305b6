// Package dataset holds tabular data with typed columns.
//
// A Frame is an ordered set of equally long columns. Numeric columns store
// float64 values with NaN marking a missing cell; categorical columns store
// strings with "" marking a missing cell. Column kinds are inferred when a
// CSV file is read: a column is numeric when every non-missing cell parses
// as a float.
package dataset

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/delvitaw/obesity/pkg/errors"
)

// Kind is the storage type of a column.
type Kind int

const (
	// Numeric columns hold float64 values.
	Numeric Kind = iota
	// Categorical columns hold string values.
	Categorical
)

func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Categorical:
		return "categorical"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Column is a named, typed column. Exactly one of Floats or Strings is used.
type Column struct {
	Name    string
	Kind    Kind
	Floats  []float64
	Strings []string
}

// NumericColumn creates a numeric column.
func NumericColumn(name string, values []float64) *Column {
	return &Column{Name: name, Kind: Numeric, Floats: values}
}

// CategoricalColumn creates a categorical column.
func CategoricalColumn(name string, values []string) *Column {
	return &Column{Name: name, Kind: Categorical, Strings: values}
}

// Len returns the number of cells.
func (c *Column) Len() int {
	if c.Kind == Numeric {
		return len(c.Floats)
	}
	return len(c.Strings)
}

// IsMissing reports whether cell i is missing.
func (c *Column) IsMissing(i int) bool {
	if c.Kind == Numeric {
		return math.IsNaN(c.Floats[i])
	}
	return c.Strings[i] == ""
}

// MissingCount counts missing cells.
func (c *Column) MissingCount() int {
	n := 0
	for i := 0; i < c.Len(); i++ {
		if c.IsMissing(i) {
			n++
		}
	}
	return n
}

// take returns a new column with the cells at indices.
func (c *Column) take(indices []int) *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	if c.Kind == Numeric {
		out.Floats = make([]float64, len(indices))
		for i, idx := range indices {
			out.Floats[i] = c.Floats[idx]
		}
		return out
	}
	out.Strings = make([]string, len(indices))
	for i, idx := range indices {
		out.Strings[i] = c.Strings[idx]
	}
	return out
}

// Frame is an ordered collection of equally long columns.
type Frame struct {
	columns []*Column
	index   map[string]int
	nRows   int
}

// NewFrame builds a frame. Column names must be unique and all columns
// must have the same length.
func NewFrame(columns ...*Column) (*Frame, error) {
	f := &Frame{index: make(map[string]int, len(columns))}
	for _, c := range columns {
		if err := f.Set(c); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Len returns the number of rows.
func (f *Frame) Len() int { return f.nRows }

// Width returns the number of columns.
func (f *Frame) Width() int { return len(f.columns) }

// Names returns column names in order.
func (f *Frame) Names() []string {
	names := make([]string, len(f.columns))
	for i, c := range f.columns {
		names[i] = c.Name
	}
	return names
}

// Columns returns the columns in order. The slice is a copy; the columns are shared.
func (f *Frame) Columns() []*Column {
	return append([]*Column(nil), f.columns...)
}

// Column looks up a column by name.
func (f *Frame) Column(name string) (*Column, bool) {
	i, ok := f.index[name]
	if !ok {
		return nil, false
	}
	return f.columns[i], true
}

// Set appends c, or replaces the column with the same name in place.
func (f *Frame) Set(c *Column) error {
	if c == nil || c.Name == "" {
		return errors.NewValueError("Frame.Set", "column must have a name")
	}
	if len(f.columns) > 0 && c.Len() != f.nRows {
		return errors.NewDimensionError("Frame.Set", f.nRows, c.Len(), 0)
	}
	if i, ok := f.index[c.Name]; ok {
		f.columns[i] = c
		return nil
	}
	if len(f.columns) == 0 {
		f.nRows = c.Len()
	}
	f.index[c.Name] = len(f.columns)
	f.columns = append(f.columns, c)
	return nil
}

// Select returns a frame with the named columns in the given order.
func (f *Frame) Select(names ...string) (*Frame, error) {
	cols := make([]*Column, 0, len(names))
	for _, name := range names {
		c, ok := f.Column(name)
		if !ok {
			return nil, errors.Wrapf(errors.ErrSchemaMismatch, "column %q not found", name)
		}
		cols = append(cols, c)
	}
	out, err := NewFrame(cols...)
	if err != nil {
		return nil, err
	}
	out.nRows = f.nRows
	return out, nil
}

// Drop returns a frame without the named columns.
func (f *Frame) Drop(names ...string) (*Frame, error) {
	drop := make(map[string]bool, len(names))
	for _, name := range names {
		if _, ok := f.index[name]; !ok {
			return nil, errors.Wrapf(errors.ErrSchemaMismatch, "column %q not found", name)
		}
		drop[name] = true
	}
	keep := make([]string, 0, len(f.columns))
	for _, c := range f.columns {
		if !drop[c.Name] {
			keep = append(keep, c.Name)
		}
	}
	return f.Select(keep...)
}

// Take returns a frame with the rows at indices, in that order.
func (f *Frame) Take(indices []int) *Frame {
	out := &Frame{index: make(map[string]int, len(f.columns)), nRows: len(indices)}
	for _, c := range f.columns {
		out.index[c.Name] = len(out.columns)
		out.columns = append(out.columns, c.take(indices))
	}
	return out
}

// NamesOfKind returns the names of the columns with kind k, in frame order.
func (f *Frame) NamesOfKind(k Kind) []string {
	var names []string
	for _, c := range f.columns {
		if c.Kind == k {
			names = append(names, c.Name)
		}
	}
	return names
}

// ColumnCount pairs a column name with a count.
type ColumnCount struct {
	Name  string
	Count int
}

// MissingCounts returns the number of missing cells per column, in frame order.
func (f *Frame) MissingCounts() []ColumnCount {
	out := make([]ColumnCount, len(f.columns))
	for i, c := range f.columns {
		out[i] = ColumnCount{Name: c.Name, Count: c.MissingCount()}
	}
	return out
}

// ValueCount pairs a categorical value with its frequency.
type ValueCount struct {
	Value string
	Count int
}

// ValueCounts counts values of a categorical column, most frequent first.
// Ties are ordered by value. Missing cells are skipped.
func (f *Frame) ValueCounts(name string) ([]ValueCount, error) {
	c, ok := f.Column(name)
	if !ok {
		return nil, errors.Wrapf(errors.ErrSchemaMismatch, "column %q not found", name)
	}
	if c.Kind != Categorical {
		return nil, errors.NewValueError("Frame.ValueCounts", fmt.Sprintf("column %q is not categorical", name))
	}

	counts := make(map[string]int)
	for _, v := range c.Strings {
		if v != "" {
			counts[v]++
		}
	}
	out := make([]ValueCount, 0, len(counts))
	for v, n := range counts {
		out = append(out, ValueCount{Value: v, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	return out, nil
}

// NumericMatrix returns the named numeric columns as an n×len(names) matrix.
func (f *Frame) NumericMatrix(names []string) (*mat.Dense, error) {
	cols := make([]*Column, len(names))
	for j, name := range names {
		c, ok := f.Column(name)
		if !ok {
			return nil, errors.Wrapf(errors.ErrSchemaMismatch, "column %q not found", name)
		}
		if c.Kind != Numeric {
			return nil, errors.Wrapf(errors.ErrSchemaMismatch, "column %q is %s, want numeric", name, c.Kind)
		}
		cols[j] = c
	}
	if f.nRows == 0 || len(names) == 0 {
		return &mat.Dense{}, nil
	}
	out := mat.NewDense(f.nRows, len(names), nil)
	for j, c := range cols {
		for i, v := range c.Floats {
			out.Set(i, j, v)
		}
	}
	return out, nil
}

// CategoricalRows returns the named categorical columns row by row.
func (f *Frame) CategoricalRows(names []string) ([][]string, error) {
	cols := make([]*Column, len(names))
	for j, name := range names {
		c, ok := f.Column(name)
		if !ok {
			return nil, errors.Wrapf(errors.ErrSchemaMismatch, "column %q not found", name)
		}
		if c.Kind != Categorical {
			return nil, errors.Wrapf(errors.ErrSchemaMismatch, "column %q is %s, want categorical", name, c.Kind)
		}
		cols[j] = c
	}
	rows := make([][]string, f.nRows)
	for i := range rows {
		row := make([]string, len(cols))
		for j, c := range cols {
			row[j] = c.Strings[i]
		}
		rows[i] = row
	}
	return rows, nil
}

// Strings returns a copy of a categorical column's values.
func (f *Frame) Strings(name string) ([]string, error) {
	rows, err := f.CategoricalRows([]string{name})
	if err != nil {
		return nil, err
	}
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r[0]
	}
	return out, nil
}

// Schema describes the columns of the frame.
func (f *Frame) Schema() Schema {
	s := make(Schema, len(f.columns))
	for i, c := range f.columns {
		s[i] = ColumnSpec{Name: c.Name, Kind: c.Kind}
	}
	return s
}
