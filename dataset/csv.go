package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/delvitaw/obesity/pkg/errors"
)

// missingTokens are cell values read as missing.
var missingTokens = map[string]bool{
	"":     true,
	"NA":   true,
	"N/A":  true,
	"NaN":  true,
	"nan":  true,
	"null": true,
	"NULL": true,
}

// IsMissingToken reports whether a raw cell value denotes a missing value.
func IsMissingToken(s string) bool {
	return missingTokens[strings.TrimSpace(s)]
}

// LoadCSV reads a CSV file with a header row.
func LoadCSV(path string) (*Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer func() { _ = file.Close() }()

	f, err := ReadCSV(file)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	return f, nil
}

// ReadCSV reads CSV data with a header row and infers column kinds.
// Rows with a different number of fields than the header are an error.
func ReadCSV(r io.Reader) (*Frame, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.NewModelError("ReadCSV", "no header row", errors.ErrEmptyData)
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading header")
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	raw := make([][]string, len(header))
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, errors.Wrapf(err, "reading line %d", line)
		}
		for j, v := range record {
			raw[j] = append(raw[j], strings.TrimSpace(v))
		}
	}

	columns := make([]*Column, len(header))
	for j, name := range header {
		columns[j] = inferColumn(name, raw[j])
	}
	return NewFrame(columns...)
}

// inferColumn builds a numeric column when every non-missing cell parses as
// a float and a categorical column otherwise.
func inferColumn(name string, cells []string) *Column {
	floats := make([]float64, len(cells))
	for i, cell := range cells {
		if IsMissingToken(cell) {
			floats[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			strs := make([]string, len(cells))
			for k, c := range cells {
				if !IsMissingToken(c) {
					strs[k] = c
				}
			}
			return CategoricalColumn(name, strs)
		}
		floats[i] = v
	}
	return NumericColumn(name, floats)
}

// WriteCSV writes f with a header row. Missing numeric cells are written empty.
func WriteCSV(w io.Writer, f *Frame) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(f.Names()); err != nil {
		return err
	}
	record := make([]string, f.Width())
	for i := 0; i < f.Len(); i++ {
		for j, c := range f.columns {
			switch {
			case c.IsMissing(i):
				record[j] = ""
			case c.Kind == Numeric:
				record[j] = strconv.FormatFloat(c.Floats[i], 'f', -1, 64)
			default:
				record[j] = c.Strings[i]
			}
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("writing row %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}
