package dataset

import (
	"fmt"
	"strings"

	"github.com/delvitaw/obesity/pkg/errors"
)

// ColumnSpec names a column and its kind.
type ColumnSpec struct {
	Name string
	Kind Kind
}

// Schema is the ordered column contract a fitted pipeline expects.
type Schema []ColumnSpec

// Names returns the column names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.Name
	}
	return names
}

// Validate checks that f carries every column of s with the same kind.
// Extra columns in f are allowed.
func (s Schema) Validate(f *Frame) error {
	var problems []string
	for _, spec := range s {
		c, ok := f.Column(spec.Name)
		if !ok {
			problems = append(problems, fmt.Sprintf("missing column %q", spec.Name))
			continue
		}
		if c.Kind != spec.Kind {
			problems = append(problems, fmt.Sprintf("column %q is %s, want %s", spec.Name, c.Kind, spec.Kind))
		}
	}
	if len(problems) > 0 {
		return errors.Wrap(errors.ErrSchemaMismatch, strings.Join(problems, "; "))
	}
	return nil
}
