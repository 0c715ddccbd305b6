// Package errors provides the error types shared by every estimator and
// command in this module.
//
// It wraps github.com/cockroachdb/errors so that errors created here carry
// stack traces (visible with "%+v") while still working with the standard
// errors.Is / errors.As helpers. Estimator-specific failures are expressed
// with a small set of typed errors:
//
//   - ValueError: an argument has an invalid value
//   - DimensionError: matrix or row shapes disagree
//   - NotFittedError: an estimator was used before Fit
//   - ModelError: a failure inside an estimator, wrapping a sentinel cause
//   - ValidationError: a parameter or input failed validation
//
// Example:
//
//	if !s.IsFitted() {
//		return nil, errors.NewNotFittedError("StandardScaler", "Transform")
//	}
package errors

import (
	"fmt"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

const prefix = "obesity"

// Sentinel errors.
var (
	ErrNotImplemented    = errors.New("not implemented")
	ErrEmptyData         = errors.New("empty data")
	ErrNotFitted         = errors.New("estimator not fitted")
	ErrDimensionMismatch = errors.New("dimension mismatch")
	ErrSchemaMismatch    = errors.New("schema mismatch")
	ErrUnknownCategory   = errors.New("unknown category")
	ErrUndefinedBMI      = errors.New("bmi undefined for non-positive height")
)

// ValueError reports an invalid argument value.
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("%s: %s: %s", prefix, e.Op, e.Message)
}

// NewValueError creates a ValueError with a stack trace attached.
func NewValueError(op, message string) error {
	return errors.WithStack(&ValueError{Op: op, Message: message})
}

// DimensionError reports a shape mismatch along Axis (0 = rows, 1 = columns).
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int
}

func (e *DimensionError) Error() string {
	axis := "rows"
	if e.Axis == 1 {
		axis = "columns"
	}
	return fmt.Sprintf("%s: %s: dimension mismatch on %s: expected %d, got %d",
		prefix, e.Op, axis, e.Expected, e.Got)
}

// Is lets errors.Is match ErrDimensionMismatch.
func (e *DimensionError) Is(target error) bool {
	return target == ErrDimensionMismatch
}

// NewDimensionError creates a DimensionError.
func NewDimensionError(op string, expected, got, axis int) error {
	return errors.WithStack(&DimensionError{Op: op, Expected: expected, Got: got, Axis: axis})
}

// NotFittedError is returned when an estimator is used before Fit.
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("%s: %s: this instance is not fitted yet, call Fit before %s",
		prefix, e.ModelName, e.Method)
}

// Is lets errors.Is match ErrNotFitted.
func (e *NotFittedError) Is(target error) bool {
	return target == ErrNotFitted
}

// NewNotFittedError creates a NotFittedError.
func NewNotFittedError(modelName, method string) error {
	return errors.WithStack(&NotFittedError{ModelName: modelName, Method: method})
}

// ModelError is a failure inside an estimator operation with an underlying cause.
type ModelError struct {
	Op      string
	Message string
	Err     error
}

func (e *ModelError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s: %s", prefix, e.Op, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s: %v", prefix, e.Op, e.Message, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }

// NewModelError creates a ModelError wrapping err.
func NewModelError(op, message string, err error) error {
	return errors.WithStack(&ModelError{Op: op, Message: message, Err: err})
}

// ValidationError reports a parameter or input that failed validation.
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: invalid %s: %s (got %v)", prefix, e.ParamName, e.Reason, e.Value)
}

// NewValidationError creates a ValidationError.
func NewValidationError(paramName, reason string, value interface{}) error {
	return errors.WithStack(&ValidationError{ParamName: paramName, Reason: reason, Value: value})
}

// Re-exports so callers only import one errors package.
var (
	New           = errors.New
	Newf          = errors.Newf
	Wrap          = errors.Wrap
	Wrapf         = errors.Wrapf
	Is            = errors.Is
	As            = errors.As
	Unwrap        = errors.Unwrap
	CombineErrors = errors.CombineErrors
	WithStack     = errors.WithStack
	WithHint      = errors.WithHint
	GetAllHints   = errors.GetAllHints
)

// Recover converts a panic inside op into an error stored in *err.
// It must be deferred directly:
//
//	func (s *StandardScaler) Fit(X mat.Matrix) (err error) {
//		defer errors.Recover(&err, "StandardScaler.Fit")
//		...
//	}
func Recover(err *error, op string) {
	if r := recover(); r != nil {
		var cause error
		switch v := r.(type) {
		case error:
			cause = v
		default:
			cause = errors.Newf("%v", v)
		}
		*err = errors.Wrapf(cause, "%s: %s: panic recovered", prefix, op)
	}
}

// Warning is implemented by non-fatal conditions passed to Warn.
type Warning interface {
	error
	IsWarning() bool
}

// UndefinedMetricWarning is raised when a metric is ill-defined, for example
// precision for a class that was never predicted. The metric is set to 0.
type UndefinedMetricWarning struct {
	Metric string
	Label  string
}

func (w *UndefinedMetricWarning) Error() string {
	return fmt.Sprintf("%s: %s is ill-defined and being set to 0.0 for label %q",
		prefix, w.Metric, w.Label)
}

// IsWarning marks the type as a warning.
func (w *UndefinedMetricWarning) IsWarning() bool { return true }

// NewUndefinedMetricWarning creates an UndefinedMetricWarning.
func NewUndefinedMetricWarning(metric, label string) *UndefinedMetricWarning {
	return &UndefinedMetricWarning{Metric: metric, Label: label}
}

// SplitWarning is raised when a cross-validation split cannot honour
// stratification, e.g. a class has fewer members than folds.
type SplitWarning struct {
	Op      string
	Message string
}

func (w *SplitWarning) Error() string {
	return fmt.Sprintf("%s: %s: %s", prefix, w.Op, w.Message)
}

// IsWarning marks the type as a warning.
func (w *SplitWarning) IsWarning() bool { return true }

// NewSplitWarning creates a SplitWarning.
func NewSplitWarning(op, message string) *SplitWarning {
	return &SplitWarning{Op: op, Message: message}
}

var (
	warnMu      sync.RWMutex
	warnHandler = defaultWarnHandler
)

func defaultWarnHandler(err error) {
	zlog.Warn().Err(err).Msg("warning")
}

// SetWarningHandler replaces the function called by Warn and returns the
// previous handler. Passing nil restores the default zerolog handler.
func SetWarningHandler(h func(error)) func(error) {
	warnMu.Lock()
	defer warnMu.Unlock()
	prev := warnHandler
	if h == nil {
		h = defaultWarnHandler
	}
	warnHandler = h
	return prev
}

// Warn reports a non-fatal condition. Nil errors are ignored.
func Warn(err error) {
	if err == nil {
		return
	}
	warnMu.RLock()
	h := warnHandler
	warnMu.RUnlock()
	h(err)
}
