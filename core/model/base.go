// Package model provides the abstractions shared by every estimator in this
// module.
//
//   - BaseEstimator: fitted-state tracking, hyperparameters and logging helpers
//   - StateManager: the same fitted-state tracking for estimators that prefer
//     composition over embedding
//   - Transformer, Classifier, FrameTransformer: the Fit/Transform/Predict contracts
//   - Persistence: gob encoding of fitted estimators to files or streams
//
// Estimators embed BaseEstimator (or hold a StateManager) and call SetFitted
// at the end of a successful Fit:
//
//	type MyModel struct {
//		model.BaseEstimator
//	}
//
//	func (m *MyModel) Fit(X mat.Matrix) error {
//		// training logic
//		m.SetFitted()
//		return nil
//	}
package model

import (
	"github.com/delvitaw/obesity/pkg/log"
)

// EstimatorState represents the learning state of a model
type EstimatorState int

const (
	// NotFitted indicates the model is not yet trained
	NotFitted EstimatorState = iota
	// Fitted indicates the model has been trained
	Fitted
)

// BaseEstimator is the base structure for preprocessing estimators
type BaseEstimator struct {
	// State holds the model's learning state. Public for gob encoding.
	State EstimatorState

	// ModelType identifies the type of model
	ModelType string

	logger          log.Logger
	hyperparameters map[string]interface{}
}

// IsFitted returns whether the model has been fitted with training data.
func (e *BaseEstimator) IsFitted() bool {
	return e.State == Fitted
}

// SetFitted marks the estimator as fitted. Only estimator implementations
// call it, at the end of a successful Fit.
func (e *BaseEstimator) SetFitted() {
	e.State = Fitted
}

// Reset returns the estimator to its initial untrained state.
func (e *BaseEstimator) Reset() {
	e.State = NotFitted
}

// SetLogger sets the logger for this estimator.
func (e *BaseEstimator) SetLogger(logger log.Logger) {
	e.logger = logger
}

// GetLogger returns the logger for this estimator, or nil.
func (e *BaseEstimator) GetLogger() log.Logger {
	return e.logger
}

// LogInfo logs an info-level message if a logger is configured.
func (e *BaseEstimator) LogInfo(msg string, fields ...interface{}) {
	if e.logger != nil {
		e.logger.Info(msg, fields...)
	}
}

// LogDebug logs a debug-level message if a logger is configured.
func (e *BaseEstimator) LogDebug(msg string, fields ...interface{}) {
	if e.logger != nil {
		e.logger.Debug(msg, fields...)
	}
}

// LogError logs an error-level message if a logger is configured.
func (e *BaseEstimator) LogError(msg string, fields ...interface{}) {
	if e.logger != nil {
		e.logger.Error(msg, fields...)
	}
}

// GetParams retrieves the model's hyperparameters. With deep set the map is a copy.
func (e *BaseEstimator) GetParams(deep bool) map[string]interface{} {
	if e.hyperparameters == nil {
		return make(map[string]interface{})
	}

	if !deep {
		return e.hyperparameters
	}

	params := make(map[string]interface{}, len(e.hyperparameters))
	for k, v := range e.hyperparameters {
		params[k] = v
	}
	return params
}

// SetParams merges params into the model's hyperparameters.
func (e *BaseEstimator) SetParams(params map[string]interface{}) error {
	if e.hyperparameters == nil {
		e.hyperparameters = make(map[string]interface{})
	}

	for k, v := range params {
		e.hyperparameters[k] = v
	}

	return nil
}

// Clone creates an unfitted copy carrying the same hyperparameters and logger.
func (e *BaseEstimator) Clone() *BaseEstimator {
	clone := &BaseEstimator{
		State:           NotFitted,
		ModelType:       e.ModelType,
		logger:          e.logger,
		hyperparameters: make(map[string]interface{}, len(e.hyperparameters)),
	}

	for k, v := range e.hyperparameters {
		clone.hyperparameters[k] = v
	}

	return clone
}
