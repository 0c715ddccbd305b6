package model

import "sync"

// StateManager tracks fitted state for estimators that use composition
// instead of embedding BaseEstimator. It is safe for concurrent use.
type StateManager struct {
	mu sync.RWMutex

	// Fitted is exported so gob-encoded estimators keep their state.
	Fitted bool
}

// NewStateManager returns an unfitted StateManager.
func NewStateManager() *StateManager {
	return &StateManager{}
}

// IsFitted reports whether SetFitted has been called since the last Reset.
func (s *StateManager) IsFitted() bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Fitted
}

// SetFitted marks the owner as fitted.
func (s *StateManager) SetFitted() {
	s.mu.Lock()
	s.Fitted = true
	s.mu.Unlock()
}

// Reset marks the owner as unfitted.
func (s *StateManager) Reset() {
	s.mu.Lock()
	s.Fitted = false
	s.mu.Unlock()
}
