package engine

import (
	"errors"
	"fmt"
)

// EngineError is an error returned to the host by the engine.
//
// Only configuration problems surface as errors. A tripped depth guard and a
// reference to a module that does not exist yet are reported on the Result,
// never as errors.
type EngineError struct {
	// Code identifies the error category.
	Code EngineErrorCode

	// Message is a human-readable description.
	Message string

	// RunID identifies the run the ingestion was attempted against.
	RunID string

	// Module is the module being ingested, if any.
	Module string
}

// EngineErrorCode categorizes engine errors.
type EngineErrorCode string

const (
	// ErrCodeConfiguration indicates the run's module graph is unavailable:
	// the run was never initialized or has already been closed.
	ErrCodeConfiguration EngineErrorCode = "CONFIGURATION"
)

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.Module != "" {
		return fmt.Sprintf("%s: %s (run=%s, module=%s)", e.Code, e.Message, e.RunID, e.Module)
	}
	if e.RunID != "" {
		return fmt.Sprintf("%s: %s (run=%s)", e.Code, e.Message, e.RunID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsConfigurationError reports whether err is, or wraps, a configuration
// error.
func IsConfigurationError(err error) bool {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code == ErrCodeConfiguration
	}
	return false
}

// NewConfigurationError creates an EngineError for an unavailable graph.
func NewConfigurationError(runID, module, message string) *EngineError {
	return &EngineError{
		Code:    ErrCodeConfiguration,
		Message: message,
		RunID:   runID,
		Module:  module,
	}
}
