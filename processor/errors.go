package processor

import "errors"

var (
	// ErrAlreadyActivated is returned by Activate when the processor is not
	// currently Terminated. Only one Activate may be in progress.
	ErrAlreadyActivated = errors.New("processor: already activated")
	// ErrNotActivated is returned by Terminate when the processor isn't
	// Activated — the second of two concurrent/sequential Terminate calls
	// hits this branch and is a no-op diagnostic (spec P6).
	ErrNotActivated = errors.New("processor: not activated")
)

// ConfigurationError reports a missing or invalid construction-time setting.
// Raised only at New, never at steady state.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string { return "processor: configuration: " + e.Reason }

func newConfigurationError(reason string) *ConfigurationError {
	return &ConfigurationError{Reason: reason}
}
