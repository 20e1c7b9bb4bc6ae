package connector

import "errors"

// ErrNoDestinationTopic is returned when a SourceRecord reaches production
// with no DestinationTopic and no configured default to fall back to.
var ErrNoDestinationTopic = errors.New("connector: record has no destination topic and no default is configured")

// ConfigurationError reports a missing or invalid construction-time setting.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string { return "connector: configuration: " + e.Reason }

func newConfigurationError(reason string) *ConfigurationError {
	return &ConfigurationError{Reason: reason}
}
