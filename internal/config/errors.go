package config

import "fmt"

// ConfigurationError reports a malformed persona or extension definition.
// It is fatal: a round never starts with an invalid roster.
type ConfigurationError struct {
	Path string // definition file that failed
	Err  error
}

func (e *ConfigurationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("configuration error: %v", e.Err)
	}
	return fmt.Sprintf("configuration error in %s: %v", e.Path, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }
