package tile

import "fmt"

// ConfigurationError reports malformed or self-contradictory authored data.
// It is raised at load/validation time only; the active configuration stays
// in place when a load fails with one.
type ConfigurationError struct {
	Source string // what was being validated, e.g. "category ground"
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Source, e.Reason)
}

// ConfigErrorf builds a *ConfigurationError with a formatted reason.
func ConfigErrorf(source, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Source: source, Reason: fmt.Sprintf(format, args...)}
}
