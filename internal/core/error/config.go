package errx

import (
	"fmt"
	"strings"
)

// ConfigError reports a missing or invalid required setting, with remediation
// steps the user can act on.
type ConfigError struct {
	Field      string
	EnvVar     string
	ConfigPath string
}

// MissingCredential builds the error returned when an API key is absent.
func MissingCredential(field, envVar, configPath string) *ConfigError {
	return &ConfigError{Field: field, EnvVar: envVar, ConfigPath: configPath}
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s is required. Please set it using:\n", e.Field)
	fmt.Fprintf(&b, "1. Environment variable: export %s='your-key'\n", e.EnvVar)
	fmt.Fprintf(&b, "2. Direct assignment: sagely config set %s=your-key\n", e.Field)
	fmt.Fprintf(&b, "3. Configuration file: %s", e.ConfigPath)
	return b.String()
}
