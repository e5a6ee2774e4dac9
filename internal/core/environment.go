package core

import "strings"

// Environment selects how the CLI logs: machine-readable JSON for deployed
// runs, a console writer everywhere else.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Testing     Environment = "testing"
	Production  Environment = "production"
)

func (e Environment) String() string {
	return string(e)
}

// JSONLogs reports whether logs should be emitted as JSON lines.
func (e Environment) JSONLogs() bool {
	return e == Production || e == Staging
}

// DefaultLogLevel is the zerolog level name used when none is configured.
func (e Environment) DefaultLogLevel() string {
	switch e {
	case Production, Staging:
		return "info"
	case Testing:
		return "debug"
	}
	return "warn"
}

// ParseEnvironment maps SAGELY_ENVIRONMENT onto a known environment,
// ignoring case and surrounding space. Unknown values mean Development.
func ParseEnvironment(v string) Environment {
	switch e := Environment(strings.ToLower(strings.TrimSpace(v))); e {
	case Production, Staging, Testing:
		return e
	}
	return Development
}
