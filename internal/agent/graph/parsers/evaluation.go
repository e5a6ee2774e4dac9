// Package parsers interprets LLM replies that drive workflow routing.
package parsers

import (
	"strings"
)

const (
	TokenNeedsWebSearch = "NEEDS_WEB_SEARCH"
	TokenSufficient     = "SUFFICIENT"
)

// Evaluation is the orchestrator's verdict on the initial answer.
type Evaluation struct {
	NeedsWebSearch bool
	// Reason is the reply with surrounding whitespace removed.
	Reason string
}

// ParseEvaluation classifies a reply by a case-insensitive substring match on
// NEEDS_WEB_SEARCH. Anything else, including an empty reply, is sufficient.
// The token appearing inside unrelated prose still counts.
func ParseEvaluation(reply string) Evaluation {
	trimmed := strings.TrimSpace(reply)
	return Evaluation{
		NeedsWebSearch: strings.Contains(strings.ToUpper(trimmed), TokenNeedsWebSearch),
		Reason:         trimmed,
	}
}
