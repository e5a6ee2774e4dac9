package model

import (
	"fmt"
	"strings"
)

const (
	maxFunctions  = 15
	maxClasses    = 10
	maxSubmodules = 10
	maxDocPreview = 100
)

// Member is a named package member with its doc comment.
type Member struct {
	Name string
	Doc  string
}

// ModuleSummary is the introspected shape of a package: exported functions,
// exported types and imported packages.
type ModuleSummary struct {
	ModuleName    string
	Documentation string
	Functions     []Member
	Classes       []Member
	Submodules    []string
}

// Render serializes the summary into a bounded text block. Equal summaries
// render to byte-identical text.
func (s *ModuleSummary) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Module: %s\n", s.ModuleName)
	if s.Documentation != "" {
		fmt.Fprintf(&b, "Documentation: %s\n\n", s.Documentation)
	}

	if len(s.Functions) > 0 {
		fmt.Fprintf(&b, "Functions (%d total):\n", len(s.Functions))
		writeMembers(&b, s.Functions, maxFunctions)
		if len(s.Functions) > maxFunctions {
			fmt.Fprintf(&b, "... and %d more functions\n", len(s.Functions)-maxFunctions)
		}
		b.WriteString("\n")
	}

	if len(s.Classes) > 0 {
		fmt.Fprintf(&b, "Classes (%d total):\n", len(s.Classes))
		writeMembers(&b, s.Classes, maxClasses)
		if len(s.Classes) > maxClasses {
			fmt.Fprintf(&b, "... and %d more classes\n", len(s.Classes)-maxClasses)
		}
		b.WriteString("\n")
	}

	if len(s.Submodules) > 0 {
		fmt.Fprintf(&b, "Submodules (%d total):\n", len(s.Submodules))
		for i, name := range s.Submodules {
			if i == maxSubmodules {
				break
			}
			fmt.Fprintf(&b, "- %s\n", name)
		}
		if len(s.Submodules) > maxSubmodules {
			fmt.Fprintf(&b, "... and %d more submodules\n", len(s.Submodules)-maxSubmodules)
		}
		b.WriteString("\n")
	}

	return b.String()
}

func writeMembers(b *strings.Builder, members []Member, limit int) {
	for i, m := range members {
		if i == limit {
			return
		}
		b.WriteString("- " + m.Name)
		if m.Doc != "" {
			b.WriteString(": " + DocPreview(m.Doc))
		}
		b.WriteString("\n")
	}
}

// DocPreview truncates doc to the preview length, marking the cut with "...".
func DocPreview(doc string) string {
	r := []rune(doc)
	if len(r) <= maxDocPreview {
		return doc
	}
	return string(r[:maxDocPreview]) + "..."
}
