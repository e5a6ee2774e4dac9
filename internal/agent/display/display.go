// Package display writes answers to the terminal.
package display

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"

	logx "github.com/sagely-dev/sagely/pkg/logger"
)

const wordWrap = 80

// Terminal renders answers as markdown with glamour, optionally numbering
// the output lines. When rendering fails the raw text is written instead.
type Terminal struct {
	mu          sync.Mutex
	out         io.Writer
	lineNumbers func() bool
	render      func(string) (string, error)
}

// NewTerminal returns a Terminal writing to out. lineNumbers is consulted on
// every Show; nil means never.
func NewTerminal(out io.Writer, lineNumbers func() bool) *Terminal {
	t := &Terminal{out: out, lineNumbers: lineNumbers}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wordWrap),
	)
	if err != nil {
		logx.Debug().Err(err).Msg("markdown renderer unavailable, using plain text")
		return t
	}
	t.render = renderer.Render
	return t
}

// Show writes text to the terminal.
func (t *Terminal) Show(text string) error {
	rendered := text
	if t.render != nil {
		if r, err := t.render(text); err != nil {
			logx.Debug().Err(err).Msg("markdown render failed, using plain text")
		} else {
			rendered = r
		}
	}
	if t.lineNumbers != nil && t.lineNumbers() {
		rendered = Number(rendered)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := io.WriteString(t.out, ensureNewline(rendered))
	return err
}

// Number prefixes every line of text with its 1-based line number.
func Number(text string) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	width := len(fmt.Sprint(len(lines)))
	var b strings.Builder
	for i, line := range lines {
		fmt.Fprintf(&b, "%*d │ %s\n", width, i+1, line)
	}
	return b.String()
}

func ensureNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

// Plain writes answers unchanged.
type Plain struct {
	Out io.Writer
}

func (p Plain) Show(text string) error {
	_, err := io.WriteString(p.Out, ensureNewline(text))
	return err
}
