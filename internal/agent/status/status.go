// Package status prints the user-facing progress lines of a run. They are
// advisory: turning them off never changes a result.
package status

import (
	"fmt"
	"io"
	"os"
	"sync"

	logx "github.com/sagely-dev/sagely/pkg/logger"
)

type Kind string

const (
	Info     Kind = "info"
	Success  Kind = "success"
	Warning  Kind = "warning"
	Error    Kind = "error"
	Search   Kind = "search"
	Thinking Kind = "thinking"
	Cache    Kind = "cache"
	Usage    Kind = "usage"
)

var symbols = map[Kind]string{
	Info:     "ℹ️",
	Success:  "✅",
	Warning:  "⚠️",
	Error:    "❌",
	Search:   "🔍",
	Thinking: "🤔",
	Cache:    "📦",
	Usage:    "💰",
}

// Symbol returns the prefix printed for kind. Unknown kinds fall back to Info.
func Symbol(kind Kind) string {
	if s, ok := symbols[kind]; ok {
		return s
	}
	return symbols[Info]
}

// Printer writes "{symbol} {message}" lines while enabled reports true.
type Printer struct {
	mu      sync.Mutex
	out     io.Writer
	enabled func() bool
}

// NewPrinter returns a Printer writing to out. A nil enabled always prints.
func NewPrinter(out io.Writer, enabled func() bool) *Printer {
	if out == nil {
		out = os.Stdout
	}
	if enabled == nil {
		enabled = func() bool { return true }
	}
	return &Printer{out: out, enabled: enabled}
}

// Discard returns a Printer that never writes.
func Discard() *Printer {
	return NewPrinter(io.Discard, func() bool { return false })
}

func (p *Printer) Printf(kind Kind, format string, args ...any) {
	if p == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	logx.Debug().Str("kind", string(kind)).Msg(msg)
	if !p.enabled() {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "%s %s\n", Symbol(kind), msg)
}
