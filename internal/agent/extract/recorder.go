// Package extract gathers the caller-side context of a question: the most
// recent recorded error and a short description of an optional value.
package extract

import (
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
)

// NoRecentErrors is returned when nothing has been recorded.
const NoRecentErrors = "No recent errors"

// Recorder keeps the last error a host program chose to report, together with
// the stack it was reported from.
type Recorder struct {
	mu    sync.Mutex
	trace string
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record stores err and the current goroutine stack. A nil err is ignored.
func (r *Recorder) Record(err error) {
	if err == nil {
		return
	}
	trace := fmt.Sprintf("%T: %v\n\n%s", err, err, debug.Stack())
	r.RecordTrace(trace)
}

// RecordTrace stores an already formatted trace, e.g. one read from a file.
func (r *Recorder) RecordTrace(trace string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trace = trace
}

// RecentError returns the last recorded trace or NoRecentErrors.
func (r *Recorder) RecentError() (trace string) {
	defer func() {
		if recover() != nil {
			trace = NoRecentErrors
		}
	}()
	if r == nil {
		return NoRecentErrors
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if strings.TrimSpace(r.trace) == "" {
		return NoRecentErrors
	}
	return r.trace
}

func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trace = ""
}
