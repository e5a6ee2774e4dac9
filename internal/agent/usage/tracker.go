// Package usage keeps the per-session token accounting and persists it as
// one JSON file per session.
package usage

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/dustin/go-humanize"

	"github.com/sagely-dev/sagely/internal/agent/model"
	logx "github.com/sagely-dev/sagely/pkg/logger"
)

const sessionIDLayout = "20060102_150405"

// Tracker records every LLM call of a session. It is safe for concurrent use.
type Tracker struct {
	mu sync.Mutex

	dir          string
	file         string
	sessionID    string
	sessionStart time.Time

	history []model.TokenUsage
	models  map[string]*model.TokenUsage
	order   []string

	now func() time.Time
}

// New starts a session whose file lives in dir.
func New(dir string) *Tracker {
	return newAt(dir, time.Now)
}

func newAt(dir string, now func() time.Time) *Tracker {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logx.Debug().Err(err).Str("dir", dir).Msg("usage dir not created")
	}
	start := now()
	id := start.Format(sessionIDLayout)
	return &Tracker{
		dir:          dir,
		file:         filepath.Join(dir, "usage_"+id+".json"),
		sessionID:    id,
		sessionStart: start,
		models:       map[string]*model.TokenUsage{},
		now:          now,
	}
}

// Add records one call from raw usage metadata with the keys input_tokens,
// output_tokens and total_tokens. Missing or non-numeric values count as
// zero. Empty metadata is ignored.
func (t *Tracker) Add(metadata map[string]any, modelName, requestType string) {
	if len(metadata) == 0 {
		return
	}
	t.record(model.TokenUsage{
		InputTokens:  toInt(metadata["input_tokens"]),
		OutputTokens: toInt(metadata["output_tokens"]),
		TotalTokens:  toInt(metadata["total_tokens"]),
		ModelName:    modelName,
		RequestType:  requestType,
	})
}

// AddMessageUsage records the usage reported on an eino message.
func (t *Tracker) AddMessageUsage(u *schema.TokenUsage, modelName, requestType string) {
	if u == nil {
		return
	}
	t.Add(map[string]any{
		"input_tokens":  u.PromptTokens,
		"output_tokens": u.CompletionTokens,
		"total_tokens":  u.TotalTokens,
	}, modelName, requestType)
}

func (t *Tracker) record(u model.TokenUsage) {
	t.mu.Lock()
	defer t.mu.Unlock()

	u.Timestamp = t.now()
	t.history = append(t.history, u)
	t.accumulateLocked(u)

	if err := t.saveLocked(); err != nil {
		logx.Debug().Err(err).Str("file", t.file).Msg("usage not saved")
	}
}

func (t *Tracker) accumulateLocked(u model.TokenUsage) {
	agg, ok := t.models[u.ModelName]
	if !ok {
		agg = &model.TokenUsage{ModelName: u.ModelName}
		t.models[u.ModelName] = agg
		t.order = append(t.order, u.ModelName)
	}
	agg.Accumulate(u)
}

// SessionTotal sums every recorded call.
func (t *Tracker) SessionTotal() model.TokenUsage {
	t.mu.Lock()
	defer t.mu.Unlock()

	var total model.TokenUsage
	for _, u := range t.history {
		total.Accumulate(u)
	}
	return total
}

// ModelTotal returns the aggregate for one model, zero if never seen.
func (t *Tracker) ModelTotal(name string) model.TokenUsage {
	t.mu.Lock()
	defer t.mu.Unlock()

	if agg, ok := t.models[name]; ok {
		return *agg
	}
	return model.TokenUsage{ModelName: name}
}

// AllModelTotals returns a copy of the per-model aggregates.
func (t *Tracker) AllModelTotals() map[string]model.TokenUsage {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]model.TokenUsage, len(t.models))
	for name, agg := range t.models {
		out[name] = *agg
	}
	return out
}

// Recent returns the last n calls, oldest first.
func (t *Tracker) Recent(n int) []model.TokenUsage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return lastN(t.history, n)
}

// RecentForModel returns the last n calls made with the named model.
func (t *Tracker) RecentForModel(name string, n int) []model.TokenUsage {
	t.mu.Lock()
	defer t.mu.Unlock()

	var filtered []model.TokenUsage
	for _, u := range t.history {
		if u.ModelName == name {
			filtered = append(filtered, u)
		}
	}
	return lastN(filtered, n)
}

// RequestCount returns the number of calls made with the named model.
func (t *Tracker) RequestCount(name string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.requestCountLocked(name)
}

func (t *Tracker) requestCountLocked(name string) int {
	n := 0
	for _, u := range t.history {
		if u.ModelName == name {
			n++
		}
	}
	return n
}

// Clear drops all history and restarts the session clock. The session file
// keeps the old history until the next Save.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.history = nil
	t.models = map[string]*model.TokenUsage{}
	t.order = nil
	t.sessionStart = t.now()
}

// ClearModel drops the history and aggregate of one model in memory only;
// the session file changes on the next Save.
func (t *Tracker) ClearModel(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	kept := t.history[:0]
	for _, u := range t.history {
		if u.ModelName != name {
			kept = append(kept, u)
		}
	}
	t.history = kept
	delete(t.models, name)
	for i, m := range t.order {
		if m == name {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

func (t *Tracker) SessionID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessionID
}

// FilePath is where the session is persisted.
func (t *Tracker) FilePath() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.file
}

// Summary renders the session totals with a per-model breakdown and an
// estimated cost.
func (t *Tracker) Summary() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var total model.TokenUsage
	var cost float64
	for _, u := range t.history {
		total.Accumulate(u)
	}
	for _, name := range t.order {
		_, _, c := model.ComputeCost(*t.models[name], model.ResolvePricing(name))
		cost += c
	}

	var b strings.Builder
	b.WriteString("Session Token Usage:\n")
	fmt.Fprintf(&b, "  Total input tokens: %s\n", humanize.Comma(int64(total.InputTokens)))
	fmt.Fprintf(&b, "  Total output tokens: %s\n", humanize.Comma(int64(total.OutputTokens)))
	fmt.Fprintf(&b, "  Total tokens: %s\n", humanize.Comma(int64(total.TotalTokens)))
	fmt.Fprintf(&b, "  Estimated cost: $%.6f\n", cost)
	fmt.Fprintf(&b, "  Session duration: %s\n", t.now().Sub(t.sessionStart).Round(time.Second))
	fmt.Fprintf(&b, "  Total requests: %d", len(t.history))

	if len(t.order) > 0 {
		b.WriteString("\n\nModel Breakdown:")
		for _, name := range t.order {
			agg := t.models[name]
			_, _, c := model.ComputeCost(*agg, model.ResolvePricing(name))
			fmt.Fprintf(&b, "\n  %s:", name)
			fmt.Fprintf(&b, "\n    Input tokens: %s", humanize.Comma(int64(agg.InputTokens)))
			fmt.Fprintf(&b, "\n    Output tokens: %s", humanize.Comma(int64(agg.OutputTokens)))
			fmt.Fprintf(&b, "\n    Total tokens: %s", humanize.Comma(int64(agg.TotalTokens)))
			fmt.Fprintf(&b, "\n    Requests: %d", t.requestCountLocked(name))
			fmt.Fprintf(&b, "\n    Estimated cost: $%.6f", c)
		}
	}
	return b.String()
}

func lastN(in []model.TokenUsage, n int) []model.TokenUsage {
	if n <= 0 || len(in) == 0 {
		return nil
	}
	if n > len(in) {
		n = len(in)
	}
	out := make([]model.TokenUsage, n)
	copy(out, in[len(in)-n:])
	return out
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float32:
		return floatToInt(float64(n))
	case float64:
		return floatToInt(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i)
		}
		if f, err := n.Float64(); err == nil {
			return floatToInt(f)
		}
	}
	return 0
}

func floatToInt(f float64) int {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int(f)
}

func sortedNewestFirst(files []string) []string {
	sort.Sort(sort.Reverse(sort.StringSlice(files)))
	return files
}
