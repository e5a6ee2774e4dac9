package usage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sagely-dev/sagely/internal/agent/model"
	logx "github.com/sagely-dev/sagely/pkg/logger"
)

type sessionFile struct {
	SessionID    string                      `json:"session_id"`
	SessionStart time.Time                   `json:"session_start"`
	UsageHistory []model.TokenUsage          `json:"usage_history"`
	ModelUsage   map[string]model.TokenUsage `json:"model_usage"`
}

// Save writes the session file. Add calls it after every record.
func (t *Tracker) Save() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.saveLocked()
}

func (t *Tracker) saveLocked() error {
	data := sessionFile{
		SessionID:    t.sessionID,
		SessionStart: t.sessionStart,
		UsageHistory: t.history,
		ModelUsage:   make(map[string]model.TokenUsage, len(t.models)),
	}
	if data.UsageHistory == nil {
		data.UsageHistory = []model.TokenUsage{}
	}
	for name, agg := range t.models {
		data.ModelUsage[name] = *agg
	}

	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode usage: %w", err)
	}
	if err := os.WriteFile(t.file, b, 0o644); err != nil {
		return fmt.Errorf("write usage: %w", err)
	}
	return nil
}

// Load restores a session from path. Aggregates are recomputed from the
// history. Any failure yields a fresh session in the same directory.
func Load(path string) *Tracker {
	t := New(filepath.Dir(path))

	b, err := os.ReadFile(path)
	if err != nil {
		logx.Debug().Err(err).Str("file", path).Msg("usage session not loaded")
		return t
	}
	var data sessionFile
	if err := json.Unmarshal(b, &data); err != nil {
		logx.Debug().Err(err).Str("file", path).Msg("usage session malformed")
		return t
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if data.SessionID != "" {
		t.sessionID = data.SessionID
	}
	if !data.SessionStart.IsZero() {
		t.sessionStart = data.SessionStart
	}
	t.file = path
	t.history = data.UsageHistory
	for _, u := range t.history {
		t.accumulateLocked(u)
	}
	return t
}

// SessionFiles lists the session files in dir, newest first.
func SessionFiles(dir string) []string {
	files, err := filepath.Glob(filepath.Join(dir, "usage_*.json"))
	if err != nil {
		return nil
	}
	return sortedNewestFirst(files)
}

// Latest loads the newest session in dir, or starts a fresh one.
func Latest(dir string) *Tracker {
	files := SessionFiles(dir)
	if len(files) == 0 {
		return New(dir)
	}
	return Load(files[0])
}
