package settings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/kelseyhightower/envconfig"

	"github.com/sagely-dev/sagely/internal/agent/model"
	"github.com/sagely-dev/sagely/internal/agent/status"
)

// Keys lists every option name in declaration order.
func Keys() []string {
	t := reflect.TypeOf(model.Options{})
	keys := make([]string, 0, t.NumField())
	for i := range t.NumField() {
		keys = append(keys, jsonName(t.Field(i)))
	}
	return keys
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	return name
}

// Get returns the JSON form of one option.
func (m *Manager) Get(key string) (any, bool) {
	values, err := toMap(m.Options())
	if err != nil {
		return nil, false
	}
	v, ok := values[key]
	return v, ok
}

// Update applies values keyed by option name. Unknown keys are reported and
// skipped; unchanged values are ignored. Toggling a cache option rebuilds
// the cache handles before Update returns.
func (m *Manager) Update(values map[string]any) error {
	m.mu.Lock()

	current, err := toMap(m.opts)
	if err != nil {
		m.mu.Unlock()
		return err
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	type change struct {
		key      string
		old, new any
	}
	var (
		changes []change
		unknown []string
	)
	for _, k := range keys {
		old, ok := current[k]
		if !ok {
			unknown = append(unknown, k)
			continue
		}
		if sameJSON(old, values[k]) {
			continue
		}
		current[k] = values[k]
		changes = append(changes, change{key: k, old: old, new: values[k]})
	}

	next := m.opts
	if len(changes) > 0 {
		b, err := json.Marshal(current)
		if err != nil {
			m.mu.Unlock()
			return fmt.Errorf("encode options: %w", err)
		}
		next = model.Options{}
		if err := json.Unmarshal(b, &next); err != nil {
			m.mu.Unlock()
			return fmt.Errorf("invalid option value: %w", err)
		}
	}

	reinit := next.EnableResponseCache != m.opts.EnableResponseCache ||
		next.EnableModuleCache != m.opts.EnableModuleCache ||
		next.CacheBackend != m.opts.CacheBackend
	credentialChanged := next.GeminiAPIKey != m.opts.GeminiAPIKey

	m.opts = next
	m.showStatus.Store(bool(next.ShowStatusUpdates))
	if reinit {
		m.initCachesLocked()
	}
	m.mu.Unlock()

	for _, k := range unknown {
		m.status.Printf(status.Warning, "Unknown configuration key: %s", k)
	}
	for _, c := range changes {
		m.status.Printf(status.Info, "Updated %s: %s → %s", c.key, Describe(c.key, c.old), Describe(c.key, c.new))
	}
	if reinit {
		m.status.Printf(status.Success, "Caches reinitialized with new configuration")
	}
	if credentialChanged {
		return m.Validate()
	}
	return nil
}

// Set assigns one option from its string form, applying the same coercion
// as environment variables.
func (m *Manager) Set(key, value string) error {
	field, ok := fieldByJSON(key)
	if !ok {
		m.status.Printf(status.Warning, "Unknown configuration key: %s", key)
		return fmt.Errorf("unknown configuration key %q", key)
	}

	var v any
	switch field.Type {
	case reflect.TypeOf(model.Flag(false)):
		v = model.ParseFlag(value)
	case reflect.TypeOf(model.OptionalString("")):
		if s := model.ParseOptional(value); s.IsSet() {
			v = s.String()
		}
	default:
		switch field.Type.Kind() {
		case reflect.Int:
			n, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("%s must be an integer: %w", key, err)
			}
			v = n
		case reflect.Float32, reflect.Float64:
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return fmt.Errorf("%s must be a number: %w", key, err)
			}
			v = f
		default:
			v = value
		}
	}
	return m.Update(map[string]any{key: v})
}

// LoadFromEnv applies every option whose environment variable is set.
func (m *Manager) LoadFromEnv() error {
	before := m.Options()
	loaded := before
	if err := envconfig.Process("", &loaded); err != nil {
		return fmt.Errorf("load config from env: %w", err)
	}

	prev, err := toMap(before)
	if err != nil {
		return err
	}
	next, err := toMap(loaded)
	if err != nil {
		return err
	}
	updates := map[string]any{}
	for k, v := range next {
		if !sameJSON(prev[k], v) {
			updates[k] = v
		}
	}
	if len(updates) == 0 {
		return nil
	}
	err = m.Update(updates)
	m.status.Printf(status.Info, "Loaded %d configuration values from environment", len(updates))
	return err
}

// Load reads config.json. A missing file is created from the current
// options and reported as not loaded.
func (m *Manager) Load() (bool, error) {
	b, err := os.ReadFile(m.ConfigPath())
	if errors.Is(err, fs.ErrNotExist) {
		m.status.Printf(status.Info, "No configuration file found")
		if err := m.Save(); err != nil {
			return false, err
		}
		return false, nil
	}
	if err != nil {
		m.status.Printf(status.Error, "Failed to load configuration: %v", err)
		return false, fmt.Errorf("read config: %w", err)
	}

	var values map[string]any
	if err := json.Unmarshal(b, &values); err != nil {
		m.status.Printf(status.Error, "Invalid configuration file format: %v", err)
		return false, fmt.Errorf("parse config: %w", err)
	}
	if err := m.Update(values); err != nil {
		return false, err
	}
	m.status.Printf(status.Success, "Configuration loaded from %s", m.ConfigPath())
	return true, nil
}

// Save writes the current options to config.json.
func (m *Manager) Save() error {
	b, err := json.MarshalIndent(m.Options(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(m.home, 0o755); err != nil {
		m.status.Printf(status.Error, "Failed to save configuration: %v", err)
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(m.ConfigPath(), b, 0o600); err != nil {
		m.status.Printf(status.Error, "Failed to save configuration: %v", err)
		return fmt.Errorf("write config: %w", err)
	}
	m.status.Printf(status.Success, "Configuration saved to %s", m.ConfigPath())
	return nil
}

// Reset restores the defaults, keeping API keys.
func (m *Manager) Reset() error {
	cur := m.Options()
	def := model.DefaultOptions()
	def.GeminiAPIKey = cur.GeminiAPIKey
	def.TavilyAPIKey = cur.TavilyAPIKey

	values, err := toMap(def)
	if err != nil {
		return err
	}
	return m.Update(values)
}

func fieldByJSON(key string) (reflect.StructField, bool) {
	t := reflect.TypeOf(model.Options{})
	for i := range t.NumField() {
		if f := t.Field(i); jsonName(f) == key {
			return f, true
		}
	}
	return reflect.StructField{}, false
}

func toMap(opts model.Options) (map[string]any, error) {
	b, err := json.Marshal(opts)
	if err != nil {
		return nil, fmt.Errorf("encode options: %w", err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode options: %w", err)
	}
	return out, nil
}

func sameJSON(a, b any) bool {
	x, errA := json.Marshal(a)
	y, errB := json.Marshal(b)
	return errA == nil && errB == nil && bytes.Equal(x, y)
}

// Describe formats an option value for status output. API keys are masked.
func Describe(key string, v any) string {
	switch x := v.(type) {
	case nil:
		return "<unset>"
	case string:
		if strings.HasSuffix(key, "_api_key") {
			return "****"
		}
		return x
	}
	return fmt.Sprint(v)
}
