// Package settings owns the runtime configuration of the assistant and the
// cache handles derived from it. A Manager is built once by the composition
// root and passed to every component that needs it.
package settings

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/redis/go-redis/v9"

	"github.com/sagely-dev/sagely/internal/agent/cache"
	"github.com/sagely-dev/sagely/internal/agent/model"
	"github.com/sagely-dev/sagely/internal/agent/status"
	errx "github.com/sagely-dev/sagely/internal/core/error"
	logx "github.com/sagely-dev/sagely/pkg/logger"
)

// Cache kinds accepted by ClearCaches.
const (
	CacheAll      = ""
	CacheResponse = "response"
	CacheModule   = "module"
)

type Manager struct {
	mu   sync.RWMutex
	home string
	opts model.Options

	response *cache.ResponseCache
	module   *cache.ModuleCache

	rdb        redis.Cmdable
	showStatus atomic.Bool
	status     *status.Printer
}

type Option func(*Manager)

// WithRedis provides the client used when cache_backend is "redis".
func WithRedis(rdb redis.Cmdable) Option {
	return func(m *Manager) { m.rdb = rdb }
}

// WithOutput sets where status lines are written. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(m *Manager) { m.status = status.NewPrinter(w, m.showStatus.Load) }
}

// WithOptions replaces the built-in defaults.
func WithOptions(opts model.Options) Option {
	return func(m *Manager) { m.opts = opts }
}

// New builds a Manager rooted at home (usually ~/.sagely) with default
// options. Nothing is read from disk or the environment until Load or
// LoadFromEnv is called.
func New(home string, options ...Option) *Manager {
	m := &Manager{
		home: home,
		opts: model.DefaultOptions(),
	}
	m.status = status.NewPrinter(os.Stdout, m.showStatus.Load)
	for _, o := range options {
		o(m)
	}
	m.showStatus.Store(bool(m.opts.ShowStatusUpdates))
	m.initCaches()
	return m
}

// DefaultHome returns ~/.sagely, or .sagely when the home dir is unknown.
func DefaultHome() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		return ".sagely"
	}
	return filepath.Join(dir, ".sagely")
}

func (m *Manager) Home() string { return m.home }
func (m *Manager) ConfigPath() string { return filepath.Join(m.home, "config.json") }
func (m *Manager) ResponseCacheDir() string { return filepath.Join(m.home, "cache") }
func (m *Manager) ModuleCacheDir() string { return filepath.Join(m.home, "module_cache") }
func (m *Manager) UsageDir() string { return filepath.Join(m.home, "usage_data") }

// Status is the printer every component shares. It honours
// show_status_updates at print time.
func (m *Manager) Status() *status.Printer {
	return m.status
}

// Options returns a snapshot of the current options.
func (m *Manager) Options() model.Options {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.opts
}

// ResponseCache returns nil when the response cache is disabled.
func (m *Manager) ResponseCache() *cache.ResponseCache {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.response
}

// ModuleCache returns nil when the module cache is disabled.
func (m *Manager) ModuleCache() *cache.ModuleCache {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.module
}

// WebSearchEnabled reports the enable_web_search toggle.
func (m *Manager) WebSearchEnabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return bool(m.opts.EnableWebSearch)
}

// Validate checks the credentials needed to answer questions.
func (m *Manager) Validate() error {
	if !m.Options().GeminiAPIKey.IsSet() {
		return errx.MissingCredential("gemini_api_key", "GEMINI_API_KEY", m.ConfigPath())
	}
	return nil
}

func (m *Manager) initCaches() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initCachesLocked()
}

func (m *Manager) initCachesLocked() {
	m.response = nil
	m.module = nil
	if m.opts.EnableResponseCache {
		m.response = cache.NewResponseCache(m.storeLocked(CacheResponse, m.ResponseCacheDir()))
	}
	if m.opts.EnableModuleCache {
		m.module = cache.NewModuleCache(m.storeLocked(CacheModule, m.ModuleCacheDir()))
	}
}

func (m *Manager) storeLocked(namespace, dir string) cache.Store {
	if m.opts.CacheBackend == model.BackendRedis {
		if m.rdb != nil {
			return cache.NewRedisStore(m.rdb, namespace)
		}
		logx.Warn().Str("cache", namespace).Msg("redis cache backend selected without a client, using files")
	}
	return cache.NewFileStore(dir)
}

// ClearCaches empties the response cache, the module cache, or both when
// kind is CacheAll. Disabled caches are reported and skipped.
func (m *Manager) ClearCaches(kind string) error {
	switch kind {
	case CacheAll, "all", CacheResponse, CacheModule:
	default:
		return fmt.Errorf("unknown cache type %q", kind)
	}

	if kind != CacheModule {
		if rc := m.ResponseCache(); rc != nil {
			rc.Clear()
			m.status.Printf(status.Cache, "Response cache cleared")
		} else {
			m.status.Printf(status.Warning, "Response cache is disabled")
		}
	}
	if kind != CacheResponse {
		if mc := m.ModuleCache(); mc != nil {
			mc.Clear()
			m.status.Printf(status.Cache, "Module cache cleared")
		} else {
			m.status.Printf(status.Warning, "Module cache is disabled")
		}
	}
	return nil
}

// ClearModuleCache drops one module's entry, or every entry when name is
// empty.
func (m *Manager) ClearModuleCache(name string) {
	mc := m.ModuleCache()
	if mc == nil {
		m.status.Printf(status.Warning, "Module cache is disabled")
		return
	}
	if name == "" {
		mc.Clear()
		m.status.Printf(status.Cache, "All module cache cleared")
		return
	}
	mc.ClearModule(name)
	m.status.Printf(status.Cache, "Module cache cleared for '%s'", name)
}
