package settings

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagely-dev/sagely/internal/agent/cache"
	"github.com/sagely-dev/sagely/internal/agent/model"
	errx "github.com/sagely-dev/sagely/internal/core/error"
)

func newManager(t *testing.T, opts ...Option) (*Manager, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	opts = append([]Option{WithOutput(&out)}, opts...)
	return New(t.TempDir(), opts...), &out
}

func TestDefaults(t *testing.T) {
	m, _ := newManager(t)
	opts := m.Options()
	assert.Equal(t, "gemini-2.5-flash", opts.ModelName)
	assert.True(t, bool(opts.EnableWebSearch))
	assert.Equal(t, 10, opts.WebSearchTimeout)
	assert.NotNil(t, m.ResponseCache())
	assert.NotNil(t, m.ModuleCache())
	assert.Equal(t, filepath.Join(m.Home(), "config.json"), m.ConfigPath())
}

func TestUpdateReportsChangesAndUnknownKeys(t *testing.T) {
	m, out := newManager(t)

	require.NoError(t, m.Update(map[string]any{
		"model_name": "gemini-2.5-pro",
		"max_tokens": 2000,
		"bogus":      1,
	}))

	assert.Equal(t, "gemini-2.5-pro", m.Options().ModelName)
	assert.Contains(t, out.String(), "ℹ️ Updated model_name: gemini-2.5-flash → gemini-2.5-pro\n")
	assert.Contains(t, out.String(), "⚠️ Unknown configuration key: bogus\n")
	assert.NotContains(t, out.String(), "Updated max_tokens")
}

func TestUpdateRejectsWrongType(t *testing.T) {
	m, _ := newManager(t)
	err := m.Update(map[string]any{"max_tokens": "many"})
	assert.Error(t, err)
	assert.Equal(t, 2000, m.Options().MaxTokens)
}

func TestTogglingCacheRebuildsHandles(t *testing.T) {
	m, _ := newManager(t)

	require.NoError(t, m.Set("enable_response_cache", "off"))
	assert.Nil(t, m.ResponseCache())
	assert.NotNil(t, m.ModuleCache())

	require.NoError(t, m.Set("enable_response_cache", "yes"))
	rc := m.ResponseCache()
	require.NotNil(t, rc)
	rc.Set("math", "q", "a")
	got, ok := m.ResponseCache().Get("math", "q")
	require.True(t, ok)
	assert.Equal(t, "a", got)
}

func TestStatusSuppressed(t *testing.T) {
	m, out := newManager(t)
	require.NoError(t, m.Set("show_status_updates", "false"))
	out.Reset()

	require.NoError(t, m.Set("model_name", "x"))
	assert.Empty(t, out.String())
}

func TestSetCoercion(t *testing.T) {
	m, _ := newManager(t)

	require.NoError(t, m.Set("web_search_timeout", "30"))
	require.NoError(t, m.Set("temperature", "0.9"))
	require.NoError(t, m.Set("tavily_api_key", "tvly-abc"))
	require.NoError(t, m.Set("langsmith_project", "null"))

	opts := m.Options()
	assert.Equal(t, 30, opts.WebSearchTimeout)
	assert.InDelta(t, 0.9, opts.Temperature, 1e-6)
	assert.Equal(t, model.OptionalString("tvly-abc"), opts.TavilyAPIKey)
	assert.False(t, opts.TracingProject.IsSet())

	assert.Error(t, m.Set("web_search_timeout", "soon"))
	assert.Error(t, m.Set("nope", "1"))
}

func TestApiKeysMaskedInStatus(t *testing.T) {
	m, out := newManager(t)
	require.NoError(t, m.Set("gemini_api_key", "secret-value"))
	assert.NotContains(t, out.String(), "secret-value")
	assert.Contains(t, out.String(), "Updated gemini_api_key: <unset> → ****")
}

func TestValidate(t *testing.T) {
	m, _ := newManager(t)
	err := m.Validate()
	var cfgErr *errx.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "export GEMINI_API_KEY='your-key'")
	assert.Contains(t, err.Error(), m.ConfigPath())

	require.NoError(t, m.Set("gemini_api_key", "k"))
	assert.NoError(t, m.Validate())

	assert.Error(t, m.Set("gemini_api_key", "none"))
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SAGELY_MODEL", "gemini-2.5-pro")
	t.Setenv("SAGELY_SHOW_LINE_NUMBERS", "0")
	t.Setenv("SAGELY_ENABLE_WEB_SEARCH", "nope")
	t.Setenv("SAGELY_WEB_SEARCH_TIMEOUT", "25")
	t.Setenv("SAGELY_LANGSMITH_PROJECT", "none")
	t.Setenv("TAVILY_API_KEY", "tvly-env")
	t.Setenv("GEMINI_API_KEY", "g-env")

	m, out := newManager(t)
	require.NoError(t, m.LoadFromEnv())

	opts := m.Options()
	assert.Equal(t, "gemini-2.5-pro", opts.ModelName)
	assert.False(t, bool(opts.ShowLineNumbers))
	assert.False(t, bool(opts.EnableWebSearch))
	assert.Equal(t, 25, opts.WebSearchTimeout)
	assert.False(t, opts.TracingProject.IsSet())
	assert.Equal(t, model.OptionalString("tvly-env"), opts.TavilyAPIKey)
	assert.Equal(t, model.OptionalString("g-env"), opts.GeminiAPIKey)
	assert.Equal(t, 2000, opts.MaxTokens)
	assert.Contains(t, out.String(), "Loaded 6 configuration values from environment")
}

func TestLoadFromEnvBadInteger(t *testing.T) {
	t.Setenv("SAGELY_WEB_SEARCH_TIMEOUT", "ten")
	m, _ := newManager(t)
	assert.Error(t, m.LoadFromEnv())
	assert.Equal(t, 10, m.Options().WebSearchTimeout)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	m, _ := newManager(t)

	loaded, err := m.Load()
	require.NoError(t, err)
	assert.False(t, loaded)
	_, err = os.Stat(m.ConfigPath())
	require.NoError(t, err, "missing config is created with defaults")

	require.NoError(t, m.Set("model_name", "gemini-2.5-flash-lite"))
	require.NoError(t, m.Set("enable_module_cache", "false"))
	require.NoError(t, m.Save())

	raw, err := os.ReadFile(m.ConfigPath())
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "gemini-2.5-flash-lite", doc["model_name"])
	assert.Nil(t, doc["tavily_api_key"])

	other := New(m.Home(), WithOutput(&bytes.Buffer{}))
	loaded, err = other.Load()
	require.NoError(t, err)
	assert.True(t, loaded)
	assert.Equal(t, "gemini-2.5-flash-lite", other.Options().ModelName)
	assert.Nil(t, other.ModuleCache())
}

func TestLoadInvalidFile(t *testing.T) {
	m, out := newManager(t)
	require.NoError(t, os.MkdirAll(m.Home(), 0o755))
	require.NoError(t, os.WriteFile(m.ConfigPath(), []byte("{nope"), 0o600))

	loaded, err := m.Load()
	assert.Error(t, err)
	assert.False(t, loaded)
	assert.Contains(t, out.String(), "Invalid configuration file format")
}

func TestReset(t *testing.T) {
	m, _ := newManager(t)
	require.NoError(t, m.Set("gemini_api_key", "k"))
	require.NoError(t, m.Set("model_name", "other"))
	require.NoError(t, m.Set("enable_web_search", "false"))

	require.NoError(t, m.Reset())
	opts := m.Options()
	assert.Equal(t, "gemini-2.5-flash", opts.ModelName)
	assert.True(t, bool(opts.EnableWebSearch))
	assert.Equal(t, model.OptionalString("k"), opts.GeminiAPIKey)
}

func TestClearCaches(t *testing.T) {
	m, out := newManager(t)
	m.ResponseCache().Set("math", "q", "a")
	m.ModuleCache().Set("os", "X")
	m.ModuleCache().Set("io", "Y")

	m.ClearModuleCache("os")
	assert.Equal(t, 1, m.ModuleCache().Len())
	assert.Contains(t, out.String(), "📦 Module cache cleared for 'os'")

	require.NoError(t, m.ClearCaches(CacheResponse))
	assert.Zero(t, m.ResponseCache().Len())
	assert.Equal(t, 1, m.ModuleCache().Len())

	require.NoError(t, m.ClearCaches(CacheAll))
	assert.Zero(t, m.ModuleCache().Len())

	assert.Error(t, m.ClearCaches("disk"))

	require.NoError(t, m.Set("enable_module_cache", "false"))
	out.Reset()
	m.ClearModuleCache("os")
	assert.Contains(t, out.String(), "⚠️ Module cache is disabled")
}

func TestRedisBackend(t *testing.T) {
	db, mock := redismock.NewClientMock()
	m, _ := newManager(t, WithRedis(db))
	require.NoError(t, m.Set("cache_backend", model.BackendRedis))

	mock.ExpectGet("sagely:module:" + cache.HashKey("os")).RedisNil()
	_, ok := m.ModuleCache().Get("os")
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestKeys(t *testing.T) {
	keys := Keys()
	assert.Contains(t, keys, "model_name")
	assert.Contains(t, keys, "enable_langsmith_tracing")
	assert.Contains(t, keys, "gemini_api_key")
	for _, k := range keys {
		_, ok := New(t.TempDir(), WithOutput(&bytes.Buffer{})).Get(k)
		assert.True(t, ok, k)
	}
}
