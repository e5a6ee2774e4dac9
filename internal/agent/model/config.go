package model

import (
	"encoding/json"
	"strings"
)

// Known web search providers.
const (
	ProviderGoogleSearch = "google_search"
	ProviderTavily       = "tavily"
	ProviderDuckDuckGo   = "duckduckgo"
)

// Cache storage backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

// ================ Config ================
// Options is the flat configuration surface. Every field is readable and
// writable by its json name, loadable from the env var in its envconfig tag
// and persisted to config.json.
type Options struct {
	ModelName   string  `json:"model_name" envconfig:"SAGELY_MODEL"`
	MaxTokens   int     `json:"max_tokens" envconfig:"SAGELY_MAX_TOKENS"`
	Temperature float32 `json:"temperature" envconfig:"SAGELY_TEMPERATURE"`

	ShowStatusUpdates Flag `json:"show_status_updates" envconfig:"SAGELY_SHOW_STATUS"`
	ShowLineNumbers   Flag `json:"show_line_numbers" envconfig:"SAGELY_SHOW_LINE_NUMBERS"`

	EnableResponseCache Flag   `json:"enable_response_cache" envconfig:"SAGELY_ENABLE_RESPONSE_CACHE"`
	EnableModuleCache   Flag   `json:"enable_module_cache" envconfig:"SAGELY_ENABLE_MODULE_CACHE"`
	CacheBackend        string `json:"cache_backend" envconfig:"SAGELY_CACHE_BACKEND"`

	EnableWebSearch   Flag           `json:"enable_web_search" envconfig:"SAGELY_ENABLE_WEB_SEARCH"`
	WebSearchProvider string         `json:"web_search_provider" envconfig:"SAGELY_WEB_SEARCH_PROVIDER"`
	WebSearchTimeout  int            `json:"web_search_timeout" envconfig:"SAGELY_WEB_SEARCH_TIMEOUT"`
	TavilyAPIKey      OptionalString `json:"tavily_api_key" envconfig:"TAVILY_API_KEY"`

	GeminiAPIKey  OptionalString `json:"gemini_api_key" envconfig:"GEMINI_API_KEY"`
	GeminiBaseURL OptionalString `json:"gemini_base_url" envconfig:"SAGELY_GEMINI_BASE_URL"`

	// Tracing attaches the eino callback observers to every workflow run.
	EnableTracing  Flag           `json:"enable_langsmith_tracing" envconfig:"SAGELY_ENABLE_LANGSMITH"`
	TracingProject OptionalString `json:"langsmith_project" envconfig:"SAGELY_LANGSMITH_PROJECT"`
}

// DefaultOptions returns the built-in defaults.
func DefaultOptions() Options {
	return Options{
		ModelName:           "gemini-2.5-flash",
		MaxTokens:           2000,
		Temperature:         0.4,
		ShowStatusUpdates:   true,
		ShowLineNumbers:     true,
		EnableResponseCache: true,
		EnableModuleCache:   true,
		CacheBackend:        BackendFile,
		EnableWebSearch:     true,
		WebSearchProvider:   ProviderGoogleSearch,
		WebSearchTimeout:    10,
	}
}

// Flag is a boolean that decodes "true", "1", "yes" and "on" as true and
// anything else as false.
type Flag bool

// ParseFlag applies the Flag coercion rule to v.
func ParseFlag(v string) bool {
	switch strings.ToLower(v) {
	case "true", "1", "yes", "on":
		return true
	}
	return false
}

// Decode implements envconfig.Decoder.
func (f *Flag) Decode(value string) error {
	*f = Flag(ParseFlag(value))
	return nil
}

// OptionalString is a string whose empty value means "absent". The literals
// "none", "null" and "" decode to absent; absent marshals as JSON null.
type OptionalString string

// ParseOptional applies the OptionalString coercion rule to v.
func ParseOptional(v string) OptionalString {
	switch strings.ToLower(v) {
	case "none", "null", "":
		return ""
	}
	return OptionalString(v)
}

// Decode implements envconfig.Decoder.
func (s *OptionalString) Decode(value string) error {
	*s = ParseOptional(value)
	return nil
}

// IsSet reports whether a value is present.
func (s OptionalString) IsSet() bool {
	return s != ""
}

func (s OptionalString) String() string {
	return string(s)
}

func (s OptionalString) MarshalJSON() ([]byte, error) {
	if s == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(s))
}

func (s *OptionalString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*s = ""
		return nil
	}
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*s = OptionalString(v)
	return nil
}
