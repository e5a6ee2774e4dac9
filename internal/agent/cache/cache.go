package cache

import (
	"encoding/json"
	"errors"

	logx "github.com/sagely-dev/sagely/pkg/logger"
)

type responseEntry struct {
	ModuleName string `json:"module_name"`
	Question   string `json:"question"`
	Response   string `json:"response"`
}

type moduleEntry struct {
	ModuleName string `json:"module_name"`
	ModuleInfo string `json:"module_info"`
}

// ResponseCache maps (module, question) to a final answer. Any read failure
// is a miss and write failures are swallowed.
type ResponseCache struct {
	store Store
}

func NewResponseCache(store Store) *ResponseCache {
	return &ResponseCache{store: store}
}

func responseKey(moduleName, question string) string {
	return HashKey(moduleName + ":" + question)
}

func (c *ResponseCache) Get(moduleName, question string) (string, bool) {
	var entry responseEntry
	if !readEntry(c.store, responseKey(moduleName, question), &entry) {
		return "", false
	}
	return entry.Response, true
}

func (c *ResponseCache) Set(moduleName, question, response string) {
	writeEntry(c.store, responseKey(moduleName, question), responseEntry{
		ModuleName: moduleName,
		Question:   question,
		Response:   response,
	})
}

func (c *ResponseCache) Clear() {
	if err := c.store.Clear(); err != nil {
		logx.Debug().Err(err).Msg("response cache clear failed")
	}
}

func (c *ResponseCache) Len() int {
	return c.store.Len()
}

// ModuleCache maps a module name to its rendered summary, or to the error
// text produced when analysis failed.
type ModuleCache struct {
	store Store
}

func NewModuleCache(store Store) *ModuleCache {
	return &ModuleCache{store: store}
}

func (c *ModuleCache) Get(moduleName string) (string, bool) {
	var entry moduleEntry
	if !readEntry(c.store, HashKey(moduleName), &entry) {
		return "", false
	}
	return entry.ModuleInfo, true
}

func (c *ModuleCache) Set(moduleName, moduleInfo string) {
	writeEntry(c.store, HashKey(moduleName), moduleEntry{
		ModuleName: moduleName,
		ModuleInfo: moduleInfo,
	})
}

func (c *ModuleCache) ClearModule(moduleName string) {
	if err := c.store.Delete(HashKey(moduleName)); err != nil {
		logx.Debug().Err(err).Str("module", moduleName).Msg("module cache delete failed")
	}
}

func (c *ModuleCache) Clear() {
	if err := c.store.Clear(); err != nil {
		logx.Debug().Err(err).Msg("module cache clear failed")
	}
}

func (c *ModuleCache) Len() int {
	return c.store.Len()
}

func readEntry(store Store, key string, v any) bool {
	b, err := store.Read(key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			logx.Debug().Err(err).Str("key", key).Msg("cache read failed, treating as miss")
		}
		return false
	}
	if err := json.Unmarshal(b, v); err != nil {
		logx.Debug().Err(err).Str("key", key).Msg("malformed cache entry, treating as miss")
		return false
	}
	return true
}

func writeEntry(store Store, key string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		logx.Debug().Err(err).Str("key", key).Msg("cache entry not encodable")
		return
	}
	if err := store.Write(key, b); err != nil {
		logx.Debug().Err(err).Str("key", key).Msg("cache write failed")
	}
}
