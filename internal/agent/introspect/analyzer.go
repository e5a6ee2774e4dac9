package introspect

import (
	"context"
	"fmt"

	"github.com/sagely-dev/sagely/internal/agent/cache"
	"github.com/sagely-dev/sagely/internal/agent/status"
	errx "github.com/sagely-dev/sagely/internal/core/error"
	logx "github.com/sagely-dev/sagely/pkg/logger"
)

// CacheSource hands out the current module cache, or nil when caching is off.
type CacheSource interface {
	ModuleCache() *cache.ModuleCache
}

type Analyzer struct {
	loader Loader
	caches CacheSource
	status *status.Printer
}

func NewAnalyzer(loader Loader, caches CacheSource, printer *status.Printer) *Analyzer {
	return &Analyzer{loader: loader, caches: caches, status: printer}
}

// Analyze returns the summary text for name. A failed load yields the error
// text "Error analyzing module {name}: {err}", which is cached like a real
// summary; the returned error is then an *errx.Degraded carrying that text.
// Clearing the module from the cache is the only way to retry.
func (a *Analyzer) Analyze(ctx context.Context, name string) (string, error) {
	a.status.Printf(status.Info, "Analyzing module '%s'...", name)

	mc := a.moduleCache()
	if mc != nil {
		if cached, ok := mc.Get(name); ok && cached != "" {
			a.status.Printf(status.Cache, "Using cached module info for '%s'", name)
			return cached, nil
		}
	}

	summary, err := a.loader.Load(ctx, name)
	if err != nil {
		text := fmt.Sprintf("Error analyzing module %s: %v", name, err)
		if mc != nil {
			mc.Set(name, text)
		}
		logx.Warn().Err(err).Str("module", name).Msg("module analysis failed")
		a.status.Printf(status.Error, "Failed to analyze module '%s': %v", name, err)
		return text, errx.Degrade(text, err)
	}

	text := summary.Render()
	if mc != nil {
		mc.Set(name, text)
	}
	a.status.Printf(status.Success, "Successfully analyzed module '%s'", name)
	return text, nil
}

// IsCached reports whether name has a module cache entry.
func (a *Analyzer) IsCached(name string) bool {
	mc := a.moduleCache()
	if mc == nil {
		return false
	}
	_, ok := mc.Get(name)
	return ok
}

func (a *Analyzer) moduleCache() *cache.ModuleCache {
	if a.caches == nil {
		return nil
	}
	return a.caches.ModuleCache()
}
