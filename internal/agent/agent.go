// Package agent answers questions about Go packages. It checks the response
// cache, runs the workflow on a miss and hands the answer to a Display.
package agent

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sagely-dev/sagely/internal/agent/display"
	"github.com/sagely-dev/sagely/internal/agent/extract"
	"github.com/sagely-dev/sagely/internal/agent/graph"
	"github.com/sagely-dev/sagely/internal/agent/introspect"
	"github.com/sagely-dev/sagely/internal/agent/settings"
	"github.com/sagely-dev/sagely/internal/agent/status"
	"github.com/sagely-dev/sagely/internal/agent/usage"
	logx "github.com/sagely-dev/sagely/pkg/logger"
)

// CachedPrefix marks answers served from the response cache.
const CachedPrefix = "📦 Cached Answer:\n"

// MagicUsage is printed when a magic line lacks a module or a question.
const MagicUsage = "Usage: sagely <module> <question>"

// Display shows a finished answer to the user.
type Display interface {
	Show(text string) error
}

type Agent struct {
	settings *settings.Manager
	workflow *graph.Workflow
	analyzer *introspect.Analyzer
	recorder *extract.Recorder
	usage    *usage.Tracker
	display  Display
	out      io.Writer
}

type options struct {
	display      Display
	out          io.Writer
	loader       introspect.Loader
	recorder     *extract.Recorder
	usage        *usage.Tracker
	newChatModel graph.ChatModelFactory
	newSearcher  graph.SearcherFactory
}

type Option func(*options)

// WithDisplay replaces the glamour terminal display.
func WithDisplay(d Display) Option {
	return func(o *options) { o.display = d }
}

// WithOutput sets where usage hints are printed. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.out = w }
}

// WithLoader replaces the go/packages loader.
func WithLoader(l introspect.Loader) Option {
	return func(o *options) { o.loader = l }
}

func WithRecorder(r *extract.Recorder) Option {
	return func(o *options) { o.recorder = r }
}

// WithUsageTracker shares an existing tracker instead of starting a session
// in the settings' usage dir.
func WithUsageTracker(t *usage.Tracker) Option {
	return func(o *options) { o.usage = t }
}

func WithChatModelFactory(f graph.ChatModelFactory) Option {
	return func(o *options) { o.newChatModel = f }
}

func WithSearcherFactory(f graph.SearcherFactory) Option {
	return func(o *options) { o.newSearcher = f }
}

// New validates the credentials and builds the workflow. A missing Gemini
// key comes back as an *errx.ConfigError.
func New(ctx context.Context, mgr *settings.Manager, opts ...Option) (*Agent, error) {
	o := options{out: os.Stdout}
	for _, fn := range opts {
		fn(&o)
	}

	if err := mgr.Validate(); err != nil {
		return nil, err
	}

	st := mgr.Status()
	st.Printf(status.Info, "Initializing agent with model: %s", mgr.Options().ModelName)

	if o.loader == nil {
		o.loader = introspect.PackagesLoader{}
	}
	if o.recorder == nil {
		o.recorder = extract.NewRecorder()
	}
	if o.usage == nil {
		o.usage = usage.New(mgr.UsageDir())
	}
	if o.display == nil {
		o.display = display.NewTerminal(o.out, func() bool { return bool(mgr.Options().ShowLineNumbers) })
	}

	analyzer := introspect.NewAnalyzer(o.loader, mgr, st)
	wf, err := graph.New(ctx, graph.Config{
		Settings:     mgr,
		Analyzer:     analyzer,
		Recorder:     o.recorder,
		Usage:        o.usage,
		NewChatModel: o.newChatModel,
		NewSearcher:  o.newSearcher,
	})
	if err != nil {
		return nil, err
	}

	st.Printf(status.Success, "Agent initialized successfully")
	return &Agent{
		settings: mgr,
		workflow: wf,
		analyzer: analyzer,
		recorder: o.recorder,
		usage:    o.usage,
		display:  o.display,
		out:      o.out,
	}, nil
}

// Ask answers question about moduleName and displays the result. With
// useCache and the response cache enabled, a cached answer is shown instead
// of running the workflow. The cache key ignores contextObj.
func (a *Agent) Ask(ctx context.Context, moduleName, question string, contextObj any, useCache bool) error {
	st := a.settings.Status()
	st.Printf(status.Info, "Processing question about '%s': %s...", moduleName, clip(question, 50))

	rc := a.settings.ResponseCache()
	if useCache && rc != nil {
		if cached, ok := rc.Get(moduleName, question); ok && cached != "" {
			st.Printf(status.Cache, "Using cached answer")
			return a.display.Show(CachedPrefix + cached)
		}
	}

	st.Printf(status.Info, "Starting workflow execution...")
	state, err := a.workflow.Run(ctx, moduleName, question, contextObj)
	if err != nil {
		a.recorder.Record(err)
		logx.Error().Err(err).Str("module", moduleName).Msg("workflow failed")
		return err
	}
	answer := state.FinalAnswer

	if rc := a.settings.ResponseCache(); rc != nil {
		rc.Set(moduleName, question, answer)
		st.Printf(status.Cache, "Answer cached for future use")
	}

	st.Printf(status.Success, "Displaying final answer")
	return a.display.Show(answer)
}

// Inspect returns the module summary the workflow would use for moduleName.
func (a *Agent) Inspect(ctx context.Context, moduleName string) (string, error) {
	return a.analyzer.Analyze(ctx, moduleName)
}

// ClearModuleCache drops the cached summary of moduleName, or every summary
// when moduleName is empty.
func (a *Agent) ClearModuleCache(moduleName string) {
	a.settings.ClearModuleCache(moduleName)
}

// IsModuleCached reports whether moduleName has a module cache entry.
func (a *Agent) IsModuleCached(moduleName string) bool {
	return a.analyzer.IsCached(moduleName)
}

// RecordError keeps err as the recent error the next question sees.
func (a *Agent) RecordError(err error) {
	a.recorder.Record(err)
}

func (a *Agent) Usage() *usage.Tracker {
	return a.usage
}

// Helper binds an agent to one module.
type Helper struct {
	agent  *Agent
	module string
}

// MakeHelper returns a Helper answering questions about name.
func MakeHelper(a *Agent, name string) Helper {
	return Helper{agent: a, module: name}
}

func (h Helper) Module() string {
	return h.module
}

// Ask answers question about the helper's module using the response cache.
func (h Helper) Ask(ctx context.Context, question string, contextObj any) error {
	return h.agent.Ask(ctx, h.module, question, contextObj, true)
}

// ParseMagicLine splits "<module> <question...>" at the first whitespace.
// ok is false when either part is missing.
func ParseMagicLine(line string) (module, question string, ok bool) {
	trimmed := strings.TrimSpace(line)
	idx := strings.IndexAny(trimmed, " \t")
	if idx < 0 {
		return "", "", false
	}
	module = trimmed[:idx]
	question = strings.TrimSpace(trimmed[idx+1:])
	if question == "" {
		return "", "", false
	}
	return module, question, true
}

// Magic answers a one-line "<module> <question...>" command, printing the
// usage hint when the line is incomplete.
func (a *Agent) Magic(ctx context.Context, line string) error {
	module, question, ok := ParseMagicLine(line)
	if !ok {
		_, err := fmt.Fprintln(a.out, MagicUsage)
		return err
	}
	return a.Ask(ctx, module, question, nil, true)
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
