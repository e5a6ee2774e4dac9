// Package graph drives the question answering workflow: context analysis,
// initial answer, evaluation, optional web research and the final answer.
package graph

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudwego/eino/callbacks"

	"github.com/sagely-dev/sagely/internal/agent/extract"
	"github.com/sagely-dev/sagely/internal/agent/graph/nodes"
	"github.com/sagely-dev/sagely/internal/agent/graph/observers"
	"github.com/sagely-dev/sagely/internal/agent/graph/tools"
	"github.com/sagely-dev/sagely/internal/agent/introspect"
	"github.com/sagely-dev/sagely/internal/agent/model"
	"github.com/sagely-dev/sagely/internal/agent/status"
	"github.com/sagely-dev/sagely/internal/agent/usage"
	errx "github.com/sagely-dev/sagely/internal/core/error"
	logx "github.com/sagely-dev/sagely/pkg/logger"
)

const defaultTracingProject = "sagely"

// maxSteps bounds a run. The longest path visits five stages.
const maxSteps = 8

// Settings is the part of the settings manager the workflow reads.
type Settings interface {
	Options() model.Options
	Status() *status.Printer
}

// ChatModelFactory builds the chat model for the current options.
type ChatModelFactory func(ctx context.Context, opts model.Options) (*nodes.ChatModel, error)

// SearcherFactory builds the web searcher for the current options. cm is the
// current chat model; the google_search provider shares its client.
type SearcherFactory func(opts model.Options, cm *nodes.ChatModel, sink tools.UsageSink) (tools.Searcher, error)

// Config holds everything needed to build the workflow.
type Config struct {
	Settings Settings
	Analyzer *introspect.Analyzer
	Recorder *extract.Recorder
	Usage    *usage.Tracker

	// NewChatModel defaults to the Gemini chat model.
	NewChatModel ChatModelFactory
	// NewSearcher defaults to tools.NewSearcher.
	NewSearcher SearcherFactory
}

// Workflow runs the stages in order. The chat model and the searcher are
// rebuilt when the settings they depend on change.
type Workflow struct {
	settings     Settings
	usage        *usage.Tracker
	newChatModel ChatModelFactory
	newSearcher  SearcherFactory

	mu          sync.RWMutex
	chatModel   *nodes.ChatModel
	searcher    tools.Searcher
	modelKey    string
	provider    string
	searcherKey string

	stages map[nodes.Stage]nodes.StageFunc
}

// New builds the workflow and its chat model and searcher.
func New(ctx context.Context, cfg Config) (*Workflow, error) {
	if cfg.Settings == nil {
		return nil, fmt.Errorf("workflow settings are required")
	}
	if cfg.Analyzer == nil {
		return nil, fmt.Errorf("workflow analyzer is required")
	}

	w := &Workflow{
		settings:     cfg.Settings,
		usage:        cfg.Usage,
		newChatModel: cfg.NewChatModel,
		newSearcher:  cfg.NewSearcher,
	}
	if w.newChatModel == nil {
		w.newChatModel = defaultChatModel
	}
	if w.newSearcher == nil {
		w.newSearcher = defaultSearcher
	}

	st := cfg.Settings.Status()
	st.Printf(status.Info, "Building workflow...")

	env := &nodes.Env{
		Status:        st,
		Options:       cfg.Settings.Options,
		Recorder:      cfg.Recorder,
		Usage:         cfg.Usage,
		AnalyzeModule: introspect.NewAnalyzeModuleTool(cfg.Analyzer),
		WebSearch:     tools.NewWebSearchTool(w.Searcher),
		ChatModel:     w.ChatModel,
	}
	w.stages = map[nodes.Stage]nodes.StageFunc{
		nodes.StageAnalyzeContext:        nodes.NewAnalyzeContextNode(env),
		nodes.StageGenerateResponse:      nodes.NewGenerateResponseNode(env),
		nodes.StageOrchestrator:          nodes.NewOrchestratorNode(env),
		nodes.StageWebSearchTool:         nodes.NewWebSearchNode(env),
		nodes.StageGenerateFinalResponse: nodes.NewGenerateFinalResponseNode(env),
	}

	if err := w.RebuildIfNeeded(ctx); err != nil {
		return nil, err
	}
	st.Printf(status.Success, "Workflow built successfully")
	return w, nil
}

// ChatModel returns the current chat model.
func (w *Workflow) ChatModel() *nodes.ChatModel {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.chatModel
}

// Searcher returns the current web searcher.
func (w *Workflow) Searcher() tools.Searcher {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.searcher
}

// Provider returns the web search provider the searcher was built for.
func (w *Workflow) Provider() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.provider
}

// RebuildIfNeeded rebuilds the chat model when the model settings changed
// and the searcher when the search settings or the chat model changed.
func (w *Workflow) RebuildIfNeeded(ctx context.Context) error {
	opts := w.settings.Options()
	st := w.settings.Status()

	w.mu.Lock()
	defer w.mu.Unlock()

	modelChanged := false
	if key := modelKey(opts); w.chatModel == nil || key != w.modelKey {
		cm, err := w.newChatModel(ctx, opts)
		if err != nil {
			return fmt.Errorf("build chat model: %w", err)
		}
		w.chatModel = cm
		w.modelKey = key
		modelChanged = true
		logx.Debug().Str("model", opts.ModelName).Msg("chat model built")
	}

	key := searcherKey(opts)
	if w.searcher != nil && !modelChanged && key == w.searcherKey {
		return nil
	}

	if w.searcher != nil && w.provider != opts.WebSearchProvider {
		st.Printf(status.Info, "Web search provider changed from %s to %s, rebuilding workflow...", w.provider, opts.WebSearchProvider)
	}
	s, err := w.newSearcher(opts, w.chatModel, w.usageSink())
	if err != nil {
		return fmt.Errorf("build web searcher: %w", err)
	}
	rebuilt := w.searcher != nil && w.provider != opts.WebSearchProvider
	w.searcher = s
	w.provider = opts.WebSearchProvider
	w.searcherKey = key
	if rebuilt {
		st.Printf(status.Success, "Workflow rebuilt successfully")
	}
	return nil
}

// Run executes one question and returns the final state. A stage failure
// comes back as an *errx.WorkflowError naming the stage, together with the
// state as it was before that stage.
func (w *Workflow) Run(ctx context.Context, moduleName, question string, contextObj any) (model.WorkflowState, error) {
	state := model.NewWorkflowState(moduleName, question, contextObj)
	if err := w.RebuildIfNeeded(ctx); err != nil {
		return state, err
	}

	opts := w.settings.Options()
	if opts.EnableTracing {
		project := opts.TracingProject.String()
		if project == "" {
			project = defaultTracingProject
		}
		ctx = callbacks.InitCallbacks(ctx, &callbacks.RunInfo{Name: "sagely", Type: "Workflow"}, observers.NewAllCallbacks(project))
	}

	stage := nodes.StageAnalyzeContext
	for steps := 0; stage != nodes.StageEnd; steps++ {
		if steps >= maxSteps {
			return state, errx.NewWorkflowError(string(stage), fmt.Errorf("step limit %d exceeded", maxSteps))
		}
		fn, ok := w.stages[stage]
		if !ok {
			return state, errx.NewWorkflowError(string(stage), fmt.Errorf("unknown stage"))
		}

		logx.Debug().Str("node", string(stage)).Str("module", moduleName).Msg("stage start")
		next, err := fn(ctx, state)
		if err != nil {
			logx.Error().Err(err).Str("node", string(stage)).Msg("stage failed")
			return state, errx.NewWorkflowError(string(stage), err)
		}
		state = next

		stage = nodes.Next(stage, state.NeedsWebSearch, bool(w.settings.Options().EnableWebSearch))
	}
	return state, nil
}

func (w *Workflow) usageSink() tools.UsageSink {
	if w.usage == nil {
		return nil
	}
	return w.usage
}

func modelKey(o model.Options) string {
	return fmt.Sprintf("%s|%g|%d|%s|%s", o.ModelName, o.Temperature, o.MaxTokens, o.GeminiAPIKey, o.GeminiBaseURL)
}

func searcherKey(o model.Options) string {
	return fmt.Sprintf("%s|%t|%s|%d", o.WebSearchProvider, bool(o.EnableWebSearch), o.TavilyAPIKey, o.WebSearchTimeout)
}

func defaultChatModel(ctx context.Context, opts model.Options) (*nodes.ChatModel, error) {
	return nodes.NewChatModel(ctx, nodes.ChatModelConfigFrom(opts))
}

func defaultSearcher(opts model.Options, cm *nodes.ChatModel, sink tools.UsageSink) (tools.Searcher, error) {
	cfg := tools.SearcherConfig{Options: opts, Usage: sink}
	if cm != nil {
		cfg.GenAI = cm.Client
	}
	return tools.NewSearcher(cfg)
}
