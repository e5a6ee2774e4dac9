package graph

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagely-dev/sagely/internal/agent/extract"
	"github.com/sagely-dev/sagely/internal/agent/graph/nodes"
	"github.com/sagely-dev/sagely/internal/agent/graph/tools"
	"github.com/sagely-dev/sagely/internal/agent/introspect"
	"github.com/sagely-dev/sagely/internal/agent/model"
	"github.com/sagely-dev/sagely/internal/agent/status"
	"github.com/sagely-dev/sagely/internal/agent/usage"
	errx "github.com/sagely-dev/sagely/internal/core/error"
)

// scriptedModel answers by recognizing which prompt it was sent.
type scriptedModel struct {
	mu         sync.Mutex
	initial    string
	evaluation string
	final      string
	failOn     string
	calls      []string
}

func promptKind(msgs []*schema.Message) string {
	user := msgs[len(msgs)-1].Content
	switch {
	case strings.HasPrefix(user, "You are evaluating"):
		return "evaluation"
	case strings.HasPrefix(user, "You have an initial answer"):
		return "final_with_web"
	case strings.HasPrefix(user, "The initial answer is sufficient"):
		return "final_without_web"
	}
	return "initial"
}

func (m *scriptedModel) Generate(_ context.Context, msgs []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	kind := promptKind(msgs)
	m.mu.Lock()
	m.calls = append(m.calls, kind)
	m.mu.Unlock()

	if kind == m.failOn {
		return nil, errors.New("model unavailable")
	}
	out := schema.AssistantMessage("", nil)
	switch kind {
	case "evaluation":
		out.Content = m.evaluation
	case "initial":
		out.Content = m.initial
	default:
		out.Content = m.final
	}
	out.ResponseMeta = &schema.ResponseMeta{Usage: &schema.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}}
	return out, nil
}

func (m *scriptedModel) Stream(ctx context.Context, msgs []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	out, err := m.Generate(ctx, msgs, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{out}), nil
}

func (m *scriptedModel) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

type fakeSearcher struct {
	mu      sync.Mutex
	queries []string
	result  string
	err     error
}

func (s *fakeSearcher) Search(_ context.Context, q string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, q)
	return s.result, s.err
}

type stubLoader struct{}

func (stubLoader) Load(_ context.Context, name string) (*model.ModuleSummary, error) {
	return &model.ModuleSummary{ModuleName: name, Documentation: "Package " + name + " does math."}, nil
}

type testSettings struct {
	mu   sync.Mutex
	opts model.Options
}

func (s *testSettings) Options() model.Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opts
}

func (s *testSettings) Status() *status.Printer { return status.Discard() }

func (s *testSettings) set(fn func(*model.Options)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.opts)
}

type harness struct {
	wf       *Workflow
	llm      *scriptedModel
	searcher *fakeSearcher
	settings *testSettings
	tracker  *usage.Tracker
	builds   map[string]int
}

func newHarness(t *testing.T, llm *scriptedModel, searcher *fakeSearcher) *harness {
	t.Helper()
	opts := model.DefaultOptions()
	opts.GeminiAPIKey = "test-key"
	h := &harness{
		llm:      llm,
		searcher: searcher,
		settings: &testSettings{opts: opts},
		tracker:  usage.New(t.TempDir()),
		builds:   map[string]int{},
	}

	wf, err := New(context.Background(), Config{
		Settings: h.settings,
		Analyzer: introspect.NewAnalyzer(stubLoader{}, nil, status.Discard()),
		Recorder: extract.NewRecorder(),
		Usage:    h.tracker,
		NewChatModel: func(_ context.Context, o model.Options) (*nodes.ChatModel, error) {
			h.builds["model"]++
			return &nodes.ChatModel{Model: llm, Name: o.ModelName}, nil
		},
		NewSearcher: func(o model.Options, _ *nodes.ChatModel, _ tools.UsageSink) (tools.Searcher, error) {
			h.builds["searcher:"+o.WebSearchProvider]++
			return searcher, nil
		},
	})
	require.NoError(t, err)
	h.wf = wf
	return h
}

func requestTypes(t *usage.Tracker) []string {
	var out []string
	for _, u := range t.Recent(100) {
		out = append(out, u.RequestType)
	}
	return out
}

func TestRunSufficientSkipsWebSearch(t *testing.T) {
	llm := &scriptedModel{initial: "sqrt returns the square root", evaluation: "SUFFICIENT", final: "sqrt is a mathematical function"}
	searcher := &fakeSearcher{result: "unused"}
	h := newHarness(t, llm, searcher)

	state, err := h.wf.Run(context.Background(), "math", "What is sqrt?", nil)
	require.NoError(t, err)

	assert.Equal(t, "sqrt is a mathematical function", state.FinalAnswer)
	assert.Equal(t, "sqrt returns the square root", state.InitialAnswer)
	assert.False(t, state.NeedsWebSearch)
	assert.Empty(t, state.WebResults)
	assert.Equal(t, "None", state.ContextSummary)
	assert.Equal(t, extract.NoRecentErrors, state.Traceback)
	assert.Contains(t, state.ModuleInfo, "Module: math")

	assert.Equal(t, []string{"initial", "evaluation", "final_without_web"}, llm.Calls())
	assert.Empty(t, searcher.queries)
	assert.Equal(t, []string{model.RequestInitialResponse, model.RequestEvaluation, model.RequestFinalResponse}, requestTypes(h.tracker))
	assert.Equal(t, 45, h.tracker.SessionTotal().TotalTokens)
}

func TestRunNeedsWebSearch(t *testing.T) {
	llm := &scriptedModel{initial: "partial", evaluation: "needs_web_search: examples missing", final: "merged"}
	searcher := &fakeSearcher{result: "1. Title\nbody [^1]"}
	h := newHarness(t, llm, searcher)

	state, err := h.wf.Run(context.Background(), "net/http", "How do I set a timeout?", nil)
	require.NoError(t, err)

	assert.True(t, state.NeedsWebSearch)
	assert.Equal(t, nodes.SearchQueries("net/http", "How do I set a timeout?"), searcher.queries)
	assert.Contains(t, state.WebResults, "Search: net/http How do I set a timeout?\n1. Title")
	assert.Equal(t, []string{"initial", "evaluation", "final_with_web"}, llm.Calls())
	assert.Equal(t, "merged", state.FinalAnswer)
}

func TestRunWebSearchDisabledRoutesToFinal(t *testing.T) {
	llm := &scriptedModel{initial: "partial", evaluation: "NEEDS_WEB_SEARCH", final: "done"}
	searcher := &fakeSearcher{result: "x"}
	h := newHarness(t, llm, searcher)
	h.settings.set(func(o *model.Options) { o.EnableWebSearch = false })

	state, err := h.wf.Run(context.Background(), "math", "q", nil)
	require.NoError(t, err)

	assert.True(t, state.NeedsWebSearch)
	assert.Empty(t, searcher.queries)
	assert.Equal(t, []string{"initial", "evaluation", "final_without_web"}, llm.Calls())
}

func TestRunAllSearchesEmptyUsesSentinel(t *testing.T) {
	llm := &scriptedModel{initial: "a", evaluation: "NEEDS_WEB_SEARCH", final: "b"}
	searcher := &fakeSearcher{result: "No specific information found for this query"}
	h := newHarness(t, llm, searcher)

	state, err := h.wf.Run(context.Background(), "math", "q", nil)
	require.NoError(t, err)

	assert.Equal(t, nodes.NoWebResults, state.WebResults)
	assert.Equal(t, []string{"initial", "evaluation", "final_without_web"}, llm.Calls())
}

func TestRunSearchFailuresAreKeptAsText(t *testing.T) {
	llm := &scriptedModel{initial: "a", evaluation: "NEEDS_WEB_SEARCH", final: "b"}
	searcher := &fakeSearcher{err: errors.New("rate limited")}
	h := newHarness(t, llm, searcher)

	state, err := h.wf.Run(context.Background(), "math", "q", nil)
	require.NoError(t, err)

	assert.Contains(t, state.WebResults, "Search failed for 'math q': rate limited")
	assert.Equal(t, 3, strings.Count(state.WebResults, "Search failed"))
	assert.Equal(t, []string{"initial", "evaluation", "final_with_web"}, llm.Calls())
}

func TestRunStageFailureIsWorkflowError(t *testing.T) {
	llm := &scriptedModel{initial: "a", evaluation: "SUFFICIENT", failOn: "evaluation"}
	h := newHarness(t, llm, &fakeSearcher{})

	state, err := h.wf.Run(context.Background(), "math", "q", nil)
	require.Error(t, err)

	stage, ok := errx.StageOf(err)
	require.True(t, ok)
	assert.Equal(t, string(nodes.StageOrchestrator), stage)
	assert.Contains(t, err.Error(), "model unavailable")
	assert.Equal(t, "a", state.InitialAnswer)
	assert.Empty(t, state.FinalAnswer)
}

func TestRunSummarizesContextObject(t *testing.T) {
	llm := &scriptedModel{initial: "a", evaluation: "SUFFICIENT", final: "b"}
	h := newHarness(t, llm, &fakeSearcher{})

	state, err := h.wf.Run(context.Background(), "math", "q", []int{1, 2, 3})
	require.NoError(t, err)
	assert.Contains(t, state.ContextSummary, "with 3 items")
}

func TestRebuildIfNeeded(t *testing.T) {
	llm := &scriptedModel{initial: "a", evaluation: "SUFFICIENT", final: "b"}
	h := newHarness(t, llm, &fakeSearcher{})
	ctx := context.Background()

	assert.Equal(t, 1, h.builds["model"])
	assert.Equal(t, 1, h.builds["searcher:"+model.ProviderGoogleSearch])

	require.NoError(t, h.wf.RebuildIfNeeded(ctx))
	assert.Equal(t, 1, h.builds["model"])
	assert.Equal(t, 1, h.builds["searcher:"+model.ProviderGoogleSearch])

	h.settings.set(func(o *model.Options) { o.WebSearchProvider = model.ProviderTavily })
	require.NoError(t, h.wf.RebuildIfNeeded(ctx))
	assert.Equal(t, 1, h.builds["model"])
	assert.Equal(t, 1, h.builds["searcher:"+model.ProviderTavily])
	assert.Equal(t, model.ProviderTavily, h.wf.Provider())

	h.settings.set(func(o *model.Options) { o.ModelName = "gemini-2.5-pro" })
	require.NoError(t, h.wf.RebuildIfNeeded(ctx))
	assert.Equal(t, 2, h.builds["model"])
	assert.Equal(t, 2, h.builds["searcher:"+model.ProviderTavily])
	assert.Equal(t, "gemini-2.5-pro", h.wf.ChatModel().Name)
}

func TestNewRequiresSettingsAndAnalyzer(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.Error(t, err)

	_, err = New(context.Background(), Config{Settings: &testSettings{}})
	assert.Error(t, err)
}

func TestNewPropagatesChatModelError(t *testing.T) {
	_, err := New(context.Background(), Config{
		Settings: &testSettings{opts: model.DefaultOptions()},
		Analyzer: introspect.NewAnalyzer(stubLoader{}, nil, status.Discard()),
		NewChatModel: func(context.Context, model.Options) (*nodes.ChatModel, error) {
			return nil, errors.New("no key")
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no key")
}

func TestRunWithTracingEnabled(t *testing.T) {
	llm := &scriptedModel{initial: "a", evaluation: "SUFFICIENT", final: "b"}
	h := newHarness(t, llm, &fakeSearcher{})
	h.settings.set(func(o *model.Options) {
		o.EnableTracing = true
		o.TracingProject = "tests"
	})

	state, err := h.wf.Run(context.Background(), "math", "q", nil)
	require.NoError(t, err)
	assert.Equal(t, "b", state.FinalAnswer)
}
