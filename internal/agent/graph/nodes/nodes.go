package nodes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/tool"

	"github.com/sagely-dev/sagely/internal/agent/extract"
	"github.com/sagely-dev/sagely/internal/agent/graph/parsers"
	"github.com/sagely-dev/sagely/internal/agent/graph/prompts"
	"github.com/sagely-dev/sagely/internal/agent/graph/tools"
	"github.com/sagely-dev/sagely/internal/agent/introspect"
	"github.com/sagely-dev/sagely/internal/agent/model"
	"github.com/sagely-dev/sagely/internal/agent/status"
	"github.com/sagely-dev/sagely/internal/agent/usage"
	logx "github.com/sagely-dev/sagely/pkg/logger"
)

// NoWebResults is stored as the web results when no query produced anything
// usable.
const NoWebResults = "No additional web information found."

const noSpecificInfo = "No specific information found"

// Env is what the stages read from. Options and ChatModel are consulted on
// every call so a rebuilt model or changed setting applies to the next stage.
type Env struct {
	Status        *status.Printer
	Options       func() model.Options
	Recorder      *extract.Recorder
	Usage         *usage.Tracker
	AnalyzeModule tool.InvokableTool
	WebSearch     tool.InvokableTool
	ChatModel     func() *ChatModel
}

// StageFunc runs one stage. It receives the state by value and returns a
// copy with only the fields the stage owns changed.
type StageFunc func(ctx context.Context, state model.WorkflowState) (model.WorkflowState, error)

// NewAnalyzeContextNode gathers the recent error trace, the context object
// summary and the module summary. It never fails: analysis problems end up
// as text in ModuleInfo.
func NewAnalyzeContextNode(env *Env) StageFunc {
	return func(ctx context.Context, s model.WorkflowState) (out model.WorkflowState, err error) {
		env.Status.Printf(status.Info, "Starting context analysis for module: %s", s.ModuleName)

		out = s
		out.InitialAnswer = ""
		out.NeedsWebSearch = false
		out.WebResults = ""
		out.FinalAnswer = ""

		out.Traceback = env.Recorder.RecentError()
		out.ContextSummary = "None"
		if s.ContextObject != nil {
			out.ContextSummary = extract.Summarize(s.ContextObject)
		}

		args, _ := json.Marshal(introspect.AnalyzeModuleInput{ModuleName: s.ModuleName})
		raw, terr := invokeTool(ctx, env.AnalyzeModule, introspect.AnalyzeModuleToolName, string(args))
		if terr != nil {
			out.ModuleInfo = fmt.Sprintf("Error analyzing module %s: %v", s.ModuleName, terr)
			logx.Warn().Err(terr).Str("module", s.ModuleName).Msg("analyze_module tool failed")
		} else {
			var res introspect.AnalyzeModuleOutput
			if jerr := json.Unmarshal([]byte(raw), &res); jerr != nil {
				out.ModuleInfo = fmt.Sprintf("Error analyzing module %s: %v", s.ModuleName, jerr)
			} else {
				out.ModuleInfo = res.ModuleInfo
			}
		}

		env.Status.Printf(status.Success, "Context analysis completed")
		return out, nil
	}
}

// NewGenerateResponseNode asks the model for the initial answer.
func NewGenerateResponseNode(env *Env) StageFunc {
	return func(ctx context.Context, s model.WorkflowState) (model.WorkflowState, error) {
		env.Status.Printf(status.Thinking, "Generating initial response...")

		content, err := env.generate(ctx, StageGenerateResponse, prompts.InitialResponse, s, model.RequestInitialResponse)
		if err != nil {
			return s, err
		}

		out := s
		out.InitialAnswer = content
		env.Status.Printf(status.Success, "Initial response generated")
		return out, nil
	}
}

// NewOrchestratorNode asks the model whether the initial answer needs web
// research and records the verdict in NeedsWebSearch.
func NewOrchestratorNode(env *Env) StageFunc {
	return func(ctx context.Context, s model.WorkflowState) (model.WorkflowState, error) {
		env.Status.Printf(status.Thinking, "Evaluating if web search is needed...")

		content, err := env.generate(ctx, StageOrchestrator, prompts.Evaluation, s, model.RequestEvaluation)
		if err != nil {
			return s, err
		}

		eval := parsers.ParseEvaluation(content)
		logx.Debug().Bool("needs_web_search", eval.NeedsWebSearch).Str("reason", eval.Reason).Msg("Evaluation parsed")

		out := s
		out.NeedsWebSearch = eval.NeedsWebSearch
		if eval.NeedsWebSearch {
			env.Status.Printf(status.Search, "Web search needed for comprehensive answer")
		} else {
			env.Status.Printf(status.Success, "Initial answer is sufficient")
		}
		return out, nil
	}
}

// SearchQueries returns the three queries the web search stage runs, in
// order.
func SearchQueries(moduleName, question string) []string {
	return []string{
		fmt.Sprintf("%s %s", moduleName, question),
		fmt.Sprintf("%s documentation %s", moduleName, question),
		fmt.Sprintf("%s best practices %s", moduleName, question),
	}
}

// NewWebSearchNode runs the search queries sequentially through the
// web_search tool and joins the usable results. Individual query failures
// are kept as text; the stage itself does not fail.
func NewWebSearchNode(env *Env) StageFunc {
	return func(ctx context.Context, s model.WorkflowState) (model.WorkflowState, error) {
		env.Status.Printf(status.Search, "Starting web search for additional information...")

		timeout := time.Duration(max(env.Options().WebSearchTimeout, 1)) * time.Second
		queries := SearchQueries(s.ModuleName, s.Question)

		var results []string
		for i, q := range queries {
			env.Status.Printf(status.Search, "Web search %d/%d: %s...", i+1, len(queries), prefix(q, 50))

			result, err := env.searchOnce(ctx, q, timeout)
			if err != nil {
				results = append(results, fmt.Sprintf("Search failed for '%s': %v\n", q, err))
				continue
			}
			if result != "" && !strings.Contains(result, noSpecificInfo) {
				results = append(results, fmt.Sprintf("Search: %s\n%s\n", q, result))
			}
		}

		out := s
		if len(results) == 0 {
			out.WebResults = NoWebResults
			env.Status.Printf(status.Warning, "No additional web information found")
		} else {
			out.WebResults = strings.Join(results, "\n")
			env.Status.Printf(status.Success, "Web search completed with results")
		}
		return out, nil
	}
}

// NewGenerateFinalResponseNode writes the final answer, merging in web
// results when there are any.
func NewGenerateFinalResponseNode(env *Env) StageFunc {
	return func(ctx context.Context, s model.WorkflowState) (model.WorkflowState, error) {
		kind := prompts.FinalWithoutWeb
		if HasWebResults(s.WebResults) {
			kind = prompts.FinalWithWeb
			env.Status.Printf(status.Thinking, "Generating final response with web search results...")
		} else {
			env.Status.Printf(status.Thinking, "Generating final response from initial answer...")
		}

		content, err := env.generate(ctx, StageGenerateFinalResponse, kind, s, model.RequestFinalResponse)
		if err != nil {
			return s, err
		}

		out := s
		out.FinalAnswer = content
		env.Status.Printf(status.Success, "Final response generated successfully")
		return out, nil
	}
}

// HasWebResults reports whether results carry anything beyond the
// no-results sentinel.
func HasWebResults(results string) bool {
	return results != "" && !strings.Contains(results, "No additional web information found")
}

func (e *Env) generate(ctx context.Context, stage Stage, kind prompts.Kind, s model.WorkflowState, requestType string) (string, error) {
	pctx := callbacks.ReuseHandlers(ctx, &callbacks.RunInfo{
		Name:      kind.String(),
		Type:      "ChatTemplate",
		Component: components.ComponentOfPrompt,
	})
	msgs, err := prompts.Render(pctx, kind, s)
	if err != nil {
		return "", err
	}

	cm := e.ChatModel()
	if cm == nil || cm.Model == nil {
		return "", fmt.Errorf("chat model is not configured")
	}

	mctx := callbacks.ReuseHandlers(ctx, &callbacks.RunInfo{
		Name:      string(stage),
		Type:      cm.Name,
		Component: components.ComponentOfChatModel,
	})
	resp, err := cm.Model.Generate(mctx, msgs)
	if err != nil {
		return "", fmt.Errorf("generate with %s: %w", cm.Name, err)
	}
	if resp == nil {
		return "", fmt.Errorf("generate with %s: empty response", cm.Name)
	}

	e.recordUsage(stage, resp, cm.Name, requestType)
	return resp.Content, nil
}

func (e *Env) searchOnce(ctx context.Context, query string, timeout time.Duration) (string, error) {
	qctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args, _ := json.Marshal(tools.WebSearchInput{Query: query})
	raw, err := invokeTool(qctx, e.WebSearch, tools.ToolWebSearch, string(args))
	if err != nil {
		return "", err
	}
	var res tools.WebSearchOutput
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return "", fmt.Errorf("decode web_search output: %w", err)
	}
	if res.Error != "" {
		return "", errors.New(res.Error)
	}
	return res.Result, nil
}

// invokeTool runs t with tool callbacks around the call, the way a tools
// node would inside a compiled graph.
func invokeTool(ctx context.Context, t tool.InvokableTool, name, args string) (string, error) {
	if t == nil {
		return "", fmt.Errorf("tool %s is not configured", name)
	}
	ctx = callbacks.ReuseHandlers(ctx, &callbacks.RunInfo{
		Name:      name,
		Type:      "Tool",
		Component: components.ComponentOfTool,
	})
	ctx = callbacks.OnStart(ctx, &tool.CallbackInput{ArgumentsInJSON: args})
	out, err := t.InvokableRun(ctx, args)
	if err != nil {
		callbacks.OnError(ctx, err)
		return "", err
	}
	callbacks.OnEnd(ctx, &tool.CallbackOutput{Response: out})
	return out, nil
}

func prefix(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
