package nodes

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagely-dev/sagely/internal/agent/graph/tools"
	"github.com/sagely-dev/sagely/internal/agent/model"
	"github.com/sagely-dev/sagely/internal/agent/status"
)

func TestNext(t *testing.T) {
	tests := []struct {
		name       string
		current    Stage
		needsWeb   bool
		webEnabled bool
		want       Stage
	}{
		{"analyze to generate", StageAnalyzeContext, false, true, StageGenerateResponse},
		{"generate to orchestrator", StageGenerateResponse, true, true, StageOrchestrator},
		{"orchestrator to web", StageOrchestrator, true, true, StageWebSearchTool},
		{"orchestrator sufficient", StageOrchestrator, false, true, StageGenerateFinalResponse},
		{"orchestrator web disabled", StageOrchestrator, true, false, StageGenerateFinalResponse},
		{"web to final", StageWebSearchTool, true, true, StageGenerateFinalResponse},
		{"final to end", StageGenerateFinalResponse, false, false, StageEnd},
		{"unknown to end", Stage("bogus"), false, false, StageEnd},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Next(tt.current, tt.needsWeb, tt.webEnabled))
		})
	}
}

func TestSearchQueries(t *testing.T) {
	assert.Equal(t, []string{
		"os How to read env?",
		"os documentation How to read env?",
		"os best practices How to read env?",
	}, SearchQueries("os", "How to read env?"))
}

func TestHasWebResults(t *testing.T) {
	assert.False(t, HasWebResults(""))
	assert.False(t, HasWebResults(NoWebResults))
	assert.True(t, HasWebResults("Search: q\nresult\n"))
}

func TestPrefix(t *testing.T) {
	assert.Equal(t, "abc", prefix("abc", 50))
	assert.Equal(t, "ab", prefix("abc", 2))
	assert.Equal(t, "é", prefix("éa", 1))
}

type staticSearcher string

func (s staticSearcher) Search(context.Context, string) (string, error) { return string(s), nil }

func TestWebSearchNodeLeavesOtherFieldsAlone(t *testing.T) {
	env := &Env{
		Status:    status.Discard(),
		Options:   model.DefaultOptions,
		WebSearch: tools.NewWebSearchTool(func() tools.Searcher { return staticSearcher("found it") }),
	}
	in := model.WorkflowState{ModuleName: "os", Question: "q", InitialAnswer: "a", NeedsWebSearch: true}

	out, err := NewWebSearchNode(env)(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, "a", out.InitialAnswer)
	assert.True(t, out.NeedsWebSearch)
	assert.Equal(t, 3, strings.Count(out.WebResults, "found it"))
	assert.Empty(t, in.WebResults)
}

func TestAnalyzeContextWithoutToolDegrades(t *testing.T) {
	env := &Env{Status: status.Discard(), Options: model.DefaultOptions}
	out, err := NewAnalyzeContextNode(env)(context.Background(), model.WorkflowState{ModuleName: "os"})
	require.NoError(t, err)
	assert.Equal(t, "Error analyzing module os: tool analyze_module is not configured", out.ModuleInfo)
	assert.Equal(t, "No recent errors", out.Traceback)
}

func TestGenerateWithoutChatModelFails(t *testing.T) {
	env := &Env{Status: status.Discard(), Options: model.DefaultOptions, ChatModel: func() *ChatModel { return nil }}
	_, err := NewGenerateResponseNode(env)(context.Background(), model.WorkflowState{ModuleName: "os", Question: "q"})
	assert.ErrorContains(t, err, "chat model is not configured")
}
