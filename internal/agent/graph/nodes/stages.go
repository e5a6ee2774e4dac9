// Package nodes implements the workflow stages. Each stage is a plain
// function over model.WorkflowState; the graph package drives them.
package nodes

// Stage names a workflow stage.
type Stage string

const (
	StageAnalyzeContext        Stage = "analyze_context"
	StageGenerateResponse      Stage = "generate_response"
	StageOrchestrator          Stage = "orchestrator"
	StageWebSearchTool         Stage = "web_search_tool"
	StageGenerateFinalResponse Stage = "generate_final_response"
	StageEnd                   Stage = "end"
)

// Stages lists the stages in declaration order.
var Stages = []Stage{
	StageAnalyzeContext,
	StageGenerateResponse,
	StageOrchestrator,
	StageWebSearchTool,
	StageGenerateFinalResponse,
}

// Next returns the stage that follows current. The orchestrator routes to
// the web search stage only when the evaluation asked for it and web search
// is enabled.
func Next(current Stage, needsWebSearch, webSearchEnabled bool) Stage {
	switch current {
	case StageAnalyzeContext:
		return StageGenerateResponse
	case StageGenerateResponse:
		return StageOrchestrator
	case StageOrchestrator:
		if needsWebSearch && webSearchEnabled {
			return StageWebSearchTool
		}
		return StageGenerateFinalResponse
	case StageWebSearchTool:
		return StageGenerateFinalResponse
	}
	return StageEnd
}
