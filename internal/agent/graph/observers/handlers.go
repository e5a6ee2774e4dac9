// Package observers turns eino component callbacks into structured log
// events. They are attached to a workflow run when tracing is enabled.
package observers

import (
	einocb "github.com/cloudwego/eino/callbacks"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"
)

// NewAllCallbacks aggregates the model, prompt and tool observers into one
// callbacks.Handler tagged with project.
func NewAllCallbacks(project string) einocb.Handler {
	return callbackHelper.NewHandlerHelper().
		Tool(newToolHandler(project)).
		ChatModel(newModelHandler(project)).
		Prompt(newPromptHandler(project)).
		Handler()
}
