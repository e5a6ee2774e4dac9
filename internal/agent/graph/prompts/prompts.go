// Package prompts renders the workflow's LLM prompts through the eino prompt
// component so prompt callbacks fire for every render.
package prompts

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/sagely-dev/sagely/internal/agent/model"
)

var (
	//go:embed template/system.txt
	systemPrompt string
	//go:embed template/initial_response.txt
	initialResponsePrompt string
	//go:embed template/evaluation.txt
	evaluationPrompt string
	//go:embed template/final_with_web.txt
	finalWithWebPrompt string
	//go:embed template/final_without_web.txt
	finalWithoutWebPrompt string
)

// Kind selects one of the embedded user prompts.
type Kind int

const (
	InitialResponse Kind = iota
	Evaluation
	FinalWithWeb
	FinalWithoutWeb
)

func (k Kind) String() string {
	switch k {
	case InitialResponse:
		return "initial_response"
	case Evaluation:
		return "evaluation"
	case FinalWithWeb:
		return "final_with_web"
	case FinalWithoutWeb:
		return "final_without_web"
	}
	return fmt.Sprintf("prompt(%d)", int(k))
}

func (k Kind) template() (string, bool) {
	switch k {
	case InitialResponse:
		return initialResponsePrompt, true
	case Evaluation:
		return evaluationPrompt, true
	case FinalWithWeb:
		return finalWithWebPrompt, true
	case FinalWithoutWeb:
		return finalWithoutWebPrompt, true
	}
	return "", false
}

// Render returns the system and user messages for one LLM call, filled from
// the workflow state.
func Render(ctx context.Context, kind Kind, state model.WorkflowState) ([]*schema.Message, error) {
	userTpl, ok := kind.template()
	if !ok {
		return nil, fmt.Errorf("unknown prompt %s", kind)
	}

	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(userTpl),
	)
	msgs, err := tpl.Format(ctx, vars(state))
	if err != nil {
		return nil, fmt.Errorf("%s prompt render: %w", kind, err)
	}
	if len(msgs) != 2 || msgs[1] == nil {
		return nil, fmt.Errorf("%s prompt render: empty result", kind)
	}
	return msgs, nil
}

func vars(s model.WorkflowState) map[string]any {
	return map[string]any{
		"ModuleName":     s.ModuleName,
		"Question":       s.Question,
		"Traceback":      s.Traceback,
		"ContextSummary": s.ContextSummary,
		"ModuleInfo":     s.ModuleInfo,
		"InitialAnswer":  s.InitialAnswer,
		"WebResults":     s.WebResults,
	}
}
