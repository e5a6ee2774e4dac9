package nodes

import (
	"github.com/cloudwego/eino/schema"

	"github.com/sagely-dev/sagely/internal/agent/model"
	"github.com/sagely-dev/sagely/internal/agent/status"
	logx "github.com/sagely-dev/sagely/pkg/logger"
)

// recordUsage books the usage reported on out against modelName and prints
// the per-call token line. Messages without usage are skipped.
func (e *Env) recordUsage(stage Stage, out *schema.Message, modelName, requestType string) {
	if out == nil || out.ResponseMeta == nil || out.ResponseMeta.Usage == nil {
		return
	}
	u := out.ResponseMeta.Usage
	if e.Usage != nil {
		e.Usage.AddMessageUsage(u, modelName, requestType)
	}

	inC, outC, totalC := model.ComputeCost(model.TokenUsage{
		InputTokens:  u.PromptTokens,
		OutputTokens: u.CompletionTokens,
	}, model.ResolvePricing(modelName))
	logx.Debug().
		Str("node", string(stage)).
		Str("model", modelName).
		Str("request_type", requestType).
		Int("prompt_tokens", u.PromptTokens).
		Int("completion_tokens", u.CompletionTokens).
		Int("total_tokens", u.TotalTokens).
		Float64("input_cost_usd", inC).
		Float64("output_cost_usd", outC).
		Float64("total_cost_usd", totalC).
		Msg("LLM usage")

	e.Status.Printf(status.Usage, "Tokens used: %d input, %d output, %d total",
		u.PromptTokens, u.CompletionTokens, u.TotalTokens)
}
