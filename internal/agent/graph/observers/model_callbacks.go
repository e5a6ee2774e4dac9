package observers

import (
	"context"
	"strings"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	logx "github.com/sagely-dev/sagely/pkg/logger"
)

const maxLoggedContent = 500

// newModelHandler logs the prompt going into and the reply coming out of
// every chat model call.
func newModelHandler(project string) *callbackHelper.ModelCallbackHandler {
	return &callbackHelper.ModelCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *model.CallbackInput) context.Context {
			ev := logx.Debug().Str("project", project).Str("component", "model").Str("name", info.Name)
			if input != nil {
				ev = ev.Int("messages", len(input.Messages)).Str("user", clip(lastUserContent(input.Messages)))
			}
			ev.Msg("model start")
			return ctx
		},
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *model.CallbackOutput) context.Context {
			ev := logx.Debug().Str("project", project).Str("component", "model").Str("name", info.Name)
			if output != nil && output.Message != nil {
				ev = ev.Str("assistant", clip(output.Message.Content))
			}
			if output != nil && output.TokenUsage != nil {
				ev = ev.Int("prompt_tokens", output.TokenUsage.PromptTokens).
					Int("completion_tokens", output.TokenUsage.CompletionTokens).
					Int("total_tokens", output.TokenUsage.TotalTokens)
			}
			ev.Msg("model end")
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logx.Warn().Err(err).Str("project", project).Str("component", "model").Str("name", info.Name).Msg("model error")
			return ctx
		},
	}
}

func lastUserContent(msgs []*schema.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m == nil {
			continue
		}
		if m.Role == schema.User {
			return strings.TrimSpace(m.Content)
		}
	}
	return ""
}

func clip(s string) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= maxLoggedContent {
		return s
	}
	return string(r[:maxLoggedContent]) + "..."
}
