package observers

import (
	"context"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/prompt"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	logx "github.com/sagely-dev/sagely/pkg/logger"
)

func newPromptHandler(project string) *callbackHelper.PromptCallbackHandler {
	return &callbackHelper.PromptCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *prompt.CallbackInput) context.Context {
			ev := logx.Debug().Str("project", project).Str("component", "prompt").Str("name", info.Name)
			if input != nil {
				ev = ev.Int("variables", len(input.Variables))
			}
			ev.Msg("prompt start")
			return ctx
		},
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *prompt.CallbackOutput) context.Context {
			ev := logx.Debug().Str("project", project).Str("component", "prompt").Str("name", info.Name)
			if output != nil {
				ev = ev.Str("rendered", clip(lastUserContent(output.Result)))
			}
			ev.Msg("prompt end")
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logx.Warn().Err(err).Str("project", project).Str("component", "prompt").Str("name", info.Name).Msg("prompt error")
			return ctx
		},
	}
}
