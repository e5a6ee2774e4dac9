package observers

import (
	"context"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/tool"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	logx "github.com/sagely-dev/sagely/pkg/logger"
)

func newToolHandler(project string) *callbackHelper.ToolCallbackHandler {
	return &callbackHelper.ToolCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *tool.CallbackInput) context.Context {
			ev := logx.Debug().Str("project", project).Str("component", "tool").Str("name", info.Name)
			if input != nil {
				ev = ev.Str("arguments", clip(input.ArgumentsInJSON))
			}
			ev.Msg("tool start")
			return ctx
		},
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *tool.CallbackOutput) context.Context {
			ev := logx.Debug().Str("project", project).Str("component", "tool").Str("name", info.Name)
			if output != nil {
				ev = ev.Str("response", clip(output.Response))
			}
			ev.Msg("tool end")
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logx.Warn().Err(err).Str("project", project).Str("component", "tool").Str("name", info.Name).Msg("tool error")
			return ctx
		},
	}
}
