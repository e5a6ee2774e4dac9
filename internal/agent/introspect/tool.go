package introspect

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
)

const AnalyzeModuleToolName = "analyze_module"

type AnalyzeModuleInput struct {
	ModuleName string `json:"module_name"`
}

type AnalyzeModuleOutput struct {
	ModuleInfo string `json:"module_info"`
}

// NewAnalyzeModuleTool exposes the analyzer as an eino tool. Analysis
// failures are reported in ModuleInfo, not as tool errors.
func NewAnalyzeModuleTool(a *Analyzer) tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: AnalyzeModuleToolName,
			Desc: "Analyze a Go package to extract its documentation and structure: package doc, exported functions, exported types and imported packages.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"module_name": {
					Type:     "string",
					Desc:     "Import path of the package, e.g. strings or net/http.",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *AnalyzeModuleInput) (*AnalyzeModuleOutput, error) {
			if in.ModuleName == "" {
				return nil, fmt.Errorf("module_name is required")
			}
			text, _ := a.Analyze(ctx, in.ModuleName)
			return &AnalyzeModuleOutput{ModuleInfo: text}, nil
		},
	)
}
