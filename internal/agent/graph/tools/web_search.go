// Package tools holds the web search providers and the eino tool that
// exposes them to the workflow.
package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
)

const ToolWebSearch = "web_search"

type WebSearchInput struct {
	Query string `json:"query"`
}

// WebSearchOutput carries either the formatted results or the reason the
// query failed. The tool itself only errors on malformed input.
type WebSearchOutput struct {
	Result string `json:"result"`
	Error  string `json:"error,omitempty"`
}

// SearcherSource hands out the searcher to use for the next call.
type SearcherSource func() Searcher

func NewWebSearchTool(source SearcherSource) tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolWebSearch,
			Desc: "Search the web for information about Go packages and programming topics. Returns numbered results followed by a references section.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {
					Type:     "string",
					Desc:     "The search query.",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *WebSearchInput) (*WebSearchOutput, error) {
			query := strings.TrimSpace(in.Query)
			if query == "" {
				return nil, fmt.Errorf("query is required")
			}
			searcher := source()
			if searcher == nil {
				return &WebSearchOutput{Result: DisabledMessage}, nil
			}
			result, err := searcher.Search(ctx, query)
			if err != nil {
				return &WebSearchOutput{Error: err.Error()}, nil
			}
			return &WebSearchOutput{Result: result}, nil
		},
	)
}
