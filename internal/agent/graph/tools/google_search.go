package tools

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/sagely-dev/sagely/internal/agent/model"
)

// ContentGenerator is the part of *genai.Models the grounded search uses.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GoogleSearcher answers a query with a Gemini call grounded on Google
// Search and cites the grounding sources.
type GoogleSearcher struct {
	models    ContentGenerator
	modelName string
	usage     UsageSink
}

func NewGoogleSearcher(models ContentGenerator, modelName string, usage UsageSink) *GoogleSearcher {
	return &GoogleSearcher{models: models, modelName: modelName, usage: usage}
}

func (s *GoogleSearcher) Search(ctx context.Context, query string) (string, error) {
	resp, err := s.models.GenerateContent(ctx, s.modelName, genai.Text(query), &genai.GenerateContentConfig{
		Tools: []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
	})
	if err != nil {
		return "", fmt.Errorf("google search: %w", err)
	}
	if resp == nil {
		return "", fmt.Errorf("google search: empty response")
	}

	if s.usage != nil && resp.UsageMetadata != nil {
		s.usage.Add(map[string]any{
			"input_tokens":  int(resp.UsageMetadata.PromptTokenCount),
			"output_tokens": int(resp.UsageMetadata.CandidatesTokenCount),
			"total_tokens":  int(resp.UsageMetadata.TotalTokenCount),
		}, s.modelName, model.RequestWebSearch)
	}

	answer := strings.TrimSpace(resp.Text())
	var notes []string
	seen := map[string]bool{}
	for _, c := range resp.Candidates {
		if c == nil || c.GroundingMetadata == nil {
			continue
		}
		for _, chunk := range c.GroundingMetadata.GroundingChunks {
			if chunk == nil || chunk.Web == nil || seen[chunk.Web.URI] {
				continue
			}
			seen[chunk.Web.URI] = true
			notes = append(notes, fmt.Sprintf("[^%d]: [%s](%s)", len(notes)+1, chunk.Web.Title, chunk.Web.URI))
		}
	}

	if answer == "" && len(notes) == 0 {
		return NoStructuredResults, nil
	}
	if len(notes) == 0 {
		return answer, nil
	}
	return answer + "\n\n**References:**\n" + strings.Join(notes, "\n"), nil
}
