package tools

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/sagely-dev/sagely/internal/agent/model"
)

// Messages returned in place of results when searching is not possible.
const (
	DisabledMessage      = "Web search is disabled in configuration"
	TavilyMissingMessage = "Web search failed: Tavily API key not configured"
	NoStructuredResults  = "**References:**\nNo structured results found."
)

// Searcher runs one web query and returns formatted results, numbered and
// followed by a references section. Conditions that make searching
// impossible come back as explanatory text rather than an error.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// UsageSink receives the token usage of provider calls that consume model
// tokens.
type UsageSink interface {
	Add(metadata map[string]any, modelName, requestType string)
}

// SearcherConfig carries what the provider constructors need.
type SearcherConfig struct {
	Options    model.Options
	GenAI      *genai.Client
	HTTPClient *http.Client
	Usage      UsageSink
}

// NewSearcher builds the searcher for opts.WebSearchProvider.
func NewSearcher(cfg SearcherConfig) (Searcher, error) {
	opts := cfg.Options
	if !opts.EnableWebSearch {
		return disabledSearcher{}, nil
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: time.Duration(max(opts.WebSearchTimeout, 1)) * time.Second}
	}

	switch opts.WebSearchProvider {
	case model.ProviderGoogleSearch:
		if cfg.GenAI == nil {
			return nil, fmt.Errorf("google_search provider needs a Gemini client")
		}
		return NewGoogleSearcher(cfg.GenAI.Models, opts.ModelName, cfg.Usage), nil
	case model.ProviderTavily:
		return NewTavilySearcher(opts.TavilyAPIKey.String(), httpClient), nil
	case model.ProviderDuckDuckGo:
		return NewDuckDuckGoSearcher(httpClient), nil
	}
	return nil, fmt.Errorf("unknown web search provider %q", opts.WebSearchProvider)
}

type disabledSearcher struct{}

func (disabledSearcher) Search(context.Context, string) (string, error) {
	return DisabledMessage, nil
}

// reference is one cited source.
type reference struct {
	Title   string
	URL     string
	Content string
}

// formatResults renders "{i}. {title}\n{content} [^i]" blocks followed by a
// references section.
func formatResults(refs []reference) string {
	if len(refs) == 0 {
		return NoStructuredResults
	}
	var b strings.Builder
	notes := make([]string, 0, len(refs))
	for i, r := range refs {
		n := i + 1
		fmt.Fprintf(&b, "%d. %s\n%s [^%d]\n\n", n, r.Title, r.Content, n)
		notes = append(notes, fmt.Sprintf("[^%d]: [%s](%s)", n, r.Title, r.URL))
	}
	b.WriteString("\n**References:**\n")
	b.WriteString(strings.Join(notes, "\n"))
	return b.String()
}
