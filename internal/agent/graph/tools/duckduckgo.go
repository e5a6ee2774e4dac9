package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

const (
	duckDuckGoEndpoint   = "https://html.duckduckgo.com/html/"
	duckDuckGoMaxResults = 5
)

// DuckDuckGoSearcher scrapes the keyless HTML endpoint.
type DuckDuckGoSearcher struct {
	endpoint string
	client   *http.Client
}

func NewDuckDuckGoSearcher(client *http.Client) *DuckDuckGoSearcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &DuckDuckGoSearcher{endpoint: duckDuckGoEndpoint, client: client}
}

func (s *DuckDuckGoSearcher) Search(ctx context.Context, query string) (string, error) {
	searchURL := s.endpoint + "?q=" + url.QueryEscape(query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	refs, err := parseDuckDuckGo(string(body), duckDuckGoMaxResults)
	if err != nil {
		return "", err
	}
	return formatResults(refs), nil
}

func parseDuckDuckGo(content string, limit int) ([]reference, error) {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var refs []reference
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if len(refs) >= limit {
			return
		}
		if n.Type == html.ElementNode && n.Data == "div" {
			class := attr(n, "class")
			if strings.Contains(class, "result") && strings.Contains(class, "results_links") {
				if r := extractResult(n); r.URL != "" && r.Title != "" {
					refs = append(refs, r)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return refs, nil
}

func extractResult(n *html.Node) reference {
	var r reference
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			class := attr(n, "class")
			switch {
			case strings.Contains(class, "result__a"):
				r.URL = attr(n, "href")
				r.Title = text(n)
			case strings.Contains(class, "result__snippet"):
				r.Content = text(n)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)

	// result links go through a redirect carrying the target in uddg
	if strings.HasPrefix(r.URL, "//duckduckgo.com/l/?") {
		if u, err := url.Parse("https:" + r.URL); err == nil {
			if target := u.Query().Get("uddg"); target != "" {
				r.URL = target
			}
		}
	}
	return r
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func text(n *html.Node) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(parts, " ")
}
