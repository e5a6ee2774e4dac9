package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	logx "github.com/sagely-dev/sagely/pkg/logger"
)

const (
	tavilyEndpoint   = "https://api.tavily.com/search"
	tavilyMaxResults = 5
)

type TavilySearcher struct {
	apiKey   string
	endpoint string
	client   *http.Client
	retries  uint64
}

func NewTavilySearcher(apiKey string, client *http.Client) *TavilySearcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &TavilySearcher{apiKey: apiKey, endpoint: tavilyEndpoint, client: client, retries: 2}
}

type tavilyRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type tavilyResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

func (s *TavilySearcher) Search(ctx context.Context, query string) (string, error) {
	if s.apiKey == "" {
		return TavilyMissingMessage, nil
	}

	body, err := json.Marshal(tavilyRequest{Query: query, MaxResults: tavilyMaxResults})
	if err != nil {
		return "", fmt.Errorf("failed to marshal tavily request: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxElapsedTime = 10 * time.Second

	var payload tavilyResponse
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+s.apiKey)

		resp, err := s.client.Do(req)
		if err != nil {
			logx.Debug().Err(err).Str("query", query).Msg("tavily request failed, retrying")
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			err := fmt.Errorf("tavily API error: status %d, body: %s", resp.StatusCode, string(respBody))
			switch resp.StatusCode {
			case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusInternalServerError, http.StatusBadGateway:
				return err
			default:
				return backoff.Permanent(err)
			}
		}

		if err := json.Unmarshal(respBody, &payload); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode tavily response: %w", err))
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(b, s.retries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return "", fmt.Errorf("tavily search: %w", err)
	}

	refs := make([]reference, 0, len(payload.Results))
	for _, r := range payload.Results {
		ref := reference{Title: r.Title, URL: r.URL, Content: r.Content}
		if ref.Title == "" {
			ref.Title = "No Title"
		}
		if ref.URL == "" {
			ref.URL = "No URL"
		}
		if ref.Content == "" {
			ref.Content = "No Content"
		}
		refs = append(refs, ref)
	}
	return formatResults(refs), nil
}
