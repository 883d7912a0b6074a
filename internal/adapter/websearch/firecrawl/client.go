// Package firecrawl provides a minimal Firecrawl search client used as the
// web-search tool.
package firecrawl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// Client is a minimal Firecrawl HTTP client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New constructs a Firecrawl client with baseURL and apiKey.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Enabled reports whether the client is configured with an API key.
func (c *Client) Enabled() bool { return c.apiKey != "" }

// Search runs a web search and returns titled results with snippets. An empty
// slice means nothing was found.
func (c *Client) Search(ctx domain.Context, query string, limit int) ([]domain.WebResult, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("%w: FIRECRAWL_API_KEY missing", domain.ErrInvalidArgument)
	}
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidArgument)
	}
	if limit <= 0 {
		limit = 5
	}
	body := map[string]any{"query": query, "limit": limit}
	b, _ := json.Marshal(body)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(b))
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("firecrawl search: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("firecrawl search status %d", resp.StatusCode)
	}
	var out struct {
		Data []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("firecrawl decode: %w", err)
	}
	results := make([]domain.WebResult, 0, len(out.Data))
	for _, d := range out.Data {
		if d.URL == "" {
			continue
		}
		results = append(results, domain.WebResult{Title: d.Title, URL: d.URL, Content: d.Description})
	}
	return results, nil
}
