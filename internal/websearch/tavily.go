package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultTavilyBaseURL = "https://api.tavily.com"
	defaultMaxResults    = 5
	defaultTimeout       = 15 * time.Second
	maxErrorBody         = 512
)

// Tavily 调用 Tavily Search API。
type Tavily struct {
	apiKey     string
	baseURL    string
	maxResults int
	timeout    time.Duration
	httpClient *http.Client
}

type TavilyOption func(*Tavily)

func WithBaseURL(u string) TavilyOption {
	return func(t *Tavily) {
		if u != "" {
			t.baseURL = strings.TrimRight(u, "/")
		}
	}
}

func WithMaxResults(n int) TavilyOption {
	return func(t *Tavily) {
		if n > 0 {
			t.maxResults = n
		}
	}
}

func WithTimeout(d time.Duration) TavilyOption {
	return func(t *Tavily) {
		if d > 0 {
			t.timeout = d
		}
	}
}

// WithHTTPClient 替换底层 http.Client（测试用）。传入的 client 不会被修改。
func WithHTTPClient(c *http.Client) TavilyOption {
	return func(t *Tavily) {
		if c != nil {
			t.httpClient = c
		}
	}
}

func NewTavily(apiKey string, opts ...TavilyOption) (*Tavily, error) {
	if apiKey == "" {
		return nil, errors.New("tavily api key is required")
	}
	t := &Tavily{
		apiKey:     apiKey,
		baseURL:    defaultTavilyBaseURL,
		maxResults: defaultMaxResults,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.timeout > 0 {
		// 复制一份再设置超时，避免改动调用方共享的 client
		c := *t.httpClient
		c.Timeout = t.timeout
		t.httpClient = &c
	}
	return t, nil
}

type tavilyRequest struct {
	Query         string `json:"query"`
	SearchDepth   string `json:"search_depth"`
	MaxResults    int    `json:"max_results"`
	IncludeAnswer bool   `json:"include_answer"`
}

type tavilyResponse struct {
	Results []Result `json:"results"`
}

func (t *Tavily) Search(ctx context.Context, query string) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query is empty")
	}

	body, err := json.Marshal(tavilyRequest{
		Query:       query,
		SearchDepth: "basic",
		MaxResults:  t.maxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("encode tavily request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build tavily request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("tavily status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode tavily response: %w", err)
	}
	return out.Results, nil
}
