// Package websearch 提供外部网页检索，作为知识库上下文不足时的补充来源。
package websearch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wwwzy/RagAgent/internal/config"
)

// ErrDisabled 表示网页检索未启用。
var ErrDisabled = errors.New("web search disabled")

// Result 为一条检索结果。
type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// Searcher 执行网页检索。实现需可并发调用。
type Searcher interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

// New 按配置构建 Searcher；未启用时返回 Disabled。
func New(cfg config.WebSearchConfig) (Searcher, error) {
	if !cfg.Enabled {
		return Disabled{}, nil
	}
	switch strings.ToLower(cfg.Provider) {
	case "", "tavily":
		return NewTavily(
			cfg.APIKey,
			WithBaseURL(cfg.BaseURL),
			WithMaxResults(cfg.MaxResults),
			WithTimeout(cfg.Timeout),
		)
	default:
		return nil, fmt.Errorf("unknown web search provider: %s", cfg.Provider)
	}
}

// Disabled 总是返回 ErrDisabled。
type Disabled struct{}

func (Disabled) Search(context.Context, string) ([]Result, error) { return nil, ErrDisabled }

// Format 将结果拼接为供模型阅读的上下文文本。
func Format(results []Result) string {
	var b strings.Builder
	n := 0
	for _, r := range results {
		content := strings.TrimSpace(r.Content)
		if content == "" {
			continue
		}
		if n > 0 {
			b.WriteString("\n\n---\n\n")
		}
		n++
		fmt.Fprintf(&b, "[%d] %s\n", n, strings.TrimSpace(r.Title))
		if r.URL != "" {
			fmt.Fprintf(&b, "URL: %s\n", r.URL)
		}
		b.WriteString(content)
	}
	return b.String()
}
