package agent

import (
	"context"
	"log/slog"
	"strings"

	"github.com/wwwzy/RagAgent/internal/websearch"
)

// WebFallback 包装网页检索，失败或无结果时退化为 NoExternalContext，从不返回错误。
type WebFallback struct {
	searcher websearch.Searcher
	logger   *slog.Logger
}

func NewWebFallback(s websearch.Searcher, logger *slog.Logger) *WebFallback {
	if s == nil {
		s = websearch.Disabled{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WebFallback{searcher: s, logger: logger}
}

func (w *WebFallback) Search(ctx context.Context, question string) string {
	results, err := w.searcher.Search(ctx, question)
	if err != nil {
		w.logger.WarnContext(ctx, "web search unavailable, continuing without context",
			"trace_id", GetTraceID(ctx),
			"error", err,
		)
		return NoExternalContext
	}
	blob := strings.TrimSpace(websearch.Format(results))
	if blob == "" {
		w.logger.InfoContext(ctx, "web search returned no results", "trace_id", GetTraceID(ctx))
		return NoExternalContext
	}
	return blob
}
