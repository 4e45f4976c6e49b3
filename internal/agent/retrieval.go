package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"
	"github.com/wwwzy/RagAgent/internal/vectorstore"
)

const contextSeparator = "\n\n---\n\n"

// RetrievalEngine 以独立问题查询向量索引，K 由配置固定。
type RetrievalEngine struct {
	r    retriever.Retriever
	topK int
}

func NewRetrievalEngine(r retriever.Retriever, topK int) *RetrievalEngine {
	return &RetrievalEngine{r: r, topK: topK}
}

// Retrieve 返回拼接后的上下文及命中的文档数，索引错误直接返回。
func (e *RetrievalEngine) Retrieve(ctx context.Context, question string) (string, int, error) {
	docs, err := e.r.Retrieve(ctx, question, retriever.WithTopK(e.topK))
	if err != nil {
		return "", 0, fmt.Errorf("similarity search failed: %w", err)
	}
	return FormatDocuments(docs), len(docs), nil
}

// FormatDocuments 按检索顺序编号，保留 title/source/url 便于回答时引用出处。
func FormatDocuments(docs []*schema.Document) string {
	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		if d == nil {
			continue
		}
		var b strings.Builder
		fmt.Fprintf(&b, "[%d]", len(parts)+1)
		if title := vectorstore.MetaString(d, vectorstore.MetaTitle); title != "" {
			b.WriteString(" " + title)
		}
		b.WriteString("\n")
		if src := vectorstore.MetaString(d, vectorstore.MetaSource); src != "" {
			fmt.Fprintf(&b, "Source: %s\n", src)
		}
		if u := vectorstore.MetaString(d, vectorstore.MetaURL); u != "" {
			fmt.Fprintf(&b, "URL: %s\n", u)
		}
		b.WriteString(strings.TrimSpace(d.Content))
		parts = append(parts, b.String())
	}
	return strings.Join(parts, contextSeparator)
}
