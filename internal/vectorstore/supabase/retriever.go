// Package supabase 通过 Supabase(pgvector) 的相似度检索函数实现文档检索。
//
// 数据库侧需要提供形如 match_documents(query_embedding, match_count) 的 RPC，
// 返回 id/content/metadata/similarity 列。
package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"
	"github.com/supabase-community/supabase-go"
	"github.com/wwwzy/RagAgent/internal/vectorstore"
)

const defaultFunction = "match_documents"

// Config holds Supabase connection configuration
type Config struct {
	URL      string
	APIKey   string
	Function string
	TopK     int
}

// rpcFunc 对应 supabase.Client.Rpc，返回 JSON 文本。
type rpcFunc func(name, count string, body interface{}) string

type Retriever struct {
	rpc      rpcFunc
	function string
	topK     int
	embedder embedding.Embedder
}

var _ vectorstore.Store = (*Retriever)(nil)

type matchRow struct {
	ID         json.RawMessage `json:"id"`
	Content    string          `json:"content"`
	Metadata   map[string]any  `json:"metadata"`
	Similarity float64         `json:"similarity"`
}

type rpcError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func New(cfg Config, emb embedding.Embedder) (*Retriever, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("supabase URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("supabase API key is required")
	}

	client, err := supabase.NewClient(cfg.URL, cfg.APIKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}

	fn := cfg.Function
	if fn == "" {
		fn = defaultFunction
	}
	return &Retriever{
		rpc:      client.Rpc,
		function: fn,
		topK:     cfg.TopK,
		embedder: emb,
	}, nil
}

func (r *Retriever) Retrieve(ctx context.Context, query string, opts ...retriever.Option) ([]*schema.Document, error) {
	o, err := vectorstore.ResolveOptions(r.topK, r.embedder, opts...)
	if err != nil {
		return nil, err
	}
	vec, err := vectorstore.EmbedQuery(ctx, o.Embedder, query)
	if err != nil {
		return nil, err
	}

	raw := r.rpc(r.function, "", map[string]any{
		"query_embedding": vec,
		"match_count":     o.TopK,
	})
	rows, err := decodeRows(raw)
	if err != nil {
		return nil, fmt.Errorf("supabase %s: %w", r.function, err)
	}

	docs := make([]*schema.Document, 0, len(rows))
	for _, row := range rows {
		if o.ScoreThreshold > 0 && row.Similarity < o.ScoreThreshold {
			continue
		}
		docs = append(docs, vectorstore.NewDocument(rowID(row.ID), row.Content, row.Similarity, row.Metadata))
	}
	return docs, nil
}

func (r *Retriever) Close() error { return nil }

func decodeRows(raw string) ([]matchRow, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty response")
	}
	// 出错时 postgrest 返回对象而非数组
	if strings.HasPrefix(raw, "{") {
		var e rpcError
		if err := json.Unmarshal([]byte(raw), &e); err == nil && e.Message != "" {
			return nil, fmt.Errorf("rpc error %s: %s", e.Code, e.Message)
		}
		return nil, fmt.Errorf("unexpected response: %s", raw)
	}
	var rows []matchRow
	if err := json.Unmarshal([]byte(raw), &rows); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	return rows, nil
}

func rowID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
