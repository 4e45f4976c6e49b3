// Package qdrant 基于 Qdrant 实现文档检索。
package qdrant

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"
	"github.com/qdrant/go-client/qdrant"
	"github.com/wwwzy/RagAgent/internal/vectorstore"
)

// payload 中正文字段的候选键：LangChain 写入 page_content，其他脚本常用 content。
var contentKeys = []string{"page_content", "content", "text"}

// Config holds Qdrant connection configuration.
type Config struct {
	// URL 为服务地址，例如 https://example.qdrant.io:6334（gRPC 端口）。
	URL        string
	APIKey     string
	Collection string
	TopK       int
}

type pointQuerier interface {
	Query(ctx context.Context, request *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
}

// Retriever 实现 retriever.Retriever。
type Retriever struct {
	client     pointQuerier
	closer     func() error
	collection string
	topK       int
	embedder   embedding.Embedder
}

var _ vectorstore.Store = (*Retriever)(nil)

func New(cfg Config, emb embedding.Embedder) (*Retriever, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("qdrant url is required")
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("qdrant collection is required")
	}

	parsedURL := cfg.URL
	if !strings.HasPrefix(parsedURL, "http://") && !strings.HasPrefix(parsedURL, "https://") {
		parsedURL = "https://" + parsedURL
	}
	u, err := url.Parse(parsedURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse qdrant url: %w", err)
	}

	port := 6334
	if u.Port() != "" {
		p, err := strconv.Atoi(u.Port())
		if err != nil {
			return nil, fmt.Errorf("invalid port: %w", err)
		}
		port = p
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   u.Hostname(),
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: u.Scheme == "https",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &Retriever{
		client:     client,
		closer:     client.Close,
		collection: cfg.Collection,
		topK:       cfg.TopK,
		embedder:   emb,
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

	limit := uint64(o.TopK)
	req := &qdrant.QueryPoints{
		CollectionName: r.collection,
		Query:          qdrant.NewQuery(vec...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if o.ScoreThreshold > 0 {
		th := float32(o.ScoreThreshold)
		req.ScoreThreshold = &th
	}

	points, err := r.client.Query(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("qdrant search failed: %w", err)
	}

	docs := make([]*schema.Document, 0, len(points))
	for _, p := range points {
		docs = append(docs, pointToDocument(p))
	}
	return docs, nil
}

func (r *Retriever) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer()
}

func pointToDocument(p *qdrant.ScoredPoint) *schema.Document {
	var id string
	if p.Id != nil {
		if u := p.Id.GetUuid(); u != "" {
			id = u
		} else {
			id = strconv.FormatUint(p.Id.GetNum(), 10)
		}
	}

	meta := make(map[string]any)
	var content string
	for k, v := range p.Payload {
		switch k {
		case "metadata":
			// LangChain 将元数据嵌套在 metadata 字段下
			for mk, mv := range v.GetStructValue().GetFields() {
				meta[mk] = extractValue(mv)
			}
		default:
			meta[k] = extractValue(v)
		}
	}
	for _, k := range contentKeys {
		if s, ok := meta[k].(string); ok && s != "" {
			content = s
			delete(meta, k)
			break
		}
	}
	return vectorstore.NewDocument(id, content, float64(p.Score), meta)
}

// extractValue extracts a Go value from a Qdrant Value.
func extractValue(v *qdrant.Value) any {
	if v == nil {
		return nil
	}
	switch val := v.Kind.(type) {
	case *qdrant.Value_StringValue:
		return val.StringValue
	case *qdrant.Value_IntegerValue:
		return val.IntegerValue
	case *qdrant.Value_DoubleValue:
		return val.DoubleValue
	case *qdrant.Value_BoolValue:
		return val.BoolValue
	default:
		return nil
	}
}
