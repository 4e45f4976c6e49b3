// Package vectorstore 定义文档向量索引的只读检索边界。
//
// 各驱动实现 eino 的 retriever.Retriever：以查询文本的向量在索引中做相似度检索，
// 返回带 source/title/url 元数据的文档片段。索引的写入由离线任务负责，且必须
// 使用与查询时相同的向量化模型。
package vectorstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"
)

// 文档元数据键，与建库脚本写入的字段一致。
const (
	MetaSource = "source"
	MetaTitle  = "title"
	MetaURL    = "url"
)

// Store 为可关闭的检索器。
type Store interface {
	retriever.Retriever
	Close() error
}

// Options 为一次检索解析后的参数。
type Options struct {
	TopK           int
	ScoreThreshold float64
	Embedder       embedding.Embedder
}

// ResolveOptions 合并调用方传入的 retriever.Option 与驱动默认值。
func ResolveOptions(defaultTopK int, defaultEmbedder embedding.Embedder, opts ...retriever.Option) (Options, error) {
	topK := defaultTopK
	o := retriever.GetCommonOptions(&retriever.Options{TopK: &topK, Embedding: defaultEmbedder}, opts...)

	out := Options{Embedder: o.Embedding}
	if o.TopK != nil {
		out.TopK = *o.TopK
	}
	if o.ScoreThreshold != nil {
		out.ScoreThreshold = *o.ScoreThreshold
	}
	if out.TopK <= 0 {
		return out, fmt.Errorf("top k must be positive, got %d", out.TopK)
	}
	if out.Embedder == nil {
		return out, errors.New("embedder is required")
	}
	return out, nil
}

// EmbedQuery 将查询文本向量化为 float32，供索引客户端使用。
func EmbedQuery(ctx context.Context, emb embedding.Embedder, query string) ([]float32, error) {
	vecs, err := emb.EmbedStrings(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) != 1 || len(vecs[0]) == 0 {
		return nil, errors.New("embed query: empty vector")
	}
	out := make([]float32, len(vecs[0]))
	for i, v := range vecs[0] {
		out[i] = float32(v)
	}
	return out, nil
}

// NewDocument 组装检索结果，metadata 中只保留非空字段。
func NewDocument(id, content string, score float64, metadata map[string]any) *schema.Document {
	meta := make(map[string]any, len(metadata))
	for k, v := range metadata {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		meta[k] = v
	}
	doc := &schema.Document{ID: id, Content: content, MetaData: meta}
	return doc.WithScore(score)
}

// MetaString 读取字符串类型的元数据。
func MetaString(doc *schema.Document, key string) string {
	if doc == nil || doc.MetaData == nil {
		return ""
	}
	s, _ := doc.MetaData[key].(string)
	return s
}
