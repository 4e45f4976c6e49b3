package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/volcengine/volcengine-go-sdk/service/arkruntime"
	arkmodel "github.com/volcengine/volcengine-go-sdk/service/arkruntime/model"
	"github.com/wwwzy/RagAgent/internal/config"
)

type embedFunc func(ctx context.Context, req arkmodel.EmbeddingRequestStrings) (arkmodel.EmbeddingResponse, error)

// Embedder 通过 Ark 向量化接口实现 embedding.Embedder。
type Embedder struct {
	embed   embedFunc
	modelID string
}

var _ embedding.Embedder = (*Embedder)(nil)

func NewEmbedder(cfg config.EmbeddingConfig) (*Embedder, error) {
	if cfg.APIKey == "" || cfg.ModelID == "" {
		return nil, errors.New("embedding.api_key, embedding.model_id must be set")
	}
	var client *arkruntime.Client
	if cfg.BaseURL != "" {
		client = arkruntime.NewClientWithApiKey(cfg.APIKey, arkruntime.WithBaseUrl(cfg.BaseURL))
	} else {
		client = arkruntime.NewClientWithApiKey(cfg.APIKey)
	}
	return &Embedder{
		embed: func(ctx context.Context, req arkmodel.EmbeddingRequestStrings) (arkmodel.EmbeddingResponse, error) {
			return client.CreateEmbeddings(ctx, req)
		},
		modelID: cfg.ModelID,
	}, nil
}

func (e *Embedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	modelID := e.modelID
	if o := embedding.GetCommonOptions(nil, opts...); o.Model != nil && *o.Model != "" {
		modelID = *o.Model
	}

	resp, err := e.embed(ctx, arkmodel.EmbeddingRequestStrings{
		Input: texts,
		Model: modelID,
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("create embeddings: expected %d vectors, got %d", len(texts), len(resp.Data))
	}

	out := make([][]float64, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("create embeddings: index %d out of range", d.Index)
		}
		vec := make([]float64, len(d.Embedding))
		for i, v := range d.Embedding {
			vec[i] = float64(v)
		}
		out[d.Index] = vec
	}
	return out, nil
}
