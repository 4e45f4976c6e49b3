package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	arkmodel "github.com/volcengine/volcengine-go-sdk/service/arkruntime/model"
	"github.com/wwwzy/RagAgent/internal/config"
)

type fakeEmbeddingClient struct {
	lastReq arkmodel.EmbeddingRequestStrings
	resp    arkmodel.EmbeddingResponse
	err     error
}

func (f *fakeEmbeddingClient) create(ctx context.Context, req arkmodel.EmbeddingRequestStrings) (arkmodel.EmbeddingResponse, error) {
	f.lastReq = req
	return f.resp, f.err
}

func TestEmbedderOrdersByIndex(t *testing.T) {
	fc := &fakeEmbeddingClient{resp: arkmodel.EmbeddingResponse{
		Data: []arkmodel.Embedding{
			{Index: 1, Embedding: []float32{0.5, 0.25}},
			{Index: 0, Embedding: []float32{1, 0}},
		},
	}}
	e := &Embedder{embed: fc.create, modelID: "emb-model"}

	vecs, err := e.EmbedStrings(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 0}, {0.5, 0.25}}, vecs)
	assert.Equal(t, "emb-model", fc.lastReq.Model)
	assert.Equal(t, []string{"a", "b"}, fc.lastReq.Input)
}

func TestEmbedderErrors(t *testing.T) {
	e := &Embedder{embed: (&fakeEmbeddingClient{err: errors.New("quota")}).create, modelID: "m"}
	_, err := e.EmbedStrings(context.Background(), []string{"a"})
	assert.ErrorContains(t, err, "quota")

	e = &Embedder{embed: (&fakeEmbeddingClient{}).create, modelID: "m"}
	_, err = e.EmbedStrings(context.Background(), []string{"a"})
	assert.Error(t, err)
}

func TestConstructorsRequireCredentials(t *testing.T) {
	_, err := NewEmbedder(config.EmbeddingConfig{ModelID: "m"})
	assert.Error(t, err)

	_, err = NewChatModel(context.Background(), config.LLMConfig{}, 0)
	assert.Error(t, err)
}
