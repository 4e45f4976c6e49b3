package supabase

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wwwzy/RagAgent/internal/vectorstore"
)

type stubEmbedder struct{}

func (stubEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	return [][]float64{{0.25, 0.5}}, nil
}

func TestRetrieveDecodesRows(t *testing.T) {
	var gotName string
	var gotBody map[string]any
	r := &Retriever{
		rpc: func(name, count string, body interface{}) string {
			gotName = name
			gotBody, _ = body.(map[string]any)
			return `[
				{"id": 12, "content": "Chains call models.", "metadata": {"source": "docs/chains.md", "title": "Chains"}, "similarity": 0.82},
				{"id": "abc", "content": "Agents pick tools.", "metadata": {"url": "https://python.langchain.com/docs/agents"}, "similarity": 0.41}
			]`
		},
		function: defaultFunction,
		topK:     3,
		embedder: stubEmbedder{},
	}

	docs, err := r.Retrieve(context.Background(), "how do chains work")
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, "match_documents", gotName)
	assert.Equal(t, 3, gotBody["match_count"])
	assert.Equal(t, []float32{0.25, 0.5}, gotBody["query_embedding"])

	assert.Equal(t, "12", docs[0].ID)
	assert.Equal(t, "Chains", vectorstore.MetaString(docs[0], vectorstore.MetaTitle))
	assert.Equal(t, "abc", docs[1].ID)
	assert.Equal(t, "https://python.langchain.com/docs/agents", vectorstore.MetaString(docs[1], vectorstore.MetaURL))
}

func TestRetrieveSurfacesRPCError(t *testing.T) {
	r := &Retriever{
		rpc: func(name, count string, body interface{}) string {
			return `{"code":"PGRST202","message":"Could not find the function public.match_documents"}`
		},
		function: defaultFunction,
		topK:     3,
		embedder: stubEmbedder{},
	}

	_, err := r.Retrieve(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PGRST202")
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config{APIKey: "k"}, stubEmbedder{})
	assert.Error(t, err)
	_, err = New(Config{URL: "https://x.supabase.co"}, stubEmbedder{})
	assert.Error(t, err)
}
