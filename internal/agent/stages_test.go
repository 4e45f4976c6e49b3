package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wwwzy/RagAgent/internal/websearch"
)

func TestDecodeRouteDecision(t *testing.T) {
	cases := []struct {
		raw     string
		want    Route
		wantErr error
	}{
		{`{"route":"rag"}`, RouteRAG, nil},
		{`{"route":"answer"}`, RouteAnswer, nil},
		{`{"route":"web"}`, RouteWeb, nil},
		{`{"route":" web "}`, RouteWeb, nil},
		{`{"route":"end","reply":"bye"}`, "", ErrReservedRoute},
		{`{"route":"RAG"}`, "", ErrMalformedOutput},
		{`{"route":"search"}`, "", ErrMalformedOutput},
		{`{"reply":"hi"}`, "", ErrMalformedOutput},
		{`{"route":1}`, "", ErrMalformedOutput},
		{`not json`, "", ErrMalformedOutput},
	}
	for _, c := range cases {
		t.Run(c.raw, func(t *testing.T) {
			d, err := DecodeRouteDecision(c.raw)
			if c.wantErr != nil {
				assert.ErrorIs(t, err, c.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, c.want, d.Route)
			assert.Empty(t, d.Reply)
		})
	}
}

func TestDecodeSufficiency(t *testing.T) {
	j, err := DecodeSufficiency(`{"sufficient":true}`)
	require.NoError(t, err)
	assert.True(t, j.Sufficient)

	j, err = DecodeSufficiency(`{"sufficient":false}`)
	require.NoError(t, err)
	assert.False(t, j.Sufficient)

	for _, raw := range []string{`{}`, `{"sufficient":"yes"}`, `[]`, ``} {
		_, err := DecodeSufficiency(raw)
		assert.ErrorIs(t, err, ErrMalformedOutput, raw)
	}
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"route":"rag"}`, stripCodeFence("```json\n{\"route\":\"rag\"}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence("  {\"a\":1} "))
}

func TestRouterUsesToolCall(t *testing.T) {
	cm := toolCallModel(routeToolName, `{"route":"web"}`)
	r := NewRouter(cm, 0)

	d, err := r.Route(context.Background(), "What's the weather in Paris today?", "m-1")
	require.NoError(t, err)
	assert.Equal(t, RouteWeb, d.Route)

	require.Len(t, cm.tools, 1)
	assert.Equal(t, routeToolName, cm.tools[0].Name)
	assert.Equal(t, []float32{0}, cm.temps)
	assert.Equal(t, []string{"m-1"}, cm.models)
	assert.Equal(t, "What's the weather in Paris today?", lastUser(cm.LastInput()))
	assert.Contains(t, systemPrompt(cm.LastInput()), routeToolName)
}

func TestRouterFallsBackToContent(t *testing.T) {
	r := NewRouter(textModel("```json\n{\"route\":\"answer\"}\n```"), 0)
	d, err := r.Route(context.Background(), "hi", "")
	require.NoError(t, err)
	assert.Equal(t, RouteAnswer, d.Route)
}

func TestRouterRejectsOutOfSchema(t *testing.T) {
	r := NewRouter(toolCallModel(routeToolName, `{"route":"database"}`), 0)
	_, err := r.Route(context.Background(), "q", "")
	assert.ErrorIs(t, err, ErrMalformedOutput)

	r = NewRouter(textModel(""), 0)
	_, err = r.Route(context.Background(), "q", "")
	assert.ErrorIs(t, err, ErrMalformedOutput)
}

func TestRouterPropagatesCallFailure(t *testing.T) {
	boom := errors.New("quota exceeded")
	_, err := NewRouter(failingModel(boom), 0).Route(context.Background(), "q", "")
	assert.ErrorIs(t, err, boom)
}

func TestJudge(t *testing.T) {
	cm := toolCallModel(judgeToolName, `{"sufficient":false}`)
	j, err := NewJudge(cm, 0).Judge(context.Background(), "What is LCEL?", "[1] LCEL\nLCEL composes runnables.", "")
	require.NoError(t, err)
	assert.False(t, j.Sufficient)
	assert.Contains(t, systemPrompt(cm.LastInput()), "LCEL composes runnables.")

	_, err = NewJudge(toolCallModel(judgeToolName, `{"verdict":"ok"}`), 0).Judge(context.Background(), "q", "", "")
	assert.ErrorIs(t, err, ErrMalformedOutput)
}

func TestContextualizerPassesHistory(t *testing.T) {
	cm := textModel("What is LangChain used for?")
	c := NewContextualizer(cm, 0)
	hist := []*schema.Message{
		schema.UserMessage("What is LangChain?"),
		schema.AssistantMessage("A framework for LLM apps.", nil),
	}

	q, err := c.Rewrite(context.Background(), hist, "What is it used for?", "")
	require.NoError(t, err)
	assert.Equal(t, "What is LangChain used for?", q)

	in := cm.LastInput()
	require.Len(t, in, 4)
	assert.Equal(t, schema.System, in[0].Role)
	assert.Contains(t, in[0].Content, "Do NOT answer the question")
	assert.Equal(t, "What is LangChain?", in[1].Content)
	assert.Equal(t, "What is it used for?", in[3].Content)
	assert.Equal(t, []float32{0}, cm.temps)
}

func TestContextualizerNoSilentFallback(t *testing.T) {
	boom := errors.New("timeout")
	_, err := NewContextualizer(failingModel(boom), 0).Rewrite(context.Background(), nil, "q", "")
	assert.ErrorIs(t, err, boom)

	_, err = NewContextualizer(textModel("  "), 0).Rewrite(context.Background(), nil, "q", "")
	assert.ErrorIs(t, err, ErrMalformedOutput)
}

func TestContextualizerKeepsBracesInQuestion(t *testing.T) {
	cm := echoModel()
	q, err := NewContextualizer(cm, 0).Rewrite(context.Background(), nil, "How do I escape {input} in a prompt?", "")
	require.NoError(t, err)
	assert.Equal(t, "How do I escape {input} in a prompt?", q)
}

func TestSynthesizer(t *testing.T) {
	cm := textModel("LangChain is a framework.")
	s := NewSynthesizer(cm, 0.7)
	msgs := []*schema.Message{schema.UserMessage("What is LangChain?")}

	out, err := s.Synthesize(context.Background(), msgs, "[1] Introduction\nLangChain is a framework.", "")
	require.NoError(t, err)
	assert.Equal(t, "LangChain is a framework.", out)
	assert.Contains(t, systemPrompt(cm.LastInput()), "[1] Introduction")
	assert.Equal(t, []float32{0.7}, cm.temps)

	_, err = s.Synthesize(context.Background(), msgs, "", "")
	require.NoError(t, err)
	assert.NotContains(t, systemPrompt(cm.LastInput()), "Context:")
}

func TestSynthesizerApologyOnEmptyOutput(t *testing.T) {
	out, err := NewSynthesizer(textModel(" \n"), 0.7).Synthesize(context.Background(), []*schema.Message{schema.UserMessage("q")}, "", "")
	require.NoError(t, err)
	assert.Equal(t, ApologyMessage, out)

	boom := errors.New("503")
	_, err = NewSynthesizer(failingModel(boom), 0.7).Synthesize(context.Background(), []*schema.Message{schema.UserMessage("q")}, "", "")
	assert.ErrorIs(t, err, boom)
}

func TestRetrievalEngineFormatsDocuments(t *testing.T) {
	fr := &fakeRetriever{docs: langchainDocs()}
	blob, n, err := NewRetrievalEngine(fr, 3).Retrieve(context.Background(), "What is LangChain?")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, fr.topK)
	assert.Contains(t, blob, "[1] Introduction\nSource: docs/introduction.mdx\nURL: https://python.langchain.com/docs/introduction/\nLangChain is a framework")
	assert.Contains(t, blob, "[3] LCEL\nLCEL composes")
	assert.Contains(t, blob, contextSeparator)

	boom := errors.New("index down")
	_, _, err = NewRetrievalEngine(&fakeRetriever{err: boom}, 3).Retrieve(context.Background(), "q")
	assert.ErrorIs(t, err, boom)
}

func TestWebFallbackDegrades(t *testing.T) {
	w := NewWebFallback(&fakeSearcher{err: errors.New("dns failure")}, nil)
	assert.Equal(t, NoExternalContext, w.Search(context.Background(), "q"))

	w = NewWebFallback(&fakeSearcher{}, nil)
	assert.Equal(t, NoExternalContext, w.Search(context.Background(), "q"))

	w = NewWebFallback(nil, nil)
	assert.Equal(t, NoExternalContext, w.Search(context.Background(), "q"))

	w = NewWebFallback(&fakeSearcher{results: []websearch.Result{{Title: "Paris weather", URL: "https://weather.example/paris", Content: "Sunny, 21C"}}}, nil)
	assert.Contains(t, w.Search(context.Background(), "q"), "Sunny, 21C")
}
