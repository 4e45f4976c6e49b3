package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wwwzy/RagAgent/internal/history"
	"github.com/wwwzy/RagAgent/internal/session"
	"github.com/wwwzy/RagAgent/internal/websearch"
)

const testModel = "openai/gpt-oss-120b:free"

type harness struct {
	contextualize *fakeChatModel
	route         *fakeChatModel
	judge         *fakeChatModel
	answer        *fakeChatModel
	retriever     *fakeRetriever
	searcher      *fakeSearcher
	store         session.Store
	svc           *Service
}

type harnessOption func(*harness)

func withRoute(r Route) harnessOption {
	return func(h *harness) {
		h.route = toolCallModel(routeToolName, fmt.Sprintf(`{"route":%q}`, r))
	}
}

func withSufficient(v bool) harnessOption {
	return func(h *harness) {
		h.judge = toolCallModel(judgeToolName, fmt.Sprintf(`{"sufficient":%t}`, v))
	}
}

func withStore(s session.Store) harnessOption {
	return func(h *harness) { h.store = s }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	h := &harness{
		contextualize: echoModel(),
		route:         toolCallModel(routeToolName, `{"route":"rag"}`),
		judge:         toolCallModel(judgeToolName, `{"sufficient":true}`),
		answer:        textModel("final answer"),
		retriever:     &fakeRetriever{docs: langchainDocs()},
		searcher: &fakeSearcher{results: []websearch.Result{{
			Title: "Paris weather", URL: "https://weather.example/paris", Content: "Sunny, 21C in Paris.",
		}}},
		store: session.NewMemoryStore(),
	}
	for _, opt := range opts {
		opt(h)
	}

	p := &Pipeline{
		Contextualizer: NewContextualizer(h.contextualize, 0),
		Router:         NewRouter(h.route, 0),
		Retrieval:      NewRetrievalEngine(h.retriever, 3),
		Judge:          NewJudge(h.judge, 0),
		Web:            NewWebFallback(h.searcher, nil),
		Synthesizer:    NewSynthesizer(h.answer, 0.7),
	}
	runnable, err := BuildGraph(context.Background(), p)
	require.NoError(t, err)

	svc, err := NewService(h.store, runnable, WithDefaultModel(testModel))
	require.NoError(t, err)
	h.svc = svc
	return h
}

func TestScenarioRetrievalSufficient(t *testing.T) {
	h := newHarness(t, withRoute(RouteRAG), withSufficient(true))

	resp, err := h.svc.Answer(context.Background(), Request{Question: "What is LangChain?"})
	require.NoError(t, err)

	assert.Equal(t, "final answer", resp.Answer)
	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, testModel, resp.ModelID)

	assert.Equal(t, 1, h.retriever.Calls())
	assert.Equal(t, 1, h.judge.Calls())
	assert.Equal(t, 0, h.searcher.Calls())
	require.Equal(t, 1, h.answer.Calls())

	sys := systemPrompt(h.answer.LastInput())
	assert.Contains(t, sys, "LangChain is a framework for developing applications")
	assert.NotContains(t, sys, "Sunny")

	turns, err := h.store.Load(context.Background(), resp.SessionID)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "What is LangChain?", turns[0].Question)
	assert.Equal(t, "final answer", turns[0].Answer)
	assert.Equal(t, testModel, turns[0].ModelID)
}

func TestScenarioRetrievalInsufficientUsesWebOnly(t *testing.T) {
	h := newHarness(t, withRoute(RouteRAG), withSufficient(false))

	_, err := h.svc.Answer(context.Background(), Request{Question: "What changed in LangChain last week?"})
	require.NoError(t, err)

	assert.Equal(t, 1, h.retriever.Calls())
	assert.Equal(t, 1, h.judge.Calls())
	assert.Equal(t, 1, h.searcher.Calls())
	require.Equal(t, 1, h.answer.Calls())

	sys := systemPrompt(h.answer.LastInput())
	assert.Contains(t, sys, "Sunny, 21C in Paris.")
	assert.NotContains(t, sys, "LangChain is a framework for developing applications")
}

func TestScenarioWebRoute(t *testing.T) {
	h := newHarness(t, withRoute(RouteWeb))

	resp, err := h.svc.Answer(context.Background(), Request{Question: "What's the weather in Paris today?"})
	require.NoError(t, err)
	assert.Equal(t, "final answer", resp.Answer)

	assert.Equal(t, 0, h.retriever.Calls())
	assert.Equal(t, 0, h.judge.Calls())
	assert.Equal(t, 1, h.searcher.Calls())
	assert.Equal(t, 1, h.answer.Calls())
	assert.Contains(t, systemPrompt(h.answer.LastInput()), "Sunny, 21C in Paris.")
}

func TestScenarioDirectRouteSkipsLookups(t *testing.T) {
	h := newHarness(t, withRoute(RouteAnswer))

	_, err := h.svc.Answer(context.Background(), Request{Question: "Tell me a joke"})
	require.NoError(t, err)

	assert.Equal(t, 0, h.retriever.Calls())
	assert.Equal(t, 0, h.searcher.Calls())
	assert.Equal(t, 0, h.judge.Calls())
	assert.Equal(t, 1, h.answer.Calls())
	assert.NotContains(t, systemPrompt(h.answer.LastInput()), "Context:")
}

func TestScenarioWebFailureDegrades(t *testing.T) {
	h := newHarness(t, withRoute(RouteWeb))
	h.searcher.err = errors.New("connection refused")

	resp, err := h.svc.Answer(context.Background(), Request{Question: "What's the weather in Paris today?"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Answer)
	assert.Equal(t, 1, h.answer.Calls())
	assert.Contains(t, systemPrompt(h.answer.LastInput()), NoExternalContext)
}

func TestScenarioFollowUpResolvesPronoun(t *testing.T) {
	h := newHarness(t, withRoute(RouteRAG))
	// 有历史时把 it 替换为上一轮问题中的主题，否则原样返回
	h.contextualize.respond = func(in []*schema.Message) (*schema.Message, error) {
		q := in[len(in)-1].Content
		if len(in) > 2 && containsWord(q, "it") {
			q = strings.Replace(q, "it", "LangChain", 1)
		}
		return schema.AssistantMessage(q, nil), nil
	}

	first, err := h.svc.Answer(context.Background(), Request{Question: "What is LangChain?"})
	require.NoError(t, err)

	_, err = h.svc.Answer(context.Background(), Request{Question: "What is it used for?", SessionID: first.SessionID})
	require.NoError(t, err)

	in := h.contextualize.LastInput()
	// system + 上一轮 user/assistant + 本轮问题
	require.Len(t, in, 4)
	assert.Equal(t, "What is LangChain?", in[1].Content)

	standalone := lastUser(h.route.LastInput())
	assert.Equal(t, "What is LangChain used for?", standalone)
	assert.False(t, containsWord(standalone, "it"))

	turns, err := h.store.Load(context.Background(), first.SessionID)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	// 记录保存原始问题
	assert.Equal(t, "What is it used for?", turns[1].Question)
}

func TestAnswerNTimesPersistsNTurnsInOrder(t *testing.T) {
	h := newHarness(t)
	routes := []Route{RouteRAG, RouteWeb, RouteAnswer, RouteRAG, RouteWeb}
	i := 0
	h.route.respond = func([]*schema.Message) (*schema.Message, error) {
		r := routes[i%len(routes)]
		i++
		return &schema.Message{Role: schema.Assistant, ToolCalls: []schema.ToolCall{{
			ID: "c", Function: schema.FunctionCall{Name: routeToolName, Arguments: fmt.Sprintf(`{"route":%q}`, r)},
		}}}, nil
	}

	sid := "session-fixed"
	for n := range routes {
		resp, err := h.svc.Answer(context.Background(), Request{Question: fmt.Sprintf("question %d", n), SessionID: sid})
		require.NoError(t, err)
		assert.Equal(t, sid, resp.SessionID)
	}

	turns, err := h.store.Load(context.Background(), sid)
	require.NoError(t, err)
	require.Len(t, turns, len(routes))
	for n, turn := range turns {
		assert.Equal(t, fmt.Sprintf("question %d", n), turn.Question)
	}

	// load 再转回问答对与存储一致
	msgs, err := history.Load(context.Background(), h.store, sid)
	require.NoError(t, err)
	pairs, err := history.ToPairs(msgs)
	require.NoError(t, err)
	require.Len(t, pairs, len(turns))
	for n := range turns {
		assert.Equal(t, turns[n].Question, pairs[n].Question)
		assert.Equal(t, turns[n].Answer, pairs[n].Answer)
	}
}

func TestGeneratedSessionIDsAreDistinct(t *testing.T) {
	h := newHarness(t, withRoute(RouteAnswer))
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		resp, err := h.svc.Answer(context.Background(), Request{Question: "hello"})
		require.NoError(t, err)
		require.NotEmpty(t, resp.SessionID)
		assert.False(t, seen[resp.SessionID], "duplicate session id %s", resp.SessionID)
		seen[resp.SessionID] = true
	}
}

func TestOutOfSchemaRouteFailsPipeline(t *testing.T) {
	for _, raw := range []string{`{"route":"database"}`, `{"route":"end","reply":"bye"}`} {
		h := newHarness(t)
		h.route = toolCallModel(routeToolName, raw)
		p := &Pipeline{
			Contextualizer: NewContextualizer(h.contextualize, 0),
			Router:         NewRouter(h.route, 0),
			Retrieval:      NewRetrievalEngine(h.retriever, 3),
			Judge:          NewJudge(h.judge, 0),
			Web:            NewWebFallback(h.searcher, nil),
			Synthesizer:    NewSynthesizer(h.answer, 0.7),
		}
		runnable, err := BuildGraph(context.Background(), p)
		require.NoError(t, err)
		svc, err := NewService(h.store, runnable)
		require.NoError(t, err)

		_, err = svc.Answer(context.Background(), Request{Question: "q", SessionID: "s"})
		require.Error(t, err, raw)
		assert.ErrorIs(t, err, ErrPipelineFailed)
		assert.Equal(t, 0, h.answer.Calls())
		assert.Equal(t, 0, h.retriever.Calls())

		turns, err := h.store.Load(context.Background(), "s")
		require.NoError(t, err)
		assert.Empty(t, turns, "no partial writes")
	}
}

func TestStageFailuresPropagate(t *testing.T) {
	boom := errors.New("upstream 500")

	h := newHarness(t)
	h.contextualize.respond = func([]*schema.Message) (*schema.Message, error) { return nil, boom }
	_, err := h.svc.Answer(context.Background(), Request{Question: "q"})
	assert.ErrorIs(t, err, ErrPipelineFailed)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, h.route.Calls())

	h = newHarness(t, withRoute(RouteRAG))
	h.retriever.err = boom
	_, err = h.svc.Answer(context.Background(), Request{Question: "q"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, h.judge.Calls())
	assert.Equal(t, 0, h.answer.Calls())

	h = newHarness(t, withRoute(RouteAnswer))
	h.answer.respond = func([]*schema.Message) (*schema.Message, error) { return nil, boom }
	_, err = h.svc.Answer(context.Background(), Request{Question: "q"})
	assert.ErrorIs(t, err, boom)
}

func TestEmptyAnswerBecomesApology(t *testing.T) {
	h := newHarness(t, withRoute(RouteAnswer))
	h.answer.respond = func([]*schema.Message) (*schema.Message, error) {
		return schema.AssistantMessage("", nil), nil
	}
	resp, err := h.svc.Answer(context.Background(), Request{Question: "q"})
	require.NoError(t, err)
	assert.Equal(t, ApologyMessage, resp.Answer)
}

func TestPersistFailureStillReturnsAnswer(t *testing.T) {
	h := newHarness(t, withRoute(RouteAnswer), withStore(failingAppendStore{Store: session.NewMemoryStore(), err: errors.New("disk full")}))
	resp, err := h.svc.Answer(context.Background(), Request{Question: "q", SessionID: "s-1"})
	require.NoError(t, err)
	assert.Equal(t, "final answer", resp.Answer)
	assert.Equal(t, "s-1", resp.SessionID)
}

func TestHistoryLoadFailurePropagates(t *testing.T) {
	boom := errors.New("db locked")
	h := newHarness(t, withStore(failingLoadStore{Store: session.NewMemoryStore(), err: boom}))
	_, err := h.svc.Answer(context.Background(), Request{Question: "q", SessionID: "s-1"})
	assert.ErrorIs(t, err, ErrPipelineFailed)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, h.contextualize.Calls())
}

func TestRequestModelOverridesDefault(t *testing.T) {
	h := newHarness(t, withRoute(RouteAnswer))
	resp, err := h.svc.Answer(context.Background(), Request{Question: "q", ModelID: "custom-model"})
	require.NoError(t, err)
	assert.Equal(t, "custom-model", resp.ModelID)
	assert.Equal(t, []string{"custom-model"}, h.answer.models)
	assert.Equal(t, []string{"custom-model"}, h.route.models)
}

func TestEmptyQuestionRejected(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Answer(context.Background(), Request{Question: "   "})
	assert.ErrorIs(t, err, ErrEmptyQuestion)
	assert.Equal(t, 0, h.contextualize.Calls())
}

func TestConcurrentRequestsSameSession(t *testing.T) {
	h := newHarness(t, withRoute(RouteAnswer))
	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := h.svc.Answer(context.Background(), Request{Question: fmt.Sprintf("q%d", i), SessionID: "shared"})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	turns, err := h.store.Load(context.Background(), "shared")
	require.NoError(t, err)
	assert.Len(t, turns, n)
}

func TestBuildGraphValidatesPipeline(t *testing.T) {
	_, err := BuildGraph(context.Background(), &Pipeline{})
	assert.Error(t, err)
	_, err = BuildGraph(context.Background(), nil)
	assert.Error(t, err)
}

func TestStageSamplingTemperatures(t *testing.T) {
	h := newHarness(t, withRoute(RouteRAG), withSufficient(true))

	_, err := h.svc.Answer(context.Background(), Request{Question: "What is LangChain?"})
	require.NoError(t, err)

	require.Equal(t, []float32{0}, h.contextualize.temps)
	require.Len(t, h.route.temps, 1)
	require.Len(t, h.judge.temps, 1)
	require.Len(t, h.answer.temps, 1)

	structured := max(h.route.temps[0], h.judge.temps[0])
	assert.Greater(t, h.answer.temps[0], structured)
}
