package agent

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"
	"github.com/wwwzy/RagAgent/internal/session"
	"github.com/wwwzy/RagAgent/internal/vectorstore"
	"github.com/wwwzy/RagAgent/internal/websearch"
)

// fakeChatModel 记录每次调用的输入与参数，由 respond 决定输出。
type fakeChatModel struct {
	mu      sync.Mutex
	respond func(in []*schema.Message) (*schema.Message, error)
	inputs  [][]*schema.Message
	temps   []float32
	models  []string
	tools   []*schema.ToolInfo
}

func (f *fakeChatModel) Generate(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	o := model.GetCommonOptions(nil, opts...)
	f.mu.Lock()
	f.inputs = append(f.inputs, in)
	if o.Temperature != nil {
		f.temps = append(f.temps, *o.Temperature)
	}
	if o.Model != nil {
		f.models = append(f.models, *o.Model)
	}
	f.mu.Unlock()
	return f.respond(in)
}

func (f *fakeChatModel) Stream(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported")
}

func (f *fakeChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	f.mu.Lock()
	f.tools = tools
	f.mu.Unlock()
	return f, nil
}

func (f *fakeChatModel) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inputs)
}

func (f *fakeChatModel) LastInput() []*schema.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.inputs) == 0 {
		return nil
	}
	return f.inputs[len(f.inputs)-1]
}

func textModel(text string) *fakeChatModel {
	return &fakeChatModel{respond: func([]*schema.Message) (*schema.Message, error) {
		return schema.AssistantMessage(text, nil), nil
	}}
}

func failingModel(err error) *fakeChatModel {
	return &fakeChatModel{respond: func([]*schema.Message) (*schema.Message, error) {
		return nil, err
	}}
}

func toolCallModel(name, args string) *fakeChatModel {
	return &fakeChatModel{respond: func([]*schema.Message) (*schema.Message, error) {
		return &schema.Message{
			Role: schema.Assistant,
			ToolCalls: []schema.ToolCall{{
				ID:       "call-1",
				Function: schema.FunctionCall{Name: name, Arguments: args},
			}},
		}, nil
	}}
}

// echoModel 原样返回最后一条 user 消息，用作改写阶段替身。
func echoModel() *fakeChatModel {
	return &fakeChatModel{respond: func(in []*schema.Message) (*schema.Message, error) {
		return schema.AssistantMessage(in[len(in)-1].Content, nil), nil
	}}
}

type fakeRetriever struct {
	mu    sync.Mutex
	docs  []*schema.Document
	err   error
	calls int
	topK  int
}

func (f *fakeRetriever) Retrieve(ctx context.Context, query string, opts ...retriever.Option) ([]*schema.Document, error) {
	o := retriever.GetCommonOptions(&retriever.Options{}, opts...)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if o.TopK != nil {
		f.topK = *o.TopK
	}
	return f.docs, f.err
}

func (f *fakeRetriever) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeSearcher struct {
	mu      sync.Mutex
	results []websearch.Result
	err     error
	calls   int
}

func (f *fakeSearcher) Search(ctx context.Context, query string) ([]websearch.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.results, f.err
}

func (f *fakeSearcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// failingAppendStore 读取正常、写入失败。
type failingAppendStore struct {
	session.Store
	err error
}

func (s failingAppendStore) Append(ctx context.Context, sessionID, question, answer, modelID string) error {
	return s.err
}

type failingLoadStore struct {
	session.Store
	err error
}

func (s failingLoadStore) Load(ctx context.Context, sessionID string) ([]session.Turn, error) {
	return nil, s.err
}

func langchainDocs() []*schema.Document {
	return []*schema.Document{
		{ID: "1", Content: "LangChain is a framework for developing applications powered by LLMs.", MetaData: map[string]any{
			vectorstore.MetaTitle: "Introduction", vectorstore.MetaSource: "docs/introduction.mdx", vectorstore.MetaURL: "https://python.langchain.com/docs/introduction/",
		}},
		{ID: "2", Content: "LangChain provides chains, agents and retrievers.", MetaData: map[string]any{
			vectorstore.MetaTitle: "Concepts", vectorstore.MetaURL: "https://python.langchain.com/docs/concepts/",
		}},
		{ID: "3", Content: "LCEL composes runnables declaratively.", MetaData: map[string]any{
			vectorstore.MetaTitle: "LCEL",
		}},
	}
}

func systemPrompt(in []*schema.Message) string {
	for _, m := range in {
		if m.Role == schema.System {
			return m.Content
		}
	}
	return ""
}

func lastUser(in []*schema.Message) string {
	for i := len(in) - 1; i >= 0; i-- {
		if in[i].Role == schema.User {
			return in[i].Content
		}
	}
	return ""
}

func containsWord(s, word string) bool {
	for _, f := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z')
	}) {
		if f == word {
			return true
		}
	}
	return false
}
