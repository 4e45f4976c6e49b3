package websearch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wwwzy/RagAgent/internal/config"
)

func TestTavilySearch(t *testing.T) {
	var got tavilyRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Bearer tvly-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[
			{"title":"LangGraph overview","url":"https://langchain-ai.github.io/langgraph/","content":"LangGraph builds stateful agents.","score":0.91},
			{"title":"Empty","url":"https://example.com","content":"  ","score":0.1}
		]}`))
	}))
	defer srv.Close()

	tv, err := NewTavily("tvly-test", WithBaseURL(srv.URL+"/"), WithMaxResults(3))
	require.NoError(t, err)

	results, err := tv.Search(context.Background(), "what is langgraph")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "what is langgraph", got.Query)
	assert.Equal(t, 3, got.MaxResults)
	assert.Equal(t, "LangGraph overview", results[0].Title)

	text := Format(results)
	assert.Contains(t, text, "[1] LangGraph overview")
	assert.Contains(t, text, "URL: https://langchain-ai.github.io/langgraph/")
	assert.NotContains(t, text, "[2]")
}

func TestTavilyErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	tv, err := NewTavily("bad", WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = tv.Search(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestTavilyRejectsEmptyQuery(t *testing.T) {
	tv, err := NewTavily("k")
	require.NoError(t, err)
	_, err = tv.Search(context.Background(), "   ")
	assert.Error(t, err)
}

func TestTavilyTimeoutLeavesSharedClient(t *testing.T) {
	shared := &http.Client{Timeout: time.Minute}

	tv, err := NewTavily("k", WithHTTPClient(shared), WithTimeout(2*time.Second))
	require.NoError(t, err)
	assert.Equal(t, time.Minute, shared.Timeout)
	assert.NotSame(t, shared, tv.httpClient)
	assert.Equal(t, 2*time.Second, tv.httpClient.Timeout)

	// 选项顺序不影响结果
	tv, err = NewTavily("k", WithTimeout(3*time.Second), WithHTTPClient(shared))
	require.NoError(t, err)
	assert.Equal(t, time.Minute, shared.Timeout)
	assert.Equal(t, 3*time.Second, tv.httpClient.Timeout)

	tv, err = NewTavily("k", WithHTTPClient(shared))
	require.NoError(t, err)
	assert.Same(t, shared, tv.httpClient)
}

func TestNewFromConfig(t *testing.T) {
	s, err := New(config.WebSearchConfig{Enabled: false})
	require.NoError(t, err)
	_, err = s.Search(context.Background(), "q")
	assert.ErrorIs(t, err, ErrDisabled)

	_, err = New(config.WebSearchConfig{Enabled: true, Provider: "tavily"})
	assert.Error(t, err, "missing api key")

	_, err = New(config.WebSearchConfig{Enabled: true, Provider: "bing", APIKey: "k"})
	assert.Error(t, err)

	s, err = New(config.WebSearchConfig{Enabled: true, Provider: "tavily", APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &Tavily{}, s)
}

func TestFormatEmpty(t *testing.T) {
	assert.Empty(t, Format(nil))
}
