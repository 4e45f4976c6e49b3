package agent

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wwwzy/RagAgent/internal/storage"
)

func openAuditStorage(t *testing.T) *storage.Storage {
	t.Helper()
	st, err := storage.Open(context.Background(), storage.Config{
		Path:         filepath.Join(t.TempDir(), "audit.db"),
		EnableWAL:    true,
		MaxOpenConns: 1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestAuditHandlerRecordsEachNode(t *testing.T) {
	st := openAuditStorage(t)
	h := newHarness(t, withRoute(RouteRAG), withSufficient(false))
	h.svc.handlers = append(h.svc.handlers, NewAuditHandler(st, nil), NewLogHandler(nil))

	resp, err := h.svc.Answer(context.Background(), Request{Question: "What is LangChain?"})
	require.NoError(t, err)

	recs, err := st.QueryAuditRecords(context.Background(), storage.AuditQuery{SessionID: resp.SessionID, Limit: 50})
	require.NoError(t, err)

	var actions []string
	for _, r := range recs {
		actions = append(actions, r.Action)
		assert.Equal(t, storage.AuditStatusSuccess, r.Status, r.Action)
		assert.NotEmpty(t, r.TraceID)
		assert.False(t, r.FinishedAt.IsZero(), r.Action)
	}
	assert.ElementsMatch(t,
		[]string{NodeContextualize, NodeRouter, NodeRetrieve, NodeJudge, NodeWebSearch, NodeSynthesize},
		actions,
	)
}

func TestAuditHandlerRecordsFailure(t *testing.T) {
	st := openAuditStorage(t)
	h := newHarness(t, withRoute(RouteRAG))
	h.retriever.err = errors.New("index down")
	h.svc.handlers = append(h.svc.handlers, NewAuditHandler(st, nil))

	_, err := h.svc.Answer(context.Background(), Request{Question: "q", SessionID: "s-audit"})
	require.Error(t, err)

	recs, err := st.QueryAuditRecords(context.Background(), storage.AuditQuery{
		SessionID: "s-audit",
		Action:    NodeRetrieve,
	})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, storage.AuditStatusFailed, recs[0].Status)
	assert.Contains(t, recs[0].ErrorMessage, "index down")
}

func TestSummarize(t *testing.T) {
	s := AgentState{Question: "q"}.WithStandalone("sq")
	s, _ = s.WithRoute(RouteDecision{Route: RouteAnswer})
	s = s.WithAnswer("done")
	out := summarize(s)
	assert.Contains(t, out, `"route":"answer"`)
	assert.Contains(t, out, `"answer":"done"`)

	assert.Equal(t, "string", summarize("x"))
	assert.Equal(t, "abc...(truncated)", truncate("abcdef", 3))
}
