package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore 为进程内实现，用于测试与临时会话，不跨进程持久。
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]Turn
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]Turn)}
}

func (s *MemoryStore) CreateIfMissing(ctx context.Context) error {
	return nil
}

func (s *MemoryStore) Append(ctx context.Context, sessionID, question, answer, modelID string) error {
	if sessionID == "" {
		return ErrEmptySessionID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = append(s.sessions[sessionID], Turn{
		Question:  question,
		Answer:    answer,
		ModelID:   modelID,
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

func (s *MemoryStore) Load(ctx context.Context, sessionID string) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns := s.sessions[sessionID]
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
