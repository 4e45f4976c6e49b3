package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/wwwzy/RagAgent/internal/storage"
)

// SQLiteStore 将会话记录写入 conversation_turns 表，重启后可恢复。
type SQLiteStore struct {
	storage *storage.Storage
}

func NewSQLiteStore(s *storage.Storage) *SQLiteStore {
	return &SQLiteStore{storage: s}
}

func (s *SQLiteStore) CreateIfMissing(ctx context.Context) error {
	if s == nil || s.storage == nil {
		return errors.New("session store not initialized")
	}
	return s.storage.Migrate(ctx)
}

// Append 单条 INSERT 即为原子写入；Load 按自增 ID 读取，顺序即写入顺序。
func (s *SQLiteStore) Append(ctx context.Context, sessionID, question, answer, modelID string) error {
	if sessionID == "" {
		return ErrEmptySessionID
	}
	if s == nil || s.storage == nil {
		return errors.New("session store not initialized")
	}
	turn := &storage.ConversationTurn{
		SessionID: sessionID,
		Question:  question,
		Answer:    answer,
		Model:     modelID,
	}
	if err := s.storage.InsertTurn(ctx, turn); err != nil {
		return fmt.Errorf("append session turn: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, sessionID string) ([]Turn, error) {
	if s == nil || s.storage == nil {
		return nil, errors.New("session store not initialized")
	}
	if sessionID == "" {
		return []Turn{}, nil
	}
	rows, err := s.storage.SessionTurns(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	out := make([]Turn, 0, len(rows))
	for _, r := range rows {
		out = append(out, Turn{
			Question:  r.Question,
			Answer:    r.Answer,
			ModelID:   r.Model,
			CreatedAt: r.CreatedAt,
		})
	}
	return out, nil
}

// Close 不关闭底层存储，其生命周期由创建方管理。
func (s *SQLiteStore) Close() error {
	return nil
}
