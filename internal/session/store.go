// Package session 提供会话记录的持久化边界。
//
// 一个会话是同一 ID 下按写入顺序排列的问答轮次。驱动需保证单次 Append 原子，
// 同一会话的并发写入按到达顺序追加，不需要跨会话加锁。
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidConfig    = errors.New("invalid session store configuration")
	ErrInvalidStoreType = errors.New("invalid session store type")
	ErrEmptySessionID   = errors.New("session id is empty")
)

// Turn 为一次已完成的问答，写入后不可变。
type Turn struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	ModelID   string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
}

// Store 为会话存储接口。
type Store interface {
	// CreateIfMissing 确保底层结构（表/键空间）可用，可重复调用。
	CreateIfMissing(ctx context.Context) error
	// Append 向会话末尾原子追加一轮问答。
	Append(ctx context.Context, sessionID, question, answer, modelID string) error
	// Load 按写入顺序返回会话全部轮次；未知会话返回空切片。
	Load(ctx context.Context, sessionID string) ([]Turn, error)
	Close() error
}

// NewSessionID 生成新的不透明会话 ID。
func NewSessionID() string {
	return uuid.NewString()
}

// EnsureID 返回调用方提供的 ID；为空时生成新 ID。
func EnsureID(id string) string {
	if id != "" {
		return id
	}
	return NewSessionID()
}

// StoreType 为驱动类型。
type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeSQLite StoreType = "sqlite"
	StoreTypeRedis  StoreType = "redis"
)

// NewStore 按类型创建会话存储。
// sqlite 需要 WithStorage，redis 需要 WithRedisClient。
func NewStore(storeType StoreType, opts ...StoreOption) (Store, error) {
	cfg := &storeConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	switch storeType {
	case StoreTypeMemory:
		return NewMemoryStore(), nil
	case StoreTypeSQLite:
		if cfg.storage == nil {
			return nil, ErrInvalidConfig
		}
		return NewSQLiteStore(cfg.storage), nil
	case StoreTypeRedis:
		if cfg.redisClient == nil {
			return nil, ErrInvalidConfig
		}
		return NewRedisStore(cfg.redisClient, cfg.redisTTL, cfg.redisPrefix), nil
	default:
		return nil, ErrInvalidStoreType
	}
}
