package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisKeyPrefix = "ragagent:session:"

// RedisStore 以列表保存每个会话，RPUSH 保证单次追加原子且按到达顺序。
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisStore(client *redis.Client, ttl time.Duration, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisKeyPrefix
	}
	return &RedisStore{client: client, ttl: ttl, prefix: prefix}
}

func (s *RedisStore) CreateIfMissing(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Append(ctx context.Context, sessionID, question, answer, modelID string) error {
	if sessionID == "" {
		return ErrEmptySessionID
	}
	val, err := json.Marshal(Turn{
		Question:  question,
		Answer:    answer,
		ModelID:   modelID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	key := s.key(sessionID)
	if s.ttl <= 0 {
		if err := s.client.RPush(ctx, key, val).Err(); err != nil {
			return fmt.Errorf("append session turn: %w", err)
		}
		return nil
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, val)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("append session turn: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, sessionID string) ([]Turn, error) {
	vals, err := s.client.LRange(ctx, s.key(sessionID), 0, -1).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	out := make([]Turn, 0, len(vals))
	for i, v := range vals {
		var t Turn
		if err := json.Unmarshal([]byte(v), &t); err != nil {
			return nil, fmt.Errorf("decode session turn %d: %w", i, err)
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}
