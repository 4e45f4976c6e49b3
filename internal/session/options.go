package session

import (
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wwwzy/RagAgent/internal/storage"
)

// StoreOption 为会话存储的函数式配置项。
type StoreOption func(*storeConfig)

type storeConfig struct {
	storage     *storage.Storage
	redisClient *redis.Client
	redisTTL    time.Duration
	redisPrefix string
}

// WithStorage 指定 sqlite 驱动使用的存储。
func WithStorage(s *storage.Storage) StoreOption {
	return func(c *storeConfig) {
		c.storage = s
	}
}

func WithRedisClient(client *redis.Client) StoreOption {
	return func(c *storeConfig) {
		c.redisClient = client
	}
}

// WithRedisTTL 设置会话键过期时间；<=0 表示不过期。
func WithRedisTTL(ttl time.Duration) StoreOption {
	return func(c *storeConfig) {
		c.redisTTL = ttl
	}
}

func WithRedisKeyPrefix(prefix string) StoreOption {
	return func(c *storeConfig) {
		c.redisPrefix = prefix
	}
}
