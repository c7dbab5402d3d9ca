package narrator

import (
	"context"
	"fmt"
	"sync/atomic"

	"drink-recommender/internal/infrastructure/config"
	"drink-recommender/internal/pkg/common"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisCache redis 後端的敘事快取，多實例部署時可共享
type RedisCache struct {
	client *redis.Client
	config *config.Config
	hits   int64
	misses int64
}

// NewRedisCache 創建 redis 快取並測試連線
func NewRedisCache(cfg *config.Config) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr: cfg.Cache.RedisAddr,
	})

	// 測試連接
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	common.LogInfo("敘事快取已初始化",
		zap.String("backend", "redis"),
		zap.String("addr", cfg.Cache.RedisAddr),
		zap.Duration("存活時間", cfg.Cache.TTL),
	)

	return &RedisCache{
		client: client,
		config: cfg,
	}, nil
}

// Get 獲取快取值
func (s *RedisCache) Get(ctx context.Context, key string) (string, bool) {
	value, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			common.LogWarn("redis 快取讀取失敗",
				zap.Error(err),
			)
		}
		atomic.AddInt64(&s.misses, 1)
		common.LogCacheMiss("narration", key)
		return "", false
	}

	atomic.AddInt64(&s.hits, 1)
	common.LogCacheHit("narration", key)
	return value, true
}

// Set 設置快取值
func (s *RedisCache) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, key, value, s.config.Cache.TTL).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// Stats 獲取快取統計信息
func (s *RedisCache) Stats() map[string]interface{} {
	hits := atomic.LoadInt64(&s.hits)
	misses := atomic.LoadInt64(&s.misses)
	total := hits + misses
	var hitRatio float64
	if total > 0 {
		hitRatio = float64(hits) / float64(total)
	}

	return map[string]interface{}{
		"backend":   "redis",
		"hits":      hits,
		"misses":    misses,
		"hit_ratio": hitRatio,
	}
}

// Close 關閉 redis 連線
func (s *RedisCache) Close() error {
	return s.client.Close()
}
