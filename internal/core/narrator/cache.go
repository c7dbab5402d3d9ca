package narrator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"drink-recommender/internal/infrastructure/config"
)

// NarrationCache 敘事快取：同一酒譜 / 技巧 / 酒櫃組合的敘事可重用
type NarrationCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string) error
	Stats() map[string]interface{}
	Close() error
}

// NewCache 依設定選擇快取後端；快取停用時回傳 nil
func NewCache(cfg *config.Config) (NarrationCache, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	switch cfg.Cache.Backend {
	case "redis":
		return NewRedisCache(cfg)
	case "memory":
		return NewMemoryCache(cfg), nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", cfg.Cache.Backend)
	}
}

// CacheKey 由酒譜、技巧與酒櫃內容生成穩定的快取鍵
// cabinet 必須已排序，確保同一酒櫃不因輸入順序產生不同鍵
func CacheKey(recipeID, skill string, cabinet []string) string {
	raw := recipeID + "|" + skill + "|" + strings.Join(cabinet, ",")
	hash := sha256.Sum256([]byte(raw))
	return "narration:" + hex.EncodeToString(hash[:])
}
