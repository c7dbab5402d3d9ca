package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterAllowsUpToCapacity(t *testing.T) {
	rl := NewRateLimiter(10, time.Second)

	for i := 0; i < 10; i++ {
		require.True(t, rl.Allow(), "第 %d 個請求應在容量內", i+1)
	}
	assert.False(t, rl.Allow())
}

func TestRateLimiterRefillsUnderFrequentPolling(t *testing.T) {
	rl := NewRateLimiter(10, time.Second)

	// 先耗盡令牌
	for rl.Allow() {
	}

	// 以遠高於補充速率的頻率輪詢：單次間隔湊不滿一枚整令牌，桶仍須補回
	deadline := time.Now().Add(time.Second)
	refilled := false
	for time.Now().Before(deadline) {
		if rl.Allow() {
			refilled = true
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	assert.True(t, refilled, "高頻輪詢下令牌桶不再補充")
}
