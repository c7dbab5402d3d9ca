package middleware

import (
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"drink-recommender/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimiter 限流器結構（令牌桶）
// 令牌以小數累積：高頻輪詢下單次間隔湊不滿一枚整令牌，桶仍會隨時間補回
type RateLimiter struct {
	mu       sync.Mutex
	tokens   float64
	capacity float64
	rate     float64
	lastTime time.Time
}

// NewRateLimiter 創建新的限流器
func NewRateLimiter(requests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		tokens:   float64(requests),
		capacity: float64(requests),
		rate:     float64(requests) / window.Seconds(),
		lastTime: time.Now(),
	}
}

// Allow 檢查是否允許請求
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(rl.lastTime).Seconds()
	rl.lastTime = now

	// 添加新令牌
	rl.tokens = math.Min(rl.capacity, rl.tokens+elapsed*rl.rate)

	// 檢查是否有可用令牌
	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}

	return false
}

// limiterPool 按客戶端 IP 維護限流器，避免單一使用者佔滿全域額度
type limiterPool struct {
	mu       sync.Mutex
	limiters map[string]*RateLimiter
	lastSeen map[string]time.Time
	requests int
	window   time.Duration
}

func newLimiterPool(requests int, window time.Duration) *limiterPool {
	p := &limiterPool{
		limiters: make(map[string]*RateLimiter),
		lastSeen: make(map[string]time.Time),
		requests: requests,
		window:   window,
	}
	// 清理長時間未出現的 IP
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			now := time.Now()
			p.mu.Lock()
			for ip, t := range p.lastSeen {
				if now.Sub(t) > 10*window {
					delete(p.limiters, ip)
					delete(p.lastSeen, ip)
				}
			}
			p.mu.Unlock()
		}
	}()
	return p
}

func (p *limiterPool) get(ip string) *RateLimiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	limiter, exists := p.limiters[ip]
	if !exists {
		limiter = NewRateLimiter(p.requests, p.window)
		p.limiters[ip] = limiter
	}
	p.lastSeen[ip] = time.Now()
	return limiter
}

// RateLimit 限流中間件，按客戶端 IP 分別計數
func RateLimit(requests int, window time.Duration) gin.HandlerFunc {
	pool := newLimiterPool(requests, window)

	return func(c *gin.Context) {
		if !pool.get(c.ClientIP()).Allow() {
			common.LogInfo("Rate limit exceeded",
				zap.String("ip", c.ClientIP()),
				zap.String("path", c.Request.URL.Path),
			)

			c.Header("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Too many requests",
				"retry_after": window.Seconds(),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
