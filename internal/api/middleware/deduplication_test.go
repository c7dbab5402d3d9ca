package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"drink-recommender/internal/infrastructure/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestDeduplicationDistinguishesRequestBodies(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{DedupWindow: time.Minute}
	r := gin.New()
	r.POST("/bottles", Deduplication(cfg), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	post := func(body string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/bottles", strings.NewReader(body))
		r.ServeHTTP(w, req)
		return w.Code
	}

	// 指紋含請求體雜湊：同一用戶端帶不同酒櫃是不同請求，互不去重
	assert.Equal(t, http.StatusOK, post(`{"cabinet":["bourbon"]}`))
	assert.Equal(t, http.StatusOK, post(`{"cabinet":["gin"]}`))

	// 同一請求體在視窗內重送才會被攔下
	assert.Equal(t, http.StatusTooManyRequests, post(`{"cabinet":["bourbon"]}`))
}
