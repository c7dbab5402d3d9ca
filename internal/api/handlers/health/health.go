package health

import (
	"net/http"
	"runtime"
	"time"

	"drink-recommender/internal/core/engine"
	"drink-recommender/internal/core/narrator"
	"drink-recommender/internal/infrastructure/config"
	"drink-recommender/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime"`
	Sessions  int                    `json:"sessions"`
	Narrator  *NarratorStatus        `json:"narrator,omitempty"`
}

// NarratorStatus Narrator 隊列狀態
type NarratorStatus struct {
	QueueLength    int `json:"queue_length"`
	ProcessedCount int `json:"processed_count"`
	MaxQueueSize   int `json:"max_queue_size"`
	Workers        int `json:"workers"`
}

// HealthCheck 健康檢查處理器
func HealthCheck(c *gin.Context) {
	// 獲取配置
	cfg, exists := c.Get("config")
	if !exists {
		common.LogError("Configuration not found in context")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Configuration not found",
		})
		return
	}
	config, ok := cfg.(*config.Config)
	if !ok {
		common.LogError("Invalid configuration type in context")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Invalid configuration type",
		})
		return
	}

	// 獲取運行時信息
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	// 構建響應
	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   config.App.Version,
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
	}

	// 活躍會話數
	if orch, exists := c.Get("orchestrator"); exists {
		if o, ok := orch.(*engine.Orchestrator); ok {
			response.Sessions = o.SessionCount()
		}
	}

	// Narrator 隊列狀態（停用時省略）
	if svc, exists := c.Get("narrator_service"); exists {
		if s, ok := svc.(*narrator.Service); ok && s != nil {
			if qs := s.QueueStatus(); qs != nil {
				response.Narrator = &NarratorStatus{
					QueueLength:    qs.QueueLength,
					ProcessedCount: qs.ProcessedCount,
					MaxQueueSize:   qs.MaxQueueSize,
					Workers:        qs.Workers,
				}
			}
		}
	}

	// 記錄請求
	common.LogInfo("Health check request",
		zap.String("client_ip", c.ClientIP()),
		zap.String("path", c.Request.URL.Path),
	)

	c.JSON(http.StatusOK, response)
}

// ReadinessCheck 就緒檢查處理器
func ReadinessCheck(c *gin.Context) {
	// 目錄載入失敗時服務不會啟動，走到這裡即代表就緒
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
	})
}

// LivenessCheck 存活檢查處理器
func LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
