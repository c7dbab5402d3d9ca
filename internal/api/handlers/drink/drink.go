package drink

import (
	"errors"
	"net/http"

	"drink-recommender/internal/core/catalog"
	"drink-recommender/internal/core/engine"
	"drink-recommender/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RecommendRequest 推薦請求：酒櫃、心情與偏好
type RecommendRequest struct {
	SessionID string                `json:"session_id,omitempty"` // 選填：重置既有會話
	Cabinet   []string              `json:"cabinet" binding:"required"`
	Mood      catalog.FlavorProfile `json:"mood"`
	Skill     string                `json:"skill,omitempty"`      // beginner | intermediate | advanced
	DrinkType string                `json:"drink_type,omitempty"` // cocktail | mocktail，省略表示不限
	History   []string              `json:"history,omitempty"`    // 近期喝過的酒譜 id
}

// AnotherRequest 換一杯請求
type AnotherRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

// BottlesRequest 解鎖建議請求（無會話）
type BottlesRequest struct {
	Cabinet   []string `json:"cabinet" binding:"required"`
	DrinkType string   `json:"drink_type,omitempty"`
	Limit     int      `json:"limit,omitempty"`
}

// EndRequest 結束會話請求
type EndRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

// Handler 飲品推薦處理程序
type Handler struct {
	orchestrator *engine.Orchestrator
}

// NewHandler 創建新的飲品推薦處理程序
func NewHandler(orchestrator *engine.Orchestrator) *Handler {
	return &Handler{orchestrator: orchestrator}
}

// HandleRecommend 依酒櫃與偏好推薦一杯
func (h *Handler) HandleRecommend(c *gin.Context) {
	requestID := ensureRequestID(c)

	common.LogInfo("開始處理推薦請求",
		zap.String("request_id", requestID),
		zap.String("client_ip", c.ClientIP()),
	)

	var req RecommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.LogError("請求格式無效",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	drinkType := catalog.DrinkType(req.DrinkType)
	if !drinkType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid drink_type",
			"code":  common.ErrCodeInvalidRequest,
		})
		return
	}

	rec, err := h.orchestrator.Recommend(c.Request.Context(), engine.RecommendRequest{
		SessionID:     req.SessionID,
		Cabinet:       req.Cabinet,
		Mood:          req.Mood,
		Skill:         engine.SkillLevel(req.Skill),
		DrinkType:     drinkType,
		RecentHistory: req.History,
	})
	if err != nil {
		writeError(c, requestID, err)
		return
	}

	// 請求日誌要帶的會話脈絡
	c.Set("session_id", rec.SessionID)
	c.Set("fallback_rung", int(rec.Rung))

	common.LogInfo("推薦完成",
		zap.String("request_id", requestID),
		zap.String("session_id", rec.SessionID),
		zap.String("recipe_id", rec.Selected.RecipeID),
		zap.Int("fallback_rung", int(rec.Rung)),
	)

	c.JSON(http.StatusOK, rec)
}

// HandleAnother 拒絕目前選擇並換下一杯
func (h *Handler) HandleAnother(c *gin.Context) {
	requestID := ensureRequestID(c)

	var req AnotherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.LogError("請求格式無效",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	c.Set("session_id", req.SessionID)

	alt, err := h.orchestrator.Another(c.Request.Context(), req.SessionID)
	if err != nil {
		writeError(c, requestID, err)
		return
	}

	if alt.Exhausted {
		common.LogInfo("候選已耗盡",
			zap.String("request_id", requestID),
			zap.String("session_id", req.SessionID),
		)
	}

	c.JSON(http.StatusOK, alt)
}

// HandleBottles 建議下一瓶最值得買的酒
func (h *Handler) HandleBottles(c *gin.Context) {
	requestID := ensureRequestID(c)

	var req BottlesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.LogError("請求格式無效",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	drinkType := catalog.DrinkType(req.DrinkType)
	if !drinkType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid drink_type",
			"code":  common.ErrCodeInvalidRequest,
		})
		return
	}

	unlocks, err := h.orchestrator.SuggestBottles(req.Cabinet, drinkType, req.Limit)
	if err != nil {
		writeError(c, requestID, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"unlocks": unlocks})
}

// HandleEnd 結束會話
func (h *Handler) HandleEnd(c *gin.Context) {
	requestID := ensureRequestID(c)

	var req EndRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.LogError("請求格式無效",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	c.Set("session_id", req.SessionID)

	if err := h.orchestrator.EndSession(req.SessionID); err != nil {
		writeError(c, requestID, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ended"})
}

// ensureRequestID 確保每個請求都有 X-Request-ID
func ensureRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.New().String()
		c.Header("X-Request-ID", requestID)
	}
	return requestID
}

// writeError 把 CustomError 對應到 HTTP 響應，未知錯誤一律 500
func writeError(c *gin.Context, requestID string, err error) {
	var ce *common.CustomError
	if errors.As(err, &ce) {
		common.LogWarn("請求處理失敗",
			zap.String("request_id", requestID),
			zap.String("code", ce.Code),
			zap.Error(err),
		)
		c.JSON(ce.Status, common.ErrorResponse{
			Code:    ce.Code,
			Message: ce.Message,
		})
		return
	}

	common.LogError("請求處理失敗",
		zap.String("request_id", requestID),
		zap.Error(err),
	)
	c.JSON(http.StatusInternalServerError, common.ErrorResponse{
		Code:    common.ErrCodeInternalError,
		Message: "服務器內部錯誤",
	})
}
