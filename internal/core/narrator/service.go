package narrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"drink-recommender/internal/core/catalog"
	"drink-recommender/internal/infrastructure/config"
	"drink-recommender/internal/pkg/common"
)

// Service 預設的 Narrator 實作：快取 → 隊列 → OpenRouter
type Service struct {
	config *config.Config
	queue  *Queue
	cache  NarrationCache
}

// NewService 創建 Narrator 服務；OpenRouter 停用時回傳 nil（呼叫方降級）
func NewService(cfg *config.Config, cache NarrationCache) *Service {
	if !cfg.OpenRouter.Enabled {
		common.LogInfo("Narrator 已停用，所有推薦將回傳純結構化酒譜")
		return nil
	}

	client := NewOpenRouterClient(cfg)
	return &Service{
		config: cfg,
		queue:  NewQueue(cfg, client),
		cache:  cache,
	}
}

// Narrate 產生酒譜敘事，受設定的超時約束
// 所有失敗統一對應 NARRATOR_UNAVAILABLE，由呼叫方決定降級
func (s *Service) Narrate(ctx context.Context, recipe *catalog.Recipe, skill string, cabinet []string) (*Narration, error) {
	if recipe == nil {
		return nil, common.WrapError(common.ErrNarratorUnavailable, fmt.Errorf("nil recipe"))
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.OpenRouter.Timeout)
	defer cancel()

	key := CacheKey(recipe.ID, skill, cabinet)
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, key); ok {
			if narration, err := parseNarration(cached); err == nil {
				return narration, nil
			}
			// 快取損壞時照常重新生成
		}
	}

	start := time.Now()
	content, err := s.queue.Submit(ctx, buildNarrationPrompt(recipe, skill, cabinet))
	common.LogNarratorCall(recipe.ID, time.Since(start), err)
	if err != nil {
		return nil, common.WrapError(common.ErrNarratorUnavailable, err)
	}

	narration, err := parseNarration(content)
	if err != nil {
		return nil, common.WrapError(common.ErrNarratorUnavailable, err)
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, key, content)
	}

	return narration, nil
}

// QueueStatus 隊列狀態，健康檢查用
func (s *Service) QueueStatus() *QueueStatus {
	return s.queue.Status()
}

// Close 關閉隊列
func (s *Service) Close() {
	s.queue.Close()
}

// buildNarrationPrompt 組裝敘事 prompt
func buildNarrationPrompt(recipe *catalog.Recipe, skill string, cabinet []string) string {
	var sb strings.Builder
	sb.WriteString("你是一位親切的專業調酒師，請為以下酒譜撰寫調製說明（用繁體中文回答）。\n\n")
	sb.WriteString(fmt.Sprintf("酒譜名稱：%s\n", recipe.Name))
	sb.WriteString(fmt.Sprintf("所需材料：%s\n", strings.Join(recipe.Ingredients, "、")))
	if len(recipe.Method) > 0 {
		sb.WriteString(fmt.Sprintf("基本步驟：%s\n", strings.Join(recipe.Method, "；")))
	}
	if recipe.Glass != "" {
		sb.WriteString(fmt.Sprintf("建議杯具：%s\n", recipe.Glass))
	}
	sb.WriteString(fmt.Sprintf("使用者技巧程度：%s\n", skill))
	sb.WriteString(fmt.Sprintf("使用者現有材料：%s\n", strings.Join(cabinet, "、")))
	sb.WriteString("\n要求：\n")
	sb.WriteString("1. 說明要符合使用者的技巧程度，新手要講得更細\n")
	sb.WriteString("2. 只使用酒譜列出的材料，不要添加未出現的材料\n")
	sb.WriteString("3. tips 提供 1 到 3 條實用小技巧\n")
	sb.WriteString("4. 只回傳一個獨立的 JSON，不要回傳多個 JSON 或其他文字\n")
	sb.WriteString("5. 所有字段都必須使用雙引號\n")
	sb.WriteString("\n請以以下 JSON 格式返回：\n")
	sb.WriteString(`{"narration":"調製說明","tips":["小技巧"]}`)
	return sb.String()
}

// parseNarration 解析模型輸出，容忍 markdown fence
func parseNarration(content string) (*Narration, error) {
	text := common.ExtractJSONObject(content)
	var narration Narration
	if err := common.ParseJSON(text, &narration); err != nil {
		return nil, fmt.Errorf("failed to parse narration response: %w", err)
	}
	if strings.TrimSpace(narration.Text) == "" {
		return nil, fmt.Errorf("empty narration in response")
	}
	return &narration, nil
}
