package engine

import (
	"math"

	"drink-recommender/internal/core/catalog"
	"drink-recommender/internal/pkg/common"

	"go.uber.org/zap"
)

// MatchStatus 酒譜與酒櫃的配對狀態
type MatchStatus string

const (
	// StatusMakeable 所有材料都直接在酒櫃中，無需替代
	StatusMakeable MatchStatus = "makeable"
	// StatusSubstitutable 所有材料都能滿足，但至少一項靠替代
	StatusSubstitutable MatchStatus = "substitutable"
	// StatusMissing 至少一項材料無法滿足
	StatusMissing MatchStatus = "missing"
)

// MissingIngredient 未持有的材料與最佳可用替代（若有）
type MissingIngredient struct {
	IngredientID string  `json:"ingredient_id"`
	Substitute   string  `json:"substitute,omitempty"` // 空字串代表無可用替代
	Weight       float64 `json:"weight"`               // 替代的品質權重，無替代時為 0
}

// MatchResult 單一酒譜的配對結果
type MatchResult struct {
	RecipeID string              `json:"recipe_id"`
	Status   MatchStatus         `json:"status"`
	Score    int                 `json:"score"` // 0–100
	Missing  []MissingIngredient `json:"missing,omitempty"`
}

// Match 對目錄中每份酒譜計算配對結果
// 純函數：輸入相同則輸出（含順序）相同；酒譜依目錄順序迭代
func Match(cab Cabinet, cat *catalog.Catalog) []MatchResult {
	// 酒櫃中不在目錄裡的材料只記錄警告，不影響配對
	for _, id := range cab.IDs() {
		if !cat.HasIngredient(id) {
			common.LogWarn("酒櫃包含目錄中不存在的材料，已忽略",
				zap.String("ingredient_id", id),
			)
		}
	}

	results := make([]MatchResult, 0, len(cat.Recipes()))
	for _, r := range cat.Recipes() {
		results = append(results, matchRecipe(cab, cat, &r))
	}
	return results
}

// matchRecipe 計算單一酒譜的滿足權重與狀態
func matchRecipe(cab Cabinet, cat *catalog.Catalog, r *catalog.Recipe) MatchResult {
	// 零材料酒譜屬於目錄資料錯誤：標記 missing 而非自動通過
	if len(r.Ingredients) == 0 {
		common.LogWarn("酒譜沒有任何必要材料，目錄資料可能不一致",
			zap.String("recipe_id", r.ID),
		)
		return MatchResult{RecipeID: r.ID, Status: StatusMissing, Score: 0}
	}

	var (
		total       float64
		substituted bool
		unsatisfied bool
		missing     []MissingIngredient
	)

	for _, ing := range r.Ingredients {
		if cab.Has(ing) {
			total += 1.0
			continue
		}

		// 替代出邊已依權重降冪、替代 id 升冪排序，第一個命中即為最佳
		sub, weight := bestSubstitute(cab, cat, ing)
		if sub != "" {
			total += weight
			substituted = true
			missing = append(missing, MissingIngredient{
				IngredientID: ing,
				Substitute:   sub,
				Weight:       weight,
			})
			continue
		}

		unsatisfied = true
		missing = append(missing, MissingIngredient{IngredientID: ing})
	}

	score := int(math.Round(100 * total / float64(len(r.Ingredients))))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	status := StatusMakeable
	switch {
	case unsatisfied:
		status = StatusMissing
	case substituted:
		status = StatusSubstitutable
	}

	return MatchResult{
		RecipeID: r.ID,
		Status:   status,
		Score:    score,
		Missing:  missing,
	}
}

// bestSubstitute 在酒櫃中尋找品質最高的替代材料
func bestSubstitute(cab Cabinet, cat *catalog.Catalog, ingredient string) (string, float64) {
	for _, rule := range cat.Substitutes(ingredient) {
		if cab.Has(rule.SubstituteID) {
			return rule.SubstituteID, rule.Weight
		}
	}
	return "", 0
}
