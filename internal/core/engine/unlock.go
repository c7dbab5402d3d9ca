package engine

import (
	"sort"

	"drink-recommender/internal/core/catalog"
)

// UnlockRecommendation 「多買一瓶」的投資報酬：加入該材料後新解鎖的酒譜
type UnlockRecommendation struct {
	IngredientID string   `json:"ingredient_id"`
	UnlockCount  int      `json:"unlock_count"`
	Recipes      []string `json:"recipes"`
	TagSpread    int      `json:"tag_spread"` // 解鎖酒譜觸及的不同標籤數，決勝用
}

// ComputeUnlocks 對每個候選材料模擬加入酒櫃後的解鎖數，回傳前 topN 名
// 每個候選都獨立對「原始」酒櫃模擬，不做累積；drinkType 為空時不限類型
func ComputeUnlocks(cab Cabinet, cat *catalog.Catalog, drinkType catalog.DrinkType, topN int) []UnlockRecommendation {
	if topN <= 0 {
		return nil
	}

	// 基準：原酒櫃下各酒譜是否已完全滿足
	baseline := make(map[string]MatchStatus)
	for _, res := range Match(cab, cat) {
		baseline[res.RecipeID] = res.Status
	}

	var recs []UnlockRecommendation
	for _, candidate := range cat.ReferencedIngredients() {
		if cab.Has(candidate) {
			continue
		}

		simulated := Match(cab.With(candidate), cat)
		var unlocked []string
		tags := make(map[string]struct{})
		for _, res := range simulated {
			if baseline[res.RecipeID] != StatusMissing {
				continue
			}
			if res.Status != StatusMakeable && res.Status != StatusSubstitutable {
				continue
			}
			r, ok := cat.Recipe(res.RecipeID)
			if !ok {
				continue
			}
			if drinkType != catalog.DrinkAny && r.Type != drinkType {
				continue
			}
			unlocked = append(unlocked, res.RecipeID)
			for _, tag := range r.Tags {
				tags[tag] = struct{}{}
			}
		}

		if len(unlocked) == 0 {
			continue
		}
		sort.Strings(unlocked)
		recs = append(recs, UnlockRecommendation{
			IngredientID: candidate,
			UnlockCount:  len(unlocked),
			Recipes:      unlocked,
			TagSpread:    len(tags),
		})
	}

	// 解鎖數降冪 → 標籤廣度降冪 → 材料 id 升冪，完全決定性
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].UnlockCount != recs[j].UnlockCount {
			return recs[i].UnlockCount > recs[j].UnlockCount
		}
		if recs[i].TagSpread != recs[j].TagSpread {
			return recs[i].TagSpread > recs[j].TagSpread
		}
		return recs[i].IngredientID < recs[j].IngredientID
	})

	if len(recs) > topN {
		recs = recs[:topN]
	}
	return recs
}
