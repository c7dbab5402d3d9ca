package engine

import (
	"testing"

	"drink-recommender/internal/core/catalog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unlockFor 從解鎖建議中取出指定材料，找不到時回傳 false
func unlockFor(recs []UnlockRecommendation, ingredientID string) (UnlockRecommendation, bool) {
	for _, rec := range recs {
		if rec.IngredientID == ingredientID {
			return rec, true
		}
	}
	return UnlockRecommendation{}, false
}

func TestComputeUnlocksManhattanScenario(t *testing.T) {
	cat := testCatalog(t)
	cab := NewCabinet([]string{"bourbon", "angostura-bitters"})

	recs := ComputeUnlocks(cab, cat, catalog.DrinkAny, 10)

	rec, ok := unlockFor(recs, "sweet-vermouth")
	require.True(t, ok, "建議中應包含 sweet-vermouth")
	assert.GreaterOrEqual(t, rec.UnlockCount, 1)
	assert.Contains(t, rec.Recipes, "manhattan")
}

func TestComputeUnlocksNeverSuggestsOwnedIngredient(t *testing.T) {
	cat := testCatalog(t)
	cab := NewCabinet([]string{"bourbon", "angostura-bitters"})

	for _, rec := range ComputeUnlocks(cab, cat, catalog.DrinkAny, 100) {
		assert.False(t, cab.Has(rec.IngredientID),
			"不應建議已持有的材料 %s", rec.IngredientID)
	}
}

func TestComputeUnlocksOnlyCountsNewlySatisfied(t *testing.T) {
	cat := testCatalog(t)
	// gold-rush 在基準下已是 substitutable（simple-syrup 替代 honey-syrup），
	// 買 honey-syrup 只是升級狀態，不算解鎖
	cab := NewCabinet([]string{"bourbon", "lemon-juice", "simple-syrup"})

	recs := ComputeUnlocks(cab, cat, catalog.DrinkAny, 100)
	if rec, ok := unlockFor(recs, "honey-syrup"); ok {
		assert.NotContains(t, rec.Recipes, "gold-rush")
	}
}

func TestComputeUnlocksSimulationsAreIndependent(t *testing.T) {
	cat := testCatalog(t)
	cab := NewCabinet([]string{"gin"})

	recs := ComputeUnlocks(cab, cat, catalog.DrinkAny, 100)

	// negroni 需要 campari 與 sweet-vermouth 兩項：單買任一項都不該解鎖它
	if rec, ok := unlockFor(recs, "campari"); ok {
		assert.NotContains(t, rec.Recipes, "negroni")
	}
	if rec, ok := unlockFor(recs, "sweet-vermouth"); ok {
		assert.NotContains(t, rec.Recipes, "negroni")
	}

	// martini 只差 dry-vermouth 一項
	rec, ok := unlockFor(recs, "dry-vermouth")
	require.True(t, ok)
	assert.Contains(t, rec.Recipes, "martini")

	// 模擬不可污染原酒櫃
	assert.Equal(t, []string{"gin"}, cab.IDs())
}

func TestComputeUnlocksDrinkTypeFilter(t *testing.T) {
	cat := testCatalog(t)
	cab := NewCabinet([]string{"lime-juice", "mint", "simple-syrup"})

	recs := ComputeUnlocks(cab, cat, catalog.DrinkMocktail, 100)
	rec, ok := unlockFor(recs, "soda-water")
	require.True(t, ok)
	assert.Equal(t, []string{"virgin-mojito"}, rec.Recipes)

	// 只要雞尾酒時，soda-water 解鎖不了任何東西
	cocktailOnly := ComputeUnlocks(cab, cat, catalog.DrinkCocktail, 100)
	_, ok = unlockFor(cocktailOnly, "soda-water")
	assert.False(t, ok)
}

func TestComputeUnlocksTopNAndOrdering(t *testing.T) {
	cat := testCatalog(t)
	cab := NewCabinet([]string{"bourbon", "angostura-bitters"})

	all := ComputeUnlocks(cab, cat, catalog.DrinkAny, 100)
	require.NotEmpty(t, all)

	// 解鎖數降冪，同數時標籤廣度降冪，再同時材料 id 升冪
	for i := 1; i < len(all); i++ {
		prev, cur := all[i-1], all[i]
		if prev.UnlockCount != cur.UnlockCount {
			assert.Greater(t, prev.UnlockCount, cur.UnlockCount)
			continue
		}
		if prev.TagSpread != cur.TagSpread {
			assert.Greater(t, prev.TagSpread, cur.TagSpread)
			continue
		}
		assert.Less(t, prev.IngredientID, cur.IngredientID)
	}

	// topN 截斷且保留前段順序
	top := ComputeUnlocks(cab, cat, catalog.DrinkAny, 2)
	require.Len(t, top, 2)
	assert.Equal(t, all[:2], top)
}

func TestComputeUnlocksDeterministic(t *testing.T) {
	cat := testCatalog(t)
	cab := NewCabinet([]string{"bourbon", "gin", "lemon-juice"})

	first := ComputeUnlocks(cab, cat, catalog.DrinkAny, 10)
	second := ComputeUnlocks(cab, cat, catalog.DrinkAny, 10)
	assert.Equal(t, first, second)
}
