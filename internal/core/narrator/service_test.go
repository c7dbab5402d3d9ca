package narrator

import (
	"strings"
	"testing"

	"drink-recommender/internal/core/catalog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNarration(t *testing.T) {
	t.Run("純 JSON", func(t *testing.T) {
		n, err := parseNarration(`{"narration":"攪拌即可","tips":["用大冰塊"]}`)
		require.NoError(t, err)
		assert.Equal(t, "攪拌即可", n.Text)
		assert.Equal(t, []string{"用大冰塊"}, n.Tips)
	})

	t.Run("容忍 markdown fence", func(t *testing.T) {
		content := "```json\n{\"narration\":\"搖盪 12 秒\",\"tips\":[]}\n```"
		n, err := parseNarration(content)
		require.NoError(t, err)
		assert.Equal(t, "搖盪 12 秒", n.Text)
	})

	t.Run("容忍前後閒聊文字", func(t *testing.T) {
		content := "好的，以下是說明：\n{\"narration\":\"直調即可\",\"tips\":[\"最後輕拌\"]}\n祝調酒愉快！"
		n, err := parseNarration(content)
		require.NoError(t, err)
		assert.Equal(t, "直調即可", n.Text)
	})

	t.Run("空敘事視為失敗", func(t *testing.T) {
		_, err := parseNarration(`{"narration":"  ","tips":[]}`)
		assert.Error(t, err)
	})

	t.Run("非 JSON 視為失敗", func(t *testing.T) {
		_, err := parseNarration("模型今天心情不好")
		assert.Error(t, err)
	})
}

func TestBuildNarrationPrompt(t *testing.T) {
	recipe := &catalog.Recipe{
		ID:          "gold-rush",
		Name:        "Gold Rush",
		Ingredients: []string{"bourbon", "lemon-juice", "honey-syrup"},
		Method:      []string{"加冰搖盪", "雙重過濾"},
		Glass:       "rocks",
	}

	prompt := buildNarrationPrompt(recipe, "beginner", []string{"bourbon", "honey-syrup", "lemon-juice"})

	assert.Contains(t, prompt, "Gold Rush")
	assert.Contains(t, prompt, "bourbon")
	assert.Contains(t, prompt, "beginner")
	assert.Contains(t, prompt, "加冰搖盪")
	// 輸出格式約定必須在 prompt 中
	assert.Contains(t, prompt, `"narration"`)
	assert.Contains(t, prompt, `"tips"`)
}

func TestCacheKey(t *testing.T) {
	base := CacheKey("gold-rush", "beginner", []string{"bourbon", "lemon-juice"})

	assert.True(t, strings.HasPrefix(base, "narration:"))
	// 相同輸入必得相同鍵
	assert.Equal(t, base, CacheKey("gold-rush", "beginner", []string{"bourbon", "lemon-juice"}))
	// 任一成分不同就換鍵
	assert.NotEqual(t, base, CacheKey("manhattan", "beginner", []string{"bourbon", "lemon-juice"}))
	assert.NotEqual(t, base, CacheKey("gold-rush", "advanced", []string{"bourbon", "lemon-juice"}))
	assert.NotEqual(t, base, CacheKey("gold-rush", "beginner", []string{"bourbon"}))
}
