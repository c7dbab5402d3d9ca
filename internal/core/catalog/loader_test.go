package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDataFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFromFiles(t *testing.T) {
	dir := t.TempDir()

	ings := writeDataFile(t, dir, "ingredients.json", `{
		"ingredients": [
			{"id": "bourbon", "category": "spirit"},
			{"id": "lemon-juice", "category": "citrus"},
			{"id": "honey-syrup", "category": "syrup"},
			{"id": "simple-syrup", "category": "syrup"}
		]
	}`)
	recs := writeDataFile(t, dir, "recipes.json", `{
		"recipes": [
			{
				"id": "gold-rush",
				"name": "Gold Rush",
				"ingredients": ["bourbon", "lemon-juice", "honey-syrup"],
				"profile": {"sweet": 55, "sour": 60, "bitter": 5, "spirit_forward": 50},
				"difficulty": "easy",
				"type": "cocktail",
				"tags": ["whiskey", "sour"]
			}
		]
	}`)
	subs := writeDataFile(t, dir, "substitutions.json", `{
		"rules": [
			{"ingredient_id": "honey-syrup", "substitute_id": "simple-syrup", "weight": 0.7}
		]
	}`)

	cat, err := LoadFromFiles(ings, recs, subs)
	require.NoError(t, err)

	r, ok := cat.Recipe("gold-rush")
	require.True(t, ok)
	assert.Equal(t, "Gold Rush", r.Name)
	assert.Equal(t, DifficultyEasy, r.Difficulty)
	assert.Equal(t, DrinkCocktail, r.Type)
	assert.InDelta(t, 60.0, r.Profile.Sour, 0.001)

	edges := cat.Substitutes("honey-syrup")
	require.Len(t, edges, 1)
	assert.Equal(t, "simple-syrup", edges[0].SubstituteID)
}

func TestLoadFromFilesErrors(t *testing.T) {
	dir := t.TempDir()
	ings := writeDataFile(t, dir, "ingredients.json", `{"ingredients": []}`)
	recs := writeDataFile(t, dir, "recipes.json", `{"recipes": []}`)
	subs := writeDataFile(t, dir, "substitutions.json", `{"rules": []}`)

	t.Run("檔案不存在", func(t *testing.T) {
		_, err := LoadFromFiles(filepath.Join(dir, "missing.json"), recs, subs)
		assert.Error(t, err)
	})

	t.Run("JSON 格式錯誤", func(t *testing.T) {
		broken := writeDataFile(t, dir, "broken.json", `{"ingredients": [`)
		_, err := LoadFromFiles(broken, recs, subs)
		assert.Error(t, err)
	})

	t.Run("目錄不一致", func(t *testing.T) {
		// 酒譜引用不存在的材料
		badRecs := writeDataFile(t, dir, "bad_recipes.json", `{
			"recipes": [
				{"id": "ghost", "ingredients": ["unicorn-tears"], "difficulty": "easy", "type": "cocktail"}
			]
		}`)
		_, err := LoadFromFiles(ings, badRecs, subs)
		assert.Error(t, err)
	})
}
