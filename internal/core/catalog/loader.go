package catalog

import (
	"fmt"
	"os"

	"drink-recommender/internal/pkg/common"

	"go.uber.org/zap"
)

// ingredientFile ingredients.json 的外層結構
type ingredientFile struct {
	Ingredients []Ingredient `json:"ingredients"`
}

// recipeFile recipes.json 的外層結構
type recipeFile struct {
	Recipes []Recipe `json:"recipes"`
}

// substitutionFile substitutions.json 的外層結構
type substitutionFile struct {
	Rules []SubstitutionRule `json:"rules"`
}

// LoadFromFiles 從 JSON 資料檔載入目錄，啟動時呼叫一次
func LoadFromFiles(ingredientsPath, recipesPath, substitutionsPath string) (*Catalog, error) {
	var ingFile ingredientFile
	if err := readJSONFile(ingredientsPath, &ingFile); err != nil {
		return nil, fmt.Errorf("load ingredients: %w", err)
	}

	var recFile recipeFile
	if err := readJSONFile(recipesPath, &recFile); err != nil {
		return nil, fmt.Errorf("load recipes: %w", err)
	}

	var subFile substitutionFile
	if err := readJSONFile(substitutionsPath, &subFile); err != nil {
		return nil, fmt.Errorf("load substitutions: %w", err)
	}

	cat, err := New(ingFile.Ingredients, recFile.Recipes, subFile.Rules)
	if err != nil {
		return nil, fmt.Errorf("build catalog: %w", err)
	}

	nIng, nRec, nRules := cat.Size()
	common.LogInfo("目錄載入完成",
		zap.Int("ingredients", nIng),
		zap.Int("recipes", nRec),
		zap.Int("substitution_rules", nRules),
	)

	return cat, nil
}

// readJSONFile 讀取並解析單一 JSON 資料檔
func readJSONFile(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := common.ParseJSONBytes(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
