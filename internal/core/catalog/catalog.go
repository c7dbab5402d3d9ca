package catalog

import (
	"fmt"
	"sort"
)

// Catalog 不可變的材料 / 酒譜目錄與替代圖
// 啟動時建立一次，之後可在多個 goroutine 間無鎖共享
type Catalog struct {
	ingredients map[string]Ingredient
	recipes     []Recipe // 固定的目錄順序，配對迭代依此決定
	recipeIndex map[string]*Recipe
	substitutes map[string][]SubstitutionRule // ingredient id → 依權重降冪、替代 id 升冪排序的出邊
}

// New 建立目錄並驗證資料一致性
func New(ingredients []Ingredient, recipes []Recipe, rules []SubstitutionRule) (*Catalog, error) {
	c := &Catalog{
		ingredients: make(map[string]Ingredient, len(ingredients)),
		recipes:     make([]Recipe, 0, len(recipes)),
		recipeIndex: make(map[string]*Recipe, len(recipes)),
		substitutes: make(map[string][]SubstitutionRule),
	}

	for _, ing := range ingredients {
		if ing.ID == "" {
			return nil, fmt.Errorf("ingredient with empty id")
		}
		if _, ok := c.ingredients[ing.ID]; ok {
			return nil, fmt.Errorf("duplicate ingredient id: %s", ing.ID)
		}
		c.ingredients[ing.ID] = ing
	}

	for _, r := range recipes {
		if r.ID == "" {
			return nil, fmt.Errorf("recipe with empty id")
		}
		if _, ok := c.recipeIndex[r.ID]; ok {
			return nil, fmt.Errorf("duplicate recipe id: %s", r.ID)
		}
		if !r.Difficulty.Valid() {
			return nil, fmt.Errorf("recipe %s: unknown difficulty %q", r.ID, r.Difficulty)
		}
		if r.Type != DrinkCocktail && r.Type != DrinkMocktail {
			return nil, fmt.Errorf("recipe %s: unknown drink type %q", r.ID, r.Type)
		}
		for _, ing := range r.Ingredients {
			if _, ok := c.ingredients[ing]; !ok {
				return nil, fmt.Errorf("recipe %s references unknown ingredient %s", r.ID, ing)
			}
		}
		c.recipes = append(c.recipes, r)
	}
	for i := range c.recipes {
		c.recipeIndex[c.recipes[i].ID] = &c.recipes[i]
	}

	for _, rule := range rules {
		if rule.Weight <= 0 || rule.Weight > 1 {
			return nil, fmt.Errorf("substitution %s→%s: weight %v out of (0,1]", rule.IngredientID, rule.SubstituteID, rule.Weight)
		}
		if _, ok := c.ingredients[rule.IngredientID]; !ok {
			return nil, fmt.Errorf("substitution references unknown ingredient %s", rule.IngredientID)
		}
		if _, ok := c.ingredients[rule.SubstituteID]; !ok {
			return nil, fmt.Errorf("substitution references unknown substitute %s", rule.SubstituteID)
		}
		if rule.IngredientID == rule.SubstituteID {
			return nil, fmt.Errorf("substitution %s→%s: self substitution", rule.IngredientID, rule.SubstituteID)
		}
		c.substitutes[rule.IngredientID] = append(c.substitutes[rule.IngredientID], rule)
	}

	// 出邊排序：權重降冪，同權重時替代 id 升冪，確保決定性
	for id := range c.substitutes {
		edges := c.substitutes[id]
		sort.Slice(edges, func(i, j int) bool {
			if edges[i].Weight != edges[j].Weight {
				return edges[i].Weight > edges[j].Weight
			}
			return edges[i].SubstituteID < edges[j].SubstituteID
		})
	}

	return c, nil
}

// HasIngredient 檢查材料是否存在於目錄
func (c *Catalog) HasIngredient(id string) bool {
	_, ok := c.ingredients[id]
	return ok
}

// Ingredient 依 id 查詢材料
func (c *Catalog) Ingredient(id string) (Ingredient, bool) {
	ing, ok := c.ingredients[id]
	return ing, ok
}

// Recipes 以固定目錄順序回傳所有酒譜
func (c *Catalog) Recipes() []Recipe {
	return c.recipes
}

// Recipe 依 id 查詢酒譜
func (c *Catalog) Recipe(id string) (*Recipe, bool) {
	r, ok := c.recipeIndex[id]
	return r, ok
}

// Substitutes 回傳材料的替代出邊（已排序），呼叫方不得修改
func (c *Catalog) Substitutes(id string) []SubstitutionRule {
	return c.substitutes[id]
}

// ReferencedIngredients 回傳所有出現在酒譜需求或替代規則任一側的材料 id，升冪排序
func (c *Catalog) ReferencedIngredients() []string {
	set := make(map[string]struct{})
	for _, r := range c.recipes {
		for _, ing := range r.Ingredients {
			set[ing] = struct{}{}
		}
	}
	for from, edges := range c.substitutes {
		set[from] = struct{}{}
		for _, e := range edges {
			set[e.SubstituteID] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Size 回傳目錄規模，啟動日誌用
func (c *Catalog) Size() (ingredients, recipes, rules int) {
	for _, edges := range c.substitutes {
		rules += len(edges)
	}
	return len(c.ingredients), len(c.recipes), rules
}
