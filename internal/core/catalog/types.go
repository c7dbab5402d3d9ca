package catalog

// Ingredient 材料：識別碼與分類，載入後不可變
type Ingredient struct {
	ID       string `json:"id"`
	Category string `json:"category"`
}

// SubstitutionRule 替代規則：具方向性的加權邊
// 酒精 → 無酒精與反向可以有不同的品質權重
type SubstitutionRule struct {
	IngredientID string  `json:"ingredient_id"`
	SubstituteID string  `json:"substitute_id"`
	Weight       float64 `json:"weight"` // 品質權重，(0,1]
}

// FlavorProfile 風味輪廓，四個固定維度，各 0–100
type FlavorProfile struct {
	Sweet         float64 `json:"sweet"`
	Sour          float64 `json:"sour"`
	Bitter        float64 `json:"bitter"`
	SpiritForward float64 `json:"spirit_forward"`
}

// Dimensions 以切片回傳各維度數值，距離計算用
func (p FlavorProfile) Dimensions() []float64 {
	return []float64{p.Sweet, p.Sour, p.Bitter, p.SpiritForward}
}

// Difficulty 難度，有序：easy < medium < hard
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Rank 難度序數，未知值視為最難
func (d Difficulty) Rank() int {
	switch d {
	case DifficultyEasy:
		return 0
	case DifficultyMedium:
		return 1
	case DifficultyHard:
		return 2
	default:
		return 2
	}
}

// Valid 檢查難度是否為已知值
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// DrinkType 飲品類型
type DrinkType string

const (
	DrinkCocktail DrinkType = "cocktail"
	DrinkMocktail DrinkType = "mocktail"
	// DrinkAny 空值代表不限類型
	DrinkAny DrinkType = ""
)

// Valid 檢查飲品類型是否為已知值（空值視為不限）
func (t DrinkType) Valid() bool {
	switch t {
	case DrinkCocktail, DrinkMocktail, DrinkAny:
		return true
	}
	return false
}

// Recipe 酒譜：材料需求為無序集合，載入後不可變
type Recipe struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Ingredients []string      `json:"ingredients"`
	Profile     FlavorProfile `json:"profile"`
	Difficulty  Difficulty    `json:"difficulty"`
	Type        DrinkType     `json:"type"`
	Tags        []string      `json:"tags,omitempty"`
	Method      []string      `json:"method,omitempty"` // 結構化調製步驟，Narrator 降級時的骨架
	Glass       string        `json:"glass,omitempty"`
}
