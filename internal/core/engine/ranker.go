package engine

import (
	"math"
	"sort"

	"drink-recommender/internal/core/catalog"
)

// SkillLevel 請求者自述的調酒技巧
type SkillLevel string

const (
	SkillBeginner     SkillLevel = "beginner"
	SkillIntermediate SkillLevel = "intermediate"
	SkillAdvanced     SkillLevel = "advanced"
)

// Rank 技巧序數，對應酒譜難度的同一尺度；未知值視為新手
func (s SkillLevel) Rank() int {
	switch s {
	case SkillBeginner:
		return 0
	case SkillIntermediate:
		return 1
	case SkillAdvanced:
		return 2
	default:
		return 0
	}
}

// ExclusionSet 排除集合：近期歷史（呼叫方提供）與會話內被拒絕（伺服器累積）
type ExclusionSet struct {
	History  map[string]struct{}
	Rejected map[string]struct{}
}

// NewExclusionSet 由呼叫方的近期歷史建立排除集合
func NewExclusionSet(history []string) ExclusionSet {
	excl := ExclusionSet{
		History:  make(map[string]struct{}, len(history)),
		Rejected: make(map[string]struct{}),
	}
	for _, id := range history {
		excl.History[id] = struct{}{}
	}
	return excl
}

// Reject 將酒譜加入會話拒絕集合
func (e ExclusionSet) Reject(recipeID string) {
	e.Rejected[recipeID] = struct{}{}
}

// RankWeights 排序權重 (w1,w2,w3)，固定設定值而非學習所得
type RankWeights struct {
	Match            float64 // w1
	Flavor           float64 // w2
	Skill            float64 // w3
	SkillPenaltyStep float64 // 每超出一級難度的懲罰量
	SkillGateLevels  int     // 難度超出技巧幾級以上直接過濾（rung 3 解除）
}

// FallbackRung 回退階梯的層級，回報給呼叫方以便告知「我們放寬了條件」
type FallbackRung int

const (
	// RungNone 未動用回退，完整限制下即有結果
	RungNone FallbackRung = iota
	// RungDropRejected 保留層級編號；會話內拒絕是硬性排除，此級不會被回報
	RungDropRejected
	// RungDropHistory 連近期歷史排除也捨棄
	RungDropHistory
	// RungIgnoreSkill 解除難度門檻與技巧懲罰
	RungIgnoreSkill
	// RungExhausted 階梯耗盡，沒有任何候選
	RungExhausted
)

// RankOutcome 排序結果與實際動用的回退層級
type RankOutcome struct {
	Candidates []string
	Rung       FallbackRung
}

// rankedCandidate 排序期間的內部工作結構
type rankedCandidate struct {
	recipeID string
	score    float64
	status   MatchStatus
}

// Rank 依心情 / 技巧對配對結果排序，空結果時逐級放寬限制
// 飲品類型偏好與會話內拒絕是硬性條件，任何一級都不放寬：
// 被拒絕的酒譜在同一會話內絕不重新出現，放寬它只會把剛拒絕的再端回去
func Rank(results []MatchResult, cat *catalog.Catalog, mood catalog.FlavorProfile, skill SkillLevel, drinkType catalog.DrinkType, excl ExclusionSet, w RankWeights) RankOutcome {
	type attempt struct {
		rung       FallbackRung
		useHistory bool
		useSkill   bool
	}
	// RungDropRejected 在拒絕為硬性條件下與 RungNone 等價，直接略過
	ladder := []attempt{
		{RungNone, true, true},
		{RungDropHistory, false, true},
		{RungIgnoreSkill, false, false},
	}

	for _, a := range ladder {
		candidates := rankOnce(results, cat, mood, skill, drinkType, excl, w, a.useHistory, a.useSkill)
		if len(candidates) > 0 {
			return RankOutcome{Candidates: candidates, Rung: a.rung}
		}
	}
	return RankOutcome{Rung: RungExhausted}
}

// rankOnce 在指定的限制組合下做一次過濾 + 排序
func rankOnce(results []MatchResult, cat *catalog.Catalog, mood catalog.FlavorProfile, skill SkillLevel, drinkType catalog.DrinkType, excl ExclusionSet, w RankWeights, useHistory, useSkill bool) []string {
	var ranked []rankedCandidate

	for _, res := range results {
		if res.Status == StatusMissing {
			continue
		}
		if _, ok := excl.Rejected[res.RecipeID]; ok {
			continue
		}
		if useHistory {
			if _, ok := excl.History[res.RecipeID]; ok {
				continue
			}
		}

		r, ok := cat.Recipe(res.RecipeID)
		if !ok {
			continue
		}
		if drinkType != catalog.DrinkAny && r.Type != drinkType {
			continue
		}

		gap := r.Difficulty.Rank() - skill.Rank()
		if useSkill && gap > w.SkillGateLevels {
			continue
		}

		score := w.Match * float64(res.Score)
		score -= w.Flavor * flavorDistance(r.Profile, mood)
		if useSkill && gap > 0 {
			score -= w.Skill * skillPenalty(gap, w.SkillPenaltyStep)
		}

		ranked = append(ranked, rankedCandidate{
			recipeID: res.RecipeID,
			score:    score,
			status:   res.Status,
		})
	}

	// 分數降冪 → makeable 先於 substitutable → 酒譜 id 升冪
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		if ranked[i].status != ranked[j].status {
			return ranked[i].status == StatusMakeable
		}
		return ranked[i].recipeID < ranked[j].recipeID
	})

	out := make([]string, len(ranked))
	for i, c := range ranked {
		out[i] = c.recipeID
	}
	return out
}

// flavorDistance 心情向量與酒譜風味的歐幾里得距離，正規化到 0–100
func flavorDistance(profile, mood catalog.FlavorProfile) float64 {
	p := profile.Dimensions()
	m := mood.Dimensions()
	var sum float64
	for i := range p {
		d := p[i] - m[i]
		sum += d * d
	}
	// 最大可能距離為 sqrt(維度數) × 100
	maxDist := math.Sqrt(float64(len(p))) * 100
	return math.Sqrt(sum) / maxDist * 100
}

// skillPenalty 難度超出技巧的懲罰，單調遞增且封頂 100
func skillPenalty(gap int, step float64) float64 {
	penalty := float64(gap) * step
	if penalty > 100 {
		penalty = 100
	}
	return penalty
}
