package narrator

import (
	"context"

	"drink-recommender/internal/core/catalog"
)

// Narration Narrator 產出的酒譜敘事與小技巧
type Narration struct {
	Text string   `json:"narration"`
	Tips []string `json:"tips,omitempty"`
}

// Narrator 將結構化酒譜轉成給人看的調製說明的外部能力
// 實作必須在 ctx 期限內回應；失敗時呼叫方降級為純結構化酒譜
type Narrator interface {
	Narrate(ctx context.Context, recipe *catalog.Recipe, skill string, cabinet []string) (*Narration, error)
}
