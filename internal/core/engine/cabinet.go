package engine

import (
	"sort"

	"drink-recommender/internal/pkg/common"
)

// Cabinet 請求者目前持有的材料集合，使用前必先正規化
type Cabinet map[string]struct{}

// NewCabinet 由原始輸入建立正規化（小寫、去重）的酒櫃
func NewCabinet(ids []string) Cabinet {
	cab := make(Cabinet, len(ids))
	for _, id := range common.NormalizeIDs(ids) {
		cab[id] = struct{}{}
	}
	return cab
}

// Has 檢查材料是否在酒櫃中
func (c Cabinet) Has(id string) bool {
	_, ok := c[id]
	return ok
}

// With 回傳加入一項材料後的新酒櫃，原酒櫃不變
func (c Cabinet) With(id string) Cabinet {
	out := make(Cabinet, len(c)+1)
	for k := range c {
		out[k] = struct{}{}
	}
	out[id] = struct{}{}
	return out
}

// IDs 以升冪排序回傳酒櫃內容
func (c Cabinet) IDs() []string {
	out := make([]string, 0, len(c))
	for id := range c {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
