package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"drink-recommender/internal/core/catalog"
	"drink-recommender/internal/core/narrator"
	"drink-recommender/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubNarrator 測試用的 Narrator 替身
type stubNarrator struct {
	narration   *narrator.Narration
	err         error
	calls       int
	lastRecipe  string
	lastSkill   string
	lastCabinet []string
}

func (s *stubNarrator) Narrate(_ context.Context, recipe *catalog.Recipe, skill string, cabinet []string) (*narrator.Narration, error) {
	s.calls++
	if recipe != nil {
		s.lastRecipe = recipe.ID
	}
	s.lastSkill = skill
	s.lastCabinet = cabinet
	if s.err != nil {
		return nil, s.err
	}
	return s.narration, nil
}

func testOptions() Options {
	return Options{
		Weights:         testWeights(),
		UnlockTopN:      5,
		MaxAlternates:   4,
		SessionTTL:      30 * time.Minute,
		CleanupInterval: 0, // 測試不跑清理協程
	}
}

func newTestOrchestrator(t *testing.T, narr narrator.Narrator) *Orchestrator {
	t.Helper()
	o := NewOrchestrator(testCatalog(t), narr, testOptions())
	t.Cleanup(o.Close)
	return o
}

func TestRecommendHappyPath(t *testing.T) {
	stub := &stubNarrator{narration: &narrator.Narration{Text: "搖盪後雙重過濾", Tips: []string{"蜂蜜糖漿先回溫"}}}
	o := newTestOrchestrator(t, stub)

	rec, err := o.Recommend(context.Background(), RecommendRequest{
		Cabinet: []string{"bourbon", "lemon-juice", "honey-syrup"},
		Mood:    catalog.FlavorProfile{Sweet: 55, Sour: 60, Bitter: 5, SpiritForward: 50},
		Skill:   SkillBeginner,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, rec.SessionID)
	assert.Equal(t, "gold-rush", rec.Selected.RecipeID)
	assert.Equal(t, StatusMakeable, rec.Selected.Status)
	assert.Equal(t, 100, rec.Selected.MatchScore)
	assert.Equal(t, RungNone, rec.Rung)
	require.NotNil(t, rec.Selected.Narration)
	assert.Equal(t, "搖盪後雙重過濾", rec.Selected.Narration.Text)
	assert.NotEmpty(t, rec.Unlocks)

	// Narrator 收到的是選中的酒譜、技巧與正規化後的酒櫃
	assert.Equal(t, "gold-rush", stub.lastRecipe)
	assert.Equal(t, "beginner", stub.lastSkill)
	assert.Equal(t, []string{"bourbon", "honey-syrup", "lemon-juice"}, stub.lastCabinet)
}

func TestRecommendEmptyCabinet(t *testing.T) {
	o := newTestOrchestrator(t, nil)

	_, err := o.Recommend(context.Background(), RecommendRequest{Cabinet: nil})
	require.Error(t, err)
	assert.True(t, common.IsErrorCode(err, common.ErrCodeEmptyCabinet))

	// 只有空白與重複的輸入同樣視為空酒櫃
	_, err = o.Recommend(context.Background(), RecommendRequest{Cabinet: []string{"  ", ""}})
	assert.True(t, common.IsErrorCode(err, common.ErrCodeEmptyCabinet))

	assert.Zero(t, o.SessionCount())
}

func TestRecommendNoCandidates(t *testing.T) {
	o := newTestOrchestrator(t, nil)

	// 酒櫃不為空，但湊不出任何酒譜
	_, err := o.Recommend(context.Background(), RecommendRequest{
		Cabinet: []string{"mint"},
		Skill:   SkillBeginner,
	})
	require.Error(t, err)
	assert.True(t, common.IsErrorCode(err, common.ErrCodeNoCandidates))
}

func TestAnotherWalksCandidatesThenExhausts(t *testing.T) {
	o := newTestOrchestrator(t, nil)

	// 恰好三個可調候選：gold-rush、whiskey-sour、old-fashioned
	rec, err := o.Recommend(context.Background(), RecommendRequest{
		Cabinet: []string{"bourbon", "lemon-juice", "honey-syrup", "simple-syrup", "sugar", "angostura-bitters"},
		Skill:   SkillBeginner,
	})
	require.NoError(t, err)

	seen := map[string]struct{}{rec.Selected.RecipeID: {}}
	assert.Len(t, rec.Alternates, 2)

	for i := 0; i < 2; i++ {
		alt, err := o.Another(context.Background(), rec.SessionID)
		require.NoError(t, err)
		require.NotNil(t, alt.Selected)
		assert.False(t, alt.Exhausted)

		// 被拒絕過的酒譜絕不重新出現
		_, dup := seen[alt.Selected.RecipeID]
		assert.False(t, dup, "酒譜 %s 重複出現", alt.Selected.RecipeID)
		seen[alt.Selected.RecipeID] = struct{}{}
	}
	assert.Len(t, seen, 3)

	// 第三次拒絕把清單走完，重新分析也找不到新候選
	alt, err := o.Another(context.Background(), rec.SessionID)
	require.NoError(t, err)
	assert.True(t, alt.Exhausted)
	assert.Nil(t, alt.Selected)

	// 耗盡後再呼叫仍回報耗盡，不報錯
	alt, err = o.Another(context.Background(), rec.SessionID)
	require.NoError(t, err)
	assert.True(t, alt.Exhausted)
}

func TestAnotherUnknownSession(t *testing.T) {
	o := newTestOrchestrator(t, nil)

	_, err := o.Another(context.Background(), "no-such-session")
	require.Error(t, err)
	assert.True(t, common.IsErrorCode(err, common.ErrCodeSessionNotFound))
}

func TestRecommendWithHistoryTriggersFallback(t *testing.T) {
	o := newTestOrchestrator(t, nil)

	// 近期歷史排除掉僅有的兩個候選，回退階梯在第二級找回它們
	rec, err := o.Recommend(context.Background(), RecommendRequest{
		Cabinet:       []string{"bourbon", "lemon-juice", "honey-syrup", "simple-syrup"},
		Skill:         SkillBeginner,
		RecentHistory: []string{"gold-rush", "whiskey-sour"},
	})
	require.NoError(t, err)
	assert.Equal(t, RungDropHistory, rec.Rung)
}

func TestRecommendReplacesExistingSession(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	ctx := context.Background()

	rec, err := o.Recommend(ctx, RecommendRequest{
		Cabinet: []string{"bourbon", "lemon-juice", "honey-syrup"},
		Skill:   SkillBeginner,
	})
	require.NoError(t, err)

	// 拒絕唯一候選之後帶同一個 session id 重新輸入，拒絕集合整組重置
	alt, err := o.Another(ctx, rec.SessionID)
	require.NoError(t, err)
	assert.True(t, alt.Exhausted)

	again, err := o.Recommend(ctx, RecommendRequest{
		SessionID: rec.SessionID,
		Cabinet:   []string{"bourbon", "lemon-juice", "honey-syrup"},
		Skill:     SkillBeginner,
	})
	require.NoError(t, err)
	assert.Equal(t, rec.SessionID, again.SessionID)
	assert.Equal(t, "gold-rush", again.Selected.RecipeID)
	assert.Equal(t, 1, o.SessionCount())
}

func TestRecommendUnknownSessionID(t *testing.T) {
	o := newTestOrchestrator(t, nil)

	// 過期或未知的 session id 不可偷偷建新會話
	_, err := o.Recommend(context.Background(), RecommendRequest{
		SessionID: "expired-session",
		Cabinet:   []string{"bourbon", "lemon-juice", "honey-syrup"},
	})
	require.Error(t, err)
	assert.True(t, common.IsErrorCode(err, common.ErrCodeSessionNotFound))
}

func TestNarratorFailureDegrades(t *testing.T) {
	stub := &stubNarrator{err: common.WrapError(common.ErrNarratorUnavailable, context.DeadlineExceeded)}
	o := newTestOrchestrator(t, stub)

	rec, err := o.Recommend(context.Background(), RecommendRequest{
		Cabinet: []string{"bourbon", "lemon-juice", "honey-syrup"},
		Skill:   SkillBeginner,
	})
	require.NoError(t, err, "Narrator 失敗不可阻斷推薦")
	assert.Equal(t, "gold-rush", rec.Selected.RecipeID)
	assert.Nil(t, rec.Selected.Narration)
	// 結構化酒譜照常回傳
	assert.NotEmpty(t, rec.Selected.Ingredients)
	assert.Equal(t, 1, stub.calls)
}

// blockingNarrator 第一次呼叫卡住直到 release 關閉，之後的呼叫立即回傳
type blockingNarrator struct {
	mu      sync.Mutex
	calls   int
	started chan struct{}
	release chan struct{}
}

func (b *blockingNarrator) Narrate(_ context.Context, _ *catalog.Recipe, _ string, _ []string) (*narrator.Narration, error) {
	b.mu.Lock()
	b.calls++
	first := b.calls == 1
	b.mu.Unlock()

	if first {
		close(b.started)
		<-b.release
	}
	return &narrator.Narration{Text: "慢火熬出的敘事"}, nil
}

func TestInFlightNarrationDoesNotBlockOtherSessions(t *testing.T) {
	narr := &blockingNarrator{started: make(chan struct{}), release: make(chan struct{})}
	o := newTestOrchestrator(t, narr)

	var firstRec *Recommendation
	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		rec, err := o.Recommend(context.Background(), RecommendRequest{
			Cabinet: []string{"bourbon", "lemon-juice", "honey-syrup"},
			Skill:   SkillBeginner,
		})
		assert.NoError(t, err)
		firstRec = rec
	}()
	<-narr.started

	// 敘事進行中，清理掃描不可被卡住
	cleaned := make(chan struct{})
	go func() {
		defer close(cleaned)
		o.cleanup()
	}()
	select {
	case <-cleaned:
	case <-time.After(2 * time.Second):
		t.Fatal("清理掃描被進行中的敘事卡住")
	}

	// 其他會話的推薦也不可被卡住
	otherDone := make(chan struct{})
	go func() {
		defer close(otherDone)
		rec, err := o.Recommend(context.Background(), RecommendRequest{
			Cabinet: []string{"gin", "dry-vermouth"},
			Skill:   SkillAdvanced,
		})
		assert.NoError(t, err)
		if rec != nil {
			assert.Equal(t, "martini", rec.Selected.RecipeID)
		}
	}()
	select {
	case <-otherDone:
	case <-time.After(2 * time.Second):
		t.Fatal("不相關會話的推薦被另一會話進行中的敘事卡住")
	}

	// 放行後原本的推薦照常拿到敘事
	close(narr.release)
	<-firstDone
	require.NotNil(t, firstRec)
	require.NotNil(t, firstRec.Selected.Narration)
	assert.Equal(t, "慢火熬出的敘事", firstRec.Selected.Narration.Text)
}

func TestSuggestBottles(t *testing.T) {
	o := newTestOrchestrator(t, nil)

	recs, err := o.SuggestBottles([]string{"bourbon", "angostura-bitters"}, catalog.DrinkAny, 10)
	require.NoError(t, err)

	var found bool
	for _, rec := range recs {
		if rec.IngredientID == "sweet-vermouth" {
			found = true
			assert.Contains(t, rec.Recipes, "manhattan")
		}
	}
	assert.True(t, found, "建議中應包含 sweet-vermouth")

	// 無會話操作，不留狀態
	assert.Zero(t, o.SessionCount())

	_, err = o.SuggestBottles(nil, catalog.DrinkAny, 10)
	assert.True(t, common.IsErrorCode(err, common.ErrCodeEmptyCabinet))
}

func TestEndSession(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	ctx := context.Background()

	rec, err := o.Recommend(ctx, RecommendRequest{
		Cabinet: []string{"bourbon", "lemon-juice", "honey-syrup"},
		Skill:   SkillBeginner,
	})
	require.NoError(t, err)
	require.Equal(t, 1, o.SessionCount())

	require.NoError(t, o.EndSession(rec.SessionID))
	assert.Zero(t, o.SessionCount())

	// 結束後的 id 不可重複使用
	_, err = o.Another(ctx, rec.SessionID)
	assert.True(t, common.IsErrorCode(err, common.ErrCodeSessionNotFound))

	err = o.EndSession("no-such-session")
	assert.True(t, common.IsErrorCode(err, common.ErrCodeSessionNotFound))
}

func TestCleanupEvictsIdleSessions(t *testing.T) {
	o := newTestOrchestrator(t, nil)

	rec, err := o.Recommend(context.Background(), RecommendRequest{
		Cabinet: []string{"bourbon", "lemon-juice", "honey-syrup"},
		Skill:   SkillBeginner,
	})
	require.NoError(t, err)

	// 把會話推回過去，模擬閒置超過 TTL
	o.mu.Lock()
	o.sessions[rec.SessionID].LastActive = time.Now().Add(-time.Hour)
	o.mu.Unlock()

	o.cleanup()
	assert.Zero(t, o.SessionCount())

	_, err = o.Another(context.Background(), rec.SessionID)
	assert.True(t, common.IsErrorCode(err, common.ErrCodeSessionNotFound))
}
