package engine

import (
	"context"
	"sync"
	"time"

	"drink-recommender/internal/core/catalog"
	"drink-recommender/internal/core/narrator"
	"drink-recommender/internal/pkg/common"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FlowPhase 會話流程狀態機的狀態
type FlowPhase string

const (
	PhaseIdle          FlowPhase = "idle"
	PhaseInputReceived FlowPhase = "input_received"
	PhaseAnalyzing     FlowPhase = "analyzing"
	PhaseSelected      FlowPhase = "selected"
	PhaseRecipeReady   FlowPhase = "recipe_ready"
	PhaseCompleted     FlowPhase = "completed"
	PhaseExhausted     FlowPhase = "exhausted"
)

// Preferences 單次分析的偏好快照
type Preferences struct {
	Mood      catalog.FlavorProfile
	Skill     SkillLevel
	DrinkType catalog.DrinkType
}

// FlowState 單一會話的流程狀態，只由持有它的 Orchestrator 讀寫
// mu 序列化同一會話的所有變更；跨會話操作互不阻塞
type FlowState struct {
	mu         sync.Mutex
	SessionID  string
	Cabinet    Cabinet
	Prefs      Preferences
	Candidates []string
	Cursor     int
	Exclusions ExclusionSet
	Rung       FallbackRung
	Phase      FlowPhase
	LastActive time.Time

	// 最近一次 analyze 的配對結果，select 取結構化細節用
	matches map[string]MatchResult
}

// Options Orchestrator 的調校參數，全部來自設定
type Options struct {
	Weights         RankWeights
	UnlockTopN      int
	MaxAlternates   int
	SessionTTL      time.Duration
	CleanupInterval time.Duration
}

// Orchestrator 會話流程協調器：Matcher → Ranker → Narrator 的排程者
// 目錄不可變可無鎖共享；sessions map 以 RWMutex 保護，會話內容各自上鎖
type Orchestrator struct {
	cat  *catalog.Catalog
	narr narrator.Narrator
	opts Options

	mu       sync.RWMutex
	sessions map[string]*FlowState
	done     chan struct{}
}

// NewOrchestrator 建立協調器並啟動過期會話清理協程
func NewOrchestrator(cat *catalog.Catalog, narr narrator.Narrator, opts Options) *Orchestrator {
	o := &Orchestrator{
		cat:      cat,
		narr:     narr,
		opts:     opts,
		sessions: make(map[string]*FlowState),
		done:     make(chan struct{}),
	}

	if opts.CleanupInterval > 0 {
		go o.startCleanup()
	}

	return o
}

// RecommendRequest recommend 操作的輸入
type RecommendRequest struct {
	SessionID     string // 選填：帶入既有會話 id 以整組重置其狀態
	Cabinet       []string
	Mood          catalog.FlavorProfile
	Skill         SkillLevel
	DrinkType     catalog.DrinkType
	RecentHistory []string
}

// Selection 被選中的酒譜與其結構化細節
type Selection struct {
	RecipeID    string              `json:"recipe_id"`
	Name        string              `json:"name"`
	MatchScore  int                 `json:"match_score"`
	Status      MatchStatus         `json:"status"`
	Ingredients []string            `json:"ingredients"`
	Method      []string            `json:"method,omitempty"`
	Glass       string              `json:"glass,omitempty"`
	Missing     []MissingIngredient `json:"missing,omitempty"`
	Narration   *narrator.Narration `json:"narration,omitempty"` // Narrator 失敗時為 nil
}

// Recommendation recommend 操作的輸出
type Recommendation struct {
	SessionID  string                 `json:"session_id"`
	Selected   Selection              `json:"selected"`
	Alternates []string               `json:"alternates"`
	Unlocks    []UnlockRecommendation `json:"unlocks"`
	Rung       FallbackRung           `json:"fallback_rung"`
}

// Alternate another 操作的輸出
type Alternate struct {
	Selected  *Selection `json:"selected,omitempty"`
	Exhausted bool       `json:"exhausted"`
}

// Recommend 建立（或整組重置）會話並回傳首選酒譜、備選與解鎖建議
func (o *Orchestrator) Recommend(ctx context.Context, req RecommendRequest) (*Recommendation, error) {
	cab := NewCabinet(req.Cabinet)
	if len(cab) == 0 {
		// 空酒櫃立即回報，不默默當成「沒有配對」
		return nil, common.ErrEmptyCabinet
	}

	state, err := o.receiveInput(req, cab)
	if err != nil {
		return nil, err
	}

	state.mu.Lock()
	o.analyze(state)
	if state.Phase == PhaseExhausted {
		state.mu.Unlock()
		return nil, common.ErrNoCandidates
	}

	selected := o.selectCurrent(state)
	alternates := o.alternates(state)
	sessionID := state.SessionID
	skill := state.Prefs.Skill
	cabinetIDs := state.Cabinet.IDs()
	rung := state.Rung
	state.mu.Unlock()

	// 敘事與解鎖計算都在會話鎖外進行，敘事延遲不影響其他操作
	o.narrate(ctx, sessionID, selected, skill, cabinetIDs)
	unlocks := ComputeUnlocks(cab, o.cat, req.DrinkType, o.opts.UnlockTopN)

	return &Recommendation{
		SessionID:  sessionID,
		Selected:   *selected,
		Alternates: alternates,
		Unlocks:    unlocks,
		Rung:       rung,
	}, nil
}

// Another 拒絕目前選擇並推進到下一個候選；清單耗盡時重新分析
func (o *Orchestrator) Another(ctx context.Context, sessionID string) (*Alternate, error) {
	state, err := o.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	state.mu.Lock()
	switch state.Phase {
	case PhaseSelected, PhaseRecipeReady:
		// 可拒絕的狀態
	case PhaseExhausted:
		state.mu.Unlock()
		return &Alternate{Exhausted: true}, nil
	default:
		state.mu.Unlock()
		return nil, common.WrapError(common.ErrInvalidRequest, nil)
	}

	o.reject(state)
	if state.Phase == PhaseExhausted {
		state.mu.Unlock()
		common.LogInfo("會話候選耗盡",
			zap.String("session_id", sessionID),
		)
		return &Alternate{Exhausted: true}, nil
	}

	selected := o.selectCurrent(state)
	skill := state.Prefs.Skill
	cabinetIDs := state.Cabinet.IDs()
	state.mu.Unlock()

	o.narrate(ctx, sessionID, selected, skill, cabinetIDs)
	return &Alternate{Selected: selected}, nil
}

// SuggestBottles 無狀態的解鎖建議，可在沒有會話的情況下呼叫
func (o *Orchestrator) SuggestBottles(cabinet []string, drinkType catalog.DrinkType, limit int) ([]UnlockRecommendation, error) {
	cab := NewCabinet(cabinet)
	if len(cab) == 0 {
		return nil, common.ErrEmptyCabinet
	}
	if limit <= 0 {
		limit = o.opts.UnlockTopN
	}
	return ComputeUnlocks(cab, o.cat, drinkType, limit), nil
}

// EndSession 明確結束會話並立即回收狀態
func (o *Orchestrator) EndSession(sessionID string) error {
	state, err := o.lookup(sessionID)
	if err != nil {
		return err
	}

	state.mu.Lock()
	state.Phase = PhaseCompleted
	state.mu.Unlock()

	o.mu.Lock()
	delete(o.sessions, sessionID)
	o.mu.Unlock()

	common.LogInfo("會話已結束",
		zap.String("session_id", sessionID),
	)
	return nil
}

// SessionCount 目前存活的會話數，健康檢查用
func (o *Orchestrator) SessionCount() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.sessions)
}

// Close 停止清理協程
func (o *Orchestrator) Close() {
	close(o.done)
}

// ---------------- 狀態機內部轉換 ----------------

// receiveInput 建立或整組重置 FlowState，轉換到 InputReceived
// 帶入未知的會話 id 視為錯誤：過期的 id 不可重複使用
func (o *Orchestrator) receiveInput(req RecommendRequest, cab Cabinet) (*FlowState, error) {
	prefs := Preferences{
		Mood:      req.Mood,
		Skill:     req.Skill,
		DrinkType: req.DrinkType,
	}

	if req.SessionID != "" {
		state, err := o.lookup(req.SessionID)
		if err != nil {
			return nil, err
		}
		state.mu.Lock()
		state.Cabinet = cab
		state.Prefs = prefs
		state.Candidates = nil
		state.Cursor = 0
		state.Exclusions = NewExclusionSet(common.NormalizeIDs(req.RecentHistory))
		state.Rung = RungNone
		state.Phase = PhaseInputReceived
		state.LastActive = time.Now()
		state.mu.Unlock()
		return state, nil
	}

	state := &FlowState{
		SessionID:  uuid.New().String(),
		Cabinet:    cab,
		Prefs:      prefs,
		Exclusions: NewExclusionSet(common.NormalizeIDs(req.RecentHistory)),
		Phase:      PhaseInputReceived,
		LastActive: time.Now(),
	}

	o.mu.Lock()
	o.sessions[state.SessionID] = state
	o.mu.Unlock()

	return state, nil
}

// analyze 執行 Matcher 與 Ranker，重置游標；呼叫方必須持有 state.mu
func (o *Orchestrator) analyze(state *FlowState) {
	state.Phase = PhaseAnalyzing

	results := Match(state.Cabinet, o.cat)
	state.matches = make(map[string]MatchResult, len(results))
	for _, res := range results {
		state.matches[res.RecipeID] = res
	}

	outcome := Rank(results, o.cat, state.Prefs.Mood, state.Prefs.Skill, state.Prefs.DrinkType, state.Exclusions, o.opts.Weights)
	state.Candidates = outcome.Candidates
	state.Cursor = 0
	state.Rung = outcome.Rung
	state.LastActive = time.Now()

	if len(state.Candidates) == 0 {
		state.Phase = PhaseExhausted
		return
	}
	state.Phase = PhaseSelected

	if outcome.Rung != RungNone {
		common.LogInfo("排序動用回退階梯",
			zap.String("session_id", state.SessionID),
			zap.Int("rung", int(outcome.Rung)),
			zap.Int("candidates", len(state.Candidates)),
		)
	}
}

// selectCurrent 取游標處的候選並建立結構化快照；呼叫方必須持有 state.mu
// 敘事由呼叫方在鎖外補上：會話鎖的持有時間與 Narrator 延遲無關，
// 敘事進行中同會話的拒絕重試與其他會話的操作都照常進行
func (o *Orchestrator) selectCurrent(state *FlowState) *Selection {
	recipeID := state.Candidates[state.Cursor]
	state.LastActive = time.Now()

	sel := &Selection{RecipeID: recipeID}
	if r, ok := o.cat.Recipe(recipeID); ok {
		sel.Name = r.Name
		sel.Ingredients = append([]string(nil), r.Ingredients...)
		sel.Method = append([]string(nil), r.Method...)
		sel.Glass = r.Glass
	}
	if res, ok := state.matches[recipeID]; ok {
		sel.MatchScore = res.Score
		sel.Status = res.Status
		sel.Missing = res.Missing
	}

	state.Phase = PhaseRecipeReady
	return sel
}

// narrate 在鎖外請 Narrator 為快照補上敘事，失敗只降級為無敘事的結構化酒譜
func (o *Orchestrator) narrate(ctx context.Context, sessionID string, sel *Selection, skill SkillLevel, cabinet []string) {
	if o.narr == nil {
		return
	}
	r, ok := o.cat.Recipe(sel.RecipeID)
	if !ok {
		return
	}

	narration, err := o.narr.Narrate(ctx, r, string(skill), cabinet)
	if err != nil {
		common.LogWarn("Narrator 失敗，回傳無敘事的結構化酒譜",
			zap.String("session_id", sessionID),
			zap.String("recipe_id", sel.RecipeID),
			zap.Error(err),
		)
		return
	}
	sel.Narration = narration
}

// reject 將目前選擇加入拒絕集合並推進游標；呼叫方必須持有 state.mu
// 游標走到底時重新分析（排除集合已變大，可能觸發回退階梯）
func (o *Orchestrator) reject(state *FlowState) {
	current := state.Candidates[state.Cursor]
	state.Exclusions.Reject(current)
	state.Cursor++
	state.LastActive = time.Now()

	if state.Cursor < len(state.Candidates) {
		state.Phase = PhaseSelected
		return
	}

	o.analyze(state)
}

// alternates 回傳游標之後的備選酒譜 id；呼叫方必須持有 state.mu
func (o *Orchestrator) alternates(state *FlowState) []string {
	rest := state.Candidates[state.Cursor+1:]
	if len(rest) > o.opts.MaxAlternates {
		rest = rest[:o.opts.MaxAlternates]
	}
	return append([]string(nil), rest...)
}

// lookup 查詢會話，不存在或已過期時回傳 SESSION_NOT_FOUND
func (o *Orchestrator) lookup(sessionID string) (*FlowState, error) {
	o.mu.RLock()
	state, ok := o.sessions[sessionID]
	o.mu.RUnlock()
	if !ok {
		return nil, common.ErrSessionNotFound
	}
	return state, nil
}

// startCleanup 啟動清理過期會話的協程
func (o *Orchestrator) startCleanup() {
	ticker := time.NewTicker(o.opts.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			o.cleanup()
		case <-o.done:
			return
		}
	}
}

// cleanup 移除超過閒置 TTL 的會話
// 逐一檢查閒置時間時不持有全域鎖，單一會話的鎖競爭不會擋住其他會話的操作
func (o *Orchestrator) cleanup() {
	now := time.Now()

	o.mu.RLock()
	candidates := make(map[string]*FlowState, len(o.sessions))
	for id, state := range o.sessions {
		candidates[id] = state
	}
	o.mu.RUnlock()

	var expired []string
	for id, state := range candidates {
		state.mu.Lock()
		idle := now.Sub(state.LastActive)
		state.mu.Unlock()
		if idle > o.opts.SessionTTL {
			expired = append(expired, id)
		}
	}
	if len(expired) == 0 {
		return
	}

	o.mu.Lock()
	for _, id := range expired {
		delete(o.sessions, id)
	}
	o.mu.Unlock()

	common.LogInfo("過期會話已清理",
		zap.Int("count", len(expired)),
	)
}
