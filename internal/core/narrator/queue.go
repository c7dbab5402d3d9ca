package narrator

import (
	"context"
	"fmt"
	"sync/atomic"

	"drink-recommender/internal/infrastructure/config"
	"drink-recommender/internal/pkg/common"

	"go.uber.org/zap"
)

// request 隊列中的一筆敘事請求
type request struct {
	ctx    context.Context
	prompt string
	result chan result
}

// result 敘事處理結果
type result struct {
	content string
	err     error
}

// QueueStatus 隊列狀態，健康檢查用
type QueueStatus struct {
	QueueLength    int `json:"queue_length"`
	ProcessedCount int `json:"processed_count"`
	MaxQueueSize   int `json:"max_queue_size"`
	Workers        int `json:"workers"`
}

// Queue 有界的 Narrator 請求隊列：限制同時對 OpenRouter 的併發呼叫數
type Queue struct {
	config    *config.Config
	client    *OpenRouterClient
	queue     chan *request
	done      chan struct{}
	processed int64
}

// NewQueue 創建隊列並啟動 worker 協程
func NewQueue(cfg *config.Config, client *OpenRouterClient) *Queue {
	q := &Queue{
		config: cfg,
		client: client,
		queue:  make(chan *request, cfg.Queue.MaxSize),
		done:   make(chan struct{}),
	}

	for i := 0; i < cfg.Queue.Workers; i++ {
		go q.worker()
	}

	common.LogInfo("Narrator 隊列已啟動",
		zap.Int("workers", cfg.Queue.Workers),
		zap.Int("max_queue_size", cfg.Queue.MaxSize),
	)

	return q
}

// worker 逐筆處理隊列中的敘事請求
func (q *Queue) worker() {
	for {
		select {
		case req := <-q.queue:
			if req.ctx.Err() != nil {
				// 呼叫方已放棄等待，不浪費一次模型呼叫
				req.result <- result{err: req.ctx.Err()}
				continue
			}
			content, err := q.client.GenerateResponse(req.ctx, req.prompt)
			atomic.AddInt64(&q.processed, 1)
			req.result <- result{content: content, err: err}
		case <-q.done:
			return
		}
	}
}

// Submit 將請求加入隊列並等待結果，受 ctx 期限約束
func (q *Queue) Submit(ctx context.Context, prompt string) (string, error) {
	req := &request{
		ctx:    ctx,
		prompt: prompt,
		result: make(chan result, 1),
	}

	select {
	case q.queue <- req:
	case <-ctx.Done():
		return "", ctx.Err()
	case <-q.done:
		return "", fmt.Errorf("narrator queue is closed")
	}

	select {
	case res := <-req.result:
		return res.content, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Status 獲取隊列狀態
func (q *Queue) Status() *QueueStatus {
	return &QueueStatus{
		QueueLength:    len(q.queue),
		ProcessedCount: int(atomic.LoadInt64(&q.processed)),
		MaxQueueSize:   q.config.Queue.MaxSize,
		Workers:        q.config.Queue.Workers,
	}
}

// Close 關閉隊列，停止所有 worker
func (q *Queue) Close() {
	close(q.done)
}
