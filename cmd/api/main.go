package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"drink-recommender/internal/api"
	"drink-recommender/internal/core/catalog"
	"drink-recommender/internal/core/engine"
	"drink-recommender/internal/core/narrator"
	"drink-recommender/internal/infrastructure/config"
	"drink-recommender/internal/pkg/common"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// 載入 .env
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found")
	}

	// 載入設定
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	// 使用 logger 記錄啟動信息
	common.LogInfo("載入設定",
		zap.String("openrouter_model", cfg.OpenRouter.Model),
		zap.Bool("narrator_enabled", cfg.OpenRouter.Enabled),
		zap.String("cache_backend", cfg.Cache.Backend),
	)

	// 載入目錄（材料、酒譜、替代規則）
	cat, err := catalog.LoadFromFiles(
		cfg.Catalog.IngredientsPath,
		cfg.Catalog.RecipesPath,
		cfg.Catalog.SubstitutionsPath,
	)
	if err != nil {
		common.LogFatal("Failed to load catalog", zap.Error(err))
	}

	// 初始化敘事快取
	narrationCache, err := narrator.NewCache(cfg)
	if err != nil {
		common.LogFatal("Failed to initialize narration cache", zap.Error(err))
	}
	if narrationCache != nil {
		defer narrationCache.Close()
	}

	// 初始化 Narrator（停用時為 nil，推薦降級為純結構化酒譜）
	narratorSvc := narrator.NewService(cfg, narrationCache)
	if narratorSvc != nil {
		defer narratorSvc.Close()
	}

	// 初始化流程協調器
	var narr narrator.Narrator
	if narratorSvc != nil {
		narr = narratorSvc
	}
	orchestrator := engine.NewOrchestrator(cat, narr, engine.Options{
		Weights: engine.RankWeights{
			Match:            cfg.Engine.MatchWeight,
			Flavor:           cfg.Engine.FlavorWeight,
			Skill:            cfg.Engine.SkillWeight,
			SkillPenaltyStep: cfg.Engine.SkillPenaltyStep,
			SkillGateLevels:  cfg.Engine.SkillGateLevels,
		},
		UnlockTopN:      cfg.Engine.UnlockTopN,
		MaxAlternates:   cfg.Engine.MaxAlternates,
		SessionTTL:      cfg.Session.TTL,
		CleanupInterval: cfg.Session.CleanupInterval,
	})
	defer orchestrator.Close()

	// 設置路由
	router, err := api.SetupRouter(cfg, orchestrator, narratorSvc)
	if err != nil {
		common.LogError("Failed to setup router", zap.Error(err))
		os.Exit(1)
	}

	// 設置 HTTP 服務器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 啟動服務器
	go func() {
		ingredients, recipes, rules := cat.Size()
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Bool("debug", cfg.App.Debug),
			zap.Int("ingredients", ingredients),
			zap.Int("recipes", recipes),
			zap.Int("substitution_rules", rules),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			common.LogError("Failed to start server",
				zap.Error(err),
			)
			os.Exit(1)
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	// 設置關閉超時
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		common.LogError("Server forced to shutdown",
			zap.Error(err),
		)
		os.Exit(1)
	}

	common.LogInfo("Server exited")
}
