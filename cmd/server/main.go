// Package main runs the SAGE eligibility engine HTTP server.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/rs/cors"
	"go.uber.org/zap"

	"sage-engine/internal/config"
	"sage-engine/internal/handlers"
	"sage-engine/internal/services/cache"
	"sage-engine/internal/services/chat"
	"sage-engine/internal/services/database"
	"sage-engine/internal/services/embedding"
	"sage-engine/internal/services/fixfinder"
	"sage-engine/internal/services/genai"
	"sage-engine/internal/services/reasoner"
	"sage-engine/internal/services/retrieval"
	"sage-engine/internal/services/rules"
	"sage-engine/internal/services/usage"
	"sage-engine/internal/services/vectorstore"
	"sage-engine/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := utils.InitLogger(cfg.LogLevel, cfg.Stage); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer utils.Sync()
	logger := utils.GetLogger()

	// Database is optional; without it the server runs with in-memory
	// usage buffering only.
	db, err := database.New(cfg)
	if err != nil {
		logger.Warn("could not connect to database, usage records will not persist", zap.Error(err))
		db = nil
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := db.EnsureSchema(ctx); err != nil {
			logger.Warn("could not ensure database schema", zap.Error(err))
		}
		cancel()
		defer db.Close()
	}

	var usageTracker *usage.Tracker
	if db != nil {
		usageTracker = usage.NewTracker(db.GetPool())
	} else {
		usageTracker = usage.NewTracker(nil)
	}

	// External collaborators. Missing credentials disable the dependent
	// features; the deterministic rules engine always works.
	embedder := embedding.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIEmbeddingModel)
	searcher := vectorstore.NewClient(cfg.PineconeAPIKey, cfg.PineconeHost, cfg.PineconeNamespace)
	llm := genai.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	coordinator := retrieval.NewCoordinator(embedder, searcher)

	engine := rules.NewEngineWithLimits(rules.BaseLoanLimit2026, cfg.HighCostLoanLimit)
	simulator := fixfinder.NewSimulator(engine)
	fixFinder := fixfinder.NewOrchestrator(llm, coordinator, simulator, usageTracker).
		WithLimits(
			cfg.FixFinderMaxIterations,
			time.Duration(cfg.IterationTimeoutSeconds)*time.Second,
			time.Duration(cfg.FinalTimeoutSeconds)*time.Second,
		)
	ragReasoner := reasoner.NewReasoner(llm, coordinator, usageTracker)

	var conversations cache.ConversationStore
	if cfg.RedisAddr != "" {
		redisStore := cache.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		pingErr := redisStore.Ping(ctx)
		cancel()
		if pingErr != nil {
			logger.Warn("could not connect to redis, using in-memory conversation store", zap.Error(pingErr))
			conversations = cache.NewLRUStore(cache.DefaultMaxConversations)
		} else {
			defer redisStore.Close()
			conversations = redisStore
		}
	} else {
		conversations = cache.NewLRUStore(cache.DefaultMaxConversations)
	}
	chatService := chat.NewService(llm, coordinator, conversations)

	api := handlers.NewAPI(cfg, engine, fixFinder, ragReasoner, chatService, usageTracker, db)

	mux := http.NewServeMux()
	api.Routes(mux)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	handler := c.Handler(mux)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	addr := fmt.Sprintf("0.0.0.0:%s", port)

	logger.Info("starting SAGE eligibility engine",
		zap.String("addr", addr),
		zap.String("stage", cfg.Stage),
		zap.Bool("fix_finder", cfg.EnableFixFinder),
		zap.Bool("rag_eligibility", cfg.EnableRAGEligibility),
	)

	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}
