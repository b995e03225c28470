// Command dialogd runs the dialogue orchestration service.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/creastat/dialog/auth"
	"github.com/creastat/dialog/chat"
	"github.com/creastat/dialog/config"
	"github.com/creastat/dialog/httpapi"
	"github.com/creastat/dialog/llm"
	"github.com/creastat/dialog/questionnaire"
	"github.com/creastat/dialog/retrieval"
	qdrantretriever "github.com/creastat/dialog/retrieval/qdrant"
	"github.com/creastat/dialog/session"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	store := newStore(cfg, logger)
	defer store.Close()

	retriever := newRetriever(cfg, logger)
	rulesets := newRulesetProvider(cfg, logger)

	// The generation backend is wired per deployment; the mock keeps local
	// runs self-contained.
	var generator llm.Generator = &llm.Mock{}
	logger.Warn("no generation backend configured, using mock generator")

	authenticator, err := auth.New([]byte(cfg.SigningKey), cfg.CredentialLifetime)
	if err != nil {
		logger.Fatal("failed to build authenticator", zap.Error(err))
	}

	svc := chat.NewService(store, retriever, generator, rulesets, logger, chat.Options{
		HistoryDepth:      cfg.HistoryDepth,
		OutputReserve:     cfg.OutputReserve,
		SafetyBuffer:      cfg.SafetyBuffer,
		RetrievalLimit:    cfg.RetrievalLimit,
		RetrievalTimeout:  cfg.RetrievalTimeout,
		GenerationTimeout: cfg.GenerationTimeout,
		SessionTTL:        cfg.SessionTTL,
		Guidance:          cfg.Guidance,
		Disclaimer:        cfg.Disclaimer,
	})
	allocator := svc.Allocator()
	allocator.MinAvailable = cfg.MinAvailable
	allocator.MinPassageTokens = cfg.MinPassageTokens
	allocator.ShrinkStepPercent = cfg.ShrinkStepPercent

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: httpapi.NewServer(authenticator, svc, logger),
	}

	go func() {
		logger.Info("listening", zap.String("addr", cfg.ListenAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
}

func newStore(cfg *config.Config, logger *zap.Logger) session.Store {
	switch cfg.Store {
	case "memory":
		// Explicit single-instance degradation: nothing survives a restart.
		logger.Warn("using in-memory session store, data will not survive a restart")
		store, err := session.NewStore(session.StoreTypeMemory,
			session.WithTTL(cfg.SessionTTL),
			session.WithMaxStoredTurns(cfg.MaxStoredTurns),
		)
		if err != nil {
			logger.Fatal("failed to build memory store", zap.Error(err))
		}
		return store

	default:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		store, err := session.NewStore(session.StoreTypeRedis,
			session.WithRedisClient(client),
			session.WithTTL(cfg.SessionTTL),
			session.WithMaxStoredTurns(cfg.MaxStoredTurns),
		)
		if err != nil {
			logger.Fatal("failed to build redis store", zap.Error(err))
		}
		logger.Info("using redis session store", zap.String("addr", cfg.RedisAddr))
		return store
	}
}

func newRetriever(cfg *config.Config, logger *zap.Logger) retrieval.Retriever {
	if cfg.QdrantURL == "" {
		logger.Warn("no retrieval backend configured, answers will have no document context")
		return &retrieval.Static{}
	}

	retriever, err := qdrantretriever.New(qdrantretriever.Config{
		URL:            cfg.QdrantURL,
		CollectionName: cfg.QdrantCollection,
		APIKey:         cfg.QdrantAPIKey,
	}, &retrieval.HTTPEmbedder{URL: cfg.EmbedURL})
	if err != nil {
		logger.Fatal("failed to build qdrant retriever", zap.Error(err))
	}
	logger.Info("using qdrant retrieval", zap.String("collection", cfg.QdrantCollection))
	return retriever
}

func newRulesetProvider(cfg *config.Config, logger *zap.Logger) questionnaire.RulesetProvider {
	if cfg.SupabaseURL != "" {
		provider, err := questionnaire.NewSupabaseProvider(questionnaire.SupabaseConfig{
			URL:    cfg.SupabaseURL,
			APIKey: cfg.SupabaseAPIKey,
		})
		if err != nil {
			logger.Fatal("failed to build supabase ruleset provider", zap.Error(err))
		}
		logger.Info("using supabase item bank")
		return provider
	}

	rulesets, err := questionnaire.LoadRulesetFile(cfg.RulesetFile)
	if err != nil {
		logger.Fatal("failed to load ruleset file", zap.Error(err))
	}
	logger.Info("loaded ruleset file",
		zap.String("path", cfg.RulesetFile), zap.Int("rulesets", len(rulesets)))
	return questionnaire.NewStaticProvider(rulesets)
}
