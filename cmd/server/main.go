package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/disputeflow/backend/internal/ai"
	"github.com/disputeflow/backend/internal/classifier"
	"github.com/disputeflow/backend/internal/config"
	"github.com/disputeflow/backend/internal/db"
	"github.com/disputeflow/backend/internal/embed"
	httpapi "github.com/disputeflow/backend/internal/http"
	"github.com/disputeflow/backend/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger := log.Level(level).With().Str("service", "dispute-backend").Logger()

	rules, err := config.LoadRules(cfg.RulesPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load rules")
	}

	ctx := context.Background()
	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect db")
	}
	defer store.Close()

	var matcher *embed.Matcher
	if cfg.EmbedURL == "" {
		matcher = embed.Disabled()
		logger.Info().Msg("no embedding backend configured, semantic scoring disabled")
	} else {
		encoder := embed.HTTPEncoder{BaseURL: cfg.EmbedURL, Model: cfg.EmbedModel, APIKey: cfg.AssistantAPIKey}
		matcher = embed.NewMatcher(ctx, encoder, rules.Phrases, logger)
	}

	var assistant ai.Assistant
	if cfg.AssistantBaseURL == "" {
		assistant = ai.MockAssistant{}
		logger.Info().Msg("using mock assistant")
	} else {
		assistant = ai.OpenAICompatAssistant{
			BaseURL:   cfg.AssistantBaseURL,
			Model:     cfg.AssistantModel,
			APIKey:    cfg.AssistantAPIKey,
			MaxTokens: cfg.AssistantMaxToken,
		}
	}

	resolver := classifier.NewResolver(rules, classifier.NewPhraseIndex(rules.Phrases), matcher)
	advisor := classifier.NewAdvisor(rules.Resolutions)
	pipeline := &service.Pipeline{Resolver: resolver, Advisor: advisor, Logger: logger}

	router := httpapi.Router(cfg, store, pipeline, assistant, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}
