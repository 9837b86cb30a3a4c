package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"ledgerlens/internal/auth"
	"ledgerlens/internal/backend"
	"ledgerlens/internal/cache"
	"ledgerlens/internal/chat"
	"ledgerlens/internal/chat/gemini"
	"ledgerlens/internal/cli"
	"ledgerlens/internal/core"
	"ledgerlens/internal/dashboard"
	apphttp "ledgerlens/internal/http"
	"ledgerlens/internal/ledger"
	"ledgerlens/internal/log"
	"ledgerlens/internal/services"
)

const (
	categoryCacheSize = 1024
	categoryCacheTTL  = 10 * time.Minute
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize record store", log.FieldError, err, "backend", backendCfg.Type)
		os.Exit(1)
	}
	records := result.Store

	var publisher services.EventPublisher
	if client := cli.ConnectPublisher(logger, cfg); client != nil {
		client.SetLogger(logger)
		publisher = client
	}

	categoryCache := cache.NewLRUCache[core.Category](categoryCacheSize, categoryCacheTTL)
	caches := cache.NewManager(logger)
	caches.Register(categoryCache)
	caches.StartCleanup(categoryCacheTTL)

	resolver := ledger.NewResolver(records).WithCache(categoryCache)
	ingestor := ledger.NewIngestor(resolver, records)
	txService := services.NewTransactionService(ingestor, publisher, logger)

	authn, err := auth.New(cfg.AuthJWTSecret, logger)
	if err != nil {
		logger.Error("Failed to initialize authenticator", log.FieldError, err)
		os.Exit(1)
	}

	deps := apphttp.Dependencies{
		Auth:               authn,
		Dashboard:          dashboard.NewBuilder(records, logger).WithRecentLimit(cfg.DashboardRecentLimit),
		Records:            records,
		Logger:             logger,
		DevLogin:           cfg.AuthDevLogin,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	}

	if cfg.ChatEnabled() {
		completer, err := gemini.New(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel, logger)
		if err != nil {
			logger.Error("Failed to initialize language model client", log.FieldError, err)
			os.Exit(1)
		}
		deps.Chat = chat.NewSession(completer, chat.NewBridge(txService), logger).
			WithMaxToolRounds(cfg.ChatMaxToolRounds)
		logger.Info("Chat assistant enabled", "model", cfg.GeminiModel)
	} else {
		logger.Warn("GEMINI_API_KEY not set, chat assistant disabled")
	}
	if cfg.AuthDevLogin {
		logger.Warn("Dev login enabled, any caller can obtain a session")
	}

	srv, err := apphttp.NewServer(":"+cfg.Port, deps)
	if err != nil {
		logger.Error("Failed to build HTTP server", log.FieldError, err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		caches.Stop()
		if err := txService.Close(); err != nil {
			logger.Error("Failed to close publisher", log.FieldError, err)
		}
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("Failed to close record store", log.FieldError, err)
			}
		}
	})

	go func() {
		logger.Info("Starting ledgerlens server",
			"port", cfg.Port,
			"backend", backendCfg.Type,
			"chat_enabled", deps.Chat != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
