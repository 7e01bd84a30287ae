package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatguard/internal/analytics"
	"chatguard/internal/audit"
	"chatguard/internal/bridge"
	"chatguard/internal/config"
	"chatguard/internal/moderation"
	"chatguard/internal/server"
	"chatguard/internal/spam"
	"chatguard/internal/storage"
	"chatguard/internal/telemetry"
	"chatguard/internal/weight"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := config.BuildLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	store, err := storage.New(cfg.DatabasePath)
	if err != nil {
		logger.Fatal("storage init failed", zap.Error(err))
	}
	defer store.Close()
	if err := store.Migrate(); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}

	auditLogger := audit.NewLogger(store, logger)
	sink := telemetry.New(logger)
	gateway := bridge.NewHTTPGateway(cfg.Bridge)

	aggregator := moderation.NewAggregator(store, cfg.Moderation.SumPeriod())
	actuator := moderation.NewActuator(cfg.Moderation, store, aggregator, gateway, sink, auditLogger, logger)
	policy := weight.NewDefaultPolicy(cfg.Weight.BaseWeight, cfg.Spam.ProbationPeriod())
	reportSvc := moderation.NewService(store, policy, actuator, sink, logger)

	duplicates := spam.NewDuplicateTracker(cfg.Spam.DuplicateLimit, cfg.Spam.DuplicateWindow())
	pattern := spam.NewPatternDetector(cfg.Spam.DenylistedGroups)
	classifier := spam.NewClassifier(cfg.Spam.ProbationPeriod(), duplicates, pattern, actuator, sink, logger)

	srv := server.New(logger, store, reportSvc, classifier, analytics.New(store))

	go func() {
		logger.Info("listening", zap.String("addr", cfg.ListenAddr))
		if err := srv.Start(cfg.ListenAddr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown requested")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
}
