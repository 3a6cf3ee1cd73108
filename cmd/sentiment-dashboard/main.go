package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"sentiment_dashboard/internal/app"
	"sentiment_dashboard/internal/config"
)

func main() {
	bootstrap, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	cfg, err := config.Load(bootstrap)
	if err != nil {
		bootstrap.Fatal("config", zap.Error(err))
	}
	_ = bootstrap.Sync()

	logger := bootstrap
	if cfg.IsLocal() {
		if dev, err := zap.NewDevelopment(); err == nil {
			logger = dev
		}
	}
	defer logger.Sync()

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Fatal("init", zap.Error(err))
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()
	if err := application.Run(ctx); err != nil {
		logger.Fatal("run", zap.Error(err))
	}
}
