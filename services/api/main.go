package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/printobs/printobs/internal/logging"
	"github.com/printobs/printobs/internal/obs"
	"github.com/printobs/printobs/services/api/config"
	httpserver "github.com/printobs/printobs/services/api/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, false)
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	vars, stations, err := obs.LoadCatalogs(ctx, cfg.Config, logger)
	if err != nil {
		logger.Fatal("catalog error", zap.Error(err))
	}
	if cfg.ClientID == "" {
		logger.Warn("no Frost CLIENT_ID given, observation requests will be sent without credentials")
	}

	svc := obs.New(obs.NewFrostClient(cfg.Config, logger), vars, stations, cfg.RequestTimeout, logger)
	srv := httpserver.New(cfg, svc, logger)
	logger.Info("REST API listening", zap.String("addr", cfg.ListenAddr()), zap.Int("stations", stations.Len()))

	if err := srv.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
