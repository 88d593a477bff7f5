package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/taskbridge/taskbridge/internal/asana"
	"github.com/taskbridge/taskbridge/internal/auth"
	"github.com/taskbridge/taskbridge/internal/cards"
	"github.com/taskbridge/taskbridge/internal/chat"
	"github.com/taskbridge/taskbridge/internal/config"
	"github.com/taskbridge/taskbridge/internal/db"
	"github.com/taskbridge/taskbridge/internal/logging"
	"github.com/taskbridge/taskbridge/internal/notification"
	"github.com/taskbridge/taskbridge/internal/reminder"
	"github.com/taskbridge/taskbridge/internal/server"
	"github.com/taskbridge/taskbridge/internal/store"
	"github.com/taskbridge/taskbridge/internal/subscription"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	database, err := db.Init(cfg.DBPath)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	sharedSecret, err := db.EnsureSharedSecret(database, cfg.SharedSecret)
	if err != nil {
		logger.Fatal("failed to ensure shared secret", zap.Error(err))
	}

	st := store.New(database)
	oauthCfg := auth.NewOAuthConfig(cfg)
	guard := auth.NewGuard(st, oauthCfg, logger)
	asanaClient := asana.NewClient(cfg.AsanaAPIBase)
	chatClient := chat.NewClient(cfg.ChatServerURL)

	registrar := subscription.NewRegistrar(asanaClient, cfg.PublicURL, logger)
	manager := subscription.NewManager(st, guard, asanaClient, registrar, logger)
	renderer := cards.NewRenderer(st, chatClient)
	router := notification.NewRouter(st, guard, asanaClient, renderer, logger)

	sweepInterval, err := time.ParseDuration(cfg.SweepInterval)
	if err != nil {
		logger.Fatal("invalid sweep interval", zap.String("value", cfg.SweepInterval), zap.Error(err))
	}
	sweep := reminder.New(st, guard, asanaClient, chatClient, sweepInterval, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sweep.Run(ctx)

	srv := server.New(cfg, st, oauthCfg, guard, asanaClient, chatClient, manager, router, sharedSecret, logger)

	logger.Info("taskbridge starting",
		zap.String("addr", cfg.HTTPAddr),
		zap.String("publicURL", cfg.PublicURL))
	if err := http.ListenAndServe(cfg.HTTPAddr, srv.Routes()); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}
