package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-kratos/kratos/v2/log"

	"jamesfarrell.me/youtube-chat/internal/app"
	"jamesfarrell.me/youtube-chat/internal/config"
	"jamesfarrell.me/youtube-chat/internal/logging"
)

func main() {
	cfg, err := config.Load(os.Getenv("DB_ID"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg.AnalysisMode = config.AnalysisWorker

	logger := logging.New("youtube-chat-worker", cfg.LogLevel)
	helper := logging.Helper(logger, "main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		helper.Fatalw("msg", "failed to initialize", "err", err)
	}
	defer a.Close()

	worker := a.Worker()
	n, err := worker.CatchUp(ctx)
	if err != nil {
		helper.Errorw("msg", "catch-up failed", "err", err)
	} else {
		helper.Infow("msg", "catch-up done", "analyzed", n)
	}

	if err := worker.Run(ctx); err != nil {
		helper.Errorw("msg", "worker error", "err", err)
	}
}
