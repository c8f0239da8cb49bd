package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

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

	logger := logging.New("youtube-chat", cfg.LogLevel)
	helper := logging.Helper(logger, "main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		helper.Fatalw("msg", "failed to initialize", "err", err)
	}
	defer a.Close()

	if cfg.ServiceAPIKey == "" {
		helper.Warnw("msg", "SERVICE_API_KEY not set, /api routes are open")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		helper.Infow("msg", "starting HTTP server", "addr", srv.Addr, "analysis_mode", cfg.AnalysisMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			helper.Errorw("msg", "HTTP server error", "err", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		helper.Errorw("msg", "shutdown error", "err", err)
	}
	helper.Infow("msg", "server stopped, waiting for analyses")
}
