// Package app assembles the service from its configuration.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-kratos/kratos/v2/log"

	"jamesfarrell.me/youtube-chat/internal/analysis"
	"jamesfarrell.me/youtube-chat/internal/api"
	"jamesfarrell.me/youtube-chat/internal/api/handlers"
	"jamesfarrell.me/youtube-chat/internal/chat"
	"jamesfarrell.me/youtube-chat/internal/config"
	"jamesfarrell.me/youtube-chat/internal/embeddings"
	"jamesfarrell.me/youtube-chat/internal/llm"
	"jamesfarrell.me/youtube-chat/internal/logging"
	"jamesfarrell.me/youtube-chat/internal/segments"
	"jamesfarrell.me/youtube-chat/internal/storage/catalog"
	"jamesfarrell.me/youtube-chat/internal/storage/db"
	"jamesfarrell.me/youtube-chat/internal/youtube"
)

type App struct {
	Config   config.Config
	DB       *db.DB
	Store    *catalog.Store
	Videos   *youtube.Provider
	LLM      *llm.Client
	Segments *segments.Synthesizer
	Analysis *analysis.Service
	Chat     *chat.Facade
	// Embedder is nil unless an embeddings key is set and the database
	// can hold vectors.
	Embedder *embeddings.Client

	logger log.Logger
	log    *log.Helper
}

// New connects to the database, migrates it and wires every component.
func New(ctx context.Context, cfg config.Config, logger log.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	helper := logging.Helper(logger, "app")

	database, err := db.NewConnection(db.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return nil, err
	}
	if cfg.AnalysisMode == config.AnalysisWorker && database.Dialect != db.Postgres {
		database.Close()
		return nil, fmt.Errorf("analysis mode %q needs PostgreSQL notifications", config.AnalysisWorker)
	}

	withVectors := cfg.Embeddings.Enabled() && database.SupportsVectors()
	if err := database.Migrate(ctx, withVectors); err != nil {
		database.Close()
		return nil, err
	}
	helper.Infow("msg", "connected to database", "url", db.MaskDatabaseURL(cfg.DatabaseURL), "dialect", database.Dialect)

	videos, err := youtube.NewProvider(ctx, cfg.YouTube, logger)
	if err != nil {
		database.Close()
		return nil, err
	}
	if !videos.Enabled() {
		helper.Warnw("msg", "YOUTUBE_API_KEY not set, serving mock metadata")
	}

	a := &App{
		Config: cfg,
		DB:     database,
		Store:  catalog.NewStore(database, logger),
		Videos: videos,
		LLM:    llm.NewClient(cfg.LLM),
		logger: logger,
		log:    helper,
	}

	if cfg.AnalysisMode == config.AnalysisWorker {
		a.Store.EnableNotifications()
	}

	var embedder analysis.Embedder
	if withVectors {
		a.Embedder = embeddings.NewClient(cfg.Embeddings)
		embedder = a.Embedder
	} else if cfg.Embeddings.Enabled() {
		helper.Warnw("msg", "embeddings need PostgreSQL with pgvector, semantic search disabled")
	}

	a.Segments = segments.NewSynthesizer(videos, a.LLM, cfg.LLM.SegmentTimeout, logger)
	a.Analysis = analysis.NewService(a.Segments, a.Store, embedder, logger)
	a.Chat = chat.NewFacade(chat.NewSynthesizer(a.Store, a.LLM, cfg.LLM.ChatTimeout, logger), a.Store, logger)
	return a, nil
}

// Router returns the HTTP API.
func (a *App) Router() http.Handler {
	var embedder handlers.Embedder
	if a.Embedder != nil {
		embedder = a.Embedder
	}
	inline := a.Config.AnalysisMode == config.AnalysisInline

	return api.NewRouter(api.Handlers{
		Videos: handlers.NewVideoHandler(a.Store, a.Videos, a.Analysis, inline, a.logger),
		Chat:   handlers.NewChatHandler(a.Chat, a.logger),
		Search: handlers.NewSearchHandler(embedder, a.Store, a.logger),
	}, a.Config.ServiceAPIKey, a.logger)
}

// Worker returns the background analyzer fed by database notifications.
func (a *App) Worker() *analysis.Worker {
	return analysis.NewWorker(a.Analysis, a.Store, a.Config.DatabaseURL, a.logger)
}

// Close waits for in-flight analyses and closes the database.
func (a *App) Close() error {
	a.Analysis.Wait()
	return a.DB.Close()
}
