package api

import (
	"net/http"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/gorilla/mux"

	"jamesfarrell.me/youtube-chat/internal/api/handlers"
	"jamesfarrell.me/youtube-chat/internal/api/middleware"
)

type Handlers struct {
	Videos *handlers.VideoHandler
	Chat   *handlers.ChatHandler
	Search *handlers.SearchHandler
}

// NewRouter mounts the public health check and the /api routes, which
// require apiKey when it is set.
func NewRouter(h Handlers, apiKey string, logger log.Logger) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.Logging(logger))
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteError(w, http.StatusNotFound, "not found")
	})

	// Public routes
	r.HandleFunc("/health", healthCheck).Methods(http.MethodGet)

	// Protected routes
	protected := r.PathPrefix("/api").Subrouter()
	protected.Use(middleware.APIKey(apiKey))

	videos := protected.PathPrefix("/videos").Subrouter()
	videos.HandleFunc("", h.Videos.ListVideos).Methods(http.MethodGet)
	videos.HandleFunc("", h.Videos.AddVideo).Methods(http.MethodPost)
	videos.HandleFunc("/{id:[0-9]+}", h.Videos.DeleteVideo).Methods(http.MethodDelete)
	videos.HandleFunc("/{youtubeID}/info", h.Videos.VideoInfo).Methods(http.MethodGet)
	videos.HandleFunc("/{youtubeID}/analyze", h.Videos.Analyze).Methods(http.MethodPost)

	protected.HandleFunc("/chat", h.Chat.Chat).Methods(http.MethodPost)
	protected.HandleFunc("/chat/history", h.Chat.History).Methods(http.MethodGet)
	protected.HandleFunc("/search", h.Search.Search).Methods(http.MethodPost)

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	handlers.WriteJSON(w, http.StatusOK, "YouTube Chat Service is running", map[string]string{"status": "ok"})
}
