package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-kratos/kratos/v2/log"

	"jamesfarrell.me/youtube-chat/internal/logging"
	"jamesfarrell.me/youtube-chat/internal/storage/catalog"
	"jamesfarrell.me/youtube-chat/internal/storage/models"
)

const (
	defaultSearchLimit = 5
	maxSearchLimit     = 50
)

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type SimilarSegments interface {
	SearchSimilarSegments(ctx context.Context, embedding []float32, limit int) ([]models.SearchResult, error)
}

type SearchHandler struct {
	embedder Embedder
	store    SimilarSegments
	log      *log.Helper
}

// NewSearchHandler builds the semantic search endpoint. A nil embedder
// disables it.
func NewSearchHandler(embedder Embedder, store SimilarSegments, logger log.Logger) *SearchHandler {
	return &SearchHandler{embedder: embedder, store: store, log: logging.Helper(logger, "api")}
}

func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	if h.embedder == nil {
		WriteError(w, http.StatusNotImplemented, "semantic search is not configured")
		return
	}

	var req models.SearchRequest
	if err := decodeBody(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		WriteError(w, http.StatusBadRequest, "query is required")
		return
	}
	if req.Limit <= 0 {
		req.Limit = defaultSearchLimit
	}
	if req.Limit > maxSearchLimit {
		req.Limit = maxSearchLimit
	}

	embedding, err := h.embedder.Embed(r.Context(), req.Query)
	if err != nil {
		h.log.Errorw("msg", "embed query failed", "err", err)
		WriteError(w, http.StatusBadGateway, "failed to embed query")
		return
	}

	results, err := h.store.SearchSimilarSegments(r.Context(), embedding, req.Limit)
	if err != nil {
		if errors.Is(err, catalog.ErrUnsupported) {
			WriteError(w, http.StatusNotImplemented, "semantic search needs PostgreSQL with pgvector")
			return
		}
		h.log.Errorw("msg", "similarity search failed", "err", err)
		WriteError(w, http.StatusInternalServerError, "search failed")
		return
	}
	if results == nil {
		results = []models.SearchResult{}
	}
	WriteJSON(w, http.StatusOK, "ok", models.SearchResponse{Results: results})
}
