package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/gorilla/mux"

	"jamesfarrell.me/youtube-chat/internal/analysis"
	"jamesfarrell.me/youtube-chat/internal/logging"
	"jamesfarrell.me/youtube-chat/internal/storage/catalog"
	"jamesfarrell.me/youtube-chat/internal/storage/models"
)

type VideoStore interface {
	ListVideosWithSegments(ctx context.Context) ([]models.Video, error)
	GetVideoByExternalID(ctx context.Context, youTubeID string) (*models.Video, error)
	CreateVideo(ctx context.Context, video *models.Video) error
	DeleteVideo(ctx context.Context, id int64) error
}

type MetadataFetcher interface {
	Fetch(ctx context.Context, externalID string) models.VideoMetadata
}

type Analyzer interface {
	AnalyzeExternal(ctx context.Context, youTubeID string) (*analysis.Outcome, error)
	AnalyzeAsync(ctx context.Context, video models.Video)
}

type VideoHandler struct {
	store    VideoStore
	videos   MetadataFetcher
	analyzer Analyzer
	inline   bool
	log      *log.Helper
}

// NewVideoHandler builds the video endpoints. With inline set, new videos
// are analyzed in the background by this process; otherwise a worker
// picks them up.
func NewVideoHandler(store VideoStore, videos MetadataFetcher, analyzer Analyzer, inline bool, logger log.Logger) *VideoHandler {
	return &VideoHandler{
		store:    store,
		videos:   videos,
		analyzer: analyzer,
		inline:   inline,
		log:      logging.Helper(logger, "api"),
	}
}

func (h *VideoHandler) ListVideos(w http.ResponseWriter, r *http.Request) {
	videos, err := h.store.ListVideosWithSegments(r.Context())
	if err != nil {
		h.log.Errorw("msg", "list videos failed", "err", err)
		WriteError(w, http.StatusInternalServerError, "failed to list videos")
		return
	}
	if videos == nil {
		videos = []models.Video{}
	}
	WriteJSON(w, http.StatusOK, "ok", videos)
}

func (h *VideoHandler) AddVideo(w http.ResponseWriter, r *http.Request) {
	var req models.VideoRequest
	if err := decodeBody(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	youTubeID := models.ExtractYouTubeID(req.URL)
	if youTubeID == "" {
		WriteError(w, http.StatusBadRequest, "invalid YouTube URL")
		return
	}

	ctx := r.Context()
	_, err := h.store.GetVideoByExternalID(ctx, youTubeID)
	switch {
	case err == nil:
		WriteError(w, http.StatusConflict, "video already exists")
		return
	case !errors.Is(err, catalog.ErrNotFound):
		h.log.Errorw("msg", "look up video failed", "youtube_id", youTubeID, "err", err)
		WriteError(w, http.StatusInternalServerError, "failed to check video")
		return
	}

	meta := h.videos.Fetch(ctx, youTubeID)
	video := &models.Video{
		YouTubeID:   youTubeID,
		Title:       meta.Title,
		Description: meta.Description,
		Thumbnail:   meta.Thumbnail,
		Duration:    meta.Duration,
	}
	if err := h.store.CreateVideo(ctx, video); err != nil {
		h.log.Errorw("msg", "save video failed", "youtube_id", youTubeID, "err", err)
		WriteError(w, http.StatusInternalServerError, "failed to save video")
		return
	}

	if h.inline {
		h.analyzer.AnalyzeAsync(ctx, *video)
	}

	h.log.Infow("msg", "video added", "video_id", video.ID, "youtube_id", youTubeID, "title", video.Title)
	WriteJSON(w, http.StatusOK, "video added", video)
}

func (h *VideoHandler) DeleteVideo(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		WriteError(w, http.StatusBadRequest, "invalid video id")
		return
	}

	if err := h.store.DeleteVideo(r.Context(), id); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "video not found")
			return
		}
		h.log.Errorw("msg", "delete video failed", "video_id", id, "err", err)
		WriteError(w, http.StatusInternalServerError, "failed to delete video")
		return
	}

	h.log.Infow("msg", "video deleted", "video_id", id)
	WriteJSON(w, http.StatusOK, "video deleted", nil)
}

func (h *VideoHandler) VideoInfo(w http.ResponseWriter, r *http.Request) {
	youTubeID := mux.Vars(r)["youtubeID"]
	WriteJSON(w, http.StatusOK, "ok", h.videos.Fetch(r.Context(), youTubeID))
}

func (h *VideoHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	youTubeID := mux.Vars(r)["youtubeID"]

	out, err := h.analyzer.AnalyzeExternal(r.Context(), youTubeID)
	if err != nil {
		h.log.Errorw("msg", "analyze video failed", "youtube_id", youTubeID, "err", err)
		WriteError(w, http.StatusInternalServerError, "failed to analyze video")
		return
	}
	WriteJSON(w, http.StatusOK, "ok", out)
}
