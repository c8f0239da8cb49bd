package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jamesfarrell.me/youtube-chat/internal/analysis"
	"jamesfarrell.me/youtube-chat/internal/api/handlers"
	"jamesfarrell.me/youtube-chat/internal/api/middleware"
	"jamesfarrell.me/youtube-chat/internal/chat"
	"jamesfarrell.me/youtube-chat/internal/config"
	"jamesfarrell.me/youtube-chat/internal/llm"
	"jamesfarrell.me/youtube-chat/internal/logging"
	"jamesfarrell.me/youtube-chat/internal/segments"
	"jamesfarrell.me/youtube-chat/internal/storage/catalog"
	"jamesfarrell.me/youtube-chat/internal/storage/db"
	"jamesfarrell.me/youtube-chat/internal/storage/models"
	"jamesfarrell.me/youtube-chat/internal/youtube"
)

const testKey = "secret"

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testEnv struct {
	srv      *httptest.Server
	store    *catalog.Store
	analysis *analysis.Service
}

// newTestEnv wires the full stack on an in-memory database. The fake model
// always returns reply.
func newTestEnv(t *testing.T, reply string) *testEnv {
	t.Helper()

	model := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":%q},"finish_reason":"stop"}]}`, reply)
	}))
	t.Cleanup(model.Close)

	d, err := db.NewConnection(db.Config{URL: "sqlite::memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	require.NoError(t, d.Migrate(context.Background(), false))

	logger := logging.Discard()
	store := catalog.NewStore(d, logger)
	videos, err := youtube.NewProvider(context.Background(), config.YouTubeConfig{RequestsPerSecond: 10, Timeout: time.Second}, logger)
	require.NoError(t, err)
	client := llm.NewClient(config.LLMConfig{APIKey: "test-key", BaseURL: model.URL, Model: "test-model"})

	svc := analysis.NewService(segments.NewSynthesizer(videos, client, time.Second, logger), store, nil, logger)
	facade := chat.NewFacade(chat.NewSynthesizer(store, client, time.Second, logger), store, logger)

	router := NewRouter(Handlers{
		Videos: handlers.NewVideoHandler(store, videos, svc, true, logger),
		Chat:   handlers.NewChatHandler(facade, logger),
		Search: handlers.NewSearchHandler(nil, store, logger),
	}, testKey, logger)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	t.Cleanup(svc.Wait)
	return &testEnv{srv: srv, store: store, analysis: svc}
}

func (e *testEnv) do(t *testing.T, method, path, body string, key string) (*http.Response, envelope) {
	t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, bytes.NewReader([]byte(body)))
	require.NoError(t, err)
	if key != "" {
		req.Header.Set(middleware.APIKeyHeader, key)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp, env
}

func TestHealthIsPublic(t *testing.T) {
	e := newTestEnv(t, "{}")
	resp, env := e.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, http.StatusOK, env.Code)
	assert.NotEmpty(t, resp.Header.Get(middleware.RequestIDHeader))
}

func TestAPIKeyRequired(t *testing.T) {
	e := newTestEnv(t, "{}")

	resp, _ := e.do(t, http.MethodGet, "/api/videos", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = e.do(t, http.MethodGet, "/api/videos", "", "wrong")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, env := e.do(t, http.MethodGet, "/api/videos", "", testKey)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestUnknownRoute(t *testing.T) {
	e := newTestEnv(t, "{}")
	resp, env := e.do(t, http.MethodGet, "/nope", "", testKey)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not found", env.Message)
}

func TestAddVideoAnalyzesInline(t *testing.T) {
	e := newTestEnv(t, "not segments")

	resp, env := e.do(t, http.MethodPost, "/api/videos", `{"youtube_url":"https://www.youtube.com/watch?v=abc123xyz"}`, testKey)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var video models.Video
	require.NoError(t, json.Unmarshal(env.Data, &video))
	assert.Equal(t, "abc123xyz", video.YouTubeID)
	assert.Equal(t, "Sample video abc123xyz", video.Title)
	assert.NotZero(t, video.ID)

	resp, _ = e.do(t, http.MethodPost, "/api/videos", `{"youtube_url":"https://youtu.be/abc123xyz"}`, testKey)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	e.analysis.Wait()

	resp, env = e.do(t, http.MethodGet, "/api/videos", "", testKey)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var videos []models.Video
	require.NoError(t, json.Unmarshal(env.Data, &videos))
	require.Len(t, videos, 1)
	require.Len(t, videos[0].Segments, segments.FallbackCount)
	assert.Equal(t, 3600, videos[0].Segments[segments.FallbackCount-1].EndTime)
}

func TestAddVideoRejectsBadInput(t *testing.T) {
	e := newTestEnv(t, "{}")
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{`},
		{"not youtube", `{"youtube_url":"https://example.com/watch?v=abc123xyz"}`},
		{"empty", `{"youtube_url":""}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := e.do(t, http.MethodPost, "/api/videos", tt.body, testKey)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestDeleteVideo(t *testing.T) {
	e := newTestEnv(t, "{}")
	v := &models.Video{YouTubeID: "del123", Title: "gone"}
	require.NoError(t, e.store.CreateVideo(context.Background(), v))

	resp, _ := e.do(t, http.MethodDelete, fmt.Sprintf("/api/videos/%d", v.ID), "", testKey)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = e.do(t, http.MethodDelete, fmt.Sprintf("/api/videos/%d", v.ID), "", testKey)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = e.do(t, http.MethodDelete, "/api/videos/0", "", testKey)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestVideoInfoAndAnalyze(t *testing.T) {
	e := newTestEnv(t, `[{"start_time":0,"end_time":90,"content":"intro","summary":"hello"},
		{"start_time":90,"end_time":600,"content":"setup"},{"start_time":600,"end_time":1800,"content":"demo"},
		{"start_time":1800,"end_time":3000,"content":"questions"},{"start_time":3000,"end_time":3600,"content":"outro"}]`)

	resp, env := e.do(t, http.MethodGet, "/api/videos/zzz999/info", "", testKey)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var meta models.VideoMetadata
	require.NoError(t, json.Unmarshal(env.Data, &meta))
	assert.Equal(t, youtube.MockMetadata("zzz999"), meta)

	resp, env = e.do(t, http.MethodPost, "/api/videos/zzz999/analyze", "", testKey)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out analysis.Outcome
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.False(t, out.Stored)
	require.Len(t, out.Segments, segments.MinSegments)
	assert.Equal(t, "intro", out.Segments[0].Content)
	assert.Equal(t, "outro", out.Segments[4].Content)
}

func TestChatRoundTrip(t *testing.T) {
	e := newTestEnv(t, `Sure: {"answer":"It starts at one minute","video_id":1,"start_time":60.7,"end_time":120}`)
	v := &models.Video{YouTubeID: "abc123", Title: "Cooking pasta", Description: "how to cook"}
	require.NoError(t, e.store.CreateVideo(context.Background(), v))
	require.EqualValues(t, 1, v.ID)

	resp, env := e.do(t, http.MethodPost, "/api/chat", `{"question":"when does the pasta start?"}`, testKey)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got models.ChatResponse
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, "It starts at one minute", got.Answer)
	require.NotNil(t, got.YouTubeID)
	assert.Equal(t, "abc123", *got.YouTubeID)
	require.NotNil(t, got.StartTime)
	assert.Equal(t, 60, *got.StartTime)
	require.NotNil(t, got.Video)
	assert.Equal(t, "Cooking pasta", got.Video.Title)

	resp, env = e.do(t, http.MethodGet, "/api/chat/history", "", testKey)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var history []models.ChatMessage
	require.NoError(t, json.Unmarshal(env.Data, &history))
	require.Len(t, history, 1)
	assert.Equal(t, "when does the pasta start?", history[0].Question)
}

func TestChatRequiresQuestion(t *testing.T) {
	e := newTestEnv(t, "{}")
	for _, body := range []string{`{}`, `{"question":"   "}`, `nope`} {
		resp, _ := e.do(t, http.MethodPost, "/api/chat", body, testKey)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}
}

func TestSearchDisabled(t *testing.T) {
	e := newTestEnv(t, "{}")
	resp, _ := e.do(t, http.MethodPost, "/api/search", `{"query":"pasta"}`, testKey)
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
}

func TestOpenRoutesWithoutKey(t *testing.T) {
	h := NewRouter(Handlers{
		Videos: handlers.NewVideoHandler(nil, nil, nil, false, nil),
		Chat:   handlers.NewChatHandler(nil, nil),
		Search: handlers.NewSearchHandler(nil, nil, nil),
	}, "", nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(`{"query":"x"}`)))
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestPanicsBecome500(t *testing.T) {
	h := NewRouter(Handlers{
		Videos: handlers.NewVideoHandler(nil, nil, nil, false, nil),
		Chat:   handlers.NewChatHandler(nil, nil),
		Search: handlers.NewSearchHandler(nil, nil, nil),
	}, "", nil)

	// The nil store panics on first use.
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/videos", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
