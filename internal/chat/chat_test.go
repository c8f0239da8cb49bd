package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jamesfarrell.me/youtube-chat/internal/config"
	"jamesfarrell.me/youtube-chat/internal/llm"
	"jamesfarrell.me/youtube-chat/internal/logging"
	"jamesfarrell.me/youtube-chat/internal/storage/catalog"
	"jamesfarrell.me/youtube-chat/internal/storage/db"
	"jamesfarrell.me/youtube-chat/internal/storage/models"
)

type fakeCompleter struct {
	content string
	err     error
	panics  bool
	got     []llm.Message
}

func (f *fakeCompleter) Complete(ctx context.Context, messages []llm.Message, timeout time.Duration) (string, error) {
	if f.panics {
		panic("boom")
	}
	f.got = messages
	return f.content, f.err
}

type fakeCatalog struct {
	rows   []models.MatchRow
	videos []models.Video
	ids    map[int64]string
}

func (f *fakeCatalog) SearchContent(ctx context.Context, query string) []models.MatchRow {
	return f.rows
}

func (f *fakeCatalog) ListAllVideos(ctx context.Context) []models.Video {
	return f.videos
}

func (f *fakeCatalog) GetExternalID(ctx context.Context, videoID int64) (string, bool) {
	id, ok := f.ids[videoID]
	return id, ok
}

func newSQLiteCatalog(t *testing.T) (*catalog.Store, *db.DB) {
	t.Helper()
	d, err := db.NewConnection(db.Config{URL: "sqlite::memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	require.NoError(t, d.Migrate(context.Background(), false))
	return catalog.NewStore(d, logging.Discard()), d
}

func TestAnswerRoundTrip(t *testing.T) {
	store, _ := newSQLiteCatalog(t)
	ctx := context.Background()
	for i, id := range []string{"first1", "second", "abc123"} {
		require.NoError(t, store.CreateVideo(ctx, &models.Video{YouTubeID: id, Title: fmt.Sprintf("Video %d", i+1)}))
	}

	completer := &fakeCompleter{content: `{"answer":"X","video_id":3,"start_time":10,"end_time":20}`}
	s := NewSynthesizer(store, completer, 50*time.Second, logging.Discard())

	got := s.Answer(ctx, "where is X?")
	require.NotNil(t, got.VideoID)
	require.NotNil(t, got.YouTubeID)
	require.NotNil(t, got.StartTime)
	require.NotNil(t, got.EndTime)
	assert.Equal(t, "X", got.Answer)
	assert.Equal(t, int64(3), *got.VideoID)
	assert.Equal(t, "abc123", *got.YouTubeID)
	assert.Equal(t, 10, *got.StartTime)
	assert.Equal(t, 20, *got.EndTime)
}

func TestAnswerNeverFails(t *testing.T) {
	cat := &fakeCatalog{ids: map[int64]string{3: "abc123"}}

	tests := []struct {
		name        string
		completer   *fakeCompleter
		wantAnswer  string
		wantContain string
		wantVideoID *int64
	}{
		{
			name:        "upstream error",
			completer:   &fakeCompleter{err: &llm.UpstreamError{StatusCode: 502, Message: "rate limited"}},
			wantContain: "rate limited",
		},
		{
			name:        "transport error",
			completer:   &fakeCompleter{err: fmt.Errorf("chat completion: %w", errors.New("dial tcp: connection refused"))},
			wantContain: "Error processing question: chat completion: dial tcp: connection refused",
		},
		{
			name:       "empty content",
			completer:  &fakeCompleter{err: llm.ErrEmptyContent},
			wantAnswer: MalformedReplyAnswer,
		},
		{
			name:       "plain text reply",
			completer:  &fakeCompleter{content: "There are no videos about that."},
			wantAnswer: "There are no videos about that.",
		},
		{
			name:       "broken json",
			completer:  &fakeCompleter{content: `Sure {"answer": "half`},
			wantAnswer: `Sure {"answer": "half`,
		},
		{
			name:        "unknown video id",
			completer:   &fakeCompleter{content: `{"answer":"Y","video_id":99}`},
			wantAnswer:  "Y",
			wantVideoID: ptr(int64(99)),
		},
		{
			name:       "panic",
			completer:  &fakeCompleter{panics: true},
			wantAnswer: GenericFailureAnswer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSynthesizer(cat, tt.completer, time.Second, nil)
			got := s.Answer(context.Background(), "question")

			if tt.wantAnswer != "" {
				assert.Equal(t, tt.wantAnswer, got.Answer)
			}
			if tt.wantContain != "" {
				assert.Contains(t, got.Answer, tt.wantContain)
			}
			assert.Equal(t, tt.wantVideoID, got.VideoID)
			assert.Nil(t, got.YouTubeID)
		})
	}
}

func TestAnswerRateLimitedEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer srv.Close()

	client := llm.NewClient(config.LLMConfig{APIKey: "test-key", BaseURL: srv.URL, Model: "ernie-3.5-8k-preview"})
	s := NewSynthesizer(&fakeCatalog{}, client, time.Second, nil)

	got := s.Answer(context.Background(), "anything")
	assert.Equal(t, "LLM service error: rate limited", got.Answer)
	assert.Nil(t, got.VideoID)
	assert.Nil(t, got.StartTime)
}

func TestAnswerEmptyCatalog(t *testing.T) {
	store, _ := newSQLiteCatalog(t)
	completer := &fakeCompleter{content: `{"answer":"The library is empty."}`}
	s := NewSynthesizer(store, completer, time.Second, nil)

	assert.Equal(t, "", s.BuildContext(context.Background(), "what videos exist?"))

	got := s.Answer(context.Background(), "what videos exist?")
	assert.Equal(t, "The library is empty.", got.Answer)

	require.Len(t, completer.got, 2)
	assert.Equal(t, llm.RoleSystem, completer.got[0].Role)
	assert.Contains(t, completer.got[0].Content, "video_id must be the database video ID")
	assert.Equal(t, llm.RoleUser, completer.got[1].Role)
	assert.Equal(t, "what videos exist?", completer.got[1].Content)
}

func TestAnswerStoreUnreachable(t *testing.T) {
	store, d := newSQLiteCatalog(t)
	require.NoError(t, d.Close())

	completer := &fakeCompleter{content: `{"answer":"Z","video_id":1}`}
	s := NewSynthesizer(store, completer, time.Second, nil)

	got := s.Answer(context.Background(), "anything")
	assert.Equal(t, "Z", got.Answer)
	require.NotNil(t, got.VideoID)
	assert.Nil(t, got.YouTubeID)
}

func TestBuildContextFromSearch(t *testing.T) {
	var rows []models.MatchRow
	for i := 1; i <= 7; i++ {
		rows = append(rows, models.MatchRow{VideoID: int64(i), Title: fmt.Sprintf("T%d", i), YouTubeID: fmt.Sprintf("yt%d", i), Description: "desc"})
	}
	start, end, content, summary := 30, 90, "goroutines", "how to spawn"
	segID := int64(11)
	rows[1].SegmentID, rows[1].StartTime, rows[1].EndTime = &segID, &start, &end
	rows[1].Content, rows[1].Summary = &content, &summary

	s := NewSynthesizer(&fakeCatalog{rows: rows}, &fakeCompleter{}, time.Second, nil)
	block := s.BuildContext(context.Background(), "go")

	assert.True(t, strings.HasPrefix(block, "Relevant video content:"))
	assert.Contains(t, block, "Video ID: 5\n")
	assert.NotContains(t, block, "Video ID: 6\n")
	assert.Contains(t, block, "Video description: desc\n")
	assert.Contains(t, block, "Segment time: 30-90 seconds\nSegment content: goroutines\nSegment summary: how to spawn\n")
	assert.Equal(t, MaxContextRows, strings.Count(block, "---"))
}

func TestBuildContextFallsBackToCatalog(t *testing.T) {
	long := strings.Repeat("é", 300)
	cat := &fakeCatalog{videos: []models.Video{
		{ID: 1, Title: "Go talk", YouTubeID: "abc123", Description: long},
		{ID: 2, Title: "Rust talk", YouTubeID: "def456", Description: "short"},
	}}

	s := NewSynthesizer(cat, &fakeCompleter{}, time.Second, nil)
	block := s.BuildContext(context.Background(), "nothing matches")

	assert.True(t, strings.HasPrefix(block, "Videos in the library:"))
	assert.Contains(t, block, "Description: "+strings.Repeat("é", DescriptionPreview)+"...\n")
	assert.NotContains(t, block, strings.Repeat("é", DescriptionPreview+1))
	assert.Contains(t, block, "YouTube ID: def456\n")
}

func ptr[T any](v T) *T {
	return &v
}
