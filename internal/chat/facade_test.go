package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jamesfarrell.me/youtube-chat/internal/storage/models"
)

type staticAnswerer struct {
	answer models.ChatAnswer
	calls  int
}

func (s *staticAnswerer) Answer(ctx context.Context, question string) models.ChatAnswer {
	s.calls++
	return s.answer
}

func TestFacadeHandle(t *testing.T) {
	store, _ := newSQLiteCatalog(t)
	ctx := context.Background()

	video := &models.Video{YouTubeID: "abc123", Title: "Go talk"}
	require.NoError(t, store.CreateVideo(ctx, video))

	answers := &staticAnswerer{answer: models.ChatAnswer{
		Answer:    "at minute one",
		VideoID:   &video.ID,
		YouTubeID: ptr("abc123"),
		StartTime: ptr(60),
		EndTime:   ptr(120),
	}}
	f := NewFacade(answers, store, nil)

	resp, err := f.Handle(ctx, "when?")
	require.NoError(t, err)
	assert.Equal(t, "at minute one", resp.Answer)
	require.NotNil(t, resp.Video)
	assert.Equal(t, "Go talk", resp.Video.Title)

	history, err := f.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "when?", history[0].Question)
	assert.Equal(t, &video.ID, history[0].VideoID)
	require.NotNil(t, history[0].Video)
	assert.Equal(t, "abc123", history[0].Video.YouTubeID)
}

func TestFacadeUnresolvedVideoIsNotStored(t *testing.T) {
	store, _ := newSQLiteCatalog(t)
	ctx := context.Background()

	answers := &staticAnswerer{answer: models.ChatAnswer{Answer: "A", VideoID: ptr(int64(42))}}
	f := NewFacade(answers, store, nil)

	resp, err := f.Handle(ctx, "q")
	require.NoError(t, err)
	assert.Nil(t, resp.Video)
	assert.Equal(t, ptr(int64(42)), resp.VideoID)

	history, err := f.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Nil(t, history[0].VideoID)
}

func TestFacadeHistoryFailureDoesNotFailAnswer(t *testing.T) {
	store, d := newSQLiteCatalog(t)
	require.NoError(t, d.Close())

	f := NewFacade(&staticAnswerer{answer: models.ChatAnswer{Answer: "A"}}, store, nil)
	resp, err := f.Handle(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "A", resp.Answer)
}

func TestFacadeCancelledRequest(t *testing.T) {
	answers := &staticAnswerer{answer: models.ChatAnswer{Answer: "A"}}
	f := NewFacade(answers, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Handle(ctx, "q")
	assert.ErrorIs(t, err, ErrServiceUnavailable)
	assert.Zero(t, answers.calls)
}

func TestFacadeWithoutHistory(t *testing.T) {
	f := NewFacade(&staticAnswerer{answer: models.ChatAnswer{Answer: "A"}}, nil, nil)

	resp, err := f.Handle(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "A", resp.Answer)

	history, err := f.History(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, history)
}
