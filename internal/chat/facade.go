package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-kratos/kratos/v2/log"

	"jamesfarrell.me/youtube-chat/internal/logging"
	"jamesfarrell.me/youtube-chat/internal/storage/models"
)

// HistoryLimit is how many messages History returns.
const HistoryLimit = 50

// ErrServiceUnavailable is the one error Handle reports: the caller went
// away before an answer could be delivered.
var ErrServiceUnavailable = errors.New("chat service unavailable")

type Answerer interface {
	Answer(ctx context.Context, question string) models.ChatAnswer
}

// History persists answered questions and looks up cited videos.
type History interface {
	SaveChatMessage(ctx context.Context, msg *models.ChatMessage) error
	ChatHistory(ctx context.Context, limit int) ([]models.ChatMessage, error)
	GetVideo(ctx context.Context, id int64) (*models.Video, error)
}

type Facade struct {
	answers Answerer
	history History
	log     *log.Helper
}

// NewFacade wires an answerer to an optional history store.
func NewFacade(answers Answerer, history History, logger log.Logger) *Facade {
	return &Facade{
		answers: answers,
		history: history,
		log:     logging.Helper(logger, "chat"),
	}
}

// Handle answers one question, attaches the cited video and records the
// exchange.
func (f *Facade) Handle(ctx context.Context, question string) (*models.ChatResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}

	answer := f.answers.Answer(ctx, question)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}

	resp := &models.ChatResponse{ChatAnswer: answer}
	if f.history == nil {
		return resp, nil
	}

	if answer.VideoID != nil && answer.YouTubeID != nil {
		video, err := f.history.GetVideo(ctx, *answer.VideoID)
		if err != nil {
			f.log.Warnw("msg", "load cited video failed", "video_id", *answer.VideoID, "err", err)
		} else {
			resp.Video = video
		}
	}

	msg := &models.ChatMessage{
		Question:  question,
		Answer:    answer.Answer,
		StartTime: answer.StartTime,
		EndTime:   answer.EndTime,
	}
	// Only resolved ids are stored; the column references videos.
	if answer.YouTubeID != nil {
		msg.VideoID = answer.VideoID
	}
	if err := f.history.SaveChatMessage(ctx, msg); err != nil {
		f.log.Errorw("msg", "save chat message failed", "err", err)
	}
	return resp, nil
}

// History returns the latest HistoryLimit exchanges, newest first.
func (f *Facade) History(ctx context.Context) ([]models.ChatMessage, error) {
	if f.history == nil {
		return nil, nil
	}
	return f.history.ChatHistory(ctx, HistoryLimit)
}
