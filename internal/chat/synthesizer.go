// Package chat answers questions about the video library: it picks the
// context to show the LLM, asks it, and reconciles the reply into a typed
// answer.
package chat

import (
	"context"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"jamesfarrell.me/youtube-chat/internal/llm"
	"jamesfarrell.me/youtube-chat/internal/logging"
	"jamesfarrell.me/youtube-chat/internal/storage/models"
)

// GenericFailureAnswer is returned when answering fails unexpectedly.
const GenericFailureAnswer = processingPrefix + "unexpected internal failure"

// Catalog is the read side of the video store used while answering.
type Catalog interface {
	ExternalIDResolver
	SearchContent(ctx context.Context, query string) []models.MatchRow
	ListAllVideos(ctx context.Context) []models.Video
}

type Completer interface {
	Complete(ctx context.Context, messages []llm.Message, timeout time.Duration) (string, error)
}

type Synthesizer struct {
	catalog Catalog
	llm     Completer
	timeout time.Duration
	log     *log.Helper
}

func NewSynthesizer(catalog Catalog, completer Completer, timeout time.Duration, logger log.Logger) *Synthesizer {
	return &Synthesizer{
		catalog: catalog,
		llm:     completer,
		timeout: timeout,
		log:     logging.Helper(logger, "chat"),
	}
}

// Answer never fails and never panics: every problem is reported in the
// answer text.
func (s *Synthesizer) Answer(ctx context.Context, question string) (answer models.ChatAnswer) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Errorw("msg", "answer panicked", "panic", r)
			answer = models.ChatAnswer{Answer: GenericFailureAnswer}
		}
	}()

	contextBlock := s.BuildContext(ctx, question)
	content, err := s.llm.Complete(ctx, BuildMessages(contextBlock, question), s.timeout)
	if err != nil {
		s.log.Warnw("msg", "chat completion failed", "err", err)
	}

	answer = Reconcile(ctx, content, err, s.catalog)
	if answer.VideoID != nil && answer.YouTubeID == nil {
		s.log.Warnw("msg", "cited video could not be resolved", "video_id", *answer.VideoID)
	}
	return answer
}

// BuildContext renders the search hits for question, or the whole catalog
// when nothing matches. An empty catalog gives an empty block.
func (s *Synthesizer) BuildContext(ctx context.Context, question string) string {
	if rows := s.catalog.SearchContent(ctx, question); len(rows) > 0 {
		return RenderMatches(rows)
	}
	return RenderCatalog(s.catalog.ListAllVideos(ctx))
}
