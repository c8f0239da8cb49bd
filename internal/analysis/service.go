// Package analysis segments registered videos and stores the result,
// either inline after registration or from a LISTEN/NOTIFY worker.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-kratos/kratos/v2/log"

	"jamesfarrell.me/youtube-chat/internal/logging"
	"jamesfarrell.me/youtube-chat/internal/storage/catalog"
	"jamesfarrell.me/youtube-chat/internal/storage/models"
)

type Synthesizer interface {
	Synthesize(ctx context.Context, externalID string) []models.SegmentDraft
}

type Store interface {
	GetVideo(ctx context.Context, id int64) (*models.Video, error)
	GetVideoByExternalID(ctx context.Context, youTubeID string) (*models.Video, error)
	ReplaceSegments(ctx context.Context, videoID int64, drafts []models.SegmentDraft) ([]models.VideoSegment, error)
	SaveSegmentEmbedding(ctx context.Context, segmentID int64, embedding []float32) error
}

type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Outcome is the result of analyzing a YouTube id.
type Outcome struct {
	VideoID  *int64                `json:"video_id,omitempty"`
	Stored   bool                  `json:"stored"`
	Segments []models.SegmentDraft `json:"segments"`
}

type Service struct {
	synth    Synthesizer
	store    Store
	embedder Embedder
	log      *log.Helper

	wg sync.WaitGroup
}

// NewService wires the analyzer. embedder may be nil to skip indexing.
func NewService(synth Synthesizer, store Store, embedder Embedder, logger log.Logger) *Service {
	return &Service{
		synth:    synth,
		store:    store,
		embedder: embedder,
		log:      logging.Helper(logger, "analysis"),
	}
}

// Analyze segments video and replaces its stored segments. Embeddings are
// indexed best effort.
func (s *Service) Analyze(ctx context.Context, video *models.Video) ([]models.VideoSegment, error) {
	drafts := s.synth.Synthesize(ctx, video.YouTubeID)

	segments, err := s.store.ReplaceSegments(ctx, video.ID, drafts)
	if err != nil {
		return nil, fmt.Errorf("store segments for video %d: %w", video.ID, err)
	}
	s.log.Infow("msg", "video analyzed", "video_id", video.ID, "youtube_id", video.YouTubeID, "segments", len(segments))

	if s.embedder != nil {
		if err := s.index(ctx, segments); err != nil {
			s.log.Warnw("msg", "segment embeddings skipped", "video_id", video.ID, "err", err)
		}
	}
	return segments, nil
}

// AnalyzeExternal analyzes a YouTube id. Registered videos get their
// segments replaced; unknown ids only get a preview.
func (s *Service) AnalyzeExternal(ctx context.Context, youTubeID string) (*Outcome, error) {
	video, err := s.store.GetVideoByExternalID(ctx, youTubeID)
	if errors.Is(err, catalog.ErrNotFound) {
		return &Outcome{Segments: s.synth.Synthesize(ctx, youTubeID)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("look up video %s: %w", youTubeID, err)
	}

	segments, err := s.Analyze(ctx, video)
	if err != nil {
		return nil, err
	}
	out := &Outcome{VideoID: &video.ID, Stored: true, Segments: make([]models.SegmentDraft, 0, len(segments))}
	for _, seg := range segments {
		out.Segments = append(out.Segments, models.SegmentDraft{
			StartTime: seg.StartTime,
			EndTime:   seg.EndTime,
			Content:   seg.Content,
			Summary:   seg.Summary,
		})
	}
	return out, nil
}

// AnalyzeAsync runs Analyze in the background, detached from the
// cancellation of ctx. Wait blocks until such runs finish.
func (s *Service) AnalyzeAsync(ctx context.Context, video models.Video) {
	ctx = context.WithoutCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := s.Analyze(ctx, &video); err != nil {
			s.log.Errorw("msg", "background analysis failed", "video_id", video.ID, "err", err)
		}
	}()
}

func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) index(ctx context.Context, segments []models.VideoSegment) error {
	if len(segments) == 0 {
		return nil
	}

	texts := make([]string, len(segments))
	for i, seg := range segments {
		texts[i] = seg.Content + "\n" + seg.Summary
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}

	for i, seg := range segments {
		if err := s.store.SaveSegmentEmbedding(ctx, seg.ID, vectors[i]); err != nil {
			return fmt.Errorf("segment %d: %w", seg.ID, err)
		}
	}
	return nil
}
