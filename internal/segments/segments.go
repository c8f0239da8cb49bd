// Package segments splits a video into titled time ranges, asking the LLM
// first and falling back to an equal five-way split.
package segments

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"jamesfarrell.me/youtube-chat/internal/llm"
	"jamesfarrell.me/youtube-chat/internal/logging"
	"jamesfarrell.me/youtube-chat/internal/storage/models"
)

// FallbackCount is the number of ranges EqualSplit produces.
const FallbackCount = 5

// A reply is used only when it has MinSegments usable ranges; ranges past
// MaxSegments are dropped.
const (
	MinSegments = 5
	MaxSegments = 10
)

// mockDuration is assumed when metadata could not be read at all.
const mockDuration = 3600

type MetadataProvider interface {
	Fetch(ctx context.Context, externalID string) models.VideoMetadata
}

type Completer interface {
	Complete(ctx context.Context, messages []llm.Message, timeout time.Duration) (string, error)
}

type Synthesizer struct {
	videos  MetadataProvider
	llm     Completer
	timeout time.Duration
	log     *log.Helper
}

func NewSynthesizer(videos MetadataProvider, completer Completer, timeout time.Duration, logger log.Logger) *Synthesizer {
	return &Synthesizer{
		videos:  videos,
		llm:     completer,
		timeout: timeout,
		log:     logging.Helper(logger, "segments"),
	}
}

// Synthesize returns the ordered segments of externalID. It never fails.
func (s *Synthesizer) Synthesize(ctx context.Context, externalID string) (drafts []models.SegmentDraft) {
	duration := mockDuration
	defer func() {
		if r := recover(); r != nil {
			s.log.Errorw("msg", "segment analysis panicked, using equal split", "youtube_id", externalID, "panic", r)
			drafts = EqualSplit(duration)
		}
	}()

	meta := s.videos.Fetch(ctx, externalID)
	duration = meta.Duration

	content, err := s.llm.Complete(ctx, buildMessages(meta), s.timeout)
	if err != nil {
		s.log.Warnw("msg", "segment analysis failed, using equal split", "youtube_id", externalID, "err", err)
		return EqualSplit(meta.Duration)
	}

	drafts, err = ParseDrafts(content)
	if err != nil {
		s.log.Warnw("msg", "unusable segment reply, using equal split", "youtube_id", externalID,
			"err", err, "reply", llm.Truncate(content, 200))
		return EqualSplit(meta.Duration)
	}
	if len(drafts) < MinSegments {
		s.log.Warnw("msg", "too few segments in reply, using equal split", "youtube_id", externalID, "count", len(drafts))
		return EqualSplit(meta.Duration)
	}
	if len(drafts) > MaxSegments {
		drafts = drafts[:MaxSegments]
	}
	return drafts
}

func buildMessages(meta models.VideoMetadata) []llm.Message {
	prompt := fmt.Sprintf(`You are a professional video content analyst. Split the following YouTube video into meaningful time segments.

Video information:
- Title: %s
- Description: %s...
- Duration: %d seconds

Split the video into 5-10 meaningful segments. Each segment has:
1. start time (seconds)
2. end time (seconds)
3. a description of the segment content
4. a summary of the segment

Answer with a JSON array:
[
  {
    "start_time": 0,
    "end_time": 300,
    "content": "segment content description",
    "summary": "detailed segment summary"
  },
  ...
]`, meta.Title, llm.Truncate(meta.Description, 500), meta.Duration)

	return []llm.Message{{Role: llm.RoleSystem, Content: prompt}}
}

type rawDraft struct {
	StartTime *float64 `json:"start_time"`
	EndTime   *float64 `json:"end_time"`
	Content   string   `json:"content"`
	Summary   string   `json:"summary"`
}

// ParseDrafts bracket-scans content for a JSON array of segments and returns
// them ordered by start time. Entries without times, with times outside
// [0, math.MaxInt32], or ending before they start are dropped; an error is
// returned when nothing usable is left.
func ParseDrafts(content string) ([]models.SegmentDraft, error) {
	span, err := llm.ExtractJSONArray(content)
	if err != nil {
		return nil, err
	}

	var raw []rawDraft
	if err := json.Unmarshal([]byte(span), &raw); err != nil {
		return nil, fmt.Errorf("decode segments: %w", err)
	}

	drafts := make([]models.SegmentDraft, 0, len(raw))
	for _, r := range raw {
		if r.StartTime == nil || r.EndTime == nil {
			continue
		}
		start, end := *r.StartTime, *r.EndTime
		if start < 0 || end < start || end > math.MaxInt32 {
			continue
		}
		drafts = append(drafts, models.SegmentDraft{
			StartTime: int(start),
			EndTime:   int(end),
			Content:   r.Content,
			Summary:   r.Summary,
		})
	}
	if len(drafts) == 0 {
		return nil, fmt.Errorf("no usable segments in reply")
	}
	sort.SliceStable(drafts, func(i, j int) bool { return drafts[i].StartTime < drafts[j].StartTime })
	return drafts, nil
}

// EqualSplit cuts total seconds into FallbackCount ranges of width
// total/FallbackCount. The last range ends at total.
func EqualSplit(total int) []models.SegmentDraft {
	if total < 0 {
		total = 0
	}
	width := total / FallbackCount

	drafts := make([]models.SegmentDraft, 0, FallbackCount)
	for i := 0; i < FallbackCount; i++ {
		start := i * width
		end := min((i+1)*width, total)
		if i == FallbackCount-1 {
			end = total
		}
		drafts = append(drafts, models.SegmentDraft{
			StartTime: start,
			EndTime:   end,
			Content:   fmt.Sprintf("Video segment %d - minute %d to minute %d", i+1, start/60, end/60),
			Summary:   fmt.Sprintf("Segment %d of the video, covering its key content and information.", i+1),
		})
	}
	return drafts
}
