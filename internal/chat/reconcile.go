package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"jamesfarrell.me/youtube-chat/internal/llm"
	"jamesfarrell.me/youtube-chat/internal/storage/models"
)

const (
	MalformedReplyAnswer = "The AI service returned a malformed response"
	upstreamErrorPrefix  = "LLM service error: "
	processingPrefix     = "Error processing question: "
)

// ExternalIDResolver maps a catalog video id to its YouTube id.
type ExternalIDResolver interface {
	GetExternalID(ctx context.Context, videoID int64) (string, bool)
}

// Reconcile turns the outcome of one completion call into an answer.
//
// Failures become answer text without references. Otherwise the reply is
// bracket-scanned for a {...} span; if that parses as a JSON object its
// answer, video_id, start_time and end_time fields are used, else the raw
// reply is the answer. A cited video_id is resolved through ids; an
// unknown id leaves YouTubeID unset.
func Reconcile(ctx context.Context, content string, callErr error, ids ExternalIDResolver) models.ChatAnswer {
	if callErr != nil {
		return failureAnswer(callErr)
	}
	if strings.TrimSpace(content) == "" {
		return models.ChatAnswer{Answer: MalformedReplyAnswer}
	}

	span, err := llm.ExtractJSONObject(content)
	if err != nil {
		return models.ChatAnswer{Answer: content}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(span), &fields); err != nil {
		return models.ChatAnswer{Answer: content}
	}

	answer := models.ChatAnswer{Answer: content}
	if raw, ok := fields["answer"]; ok {
		var text *string
		if json.Unmarshal(raw, &text) == nil && text != nil {
			answer.Answer = *text
		}
	}
	if n, ok := wholeNumber(fields["video_id"]); ok && n > 0 {
		answer.VideoID = &n
	}
	answer.StartTime = seconds(fields["start_time"])
	answer.EndTime = seconds(fields["end_time"])

	if answer.VideoID != nil && ids != nil {
		if youTubeID, ok := ids.GetExternalID(ctx, *answer.VideoID); ok {
			answer.YouTubeID = &youTubeID
		}
	}
	return answer
}

func failureAnswer(err error) models.ChatAnswer {
	var upstream *llm.UpstreamError
	switch {
	case errors.As(err, &upstream):
		return models.ChatAnswer{Answer: upstreamErrorPrefix + upstream.Message}
	case errors.Is(err, llm.ErrEmptyContent):
		return models.ChatAnswer{Answer: MalformedReplyAnswer}
	default:
		return models.ChatAnswer{Answer: processingPrefix + err.Error()}
	}
}

// number accepts a JSON number or a numeric string.
func number(raw json.RawMessage) (float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, false
	}

	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return 0, false
	}

	var s string
	switch t := v.(type) {
	case json.Number:
		s = t.String()
	case string:
		s = strings.TrimSpace(t)
	default:
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func wholeNumber(raw json.RawMessage) (int64, bool) {
	f, ok := number(raw)
	if !ok || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int64(f), true
}

func seconds(raw json.RawMessage) *int {
	f, ok := number(raw)
	if !ok || math.Abs(f) > math.MaxInt32 {
		return nil
	}
	n := int(f)
	return &n
}
