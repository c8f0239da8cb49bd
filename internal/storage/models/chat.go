package models

// ChatAnswer is the reconciled reply to one question. Reference fields are
// nil unless the model cited a specific segment.
type ChatAnswer struct {
	Answer    string  `json:"answer"`
	VideoID   *int64  `json:"video_id,omitempty"`
	YouTubeID *string `json:"youtube_id,omitempty"`
	StartTime *int    `json:"start_time,omitempty"`
	EndTime   *int    `json:"end_time,omitempty"`
}

type ChatRequest struct {
	Question string `json:"question"`
}

type ChatResponse struct {
	ChatAnswer
	Video *Video `json:"video,omitempty"`
}

type ChatMessage struct {
	ID        int64  `json:"id"`
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	VideoID   *int64 `json:"video_id,omitempty"`
	StartTime *int   `json:"start_time,omitempty"`
	EndTime   *int   `json:"end_time,omitempty"`
	CreatedAt int64  `json:"created_at"`
	Video     *Video `json:"video,omitempty"`
}

// APIResponse is the envelope every JSON endpoint answers with.
type APIResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}
