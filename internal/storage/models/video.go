package models

import (
	"net/url"
	"regexp"
	"strings"
)

type Video struct {
	ID          int64          `json:"id"`
	YouTubeID   string         `json:"youtube_id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Thumbnail   string         `json:"thumbnail"`
	Duration    int            `json:"duration"` // seconds
	CreatedAt   int64          `json:"created_at"`
	UpdatedAt   int64          `json:"updated_at"`
	Segments    []VideoSegment `json:"segments,omitempty"`
}

type VideoSegment struct {
	ID        int64  `json:"id"`
	VideoID   int64  `json:"video_id"`
	StartTime int    `json:"start_time"`
	EndTime   int    `json:"end_time"`
	Content   string `json:"content"`
	Summary   string `json:"summary"`
}

// SegmentDraft is a segment proposed by the analyzer before it is stored.
type SegmentDraft struct {
	StartTime int    `json:"start_time"`
	EndTime   int    `json:"end_time"`
	Content   string `json:"content"`
	Summary   string `json:"summary"`
}

// VideoMetadata is what the video platform reports about a video.
type VideoMetadata struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Thumbnail    string `json:"thumbnail"`
	Duration     int    `json:"duration"`
	ChannelTitle string `json:"channel_title"`
	ViewCount    int64  `json:"view_count"`
	LikeCount    int64  `json:"like_count"`
}

// MatchRow is one row of the video/segment keyword search. Segment fields
// are nil when the video has no segments.
type MatchRow struct {
	VideoID     int64
	Title       string
	Description string
	YouTubeID   string
	Duration    int
	SegmentID   *int64
	StartTime   *int
	EndTime     *int
	Content     *string
	Summary     *string
}

func (r MatchRow) HasSegment() bool {
	return r.SegmentID != nil
}

type VideoRequest struct {
	URL string `json:"youtube_url"`
}

type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type SearchResponse struct {
	Results []SearchResult `json:"results"`
}

type SearchResult struct {
	VideoID    int64   `json:"video_id"`
	YouTubeID  string  `json:"youtube_id"`
	SegmentID  int64   `json:"segment_id"`
	Content    string  `json:"content"`
	StartTime  int     `json:"start_time"`
	EndTime    int     `json:"end_time"`
	Similarity float64 `json:"similarity"`
}

var youTubeIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{6,20}$`)

// ExtractYouTubeID returns the video id of a watch, short, embed or
// youtu.be URL, or of a bare id. It returns "" when nothing usable is found.
func ExtractYouTubeID(raw string) string {
	raw = strings.TrimSpace(raw)
	if youTubeIDPattern.MatchString(raw) {
		return raw
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}

	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	host = strings.TrimPrefix(host, "m.")

	var id string
	switch host {
	case "youtu.be":
		id = strings.Trim(u.Path, "/")
	case "youtube.com", "music.youtube.com":
		if v := u.Query().Get("v"); v != "" {
			id = v
			break
		}
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) == 2 && (parts[0] == "shorts" || parts[0] == "embed" || parts[0] == "live") {
			id = parts[1]
		}
	}

	if !youTubeIDPattern.MatchString(id) {
		return ""
	}
	return id
}
