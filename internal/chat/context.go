package chat

import (
	"fmt"
	"strings"

	"jamesfarrell.me/youtube-chat/internal/llm"
	"jamesfarrell.me/youtube-chat/internal/storage/models"
)

const (
	// MaxContextRows caps how many search rows are rendered.
	MaxContextRows = 5
	// DescriptionPreview is the rune budget for descriptions in the
	// catalog listing.
	DescriptionPreview = 200
)

const rowSeparator = "\n---\n\n"

// RenderMatches renders up to MaxContextRows search rows in store order.
func RenderMatches(rows []models.MatchRow) string {
	if len(rows) == 0 {
		return ""
	}
	if len(rows) > MaxContextRows {
		rows = rows[:MaxContextRows]
	}

	var b strings.Builder
	b.WriteString("Relevant video content:\n\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "Video ID: %d\n", r.VideoID)
		fmt.Fprintf(&b, "Title: %s\n", r.Title)
		fmt.Fprintf(&b, "YouTube ID: %s\n", r.YouTubeID)
		if r.HasSegment() {
			fmt.Fprintf(&b, "Segment time: %d-%d seconds\n", deref(r.StartTime), deref(r.EndTime))
			fmt.Fprintf(&b, "Segment content: %s\n", derefString(r.Content))
			fmt.Fprintf(&b, "Segment summary: %s\n", derefString(r.Summary))
		} else {
			fmt.Fprintf(&b, "Video description: %s\n", r.Description)
		}
		b.WriteString(rowSeparator)
	}
	return b.String()
}

// RenderCatalog renders every video with a shortened description.
func RenderCatalog(videos []models.Video) string {
	if len(videos) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Videos in the library:\n\n")
	for _, v := range videos {
		fmt.Fprintf(&b, "Video ID: %d\n", v.ID)
		fmt.Fprintf(&b, "Title: %s\n", v.Title)
		fmt.Fprintf(&b, "YouTube ID: %s\n", v.YouTubeID)
		fmt.Fprintf(&b, "Description: %s...\n", llm.Truncate(v.Description, DescriptionPreview))
		b.WriteString(rowSeparator)
	}
	return b.String()
}

const instructions = `You are a professional video Q&A assistant. Answer the user's question using the video library content provided.

%s

Rules:
1. Answer only from the video content above.
2. If the question is about a specific video segment, give the exact video ID, start time and end time.
3. If the question asks for the list of videos, list every available video.
4. If no relevant content exists, say so explicitly.

Answer format:
- When citing a specific video segment, reply with JSON:
{
    "answer": "detailed answer",
    "video_id": database video ID (number),
    "start_time": start time (seconds),
    "end_time": end time (seconds)
}
- For a general answer, reply with:
{
    "answer": "answer text"
}

Note: video_id must be the database video ID (a number), not the YouTube video ID.`

// BuildMessages combines the instructions and context block into a system
// message followed by the verbatim question.
func BuildMessages(contextBlock, question string) []llm.Message {
	return []llm.Message{
		{Role: llm.RoleSystem, Content: fmt.Sprintf(instructions, contextBlock)},
		{Role: llm.RoleUser, Content: question},
	}
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
