package youtube

import (
	"context"
	"errors"
	"fmt"
)

// ErrDisabled is returned by operations that need an API key.
var ErrDisabled = errors.New("youtube: no API key configured")

// SearchHit is one video returned by Search.
type SearchHit struct {
	VideoID      string `json:"video_id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Thumbnail    string `json:"thumbnail"`
	ChannelTitle string `json:"channel_title"`
}

// Search looks up videos on YouTube by keyword. Unlike Fetch it reports
// errors, and it fails with ErrDisabled when no API key is configured.
func (p *Provider) Search(ctx context.Context, query string, maxResults int64) ([]SearchHit, error) {
	if p.service == nil {
		return nil, ErrDisabled
	}
	if maxResults <= 0 || maxResults > 50 {
		maxResults = 10
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	resp, err := p.service.Search.List([]string{"snippet"}).
		Q(query).
		Type("video").
		MaxResults(maxResults).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("search videos: %w", err)
	}

	hits := make([]SearchHit, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item == nil || item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil {
			continue
		}
		hit := SearchHit{
			VideoID:      item.Id.VideoId,
			Title:        item.Snippet.Title,
			Description:  item.Snippet.Description,
			ChannelTitle: item.Snippet.ChannelTitle,
		}
		if item.Snippet.Thumbnails != nil && item.Snippet.Thumbnails.High != nil {
			hit.Thumbnail = item.Snippet.Thumbnails.High.Url
		}
		hits = append(hits, hit)
	}
	return hits, nil
}
