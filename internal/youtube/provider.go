// Package youtube fetches video metadata from the YouTube Data API v3.
// Without an API key, or whenever the API cannot be used, it serves a
// deterministic sample record instead of failing.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"jamesfarrell.me/youtube-chat/internal/config"
	"jamesfarrell.me/youtube-chat/internal/logging"
	"jamesfarrell.me/youtube-chat/internal/storage/models"
)

var (
	ErrVideoNotFound    = errors.New("youtube: video not found")
	ErrMalformedPayload = errors.New("youtube: malformed payload")
)

type Provider struct {
	service *youtube.Service
	limiter *rate.Limiter
	timeout time.Duration
	log     *log.Helper
}

// NewProvider builds a provider for cfg. An empty API key yields a
// provider that only serves sample metadata. Extra client options are
// appended after the key and endpoint.
func NewProvider(ctx context.Context, cfg config.YouTubeConfig, logger log.Logger, opts ...option.ClientOption) (*Provider, error) {
	p := &Provider{
		timeout: cfg.Timeout,
		log:     logging.Helper(logger, "youtube"),
	}
	if cfg.APIKey == "" {
		p.log.Infow("msg", "no YouTube API key configured, serving sample metadata")
		return p, nil
	}

	clientOpts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(cfg.Endpoint))
	}
	clientOpts = append(clientOpts, opts...)

	service, err := youtube.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	p.service = service

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	p.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	return p, nil
}

// Enabled reports whether the provider talks to the real API.
func (p *Provider) Enabled() bool {
	return p.service != nil
}

// Fetch returns the metadata of externalID. It never fails: any problem
// with the API yields MockMetadata(externalID).
func (p *Provider) Fetch(ctx context.Context, externalID string) models.VideoMetadata {
	if p.service == nil {
		return MockMetadata(externalID)
	}

	meta, err := p.fetch(ctx, externalID)
	if err != nil {
		p.log.Warnw("msg", "video metadata fetch failed, using sample metadata", "youtube_id", externalID, "err", err)
		return MockMetadata(externalID)
	}
	return meta
}

func (p *Provider) fetch(ctx context.Context, externalID string) (models.VideoMetadata, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return models.VideoMetadata{}, fmt.Errorf("rate limiter: %w", err)
	}

	resp, err := p.service.Videos.List([]string{"snippet", "statistics", "contentDetails"}).
		Id(externalID).
		Context(ctx).
		Do()
	if err != nil {
		return models.VideoMetadata{}, fmt.Errorf("list videos: %w", err)
	}
	if len(resp.Items) == 0 || resp.Items[0] == nil {
		return models.VideoMetadata{}, ErrVideoNotFound
	}
	return toMetadata(resp.Items[0])
}

func toMetadata(v *youtube.Video) (models.VideoMetadata, error) {
	if v.Snippet == nil || v.ContentDetails == nil || v.Statistics == nil {
		return models.VideoMetadata{}, fmt.Errorf("%w: missing snippet, statistics or contentDetails", ErrMalformedPayload)
	}
	if v.Snippet.Thumbnails == nil || v.Snippet.Thumbnails.High == nil {
		return models.VideoMetadata{}, fmt.Errorf("%w: missing high thumbnail", ErrMalformedPayload)
	}

	return models.VideoMetadata{
		Title:        v.Snippet.Title,
		Description:  v.Snippet.Description,
		Thumbnail:    v.Snippet.Thumbnails.High.Url,
		Duration:     ParseDuration(v.ContentDetails.Duration),
		ChannelTitle: v.Snippet.ChannelTitle,
		ViewCount:    int64(v.Statistics.ViewCount),
		LikeCount:    int64(v.Statistics.LikeCount),
	}, nil
}

// MockMetadata is the sample record served without a working API.
func MockMetadata(externalID string) models.VideoMetadata {
	return models.VideoMetadata{
		Title:        "Sample video " + externalID,
		Description:  "This is a sample video description, video ID " + externalID,
		Thumbnail:    "https://img.youtube.com/vi/" + externalID + "/maxresdefault.jpg",
		Duration:     3600,
		ChannelTitle: "Sample Channel",
		ViewCount:    10000,
		LikeCount:    500,
	}
}
