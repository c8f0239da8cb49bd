package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/lib/pq"

	"jamesfarrell.me/youtube-chat/internal/logging"
	"jamesfarrell.me/youtube-chat/internal/storage/catalog"
	"jamesfarrell.me/youtube-chat/internal/storage/models"
)

const pingInterval = time.Minute

type Backlog interface {
	GetVideo(ctx context.Context, id int64) (*models.Video, error)
	ListVideosWithSegments(ctx context.Context) ([]models.Video, error)
}

// Worker analyzes videos announced on catalog.NewVideoChannel.
type Worker struct {
	svc   *Service
	store Backlog
	dbURL string
	log   *log.Helper
}

func NewWorker(svc *Service, store Backlog, dbURL string, logger log.Logger) *Worker {
	return &Worker{
		svc:   svc,
		store: store,
		dbURL: dbURL,
		log:   logging.Helper(logger, "worker"),
	}
}

// CatchUp analyzes registered videos that have no segments yet, such as
// those announced while no worker was listening.
func (w *Worker) CatchUp(ctx context.Context) (int, error) {
	videos, err := w.store.ListVideosWithSegments(ctx)
	if err != nil {
		return 0, fmt.Errorf("list videos: %w", err)
	}

	n := 0
	for i := range videos {
		if len(videos[i].Segments) > 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if _, err := w.svc.Analyze(ctx, &videos[i]); err != nil {
			w.log.Errorw("msg", "catch-up analysis failed", "video_id", videos[i].ID, "err", err)
			continue
		}
		n++
	}
	return n, nil
}

// Run listens for notifications until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	listener := pq.NewListener(w.dbURL, 10*time.Second, time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				w.log.Warnw("msg", "listener event", "event", ev, "err", err)
			}
		})
	defer listener.Close()

	if err := listener.Listen(catalog.NewVideoChannel); err != nil {
		return fmt.Errorf("listen error: %w", err)
	}
	w.log.Infow("msg", "listening for new videos", "channel", catalog.NewVideoChannel)

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-listener.Notify:
			// nil after a reconnect; anything sent meanwhile was missed
			if n == nil {
				w.log.Warnw("msg", "listener reconnected, catching up")
				if _, err := w.CatchUp(ctx); err != nil {
					w.log.Errorw("msg", "catch-up failed", "err", err)
				}
				continue
			}
			if err := w.handle(ctx, n.Extra); err != nil {
				w.log.Errorw("msg", "error processing video", "payload", n.Extra, "err", err)
			}
		case <-ticker.C:
			go func() {
				if err := listener.Ping(); err != nil {
					w.log.Warnw("msg", "ping error", "err", err)
				}
			}()
		}
	}
}

func (w *Worker) handle(ctx context.Context, payload string) error {
	var note catalog.NewVideoNotification
	if err := json.Unmarshal([]byte(payload), &note); err != nil {
		return fmt.Errorf("json parse error: %w", err)
	}
	if note.ID <= 0 {
		return fmt.Errorf("notification without video id")
	}

	video, err := w.store.GetVideo(ctx, note.ID)
	if err != nil {
		return fmt.Errorf("load video %d: %w", note.ID, err)
	}
	_, err = w.svc.Analyze(ctx, video)
	return err
}
