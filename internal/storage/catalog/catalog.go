// Package catalog is the relational store of videos, their segments and
// the chat log. The read methods used while answering questions never
// return errors: failures are logged and an empty result is returned.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-kratos/kratos/v2/log"

	"jamesfarrell.me/youtube-chat/internal/logging"
	"jamesfarrell.me/youtube-chat/internal/storage/db"
	"jamesfarrell.me/youtube-chat/internal/storage/models"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrUnsupported = errors.New("not supported by this database")
)

type Store struct {
	db     *db.DB
	log    *log.Helper
	notify bool
}

func NewStore(database *db.DB, logger log.Logger) *Store {
	return &Store{db: database, log: logging.Helper(logger, "catalog")}
}

// EnableNotifications makes CreateVideo announce new videos on
// NewVideoChannel. Only PostgreSQL supports it; SQLite stores ignore it.
func (s *Store) EnableNotifications() {
	s.notify = true
}

func (s *Store) notifies() bool {
	return s.notify && s.db.Dialect == db.Postgres
}

const searchContentSQL = `
	SELECT v.id, v.title, v.description, v.you_tube_id, v.duration,
	       s.id, s.start_time, s.end_time, s.content, s.summary
	FROM videos v
	LEFT JOIN video_segments s ON s.video_id = v.id
	WHERE %s LIKE ? ESCAPE '\'
	   OR %s LIKE ? ESCAPE '\'
	   OR %s LIKE ? ESCAPE '\'
	   OR %s LIKE ? ESCAPE '\'
	ORDER BY v.id ASC, s.start_time ASC NULLS FIRST, s.id ASC
`

// SearchContent returns every video/segment pair where the query appears in
// the video title or description or in the segment content or summary.
func (s *Store) SearchContent(ctx context.Context, query string) []models.MatchRow {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"

	var out []models.MatchRow
	err := s.db.WithConn(ctx, func(conn *sql.Conn) error {
		stmt := fmt.Sprintf(searchContentSQL,
			s.db.Lower("v.title"), s.db.Lower("v.description"), s.db.Lower("s.content"), s.db.Lower("s.summary"))
		rows, err := conn.QueryContext(ctx, s.db.Rebind(stmt), pattern, pattern, pattern, pattern)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				r       models.MatchRow
				segID   sql.NullInt64
				start   sql.NullInt64
				end     sql.NullInt64
				content sql.NullString
				summary sql.NullString
			)
			if err := rows.Scan(&r.VideoID, &r.Title, &r.Description, &r.YouTubeID, &r.Duration,
				&segID, &start, &end, &content, &summary); err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			if segID.Valid {
				r.SegmentID = &segID.Int64
				r.StartTime = intPtr(start)
				r.EndTime = intPtr(end)
				r.Content = &content.String
				r.Summary = &summary.String
			}
			out = append(out, r)
		}
		return rows.Err()
	})
	if err != nil {
		s.log.Errorw("msg", "search content failed", "query", query, "err", err)
		return nil
	}
	return out
}

// ListAllVideos returns the whole catalog ordered by id.
func (s *Store) ListAllVideos(ctx context.Context) []models.Video {
	var videos []models.Video
	err := s.db.WithConn(ctx, func(conn *sql.Conn) error {
		var err error
		videos, err = queryVideos(ctx, conn, s.db.Rebind(`SELECT `+videoColumns+` FROM videos ORDER BY id ASC`))
		return err
	})
	if err != nil {
		s.log.Errorw("msg", "list videos failed", "err", err)
		return nil
	}
	return videos
}

// GetSegments returns the segments of one video ordered by start time.
func (s *Store) GetSegments(ctx context.Context, videoID int64) []models.VideoSegment {
	var segments []models.VideoSegment
	err := s.db.WithConn(ctx, func(conn *sql.Conn) error {
		var err error
		segments, err = querySegments(ctx, conn,
			s.db.Rebind(`SELECT `+segmentColumns+` FROM video_segments WHERE video_id = ? ORDER BY start_time ASC, id ASC`),
			videoID)
		return err
	})
	if err != nil {
		s.log.Errorw("msg", "get segments failed", "video_id", videoID, "err", err)
		return nil
	}
	return segments
}

// GetExternalID maps a catalog id to its YouTube id.
func (s *Store) GetExternalID(ctx context.Context, videoID int64) (string, bool) {
	var youTubeID string
	err := s.db.WithConn(ctx, func(conn *sql.Conn) error {
		return conn.QueryRowContext(ctx, s.db.Rebind(`SELECT you_tube_id FROM videos WHERE id = ?`), videoID).Scan(&youTubeID)
	})
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.log.Errorw("msg", "get external id failed", "video_id", videoID, "err", err)
		}
		return "", false
	}
	return youTubeID, true
}

const (
	videoColumns   = `id, you_tube_id, title, description, thumbnail, duration, created_at, updated_at`
	segmentColumns = `id, video_id, start_time, end_time, content, summary`
)

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryVideos(ctx context.Context, q querier, query string, args ...any) ([]models.Video, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query videos: %w", err)
	}
	defer rows.Close()

	var videos []models.Video
	for rows.Next() {
		var v models.Video
		if err := rows.Scan(&v.ID, &v.YouTubeID, &v.Title, &v.Description, &v.Thumbnail,
			&v.Duration, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

func querySegments(ctx context.Context, q querier, query string, args ...any) ([]models.VideoSegment, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query segments: %w", err)
	}
	defer rows.Close()

	var segments []models.VideoSegment
	for rows.Next() {
		var seg models.VideoSegment
		if err := rows.Scan(&seg.ID, &seg.VideoID, &seg.StartTime, &seg.EndTime, &seg.Content, &seg.Summary); err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		segments = append(segments, seg)
	}
	return segments, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}
