package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"jamesfarrell.me/youtube-chat/internal/storage/models"
)

// NewVideoChannel is the Postgres NOTIFY channel announcing registered videos.
const NewVideoChannel = "new_video"

// NewVideoNotification is the payload sent on NewVideoChannel.
type NewVideoNotification struct {
	ID        int64  `json:"id"`
	YouTubeID string `json:"youtube_id"`
}

// CreateVideo inserts video and fills in its id and timestamps. With
// notifications enabled the insert also notifies NewVideoChannel once the
// transaction commits.
func (s *Store) CreateVideo(ctx context.Context, video *models.Video) error {
	now := time.Now().Unix()

	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		const query = `
			INSERT INTO videos (you_tube_id, title, description, thumbnail, duration, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			RETURNING id
		`
		err := tx.QueryRowContext(ctx, s.db.Rebind(query),
			video.YouTubeID,
			video.Title,
			video.Description,
			video.Thumbnail,
			video.Duration,
			now,
			now,
		).Scan(&video.ID)
		if err != nil {
			return fmt.Errorf("insert video: %w", err)
		}
		video.CreatedAt = now
		video.UpdatedAt = now

		if !s.notifies() {
			return nil
		}
		payload, err := json.Marshal(NewVideoNotification{ID: video.ID, YouTubeID: video.YouTubeID})
		if err != nil {
			return fmt.Errorf("marshal notification: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `SELECT pg_notify($1, $2)`, NewVideoChannel, string(payload)); err != nil {
			return fmt.Errorf("notify new video: %w", err)
		}
		return nil
	})
}

func (s *Store) GetVideo(ctx context.Context, id int64) (*models.Video, error) {
	return s.getVideoWhere(ctx, `id = ?`, id)
}

func (s *Store) GetVideoByExternalID(ctx context.Context, youTubeID string) (*models.Video, error) {
	return s.getVideoWhere(ctx, `you_tube_id = ?`, youTubeID)
}

func (s *Store) getVideoWhere(ctx context.Context, where string, arg any) (*models.Video, error) {
	var videos []models.Video
	err := s.db.WithConn(ctx, func(conn *sql.Conn) error {
		var err error
		videos, err = queryVideos(ctx, conn, s.db.Rebind(`SELECT `+videoColumns+` FROM videos WHERE `+where), arg)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(videos) == 0 {
		return nil, ErrNotFound
	}
	return &videos[0], nil
}

// ListVideosWithSegments returns the catalog with each video's segments
// attached, newest video first.
func (s *Store) ListVideosWithSegments(ctx context.Context) ([]models.Video, error) {
	var videos []models.Video
	err := s.db.WithConn(ctx, func(conn *sql.Conn) error {
		var err error
		videos, err = queryVideos(ctx, conn, `SELECT `+videoColumns+` FROM videos ORDER BY created_at DESC, id DESC`)
		if err != nil {
			return err
		}

		segments, err := querySegments(ctx, conn, `SELECT `+segmentColumns+` FROM video_segments ORDER BY video_id ASC, start_time ASC, id ASC`)
		if err != nil {
			return err
		}

		byVideo := make(map[int64][]models.VideoSegment, len(videos))
		for _, seg := range segments {
			byVideo[seg.VideoID] = append(byVideo[seg.VideoID], seg)
		}
		for i := range videos {
			videos[i].Segments = byVideo[videos[i].ID]
		}
		return nil
	})
	return videos, err
}

// DeleteVideo removes a video with its segments and detaches chat messages
// that referenced it.
func (s *Store) DeleteVideo(ctx context.Context, id int64) error {
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.db.Rebind(`UPDATE chat_messages SET video_id = NULL WHERE video_id = ?`), id); err != nil {
			return fmt.Errorf("detach chat messages: %w", err)
		}
		if _, err := tx.ExecContext(ctx, s.db.Rebind(`DELETE FROM video_segments WHERE video_id = ?`), id); err != nil {
			return fmt.Errorf("delete segments: %w", err)
		}

		result, err := tx.ExecContext(ctx, s.db.Rebind(`DELETE FROM videos WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("delete video: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ReplaceSegments swaps the stored segments of a video for drafts.
func (s *Store) ReplaceSegments(ctx context.Context, videoID int64, drafts []models.SegmentDraft) ([]models.VideoSegment, error) {
	segments := make([]models.VideoSegment, 0, len(drafts))

	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, s.db.Rebind(`SELECT 1 FROM videos WHERE id = ?`), videoID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("check video: %w", err)
		}

		if _, err := tx.ExecContext(ctx, s.db.Rebind(`DELETE FROM video_segments WHERE video_id = ?`), videoID); err != nil {
			return fmt.Errorf("delete segments: %w", err)
		}

		const insertSQL = `
			INSERT INTO video_segments (video_id, start_time, end_time, content, summary)
			VALUES (?, ?, ?, ?, ?)
			RETURNING id
		`
		for _, d := range drafts {
			seg := models.VideoSegment{
				VideoID:   videoID,
				StartTime: d.StartTime,
				EndTime:   d.EndTime,
				Content:   d.Content,
				Summary:   d.Summary,
			}
			if err := tx.QueryRowContext(ctx, s.db.Rebind(insertSQL),
				videoID, d.StartTime, d.EndTime, d.Content, d.Summary).Scan(&seg.ID); err != nil {
				return fmt.Errorf("segment insert failed: %w", err)
			}
			segments = append(segments, seg)
		}

		if _, err := tx.ExecContext(ctx, s.db.Rebind(`UPDATE videos SET updated_at = ? WHERE id = ?`), time.Now().Unix(), videoID); err != nil {
			return fmt.Errorf("touch video: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return segments, nil
}
