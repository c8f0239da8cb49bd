package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"jamesfarrell.me/youtube-chat/internal/storage/models"
)

func (s *Store) SaveChatMessage(ctx context.Context, msg *models.ChatMessage) error {
	if msg.CreatedAt == 0 {
		msg.CreatedAt = time.Now().Unix()
	}

	const query = `
		INSERT INTO chat_messages (question, answer, video_id, start_time, end_time, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`
	return s.db.WithConn(ctx, func(conn *sql.Conn) error {
		err := conn.QueryRowContext(ctx, s.db.Rebind(query),
			msg.Question,
			msg.Answer,
			msg.VideoID,
			msg.StartTime,
			msg.EndTime,
			msg.CreatedAt,
		).Scan(&msg.ID)
		if err != nil {
			return fmt.Errorf("insert chat message: %w", err)
		}
		return nil
	})
}

// ChatHistory returns the latest limit messages, newest first, with the
// referenced video attached when it still exists.
func (s *Store) ChatHistory(ctx context.Context, limit int) ([]models.ChatMessage, error) {
	const query = `
		SELECT c.id, c.question, c.answer, c.video_id, c.start_time, c.end_time, c.created_at,
		       v.id, v.you_tube_id, v.title, v.description, v.thumbnail, v.duration, v.created_at, v.updated_at
		FROM chat_messages c
		LEFT JOIN videos v ON v.id = c.video_id
		ORDER BY c.created_at DESC, c.id DESC
		LIMIT ?
	`

	var messages []models.ChatMessage
	err := s.db.WithConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, s.db.Rebind(query), limit)
		if err != nil {
			return fmt.Errorf("query chat history: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				m          models.ChatMessage
				videoRef   sql.NullInt64
				start, end sql.NullInt64
				vid        sql.NullInt64
				ytID       sql.NullString
				title      sql.NullString
				desc       sql.NullString
				thumb      sql.NullString
				duration   sql.NullInt64
				vCreated   sql.NullInt64
				vUpdated   sql.NullInt64
			)
			if err := rows.Scan(&m.ID, &m.Question, &m.Answer, &videoRef, &start, &end, &m.CreatedAt,
				&vid, &ytID, &title, &desc, &thumb, &duration, &vCreated, &vUpdated); err != nil {
				return fmt.Errorf("scan chat message: %w", err)
			}
			if videoRef.Valid {
				m.VideoID = &videoRef.Int64
			}
			m.StartTime = intPtr(start)
			m.EndTime = intPtr(end)
			if vid.Valid {
				m.Video = &models.Video{
					ID:          vid.Int64,
					YouTubeID:   ytID.String,
					Title:       title.String,
					Description: desc.String,
					Thumbnail:   thumb.String,
					Duration:    int(duration.Int64),
					CreatedAt:   vCreated.Int64,
					UpdatedAt:   vUpdated.Int64,
				}
			}
			messages = append(messages, m)
		}
		return rows.Err()
	})
	return messages, err
}
