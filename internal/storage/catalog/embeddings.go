package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"jamesfarrell.me/youtube-chat/internal/storage/models"
)

// SaveSegmentEmbedding stores (or replaces) the vector of one segment.
func (s *Store) SaveSegmentEmbedding(ctx context.Context, segmentID int64, embedding []float32) error {
	if !s.db.SupportsVectors() {
		return ErrUnsupported
	}

	const query = `
		INSERT INTO segment_embeddings (segment_id, embedding)
		VALUES ($1, $2::vector)
		ON CONFLICT (segment_id) DO UPDATE SET embedding = EXCLUDED.embedding
	`
	return s.db.WithConn(ctx, func(conn *sql.Conn) error {
		if _, err := conn.ExecContext(ctx, query, segmentID, pgvector.NewVector(embedding)); err != nil {
			return fmt.Errorf("save segment embedding: %w", err)
		}
		return nil
	})
}

// SearchSimilarSegments ranks segments by cosine similarity to embedding.
func (s *Store) SearchSimilarSegments(ctx context.Context, embedding []float32, limit int) ([]models.SearchResult, error) {
	if !s.db.SupportsVectors() {
		return nil, ErrUnsupported
	}

	const query = `
		WITH query_embedding AS (
			SELECT $1::vector AS vec
		)
		SELECT
			v.id,
			v.you_tube_id,
			s.id,
			s.content,
			s.start_time,
			s.end_time,
			1 - (e.embedding <=> (SELECT vec FROM query_embedding)) AS similarity
		FROM segment_embeddings e
		JOIN video_segments s ON s.id = e.segment_id
		JOIN videos v ON v.id = s.video_id
		ORDER BY e.embedding <=> (SELECT vec FROM query_embedding)
		LIMIT $2
	`

	var results []models.SearchResult
	err := s.db.WithConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, query, pgvector.NewVector(embedding), limit)
		if err != nil {
			return fmt.Errorf("query similar segments: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var r models.SearchResult
			if err := rows.Scan(&r.VideoID, &r.YouTubeID, &r.SegmentID, &r.Content,
				&r.StartTime, &r.EndTime, &r.Similarity); err != nil {
				return fmt.Errorf("scan similar segment: %w", err)
			}
			results = append(results, r)
		}
		return rows.Err()
	})
	return results, err
}
