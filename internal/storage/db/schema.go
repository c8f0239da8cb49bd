package db

import (
	"context"
	"fmt"
)

// EmbeddingDimensions matches text-embedding-ada-002.
const EmbeddingDimensions = 1536

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS videos (
		id SERIAL PRIMARY KEY,
		you_tube_id VARCHAR(50) NOT NULL UNIQUE,
		title TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		thumbnail TEXT NOT NULL DEFAULT '',
		duration INTEGER NOT NULL DEFAULT 0,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS video_segments (
		id SERIAL PRIMARY KEY,
		video_id INTEGER NOT NULL REFERENCES videos(id) ON DELETE CASCADE,
		start_time INTEGER NOT NULL,
		end_time INTEGER NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		summary TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS video_segments_video_id_idx ON video_segments (video_id, start_time)`,
	`CREATE TABLE IF NOT EXISTS chat_messages (
		id SERIAL PRIMARY KEY,
		question TEXT NOT NULL,
		answer TEXT NOT NULL,
		video_id INTEGER REFERENCES videos(id) ON DELETE SET NULL,
		start_time INTEGER,
		end_time INTEGER,
		created_at BIGINT NOT NULL
	)`,
}

var postgresVectorSchema = []string{
	`CREATE EXTENSION IF NOT EXISTS vector`,
	fmt.Sprintf(`CREATE TABLE IF NOT EXISTS segment_embeddings (
		segment_id INTEGER PRIMARY KEY REFERENCES video_segments(id) ON DELETE CASCADE,
		embedding vector(%d) NOT NULL
	)`, EmbeddingDimensions),
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS videos (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		you_tube_id TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		thumbnail TEXT NOT NULL DEFAULT '',
		duration INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS video_segments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		video_id INTEGER NOT NULL REFERENCES videos(id),
		start_time INTEGER NOT NULL,
		end_time INTEGER NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		summary TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS video_segments_video_id_idx ON video_segments (video_id, start_time)`,
	`CREATE TABLE IF NOT EXISTS chat_messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		question TEXT NOT NULL,
		answer TEXT NOT NULL,
		video_id INTEGER REFERENCES videos(id),
		start_time INTEGER,
		end_time INTEGER,
		created_at INTEGER NOT NULL
	)`,
}

// Migrate creates the tables the service reads and writes. withVectors adds
// the pgvector table; it is ignored on SQLite.
func (d *DB) Migrate(ctx context.Context, withVectors bool) error {
	stmts := sqliteSchema
	if d.Dialect == Postgres {
		stmts = postgresSchema
		if withVectors {
			stmts = append(append([]string{}, stmts...), postgresVectorSchema...)
		}
	}

	for _, stmt := range stmts {
		if _, err := d.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// SupportsVectors reports whether the dialect has the segment_embeddings table.
func (d *DB) SupportsVectors() bool {
	return d.Dialect == Postgres
}
