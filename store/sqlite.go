package store

import (
	"context"
	"fmt"
)

// SQLiteStore is the file-backed default; a cgo-free driver keeps deployment
// a single binary.
type SQLiteStore struct {
	base
}

// Migrate applies idempotent schema changes for all required tables and
// indices.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS videos (
			video_id TEXT PRIMARY KEY,
			title TEXT,
			upload_date TEXT,
			duration INTEGER DEFAULT 0,
			view_count INTEGER DEFAULT 0,
			channel_id TEXT,
			channel_name TEXT,
			description TEXT,
			is_live BOOLEAN DEFAULT FALSE,
			was_live BOOLEAN DEFAULT FALSE,
			live_start_timestamp INTEGER DEFAULT 0,
			live_end_timestamp INTEGER DEFAULT 0,
			release_timestamp INTEGER DEFAULT 0,
			thumbnail TEXT,
			categories TEXT,
			tags TEXT,
			like_count INTEGER DEFAULT 0,
			comment_count INTEGER DEFAULT 0,
			live_status TEXT,
			availability TEXT,
			uploader TEXT,
			uploader_id TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS chat_messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			message_id TEXT NOT NULL,
			video_id TEXT NOT NULL REFERENCES videos(video_id),
			author_name TEXT,
			author_id TEXT,
			message TEXT,
			timestamp_usec INTEGER DEFAULT 0,
			timestamp_text TEXT,
			message_type TEXT,
			superchat_amount REAL DEFAULT 0,
			superchat_currency TEXT,
			badges TEXT,
			emotes TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(video_id, message_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_videos_upload_date ON videos(upload_date)`,
		`CREATE INDEX IF NOT EXISTS idx_videos_channel_id ON videos(channel_id)`,
		`CREATE INDEX IF NOT EXISTS idx_videos_was_live ON videos(was_live)`,
		`CREATE INDEX IF NOT EXISTS idx_videos_live_status ON videos(live_status)`,
		`CREATE INDEX IF NOT EXISTS idx_videos_live_start ON videos(live_start_timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_videos_view_count ON videos(view_count)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_author_name ON chat_messages(author_name)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_author_id ON chat_messages(author_id)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_message_type ON chat_messages(message_type)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_timestamp ON chat_messages(timestamp_usec)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_video_timestamp ON chat_messages(video_id, timestamp_usec)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_author_video ON chat_messages(author_id, video_id)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_type_video ON chat_messages(message_type, video_id)`,
	}
	for i, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite migrate step %d failed: %w", i, err)
		}
	}
	return nil
}
