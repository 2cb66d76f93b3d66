// Package store provides relational persistence for archived videos and chat
// messages, with interchangeable SQLite and Postgres backends behind one
// interface. Schema migration is idempotent and runs at open time.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx postgres driver registered as 'pgx'
	_ "modernc.org/sqlite"             // cgo-free sqlite driver registered as 'sqlite'

	"github.com/onnwee/ytchat-tender/crawl"
)

// Store is the relational backend contract. Both implementations share the
// same query text; only connection setup and schema DDL differ by dialect.
type Store interface {
	// Migrate applies the schema. Safe to call repeatedly.
	Migrate(ctx context.Context) error
	// UpsertVideo inserts or refreshes one video's metadata.
	UpsertVideo(ctx context.Context, v crawl.VideoDescriptor) error
	// InsertMessages writes a batch of chat messages for one video inside a
	// transaction, ignoring rows already present. Returns the number of new
	// rows.
	InsertMessages(ctx context.Context, msgs []crawl.ChatMessageRecord) (int, error)
	// HasMessages reports whether any chat rows exist for the video.
	HasMessages(ctx context.Context, videoID string) (bool, error)
	// GetVideo loads one video's metadata.
	GetVideo(ctx context.Context, videoID string) (crawl.VideoDescriptor, error)
	// ListVideos summarizes archived videos, optionally scoped to a channel,
	// newest upload first.
	ListVideos(ctx context.Context, channelID string) ([]VideoSummary, error)
	// MessagesForVideo loads a video's chat in timestamp order.
	MessagesForVideo(ctx context.Context, videoID string) ([]crawl.ChatMessageRecord, error)
	// Stats aggregates archive-wide counts, optionally scoped to a channel.
	Stats(ctx context.Context, channelID string) (Stats, error)
	// TopChatters ranks authors by message count, optionally scoped to one
	// video.
	TopChatters(ctx context.Context, videoID string, limit int) ([]ChatterCount, error)
	// ExportRows joins messages with their video title for flat export,
	// optionally scoped to one video.
	ExportRows(ctx context.Context, videoID string) ([]ExportRow, error)
	Close() error
}

// VideoSummary is one row of the archive listing.
type VideoSummary struct {
	VideoID      string
	Title        string
	UploadDate   string
	Duration     int
	ViewCount    int64
	LiveStatus   string
	MessageCount int
}

// Stats aggregates the archive.
type Stats struct {
	Videos        int
	Messages      int
	UniqueAuthors int
	Superchats    int
	Memberships   int
	FirstDate     string
	LastDate      string
}

// ChatterCount ranks one author.
type ChatterCount struct {
	AuthorName string
	AuthorID   string
	Messages   int
}

// ExportRow is one flattened message for CSV export.
type ExportRow struct {
	crawl.ChatMessageRecord
	VideoTitle string
}

// Open connects to the backend named by driver ("sqlite" or "postgres") and
// applies the schema. The caller owns the returned store and must Close it.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	var s Store
	switch driver {
	case "sqlite":
		db, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// modernc sqlite serializes writes itself but rejects concurrent
		// connections on some DSNs; a single conn keeps behavior predictable.
		db.SetMaxOpenConns(1)
		s = &SQLiteStore{base{db: db, rebind: func(q string) string { return q }}}
	case "postgres", "pgx":
		db, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		s = &PostgresStore{base{db: db, rebind: rebindPositional}}
	default:
		return nil, fmt.Errorf("unknown db driver %q (want sqlite or postgres)", driver)
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("migrate %s schema: %w", driver, err)
	}
	return s, nil
}

// rebindPositional rewrites '?' placeholders to the $1..$n form Postgres
// expects. Query text here never contains a literal '?'.
func rebindPositional(q string) string {
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
