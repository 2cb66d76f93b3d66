package store

import (
	"context"
	"fmt"

	"github.com/onnwee/ytchat-tender/crawl"
)

// SinkAdapter exposes a Store as a crawl persistence sink. The video row is
// written first so the message foreign key resolves.
type SinkAdapter struct {
	Store Store
}

func (a *SinkAdapter) Name() string { return "database" }

func (a *SinkAdapter) Write(ctx context.Context, v crawl.VideoDescriptor, msgs []crawl.ChatMessageRecord) error {
	if err := a.Store.UpsertVideo(ctx, v); err != nil {
		return err
	}
	// Re-crawled videos hit the unique constraint; only genuinely new rows
	// are inserted.
	_, err := a.Store.InsertMessages(ctx, msgs)
	return err
}

// CheckerAdapter exposes a Store as the crawl gate's existence checker.
type CheckerAdapter struct {
	Store Store
}

func (a *CheckerAdapter) HasMessages(ctx context.Context, videoID string) (bool, error) {
	has, err := a.Store.HasMessages(ctx, videoID)
	if err != nil {
		return false, fmt.Errorf("store existence check: %w", err)
	}
	return has, nil
}
