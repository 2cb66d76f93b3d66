package crawl

import (
	"context"
	"errors"
	"io"
	"log/slog"
)

// ChatProvider yields the raw chat replay for a video as a lazy sequence.
type ChatProvider interface {
	GetChat(ctx context.Context, videoID string) (ChatIterator, error)
}

// ChatIterator walks a chat replay. Next returns io.EOF when the replay is
// exhausted; replays are finite, so iteration always terminates.
type ChatIterator interface {
	Next(ctx context.Context) (RawChatEvent, error)
	Close() error
}

// FetchAll drains the whole chat replay for one video and normalizes every
// event. There is no cap: memory is bounded by a single video's history
// because the driver processes one video at a time.
//
// Events missing a message id are dropped with a warning. Any provider
// failure, including mid-stream, is converted to a *VideoFetchError so the
// driver can record it and move on.
func FetchAll(ctx context.Context, provider ChatProvider, videoID string) ([]ChatMessageRecord, error) {
	it, err := provider.GetChat(ctx, videoID)
	if err != nil {
		return nil, &VideoFetchError{VideoID: videoID, Err: err}
	}
	defer func() {
		if cerr := it.Close(); cerr != nil {
			slog.Warn("close chat iterator", slog.String("video_id", videoID), slog.Any("err", cerr))
		}
	}()

	var records []ChatMessageRecord
	dropped := 0
	for {
		ev, err := it.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &VideoFetchError{VideoID: videoID, Err: err}
		}
		if ev.MessageID == "" {
			dropped++
			slog.Warn("dropping chat event without message id",
				slog.String("video_id", videoID), slog.String("author", ev.AuthorName))
			continue
		}
		records = append(records, Classify(videoID, ev))
	}
	if dropped > 0 {
		slog.Warn("dropped malformed chat events",
			slog.String("video_id", videoID), slog.Int("count", dropped))
	}
	return records, nil
}

// Classify maps a raw event onto the closed message-type set, evaluated once
// at ingestion. A monetary amount wins over everything else, then membership
// markers, then the provider's own text tag.
func Classify(videoID string, ev RawChatEvent) ChatMessageRecord {
	rec := ChatMessageRecord{
		MessageID:     ev.MessageID,
		VideoID:       videoID,
		AuthorName:    ev.AuthorName,
		AuthorID:      ev.AuthorID,
		Message:       ev.Message,
		TimestampUsec: ev.TimestampUsec,
		TimestampText: ev.TimestampText,
		Badges:        ev.Badges,
		Emotes:        ev.Emotes,
	}
	switch {
	case ev.Money != nil:
		rec.MessageType = TypeSuperchat
		rec.SuperchatAmount = ev.Money.Amount
		rec.SuperchatCurrency = ev.Money.Currency
	case ev.Membership:
		rec.MessageType = TypeMembership
	case ev.Kind == "text":
		rec.MessageType = TypeText
	default:
		rec.MessageType = TypeOther
	}
	return rec
}
