// Package analyze derives archive statistics and flat exports from the
// relational store.
package analyze

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/onnwee/ytchat-tender/emotes"
	"github.com/onnwee/ytchat-tender/store"
)

// Report bundles everything the analyze command prints.
type Report struct {
	Stats       store.Stats
	TopVideos   []store.VideoSummary
	TopChatters []store.ChatterCount
}

// Build assembles a report, optionally scoped to one channel.
func Build(ctx context.Context, st store.Store, channelID string) (Report, error) {
	var r Report
	stats, err := st.Stats(ctx, channelID)
	if err != nil {
		return r, fmt.Errorf("stats: %w", err)
	}
	r.Stats = stats

	vids, err := st.ListVideos(ctx, channelID)
	if err != nil {
		return r, fmt.Errorf("list videos: %w", err)
	}
	r.TopVideos = TopVideosByMessages(vids, 5)

	chatters, err := st.TopChatters(ctx, "", 10)
	if err != nil {
		return r, fmt.Errorf("top chatters: %w", err)
	}
	r.TopChatters = chatters
	return r, nil
}

// TopVideosByMessages returns the n busiest videos, message count
// descending. The input slice is not modified.
func TopVideosByMessages(vids []store.VideoSummary, n int) []store.VideoSummary {
	out := make([]store.VideoSummary, len(vids))
	copy(out, vids)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].MessageCount > out[j].MessageCount
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// csvHeader is the fixed column order of the flat export.
var csvHeader = []string{
	"video_id", "message_id", "author_name", "author_id", "message",
	"timestamp_usec", "timestamp_text", "message_type",
	"superchat_amount", "superchat_currency", "badges", "emotes", "video_title",
}

// ExportCSV writes rows as UTF-8 CSV. With formatEmotes set, custom emote
// placeholders in the message text are rewritten to their readable form.
func ExportCSV(w io.Writer, rows []store.ExportRow, formatEmotes bool) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range rows {
		message := r.Message
		if formatEmotes {
			message = emotes.FormatMessage(message, r.Emotes)
		}
		amount := ""
		if r.SuperchatAmount != 0 {
			amount = strconv.FormatFloat(r.SuperchatAmount, 'f', -1, 64)
		}
		rec := []string{
			r.VideoID, r.MessageID, r.AuthorName, r.AuthorID, message,
			strconv.FormatInt(r.TimestampUsec, 10), r.TimestampText, r.MessageType,
			amount, r.SuperchatCurrency,
			strings.Join(r.Badges, ";"),
			strings.Join(emotes.Names(r.Emotes), ";"),
			r.VideoTitle,
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row %s: %w", r.MessageID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
