// Package snapshot reads and writes per-video JSON archive files. Each file
// is a self-contained unit holding the video's metadata and its full chat
// history, so a directory of snapshots can be validated, imported, or shipped
// without the database.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/onnwee/ytchat-tender/crawl"
)

// Unit is one snapshot file.
type Unit struct {
	VideoInfo    crawl.VideoDescriptor     `json:"video_info"`
	ChatMessages []crawl.ChatMessageRecord `json:"chat_messages"`
	Metadata     ExportMetadata            `json:"export_metadata"`
}

// ExportMetadata records when the unit was produced and how many messages it
// carries.
type ExportMetadata struct {
	ExportTime    string `json:"export_time"`
	TotalMessages int    `json:"total_messages"`
}

// Filename derives the snapshot name for a video: YYYYMMDD_<video_id>.json.
// Videos without a usable upload date fall back to today's date so the file
// still sorts chronologically with its neighbors.
func Filename(v crawl.VideoDescriptor) string {
	date := v.UploadDate
	if len(date) < 8 {
		date = time.Now().UTC().Format("20060102")
	}
	return fmt.Sprintf("%s_%s.json", date[:8], v.VideoID)
}

// Writer persists one snapshot per video under Dir.
type Writer struct {
	Dir string
}

func (w *Writer) Name() string { return "json" }

// Write marshals the unit and writes it via a temp file so a crash never
// leaves a half-written snapshot behind.
func (w *Writer) Write(_ context.Context, v crawl.VideoDescriptor, msgs []crawl.ChatMessageRecord) error {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	unit := Unit{
		VideoInfo:    v,
		ChatMessages: msgs,
		Metadata: ExportMetadata{
			ExportTime:    time.Now().UTC().Format(time.RFC3339),
			TotalMessages: len(msgs),
		},
	}
	if unit.ChatMessages == nil {
		unit.ChatMessages = []crawl.ChatMessageRecord{}
	}
	data, err := json.MarshalIndent(unit, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot for %s: %w", v.VideoID, err)
	}

	path := filepath.Join(w.Dir, Filename(v))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("finalize snapshot %s: %w", path, err)
	}
	return nil
}

// Read loads and structurally validates one snapshot file.
func Read(path string) (Unit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Unit{}, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	var u Unit
	if err := json.Unmarshal(data, &u); err != nil {
		return Unit{}, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	if err := Validate(u); err != nil {
		return Unit{}, fmt.Errorf("snapshot %s: %w", path, err)
	}
	return u, nil
}

// Validate checks the structural invariants of a unit: the video id must be
// present, every message must carry an id and reference the unit's video, and
// the recorded total must match the message count.
func Validate(u Unit) error {
	if u.VideoInfo.VideoID == "" {
		return fmt.Errorf("missing video_info.video_id")
	}
	if u.Metadata.TotalMessages != len(u.ChatMessages) {
		return fmt.Errorf("export_metadata.total_messages = %d but %d messages present",
			u.Metadata.TotalMessages, len(u.ChatMessages))
	}
	for i, m := range u.ChatMessages {
		if m.MessageID == "" {
			return fmt.Errorf("chat_messages[%d]: missing message_id", i)
		}
		if m.VideoID != "" && m.VideoID != u.VideoInfo.VideoID {
			return fmt.Errorf("chat_messages[%d]: video_id %s does not match %s",
				i, m.VideoID, u.VideoInfo.VideoID)
		}
	}
	return nil
}

// List returns the snapshot files under dir, sorted by name, which by the
// naming convention is chronological order.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read snapshot dir %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	return out, nil
}
