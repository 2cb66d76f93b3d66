package cli

import (
	"context"
	"path/filepath"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/onnwee/ytchat-tender/crawl"
	"github.com/onnwee/ytchat-tender/snapshot"
	"github.com/onnwee/ytchat-tender/store"
)

func TestParseDateFlag(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"20240115", "2024-01-15", false},
		{"2024-01-15", "2024-01-15", false},
		{"", "0001-01-01", false},
		{"Jan 15 2024", "", true},
		{"202401", "", true},
	}
	for _, tt := range tests {
		got, err := parseDateFlag(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseDateFlag(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseDateFlag(%q) error: %v", tt.in, err)
			continue
		}
		if got.Format("2006-01-02") != tt.want {
			t.Errorf("parseDateFlag(%q) = %v, want %s", tt.in, got, tt.want)
		}
	}
}

func TestBuildFilter(t *testing.T) {
	f := downloadFlags{
		maxVideos:  3,
		startDate:  "20240101",
		endDate:    "2024-06-30",
		startIndex: 1,
		endIndex:   10,
	}
	spec, err := buildFilter(f)
	if err != nil {
		t.Fatalf("buildFilter() error: %v", err)
	}
	if spec.MaxVideos != 3 || spec.StartIndex != 1 || spec.EndIndex != 10 {
		t.Errorf("spec = %+v", spec)
	}
	if spec.StartDate.Year() != 2024 || spec.EndDate.Month() != time.June {
		t.Errorf("dates = %v .. %v", spec.StartDate, spec.EndDate)
	}

	f.startDate = "bogus"
	if _, err := buildFilter(f); err == nil {
		t.Error("expected error for invalid start date")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("a very long title indeed", 10); got != "a very ..." {
		t.Errorf("truncate = %q", got)
	}

	// Multi-byte titles must be cut on rune boundaries.
	got := truncate("日本語のライブ配信タイトルです", 10)
	if !utf8.ValidString(got) {
		t.Errorf("truncate produced invalid UTF-8: %q", got)
	}
	if want := "日本語のライブ..."; got != want {
		t.Errorf("truncate = %q, want %q", got, want)
	}
}

func TestStoreRoles(t *testing.T) {
	tests := []struct {
		name                  string
		flags                 downloadFlags
		wantSink, wantChecker bool
	}{
		{"defaults gate without persisting", downloadFlags{skipExisting: true, stopOnExisting: true}, false, true},
		{"skip only", downloadFlags{skipExisting: true}, false, true},
		{"stop only", downloadFlags{stopOnExisting: true}, false, true},
		{"save only", downloadFlags{saveToDB: true}, true, false},
		{"everything off", downloadFlags{}, false, false},
		{"save and gate", downloadFlags{saveToDB: true, skipExisting: true}, true, true},
	}
	for _, tt := range tests {
		sink, checker := storeRoles(tt.flags)
		if sink != tt.wantSink || checker != tt.wantChecker {
			t.Errorf("%s: storeRoles = (%v, %v), want (%v, %v)",
				tt.name, sink, checker, tt.wantSink, tt.wantChecker)
		}
	}
}

func TestImportSnapshotsIdempotent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	st, err := store.Open(ctx, "sqlite", filepath.Join(dir, "archive.db"))
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	defer st.Close()

	v := crawl.VideoDescriptor{VideoID: "vid1", Title: "Stream", UploadDate: "20240115"}
	msgs := []crawl.ChatMessageRecord{
		{MessageID: "m1", VideoID: "vid1", AuthorName: "alice", Message: "hello", MessageType: crawl.TypeText},
		{MessageID: "m2", VideoID: "vid1", AuthorName: "bob", Message: "hi", MessageType: crawl.TypeText},
	}
	w := &snapshot.Writer{Dir: filepath.Join(dir, "json")}
	if err := w.Write(ctx, v, msgs); err != nil {
		t.Fatalf("snapshot write error = %v", err)
	}
	paths, err := snapshot.List(w.Dir)
	if err != nil || len(paths) != 1 {
		t.Fatalf("snapshot.List() = %v, %v", paths, err)
	}

	imported, inserted, err := importSnapshots(ctx, st, paths)
	if err != nil {
		t.Fatalf("first import error = %v", err)
	}
	if imported != 1 || inserted != 2 {
		t.Fatalf("first import = (%d, %d), want (1, 2)", imported, inserted)
	}

	imported, inserted, err = importSnapshots(ctx, st, paths)
	if err != nil {
		t.Fatalf("second import error = %v", err)
	}
	if imported != 1 || inserted != 0 {
		t.Errorf("second import = (%d, %d), want (1, 0)", imported, inserted)
	}
}
