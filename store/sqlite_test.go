package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/onnwee/ytchat-tender/crawl"
)

func openTestStore(t *testing.T) Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(context.Background(), "sqlite", dsn)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testVideo(id string) crawl.VideoDescriptor {
	return crawl.VideoDescriptor{
		VideoID:     id,
		Title:       "Stream " + id,
		UploadDate:  "20240115",
		Duration:    7200,
		ViewCount:   1234,
		ChannelID:   "UCtest",
		ChannelName: "Test Channel",
		WasLive:     true,
		LiveStatus:  "was_live",
		Categories:  []string{"Gaming"},
		Tags:        []string{"speedrun", "live"},
	}
}

func testMessage(videoID, msgID, author string) crawl.ChatMessageRecord {
	return crawl.ChatMessageRecord{
		MessageID:     msgID,
		VideoID:       videoID,
		AuthorName:    author,
		AuthorID:      "id-" + author,
		Message:       "hello from " + author,
		TimestampUsec: 1700000000000000,
		TimestampText: "0:01",
		MessageType:   crawl.TypeText,
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	// Open already migrated once; a second and third run must be no-ops.
	for i := 0; i < 2; i++ {
		if err := s.Migrate(context.Background()); err != nil {
			t.Fatalf("Migrate() run %d error = %v", i+2, err)
		}
	}
}

func TestUpsertVideoRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	v := testVideo("vid1")

	if err := s.UpsertVideo(ctx, v); err != nil {
		t.Fatalf("UpsertVideo() error = %v", err)
	}

	got, err := s.GetVideo(ctx, "vid1")
	if err != nil {
		t.Fatalf("GetVideo() error = %v", err)
	}
	if got.Title != v.Title || got.UploadDate != v.UploadDate || got.Duration != v.Duration {
		t.Errorf("round trip mismatch: got %+v", got)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "speedrun" {
		t.Errorf("tags not preserved: %v", got.Tags)
	}
	if len(got.Categories) != 1 || got.Categories[0] != "Gaming" {
		t.Errorf("categories not preserved: %v", got.Categories)
	}
	if !got.WasLive {
		t.Error("was_live flag lost")
	}
}

func TestUpsertVideoRefreshesMetadata(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	v := testVideo("vid1")
	if err := s.UpsertVideo(ctx, v); err != nil {
		t.Fatalf("UpsertVideo() error = %v", err)
	}

	v.Title = "Renamed Stream"
	v.ViewCount = 9999
	if err := s.UpsertVideo(ctx, v); err != nil {
		t.Fatalf("second UpsertVideo() error = %v", err)
	}

	got, err := s.GetVideo(ctx, "vid1")
	if err != nil {
		t.Fatalf("GetVideo() error = %v", err)
	}
	if got.Title != "Renamed Stream" || got.ViewCount != 9999 {
		t.Errorf("upsert did not refresh metadata: %+v", got)
	}

	vids, err := s.ListVideos(ctx, "")
	if err != nil {
		t.Fatalf("ListVideos() error = %v", err)
	}
	if len(vids) != 1 {
		t.Errorf("upsert created duplicate rows: %d", len(vids))
	}
}

func TestInsertMessagesDedupes(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if err := s.UpsertVideo(ctx, testVideo("vid1")); err != nil {
		t.Fatalf("UpsertVideo() error = %v", err)
	}

	msgs := []crawl.ChatMessageRecord{
		testMessage("vid1", "m1", "alice"),
		testMessage("vid1", "m2", "bob"),
	}
	n, err := s.InsertMessages(ctx, msgs)
	if err != nil {
		t.Fatalf("InsertMessages() error = %v", err)
	}
	if n != 2 {
		t.Errorf("inserted = %d, want 2", n)
	}

	// Re-inserting the same batch plus one new row inserts only the new row.
	msgs = append(msgs, testMessage("vid1", "m3", "carol"))
	n, err = s.InsertMessages(ctx, msgs)
	if err != nil {
		t.Fatalf("second InsertMessages() error = %v", err)
	}
	if n != 1 {
		t.Errorf("inserted = %d, want 1 (duplicates ignored)", n)
	}

	loaded, err := s.MessagesForVideo(ctx, "vid1")
	if err != nil {
		t.Fatalf("MessagesForVideo() error = %v", err)
	}
	if len(loaded) != 3 {
		t.Errorf("stored %d messages, want 3", len(loaded))
	}
}

func TestInsertMessagesEmptyBatch(t *testing.T) {
	s := openTestStore(t)
	n, err := s.InsertMessages(context.Background(), nil)
	if err != nil {
		t.Fatalf("InsertMessages(nil) error = %v", err)
	}
	if n != 0 {
		t.Errorf("inserted = %d, want 0", n)
	}
}

func TestSameMessageIDAcrossVideos(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if err := s.UpsertVideo(ctx, testVideo("vid1")); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertVideo(ctx, testVideo("vid2")); err != nil {
		t.Fatal(err)
	}

	// Uniqueness is scoped per video; the same id on two videos is two rows.
	if _, err := s.InsertMessages(ctx, []crawl.ChatMessageRecord{testMessage("vid1", "m1", "alice")}); err != nil {
		t.Fatalf("InsertMessages(vid1) error = %v", err)
	}
	n, err := s.InsertMessages(ctx, []crawl.ChatMessageRecord{testMessage("vid2", "m1", "alice")})
	if err != nil {
		t.Fatalf("InsertMessages(vid2) error = %v", err)
	}
	if n != 1 {
		t.Errorf("inserted = %d, want 1", n)
	}
}

func TestHasMessages(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if err := s.UpsertVideo(ctx, testVideo("vid1")); err != nil {
		t.Fatal(err)
	}

	has, err := s.HasMessages(ctx, "vid1")
	if err != nil {
		t.Fatalf("HasMessages() error = %v", err)
	}
	if has {
		t.Error("expected no messages for fresh video")
	}

	if _, err := s.InsertMessages(ctx, []crawl.ChatMessageRecord{testMessage("vid1", "m1", "alice")}); err != nil {
		t.Fatal(err)
	}
	has, err = s.HasMessages(ctx, "vid1")
	if err != nil {
		t.Fatalf("HasMessages() error = %v", err)
	}
	if !has {
		t.Error("expected messages after insert")
	}

	// A video row alone does not count.
	if has, _ := s.HasMessages(ctx, "missing"); has {
		t.Error("unknown video must report no messages")
	}
}

func TestSuperchatRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if err := s.UpsertVideo(ctx, testVideo("vid1")); err != nil {
		t.Fatal(err)
	}

	m := testMessage("vid1", "m1", "alice")
	m.MessageType = crawl.TypeSuperchat
	m.SuperchatAmount = 49.99
	m.SuperchatCurrency = "USD"
	m.Badges = []string{"member"}
	m.Emotes = []crawl.Emote{{Name: "wave", ID: "e1", URL: "https://example.com/e1.png"}}
	if _, err := s.InsertMessages(ctx, []crawl.ChatMessageRecord{m}); err != nil {
		t.Fatal(err)
	}

	loaded, err := s.MessagesForVideo(ctx, "vid1")
	if err != nil {
		t.Fatalf("MessagesForVideo() error = %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("got %d messages, want 1", len(loaded))
	}
	got := loaded[0]
	if got.MessageType != crawl.TypeSuperchat || got.SuperchatAmount != 49.99 || got.SuperchatCurrency != "USD" {
		t.Errorf("superchat fields lost: %+v", got)
	}
	if len(got.Badges) != 1 || got.Badges[0] != "member" {
		t.Errorf("badges lost: %v", got.Badges)
	}
	if len(got.Emotes) != 1 || got.Emotes[0].Name != "wave" {
		t.Errorf("emotes lost: %v", got.Emotes)
	}
}

func TestStatsAndTopChatters(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	v1 := testVideo("vid1")
	v2 := testVideo("vid2")
	v2.UploadDate = "20240301"
	if err := s.UpsertVideo(ctx, v1); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertVideo(ctx, v2); err != nil {
		t.Fatal(err)
	}

	sc := testMessage("vid1", "m3", "bob")
	sc.MessageType = crawl.TypeSuperchat
	mem := testMessage("vid2", "m4", "alice")
	mem.MessageType = crawl.TypeMembership
	batch := []crawl.ChatMessageRecord{
		testMessage("vid1", "m1", "alice"),
		testMessage("vid1", "m2", "alice"),
		sc,
		mem,
	}
	if _, err := s.InsertMessages(ctx, batch); err != nil {
		t.Fatal(err)
	}

	st, err := s.Stats(ctx, "")
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if st.Videos != 2 || st.Messages != 4 || st.UniqueAuthors != 2 {
		t.Errorf("stats = %+v, want 2 videos, 4 messages, 2 authors", st)
	}
	if st.Superchats != 1 || st.Memberships != 1 {
		t.Errorf("type counts = %d superchats, %d memberships, want 1 each", st.Superchats, st.Memberships)
	}
	if st.FirstDate != "20240115" || st.LastDate != "20240301" {
		t.Errorf("date range = %s..%s, want 20240115..20240301", st.FirstDate, st.LastDate)
	}

	top, err := s.TopChatters(ctx, "", 5)
	if err != nil {
		t.Fatalf("TopChatters() error = %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("got %d chatters, want 2", len(top))
	}
	if top[0].AuthorName != "alice" || top[0].Messages != 3 {
		t.Errorf("top chatter = %+v, want alice with 3", top[0])
	}

	// Scoped to vid1, alice has two and bob one.
	top, err = s.TopChatters(ctx, "vid1", 5)
	if err != nil {
		t.Fatalf("TopChatters(vid1) error = %v", err)
	}
	if len(top) != 2 || top[0].Messages != 2 {
		t.Errorf("scoped top chatters = %+v", top)
	}
}

func TestListVideosOrderAndCounts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	older := testVideo("older")
	older.UploadDate = "20230601"
	newer := testVideo("newer")
	newer.UploadDate = "20240601"
	if err := s.UpsertVideo(ctx, older); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertVideo(ctx, newer); err != nil {
		t.Fatal(err)
	}
	if _, err := s.InsertMessages(ctx, []crawl.ChatMessageRecord{
		testMessage("older", "m1", "alice"),
		testMessage("older", "m2", "bob"),
	}); err != nil {
		t.Fatal(err)
	}

	vids, err := s.ListVideos(ctx, "")
	if err != nil {
		t.Fatalf("ListVideos() error = %v", err)
	}
	if len(vids) != 2 {
		t.Fatalf("got %d videos, want 2", len(vids))
	}
	if vids[0].VideoID != "newer" {
		t.Errorf("listing not newest-first: %s first", vids[0].VideoID)
	}
	if vids[1].MessageCount != 2 {
		t.Errorf("older message count = %d, want 2", vids[1].MessageCount)
	}
	if vids[0].MessageCount != 0 {
		t.Errorf("newer message count = %d, want 0", vids[0].MessageCount)
	}

	// Channel scoping.
	if vids, err = s.ListVideos(ctx, "UCother"); err != nil {
		t.Fatalf("ListVideos(UCother) error = %v", err)
	}
	if len(vids) != 0 {
		t.Errorf("expected no videos for unknown channel, got %d", len(vids))
	}
}

func TestExportRowsJoinTitle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if err := s.UpsertVideo(ctx, testVideo("vid1")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.InsertMessages(ctx, []crawl.ChatMessageRecord{
		testMessage("vid1", "m1", "alice"),
	}); err != nil {
		t.Fatal(err)
	}

	rows, err := s.ExportRows(ctx, "vid1")
	if err != nil {
		t.Fatalf("ExportRows() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].VideoTitle != "Stream vid1" {
		t.Errorf("video title not joined: %q", rows[0].VideoTitle)
	}
}

func TestSinkAdapterWrite(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	sink := &SinkAdapter{Store: s}

	if sink.Name() != "database" {
		t.Errorf("Name() = %q", sink.Name())
	}
	err := sink.Write(ctx, testVideo("vid1"), []crawl.ChatMessageRecord{
		testMessage("vid1", "m1", "alice"),
	})
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	checker := &CheckerAdapter{Store: s}
	has, err := checker.HasMessages(ctx, "vid1")
	if err != nil {
		t.Fatalf("HasMessages() error = %v", err)
	}
	if !has {
		t.Error("sink write not visible through checker")
	}

	// Idempotent on replay.
	if err := sink.Write(ctx, testVideo("vid1"), []crawl.ChatMessageRecord{
		testMessage("vid1", "m1", "alice"),
	}); err != nil {
		t.Fatalf("replayed Write() error = %v", err)
	}
	loaded, err := s.MessagesForVideo(ctx, "vid1")
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 1 {
		t.Errorf("replay duplicated messages: %d rows", len(loaded))
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), "oracle", "dsn"); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestRebindPositional(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"SELECT 1", "SELECT 1"},
		{"WHERE a = ?", "WHERE a = $1"},
		{"VALUES (?,?,?)", "VALUES ($1,$2,$3)"},
	}
	for _, tt := range tests {
		if got := rebindPositional(tt.in); got != tt.want {
			t.Errorf("rebindPositional(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
