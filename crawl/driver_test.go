package crawl

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type memorySink struct {
	mu     sync.Mutex
	name   string
	failOn map[string]error
	writes map[string][]ChatMessageRecord
}

func newMemorySink(name string) *memorySink {
	return &memorySink{name: name, failOn: map[string]error{}, writes: map[string][]ChatMessageRecord{}}
}

func (m *memorySink) Name() string { return m.name }

func (m *memorySink) Write(_ context.Context, v VideoDescriptor, msgs []ChatMessageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failOn[v.VideoID]; ok {
		return err
	}
	m.writes[v.VideoID] = msgs
	return nil
}

type fakeChatProvider struct {
	replays map[string][]RawChatEvent
	failOn  map[string]error
}

func (f *fakeChatProvider) GetChat(_ context.Context, videoID string) (ChatIterator, error) {
	if err, ok := f.failOn[videoID]; ok {
		return nil, err
	}
	return &sliceIterator{errAt: -1, events: f.replays[videoID]}, nil
}

func testDriver(meta *fakeMeta, chat *fakeChatProvider, checker MessageChecker, sinks ...Sink) *Driver {
	return &Driver{
		Resolver: NewResolver(meta),
		Chat:     chat,
		Checker:  checker,
		Sinks:    sinks,
		Pacer:    NewPacer(time.Millisecond),
	}
}

func threeVideoMeta() *fakeMeta {
	return &fakeMeta{
		channels: map[string]string{"https://www.youtube.com/@creator": "UCabc"},
		streams: map[string][]VideoDescriptor{"UCabc": {
			{VideoID: "v3", UploadDate: "20240301", WasLive: true},
			{VideoID: "v2", UploadDate: "20240201", WasLive: true},
			{VideoID: "v1", UploadDate: "20240101", WasLive: true},
		}},
	}
}

func TestRunDownloadsAllVideos(t *testing.T) {
	chat := &fakeChatProvider{replays: map[string][]RawChatEvent{
		"v3": {{MessageID: "a", Kind: "text"}, {MessageID: "b", Kind: "text"}},
		"v2": {{MessageID: "c", Kind: "text"}},
		"v1": {}, // a stream with empty chat still counts as downloaded
	}}
	sink := newMemorySink("memory")
	d := testDriver(threeVideoMeta(), chat, nil, sink)

	sum, err := d.Run(context.Background(), "creator", Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sum.Considered != 3 || sum.Downloaded != 3 || sum.Skipped != 0 || sum.Failed != 0 {
		t.Errorf("summary = %+v, want 3 considered, 3 downloaded", sum)
	}
	if len(sink.writes) != 3 {
		t.Errorf("sink received %d videos, want 3", len(sink.writes))
	}
	if got := len(sink.writes["v3"]); got != 2 {
		t.Errorf("v3 persisted %d messages, want 2", got)
	}
	if msgs, ok := sink.writes["v1"]; !ok || len(msgs) != 0 {
		t.Errorf("empty chat must still be written, got %v", msgs)
	}
}

func TestRunStopOnExistingHalts(t *testing.T) {
	chat := &fakeChatProvider{replays: map[string][]RawChatEvent{
		"v3": {{MessageID: "a", Kind: "text"}},
	}}
	// v2 is already archived; newest-first ordering means everything after
	// it is archived too, so the crawl halts without touching v1.
	checker := &fakeChecker{existing: map[string]bool{"v2": true, "v1": true}}
	sink := newMemorySink("memory")
	d := testDriver(threeVideoMeta(), chat, checker, sink)

	sum, err := d.Run(context.Background(), "creator", Options{SkipExisting: true, StopOnExisting: true})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !sum.HaltedEarly {
		t.Error("expected HaltedEarly")
	}
	if sum.Downloaded != 1 {
		t.Errorf("downloaded = %d, want 1", sum.Downloaded)
	}
	if _, ok := sink.writes["v1"]; ok {
		t.Error("v1 must not be fetched after the halt")
	}
}

func TestRunSkipExistingWithoutStop(t *testing.T) {
	chat := &fakeChatProvider{replays: map[string][]RawChatEvent{
		"v3": {{MessageID: "a", Kind: "text"}},
		"v1": {{MessageID: "b", Kind: "text"}},
	}}
	checker := &fakeChecker{existing: map[string]bool{"v2": true}}
	sink := newMemorySink("memory")
	d := testDriver(threeVideoMeta(), chat, checker, sink)

	sum, err := d.Run(context.Background(), "creator", Options{SkipExisting: true})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sum.Downloaded != 2 || sum.Skipped != 1 || sum.HaltedEarly {
		t.Errorf("summary = %+v, want 2 downloaded, 1 skipped, no halt", sum)
	}
	if _, ok := sink.writes["v1"]; !ok {
		t.Error("crawl must continue past a skipped video")
	}
}

func TestRunPerVideoFailureContinues(t *testing.T) {
	chat := &fakeChatProvider{
		replays: map[string][]RawChatEvent{
			"v3": {{MessageID: "a", Kind: "text"}},
			"v1": {{MessageID: "b", Kind: "text"}},
		},
		failOn: map[string]error{"v2": errors.New("replay disabled")},
	}
	sink := newMemorySink("memory")
	d := testDriver(threeVideoMeta(), chat, nil, sink)

	sum, err := d.Run(context.Background(), "creator", Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sum.Downloaded != 2 || sum.Failed != 1 {
		t.Errorf("summary = %+v, want 2 downloaded, 1 failed", sum)
	}
}

func TestRunSinkFailureCountsAsFailed(t *testing.T) {
	chat := &fakeChatProvider{replays: map[string][]RawChatEvent{
		"v3": {{MessageID: "a", Kind: "text"}},
		"v2": {{MessageID: "b", Kind: "text"}},
		"v1": {{MessageID: "c", Kind: "text"}},
	}}
	broken := newMemorySink("broken")
	broken.failOn["v2"] = errors.New("disk full")
	healthy := newMemorySink("healthy")
	d := testDriver(threeVideoMeta(), chat, nil, broken, healthy)

	sum, err := d.Run(context.Background(), "creator", Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sum.Downloaded != 2 || sum.Failed != 1 {
		t.Errorf("summary = %+v, want 2 downloaded, 1 failed", sum)
	}
	// The healthy sink must still have received the video the broken one
	// rejected.
	if _, ok := healthy.writes["v2"]; !ok {
		t.Error("remaining sinks must be attempted after one fails")
	}
}

func TestRunCheckerErrorDownloadsAnyway(t *testing.T) {
	chat := &fakeChatProvider{replays: map[string][]RawChatEvent{
		"v3": {{MessageID: "a", Kind: "text"}},
		"v2": {{MessageID: "b", Kind: "text"}},
		"v1": {{MessageID: "c", Kind: "text"}},
	}}
	checker := &fakeChecker{err: errors.New("db down")}
	sink := newMemorySink("memory")
	d := testDriver(threeVideoMeta(), chat, checker, sink)

	sum, err := d.Run(context.Background(), "creator", Options{SkipExisting: true, StopOnExisting: true})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sum.Downloaded != 3 {
		t.Errorf("downloaded = %d, want 3 (checker failure must not block)", sum.Downloaded)
	}
}

func TestRunAppliesFilters(t *testing.T) {
	chat := &fakeChatProvider{replays: map[string][]RawChatEvent{
		"v3": {{MessageID: "a", Kind: "text"}},
	}}
	sink := newMemorySink("memory")
	d := testDriver(threeVideoMeta(), chat, nil, sink)

	sum, err := d.Run(context.Background(), "creator", Options{Filter: FilterSpec{MaxVideos: 1}})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sum.Considered != 1 {
		t.Errorf("considered = %d, want 1 (post-filter count)", sum.Considered)
	}
	if len(sink.writes) != 1 {
		t.Errorf("sink received %d videos, want 1", len(sink.writes))
	}
}

func TestRunResolveErrorPropagates(t *testing.T) {
	d := testDriver(&fakeMeta{channels: map[string]string{}}, &fakeChatProvider{}, nil, newMemorySink("memory"))
	_, err := d.Run(context.Background(), "nobody", Options{})
	if !errors.Is(err, ErrChannelNotFound) {
		t.Fatalf("expected ErrChannelNotFound, got %v", err)
	}
}

func TestRunNoSinksIsAnError(t *testing.T) {
	d := &Driver{Resolver: NewResolver(&fakeMeta{}), Chat: &fakeChatProvider{}}
	if _, err := d.Run(context.Background(), "creator", Options{}); err == nil {
		t.Fatal("expected error when no sinks configured")
	}
}

func TestRunCancellationStopsCrawl(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := testDriver(threeVideoMeta(), &fakeChatProvider{}, nil, newMemorySink("memory"))
	_, err := d.Run(ctx, "creator", Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
