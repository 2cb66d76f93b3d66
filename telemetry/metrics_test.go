package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestInitRegistersMetrics(t *testing.T) {
	Init()

	if CrawlRuns == nil {
		t.Error("CrawlRuns counter not initialized")
	}
	if VideosDownloaded == nil {
		t.Error("VideosDownloaded counter not initialized")
	}
	if ChatFetchDuration == nil {
		t.Error("ChatFetchDuration histogram not initialized")
	}
	if CrawlDuration == nil {
		t.Error("CrawlDuration histogram not initialized")
	}

	// Calling Init again must not panic on duplicate registration.
	Init()
}

func TestHistogramObservations(t *testing.T) {
	Init()

	tests := []struct {
		name      string
		histogram prometheus.Observer
		duration  time.Duration
	}{
		{"chat_fetch", ChatFetchDuration, 30 * time.Second},
		{"crawl", CrawlDuration, 10 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.histogram == nil {
				t.Fatalf("%s histogram is nil", tt.name)
			}
			tt.histogram.Observe(tt.duration.Seconds())
		})
	}
}

func TestTimeFuncRecordsObservation(t *testing.T) {
	Init()

	d := TimeFunc(ChatFetchDuration, func() {
		time.Sleep(5 * time.Millisecond)
	})
	if d < 5*time.Millisecond {
		t.Errorf("expected measured duration >= 5ms, got %v", d)
	}

	// Nil observer must not panic.
	TimeFunc(nil, func() {})
}

func TestAddMessagesPersisted(t *testing.T) {
	Init()

	// Zero and negative counts are no-ops; positive counts must not panic.
	AddMessagesPersisted(0)
	AddMessagesPersisted(-3)
	AddMessagesPersisted(42)
}

func TestCorrelationRoundTrip(t *testing.T) {
	ctx := context.Background()
	if got := GetCorrelation(ctx); got != "" {
		t.Errorf("expected empty correlation on fresh context, got %q", got)
	}

	ctx = WithCorrelation(ctx, "run-123")
	if got := GetCorrelation(ctx); got != "run-123" {
		t.Errorf("expected run-123, got %q", got)
	}

	if lg := LoggerWithCorr(ctx); lg == nil {
		t.Fatal("LoggerWithCorr returned nil")
	}
}
