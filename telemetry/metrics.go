// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	CrawlRuns         prometheus.Counter
	VideosDownloaded  prometheus.Counter
	VideosSkipped     prometheus.Counter
	VideosFailed      prometheus.Counter
	MessagesPersisted prometheus.Counter

	// Histograms (seconds)
	ChatFetchDuration prometheus.Observer
	CrawlDuration     prometheus.Observer
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		CrawlRuns = promauto.NewCounter(prometheus.CounterOpts{Name: "ytchat_crawl_runs_total", Help: "Number of crawl invocations"})
		VideosDownloaded = promauto.NewCounter(prometheus.CounterOpts{Name: "ytchat_videos_downloaded_total", Help: "Number of videos whose chat was downloaded"})
		VideosSkipped = promauto.NewCounter(prometheus.CounterOpts{Name: "ytchat_videos_skipped_total", Help: "Number of videos skipped by the incremental gate"})
		VideosFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "ytchat_videos_failed_total", Help: "Number of videos whose chat fetch or persistence failed"})
		MessagesPersisted = promauto.NewCounter(prometheus.CounterOpts{Name: "ytchat_messages_persisted_total", Help: "Number of chat messages written to sinks"})
		ChatFetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "ytchat_chat_fetch_duration_seconds", Help: "Per-video chat fetch duration seconds", Buckets: prometheus.DefBuckets})
		CrawlDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "ytchat_crawl_duration_seconds", Help: "Whole crawl duration seconds", Buckets: prometheus.DefBuckets})
	})
}

// AddMessagesPersisted records n messages written to a sink.
func AddMessagesPersisted(n int) {
	if MessagesPersisted != nil && n > 0 {
		MessagesPersisted.Add(float64(n))
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding correlation id (if absent) and the id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
