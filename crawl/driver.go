package crawl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/ytchat-tender/telemetry"
)

// Options control one crawl invocation.
type Options struct {
	Filter FilterSpec
	// SkipExisting consults the message checker before each download.
	SkipExisting bool
	// StopOnExisting halts the whole crawl at the first already-archived
	// video. Only meaningful together with SkipExisting.
	StopOnExisting bool
}

// Driver runs a whole crawl for one channel reference. Checker may be nil
// (no relational store configured); at least one sink is required.
type Driver struct {
	Resolver *Resolver
	Chat     ChatProvider
	Checker  MessageChecker
	Sinks    []Sink
	Pacer    *Pacer
}

// Run resolves the channel, narrows the video list and downloads chat for
// each surviving video, pacing between fetches. Per-video failures are
// recorded in the summary and do not stop the crawl; context cancellation
// does.
func (d *Driver) Run(ctx context.Context, ref string, opts Options) (Summary, error) {
	telemetry.Init()
	telemetry.CrawlRuns.Inc()

	ctx = telemetry.WithCorrelation(ctx, uuid.NewString())
	log := telemetry.LoggerWithCorr(ctx).With(slog.String("component", "crawl"))

	ctx, span := telemetry.StartSpan(ctx, "crawl", "crawl.Run",
		attribute.String("channel_ref", ref))
	defer span.End()

	started := time.Now()
	defer func() {
		if telemetry.CrawlDuration != nil {
			telemetry.CrawlDuration.Observe(time.Since(started).Seconds())
		}
	}()

	var sum Summary
	if len(d.Sinks) == 0 {
		err := errors.New("no sinks configured")
		telemetry.RecordError(span, err)
		return sum, err
	}

	channelID, vids, err := d.Resolver.Resolve(ctx, ref)
	if err != nil {
		telemetry.RecordError(span, err)
		return sum, err
	}
	log = log.With(slog.String("channel_id", channelID))

	filtered := opts.Filter.Apply(vids)
	sum.Considered = len(filtered)
	log.Info("crawl starting",
		slog.Int("resolved", len(vids)), slog.Int("after_filters", len(filtered)))

	for i, v := range filtered {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if i > 0 && d.Pacer != nil {
			if err := d.Pacer.Pace(ctx); err != nil {
				return sum, err
			}
		}

		decision, derr := Decide(ctx, d.Checker, v.VideoID, opts.SkipExisting, opts.StopOnExisting)
		if derr != nil {
			// A broken checker must not wedge the crawl; proceed and let the
			// sink's idempotent writes absorb any duplicates.
			log.Warn("existence check failed, downloading anyway",
				slog.String("video_id", v.VideoID), slog.Any("err", derr))
		}
		switch decision {
		case Skip:
			sum.Skipped++
			log.Debug("skipping archived video", slog.String("video_id", v.VideoID))
			continue
		case Halt:
			sum.HaltedEarly = true
			log.Info("reached archived video, halting crawl",
				slog.String("video_id", v.VideoID), slog.Int("position", i))
			return sum, nil
		}

		if err := d.processVideo(ctx, log, v); err != nil {
			if ctx.Err() != nil {
				return sum, ctx.Err()
			}
			sum.Failed++
			telemetry.VideosFailed.Inc()
			log.Error("video failed", slog.String("video_id", v.VideoID), slog.Any("err", err))
			continue
		}
		sum.Downloaded++
		telemetry.VideosDownloaded.Inc()
	}

	if sum.Skipped > 0 {
		telemetry.VideosSkipped.Add(float64(sum.Skipped))
	}
	telemetry.SetSpanSuccess(span)
	log.Info("crawl finished",
		slog.Int("considered", sum.Considered), slog.Int("downloaded", sum.Downloaded),
		slog.Int("skipped", sum.Skipped), slog.Int("failed", sum.Failed))
	return sum, nil
}

// processVideo fetches one video's chat and writes it through every sink.
// All sinks are attempted even after one fails.
func (d *Driver) processVideo(ctx context.Context, log *slog.Logger, v VideoDescriptor) error {
	ctx, span := telemetry.StartSpan(ctx, "crawl", "crawl.processVideo",
		attribute.String("video_id", v.VideoID))
	defer span.End()

	var msgs []ChatMessageRecord
	var err error
	took := telemetry.TimeFunc(telemetry.ChatFetchDuration, func() {
		msgs, err = FetchAll(ctx, d.Chat, v.VideoID)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	log.Info("chat fetched",
		slog.String("video_id", v.VideoID), slog.Int("messages", len(msgs)),
		slog.Duration("took", took))

	var firstErr error
	for _, s := range d.Sinks {
		if err := s.Write(ctx, v, msgs); err != nil {
			log.Error("sink write failed",
				slog.String("sink", s.Name()), slog.String("video_id", v.VideoID), slog.Any("err", err))
			if firstErr == nil {
				firstErr = fmt.Errorf("sink %s: %w", s.Name(), err)
			}
			continue
		}
		telemetry.AddMessagesPersisted(len(msgs))
	}
	if firstErr != nil {
		telemetry.RecordError(span, firstErr)
		return firstErr
	}
	telemetry.SetSpanSuccess(span)
	return nil
}
