package crawl

import (
	"errors"
	"fmt"
)

var (
	// ErrChannelNotFound means no lookup strategy produced a canonical
	// channel id. Fatal to the run.
	ErrChannelNotFound = errors.New("channel not found")

	// ErrNoLivestreams means the channel resolved but has zero qualifying
	// livestream videos even after the search fallback. The run completes
	// with zero work; callers report it distinctly from ErrChannelNotFound.
	ErrNoLivestreams = errors.New("no livestreams found for channel")

	// ErrLookupMiss is returned by MetadataProvider.LookupChannel when a
	// candidate URL does not resolve to a channel. The resolver moves on to
	// the next strategy.
	ErrLookupMiss = errors.New("channel lookup miss")
)

// VideoFetchError wraps a chat provider failure for one video. The Driver
// records it and continues with the next video.
type VideoFetchError struct {
	VideoID string
	Err     error
}

func (e *VideoFetchError) Error() string {
	return fmt.Sprintf("fetch chat for %s: %v", e.VideoID, e.Err)
}

func (e *VideoFetchError) Unwrap() error { return e.Err }
