package crawl

import "context"

// Sink persists one video's metadata and chat history as a unit. Writes must
// be idempotent: re-running a crawl over already-archived videos may hand the
// same (video, messages) pair to a sink again.
type Sink interface {
	// Name identifies the sink in logs and the crawl summary.
	Name() string
	// Write persists the video and its messages. The message slice may be
	// empty; an archived stream with no chat is still a successful download.
	Write(ctx context.Context, video VideoDescriptor, msgs []ChatMessageRecord) error
}
