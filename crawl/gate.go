package crawl

import "context"

// Decision is the incremental gate's verdict for one video.
type Decision int

const (
	// Proceed downloads the video's chat.
	Proceed Decision = iota
	// Skip moves on to the next video.
	Skip
	// Halt stops the whole crawl. Valid only under newest-first ordering:
	// the first already-archived video implies everything older is archived
	// too. Not an error.
	Halt
)

func (d Decision) String() string {
	switch d {
	case Proceed:
		return "proceed"
	case Skip:
		return "skip"
	case Halt:
		return "halt"
	}
	return "unknown"
}

// MessageChecker reports whether any chat messages are already stored for a
// video. Implemented by the relational store.
type MessageChecker interface {
	HasMessages(ctx context.Context, videoID string) (bool, error)
}

// Decide applies the incremental download policy for one video.
//
//	existing  skipExisting  stopOnExisting  -> decision
//	no        any           any                Proceed
//	yes       false         any                Proceed (forced re-download)
//	yes       true          true               Halt
//	yes       true          false              Skip
func Decide(ctx context.Context, checker MessageChecker, videoID string, skipExisting, stopOnExisting bool) (Decision, error) {
	if checker == nil || !skipExisting {
		return Proceed, nil
	}
	existing, err := checker.HasMessages(ctx, videoID)
	if err != nil {
		return Proceed, err
	}
	if !existing {
		return Proceed, nil
	}
	if stopOnExisting {
		return Halt, nil
	}
	return Skip, nil
}
