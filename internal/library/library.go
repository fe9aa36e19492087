package library

import (
	"context"
	"image"
)

// Library reports asset-scan state. Correct candidate enumeration requires
// the full local photo index to be stable, so the queue drain gates on it.
type Library interface {
	// Scanning reports whether a full enumeration is still in progress.
	Scanning() bool
	// OnScanComplete registers fn to run after each completed scan.
	OnScanComplete(fn func())
}

// Decoder loads image data for a photo by identifier. Thumbnail decodes are
// cheap; full-resolution decodes are the expensive escalation path.
type Decoder interface {
	DecodeThumbnail(ctx context.Context, photoID string) (image.Image, error)
	DecodeFull(ctx context.Context, photoID string) (image.Image, error)
}

// Episodes reads photo membership in episodes (user-visible moments). The
// migration consults it before folding a duplicate: membership in more than
// one episode makes a merge ambiguous.
type Episodes interface {
	EpisodesOf(photoID string) ([]string, error)
}

// TaskSignal marks the begin and end of pending background work so the host
// can make idle/suspend decisions.
type TaskSignal interface {
	Begin(name string)
	End(name string)
}
