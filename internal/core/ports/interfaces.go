// Package ports defines the contracts between the pipeline core and its
// external collaborators. The core only ever sees these interfaces;
// adapters provide the implementations.
package ports

import (
	"context"

	"github.com/dommurphy155/tiktokbot2/internal/core/domain"
)

// ContentDiscoverer finds fresh video page URLs.
type ContentDiscoverer interface {
	// DiscoverFresh returns a URL for which seen reports false. It retries
	// internally (with session refreshes) a bounded number of times before
	// giving up with an error.
	DiscoverFresh(ctx context.Context, seen func(domain.ContentRef) bool) (domain.ContentRef, error)
}

// ArtifactDownloader fetches a video to local disk.
type ArtifactDownloader interface {
	// Download fetches ref and returns the resulting artifact plus whatever
	// metadata could be extracted (may be nil). A video outside the accepted
	// duration window fails with domain.ErrRejected.
	Download(ctx context.Context, ref domain.ContentRef) (*domain.Artifact, *domain.Metadata, error)
}

// MetadataExtractor resolves metadata on its own, independent of a
// download. Used lazily when an artifact is served without metadata.
type MetadataExtractor interface {
	Extract(ctx context.Context, ref domain.ContentRef) (*domain.Metadata, error)
}

// Notifier is the remote-control channel: it shows the current artifact
// with navigation actions and runs the text prompts of the post flow.
type Notifier interface {
	// PresentArtifact sends the video with Next/Post buttons, plus Previous
	// when navIndex > 0. leadText is optional extra caption text.
	PresentArtifact(ctx context.Context, artifact *domain.Artifact, navIndex int, leadText string, meta *domain.Metadata) error

	// SendPrompt asks the chat a question and returns the message ID so the
	// prompt can be cleaned up later.
	SendPrompt(ctx context.Context, chatID int64, text string) (int, error)

	// SendProcessingNotice tells the chat a post is underway, with a Next
	// button attached.
	SendProcessingNotice(ctx context.Context, chatID int64) (int, error)

	// DeleteMessages removes previously sent prompts. Best-effort.
	DeleteMessages(ctx context.Context, chatID int64, messageIDs []int)
}

// RuntimeSession is the headless browser the discoverer and poster run on.
type RuntimeSession interface {
	Start(ctx context.Context) error
	ApplyStoredCredentials(ctx context.Context) error
	Post(ctx context.Context, req domain.PostRequest) error
	Stop() error
}

// MemorySampler reports the process resident set size. The second return
// is false when sampling is unavailable; callers treat that as unknown,
// never as an error.
type MemorySampler interface {
	ResidentMB() (int64, bool)
}
