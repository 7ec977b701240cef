package ports

import (
	"context"
	"time"

	"ProposalLens/internal/domain"
)

// ProposalSource pulls the proposal list from the governance hub.
type ProposalSource interface {
	Fetch(ctx context.Context) (domain.ProposalBatch, error)
}

// Cache is the durable key/value store backing both the proposal snapshot and
// the summary memo. Get reports a missing key as found=false, not as an error.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Store is a Cache with an owner-managed lifecycle.
type Store interface {
	Cache
	Clear(ctx context.Context) error
	Close() error
}

// Summarizer turns a proposal body into a short synopsis.
type Summarizer interface {
	Summarize(ctx context.Context, body string) (string, error)
}

// Notifier streams rendered digests to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when activations execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
