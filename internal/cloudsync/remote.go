// Package cloudsync reconciles per-account client state with the remote
// document store: newer side wins by timestamp, and local changes that
// cannot reach the network wait in a durable pending-write queue.
package cloudsync

import (
	"context"

	"github.com/pkg/errors"

	"github.com/example/drillsched/pkg/models"
)

// ErrUnavailable is the transient-failure signal from the remote store.
// Writes failing with it stay queued and are retried on the next trigger.
var ErrUnavailable = errors.New("remote store unavailable")

// ErrNotFound reports that the account has no document for a category yet.
var ErrNotFound = errors.New("document not found")

// RemoteStore is the per-account, per-category document store.
type RemoteStore interface {
	// FetchDocument returns the stored snapshot, or ErrNotFound.
	FetchDocument(ctx context.Context, accountID string, category models.SyncCategory) (*models.CloudDocument, error)
	// PutDocument persists the snapshot. The store assigns the final
	// write timestamp.
	PutDocument(ctx context.Context, accountID string, category models.SyncCategory, doc models.CloudDocument) error
}

// IsRetryable reports whether a remote-store failure is transient. Anything
// that is not explicitly transient is treated as permanent.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
