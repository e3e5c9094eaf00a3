package cloudsync

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/example/drillsched/pkg/models"
)

// Reconciler merges local and remote copies of each synced category and
// drains the pending-write queue. One reconciler exists per signed-in
// account; construct a new one on the next sign-in.
type Reconciler struct {
	accountID string
	remote    RemoteStore
	local     LocalState
	queue     *WriteQueue

	// flushMu is the re-entrancy guard: only one flush loop runs at a
	// time, concurrent triggers fall through and rely on the next pass.
	flushMu sync.Mutex

	// signedOut stops new flushes after sign-out.
	mu        sync.Mutex
	signedOut bool

	now func() time.Time
}

// NewReconciler wires a reconciler for one account.
func NewReconciler(accountID string, remote RemoteStore, local LocalState, queue *WriteQueue) *Reconciler {
	return &Reconciler{
		accountID: accountID,
		remote:    remote,
		local:     local,
		queue:     queue,
		now:       time.Now,
	}
}

// WithClock replaces the wall clock, for tests.
func (r *Reconciler) WithClock(now func() time.Time) *Reconciler {
	r.now = now
	return r
}

// Reconcile runs the session-start merge: each category independently
// compares timestamps, applies the strictly newer remote side (ties go to
// the remote so two devices converge), or queues the local side for upload.
// It finishes with a flush attempt.
func (r *Reconciler) Reconcile(ctx context.Context) error {
	for _, category := range models.SyncCategories {
		remoteDoc, err := r.remote.FetchDocument(ctx, r.accountID, category)
		if err != nil && !errors.Is(err, ErrNotFound) {
			// A category we cannot read is left alone; the next
			// session start retries it.
			log.Printf("cloudsync: fetch %s for account %s: %v", category, r.accountID, err)
			continue
		}
		localDoc := r.local.Get(category)

		switch {
		case remoteDoc == nil && localDoc == nil:
			// Nothing on either side.
		case remoteDoc != nil && (localDoc == nil || !localDoc.UpdatedAt.After(remoteDoc.UpdatedAt)):
			// Remote side wins. Applying with OriginRemote keeps
			// listeners from echoing the overwrite back as a write.
			r.local.Apply(category, *remoteDoc, OriginRemote)
		default:
			// Local side is newer (or remote absent): upload it.
			if err := r.queue.Put(models.PendingWrite{
				Category:  category,
				Payload:   localDoc.Payload,
				UpdatedAt: localDoc.UpdatedAt,
			}); err != nil {
				return err
			}
		}
	}
	return r.Flush(ctx)
}

// OnLocalChange records a device-local mutation and immediately tries to
// flush it. Remote-origin changes are the reconciler's own overwrites and
// are ignored here. Consecutive changes to one category collapse into a
// single pending write holding the latest payload.
func (r *Reconciler) OnLocalChange(ctx context.Context, category models.SyncCategory, payload json.RawMessage, origin Origin) error {
	if origin == OriginRemote {
		return nil
	}
	if !category.Valid() {
		return errors.Errorf("unknown sync category %q", category)
	}

	updatedAt := r.now().UTC()
	r.local.Apply(category, models.CloudDocument{Payload: payload, UpdatedAt: updatedAt}, OriginLocal)
	if err := r.queue.Put(models.PendingWrite{
		Category:  category,
		Payload:   payload,
		UpdatedAt: updatedAt,
	}); err != nil {
		return err
	}

	if err := r.Flush(ctx); err != nil {
		// The write is safely queued; a failed immediate flush waits
		// for the next trigger.
		log.Printf("cloudsync: immediate flush for account %s: %v", r.accountID, err)
	}
	return nil
}

// Flush drains the pending-write queue newest-first. A transient failure
// stops the loop and leaves the remainder queued; a permanent failure drops
// only the offending write. A flush already in progress makes this call a
// no-op.
func (r *Reconciler) Flush(ctx context.Context) error {
	r.mu.Lock()
	signedOut := r.signedOut
	r.mu.Unlock()
	if signedOut {
		return nil
	}

	if !r.flushMu.TryLock() {
		return nil
	}
	defer r.flushMu.Unlock()

	for _, w := range r.queue.Snapshot() {
		err := r.remote.PutDocument(ctx, r.accountID, w.Category, models.CloudDocument{
			Payload:   w.Payload,
			UpdatedAt: w.UpdatedAt,
		})
		if err == nil {
			if err := r.queue.RemoveIf(w.Category, w.UpdatedAt); err != nil {
				return err
			}
			continue
		}
		if IsRetryable(err) {
			return errors.Wrapf(err, "flush %s for account %s", w.Category, r.accountID)
		}
		log.Printf("cloudsync: dropping unrecoverable %s write for account %s: %v", w.Category, r.accountID, err)
		if err := r.queue.RemoveIf(w.Category, w.UpdatedAt); err != nil {
			return err
		}
	}
	return nil
}

// Pending reports how many writes are still queued.
func (r *Reconciler) Pending() int {
	return r.queue.Len()
}

// SignOut stops future flushes and clears the durable queue.
func (r *Reconciler) SignOut() error {
	r.mu.Lock()
	r.signedOut = true
	r.mu.Unlock()
	return r.queue.Clear()
}
