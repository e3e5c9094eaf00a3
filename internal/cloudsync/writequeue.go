package cloudsync

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/example/drillsched/pkg/models"
)

// WriteQueue is the durable pending-write map: at most one outstanding write
// per category, newer payloads overwriting older ones before they ever reach
// the network. It is persisted as one JSON file per account and survives
// restarts; sign-out clears it.
type WriteQueue struct {
	mu     sync.Mutex
	path   string
	writes map[models.SyncCategory]models.PendingWrite
}

// OpenWriteQueue loads (or creates) the durable queue for an account.
// A corrupt queue file is logged and replaced with an empty queue.
func OpenWriteQueue(dir, accountID string) (*WriteQueue, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "create sync queue directory")
	}
	q := &WriteQueue{
		path:   filepath.Join(dir, "pending-"+accountID+".json"),
		writes: map[models.SyncCategory]models.PendingWrite{},
	}

	data, err := os.ReadFile(q.path)
	if err != nil {
		if os.IsNotExist(err) {
			return q, nil
		}
		return nil, errors.Wrap(err, "read pending-write queue")
	}
	if err := json.Unmarshal(data, &q.writes); err != nil {
		log.Printf("cloudsync: discarding corrupt pending-write queue %s: %v", q.path, err)
		q.writes = map[models.SyncCategory]models.PendingWrite{}
	}
	return q, nil
}

// Put records a pending write, replacing any older one for the category,
// and persists the queue.
func (q *WriteQueue) Put(w models.PendingWrite) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.writes[w.Category] = w
	return q.persist()
}

// Remove drops the pending write for a category and persists the queue.
func (q *WriteQueue) Remove(category models.SyncCategory) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.writes, category)
	return q.persist()
}

// RemoveIf drops the pending write only if it still carries the given
// timestamp, so a flush never discards a write queued behind its back.
func (q *WriteQueue) RemoveIf(category models.SyncCategory, updatedAt time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	w, ok := q.writes[category]
	if !ok || !w.UpdatedAt.Equal(updatedAt) {
		return nil
	}
	delete(q.writes, category)
	return q.persist()
}

// Snapshot returns the outstanding writes ordered newest first; the flush
// loop works through them as a stack.
func (q *WriteQueue) Snapshot() []models.PendingWrite {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]models.PendingWrite, 0, len(q.writes))
	for _, w := range q.writes {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// Len returns the number of outstanding writes.
func (q *WriteQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.writes)
}

// Clear drops every pending write and removes the queue file; used on
// sign-out.
func (q *WriteQueue) Clear() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.writes = map[models.SyncCategory]models.PendingWrite{}
	err := os.Remove(q.path)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove pending-write queue")
	}
	return nil
}

// persist rewrites the queue file; callers hold q.mu.
func (q *WriteQueue) persist() error {
	data, err := json.Marshal(q.writes)
	if err != nil {
		return errors.Wrap(err, "encode pending-write queue")
	}
	tmp := q.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.Wrap(err, "write pending-write queue")
	}
	if err := os.Rename(tmp, q.path); err != nil {
		return errors.Wrap(err, "replace pending-write queue")
	}
	return nil
}
