package cloudsync

import (
	"sync"

	"github.com/example/drillsched/pkg/models"
)

// Origin tags who caused a state change, so consumers can tell a user edit
// from a sync overwrite without timing tricks.
type Origin string

const (
	// OriginLocal marks changes made on this device.
	OriginLocal Origin = "local"
	// OriginRemote marks overwrites applied from the remote store.
	OriginRemote Origin = "remote"
)

// LocalState is the reconciler's view of the device-local copies of each
// synced category.
type LocalState interface {
	// Get returns the local snapshot for a category, or nil if absent.
	Get(category models.SyncCategory) *models.CloudDocument
	// Apply replaces the local snapshot. Origin lets listeners ignore
	// their own echoes.
	Apply(category models.SyncCategory, doc models.CloudDocument, origin Origin)
}

// MemoryState is a mutex-guarded in-memory LocalState. The UI layer feeds it
// on startup and subscribes to remote-origin applies.
type MemoryState struct {
	mu       sync.Mutex
	docs     map[models.SyncCategory]models.CloudDocument
	onChange func(models.SyncCategory, models.CloudDocument, Origin)
}

// NewMemoryState creates an empty local-state holder. onChange may be nil.
func NewMemoryState(onChange func(models.SyncCategory, models.CloudDocument, Origin)) *MemoryState {
	return &MemoryState{
		docs:     map[models.SyncCategory]models.CloudDocument{},
		onChange: onChange,
	}
}

// Get returns the snapshot for a category, or nil if absent.
func (m *MemoryState) Get(category models.SyncCategory) *models.CloudDocument {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[category]
	if !ok {
		return nil
	}
	copied := doc
	return &copied
}

// Apply replaces the snapshot and notifies the change listener.
func (m *MemoryState) Apply(category models.SyncCategory, doc models.CloudDocument, origin Origin) {
	m.mu.Lock()
	m.docs[category] = doc
	onChange := m.onChange
	m.mu.Unlock()

	if onChange != nil {
		onChange(category, doc, origin)
	}
}
