package leitner

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// Store persists one device's queue state as a JSON file. Corrupt or
// incompatible files are replaced with a fresh state at load time rather
// than surfaced as errors; blocking the user over a bad cache is worse than
// losing it.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore creates a store under dir, keyed by device id.
func NewStore(dir, deviceID string) *Store {
	return &Store{path: filepath.Join(dir, "queue-"+deviceID+".json")}
}

// Load reads the persisted state. Missing, unreadable, corrupt, or
// version-mismatched files all yield a fresh empty state.
func (st *Store) Load() State {
	st.mu.Lock()
	defer st.mu.Unlock()

	data, err := os.ReadFile(st.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("leitner: discarding unreadable queue state %s: %v", st.path, err)
		}
		return NewState()
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		log.Printf("leitner: discarding corrupt queue state %s: %v", st.path, err)
		return NewState()
	}
	if s.Version != StateVersion {
		log.Printf("leitner: discarding queue state %s with version %d", st.path, s.Version)
		return NewState()
	}
	return s
}

// Save writes the state atomically (temp file + rename).
func (st *Store) Save(s State) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	data, err := json.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "encode queue state")
	}
	if err := os.MkdirAll(filepath.Dir(st.path), 0755); err != nil {
		return errors.Wrap(err, "create queue state directory")
	}
	tmp := st.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.Wrap(err, "write queue state")
	}
	if err := os.Rename(tmp, st.path); err != nil {
		return errors.Wrap(err, "replace queue state")
	}
	return nil
}
