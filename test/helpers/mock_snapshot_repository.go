package helpers

import (
	"context"
	"sync"

	"github.com/andrescamacho/pharmasim-go/internal/domain/simulation"
)

// MemorySnapshotRepository keeps snapshots in memory for tests
type MemorySnapshotRepository struct {
	mu      sync.Mutex
	saved   map[string]*simulation.Snapshot
	latest  string
	Saves   int
	SaveErr error
}

func NewMemorySnapshotRepository() *MemorySnapshotRepository {
	return &MemorySnapshotRepository{saved: make(map[string]*simulation.Snapshot)}
}

func (r *MemorySnapshotRepository) Save(ctx context.Context, snapshot *simulation.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.SaveErr != nil {
		return r.SaveErr
	}
	r.saved[snapshot.SessionID] = snapshot
	r.latest = snapshot.SessionID
	r.Saves++
	return nil
}

func (r *MemorySnapshotRepository) Load(ctx context.Context, sessionID string) (*simulation.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap, ok := r.saved[sessionID]
	if !ok {
		return nil, &simulation.ErrSnapshotNotFound{SessionID: sessionID}
	}
	return snap, nil
}

func (r *MemorySnapshotRepository) Latest(ctx context.Context) (*simulation.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.latest == "" {
		return nil, &simulation.ErrSnapshotNotFound{}
	}
	return r.saved[r.latest], nil
}

// SaveCount returns how many snapshots were saved
func (r *MemorySnapshotRepository) SaveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Saves
}
