package pharmacy

import (
	"context"
	"sort"
	"sync"

	"github.com/andrescamacho/pharmasim-go/internal/domain/staff"
)

// Roster is an in-memory worker directory. It hands out live workers, so a
// Save after mutation is only needed to register new ones.
type Roster struct {
	mu      sync.RWMutex
	workers map[string]*staff.Worker
}

// NewRoster creates a roster holding workers
func NewRoster(workers ...*staff.Worker) *Roster {
	r := &Roster{workers: make(map[string]*staff.Worker, len(workers))}
	for _, w := range workers {
		r.workers[w.ID()] = w
	}
	return r
}

// List returns every worker ordered by id
func (r *Roster) List(ctx context.Context) ([]*staff.Worker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*staff.Worker, 0, len(r.workers))
	for _, w := range r.workers {
		result = append(result, w)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID() < result[j].ID() })
	return result, nil
}

// Get finds a worker by id
func (r *Roster) Get(ctx context.Context, workerID string) (*staff.Worker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	w, ok := r.workers[workerID]
	if !ok {
		return nil, &staff.ErrWorkerNotFound{WorkerID: workerID}
	}
	return w, nil
}

// Save inserts or replaces a worker
func (r *Roster) Save(ctx context.Context, worker *staff.Worker) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workers[worker.ID()] = worker
	return nil
}

// Remove drops a worker, e.g. when they leave mid-shift
func (r *Roster) Remove(workerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.workers[workerID]
	delete(r.workers, workerID)
	return ok
}

// Len returns the roster size
func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.workers)
}
