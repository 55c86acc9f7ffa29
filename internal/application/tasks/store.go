package tasks

import (
	"context"
	"sort"
	"time"

	"golang.org/x/time/rate"

	"github.com/andrescamacho/pharmasim-go/internal/application/common"
	"github.com/andrescamacho/pharmasim-go/internal/application/events"
	"github.com/andrescamacho/pharmasim-go/internal/domain/customer"
	"github.com/andrescamacho/pharmasim-go/internal/domain/ports"
	"github.com/andrescamacho/pharmasim-go/internal/domain/shared"
	"github.com/andrescamacho/pharmasim-go/internal/domain/simulation"
	"github.com/andrescamacho/pharmasim-go/internal/domain/staff"
	"github.com/andrescamacho/pharmasim-go/internal/domain/task"
	"github.com/andrescamacho/pharmasim-go/pkg/utils"
)

// completionMemory bounds how many finished task -> worker pairs are kept for
// the continuity bonus
const completionMemory = 512

// Dependencies are the collaborators a Store consults
type Dependencies struct {
	Workers     staff.Directory
	Customers   customer.Directory
	Feasibility ports.Feasibility
	Hooks       ports.CompletionHooks
	Verifier    *simulation.ProgressVerifier
	Events      *events.Bus[task.Event]
	Logger      common.Logger
	Clock       shared.Clock
}

// Store is the authoritative task collection.
//
// Tasks are kept in insertion order; every scan walks that order. Completed
// tasks are finalized only after a scan finishes so the collection is never
// mutated mid-iteration.
type Store struct {
	tasks        map[string]*task.Task
	order        []string
	nextSequence int64

	completedBy    map[string]string
	completedOrder []string

	workers     staff.Directory
	customers   customer.Directory
	feasibility ports.Feasibility
	hooks       ports.CompletionHooks
	verifier    *simulation.ProgressVerifier
	bus         *events.Bus[task.Event]
	readiness   *task.AssignmentReadinessSpecification

	binder    AssignmentBinder
	requester AssignmentRequester

	anomalyLog rate.Sometimes
	logger     common.Logger
	clock      shared.Clock
}

// NewStore creates an empty store
func NewStore(deps Dependencies) *Store {
	clock := shared.OrRealClock(deps.Clock)
	logger := common.OrNoOp(deps.Logger)
	verifier := deps.Verifier
	if verifier == nil {
		verifier = simulation.NewProgressVerifier(simulation.VerifierConfig{}, clock)
	}
	bus := deps.Events
	if bus == nil {
		bus = events.NewBus[task.Event]("tasks", logger)
	}
	return &Store{
		tasks:        make(map[string]*task.Task),
		nextSequence: 1,
		completedBy:  make(map[string]string),
		workers:      deps.Workers,
		customers:    deps.Customers,
		feasibility:  deps.Feasibility,
		hooks:        deps.Hooks,
		verifier:     verifier,
		bus:          bus,
		readiness:    task.NewAssignmentReadinessSpecification(),
		anomalyLog:   rate.Sometimes{First: 5, Interval: 10 * time.Second},
		logger:       logger,
		clock:        clock,
	}
}

// SetBinder wires the assignment binder. Must be called before Advance.
func (s *Store) SetBinder(binder AssignmentBinder) {
	s.binder = binder
}

// SetAssignmentRequester wires the debounced assignment trigger
func (s *Store) SetAssignmentRequester(requester AssignmentRequester) {
	s.requester = requester
}

// Events returns the task lifecycle bus
func (s *Store) Events() *events.Bus[task.Event] { return s.bus }

// Verifier returns the progress verifier consulted during Advance
func (s *Store) Verifier() *simulation.ProgressVerifier { return s.verifier }

// NextSequence returns the sequence the next added task will receive
func (s *Store) NextSequence() int64 { return s.nextSequence }

// AddTask validates a descriptor, stores the resulting task and requests an
// assignment pass.
func (s *Store) AddTask(ctx context.Context, d task.Descriptor) (*task.Task, error) {
	id := d.ID
	if id == "" {
		id = utils.GenerateTaskID()
	}
	if _, exists := s.tasks[id]; exists {
		return nil, &task.ErrDuplicateTask{TaskID: id}
	}

	t, err := task.NewTask(id, s.nextSequence, d, s.DependencyOpen(d.DependencyTaskID), s.clock)
	if err != nil {
		return nil, err
	}
	s.nextSequence++
	s.insert(t)

	s.logger.Log(common.LevelDebug, "Task added", map[string]interface{}{
		"task_id":     utils.ShortID(t.ID()),
		"type":        string(t.Type()),
		"status":      string(t.Status()),
		"customer_id": t.CustomerID(),
	})
	s.bus.Publish(task.TaskAddedEvent{Task: t.ToRecord()})
	s.requestAssignment("task added")
	return t, nil
}

// Queries

// GetTaskByID returns the live task or ErrTaskNotFound
func (s *Store) GetTaskByID(id string) (*task.Task, error) {
	t, ok := s.tasks[id]
	if !ok {
		return nil, &task.ErrTaskNotFound{TaskID: id}
	}
	return t, nil
}

// GetUnassignedTasks returns PENDING tasks without an assignee in insertion order
func (s *Store) GetUnassignedTasks() []*task.Task {
	return s.filter(func(t *task.Task) bool { return t.IsAssignable() })
}

// GetTasksForWorker returns non-completed tasks assigned to workerID
func (s *Store) GetTasksForWorker(workerID string) []*task.Task {
	return s.filter(func(t *task.Task) bool {
		return t.AssignedTo() == workerID && !t.IsCompleted()
	})
}

// GetTasksForCustomer returns non-completed tasks linked to customerID
func (s *Store) GetTasksForCustomer(customerID string) []*task.Task {
	return s.filter(func(t *task.Task) bool {
		return t.CustomerID() == customerID && !t.IsCompleted()
	})
}

// GetTasksByStatus returns tasks in the given status in insertion order
func (s *Store) GetTasksByStatus(status task.TaskStatus) []*task.Task {
	return s.filter(func(t *task.Task) bool { return t.Status() == status })
}

// HasOpenTaskForCustomer reports whether any non-completed task references customerID
func (s *Store) HasOpenTaskForCustomer(customerID string) bool {
	for _, id := range s.order {
		t := s.tasks[id]
		if t.CustomerID() == customerID && !t.IsCompleted() {
			return true
		}
	}
	return false
}

// All returns every task in insertion order
func (s *Store) All() []*task.Task {
	return s.filter(func(*task.Task) bool { return true })
}

// Count returns the number of stored tasks
func (s *Store) Count() int { return len(s.order) }

// CompletedBy returns the worker that finished taskID, if remembered
func (s *Store) CompletedBy(taskID string) (string, bool) {
	workerID, ok := s.completedBy[taskID]
	return workerID, ok
}

// DependencyOpen reports whether dependencyID names a stored task that has
// not completed. Missing dependencies count as satisfied.
func (s *Store) DependencyOpen(dependencyID string) bool {
	if dependencyID == "" {
		return false
	}
	dep, ok := s.tasks[dependencyID]
	return ok && !dep.IsCompleted()
}

// IsFeasible checks stock for resource-gated tasks. Collaborator errors and
// panics count as infeasible for this tick.
func (s *Store) IsFeasible(ctx context.Context, t *task.Task) bool {
	if s.feasibility == nil || !t.Type().IsResourceGated() {
		return true
	}
	feasible := false
	ok := common.Guard(s.logger, "feasibility", map[string]interface{}{
		"task_id": utils.ShortID(t.ID()),
		"type":    string(t.Type()),
	}, func() error {
		var err error
		switch t.Type() {
		case task.TaskTypeFillPrescription:
			feasible, err = s.feasibility.CanFillPrescription(ctx, t.PrescriptionID())
		case task.TaskTypeCompound:
			feasible, err = s.feasibility.CanCompound(ctx, t.ProductID())
		}
		return err
	})
	return ok && feasible
}

// ReadinessFor gathers the conditions the readiness specification needs
func (s *Store) ReadinessFor(ctx context.Context, t *task.Task) task.ReadinessConditions {
	return task.ReadinessConditions{
		Feasible:       s.IsFeasible(ctx, t),
		DependencyOpen: s.DependencyOpen(t.DependencyTaskID()),
	}
}

// Restore replaces the collection with snapshot records, keeping their
// sequence numbers. Verifier expectations are reset.
func (s *Store) Restore(records []task.Record, nextSequence int64) error {
	restored := make([]*task.Task, 0, len(records))
	maxSeq := int64(0)
	for _, r := range records {
		t, err := task.FromRecord(r, s.clock)
		if err != nil {
			return err
		}
		restored = append(restored, t)
		if t.Sequence() > maxSeq {
			maxSeq = t.Sequence()
		}
	}

	s.tasks = make(map[string]*task.Task, len(restored))
	s.order = s.order[:0]
	for _, t := range sortBySequence(restored) {
		s.insert(t)
	}
	if nextSequence <= maxSeq {
		nextSequence = maxSeq + 1
	}
	s.nextSequence = nextSequence
	s.completedBy = make(map[string]string)
	s.completedOrder = nil
	s.verifier.Reset()
	return nil
}

func (s *Store) insert(t *task.Task) {
	s.tasks[t.ID()] = t
	s.order = append(s.order, t.ID())
}

func (s *Store) remove(id string) {
	if _, ok := s.tasks[id]; !ok {
		return
	}
	delete(s.tasks, id)
	for i, orderedID := range s.order {
		if orderedID == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *Store) filter(keep func(*task.Task) bool) []*task.Task {
	out := make([]*task.Task, 0)
	for _, id := range s.order {
		if t := s.tasks[id]; keep(t) {
			out = append(out, t)
		}
	}
	return out
}

func (s *Store) rememberCompletion(taskID, workerID string) {
	if _, exists := s.completedBy[taskID]; !exists {
		s.completedOrder = append(s.completedOrder, taskID)
	}
	s.completedBy[taskID] = workerID
	for len(s.completedOrder) > completionMemory {
		delete(s.completedBy, s.completedOrder[0])
		s.completedOrder = s.completedOrder[1:]
	}
}

func (s *Store) requestAssignment(reason string) {
	if s.requester != nil {
		s.requester.RequestAssignment(reason)
	}
}

func sortBySequence(ts []*task.Task) []*task.Task {
	sort.SliceStable(ts, func(i, j int) bool { return ts[i].Sequence() < ts[j].Sequence() })
	return ts
}
