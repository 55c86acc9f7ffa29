package assignment

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/andrescamacho/pharmasim-go/internal/application/common"
	"github.com/andrescamacho/pharmasim-go/internal/application/tasks"
	"github.com/andrescamacho/pharmasim-go/internal/domain/customer"
	"github.com/andrescamacho/pharmasim-go/internal/domain/staff"
	"github.com/andrescamacho/pharmasim-go/internal/domain/task"
	"github.com/andrescamacho/pharmasim-go/pkg/utils"
)

// autoAssignKey is the scheduler key shared by every debounced pass
const autoAssignKey = "auto-assign"

// Debouncer collapses repeated requests into one pending invocation
type Debouncer interface {
	Debounce(key string, delay time.Duration, fn func(ctx context.Context))
}

// PassResult summarizes one AutoAssign call
type PassResult struct {
	Assigned         int
	CheckoutAssigned int
	ExcludedWorkers  int
	EligibleTasks    int
	IdleWorkers      int
}

// Engine matches eligible pending tasks to idle workers.
//
// One pass is not exhaustive: whenever it binds something it schedules a
// follow-up pass, so the engine converges over several ticks.
type Engine struct {
	store     *tasks.Store
	binder    *Binder
	workers   staff.Directory
	customers customer.Directory
	selector  *Selector
	scorer    *Scorer
	priority  *task.PriorityCalculator
	readiness *task.AssignmentReadinessSpecification
	debouncer Debouncer
	cfg       Config
	logger    common.Logger

	lastPass PassResult
	passes   int
}

// NewEngine creates an engine. debouncer may be nil, in which case follow-up
// passes are not scheduled.
func NewEngine(
	store *tasks.Store,
	binder *Binder,
	workers staff.Directory,
	customers customer.Directory,
	debouncer Debouncer,
	cfg Config,
	logger common.Logger,
) *Engine {
	cfg = cfg.withDefaults()
	e := &Engine{
		store:     store,
		binder:    binder,
		workers:   workers,
		customers: customers,
		scorer:    NewScorer(cfg),
		priority:  task.NewPriorityCalculator(),
		readiness: task.NewAssignmentReadinessSpecification(),
		debouncer: debouncer,
		cfg:       cfg,
		logger:    common.OrNoOp(logger),
	}
	e.selector = NewSelector(e.scorer, e.completedDependency)
	return e
}

// LastPass returns the summary of the most recent AutoAssign call
func (e *Engine) LastPass() PassResult { return e.lastPass }

// Passes returns how many AutoAssign calls have run
func (e *Engine) Passes() int { return e.passes }

// RequestAssignment schedules a debounced AutoAssign pass
func (e *Engine) RequestAssignment(reason string) {
	if e.debouncer == nil {
		return
	}
	e.debouncer.Debounce(autoAssignKey, e.cfg.RepassDelay, func(ctx context.Context) {
		if _, err := e.AutoAssign(ctx); err != nil {
			e.logger.Log(common.LevelError, "Auto-assign pass failed", map[string]interface{}{
				"reason": reason,
				"error":  err.Error(),
			})
		}
	})
}

// AutoAssign runs one assignment pass and returns the number of bindings made.
func (e *Engine) AutoAssign(ctx context.Context) (int, error) {
	e.passes++
	result := PassResult{}
	defer func() { e.lastPass = result }()

	idle, excluded, err := e.idleWorkers(ctx)
	if err != nil {
		return 0, err
	}
	result.ExcludedWorkers = excluded
	result.IdleWorkers = len(idle)

	eligible := e.eligibleTasks(ctx)
	result.EligibleTasks = len(eligible)
	if len(eligible) == 0 || len(idle) == 0 {
		return 0, nil
	}

	statuses := e.customerStatuses(ctx, eligible)

	// Checkout first: departing customers hurt reputation while they wait
	idle, result.CheckoutAssigned = e.assignCheckouts(ctx, eligible, statuses, idle)
	result.Assigned = result.CheckoutAssigned

	remaining := make([]*task.Task, 0, len(eligible))
	for _, t := range eligible {
		if t.IsAssignable() {
			remaining = append(remaining, t)
		}
	}
	if len(remaining) > 0 && len(idle) > 0 {
		ranks := make(map[string]int, len(remaining))
		for _, t := range remaining {
			ranks[t.ID()] = e.priority.Rank(t, statuses[t.CustomerID()])
		}
		sort.SliceStable(remaining, func(i, j int) bool {
			a, b := remaining[i], remaining[j]
			return e.priority.Less(a, ranks[a.ID()], b, ranks[b.ID()])
		})

		for _, t := range remaining {
			if len(idle) == 0 {
				break
			}
			roles := RolePreferences(t, task.StageFor(statuses[t.CustomerID()]))
			selection, err := e.selector.SelectWorker(t, roles, idle)
			if err != nil {
				continue
			}
			if err := e.binder.Bind(ctx, t, selection.Worker); err != nil {
				e.logBindFailure(t, selection.Worker, err)
				continue
			}
			e.logger.Log(common.LevelDebug, "Task assigned", map[string]interface{}{
				"task_id":   utils.ShortID(t.ID()),
				"type":      string(t.Type()),
				"worker_id": selection.Worker.ID(),
				"reason":    selection.Reason,
			})
			idle = removeWorker(idle, selection.Worker.ID())
			result.Assigned++
		}
	}

	if result.Assigned > 0 {
		e.RequestAssignment("follow-up after assignments")
	}
	return result.Assigned, nil
}

// Assign binds taskID to workerID, first releasing whatever either side held.
func (e *Engine) Assign(ctx context.Context, taskID, workerID string) error {
	t, err := e.store.GetTaskByID(taskID)
	if err != nil {
		return err
	}
	w, err := e.workers.Get(ctx, workerID)
	if err != nil {
		return err
	}
	switch t.Status() {
	case task.TaskStatusCompleted:
		return &task.ErrInvalidTaskTransition{TaskID: taskID, From: t.Status(), To: task.TaskStatusInProgress}
	case task.TaskStatusPendingDependent:
		depStatus := task.TaskStatus("")
		if dep, err := e.store.GetTaskByID(t.DependencyTaskID()); err == nil {
			depStatus = dep.Status()
		}
		return &task.ErrDependencyNotMet{TaskID: taskID, DependencyID: t.DependencyTaskID(), DependencyState: depStatus}
	}
	if _, err := w.NormalizeRole(); err != nil {
		return err
	}

	if t.AssignedTo() == workerID && w.CurrentTaskID() == taskID {
		return nil
	}
	if t.IsAssigned() {
		if err := e.binder.Release(ctx, t, "reassigned"); err != nil {
			return fmt.Errorf("failed to release previous assignee: %w", err)
		}
	}
	if current := w.CurrentTaskID(); current != "" {
		if old, err := e.store.GetTaskByID(current); err == nil && old.AssignedTo() == workerID {
			if err := e.binder.Release(ctx, old, "worker reassigned"); err != nil {
				return fmt.Errorf("failed to release worker's previous task: %w", err)
			}
		} else if err := e.binder.ClearWorker(ctx, w); err != nil {
			return fmt.Errorf("failed to clear worker: %w", err)
		}
	}
	return e.binder.Bind(ctx, t, w)
}

// Unassign clears both sides of taskID's assignment and schedules a pass
func (e *Engine) Unassign(ctx context.Context, taskID string) error {
	t, err := e.store.GetTaskByID(taskID)
	if err != nil {
		return err
	}
	if !t.IsAssigned() {
		return nil
	}
	if err := e.binder.Release(ctx, t, "unassigned"); err != nil {
		return err
	}
	e.RequestAssignment("task unassigned")
	return nil
}

// idleWorkers normalizes every role and returns the idle workers with a
// canonical role plus the number excluded for unknown roles
func (e *Engine) idleWorkers(ctx context.Context) ([]*staff.Worker, int, error) {
	all, err := e.workers.List(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list workers: %w", err)
	}
	idle := make([]*staff.Worker, 0, len(all))
	excluded := 0
	for _, w := range all {
		if _, err := w.NormalizeRole(); err != nil {
			excluded++
			e.logger.Log(common.LevelWarning, "Worker excluded: unknown role", map[string]interface{}{
				"worker_id": w.ID(),
				"role":      w.RawRole(),
			})
			continue
		}
		if w.IsIdle() {
			idle = append(idle, w)
		}
	}
	return idle, excluded, nil
}

// eligibleTasks returns pending, unassigned tasks that pass readiness checks
func (e *Engine) eligibleTasks(ctx context.Context) []*task.Task {
	pending := e.store.GetUnassignedTasks()
	eligible := make([]*task.Task, 0, len(pending))
	for _, t := range pending {
		if e.readiness.CanAssign(t, e.store.ReadinessFor(ctx, t)) {
			eligible = append(eligible, t)
		}
	}
	return eligible
}

// customerStatuses looks up the status of every customer referenced by ts
func (e *Engine) customerStatuses(ctx context.Context, ts []*task.Task) map[string]customer.Status {
	statuses := make(map[string]customer.Status)
	if e.customers == nil {
		return statuses
	}
	for _, t := range ts {
		id := t.CustomerID()
		if id == "" {
			continue
		}
		if _, seen := statuses[id]; seen {
			continue
		}
		c, err := e.customers.Get(ctx, id)
		if err != nil {
			statuses[id] = ""
			continue
		}
		statuses[id] = c.Status()
	}
	return statuses
}

// assignCheckouts binds idle cashiers to checkout interactions in creation order
func (e *Engine) assignCheckouts(
	ctx context.Context,
	eligible []*task.Task,
	statuses map[string]customer.Status,
	idle []*staff.Worker,
) ([]*staff.Worker, int) {
	assigned := 0
	cashierOnly := []staff.Role{staff.RoleCashier}
	for _, t := range eligible {
		if t.Type() != task.TaskTypeCustomerInteraction || statuses[t.CustomerID()] != customer.StatusReadyForCheckout {
			continue
		}
		selection, err := e.selector.SelectWorker(t, cashierOnly, idle)
		if err != nil {
			break
		}
		if err := e.binder.Bind(ctx, t, selection.Worker); err != nil {
			e.logBindFailure(t, selection.Worker, err)
			continue
		}
		idle = removeWorker(idle, selection.Worker.ID())
		assigned++
	}
	return idle, assigned
}

func (e *Engine) completedDependency(t *task.Task, workerID string) bool {
	if t.DependencyTaskID() == "" {
		return false
	}
	completedBy, ok := e.store.CompletedBy(t.DependencyTaskID())
	return ok && completedBy == workerID
}

func (e *Engine) logBindFailure(t *task.Task, w *staff.Worker, err error) {
	e.logger.Log(common.LevelWarning, "Failed to bind task", map[string]interface{}{
		"task_id":   utils.ShortID(t.ID()),
		"worker_id": w.ID(),
		"error":     err.Error(),
	})
}

func removeWorker(workers []*staff.Worker, id string) []*staff.Worker {
	out := workers[:0:0]
	for _, w := range workers {
		if w.ID() != id {
			out = append(out, w)
		}
	}
	return out
}
