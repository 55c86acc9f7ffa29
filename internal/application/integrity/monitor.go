package integrity

import (
	"context"
	"fmt"
	"time"

	"github.com/andrescamacho/pharmasim-go/internal/application/assignment"
	"github.com/andrescamacho/pharmasim-go/internal/application/common"
	"github.com/andrescamacho/pharmasim-go/internal/application/tasks"
	"github.com/andrescamacho/pharmasim-go/internal/domain/customer"
	"github.com/andrescamacho/pharmasim-go/internal/domain/shared"
	"github.com/andrescamacho/pharmasim-go/internal/domain/staff"
	"github.com/andrescamacho/pharmasim-go/internal/domain/task"
	"github.com/andrescamacho/pharmasim-go/pkg/utils"
)

// Monitor defaults
const (
	DefaultInterval               = 60 * time.Second
	DefaultStuckThreshold         = 10 * time.Minute
	DefaultForceCompleteThreshold = 30 * time.Minute
	DefaultCustomerWaitThreshold  = 15 * time.Minute
	DefaultAnomalyThreshold       = 10
	DefaultMaxCustomerRecoveries  = 3
)

// Config tunes the integrity sweep
type Config struct {
	Interval               time.Duration
	StuckThreshold         time.Duration
	ForceCompleteThreshold time.Duration
	ForceCompleteEnabled   bool
	CustomerWaitThreshold  time.Duration
	AnomalyThreshold       int
	MaxCustomerRecoveries  int
}

// DefaultConfig returns the standard thresholds with force completion enabled
func DefaultConfig() Config {
	return Config{
		Interval:               DefaultInterval,
		StuckThreshold:         DefaultStuckThreshold,
		ForceCompleteThreshold: DefaultForceCompleteThreshold,
		ForceCompleteEnabled:   true,
		CustomerWaitThreshold:  DefaultCustomerWaitThreshold,
		AnomalyThreshold:       DefaultAnomalyThreshold,
		MaxCustomerRecoveries:  DefaultMaxCustomerRecoveries,
	}
}

// ActivityGate tells the monitor whether simulated time is flowing.
// Wall-clock stuck detection is meaningless while paused or after closing.
type ActivityGate interface {
	IsSimulating() bool
}

// Assigner runs an assignment pass
type Assigner interface {
	AutoAssign(ctx context.Context) (int, error)
}

// RecoveryMetrics tracks cumulative integrity monitor statistics
type RecoveryMetrics struct {
	Sweeps             int
	WorkersRepaired    int
	TasksRepaired      int
	StuckTasksFlagged  int
	ForceCompletions   int
	CustomersRecovered int
	RecoveryTasks      int
	AbandonedCustomers int
	VerifierResets     int
}

// SweepReport describes what a single sweep found and fixed
type SweepReport struct {
	At                 time.Time
	WorkersRepaired    int
	TasksRepaired      int
	StuckTasks         []string
	ForceCompleted     []string
	StuckCustomers     int
	CustomersRecovered int
	RecoveryTasks      []string
	VerifierReset      bool
	AutoAssigned       int
	ActivitySkipped    bool
	Errors             []string
}

// Repairs returns the number of reference repairs made
func (r SweepReport) Repairs() int {
	return r.WorkersRepaired + r.TasksRepaired
}

// Monitor is the periodic self-healing sweep over tasks, workers and customers.
// Other components may leave transient inconsistency; the sweep guarantees
// convergence.
type Monitor struct {
	store     *tasks.Store
	binder    *assignment.Binder
	assigner  Assigner
	workers   staff.Directory
	customers customer.Directory
	gate      ActivityGate

	cfg               Config
	lastSweep         *time.Time
	customerRecovered map[string]int // customer id -> recovery attempts
	metrics           *RecoveryMetrics

	clock  shared.Clock
	logger common.Logger
}

// NewMonitor creates a monitor. gate may be nil, meaning always active.
func NewMonitor(
	store *tasks.Store,
	binder *assignment.Binder,
	assigner Assigner,
	workers staff.Directory,
	customers customer.Directory,
	gate ActivityGate,
	cfg Config,
	clock shared.Clock,
	logger common.Logger,
) *Monitor {
	d := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = d.Interval
	}
	if cfg.StuckThreshold <= 0 {
		cfg.StuckThreshold = d.StuckThreshold
	}
	if cfg.ForceCompleteThreshold <= 0 {
		cfg.ForceCompleteThreshold = d.ForceCompleteThreshold
	}
	if cfg.CustomerWaitThreshold <= 0 {
		cfg.CustomerWaitThreshold = d.CustomerWaitThreshold
	}
	if cfg.AnomalyThreshold <= 0 {
		cfg.AnomalyThreshold = d.AnomalyThreshold
	}
	if cfg.MaxCustomerRecoveries <= 0 {
		cfg.MaxCustomerRecoveries = d.MaxCustomerRecoveries
	}
	return &Monitor{
		store:             store,
		binder:            binder,
		assigner:          assigner,
		workers:           workers,
		customers:         customers,
		gate:              gate,
		cfg:               cfg,
		customerRecovered: make(map[string]int),
		metrics:           &RecoveryMetrics{},
		clock:             shared.OrRealClock(clock),
		logger:            common.OrNoOp(logger),
	}
}

// Getters

func (m *Monitor) Config() Config            { return m.cfg }
func (m *Monitor) Interval() time.Duration   { return m.cfg.Interval }
func (m *Monitor) LastSweepTime() *time.Time { return m.lastSweep }
func (m *Monitor) Metrics() RecoveryMetrics  { return *m.metrics }

// SetForceComplete toggles the force-completion policy at runtime
func (m *Monitor) SetForceComplete(enabled bool) {
	m.cfg.ForceCompleteEnabled = enabled
}

// RunIfDue sweeps unless the previous sweep was less than Interval ago.
// Returns the report and whether the sweep was skipped.
func (m *Monitor) RunIfDue(ctx context.Context) (SweepReport, bool) {
	now := m.clock.Now()
	if m.lastSweep != nil && now.Sub(*m.lastSweep) < m.cfg.Interval {
		return SweepReport{}, true
	}
	return m.Sweep(ctx), false
}

// Sweep performs one full integrity pass:
//  1. clear worker back-references to missing or foreign tasks
//  2. demote IN_PROGRESS tasks whose worker is missing or not pointing back,
//     and drop assignees left on tasks that are not IN_PROGRESS
//  3. flag stale IN_PROGRESS tasks, force completing past the hard ceiling
//  4. recover customers stuck in one status
//  5. reset the verifier after too many anomalies
//  6. run one assignment pass if anything in 1-2 was repaired
func (m *Monitor) Sweep(ctx context.Context) SweepReport {
	now := m.clock.Now()
	m.lastSweep = &now
	report := SweepReport{At: now}

	m.repairWorkers(ctx, &report)
	m.repairTasks(ctx, &report)

	if m.gate == nil || m.gate.IsSimulating() {
		m.checkStuckTasks(ctx, &report)
		m.recoverStuckCustomers(ctx, &report)
	} else {
		report.ActivitySkipped = true
	}

	if verifier := m.store.Verifier(); verifier.AnomalyCount() > m.cfg.AnomalyThreshold {
		m.logger.Log(common.LevelWarning, "Progress anomalies over threshold, resetting verifier", map[string]interface{}{
			"anomalies": verifier.AnomalyCount(),
			"threshold": m.cfg.AnomalyThreshold,
		})
		verifier.Reset()
		report.VerifierReset = true
	}

	if report.Repairs() > 0 && m.assigner != nil {
		assigned, err := m.assigner.AutoAssign(ctx)
		if err != nil {
			report.Errors = append(report.Errors, err.Error())
		}
		report.AutoAssigned = assigned
	}

	m.accumulate(report)
	m.logReport(report)
	return report
}

func (m *Monitor) repairWorkers(ctx context.Context, report *SweepReport) {
	workers, err := m.workers.List(ctx)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("list workers: %v", err))
		return
	}
	for _, w := range workers {
		taskID := w.CurrentTaskID()
		if taskID == "" {
			continue
		}
		t, err := m.store.GetTaskByID(taskID)
		if err == nil && t.AssignedTo() == w.ID() && t.IsInProgress() {
			continue
		}
		if err := m.binder.ClearWorker(ctx, w); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("clear worker %s: %v", w.ID(), err))
			continue
		}
		report.WorkersRepaired++
		m.logger.Log(common.LevelWarning, "Worker reference repaired", map[string]interface{}{
			"worker_id": w.ID(),
			"task_id":   utils.ShortID(taskID),
		})
	}
}

func (m *Monitor) repairTasks(ctx context.Context, report *SweepReport) {
	for _, t := range m.store.All() {
		if t.IsCompleted() {
			continue
		}
		if t.IsInProgress() && m.pointsBack(ctx, t) {
			continue
		}
		if !t.IsInProgress() && !t.IsAssigned() {
			continue
		}
		workerID := t.AssignedTo()
		if err := m.binder.Release(ctx, t, "integrity repair"); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("release task %s: %v", t.ID(), err))
			continue
		}
		report.TasksRepaired++
		m.logger.Log(common.LevelWarning, "Task assignment repaired", map[string]interface{}{
			"task_id":   utils.ShortID(t.ID()),
			"worker_id": workerID,
		})
	}
}

func (m *Monitor) pointsBack(ctx context.Context, t *task.Task) bool {
	if t.AssignedTo() == "" {
		return false
	}
	w, err := m.workers.Get(ctx, t.AssignedTo())
	if err != nil || w == nil {
		return false
	}
	return w.CurrentTaskID() == t.ID()
}

func (m *Monitor) checkStuckTasks(ctx context.Context, report *SweepReport) {
	for _, t := range m.store.GetTasksByStatus(task.TaskStatusInProgress) {
		if !t.IsStale(m.cfg.StuckThreshold) {
			continue
		}
		idle := t.SinceLastProgress()
		report.StuckTasks = append(report.StuckTasks, t.ID())
		meta := map[string]interface{}{
			"task_id":   utils.ShortID(t.ID()),
			"type":      string(t.Type()),
			"worker_id": t.AssignedTo(),
			"idle_for":  idle.String(),
		}

		if !t.IsStale(m.cfg.ForceCompleteThreshold) {
			m.logger.Log(common.LevelWarning, "Task stuck", meta)
			continue
		}
		if !m.cfg.ForceCompleteEnabled {
			m.logger.Log(common.LevelError, "Task stuck past force-complete ceiling, policy disabled", meta)
			continue
		}
		if err := m.store.ForceCompleteTask(ctx, t.ID()); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("force complete %s: %v", t.ID(), err))
			continue
		}
		report.ForceCompleted = append(report.ForceCompleted, t.ID())
	}
}

func (m *Monitor) recoverStuckCustomers(ctx context.Context, report *SweepReport) {
	if m.customers == nil {
		return
	}
	customers, err := m.customers.List(ctx)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("list customers: %v", err))
		return
	}

	now := m.clock.Now()
	stuck := make([]customer.StuckCustomer, 0)
	for _, c := range customers {
		if !c.Status().IsWaiting() || c.WaitingFor(now) <= m.cfg.CustomerWaitThreshold {
			continue
		}
		entry := customer.StuckCustomer{
			CustomerID:  c.ID(),
			Status:      c.Status(),
			Waiting:     c.WaitingFor(now),
			HasOpenTask: m.store.HasOpenTaskForCustomer(c.ID()),
		}
		if !entry.HasOpenTask {
			if m.customerRecovered[c.ID()] >= m.cfg.MaxCustomerRecoveries {
				m.metrics.AbandonedCustomers++
				continue
			}
			if id, ok := m.createRecoveryTask(ctx, c); ok {
				report.RecoveryTasks = append(report.RecoveryTasks, id)
				m.customerRecovered[c.ID()]++
				entry.HasOpenTask = true
			}
		}
		stuck = append(stuck, entry)
	}
	report.StuckCustomers = len(stuck)
	if len(stuck) == 0 {
		return
	}

	common.Guard(m.logger, "detect_and_fix_stuck", map[string]interface{}{"stuck": len(stuck)}, func() error {
		recovered, err := m.customers.DetectAndFixStuck(ctx, stuck)
		report.CustomersRecovered = recovered
		return err
	})
}

// createRecoveryTask queues an urgent task that moves c to its next status
func (m *Monitor) createRecoveryTask(ctx context.Context, c *customer.Customer) (string, bool) {
	d := task.Descriptor{
		Priority:       task.PriorityUrgent,
		CustomerID:     c.ID(),
		PrescriptionID: c.PrescriptionID(),
	}
	switch c.Status() {
	case customer.StatusAwaitingCheckIn, customer.StatusReadyForCheckout:
		d.Type = task.TaskTypeCustomerInteraction
	case customer.StatusAwaitingConsultation:
		d.Type = task.TaskTypeConsultation
	case customer.StatusAwaitingFill:
		d.Type = task.TaskTypeFillPrescription
	default:
		return "", false
	}
	t, err := m.store.AddTask(ctx, d)
	if err != nil {
		m.logger.Log(common.LevelError, "Failed to create recovery task", map[string]interface{}{
			"customer_id": c.ID(),
			"error":       err.Error(),
		})
		return "", false
	}
	m.logger.Log(common.LevelWarning, "Recovery task created for stuck customer", map[string]interface{}{
		"customer_id": c.ID(),
		"status":      string(c.Status()),
		"task_id":     utils.ShortID(t.ID()),
	})
	return t.ID(), true
}

func (m *Monitor) accumulate(r SweepReport) {
	m.metrics.Sweeps++
	m.metrics.WorkersRepaired += r.WorkersRepaired
	m.metrics.TasksRepaired += r.TasksRepaired
	m.metrics.StuckTasksFlagged += len(r.StuckTasks)
	m.metrics.ForceCompletions += len(r.ForceCompleted)
	m.metrics.CustomersRecovered += r.CustomersRecovered
	m.metrics.RecoveryTasks += len(r.RecoveryTasks)
	if r.VerifierReset {
		m.metrics.VerifierResets++
	}
}

func (m *Monitor) logReport(r SweepReport) {
	level := common.LevelDebug
	if r.Repairs() > 0 || len(r.ForceCompleted) > 0 || len(r.Errors) > 0 {
		level = common.LevelInfo
	}
	m.logger.Log(level, "Integrity sweep finished", map[string]interface{}{
		"workers_repaired": r.WorkersRepaired,
		"tasks_repaired":   r.TasksRepaired,
		"stuck_tasks":      len(r.StuckTasks),
		"force_completed":  len(r.ForceCompleted),
		"stuck_customers":  r.StuckCustomers,
		"verifier_reset":   r.VerifierReset,
		"auto_assigned":    r.AutoAssigned,
		"errors":           len(r.Errors),
	})
}
