package tasks_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/pharmasim-go/internal/adapters/pharmacy"
	"github.com/andrescamacho/pharmasim-go/internal/application/assignment"
	"github.com/andrescamacho/pharmasim-go/internal/application/tasks"
	"github.com/andrescamacho/pharmasim-go/internal/domain/customer"
	"github.com/andrescamacho/pharmasim-go/internal/domain/shared"
	"github.com/andrescamacho/pharmasim-go/internal/domain/staff"
	"github.com/andrescamacho/pharmasim-go/internal/domain/task"
	"github.com/andrescamacho/pharmasim-go/test/helpers"
)

type storeFixture struct {
	ctx       context.Context
	clock     *shared.MockClock
	roster    *pharmacy.Roster
	customers *pharmacy.CustomerBook
	hooks     *helpers.RecordingHooks
	feas      *helpers.MockFeasibility
	store     *tasks.Store
	binder    *assignment.Binder
	events    []task.Event
}

func newStoreFixture(t *testing.T, workers ...*staff.Worker) *storeFixture {
	t.Helper()
	clock := shared.NewMockClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	f := &storeFixture{
		ctx:       context.Background(),
		clock:     clock,
		roster:    pharmacy.NewRoster(workers...),
		customers: pharmacy.NewCustomerBook(nil, time.Hour, clock),
		hooks:     helpers.NewRecordingHooks(),
		feas:      helpers.NewMockFeasibility(),
	}
	f.hooks.Customers = f.customers
	f.store = tasks.NewStore(tasks.Dependencies{
		Workers:     f.roster,
		Customers:   f.customers,
		Feasibility: f.feas,
		Hooks:       f.hooks,
		Clock:       clock,
	})
	f.binder = assignment.NewBinder(f.roster, f.store.Events(), nil)
	f.store.SetBinder(f.binder)
	f.store.Events().Subscribe("test", func(e task.Event) { f.events = append(f.events, e) })
	return f
}

func (f *storeFixture) add(t *testing.T, d task.Descriptor) *task.Task {
	t.Helper()
	tk, err := f.store.AddTask(f.ctx, d)
	require.NoError(t, err)
	return tk
}

func (f *storeFixture) bind(t *testing.T, tk *task.Task, workerID string) {
	t.Helper()
	w, err := f.roster.Get(f.ctx, workerID)
	require.NoError(t, err)
	require.NoError(t, f.binder.Bind(f.ctx, tk, w))
}

func (f *storeFixture) worker(t *testing.T, id string) *staff.Worker {
	t.Helper()
	w, err := f.roster.Get(f.ctx, id)
	require.NoError(t, err)
	return w
}

func (f *storeFixture) completed() []task.TaskCompletedEvent {
	var out []task.TaskCompletedEvent
	for _, e := range f.events {
		if c, ok := e.(task.TaskCompletedEvent); ok {
			out = append(out, c)
		}
	}
	return out
}

func pharmacist(id string) *staff.Worker {
	return staff.NewWorker(id, "Pharmacist "+id, "pharmacist", map[string]float64{staff.SkillPharmacology: 80}, 70)
}

func technician(id string) *staff.Worker {
	return staff.NewWorker(id, "Tech "+id, "technician", map[string]float64{staff.SkillCompounding: 80}, 70)
}

func cashier(id string) *staff.Worker {
	return staff.NewWorker(id, "Cashier "+id, "cashier", map[string]float64{staff.SkillCustomerService: 80}, 70)
}

func TestAddTask_AssignsSequenceAndPublishes(t *testing.T) {
	// Arrange
	f := newStoreFixture(t)

	// Act
	first := f.add(t, task.Descriptor{Type: task.TaskTypeConsultation})
	second := f.add(t, task.Descriptor{Type: task.TaskTypeProduction, ProductID: "ibuprofen"})

	// Assert
	assert.Equal(t, int64(1), first.Sequence())
	assert.Equal(t, int64(2), second.Sequence())
	assert.Equal(t, int64(3), f.store.NextSequence())
	assert.Equal(t, 2, f.store.Count())
	require.Len(t, f.events, 2)
	added, ok := f.events[0].(task.TaskAddedEvent)
	require.True(t, ok)
	assert.Equal(t, first.ID(), added.Task.ID)
}

func TestAddTask_RejectsDuplicateID(t *testing.T) {
	f := newStoreFixture(t)
	f.add(t, task.Descriptor{ID: "t1", Type: task.TaskTypeConsultation})

	_, err := f.store.AddTask(f.ctx, task.Descriptor{ID: "t1", Type: task.TaskTypeConsultation})

	var dup *task.ErrDuplicateTask
	assert.ErrorAs(t, err, &dup)
	assert.Equal(t, 1, f.store.Count())
}

func TestAdvance_AddsExactMinutes(t *testing.T) {
	// Arrange
	f := newStoreFixture(t, pharmacist("w1"))
	tk := f.add(t, task.Descriptor{Type: task.TaskTypeConsultation, TotalTime: 10})
	f.bind(t, tk, "w1")

	// Act
	require.NoError(t, f.store.Advance(f.ctx, 2.5))
	require.NoError(t, f.store.Advance(f.ctx, 1.25))

	// Assert
	assert.InDelta(t, 3.75, tk.Progress(), 1e-9)
	assert.Equal(t, task.TaskStatusInProgress, tk.Status())
	assert.Zero(t, f.store.Verifier().AnomalyCount())
}

func TestAdvance_CompletesAndFinalizes(t *testing.T) {
	// Arrange
	f := newStoreFixture(t, technician("w1"))
	tk := f.add(t, task.Descriptor{Type: task.TaskTypeProduction, TotalTime: 3, ProductID: "ibuprofen"})
	f.bind(t, tk, "w1")

	// Act - one oversized tick finishes the task
	require.NoError(t, f.store.Advance(f.ctx, 50))

	// Assert
	_, err := f.store.GetTaskByID(tk.ID())
	var notFound *task.ErrTaskNotFound
	require.ErrorAs(t, err, &notFound)
	assert.True(t, f.worker(t, "w1").IsIdle())

	done := f.completed()
	require.Len(t, done, 1)
	assert.Equal(t, "w1", done[0].WorkerID)
	assert.False(t, done[0].Forced)
	assert.Equal(t, 3.0, done[0].Task.Progress, "progress is clamped to total time")

	assert.Len(t, f.hooks.Named("mood_on_completion"), 1)
	assert.Len(t, f.hooks.Named("production_completed"), 1)
	completedBy, ok := f.store.CompletedBy(tk.ID())
	assert.True(t, ok)
	assert.Equal(t, "w1", completedBy)
}

func TestAdvance_DependentActivatesAfterDependencyCompletes(t *testing.T) {
	// Arrange
	f := newStoreFixture(t, technician("w1"))
	compound := f.add(t, task.Descriptor{Type: task.TaskTypeCompound, TotalTime: 5, ProductID: "amoxicillin"})
	fill := f.add(t, task.Descriptor{
		Type:             task.TaskTypeFillPrescription,
		PrescriptionID:   "rx1",
		DependencyTaskID: compound.ID(),
	})
	require.Equal(t, task.TaskStatusPendingDependent, fill.Status())
	assert.NotContains(t, f.store.GetUnassignedTasks(), fill)
	f.bind(t, compound, "w1")

	// Act
	require.NoError(t, f.store.Advance(f.ctx, 5))

	// Assert
	assert.Equal(t, task.TaskStatusPending, fill.Status())
	assert.Contains(t, f.store.GetUnassignedTasks(), fill)
}

func TestAddTask_MissingDependencyCountsAsSatisfied(t *testing.T) {
	f := newStoreFixture(t)

	tk := f.add(t, task.Descriptor{Type: task.TaskTypeFillPrescription, DependencyTaskID: "gone"})

	assert.Equal(t, task.TaskStatusPending, tk.Status())
}

func TestAdvance_RevertsDanglingAssignment(t *testing.T) {
	// Arrange
	f := newStoreFixture(t, pharmacist("w1"))
	tk := f.add(t, task.Descriptor{Type: task.TaskTypeConsultation})
	f.bind(t, tk, "w1")
	f.worker(t, "w1").ClearTask()

	// Act
	require.NoError(t, f.store.Advance(f.ctx, 1))

	// Assert
	assert.Equal(t, task.TaskStatusPending, tk.Status())
	assert.Empty(t, tk.AssignedTo())
	assert.Zero(t, tk.Progress())
}

func TestAdvance_InfeasibleTaskIsUnassigned(t *testing.T) {
	// Arrange
	f := newStoreFixture(t, pharmacist("w1"))
	tk := f.add(t, task.Descriptor{Type: task.TaskTypeFillPrescription, PrescriptionID: "rx1", TotalTime: 15})
	f.bind(t, tk, "w1")
	require.NoError(t, f.store.Advance(f.ctx, 4))
	f.feas.SetPrescription("rx1", false)

	// Act
	require.NoError(t, f.store.Advance(f.ctx, 4))

	// Assert
	assert.Equal(t, task.TaskStatusPending, tk.Status())
	assert.Empty(t, tk.AssignedTo())
	assert.True(t, f.worker(t, "w1").IsIdle())
	assert.InDelta(t, 4.0, tk.Progress(), 1e-9, "progress made before the stock ran out is kept")
}

func TestIsFeasible_CollaboratorFailureMeansInfeasible(t *testing.T) {
	tests := []struct {
		name  string
		setup func(m *helpers.MockFeasibility)
	}{
		{name: "error", setup: func(m *helpers.MockFeasibility) { m.Err = errors.New("inventory offline") }},
		{name: "panic", setup: func(m *helpers.MockFeasibility) { m.Panic = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newStoreFixture(t)
			tk := f.add(t, task.Descriptor{Type: task.TaskTypeCompound, ProductID: "amoxicillin"})
			tt.setup(f.feas)

			assert.False(t, f.store.IsFeasible(f.ctx, tk))
		})
	}
}

func TestIsFeasible_UngatedTypesSkipCollaborator(t *testing.T) {
	f := newStoreFixture(t)
	tk := f.add(t, task.Descriptor{Type: task.TaskTypeConsultation})
	f.feas.Err = errors.New("never asked")

	assert.True(t, f.store.IsFeasible(f.ctx, tk))
	assert.Zero(t, f.feas.Calls)
}

func TestFinalize_HookFailuresDoNotBlockOtherTasks(t *testing.T) {
	// Arrange
	f := newStoreFixture(t, technician("w1"), technician("w2"))
	f.hooks.Panics["mood_on_completion"] = true
	f.hooks.Errors["production_completed"] = errors.New("warehouse closed")
	a := f.add(t, task.Descriptor{Type: task.TaskTypeProduction, TotalTime: 1, ProductID: "p1"})
	b := f.add(t, task.Descriptor{Type: task.TaskTypeProduction, TotalTime: 1, ProductID: "p2"})
	f.bind(t, a, "w1")
	f.bind(t, b, "w2")

	// Act
	require.NoError(t, f.store.Advance(f.ctx, 1))

	// Assert
	assert.Zero(t, f.store.Count())
	assert.True(t, f.worker(t, "w1").IsIdle())
	assert.True(t, f.worker(t, "w2").IsIdle())
	assert.Len(t, f.hooks.Named("production_completed"), 2)
	assert.Len(t, f.completed(), 2)
}

func TestFinalize_CustomerJourney(t *testing.T) {
	// Arrange
	f := newStoreFixture(t, cashier("w1"), pharmacist("w2"))
	f.customers.Add(customer.NewCustomer("c1", "Ada", "rx1", time.Hour, f.clock.Now()))
	status := func() customer.Status {
		c, err := f.customers.Get(f.ctx, "c1")
		require.NoError(t, err)
		return c.Status()
	}
	run := func(d task.Descriptor, workerID string) {
		tk := f.add(t, d)
		f.bind(t, tk, workerID)
		require.NoError(t, f.store.Advance(f.ctx, tk.TotalTime()))
	}

	// Act + Assert - check-in
	run(task.Descriptor{Type: task.TaskTypeCustomerInteraction, CustomerID: "c1", PrescriptionID: "rx1"}, "w1")
	assert.Equal(t, customer.StatusAwaitingConsultation, status())

	// consultation
	run(task.Descriptor{Type: task.TaskTypeConsultation, CustomerID: "c1", PrescriptionID: "rx1"}, "w2")
	assert.Equal(t, customer.StatusAwaitingFill, status())

	// fill
	run(task.Descriptor{Type: task.TaskTypeFillPrescription, CustomerID: "c1", PrescriptionID: "rx1"}, "w2")
	assert.Equal(t, customer.StatusReadyForCheckout, status())
	assert.Len(t, f.hooks.Named("prescription_filled"), 1)

	// checkout
	run(task.Descriptor{Type: task.TaskTypeCustomerInteraction, CustomerID: "c1", PrescriptionID: "rx1"}, "w1")
	assert.Equal(t, customer.StatusDeparted, status())
	assert.Len(t, f.hooks.Named("payment_completed"), 1)
	assert.Len(t, f.hooks.Named("customer_departed"), 1)
	assert.False(t, f.store.HasOpenTaskForCustomer("c1"))
}

func TestForceCompleteTask_FinalizesAnyState(t *testing.T) {
	// Arrange
	f := newStoreFixture(t, pharmacist("w1"))
	pending := f.add(t, task.Descriptor{Type: task.TaskTypeConsultation})
	running := f.add(t, task.Descriptor{Type: task.TaskTypeConsultation})
	f.bind(t, running, "w1")

	// Act
	require.NoError(t, f.store.ForceCompleteTask(f.ctx, pending.ID()))
	require.NoError(t, f.store.ForceCompleteTask(f.ctx, running.ID()))

	// Assert
	assert.Zero(t, f.store.Count())
	assert.True(t, f.worker(t, "w1").IsIdle())
	done := f.completed()
	require.Len(t, done, 2)
	assert.True(t, done[0].Forced)
	assert.Equal(t, done[0].Task.TotalTime, done[0].Task.Progress)
}

func TestForceCompleteTask_UnknownTask(t *testing.T) {
	f := newStoreFixture(t)

	err := f.store.ForceCompleteTask(f.ctx, "missing")

	var notFound *task.ErrTaskNotFound
	assert.ErrorAs(t, err, &notFound)
}

func TestQueries_FilterInInsertionOrder(t *testing.T) {
	// Arrange
	f := newStoreFixture(t, pharmacist("w1"))
	a := f.add(t, task.Descriptor{Type: task.TaskTypeConsultation, CustomerID: "c1"})
	b := f.add(t, task.Descriptor{Type: task.TaskTypeCustomerInteraction, CustomerID: "c1"})
	c := f.add(t, task.Descriptor{Type: task.TaskTypeProduction, ProductID: "p1"})
	f.bind(t, a, "w1")

	// Assert
	assert.Equal(t, []*task.Task{b, c}, f.store.GetUnassignedTasks())
	assert.Equal(t, []*task.Task{a}, f.store.GetTasksForWorker("w1"))
	assert.Equal(t, []*task.Task{a, b}, f.store.GetTasksForCustomer("c1"))
	assert.Equal(t, []*task.Task{a}, f.store.GetTasksByStatus(task.TaskStatusInProgress))
	assert.True(t, f.store.HasOpenTaskForCustomer("c1"))
	assert.False(t, f.store.HasOpenTaskForCustomer("c2"))
}

func TestRestore_KeepsSequenceOrder(t *testing.T) {
	// Arrange
	f := newStoreFixture(t)
	a := f.add(t, task.Descriptor{Type: task.TaskTypeConsultation})
	b := f.add(t, task.Descriptor{Type: task.TaskTypeProduction, ProductID: "p1"})
	records := []task.Record{b.ToRecord(), a.ToRecord()}
	restored := newStoreFixture(t)

	// Act
	require.NoError(t, restored.store.Restore(records, 0))

	// Assert
	all := restored.store.All()
	require.Len(t, all, 2)
	assert.Equal(t, a.ID(), all[0].ID())
	assert.Equal(t, b.ID(), all[1].ID())
	assert.Equal(t, int64(3), restored.store.NextSequence())
}

func TestRestore_ForgetsPreviousCompletions(t *testing.T) {
	// Arrange
	f := newStoreFixture(t, technician("w1"))
	tk := f.add(t, task.Descriptor{Type: task.TaskTypeProduction, TotalTime: 3, ProductID: "ibuprofen"})
	f.bind(t, tk, "w1")
	require.NoError(t, f.store.Advance(f.ctx, 3))
	_, remembered := f.store.CompletedBy(tk.ID())
	require.True(t, remembered)

	// Act
	require.NoError(t, f.store.Restore(nil, 0))

	// Assert
	_, ok := f.store.CompletedBy(tk.ID())
	assert.False(t, ok, "completions of the replaced session do not carry over")
}

func TestCancelCustomerTasks_FreesWorkersWithoutHooks(t *testing.T) {
	// Arrange
	f := newStoreFixture(t, pharmacist("w1"))
	f.customers.Add(customer.NewCustomer("c1", "Ada", "rx1", time.Hour, f.clock.Now()))
	consult := f.add(t, task.Descriptor{Type: task.TaskTypeConsultation, CustomerID: "c1"})
	fill := f.add(t, task.Descriptor{Type: task.TaskTypeFillPrescription, CustomerID: "c1", PrescriptionID: "rx1"})
	other := f.add(t, task.Descriptor{Type: task.TaskTypeProduction, ProductID: "ibuprofen"})
	f.bind(t, consult, "w1")

	// Act
	cancelled := f.store.CancelCustomerTasks(f.ctx, "c1", "customer walked out")

	// Assert
	assert.Equal(t, 2, cancelled)
	assert.True(t, f.worker(t, "w1").IsIdle())
	for _, id := range []string{consult.ID(), fill.ID()} {
		_, err := f.store.GetTaskByID(id)
		var notFound *task.ErrTaskNotFound
		assert.ErrorAs(t, err, &notFound)
	}
	_, err := f.store.GetTaskByID(other.ID())
	assert.NoError(t, err)
	assert.Empty(t, f.completed(), "cancelled tasks never complete")
	assert.Empty(t, f.hooks.Named("mood_on_completion"))
	var cancelEvents int
	for _, e := range f.events {
		if ev, ok := e.(task.TaskCancelledEvent); ok {
			cancelEvents++
			assert.Equal(t, "customer walked out", ev.Reason)
		}
	}
	assert.Equal(t, 2, cancelEvents)
	assert.Zero(t, f.store.CancelCustomerTasks(f.ctx, "c1", "again"))
}
