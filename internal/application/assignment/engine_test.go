package assignment_test

import (
	"context"
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

type recordingDebouncer struct {
	keys []string
	fns  []func(ctx context.Context)
}

func (d *recordingDebouncer) Debounce(key string, delay time.Duration, fn func(ctx context.Context)) {
	d.keys = append(d.keys, key)
	d.fns = append(d.fns, fn)
}

type engineFixture struct {
	ctx       context.Context
	clock     *shared.MockClock
	roster    *pharmacy.Roster
	customers *pharmacy.CustomerBook
	feas      *helpers.MockFeasibility
	store     *tasks.Store
	binder    *assignment.Binder
	engine    *assignment.Engine
	debouncer *recordingDebouncer
}

func newEngineFixture(t *testing.T, workers ...*staff.Worker) *engineFixture {
	t.Helper()
	clock := shared.NewMockClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	f := &engineFixture{
		ctx:       context.Background(),
		clock:     clock,
		roster:    pharmacy.NewRoster(workers...),
		customers: pharmacy.NewCustomerBook(nil, time.Hour, clock),
		feas:      helpers.NewMockFeasibility(),
		debouncer: &recordingDebouncer{},
	}
	hooks := helpers.NewRecordingHooks()
	hooks.Customers = f.customers
	f.store = tasks.NewStore(tasks.Dependencies{
		Workers:     f.roster,
		Customers:   f.customers,
		Feasibility: f.feas,
		Hooks:       hooks,
		Clock:       clock,
	})
	f.binder = assignment.NewBinder(f.roster, f.store.Events(), nil)
	f.engine = assignment.NewEngine(f.store, f.binder, f.roster, f.customers, f.debouncer, assignment.DefaultConfig(), nil)
	f.store.SetBinder(f.binder)
	return f
}

func (f *engineFixture) add(t *testing.T, d task.Descriptor) *task.Task {
	t.Helper()
	tk, err := f.store.AddTask(f.ctx, d)
	require.NoError(t, err)
	return tk
}

func (f *engineFixture) customer(id string, status customer.Status) {
	c := customer.NewCustomer(id, "Customer "+id, "rx-"+id, time.Hour, f.clock.Now())
	c.TransitionTo(status, f.clock.Now())
	f.customers.Add(c)
}

func worker(id, role string, skills map[string]float64) *staff.Worker {
	return staff.NewWorker(id, "Worker "+id, role, skills, 70)
}

func TestAutoAssign_CheckoutBeforeCheckIn(t *testing.T) {
	// Arrange
	f := newEngineFixture(t, worker("w1", "cashier", nil))
	f.customer("arriving", customer.StatusAwaitingCheckIn)
	f.customer("leaving", customer.StatusReadyForCheckout)
	checkIn := f.add(t, task.Descriptor{Type: task.TaskTypeCustomerInteraction, CustomerID: "arriving"})
	checkout := f.add(t, task.Descriptor{Type: task.TaskTypeCustomerInteraction, CustomerID: "leaving"})

	// Act
	assigned, err := f.engine.AutoAssign(f.ctx)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, assigned)
	assert.Equal(t, "w1", checkout.AssignedTo())
	assert.Equal(t, task.TaskStatusPending, checkIn.Status())
	assert.Equal(t, 1, f.engine.LastPass().CheckoutAssigned)
}

func TestAutoAssign_ConsultationBeforeFill(t *testing.T) {
	// Arrange
	f := newEngineFixture(t, worker("w1", "pharmacist", nil))
	fill := f.add(t, task.Descriptor{Type: task.TaskTypeFillPrescription, PrescriptionID: "rx1"})
	consult := f.add(t, task.Descriptor{Type: task.TaskTypeConsultation})

	// Act
	_, err := f.engine.AutoAssign(f.ctx)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "w1", consult.AssignedTo())
	assert.True(t, fill.IsAssignable())
}

func TestAutoAssign_PriorityHintBreaksRankTie(t *testing.T) {
	f := newEngineFixture(t, worker("w1", "pharmacist", nil))
	normal := f.add(t, task.Descriptor{Type: task.TaskTypeConsultation})
	urgent := f.add(t, task.Descriptor{Type: task.TaskTypeConsultation, Priority: task.PriorityUrgent})

	_, err := f.engine.AutoAssign(f.ctx)

	require.NoError(t, err)
	assert.Equal(t, "w1", urgent.AssignedTo())
	assert.False(t, normal.IsAssigned())
}

func TestAutoAssign_HigherSkillWins(t *testing.T) {
	f := newEngineFixture(t,
		worker("w1", "pharmacist", map[string]float64{staff.SkillPharmacology: 40}),
		worker("w2", "pharmacist", map[string]float64{staff.SkillPharmacology: 90}),
	)
	consult := f.add(t, task.Descriptor{Type: task.TaskTypeConsultation})

	_, err := f.engine.AutoAssign(f.ctx)

	require.NoError(t, err)
	assert.Equal(t, "w2", consult.AssignedTo())
}

func TestAutoAssign_EqualScoresGoToLowerWorkerID(t *testing.T) {
	f := newEngineFixture(t, worker("w2", "pharmacist", nil), worker("w1", "pharmacist", nil))
	consult := f.add(t, task.Descriptor{Type: task.TaskTypeConsultation})

	_, err := f.engine.AutoAssign(f.ctx)

	require.NoError(t, err)
	assert.Equal(t, "w1", consult.AssignedTo())
}

func TestAutoAssign_RoleFallback(t *testing.T) {
	// Arrange - no pharmacist on shift
	f := newEngineFixture(t, worker("w1", "technician", nil))
	consult := f.add(t, task.Descriptor{Type: task.TaskTypeConsultation})
	fill := f.add(t, task.Descriptor{Type: task.TaskTypeFillPrescription, PrescriptionID: "rx1"})

	// Act
	_, err := f.engine.AutoAssign(f.ctx)

	// Assert - consultations need a pharmacist, fills accept a technician
	require.NoError(t, err)
	assert.False(t, consult.IsAssigned())
	assert.Equal(t, "w1", fill.AssignedTo())
}

func TestAutoAssign_UnknownRoleExcluded(t *testing.T) {
	f := newEngineFixture(t, worker("w1", "janitor", nil))
	f.add(t, task.Descriptor{Type: task.TaskTypeProduction, ProductID: "p1"})

	assigned, err := f.engine.AutoAssign(f.ctx)

	require.NoError(t, err)
	assert.Zero(t, assigned)
	assert.Equal(t, 1, f.engine.LastPass().ExcludedWorkers)
}

func TestAutoAssign_SkipsInfeasibleTasks(t *testing.T) {
	f := newEngineFixture(t, worker("w1", "technician", nil))
	f.feas.SetProduct("amoxicillin", false)
	compound := f.add(t, task.Descriptor{Type: task.TaskTypeCompound, ProductID: "amoxicillin"})

	assigned, err := f.engine.AutoAssign(f.ctx)

	require.NoError(t, err)
	assert.Zero(t, assigned)
	assert.True(t, compound.IsAssignable())
}

func TestAutoAssign_ContinuityFavoursDependencyWorker(t *testing.T) {
	// Arrange - w2 compounds, then should also fill despite lower accuracy
	f := newEngineFixture(t,
		worker("w1", "technician", map[string]float64{staff.SkillAccuracy: 60}),
		worker("w2", "technician", map[string]float64{staff.SkillAccuracy: 50}),
	)
	compound := f.add(t, task.Descriptor{Type: task.TaskTypeCompound, ProductID: "amoxicillin", TotalTime: 1})
	fill := f.add(t, task.Descriptor{Type: task.TaskTypeFillPrescription, PrescriptionID: "rx1", DependencyTaskID: compound.ID()})
	require.NoError(t, f.engine.Assign(f.ctx, compound.ID(), "w2"))
	require.NoError(t, f.store.Advance(f.ctx, 1))
	require.Equal(t, task.TaskStatusPending, fill.Status())

	// Act
	_, err := f.engine.AutoAssign(f.ctx)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "w2", fill.AssignedTo())
}

func TestAutoAssign_RequestsFollowUpPass(t *testing.T) {
	f := newEngineFixture(t, worker("w1", "pharmacist", nil))
	f.add(t, task.Descriptor{Type: task.TaskTypeConsultation})

	_, err := f.engine.AutoAssign(f.ctx)

	require.NoError(t, err)
	require.NotEmpty(t, f.debouncer.keys)
	assert.Equal(t, "auto-assign", f.debouncer.keys[len(f.debouncer.keys)-1])
}

func TestAssign_MovesWorkerBetweenTasks(t *testing.T) {
	// Arrange
	f := newEngineFixture(t, worker("w1", "pharmacist", nil))
	first := f.add(t, task.Descriptor{Type: task.TaskTypeConsultation})
	second := f.add(t, task.Descriptor{Type: task.TaskTypeConsultation})
	require.NoError(t, f.engine.Assign(f.ctx, first.ID(), "w1"))

	// Act
	require.NoError(t, f.engine.Assign(f.ctx, second.ID(), "w1"))

	// Assert
	w, err := f.roster.Get(f.ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, second.ID(), w.CurrentTaskID())
	assert.Equal(t, "w1", second.AssignedTo())
	assert.Equal(t, task.TaskStatusPending, first.Status())
	assert.Empty(t, first.AssignedTo())
}

func TestAssign_RejectsBlockedDependent(t *testing.T) {
	f := newEngineFixture(t, worker("w1", "technician", nil))
	compound := f.add(t, task.Descriptor{Type: task.TaskTypeCompound, ProductID: "p1"})
	fill := f.add(t, task.Descriptor{Type: task.TaskTypeFillPrescription, DependencyTaskID: compound.ID()})

	err := f.engine.Assign(f.ctx, fill.ID(), "w1")

	var notMet *task.ErrDependencyNotMet
	require.ErrorAs(t, err, &notMet)
	assert.Equal(t, compound.ID(), notMet.DependencyID)
}

func TestUnassign_ClearsBothSides(t *testing.T) {
	f := newEngineFixture(t, worker("w1", "pharmacist", nil))
	consult := f.add(t, task.Descriptor{Type: task.TaskTypeConsultation})
	require.NoError(t, f.engine.Assign(f.ctx, consult.ID(), "w1"))

	require.NoError(t, f.engine.Unassign(f.ctx, consult.ID()))

	w, err := f.roster.Get(f.ctx, "w1")
	require.NoError(t, err)
	assert.True(t, w.IsIdle())
	assert.True(t, consult.IsAssignable())
}
