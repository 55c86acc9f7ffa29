package simulation_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/pharmasim-go/internal/adapters/pharmacy"
	"github.com/andrescamacho/pharmasim-go/internal/application/simulation"
	"github.com/andrescamacho/pharmasim-go/internal/domain/customer"
	"github.com/andrescamacho/pharmasim-go/internal/domain/task"
)

func newProducer(f *simFixture, cfg simulation.ProducerConfig) *simulation.ArrivalProducer {
	p := simulation.NewArrivalProducer(f.sim, f.world.Customers, f.world.Inventory, f.world.Customers, f.world.Customers, cfg, nil)
	p.Attach(f.ctx)
	return p
}

func TestArrivalProducer_RespectsMinimumGap(t *testing.T) {
	// Arrange
	f := newSimFixture(t, nil)
	p := newProducer(f, simulation.ProducerConfig{MinArrivalGap: 4 * time.Minute, ArrivalChance: 1, Seed: 1})

	// Act - twelve simulated minutes
	f.tick(2, 100*time.Millisecond)

	// Assert
	assert.Equal(t, 3, p.Arrivals())
	customers, err := f.world.Customers.List(f.ctx)
	require.NoError(t, err)
	assert.Len(t, customers, 3)
}

func TestArrivalProducer_QueuesProductionHourlyWithoutDuplicates(t *testing.T) {
	// Arrange
	f := newSimFixture(t, nil)
	newProducer(f, simulation.ProducerConfig{ArrivalChance: 1e-9, Seed: 1})

	// Act - two hour boundaries
	f.sim.Clock().Advance(f.ctx, 125)

	// Assert
	perProduct := map[string]int{}
	for _, tk := range f.sim.Store().All() {
		if tk.Type() == task.TaskTypeProduction {
			perProduct[tk.ProductID()]++
		}
	}
	assert.Equal(t, 1, perProduct["amoxicillin"])
	assert.Equal(t, 1, perProduct["hydrocortisone"])
	assert.Zero(t, perProduct["ibuprofen"], "stock at target needs no production")
}

func TestArrivalProducer_DetachStopsArrivals(t *testing.T) {
	f := newSimFixture(t, nil)
	p := newProducer(f, simulation.ProducerConfig{ArrivalChance: 1, Seed: 1})
	p.Detach()

	f.tick(5, 100*time.Millisecond)

	assert.Zero(t, p.Arrivals())
}

func TestArrivalProducer_ServesCustomersEndToEnd(t *testing.T) {
	// Arrange
	f := newSimFixture(t, nil)
	world := f.world
	p := newProducer(f, simulation.ProducerConfig{Seed: 7})

	// Act - a full business day at six simulated minutes per tick
	f.tick(150, 100*time.Millisecond)

	// Assert
	assert.Greater(t, p.Arrivals(), 0)
	assert.Greater(t, p.Served(), 0)
	assert.Greater(t, world.Ledger.Payments(), 0)
	assert.Greater(t, world.Ledger.Revenue(), 0.0)
	assert.Equal(t, world.Ledger.Departures(), p.Served())
}

func TestArrivalProducer_ExtendedPatienceOutlastsUnextended(t *testing.T) {
	// Arrange
	f := newSimFixture(t, nil)
	p := newProducer(f, simulation.ProducerConfig{ArrivalChance: 1e-9, Seed: 1})
	book := f.world.Customers
	hasty, err := book.Admit(f.ctx, f.sim.Clock().Now())
	require.NoError(t, err)
	patient, err := book.Admit(f.ctx, f.sim.Clock().Now())
	require.NoError(t, err)
	for _, id := range []string{hasty.CustomerID, patient.CustomerID} {
		_, err := f.sim.AddTask(f.ctx, task.Descriptor{Type: task.TaskTypeConsultation, CustomerID: id})
		require.NoError(t, err)
	}
	_, err = book.DetectAndFixStuck(f.ctx, []customer.StuckCustomer{{CustomerID: patient.CustomerID, HasOpenTask: true}})
	require.NoError(t, err)
	hastyCustomer, err := book.Get(f.ctx, hasty.CustomerID)
	require.NoError(t, err)
	reputation := f.world.Ledger.Reputation()

	// Act - wait just past the unextended patience
	f.wall.Advance(hastyCustomer.Patience() + time.Minute)
	f.sim.Clock().Advance(f.ctx, 1)

	// Assert
	assert.Equal(t, 1, p.Walkouts())
	assert.Empty(t, f.sim.Store().GetTasksForCustomer(hasty.CustomerID), "open tasks of a departed customer are cancelled")
	assert.Len(t, f.sim.Store().GetTasksForCustomer(patient.CustomerID), 1)
	left, _ := book.Get(f.ctx, hasty.CustomerID)
	assert.Equal(t, customer.StatusDeparted, left.Status())
	stayed, _ := book.Get(f.ctx, patient.CustomerID)
	assert.True(t, stayed.Status().IsWaiting())
	assert.Equal(t, reputation-pharmacy.WalkoutPenalty, f.world.Ledger.Reputation())

	// Act - the extension runs out too
	f.wall.Advance(pharmacy.DefaultPatienceExtend)
	f.sim.Clock().Advance(f.ctx, 1)

	// Assert
	assert.Equal(t, 2, p.Walkouts())
	assert.Empty(t, f.sim.Store().GetTasksForCustomer(patient.CustomerID))
}

func TestArrivalProducer_CustomerBeingServedDoesNotWalkOut(t *testing.T) {
	// Arrange
	f := newSimFixture(t, nil)
	p := newProducer(f, simulation.ProducerConfig{ArrivalChance: 1e-9, Seed: 1})
	arrival, err := f.world.Customers.Admit(f.ctx, f.sim.Clock().Now())
	require.NoError(t, err)
	tk, err := f.sim.AddTask(f.ctx, task.Descriptor{Type: task.TaskTypeConsultation, CustomerID: arrival.CustomerID, TotalTime: 600})
	require.NoError(t, err)
	f.tick(3, 100*time.Millisecond)
	require.True(t, tk.IsInProgress())

	// Act
	f.wall.Advance(2 * time.Hour)
	f.sim.Clock().Advance(f.ctx, 1)

	// Assert
	assert.Zero(t, p.Walkouts())
	assert.True(t, tk.IsInProgress())
}
