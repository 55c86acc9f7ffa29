package pharmacy_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/pharmasim-go/internal/adapters/pharmacy"
	"github.com/andrescamacho/pharmasim-go/internal/domain/customer"
	"github.com/andrescamacho/pharmasim-go/internal/domain/shared"
	"github.com/andrescamacho/pharmasim-go/internal/domain/task"
)

type hooksFixture struct {
	ctx   context.Context
	clock *shared.MockClock
	world *pharmacy.World
}

func newHooksFixture(t *testing.T) *hooksFixture {
	t.Helper()
	scenario, err := pharmacy.DefaultScenario()
	require.NoError(t, err)
	clock := shared.NewMockClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	return &hooksFixture{ctx: context.Background(), clock: clock, world: scenario.Build(clock, nil)}
}

func TestHooks_MoodOnCompletion(t *testing.T) {
	f := newHooksFixture(t)

	require.NoError(t, f.world.Hooks.MoodOnCompletion(f.ctx, "w-01", task.TaskTypeConsultation))
	require.NoError(t, f.world.Hooks.MoodOnCompletion(f.ctx, "w-02", task.TaskTypeProduction))

	pharmacist, _ := f.world.Roster.Get(f.ctx, "w-01")
	tech, _ := f.world.Roster.Get(f.ctx, "w-02")
	assert.Equal(t, 76.0, pharmacist.Morale())
	assert.Equal(t, 68.5, tech.Morale())
	assert.Error(t, f.world.Hooks.MoodOnCompletion(f.ctx, "ghost", task.TaskTypeProduction))
}

func TestHooks_ProductionCompletedShelvesBatch(t *testing.T) {
	f := newHooksFixture(t)

	err := f.world.Hooks.ProductionCompleted(f.ctx, task.Record{ID: "t1", Type: string(task.TaskTypeCompound), ProductID: "hydrocortisone"})

	require.NoError(t, err)
	assert.Equal(t, 4, f.world.Inventory.Stock("hydrocortisone"))
	assert.Equal(t, 6, f.world.Inventory.MaterialLevel("cream-base"))
}

func TestHooks_ProductionCompletedIgnoresOtherTypes(t *testing.T) {
	f := newHooksFixture(t)

	err := f.world.Hooks.ProductionCompleted(f.ctx, task.Record{ID: "t1", Type: string(task.TaskTypeConsultation)})

	assert.NoError(t, err)
	assert.Error(t, f.world.Hooks.ProductionCompleted(f.ctx, task.Record{ID: "t2", Type: string(task.TaskTypeProduction)}))
}

func TestHooks_VisitLifecycle(t *testing.T) {
	// Arrange
	f := newHooksFixture(t)
	arrival, err := f.world.Customers.Admit(f.ctx, time.Date(2026, 3, 2, 8, 5, 0, 0, time.UTC))
	require.NoError(t, err)
	value, err := f.world.Inventory.PrescriptionValue(arrival.PrescriptionID)
	require.NoError(t, err)

	// Act
	require.NoError(t, f.world.Hooks.PrescriptionFilled(f.ctx, arrival.PrescriptionID, arrival.CustomerID))
	c, _ := f.world.Customers.Get(f.ctx, arrival.CustomerID)
	afterFill := c.Status()
	require.NoError(t, f.world.Hooks.PaymentCompleted(f.ctx, arrival.CustomerID, arrival.PrescriptionID))
	require.NoError(t, f.world.Hooks.CustomerDeparted(f.ctx, arrival.CustomerID))

	// Assert
	assert.Equal(t, customer.StatusReadyForCheckout, afterFill)
	assert.Equal(t, customer.StatusDeparted, c.Status())
	assert.Equal(t, value, f.world.Ledger.Revenue())
	assert.Equal(t, 1, f.world.Ledger.Payments())
	assert.Equal(t, 1, f.world.Ledger.Departures())
	assert.Equal(t, 51, f.world.Ledger.Reputation())
}

func TestHooks_PrescriptionFilledFailsWithoutStock(t *testing.T) {
	f := newHooksFixture(t)
	f.world.Inventory.AddPrescription(pharmacy.Prescription{ID: "rx-big", CustomerID: "c", ProductID: "hydrocortisone", Quantity: 50})

	err := f.world.Hooks.PrescriptionFilled(f.ctx, "rx-big", "")

	var short *pharmacy.ErrInsufficientStock
	assert.ErrorAs(t, err, &short)
}
