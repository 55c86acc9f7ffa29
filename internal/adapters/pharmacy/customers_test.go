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
	"github.com/andrescamacho/pharmasim-go/internal/domain/staff"
)

func TestCustomerBook_AdmitUsesWallClock(t *testing.T) {
	// Arrange
	wall := shared.NewMockClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	book := pharmacy.NewCustomerBook(nil, 0, wall)
	simAt := time.Date(2026, 1, 5, 8, 1, 0, 0, time.UTC)

	// Act
	arrival, err := book.Admit(context.Background(), simAt)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "cust-0001", arrival.CustomerID)
	assert.Empty(t, arrival.PrescriptionID)
	c, err := book.Get(context.Background(), arrival.CustomerID)
	require.NoError(t, err)
	assert.Equal(t, wall.Now(), c.StatusSince())
	assert.Equal(t, pharmacy.DefaultPatience, c.Patience())
	assert.Equal(t, simAt, book.LastArrival())
	assert.Equal(t, 1, book.Waiting())
}

func TestCustomerBook_SetStatusRestartsTimer(t *testing.T) {
	wall := shared.NewMockClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	book := pharmacy.NewCustomerBook(nil, 0, wall)
	arrival, err := book.Admit(context.Background(), time.Time{})
	require.NoError(t, err)
	wall.Advance(7 * time.Minute)

	require.NoError(t, book.SetStatus(context.Background(), arrival.CustomerID, customer.StatusDeparted))

	c, _ := book.Get(context.Background(), arrival.CustomerID)
	assert.Equal(t, wall.Now(), c.StatusSince())
	assert.Zero(t, book.Waiting())

	var missing *customer.ErrCustomerNotFound
	assert.ErrorAs(t, book.SetStatus(context.Background(), "ghost", customer.StatusDeparted), &missing)
}

func TestCustomerBook_DetectAndFixStuckOnlyExtendsServedCustomers(t *testing.T) {
	// Arrange
	book := pharmacy.NewCustomerBook(nil, 10*time.Minute, nil)
	book.Add(customer.NewCustomer("c1", "Ada", "", 10*time.Minute, time.Now()))
	book.Add(customer.NewCustomer("c2", "Bruno", "", 10*time.Minute, time.Now()))

	// Act
	fixed, err := book.DetectAndFixStuck(context.Background(), []customer.StuckCustomer{
		{CustomerID: "c1", HasOpenTask: true},
		{CustomerID: "c2", HasOpenTask: false},
		{CustomerID: "ghost", HasOpenTask: true},
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, fixed)
	c1, _ := book.Get(context.Background(), "c1")
	c2, _ := book.Get(context.Background(), "c2")
	assert.Equal(t, 10*time.Minute+pharmacy.DefaultPatienceExtend, c1.Patience())
	assert.Equal(t, 10*time.Minute, c2.Patience())
	assert.Equal(t, 1, book.Recovered())
}

func TestRoster_ListSortedAndMissingWorker(t *testing.T) {
	roster := pharmacy.NewRoster(
		staff.NewWorker("w-2", "B", "tech", nil, 50),
		staff.NewWorker("w-1", "A", "rph", nil, 50),
	)

	workers, err := roster.List(context.Background())
	require.NoError(t, err)
	require.Len(t, workers, 2)
	assert.Equal(t, "w-1", workers[0].ID())

	_, err = roster.Get(context.Background(), "w-9")
	var missing *staff.ErrWorkerNotFound
	assert.ErrorAs(t, err, &missing)

	assert.True(t, roster.Remove("w-2"))
	assert.Equal(t, 1, roster.Len())
}

func TestCustomerBook_ImpatientCustomersWalkOutWithPenalty(t *testing.T) {
	// Arrange
	ctx := context.Background()
	wall := shared.NewMockClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	scenario, err := pharmacy.DefaultScenario()
	require.NoError(t, err)
	world := scenario.Build(wall, nil)
	book := world.Customers
	book.Add(customer.NewCustomer("c1", "Ada", "", 10*time.Minute, wall.Now()))
	book.Add(customer.NewCustomer("c2", "Bruno", "", 10*time.Minute, wall.Now()))
	_, err = book.DetectAndFixStuck(ctx, []customer.StuckCustomer{{CustomerID: "c2", HasOpenTask: true}})
	require.NoError(t, err)
	startReputation := world.Ledger.Reputation()
	wall.Advance(15 * time.Minute)

	// Act
	impatient, err := book.Impatient(ctx)
	require.NoError(t, err)
	for _, id := range impatient {
		require.NoError(t, book.WalkOut(ctx, id))
	}

	// Assert
	assert.Equal(t, []string{"c1"}, impatient, "the extended customer is still willing to wait")
	c1, _ := book.Get(ctx, "c1")
	assert.Equal(t, customer.StatusDeparted, c1.Status())
	assert.Equal(t, 1, world.Ledger.Walkouts())
	assert.Equal(t, startReputation-pharmacy.WalkoutPenalty, world.Ledger.Reputation())

	require.NoError(t, book.WalkOut(ctx, "c1"))
	assert.Equal(t, 1, world.Ledger.Walkouts(), "a departed customer cannot walk out twice")
}
