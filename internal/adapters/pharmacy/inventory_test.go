package pharmacy_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/pharmasim-go/internal/adapters/pharmacy"
)

func newInventory() (*pharmacy.Inventory, *pharmacy.Ledger) {
	ledger := pharmacy.NewLedger(50)
	inv := pharmacy.NewInventory(
		[]pharmacy.Product{
			{ID: "cream", Name: "Cream", Price: 10, Stock: 1, Target: 3, BatchSize: 2, Recipe: map[string]int{"base": 2}},
			{ID: "pills", Name: "Pills", Price: 4, Stock: 5, Target: 5, BatchSize: 5, Recipe: map[string]int{"powder": 1}},
		},
		[]pharmacy.Material{
			{Name: "base", Quantity: 3, ReorderLevel: 2, ReorderQty: 10, UnitCost: 0.5},
			{Name: "powder", Quantity: 10, ReorderLevel: 2, ReorderQty: 10, UnitCost: 1},
		},
		ledger,
	)
	return inv, ledger
}

func TestInventory_PrescribeRotatesCatalog(t *testing.T) {
	inv, _ := newInventory()
	ctx := context.Background()

	first, err := inv.Prescribe(ctx, "c1")
	require.NoError(t, err)
	second, err := inv.Prescribe(ctx, "c2")
	require.NoError(t, err)

	assert.Equal(t, "rx-0001", first)
	assert.Equal(t, "rx-0002", second)
	value, err := inv.PrescriptionValue(first)
	require.NoError(t, err)
	assert.Equal(t, 10.0, value, "first product alphabetically, quantity one")
	value, err = inv.PrescriptionValue(second)
	require.NoError(t, err)
	assert.Equal(t, 8.0, value, "second product, quantity two")
}

func TestInventory_FeasibilityAndDispense(t *testing.T) {
	// Arrange
	inv, _ := newInventory()
	ctx := context.Background()
	inv.AddPrescription(pharmacy.Prescription{ID: "rx-a", CustomerID: "c1", ProductID: "cream", Quantity: 2})

	// Act + Assert
	ok, err := inv.CanFillPrescription(ctx, "rx-a")
	require.NoError(t, err)
	assert.False(t, ok)

	productID, needed, err := inv.CompoundingNeeded(ctx, "rx-a")
	require.NoError(t, err)
	assert.True(t, needed)
	assert.Equal(t, "cream", productID)

	_, err = inv.Dispense("rx-a")
	var short *pharmacy.ErrInsufficientStock
	require.ErrorAs(t, err, &short)

	require.NoError(t, inv.Produce("cream"))
	assert.Equal(t, 3, inv.Stock("cream"))
	assert.Equal(t, 1, inv.MaterialLevel("base"))

	ok, err = inv.CanFillPrescription(ctx, "rx-a")
	require.NoError(t, err)
	assert.True(t, ok)

	value, err := inv.Dispense("rx-a")
	require.NoError(t, err)
	assert.Equal(t, 20.0, value)
	assert.Equal(t, 1, inv.Stock("cream"))

	again, err := inv.Dispense("rx-a")
	require.NoError(t, err)
	assert.Zero(t, again, "a filled prescription dispenses once")
	assert.Equal(t, 1, inv.Stock("cream"))
}

func TestInventory_CanCompoundChecksMaterials(t *testing.T) {
	inv, _ := newInventory()
	ctx := context.Background()

	ok, err := inv.CanCompound(ctx, "cream")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, inv.Produce("cream"))
	ok, err = inv.CanCompound(ctx, "cream")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Error(t, inv.Produce("cream"))

	_, err = inv.CanCompound(ctx, "nope")
	var missing *pharmacy.ErrProductNotFound
	assert.ErrorAs(t, err, &missing)
}

func TestInventory_UnknownPrescription(t *testing.T) {
	inv, _ := newInventory()

	_, err := inv.CanFillPrescription(context.Background(), "rx-missing")

	var missing *pharmacy.ErrPrescriptionNotFound
	assert.ErrorAs(t, err, &missing)
}

func TestInventory_ProductionNeededAndAutoOrder(t *testing.T) {
	// Arrange
	inv, ledger := newInventory()
	ctx := context.Background()

	// Act
	needed, err := inv.ProductionNeeded(ctx)
	require.NoError(t, err)
	require.NoError(t, inv.Produce("cream"))
	ordered, err := inv.AutoOrder(ctx)
	require.NoError(t, err)

	// Assert
	assert.Equal(t, []string{"cream"}, needed)
	assert.Equal(t, 1, ordered)
	assert.Equal(t, 11, inv.MaterialLevel("base"))
	summary := ledger.Summary()
	assert.Equal(t, 5.0, summary["expenses"])
}

func TestInventory_DailySummaryIncludesLedger(t *testing.T) {
	inv, ledger := newInventory()
	ledger.RecordPayment(12)

	summary := inv.DailySummary(context.Background())

	assert.Equal(t, map[string]int{"cream": 1, "pills": 5}, summary["stock"])
	assert.Equal(t, 12.0, summary["revenue"])
}
