package pharmacy

import (
	"context"
	"fmt"

	"github.com/andrescamacho/pharmasim-go/internal/application/common"
	"github.com/andrescamacho/pharmasim-go/internal/domain/customer"
	"github.com/andrescamacho/pharmasim-go/internal/domain/task"
)

// Morale change applied when a worker finishes a task
var moraleDelta = map[task.TaskType]float64{
	task.TaskTypeCustomerInteraction: 0.5,
	task.TaskTypeConsultation:        1.0,
	task.TaskTypeFillPrescription:    0.5,
	task.TaskTypeCompound:            -1.0,
	task.TaskTypeProduction:          -1.5,
}

// Hooks applies task completion side effects to the in-memory pharmacy
type Hooks struct {
	roster    *Roster
	customers *CustomerBook
	inventory *Inventory
	ledger    *Ledger
	logger    common.Logger
}

// NewHooks wires the completion hooks
func NewHooks(roster *Roster, customers *CustomerBook, inventory *Inventory, ledger *Ledger, logger common.Logger) *Hooks {
	return &Hooks{
		roster:    roster,
		customers: customers,
		inventory: inventory,
		ledger:    ledger,
		logger:    common.OrNoOp(logger),
	}
}

func (h *Hooks) MoodOnCompletion(ctx context.Context, workerID string, taskType task.TaskType) error {
	w, err := h.roster.Get(ctx, workerID)
	if err != nil {
		return err
	}
	w.AdjustMorale(moraleDelta[taskType])
	return h.roster.Save(ctx, w)
}

// ProductionCompleted shelves a batch for compound and production tasks
func (h *Hooks) ProductionCompleted(ctx context.Context, completed task.Record) error {
	switch task.TaskType(completed.Type) {
	case task.TaskTypeCompound, task.TaskTypeProduction:
	default:
		return nil
	}
	if completed.ProductID == "" {
		return fmt.Errorf("task %s has no product", completed.ID)
	}
	if err := h.inventory.Produce(completed.ProductID); err != nil {
		return fmt.Errorf("failed to produce %s: %w", completed.ProductID, err)
	}
	h.logger.Log(common.LevelDebug, "Batch produced", map[string]interface{}{
		"product_id": completed.ProductID,
		"stock":      h.inventory.Stock(completed.ProductID),
	})
	return nil
}

// PrescriptionFilled dispenses stock and moves the customer to checkout
func (h *Hooks) PrescriptionFilled(ctx context.Context, prescriptionID, customerID string) error {
	if prescriptionID != "" {
		if _, err := h.inventory.Dispense(prescriptionID); err != nil {
			return err
		}
	}
	if customerID == "" {
		return nil
	}
	return h.customers.SetStatus(ctx, customerID, customer.StatusReadyForCheckout)
}

// PaymentCompleted books the prescription value as revenue
func (h *Hooks) PaymentCompleted(ctx context.Context, customerID, prescriptionID string) error {
	amount := 0.0
	if prescriptionID != "" {
		value, err := h.inventory.PrescriptionValue(prescriptionID)
		if err != nil {
			return err
		}
		amount = value
	}
	h.ledger.RecordPayment(amount)
	h.ledger.AdjustReputation(1)
	return nil
}

// CustomerDeparted closes the customer's visit
func (h *Hooks) CustomerDeparted(ctx context.Context, customerID string) error {
	if err := h.customers.SetStatus(ctx, customerID, customer.StatusDeparted); err != nil {
		return err
	}
	h.ledger.RecordDeparture()
	return nil
}
