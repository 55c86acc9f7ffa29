package helpers

import (
	"context"
	"sync"

	"github.com/andrescamacho/pharmasim-go/internal/domain/customer"
	"github.com/andrescamacho/pharmasim-go/internal/domain/task"
)

// HookCall records one completion hook invocation
type HookCall struct {
	Hook           string
	WorkerID       string
	TaskType       task.TaskType
	CustomerID     string
	PrescriptionID string
	TaskID         string
}

// RecordingHooks records every completion hook call. Failing hooks are
// configured through Errors and Panics keyed by hook name.
//
// When Customers is set, prescription_filled moves the customer to
// READY_FOR_CHECKOUT and customer_departed to DEPARTED.
type RecordingHooks struct {
	mu        sync.Mutex
	Calls     []HookCall
	Errors    map[string]error
	Panics    map[string]bool
	Customers customer.Directory
}

// NewRecordingHooks creates hooks that succeed
func NewRecordingHooks() *RecordingHooks {
	return &RecordingHooks{
		Errors: make(map[string]error),
		Panics: make(map[string]bool),
	}
}

// Named returns the recorded calls of one hook
func (h *RecordingHooks) Named(hook string) []HookCall {
	h.mu.Lock()
	defer h.mu.Unlock()
	var result []HookCall
	for _, c := range h.Calls {
		if c.Hook == hook {
			result = append(result, c)
		}
	}
	return result
}

func (h *RecordingHooks) MoodOnCompletion(ctx context.Context, workerID string, taskType task.TaskType) error {
	return h.record(HookCall{Hook: "mood_on_completion", WorkerID: workerID, TaskType: taskType})
}

func (h *RecordingHooks) ProductionCompleted(ctx context.Context, completed task.Record) error {
	return h.record(HookCall{
		Hook:           "production_completed",
		TaskID:         completed.ID,
		TaskType:       task.TaskType(completed.Type),
		CustomerID:     completed.CustomerID,
		PrescriptionID: completed.PrescriptionID,
	})
}

func (h *RecordingHooks) PrescriptionFilled(ctx context.Context, prescriptionID, customerID string) error {
	if err := h.record(HookCall{Hook: "prescription_filled", PrescriptionID: prescriptionID, CustomerID: customerID}); err != nil {
		return err
	}
	if h.Customers != nil && customerID != "" {
		return h.Customers.SetStatus(ctx, customerID, customer.StatusReadyForCheckout)
	}
	return nil
}

func (h *RecordingHooks) PaymentCompleted(ctx context.Context, customerID, prescriptionID string) error {
	return h.record(HookCall{Hook: "payment_completed", CustomerID: customerID, PrescriptionID: prescriptionID})
}

func (h *RecordingHooks) CustomerDeparted(ctx context.Context, customerID string) error {
	if err := h.record(HookCall{Hook: "customer_departed", CustomerID: customerID}); err != nil {
		return err
	}
	if h.Customers != nil {
		return h.Customers.SetStatus(ctx, customerID, customer.StatusDeparted)
	}
	return nil
}

func (h *RecordingHooks) record(call HookCall) error {
	h.mu.Lock()
	h.Calls = append(h.Calls, call)
	err := h.Errors[call.Hook]
	panics := h.Panics[call.Hook]
	h.mu.Unlock()
	if panics {
		panic(call.Hook + " exploded")
	}
	return err
}
