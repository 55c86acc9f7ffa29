package ports

import "context"

// Feasibility answers stock questions for resource-gated tasks.
//
// Implemented by the inventory collaborator. An error is treated by callers
// as "not feasible right now" and retried on the next tick.
type Feasibility interface {
	// CanFillPrescription reports whether product stock covers the prescription
	CanFillPrescription(ctx context.Context, prescriptionID string) (bool, error)

	// CanCompound reports whether raw materials cover one batch of productID
	CanCompound(ctx context.Context, productID string) (bool, error)
}
