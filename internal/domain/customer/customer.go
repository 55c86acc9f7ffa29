package customer

import (
	"context"
	"time"
)

// Status is the customer's position in the visit pipeline
type Status string

const (
	StatusAwaitingCheckIn      Status = "AWAITING_CHECK_IN"
	StatusAwaitingConsultation Status = "AWAITING_CONSULTATION"
	StatusAwaitingFill         Status = "AWAITING_FILL"
	StatusReadyForCheckout     Status = "READY_FOR_CHECKOUT"
	StatusDeparted             Status = "DEPARTED"
)

// IsWaiting reports whether the customer still expects service
func (s Status) IsWaiting() bool {
	return s != StatusDeparted && s != ""
}

// Customer is a visitor moving through check-in, consultation, fill and checkout.
type Customer struct {
	id             string
	name           string
	status         Status
	statusSince    time.Time
	patience       time.Duration
	prescriptionID string
}

// NewCustomer creates a customer awaiting check-in
func NewCustomer(id, name, prescriptionID string, patience time.Duration, arrivedAt time.Time) *Customer {
	return &Customer{
		id:             id,
		name:           name,
		status:         StatusAwaitingCheckIn,
		statusSince:    arrivedAt,
		patience:       patience,
		prescriptionID: prescriptionID,
	}
}

func (c *Customer) ID() string              { return c.id }
func (c *Customer) Name() string            { return c.name }
func (c *Customer) Status() Status          { return c.status }
func (c *Customer) StatusSince() time.Time  { return c.statusSince }
func (c *Customer) Patience() time.Duration { return c.patience }
func (c *Customer) PrescriptionID() string  { return c.prescriptionID }

// TransitionTo moves the customer to status and restarts the wait timer
func (c *Customer) TransitionTo(status Status, at time.Time) {
	if c.status == status {
		return
	}
	c.status = status
	c.statusSince = at
}

// ExtendPatience grants extra wait time
func (c *Customer) ExtendPatience(extra time.Duration) {
	c.patience += extra
}

// WaitingFor returns how long the customer has been in the current status
func (c *Customer) WaitingFor(now time.Time) time.Duration {
	return now.Sub(c.statusSince)
}

// OutOfPatience reports whether a waiting customer has waited longer than
// their patience allows
func (c *Customer) OutOfPatience(now time.Time) bool {
	return c.status.IsWaiting() && c.WaitingFor(now) > c.patience
}

// StuckCustomer describes a customer held in one status past the wait threshold
type StuckCustomer struct {
	CustomerID  string
	Status      Status
	Waiting     time.Duration
	HasOpenTask bool
}

// Directory is the customer registry the scheduling core consumes
type Directory interface {
	Get(ctx context.Context, customerID string) (*Customer, error)
	List(ctx context.Context) ([]*Customer, error)
	SetStatus(ctx context.Context, customerID string, status Status) error

	// DetectAndFixStuck applies non-destructive recovery to the stuck customers
	// and returns how many were recovered.
	DetectAndFixStuck(ctx context.Context, stuck []StuckCustomer) (int, error)
}
