package pharmacy

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/andrescamacho/pharmasim-go/internal/application/simulation"
	"github.com/andrescamacho/pharmasim-go/internal/domain/customer"
	"github.com/andrescamacho/pharmasim-go/internal/domain/shared"
)

// Prescriber writes a prescription for a newly admitted customer
type Prescriber interface {
	Prescribe(ctx context.Context, customerID string) (string, error)
}

// Default customer settings
const (
	DefaultPatience       = 20 * time.Minute
	DefaultPatienceExtend = 10 * time.Minute
)

var customerNames = []string{
	"Ada", "Bruno", "Carmen", "Dmitri", "Elena", "Farid", "Grace", "Hiro",
	"Ines", "Jonas", "Kemi", "Luca", "Mei", "Nadia", "Omar", "Priya",
}

// CustomerBook is the in-memory customer directory. Wait times are measured
// on the same clock the integrity sweep reads.
type CustomerBook struct {
	mu         sync.RWMutex
	customers  map[string]*customer.Customer
	prescriber Prescriber
	ledger     *Ledger
	patience   time.Duration
	extend     time.Duration
	nextID     int
	lastSimAt  time.Time
	recovered  int
	clock      shared.Clock
}

// NewCustomerBook creates an empty directory
func NewCustomerBook(prescriber Prescriber, patience time.Duration, clock shared.Clock) *CustomerBook {
	if patience <= 0 {
		patience = DefaultPatience
	}
	return &CustomerBook{
		customers:  make(map[string]*customer.Customer),
		prescriber: prescriber,
		patience:   patience,
		extend:     DefaultPatienceExtend,
		clock:      shared.OrRealClock(clock),
	}
}

// Add registers an existing customer
func (b *CustomerBook) Add(c *customer.Customer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.customers[c.ID()] = c
}

// Admit creates a customer awaiting check-in together with a prescription
func (b *CustomerBook) Admit(ctx context.Context, at time.Time) (simulation.Arrival, error) {
	b.mu.Lock()
	b.nextID++
	id := fmt.Sprintf("cust-%04d", b.nextID)
	name := customerNames[(b.nextID-1)%len(customerNames)]
	b.lastSimAt = at
	b.mu.Unlock()

	prescriptionID := ""
	if b.prescriber != nil {
		var err error
		prescriptionID, err = b.prescriber.Prescribe(ctx, id)
		if err != nil {
			return simulation.Arrival{}, fmt.Errorf("failed to prescribe for %s: %w", id, err)
		}
	}
	b.Add(customer.NewCustomer(id, name, prescriptionID, b.patience, b.clock.Now()))
	return simulation.Arrival{CustomerID: id, PrescriptionID: prescriptionID}, nil
}

// Get finds a customer by id
func (b *CustomerBook) Get(ctx context.Context, customerID string) (*customer.Customer, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	c, ok := b.customers[customerID]
	if !ok {
		return nil, &customer.ErrCustomerNotFound{CustomerID: customerID}
	}
	return c, nil
}

// List returns every customer ordered by id
func (b *CustomerBook) List(ctx context.Context) ([]*customer.Customer, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	result := make([]*customer.Customer, 0, len(b.customers))
	for _, c := range b.customers {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID() < result[j].ID() })
	return result, nil
}

// SetStatus moves a customer and restarts its wait timer
func (b *CustomerBook) SetStatus(ctx context.Context, customerID string, status customer.Status) error {
	c, err := b.Get(ctx, customerID)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	c.TransitionTo(status, b.clock.Now())
	return nil
}

// DetectAndFixStuck extends the patience of stuck customers that have work
// queued so they survive long enough to be served
func (b *CustomerBook) DetectAndFixStuck(ctx context.Context, stuck []customer.StuckCustomer) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fixed := 0
	for _, s := range stuck {
		c, ok := b.customers[s.CustomerID]
		if !ok || !s.HasOpenTask {
			continue
		}
		c.ExtendPatience(b.extend)
		fixed++
	}
	b.recovered += fixed
	return fixed, nil
}

// Impatient lists waiting customers whose patience has run out, ordered by id
func (b *CustomerBook) Impatient(ctx context.Context) ([]string, error) {
	now := b.clock.Now()
	b.mu.RLock()
	defer b.mu.RUnlock()
	var ids []string
	for id, c := range b.customers {
		if c.OutOfPatience(now) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// WalkOut records an unserved departure: the customer leaves and the
// pharmacy loses reputation
func (b *CustomerBook) WalkOut(ctx context.Context, customerID string) error {
	c, err := b.Get(ctx, customerID)
	if err != nil {
		return err
	}
	b.mu.Lock()
	if !c.Status().IsWaiting() {
		b.mu.Unlock()
		return nil
	}
	c.TransitionTo(customer.StatusDeparted, b.clock.Now())
	b.mu.Unlock()
	if b.ledger != nil {
		b.ledger.RecordWalkout()
	}
	return nil
}

// Waiting counts customers that have not departed
func (b *CustomerBook) Waiting() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, c := range b.customers {
		if c.Status().IsWaiting() {
			n++
		}
	}
	return n
}

// Recovered returns the number of patience extensions granted
func (b *CustomerBook) Recovered() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.recovered
}

// LastArrival returns the simulated time of the latest admission
func (b *CustomerBook) LastArrival() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastSimAt
}
