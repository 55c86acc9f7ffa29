package pharmacy

import "sync"

// Ledger keeps the pharmacy's running finances and reputation
type Ledger struct {
	mu         sync.Mutex
	revenue    float64
	expenses   float64
	reputation int
	payments   int
	departures int
	walkouts   int
}

// WalkoutPenalty is the reputation lost when a customer leaves unserved
const WalkoutPenalty = 2

// NewLedger creates a ledger with a starting reputation
func NewLedger(reputation int) *Ledger {
	return &Ledger{reputation: reputation}
}

func (l *Ledger) RecordPayment(amount float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.revenue += amount
	l.payments++
}

func (l *Ledger) RecordExpense(amount float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.expenses += amount
}

func (l *Ledger) RecordDeparture() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.departures++
}

// RecordWalkout counts an unserved departure and applies the reputation penalty
func (l *Ledger) RecordWalkout() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.departures++
	l.walkouts++
	l.reputation -= WalkoutPenalty
}

func (l *Ledger) Walkouts() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.walkouts
}

// AdjustReputation shifts reputation by delta
func (l *Ledger) AdjustReputation(delta int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reputation += delta
}

func (l *Ledger) Revenue() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.revenue
}

func (l *Ledger) Reputation() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reputation
}

func (l *Ledger) Payments() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.payments
}

func (l *Ledger) Departures() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.departures
}

// Summary returns the ledger as log metadata
func (l *Ledger) Summary() map[string]interface{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return map[string]interface{}{
		"revenue":    l.revenue,
		"expenses":   l.expenses,
		"profit":     l.revenue - l.expenses,
		"reputation": l.reputation,
		"payments":   l.payments,
		"departures": l.departures,
		"walkouts":   l.walkouts,
	}
}
