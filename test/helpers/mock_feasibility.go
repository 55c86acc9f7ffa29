package helpers

import (
	"context"
	"sync"
)

// MockFeasibility is a configurable Feasibility double. Unknown ids are feasible.
type MockFeasibility struct {
	mu            sync.Mutex
	Prescriptions map[string]bool
	Products      map[string]bool
	Err           error
	Panic         bool
	Calls         int
}

// NewMockFeasibility creates a feasibility double that allows everything
func NewMockFeasibility() *MockFeasibility {
	return &MockFeasibility{
		Prescriptions: make(map[string]bool),
		Products:      make(map[string]bool),
	}
}

func (m *MockFeasibility) SetPrescription(id string, feasible bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Prescriptions[id] = feasible
}

func (m *MockFeasibility) SetProduct(id string, feasible bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Products[id] = feasible
}

func (m *MockFeasibility) CanFillPrescription(ctx context.Context, prescriptionID string) (bool, error) {
	return m.answer(m.Prescriptions, prescriptionID)
}

func (m *MockFeasibility) CanCompound(ctx context.Context, productID string) (bool, error) {
	return m.answer(m.Products, productID)
}

func (m *MockFeasibility) answer(table map[string]bool, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if m.Panic {
		panic("feasibility exploded")
	}
	if m.Err != nil {
		return false, m.Err
	}
	feasible, ok := table[id]
	return !ok || feasible, nil
}
