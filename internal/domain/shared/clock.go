package shared

import (
	"sync"
	"time"
)

// Clock is the wall-clock source used for task timestamps and staleness checks.
// Simulated game time is tracked separately by the game clock.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the actual system time
type RealClock struct{}

// Now returns the current system time in UTC
func (r *RealClock) Now() time.Time {
	return time.Now().UTC()
}

// MockClock implements Clock with a controllable time for testing.
// Safe for use from the runner goroutine and the test goroutine at once.
type MockClock struct {
	mu          sync.Mutex
	currentTime time.Time
}

// Now returns the mock's current time
func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentTime
}

// Advance moves the mock clock forward by the given duration
func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentTime = m.currentTime.Add(d)
}

// NewMockClock creates a MockClock starting at the given time
// If zero time is provided, starts at current time
func NewMockClock(startTime time.Time) *MockClock {
	if startTime.IsZero() {
		startTime = time.Now()
	}
	return &MockClock{currentTime: startTime}
}

// NewRealClock creates a RealClock instance
func NewRealClock() Clock {
	return &RealClock{}
}

// OrRealClock returns clock, or a RealClock when clock is nil.
func OrRealClock(clock Clock) Clock {
	if clock == nil {
		return NewRealClock()
	}
	return clock
}
