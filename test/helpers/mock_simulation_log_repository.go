package helpers

import (
	"context"
	"sync"
	"time"

	"github.com/andrescamacho/pharmasim-go/internal/adapters/persistence"
)

// MockSimulationLogRepository is an in-memory SimulationLogRepository for testing
type MockSimulationLogRepository struct {
	mu     sync.Mutex
	Logs   map[string][]persistence.SimulationLogEntry // key: session_id
	LogErr error
}

// NewMockSimulationLogRepository creates a new mock simulation log repository
func NewMockSimulationLogRepository() *MockSimulationLogRepository {
	return &MockSimulationLogRepository{
		Logs: make(map[string][]persistence.SimulationLogEntry),
	}
}

// Log writes a log entry (in-memory only for testing)
func (m *MockSimulationLogRepository) Log(ctx context.Context, sessionID, message, level string, metadata map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.LogErr != nil {
		return m.LogErr
	}

	m.Logs[sessionID] = append(m.Logs[sessionID], persistence.SimulationLogEntry{
		ID:        len(m.Logs[sessionID]) + 1,
		SessionID: sessionID,
		Message:   message,
		Level:     level,
		Metadata:  metadata,
		Timestamp: time.Now(),
	})
	return nil
}

// GetLogs returns the session's entries, newest first, filtered by level and time
func (m *MockSimulationLogRepository) GetLogs(ctx context.Context, sessionID string, limit int, level *string, since *time.Time) ([]persistence.SimulationLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	logs := m.Logs[sessionID]
	filtered := make([]persistence.SimulationLogEntry, 0, len(logs))
	for i := len(logs) - 1; i >= 0; i-- {
		log := logs[i]
		if level != nil && log.Level != *level {
			continue
		}
		if since != nil && log.Timestamp.Before(*since) {
			continue
		}
		filtered = append(filtered, log)
	}

	if limit > 0 && limit < len(filtered) {
		filtered = filtered[:limit]
	}
	return filtered, nil
}

// Count returns the number of stored entries of a session
func (m *MockSimulationLogRepository) Count(sessionID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Logs[sessionID])
}
