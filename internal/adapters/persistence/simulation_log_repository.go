package persistence

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/andrescamacho/pharmasim-go/internal/domain/shared"
)

// Log deduplication defaults
const (
	DefaultLogDedupWindow  = 60 * time.Second
	DefaultLogDedupMaxSize = 10000
)

// SimulationLogRepository manages the persistent incident log of a session
type SimulationLogRepository interface {
	// Log writes a log entry to the database with deduplication
	Log(ctx context.Context, sessionID, message, level string, metadata map[string]interface{}) error

	// GetLogs retrieves logs for a session, newest first, with optional filtering
	GetLogs(ctx context.Context, sessionID string, limit int, level *string, since *time.Time) ([]SimulationLogEntry, error)
}

// SimulationLogEntry represents a log entry
type SimulationLogEntry struct {
	ID        int
	SessionID string
	Timestamp time.Time
	Level     string
	Message   string
	Metadata  map[string]interface{}
}

// GormSimulationLogRepository is a GORM-based implementation. Repeated
// messages within the dedup window are written once.
type GormSimulationLogRepository struct {
	db    *gorm.DB
	clock shared.Clock

	dedupCache   map[string]time.Time // key: sessionID|message, value: last logged time
	dedupMu      sync.Mutex
	dedupWindow  time.Duration
	dedupMaxSize int
}

// NewGormSimulationLogRepository creates a new simulation log repository.
// If clock is nil, uses RealClock.
func NewGormSimulationLogRepository(db *gorm.DB, clock shared.Clock) *GormSimulationLogRepository {
	return &GormSimulationLogRepository{
		db:           db,
		clock:        shared.OrRealClock(clock),
		dedupCache:   make(map[string]time.Time),
		dedupWindow:  DefaultLogDedupWindow,
		dedupMaxSize: DefaultLogDedupMaxSize,
	}
}

// SetDedupWindow changes the deduplication window; zero disables deduplication
func (r *GormSimulationLogRepository) SetDedupWindow(window time.Duration) {
	r.dedupMu.Lock()
	defer r.dedupMu.Unlock()
	r.dedupWindow = window
}

// Log writes a log entry with time-windowed deduplication
func (r *GormSimulationLogRepository) Log(ctx context.Context, sessionID, message, level string, metadata map[string]interface{}) error {
	now := r.clock.Now()
	cacheKey := sessionID + "|" + message

	r.dedupMu.Lock()
	if lastLogged, exists := r.dedupCache[cacheKey]; exists && now.Sub(lastLogged) < r.dedupWindow {
		r.dedupMu.Unlock()
		return nil
	}
	if len(r.dedupCache) >= r.dedupMaxSize {
		r.cleanupDedupCache(now)
	}
	r.dedupCache[cacheKey] = now
	r.dedupMu.Unlock()

	// Metadata is optional; an unencodable map is dropped rather than failing the write
	var metadataJSON string
	if len(metadata) > 0 {
		if data, err := json.Marshal(metadata); err == nil {
			metadataJSON = string(data)
		}
	}

	entry := &SimulationLogModel{
		SessionID: sessionID,
		Timestamp: now,
		Level:     level,
		Message:   message,
		Metadata:  metadataJSON,
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

// cleanupDedupCache removes expired entries. Must be called while holding dedupMu.
func (r *GormSimulationLogRepository) cleanupDedupCache(now time.Time) {
	cutoff := now.Add(-r.dedupWindow)
	for key, timestamp := range r.dedupCache {
		if timestamp.Before(cutoff) {
			delete(r.dedupCache, key)
		}
	}
}

// GetLogs retrieves logs for a session with optional filtering
func (r *GormSimulationLogRepository) GetLogs(ctx context.Context, sessionID string, limit int, level *string, since *time.Time) ([]SimulationLogEntry, error) {
	var models []SimulationLogModel

	query := r.db.WithContext(ctx).Where("session_id = ?", sessionID)
	if level != nil {
		query = query.Where("level = ?", *level)
	}
	if since != nil {
		query = query.Where("timestamp > ?", *since)
	}
	query = query.Order("timestamp DESC").Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	entries := make([]SimulationLogEntry, len(models))
	for i, model := range models {
		var metadata map[string]interface{}
		if model.Metadata != "" {
			if err := json.Unmarshal([]byte(model.Metadata), &metadata); err != nil {
				metadata = nil
			}
		}
		entries[i] = SimulationLogEntry{
			ID:        model.ID,
			SessionID: model.SessionID,
			Timestamp: model.Timestamp,
			Level:     model.Level,
			Message:   model.Message,
			Metadata:  metadata,
		}
	}
	return entries, nil
}
