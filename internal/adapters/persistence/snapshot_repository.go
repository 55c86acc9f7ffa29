package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/andrescamacho/pharmasim-go/internal/domain/simulation"
	"github.com/andrescamacho/pharmasim-go/internal/domain/staff"
	"github.com/andrescamacho/pharmasim-go/internal/domain/task"
)

// SessionSummary describes a stored snapshot without loading its rows
type SessionSummary struct {
	SessionID string
	SavedAt   time.Time
	SimTime   time.Time
	Day       int
}

// GormSnapshotRepository implements SnapshotRepository using GORM.
// A save replaces every task and worker row of the session.
type GormSnapshotRepository struct {
	db *gorm.DB
}

// NewGormSnapshotRepository creates a new snapshot repository
func NewGormSnapshotRepository(db *gorm.DB) *GormSnapshotRepository {
	return &GormSnapshotRepository{db: db}
}

// Save persists snapshot in a single transaction
func (r *GormSnapshotRepository) Save(ctx context.Context, snapshot *simulation.Snapshot) error {
	if snapshot == nil {
		return fmt.Errorf("snapshot is nil")
	}
	if snapshot.SessionID == "" {
		return fmt.Errorf("snapshot has no session id")
	}

	workers := make([]WorkerModel, 0, len(snapshot.Workers))
	for _, w := range snapshot.Workers {
		model, err := workerToModel(snapshot.SessionID, w)
		if err != nil {
			return err
		}
		workers = append(workers, model)
	}
	tasks := make([]TaskModel, 0, len(snapshot.Tasks))
	for _, t := range snapshot.Tasks {
		tasks = append(tasks, taskToModel(snapshot.SessionID, t))
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		state := &SimulationStateModel{
			SessionID:    snapshot.SessionID,
			SavedAt:      snapshot.SavedAt,
			SimTime:      snapshot.Clock.SimTime,
			Day:          snapshot.Clock.Day,
			IsActive:     snapshot.Clock.IsActive,
			IsPaused:     snapshot.Clock.IsPaused,
			Speed:        snapshot.Clock.Speed,
			NextSequence: snapshot.NextSequence,
		}
		if err := tx.Save(state).Error; err != nil {
			return fmt.Errorf("failed to save simulation state: %w", err)
		}
		if err := tx.Where("session_id = ?", snapshot.SessionID).Delete(&TaskModel{}).Error; err != nil {
			return fmt.Errorf("failed to clear tasks: %w", err)
		}
		if err := tx.Where("session_id = ?", snapshot.SessionID).Delete(&WorkerModel{}).Error; err != nil {
			return fmt.Errorf("failed to clear workers: %w", err)
		}
		if len(tasks) > 0 {
			if err := tx.CreateInBatches(tasks, 100).Error; err != nil {
				return fmt.Errorf("failed to save tasks: %w", err)
			}
		}
		if len(workers) > 0 {
			if err := tx.CreateInBatches(workers, 100).Error; err != nil {
				return fmt.Errorf("failed to save workers: %w", err)
			}
		}
		return nil
	})
}

// Load retrieves the snapshot of sessionID
func (r *GormSnapshotRepository) Load(ctx context.Context, sessionID string) (*simulation.Snapshot, error) {
	var state SimulationStateModel
	result := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&state)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, &simulation.ErrSnapshotNotFound{SessionID: sessionID}
		}
		return nil, fmt.Errorf("failed to load simulation state: %w", result.Error)
	}
	return r.loadRows(ctx, state)
}

// Latest retrieves the most recently saved snapshot
func (r *GormSnapshotRepository) Latest(ctx context.Context) (*simulation.Snapshot, error) {
	var state SimulationStateModel
	result := r.db.WithContext(ctx).Order("saved_at DESC").First(&state)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, &simulation.ErrSnapshotNotFound{}
		}
		return nil, fmt.Errorf("failed to load latest simulation state: %w", result.Error)
	}
	return r.loadRows(ctx, state)
}

// Sessions lists stored sessions, newest first
func (r *GormSnapshotRepository) Sessions(ctx context.Context, limit int) ([]SessionSummary, error) {
	var states []SimulationStateModel
	query := r.db.WithContext(ctx).Order("saved_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&states).Error; err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	summaries := make([]SessionSummary, len(states))
	for i, s := range states {
		summaries[i] = SessionSummary{SessionID: s.SessionID, SavedAt: s.SavedAt, SimTime: s.SimTime, Day: s.Day}
	}
	return summaries, nil
}

// Delete removes a session and its rows
func (r *GormSnapshotRepository) Delete(ctx context.Context, sessionID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", sessionID).Delete(&TaskModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("session_id = ?", sessionID).Delete(&WorkerModel{}).Error; err != nil {
			return err
		}
		result := tx.Where("session_id = ?", sessionID).Delete(&SimulationStateModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return &simulation.ErrSnapshotNotFound{SessionID: sessionID}
		}
		return nil
	})
}

func (r *GormSnapshotRepository) loadRows(ctx context.Context, state SimulationStateModel) (*simulation.Snapshot, error) {
	var tasks []TaskModel
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", state.SessionID).
		Order("sequence ASC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}
	var workers []WorkerModel
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", state.SessionID).
		Order("id ASC").
		Find(&workers).Error; err != nil {
		return nil, fmt.Errorf("failed to load workers: %w", err)
	}

	snap := &simulation.Snapshot{
		SessionID: state.SessionID,
		SavedAt:   state.SavedAt,
		Clock: simulation.ClockState{
			SimTime:  state.SimTime,
			Day:      state.Day,
			IsActive: state.IsActive,
			IsPaused: state.IsPaused,
			Speed:    state.Speed,
		},
		NextSequence: state.NextSequence,
		Tasks:        make([]task.Record, 0, len(tasks)),
		Workers:      make([]staff.Record, 0, len(workers)),
	}
	for _, m := range tasks {
		snap.Tasks = append(snap.Tasks, modelToTask(m))
	}
	for _, m := range workers {
		w, err := modelToWorker(m)
		if err != nil {
			return nil, err
		}
		snap.Workers = append(snap.Workers, w)
	}
	return snap, nil
}

func taskToModel(sessionID string, t task.Record) TaskModel {
	return TaskModel{
		SessionID:        sessionID,
		ID:               t.ID,
		Sequence:         t.Sequence,
		Type:             t.Type,
		Status:           t.Status,
		Progress:         t.Progress,
		TotalTime:        t.TotalTime,
		AssignedTo:       t.AssignedTo,
		RoleNeeded:       t.RoleNeeded,
		Priority:         t.Priority,
		CustomerID:       t.CustomerID,
		PrescriptionID:   t.PrescriptionID,
		ProductID:        t.ProductID,
		DependencyTaskID: t.DependencyTaskID,
		CreatedAt:        t.CreatedAt,
		AssignedAt:       t.AssignedAt,
		LastProgressTime: t.LastProgressTime,
	}
}

func modelToTask(m TaskModel) task.Record {
	return task.Record{
		ID:               m.ID,
		Sequence:         m.Sequence,
		Type:             m.Type,
		Status:           m.Status,
		Progress:         m.Progress,
		TotalTime:        m.TotalTime,
		AssignedTo:       m.AssignedTo,
		RoleNeeded:       m.RoleNeeded,
		Priority:         m.Priority,
		CustomerID:       m.CustomerID,
		PrescriptionID:   m.PrescriptionID,
		ProductID:        m.ProductID,
		DependencyTaskID: m.DependencyTaskID,
		CreatedAt:        m.CreatedAt,
		AssignedAt:       m.AssignedAt,
		LastProgressTime: m.LastProgressTime,
	}
}

func workerToModel(sessionID string, w staff.Record) (WorkerModel, error) {
	var skills string
	if len(w.Skills) > 0 {
		data, err := json.Marshal(w.Skills)
		if err != nil {
			return WorkerModel{}, fmt.Errorf("failed to marshal skills of %s: %w", w.ID, err)
		}
		skills = string(data)
	}
	return WorkerModel{
		SessionID:     sessionID,
		ID:            w.ID,
		Name:          w.Name,
		Role:          w.Role,
		Skills:        skills,
		Morale:        w.Morale,
		CurrentTaskID: w.CurrentTaskID,
	}, nil
}

func modelToWorker(m WorkerModel) (staff.Record, error) {
	var skills map[string]float64
	if m.Skills != "" {
		if err := json.Unmarshal([]byte(m.Skills), &skills); err != nil {
			return staff.Record{}, fmt.Errorf("failed to unmarshal skills of %s: %w", m.ID, err)
		}
	}
	return staff.Record{
		ID:            m.ID,
		Name:          m.Name,
		Role:          m.Role,
		Skills:        skills,
		Morale:        m.Morale,
		CurrentTaskID: m.CurrentTaskID,
	}, nil
}
