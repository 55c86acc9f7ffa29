package simulation

import (
	"context"
	"fmt"
	"time"

	"github.com/andrescamacho/pharmasim-go/internal/domain/staff"
	"github.com/andrescamacho/pharmasim-go/internal/domain/task"
)

// ClockState is the persisted form of the game clock
type ClockState struct {
	SimTime  time.Time
	Day      int
	IsActive bool
	IsPaused bool
	Speed    float64
}

// Snapshot captures the scheduling core's state between sessions.
// Customers and inventory belong to their own collaborators and are not included.
type Snapshot struct {
	SessionID    string
	SavedAt      time.Time
	Clock        ClockState
	NextSequence int64
	Tasks        []task.Record
	Workers      []staff.Record
}

// SnapshotRepository persists snapshots
type SnapshotRepository interface {
	Save(ctx context.Context, snapshot *Snapshot) error
	Load(ctx context.Context, sessionID string) (*Snapshot, error)
	Latest(ctx context.Context) (*Snapshot, error)
}

// ErrSnapshotNotFound indicates no snapshot exists for the lookup
type ErrSnapshotNotFound struct {
	SessionID string
}

func (e *ErrSnapshotNotFound) Error() string {
	if e.SessionID == "" {
		return "no snapshot saved"
	}
	return fmt.Sprintf("snapshot not found for session %s", e.SessionID)
}
