package logging

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/andrescamacho/pharmasim-go/internal/adapters/persistence"
	"github.com/andrescamacho/pharmasim-go/internal/application/common"
)

const persistTimeout = 5 * time.Second

var levelRank = map[string]int{
	common.LevelDebug:   0,
	common.LevelInfo:    1,
	common.LevelWarning: 2,
	common.LevelError:   3,
}

// PersistentLogger stores warnings and errors of one session in the
// simulation log table. Writes happen off the simulation goroutine.
type PersistentLogger struct {
	repo      persistence.SimulationLogRepository
	sessionID string
	minRank   int

	wg sync.WaitGroup
}

// NewPersistentLogger persists entries at minLevel and above
func NewPersistentLogger(repo persistence.SimulationLogRepository, sessionID, minLevel string) *PersistentLogger {
	rank, ok := levelRank[minLevel]
	if !ok {
		rank = levelRank[common.LevelWarning]
	}
	return &PersistentLogger{repo: repo, sessionID: sessionID, minRank: rank}
}

// Log implements common.Logger
func (l *PersistentLogger) Log(level, message string, metadata map[string]interface{}) {
	if levelRank[level] < l.minRank {
		return
	}

	// the caller may keep mutating its map
	copied := make(map[string]interface{}, len(metadata))
	for k, v := range metadata {
		copied[k] = v
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()

		if err := l.repo.Log(ctx, l.sessionID, message, level, copied); err != nil {
			fmt.Fprintf(os.Stderr, "[%s] [%s] ERROR: Failed to persist log to DB: %v\n",
				time.Now().Format(time.RFC3339), l.sessionID, err)
		}
	}()
}

// Flush waits for pending writes
func (l *PersistentLogger) Flush() {
	l.wg.Wait()
}

var _ common.Logger = (*PersistentLogger)(nil)
