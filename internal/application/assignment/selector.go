package assignment

import (
	"fmt"

	"github.com/andrescamacho/pharmasim-go/internal/domain/staff"
	"github.com/andrescamacho/pharmasim-go/internal/domain/task"
)

// SelectionResult contains the result of worker selection
type SelectionResult struct {
	Worker *staff.Worker
	Score  ScoreBreakdown
	Role   staff.Role
	Reason string // Why this worker was selected (e.g., "best score among CASHIER")
}

// ContinuityFunc reports whether workerID completed the task t depends on
type ContinuityFunc func(t *task.Task, workerID string) bool

// Selector picks the best idle worker for a task.
//
// Business Rules:
// 1. Only the highest-preference role with at least one idle worker is considered
// 2. Within that role the highest score wins
// 3. Equal scores go to the lower worker id so passes are repeatable
type Selector struct {
	scorer     *Scorer
	continuity ContinuityFunc
}

// NewSelector creates a selector
func NewSelector(scorer *Scorer, continuity ContinuityFunc) *Selector {
	return &Selector{scorer: scorer, continuity: continuity}
}

// SelectWorker chooses among idle for t, or returns an error when no
// acceptable role is idle.
func (s *Selector) SelectWorker(t *task.Task, roles []staff.Role, idle []*staff.Worker) (*SelectionResult, error) {
	if len(idle) == 0 {
		return nil, fmt.Errorf("no idle workers")
	}

	for _, role := range roles {
		var best *SelectionResult
		for _, w := range idle {
			if w.Role() != role {
				continue
			}
			continuity := s.continuity != nil && s.continuity(t, w.ID())
			score := s.scorer.Score(w, t, continuity)
			if best == nil || score.Total() > best.Score.Total() ||
				(score.Total() == best.Score.Total() && w.ID() < best.Worker.ID()) {
				best = &SelectionResult{Worker: w, Score: score, Role: role}
			}
		}
		if best != nil {
			best.Reason = fmt.Sprintf("best score %.1f among %s", best.Score.Total(), role)
			if best.Score.Continuity > 0 {
				best.Reason += " (continuity)"
			}
			return best, nil
		}
	}
	return nil, fmt.Errorf("no idle worker with an acceptable role for %s", t.Type())
}
