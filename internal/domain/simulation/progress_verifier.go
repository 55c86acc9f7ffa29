package simulation

import (
	"math"
	"time"

	"github.com/andrescamacho/pharmasim-go/internal/domain/shared"
)

// Verifier defaults
const (
	DefaultVerifierTolerance      = 0.001
	DefaultAnomalyHistoryCapacity = 100
	DefaultAnomalyResetThreshold  = 20
)

// Anomaly is a recorded mismatch between expected and actual task progress
type Anomaly struct {
	TaskID   string
	At       time.Time
	Expected float64
	Actual   float64
	Delta    float64
}

// VerifierConfig tunes the progress verifier
type VerifierConfig struct {
	Tolerance       float64
	HistoryCapacity int
	ResetThreshold  int
}

// ProgressVerifier keeps, per task, a running expected progress value seeded
// from the first observed progress and advanced by each tick's minutes.
//
// Mismatches are recorded in a bounded ring buffer. When the number of
// anomalies since the last reset exceeds ResetThreshold, every expectation is
// dropped and tracking restarts from observed values.
type ProgressVerifier struct {
	tolerance      float64
	resetThreshold int

	expected map[string]float64

	history      []Anomaly
	historyNext  int
	historyFull  bool
	anomalyCount int
	resets       int

	clock shared.Clock
}

// NewProgressVerifier creates a verifier; zero config values take defaults
func NewProgressVerifier(cfg VerifierConfig, clock shared.Clock) *ProgressVerifier {
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = DefaultVerifierTolerance
	}
	if cfg.HistoryCapacity <= 0 {
		cfg.HistoryCapacity = DefaultAnomalyHistoryCapacity
	}
	if cfg.ResetThreshold <= 0 {
		cfg.ResetThreshold = DefaultAnomalyResetThreshold
	}
	return &ProgressVerifier{
		tolerance:      cfg.Tolerance,
		resetThreshold: cfg.ResetThreshold,
		expected:       make(map[string]float64),
		history:        make([]Anomaly, cfg.HistoryCapacity),
		clock:          shared.OrRealClock(clock),
	}
}

// Track records that minutes are about to be applied to taskID and returns
// the new expected progress. The first call seeds from currentProgress.
func (v *ProgressVerifier) Track(taskID string, currentProgress, minutes float64) float64 {
	expected, ok := v.expected[taskID]
	if !ok {
		expected = currentProgress
	}
	expected += minutes
	v.expected[taskID] = expected
	return expected
}

// Verify compares actual to the expectation for taskID.
// It returns the expectation and whether actual was within tolerance.
// Untracked tasks always verify.
func (v *ProgressVerifier) Verify(taskID string, actual float64) (float64, bool) {
	expected, ok := v.expected[taskID]
	if !ok {
		return actual, true
	}
	delta := actual - expected
	if math.Abs(delta) <= v.tolerance {
		return expected, true
	}

	v.record(Anomaly{
		TaskID:   taskID,
		At:       v.clock.Now(),
		Expected: expected,
		Actual:   actual,
		Delta:    delta,
	})
	v.anomalyCount++
	if v.anomalyCount > v.resetThreshold {
		v.Reset()
	}
	return expected, false
}

// Expected returns the current expectation for taskID
func (v *ProgressVerifier) Expected(taskID string) (float64, bool) {
	expected, ok := v.expected[taskID]
	return expected, ok
}

// Clear stops tracking taskID
func (v *ProgressVerifier) Clear(taskID string) {
	delete(v.expected, taskID)
}

// Reset drops every expectation and the anomaly counter.
// The anomaly history is kept for diagnostics.
func (v *ProgressVerifier) Reset() {
	v.expected = make(map[string]float64)
	v.anomalyCount = 0
	v.resets++
}

// AnomalyCount returns anomalies recorded since the last reset
func (v *ProgressVerifier) AnomalyCount() int { return v.anomalyCount }

// Resets returns how many times tracking was reset
func (v *ProgressVerifier) Resets() int { return v.resets }

// TrackedCount returns the number of tasks with an expectation
func (v *ProgressVerifier) TrackedCount() int { return len(v.expected) }

// Anomalies returns the retained history, oldest first
func (v *ProgressVerifier) Anomalies() []Anomaly {
	if !v.historyFull {
		out := make([]Anomaly, v.historyNext)
		copy(out, v.history[:v.historyNext])
		return out
	}
	out := make([]Anomaly, 0, len(v.history))
	out = append(out, v.history[v.historyNext:]...)
	out = append(out, v.history[:v.historyNext]...)
	return out
}

func (v *ProgressVerifier) record(a Anomaly) {
	v.history[v.historyNext] = a
	v.historyNext++
	if v.historyNext == len(v.history) {
		v.historyNext = 0
		v.historyFull = true
	}
}
