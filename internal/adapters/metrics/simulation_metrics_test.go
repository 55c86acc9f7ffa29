package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/pharmasim-go/internal/application/integrity"
	"github.com/andrescamacho/pharmasim-go/internal/application/simulation"
	"github.com/andrescamacho/pharmasim-go/internal/domain/task"
)

func TestRecordTaskEvent_CountsLifecycle(t *testing.T) {
	// Arrange
	c := NewSimulationMetricsCollector(nil)
	record := task.Record{ID: "t-1", Type: string(task.TaskTypeCompound), TotalTime: 30}

	// Act
	c.RecordTaskEvent(task.TaskAddedEvent{Task: record})
	c.RecordTaskEvent(task.TaskStatusChangedEvent{TaskID: "t-1", From: task.TaskStatusPending, To: task.TaskStatusInProgress})
	c.RecordTaskEvent(task.TaskProgressUpdatedEvent{TaskID: "t-1", Delta: 1.5, Clamped: true})
	c.RecordTaskEvent(task.TaskProgressUpdatedEvent{TaskID: "t-1", Delta: 0.5})
	c.RecordTaskEvent(task.TaskCompletedEvent{Task: record, Forced: true})
	c.RecordTaskEvent(task.TaskCancelledEvent{Task: record, Reason: "customer walked out"})

	// Assert
	assert.Equal(t, 1.0, testutil.ToFloat64(c.tasksAdded.WithLabelValues("COMPOUND")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.taskTransitions.WithLabelValues("PENDING", "IN_PROGRESS")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.progressClamped))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.progressMinutes))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.tasksCompleted.WithLabelValues("COMPOUND", "true")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.tasksCompleted.WithLabelValues("COMPOUND", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.tasksCancelled.WithLabelValues("COMPOUND")))
}

func TestRecordSweep_AccumulatesReports(t *testing.T) {
	// Arrange
	c := NewSimulationMetricsCollector(nil)

	// Act
	c.RecordSweep(integrity.SweepReport{WorkersRepaired: 2, StuckTasks: []string{"a", "b"}, ForceCompleted: []string{"a"}})
	c.RecordSweep(integrity.SweepReport{TasksRepaired: 1, CustomersRecovered: 1, Errors: []string{"boom"}})

	// Assert
	assert.Equal(t, 2.0, testutil.ToFloat64(c.sweepsTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.sweepRepairs.WithLabelValues("worker")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.sweepRepairs.WithLabelValues("task")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.stuckTasks))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.forceCompleted))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.customerRecovered))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.sweepErrors))
}

func TestRecordStatus_ReplacesGauges(t *testing.T) {
	// Arrange
	c := NewSimulationMetricsCollector(nil)
	c.RecordStatus(simulation.Status{TasksByStatus: map[task.TaskStatus]int{task.TaskStatusPending: 3}})

	// Act
	c.RecordStatus(simulation.Status{
		Day:           2,
		Speed:         4,
		Paused:        true,
		IdleWorkers:   1,
		BusyWorkers:   2,
		AnomalyCount:  5,
		TasksByStatus: map[task.TaskStatus]int{task.TaskStatusInProgress: 2},
	})

	// Assert
	assert.Equal(t, 1, testutil.CollectAndCount(c.tasksByStatus))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.tasksByStatus.WithLabelValues("IN_PROGRESS")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.workers.WithLabelValues("busy")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.simDay))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.simSpeed))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.simPaused))
	assert.Equal(t, 5.0, testutil.ToFloat64(c.anomalies))
}

func TestStart_PollsStatusUntilStopped(t *testing.T) {
	// Arrange
	polls := make(chan struct{}, 64)
	c := NewSimulationMetricsCollector(func() simulation.Status {
		polls <- struct{}{}
		return simulation.Status{Day: 3}
	})

	// Act
	c.Start(t.Context(), 5*time.Millisecond)
	require.Eventually(t, func() bool { return len(polls) >= 2 }, time.Second, time.Millisecond)
	c.Stop()

	// Assert
	assert.Equal(t, 3.0, testutil.ToFloat64(c.simDay))
}

func TestRegister_NoopWithoutRegistry(t *testing.T) {
	Registry = nil

	assert.NoError(t, NewSimulationMetricsCollector(nil).Register())
	assert.False(t, IsEnabled())
}

func TestRegister_AddsSeriesToRegistry(t *testing.T) {
	// Arrange
	InitRegistry()
	t.Cleanup(func() { Registry = nil })
	c := NewSimulationMetricsCollector(nil)

	// Act
	require.NoError(t, c.Register())
	c.RecordSweep(integrity.SweepReport{})

	// Assert
	families, err := Registry.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "pharmasim_engine_integrity_sweeps_total")
	assert.Error(t, c.Register(), "duplicate registration")
}
