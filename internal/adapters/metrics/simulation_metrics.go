package metrics

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/andrescamacho/pharmasim-go/internal/application/integrity"
	"github.com/andrescamacho/pharmasim-go/internal/application/simulation"
	"github.com/andrescamacho/pharmasim-go/internal/domain/task"
)

// DefaultPollInterval is how often status gauges are refreshed
const DefaultPollInterval = 5 * time.Second

// SimulationMetricsCollector records task lifecycle, integrity sweeps and
// engine status
type SimulationMetricsCollector struct {
	status func() simulation.Status

	// Task lifecycle metrics
	tasksAdded      *prometheus.CounterVec
	tasksCompleted  *prometheus.CounterVec
	tasksCancelled  *prometheus.CounterVec
	taskTransitions *prometheus.CounterVec
	taskWorkMinutes *prometheus.HistogramVec
	progressClamped prometheus.Counter
	progressMinutes prometheus.Counter

	// Integrity metrics
	sweepsTotal       prometheus.Counter
	sweepRepairs      *prometheus.CounterVec
	sweepErrors       prometheus.Counter
	stuckTasks        prometheus.Counter
	forceCompleted    prometheus.Counter
	customerRecovered prometheus.Counter

	// Status gauges
	tasksByStatus *prometheus.GaugeVec
	workers       *prometheus.GaugeVec
	simDay        prometheus.Gauge
	simSpeed      prometheus.Gauge
	simPaused     prometheus.Gauge
	anomalies     prometheus.Gauge

	// Lifecycle
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// NewSimulationMetricsCollector creates a collector. status may be nil when
// no polling is wanted.
func NewSimulationMetricsCollector(status func() simulation.Status) *SimulationMetricsCollector {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem, Name: name, Help: help,
		})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem, Name: name, Help: help,
		})
	}

	return &SimulationMetricsCollector{
		status: status,

		tasksAdded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "tasks_added_total",
				Help:      "Total number of tasks added by type",
			},
			[]string{"task_type"},
		),
		tasksCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "tasks_completed_total",
				Help:      "Total number of tasks finalized by type and whether recovery forced them",
			},
			[]string{"task_type", "forced"},
		),
		tasksCancelled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "tasks_cancelled_total",
				Help:      "Total number of tasks dropped without completing, by type",
			},
			[]string{"task_type"},
		),
		taskTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "task_transitions_total",
				Help:      "Total number of task status transitions",
			},
			[]string{"from", "to"},
		),
		taskWorkMinutes: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "task_work_minutes",
				Help:      "Required simulated work per completed task",
				Buckets:   []float64{1, 2, 5, 10, 15, 30, 60, 120},
			},
			[]string{"task_type"},
		),
		progressClamped: counter("progress_clamped_total", "Progress updates corrected to the expected value"),
		progressMinutes: counter("progress_minutes_total", "Simulated work minutes applied to tasks"),

		sweepsTotal: counter("integrity_sweeps_total", "Integrity sweeps executed"),
		sweepRepairs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "integrity_repairs_total",
				Help:      "Back-reference repairs made by integrity sweeps",
			},
			[]string{"kind"},
		),
		sweepErrors:       counter("integrity_errors_total", "Errors raised inside integrity sweeps"),
		stuckTasks:        counter("integrity_stuck_tasks_total", "Stuck tasks detected"),
		forceCompleted:    counter("integrity_force_completed_total", "Tasks completed by recovery"),
		customerRecovered: counter("integrity_customers_recovered_total", "Stuck customers handed a recovery task"),

		tasksByStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "tasks",
				Help:      "Tasks currently held by the store by status",
			},
			[]string{"status"},
		),
		workers: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "workers",
				Help:      "Workers by occupancy",
			},
			[]string{"state"},
		),
		simDay:    gauge("sim_day", "Current simulated day"),
		simSpeed:  gauge("sim_speed", "Simulation speed multiplier"),
		simPaused: gauge("sim_paused", "1 while the simulation is paused"),
		anomalies: gauge("progress_anomalies", "Progress anomalies since the last verifier reset"),
	}
}

// Register registers all metrics with the Prometheus registry
func (c *SimulationMetricsCollector) Register() error {
	return register(
		c.tasksAdded,
		c.tasksCompleted,
		c.tasksCancelled,
		c.taskTransitions,
		c.taskWorkMinutes,
		c.progressClamped,
		c.progressMinutes,
		c.sweepsTotal,
		c.sweepRepairs,
		c.sweepErrors,
		c.stuckTasks,
		c.forceCompleted,
		c.customerRecovered,
		c.tasksByStatus,
		c.workers,
		c.simDay,
		c.simSpeed,
		c.simPaused,
		c.anomalies,
	)
}

// Attach subscribes to the engine's buses. Must run on the goroutine that
// owns sim; the returned func unsubscribes.
func (c *SimulationMetricsCollector) Attach(sim *simulation.Context) (detach func()) {
	taskSub := sim.TaskEvents().Subscribe("metrics", c.RecordTaskEvent)
	sweepSub := sim.SweepReports().Subscribe("metrics", c.RecordSweep)
	return func() {
		sim.TaskEvents().Unsubscribe(taskSub)
		sim.SweepReports().Unsubscribe(sweepSub)
	}
}

// RecordTaskEvent updates lifecycle counters for one task event
func (c *SimulationMetricsCollector) RecordTaskEvent(event task.Event) {
	switch e := event.(type) {
	case task.TaskAddedEvent:
		c.tasksAdded.WithLabelValues(e.Task.Type).Inc()
	case task.TaskProgressUpdatedEvent:
		c.progressMinutes.Add(e.Delta)
		if e.Clamped {
			c.progressClamped.Inc()
		}
	case task.TaskStatusChangedEvent:
		c.taskTransitions.WithLabelValues(string(e.From), string(e.To)).Inc()
	case task.TaskCompletedEvent:
		c.tasksCompleted.WithLabelValues(e.Task.Type, strconv.FormatBool(e.Forced)).Inc()
		c.taskWorkMinutes.WithLabelValues(e.Task.Type).Observe(e.Task.TotalTime)
	case task.TaskCancelledEvent:
		c.tasksCancelled.WithLabelValues(e.Task.Type).Inc()
	}
}

// RecordSweep updates integrity counters from one sweep report
func (c *SimulationMetricsCollector) RecordSweep(report integrity.SweepReport) {
	c.sweepsTotal.Inc()
	c.sweepRepairs.WithLabelValues("worker").Add(float64(report.WorkersRepaired))
	c.sweepRepairs.WithLabelValues("task").Add(float64(report.TasksRepaired))
	c.sweepErrors.Add(float64(len(report.Errors)))
	c.stuckTasks.Add(float64(len(report.StuckTasks)))
	c.forceCompleted.Add(float64(len(report.ForceCompleted)))
	c.customerRecovered.Add(float64(report.CustomersRecovered))
}

// RecordStatus refreshes the status gauges
func (c *SimulationMetricsCollector) RecordStatus(status simulation.Status) {
	c.tasksByStatus.Reset()
	for s, n := range status.TasksByStatus {
		c.tasksByStatus.WithLabelValues(string(s)).Set(float64(n))
	}
	c.workers.WithLabelValues("idle").Set(float64(status.IdleWorkers))
	c.workers.WithLabelValues("busy").Set(float64(status.BusyWorkers))
	c.simDay.Set(float64(status.Day))
	c.simSpeed.Set(status.Speed)
	if status.Paused {
		c.simPaused.Set(1)
	} else {
		c.simPaused.Set(0)
	}
	c.anomalies.Set(float64(status.AnomalyCount))
}

// Start begins polling status every interval
func (c *SimulationMetricsCollector) Start(ctx context.Context, interval time.Duration) {
	if c.status == nil {
		return
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	c.ctx, c.cancelFunc = context.WithCancel(ctx)

	c.wg.Add(1)
	go c.pollStatus(interval)
}

// Stop gracefully stops the metrics collection
func (c *SimulationMetricsCollector) Stop() {
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
	c.wg.Wait()
}

func (c *SimulationMetricsCollector) pollStatus(interval time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.RecordStatus(c.status())
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.RecordStatus(c.status())
		}
	}
}
