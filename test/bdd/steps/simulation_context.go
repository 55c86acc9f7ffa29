package steps

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cucumber/godog"
	"github.com/cucumber/messages/go/v21"

	"github.com/andrescamacho/pharmasim-go/internal/adapters/pharmacy"
	"github.com/andrescamacho/pharmasim-go/internal/application/integrity"
	"github.com/andrescamacho/pharmasim-go/internal/application/simulation"
	"github.com/andrescamacho/pharmasim-go/internal/domain/customer"
	"github.com/andrescamacho/pharmasim-go/internal/domain/shared"
	"github.com/andrescamacho/pharmasim-go/internal/domain/staff"
	"github.com/andrescamacho/pharmasim-go/internal/domain/task"
	"github.com/andrescamacho/pharmasim-go/test/helpers"
)

// SimulationContext holds one engine and its collaborators for a scenario
type SimulationContext struct {
	ctx         context.Context
	wall        *shared.MockClock
	staffRows   []staff.Record
	roster      *pharmacy.Roster
	customers   *pharmacy.CustomerBook
	feasibility *helpers.MockFeasibility
	hooks       *helpers.RecordingHooks
	logger      *helpers.CaptureLogger
	sim         *simulation.Context

	lastAssigned int
	lastErr      error
	lastSweep    integrity.SweepReport
	completions  map[string]int
	progress     map[string][]float64
	daysEnded    int
}

// InitializeSimulationScenario registers the engine steps and returns the
// context so other step groups can share its world
func InitializeSimulationScenario(sc *godog.ScenarioContext) *SimulationContext {
	s := &SimulationContext{}

	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		s.reset()
		return ctx, nil
	})

	// World
	sc.Step(`^a pharmacy staffed by:$`, s.aPharmacyStaffedBy)
	sc.Step(`^customer "([^"]*)" is "([^"]*)"$`, s.customerIs)
	sc.Step(`^prescription "([^"]*)" (?:is|becomes) unavailable$`, s.prescriptionBecomesUnavailable)

	// Tasks
	sc.Step(`^a (\w+) task "([^"]*)" needing (\d+) minutes$`, s.aTaskNeeding)
	sc.Step(`^a (\w+) task "([^"]*)" needing (\d+) minutes for customer "([^"]*)"$`, s.aTaskForCustomer)
	sc.Step(`^a (\w+) task "([^"]*)" needing (\d+) minutes for prescription "([^"]*)"$`, s.aTaskForPrescription)
	sc.Step(`^a (\w+) task "([^"]*)" needing (\d+) minutes after "([^"]*)"$`, s.aTaskAfter)
	sc.Step(`^the following tasks are added:$`, s.theFollowingTasksAreAdded)
	sc.Step(`^adding another task "([^"]*)" is rejected$`, s.addingAnotherTaskIsRejected)

	// Assignment
	sc.Step(`^(?:an|another) assignment pass runs$`, s.anAssignmentPassRuns)
	sc.Step(`^"([^"]*)" is working on "([^"]*)"$`, s.isWorkingOn)
	sc.Step(`^"([^"]*)" is unassigned manually$`, s.isUnassignedManually)
	sc.Step(`^(\d+) tasks? (?:was|were) assigned$`, s.tasksWereAssigned)
	sc.Step(`^task "([^"]*)" should be assigned to "([^"]*)"$`, s.taskShouldBeAssignedTo)
	sc.Step(`^task "([^"]*)" should be unassigned$`, s.taskShouldBeUnassigned)
	sc.Step(`^task "([^"]*)" should be (PENDING|PENDING_DEPENDENT|IN_PROGRESS)$`, s.taskShouldHaveStatus)
	sc.Step(`^worker "([^"]*)" should be idle$`, s.workerShouldBeIdle)
	sc.Step(`^worker "([^"]*)" should be working on "([^"]*)"$`, s.workerShouldBeWorkingOn)

	// Progress
	sc.Step(`^(\d+(?:\.\d+)?) simulated minutes? pass(?:es)?$`, s.simulatedMinutesPass)
	sc.Step(`^simulated time advances in (\d+) ticks of (\d+(?:\.\d+)?) minutes$`, s.simulatedTimeAdvancesInTicks)
	sc.Step(`^task "([^"]*)" should have progress (\d+(?:\.\d+)?)$`, s.taskShouldHaveProgress)
	sc.Step(`^the progress of "([^"]*)" should never decrease$`, s.progressShouldNeverDecrease)
	sc.Step(`^the progress of "([^"]*)" should never exceed (\d+(?:\.\d+)?)$`, s.progressShouldNeverExceed)
	sc.Step(`^task "([^"]*)" should have completed once$`, s.taskShouldHaveCompletedOnce)
	sc.Step(`^task "([^"]*)" should no longer be tracked$`, s.taskShouldNoLongerBeTracked)
	sc.Step(`^the "([^"]*)" hook should have fired for "([^"]*)"$`, s.hookShouldHaveFiredFor)

	// Integrity
	sc.Step(`^worker "([^"]*)" claims task "([^"]*)" behind the store's back$`, s.workerClaimsTask)
	sc.Step(`^worker "([^"]*)" forgets its task$`, s.workerForgetsItsTask)
	sc.Step(`^an integrity sweep runs$`, s.anIntegritySweepRuns)
	sc.Step(`^the sweep should report (\d+) repairs?$`, s.theSweepShouldReportRepairs)
	sc.Step(`^every assignment should point both ways$`, s.everyAssignmentShouldPointBothWays)
	sc.Step(`^a second integrity sweep should find nothing to repair$`, s.aSecondSweepShouldFindNothing)

	// Clock and driver
	sc.Step(`^the clock reads (\d{2}):(\d{2})$`, s.theClockReads)
	sc.Step(`^the clock should read (\d{2}):(\d{2})$`, s.theClockShouldRead)
	sc.Step(`^the business day should be (open|closed)$`, s.theBusinessDayShouldBe)
	sc.Step(`^the day should have ended (\d+) times?$`, s.theDayShouldHaveEnded)
	sc.Step(`^the simulation is (paused|resumed)$`, s.theSimulationIs)
	sc.Step(`^(\d+) fixed steps? of real time elapses?$`, s.fixedStepsOfRealTimeElapse)

	return s
}

func (s *SimulationContext) reset() {
	s.ctx = context.Background()
	s.wall = shared.NewMockClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	s.staffRows = nil
	s.roster = nil
	s.customers = nil
	s.feasibility = helpers.NewMockFeasibility()
	s.hooks = helpers.NewRecordingHooks()
	s.logger = helpers.NewCaptureLogger()
	s.sim = nil
	s.lastAssigned = 0
	s.lastErr = nil
	s.lastSweep = integrity.SweepReport{}
	s.completions = make(map[string]int)
	s.progress = make(map[string][]float64)
	s.daysEnded = 0
}

// build wires a fresh engine around the staff rows. Workers start idle.
func (s *SimulationContext) build(sessionID string) error {
	workers := make([]*staff.Worker, 0, len(s.staffRows))
	for _, r := range s.staffRows {
		workers = append(workers, staff.NewWorker(r.ID, r.Name, r.Role, r.Skills, r.Morale))
	}
	s.roster = pharmacy.NewRoster(workers...)
	if s.customers == nil {
		s.customers = pharmacy.NewCustomerBook(nil, time.Hour, s.wall)
	}
	s.hooks.Customers = s.customers

	cfg := simulation.DefaultConfig()
	cfg.SessionID = sessionID
	cfg.Driver = simulation.DriverConfig{GameMinute: simulation.DefaultFixedStep, MaxUpdatesPerCall: 10000}
	cfg.AutoStartNextDay = false

	sim, err := simulation.NewContext(cfg, simulation.Dependencies{
		Workers:     s.roster,
		Customers:   s.customers,
		Feasibility: s.feasibility,
		Hooks:       s.hooks,
		Clock:       s.wall,
		Logger:      s.logger,
	})
	if err != nil {
		return err
	}
	s.sim = sim

	sim.TaskEvents().Subscribe("bdd", func(e task.Event) {
		switch ev := e.(type) {
		case task.TaskProgressUpdatedEvent:
			s.progress[ev.TaskID] = append(s.progress[ev.TaskID], ev.Progress)
		case task.TaskCompletedEvent:
			s.completions[ev.Task.ID]++
		}
	})
	sim.ClockEvents().Subscribe("bdd", func(e simulation.ClockEvent) {
		if _, ok := e.(simulation.DayEndedEvent); ok {
			s.daysEnded++
		}
	})
	return nil
}

func (s *SimulationContext) requireSim() error {
	if s.sim == nil {
		return fmt.Errorf("no pharmacy has been set up")
	}
	return nil
}

// World

func (s *SimulationContext) aPharmacyStaffedBy(table *godog.Table) error {
	if len(table.Rows) < 2 {
		return fmt.Errorf("staff table needs a header and at least one row")
	}
	for _, row := range table.Rows[1:] {
		morale := 80.0
		if raw := cellValue(table, row, "morale"); raw != "" {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return fmt.Errorf("invalid morale %q: %w", raw, err)
			}
			morale = v
		}
		id := cellValue(table, row, "id")
		s.staffRows = append(s.staffRows, staff.Record{
			ID:     id,
			Name:   id,
			Role:   cellValue(table, row, "role"),
			Morale: morale,
		})
	}
	return s.build("bdd-session")
}

func (s *SimulationContext) customerIs(customerID, status string) error {
	if err := s.requireSim(); err != nil {
		return err
	}
	if _, err := s.customers.Get(s.ctx, customerID); err != nil {
		s.customers.Add(customer.NewCustomer(customerID, customerID, "rx-"+customerID, time.Hour, s.wall.Now()))
	}
	return s.customers.SetStatus(s.ctx, customerID, customer.Status(status))
}

func (s *SimulationContext) prescriptionBecomesUnavailable(prescriptionID string) error {
	s.feasibility.SetPrescription(prescriptionID, false)
	return nil
}

// Tasks

func (s *SimulationContext) addTask(d task.Descriptor) error {
	if err := s.requireSim(); err != nil {
		return err
	}
	_, err := s.sim.AddTask(s.ctx, d)
	return err
}

func (s *SimulationContext) descriptor(rawType, id string, minutes int) (task.Descriptor, error) {
	taskType, err := task.ParseTaskType(rawType)
	if err != nil {
		return task.Descriptor{}, err
	}
	return task.Descriptor{ID: id, Type: taskType, TotalTime: float64(minutes)}, nil
}

func (s *SimulationContext) aTaskNeeding(rawType, id string, minutes int) error {
	d, err := s.descriptor(rawType, id, minutes)
	if err != nil {
		return err
	}
	return s.addTask(d)
}

func (s *SimulationContext) aTaskForCustomer(rawType, id string, minutes int, customerID string) error {
	d, err := s.descriptor(rawType, id, minutes)
	if err != nil {
		return err
	}
	d.CustomerID = customerID
	return s.addTask(d)
}

func (s *SimulationContext) aTaskForPrescription(rawType, id string, minutes int, prescriptionID string) error {
	d, err := s.descriptor(rawType, id, minutes)
	if err != nil {
		return err
	}
	d.PrescriptionID = prescriptionID
	return s.addTask(d)
}

func (s *SimulationContext) aTaskAfter(rawType, id string, minutes int, dependencyID string) error {
	d, err := s.descriptor(rawType, id, minutes)
	if err != nil {
		return err
	}
	d.DependencyTaskID = dependencyID
	return s.addTask(d)
}

func (s *SimulationContext) theFollowingTasksAreAdded(table *godog.Table) error {
	for _, row := range table.Rows[1:] {
		minutes, err := strconv.Atoi(cellValue(table, row, "minutes"))
		if err != nil {
			return fmt.Errorf("invalid minutes: %w", err)
		}
		d, err := s.descriptor(cellValue(table, row, "type"), cellValue(table, row, "id"), minutes)
		if err != nil {
			return err
		}
		if raw := cellValue(table, row, "priority"); raw != "" {
			d.Priority = task.Priority(raw)
		}
		d.CustomerID = cellValue(table, row, "customer")
		if err := s.addTask(d); err != nil {
			return err
		}
	}
	return nil
}

func (s *SimulationContext) addingAnotherTaskIsRejected(id string) error {
	err := s.addTask(task.Descriptor{ID: id, Type: task.TaskTypeProduction, TotalTime: 1})
	if err == nil {
		return fmt.Errorf("expected duplicate task %s to be rejected", id)
	}
	return nil
}

// Assignment

func (s *SimulationContext) anAssignmentPassRuns() error {
	if err := s.requireSim(); err != nil {
		return err
	}
	s.lastAssigned, s.lastErr = s.sim.Engine().AutoAssign(s.ctx)
	return s.lastErr
}

func (s *SimulationContext) isWorkingOn(workerID, taskID string) error {
	if err := s.requireSim(); err != nil {
		return err
	}
	return s.sim.Engine().Assign(s.ctx, taskID, workerID)
}

func (s *SimulationContext) isUnassignedManually(taskID string) error {
	if err := s.requireSim(); err != nil {
		return err
	}
	return s.sim.Engine().Unassign(s.ctx, taskID)
}

func (s *SimulationContext) tasksWereAssigned(expected int) error {
	if s.lastAssigned != expected {
		return fmt.Errorf("expected %d assignments, got %d", expected, s.lastAssigned)
	}
	return nil
}

func (s *SimulationContext) liveTask(id string) (*task.Task, error) {
	if err := s.requireSim(); err != nil {
		return nil, err
	}
	return s.sim.Store().GetTaskByID(id)
}

func (s *SimulationContext) worker(id string) (*staff.Worker, error) {
	if err := s.requireSim(); err != nil {
		return nil, err
	}
	return s.roster.Get(s.ctx, id)
}

func (s *SimulationContext) taskShouldBeAssignedTo(taskID, workerID string) error {
	t, err := s.liveTask(taskID)
	if err != nil {
		return err
	}
	if t.AssignedTo() != workerID || t.Status() != task.TaskStatusInProgress {
		return fmt.Errorf("expected %s IN_PROGRESS with %s, got %s with %q", taskID, workerID, t.Status(), t.AssignedTo())
	}
	return s.workerShouldBeWorkingOn(workerID, taskID)
}

func (s *SimulationContext) taskShouldBeUnassigned(taskID string) error {
	t, err := s.liveTask(taskID)
	if err != nil {
		return err
	}
	if t.IsAssigned() || t.Status() == task.TaskStatusInProgress {
		return fmt.Errorf("expected %s unassigned, got %s with %q", taskID, t.Status(), t.AssignedTo())
	}
	return nil
}

func (s *SimulationContext) taskShouldHaveStatus(taskID, status string) error {
	t, err := s.liveTask(taskID)
	if err != nil {
		return err
	}
	if string(t.Status()) != status {
		return fmt.Errorf("expected %s to be %s, got %s", taskID, status, t.Status())
	}
	return nil
}

func (s *SimulationContext) workerShouldBeIdle(workerID string) error {
	w, err := s.worker(workerID)
	if err != nil {
		return err
	}
	if !w.IsIdle() {
		return fmt.Errorf("expected %s idle, still holds %s", workerID, w.CurrentTaskID())
	}
	return nil
}

func (s *SimulationContext) workerShouldBeWorkingOn(workerID, taskID string) error {
	w, err := s.worker(workerID)
	if err != nil {
		return err
	}
	if w.CurrentTaskID() != taskID {
		return fmt.Errorf("expected %s working on %s, got %q", workerID, taskID, w.CurrentTaskID())
	}
	return nil
}

// Progress

func (s *SimulationContext) simulatedMinutesPass(minutes float64) error {
	if err := s.requireSim(); err != nil {
		return err
	}
	s.sim.Clock().Advance(s.ctx, minutes)
	return nil
}

func (s *SimulationContext) simulatedTimeAdvancesInTicks(ticks int, minutes float64) error {
	for i := 0; i < ticks; i++ {
		if err := s.simulatedMinutesPass(minutes); err != nil {
			return err
		}
	}
	return nil
}

func (s *SimulationContext) taskShouldHaveProgress(taskID string, expected float64) error {
	t, err := s.liveTask(taskID)
	if err != nil {
		return err
	}
	if !nearlyEqual(t.Progress(), expected) {
		return fmt.Errorf("expected %s progress %.2f, got %.2f", taskID, expected, t.Progress())
	}
	return nil
}

func (s *SimulationContext) progressShouldNeverDecrease(taskID string) error {
	history := s.progress[taskID]
	if len(history) == 0 {
		return fmt.Errorf("no progress recorded for %s", taskID)
	}
	for i := 1; i < len(history); i++ {
		if history[i] < history[i-1] {
			return fmt.Errorf("progress of %s went from %.2f to %.2f", taskID, history[i-1], history[i])
		}
	}
	return nil
}

func (s *SimulationContext) progressShouldNeverExceed(taskID string, limit float64) error {
	for _, p := range s.progress[taskID] {
		if p > limit+1e-9 {
			return fmt.Errorf("progress of %s reached %.2f, above %.2f", taskID, p, limit)
		}
	}
	return nil
}

func (s *SimulationContext) taskShouldHaveCompletedOnce(taskID string) error {
	if n := s.completions[taskID]; n != 1 {
		return fmt.Errorf("expected %s to complete once, completed %d times", taskID, n)
	}
	return nil
}

func (s *SimulationContext) taskShouldNoLongerBeTracked(taskID string) error {
	if _, err := s.liveTask(taskID); err == nil {
		return fmt.Errorf("expected %s to leave the store", taskID)
	}
	return nil
}

func (s *SimulationContext) hookShouldHaveFiredFor(hook, id string) error {
	for _, call := range s.hooks.Named(hook) {
		if call.TaskID == id || call.CustomerID == id || call.WorkerID == id || call.PrescriptionID == id {
			return nil
		}
	}
	return fmt.Errorf("hook %s never fired for %s", hook, id)
}

// Integrity

func (s *SimulationContext) workerClaimsTask(workerID, taskID string) error {
	w, err := s.worker(workerID)
	if err != nil {
		return err
	}
	w.ClearTask()
	if err := w.AssignTask(taskID); err != nil {
		return err
	}
	return s.roster.Save(s.ctx, w)
}

func (s *SimulationContext) workerForgetsItsTask(workerID string) error {
	w, err := s.worker(workerID)
	if err != nil {
		return err
	}
	w.ClearTask()
	return s.roster.Save(s.ctx, w)
}

func (s *SimulationContext) anIntegritySweepRuns() error {
	if err := s.requireSim(); err != nil {
		return err
	}
	s.lastSweep = s.sim.Sweep(s.ctx)
	return nil
}

func (s *SimulationContext) theSweepShouldReportRepairs(expected int) error {
	if got := s.lastSweep.Repairs(); got != expected {
		return fmt.Errorf("expected %d repairs, got %d (%+v)", expected, got, s.lastSweep)
	}
	return nil
}

func (s *SimulationContext) everyAssignmentShouldPointBothWays() error {
	workers, err := s.roster.List(s.ctx)
	if err != nil {
		return err
	}
	for _, w := range workers {
		if w.IsIdle() {
			continue
		}
		t, err := s.sim.Store().GetTaskByID(w.CurrentTaskID())
		if err != nil {
			return fmt.Errorf("worker %s holds missing task %s", w.ID(), w.CurrentTaskID())
		}
		if t.AssignedTo() != w.ID() || t.Status() != task.TaskStatusInProgress {
			return fmt.Errorf("worker %s holds %s which is %s with %q", w.ID(), t.ID(), t.Status(), t.AssignedTo())
		}
	}
	for _, t := range s.sim.Store().GetTasksByStatus(task.TaskStatusInProgress) {
		w, err := s.roster.Get(s.ctx, t.AssignedTo())
		if err != nil {
			return fmt.Errorf("task %s assigned to missing worker %s", t.ID(), t.AssignedTo())
		}
		if w.CurrentTaskID() != t.ID() {
			return fmt.Errorf("task %s assigned to %s who holds %q", t.ID(), w.ID(), w.CurrentTaskID())
		}
	}
	return nil
}

func (s *SimulationContext) aSecondSweepShouldFindNothing() error {
	if err := s.anIntegritySweepRuns(); err != nil {
		return err
	}
	if s.lastSweep.Repairs() != 0 || len(s.lastSweep.Errors) != 0 {
		return fmt.Errorf("second sweep still repaired: %+v", s.lastSweep)
	}
	return nil
}

// Clock and driver

func (s *SimulationContext) theClockReads(hour, minute int) error {
	if err := s.requireSim(); err != nil {
		return err
	}
	now := s.sim.Clock().Now()
	target := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if target.Before(now) {
		return fmt.Errorf("clock already past %02d:%02d", hour, minute)
	}
	s.sim.Clock().Advance(s.ctx, target.Sub(now).Minutes())
	return nil
}

func (s *SimulationContext) theClockShouldRead(hour, minute int) error {
	if err := s.requireSim(); err != nil {
		return err
	}
	want := fmt.Sprintf("%02d:%02d", hour, minute)
	if got := s.sim.Clock().Now().Format("15:04"); got != want {
		return fmt.Errorf("expected clock %s, got %s", want, got)
	}
	return nil
}

func (s *SimulationContext) theBusinessDayShouldBe(state string) error {
	if err := s.requireSim(); err != nil {
		return err
	}
	if open := s.sim.Clock().IsActive(); open != (state == "open") {
		return fmt.Errorf("expected business day %s, active=%v", state, open)
	}
	return nil
}

func (s *SimulationContext) theDayShouldHaveEnded(times int) error {
	if s.daysEnded != times {
		return fmt.Errorf("expected %d day endings, got %d", times, s.daysEnded)
	}
	return nil
}

func (s *SimulationContext) theSimulationIs(state string) error {
	if err := s.requireSim(); err != nil {
		return err
	}
	if state == "paused" {
		s.sim.Pause()
	} else {
		s.sim.Resume()
	}
	return nil
}

func (s *SimulationContext) fixedStepsOfRealTimeElapse(steps int) error {
	if err := s.requireSim(); err != nil {
		return err
	}
	s.sim.Tick(s.ctx, time.Duration(steps)*simulation.DefaultFixedStep)
	return nil
}

// cellValue reads a cell by header name; the first row is the header
func cellValue(table *godog.Table, row *messages.PickleTableRow, column string) string {
	if len(table.Rows) == 0 {
		return ""
	}
	for i, header := range table.Rows[0].Cells {
		if header.Value == column && i < len(row.Cells) {
			return row.Cells[i].Value
		}
	}
	return ""
}

func nearlyEqual(a, b float64) bool {
	d := a - b
	return d < 1e-6 && d > -1e-6
}
