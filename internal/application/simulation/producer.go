package simulation

import (
	"context"
	"math/rand/v2"
	"time"

	"golang.org/x/time/rate"

	"github.com/andrescamacho/pharmasim-go/internal/application/common"
	"github.com/andrescamacho/pharmasim-go/internal/application/events"
	"github.com/andrescamacho/pharmasim-go/internal/domain/customer"
	"github.com/andrescamacho/pharmasim-go/internal/domain/task"
	"github.com/andrescamacho/pharmasim-go/pkg/utils"
)

// Arrival describes a customer admitted to the counter
type Arrival struct {
	CustomerID     string
	PrescriptionID string
}

// CustomerIntake admits new customers with a prescription
type CustomerIntake interface {
	Admit(ctx context.Context, at time.Time) (Arrival, error)
}

// Stockroom answers the producer's stock questions
type Stockroom interface {
	// CompoundingNeeded reports the product that must be compounded before prescriptionID can be filled
	CompoundingNeeded(ctx context.Context, prescriptionID string) (productID string, needed bool, err error)
	// ProductionNeeded lists products whose shelf stock is below target
	ProductionNeeded(ctx context.Context) ([]string, error)
	// AutoOrder restocks raw materials and returns the number of lines ordered
	AutoOrder(ctx context.Context) (int, error)
	// DailySummary describes the business day for the closing log
	DailySummary(ctx context.Context) map[string]interface{}
}

// Waitroom tracks how long customers are willing to wait
type Waitroom interface {
	// Impatient lists waiting customers whose patience has run out
	Impatient(ctx context.Context) ([]string, error)
	// WalkOut records that a customer left without being served
	WalkOut(ctx context.Context, customerID string) error
}

// ProducerConfig paces customer arrivals
type ProducerConfig struct {
	MinArrivalGap    time.Duration // Simulated time between arrivals at most one per gap (default 4m)
	ArrivalChance    float64       // Per-minute arrival probability once the limiter allows (default 0.35)
	MaxOpenCustomers int           // Arrivals pause while this many customers have open tasks (default 12)
	Seed             uint64
}

func (c ProducerConfig) withDefaults() ProducerConfig {
	if c.MinArrivalGap <= 0 {
		c.MinArrivalGap = 4 * time.Minute
	}
	if c.ArrivalChance <= 0 || c.ArrivalChance > 1 {
		c.ArrivalChance = 0.35
	}
	if c.MaxOpenCustomers <= 0 {
		c.MaxOpenCustomers = 12
	}
	return c
}

// ArrivalProducer feeds the engine: it admits customers during open hours
// and creates the follow-up task for every stage of their visit.
type ArrivalProducer struct {
	sim       *Context
	intake    CustomerIntake
	stock     Stockroom
	customers customer.Directory
	waitroom  Waitroom
	cfg       ProducerConfig
	limiter   *rate.Limiter
	rng       *rand.Rand
	logger    common.Logger

	arrivals int
	served   int
	walkouts int

	clockSub events.Subscription
	taskSub  events.Subscription
}

// NewArrivalProducer creates a producer; call Attach to start receiving events
func NewArrivalProducer(sim *Context, intake CustomerIntake, stock Stockroom, customers customer.Directory, waitroom Waitroom, cfg ProducerConfig, logger common.Logger) *ArrivalProducer {
	cfg = cfg.withDefaults()
	return &ArrivalProducer{
		sim:       sim,
		intake:    intake,
		stock:     stock,
		customers: customers,
		waitroom:  waitroom,
		cfg:       cfg,
		limiter:   rate.NewLimiter(rate.Every(cfg.MinArrivalGap), 1),
		rng:       rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		logger:    common.OrNoOp(logger),
	}
}

func (p *ArrivalProducer) Arrivals() int { return p.arrivals }
func (p *ArrivalProducer) Served() int   { return p.served }
func (p *ArrivalProducer) Walkouts() int { return p.walkouts }

// Attach subscribes the producer to clock and task events
func (p *ArrivalProducer) Attach(ctx context.Context) {
	p.clockSub = p.sim.ClockEvents().Subscribe("arrival-producer", func(e ClockEvent) {
		switch ev := e.(type) {
		case MinuteElapsedEvent:
			p.dismissImpatient(ctx)
			p.maybeAdmit(ctx, ev.At)
		case HourElapsedEvent:
			p.hourly(ctx)
		case DayEndedEvent:
			p.closeDay(ctx, ev)
		}
	})
	p.taskSub = p.sim.TaskEvents().Subscribe("arrival-producer", func(e task.Event) {
		if ev, ok := e.(task.TaskCompletedEvent); ok {
			p.onCompleted(ctx, ev)
		}
	})
}

// Detach removes the producer's subscriptions
func (p *ArrivalProducer) Detach() {
	p.sim.ClockEvents().Unsubscribe(p.clockSub)
	p.sim.TaskEvents().Unsubscribe(p.taskSub)
}

func (p *ArrivalProducer) maybeAdmit(ctx context.Context, at time.Time) {
	if !p.sim.Clock().IsActive() || p.openCustomers() >= p.cfg.MaxOpenCustomers {
		return
	}
	if p.rng.Float64() >= p.cfg.ArrivalChance || !p.limiter.AllowN(at, 1) {
		return
	}
	arrival, err := p.intake.Admit(ctx, at)
	if err != nil {
		p.logger.Log(common.LevelWarning, "Customer admission failed", map[string]interface{}{"error": err.Error()})
		return
	}
	p.arrivals++
	p.addTask(ctx, task.Descriptor{
		Type:           task.TaskTypeCustomerInteraction,
		Priority:       task.PriorityNormal,
		CustomerID:     arrival.CustomerID,
		PrescriptionID: arrival.PrescriptionID,
	})
}

// dismissImpatient lets customers whose patience ran out leave, unless one of
// their tasks is being worked on. Their remaining tasks are cancelled.
func (p *ArrivalProducer) dismissImpatient(ctx context.Context) {
	if p.waitroom == nil {
		return
	}
	ids, err := p.waitroom.Impatient(ctx)
	if err != nil {
		p.logger.Log(common.LevelWarning, "Patience check failed", map[string]interface{}{"error": err.Error()})
		return
	}
	for _, id := range ids {
		if p.beingServed(id) {
			continue
		}
		if err := p.waitroom.WalkOut(ctx, id); err != nil {
			p.logger.Log(common.LevelWarning, "Customer walkout failed", map[string]interface{}{
				"customer_id": id,
				"error":       err.Error(),
			})
			continue
		}
		p.walkouts++
		cancelled := p.sim.Store().CancelCustomerTasks(ctx, id, "customer walked out")
		p.logger.Log(common.LevelWarning, "Customer walked out", map[string]interface{}{
			"customer_id":     id,
			"tasks_cancelled": cancelled,
		})
	}
}

func (p *ArrivalProducer) beingServed(customerID string) bool {
	for _, t := range p.sim.Store().GetTasksForCustomer(customerID) {
		if t.IsInProgress() {
			return true
		}
	}
	return false
}

func (p *ArrivalProducer) onCompleted(ctx context.Context, ev task.TaskCompletedEvent) {
	t := ev.Task
	switch task.TaskType(t.Type) {
	case task.TaskTypeCustomerInteraction:
		status, ok := p.customerStatus(ctx, t.CustomerID)
		if !ok {
			return
		}
		switch status {
		case customer.StatusAwaitingConsultation:
			p.addTask(ctx, task.Descriptor{
				Type:           task.TaskTypeConsultation,
				Priority:       task.PriorityNormal,
				CustomerID:     t.CustomerID,
				PrescriptionID: t.PrescriptionID,
			})
		case customer.StatusDeparted:
			p.served++
		}
	case task.TaskTypeConsultation:
		p.queueFill(ctx, t)
	case task.TaskTypeFillPrescription:
		if status, ok := p.customerStatus(ctx, t.CustomerID); ok && status == customer.StatusReadyForCheckout {
			p.addTask(ctx, task.Descriptor{
				Type:           task.TaskTypeCustomerInteraction,
				Priority:       task.PriorityHigh,
				CustomerID:     t.CustomerID,
				PrescriptionID: t.PrescriptionID,
			})
		}
	}
}

// queueFill creates the fill task, preceded by a compound task when shelf stock cannot cover it
func (p *ArrivalProducer) queueFill(ctx context.Context, consult task.Record) {
	fill := task.Descriptor{
		Type:           task.TaskTypeFillPrescription,
		Priority:       task.PriorityNormal,
		CustomerID:     consult.CustomerID,
		PrescriptionID: consult.PrescriptionID,
	}
	productID, needed, err := p.stock.CompoundingNeeded(ctx, consult.PrescriptionID)
	if err != nil {
		p.logger.Log(common.LevelWarning, "Compounding check failed", map[string]interface{}{
			"prescription_id": consult.PrescriptionID,
			"error":           err.Error(),
		})
	}
	if needed {
		compound := p.addTask(ctx, task.Descriptor{
			Type:           task.TaskTypeCompound,
			Priority:       task.PriorityHigh,
			CustomerID:     consult.CustomerID,
			PrescriptionID: consult.PrescriptionID,
			ProductID:      productID,
		})
		if compound != nil {
			fill.DependencyTaskID = compound.ID()
		}
	}
	p.addTask(ctx, fill)
}

func (p *ArrivalProducer) hourly(ctx context.Context) {
	if ordered, err := p.stock.AutoOrder(ctx); err != nil {
		p.logger.Log(common.LevelWarning, "Auto-order failed", map[string]interface{}{"error": err.Error()})
	} else if ordered > 0 {
		p.logger.Log(common.LevelInfo, "Materials auto-ordered", map[string]interface{}{"lines": ordered})
	}

	if !p.sim.Clock().IsActive() {
		return
	}
	products, err := p.stock.ProductionNeeded(ctx)
	if err != nil {
		p.logger.Log(common.LevelWarning, "Production check failed", map[string]interface{}{"error": err.Error()})
		return
	}
	for _, productID := range products {
		if p.productionQueued(productID) {
			continue
		}
		p.addTask(ctx, task.Descriptor{
			Type:      task.TaskTypeProduction,
			Priority:  task.PriorityLow,
			ProductID: productID,
		})
	}
}

func (p *ArrivalProducer) closeDay(ctx context.Context, ev DayEndedEvent) {
	summary := p.stock.DailySummary(ctx)
	if summary == nil {
		summary = make(map[string]interface{})
	}
	summary["day"] = ev.Day
	summary["arrivals"] = p.arrivals
	summary["served"] = p.served
	summary["walkouts"] = p.walkouts
	summary["open_tasks"] = p.sim.Store().Count()
	p.logger.Log(common.LevelInfo, "Day summary", summary)
}

func (p *ArrivalProducer) productionQueued(productID string) bool {
	for _, t := range p.sim.Store().All() {
		if t.Type() == task.TaskTypeProduction && t.ProductID() == productID {
			return true
		}
	}
	return false
}

func (p *ArrivalProducer) openCustomers() int {
	seen := make(map[string]struct{})
	for _, t := range p.sim.Store().All() {
		if t.CustomerID() != "" {
			seen[t.CustomerID()] = struct{}{}
		}
	}
	return len(seen)
}

func (p *ArrivalProducer) customerStatus(ctx context.Context, id string) (customer.Status, bool) {
	if id == "" || p.customers == nil {
		return "", false
	}
	c, err := p.customers.Get(ctx, id)
	if err != nil {
		return "", false
	}
	return c.Status(), true
}

func (p *ArrivalProducer) addTask(ctx context.Context, d task.Descriptor) *task.Task {
	t, err := p.sim.AddTask(ctx, d)
	if err != nil {
		p.logger.Log(common.LevelError, "Failed to add task", map[string]interface{}{
			"type":        string(d.Type),
			"customer_id": d.CustomerID,
			"error":       err.Error(),
		})
		return nil
	}
	p.logger.Log(common.LevelDebug, "Task queued", map[string]interface{}{
		"task_id": utils.ShortID(t.ID()),
		"type":    string(t.Type()),
	})
	return t
}
