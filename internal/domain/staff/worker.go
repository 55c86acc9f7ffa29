package staff

import (
	"context"

	"github.com/andrescamacho/pharmasim-go/pkg/utils"
)

// Skill names understood by the scoring function
const (
	SkillCompounding     = "compounding"
	SkillCustomerService = "customerService"
	SkillPharmacology    = "pharmacology"
	SkillAccuracy        = "accuracy"
)

// Worker is a staff member able to hold at most one task at a time.
//
// The worker only keeps a lookup back-reference to its current task id; the
// task store owns the task itself. The back-reference is written by the
// assignment binder and repaired by the integrity sweep.
type Worker struct {
	id            string
	name          string
	rawRole       string
	role          Role
	skills        map[string]float64
	morale        float64
	currentTaskID string
}

// NewWorker creates a worker from possibly free-form role input.
// The role is parsed lazily by NormalizeRole so bad roster data does not
// prevent loading the rest of the roster.
func NewWorker(id, name, rawRole string, skills map[string]float64, morale float64) *Worker {
	copied := make(map[string]float64, len(skills))
	for k, v := range skills {
		copied[k] = utils.ClampFloat(v, 0, 100)
	}
	w := &Worker{
		id:      id,
		name:    name,
		rawRole: rawRole,
		skills:  copied,
		morale:  utils.ClampFloat(morale, 0, 100),
	}
	if role, err := ParseRole(rawRole); err == nil {
		w.role = role
	}
	return w
}

// Getters

func (w *Worker) ID() string            { return w.id }
func (w *Worker) Name() string          { return w.name }
func (w *Worker) RawRole() string       { return w.rawRole }
func (w *Worker) Role() Role            { return w.role }
func (w *Worker) Morale() float64       { return w.morale }
func (w *Worker) CurrentTaskID() string { return w.currentTaskID }
func (w *Worker) IsIdle() bool          { return w.currentTaskID == "" }

// Skill returns the named skill score, 0 when the worker lacks it
func (w *Worker) Skill(name string) float64 {
	return w.skills[name]
}

// Skills returns a copy of the skill map
func (w *Worker) Skills() map[string]float64 {
	out := make(map[string]float64, len(w.skills))
	for k, v := range w.skills {
		out[k] = v
	}
	return out
}

// AverageSkill returns the mean of all skill scores, 0 with no skills
func (w *Worker) AverageSkill() float64 {
	if len(w.skills) == 0 {
		return 0
	}
	total := 0.0
	for _, v := range w.skills {
		total += v
	}
	return total / float64(len(w.skills))
}

// NormalizeRole re-parses the raw role and stores the canonical value.
func (w *Worker) NormalizeRole() (Role, error) {
	role, err := ParseRole(w.rawRole)
	if err != nil {
		w.role = ""
		return "", err
	}
	w.role = role
	return role, nil
}

// SetRawRole replaces the free-form role, e.g. on promotion
func (w *Worker) SetRawRole(raw string) {
	w.rawRole = raw
	w.role = ""
	_, _ = w.NormalizeRole()
}

// AdjustMorale shifts morale by delta, clamped to 0..100
func (w *Worker) AdjustMorale(delta float64) {
	w.morale = utils.ClampFloat(w.morale+delta, 0, 100)
}

// AssignTask sets the back-reference. A worker holding a different task must
// be cleared first.
func (w *Worker) AssignTask(taskID string) error {
	if w.currentTaskID != "" && w.currentTaskID != taskID {
		return &ErrWorkerBusy{WorkerID: w.id, CurrentTaskID: w.currentTaskID}
	}
	w.currentTaskID = taskID
	return nil
}

// ClearTask drops the back-reference
func (w *Worker) ClearTask() {
	w.currentTaskID = ""
}

// Record is the plain structured form used by persistence and scenario files
type Record struct {
	ID            string             `yaml:"id" json:"id"`
	Name          string             `yaml:"name" json:"name"`
	Role          string             `yaml:"role" json:"role"`
	Skills        map[string]float64 `yaml:"skills" json:"skills"`
	Morale        float64            `yaml:"morale" json:"morale"`
	CurrentTaskID string             `yaml:"current_task_id,omitempty" json:"current_task_id,omitempty"`
}

// ToRecord exports the worker state
func (w *Worker) ToRecord() Record {
	return Record{
		ID:            w.id,
		Name:          w.name,
		Role:          w.rawRole,
		Skills:        w.Skills(),
		Morale:        w.morale,
		CurrentTaskID: w.currentTaskID,
	}
}

// FromRecord rebuilds a worker, including its task back-reference
func FromRecord(r Record) *Worker {
	w := NewWorker(r.ID, r.Name, r.Role, r.Skills, r.Morale)
	w.currentTaskID = r.CurrentTaskID
	return w
}

// Directory is the worker pool the scheduling core consumes.
// Returned workers are live entities; Save persists changes made through
// their methods.
type Directory interface {
	List(ctx context.Context) ([]*Worker, error)
	Get(ctx context.Context, workerID string) (*Worker, error)
	Save(ctx context.Context, worker *Worker) error
}
