package assignment

import (
	"github.com/andrescamacho/pharmasim-go/internal/domain/staff"
	"github.com/andrescamacho/pharmasim-go/internal/domain/task"
)

// ScoreBreakdown itemizes a worker's score for one task
type ScoreBreakdown struct {
	Efficiency  float64
	SkillBonus  float64
	MoraleBonus float64
	Continuity  float64
	PrimaryRole float64
}

// Total sums every component
func (b ScoreBreakdown) Total() float64 {
	return b.Efficiency + b.SkillBonus + b.MoraleBonus + b.Continuity + b.PrimaryRole
}

// Scorer rates how well a worker fits a task
type Scorer struct {
	cfg Config
}

// NewScorer creates a scorer with the given weights
func NewScorer(cfg Config) *Scorer {
	return &Scorer{cfg: cfg.withDefaults()}
}

// Score rates w for t. continuity is true when w completed the task t depends on.
func (s *Scorer) Score(w *staff.Worker, t *task.Task, continuity bool) ScoreBreakdown {
	morale := w.Morale() / 100
	moraleFactor := s.cfg.MoraleFactorMin + (s.cfg.MoraleFactorMax-s.cfg.MoraleFactorMin)*morale

	b := ScoreBreakdown{
		Efficiency:  w.AverageSkill() * moraleFactor,
		SkillBonus:  w.Skill(TaskSkill(t.Type())) * s.cfg.TaskSkillMultiplier,
		MoraleBonus: morale * s.cfg.MoraleBonusMax,
	}
	if continuity {
		b.Continuity = s.cfg.ContinuityBonus
	}
	if w.Role() == task.CanonicalRole(t.Type()) {
		b.PrimaryRole = s.cfg.PrimaryRoleBonus
	}
	return b
}

// TaskSkill names the skill that speeds up a task type
func TaskSkill(t task.TaskType) string {
	switch t {
	case task.TaskTypeCompound, task.TaskTypeProduction:
		return staff.SkillCompounding
	case task.TaskTypeCustomerInteraction:
		return staff.SkillCustomerService
	case task.TaskTypeConsultation:
		return staff.SkillPharmacology
	case task.TaskTypeFillPrescription:
		return staff.SkillAccuracy
	default:
		return ""
	}
}

// RolePreferences returns acceptable roles for t in preference order.
// An explicit roleNeeded on the task is tried first. Check-in and checkout
// interactions fall back to any role so the counter never stalls.
func RolePreferences(t *task.Task, stage task.InteractionStage) []staff.Role {
	var defaults []staff.Role
	switch t.Type() {
	case task.TaskTypeCustomerInteraction:
		if stage == task.StageCheckIn || stage == task.StageCheckout {
			defaults = []staff.Role{staff.RoleCashier, staff.RoleAssistant, staff.RoleTechnician, staff.RolePharmacist}
		} else {
			defaults = []staff.Role{staff.RoleCashier, staff.RoleAssistant}
		}
	case task.TaskTypeConsultation:
		defaults = []staff.Role{staff.RolePharmacist}
	case task.TaskTypeFillPrescription:
		defaults = []staff.Role{staff.RolePharmacist, staff.RoleTechnician}
	case task.TaskTypeCompound:
		defaults = []staff.Role{staff.RoleTechnician, staff.RolePharmacist}
	case task.TaskTypeProduction:
		defaults = []staff.Role{staff.RoleTechnician, staff.RoleAssistant}
	default:
		defaults = staff.AllRoles
	}

	prefs := make([]staff.Role, 0, len(defaults)+1)
	if t.RoleNeeded().IsValid() {
		prefs = append(prefs, t.RoleNeeded())
	}
	for _, r := range defaults {
		if !containsRole(prefs, r) {
			prefs = append(prefs, r)
		}
	}
	return prefs
}

func containsRole(roles []staff.Role, r staff.Role) bool {
	for _, existing := range roles {
		if existing == r {
			return true
		}
	}
	return false
}
