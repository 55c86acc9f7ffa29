package task

// ReadinessConditions holds the external state needed to decide assignability.
type ReadinessConditions struct {
	Feasible       bool // Stock check passed for resource-gated types
	DependencyOpen bool // Dependency task exists and has not completed
}

// AssignmentReadinessSpecification encapsulates the rules for binding a task.
type AssignmentReadinessSpecification struct{}

// NewAssignmentReadinessSpecification creates a new specification.
func NewAssignmentReadinessSpecification() *AssignmentReadinessSpecification {
	return &AssignmentReadinessSpecification{}
}

// CanAssign returns true if t may be bound to an idle worker now.
func (s *AssignmentReadinessSpecification) CanAssign(t *Task, cond ReadinessConditions) bool {
	if !t.IsAssignable() {
		return false
	}
	if t.DependencyTaskID() != "" && cond.DependencyOpen {
		return false
	}
	if t.Type().IsResourceGated() {
		return cond.Feasible
	}
	return true
}

// CanContinue returns true if an IN_PROGRESS task may keep accumulating progress.
func (s *AssignmentReadinessSpecification) CanContinue(t *Task, cond ReadinessConditions) bool {
	if !t.IsInProgress() {
		return false
	}
	if t.Type().IsResourceGated() {
		return cond.Feasible
	}
	return true
}

// CanActivate returns true if a PENDING_DEPENDENT task may become PENDING.
func (s *AssignmentReadinessSpecification) CanActivate(t *Task, cond ReadinessConditions) bool {
	return t.Status() == TaskStatusPendingDependent && !cond.DependencyOpen
}
