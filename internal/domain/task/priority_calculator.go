package task

import (
	"github.com/andrescamacho/pharmasim-go/internal/domain/customer"
)

// Global ordering ranks, lower is served first
const (
	RankCheckout         = 0
	RankCheckIn          = 1
	RankConsultation     = 2
	RankFillPrescription = 3
	RankCompound         = 4
	RankProduction       = 5
	RankOtherInteraction = 6
	RankUnknown          = 99
)

// InteractionStage classifies a customer interaction by the customer's status
type InteractionStage string

const (
	StageCheckIn  InteractionStage = "CHECK_IN"
	StageCheckout InteractionStage = "CHECKOUT"
	StageGeneral  InteractionStage = "GENERAL"
)

// StageFor derives the interaction stage from the linked customer's status.
// An empty status (no customer or customer unknown) is a general interaction.
func StageFor(status customer.Status) InteractionStage {
	switch status {
	case customer.StatusAwaitingCheckIn:
		return StageCheckIn
	case customer.StatusReadyForCheckout:
		return StageCheckout
	default:
		return StageGeneral
	}
}

// PriorityCalculator ranks tasks for the assignment pass.
// Contextual rules (customer stage) override the producer's priority hint.
type PriorityCalculator struct{}

// NewPriorityCalculator creates a calculator
func NewPriorityCalculator() *PriorityCalculator {
	return &PriorityCalculator{}
}

// Rank returns the global ordering rank for t given its customer's status
func (c *PriorityCalculator) Rank(t *Task, customerStatus customer.Status) int {
	switch t.Type() {
	case TaskTypeCustomerInteraction:
		switch StageFor(customerStatus) {
		case StageCheckout:
			return RankCheckout
		case StageCheckIn:
			return RankCheckIn
		default:
			return RankOtherInteraction
		}
	case TaskTypeConsultation:
		return RankConsultation
	case TaskTypeFillPrescription:
		return RankFillPrescription
	case TaskTypeCompound:
		return RankCompound
	case TaskTypeProduction:
		return RankProduction
	default:
		return RankUnknown
	}
}

// Less orders a before b: rank, then priority hint, then creation sequence
func (c *PriorityCalculator) Less(a *Task, aRank int, b *Task, bRank int) bool {
	if aRank != bRank {
		return aRank < bRank
	}
	if a.Priority().Rank() != b.Priority().Rank() {
		return a.Priority().Rank() < b.Priority().Rank()
	}
	if a.Sequence() != b.Sequence() {
		return a.Sequence() < b.Sequence()
	}
	return a.ID() < b.ID()
}
