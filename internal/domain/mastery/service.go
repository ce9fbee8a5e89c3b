// Package mastery implements the per-item mastery state machine: streak
// counters, attempt totals and the mastered flag, driven by answer
// outcomes. Updates follow immutability principles and return new
// LearningItem instances rather than mutating the input.
package mastery

import (
	"errors"
	"time"

	"github.com/hdu-dev/wordvault/internal/domain"
)

// Common errors
var (
	ErrNilItem          = errors.New("learning item cannot be nil")
	ErrInvalidThreshold = errors.New("mastery threshold must be at least 1")
)

// Service defines the interface for mastery state transitions.
type Service interface {
	// ApplyAnswer computes the item's next state after a correct or
	// incorrect answer recorded at `now`.
	ApplyAnswer(item *domain.LearningItem, correct bool, now time.Time) (*domain.LearningItem, error)

	// MarkMastered sets the mastered flag without touching any counters.
	// Used when a learner manually confirms mastery.
	MarkMastered(item *domain.LearningItem, now time.Time) (*domain.LearningItem, error)

	// MarkUnmastered clears the mastered flag without touching any
	// counters. Used when a learner revokes a manual confirmation.
	MarkUnmastered(item *domain.LearningItem, now time.Time) (*domain.LearningItem, error)

	// ResetProgress clears the item's schedule progress: review count,
	// streaks and the mastered flag, making the item due immediately.
	// Error and attempt totals are kept for statistics.
	ResetProgress(item *domain.LearningItem, now time.Time) (*domain.LearningItem, error)
}

// Params configures the mastery state machine.
type Params struct {
	// MasteryThreshold is the consecutive-correct streak at which an
	// item is automatically promoted to mastered.
	MasteryThreshold int
}

// DefaultMasteryThreshold is the streak length that promotes an item.
const DefaultMasteryThreshold = 3

// NewDefaultParams returns the standard parameters.
func NewDefaultParams() *Params {
	return &Params{MasteryThreshold: DefaultMasteryThreshold}
}

type defaultService struct {
	params *Params
}

// NewDefaultService creates a mastery service with default parameters.
func NewDefaultService() Service {
	return &defaultService{params: NewDefaultParams()}
}

// NewServiceWithParams creates a mastery service with custom parameters.
// Returns an error if the parameters are invalid.
func NewServiceWithParams(params *Params) (Service, error) {
	if params == nil || params.MasteryThreshold < 1 {
		return nil, ErrInvalidThreshold
	}
	return &defaultService{params: params}, nil
}

// ApplyAnswer implements the Service interface.
func (s *defaultService) ApplyAnswer(
	item *domain.LearningItem,
	correct bool,
	now time.Time,
) (*domain.LearningItem, error) {
	if item == nil {
		return nil, ErrNilItem
	}

	if correct {
		return applyCorrect(item, now, s.params), nil
	}
	return applyIncorrect(item, now), nil
}

// MarkMastered implements the Service interface.
func (s *defaultService) MarkMastered(
	item *domain.LearningItem,
	now time.Time,
) (*domain.LearningItem, error) {
	if item == nil {
		return nil, ErrNilItem
	}

	next := item.Clone()
	next.IsMastered = true
	next.UpdatedAt = now
	return next, nil
}

// MarkUnmastered implements the Service interface.
func (s *defaultService) MarkUnmastered(
	item *domain.LearningItem,
	now time.Time,
) (*domain.LearningItem, error) {
	if item == nil {
		return nil, ErrNilItem
	}

	next := item.Clone()
	next.IsMastered = false
	next.UpdatedAt = now
	return next, nil
}

// ResetProgress implements the Service interface.
func (s *defaultService) ResetProgress(
	item *domain.LearningItem,
	now time.Time,
) (*domain.LearningItem, error) {
	if item == nil {
		return nil, ErrNilItem
	}

	next := item.Clone()
	next.IsMastered = false
	next.ReviewCount = 0
	next.ReviewHistory = []time.Time{}
	next.ConsecutiveCorrect = 0
	next.ConsecutiveWrong = 0
	next.NextReviewAt = now
	next.UpdatedAt = now
	return next, nil
}
