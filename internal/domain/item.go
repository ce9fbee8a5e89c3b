package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LearningItem-specific validation errors
var (
	// ErrItemIDEmpty is returned when an item ID is empty or nil.
	ErrItemIDEmpty = errors.New("item ID cannot be empty")

	// ErrItemOwnerEmpty is returned when an item's owner ID is empty.
	ErrItemOwnerEmpty = errors.New("item owner ID cannot be empty")

	// ErrItemTermEmpty is returned when an item's term is empty.
	ErrItemTermEmpty = errors.New("item term cannot be empty")

	// ErrItemMeaningEmpty is returned when an item's meaning is empty.
	ErrItemMeaningEmpty = errors.New("item meaning cannot be empty")
)

// LearningItem is one tracked vocabulary entry. An item enters the system
// because the learner answered it incorrectly somewhere, so a freshly
// created item already carries one error and one attempt.
//
// Term, Meaning and Context are opaque to the scheduling core; they are
// stored and forwarded as-is.
type LearningItem struct {
	ID      uuid.UUID `json:"id"`
	OwnerID string    `json:"owner_id"`
	Term    string    `json:"term"`
	Meaning string    `json:"meaning"`
	Context string    `json:"context"`

	// Schedule state. ReviewHistory is append-only and ReviewCount always
	// equals len(ReviewHistory).
	ReviewHistory []time.Time `json:"review_history"`
	NextReviewAt  time.Time   `json:"next_review_at"`
	ReviewCount   int         `json:"review_count"`

	// Mastery state. Exactly one of ConsecutiveCorrect/ConsecutiveWrong is
	// non-zero at any time.
	IsMastered         bool `json:"is_mastered"`
	ErrorCount         int  `json:"error_count"`
	TotalAttempts      int  `json:"total_attempts"`
	ConsecutiveCorrect int  `json:"consecutive_correct"`
	ConsecutiveWrong   int  `json:"consecutive_wrong"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewLearningItem creates a new LearningItem for the given owner. The item
// is due immediately and starts with one recorded error, mirroring how
// items enter the wrong-word book.
// Returns an error if validation fails.
func NewLearningItem(ownerID, term, meaning, context string) (*LearningItem, error) {
	now := time.Now().UTC()
	item := &LearningItem{
		ID:                 uuid.New(),
		OwnerID:            ownerID,
		Term:               term,
		Meaning:            meaning,
		Context:            context,
		ReviewHistory:      []time.Time{},
		NextReviewAt:       now,
		ReviewCount:        0,
		IsMastered:         false,
		ErrorCount:         1,
		TotalAttempts:      1,
		ConsecutiveCorrect: 0,
		ConsecutiveWrong:   1,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := item.Validate(); err != nil {
		return nil, err
	}

	return item, nil
}

// Validate checks if the LearningItem has valid data.
// Returns an error if any field fails validation.
func (i *LearningItem) Validate() error {
	if i.ID == uuid.Nil {
		return ErrItemIDEmpty
	}

	if i.OwnerID == "" {
		return ErrItemOwnerEmpty
	}

	if i.Term == "" {
		return ErrItemTermEmpty
	}

	if i.Meaning == "" {
		return ErrItemMeaningEmpty
	}

	return nil
}

// CheckInvariants verifies the counter relationships the mastery state
// machine maintains. A failure here is a programming defect; callers
// should treat it as fatal in tests and log it loudly in production.
func (i *LearningItem) CheckInvariants() error {
	if i.ErrorCount < 0 || i.TotalAttempts < i.ErrorCount {
		return fmt.Errorf("%w: totalAttempts=%d errorCount=%d",
			ErrInvariantViolation, i.TotalAttempts, i.ErrorCount)
	}

	if i.ReviewCount != len(i.ReviewHistory) {
		return fmt.Errorf("%w: reviewCount=%d history=%d",
			ErrInvariantViolation, i.ReviewCount, len(i.ReviewHistory))
	}

	if i.ConsecutiveCorrect < 0 || i.ConsecutiveWrong < 0 {
		return fmt.Errorf("%w: consecutiveCorrect=%d consecutiveWrong=%d",
			ErrInvariantViolation, i.ConsecutiveCorrect, i.ConsecutiveWrong)
	}

	if i.ConsecutiveCorrect > 0 && i.ConsecutiveWrong > 0 {
		return fmt.Errorf("%w: both streak counters non-zero (%d/%d)",
			ErrInvariantViolation, i.ConsecutiveCorrect, i.ConsecutiveWrong)
	}

	return nil
}

// ErrorRate returns the fraction of attempts that were errors, in [0, 1].
func (i *LearningItem) ErrorRate() float64 {
	if i.TotalAttempts == 0 {
		return 0
	}
	return float64(i.ErrorCount) / float64(i.TotalAttempts)
}

// CorrectRate returns 1 - ErrorRate.
func (i *LearningItem) CorrectRate() float64 {
	if i.TotalAttempts == 0 {
		return 0
	}
	return 1 - i.ErrorRate()
}

// Clone returns a deep copy of the item. The scheduling core hands out
// clones so callers can never mutate the coordinator-owned collection.
func (i *LearningItem) Clone() *LearningItem {
	clone := *i
	clone.ReviewHistory = make([]time.Time, len(i.ReviewHistory))
	copy(clone.ReviewHistory, i.ReviewHistory)
	return &clone
}
