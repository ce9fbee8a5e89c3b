package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// StudyRecord validation errors
var (
	ErrRecordIDEmpty     = errors.New("study record ID cannot be empty")
	ErrRecordOwnerEmpty  = errors.New("study record owner ID cannot be empty")
	ErrRecordItemIDEmpty = errors.New("study record item ID cannot be empty")
)

// StudyRecord is an append-only log entry for a single answer event.
// Unlike LearningItem snapshots, records are immutable once created and
// are never coalesced in the write-behind queue: each carries its own
// identity and is submitted exactly once (repeats are idempotent).
type StudyRecord struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     string    `json:"owner_id"`
	ItemID      uuid.UUID `json:"item_id"`
	Term        string    `json:"term"`
	Correct     bool      `json:"correct"`
	StreakCount int       `json:"streak_count"`
	StudiedAt   time.Time `json:"studied_at"`
}

// NewStudyRecord creates a StudyRecord for one answer against an item.
// The streak count captures the item's consecutive-correct streak after
// the answer was applied.
func NewStudyRecord(item *LearningItem, correct bool, studiedAt time.Time) *StudyRecord {
	return &StudyRecord{
		ID:          uuid.New(),
		OwnerID:     item.OwnerID,
		ItemID:      item.ID,
		Term:        item.Term,
		Correct:     correct,
		StreakCount: item.ConsecutiveCorrect,
		StudiedAt:   studiedAt,
	}
}

// Validate checks if the StudyRecord has valid data.
func (r *StudyRecord) Validate() error {
	if r.ID == uuid.Nil {
		return ErrRecordIDEmpty
	}

	if r.OwnerID == "" {
		return ErrRecordOwnerEmpty
	}

	if r.ItemID == uuid.Nil {
		return ErrRecordItemIDEmpty
	}

	return nil
}
