package syncq

import (
	"time"

	"github.com/google/uuid"

	"github.com/hdu-dev/wordvault/internal/domain"
)

// WriteKind identifies the kind of mutation a PendingWrite carries.
type WriteKind string

// Possible write kinds
const (
	// WriteKindUpsert carries a full snapshot of a learning item to be
	// created or updated remotely. Create and update are not
	// distinguished at enqueue time; submission is an idempotent upsert.
	WriteKindUpsert WriteKind = "upsert"

	// WriteKindDelete removes the item's remote document.
	WriteKindDelete WriteKind = "delete"

	// WriteKindRecord appends a study record document. Records carry
	// their own identity and are never coalesced.
	WriteKindRecord WriteKind = "record"
)

// PendingWrite is one queued mutation. It owns a snapshot of the data it
// will submit, taken at enqueue time, so flushing is decoupled from
// concurrent in-memory mutation of the live item.
type PendingWrite struct {
	// ID is the coalescing key: the item ID for upserts and deletes,
	// the record's own ID for study records.
	ID         uuid.UUID
	Kind       WriteKind
	Item       *domain.LearningItem
	Record     *domain.StudyRecord
	EnqueuedAt time.Time
}

// NewUpsert creates a pending write carrying a snapshot of the item.
func NewUpsert(item *domain.LearningItem) *PendingWrite {
	return &PendingWrite{
		ID:         item.ID,
		Kind:       WriteKindUpsert,
		Item:       item.Clone(),
		EnqueuedAt: time.Now().UTC(),
	}
}

// NewDelete creates a pending write that deletes the item's document.
func NewDelete(itemID uuid.UUID) *PendingWrite {
	return &PendingWrite{
		ID:         itemID,
		Kind:       WriteKindDelete,
		EnqueuedAt: time.Now().UTC(),
	}
}

// NewRecord creates a pending write that appends a study record.
func NewRecord(record *domain.StudyRecord) *PendingWrite {
	return &PendingWrite{
		ID:         record.ID,
		Kind:       WriteKindRecord,
		Record:     record,
		EnqueuedAt: time.Now().UTC(),
	}
}
