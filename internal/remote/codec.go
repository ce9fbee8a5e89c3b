package remote

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hdu-dev/wordvault/internal/domain"
)

// fieldOwnerID is the document field used for server-side owner filters.
// All other field names live in the struct tags below; this one is also
// needed as a query string.
const fieldOwnerID = "userId"

// itemDocument is the wire shape of a learning item. This is the single
// (de)serialization boundary for item documents: no call site builds or
// parses field names on its own.
type itemDocument struct {
	OwnerID            string      `json:"userId"`
	Term               string      `json:"term"`
	Meaning            string      `json:"meaning"`
	Context            string      `json:"context"`
	ReviewHistory      []time.Time `json:"reviewHistory"`
	NextReviewAt       time.Time   `json:"nextReviewAt"`
	ReviewCount        int         `json:"reviewCount"`
	IsMastered         bool        `json:"isMastered"`
	ErrorCount         int         `json:"errorCount"`
	TotalAttempts      int         `json:"totalAttempts"`
	ConsecutiveCorrect int         `json:"consecutiveCorrect"`
	ConsecutiveWrong   int         `json:"consecutiveWrong"`
	CreatedAt          time.Time   `json:"createdAt"`
	UpdatedAt          time.Time   `json:"updatedAt"`
}

// recordDocument is the wire shape of a study record.
type recordDocument struct {
	OwnerID     string    `json:"userId"`
	ItemID      string    `json:"itemId"`
	Term        string    `json:"term"`
	Correct     bool      `json:"correct"`
	StreakCount int       `json:"streakCount"`
	StudiedAt   time.Time `json:"studiedAt"`
}

// encodeItem maps a learning item snapshot to its wire shape. The item
// ID travels as the document ID, not as a field.
func encodeItem(item *domain.LearningItem) *itemDocument {
	return &itemDocument{
		OwnerID:            item.OwnerID,
		Term:               item.Term,
		Meaning:            item.Meaning,
		Context:            item.Context,
		ReviewHistory:      item.ReviewHistory,
		NextReviewAt:       item.NextReviewAt,
		ReviewCount:        item.ReviewCount,
		IsMastered:         item.IsMastered,
		ErrorCount:         item.ErrorCount,
		TotalAttempts:      item.TotalAttempts,
		ConsecutiveCorrect: item.ConsecutiveCorrect,
		ConsecutiveWrong:   item.ConsecutiveWrong,
		CreatedAt:          item.CreatedAt,
		UpdatedAt:          item.UpdatedAt,
	}
}

// decodeItem parses a remote document back into a learning item.
func decodeItem(doc Document) (*domain.LearningItem, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: document ID %q is not a UUID", domain.ErrInvalidID, doc.ID)
	}

	var fields itemDocument
	if err := json.Unmarshal(doc.Data, &fields); err != nil {
		return nil, fmt.Errorf("decoding item document %s: %w", doc.ID, err)
	}

	item := &domain.LearningItem{
		ID:                 id,
		OwnerID:            fields.OwnerID,
		Term:               fields.Term,
		Meaning:            fields.Meaning,
		Context:            fields.Context,
		ReviewHistory:      fields.ReviewHistory,
		NextReviewAt:       fields.NextReviewAt,
		ReviewCount:        fields.ReviewCount,
		IsMastered:         fields.IsMastered,
		ErrorCount:         fields.ErrorCount,
		TotalAttempts:      fields.TotalAttempts,
		ConsecutiveCorrect: fields.ConsecutiveCorrect,
		ConsecutiveWrong:   fields.ConsecutiveWrong,
		CreatedAt:          fields.CreatedAt,
		UpdatedAt:          fields.UpdatedAt,
	}
	if item.ReviewHistory == nil {
		item.ReviewHistory = []time.Time{}
	}

	if err := item.Validate(); err != nil {
		return nil, fmt.Errorf("decoded item %s: %w", doc.ID, err)
	}

	return item, nil
}

// encodeRecord maps a study record to its wire shape.
func encodeRecord(record *domain.StudyRecord) *recordDocument {
	return &recordDocument{
		OwnerID:     record.OwnerID,
		ItemID:      record.ItemID.String(),
		Term:        record.Term,
		Correct:     record.Correct,
		StreakCount: record.StreakCount,
		StudiedAt:   record.StudiedAt,
	}
}
