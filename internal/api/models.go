package api

import (
	"time"

	"github.com/hdu-dev/wordvault/internal/domain"
	"github.com/hdu-dev/wordvault/internal/review"
	"github.com/hdu-dev/wordvault/internal/syncq"
)

// CreateItemRequest is the request body for adding a learning item.
type CreateItemRequest struct {
	Term    string `json:"term"    validate:"required"`
	Meaning string `json:"meaning" validate:"required"`
	Context string `json:"context"`
}

// AnswerRequest is the request body for recording an answer.
// Correct is a pointer so a missing field fails validation instead of
// silently defaulting to incorrect.
type AnswerRequest struct {
	Correct *bool `json:"correct" validate:"required"`
}

// ItemResponse is the wire shape of a learning item returned to the UI:
// plain data only, including the derived rates.
type ItemResponse struct {
	ID                 string    `json:"id"`
	Term               string    `json:"term"`
	Meaning            string    `json:"meaning"`
	Context            string    `json:"context,omitempty"`
	NextReviewAt       time.Time `json:"next_review_at"`
	ReviewCount        int       `json:"review_count"`
	IsMastered         bool      `json:"is_mastered"`
	ErrorCount         int       `json:"error_count"`
	TotalAttempts      int       `json:"total_attempts"`
	ConsecutiveCorrect int       `json:"consecutive_correct"`
	ConsecutiveWrong   int       `json:"consecutive_wrong"`
	ErrorRate          float64   `json:"error_rate"`
	CorrectRate        float64   `json:"correct_rate"`
}

// newItemResponse maps a domain item to its response shape.
func newItemResponse(item *domain.LearningItem) ItemResponse {
	return ItemResponse{
		ID:                 item.ID.String(),
		Term:               item.Term,
		Meaning:            item.Meaning,
		Context:            item.Context,
		NextReviewAt:       item.NextReviewAt,
		ReviewCount:        item.ReviewCount,
		IsMastered:         item.IsMastered,
		ErrorCount:         item.ErrorCount,
		TotalAttempts:      item.TotalAttempts,
		ConsecutiveCorrect: item.ConsecutiveCorrect,
		ConsecutiveWrong:   item.ConsecutiveWrong,
		ErrorRate:          item.ErrorRate(),
		CorrectRate:        item.CorrectRate(),
	}
}

// DueSetResponse is the review session payload.
type DueSetResponse struct {
	Count int            `json:"count"`
	Items []ItemResponse `json:"items"`
}

// StatsResponse wraps the dashboard counts.
type StatsResponse struct {
	Counts review.Counts `json:"counts"`
	AsOf   time.Time     `json:"as_of"`
}

// SyncHealthResponse surfaces the write-behind queue's state as a
// best-effort "last synced" indicator.
type SyncHealthResponse struct {
	Health syncq.Health `json:"health"`
}
