package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/hdu-dev/wordvault/internal/api/shared"
	"github.com/hdu-dev/wordvault/internal/domain"
	"github.com/hdu-dev/wordvault/internal/review"
	"github.com/hdu-dev/wordvault/internal/syncq"
)

// Scheduler is the coordinator surface the HTTP layer consumes. The UI
// layer calls these operations only and receives back plain data.
type Scheduler interface {
	AddItem(term, meaning, context string) (*domain.LearningItem, error)
	RecordAnswer(itemID uuid.UUID, correct bool) (*domain.LearningItem, error)
	CurrentDueSet(now time.Time) []*domain.LearningItem
	Counts(now time.Time) review.Counts
	MarkMastered(itemID uuid.UUID) (*domain.LearningItem, error)
	MarkUnmastered(itemID uuid.UUID) (*domain.LearningItem, error)
	ResetProgress(itemID uuid.UUID) (*domain.LearningItem, error)
	DeleteItem(itemID uuid.UUID) error
	SyncHealth() syncq.Health
}

// VaultHandler exposes the scheduling coordinator over HTTP.
type VaultHandler struct {
	scheduler Scheduler
	validate  *validator.Validate
	logger    *slog.Logger

	// now is swappable in tests.
	now func() time.Time
}

// NewVaultHandler creates a VaultHandler.
// Returns an error if the scheduler is nil.
func NewVaultHandler(scheduler Scheduler, logger *slog.Logger) (*VaultHandler, error) {
	if scheduler == nil {
		return nil, errors.New("scheduler cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &VaultHandler{
		scheduler: scheduler,
		validate:  validator.New(),
		logger:    logger.With(slog.String("component", "vault_handler")),
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// Routes mounts the handler's endpoints on a chi router.
func (h *VaultHandler) Routes(r chi.Router) {
	r.Get("/reviews/due", h.GetDueSet)
	r.Get("/stats", h.GetStats)
	r.Get("/sync/health", h.GetSyncHealth)
	r.Post("/items", h.CreateItem)
	r.Post("/items/{id}/answer", h.RecordAnswer)
	r.Post("/items/{id}/mastered", h.MarkMastered)
	r.Delete("/items/{id}/mastered", h.UnmarkMastered)
	r.Post("/items/{id}/reset", h.ResetProgress)
	r.Delete("/items/{id}", h.DeleteItem)
}

// GetDueSet returns the items due for review now, most overdue first.
func (h *VaultHandler) GetDueSet(w http.ResponseWriter, r *http.Request) {
	due := h.scheduler.CurrentDueSet(h.now())

	items := make([]ItemResponse, 0, len(due))
	for _, item := range due {
		items = append(items, newItemResponse(item))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, DueSetResponse{
		Count: len(items),
		Items: items,
	})
}

// GetStats returns dashboard counts over the collection.
func (h *VaultHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	shared.RespondWithJSON(w, r, http.StatusOK, StatsResponse{
		Counts: h.scheduler.Counts(now),
		AsOf:   now,
	})
}

// GetSyncHealth returns the write-behind queue's health snapshot.
func (h *VaultHandler) GetSyncHealth(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, SyncHealthResponse{
		Health: h.scheduler.SyncHealth(),
	})
}

// CreateItem adds a new learning item, due immediately.
func (h *VaultHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req CreateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "term and meaning are required")
		return
	}

	item, err := h.scheduler.AddItem(req.Term, req.Meaning, req.Context)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to create item", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, newItemResponse(item))
}

// RecordAnswer records a correct or incorrect answer against an item.
func (h *VaultHandler) RecordAnswer(w http.ResponseWriter, r *http.Request) {
	itemID, ok := h.itemID(w, r)
	if !ok {
		return
	}

	var req AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "correct is required")
		return
	}

	item, err := h.scheduler.RecordAnswer(itemID, *req.Correct)
	if err != nil {
		h.respondSchedulerError(w, r, "Failed to record answer", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, newItemResponse(item))
}

// MarkMastered sets the item's mastered flag.
func (h *VaultHandler) MarkMastered(w http.ResponseWriter, r *http.Request) {
	h.applyOverride(w, r, h.scheduler.MarkMastered, "Failed to mark item mastered")
}

// UnmarkMastered clears the item's mastered flag.
func (h *VaultHandler) UnmarkMastered(w http.ResponseWriter, r *http.Request) {
	h.applyOverride(w, r, h.scheduler.MarkUnmastered, "Failed to unmark item mastered")
}

// ResetProgress clears the item's schedule progress and streaks.
func (h *VaultHandler) ResetProgress(w http.ResponseWriter, r *http.Request) {
	h.applyOverride(w, r, h.scheduler.ResetProgress, "Failed to reset item progress")
}

// DeleteItem removes an item from the vault and the remote store.
func (h *VaultHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := h.itemID(w, r)
	if !ok {
		return
	}

	if err := h.scheduler.DeleteItem(itemID); err != nil {
		h.respondSchedulerError(w, r, "Failed to delete item", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// applyOverride runs one of the flag/schedule override operations.
func (h *VaultHandler) applyOverride(
	w http.ResponseWriter,
	r *http.Request,
	apply func(uuid.UUID) (*domain.LearningItem, error),
	failureMessage string,
) {
	itemID, ok := h.itemID(w, r)
	if !ok {
		return
	}

	item, err := apply(itemID)
	if err != nil {
		h.respondSchedulerError(w, r, failureMessage, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, newItemResponse(item))
}

// itemID parses the {id} URL parameter, responding with 400 on failure.
func (h *VaultHandler) itemID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid item ID")
		return uuid.Nil, false
	}
	return itemID, true
}

// respondSchedulerError maps coordinator errors to HTTP statuses.
func (h *VaultHandler) respondSchedulerError(
	w http.ResponseWriter,
	r *http.Request,
	failureMessage string,
	err error,
) {
	if errors.Is(err, domain.ErrItemNotFound) {
		shared.RespondWithError(w, r, http.StatusNotFound, "Item not found")
		return
	}
	shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, failureMessage, err)
}
