package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hdu-dev/wordvault/internal/domain"
	"github.com/hdu-dev/wordvault/internal/review"
	"github.com/hdu-dev/wordvault/internal/syncq"
)

// fakeScheduler scripts the coordinator surface for handler tests.
type fakeScheduler struct {
	addItemFn      func(term, meaning, context string) (*domain.LearningItem, error)
	recordAnswerFn func(itemID uuid.UUID, correct bool) (*domain.LearningItem, error)
	dueSet         []*domain.LearningItem
	counts         review.Counts
	overrideFn     func(itemID uuid.UUID) (*domain.LearningItem, error)
	deleteFn       func(itemID uuid.UUID) error
	health         syncq.Health
}

func (f *fakeScheduler) AddItem(term, meaning, context string) (*domain.LearningItem, error) {
	return f.addItemFn(term, meaning, context)
}

func (f *fakeScheduler) RecordAnswer(itemID uuid.UUID, correct bool) (*domain.LearningItem, error) {
	return f.recordAnswerFn(itemID, correct)
}

func (f *fakeScheduler) CurrentDueSet(time.Time) []*domain.LearningItem { return f.dueSet }

func (f *fakeScheduler) Counts(time.Time) review.Counts { return f.counts }

func (f *fakeScheduler) MarkMastered(itemID uuid.UUID) (*domain.LearningItem, error) {
	return f.overrideFn(itemID)
}

func (f *fakeScheduler) MarkUnmastered(itemID uuid.UUID) (*domain.LearningItem, error) {
	return f.overrideFn(itemID)
}

func (f *fakeScheduler) ResetProgress(itemID uuid.UUID) (*domain.LearningItem, error) {
	return f.overrideFn(itemID)
}

func (f *fakeScheduler) DeleteItem(itemID uuid.UUID) error { return f.deleteFn(itemID) }

func (f *fakeScheduler) SyncHealth() syncq.Health { return f.health }

func newTestRouter(t *testing.T, scheduler Scheduler) http.Handler {
	t.Helper()

	handler, err := NewVaultHandler(scheduler, nil)
	require.NoError(t, err)

	r := chi.NewRouter()
	handler.Routes(r)
	return r
}

func testItem(t *testing.T) *domain.LearningItem {
	t.Helper()
	item, err := domain.NewLearningItem("user-1", "ubiquitous", "存在于各处的", "")
	require.NoError(t, err)
	return item
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestNewVaultHandler_NilScheduler(t *testing.T) {
	t.Parallel()

	handler, err := NewVaultHandler(nil, nil)
	assert.Error(t, err)
	assert.Nil(t, handler)
}

func TestCreateItem(t *testing.T) {
	t.Parallel()

	created := testItem(t)
	scheduler := &fakeScheduler{
		addItemFn: func(term, meaning, context string) (*domain.LearningItem, error) {
			assert.Equal(t, "ubiquitous", term)
			assert.Equal(t, "存在于各处的", meaning)
			return created, nil
		},
	}
	router := newTestRouter(t, scheduler)

	rec := doJSON(t, router, http.MethodPost, "/items", CreateItemRequest{
		Term:    "ubiquitous",
		Meaning: "存在于各处的",
	})

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp ItemResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, created.ID.String(), resp.ID)
	assert.Equal(t, "ubiquitous", resp.Term)
	assert.False(t, resp.IsMastered)
}

func TestCreateItem_BadRequests(t *testing.T) {
	t.Parallel()

	scheduler := &fakeScheduler{
		addItemFn: func(string, string, string) (*domain.LearningItem, error) {
			t.Fatal("scheduler must not be reached on a bad request")
			return nil, nil
		},
	}
	router := newTestRouter(t, scheduler)

	tests := []struct {
		name string
		body any
	}{
		{name: "missing term", body: CreateItemRequest{Meaning: "meaning"}},
		{name: "missing meaning", body: CreateItemRequest{Term: "word"}},
		{name: "not json", body: nil},
	}

	for _, tc := range tests {
		rec := doJSON(t, router, http.MethodPost, "/items", tc.body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, tc.name)
	}
}

func TestRecordAnswer(t *testing.T) {
	t.Parallel()

	item := testItem(t)
	scheduler := &fakeScheduler{
		recordAnswerFn: func(itemID uuid.UUID, correct bool) (*domain.LearningItem, error) {
			assert.Equal(t, item.ID, itemID)
			assert.True(t, correct)
			updated := item.Clone()
			updated.ReviewCount = 1
			updated.ConsecutiveCorrect = 1
			updated.ConsecutiveWrong = 0
			updated.TotalAttempts = 2
			return updated, nil
		},
	}
	router := newTestRouter(t, scheduler)

	correct := true
	rec := doJSON(t, router, http.MethodPost,
		fmt.Sprintf("/items/%s/answer", item.ID), AnswerRequest{Correct: &correct})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp ItemResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.ReviewCount)
	assert.InDelta(t, 0.5, resp.ErrorRate, 1e-9)
}

func TestRecordAnswer_MissingCorrectField(t *testing.T) {
	t.Parallel()

	scheduler := &fakeScheduler{
		recordAnswerFn: func(uuid.UUID, bool) (*domain.LearningItem, error) {
			t.Fatal("scheduler must not be reached without a correct field")
			return nil, nil
		},
	}
	router := newTestRouter(t, scheduler)

	rec := doJSON(t, router, http.MethodPost,
		fmt.Sprintf("/items/%s/answer", uuid.New()), map[string]any{})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecordAnswer_UnknownItem(t *testing.T) {
	t.Parallel()

	scheduler := &fakeScheduler{
		recordAnswerFn: func(uuid.UUID, bool) (*domain.LearningItem, error) {
			return nil, fmt.Errorf("record answer: %w", domain.ErrItemNotFound)
		},
	}
	router := newTestRouter(t, scheduler)

	correct := false
	rec := doJSON(t, router, http.MethodPost,
		fmt.Sprintf("/items/%s/answer", uuid.New()), AnswerRequest{Correct: &correct})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecordAnswer_InvalidID(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, &fakeScheduler{})

	correct := true
	rec := doJSON(t, router, http.MethodPost, "/items/not-a-uuid/answer", AnswerRequest{Correct: &correct})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetDueSet(t *testing.T) {
	t.Parallel()

	a := testItem(t)
	b := testItem(t)
	scheduler := &fakeScheduler{dueSet: []*domain.LearningItem{a, b}}
	router := newTestRouter(t, scheduler)

	rec := doJSON(t, router, http.MethodGet, "/reviews/due", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp DueSetResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, a.ID.String(), resp.Items[0].ID)
}

func TestGetDueSet_Empty(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, &fakeScheduler{})

	rec := doJSON(t, router, http.MethodGet, "/reviews/due", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp DueSetResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Zero(t, resp.Count)
	assert.NotNil(t, resp.Items, "empty due set serializes as [], not null")
}

func TestGetStats(t *testing.T) {
	t.Parallel()

	scheduler := &fakeScheduler{
		counts: review.Counts{Total: 10, Mastered: 4, Unmastered: 6, DueToday: 3},
	}
	router := newTestRouter(t, scheduler)

	rec := doJSON(t, router, http.MethodGet, "/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, scheduler.counts, resp.Counts)
	assert.False(t, resp.AsOf.IsZero())
}

func TestGetSyncHealth(t *testing.T) {
	t.Parallel()

	scheduler := &fakeScheduler{
		health: syncq.Health{Pending: 2, LastError: "1 of 5 submissions failed"},
	}
	router := newTestRouter(t, scheduler)

	rec := doJSON(t, router, http.MethodGet, "/sync/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SyncHealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Health.Pending)
	assert.Equal(t, "1 of 5 submissions failed", resp.Health.LastError)
}

func TestOverrideEndpoints(t *testing.T) {
	t.Parallel()

	item := testItem(t)

	tests := []struct {
		name   string
		method string
		path   string
	}{
		{name: "mark mastered", method: http.MethodPost, path: fmt.Sprintf("/items/%s/mastered", item.ID)},
		{name: "unmark mastered", method: http.MethodDelete, path: fmt.Sprintf("/items/%s/mastered", item.ID)},
		{name: "reset progress", method: http.MethodPost, path: fmt.Sprintf("/items/%s/reset", item.ID)},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			scheduler := &fakeScheduler{
				overrideFn: func(itemID uuid.UUID) (*domain.LearningItem, error) {
					assert.Equal(t, item.ID, itemID)
					return item.Clone(), nil
				},
			}
			router := newTestRouter(t, scheduler)

			rec := doJSON(t, router, tc.method, tc.path, nil)
			require.Equal(t, http.StatusOK, rec.Code)

			var resp ItemResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, item.ID.String(), resp.ID)
		})
	}
}

func TestOverrideEndpoints_UnknownItem(t *testing.T) {
	t.Parallel()

	scheduler := &fakeScheduler{
		overrideFn: func(uuid.UUID) (*domain.LearningItem, error) {
			return nil, fmt.Errorf("mark mastered: %w", domain.ErrItemNotFound)
		},
	}
	router := newTestRouter(t, scheduler)

	rec := doJSON(t, router, http.MethodPost, fmt.Sprintf("/items/%s/mastered", uuid.New()), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteItem(t *testing.T) {
	t.Parallel()

	item := testItem(t)
	scheduler := &fakeScheduler{
		deleteFn: func(itemID uuid.UUID) error {
			assert.Equal(t, item.ID, itemID)
			return nil
		},
	}
	router := newTestRouter(t, scheduler)

	rec := doJSON(t, router, http.MethodDelete, fmt.Sprintf("/items/%s", item.ID), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestDeleteItem_Unknown(t *testing.T) {
	t.Parallel()

	scheduler := &fakeScheduler{
		deleteFn: func(uuid.UUID) error {
			return fmt.Errorf("delete: %w", domain.ErrItemNotFound)
		},
	}
	router := newTestRouter(t, scheduler)

	rec := doJSON(t, router, http.MethodDelete, fmt.Sprintf("/items/%s", uuid.New()), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
