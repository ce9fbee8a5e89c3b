package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/VictoriaMetrics/metrics"

	"github.com/hdu-dev/wordvault/internal/domain"
	"github.com/hdu-dev/wordvault/internal/syncq"
)

// Sync submission and read-path counters, exported on /metrics.
var (
	submissionsTotal        = metrics.NewCounter("wordvault_sync_submissions_total")
	submissionFailuresTotal = metrics.NewCounter("wordvault_sync_submission_failures_total")
	degradedFetchesTotal    = metrics.NewCounter("wordvault_sync_degraded_fetches_total")
)

// Config holds the sync service's collection names and submission
// limits.
type Config struct {
	ItemsCollection   string
	RecordsCollection string

	// MaxConcurrent is the wave size for batch submission: at most this
	// many requests are in flight, and a wave completes before the next
	// is dispatched.
	MaxConcurrent int

	// SubmitTimeout bounds each individual submission. A timed-out
	// submission fails that item only.
	SubmitTimeout time.Duration

	// ListLimit caps the unfiltered fallback fetch.
	ListLimit int
}

// DefaultConfig returns the standard sync settings.
func DefaultConfig() Config {
	return Config{
		ItemsCollection:   "wrong_words",
		RecordsCollection: "study_records",
		MaxConcurrent:     3,
		SubmitTimeout:     30 * time.Second,
		ListLimit:         1000,
	}
}

// Service translates pending writes into document store calls and
// provides the read paths. It satisfies syncq.Submitter.
type Service struct {
	store  DocumentStore
	cfg    Config
	logger *slog.Logger
}

// Compile-time interface check.
var _ syncq.Submitter = (*Service)(nil)

// NewService creates a sync service.
// Returns an error if any required dependency or setting is missing.
func NewService(store DocumentStore, cfg Config, logger *slog.Logger) (*Service, error) {
	if store == nil {
		return nil, errors.New("document store cannot be nil")
	}
	if cfg.ItemsCollection == "" || cfg.RecordsCollection == "" {
		return nil, errors.New("collection names cannot be empty")
	}
	if cfg.MaxConcurrent < 1 {
		return nil, errors.New("max concurrent must be at least 1")
	}
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = 30 * time.Second
	}
	if cfg.ListLimit <= 0 {
		cfg.ListLimit = 1000
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		store:  store,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "sync_service")),
	}, nil
}

// SubmitBatch submits a drained batch in waves of at most MaxConcurrent
// concurrent requests, waiting for each wave before dispatching the
// next. A failed item is logged and counted but does not abort its
// siblings. The returned error aggregates the failure count for
// sync-health reporting.
func (s *Service) SubmitBatch(ctx context.Context, writes []*syncq.PendingWrite) error {
	if len(writes) == 0 {
		return nil
	}

	var failures atomic.Int64

	for start := 0; start < len(writes); start += s.cfg.MaxConcurrent {
		end := start + s.cfg.MaxConcurrent
		if end > len(writes) {
			end = len(writes)
		}

		var wg sync.WaitGroup
		for _, write := range writes[start:end] {
			wg.Add(1)
			go func(write *syncq.PendingWrite) {
				defer wg.Done()

				subCtx, cancel := context.WithTimeout(ctx, s.cfg.SubmitTimeout)
				defer cancel()

				submissionsTotal.Inc()
				if err := s.SubmitOne(subCtx, write); err != nil {
					submissionFailuresTotal.Inc()
					failures.Add(1)
					s.logger.Error("submission failed",
						slog.String("write_id", write.ID.String()),
						slog.String("kind", string(write.Kind)),
						slog.String("error", err.Error()))
				}
			}(write)
		}
		wg.Wait()
	}

	if n := failures.Load(); n > 0 {
		return fmt.Errorf("%d of %d submissions failed", n, len(writes))
	}
	return nil
}

// SubmitOne executes a single pending write. Submissions are safe to
// repeat: a conflict on create and a missing document on delete both
// count as success.
func (s *Service) SubmitOne(ctx context.Context, write *syncq.PendingWrite) error {
	switch write.Kind {
	case syncq.WriteKindUpsert:
		return s.upsertItem(ctx, write.Item)
	case syncq.WriteKindDelete:
		return s.deleteItem(ctx, write.ID.String())
	case syncq.WriteKindRecord:
		return s.createRecord(ctx, write.Record)
	default:
		return &SyncError{Operation: "submit", Message: fmt.Sprintf("unknown write kind %q", write.Kind)}
	}
}

// upsertItem updates the item's document, creating it when the store
// has never seen it.
func (s *Service) upsertItem(ctx context.Context, item *domain.LearningItem) error {
	if item == nil {
		return &SyncError{Operation: "upsert_item", Message: "write carries no item snapshot"}
	}

	doc := encodeItem(item)
	id := item.ID.String()

	err := s.store.UpdateDocument(ctx, s.cfg.ItemsCollection, id, doc)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return &SyncError{Operation: "upsert_item", Message: "update failed", Err: err}
	}

	err = s.store.CreateDocument(ctx, s.cfg.ItemsCollection, id, doc)
	if err != nil && !errors.Is(err, ErrConflict) {
		return &SyncError{Operation: "upsert_item", Message: "create failed", Err: err}
	}
	return nil
}

// deleteItem removes the item's document; already-gone is success.
func (s *Service) deleteItem(ctx context.Context, id string) error {
	err := s.store.DeleteDocument(ctx, s.cfg.ItemsCollection, id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return &SyncError{Operation: "delete_item", Message: "delete failed", Err: err}
	}
	return nil
}

// createRecord appends a study record; a conflict means the record was
// already submitted and is success.
func (s *Service) createRecord(ctx context.Context, record *domain.StudyRecord) error {
	if record == nil {
		return &SyncError{Operation: "create_record", Message: "write carries no record"}
	}

	err := s.store.CreateDocument(ctx, s.cfg.RecordsCollection, record.ID.String(), encodeRecord(record))
	if err != nil && !errors.Is(err, ErrConflict) {
		return &SyncError{Operation: "create_record", Message: "create failed", Err: err}
	}
	return nil
}

// FetchFiltered loads the owner's items, preferring a server-side
// filtered query. If the filtered query fails for any reason other than
// a missing credential, it transparently falls back to fetching the
// full collection and filtering client-side. The fallback is strictly
// more expensive, so it logs a warning and increments a counter worth
// monitoring.
func (s *Service) FetchFiltered(ctx context.Context, ownerID string) ([]*domain.LearningItem, error) {
	if ownerID == "" {
		return nil, &SyncError{Operation: "fetch", Message: "owner ID cannot be empty"}
	}

	filter := &ListFilter{Field: fieldOwnerID, Equals: ownerID}
	docs, err := s.store.ListDocuments(ctx, s.cfg.ItemsCollection, filter, s.cfg.ListLimit)
	if err == nil {
		return s.decodeItems(docs, ownerID), nil
	}

	if errors.Is(err, ErrNotAuthenticated) {
		return nil, err
	}

	degradedFetchesTotal.Inc()
	s.logger.Warn("filtered query failed, falling back to full fetch",
		slog.String("owner_id", ownerID),
		slog.String("error", err.Error()))

	return s.fetchAllAndFilter(ctx, ownerID)
}

// fetchAllAndFilter is the degraded read path: list everything and keep
// only the owner's items.
func (s *Service) fetchAllAndFilter(ctx context.Context, ownerID string) ([]*domain.LearningItem, error) {
	docs, err := s.store.ListDocuments(ctx, s.cfg.ItemsCollection, nil, s.cfg.ListLimit)
	if err != nil {
		return nil, &SyncError{Operation: "fetch_fallback", Message: "full fetch failed", Err: err}
	}

	items := s.decodeItems(docs, ownerID)
	s.logger.Info("degraded fetch completed",
		slog.Int("total_documents", len(docs)),
		slog.Int("owner_items", len(items)))
	return items, nil
}

// decodeItems parses documents, keeping only the owner's items and
// skipping malformed documents with a warning.
func (s *Service) decodeItems(docs []Document, ownerID string) []*domain.LearningItem {
	items := make([]*domain.LearningItem, 0, len(docs))
	for _, doc := range docs {
		item, err := decodeItem(doc)
		if err != nil {
			s.logger.Warn("skipping malformed document",
				slog.String("document_id", doc.ID),
				slog.String("error", err.Error()))
			continue
		}
		if item.OwnerID != ownerID {
			continue
		}
		items = append(items, item)
	}
	return items
}
