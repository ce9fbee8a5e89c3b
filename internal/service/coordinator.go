// Package service contains the scheduling coordinator: the façade the
// rest of the application calls. It owns the in-memory item collection,
// applies mastery transitions synchronously, and hands every mutation to
// the write-behind queue. Reads never block on the network.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/hdu-dev/wordvault/internal/domain"
	"github.com/hdu-dev/wordvault/internal/domain/mastery"
	"github.com/hdu-dev/wordvault/internal/review"
	"github.com/hdu-dev/wordvault/internal/syncq"
)

// WriteQueue is the write-behind queue interface the coordinator needs.
type WriteQueue interface {
	// Enqueue buffers a mutation for asynchronous submission.
	Enqueue(write *syncq.PendingWrite) error

	// Health returns the queue's sync-health snapshot.
	Health() syncq.Health

	// Close flushes remaining writes and stops the queue.
	Close() error
}

// RemoteReader is the startup read path into the remote store.
type RemoteReader interface {
	// FetchFiltered loads the owner's items, applying the degraded
	// fallback internally on filtered-query failure.
	FetchFiltered(ctx context.Context, ownerID string) ([]*domain.LearningItem, error)
}

// Coordinator glues scheduler, mastery tracker, review-set builder and
// write-behind queue together behind the operations the application
// calls. The in-memory collection is exclusively owned here: all
// mutations are serialized through one mutex, while reads go through
// the concurrent map without blocking writers. Callers only ever see
// clones.
type Coordinator struct {
	ownerID string
	mastery mastery.Service
	queue   WriteQueue
	remote  RemoteReader
	logger  *slog.Logger

	// mu serializes mutations so the in-memory update and its enqueue
	// are never interleaved with another mutation for the same item.
	mu    sync.Mutex
	items *xsync.MapOf[uuid.UUID, *domain.LearningItem]

	// now is swappable in tests.
	now func() time.Time
}

// NewCoordinator creates a Coordinator.
// Returns an error if any required dependency is missing.
func NewCoordinator(
	ownerID string,
	masteryService mastery.Service,
	queue WriteQueue,
	remote RemoteReader,
	logger *slog.Logger,
) (*Coordinator, error) {
	if ownerID == "" {
		return nil, domain.NewValidationError("ownerID", "cannot be empty", domain.ErrValidation)
	}
	if masteryService == nil {
		return nil, domain.NewValidationError("masteryService", "cannot be nil", domain.ErrValidation)
	}
	if queue == nil {
		return nil, domain.NewValidationError("queue", "cannot be nil", domain.ErrValidation)
	}
	if remote == nil {
		return nil, domain.NewValidationError("remote", "cannot be nil", domain.ErrValidation)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Coordinator{
		ownerID: ownerID,
		mastery: masteryService,
		queue:   queue,
		remote:  remote,
		logger:  logger.With(slog.String("component", "coordinator")),
		items:   xsync.NewMapOf[uuid.UUID, *domain.LearningItem](),
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// AddItem creates and tracks a new learning item for the coordinator's
// owner. The item is due immediately.
func (c *Coordinator) AddItem(term, meaning, context string) (*domain.LearningItem, error) {
	item, err := domain.NewLearningItem(c.ownerID, term, meaning, context)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	c.mu.Lock()
	c.items.Store(item.ID, item)
	c.enqueue(syncq.NewUpsert(item))
	c.mu.Unlock()

	c.logger.Debug("item added", slog.String("item_id", item.ID.String()))
	return item.Clone(), nil
}

// RecordAnswer applies a correct or incorrect answer to the item. The
// in-memory update always succeeds immediately; persistence follows
// asynchronously and a downstream failure never rolls this state back.
func (c *Coordinator) RecordAnswer(itemID uuid.UUID, correct bool) (*domain.LearningItem, error) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items.Load(itemID)
	if !ok {
		return nil, fmt.Errorf("record answer for %s: %w", itemID, domain.ErrItemNotFound)
	}

	next, err := c.mastery.ApplyAnswer(item, correct, now)
	if err != nil {
		return nil, fmt.Errorf("applying answer: %w", err)
	}

	if err := next.CheckInvariants(); err != nil {
		// Programming defect; keep serving but make it loud.
		c.logger.Error("item state invariant violated",
			slog.String("item_id", itemID.String()),
			slog.String("error", err.Error()))
	}

	c.items.Store(itemID, next)
	c.enqueue(syncq.NewUpsert(next))
	c.enqueue(syncq.NewRecord(domain.NewStudyRecord(next, correct, now)))

	return next.Clone(), nil
}

// CurrentDueSet returns the non-mastered items due at `now`, most
// overdue first. The result contains clones and never blocks on writers
// or the network.
func (c *Coordinator) CurrentDueSet(now time.Time) []*domain.LearningItem {
	return review.SortByUrgency(review.DueToday(c.snapshot(), now))
}

// Counts returns dashboard counts over the collection at `now`.
func (c *Coordinator) Counts(now time.Time) review.Counts {
	return review.Count(c.snapshot(), now)
}

// MarkMastered sets the item's mastered flag, excluding it from due-set
// computation until explicitly unmastered.
func (c *Coordinator) MarkMastered(itemID uuid.UUID) (*domain.LearningItem, error) {
	return c.override(itemID, "mark mastered", c.mastery.MarkMastered)
}

// MarkUnmastered clears the item's mastered flag.
func (c *Coordinator) MarkUnmastered(itemID uuid.UUID) (*domain.LearningItem, error) {
	return c.override(itemID, "mark unmastered", c.mastery.MarkUnmastered)
}

// ResetProgress clears the item's schedule progress and streaks, making
// it due immediately. Attempt and error totals are kept for statistics.
func (c *Coordinator) ResetProgress(itemID uuid.UUID) (*domain.LearningItem, error) {
	return c.override(itemID, "reset progress", c.mastery.ResetProgress)
}

// override applies a flag/schedule transition under the mutation lock.
func (c *Coordinator) override(
	itemID uuid.UUID,
	operation string,
	apply func(*domain.LearningItem, time.Time) (*domain.LearningItem, error),
) (*domain.LearningItem, error) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items.Load(itemID)
	if !ok {
		return nil, fmt.Errorf("%s for %s: %w", operation, itemID, domain.ErrItemNotFound)
	}

	next, err := apply(item, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}

	c.items.Store(itemID, next)
	c.enqueue(syncq.NewUpsert(next))

	return next.Clone(), nil
}

// DeleteItem removes the item from the collection and schedules the
// remote document's deletion.
func (c *Coordinator) DeleteItem(itemID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.items.LoadAndDelete(itemID); !ok {
		return fmt.Errorf("delete %s: %w", itemID, domain.ErrItemNotFound)
	}

	c.enqueue(syncq.NewDelete(itemID))
	c.logger.Debug("item deleted", slog.String("item_id", itemID.String()))
	return nil
}

// BootstrapFromRemote loads the owner's items from the remote store,
// replacing the in-memory collection wholesale. It is a foreground
// loading operation and may block the caller; degraded read fallback is
// handled by the remote reader.
func (c *Coordinator) BootstrapFromRemote(ctx context.Context) error {
	items, err := c.remote.FetchFiltered(ctx, c.ownerID)
	if err != nil {
		return fmt.Errorf("bootstrapping from remote: %w", err)
	}

	c.mu.Lock()
	c.items.Clear()
	for _, item := range items {
		c.items.Store(item.ID, item)
	}
	c.mu.Unlock()

	c.logger.Info("bootstrapped from remote", slog.Int("item_count", len(items)))
	return nil
}

// SyncHealth returns the write-behind queue's health snapshot.
func (c *Coordinator) SyncHealth() syncq.Health {
	return c.queue.Health()
}

// Close flushes and stops the write-behind queue.
func (c *Coordinator) Close() error {
	return c.queue.Close()
}

// enqueue hands a write to the queue. Enqueue failures (a closed queue
// during shutdown) are logged, never propagated: the learner's action
// has already succeeded in memory.
func (c *Coordinator) enqueue(write *syncq.PendingWrite) {
	if err := c.queue.Enqueue(write); err != nil {
		c.logger.Error("failed to enqueue write",
			slog.String("write_id", write.ID.String()),
			slog.String("kind", string(write.Kind)),
			slog.String("error", err.Error()))
	}
}

// snapshot clones the current collection for read-only consumers.
func (c *Coordinator) snapshot() []*domain.LearningItem {
	items := make([]*domain.LearningItem, 0, c.items.Size())
	c.items.Range(func(_ uuid.UUID, item *domain.LearningItem) bool {
		items = append(items, item.Clone())
		return true
	})
	return items
}
