// Package syncq implements the write-behind queue that decouples
// learning-event mutations from network latency. Mutations are buffered
// and coalesced per item, then flushed to the sync service when the
// buffer reaches the batch size or a periodic timer fires.
package syncq

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/google/uuid"
)

// Common errors returned by the Queue
var (
	ErrQueueClosed = errors.New("write-behind queue is closed")
)

// Sync-health counters, exported on /metrics.
var (
	enqueuedTotal      = metrics.NewCounter("wordvault_syncq_enqueued_total")
	coalescedTotal     = metrics.NewCounter("wordvault_syncq_coalesced_total")
	flushesTotal       = metrics.NewCounter("wordvault_syncq_flushes_total")
	flushFailuresTotal = metrics.NewCounter("wordvault_syncq_flush_failures_total")
)

// Submitter executes a drained batch against the remote store. Per-item
// failures are the submitter's to contain and log; the returned error is
// an aggregate used only for sync-health reporting, never for automatic
// re-enqueueing.
type Submitter interface {
	SubmitBatch(ctx context.Context, writes []*PendingWrite) error
}

// Config holds the queue's flush thresholds.
type Config struct {
	// BatchSize is the buffer size that triggers an immediate flush.
	BatchSize int

	// FlushInterval is the period of the unconditional timer flush,
	// bounding the persistence delay of sparse activity.
	FlushInterval time.Duration
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		BatchSize:     5,
		FlushInterval: 30 * time.Second,
	}
}

// Health is a point-in-time snapshot of the queue's sync state, surfaced
// to the UI as a best-effort "last synced" indicator.
type Health struct {
	Pending     int       `json:"pending"`
	LastFlushAt time.Time `json:"last_flush_at"`
	LastError   string    `json:"last_error,omitempty"`
	LastErrorAt time.Time `json:"last_error_at,omitempty"`
}

// Queue buffers and coalesces pending writes. Enqueue never blocks on
// the network: flush submission always runs either on a background
// goroutine or inside Close.
//
// Known limitation: writes in a flushed batch that fail terminally are
// dropped, not re-enqueued. On a sustained outage the loss is bounded to
// the last BatchSize or FlushInterval worth of writes.
type Queue struct {
	submitter Submitter
	cfg       Config
	logger    *slog.Logger

	mu     sync.Mutex
	buf    map[uuid.UUID]*PendingWrite
	order  []uuid.UUID
	closed bool
	health Health

	done chan struct{}
	wg   sync.WaitGroup
}

// New creates a Queue and starts its periodic flush timer.
// Returns an error if the submitter is nil or the config is invalid.
func New(submitter Submitter, cfg Config, logger *slog.Logger) (*Queue, error) {
	if submitter == nil {
		return nil, errors.New("submitter cannot be nil")
	}
	if cfg.BatchSize < 1 {
		return nil, errors.New("batch size must be at least 1")
	}
	if cfg.FlushInterval <= 0 {
		return nil, errors.New("flush interval must be positive")
	}
	if logger == nil {
		logger = slog.Default()
	}

	q := &Queue{
		submitter: submitter,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "syncq")),
		buf:       make(map[uuid.UUID]*PendingWrite),
		done:      make(chan struct{}),
	}

	q.wg.Add(1)
	go q.timerLoop()

	return q, nil
}

// Enqueue adds a mutation to the buffer, coalescing with any unflushed
// write for the same ID: a later write replaces an earlier one, and a
// delete wins over anything else. Returns immediately; if the buffer has
// reached the batch size the drained batch is submitted on a background
// goroutine.
func (q *Queue) Enqueue(write *PendingWrite) error {
	q.mu.Lock()

	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}

	if existing, ok := q.buf[write.ID]; ok {
		// Last write wins, except a pending delete is final.
		if existing.Kind != WriteKindDelete {
			q.buf[write.ID] = write
		}
		coalescedTotal.Inc()
		q.health.Pending = len(q.buf)
		q.mu.Unlock()
		enqueuedTotal.Inc()
		return nil
	}

	q.buf[write.ID] = write
	q.order = append(q.order, write.ID)
	q.health.Pending = len(q.buf)

	var batch []*PendingWrite
	if len(q.buf) >= q.cfg.BatchSize {
		batch = q.drainLocked()
		// Registered before the lock is released so Close cannot miss
		// this submission in its wait.
		q.wg.Add(1)
	}
	q.mu.Unlock()

	enqueuedTotal.Inc()

	if batch != nil {
		go func() {
			defer q.wg.Done()
			q.submit(batch)
		}()
	}

	return nil
}

// Flush synchronously drains and submits the current buffer. Concurrent
// enqueues during submission land in a fresh buffer and are picked up by
// the next flush. Safe to call at any time, including after Close.
func (q *Queue) Flush() {
	q.mu.Lock()
	batch := q.drainLocked()
	q.mu.Unlock()

	if batch != nil {
		q.submit(batch)
	}
}

// Close stops the timer, waits for in-flight submissions, and runs a
// final synchronous flush so no buffered write is silently dropped.
// Close is idempotent; Enqueue after Close fails with ErrQueueClosed.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.mu.Unlock()

	close(q.done)
	q.wg.Wait()

	q.Flush()
	q.logger.Info("write-behind queue closed")
	return nil
}

// Health returns a snapshot of the queue's sync state.
func (q *Queue) Health() Health {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.health
}

// drainLocked swaps the buffer for an empty one and returns the drained
// writes in enqueue order. Caller must hold q.mu.
func (q *Queue) drainLocked() []*PendingWrite {
	if len(q.buf) == 0 {
		return nil
	}

	batch := make([]*PendingWrite, 0, len(q.buf))
	for _, id := range q.order {
		if write, ok := q.buf[id]; ok {
			batch = append(batch, write)
		}
	}

	q.buf = make(map[uuid.UUID]*PendingWrite)
	q.order = nil
	q.health.Pending = 0
	return batch
}

// submit hands a drained batch to the submitter and records the outcome.
// Failed writes are not re-enqueued; retry policy belongs to the sync
// service, and terminal failures are an accepted bounded-loss risk.
func (q *Queue) submit(batch []*PendingWrite) {
	flushesTotal.Inc()
	q.logger.Debug("flushing batch", slog.Int("batch_size", len(batch)))

	err := q.submitter.SubmitBatch(context.Background(), batch)
	now := time.Now().UTC()

	q.mu.Lock()
	q.health.LastFlushAt = now
	if err != nil {
		q.health.LastError = err.Error()
		q.health.LastErrorAt = now
	} else {
		q.health.LastError = ""
	}
	q.mu.Unlock()

	if err != nil {
		flushFailuresTotal.Inc()
		q.logger.Error("batch submission reported failures",
			slog.Int("batch_size", len(batch)),
			slog.String("error", err.Error()))
		return
	}

	q.logger.Debug("batch submitted", slog.Int("batch_size", len(batch)))
}

// timerLoop flushes unconditionally every FlushInterval so sparse
// activity is still persisted within a bounded delay.
func (q *Queue) timerLoop() {
	defer q.wg.Done()

	ticker := time.NewTicker(q.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-q.done:
			return
		case <-ticker.C:
			q.Flush()
		}
	}
}
