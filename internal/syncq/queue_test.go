package syncq_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hdu-dev/wordvault/internal/domain"
	"github.com/hdu-dev/wordvault/internal/syncq"
)

// fakeSubmitter records every submitted batch.
type fakeSubmitter struct {
	mu      sync.Mutex
	batches [][]*syncq.PendingWrite
	err     error
}

func (f *fakeSubmitter) SubmitBatch(_ context.Context, writes []*syncq.PendingWrite) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	batch := make([]*syncq.PendingWrite, len(writes))
	copy(batch, writes)
	f.batches = append(f.batches, batch)
	return f.err
}

func (f *fakeSubmitter) batchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

func (f *fakeSubmitter) allWrites() []*syncq.PendingWrite {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []*syncq.PendingWrite
	for _, batch := range f.batches {
		all = append(all, batch...)
	}
	return all
}

func newTestItem(t *testing.T, term string) *domain.LearningItem {
	t.Helper()
	item, err := domain.NewLearningItem("user-1", term, "meaning", "")
	require.NoError(t, err)
	return item
}

// longInterval keeps the timer out of batch-size and coalescing tests.
const longInterval = time.Hour

func newQueue(t *testing.T, submitter syncq.Submitter, batchSize int, interval time.Duration) *syncq.Queue {
	t.Helper()
	q, err := syncq.New(submitter, syncq.Config{BatchSize: batchSize, FlushInterval: interval}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })
	return q
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	submitter := &fakeSubmitter{}

	tests := []struct {
		name      string
		submitter syncq.Submitter
		cfg       syncq.Config
	}{
		{name: "nil submitter", submitter: nil, cfg: syncq.DefaultConfig()},
		{name: "zero batch size", submitter: submitter, cfg: syncq.Config{BatchSize: 0, FlushInterval: time.Second}},
		{name: "zero flush interval", submitter: submitter, cfg: syncq.Config{BatchSize: 5, FlushInterval: 0}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			q, err := syncq.New(tc.submitter, tc.cfg, nil)
			assert.Error(t, err)
			assert.Nil(t, q)
		})
	}
}

func TestEnqueue_CoalescesSameItem(t *testing.T) {
	t.Parallel()

	submitter := &fakeSubmitter{}
	q := newQueue(t, submitter, 10, longInterval)

	item := newTestItem(t, "word")

	first := item.Clone()
	first.ReviewCount = 1
	second := item.Clone()
	second.ReviewCount = 2

	require.NoError(t, q.Enqueue(syncq.NewUpsert(first)))
	require.NoError(t, q.Enqueue(syncq.NewUpsert(second)))

	q.Flush()

	writes := submitter.allWrites()
	require.Len(t, writes, 1, "two upserts of one item coalesce into a single write")
	assert.Equal(t, 2, writes[0].Item.ReviewCount, "the later snapshot wins")
}

func TestEnqueue_DeleteWinsOverLaterUpsert(t *testing.T) {
	t.Parallel()

	submitter := &fakeSubmitter{}
	q := newQueue(t, submitter, 10, longInterval)

	item := newTestItem(t, "word")

	require.NoError(t, q.Enqueue(syncq.NewDelete(item.ID)))
	require.NoError(t, q.Enqueue(syncq.NewUpsert(item)))

	q.Flush()

	writes := submitter.allWrites()
	require.Len(t, writes, 1)
	assert.Equal(t, syncq.WriteKindDelete, writes[0].Kind, "a pending delete is final")
}

func TestEnqueue_DistinctItemsDoNotCoalesce(t *testing.T) {
	t.Parallel()

	submitter := &fakeSubmitter{}
	q := newQueue(t, submitter, 10, longInterval)

	a := newTestItem(t, "alpha")
	b := newTestItem(t, "beta")

	require.NoError(t, q.Enqueue(syncq.NewUpsert(a)))
	require.NoError(t, q.Enqueue(syncq.NewUpsert(b)))

	q.Flush()

	writes := submitter.allWrites()
	require.Len(t, writes, 2)
	assert.Equal(t, a.ID, writes[0].ID, "flush preserves enqueue order")
	assert.Equal(t, b.ID, writes[1].ID)
}

func TestEnqueue_BatchSizeTriggersFlush(t *testing.T) {
	t.Parallel()

	submitter := &fakeSubmitter{}
	q := newQueue(t, submitter, 3, longInterval)

	for i := 0; i < 3; i++ {
		require.NoError(t, q.Enqueue(syncq.NewUpsert(newTestItem(t, "word"))))
	}

	// The triggered flush runs on a background goroutine.
	assert.Eventually(t, func() bool {
		return submitter.batchCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.Len(t, submitter.allWrites(), 3)
	assert.Equal(t, 0, q.Health().Pending)
}

func TestEnqueue_BelowBatchSizeDoesNotFlush(t *testing.T) {
	t.Parallel()

	submitter := &fakeSubmitter{}
	q := newQueue(t, submitter, 5, longInterval)

	require.NoError(t, q.Enqueue(syncq.NewUpsert(newTestItem(t, "word"))))

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, submitter.batchCount())
	assert.Equal(t, 1, q.Health().Pending)
}

func TestTimerFlush(t *testing.T) {
	t.Parallel()

	submitter := &fakeSubmitter{}
	q := newQueue(t, submitter, 100, 20*time.Millisecond)

	require.NoError(t, q.Enqueue(syncq.NewUpsert(newTestItem(t, "word"))))

	assert.Eventually(t, func() bool {
		return submitter.batchCount() >= 1
	}, 2*time.Second, 5*time.Millisecond, "timer flush never fired")
}

func TestClose_FlushesRemaining(t *testing.T) {
	t.Parallel()

	submitter := &fakeSubmitter{}
	q, err := syncq.New(submitter, syncq.Config{BatchSize: 100, FlushInterval: longInterval}, nil)
	require.NoError(t, err)

	record := domain.NewStudyRecord(newTestItem(t, "word"), true, time.Now().UTC())
	require.NoError(t, q.Enqueue(syncq.NewUpsert(newTestItem(t, "word"))))
	require.NoError(t, q.Enqueue(syncq.NewRecord(record)))

	require.NoError(t, q.Close())

	writes := submitter.allWrites()
	assert.Len(t, writes, 2, "Close must flush the remaining buffer synchronously")
}

func TestClose_Idempotent(t *testing.T) {
	t.Parallel()

	q, err := syncq.New(&fakeSubmitter{}, syncq.DefaultConfig(), nil)
	require.NoError(t, err)

	require.NoError(t, q.Close())
	require.NoError(t, q.Close())
}

func TestEnqueue_AfterClose(t *testing.T) {
	t.Parallel()

	q, err := syncq.New(&fakeSubmitter{}, syncq.DefaultConfig(), nil)
	require.NoError(t, err)
	require.NoError(t, q.Close())

	err = q.Enqueue(syncq.NewUpsert(newTestItem(t, "word")))
	assert.ErrorIs(t, err, syncq.ErrQueueClosed)
}

func TestHealth_RecordsFlushOutcome(t *testing.T) {
	t.Parallel()

	submitter := &fakeSubmitter{err: errors.New("2 of 5 submissions failed")}
	q := newQueue(t, submitter, 100, longInterval)

	require.NoError(t, q.Enqueue(syncq.NewUpsert(newTestItem(t, "word"))))
	q.Flush()

	health := q.Health()
	assert.Equal(t, 0, health.Pending)
	assert.False(t, health.LastFlushAt.IsZero())
	assert.Equal(t, "2 of 5 submissions failed", health.LastError)
	assert.False(t, health.LastErrorAt.IsZero())

	// A later successful flush clears the error.
	submitter.mu.Lock()
	submitter.err = nil
	submitter.mu.Unlock()

	require.NoError(t, q.Enqueue(syncq.NewUpsert(newTestItem(t, "other"))))
	q.Flush()

	assert.Empty(t, q.Health().LastError)
}

func TestFlush_EmptyBufferIsNoop(t *testing.T) {
	t.Parallel()

	submitter := &fakeSubmitter{}
	q := newQueue(t, submitter, 10, longInterval)

	q.Flush()
	assert.Equal(t, 0, submitter.batchCount(), "empty flush must not hit the submitter")
}

func TestEnqueue_ConcurrentProducers(t *testing.T) {
	t.Parallel()

	submitter := &fakeSubmitter{}
	q, err := syncq.New(submitter, syncq.Config{BatchSize: 7, FlushInterval: longInterval}, nil)
	require.NoError(t, err)

	const producers = 8
	const perProducer = 25

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				item := newTestItem(t, "word")
				if err := q.Enqueue(syncq.NewUpsert(item)); err != nil {
					t.Errorf("enqueue failed: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	require.NoError(t, q.Close())

	// Every item had a unique ID, so nothing coalesced and every write
	// must come out exactly once across all batches.
	writes := submitter.allWrites()
	assert.Len(t, writes, producers*perProducer)

	seen := make(map[uuid.UUID]bool, len(writes))
	for _, w := range writes {
		assert.False(t, seen[w.ID], "write %s submitted twice", w.ID)
		seen[w.ID] = true
	}
}

func TestNewUpsert_SnapshotsItem(t *testing.T) {
	t.Parallel()

	item := newTestItem(t, "word")
	write := syncq.NewUpsert(item)

	item.ReviewCount = 99

	assert.Equal(t, 0, write.Item.ReviewCount, "pending write owns a snapshot, not the live item")
}
