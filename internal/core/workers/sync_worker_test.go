package workers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pedrolamon/study-sub001/internal/core/domain"
	"github.com/Pedrolamon/study-sub001/internal/core/services"
)

type fakeProcessor struct {
	mu     sync.Mutex
	owners []string
	err    error
}

func (f *fakeProcessor) ProcessPending(ctx context.Context, ownerID string) (services.SyncReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.owners = append(f.owners, ownerID)
	return services.SyncReport{Applied: 1}, f.err
}

func (f *fakeProcessor) processed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.owners))
	copy(out, f.owners)
	return out
}

type fakeScanner struct {
	mu     sync.Mutex
	owners []string
}

func (f *fakeScanner) OwnersWithPending(ctx context.Context, limit int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.owners, nil
}

func TestSyncWorker_ProcessesEnqueuedJobs(t *testing.T) {
	processor := &fakeProcessor{}
	worker := NewSyncWorker(processor, &fakeScanner{}, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	worker.Start(ctx)

	worker.Enqueue("user-1")

	require.Eventually(t, func() bool {
		return len(processor.processed()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, []string{"user-1"}, processor.processed())
}

func TestSyncWorker_ScansForPendingOwners(t *testing.T) {
	processor := &fakeProcessor{}
	scanner := &fakeScanner{owners: []string{"user-a", "user-b"}}
	worker := NewSyncWorker(processor, scanner, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	worker.Start(ctx)

	require.Eventually(t, func() bool {
		return len(processor.processed()) >= 2
	}, 2*time.Second, 10*time.Millisecond)

	assert.Contains(t, processor.processed(), "user-a")
	assert.Contains(t, processor.processed(), "user-b")
}

func TestSyncWorker_SurvivesExhaustedQueues(t *testing.T) {
	processor := &fakeProcessor{err: domain.ErrRetryExhausted}
	worker := NewSyncWorker(processor, &fakeScanner{}, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	worker.Start(ctx)

	worker.Enqueue("user-1")
	worker.Enqueue("user-2")

	require.Eventually(t, func() bool {
		return len(processor.processed()) == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSyncWorker_StopsOnContextCancel(t *testing.T) {
	processor := &fakeProcessor{}
	worker := NewSyncWorker(processor, &fakeScanner{}, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	worker.Start(ctx)

	worker.Enqueue("user-1")
	require.Eventually(t, func() bool {
		return len(processor.processed()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	time.Sleep(50 * time.Millisecond)

	worker.Enqueue("user-2")
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, []string{"user-1"}, processor.processed(), "no processing after shutdown")
}
