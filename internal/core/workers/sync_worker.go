package workers

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/Pedrolamon/study-sub001/internal/core/domain"
	"github.com/Pedrolamon/study-sub001/internal/core/services"
)

type QueueProcessor interface {
	ProcessPending(ctx context.Context, ownerID string) (services.SyncReport, error)
}

type PendingScanner interface {
	OwnersWithPending(ctx context.Context, limit int) ([]string, error)
}

type SyncJob struct {
	OwnerID string
}

// SyncWorker drives the offline-action queue in the background: jobs
// arrive from live requests (a client reconnecting) and from a
// periodic scan that picks up owners whose actions are awaiting a
// retry. The backoff between attempts is the scan interval; the owner
// lock is only ever held inside ProcessPending, never across it.
type SyncWorker struct {
	processor QueueProcessor
	scanner   PendingScanner
	jobs      chan SyncJob
	interval  time.Duration
}

func NewSyncWorker(processor QueueProcessor, scanner PendingScanner, interval time.Duration) *SyncWorker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &SyncWorker{
		processor: processor,
		scanner:   scanner,
		jobs:      make(chan SyncJob, 100),
		interval:  interval,
	}
}

func (w *SyncWorker) Start(ctx context.Context) {
	go func() {
		log.Println("Sync Worker started in background...")

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case job := <-w.jobs:
				w.processJob(ctx, job)
			case <-ticker.C:
				w.scan(ctx)
			case <-ctx.Done():
				log.Println("Sync Worker shutting down...")
				return
			}
		}
	}()
}

// Enqueue schedules a replay pass for one owner. Dropping on overflow
// is safe: the periodic scan will find the owner again.
func (w *SyncWorker) Enqueue(ownerID string) {
	select {
	case w.jobs <- SyncJob{OwnerID: ownerID}:
	default:
		log.Printf("Sync Worker queue full! Dropping job for owner %s", ownerID)
	}
}

func (w *SyncWorker) scan(ctx context.Context) {
	owners, err := w.scanner.OwnersWithPending(ctx, 100)
	if err != nil {
		log.Printf("Worker Error scanning pending owners: %v", err)
		return
	}

	for _, ownerID := range owners {
		w.processJob(ctx, SyncJob{OwnerID: ownerID})
	}
}

func (w *SyncWorker) processJob(ctx context.Context, job SyncJob) {
	report, err := w.processor.ProcessPending(ctx, job.OwnerID)
	if err != nil && !errors.Is(err, domain.ErrRetryExhausted) {
		log.Printf("Worker Error processing queue for %s: %v", job.OwnerID, err)
		return
	}

	if report.Applied > 0 || report.Failed > 0 {
		log.Printf("Sync pass for %s: applied=%d failed=%d", job.OwnerID, report.Applied, report.Failed)
	}
}
