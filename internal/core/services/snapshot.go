package services

import "context"

// Data kinds for per-owner read snapshots. Any mutation that could
// change a kind's content must invalidate it.
const (
	SnapshotKindFlashcards = "flashcards"
	SnapshotKindDueQueue   = "due_queue"
	SnapshotKindStreak     = "streak"
)

// SnapshotInvalidator revokes a learner's cached read snapshot for one
// data kind. Implemented by the Redis snapshot store; a no-op
// implementation is fine when caching is disabled.
type SnapshotInvalidator interface {
	Invalidate(ctx context.Context, ownerID, dataKind string) error
}

// NoopInvalidator satisfies SnapshotInvalidator when no cache is
// wired, e.g. in tests.
type NoopInvalidator struct{}

func (NoopInvalidator) Invalidate(ctx context.Context, ownerID, dataKind string) error {
	return nil
}
