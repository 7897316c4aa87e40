package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pedrolamon/study-sub001/internal/core/domain"
)

func TestDueService_GetDueQueue(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	engine := newTestEngine()

	// Overdue since yesterday.
	overdue := engine.seedCard(t, "user-1")
	require.NoError(t, overdue.ApplySchedule(1, 1, 2.5, now.AddDate(0, 0, -1)))
	require.NoError(t, engine.cards.Update(ctx, overdue))

	// Never reviewed.
	fresh := engine.seedCard(t, "user-1")

	// Scheduled for tomorrow.
	future := engine.seedCard(t, "user-1")
	require.NoError(t, future.ApplySchedule(6, 2, 2.5, now.AddDate(0, 0, 1)))
	require.NoError(t, engine.cards.Update(ctx, future))

	// Another learner's overdue card must never leak in.
	foreign := engine.seedCard(t, "user-2")
	require.NoError(t, foreign.ApplySchedule(1, 1, 2.5, now.AddDate(0, 0, -2)))
	require.NoError(t, engine.cards.Update(ctx, foreign))

	queue, err := engine.dueSvc.GetDueQueue(ctx, DueQueryInput{OwnerID: "user-1", AsOf: now})
	require.NoError(t, err)

	require.Len(t, queue, 2)
	assert.Equal(t, fresh.ID, queue[0].ID, "never-reviewed cards come first")
	assert.Equal(t, overdue.ID, queue[1].ID)
}

func TestDueService_SubjectFilterAndPaging(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	engine := newTestEngine()

	for i := 0; i < 3; i++ {
		card, err := domain.NewFlashcard("user-1", "q", "a", "math", 3)
		require.NoError(t, err)
		card.CreatedAt = now.Add(time.Duration(i) * time.Second)
		require.NoError(t, engine.cards.Create(ctx, card))
	}
	other, err := domain.NewFlashcard("user-1", "q", "a", "history", 3)
	require.NoError(t, err)
	require.NoError(t, engine.cards.Create(ctx, other))

	queue, err := engine.dueSvc.GetDueQueue(ctx, DueQueryInput{
		OwnerID: "user-1",
		Filter:  domain.DueFilter{Subject: "math"},
	})
	require.NoError(t, err)
	assert.Len(t, queue, 3)

	page, err := engine.dueSvc.GetDueQueue(ctx, DueQueryInput{
		OwnerID: "user-1",
		Filter:  domain.DueFilter{Subject: "math"},
		Limit:   2,
		Offset:  2,
	})
	require.NoError(t, err)
	assert.Len(t, page, 1)
}

func TestDueService_LimitClamping(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine()

	for i := 0; i < 25; i++ {
		engine.seedCard(t, "user-1")
	}

	queue, err := engine.dueSvc.GetDueQueue(ctx, DueQueryInput{OwnerID: "user-1"})
	require.NoError(t, err)
	assert.Len(t, queue, 20, "zero limit falls back to the default page size")
}
