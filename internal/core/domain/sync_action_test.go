package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSyncAction(t *testing.T) {
	recordedAt := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	t.Run("Valid review payload", func(t *testing.T) {
		payload, _ := json.Marshal(ReviewSubmitPayload{
			FlashcardID:     "card-1",
			ResponseQuality: 4,
			TimeSpentMs:     3200,
		})

		action, err := NewSyncAction("user-1", SyncActionReviewSubmit, payload, recordedAt)
		require.NoError(t, err)

		assert.NotEmpty(t, action.ID)
		assert.Equal(t, SyncStatePending, action.State)
		assert.Equal(t, 0, action.AttemptCount)
		assert.Equal(t, DefaultMaxAttempts, action.MaxAttempts)
		assert.Equal(t, recordedAt, action.RecordedAt)
	})

	t.Run("Malformed payload rejected at enqueue", func(t *testing.T) {
		_, err := NewSyncAction("user-1", SyncActionReviewSubmit, json.RawMessage(`{"flashcard_id":""}`), recordedAt)
		assert.ErrorIs(t, err, ErrInvalidPayload)

		_, err = NewSyncAction("user-1", SyncActionReviewSubmit, json.RawMessage(`not json`), recordedAt)
		assert.ErrorIs(t, err, ErrInvalidPayload)
	})

	t.Run("Unknown kind rejected", func(t *testing.T) {
		_, err := NewSyncAction("user-1", SyncActionKind("bogus"), json.RawMessage(`{}`), recordedAt)
		assert.ErrorIs(t, err, ErrInvalidActionKind)
	})

	t.Run("Blank owner rejected", func(t *testing.T) {
		_, err := NewSyncAction(" ", SyncActionStudyEvent, json.RawMessage(`{}`), recordedAt)
		assert.ErrorIs(t, err, ErrCardInvalidOwnerID)
	})
}

func TestSyncAction_DecodePayload(t *testing.T) {
	recordedAt := time.Now().UTC()

	t.Run("Review submit", func(t *testing.T) {
		raw, _ := json.Marshal(ReviewSubmitPayload{FlashcardID: "card-1", ResponseQuality: 5, TimeSpentMs: 900})
		action, err := NewSyncAction("user-1", SyncActionReviewSubmit, raw, recordedAt)
		require.NoError(t, err)

		decoded, err := action.DecodePayload()
		require.NoError(t, err)

		p, ok := decoded.(ReviewSubmitPayload)
		require.True(t, ok)
		assert.Equal(t, "card-1", p.FlashcardID)
		assert.Equal(t, 5, p.ResponseQuality)
	})

	t.Run("Study event", func(t *testing.T) {
		occurred := time.Date(2025, 6, 3, 8, 0, 0, 0, time.UTC)
		raw, _ := json.Marshal(StudyEventPayload{OccurredAt: occurred})
		action, err := NewSyncAction("user-1", SyncActionStudyEvent, raw, recordedAt)
		require.NoError(t, err)

		decoded, err := action.DecodePayload()
		require.NoError(t, err)

		p, ok := decoded.(StudyEventPayload)
		require.True(t, ok)
		assert.Equal(t, occurred, p.OccurredAt)
	})

	t.Run("Partial edit payload rejected at enqueue", func(t *testing.T) {
		// An edit missing either content field would be guaranteed to
		// fail at replay; it must not pass enqueue.
		tests := []struct {
			name    string
			payload FlashcardEditPayload
		}{
			{"Empty payload", FlashcardEditPayload{FlashcardID: "card-1"}},
			{"Question only", FlashcardEditPayload{FlashcardID: "card-1", Question: "q?"}},
			{"Answer only", FlashcardEditPayload{FlashcardID: "card-1", Answer: "a."}},
			{"Bad difficulty", FlashcardEditPayload{FlashcardID: "card-1", Question: "q?", Answer: "a.", Difficulty: 6}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				raw, _ := json.Marshal(tt.payload)
				_, err := NewSyncAction("user-1", SyncActionFlashcardEdit, raw, recordedAt)
				assert.ErrorIs(t, err, ErrInvalidPayload)
			})
		}
	})
}

func validPendingAction(t *testing.T) *SyncAction {
	t.Helper()
	raw, _ := json.Marshal(ReviewSubmitPayload{FlashcardID: "card-1", ResponseQuality: 4, TimeSpentMs: 1000})
	action, err := NewSyncAction("user-1", SyncActionReviewSubmit, raw, time.Now().UTC())
	require.NoError(t, err)
	return action
}

func TestSyncAction_Lifecycle(t *testing.T) {
	t.Run("Pending to processing to completed", func(t *testing.T) {
		action := validPendingAction(t)

		require.NoError(t, action.MarkProcessing())
		assert.Equal(t, SyncStateProcessing, action.State)

		require.NoError(t, action.MarkCompleted())
		assert.Equal(t, SyncStateCompleted, action.State)
		assert.Empty(t, action.LastError)
	})

	t.Run("Invalid transitions rejected", func(t *testing.T) {
		action := validPendingAction(t)

		assert.ErrorIs(t, action.MarkCompleted(), ErrInvalidActionState)
		assert.ErrorIs(t, action.MarkTransientFailure(nil), ErrInvalidActionState)

		require.NoError(t, action.MarkProcessing())
		assert.ErrorIs(t, action.MarkProcessing(), ErrInvalidActionState)
	})

	t.Run("Transient failure returns to pending until budget runs out", func(t *testing.T) {
		action := validPendingAction(t)
		cause := errors.New("connection refused")

		for attempt := 1; attempt < DefaultMaxAttempts; attempt++ {
			require.NoError(t, action.MarkProcessing())
			err := action.MarkTransientFailure(cause)
			require.NoError(t, err)

			assert.Equal(t, SyncStatePending, action.State)
			assert.Equal(t, attempt, action.AttemptCount)
			assert.Equal(t, cause.Error(), action.LastError)
		}

		require.NoError(t, action.MarkProcessing())
		err := action.MarkTransientFailure(cause)

		assert.ErrorIs(t, err, ErrRetryExhausted)
		assert.Equal(t, SyncStateFailed, action.State)
		assert.Equal(t, DefaultMaxAttempts, action.AttemptCount)
	})

	t.Run("Permanent failure does not consume an attempt", func(t *testing.T) {
		action := validPendingAction(t)
		require.NoError(t, action.MarkProcessing())

		err := action.MarkPermanentFailure(errors.New("card not found"))
		require.NoError(t, err)

		assert.Equal(t, SyncStateFailed, action.State)
		assert.Equal(t, 0, action.AttemptCount)
		assert.Equal(t, "card not found", action.LastError)
	})
}
