package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNormalizeStudyDate(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)

	// 23:30 UTC on the 1st is already the 2nd in Tokyo.
	instant := time.Date(2025, 6, 1, 23, 30, 0, 0, time.UTC)

	assert.Equal(t, day(2025, 6, 2), NormalizeStudyDate(instant, tokyo))
	assert.Equal(t, day(2025, 6, 1), NormalizeStudyDate(instant, time.UTC))
	assert.Equal(t, day(2025, 6, 1), NormalizeStudyDate(instant, nil), "nil location defaults to UTC")
}

func TestRecordStudyDay_Transitions(t *testing.T) {
	t.Run("First event starts streak at 1", func(t *testing.T) {
		s, err := NewStudyStreak("user-1")
		require.NoError(t, err)

		changed, err := s.RecordStudyDay(day(2025, 6, 2))
		require.NoError(t, err)

		assert.True(t, changed)
		assert.Equal(t, 1, s.CurrentStreak)
		assert.Equal(t, 1, s.LongestStreak)
		assert.Equal(t, 1, s.StudyDaysThisWeek)
		assert.Equal(t, 1, s.StudyDaysThisMonth)
		require.NotNil(t, s.LastStudyDate)
		assert.Equal(t, day(2025, 6, 2), *s.LastStudyDate)
	})

	t.Run("Same day is a no-op", func(t *testing.T) {
		s, _ := NewStudyStreak("user-1")
		_, err := s.RecordStudyDay(day(2025, 6, 2))
		require.NoError(t, err)

		changed, err := s.RecordStudyDay(day(2025, 6, 2))
		require.NoError(t, err)

		assert.False(t, changed)
		assert.Equal(t, 1, s.CurrentStreak)
		assert.Equal(t, 1, s.StudyDaysThisWeek)
	})

	t.Run("Consecutive day extends streak", func(t *testing.T) {
		s, _ := NewStudyStreak("user-1")
		_, err := s.RecordStudyDay(day(2025, 6, 2))
		require.NoError(t, err)

		changed, err := s.RecordStudyDay(day(2025, 6, 3))
		require.NoError(t, err)

		assert.True(t, changed)
		assert.Equal(t, 2, s.CurrentStreak)
		assert.Equal(t, 2, s.LongestStreak)
	})

	t.Run("Gap resets streak but keeps longest", func(t *testing.T) {
		s, _ := NewStudyStreak("user-1")

		// D, D+1, D+5 must yield current streak 1, 2, 1.
		wantCurrent := []int{1, 2, 1}
		for i, d := range []time.Time{day(2025, 6, 2), day(2025, 6, 3), day(2025, 6, 7)} {
			_, err := s.RecordStudyDay(d)
			require.NoError(t, err)
			assert.Equal(t, wantCurrent[i], s.CurrentStreak)
		}

		assert.Equal(t, 2, s.LongestStreak)
	})

	t.Run("Out of order event is rejected", func(t *testing.T) {
		s, _ := NewStudyStreak("user-1")
		_, err := s.RecordStudyDay(day(2025, 6, 10))
		require.NoError(t, err)

		changed, err := s.RecordStudyDay(day(2025, 6, 8))

		assert.ErrorIs(t, err, ErrStreakOutOfOrder)
		assert.False(t, changed)
		assert.Equal(t, day(2025, 6, 10), *s.LastStudyDate, "rejected event must not move the cursor")
	})
}

func TestRecordStudyDay_LongestNeverBelowCurrent(t *testing.T) {
	s, _ := NewStudyStreak("user-1")

	dates := []time.Time{
		day(2025, 6, 2), day(2025, 6, 3), day(2025, 6, 4),
		day(2025, 6, 10), day(2025, 6, 11),
		day(2025, 6, 20),
		day(2025, 6, 21), day(2025, 6, 22), day(2025, 6, 23), day(2025, 6, 24),
	}

	for _, d := range dates {
		_, err := s.RecordStudyDay(d)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, s.LongestStreak, s.CurrentStreak)
	}

	assert.Equal(t, 5, s.CurrentStreak)
	assert.Equal(t, 5, s.LongestStreak)
}

func TestRecordStudyDay_WindowCounters(t *testing.T) {
	s, _ := NewStudyStreak("user-1")

	// 2025-06-26 is a Thursday; 2025-06-30 the following Monday.
	_, err := s.RecordStudyDay(day(2025, 6, 26))
	require.NoError(t, err)
	_, err = s.RecordStudyDay(day(2025, 6, 27))
	require.NoError(t, err)

	assert.Equal(t, 2, s.StudyDaysThisWeek)
	assert.Equal(t, 2, s.StudyDaysThisMonth)

	// New ISO week, same month.
	_, err = s.RecordStudyDay(day(2025, 6, 30))
	require.NoError(t, err)
	assert.Equal(t, 1, s.StudyDaysThisWeek)
	assert.Equal(t, 3, s.StudyDaysThisMonth)

	// Same ISO week, new month.
	_, err = s.RecordStudyDay(day(2025, 7, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, s.StudyDaysThisWeek)
	assert.Equal(t, 1, s.StudyDaysThisMonth)
}

func TestNewStudyStreak_RequiresOwner(t *testing.T) {
	_, err := NewStudyStreak("  ")
	assert.ErrorIs(t, err, ErrStreakInvalidOwnerID)
}
