package domain

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrStreakNotFound       = errors.New("study streak not found")
	ErrStreakInvalidOwnerID = errors.New("invalid owner id for streak")
	// ErrStreakOutOfOrder rejects study events dated before the last
	// recorded day. Replays must be applied in recording order.
	ErrStreakOutOfOrder = errors.New("study event is dated before the last recorded study day")
)

// StudyStreak counts consecutive calendar days on which a learner
// completed at least one review. One row per owner, created lazily on
// the first review.
type StudyStreak struct {
	OwnerID string `json:"owner_id" db:"owner_id"`

	CurrentStreak int `json:"current_streak" db:"current_streak"`
	LongestStreak int `json:"longest_streak" db:"longest_streak"`

	// LastStudyDate is a calendar date (midnight UTC encoding of the
	// learner-local day), never a wall-clock timestamp.
	LastStudyDate *time.Time `json:"last_study_date,omitempty" db:"last_study_date"`

	StudyDaysThisWeek  int `json:"study_days_this_week" db:"study_days_this_week"`
	StudyDaysThisMonth int `json:"study_days_this_month" db:"study_days_this_month"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

func NewStudyStreak(ownerID string) (*StudyStreak, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, ErrStreakInvalidOwnerID
	}

	now := time.Now().UTC()
	return &StudyStreak{
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// NormalizeStudyDate reduces a wall-clock instant to the calendar date
// it falls on in the learner's time zone, encoded as midnight UTC so
// date arithmetic stays zone-free from here on.
func NormalizeStudyDate(at time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := at.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// RecordStudyDay applies one study event to the streak counters.
// eventDate must already be normalized via NormalizeStudyDate.
//
// Returns (false, nil) when the day was already counted, (true, nil)
// when counters changed, and ErrStreakOutOfOrder for events dated
// before the last recorded day.
func (s *StudyStreak) RecordStudyDay(eventDate time.Time) (bool, error) {
	if s.LastStudyDate != nil {
		last := *s.LastStudyDate

		switch {
		case eventDate.Equal(last):
			return false, nil
		case eventDate.Before(last):
			return false, ErrStreakOutOfOrder
		case eventDate.Equal(last.AddDate(0, 0, 1)):
			s.CurrentStreak++
		default:
			// Gap of at least one full day: streak restarts.
			s.CurrentStreak = 1
		}

		s.StudyDaysThisWeek = nextWindowCount(s.StudyDaysThisWeek, sameISOWeek(last, eventDate))
		s.StudyDaysThisMonth = nextWindowCount(s.StudyDaysThisMonth, sameMonth(last, eventDate))
	} else {
		s.CurrentStreak = 1
		s.StudyDaysThisWeek = 1
		s.StudyDaysThisMonth = 1
	}

	if s.CurrentStreak > s.LongestStreak {
		s.LongestStreak = s.CurrentStreak
	}

	d := eventDate
	s.LastStudyDate = &d
	s.UpdatedAt = time.Now().UTC()

	return true, nil
}

// nextWindowCount increments a distinct-day counter while the window
// holding it is unchanged, and restarts it at 1 once the event falls
// into a new window. Event dates are monotonic, so this is exact.
func nextWindowCount(current int, sameWindow bool) int {
	if sameWindow {
		return current + 1
	}
	return 1
}

func sameISOWeek(a, b time.Time) bool {
	ay, aw := a.ISOWeek()
	by, bw := b.ISOWeek()
	return ay == by && aw == bw
}

func sameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}
