package spacedrep

import (
	"time"

	"github.com/abhisek/cognitioflux/internal/clock"
)

// State is the lifecycle state of a lesson review record.
type State string

const (
	// StateNew means the lesson has never been reviewed.
	StateNew State = "new"
	// StateScheduled means the lesson is in the SM-2 rotation.
	StateScheduled State = "scheduled"
	// StateCompleted means the lesson graduated. It still resurfaces when due.
	StateCompleted State = "completed"
)

// ReviewEvent is one graded recall attempt.
type ReviewEvent struct {
	At      time.Time `json:"at"`
	Quality Quality   `json:"quality"`
}

// Record holds the spaced repetition state for a single lesson.
type Record struct {
	ID               string        `json:"id"`
	TopicID          string        `json:"topic_id"`
	Title            string        `json:"title"`
	Module           string        `json:"module,omitempty"`
	State            State         `json:"state"`
	EasinessFactor   float64       `json:"easiness_factor"`
	IntervalDays     int           `json:"interval_days"`
	RepetitionCount  int           `json:"repetition_count"`
	LastReviewedAt   *time.Time    `json:"last_reviewed_at,omitempty"`
	NextDueAt        time.Time     `json:"next_due_at"`
	EstimatedMinutes int           `json:"estimated_minutes"`
	CreatedAt        time.Time     `json:"created_at"`
	History          []ReviewEvent `json:"history,omitempty"`
}

// NewRecord returns an unreviewed record that is available from now.
func NewRecord(id, topicID, title string, now time.Time) Record {
	return Record{
		ID:               id,
		TopicID:          topicID,
		Title:            title,
		State:            StateNew,
		EasinessFactor:   DefaultEasinessFactor,
		NextDueAt:        now,
		EstimatedMinutes: DefaultEstimatedMinutes,
		CreatedAt:        now,
	}
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	out := r
	if r.LastReviewedAt != nil {
		t := *r.LastReviewedAt
		out.LastReviewedAt = &t
	}
	if r.History != nil {
		out.History = make([]ReviewEvent, len(r.History))
		copy(out.History, r.History)
	}
	return out
}

// Reviewed reports whether the record has been graded at least once.
func (r Record) Reviewed() bool {
	return r.State != StateNew && r.LastReviewedAt != nil
}

// IsDue reports whether the record should surface on asOf's calendar day.
func (r Record) IsDue(asOf time.Time) bool {
	if r.State == StateNew {
		return true
	}
	return !r.NextDueAt.After(clock.EndOfDay(asOf))
}

// DaysUntilDue returns whole calendar days until the record is due.
// Returns 0 if already due.
func (r Record) DaysUntilDue(asOf time.Time) int {
	if r.IsDue(asOf) {
		return 0
	}
	return clock.DaysBetween(asOf, r.NextDueAt)
}

// ReviewedOn reports whether any review event falls on day's calendar day.
func (r Record) ReviewedOn(day time.Time) bool {
	for _, ev := range r.History {
		if clock.SameDay(day, ev.At) {
			return true
		}
	}
	return false
}
