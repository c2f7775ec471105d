package spacedrep

import (
	"time"

	"github.com/abhisek/cognitioflux/internal/store"
)

// ToSnapshot converts a record into its persisted form.
func ToSnapshot(r Record) *store.LessonReviewData {
	d := &store.LessonReviewData{
		ID:               r.ID,
		TopicID:          r.TopicID,
		Title:            r.Title,
		Module:           r.Module,
		State:            string(r.State),
		EasinessFactor:   r.EasinessFactor,
		IntervalDays:     r.IntervalDays,
		RepetitionCount:  r.RepetitionCount,
		NextDueAt:        r.NextDueAt.Format(time.RFC3339),
		EstimatedMinutes: r.EstimatedMinutes,
		CreatedAt:        r.CreatedAt.Format(time.RFC3339),
	}
	if r.LastReviewedAt != nil {
		s := r.LastReviewedAt.Format(time.RFC3339)
		d.LastReviewedAt = &s
	}
	for _, ev := range r.History {
		d.History = append(d.History, store.ReviewEventData{
			At:      ev.At.Format(time.RFC3339),
			Quality: int(ev.Quality),
		})
	}
	return d
}

// FromSnapshot restores a record. Entries with unparseable timestamps are
// rejected with ok=false.
func FromSnapshot(d *store.LessonReviewData) (Record, bool) {
	if d == nil {
		return Record{}, false
	}
	nextDue, err := time.Parse(time.RFC3339, d.NextDueAt)
	if err != nil {
		return Record{}, false
	}
	created, err := time.Parse(time.RFC3339, d.CreatedAt)
	if err != nil {
		return Record{}, false
	}
	r := Record{
		ID:               d.ID,
		TopicID:          d.TopicID,
		Title:            d.Title,
		Module:           d.Module,
		State:            State(d.State),
		EasinessFactor:   d.EasinessFactor,
		IntervalDays:     d.IntervalDays,
		RepetitionCount:  d.RepetitionCount,
		NextDueAt:        nextDue,
		EstimatedMinutes: d.EstimatedMinutes,
		CreatedAt:        created,
	}
	if r.EasinessFactor < MinEasinessFactor {
		r.EasinessFactor = DefaultEasinessFactor
	}
	if d.LastReviewedAt != nil {
		if t, err := time.Parse(time.RFC3339, *d.LastReviewedAt); err == nil {
			r.LastReviewedAt = &t
		}
	}
	for _, ev := range d.History {
		t, err := time.Parse(time.RFC3339, ev.At)
		if err != nil {
			continue
		}
		r.History = append(r.History, ReviewEvent{At: t, Quality: Quality(ev.Quality)})
	}
	return r, true
}
