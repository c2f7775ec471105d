package spacedrep

import (
	"sort"
	"time"

	"github.com/abhisek/cognitioflux/internal/clock"
)

// Classification is a record's due status for a given day.
type Classification string

const (
	ClassNew     Classification = "new"
	ClassReview  Classification = "review"
	ClassOverdue Classification = "overdue"
)

// Entry is a classified record.
type Entry struct {
	Record         Record
	TopicName      string
	Classification Classification
	DaysOverdue    int
}

// Schedule is the result of classifying a set of records for one day.
// Records that are not due are absent from every list and from ByID.
type Schedule struct {
	ByID    map[string]Entry
	Overdue []Entry // most overdue first
	Review  []Entry // earliest due first
	New     []Entry // earliest created first
}

// Len returns the number of classified entries.
func (s *Schedule) Len() int {
	return len(s.Overdue) + len(s.Review) + len(s.New)
}

// ClassifyOne returns rec's classification on asOf's day. ok is false when
// the record is not due yet.
func ClassifyOne(rec Record, asOf time.Time) (class Classification, daysOverdue int, ok bool) {
	if rec.State == StateNew {
		return ClassNew, 0, true
	}
	start := clock.StartOfDay(asOf)
	if rec.NextDueAt.Before(start) {
		days := int(asOf.Sub(rec.NextDueAt).Hours() / 24)
		if days < 1 {
			days = 1
		}
		return ClassOverdue, days, true
	}
	if !rec.NextDueAt.After(clock.EndOfDay(asOf)) {
		return ClassReview, 0, true
	}
	return "", 0, false
}

// Classify buckets records into overdue, due-today and new lists for asOf.
// topicNames maps topic IDs to display names and is used as a sort key.
// Inputs are not modified; entries carry copies of the records.
func Classify(records []Record, topicNames map[string]string, asOf time.Time) *Schedule {
	s := &Schedule{ByID: make(map[string]Entry)}

	for _, rec := range records {
		class, days, ok := ClassifyOne(rec, asOf)
		if !ok {
			continue
		}
		e := Entry{
			Record:         rec.Clone(),
			TopicName:      topicNames[rec.TopicID],
			Classification: class,
			DaysOverdue:    days,
		}
		s.ByID[rec.ID] = e
		switch class {
		case ClassOverdue:
			s.Overdue = append(s.Overdue, e)
		case ClassReview:
			s.Review = append(s.Review, e)
		case ClassNew:
			s.New = append(s.New, e)
		}
	}

	sort.SliceStable(s.Overdue, func(i, j int) bool {
		a, b := s.Overdue[i], s.Overdue[j]
		if a.DaysOverdue != b.DaysOverdue {
			return a.DaysOverdue > b.DaysOverdue
		}
		return dueBefore(a, b)
	})
	sort.SliceStable(s.Review, func(i, j int) bool { return dueBefore(s.Review[i], s.Review[j]) })
	sort.SliceStable(s.New, func(i, j int) bool { return dueBefore(s.New[i], s.New[j]) })

	return s
}

// dueBefore orders by due instant, then topic name, then record ID.
func dueBefore(a, b Entry) bool {
	if !a.Record.NextDueAt.Equal(b.Record.NextDueAt) {
		return a.Record.NextDueAt.Before(b.Record.NextDueAt)
	}
	if a.TopicName != b.TopicName {
		return a.TopicName < b.TopicName
	}
	return a.Record.ID < b.Record.ID
}
