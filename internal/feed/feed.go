// Package feed composes a learner's daily lesson feed from scheduler output.
package feed

import (
	"time"

	"github.com/abhisek/cognitioflux/internal/apperr"
	"github.com/abhisek/cognitioflux/internal/progress"
	"github.com/abhisek/cognitioflux/internal/spacedrep"
)

// DefaultMaxNewItems is the new-lesson budget used when the caller has no
// preference.
const DefaultMaxNewItems = 3

// Entry is one lesson in the feed. Priority is strictly decreasing along
// Result.AllEntries.
type Entry struct {
	Record         spacedrep.Record
	TopicName      string
	Classification spacedrep.Classification
	DaysOverdue    int
	Priority       float64
}

// Result is a composed daily feed.
type Result struct {
	AsOf           time.Time
	OverdueEntries []Entry
	TodayEntries   []Entry
	AllEntries     []Entry

	// EstimatedMinutes is the study time needed to clear AllEntries.
	EstimatedMinutes int

	Statistics Statistics
}

// BuildDailyFeed composes the feed for asOf. Overdue lessons come first,
// then every review due today, then at most maxNewItems new lessons.
// topics and records are treated as an immutable snapshot.
func BuildDailyFeed(topics []progress.Topic, records []spacedrep.Record, asOf time.Time, maxNewItems int) (*Result, error) {
	if maxNewItems < 0 {
		return nil, apperr.InvalidInput("maxNewItems %d is negative", maxNewItems)
	}

	names := make(map[string]string, len(topics))
	for _, t := range topics {
		names[t.ID] = t.Name
	}

	sched := spacedrep.Classify(records, names, asOf)

	newEntries := sched.New
	if len(newEntries) > maxNewItems {
		newEntries = newEntries[:maxNewItems]
	}

	total := len(sched.Overdue) + len(sched.Review) + len(newEntries)
	all := make([]Entry, 0, total)
	for _, group := range [][]spacedrep.Entry{sched.Overdue, sched.Review, newEntries} {
		for _, e := range group {
			all = append(all, Entry{
				Record:         e.Record,
				TopicName:      e.TopicName,
				Classification: e.Classification,
				DaysOverdue:    e.DaysOverdue,
				Priority:       float64(total - len(all)),
			})
		}
	}

	res := &Result{
		AsOf:           asOf,
		OverdueEntries: all[:len(sched.Overdue):len(sched.Overdue)],
		TodayEntries:   all[len(sched.Overdue):],
		AllEntries:     all,
		Statistics:     computeStatistics(topics, records, sched, asOf),
	}
	for _, e := range all {
		res.EstimatedMinutes += e.Record.EstimatedMinutes
	}
	return res, nil
}
