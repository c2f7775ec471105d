package feed

import (
	"time"

	"github.com/abhisek/cognitioflux/internal/clock"
	"github.com/abhisek/cognitioflux/internal/progress"
	"github.com/abhisek/cognitioflux/internal/spacedrep"
)

// Statistics aggregates a learner's activity as of a day.
type Statistics struct {
	CurrentStreak         int     `json:"current_streak"`
	LongestStreak         int     `json:"longest_streak"`
	TotalStudyTimeMinutes int     `json:"total_study_time_minutes"`
	AverageRetention      float64 `json:"average_retention"`

	TotalTopics       int `json:"total_topics"`
	TotalLessons      int `json:"total_lessons"`
	CompletedSections int `json:"completed_sections"`
	ReviewsToday      int `json:"reviews_today"`
	DueToday          int `json:"due_today"`
	OverdueCount      int `json:"overdue_count"`
	NewCount          int `json:"new_count"`
	GraduatedCount    int `json:"graduated_count"`
}

// ComputeStatistics aggregates statistics without composing a feed.
func ComputeStatistics(topics []progress.Topic, records []spacedrep.Record, asOf time.Time) Statistics {
	return computeStatistics(topics, records, nil, asOf)
}

func computeStatistics(topics []progress.Topic, records []spacedrep.Record, sched *spacedrep.Schedule, asOf time.Time) Statistics {
	if sched == nil {
		sched = spacedrep.Classify(records, nil, asOf)
	}

	st := Statistics{
		TotalTopics:  len(topics),
		TotalLessons: len(records),
		DueToday:     len(sched.Review),
		OverdueCount: len(sched.Overdue),
		NewCount:     len(sched.New),
	}
	for _, t := range topics {
		st.CompletedSections += t.CompletedSectionCount
	}

	var (
		reviewed  int
		retention float64
		days      = make(map[string]bool)
		loc       = asOf.Location()
		today     = dayKey(asOf)
	)
	for _, r := range records {
		if r.State == spacedrep.StateCompleted {
			st.GraduatedCount++
		}
		for _, ev := range r.History {
			st.TotalStudyTimeMinutes += r.EstimatedMinutes
			day := dayKey(ev.At.In(loc))
			days[day] = true
			if day == today {
				st.ReviewsToday++
			}
		}
		if r.State != spacedrep.StateNew {
			reviewed++
			retention += spacedrep.EstimateRetention(r, asOf)
		}
	}
	if reviewed > 0 {
		st.AverageRetention = retention / float64(reviewed)
	}

	st.CurrentStreak = CurrentStreak(days, asOf)
	st.LongestStreak = LongestStreak(days)
	return st
}

const dayLayout = "2006-01-02"

func dayKey(t time.Time) string {
	return t.Format(dayLayout)
}

// CurrentStreak counts consecutive active days ending on asOf's day.
// A day without activity ends the streak, so a learner who has not
// reviewed yet today has 0.
func CurrentStreak(activeDays map[string]bool, asOf time.Time) int {
	streak := 0
	for day := clock.StartOfDay(asOf); activeDays[dayKey(day)]; day = day.AddDate(0, 0, -1) {
		streak++
	}
	return streak
}

// LongestStreak returns the longest run of consecutive active days.
func LongestStreak(activeDays map[string]bool) int {
	longest := 0
	for key := range activeDays {
		day, err := time.Parse(dayLayout, key)
		if err != nil {
			continue
		}
		// Only count from the first day of a run.
		if activeDays[dayKey(day.AddDate(0, 0, -1))] {
			continue
		}
		n := 0
		for d := day; activeDays[dayKey(d)]; d = d.AddDate(0, 0, 1) {
			n++
		}
		if n > longest {
			longest = n
		}
	}
	return longest
}
