package spacedrep

import (
	"math"
	"time"

	"github.com/abhisek/cognitioflux/internal/apperr"
)

// DefaultEasinessFactor is the SM-2 starting easiness for a new lesson.
const DefaultEasinessFactor = 2.5

// MinEasinessFactor is the floor below which easiness never drops.
const MinEasinessFactor = 1.3

// GraduationRepetitions is the successful-repetition count at which a
// lesson is marked completed.
const GraduationRepetitions = 6

// DefaultEstimatedMinutes is the study time assumed for a micro-lesson
// when none was supplied.
const DefaultEstimatedMinutes = 3

// Fixed intervals for the first two successful repetitions.
const (
	firstIntervalDays  = 1
	secondIntervalDays = 6
)

// NextEasinessFactor applies the SM-2 easiness update for grade q.
func NextEasinessFactor(ef float64, q Quality) float64 {
	miss := float64(QualityPerfect - q)
	next := ef + (0.1 - miss*(0.08+miss*0.02))
	return math.Max(MinEasinessFactor, next)
}

// ComputeNextReview grades rec with q at now and returns the updated record.
// rec is not modified.
func ComputeNextReview(rec Record, q Quality, now time.Time) (Record, error) {
	if !q.Valid() {
		return Record{}, apperr.InvalidInput("quality %d outside [0, 5]", q)
	}

	next := rec.Clone()
	if next.EasinessFactor == 0 {
		next.EasinessFactor = DefaultEasinessFactor
	}
	next.EasinessFactor = NextEasinessFactor(next.EasinessFactor, q)

	if !q.Passed() {
		next.RepetitionCount = 0
		next.IntervalDays = firstIntervalDays
	} else {
		next.RepetitionCount++
		switch next.RepetitionCount {
		case 1:
			next.IntervalDays = firstIntervalDays
		case 2:
			next.IntervalDays = secondIntervalDays
		default:
			prev := rec.IntervalDays
			if prev < 1 {
				prev = 1
			}
			next.IntervalDays = int(math.Round(float64(prev) * next.EasinessFactor))
		}
	}

	reviewedAt := now
	next.LastReviewedAt = &reviewedAt
	next.NextDueAt = now.AddDate(0, 0, next.IntervalDays)
	next.History = append(next.History, ReviewEvent{At: now, Quality: q})

	switch {
	case next.RepetitionCount >= GraduationRepetitions:
		next.State = StateCompleted
	default:
		next.State = StateScheduled
	}

	return next, nil
}

// EstimateRetention approximates recall probability, as a percentage, with
// an exponential forgetting curve whose stability is interval × easiness.
// Unreviewed records report 0.
func EstimateRetention(rec Record, asOf time.Time) float64 {
	if !rec.Reviewed() {
		return 0
	}
	elapsed := asOf.Sub(*rec.LastReviewedAt).Hours() / 24
	if elapsed < 0 {
		elapsed = 0
	}
	interval := float64(rec.IntervalDays)
	if interval < 1 {
		interval = 1
	}
	ef := rec.EasinessFactor
	if ef < MinEasinessFactor {
		ef = MinEasinessFactor
	}
	r := 100 * math.Exp(-elapsed/(interval*ef))
	return math.Min(100, math.Max(0, r))
}
