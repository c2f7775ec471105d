package spacedrep

import (
	"math"
	"testing"
	"time"

	"github.com/abhisek/cognitioflux/internal/apperr"
)

var day0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func TestNextEasinessFactor(t *testing.T) {
	tests := []struct {
		ef   float64
		q    Quality
		want float64
	}{
		{2.5, 5, 2.6},
		{2.5, 4, 2.5},
		{2.5, 3, 2.36},
		{2.5, 2, 2.18},
		{2.5, 1, 1.96},
		{2.5, 0, 1.7},
		{1.3, 0, 1.3},
		{1.35, 2, 1.3},
	}
	for _, tt := range tests {
		got := NextEasinessFactor(tt.ef, tt.q)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("NextEasinessFactor(%.2f, %d) = %.4f, want %.4f", tt.ef, tt.q, got, tt.want)
		}
	}
}

func TestComputeNextReview_EasinessFloor(t *testing.T) {
	for q := QualityBlackout; q <= QualityPerfect; q++ {
		rec := NewRecord("l1", "t1", "Lesson", day0)
		rec.EasinessFactor = MinEasinessFactor
		for i := 0; i < 10; i++ {
			var err error
			rec, err = ComputeNextReview(rec, q, day0.AddDate(0, 0, i))
			if err != nil {
				t.Fatalf("q=%d: %v", q, err)
			}
			if rec.EasinessFactor < MinEasinessFactor {
				t.Fatalf("q=%d: easiness %.3f below floor", q, rec.EasinessFactor)
			}
		}
	}
}

func TestComputeNextReview_FailureResets(t *testing.T) {
	rec := NewRecord("l1", "t1", "Lesson", day0)
	rec.State = StateScheduled
	rec.RepetitionCount = 4
	rec.IntervalDays = 20

	for q := QualityBlackout; q < PassingQuality; q++ {
		got, err := ComputeNextReview(rec, q, day0)
		if err != nil {
			t.Fatalf("q=%d: %v", q, err)
		}
		if got.RepetitionCount != 0 {
			t.Errorf("q=%d: repetitions = %d, want 0", q, got.RepetitionCount)
		}
		if got.IntervalDays != 1 {
			t.Errorf("q=%d: interval = %d, want 1", q, got.IntervalDays)
		}
		if !got.NextDueAt.Equal(day0.AddDate(0, 0, 1)) {
			t.Errorf("q=%d: next due = %v", q, got.NextDueAt)
		}
	}
}

func TestComputeNextReview_IntervalProgression(t *testing.T) {
	rec := NewRecord("l1", "t1", "Lesson", day0)
	now := day0
	wantIntervals := []int{1, 6, 15, 38}
	for i, want := range wantIntervals {
		var err error
		rec, err = ComputeNextReview(rec, QualityCorrectHesitant, now)
		if err != nil {
			t.Fatal(err)
		}
		if rec.IntervalDays != want {
			t.Errorf("review %d: interval = %d, want %d", i+1, rec.IntervalDays, want)
		}
		if rec.RepetitionCount != i+1 {
			t.Errorf("review %d: repetitions = %d", i+1, rec.RepetitionCount)
		}
		now = rec.NextDueAt
	}
}

func TestComputeNextReview_InvalidQuality(t *testing.T) {
	rec := NewRecord("l1", "t1", "Lesson", day0)
	for _, q := range []Quality{-1, 6, 42} {
		_, err := ComputeNextReview(rec, q, day0)
		if !apperr.IsInvalidInput(err) {
			t.Errorf("q=%d: expected InvalidInputError, got %v", q, err)
		}
	}
}

func TestComputeNextReview_DoesNotMutateInput(t *testing.T) {
	rec := NewRecord("l1", "t1", "Lesson", day0)
	rec, _ = ComputeNextReview(rec, QualityPerfect, day0)
	before := rec.Clone()

	_, err := ComputeNextReview(rec, QualityBlackout, day0.AddDate(0, 0, 1))
	if err != nil {
		t.Fatal(err)
	}
	if rec.RepetitionCount != before.RepetitionCount || len(rec.History) != len(before.History) {
		t.Errorf("input record was mutated")
	}
}

func TestComputeNextReview_StateTransitions(t *testing.T) {
	rec := NewRecord("l1", "t1", "Lesson", day0)
	if rec.State != StateNew {
		t.Fatalf("state = %s, want new", rec.State)
	}

	now := day0
	for i := 0; i < GraduationRepetitions; i++ {
		rec, _ = ComputeNextReview(rec, QualityPerfect, now)
		now = rec.NextDueAt
		if i < GraduationRepetitions-1 && rec.State != StateScheduled {
			t.Fatalf("review %d: state = %s, want scheduled", i+1, rec.State)
		}
	}
	if rec.State != StateCompleted {
		t.Fatalf("state = %s, want completed", rec.State)
	}

	rec, _ = ComputeNextReview(rec, QualityIncorrect, now)
	if rec.State != StateScheduled {
		t.Errorf("state after lapse = %s, want scheduled", rec.State)
	}
	if len(rec.History) != GraduationRepetitions+1 {
		t.Errorf("history len = %d", len(rec.History))
	}
}

// Presocratic Philosophy walkthrough: two perfect reviews on consecutive
// days, then the lesson rests until day 7.
func TestComputeNextReview_PresocraticScenario(t *testing.T) {
	names := map[string]string{"t1": "Presocratic Philosophy"}
	rec := NewRecord("l1", "t1", "Thales and water", day0)

	rec, _ = ComputeNextReview(rec, QualityPerfect, day0)
	if rec.RepetitionCount != 1 || rec.IntervalDays != 1 {
		t.Fatalf("day 0: rep=%d interval=%d", rec.RepetitionCount, rec.IntervalDays)
	}

	day1 := day0.AddDate(0, 0, 1)
	rec, _ = ComputeNextReview(rec, QualityPerfect, day1)
	if rec.RepetitionCount != 2 || rec.IntervalDays != 6 {
		t.Fatalf("day 1: rep=%d interval=%d", rec.RepetitionCount, rec.IntervalDays)
	}
	if want := day0.AddDate(0, 0, 7); !rec.NextDueAt.Equal(want) {
		t.Fatalf("next due = %v, want %v", rec.NextDueAt, want)
	}

	s := Classify([]Record{rec}, names, day0.AddDate(0, 0, 2))
	if s.Len() != 0 {
		t.Errorf("day 2: expected nothing due, got %d", s.Len())
	}

	s = Classify([]Record{rec}, names, day0.AddDate(0, 0, 7))
	if len(s.Review) != 1 || s.Review[0].Classification != ClassReview {
		t.Fatalf("day 7: expected one review entry, got %+v", s)
	}
}

func TestEstimateRetention(t *testing.T) {
	rec := NewRecord("l1", "t1", "Lesson", day0)
	if got := EstimateRetention(rec, day0); got != 0 {
		t.Errorf("new record retention = %.2f, want 0", got)
	}

	rec, _ = ComputeNextReview(rec, QualityPerfect, day0)
	if got := EstimateRetention(rec, day0); math.Abs(got-100) > 1e-9 {
		t.Errorf("retention at review time = %.2f, want 100", got)
	}

	prev := 100.0
	for d := 1; d <= 10; d++ {
		got := EstimateRetention(rec, day0.AddDate(0, 0, d))
		if got >= prev || got < 0 || got > 100 {
			t.Errorf("day %d: retention %.2f not decreasing within bounds", d, got)
		}
		prev = got
	}

	if got := EstimateRetention(rec, day0.Add(-time.Hour)); got != 100 {
		t.Errorf("retention before review = %.2f, want clamped 100", got)
	}
}
