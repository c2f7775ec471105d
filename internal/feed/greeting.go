package feed

import (
	"fmt"
	"time"
)

// Greeting returns the headline shown above a learner's feed.
func Greeting(r *Result) string {
	salutation := "Good evening"
	switch h := r.AsOf.Hour(); {
	case h < 5:
		salutation = "Burning the midnight oil"
	case h < 12:
		salutation = "Good morning"
	case h < 17:
		salutation = "Good afternoon"
	}

	switch n := len(r.AllEntries); {
	case n == 0:
		return fmt.Sprintf("%s! You're all caught up for today.", salutation)
	case len(r.OverdueEntries) > 0:
		return fmt.Sprintf("%s! %d lessons waiting, %d overdue. About %s.",
			salutation, n, len(r.OverdueEntries), formatMinutes(r.EstimatedMinutes))
	default:
		return fmt.Sprintf("%s! %d lessons ready for today. About %s.",
			salutation, n, formatMinutes(r.EstimatedMinutes))
	}
}

func formatMinutes(m int) string {
	d := time.Duration(m) * time.Minute
	if d < time.Hour {
		return fmt.Sprintf("%d min", m)
	}
	return fmt.Sprintf("%dh %02dm", m/60, m%60)
}
