package progress

import (
	"time"

	"github.com/abhisek/cognitioflux/internal/spacedrep"
)

// CognitiveLoad buckets how hard a learner is finding a topic.
type CognitiveLoad string

const (
	LoadUnknown  CognitiveLoad = "Unknown"
	LoadLow      CognitiveLoad = "Low"
	LoadMedium   CognitiveLoad = "Medium"
	LoadHigh     CognitiveLoad = "High"
	LoadVeryHigh CognitiveLoad = "Very High"
)

// Easiness thresholds for the cognitive load buckets. Lower mean easiness
// means more lapses, which means a heavier topic.
const (
	lowLoadEasiness    = 2.3
	mediumLoadEasiness = 2.0
	highLoadEasiness   = 1.7
)

// CognitiveLoadFor maps a mean easiness factor to a load bucket.
func CognitiveLoadFor(meanEasiness float64) CognitiveLoad {
	switch {
	case meanEasiness >= lowLoadEasiness:
		return LoadLow
	case meanEasiness >= mediumLoadEasiness:
		return LoadMedium
	case meanEasiness >= highLoadEasiness:
		return LoadHigh
	default:
		return LoadVeryHigh
	}
}

// Topic is a subject a learner is studying.
// RetentionScore and CognitiveLoad are derived from the topic's lesson
// records whenever a topic is read; they are never stored.
type Topic struct {
	ID                    string        `json:"id"`
	Name                  string        `json:"name"`
	Context               string        `json:"context,omitempty"`
	Modules               []string      `json:"modules,omitempty"`
	CreatedAt             time.Time     `json:"created_at"`
	CompletedSectionCount int           `json:"completed_section_count"`
	RetentionScore        float64       `json:"retention_score"`
	CognitiveLoad         CognitiveLoad `json:"cognitive_load"`
	LastAccessedAt        time.Time     `json:"last_accessed_at"`
}

func (t Topic) clone() Topic {
	out := t
	if t.Modules != nil {
		out.Modules = append([]string(nil), t.Modules...)
	}
	return out
}

// derive fills the computed fields of t from records belonging to it.
func derive(t Topic, records []spacedrep.Record, asOf time.Time) Topic {
	var (
		reviewed  int
		retention float64
		easiness  float64
	)
	for _, r := range records {
		if r.TopicID != t.ID || !r.Reviewed() {
			continue
		}
		reviewed++
		retention += spacedrep.EstimateRetention(r, asOf)
		easiness += r.EasinessFactor
	}

	t.RetentionScore = 0
	t.CognitiveLoad = LoadUnknown
	if reviewed > 0 {
		t.RetentionScore = retention / float64(reviewed)
		t.CognitiveLoad = CognitiveLoadFor(easiness / float64(reviewed))
	}
	return t
}
