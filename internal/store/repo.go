package store

import (
	"context"
	"time"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit   int       // max results (0 = unlimited)
	After   int64     // sequence > After
	Before  int64     // sequence < Before
	From    time.Time // timestamp >= From
	To      time.Time // timestamp <= To
	Learner string    // learner filter, where the table has one
}

// CurrentSnapshotVersion is written into every new snapshot.
const CurrentSnapshotVersion = 1

// SnapshotData captures every learner's state at a point in time.
type SnapshotData struct {
	Version  int                              `json:"version"`
	Learners map[string]*ProgressSnapshotData `json:"learners,omitempty"`
}

// ProgressSnapshotData is one learner's topics and lesson review records.
type ProgressSnapshotData struct {
	Topics  map[string]*TopicData        `json:"topics"`
	Lessons map[string]*LessonReviewData `json:"lessons"`
}

// TopicData is the persisted form of a topic. Derived fields are not stored.
type TopicData struct {
	ID                    string   `json:"id"`
	Name                  string   `json:"name"`
	Context               string   `json:"context,omitempty"`
	Modules               []string `json:"modules,omitempty"`
	CreatedAt             string   `json:"created_at"`
	CompletedSectionCount int      `json:"completed_section_count"`
	LastAccessedAt        string   `json:"last_accessed_at"`
}

// LessonReviewData is the persisted form of a lesson review record.
type LessonReviewData struct {
	ID               string            `json:"id"`
	TopicID          string            `json:"topic_id"`
	Title            string            `json:"title"`
	Module           string            `json:"module,omitempty"`
	State            string            `json:"state"`
	EasinessFactor   float64           `json:"easiness_factor"`
	IntervalDays     int               `json:"interval_days"`
	RepetitionCount  int               `json:"repetition_count"`
	LastReviewedAt   *string           `json:"last_reviewed_at,omitempty"`
	NextDueAt        string            `json:"next_due_at"`
	EstimatedMinutes int               `json:"estimated_minutes"`
	CreatedAt        string            `json:"created_at"`
	History          []ReviewEventData `json:"history,omitempty"`
}

// ReviewEventData is one graded review inside a LessonReviewData.
type ReviewEventData struct {
	At      string `json:"at"`
	Quality int    `json:"quality"`
}

// Snapshot represents a point-in-time capture of learner state.
type Snapshot struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	Data      SnapshotData
}

// SnapshotRepo manages learner state snapshots.
type SnapshotRepo interface {
	// Save stores a new snapshot. A zero Sequence is filled with the
	// current event sequence.
	Save(ctx context.Context, snap *Snapshot) error

	// Latest returns the most recent snapshot, or nil if none exist.
	Latest(ctx context.Context) (*Snapshot, error)

	// Prune deletes all but the N most recent snapshots.
	Prune(ctx context.Context, keep int) error
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMEventRecord is a stored LLM request event.
type LLMEventRecord struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	LLMRequestEventData
}

// LLMUsage aggregates LLM calls sharing a purpose or model.
type LLMUsage struct {
	Key          string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// ReviewEventRecordData captures one graded lesson review.
type ReviewEventRecordData struct {
	Learner         string
	TopicID         string
	LessonID        string
	Quality         int
	RepetitionCount int
	IntervalDays    int
	EasinessFactor  float64
}

// ReviewEventRecord is a stored review event.
type ReviewEventRecord struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	ReviewEventRecordData
}

// Topic event actions.
const (
	TopicCreated          = "created"
	TopicSectionCompleted = "section_completed"
	TopicLessonAdded      = "lesson_added"
	TopicReset            = "reset"
	TopicDeleted          = "deleted"
)

// TopicEventData captures a topic lifecycle change.
type TopicEventData struct {
	Learner string
	TopicID string
	Action  string
	Detail  string
}

// TopicEventRecord is a stored topic event.
type TopicEventRecord struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	TopicEventData
}

// EventRepo provides append access to domain events.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// AppendReviewEvent records a graded lesson review.
	AppendReviewEvent(ctx context.Context, data ReviewEventRecordData) error

	// AppendTopicEvent records a topic lifecycle change.
	AppendTopicEvent(ctx context.Context, data TopicEventData) error
}
