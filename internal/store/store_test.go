package store

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		// WAL mode falls back to "memory" for in-memory databases,
		// so journal_mode is not checked here.
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestSequenceIsSharedAcrossTables(t *testing.T) {
	s := openTestStore(t)
	events := s.EventRepo()
	ctx := context.Background()

	require.NoError(t, events.AppendTopicEvent(ctx, TopicEventData{Learner: "a@x.io", TopicID: "t1", Action: TopicCreated}))
	require.NoError(t, events.AppendReviewEvent(ctx, ReviewEventRecordData{Learner: "a@x.io", TopicID: "t1", LessonID: "l1", Quality: 5, RepetitionCount: 1, IntervalDays: 1, EasinessFactor: 2.6}))
	require.NoError(t, events.AppendLLMRequest(ctx, LLMRequestEventData{Provider: "mock", Model: "mock", Purpose: "syllabus", Success: true}))

	topics, err := events.QueryTopicEvents(ctx, QueryOpts{})
	require.NoError(t, err)
	reviews, err := events.QueryReviewEvents(ctx, QueryOpts{})
	require.NoError(t, err)
	llms, err := events.QueryLLMEvents(ctx, QueryOpts{})
	require.NoError(t, err)

	require.Len(t, topics, 1)
	require.Len(t, reviews, 1)
	require.Len(t, llms, 1)
	assert.Equal(t, int64(1), topics[0].Sequence)
	assert.Equal(t, int64(2), reviews[0].Sequence)
	assert.Equal(t, int64(3), llms[0].Sequence)

	cur, err := s.seq.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), cur)
}

func TestQueryReviewEvents_Filters(t *testing.T) {
	s := openTestStore(t)
	events := s.EventRepo()
	ctx := context.Background()

	for i, learner := range []string{"a@x.io", "b@x.io", "a@x.io", "a@x.io"} {
		require.NoError(t, events.AppendReviewEvent(ctx, ReviewEventRecordData{
			Learner: learner, TopicID: "t", LessonID: fmt.Sprintf("l%d", i), Quality: 4,
		}))
	}

	got, err := events.QueryReviewEvents(ctx, QueryOpts{Learner: "a@x.io"})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "l3", got[0].LessonID, "newest first")

	got, err = events.QueryReviewEvents(ctx, QueryOpts{Learner: "a@x.io", Limit: 1, Before: 4})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "l2", got[0].LessonID)

	got, err = events.QueryReviewEvents(ctx, QueryOpts{After: 3})
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestLLMEvents(t *testing.T) {
	s := openTestStore(t)
	events := s.EventRepo()
	ctx := context.Background()

	require.NoError(t, events.AppendLLMRequest(ctx, LLMRequestEventData{
		Provider: "anthropic", Model: "claude-haiku-4-5-20251001", Purpose: "syllabus",
		InputTokens: 100, OutputTokens: 50, LatencyMs: 200, Success: true,
		RequestBody: "[user]\nhello", ResponseBody: `{"title":"x"}`,
	}))
	require.NoError(t, events.AppendLLMRequest(ctx, LLMRequestEventData{
		Provider: "anthropic", Model: "claude-haiku-4-5-20251001", Purpose: "syllabus",
		InputTokens: 10, OutputTokens: 0, LatencyMs: 400, Success: false, ErrorMessage: "rate limited",
	}))

	e, err := events.GetLLMEvent(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.True(t, e.Success)
	assert.Equal(t, `{"title":"x"}`, e.ResponseBody)

	missing, err := events.GetLLMEvent(ctx, 99)
	require.NoError(t, err)
	assert.Nil(t, missing)

	usage, err := events.LLMUsageByPurpose(ctx)
	require.NoError(t, err)
	require.Len(t, usage, 1)
	assert.Equal(t, "syllabus", usage[0].Key)
	assert.Equal(t, 2, usage[0].Calls)
	assert.Equal(t, 110, usage[0].InputTokens)
	assert.Equal(t, int64(300), usage[0].AvgLatencyMs)
}

func TestSnapshotSaveAndLatest(t *testing.T) {
	s := openTestStore(t)
	repo := s.SnapshotRepo()
	ctx := context.Background()

	snap, err := repo.Latest(ctx)
	if err != nil {
		t.Fatalf("latest (empty): %v", err)
	}
	if snap != nil {
		t.Fatal("expected nil snapshot when none exist")
	}

	last := "2025-03-01T09:00:00Z"
	now := time.Now().UTC().Truncate(time.Second)
	err = repo.Save(ctx, &Snapshot{
		Sequence:  42,
		Timestamp: now,
		Data: SnapshotData{
			Version: 1,
			Learners: map[string]*ProgressSnapshotData{
				"ada@example.com": {
					Topics: map[string]*TopicData{
						"t1": {ID: "t1", Name: "Stoicism", CompletedSectionCount: 2},
					},
					Lessons: map[string]*LessonReviewData{
						"l1": {ID: "l1", TopicID: "t1", State: "scheduled", LastReviewedAt: &last},
					},
				},
			},
		},
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	snap, err = repo.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, int64(42), snap.Sequence)
	assert.True(t, snap.Timestamp.Equal(now))
	learner := snap.Data.Learners["ada@example.com"]
	require.NotNil(t, learner)
	assert.Equal(t, 2, learner.Topics["t1"].CompletedSectionCount)
	require.NotNil(t, learner.Lessons["l1"].LastReviewedAt)
	assert.Equal(t, last, *learner.Lessons["l1"].LastReviewedAt)
}

func TestSnapshotSaveFillsSequence(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.EventRepo().AppendTopicEvent(ctx, TopicEventData{Learner: "a", TopicID: "t", Action: TopicCreated}))

	snap := &Snapshot{Timestamp: time.Now()}
	require.NoError(t, s.SnapshotRepo().Save(ctx, snap))
	assert.Equal(t, int64(1), snap.Sequence)
	assert.Equal(t, CurrentSnapshotVersion, snap.Data.Version)
	assert.NotZero(t, snap.ID)
}

func TestSnapshotLatestReturnsNewest(t *testing.T) {
	s := openTestStore(t)
	repo := s.SnapshotRepo()
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 3; i++ {
		err := repo.Save(ctx, &Snapshot{
			Sequence:  int64(i + 1),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Data:      SnapshotData{Version: 1},
		})
		if err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	snap, err := repo.Latest(ctx)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if snap.Sequence != 3 {
		t.Errorf("sequence = %d, want 3", snap.Sequence)
	}
}

func TestSnapshotPrune(t *testing.T) {
	s := openTestStore(t)
	repo := s.SnapshotRepo()
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 7; i++ {
		err := repo.Save(ctx, &Snapshot{
			Sequence:  int64(i + 1),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Data:      SnapshotData{Version: 1},
		})
		if err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	if err := repo.Prune(ctx, 5); err != nil {
		t.Fatalf("prune: %v", err)
	}

	var count int
	if err := s.DB().QueryRow("SELECT COUNT(*) FROM snapshots").Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 5 {
		t.Errorf("count after prune = %d, want 5", count)
	}

	snap, err := repo.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), snap.Sequence)

	// Pruning with more headroom than rows is a no-op.
	require.NoError(t, repo.Prune(ctx, 10))
}

func TestDefaultDBPath(t *testing.T) {
	dir := t.TempDir()

	t.Setenv("COGNITIOFLUX_DB", dir+"/custom/flux.db")
	p, err := DefaultDBPath()
	require.NoError(t, err)
	assert.Equal(t, dir+"/custom/flux.db", p)
	assert.DirExists(t, dir+"/custom")

	t.Setenv("COGNITIOFLUX_DB", "")
	t.Setenv("XDG_DATA_HOME", dir)
	p, err = DefaultDBPath()
	require.NoError(t, err)
	assert.Equal(t, dir+"/cognitioflux/cognitioflux.db", p)
}
