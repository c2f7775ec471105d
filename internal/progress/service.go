// Package progress owns a learner's topics and lesson review records.
// It is the only writer of either. Mutations on one topic are serialized;
// reads always return copies.
package progress

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/abhisek/cognitioflux/internal/apperr"
	"github.com/abhisek/cognitioflux/internal/clock"
	"github.com/abhisek/cognitioflux/internal/logger"
	"github.com/abhisek/cognitioflux/internal/spacedrep"
	"github.com/abhisek/cognitioflux/internal/store"
	"github.com/google/uuid"
)

// TopicSpec describes a topic to create.
type TopicSpec struct {
	Name    string
	Context string
	Modules []string
}

// LessonSpec describes a lesson to seed under a topic. ID is generated
// when empty; EstimatedMinutes defaults to a micro-lesson when zero.
type LessonSpec struct {
	ID               string
	Title            string
	Module           string
	EstimatedMinutes int
}

// Snapshot is a consistent, derived copy of both stores.
type Snapshot struct {
	AsOf       time.Time
	Generation uint64
	Topics     []Topic
	Records    []spacedrep.Record
}

// TopicNames maps topic IDs to names for the snapshot's topics.
func (s Snapshot) TopicNames() map[string]string {
	out := make(map[string]string, len(s.Topics))
	for _, t := range s.Topics {
		out[t.ID] = t.Name
	}
	return out
}

// generations is shared by every Service so a generation is never reused,
// not even by a service that replaces another for the same learner.
var generations atomic.Uint64

// Service stores topics and lesson review records for one learner.
type Service struct {
	learner   string
	clock     clock.Clock
	eventRepo store.EventRepo
	log       *logger.Logger
	newID     func() string

	mu         sync.RWMutex
	generation uint64
	topics     map[string]*Topic
	records    map[string]*spacedrep.Record
	locks      map[string]*sync.Mutex
}

// NewService creates a progress service for learner, loading state from
// data when non-nil. eventRepo may be nil.
func NewService(learner string, data *store.ProgressSnapshotData, clk clock.Clock, eventRepo store.EventRepo) *Service {
	if clk == nil {
		clk = clock.System()
	}
	s := &Service{
		learner:   learner,
		clock:     clk,
		eventRepo: eventRepo,
		log:       logger.Nop(),
		newID:     uuid.NewString,
		topics:    make(map[string]*Topic),
		records:   make(map[string]*spacedrep.Record),
		locks:     make(map[string]*sync.Mutex),
	}
	s.load(data)
	s.generation = generations.Add(1)
	return s
}

// SetIDGenerator replaces the uuid generator. Used by tests.
func (s *Service) SetIDGenerator(fn func() string) {
	s.newID = fn
}

// SetLogger sets the logger used to report event log failures. Call it
// before the service is shared.
func (s *Service) SetLogger(log *logger.Logger) {
	if log == nil {
		log = logger.Nop()
	}
	s.log = log.With("learner", s.learner)
}

// Generation identifies the current state of both stores. It changes on
// every mutation and is never reused.
func (s *Service) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// bumpLocked records a mutation. s.mu must be held for writing.
func (s *Service) bumpLocked() {
	s.generation = generations.Add(1)
}

// Learner returns the learner this service belongs to.
func (s *Service) Learner() string {
	return s.learner
}

func (s *Service) load(data *store.ProgressSnapshotData) {
	if data == nil {
		return
	}
	for id, td := range data.Topics {
		if td == nil {
			continue
		}
		created, err := time.Parse(time.RFC3339, td.CreatedAt)
		if err != nil {
			continue
		}
		accessed, err := time.Parse(time.RFC3339, td.LastAccessedAt)
		if err != nil || accessed.Before(created) {
			accessed = created
		}
		s.topics[id] = &Topic{
			ID:                    id,
			Name:                  td.Name,
			Context:               td.Context,
			Modules:               append([]string(nil), td.Modules...),
			CreatedAt:             created,
			CompletedSectionCount: td.CompletedSectionCount,
			LastAccessedAt:        accessed,
		}
		s.locks[id] = &sync.Mutex{}
	}
	for id, ld := range data.Lessons {
		rec, ok := spacedrep.FromSnapshot(ld)
		if !ok {
			continue
		}
		if _, ok := s.topics[rec.TopicID]; !ok {
			continue
		}
		rec.ID = id
		s.records[id] = &rec
	}
}

// ExportData returns the persisted form of both stores.
func (s *Service) ExportData() *store.ProgressSnapshotData {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data := &store.ProgressSnapshotData{
		Topics:  make(map[string]*store.TopicData, len(s.topics)),
		Lessons: make(map[string]*store.LessonReviewData, len(s.records)),
	}
	for id, t := range s.topics {
		data.Topics[id] = &store.TopicData{
			ID:                    t.ID,
			Name:                  t.Name,
			Context:               t.Context,
			Modules:               append([]string(nil), t.Modules...),
			CreatedAt:             t.CreatedAt.Format(time.RFC3339),
			CompletedSectionCount: t.CompletedSectionCount,
			LastAccessedAt:        t.LastAccessedAt.Format(time.RFC3339),
		}
	}
	for id, r := range s.records {
		data.Lessons[id] = spacedrep.ToSnapshot(*r)
	}
	return data
}

// lockTopic acquires the per-topic mutex. It returns NotFound when the
// topic does not exist. Callers must re-check existence under s.mu, since
// the topic may have been deleted while waiting.
func (s *Service) lockTopic(id string) (*sync.Mutex, error) {
	s.mu.RLock()
	l, ok := s.locks[id]
	s.mu.RUnlock()
	if !ok {
		return nil, apperr.NotFound("topic", id)
	}
	l.Lock()
	return l, nil
}

// CreateTopic creates a topic with the given name.
func (s *Service) CreateTopic(name string) (Topic, error) {
	return s.CreateTopicFrom(TopicSpec{Name: name})
}

// CreateTopicFrom creates a topic from spec. The name is trimmed and must
// be non-empty.
func (s *Service) CreateTopicFrom(spec TopicSpec) (Topic, error) {
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return Topic{}, apperr.Validation("name", "must not be empty")
	}

	now := s.clock.Now()
	t := &Topic{
		ID:             s.newID(),
		Name:           name,
		Context:        strings.TrimSpace(spec.Context),
		Modules:        append([]string(nil), spec.Modules...),
		CreatedAt:      now,
		CognitiveLoad:  LoadUnknown,
		LastAccessedAt: now,
	}

	s.mu.Lock()
	s.topics[t.ID] = t
	s.locks[t.ID] = &sync.Mutex{}
	s.bumpLocked()
	out := t.clone()
	s.mu.Unlock()

	s.appendTopicEvent(t.ID, store.TopicCreated, name)
	return out, nil
}

// Topic returns a derived copy of the topic.
func (s *Service) Topic(id string) (Topic, error) {
	now := s.clock.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.topics[id]
	if !ok {
		return Topic{}, apperr.NotFound("topic", id)
	}
	return derive(t.clone(), s.recordsForLocked(id), now), nil
}

// Topics returns derived copies of all topics, oldest first.
func (s *Service) Topics() []Topic {
	return s.Snapshot().Topics
}

// RecordSectionCompletion increments the topic's completed section count.
func (s *Service) RecordSectionCompletion(topicID string) (Topic, error) {
	l, err := s.lockTopic(topicID)
	if err != nil {
		return Topic{}, err
	}
	defer l.Unlock()

	now := s.clock.Now()
	s.mu.Lock()
	t, ok := s.topics[topicID]
	if !ok {
		s.mu.Unlock()
		return Topic{}, apperr.NotFound("topic", topicID)
	}
	t.CompletedSectionCount++
	touch(t, now)
	s.bumpLocked()
	out := derive(t.clone(), s.recordsForLocked(topicID), now)
	s.mu.Unlock()

	s.appendTopicEvent(topicID, store.TopicSectionCompleted, fmt.Sprintf("%d", out.CompletedSectionCount))
	return out, nil
}

// AddLesson seeds a new, unreviewed lesson under the topic.
func (s *Service) AddLesson(topicID string, spec LessonSpec) (spacedrep.Record, error) {
	title := strings.TrimSpace(spec.Title)
	if title == "" {
		return spacedrep.Record{}, apperr.Validation("title", "must not be empty")
	}
	if spec.EstimatedMinutes < 0 {
		return spacedrep.Record{}, apperr.Validation("estimated_minutes", "must not be negative")
	}

	l, err := s.lockTopic(topicID)
	if err != nil {
		return spacedrep.Record{}, err
	}
	defer l.Unlock()

	id := spec.ID
	if id == "" {
		id = s.newID()
	}
	now := s.clock.Now()

	s.mu.Lock()
	t, ok := s.topics[topicID]
	if !ok {
		s.mu.Unlock()
		return spacedrep.Record{}, apperr.NotFound("topic", topicID)
	}
	if _, exists := s.records[id]; exists {
		s.mu.Unlock()
		return spacedrep.Record{}, apperr.Validation("lesson_id", fmt.Sprintf("%q already exists", id))
	}
	rec := spacedrep.NewRecord(id, topicID, title, now)
	rec.Module = strings.TrimSpace(spec.Module)
	if spec.EstimatedMinutes > 0 {
		rec.EstimatedMinutes = spec.EstimatedMinutes
	}
	s.records[id] = &rec
	touch(t, now)
	s.bumpLocked()
	out := rec.Clone()
	s.mu.Unlock()

	s.appendTopicEvent(topicID, store.TopicLessonAdded, id)
	return out, nil
}

// UpsertLessonReview grades a lesson and reschedules it. A lesson that has
// no record yet is created on the fly, titled by its ID.
func (s *Service) UpsertLessonReview(topicID, lessonID string, q spacedrep.Quality) (spacedrep.Record, error) {
	c, err := s.review(topicID, lessonID, q, false)
	if err != nil {
		return spacedrep.Record{}, err
	}
	return c.Record, nil
}

// Completion is the outcome of CompleteLesson.
type Completion struct {
	Record spacedrep.Record
	Topic  Topic
	// First is set when the lesson had never been reviewed before.
	First bool
}

// CompleteLesson grades a lesson like UpsertLessonReview. The first
// completion of a lesson also counts as a completed section of its topic;
// the grade and the section count change together under the topic lock.
func (s *Service) CompleteLesson(topicID, lessonID string, q spacedrep.Quality) (Completion, error) {
	return s.review(topicID, lessonID, q, true)
}

func (s *Service) review(topicID, lessonID string, q spacedrep.Quality, countSection bool) (Completion, error) {
	if strings.TrimSpace(lessonID) == "" {
		return Completion{}, apperr.Validation("lesson_id", "must not be empty")
	}

	l, err := s.lockTopic(topicID)
	if err != nil {
		return Completion{}, err
	}
	defer l.Unlock()

	now := s.clock.Now()

	s.mu.RLock()
	_, ok := s.topics[topicID]
	existing, found := s.records[lessonID]
	var current spacedrep.Record
	if found {
		current = existing.Clone()
	}
	s.mu.RUnlock()

	if !ok {
		return Completion{}, apperr.NotFound("topic", topicID)
	}
	if found && current.TopicID != topicID {
		return Completion{}, errOtherTopic(lessonID)
	}
	if !found {
		current = spacedrep.NewRecord(lessonID, topicID, lessonID, now)
	}

	next, err := spacedrep.ComputeNextReview(current, q, now)
	if err != nil {
		return Completion{}, err
	}

	s.mu.Lock()
	t, ok := s.topics[topicID]
	if !ok {
		s.mu.Unlock()
		return Completion{}, apperr.NotFound("topic", topicID)
	}
	// Another topic may have claimed a new lesson ID since the read above.
	if r, exists := s.records[lessonID]; exists && r.TopicID != topicID {
		s.mu.Unlock()
		return Completion{}, errOtherTopic(lessonID)
	}
	stored := next.Clone()
	s.records[lessonID] = &stored
	first := !current.Reviewed()
	if countSection && first {
		t.CompletedSectionCount++
	}
	touch(t, now)
	s.bumpLocked()
	out := Completion{Record: next, First: first}
	if countSection {
		out.Topic = derive(t.clone(), s.recordsForLocked(topicID), now)
	}
	s.mu.Unlock()

	if s.eventRepo != nil {
		err := s.eventRepo.AppendReviewEvent(context.Background(), store.ReviewEventRecordData{
			Learner:         s.learner,
			TopicID:         topicID,
			LessonID:        lessonID,
			Quality:         int(q),
			RepetitionCount: next.RepetitionCount,
			IntervalDays:    next.IntervalDays,
			EasinessFactor:  next.EasinessFactor,
		})
		if err != nil {
			s.log.Warn("review event not recorded", "topic_id", topicID, "lesson_id", lessonID, "error", err)
		}
	}
	if countSection && first {
		s.appendTopicEvent(topicID, store.TopicSectionCompleted, fmt.Sprintf("%d", out.Topic.CompletedSectionCount))
	}
	return out, nil
}

func errOtherTopic(lessonID string) error {
	return apperr.Validation("lesson_id", fmt.Sprintf("%q belongs to another topic", lessonID))
}

// Record returns a copy of the lesson record.
func (s *Service) Record(id string) (spacedrep.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return spacedrep.Record{}, apperr.NotFound("lesson", id)
	}
	return r.Clone(), nil
}

// Records returns copies of the topic's lesson records, oldest first.
func (s *Service) Records(topicID string) ([]spacedrep.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.topics[topicID]; !ok {
		return nil, apperr.NotFound("topic", topicID)
	}
	return s.recordsForLocked(topicID), nil
}

// Snapshot returns a consistent copy of both stores, with derived topic
// fields computed against the service clock.
func (s *Service) Snapshot() Snapshot {
	now := s.clock.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()

	byTopic := make(map[string][]spacedrep.Record, len(s.topics))
	all := make([]spacedrep.Record, 0, len(s.records))
	for _, r := range s.records {
		c := r.Clone()
		all = append(all, c)
		byTopic[c.TopicID] = append(byTopic[c.TopicID], c)
	}
	sortRecords(all)

	topics := make([]Topic, 0, len(s.topics))
	for id, t := range s.topics {
		topics = append(topics, derive(t.clone(), byTopic[id], now))
	}
	sort.Slice(topics, func(i, j int) bool {
		if !topics[i].CreatedAt.Equal(topics[j].CreatedAt) {
			return topics[i].CreatedAt.Before(topics[j].CreatedAt)
		}
		return topics[i].ID < topics[j].ID
	})

	return Snapshot{AsOf: now, Generation: s.generation, Topics: topics, Records: all}
}

// ResetTopic clears the topic's completed sections and returns every lesson
// to the unreviewed state.
func (s *Service) ResetTopic(topicID string) (Topic, error) {
	l, err := s.lockTopic(topicID)
	if err != nil {
		return Topic{}, err
	}
	defer l.Unlock()

	now := s.clock.Now()
	s.mu.Lock()
	t, ok := s.topics[topicID]
	if !ok {
		s.mu.Unlock()
		return Topic{}, apperr.NotFound("topic", topicID)
	}
	t.CompletedSectionCount = 0
	touch(t, now)
	for id, r := range s.records {
		if r.TopicID != topicID {
			continue
		}
		fresh := spacedrep.NewRecord(r.ID, r.TopicID, r.Title, now)
		fresh.Module = r.Module
		fresh.EstimatedMinutes = r.EstimatedMinutes
		s.records[id] = &fresh
	}
	s.bumpLocked()
	out := derive(t.clone(), s.recordsForLocked(topicID), now)
	s.mu.Unlock()

	s.appendTopicEvent(topicID, store.TopicReset, "")
	return out, nil
}

// DeleteTopic removes the topic and every lesson record it owns.
func (s *Service) DeleteTopic(topicID string) error {
	l, err := s.lockTopic(topicID)
	if err != nil {
		return err
	}
	defer l.Unlock()

	s.mu.Lock()
	if _, ok := s.topics[topicID]; !ok {
		s.mu.Unlock()
		return apperr.NotFound("topic", topicID)
	}
	for id, r := range s.records {
		if r.TopicID == topicID {
			delete(s.records, id)
		}
	}
	delete(s.topics, topicID)
	delete(s.locks, topicID)
	s.bumpLocked()
	s.mu.Unlock()

	s.appendTopicEvent(topicID, store.TopicDeleted, "")
	return nil
}

// recordsForLocked returns sorted copies of the topic's records.
// s.mu must be held.
func (s *Service) recordsForLocked(topicID string) []spacedrep.Record {
	var out []spacedrep.Record
	for _, r := range s.records {
		if r.TopicID == topicID {
			out = append(out, r.Clone())
		}
	}
	sortRecords(out)
	return out
}

func (s *Service) appendTopicEvent(topicID, action, detail string) {
	if s.eventRepo == nil {
		return
	}
	// Events describe committed mutations and outlive the request that
	// caused them, so they are not bound to its context.
	err := s.eventRepo.AppendTopicEvent(context.Background(), store.TopicEventData{
		Learner: s.learner,
		TopicID: topicID,
		Action:  action,
		Detail:  detail,
	})
	if err != nil {
		s.log.Warn("topic event not recorded", "topic_id", topicID, "action", action, "error", err)
	}
}

func sortRecords(rs []spacedrep.Record) {
	sort.Slice(rs, func(i, j int) bool {
		if !rs[i].CreatedAt.Equal(rs[j].CreatedAt) {
			return rs[i].CreatedAt.Before(rs[j].CreatedAt)
		}
		return rs[i].ID < rs[j].ID
	})
}

// touch advances LastAccessedAt, never moving it backwards.
func touch(t *Topic, now time.Time) {
	if now.After(t.LastAccessedAt) {
		t.LastAccessedAt = now
	}
}
