// Package app wires the per-learner progress stores, the feed composer and
// course generation into the operations exposed over HTTP and the CLI.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/abhisek/cognitioflux/internal/apperr"
	"github.com/abhisek/cognitioflux/internal/clock"
	"github.com/abhisek/cognitioflux/internal/config"
	"github.com/abhisek/cognitioflux/internal/feed"
	"github.com/abhisek/cognitioflux/internal/feedcache"
	"github.com/abhisek/cognitioflux/internal/logger"
	"github.com/abhisek/cognitioflux/internal/progress"
	"github.com/abhisek/cognitioflux/internal/spacedrep"
	"github.com/abhisek/cognitioflux/internal/store"
	"github.com/abhisek/cognitioflux/internal/syllabus"
)

// Options holds the collaborators of an App. Only Syllabus is required.
type Options struct {
	Config    config.Config
	Clock     clock.Clock
	Snapshots store.SnapshotRepo // nil disables Save and Restore
	Events    store.EventRepo    // may be nil
	Cache     feedcache.Cache    // nil disables feed caching
	Syllabus  syllabus.Generator
	Logger    *logger.Logger
}

// App serves every learner known to this process.
type App struct {
	cfg       config.Config
	loc       *time.Location
	clock     clock.Clock
	snapshots store.SnapshotRepo
	events    store.EventRepo
	cache     feedcache.Cache
	syllabus  syllabus.Generator
	log       *logger.Logger

	mu       sync.RWMutex
	learners map[string]*progress.Service
}

// New creates an App with no learners loaded. Call Restore to load the
// latest snapshot.
func New(opts Options) (*App, error) {
	if opts.Syllabus == nil {
		return nil, fmt.Errorf("app: syllabus generator is required")
	}
	loc, err := opts.Config.Location()
	if err != nil {
		return nil, err
	}
	if opts.Clock == nil {
		opts.Clock = clock.System()
	}
	if opts.Cache == nil {
		opts.Cache = feedcache.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	return &App{
		cfg:       opts.Config,
		loc:       loc,
		clock:     opts.Clock,
		snapshots: opts.Snapshots,
		events:    opts.Events,
		cache:     opts.Cache,
		syllabus:  opts.Syllabus,
		log:       opts.Logger.With("component", "app"),
		learners:  make(map[string]*progress.Service),
	}, nil
}

// Config returns the settings the App was created with.
func (a *App) Config() config.Config {
	return a.cfg
}

// Now returns the current time in the configured time zone. Day boundaries
// for feeds and statistics are computed in this zone.
func (a *App) Now() time.Time {
	return a.clock.Now().In(a.loc)
}

// NormalizeEmail trims and lower-cases a learner email.
func NormalizeEmail(email string) (string, error) {
	e := strings.ToLower(strings.TrimSpace(email))
	if e == "" {
		return "", apperr.Validation("user_email", "must not be empty")
	}
	return e, nil
}

// learner returns the progress service for email, creating an empty one
// on first use.
func (a *App) learner(email string) (string, *progress.Service, error) {
	key, err := NormalizeEmail(email)
	if err != nil {
		return "", nil, err
	}

	a.mu.RLock()
	svc, ok := a.learners[key]
	a.mu.RUnlock()
	if ok {
		return key, svc, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if svc, ok = a.learners[key]; !ok {
		svc = a.newService(key, nil)
		a.learners[key] = svc
	}
	return key, svc, nil
}

func (a *App) newService(learner string, data *store.ProgressSnapshotData) *progress.Service {
	svc := progress.NewService(learner, data, a.clock, a.events)
	svc.SetLogger(a.log)
	return svc
}

// Learners returns the emails of every loaded learner, sorted.
func (a *App) Learners() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, 0, len(a.learners))
	for k := range a.learners {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (a *App) invalidate(ctx context.Context, learner string) {
	if err := a.cache.Invalidate(ctx, feedcache.LearnerPrefix(learner)); err != nil {
		a.log.Warn("feed cache invalidation failed", "learner", learner, "error", err)
	}
}

// CreateCourseInput is a request for a generated course.
type CreateCourseInput struct {
	Topic      string
	Email      string
	Context    string
	Difficulty string
}

// CourseSummary describes a created course.
type CourseSummary struct {
	CourseID          string `json:"course_id"`
	CourseTitle       string `json:"course_title"`
	TotalModules      int    `json:"total_modules"`
	TotalLessons      int    `json:"total_lessons"`
	EstimatedDuration int    `json:"estimated_duration"`
}

// LessonID returns the ID of the li-th lesson of the mi-th module of a
// topic, both zero based.
func LessonID(topicID string, mi, li int) string {
	return fmt.Sprintf("%s.m%02d.l%02d", topicID, mi+1, li+1)
}

// CreateCourse generates an outline for the topic, creates the topic and
// seeds one new lesson per outline lesson.
func (a *App) CreateCourse(ctx context.Context, in CreateCourseInput) (*CourseSummary, error) {
	learner, svc, err := a.learner(in.Email)
	if err != nil {
		return nil, err
	}

	outline, err := a.syllabus.Generate(ctx, syllabus.Input{
		Topic:      in.Topic,
		Context:    in.Context,
		Difficulty: in.Difficulty,
	})
	if err != nil {
		return nil, err
	}

	modules := make([]string, len(outline.Modules))
	for i, m := range outline.Modules {
		modules[i] = m.Title
	}
	topic, err := svc.CreateTopicFrom(progress.TopicSpec{
		Name:    strings.TrimSpace(in.Topic),
		Context: in.Context,
		Modules: modules,
	})
	if err != nil {
		return nil, err
	}

	for mi, m := range outline.Modules {
		for li, l := range m.Lessons {
			_, err := svc.AddLesson(topic.ID, progress.LessonSpec{
				ID:               LessonID(topic.ID, mi, li),
				Title:            l.Title,
				Module:           m.Title,
				EstimatedMinutes: l.Minutes,
			})
			if err != nil {
				_ = svc.DeleteTopic(topic.ID)
				return nil, fmt.Errorf("seed lesson %q: %w", l.Title, err)
			}
		}
	}
	a.invalidate(ctx, learner)

	a.log.Info("course created",
		"learner", learner,
		"topic_id", topic.ID,
		"source", outline.Source,
		"lessons", outline.TotalLessons())

	return &CourseSummary{
		CourseID:          topic.ID,
		CourseTitle:       outline.Title,
		TotalModules:      len(outline.Modules),
		TotalLessons:      outline.TotalLessons(),
		EstimatedDuration: outline.TotalMinutes(),
	}, nil
}

// CreateTopic creates an empty topic with no generated lessons.
func (a *App) CreateTopic(ctx context.Context, email, name string) (progress.Topic, error) {
	learner, svc, err := a.learner(email)
	if err != nil {
		return progress.Topic{}, err
	}
	t, err := svc.CreateTopic(name)
	if err != nil {
		return progress.Topic{}, err
	}
	a.invalidate(ctx, learner)
	return t, nil
}

// AddLesson seeds a single lesson under an existing topic.
func (a *App) AddLesson(ctx context.Context, email, topicID string, spec progress.LessonSpec) (spacedrep.Record, error) {
	learner, svc, err := a.learner(email)
	if err != nil {
		return spacedrep.Record{}, err
	}
	rec, err := svc.AddLesson(topicID, spec)
	if err != nil {
		return spacedrep.Record{}, err
	}
	a.invalidate(ctx, learner)
	return rec, nil
}

// Topics returns the learner's topics, oldest first.
func (a *App) Topics(_ context.Context, email string) ([]progress.Topic, error) {
	_, svc, err := a.learner(email)
	if err != nil {
		return nil, err
	}
	return svc.Topics(), nil
}

// Lessons returns the lesson records of one topic, oldest first.
func (a *App) Lessons(_ context.Context, email, topicID string) ([]spacedrep.Record, error) {
	_, svc, err := a.learner(email)
	if err != nil {
		return nil, err
	}
	return svc.Records(topicID)
}

// RecordSection marks one more section of the topic as completed.
func (a *App) RecordSection(ctx context.Context, email, topicID string) (progress.Topic, error) {
	learner, svc, err := a.learner(email)
	if err != nil {
		return progress.Topic{}, err
	}
	t, err := svc.RecordSectionCompletion(topicID)
	if err != nil {
		return progress.Topic{}, err
	}
	a.invalidate(ctx, learner)
	return t, nil
}

// ResetTopic returns every lesson of the topic to the new state.
func (a *App) ResetTopic(ctx context.Context, email, topicID string) (progress.Topic, error) {
	learner, svc, err := a.learner(email)
	if err != nil {
		return progress.Topic{}, err
	}
	t, err := svc.ResetTopic(topicID)
	if err != nil {
		return progress.Topic{}, err
	}
	a.invalidate(ctx, learner)
	return t, nil
}

// DeleteTopic removes a topic and its lessons.
func (a *App) DeleteTopic(ctx context.Context, email, topicID string) error {
	learner, svc, err := a.learner(email)
	if err != nil {
		return err
	}
	if err := svc.DeleteTopic(topicID); err != nil {
		return err
	}
	a.invalidate(ctx, learner)
	return nil
}

// Review grades a lesson directly with an SM-2 quality.
func (a *App) Review(ctx context.Context, email, topicID, lessonID string, q spacedrep.Quality) (spacedrep.Record, error) {
	learner, svc, err := a.learner(email)
	if err != nil {
		return spacedrep.Record{}, err
	}
	rec, err := svc.UpsertLessonReview(topicID, lessonID, q)
	if err != nil {
		return spacedrep.Record{}, err
	}
	a.invalidate(ctx, learner)
	return rec, nil
}

// CompleteLessonInput reports the outcome of a finished lesson.
type CompleteLessonInput struct {
	Email            string
	LessonID         string
	QuizCorrect      bool
	DifficultyRating int // 0 when the learner did not rate the lesson
}

// CompleteLessonResult is the rescheduled lesson.
type CompleteLessonResult struct {
	Record  spacedrep.Record
	Quality spacedrep.Quality
	Topic   progress.Topic
}

// CompleteLesson grades a finished lesson from its quiz outcome and
// reschedules it. The first completion of a lesson also counts as a
// completed section of its topic.
func (a *App) CompleteLesson(ctx context.Context, in CompleteLessonInput) (*CompleteLessonResult, error) {
	learner, svc, err := a.learner(in.Email)
	if err != nil {
		return nil, err
	}
	lessonID := strings.TrimSpace(in.LessonID)
	if lessonID == "" {
		return nil, apperr.Validation("lesson_id", "must not be empty")
	}
	q, err := spacedrep.QualityFromAnswer(in.QuizCorrect, in.DifficultyRating)
	if err != nil {
		return nil, err
	}

	topicID, err := lessonTopic(svc, lessonID)
	if err != nil {
		return nil, err
	}

	c, err := svc.CompleteLesson(topicID, lessonID, q)
	if err != nil {
		return nil, err
	}
	a.invalidate(ctx, learner)

	a.log.Debug("lesson completed",
		"learner", learner,
		"lesson_id", lessonID,
		"quality", int(q),
		"first", c.First,
		"next_due", c.Record.NextDueAt)

	return &CompleteLessonResult{Record: c.Record, Quality: q, Topic: c.Topic}, nil
}

// lessonTopic resolves the topic a lesson belongs to. Lessons without a
// record are resolved from the topic prefix of their generated ID.
func lessonTopic(svc *progress.Service, lessonID string) (string, error) {
	rec, err := svc.Record(lessonID)
	if err == nil {
		return rec.TopicID, nil
	}
	if !apperr.IsNotFound(err) {
		return "", err
	}
	prefix, _, ok := strings.Cut(lessonID, ".")
	if !ok {
		return "", apperr.NotFound("lesson", lessonID)
	}
	if _, err := svc.Topic(prefix); err != nil {
		return "", apperr.NotFound("lesson", lessonID)
	}
	return prefix, nil
}

// DailyFeed is a composed feed with its headline.
type DailyFeed struct {
	Greeting string       `json:"greeting"`
	Result   *feed.Result `json:"result"`
}

// DailyFeed composes today's feed for the learner using the configured
// new-lesson budget.
func (a *App) DailyFeed(ctx context.Context, email string) (*DailyFeed, error) {
	return a.DailyFeedWith(ctx, email, a.cfg.MaxNewItems)
}

// DailyFeedWith composes today's feed with an explicit new-lesson budget.
// Feeds are cached per learner, store generation, day and budget, so a
// cached feed always matches the stores it was composed from.
func (a *App) DailyFeedWith(ctx context.Context, email string, maxNew int) (*DailyFeed, error) {
	learner, svc, err := a.learner(email)
	if err != nil {
		return nil, err
	}
	if maxNew < 0 {
		return nil, apperr.InvalidInput("maxNewItems %d is negative", maxNew)
	}

	asOf := a.Now()
	key := feedcache.Key(learner, svc.Generation(), asOf, maxNew)
	if raw, ok, err := a.cache.Get(ctx, key); err != nil {
		a.log.Warn("feed cache read failed", "learner", learner, "error", err)
	} else if ok {
		var cached DailyFeed
		if err := json.Unmarshal(raw, &cached); err == nil && cached.Result != nil {
			return &cached, nil
		}
	}

	snap := svc.Snapshot()
	res, err := feed.BuildDailyFeed(snap.Topics, snap.Records, asOf, maxNew)
	if err != nil {
		return nil, err
	}
	out := &DailyFeed{Greeting: feed.Greeting(res), Result: res}

	key = feedcache.Key(learner, snap.Generation, asOf, maxNew)
	if raw, err := json.Marshal(out); err == nil {
		if err := a.cache.Set(ctx, key, raw, a.cfg.FeedCacheTTL); err != nil {
			a.log.Warn("feed cache write failed", "learner", learner, "error", err)
		}
	}
	return out, nil
}

// Statistics aggregates the learner's activity as of now.
func (a *App) Statistics(_ context.Context, email string) (feed.Statistics, error) {
	_, svc, err := a.learner(email)
	if err != nil {
		return feed.Statistics{}, err
	}
	snap := svc.Snapshot()
	return feed.ComputeStatistics(snap.Topics, snap.Records, a.Now()), nil
}

// Save writes a snapshot of every learner and prunes old snapshots.
func (a *App) Save(ctx context.Context) error {
	if a.snapshots == nil {
		return nil
	}

	a.mu.RLock()
	data := store.SnapshotData{
		Version:  store.CurrentSnapshotVersion,
		Learners: make(map[string]*store.ProgressSnapshotData, len(a.learners)),
	}
	for k, svc := range a.learners {
		data.Learners[k] = svc.ExportData()
	}
	a.mu.RUnlock()

	snap := &store.Snapshot{Timestamp: a.clock.Now(), Data: data}
	if err := a.snapshots.Save(ctx, snap); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	if err := a.snapshots.Prune(ctx, a.cfg.SnapshotKeep); err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}
	a.log.Debug("snapshot saved", "learners", len(data.Learners), "sequence", snap.Sequence)
	return nil
}

// Restore replaces the loaded learners with the latest snapshot. It is a
// no-op when no snapshot exists.
func (a *App) Restore(ctx context.Context) error {
	if a.snapshots == nil {
		return nil
	}
	snap, err := a.snapshots.Latest(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if snap == nil {
		return nil
	}
	if snap.Data.Version > store.CurrentSnapshotVersion {
		return fmt.Errorf("snapshot version %d is newer than supported version %d",
			snap.Data.Version, store.CurrentSnapshotVersion)
	}

	learners := make(map[string]*progress.Service, len(snap.Data.Learners))
	for k, data := range snap.Data.Learners {
		learners[k] = a.newService(k, data)
	}

	a.mu.Lock()
	a.learners = learners
	a.mu.Unlock()

	for k := range learners {
		a.invalidate(ctx, k)
	}
	a.log.Info("snapshot restored", "learners", len(learners), "taken_at", snap.Timestamp)
	return nil
}

// Reset forgets every learner held in memory.
func (a *App) Reset(ctx context.Context) {
	a.mu.Lock()
	old := a.learners
	a.learners = make(map[string]*progress.Service)
	a.mu.Unlock()

	for k := range old {
		a.invalidate(ctx, k)
	}
}
