package server

import (
	"time"

	"github.com/abhisek/cognitioflux/internal/feed"
	"github.com/abhisek/cognitioflux/internal/progress"
	"github.com/abhisek/cognitioflux/internal/spacedrep"
)

type createCourseRequest struct {
	Topic      string `json:"topic"`
	UserEmail  string `json:"user_email"`
	Context    string `json:"context"`
	Difficulty string `json:"difficulty"`
}

type completeLessonRequest struct {
	UserEmail        string `json:"user_email"`
	LessonID         string `json:"lesson_id"`
	QuizCorrect      bool   `json:"quiz_correct"`
	DifficultyRating int    `json:"difficulty_rating"`
}

type completeLessonResponse struct {
	Success        bool      `json:"success"`
	LessonID       string    `json:"lesson_id"`
	Quality        int       `json:"quality"`
	Repetition     int       `json:"repetition"`
	IntervalDays   int       `json:"interval_days"`
	EasinessFactor float64   `json:"easiness_factor"`
	NextReview     time.Time `json:"next_review"`
	SectionsDone   int       `json:"completed_sections"`
}

type lessonDTO struct {
	LessonID       string     `json:"lesson_id"`
	Title          string     `json:"title"`
	TopicID        string     `json:"topic_id"`
	TopicName      string     `json:"topic_name"`
	ModuleTitle    string     `json:"module_title"`
	Type           string     `json:"type"`
	Repetition     int        `json:"repetition"`
	EasinessFactor float64    `json:"easiness_factor"`
	EstimatedTime  int        `json:"estimated_time"`
	DaysOverdue    int        `json:"days_overdue"`
	LastReviewed   *time.Time `json:"last_reviewed"`
	Priority       float64    `json:"priority"`
}

func newLessonDTO(e feed.Entry) lessonDTO {
	typ := "review"
	if e.Classification == spacedrep.ClassNew {
		typ = "new"
	}
	return lessonDTO{
		LessonID:       e.Record.ID,
		Title:          e.Record.Title,
		TopicID:        e.Record.TopicID,
		TopicName:      e.TopicName,
		ModuleTitle:    e.Record.Module,
		Type:           typ,
		Repetition:     e.Record.RepetitionCount,
		EasinessFactor: e.Record.EasinessFactor,
		EstimatedTime:  e.Record.EstimatedMinutes,
		DaysOverdue:    e.DaysOverdue,
		LastReviewed:   e.Record.LastReviewedAt,
		Priority:       e.Priority,
	}
}

func newLessonDTOs(entries []feed.Entry) []lessonDTO {
	out := make([]lessonDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, newLessonDTO(e))
	}
	return out
}

type dailyFeedResponse struct {
	Greeting       string          `json:"greeting"`
	Date           string          `json:"date"`
	DailyLessons   []lessonDTO     `json:"daily_lessons"`
	OverdueLessons []lessonDTO     `json:"overdue_lessons"`
	TotalStudyTime int             `json:"total_study_time"`
	Statistics     feed.Statistics `json:"statistics"`
}

type topicDTO struct {
	progress.Topic
	Lessons int `json:"lessons"`
}

type lessonRecordDTO struct {
	spacedrep.Record
	Retention float64 `json:"retention"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}
