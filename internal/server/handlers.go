package server

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/abhisek/cognitioflux/internal/app"
	"github.com/abhisek/cognitioflux/internal/apperr"
	"github.com/abhisek/cognitioflux/internal/feed"
	"github.com/abhisek/cognitioflux/internal/spacedrep"
	"github.com/labstack/echo/v4"
)

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) createCourse(c echo.Context) error {
	var req createCourseRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	sum, err := s.app.CreateCourse(c.Request().Context(), app.CreateCourseInput{
		Topic:      req.Topic,
		Email:      req.UserEmail,
		Context:    req.Context,
		Difficulty: req.Difficulty,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sum)
}

func (s *Server) completeLesson(c echo.Context) error {
	var req completeLessonRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	res, err := s.app.CompleteLesson(c.Request().Context(), app.CompleteLessonInput{
		Email:            req.UserEmail,
		LessonID:         req.LessonID,
		QuizCorrect:      req.QuizCorrect,
		DifficultyRating: req.DifficultyRating,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, completeLessonResponse{
		Success:        true,
		LessonID:       res.Record.ID,
		Quality:        int(res.Quality),
		Repetition:     res.Record.RepetitionCount,
		IntervalDays:   res.Record.IntervalDays,
		EasinessFactor: res.Record.EasinessFactor,
		NextReview:     res.Record.NextDueAt,
		SectionsDone:   res.Topic.CompletedSectionCount,
	})
}

func (s *Server) feedFor(c echo.Context) (*app.DailyFeed, error) {
	email, err := emailParam(c)
	if err != nil {
		return nil, err
	}
	maxNew := s.cfg.MaxNewItems
	if raw := c.QueryParam("max_new"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, apperr.Validation("max_new", "must be an integer")
		}
		maxNew = n
	}
	return s.app.DailyFeedWith(c.Request().Context(), email, maxNew)
}

func (s *Server) dailyFeed(c echo.Context) error {
	df, err := s.feedFor(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dailyFeedResponse{
		Greeting:       df.Greeting,
		Date:           df.Result.AsOf.Format("2006-01-02"),
		DailyLessons:   newLessonDTOs(df.Result.TodayEntries),
		OverdueLessons: newLessonDTOs(df.Result.OverdueEntries),
		TotalStudyTime: df.Result.EstimatedMinutes,
		Statistics:     df.Result.Statistics,
	})
}

func (s *Server) channel(df *app.DailyFeed) feed.Channel {
	return feed.Channel{
		Title:       "CognitioFlux daily lessons",
		Link:        s.cfg.BaseURL,
		Description: df.Greeting,
		Author:      "CognitioFlux",
	}
}

func (s *Server) dailyAtom(c echo.Context) error {
	df, err := s.feedFor(c)
	if err != nil {
		return err
	}
	doc, err := feed.RenderAtom(df.Result, s.channel(df))
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, "application/atom+xml; charset=utf-8", []byte(doc))
}

func (s *Server) dailyRSS(c echo.Context) error {
	df, err := s.feedFor(c)
	if err != nil {
		return err
	}
	doc, err := feed.RenderRSS(df.Result, s.channel(df))
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, "application/rss+xml; charset=utf-8", []byte(doc))
}

func (s *Server) statistics(c echo.Context) error {
	email, err := emailParam(c)
	if err != nil {
		return err
	}
	stats, err := s.app.Statistics(c.Request().Context(), email)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

func (s *Server) topics(c echo.Context) error {
	email, err := emailParam(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	topics, err := s.app.Topics(ctx, email)
	if err != nil {
		return err
	}
	out := make([]topicDTO, 0, len(topics))
	for _, t := range topics {
		lessons, err := s.app.Lessons(ctx, email, t.ID)
		if err != nil && !apperr.IsNotFound(err) {
			return err
		}
		out = append(out, topicDTO{Topic: t, Lessons: len(lessons)})
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) topicLessons(c echo.Context) error {
	email, err := emailParam(c)
	if err != nil {
		return err
	}
	records, err := s.app.Lessons(c.Request().Context(), email, c.Param("id"))
	if err != nil {
		return err
	}
	now := s.app.Now()
	out := make([]lessonRecordDTO, 0, len(records))
	for _, r := range records {
		out = append(out, lessonRecordDTO{Record: r, Retention: spacedrep.EstimateRetention(r, now)})
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) recordSection(c echo.Context) error {
	email, err := emailParam(c)
	if err != nil {
		return err
	}
	t, err := s.app.RecordSection(c.Request().Context(), email, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

func (s *Server) deleteTopic(c echo.Context) error {
	email, err := emailParam(c)
	if err != nil {
		return err
	}
	if err := s.app.DeleteTopic(c.Request().Context(), email, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// emailParam returns the unescaped, normalized learner email from the path.
func emailParam(c echo.Context) (string, error) {
	raw, err := url.PathUnescape(c.Param("email"))
	if err != nil {
		return "", apperr.Validation("user_email", "malformed path segment")
	}
	return app.NormalizeEmail(raw)
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	var he *echo.HTTPError
	switch {
	case apperr.IsValidation(err), apperr.IsInvalidInput(err):
		return http.StatusBadRequest
	case apperr.IsNotFound(err):
		return http.StatusNotFound
	case errors.As(err, &he):
		return he.Code
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := statusFor(err)
	detail := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if msg, ok := he.Message.(string); ok {
			detail = msg
		} else {
			detail = http.StatusText(he.Code)
		}
	}
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "path", c.Path(), "error", err)
		if status == http.StatusInternalServerError {
			detail = "internal server error"
		}
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, errorResponse{Detail: detail})
	}
	if err != nil {
		s.log.Warn("write error response", "error", err)
	}
}
