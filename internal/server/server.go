// Package server exposes the review engine over HTTP.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/abhisek/cognitioflux/internal/app"
	"github.com/abhisek/cognitioflux/internal/config"
	"github.com/abhisek/cognitioflux/internal/logger"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/errgroup"
)

// Server is the HTTP front end of an App.
type Server struct {
	app  *app.App
	cfg  config.Config
	log  *logger.Logger
	echo *echo.Echo
}

// New builds the router and middleware chain for a.
func New(a *app.App, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	s := &Server{
		app: a,
		cfg: a.Config(),
		log: log.With("component", "server"),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.Recover())
	e.Use(requestLogger(s.log))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
	}))
	if s.cfg.RateLimit > 0 {
		e.Use(rateLimit(NewRateLimiter(s.cfg.RateLimit, s.cfg.RateBurst)))
	}
	e.Use(requestTimeout(s.cfg.RequestTimeout))

	s.echo = e
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.echo.Group("/api")
	api.GET("/health", s.health)

	api.POST("/courses/create", s.createCourse)
	api.POST("/lessons/complete", s.completeLesson)

	users := api.Group("/users/:email")
	users.GET("/daily", s.dailyFeed)
	users.GET("/daily.atom", s.dailyAtom)
	users.GET("/daily.rss", s.dailyRSS)
	users.GET("/statistics", s.statistics)
	users.GET("/topics", s.topics)
	users.GET("/topics/:id/lessons", s.topicLessons)
	users.POST("/topics/:id/sections", s.recordSection)
	users.DELETE("/topics/:id", s.deleteTopic)
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, saving a snapshot on
// every SnapshotInterval tick and once more after shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.echo,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("http server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		s.snapshotLoop(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		if saveErr := s.app.Save(shutdownCtx); saveErr != nil {
			s.log.Error("final snapshot failed", "error", saveErr)
		}
		s.log.Info("http server stopped")
		return err
	})
	return g.Wait()
}

func (s *Server) snapshotLoop(ctx context.Context) {
	if s.cfg.SnapshotInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.SnapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.app.Save(ctx); err != nil && ctx.Err() == nil {
				s.log.Warn("periodic snapshot failed", "error", err)
			}
		}
	}
}
