// Package web serves the task backend contract over HTTP.
package web

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/Joseda-hg/taskconsole/internal/db"
	"github.com/Joseda-hg/taskconsole/internal/model"
)

const maxBodySize = 1 << 20

// Store is satisfied by *db.Store and *cache.Cache.
type Store interface {
	ListTasks(ctx context.Context) ([]model.Task, error)
	CreateTask(ctx context.Context, input db.TaskInput) (model.Task, error)
	UpdateTask(ctx context.Context, taskID int64, input db.TaskInput) (model.Task, error)
	DeleteTask(ctx context.Context, taskID int64) error
	ListComments(ctx context.Context, taskID int64) ([]model.Comment, error)
	CreateComment(ctx context.Context, taskID int64, content string) (model.Comment, error)
	UpdateComment(ctx context.Context, commentID int64, content string) (model.Comment, error)
	DeleteComment(ctx context.Context, commentID int64) error
	Ping(ctx context.Context) error
}

type Server struct {
	store          Store
	allowedOrigins []string
	log            logrus.FieldLogger
}

type Option func(*Server)

func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		s.allowedOrigins = append([]string(nil), origins...)
	}
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

func NewServer(store Store, opts ...Option) *Server {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	s := &Server{store: store, log: discard}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type taskBody struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type commentBody struct {
	Content string `json:"content"`
}

type indexResponse struct {
	Message   string            `json:"message"`
	Endpoints map[string]string `json:"endpoints"`
}

// Handler builds the echo instance with middleware and routes.
func (s *Server) Handler() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = sonicSerializer{}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	// echo's CORS middleware allows "*" for an empty list, so no configured
	// origins means no CORS headers at all.
	if len(s.allowedOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: s.allowedOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderXRequestID},
		}))
	}
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			entry := s.log.WithFields(logrus.Fields{
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"request_id": v.RequestID,
			})
			if v.Error != nil {
				entry.WithError(v.Error).Warn("request failed")
				return nil
			}
			entry.Debug("request")
			return nil
		},
	}))

	e.GET("/", s.index)
	e.GET("/healthz", s.healthz)
	e.GET("/api/tasks", s.listTasks)
	e.POST("/api/tasks", s.createTask)
	e.PUT("/api/tasks/:id", s.updateTask)
	e.DELETE("/api/tasks/:id", s.deleteTask)
	e.GET("/api/tasks/:id/comments", s.listComments)
	e.POST("/api/tasks/:id/comments", s.createComment)
	e.PUT("/api/comments/:id", s.updateComment)
	e.DELETE("/api/comments/:id", s.deleteComment)
	return e
}

// ListenAndServe runs until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	e := s.Handler()
	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("backend listening")
		errCh <- e.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	}
}

func (s *Server) index(c echo.Context) error {
	return c.JSON(http.StatusOK, indexResponse{
		Message: "Task Manager API",
		Endpoints: map[string]string{
			"tasks":    "/api/tasks",
			"comments": "/api/tasks/<task_id>/comments",
		},
	})
}

func (s *Server) healthz(c echo.Context) error {
	if err := s.store.Ping(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "store unavailable")
	}
	return c.NoContent(http.StatusOK)
}

func (s *Server) listTasks(c echo.Context) error {
	tasks, err := s.store.ListTasks(c.Request().Context())
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, tasks)
}

func (s *Server) createTask(c echo.Context) error {
	var body taskBody
	if err := decodeBody(c, &body); err != nil {
		return err
	}
	task, err := s.store.CreateTask(c.Request().Context(), db.TaskInput{Title: body.Title, Description: body.Description})
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusCreated, task)
}

func (s *Server) updateTask(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var body taskBody
	if err := decodeBody(c, &body); err != nil {
		return err
	}
	task, err := s.store.UpdateTask(c.Request().Context(), id, db.TaskInput{Title: body.Title, Description: body.Description})
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, task)
}

func (s *Server) deleteTask(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := s.store.DeleteTask(c.Request().Context(), id); err != nil {
		return storeError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) listComments(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	comments, err := s.store.ListComments(c.Request().Context(), id)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, comments)
}

func (s *Server) createComment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var body commentBody
	if err := decodeBody(c, &body); err != nil {
		return err
	}
	comment, err := s.store.CreateComment(c.Request().Context(), id, body.Content)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusCreated, comment)
}

func (s *Server) updateComment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var body commentBody
	if err := decodeBody(c, &body); err != nil {
		return err
	}
	comment, err := s.store.UpdateComment(c.Request().Context(), id, body.Content)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, comment)
}

func (s *Server) deleteComment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := s.store.DeleteComment(c.Request().Context(), id); err != nil {
		return storeError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

type sonicSerializer struct{}

func (sonicSerializer) Serialize(c echo.Context, i any, indent string) error {
	enc := sonic.ConfigStd.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

func (sonicSerializer) Deserialize(c echo.Context, i any) error {
	return sonic.ConfigStd.NewDecoder(c.Request().Body).Decode(i)
}

func decodeBody(c echo.Context, dst any) error {
	dec := sonic.ConfigStd.NewDecoder(io.LimitReader(c.Request().Body, maxBodySize))
	if err := dec.Decode(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	return nil
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusNotFound, "not found")
	}
	return id, nil
}

func storeError(err error) error {
	switch {
	case errors.Is(err, db.ErrInvalidInput):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, db.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error()).SetInternal(err)
	}
}
