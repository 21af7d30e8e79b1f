package web

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"

	"github.com/Joseda-hg/taskconsole/internal/db"
	"github.com/Joseda-hg/taskconsole/internal/model"
)

var testOrigins = []string{"http://localhost:3000"}

func newTestServer(t *testing.T) (*echo.Echo, *db.Store) {
	t.Helper()
	conn, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	store := db.NewStore(conn)
	store.Now = func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) }
	return NewServer(store, WithAllowedOrigins(testOrigins)).Handler(), store
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestIndexListsEndpoints(t *testing.T) {
	e, _ := newTestServer(t)
	rec := do(e, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp indexResponse
	if err := sonic.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Endpoints["tasks"] != "/api/tasks" {
		t.Fatalf("unexpected index %+v", resp)
	}
}

func TestTaskLifecycle(t *testing.T) {
	e, _ := newTestServer(t)

	rec := do(e, http.MethodGet, "/api/tasks", "")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("expected empty array, got %d %q", rec.Code, rec.Body.String())
	}

	rec = do(e, http.MethodPost, "/api/tasks", `{"title":"Write docs","description":"README"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created model.Task
	if err := sonic.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}
	if created.ID == 0 || created.Title != "Write docs" {
		t.Fatalf("unexpected created task %+v", created)
	}

	rec = do(e, http.MethodPut, "/api/tasks/1", `{"title":"Write more docs","description":""}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(e, http.MethodGet, "/api/tasks", "")
	var tasks []model.Task
	if err := sonic.Unmarshal(rec.Body.Bytes(), &tasks); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Title != "Write more docs" || tasks[0].Description != "" {
		t.Fatalf("unexpected tasks %+v", tasks)
	}
	if !tasks[0].CreatedAt.Equal(created.CreatedAt.Time) {
		t.Fatalf("expected created_at to survive update")
	}

	rec = do(e, http.MethodDelete, "/api/tasks/1", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	rec = do(e, http.MethodDelete, "/api/tasks/1", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", rec.Code)
	}
}

func TestValidationErrors(t *testing.T) {
	e, _ := newTestServer(t)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		want   int
	}{
		{"blank title", http.MethodPost, "/api/tasks", `{"title":"  "}`, http.StatusBadRequest},
		{"long title", http.MethodPost, "/api/tasks", `{"title":"` + strings.Repeat("x", db.MaxTitleLength+1) + `"}`, http.StatusBadRequest},
		{"malformed json", http.MethodPost, "/api/tasks", `{"title":`, http.StatusBadRequest},
		{"update unknown", http.MethodPut, "/api/tasks/9", `{"title":"x"}`, http.StatusNotFound},
		{"bad id", http.MethodPut, "/api/tasks/abc", `{"title":"x"}`, http.StatusNotFound},
		{"comments of unknown task", http.MethodGet, "/api/tasks/9/comments", "", http.StatusNotFound},
		{"delete unknown comment", http.MethodDelete, "/api/comments/9", "", http.StatusNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(e, tc.method, tc.target, tc.body)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestCommentEndpoints(t *testing.T) {
	e, store := newTestServer(t)
	task, err := store.CreateTask(context.Background(), db.TaskInput{Title: "Discuss"})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	rec := do(e, http.MethodPost, "/api/tasks/1/comments", `{"content":"first"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var comment model.Comment
	if err := sonic.Unmarshal(rec.Body.Bytes(), &comment); err != nil {
		t.Fatalf("decode comment: %v", err)
	}
	if comment.TaskID != task.ID || comment.Content != "first" {
		t.Fatalf("unexpected comment %+v", comment)
	}

	rec = do(e, http.MethodPost, "/api/tasks/1/comments", `{"content":" "}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank comment, got %d", rec.Code)
	}

	rec = do(e, http.MethodPut, "/api/comments/1", `{"content":"edited"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = do(e, http.MethodGet, "/api/tasks", "")
	var tasks []model.Task
	if err := sonic.Unmarshal(rec.Body.Bytes(), &tasks); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if tasks[0].CommentsCount != 1 {
		t.Fatalf("expected comments_count 1, got %d", tasks[0].CommentsCount)
	}

	rec = do(e, http.MethodGet, "/api/tasks/1/comments", "")
	var comments []model.Comment
	if err := sonic.Unmarshal(rec.Body.Bytes(), &comments); err != nil {
		t.Fatalf("decode comments: %v", err)
	}
	if len(comments) != 1 || comments[0].Content != "edited" {
		t.Fatalf("unexpected comments %+v", comments)
	}

	rec = do(e, http.MethodDelete, "/api/comments/1", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

func TestCORSAllowsConfiguredOrigins(t *testing.T) {
	e, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.Header.Set(echo.HeaderOrigin, "http://localhost:3000")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if got := rec.Header().Get(echo.HeaderAccessControlAllowOrigin); got != "http://localhost:3000" {
		t.Fatalf("expected allowed origin echoed, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.Header.Set(echo.HeaderOrigin, "http://evil.example")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if got := rec.Header().Get(echo.HeaderAccessControlAllowOrigin); got != "" {
		t.Fatalf("expected no allow header for foreign origin, got %q", got)
	}
}

func TestEmptyOriginListAllowsNoCrossOrigin(t *testing.T) {
	for _, origins := range [][]string{nil, {}} {
		conn, err := db.Open(":memory:")
		if err != nil {
			t.Fatalf("open db: %v", err)
		}
		t.Cleanup(func() { _ = conn.Close() })
		e := NewServer(db.NewStore(conn), WithAllowedOrigins(origins)).Handler()

		req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
		req.Header.Set(echo.HeaderOrigin, "http://evil.example")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		if got := rec.Header().Get(echo.HeaderAccessControlAllowOrigin); got != "" {
			t.Fatalf("expected no allow header for %v, got %q", origins, got)
		}
		if rec.Code != http.StatusOK {
			t.Fatalf("expected same-origin style request to still be served, got %d", rec.Code)
		}
	}
}

func TestResponsesCarryRequestID(t *testing.T) {
	e, _ := newTestServer(t)
	rec := do(e, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get(echo.HeaderXRequestID) == "" {
		t.Fatalf("expected request id header")
	}
}

type brokenStore struct{ *db.Store }

func (brokenStore) ListTasks(context.Context) ([]model.Task, error) {
	return nil, errors.New("disk on fire")
}

func (brokenStore) Ping(context.Context) error { return errors.New("down") }

func TestStoreFailuresMapTo5xx(t *testing.T) {
	e := NewServer(brokenStore{}).Handler()

	if rec := do(e, http.MethodGet, "/api/tasks", ""); rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/healthz", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
