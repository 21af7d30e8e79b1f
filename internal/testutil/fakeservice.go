// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Joseda-hg/taskconsole/internal/model"
)

// ErrNotFound is returned when a task or comment does not exist.
var ErrNotFound = errors.New("not found")

// FakeService is an in-memory task backend with the same semantics as the
// real server: ids are assigned on create, created_at never changes and
// comments_count is computed on list.
type FakeService struct {
	mu       sync.Mutex
	nextID   int64
	tasks    []model.Task
	comments map[int64][]model.Comment
	calls    []string
	now      func() time.Time

	// Error injection for testing
	ListTasksErr     error
	CreateTaskErr    error
	UpdateTaskErr    error
	DeleteTaskErr    error
	ListCommentsErr  error
	CreateCommentErr error
	UpdateCommentErr error
	DeleteCommentErr error
}

// NewFakeService creates an empty FakeService with a fixed clock that
// advances one second per write.
func NewFakeService() *FakeService {
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	tick := 0
	return &FakeService{
		comments: make(map[int64][]model.Comment),
		now: func() time.Time {
			tick++
			return base.Add(time.Duration(tick) * time.Second)
		},
	}
}

// AddTask seeds a task without recording a call.
func (f *FakeService) AddTask(title, description string) model.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.insertLocked(model.Draft{Title: title, Description: description})
}

// Calls returns the backend calls made so far, e.g. "DeleteTask 3".
func (f *FakeService) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// ResetCalls clears the call log.
func (f *FakeService) ResetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

// Tasks returns the stored tasks.
func (f *FakeService) Tasks() []model.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listLocked()
}

func (f *FakeService) ListTasks(ctx context.Context) ([]model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "ListTasks")
	if f.ListTasksErr != nil {
		return nil, f.ListTasksErr
	}
	return f.listLocked(), nil
}

func (f *FakeService) CreateTask(ctx context.Context, draft model.Draft) (model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "CreateTask")
	if f.CreateTaskErr != nil {
		return model.Task{}, f.CreateTaskErr
	}
	if strings.TrimSpace(draft.Title) == "" {
		return model.Task{}, errors.New("title is required")
	}
	return f.insertLocked(draft), nil
}

func (f *FakeService) UpdateTask(ctx context.Context, id int64, draft model.Draft) (model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("UpdateTask %d", id))
	if f.UpdateTaskErr != nil {
		return model.Task{}, f.UpdateTaskErr
	}
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			f.tasks[i].Title = draft.Title
			f.tasks[i].Description = draft.Description
			return f.tasks[i], nil
		}
	}
	return model.Task{}, ErrNotFound
}

func (f *FakeService) DeleteTask(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("DeleteTask %d", id))
	if f.DeleteTaskErr != nil {
		return f.DeleteTaskErr
	}
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			delete(f.comments, id)
			return nil
		}
	}
	return ErrNotFound
}

func (f *FakeService) ListComments(ctx context.Context, taskID int64) ([]model.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("ListComments %d", taskID))
	if f.ListCommentsErr != nil {
		return nil, f.ListCommentsErr
	}
	if !f.existsLocked(taskID) {
		return nil, ErrNotFound
	}
	return append([]model.Comment{}, f.comments[taskID]...), nil
}

func (f *FakeService) CreateComment(ctx context.Context, taskID int64, content string) (model.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("CreateComment %d", taskID))
	if f.CreateCommentErr != nil {
		return model.Comment{}, f.CreateCommentErr
	}
	if !f.existsLocked(taskID) {
		return model.Comment{}, ErrNotFound
	}
	f.nextID++
	comment := model.Comment{
		ID:        f.nextID,
		TaskID:    taskID,
		Content:   content,
		CreatedAt: model.NewTimestamp(f.now()),
	}
	f.comments[taskID] = append(f.comments[taskID], comment)
	return comment, nil
}

func (f *FakeService) UpdateComment(ctx context.Context, id int64, content string) (model.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("UpdateComment %d", id))
	if f.UpdateCommentErr != nil {
		return model.Comment{}, f.UpdateCommentErr
	}
	for taskID, comments := range f.comments {
		for i := range comments {
			if comments[i].ID == id {
				f.comments[taskID][i].Content = content
				return f.comments[taskID][i], nil
			}
		}
	}
	return model.Comment{}, ErrNotFound
}

func (f *FakeService) DeleteComment(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("DeleteComment %d", id))
	if f.DeleteCommentErr != nil {
		return f.DeleteCommentErr
	}
	for taskID, comments := range f.comments {
		for i := range comments {
			if comments[i].ID == id {
				f.comments[taskID] = append(comments[:i:i], comments[i+1:]...)
				return nil
			}
		}
	}
	return ErrNotFound
}

func (f *FakeService) insertLocked(draft model.Draft) model.Task {
	f.nextID++
	task := model.Task{
		ID:          f.nextID,
		Title:       draft.Title,
		Description: draft.Description,
		CreatedAt:   model.NewTimestamp(f.now()),
	}
	f.tasks = append(f.tasks, task)
	return task
}

func (f *FakeService) listLocked() []model.Task {
	result := make([]model.Task, len(f.tasks))
	copy(result, f.tasks)
	for i := range result {
		result[i].CommentsCount = int64(len(f.comments[result[i].ID]))
	}
	return result
}

func (f *FakeService) existsLocked(taskID int64) bool {
	for _, task := range f.tasks {
		if task.ID == taskID {
			return true
		}
	}
	return false
}
