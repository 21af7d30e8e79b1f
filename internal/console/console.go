// Package console holds the task console state and its transitions.
//
// Every mutation calls the backend and then reloads the full task list; the
// list is always replaced wholesale by the latest completed read. The mutex
// guards state only and is never held across a backend call, so overlapping
// operations are allowed and the last reload to finish wins.
package console

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Joseda-hg/taskconsole/internal/model"
)

const (
	LoadFailedMessage   = "Cannot connect to the task backend. Make sure the server is running."
	DeletePrompt        = "Are you sure you want to delete this task?"
	DeleteCommentPrompt = "Are you sure you want to delete this comment?"
)

// Service is the backend the console talks to.
type Service interface {
	ListTasks(ctx context.Context) ([]model.Task, error)
	CreateTask(ctx context.Context, draft model.Draft) (model.Task, error)
	UpdateTask(ctx context.Context, id int64, draft model.Draft) (model.Task, error)
	DeleteTask(ctx context.Context, id int64) error
	ListComments(ctx context.Context, taskID int64) ([]model.Comment, error)
	CreateComment(ctx context.Context, taskID int64, content string) (model.Comment, error)
	UpdateComment(ctx context.Context, id int64, content string) (model.Comment, error)
	DeleteComment(ctx context.Context, id int64) error
}

// Alerter shows a message and returns once the user dismissed it.
type Alerter interface {
	Alert(ctx context.Context, message string)
}

// Confirmer asks a yes/no question and blocks until answered.
type Confirmer interface {
	Confirm(ctx context.Context, message string) bool
}

type State struct {
	Tasks   []model.Task
	Draft   model.Draft
	Editing *model.Task
	Status  string
	Loaded  bool
}

type Console struct {
	svc     Service
	alert   Alerter
	confirm Confirmer
	log     logrus.FieldLogger

	onChange func()

	mu    sync.Mutex
	state State
}

type Option func(*Console)

func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Console) {
		if log != nil {
			c.log = log
		}
	}
}

// WithOnChange registers a callback run after every state change. It is
// called without the console lock held.
func WithOnChange(fn func()) Option {
	return func(c *Console) {
		c.onChange = fn
	}
}

func New(svc Service, alert Alerter, confirm Confirmer, opts ...Option) *Console {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	c := &Console{
		svc:     svc,
		alert:   alert,
		confirm: confirm,
		log:     discard,
		state:   State{Tasks: []model.Task{}},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns a copy of the current state.
func (c *Console) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := c.state
	snapshot.Tasks = append([]model.Task(nil), c.state.Tasks...)
	if c.state.Editing != nil {
		editing := *c.state.Editing
		snapshot.Editing = &editing
	}
	return snapshot
}

// Load replaces the task list with the backend's. On failure the previous
// list is kept and the user is alerted once.
func (c *Console) Load(ctx context.Context) error {
	tasks, err := c.svc.ListTasks(ctx)
	if err != nil {
		c.log.WithError(err).Error("load tasks failed")
		c.update(func(s *State) {
			s.Status = fmt.Sprintf("load failed: %v", err)
		})
		c.alert.Alert(ctx, LoadFailedMessage)
		return err
	}

	c.update(func(s *State) {
		s.Tasks = tasks
		s.Loaded = true
		s.Status = ""
	})
	c.log.WithField("count", len(tasks)).Debug("tasks loaded")
	return nil
}

func (c *Console) SetDraft(draft model.Draft) {
	c.update(func(s *State) {
		s.Draft = draft
	})
}

// Create submits the draft. A blank title is a no-op.
func (c *Console) Create(ctx context.Context) error {
	draft := c.Snapshot().Draft
	if draft.Blank() {
		return nil
	}

	created, err := c.svc.CreateTask(ctx, draft)
	if err != nil {
		c.fail("create task", err, logrus.Fields{"title": draft.Title})
		return err
	}
	c.log.WithField("task_id", created.ID).Info("task created")

	c.update(func(s *State) {
		s.Draft = model.Draft{}
		s.Status = ""
	})
	c.reload(ctx)
	return nil
}

// BeginEdit copies task into the edit buffer, replacing any edit in progress.
func (c *Console) BeginEdit(task model.Task) {
	c.update(func(s *State) {
		editing := task
		s.Editing = &editing
	})
}

// SetEditingFields writes form input into the edit buffer, if any.
func (c *Console) SetEditingFields(draft model.Draft) {
	c.update(func(s *State) {
		if s.Editing == nil {
			return
		}
		s.Editing.Title = draft.Title
		s.Editing.Description = draft.Description
	})
}

// Update submits the edit buffer. No edit in progress or a blank title is a
// no-op.
func (c *Console) Update(ctx context.Context) error {
	editing := c.Snapshot().Editing
	if editing == nil || model.DraftFromTask(*editing).Blank() {
		return nil
	}

	if _, err := c.svc.UpdateTask(ctx, editing.ID, model.DraftFromTask(*editing)); err != nil {
		c.fail("update task", err, logrus.Fields{"task_id": editing.ID})
		return err
	}
	c.log.WithField("task_id", editing.ID).Info("task updated")

	c.update(func(s *State) {
		if s.Editing != nil && s.Editing.ID == editing.ID {
			s.Editing = nil
		}
		s.Status = ""
	})
	c.reload(ctx)
	return nil
}

func (c *Console) CancelEdit() {
	c.update(func(s *State) {
		s.Editing = nil
	})
}

// Delete asks for confirmation, then deletes the task and reloads. Declining
// makes no backend call.
func (c *Console) Delete(ctx context.Context, id int64) error {
	if !c.confirm.Confirm(ctx, DeletePrompt) {
		c.log.WithField("task_id", id).Debug("delete declined")
		return nil
	}

	if err := c.svc.DeleteTask(ctx, id); err != nil {
		c.fail("delete task", err, logrus.Fields{"task_id": id})
		return err
	}
	c.log.WithField("task_id", id).Info("task deleted")

	c.update(func(s *State) {
		if s.Editing != nil && s.Editing.ID == id {
			s.Editing = nil
		}
		s.Status = ""
	})
	c.reload(ctx)
	return nil
}

// Comments reads the comments of a task. It does not touch console state.
func (c *Console) Comments(ctx context.Context, taskID int64) ([]model.Comment, error) {
	comments, err := c.svc.ListComments(ctx, taskID)
	if err != nil {
		c.log.WithError(err).WithField("task_id", taskID).Error("list comments failed")
		return nil, err
	}
	return comments, nil
}

// AddComment posts a comment and reloads so comments_count stays current.
func (c *Console) AddComment(ctx context.Context, taskID int64, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	if _, err := c.svc.CreateComment(ctx, taskID, content); err != nil {
		c.fail("add comment", err, logrus.Fields{"task_id": taskID})
		return err
	}
	c.log.WithField("task_id", taskID).Info("comment added")

	c.update(func(s *State) {
		s.Status = ""
	})
	c.reload(ctx)
	return nil
}

// EditComment replaces a comment's content. Blank content is a no-op.
func (c *Console) EditComment(ctx context.Context, commentID int64, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	if _, err := c.svc.UpdateComment(ctx, commentID, content); err != nil {
		c.fail("edit comment", err, logrus.Fields{"comment_id": commentID})
		return err
	}
	c.log.WithField("comment_id", commentID).Info("comment edited")

	c.update(func(s *State) {
		s.Status = ""
	})
	c.reload(ctx)
	return nil
}

// DeleteComment asks for confirmation, then deletes the comment and reloads.
func (c *Console) DeleteComment(ctx context.Context, commentID int64) error {
	if !c.confirm.Confirm(ctx, DeleteCommentPrompt) {
		c.log.WithField("comment_id", commentID).Debug("comment delete declined")
		return nil
	}

	if err := c.svc.DeleteComment(ctx, commentID); err != nil {
		c.fail("delete comment", err, logrus.Fields{"comment_id": commentID})
		return err
	}
	c.log.WithField("comment_id", commentID).Info("comment deleted")

	c.update(func(s *State) {
		s.Status = ""
	})
	c.reload(ctx)
	return nil
}

// reload runs Load after a successful write. Load reports its own failure.
func (c *Console) reload(ctx context.Context) {
	_ = c.Load(ctx)
}

func (c *Console) fail(op string, err error, fields logrus.Fields) {
	c.log.WithError(err).WithFields(fields).Error(op + " failed")
	c.update(func(s *State) {
		s.Status = fmt.Sprintf("%s failed: %v", op, err)
	})
}

func (c *Console) update(fn func(s *State)) {
	c.mu.Lock()
	fn(&c.state)
	c.mu.Unlock()

	if c.onChange != nil {
		c.onChange()
	}
}
