package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Joseda-hg/taskconsole/internal/model"
)

const MaxTitleLength = 100

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

type Store struct {
	DB  *sql.DB
	Now func() time.Time
}

type TaskInput struct {
	Title       string
	Description string
}

func NewStore(db *sql.DB) *Store {
	return &Store{DB: db, Now: time.Now}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

func (s *Store) ListTasks(ctx context.Context) ([]model.Task, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT t.id, t.title, t.description, t.created_at,
		       (SELECT COUNT(*) FROM comments c WHERE c.task_id = t.id)
		FROM tasks t
		ORDER BY t.id`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	result := []model.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return result, nil
}

func (s *Store) GetTask(ctx context.Context, taskID int64) (model.Task, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT t.id, t.title, t.description, t.created_at,
		       (SELECT COUNT(*) FROM comments c WHERE c.task_id = t.id)
		FROM tasks t
		WHERE t.id = ?`, taskID)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Task{}, fmt.Errorf("task %d: %w", taskID, ErrNotFound)
	}
	return task, err
}

func (s *Store) CreateTask(ctx context.Context, input TaskInput) (model.Task, error) {
	input, err := normalizeTaskInput(input)
	if err != nil {
		return model.Task{}, err
	}

	createdAt := model.NewTimestamp(s.Now())
	res, err := s.DB.ExecContext(ctx,
		"INSERT INTO tasks (title, description, created_at) VALUES (?, ?, ?)",
		input.Title, input.Description, createdAt.String())
	if err != nil {
		return model.Task{}, fmt.Errorf("create task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Task{}, fmt.Errorf("create task: %w", err)
	}

	return model.Task{
		ID:          id,
		Title:       input.Title,
		Description: input.Description,
		CreatedAt:   createdAt,
	}, nil
}

// UpdateTask replaces title and description. created_at is never touched.
func (s *Store) UpdateTask(ctx context.Context, taskID int64, input TaskInput) (model.Task, error) {
	input, err := normalizeTaskInput(input)
	if err != nil {
		return model.Task{}, err
	}

	res, err := s.DB.ExecContext(ctx,
		"UPDATE tasks SET title = ?, description = ? WHERE id = ?",
		input.Title, input.Description, taskID)
	if err != nil {
		return model.Task{}, fmt.Errorf("update task: %w", err)
	}
	if err := expectAffected(res, "task", taskID); err != nil {
		return model.Task{}, err
	}

	return s.GetTask(ctx, taskID)
}

func (s *Store) DeleteTask(ctx context.Context, taskID int64) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM comments WHERE task_id = ?", taskID); err != nil {
		return fmt.Errorf("delete task comments: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", taskID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if err := expectAffected(res, "task", taskID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) ListComments(ctx context.Context, taskID int64) ([]model.Comment, error) {
	if _, err := s.GetTask(ctx, taskID); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx,
		"SELECT id, task_id, content, created_at FROM comments WHERE task_id = ? ORDER BY id", taskID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	result := []model.Comment{}
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return result, nil
}

func (s *Store) CreateComment(ctx context.Context, taskID int64, content string) (model.Comment, error) {
	content, err := normalizeContent(content)
	if err != nil {
		return model.Comment{}, err
	}
	if _, err := s.GetTask(ctx, taskID); err != nil {
		return model.Comment{}, err
	}

	createdAt := model.NewTimestamp(s.Now())
	res, err := s.DB.ExecContext(ctx,
		"INSERT INTO comments (task_id, content, created_at) VALUES (?, ?, ?)",
		taskID, content, createdAt.String())
	if err != nil {
		return model.Comment{}, fmt.Errorf("create comment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Comment{}, fmt.Errorf("create comment: %w", err)
	}

	return model.Comment{ID: id, TaskID: taskID, Content: content, CreatedAt: createdAt}, nil
}

func (s *Store) UpdateComment(ctx context.Context, commentID int64, content string) (model.Comment, error) {
	content, err := normalizeContent(content)
	if err != nil {
		return model.Comment{}, err
	}

	res, err := s.DB.ExecContext(ctx, "UPDATE comments SET content = ? WHERE id = ?", content, commentID)
	if err != nil {
		return model.Comment{}, fmt.Errorf("update comment: %w", err)
	}
	if err := expectAffected(res, "comment", commentID); err != nil {
		return model.Comment{}, err
	}

	row := s.DB.QueryRowContext(ctx,
		"SELECT id, task_id, content, created_at FROM comments WHERE id = ?", commentID)
	return scanComment(row)
}

func (s *Store) DeleteComment(ctx context.Context, commentID int64) error {
	res, err := s.DB.ExecContext(ctx, "DELETE FROM comments WHERE id = ?", commentID)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return expectAffected(res, "comment", commentID)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (model.Task, error) {
	var (
		task      model.Task
		createdAt string
	)
	if err := row.Scan(&task.ID, &task.Title, &task.Description, &createdAt, &task.CommentsCount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Task{}, err
		}
		return model.Task{}, fmt.Errorf("scan task: %w", err)
	}
	ts, err := model.ParseTimestamp(createdAt)
	if err != nil {
		return model.Task{}, err
	}
	task.CreatedAt = ts
	return task, nil
}

func scanComment(row scanner) (model.Comment, error) {
	var (
		comment   model.Comment
		createdAt string
	)
	if err := row.Scan(&comment.ID, &comment.TaskID, &comment.Content, &createdAt); err != nil {
		return model.Comment{}, fmt.Errorf("scan comment: %w", err)
	}
	ts, err := model.ParseTimestamp(createdAt)
	if err != nil {
		return model.Comment{}, err
	}
	comment.CreatedAt = ts
	return comment, nil
}

func expectAffected(res sql.Result, kind string, id int64) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %d: %w", kind, id, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
	}
	return nil
}

func normalizeTaskInput(input TaskInput) (TaskInput, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return TaskInput{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return TaskInput{}, fmt.Errorf("%w: title must be at most %d characters", ErrInvalidInput, MaxTitleLength)
	}
	return TaskInput{Title: title, Description: input.Description}, nil
}

func normalizeContent(content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", fmt.Errorf("%w: content is required", ErrInvalidInput)
	}
	return trimmed, nil
}
