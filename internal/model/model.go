package model

import "strings"

type Task struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	CreatedAt     Timestamp `json:"created_at"`
	CommentsCount int64     `json:"comments_count"`
}

type Comment struct {
	ID        int64     `json:"id"`
	TaskID    int64     `json:"task_id"`
	Content   string    `json:"content"`
	CreatedAt Timestamp `json:"created_at"`
}

// Draft is the title/description pair submitted to create or update a task.
type Draft struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (d Draft) Blank() bool {
	return strings.TrimSpace(d.Title) == ""
}

func DraftFromTask(task Task) Draft {
	return Draft{Title: task.Title, Description: task.Description}
}
