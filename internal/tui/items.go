package tui

import (
	"fmt"
	"strings"

	"github.com/Joseda-hg/taskconsole/internal/model"
)

const timeLayout = "2006-01-02 15:04"

func formatTimestamp(ts model.Timestamp) string {
	if ts.IsZero() {
		return "n/a"
	}
	return ts.Local().Format(timeLayout)
}

func formatTaskSummary(task model.Task) string {
	summary := fmt.Sprintf("#%d %s", task.ID, task.Title)
	if task.CommentsCount > 0 {
		summary = fmt.Sprintf("%s (%d)", summary, task.CommentsCount)
	}
	return summary
}

func pluralComments(n int64) string {
	if n == 1 {
		return "1 comment"
	}
	return fmt.Sprintf("%d comments", n)
}

// detailLines renders the selected task. comments is nil until fetched.
func detailLines(task *model.Task, comments []model.Comment, commentsErr string) []string {
	if task == nil {
		return []string{"No task selected"}
	}

	lines := []string{
		task.Title,
		fmt.Sprintf("Created: %s", formatTimestamp(task.CreatedAt)),
		pluralComments(task.CommentsCount),
		"",
	}
	if description := trimmedLines(task.Description); len(description) > 0 {
		lines = append(lines, description...)
	} else {
		lines = append(lines, "(no description)")
	}

	lines = append(lines, "", "Comments:")
	switch {
	case commentsErr != "":
		lines = append(lines, "  "+commentsErr)
	case comments == nil:
		lines = append(lines, "  enter to load")
	case len(comments) == 0:
		lines = append(lines, "  none")
	default:
		for _, comment := range comments {
			lines = append(lines, fmt.Sprintf("  %s  %s", formatTimestamp(comment.CreatedAt), strings.TrimSpace(comment.Content)))
		}
	}
	return lines
}

func clampSelection(selected, count int) int {
	if selected >= count {
		selected = count - 1
	}
	if selected < 0 {
		selected = 0
	}
	return selected
}
