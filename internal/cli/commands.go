package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/Joseda-hg/taskconsole/internal/console"
	"github.com/Joseda-hg/taskconsole/internal/exitcode"
	"github.com/Joseda-hg/taskconsole/internal/model"
)

const timeLayout = "2006-01-02 15:04"

func runList(ctx context.Context, r *Runner, args []string) int {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	if !r.parse(fs, args) {
		return exitcode.UserError
	}

	c := r.console(nil)
	if err := c.Load(ctx); err != nil {
		return exitcode.BackendError
	}
	printTasks(r.out, c.Snapshot().Tasks)
	return exitcode.Success
}

func runAdd(ctx context.Context, r *Runner, args []string) int {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	title := fs.String("title", "", "")
	description := fs.String("description", "", "")
	if !r.parse(fs, args) {
		return exitcode.UserError
	}

	draft := model.Draft{Title: *title, Description: *description}
	if draft.Blank() {
		fmt.Fprintln(r.errOut, "error: title required")
		return exitcode.UserError
	}

	c := r.console(nil)
	c.SetDraft(draft)
	if err := c.Create(ctx); err != nil {
		return r.backendFailure(err)
	}
	fmt.Fprintln(r.out, "ok")
	return exitcode.Success
}

func runEdit(ctx context.Context, r *Runner, args []string) int {
	fs := flag.NewFlagSet("edit", flag.ContinueOnError)
	id := fs.Int64("id", 0, "")
	title := fs.String("title", "", "")
	description := fs.String("description", "", "")
	if !r.parse(fs, args) {
		return exitcode.UserError
	}
	if !requireID(r, *id) {
		return exitcode.UserError
	}

	c := r.console(nil)
	if err := c.Load(ctx); err != nil {
		return exitcode.BackendError
	}
	task, ok := findTask(c.Snapshot().Tasks, *id)
	if !ok {
		fmt.Fprintf(r.errOut, "error: task not found: %d\n", *id)
		return exitcode.UserError
	}

	// Only the flags given replace the stored values.
	draft := model.DraftFromTask(task)
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "title":
			draft.Title = *title
		case "description":
			draft.Description = *description
		}
	})
	if draft.Blank() {
		fmt.Fprintln(r.errOut, "error: title required")
		return exitcode.UserError
	}

	c.BeginEdit(task)
	c.SetEditingFields(draft)
	if err := c.Update(ctx); err != nil {
		return r.backendFailure(err)
	}
	fmt.Fprintln(r.out, "ok")
	return exitcode.Success
}

func runRm(ctx context.Context, r *Runner, args []string) int {
	fs := flag.NewFlagSet("rm", flag.ContinueOnError)
	id := fs.Int64("id", 0, "")
	yes := fs.Bool("yes", false, "")
	if !r.parse(fs, args) {
		return exitcode.UserError
	}
	if !requireID(r, *id) {
		return exitcode.UserError
	}

	return r.confirmAndRun(*yes, func(c *console.Console) error {
		return c.Delete(ctx, *id)
	})
}

func runComments(ctx context.Context, r *Runner, args []string) int {
	fs := flag.NewFlagSet("comments", flag.ContinueOnError)
	id := fs.Int64("id", 0, "")
	if !r.parse(fs, args) {
		return exitcode.UserError
	}
	if !requireID(r, *id) {
		return exitcode.UserError
	}

	comments, err := r.console(nil).Comments(ctx, *id)
	if err != nil {
		return r.backendFailure(err)
	}
	printComments(r.out, comments)
	return exitcode.Success
}

func runComment(ctx context.Context, r *Runner, args []string) int {
	fs := flag.NewFlagSet("comment", flag.ContinueOnError)
	id := fs.Int64("id", 0, "")
	content := fs.String("content", "", "")
	if !r.parse(fs, args) {
		return exitcode.UserError
	}
	if !requireID(r, *id) {
		return exitcode.UserError
	}
	if strings.TrimSpace(*content) == "" {
		fmt.Fprintln(r.errOut, "error: content required")
		return exitcode.UserError
	}

	if err := r.console(nil).AddComment(ctx, *id, *content); err != nil {
		return r.backendFailure(err)
	}
	fmt.Fprintln(r.out, "ok")
	return exitcode.Success
}

func runCommentEdit(ctx context.Context, r *Runner, args []string) int {
	fs := flag.NewFlagSet("comment-edit", flag.ContinueOnError)
	id := fs.Int64("id", 0, "")
	content := fs.String("content", "", "")
	if !r.parse(fs, args) {
		return exitcode.UserError
	}
	if !requireID(r, *id) {
		return exitcode.UserError
	}
	if strings.TrimSpace(*content) == "" {
		fmt.Fprintln(r.errOut, "error: content required")
		return exitcode.UserError
	}

	if err := r.console(nil).EditComment(ctx, *id, *content); err != nil {
		return r.backendFailure(err)
	}
	fmt.Fprintln(r.out, "ok")
	return exitcode.Success
}

func runCommentRm(ctx context.Context, r *Runner, args []string) int {
	fs := flag.NewFlagSet("comment-rm", flag.ContinueOnError)
	id := fs.Int64("id", 0, "")
	yes := fs.Bool("yes", false, "")
	if !r.parse(fs, args) {
		return exitcode.UserError
	}
	if !requireID(r, *id) {
		return exitcode.UserError
	}

	return r.confirmAndRun(*yes, func(c *console.Console) error {
		return c.DeleteComment(ctx, *id)
	})
}

// confirmAndRun runs a confirmed delete. Without -yes the question is asked
// on stderr and a declined prompt prints "cancelled".
func (r *Runner) confirmAndRun(yes bool, del func(c *console.Console) error) int {
	if yes {
		if err := del(r.console(autoConfirm(true))); err != nil {
			return r.backendFailure(err)
		}
		fmt.Fprintln(r.out, "ok")
		return exitcode.Success
	}

	prompt := newPromptConfirmer(r.in, r.errOut)
	if err := del(r.console(prompt)); err != nil {
		return r.backendFailure(err)
	}
	if !prompt.answered {
		fmt.Fprintln(r.out, "cancelled")
		return exitcode.Success
	}
	fmt.Fprintln(r.out, "ok")
	return exitcode.Success
}

func requireID(r *Runner, id int64) bool {
	if id <= 0 {
		fmt.Fprintln(r.errOut, "error: -id is required")
		return false
	}
	return true
}

func findTask(tasks []model.Task, id int64) (model.Task, bool) {
	for _, task := range tasks {
		if task.ID == id {
			return task, true
		}
	}
	return model.Task{}, false
}

// printTasks writes "{ID:>4}  {CREATED}  {TITLE}" per task, with the
// comment count appended when there are any.
func printTasks(w io.Writer, tasks []model.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "no tasks")
		return
	}
	for _, task := range tasks {
		line := fmt.Sprintf("%4d  %s  %s", task.ID, formatTime(task.CreatedAt), normalizeText(task.Title))
		if task.CommentsCount > 0 {
			line = fmt.Sprintf("%s  [%d]", line, task.CommentsCount)
		}
		fmt.Fprintln(w, line)
	}
}

func printComments(w io.Writer, comments []model.Comment) {
	if len(comments) == 0 {
		fmt.Fprintln(w, "no comments")
		return
	}
	for _, comment := range comments {
		fmt.Fprintf(w, "%4d  %s  %s\n", comment.ID, formatTime(comment.CreatedAt), normalizeText(comment.Content))
	}
}

func formatTime(ts model.Timestamp) string {
	if ts.IsZero() {
		return strings.Repeat("-", len(timeLayout))
	}
	return ts.UTC().Format(timeLayout)
}

// normalizeText puts multi-line text on one line.
func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r", " ")
	text = strings.ReplaceAll(text, "\n", " ")
	if strings.TrimSpace(text) == "" {
		return "(untitled)"
	}
	return text
}
