package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jesseduffield/gocui"

	"github.com/Joseda-hg/taskconsole/internal/console"
	"github.com/Joseda-hg/taskconsole/internal/model"
	"github.com/Joseda-hg/taskconsole/internal/testutil"
)

// newTestUI runs every worker inline and answers dialogs with confirm.
func newTestUI(t *testing.T, svc *testutil.FakeService, confirm bool) (*UI, *testutil.RecordingAlerter) {
	t.Helper()
	ui := newUI(context.Background(), Options{})
	alerts := &testutil.RecordingAlerter{}
	ui.dialogs = NewDialogs(nil)
	ui.console = console.New(svc, alerts, &testutil.StaticConfirmer{Answer: confirm})
	if err := ui.console.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return ui, alerts
}

func typeInto(ui *UI, text string) {
	for _, ch := range text {
		if ch == ' ' {
			ui.formEditor.Edit(nil, gocui.KeySpace, 0, gocui.ModNone)
			continue
		}
		ui.formEditor.Edit(nil, 0, ch, gocui.ModNone)
	}
}

func TestCreateThroughForm(t *testing.T) {
	svc := testutil.NewFakeService()
	ui, _ := newTestUI(t, svc, true)

	if err := ui.addTask(nil, nil); err != nil {
		t.Fatalf("add task: %v", err)
	}
	typeInto(ui, "Buy milk")
	if err := ui.nextFormField(nil, nil); err != nil {
		t.Fatalf("next field: %v", err)
	}
	typeInto(ui, "2 liters")

	if got := ui.console.Snapshot().Draft; got.Title != "Buy milk" || got.Description != "2 liters" {
		t.Fatalf("expected draft to follow the form, got %+v", got)
	}

	if err := ui.submitForm(nil, nil); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if ui.form != nil {
		t.Fatalf("expected form to close")
	}
	tasks := ui.console.Snapshot().Tasks
	if len(tasks) != 1 || tasks[0].Title != "Buy milk" || tasks[0].Description != "2 liters" {
		t.Fatalf("unexpected tasks %+v", tasks)
	}
}

func TestCancelledCreateKeepsDraft(t *testing.T) {
	svc := testutil.NewFakeService()
	ui, _ := newTestUI(t, svc, true)

	_ = ui.addTask(nil, nil)
	typeInto(ui, "Half")
	_ = ui.cancelForm(nil, nil)

	_ = ui.addTask(nil, nil)
	if got := ui.form.fields[fieldTitle].Value; got != "Half" {
		t.Fatalf("expected draft to be restored, got %q", got)
	}
}

func TestBlankSubmitMakesNoCall(t *testing.T) {
	svc := testutil.NewFakeService()
	ui, _ := newTestUI(t, svc, true)
	svc.ResetCalls()

	_ = ui.addTask(nil, nil)
	typeInto(ui, "   ")
	_ = ui.submitForm(nil, nil)

	if calls := svc.Calls(); len(calls) != 0 {
		t.Fatalf("expected no backend calls, got %v", calls)
	}
}

func TestEditThroughForm(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("Old", "desc")
	ui, _ := newTestUI(t, svc, true)

	if err := ui.editTask(nil, nil); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if ui.form == nil || !ui.form.editing() {
		t.Fatalf("expected edit form")
	}
	ui.form.fields[fieldTitle].Value = ""
	ui.syncForm()
	typeInto(ui, "New")
	_ = ui.submitForm(nil, nil)

	state := ui.console.Snapshot()
	if state.Editing != nil {
		t.Fatalf("expected edit buffer to be cleared")
	}
	if state.Tasks[0].Title != "New" || state.Tasks[0].Description != "desc" {
		t.Fatalf("unexpected task %+v", state.Tasks[0])
	}
}

func TestCancelEditDropsBuffer(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("Keep", "")
	ui, _ := newTestUI(t, svc, true)
	svc.ResetCalls()

	_ = ui.editTask(nil, nil)
	typeInto(ui, " me")
	_ = ui.cancelForm(nil, nil)

	state := ui.console.Snapshot()
	if state.Editing != nil {
		t.Fatalf("expected no edit in progress")
	}
	if state.Tasks[0].Title != "Keep" || len(svc.Calls()) != 0 {
		t.Fatalf("expected cancel to leave the task alone, calls %v", svc.Calls())
	}
}

func TestDeleteSelected(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("First", "")
	svc.AddTask("Second", "")
	ui, _ := newTestUI(t, svc, true)

	_ = ui.moveDown(nil, nil)
	if err := ui.deleteTask(nil, nil); err != nil {
		t.Fatalf("delete: %v", err)
	}
	tasks := ui.console.Snapshot().Tasks
	if len(tasks) != 1 || tasks[0].Title != "First" {
		t.Fatalf("expected only the selected task removed, got %+v", tasks)
	}
}

func TestDeclinedDeleteKeepsTask(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("Stay", "")
	ui, _ := newTestUI(t, svc, false)
	svc.ResetCalls()

	_ = ui.deleteTask(nil, nil)
	if len(ui.console.Snapshot().Tasks) != 1 || len(svc.Calls()) != 0 {
		t.Fatalf("expected no change, calls %v", svc.Calls())
	}
}

func TestCommentFlow(t *testing.T) {
	svc := testutil.NewFakeService()
	task := svc.AddTask("Talk", "")
	ui, _ := newTestUI(t, svc, true)

	if err := ui.openComment(nil, nil); err != nil {
		t.Fatalf("open comment: %v", err)
	}
	for _, ch := range "hi" {
		ui.commentEditor.Edit(nil, 0, ch, gocui.ModNone)
	}
	if err := ui.submitComment(nil, nil); err != nil {
		t.Fatalf("submit comment: %v", err)
	}

	if ui.commentActive {
		t.Fatalf("expected prompt to close")
	}
	if ui.commentsFor != task.ID || len(ui.comments) != 1 || ui.comments[0].Content != "hi" {
		t.Fatalf("expected comments to refresh, got %+v", ui.comments)
	}
	if got := ui.console.Snapshot().Tasks[0].CommentsCount; got != 1 {
		t.Fatalf("expected comments_count 1 after reload, got %d", got)
	}
}

func TestCommentLoadFailureShownInDetail(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("Talk", "")
	ui, _ := newTestUI(t, svc, true)
	svc.ListCommentsErr = errors.New("boom")

	_ = ui.showComments(nil, nil)
	if !strings.Contains(ui.commentsErr, "boom") {
		t.Fatalf("expected comment error, got %q", ui.commentsErr)
	}
}

func TestMovementStaysInBounds(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("Only", "")
	ui, _ := newTestUI(t, svc, true)

	_ = ui.moveUp(nil, nil)
	_ = ui.moveDown(nil, nil)
	_ = ui.moveDown(nil, nil)
	if ui.selected != 0 {
		t.Fatalf("expected selection 0, got %d", ui.selected)
	}
}

func TestKeysIgnoredWhileFormOpen(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("Only", "")
	ui, _ := newTestUI(t, svc, true)
	svc.ResetCalls()

	_ = ui.addTask(nil, nil)
	_ = ui.deleteTask(nil, nil)
	_ = ui.reload(nil, nil)
	if calls := svc.Calls(); len(calls) != 0 {
		t.Fatalf("expected no calls while the form is open, got %v", calls)
	}
	if err := ui.quitKey(nil, nil); err != nil {
		t.Fatalf("expected q to be ignored while the form is open")
	}
}

func TestEditFieldKeys(t *testing.T) {
	field := formField{Value: "héllo"}
	editField(&field, gocui.KeyBackspace2, 0, gocui.ModNone)
	if field.Value != "héll" {
		t.Fatalf("expected one rune removed, got %q", field.Value)
	}
	editField(&field, gocui.KeyCtrlU, 0, gocui.ModNone)
	if field.Value != "" {
		t.Fatalf("expected ctrl-u to clear, got %q", field.Value)
	}
	if editField(&field, 0, 'x', gocui.ModAlt) {
		t.Fatalf("expected modified runes to be ignored")
	}
}

func TestDialogsConfirm(t *testing.T) {
	redraws := make(chan struct{}, 8)
	dialogs := NewDialogs(func() { redraws <- struct{}{} })

	result := make(chan bool, 1)
	go func() {
		result <- dialogs.Confirm(context.Background(), "Delete?")
	}()

	dlg := waitForDialog(t, dialogs)
	if dlg.kind != dialogConfirm || dlg.message != "Delete?" {
		t.Fatalf("unexpected dialog %+v", dlg)
	}
	if !dialogs.Answer(true) {
		t.Fatalf("expected an open dialog")
	}
	select {
	case ok := <-result:
		if !ok {
			t.Fatalf("expected confirmation")
		}
	case <-time.After(time.Second):
		t.Fatalf("confirm did not return")
	}
	if _, open := dialogs.Current(); open {
		t.Fatalf("expected dialog to close")
	}
	if len(redraws) < 2 {
		t.Fatalf("expected redraw on open and close, got %d", len(redraws))
	}
}

func TestDialogsCancelledContext(t *testing.T) {
	dialogs := NewDialogs(nil)
	ctx, cancel := context.WithCancel(context.Background())

	result := make(chan bool, 1)
	go func() {
		result <- dialogs.Confirm(ctx, "Delete?")
	}()
	waitForDialog(t, dialogs)
	cancel()

	select {
	case ok := <-result:
		if ok {
			t.Fatalf("expected false on cancelled context")
		}
	case <-time.After(time.Second):
		t.Fatalf("confirm did not return")
	}
	if dialogs.Answer(true) {
		t.Fatalf("expected no dialog after cancel")
	}
}

func TestAnswerKeysResolveDialog(t *testing.T) {
	svc := testutil.NewFakeService()
	ui, _ := newTestUI(t, svc, true)

	done := make(chan struct{})
	go func() {
		ui.dialogs.Alert(context.Background(), console.LoadFailedMessage)
		close(done)
	}()
	waitForDialog(t, ui.dialogs)
	if !ui.inputActive() || ui.focusView() != viewDialog {
		t.Fatalf("expected dialog to take focus")
	}
	if err := ui.answerYes(nil, nil); err != nil {
		t.Fatalf("answer: %v", err)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("alert did not return")
	}
}

func waitForDialog(t *testing.T, dialogs *Dialogs) dialog {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if dlg, ok := dialogs.Current(); ok {
			return dlg
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("dialog never opened")
	return dialog{}
}

func TestDetailLines(t *testing.T) {
	task := &model.Task{ID: 3, Title: "Ship", Description: "line one\nline two", CommentsCount: 1}

	lines := detailLines(task, nil, "")
	joined := strings.Join(lines, "\n")
	for _, want := range []string{"Ship", "Created: n/a", "1 comment", "line one", "line two", "enter to load"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected %q in detail:\n%s", want, joined)
		}
	}

	lines = detailLines(task, []model.Comment{}, "")
	if lines[len(lines)-1] != "  none" {
		t.Fatalf("expected empty comment marker, got %q", lines[len(lines)-1])
	}

	if got := detailLines(nil, nil, ""); len(got) != 1 || got[0] != "No task selected" {
		t.Fatalf("unexpected empty detail %v", got)
	}
}

func TestFormatTaskSummary(t *testing.T) {
	tests := []struct {
		task model.Task
		want string
	}{
		{model.Task{ID: 1, Title: "Plain"}, "#1 Plain"},
		{model.Task{ID: 2, Title: "Busy", CommentsCount: 3}, "#2 Busy (3)"},
	}
	for _, tc := range tests {
		if got := formatTaskSummary(tc.task); got != tc.want {
			t.Fatalf("expected %q, got %q", tc.want, got)
		}
	}
}

func TestClampSelection(t *testing.T) {
	if got := clampSelection(5, 2); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
	if got := clampSelection(3, 0); got != 0 {
		t.Fatalf("expected 0 for empty list, got %d", got)
	}
}
