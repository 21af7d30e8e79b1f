package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	goerrors "github.com/go-errors/errors"
	"github.com/jesseduffield/gocui"
	"github.com/sirupsen/logrus"

	"github.com/Joseda-hg/taskconsole/internal/console"
	"github.com/Joseda-hg/taskconsole/internal/model"
)

const (
	viewHeader  = "header"
	viewFooter  = "footer"
	viewTasks   = "tasks"
	viewDetail  = "detail"
	viewForm    = "form"
	viewComment = "comment"
	viewDialog  = "dialog"
	viewHelp    = "help"
)

type Options struct {
	// APIURL is shown in the header.
	APIURL string
	Log    logrus.FieldLogger
}

// UI fields are read and written on the gocui goroutine only. Workers hand
// results back through post.
type UI struct {
	console *console.Console
	dialogs *Dialogs
	gui     *gocui.Gui
	ctx     context.Context
	log     logrus.FieldLogger
	apiURL  string

	post   func(func())
	spawn  func(func())
	closed atomic.Bool

	selected int

	form       *formState
	formEditor *formEditor

	commentActive bool
	commentValue  string
	commentEditor *lineEditor

	commentsFor int64
	comments    []model.Comment
	commentsErr string

	helpActive bool
}

// Run starts the console against svc and blocks until the user quits.
func Run(ctx context.Context, svc console.Service, opts Options) error {
	gui, err := gocui.NewGui(gocui.NewGuiOpts{OutputMode: gocui.OutputNormal})
	if err != nil {
		return err
	}
	defer gui.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ui := newUI(ctx, opts)
	ui.gui = gui
	ui.post = func(fn func()) {
		if ui.closed.Load() {
			return
		}
		gui.Update(func(*gocui.Gui) error {
			fn()
			return nil
		})
	}
	ui.spawn = func(fn func()) { go fn() }
	ui.attach(svc)

	gui.Mouse = false
	gui.SetManagerFunc(ui.layout)
	if err := ui.bindKeys(gui); err != nil {
		return err
	}

	ui.spawn(func() { _ = ui.console.Load(ui.ctx) })

	err = gui.MainLoop()
	ui.closed.Store(true)
	if err != nil && !goerrors.Is(err, gocui.ErrQuit) {
		return err
	}
	return nil
}

func newUI(ctx context.Context, opts Options) *UI {
	log := opts.Log
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = discard
	}
	ui := &UI{
		ctx:    ctx,
		log:    log,
		apiURL: opts.APIURL,
		post:   func(fn func()) { fn() },
		spawn:  func(fn func()) { fn() },
	}
	ui.formEditor = &formEditor{ui: ui}
	ui.commentEditor = &lineEditor{value: &ui.commentValue}
	return ui
}

// attach builds the console with the UI's dialogs. A redraw is a no-op
// update that makes gocui run layout again.
func (u *UI) attach(svc console.Service) {
	redraw := func() { u.post(func() {}) }
	u.dialogs = NewDialogs(redraw)
	u.console = console.New(svc, u.dialogs, u.dialogs,
		console.WithLogger(u.log),
		console.WithOnChange(redraw),
	)
}

func (u *UI) bindKeys(gui *gocui.Gui) error {
	bindings := []struct {
		view    string
		key     any
		handler func(*gocui.Gui, *gocui.View) error
	}{
		{"", gocui.KeyCtrlC, u.quit},
		{"", 'q', u.quitKey},
		{"", 'r', u.reload},
		{"", 'a', u.addTask},
		{"", 'e', u.editTask},
		{"", 'd', u.deleteTask},
		{"", 'm', u.openComment},
		{"", '?', u.toggleHelp},
		{viewTasks, gocui.KeyArrowDown, u.moveDown},
		{viewTasks, 'j', u.moveDown},
		{viewTasks, gocui.KeyArrowUp, u.moveUp},
		{viewTasks, 'k', u.moveUp},
		{viewTasks, gocui.KeyEnter, u.showComments},
		{viewForm, gocui.KeyEnter, u.submitForm},
		{viewForm, gocui.KeyCtrlJ, u.submitForm},
		{viewForm, gocui.KeyTab, u.nextFormField},
		{viewForm, gocui.KeyBacktab, u.prevFormField},
		{viewForm, gocui.KeyArrowDown, u.nextFormField},
		{viewForm, gocui.KeyArrowUp, u.prevFormField},
		{viewForm, gocui.KeyEsc, u.cancelForm},
		{viewComment, gocui.KeyEnter, u.submitComment},
		{viewComment, gocui.KeyEsc, u.cancelComment},
		{viewDialog, 'y', u.answerYes},
		{viewDialog, gocui.KeyEnter, u.answerYes},
		{viewDialog, 'n', u.answerNo},
		{viewDialog, gocui.KeyEsc, u.answerNo},
		{viewHelp, gocui.KeyEsc, u.closeHelp},
		{viewHelp, 'q', u.closeHelp},
		{viewHelp, '?', u.closeHelp},
	}
	for _, b := range bindings {
		if err := gui.SetKeybinding(b.view, b.key, gocui.ModNone, b.handler); err != nil {
			return err
		}
	}
	return nil
}

func (u *UI) layout(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	if maxX <= 0 || maxY <= 0 {
		return nil
	}
	state := u.console.Snapshot()
	u.selected = clampSelection(u.selected, len(state.Tasks))

	headerView, err := gui.SetView(viewHeader, 0, 0, maxX-1, 0, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	headerView.Frame = false
	headerView.FgColor = gocui.ColorDefault
	u.renderHeader(headerView, state)

	footerY1 := max(maxY-1, 1)
	footerY0 := max(footerY1-2, 1)
	footerView, err := gui.SetView(viewFooter, 0, footerY0, maxX-1, footerY1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	footerView.Frame = false
	footerView.Wrap = true
	footerView.FgColor = gocui.ColorDefault | gocui.AttrDim
	u.renderFooter(footerView, state)

	bodyTop := 1
	bodyBottom := footerY0 - 1
	if bodyBottom <= bodyTop {
		return nil
	}

	leftWidth := listWidth(maxX)
	tasksView, err := gui.SetView(viewTasks, 0, bodyTop, leftWidth-1, bodyBottom, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		tasksView.Title = "Tasks"
	}
	applyViewStyle(tasksView, true)
	u.renderTasks(tasksView, state)

	detailView, err := gui.SetView(viewDetail, leftWidth, bodyTop, maxX-1, bodyBottom, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		detailView.Title = "Detail"
		detailView.Wrap = true
	}
	applyViewStyle(detailView, false)
	u.renderDetail(detailView, state)

	if u.form != nil {
		if err := u.showForm(gui); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewForm)
	}

	if u.commentActive {
		if err := u.showComment(gui); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewComment)
	}

	if u.helpActive {
		if err := u.showHelp(gui); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewHelp)
	}

	if dlg, ok := u.dialogs.Current(); ok {
		if err := u.showDialog(gui, dlg); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewDialog)
	}

	_, _ = gui.SetCurrentView(u.focusView())
	gui.Cursor = u.form != nil || u.commentActive

	return nil
}

// focusView is the view that should own the keyboard: an open dialog
// first, then any modal, then the task list.
func (u *UI) focusView() string {
	if _, ok := u.dialogs.Current(); ok {
		return viewDialog
	}
	switch {
	case u.form != nil:
		return viewForm
	case u.commentActive:
		return viewComment
	case u.helpActive:
		return viewHelp
	}
	return viewTasks
}

func listWidth(maxX int) int {
	width := maxX * 2 / 5
	if width < 30 {
		width = min(30, maxX/2)
	}
	return max(width, 1)
}

func (u *UI) renderHeader(view *gocui.View, state console.State) {
	view.Clear()
	api := u.apiURL
	if api == "" {
		api = "n/a"
	}
	fmt.Fprintf(view, "Tasks: %d | API: %s | ? help", len(state.Tasks), api)
}

func (u *UI) renderFooter(view *gocui.View, state console.State) {
	view.Clear()
	view.SetOrigin(0, 0)
	fmt.Fprintln(view, "a add | e edit | d delete | m comment | enter comments | r reload | q quit")
	if state.Status != "" {
		fmt.Fprint(view, state.Status)
	}
}

func (u *UI) renderTasks(view *gocui.View, state console.State) {
	view.Clear()
	if len(state.Tasks) == 0 {
		if state.Loaded {
			fmt.Fprint(view, "  No tasks yet. Press a to add one.")
		} else {
			fmt.Fprint(view, "  Loading...")
		}
		return
	}
	for i, task := range state.Tasks {
		prefix := " "
		if i == u.selected {
			prefix = ">"
		}
		fmt.Fprintf(view, "%s %s\n", prefix, formatTaskSummary(task))
	}
	view.SetCursor(0, u.selected)
}

func (u *UI) renderDetail(view *gocui.View, state console.State) {
	view.Clear()
	task := selectedTask(state.Tasks, u.selected)

	var comments []model.Comment
	commentsErr := ""
	if task != nil && task.ID == u.commentsFor {
		comments = u.comments
		commentsErr = u.commentsErr
	}
	fmt.Fprint(view, strings.Join(detailLines(task, comments, commentsErr), "\n"))
}

func selectedTask(tasks []model.Task, selected int) *model.Task {
	if selected >= 0 && selected < len(tasks) {
		task := tasks[selected]
		return &task
	}
	return nil
}

func (u *UI) selectedTask() *model.Task {
	return selectedTask(u.console.Snapshot().Tasks, u.selected)
}

func (u *UI) moveDown(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if u.selected < len(u.console.Snapshot().Tasks)-1 {
		u.selected++
	}
	return nil
}

func (u *UI) moveUp(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if u.selected > 0 {
		u.selected--
	}
	return nil
}

func (u *UI) reload(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.spawn(func() { _ = u.console.Load(u.ctx) })
	return nil
}

// addTask opens the create form with whatever draft is left over from a
// cancelled or failed create.
func (u *UI) addTask(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.form = &formState{fields: buildFormFields(u.console.Snapshot().Draft)}
	return nil
}

// editTask opens the edit form for the selected task. An edit buffer for
// the same task that survived a failed update is reused.
func (u *UI) editTask(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	selected := u.selectedTask()
	if selected == nil {
		return nil
	}
	editing := u.console.Snapshot().Editing
	if editing == nil || editing.ID != selected.ID {
		u.console.BeginEdit(*selected)
		editing = selected
	}
	u.form = &formState{taskID: editing.ID, fields: buildFormFields(model.DraftFromTask(*editing))}
	return nil
}

func (u *UI) syncForm() {
	if u.form == nil {
		return
	}
	draft := parseFormFields(u.form.fields)
	if u.form.editing() {
		u.console.SetEditingFields(draft)
		return
	}
	u.console.SetDraft(draft)
}

func (u *UI) showForm(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	width := max(60, maxX/2)
	height := 4
	x0 := max((maxX-width)/2, 0)
	y0 := max((maxY-height)/2, 0)

	view, err := gui.SetView(viewForm, x0, y0, x0+width, y0+height, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Wrap = true
	}
	view.Title = formTitle(u.form)
	view.Editable = true
	view.KeybindOnEdit = true
	view.Editor = u.formEditor
	u.renderForm(view)
	_, _ = gui.SetViewOnTop(viewForm)
	return nil
}

func (u *UI) renderForm(view *gocui.View) {
	if u.form == nil || view == nil {
		return
	}
	view.Clear()
	for index, field := range u.form.fields {
		prefix := "  "
		if index == u.form.index {
			prefix = "> "
		}
		fmt.Fprintf(view, "%s%s: %s\n", prefix, field.Label, field.Value)
	}
	field := u.form.fields[u.form.index]
	cursorX := len([]rune(field.Label)) + len([]rune(field.Value)) + 4
	view.SetCursor(cursorX, u.form.index)
}

func (u *UI) nextFormField(_ *gocui.Gui, view *gocui.View) error {
	if u.form == nil {
		return nil
	}
	if u.form.index < len(u.form.fields)-1 {
		u.form.index++
	}
	u.renderForm(view)
	return nil
}

func (u *UI) prevFormField(_ *gocui.Gui, view *gocui.View) error {
	if u.form == nil {
		return nil
	}
	if u.form.index > 0 {
		u.form.index--
	}
	u.renderForm(view)
	return nil
}

// submitForm closes the form and submits in the background. A blank title
// is left to the console, which ignores it.
func (u *UI) submitForm(gui *gocui.Gui, _ *gocui.View) error {
	if u.form == nil {
		return nil
	}
	u.syncForm()
	form := u.form
	u.closeForm(gui)

	if form.editing() {
		u.spawn(func() { _ = u.console.Update(u.ctx) })
		return nil
	}
	u.spawn(func() { _ = u.console.Create(u.ctx) })
	return nil
}

// cancelForm keeps the create draft but drops the edit buffer.
func (u *UI) cancelForm(gui *gocui.Gui, _ *gocui.View) error {
	if u.form == nil {
		return nil
	}
	if u.form.editing() {
		u.console.CancelEdit()
	}
	u.closeForm(gui)
	return nil
}

func (u *UI) closeForm(gui *gocui.Gui) {
	u.form = nil
	if gui != nil {
		_ = gui.DeleteView(viewForm)
		_, _ = gui.SetCurrentView(viewTasks)
	}
}

func (u *UI) deleteTask(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	selected := u.selectedTask()
	if selected == nil {
		return nil
	}
	id := selected.ID
	u.spawn(func() { _ = u.console.Delete(u.ctx, id) })
	return nil
}

func (u *UI) showComments(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	selected := u.selectedTask()
	if selected == nil {
		return nil
	}
	u.fetchComments(selected.ID)
	return nil
}

func (u *UI) fetchComments(taskID int64) {
	u.spawn(func() {
		comments, err := u.console.Comments(u.ctx, taskID)
		u.post(func() {
			u.commentsFor = taskID
			u.comments = comments
			u.commentsErr = ""
			if err != nil {
				u.comments = nil
				u.commentsErr = fmt.Sprintf("could not load comments: %v", err)
			}
		})
	})
}

func (u *UI) openComment(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || u.selectedTask() == nil {
		return nil
	}
	u.commentActive = true
	u.commentValue = ""
	return nil
}

func (u *UI) showComment(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	width := max(40, maxX/2)
	height := 2
	x0 := max((maxX-width)/2, 0)
	y0 := max((maxY-height)/2, 0)

	view, err := gui.SetView(viewComment, x0, y0, x0+width, y0+height, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Title = "New Comment"
		view.Wrap = true
		view.Clear()
	}
	view.Editable = true
	view.KeybindOnEdit = true
	view.Editor = u.commentEditor
	_, _ = gui.SetViewOnTop(viewComment)
	return nil
}

func (u *UI) submitComment(gui *gocui.Gui, _ *gocui.View) error {
	if !u.commentActive {
		return nil
	}
	selected := u.selectedTask()
	content := u.commentValue
	u.closeComment(gui)
	if selected == nil {
		return nil
	}

	taskID := selected.ID
	u.spawn(func() {
		if err := u.console.AddComment(u.ctx, taskID, content); err != nil {
			return
		}
		u.fetchComments(taskID)
	})
	return nil
}

func (u *UI) cancelComment(gui *gocui.Gui, _ *gocui.View) error {
	u.closeComment(gui)
	return nil
}

func (u *UI) closeComment(gui *gocui.Gui) {
	u.commentActive = false
	u.commentValue = ""
	if gui != nil {
		_ = gui.DeleteView(viewComment)
		_, _ = gui.SetCurrentView(viewTasks)
	}
}

func (u *UI) showDialog(gui *gocui.Gui, dlg dialog) error {
	maxX, maxY := gui.Size()
	width := max(50, maxX/3)
	height := 3
	x0 := max((maxX-width)/2, 0)
	y0 := max((maxY-height)/2, 0)

	view, err := gui.SetView(viewDialog, x0, y0, x0+width, y0+height, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	view.Wrap = true
	view.Frame = true
	view.FrameColor = gocui.ColorYellow
	view.Clear()
	fmt.Fprintln(view, dlg.message)
	if dlg.kind == dialogConfirm {
		view.Title = "Confirm"
		fmt.Fprint(view, "[y]es / [n]o")
	} else {
		view.Title = "Alert"
		fmt.Fprint(view, "[enter] ok")
	}
	_, _ = gui.SetViewOnTop(viewDialog)
	_, _ = gui.SetCurrentView(viewDialog)
	return nil
}

func (u *UI) answerYes(gui *gocui.Gui, _ *gocui.View) error {
	return u.answer(gui, true)
}

func (u *UI) answerNo(gui *gocui.Gui, _ *gocui.View) error {
	return u.answer(gui, false)
}

func (u *UI) answer(gui *gocui.Gui, ok bool) error {
	if !u.dialogs.Answer(ok) {
		return nil
	}
	if gui != nil {
		_ = gui.DeleteView(viewDialog)
		_, _ = gui.SetCurrentView(u.focusView())
	}
	return nil
}

func (u *UI) toggleHelp(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() && !u.helpActive {
		return nil
	}
	u.helpActive = !u.helpActive
	return nil
}

func (u *UI) closeHelp(gui *gocui.Gui, _ *gocui.View) error {
	u.helpActive = false
	if gui != nil {
		_ = gui.DeleteView(viewHelp)
		_, _ = gui.SetCurrentView(viewTasks)
	}
	return nil
}

func (u *UI) showHelp(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	width := max(50, maxX/2)
	height := 14
	x0 := max((maxX-width)/2, 0)
	y0 := max((maxY-height)/2, 0)

	view, err := gui.SetView(viewHelp, x0, y0, x0+width, y0+height, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Title = "Help"
		view.Wrap = true
	}
	view.Clear()
	fmt.Fprint(view, helpText())
	_, _ = gui.SetViewOnTop(viewHelp)
	return nil
}

func (u *UI) inputActive() bool {
	if _, ok := u.dialogs.Current(); ok {
		return true
	}
	return u.form != nil || u.commentActive || u.helpActive
}

func (u *UI) quitKey(gui *gocui.Gui, view *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	return u.quit(gui, view)
}

func (u *UI) quit(_ *gocui.Gui, _ *gocui.View) error {
	return gocui.ErrQuit
}

func helpText() string {
	return strings.Join([]string{
		"Navigation:",
		"  j/k or arrows move selection",
		"  enter load comments of the selected task",
		"",
		"Actions:",
		"  a add task | e edit task | d delete task",
		"  m comment on the selected task",
		"  r reload from the backend",
		"",
		"Forms:",
		"  tab/arrows next field | enter save | esc cancel",
		"  ctrl-u clear field",
		"",
		"  ? help | esc/q close help | q quit",
	}, "\n")
}

func applyViewStyle(view *gocui.View, focused bool) {
	view.Frame = true
	view.Highlight = false
	if focused {
		view.FrameColor = gocui.ColorCyan
		view.TitleColor = gocui.ColorCyan
	} else {
		view.FrameColor = gocui.ColorDefault
	}
}
