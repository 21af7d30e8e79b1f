package tui

import (
	"context"
	"sync"
)

type dialogKind int

const (
	dialogAlert dialogKind = iota
	dialogConfirm
)

type dialog struct {
	kind    dialogKind
	message string
	answer  chan bool
}

// Dialogs shows blocking alerts and confirmations on top of the UI. Callers
// block in Alert or Confirm from a worker goroutine until the UI goroutine
// calls Answer. Only one dialog is shown at a time; later callers wait.
type Dialogs struct {
	redraw func()

	serial sync.Mutex

	mu      sync.Mutex
	current *dialog
}

func NewDialogs(redraw func()) *Dialogs {
	return &Dialogs{redraw: redraw}
}

func (d *Dialogs) Alert(ctx context.Context, message string) {
	d.ask(ctx, dialogAlert, message)
}

// Confirm returns false when ctx ends before an answer.
func (d *Dialogs) Confirm(ctx context.Context, message string) bool {
	return d.ask(ctx, dialogConfirm, message)
}

// Current returns the dialog on screen, if any.
func (d *Dialogs) Current() (dialog, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == nil {
		return dialog{}, false
	}
	return *d.current, true
}

// Answer resolves the dialog on screen. It reports whether one was open.
func (d *Dialogs) Answer(ok bool) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == nil {
		return false
	}
	select {
	case d.current.answer <- ok:
	default:
	}
	return true
}

func (d *Dialogs) ask(ctx context.Context, kind dialogKind, message string) bool {
	d.serial.Lock()
	defer d.serial.Unlock()

	dlg := &dialog{kind: kind, message: message, answer: make(chan bool, 1)}
	d.show(dlg)
	defer d.show(nil)

	select {
	case ok := <-dlg.answer:
		return ok
	case <-ctx.Done():
		return false
	}
}

func (d *Dialogs) show(dlg *dialog) {
	d.mu.Lock()
	d.current = dlg
	d.mu.Unlock()
	if d.redraw != nil {
		d.redraw()
	}
}
