package tui

import (
	"fmt"
	"strings"

	"github.com/jesseduffield/gocui"

	"github.com/Joseda-hg/taskconsole/internal/model"
)

type formField struct {
	Label string
	Value string
}

const (
	fieldTitle = iota
	fieldDescription
)

type formState struct {
	// taskID is zero for the create form.
	taskID int64
	fields []formField
	index  int
}

func (f *formState) editing() bool {
	return f.taskID != 0
}

func buildFormFields(draft model.Draft) []formField {
	return []formField{
		{Label: "Title", Value: draft.Title},
		{Label: "Description", Value: draft.Description},
	}
}

// parseFormFields keeps the values as typed; trimming is left to the
// console guard and the backend.
func parseFormFields(fields []formField) model.Draft {
	return model.Draft{
		Title:       fields[fieldTitle].Value,
		Description: fields[fieldDescription].Value,
	}
}

type formEditor struct {
	ui *UI
}

func (e *formEditor) Edit(view *gocui.View, key gocui.Key, ch rune, mod gocui.Modifier) bool {
	ui := e.ui
	if ui == nil || ui.form == nil {
		return false
	}
	if !editField(&ui.form.fields[ui.form.index], key, ch, mod) {
		return false
	}
	ui.syncForm()
	if view != nil {
		ui.renderForm(view)
	}
	return true
}

// editField applies one keystroke to field and reports whether it was
// consumed.
func editField(field *formField, key gocui.Key, ch rune, mod gocui.Modifier) bool {
	switch key {
	case gocui.KeyBackspace, gocui.KeyBackspace2:
		runes := []rune(field.Value)
		if len(runes) > 0 {
			field.Value = string(runes[:len(runes)-1])
		}
		return true
	case gocui.KeySpace:
		field.Value += " "
		return true
	case gocui.KeyCtrlU:
		field.Value = ""
		return true
	}

	if ch != 0 && ch != '\n' && ch != '\r' && mod == 0 {
		field.Value += string(ch)
		return true
	}
	return false
}

// lineEditor is the single-line editor of the comment prompt.
type lineEditor struct {
	value *string
}

func (e *lineEditor) Edit(view *gocui.View, key gocui.Key, ch rune, mod gocui.Modifier) bool {
	field := formField{Value: *e.value}
	if !editField(&field, key, ch, mod) {
		return false
	}
	*e.value = field.Value
	if view != nil {
		view.Clear()
		fmt.Fprint(view, field.Value)
		view.SetCursor(len([]rune(field.Value)), 0)
	}
	return true
}

func formTitle(form *formState) string {
	if form.editing() {
		return "Edit Task"
	}
	return "New Task"
}

func trimmedLines(value string) []string {
	value = strings.TrimRight(value, "\n")
	if value == "" {
		return nil
	}
	return strings.Split(value, "\n")
}
