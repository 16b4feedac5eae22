package tui

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tuningstudio/tuning/pkg/client"
)

// formField is one input in a form. Fields with choices are cycled with
// h/l or left/right instead of typed into.
type formField struct {
	key         string
	label       string
	placeholder string
	value       string
	secret      bool
	multiline   bool
	choices     []string
}

type formAction int

const (
	formNone formAction = iota
	formSubmit
	formCancel
)

// formModel is the shared editor behind sign-in, checkout, new topic and
// add car. Validation and server errors are shown under the field they
// belong to; anything else goes to general.
type formModel struct {
	title      string
	fields     []formField
	focus      int
	errs       map[string]string
	general    string
	submitting bool
}

func newForm(title string, fields ...formField) formModel {
	for i := range fields {
		if len(fields[i].choices) > 0 && fields[i].value == "" {
			fields[i].value = fields[i].choices[0]
		}
	}
	return formModel{title: title, fields: fields}
}

func (f formModel) Update(msg tea.KeyMsg) (formModel, formAction) {
	if f.submitting {
		if msg.String() == "esc" {
			return f, formCancel
		}
		return f, formNone
	}
	cur := &f.fields[f.focus]

	switch msg.String() {
	case "esc":
		return f, formCancel
	case "ctrl+s":
		return f, formSubmit
	case "tab", "down":
		f.focus = (f.focus + 1) % len(f.fields)
		return f, formNone
	case "shift+tab", "up":
		f.focus = (f.focus - 1 + len(f.fields)) % len(f.fields)
		return f, formNone
	case "enter":
		switch {
		case cur.multiline:
			cur.value = editRune(cur.value, "\n")
		case f.focus == len(f.fields)-1:
			return f, formSubmit
		default:
			f.focus++
		}
		return f, formNone
	}

	if len(cur.choices) > 0 {
		switch msg.String() {
		case "h", "left":
			cur.value = cycle(cur.choices, cur.value, -1)
		case "l", "right", " ":
			cur.value = cycle(cur.choices, cur.value, 1)
		}
		return f, formNone
	}

	cur.value = editKey(cur.value, msg)
	delete(f.errs, cur.key)
	return f, formNone
}

func cycle(choices []string, current string, step int) string {
	idx := 0
	for i, c := range choices {
		if c == current {
			idx = i
			break
		}
	}
	return choices[(idx+step+len(choices))%len(choices)]
}

// Value returns the trimmed value of the field named key.
func (f formModel) Value(key string) string {
	for _, fl := range f.fields {
		if fl.key == key {
			if fl.secret {
				return fl.value
			}
			return strings.TrimSpace(fl.value)
		}
	}
	return ""
}

func (f *formModel) SetValue(key, value string) {
	for i := range f.fields {
		if f.fields[i].key == key {
			f.fields[i].value = value
		}
	}
}

// Require records "required" for each empty field and reports whether all were set.
func (f *formModel) Require(keys ...string) bool {
	ok := true
	for _, k := range keys {
		if f.Value(k) == "" {
			f.SetError(k, "required")
			ok = false
		}
	}
	return ok
}

func (f *formModel) SetError(key, msg string) {
	if f.errs == nil {
		f.errs = make(map[string]string)
	}
	f.errs[key] = msg
}

// ClearErrors resets validation state before a new submit.
func (f *formModel) ClearErrors() {
	f.errs = nil
	f.general = ""
}

// HasErrors reports whether any field or general error is set.
func (f formModel) HasErrors() bool {
	return len(f.errs) > 0 || f.general != ""
}

// ApplyError spreads an API error over the fields. Field messages with no
// matching input are folded into the general line.
func (f *formModel) ApplyError(err error) {
	f.submitting = false
	apiErr := client.AsAPIError(err)
	if apiErr == nil {
		f.general = err.Error()
		return
	}
	var unmatched []string
	keys := make([]string, 0, len(apiErr.FieldErrors))
	for k := range apiErr.FieldErrors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if f.has(k) {
			f.SetError(k, apiErr.FieldErrors[k])
		} else {
			unmatched = append(unmatched, k+": "+apiErr.FieldErrors[k])
		}
	}
	if apiErr.Message != "" {
		unmatched = append([]string{apiErr.Message}, unmatched...)
	}
	if len(unmatched) == 0 && len(keys) == 0 {
		unmatched = append(unmatched, apiErr.Error())
	}
	f.general = strings.Join(unmatched, "; ")
}

func (f formModel) has(key string) bool {
	for _, fl := range f.fields {
		if fl.key == key {
			return true
		}
	}
	return false
}

// Reset empties every typed field and returns focus to the top.
func (f *formModel) Reset() {
	for i := range f.fields {
		if len(f.fields[i].choices) > 0 {
			f.fields[i].value = f.fields[i].choices[0]
			continue
		}
		f.fields[i].value = ""
	}
	f.focus = 0
	f.submitting = false
	f.ClearErrors()
}

func (f formModel) View() string {
	var b strings.Builder
	if f.title != "" {
		fmt.Fprintf(&b, " %s\n\n", sectionHeaderStyle.Render(f.title))
	}

	labelWidth := 0
	for _, fl := range f.fields {
		if len(fl.label) > labelWidth {
			labelWidth = len(fl.label)
		}
	}

	for i, fl := range f.fields {
		cursor := " "
		style := metaStyle
		if i == f.focus {
			cursor = accentStyle.Render("▸")
			style = selectedStyle
		}
		label := style.Render(fmt.Sprintf("%-*s", labelWidth, fl.label))

		if len(fl.choices) > 0 {
			fmt.Fprintf(&b, " %s %s  %s  %s\n", cursor, label,
				searchStyle.Render(fl.value), dimStyle.Render("(h/l)"))
		} else {
			lines := strings.Split(fl.value, "\n")
			first := renderInput("", lines[0], fl.placeholder, i == f.focus && len(lines) == 1, fl.secret)
			if len(lines) > 1 && i != f.focus {
				first = renderInput("", fl.value, fl.placeholder, false, fl.secret)
			}
			fmt.Fprintf(&b, " %s %s %s\n", cursor, label, first)
			if len(lines) > 1 && i == f.focus {
				pad := strings.Repeat(" ", labelWidth+4)
				for j, l := range lines[1:] {
					tail := ""
					if j == len(lines)-2 {
						tail = accentStyle.Render("█")
					}
					fmt.Fprintf(&b, " %s%s%s\n", pad, normalStyle.Render(l), tail)
				}
			}
		}
		if msg := f.errs[fl.key]; msg != "" {
			fmt.Fprintf(&b, " %s%s\n", strings.Repeat(" ", labelWidth+4), errorStyle.Render(msg))
		}
	}

	b.WriteString("\n")
	switch {
	case f.submitting:
		b.WriteString(" " + dimStyle.Render("sending..."))
	case f.general != "":
		b.WriteString(" " + errorStyle.Render(f.general))
	}
	return b.String()
}
