package dialog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-dialogform/pkg/mode"
	"github.com/goliatone/go-dialogform/pkg/model"
	"github.com/goliatone/go-dialogform/pkg/render"
	"github.com/goliatone/go-dialogform/pkg/state"
	"github.com/goliatone/go-dialogform/pkg/tabs"
	"github.com/goliatone/go-dialogform/pkg/validation"
)

// View describes the dialog for renderers. Hidden fields are left out, tabs
// without visible fields are dropped.
func (d *Dialog) View() render.View {
	snap := d.state.Snapshot()
	current := snap.Mode

	visible := make([]model.Field, 0, len(d.fields))
	for _, field := range d.fields {
		if field.IsVisible(snap.Values) {
			visible = append(visible, field)
		}
	}

	view := render.View{
		ID:         d.id,
		EntityType: d.EntityType(),
		EntityID:   d.EntityID(),
		Title:      d.adapter.Title(),
		Mode:       string(current),
		Submitting: snap.IsSubmitting,
		Dirty:      snap.IsDirty(),
		Valid:      snap.Valid(),
		CanEdit:    current == mode.View && !snap.Closed,
		CanSubmit:  current.CanMutate() && !snap.IsSubmitting && !snap.Closed,
		CanDelete:  d.CanDelete() && !snap.IsSubmitting,
	}
	if snap.SubmitAttempted() {
		view.FormErrors = snap.Errors.For(validation.FormKey)
	}
	if err := d.SubmitError(); err != nil {
		view.FormErrors = append(view.FormErrors, err.Error())
	}

	for _, group := range tabs.NonEmpty(tabs.GroupFields(visible, d.adapter.Tabs())) {
		tab := render.TabView{ID: group.Tab.ID, Label: group.Tab.Label, Icon: group.Tab.Icon}
		if tab.Label == "" && !group.Ungrouped() {
			tab.Label = model.DefaultLabeler(group.Tab.ID)
		}
		for _, field := range group.Fields {
			tab.Fields = append(tab.Fields, d.fieldView(field, snap))
		}
		view.Tabs = append(view.Tabs, tab)
	}
	return view
}

// fieldView dispatches on the control kind. Every kind must be handled here.
func (d *Dialog) fieldView(field model.Field, snap state.Snapshot) render.FieldView {
	value := snap.Values[field.Name]
	fv := render.FieldView{
		Name:        field.Name,
		Label:       field.DisplayLabel(),
		Kind:        string(field.Kind()),
		Value:       value,
		Placeholder: field.Placeholder,
		HelpText:    field.HelpText,
		Required:    field.Required,
		Disabled:    !snap.Mode.CanMutate() || !field.Editable() || snap.IsSubmitting || snap.Closed,
		Errors:      snap.VisibleErrors(field),
	}

	switch ctrl := field.Control.(type) {
	case nil:
		fv.Text = textOf(value)
	case model.PlainText:
		fv.Text = textOf(value)
		fv.MaxLength = ctrl.MaxLength
	case model.LongText:
		fv.Text = textOf(value)
		fv.Rows = ctrl.Rows
		if fv.Rows <= 0 {
			fv.Rows = 4
		}
	case model.Numeric:
		fv.Text = textOf(value)
		fv.Numeric = &render.NumericView{
			Integer: ctrl.Integer,
			Min:     ctrl.Min,
			Max:     ctrl.Max,
			Step:    ctrl.Step,
			Unit:    ctrl.Unit,
		}
	case model.SingleChoice, model.MultiChoice:
		d.choiceView(&fv, field, value)
	case model.FreeTags:
		fv.Multiple = true
		fv.Values = stringsOf(value)
		fv.Text = strings.Join(fv.Values, ", ")
		fv.Suggestions = append([]string(nil), ctrl.Suggestions...)
	case model.Date, model.DateTime:
		fv.Text = textOf(value)
	case model.StaticDisplay:
		fv.Disabled = true
		if ctrl.Format != nil {
			fv.Text = ctrl.Format(value, snap.Values)
		} else {
			fv.Text = textOf(value)
		}
	case model.Custom:
		fv.Component = ctrl.Component
		fv.Config = ctrl.Config
		fv.Text = textOf(value)
	}
	return fv
}

func (d *Dialog) choiceView(fv *render.FieldView, field model.Field, value any) {
	choice, _ := model.ChoiceOf(field.Control)
	opts, loading := d.Options(field.Name)

	fv.Multiple = choice.Multiple
	fv.Loading = loading
	if loading {
		fv.Disabled = true
	}
	for _, option := range opts {
		fv.Options = append(fv.Options, render.OptionView{
			ID:       option.ID,
			Label:    option.Label,
			Selected: choice.Selected(value, option),
		})
	}

	refs := model.References(value)
	labels := make([]string, 0, len(refs))
	for _, ref := range refs {
		fv.Values = append(fv.Values, ref.ID)
		labels = append(labels, choice.Label(ref, opts))
	}
	fv.Text = strings.Join(labels, ", ")

	if !choice.Tokens {
		return
	}
	target, navigable := d.adapter.EntityTypeFor(field.Name)
	for i, ref := range refs {
		fv.Tokens = append(fv.Tokens, render.Token{
			ID:         ref.ID,
			Label:      labels[i],
			EntityType: target,
			Navigable:  navigable,
		})
	}
}

func textOf(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case []string:
		return strings.Join(typed, ", ")
	default:
		return fmt.Sprint(typed)
	}
}

func stringsOf(value any) []string {
	switch typed := value.(type) {
	case nil:
		return nil
	case []string:
		return append([]string(nil), typed...)
	case []any:
		out := make([]string, 0, len(typed))
		for _, item := range typed {
			if s := textOf(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if strings.TrimSpace(typed) == "" {
			return nil
		}
		return []string{typed}
	default:
		return []string{fmt.Sprint(typed)}
	}
}
