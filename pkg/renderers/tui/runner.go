package tui

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/goliatone/go-dialogform/pkg/dialog"
	"github.com/goliatone/go-dialogform/pkg/model"
	"github.com/goliatone/go-dialogform/pkg/navigation"
	"github.com/goliatone/go-dialogform/pkg/render"
	"github.com/goliatone/go-dialogform/pkg/session"
	"github.com/goliatone/go-dialogform/pkg/state"
)

// Runner drives a dialog session from the terminal. Each round prints the
// active dialog and asks for one action.
type Runner struct {
	driver PromptDriver
	text   *Renderer
	theme  Theme
	logger *zap.Logger
}

// NewRunner builds a runner that prompts through survey unless another driver
// is supplied.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		theme:  DefaultTheme,
		text:   NewRenderer(DefaultTheme),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.driver == nil {
		r.driver = NewSurveyDriver(nil)
	}
	return r
}

type action struct {
	label string
	run   func(ctx context.Context) (done bool, err error)
}

// Run loops until the user quits, the root record is deleted or ctx ends.
// Aborting a prompt returns ErrAborted and leaves the session open.
func (r *Runner) Run(ctx context.Context, sess *session.Session) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if sess.Closed() {
			return nil
		}

		active := sess.Active()
		active.WaitOptions()
		view := sess.View()
		if err := r.driver.Info(ctx, r.text.Format(view)); err != nil {
			return err
		}

		actions := r.actions(sess, active, view)
		labels := make([]string, len(actions))
		for i, a := range actions {
			labels[i] = a.label
		}
		idx, err := r.driver.Select(ctx, SelectConfig{Message: "Action", Options: labels})
		if err != nil {
			return err
		}
		if idx < 0 || idx >= len(actions) {
			continue
		}

		r.logger.Debug("tui action", zap.String("action", actions[idx].label), zap.String("dialog", active.ID()))
		done, err := actions[idx].run(ctx)
		if errors.Is(err, ErrAborted) {
			return err
		}
		if err != nil {
			if rerr := r.report(ctx, err); rerr != nil {
				return rerr
			}
		}
		if done {
			return nil
		}
	}
}

func (r *Runner) actions(sess *session.Session, d *dialog.Dialog, view render.View) []action {
	var out []action
	fields := view.Fields()

	for _, field := range fields {
		if field.Disabled || field.Kind == string(model.KindStaticDisplay) {
			continue
		}
		field := field
		out = append(out, action{
			label: "Set " + field.Label,
			run: func(ctx context.Context) (bool, error) {
				return false, r.promptField(ctx, d, field)
			},
		})
	}

	for _, field := range fields {
		for _, token := range field.Tokens {
			if !token.Navigable {
				continue
			}
			fieldName, tokenID := field.Name, token.ID
			out = append(out, action{
				label: fmt.Sprintf("Open %s (%s)", token.Label, field.Label),
				run: func(ctx context.Context) (bool, error) {
					_, err := sess.OpenToken(ctx, fieldName, tokenID)
					if errors.Is(err, navigation.ErrAlreadyOpen) {
						return false, r.driver.Info(ctx, r.theme.InfoPrefix+"already open in this session")
					}
					return false, err
				},
			})
		}
	}

	if view.CanEdit {
		out = append(out, action{label: "Edit record", run: func(context.Context) (bool, error) {
			return false, d.StartEditing()
		}})
	}
	if view.CanSubmit {
		label := "Save"
		if view.Mode == "create" {
			label = "Create"
		}
		out = append(out, action{label: label, run: func(ctx context.Context) (bool, error) {
			if err := d.Submit(ctx); err != nil {
				return false, err
			}
			return false, r.driver.Info(ctx, r.theme.InfoPrefix+"saved")
		}})
	}
	if view.Mode == "edit" {
		out = append(out, action{label: "Discard changes", run: func(context.Context) (bool, error) {
			return false, d.StopEditing()
		}})
	}
	if view.CanDelete {
		out = append(out, action{label: "Delete", run: func(ctx context.Context) (bool, error) {
			ok, err := r.driver.Confirm(ctx, ConfirmConfig{Message: "Delete " + view.Title + "?"})
			if err != nil || !ok {
				return false, err
			}
			if err := sess.Delete(dialog.Confirmed(ctx)); err != nil {
				return false, err
			}
			return sess.Closed(), nil
		}})
	}
	if sess.Depth() > 0 {
		out = append(out, action{label: "Back", run: func(context.Context) (bool, error) {
			return false, sess.CloseTop()
		}})
	}
	out = append(out, action{label: "Quit", run: func(context.Context) (bool, error) {
		sess.Close()
		return true, nil
	}})
	return out
}

// promptField asks for a new value using the prompt that matches the field
// kind and stores it as raw input.
func (r *Runner) promptField(ctx context.Context, d *dialog.Dialog, field render.FieldView) error {
	if field.Kind == string(model.KindSingleChoice) || field.Kind == string(model.KindMultiChoice) {
		if err := d.LoadOptions(field.Name, ""); err == nil {
			d.WaitOptions()
			if fresh, ok := d.View().Field(field.Name); ok {
				field = fresh
			}
		}
	}

	var raw []string
	switch field.Kind {
	case string(model.KindSingleChoice):
		labels := []string{"(none)"}
		selected := 0
		for i, option := range field.Options {
			labels = append(labels, option.Label)
			if option.Selected {
				selected = i + 1
			}
		}
		idx, err := r.driver.Select(ctx, SelectConfig{Message: field.Label, Options: labels, DefaultIndex: selected, Help: field.HelpText})
		if err != nil {
			return err
		}
		if idx > 0 && idx <= len(field.Options) {
			raw = []string{field.Options[idx-1].ID}
		}
	case string(model.KindMultiChoice):
		choices := withSelected(field)
		labels := make([]string, len(choices))
		var defaults []int
		for i, option := range choices {
			labels[i] = option.Label
			if option.Selected {
				defaults = append(defaults, i)
			}
		}
		picked, err := r.driver.MultiSelect(ctx, SelectConfig{Message: field.Label, Options: labels, Defaults: defaults, Help: field.HelpText})
		if err != nil {
			return err
		}
		for _, idx := range picked {
			if idx >= 0 && idx < len(choices) {
				raw = append(raw, choices[idx].ID)
			}
		}
	case string(model.KindLongText):
		text, err := r.driver.TextArea(ctx, TextAreaConfig{Message: field.Label, Default: field.Text, Help: field.HelpText})
		if err != nil {
			return err
		}
		raw = []string{text}
	default:
		text, err := r.driver.Input(ctx, InputConfig{Message: field.Label, Default: field.Text, Help: field.HelpText})
		if err != nil {
			return err
		}
		raw = []string{text}
	}

	if err := d.SetInput(field.Name, raw...); err != nil {
		return err
	}
	return d.Touch(field.Name)
}

// withSelected lists the options followed by selected values that are not
// among them, so keeping a selection never depends on the loader.
func withSelected(field render.FieldView) []render.OptionView {
	out := append([]render.OptionView(nil), field.Options...)
	known := make(map[string]struct{}, len(out))
	for _, option := range out {
		known[option.ID] = struct{}{}
	}
	labels := make(map[string]string, len(field.Tokens))
	for _, token := range field.Tokens {
		labels[token.ID] = token.Label
	}
	for _, id := range field.Values {
		if _, ok := known[id]; ok {
			continue
		}
		label := labels[id]
		if label == "" {
			label = id
		}
		out = append(out, render.OptionView{ID: id, Label: label, Selected: true})
		known[id] = struct{}{}
	}
	return out
}

// report prints a failed action. A read-only refusal is not a failure the
// user caused and is only logged.
func (r *Runner) report(ctx context.Context, err error) error {
	r.logger.Debug("tui action failed", zap.Error(err))
	if errors.Is(err, state.ErrReadOnly) {
		return nil
	}
	return r.driver.Info(ctx, r.theme.ErrorPrefix+err.Error())
}
