package dialog

import (
	"context"

	"go.uber.org/zap"

	"github.com/goliatone/go-dialogform/pkg/mode"
	"github.com/goliatone/go-dialogform/pkg/options"
)

// SubmitHandler persists values. entityID is empty for records being
// created; the returned id identifies the stored record.
type SubmitHandler func(ctx context.Context, entityType, entityID string, values map[string]any) (string, error)

// DeleteHandler removes the record.
type DeleteHandler func(ctx context.Context, entityType, entityID string) error

// Confirmer is asked before the delete handler runs.
type Confirmer func(ctx context.Context, d *Dialog) bool

// CloseHandler is invoked once when the dialog closes.
type CloseHandler func(d *Dialog)

// TransitionHook observes mode transitions.
type TransitionHook func(d *Dialog, from, to mode.Mode)

// Option configures a Dialog.
type Option func(*Dialog)

// WithID overrides the generated dialog id.
func WithID(id string) Option {
	return func(d *Dialog) {
		if id != "" {
			d.id = id
		}
	}
}

// WithEntityID sets the id of the record being viewed or edited.
func WithEntityID(id string) Option {
	return func(d *Dialog) {
		d.entityID = id
	}
}

// WithLogger sets the dialog logger. Child components log through it too.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Dialog) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithContext sets the parent context of option loads. Cancelling it has
// the same effect on loads as closing the dialog.
func WithContext(ctx context.Context) Option {
	return func(d *Dialog) {
		if ctx != nil {
			d.ctx = ctx
		}
	}
}

// WithSubmitHandler sets the persistence callback used by Submit.
func WithSubmitHandler(fn SubmitHandler) Option {
	return func(d *Dialog) {
		d.onSubmit = fn
	}
}

// WithDeleteHandler enables deletion for adapters that allow it.
func WithDeleteHandler(fn DeleteHandler) Option {
	return func(d *Dialog) {
		d.onDelete = fn
	}
}

// WithConfirm replaces the default confirmation step, which only accepts
// contexts marked with Confirmed.
func WithConfirm(fn Confirmer) Option {
	return func(d *Dialog) {
		if fn != nil {
			d.confirm = fn
		}
	}
}

// WithCloseHandler registers the dismiss callback.
func WithCloseHandler(fn CloseHandler) Option {
	return func(d *Dialog) {
		d.onClose = fn
	}
}

// WithOptionLoaders sets the registry resolving OptionSource.Loader names.
func WithOptionLoaders(reg *options.Registry) Option {
	return func(d *Dialog) {
		d.loaders = reg
	}
}

// WithOptionsListener is called whenever the option state of a field changes.
func WithOptionsListener(fn func(field string, st options.State)) Option {
	return func(d *Dialog) {
		d.onOptions = fn
	}
}

// WithTransitionHook registers a mode transition observer.
func WithTransitionHook(fn TransitionHook) Option {
	return func(d *Dialog) {
		if fn != nil {
			d.hooks = append(d.hooks, fn)
		}
	}
}

type confirmedKey struct{}

// Confirmed marks ctx as carrying an explicit user confirmation, e.g. a
// submitted confirmation form.
func Confirmed(ctx context.Context) context.Context {
	return context.WithValue(ctx, confirmedKey{}, true)
}

// IsConfirmed reports whether ctx was marked with Confirmed.
func IsConfirmed(ctx context.Context) bool {
	ok, _ := ctx.Value(confirmedKey{}).(bool)
	return ok
}

func defaultConfirm(ctx context.Context, _ *Dialog) bool {
	return IsConfirmed(ctx)
}
