package dialog

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-dialogform/pkg/model"
	"github.com/goliatone/go-dialogform/pkg/options"
	"github.com/goliatone/go-dialogform/pkg/state"
)

// LoadOptions starts loading the options of a loader-backed choice field.
// Static sources need no load and return nil. A missing loader is reported
// and the field stays without options.
func (d *Dialog) LoadOptions(field, query string) error {
	f, ok := model.Lookup(d.fields, field)
	if !ok {
		return fmt.Errorf("%w: %q", state.ErrUnknownField, field)
	}
	choice, ok := model.ChoiceOf(f.Control)
	if !ok || strings.TrimSpace(choice.Source.Loader) == "" {
		return nil
	}
	if d.loaders == nil {
		return fmt.Errorf("%w: %q", options.ErrLoaderNotFound, choice.Source.Loader)
	}
	loader, err := d.loaders.Get(choice.Source.Loader)
	if err != nil {
		d.logger.Warn("option loader missing", zap.String("field", field), zap.Error(err))
		return err
	}

	entityType := d.EntityType()
	if target, ok := d.adapter.EntityTypeFor(field); ok {
		entityType = target
	}
	if !d.tracker.Load(field, loader, options.Request{
		EntityType: entityType,
		Field:      field,
		Query:      query,
		Params:     choice.Source.Params,
	}) {
		return ErrClosed
	}
	return nil
}

// LoadAllOptions starts loads for every loader-backed field. Failures are
// logged and skipped; the other fields keep loading.
func (d *Dialog) LoadAllOptions() {
	for _, field := range d.fields {
		if err := d.LoadOptions(field.Name, ""); err != nil {
			d.logger.Debug("option load not started", zap.String("field", field.Name), zap.Error(err))
		}
	}
}

// WaitOptions blocks until every started option load returned.
func (d *Dialog) WaitOptions() {
	d.tracker.Wait()
}

// Options returns the current options of a choice field and whether a load
// is in flight.
func (d *Dialog) Options(field string) ([]model.Option, bool) {
	f, ok := model.Lookup(d.fields, field)
	if !ok {
		return nil, false
	}
	choice, ok := model.ChoiceOf(f.Control)
	if !ok {
		return nil, false
	}
	if strings.TrimSpace(choice.Source.Loader) == "" {
		return append([]model.Option(nil), choice.Source.Static...), false
	}
	st := d.tracker.State(field)
	return st.Options, st.Loading
}

func (d *Dialog) optionsChanged(field string, st options.State) {
	if d.onOptions != nil {
		d.onOptions(field, st)
	}
}
