// Package adapter defines the contract between entity types and the dialog
// engine. An Adapter supplies field descriptors, tabs, the defaults derived
// from a stored record, a record validator and the entity type behind each
// reference field. Adapters can be declared in code (Definition), loaded from
// a catalog document (FromEntity) or derived from an OpenAPI schema
// (FromOpenAPI).
package adapter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-dialogform/pkg/model"
	"github.com/goliatone/go-dialogform/pkg/validation"
)

// Adapter describes one entity type.
type Adapter interface {
	EntityType() string
	Title() string
	Fields() []model.Field
	Tabs() []model.Tab
	// Defaults maps a stored record (nil when creating) to initial values.
	Defaults(record map[string]any) map[string]any
	validation.RecordValidator
	// EntityTypeFor names the entity type a reference field points at.
	EntityTypeFor(field string) (string, bool)
	// Deletable reports whether records may be deleted from the dialog.
	Deletable() bool
}

// Definition is the plain data implementation of Adapter.
type Definition struct {
	Type          string
	Label         string
	FieldList     []model.Field
	TabList       []model.Tab
	DefaultValues map[string]any
	Validator     validation.RecordValidator
	// EntityTypes overrides the target of reference fields by name.
	EntityTypes map[string]string
	AllowDelete bool
}

var _ Adapter = (*Definition)(nil)

// Validate checks the structural invariants of the definition.
func (d *Definition) Validate() error {
	if d == nil {
		return errors.New("adapter: definition is nil")
	}
	if strings.TrimSpace(d.Type) == "" {
		return errors.New("adapter: entity type is required")
	}
	seen := make(map[string]struct{}, len(d.FieldList))
	for _, field := range d.FieldList {
		name := strings.TrimSpace(field.Name)
		if name == "" {
			return fmt.Errorf("adapter: %s: field without name", d.Type)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("adapter: %s: duplicate field %q", d.Type, name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

func (d *Definition) EntityType() string { return d.Type }

func (d *Definition) Title() string {
	if d.Label != "" {
		return d.Label
	}
	return model.DefaultLabeler(d.Type)
}

func (d *Definition) Fields() []model.Field {
	return append([]model.Field(nil), d.FieldList...)
}

func (d *Definition) Tabs() []model.Tab {
	return append([]model.Tab(nil), d.TabList...)
}

func (d *Definition) Deletable() bool { return d.AllowDelete }

// Defaults starts from DefaultValues and overlays the record's values for
// known fields. Every field name is present in the result.
func (d *Definition) Defaults(record map[string]any) map[string]any {
	out := make(map[string]any, len(d.FieldList))
	for _, field := range d.FieldList {
		out[field.Name] = d.DefaultValues[field.Name]
		if value, ok := record[field.Name]; ok {
			out[field.Name] = value
		}
	}
	return out
}

func (d *Definition) ValidateRecord(record map[string]any) validation.Errors {
	if d.Validator == nil {
		return nil
	}
	return d.Validator.ValidateRecord(record)
}

// EntityTypeFor prefers an explicit EntityTypes entry and falls back to the
// Target of the field's choice control.
func (d *Definition) EntityTypeFor(name string) (string, bool) {
	if target := strings.TrimSpace(d.EntityTypes[name]); target != "" {
		return target, true
	}
	field, ok := model.Lookup(d.FieldList, name)
	if !ok {
		return "", false
	}
	choice, ok := model.ChoiceOf(field.Control)
	if !ok || strings.TrimSpace(choice.Target) == "" {
		return "", false
	}
	return choice.Target, true
}
