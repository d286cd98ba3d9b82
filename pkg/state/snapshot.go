package state

import (
	"github.com/goliatone/go-dialogform/pkg/mode"
	"github.com/goliatone/go-dialogform/pkg/model"
	"github.com/goliatone/go-dialogform/pkg/validation"
)

// Snapshot is an immutable copy of a container's FormState.
type Snapshot struct {
	Version      uint64
	Mode         mode.Mode
	Values       map[string]any
	Touched      map[string]bool
	Dirty        map[string]bool
	Errors       validation.Errors
	IsSubmitting bool
	SubmitCount  int
	Closed       bool
}

// IsDirty reports whether any field differs from its initial value.
func (s Snapshot) IsDirty() bool {
	return len(s.Dirty) > 0
}

// Valid reports whether the snapshot carries no validation messages.
func (s Snapshot) Valid() bool {
	return s.Errors.Empty()
}

// SubmitAttempted reports whether Submit ran since the last reset.
func (s Snapshot) SubmitAttempted() bool {
	return s.SubmitCount > 0
}

// VisibleErrors returns the messages of field that the display policy of the
// snapshot's mode allows to be shown.
func (s Snapshot) VisibleErrors(field model.Field) []string {
	messages := s.Errors.For(field.Name)
	if len(messages) == 0 {
		return nil
	}
	requiredEmpty := validation.RequiredEmpty(field, s.Values)
	if !mode.ShowErrors(s.Mode, requiredEmpty, s.Touched[field.Name], s.SubmitAttempted()) {
		return nil
	}
	return append([]string(nil), messages...)
}
