// Package mode implements the create/edit/view state machine that governs
// whether a dialog accepts input and how validation messages are displayed.
package mode

import (
	"errors"
	"fmt"
	"sync"
)

// Mode is the interaction mode of a dialog.
type Mode string

const (
	Create Mode = "create"
	Edit   Mode = "edit"
	View   Mode = "view"
)

// Parse converts a string into a Mode.
func Parse(s string) (Mode, error) {
	m := Mode(s)
	if !m.Valid() {
		return "", fmt.Errorf("mode: unknown mode %q", s)
	}
	return m, nil
}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == Create || m == Edit || m == View
}

// CanMutate reports whether values may change in m.
func (m Mode) CanMutate() bool {
	return m == Create || m == Edit
}

// Nested returns the mode of a frame opened from a parent in mode parent. A
// create parent opens existing records, so the child edits; otherwise the
// child inherits the parent's mode.
func Nested(parent Mode) Mode {
	if parent == Create {
		return Edit
	}
	return parent
}

// ShowErrors decides whether a field's messages are displayed.
//
//	create: required-but-empty fields always, other fields once touched or
//	        after a submit attempt
//	edit:   once touched or after a submit attempt
//	view:   never
func ShowErrors(m Mode, requiredEmpty, touched, submitAttempted bool) bool {
	switch m {
	case Create:
		return requiredEmpty || touched || submitAttempted
	case Edit:
		return touched || submitAttempted
	default:
		return false
	}
}

// Event drives transitions between modes.
type Event string

const (
	// StartEditing moves a viewed record into edit mode.
	StartEditing Event = "startEditing"
	// StopEditing returns an edited record to view mode.
	StopEditing Event = "stopEditing"
	// Persisted marks a created record as stored; the dialog keeps editing it.
	Persisted Event = "persisted"
)

// ErrInvalidTransition is returned when an event is not allowed in the
// current mode.
var ErrInvalidTransition = errors.New("mode: invalid transition")

// Transition computes the mode reached from m on ev. Nothing transitions into
// create.
func Transition(m Mode, ev Event) (Mode, error) {
	switch {
	case m == View && ev == StartEditing:
		return Edit, nil
	case m == Edit && ev == StopEditing:
		return View, nil
	case m == Create && ev == Persisted:
		return Edit, nil
	}
	return m, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, ev, m)
}

// Listener observes completed transitions.
type Listener func(from, to Mode)

// Machine holds the current mode of one dialog.
type Machine struct {
	mu        sync.RWMutex
	current   Mode
	listeners []Listener
}

// NewMachine starts a machine in initial, defaulting to view for unknown
// modes.
func NewMachine(initial Mode) *Machine {
	if !initial.Valid() {
		initial = View
	}
	return &Machine{current: initial}
}

// Current returns the active mode.
func (m *Machine) Current() Mode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// OnTransition registers a listener invoked after each successful transition.
func (m *Machine) OnTransition(fn Listener) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

// Fire applies ev and notifies listeners outside the lock.
func (m *Machine) Fire(ev Event) (Mode, error) {
	m.mu.Lock()
	from := m.current
	to, err := Transition(from, ev)
	if err != nil {
		m.mu.Unlock()
		return from, err
	}
	m.current = to
	listeners := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(from, to)
	}
	return to, nil
}
