// Package navigation implements the nested entity navigation stack. A root
// record is edited in the base dialog; following an entity reference pushes a
// frame for the referenced record, closing a frame pops exactly that frame.
// The stack refuses to open a record that is already open anywhere in the
// chain, including the root, so reference cycles cannot grow it.
package navigation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goliatone/go-dialogform/pkg/mode"
)

var (
	// ErrAlreadyOpen is returned when the requested record is already on the
	// stack or is the root.
	ErrAlreadyOpen = errors.New("navigation: record already open")
	// ErrInvalidKey is returned for keys without entity type or id.
	ErrInvalidKey = errors.New("navigation: entity type and id required")
	// ErrEmpty is returned when closing with no nested frame open.
	ErrEmpty = errors.New("navigation: no nested frame open")
)

// Key identifies a record.
type Key struct {
	EntityType string
	EntityID   string
}

func (k Key) String() string {
	return k.EntityType + "/" + k.EntityID
}

func (k Key) valid() bool {
	return strings.TrimSpace(k.EntityType) != "" && strings.TrimSpace(k.EntityID) != ""
}

// Frame is one nested dialog on the stack.
type Frame[T any] struct {
	ID    string
	Key   Key
	Mode  mode.Mode
	Value T
}

// Builder constructs the value of a frame. Returning an error aborts the
// push and leaves the stack untouched. Builders run under the stack lock and
// must not call back into the stack.
type Builder[T any] func(key Key, m mode.Mode) (T, error)

// Option configures a Stack.
type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger logs rejected pushes.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Stack holds the nested frames above a root record. It is owned by one
// dialog session and is safe for concurrent use.
type Stack[T any] struct {
	mu       sync.RWMutex
	root     Key
	rootMode mode.Mode
	frames   []Frame[T]
	logger   *zap.Logger
}

// NewStack creates an empty stack above root. A root without id (a record
// being created) never collides with nested keys.
func NewStack[T any](root Key, rootMode mode.Mode, opts ...Option) *Stack[T] {
	cfg := &options{logger: zap.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return &Stack[T]{root: root, rootMode: rootMode, logger: cfg.logger}
}

// SetRoot updates the root identity and mode, e.g. after the root record was
// persisted.
func (s *Stack[T]) SetRoot(root Key, m mode.Mode) {
	s.mu.Lock()
	s.root = root
	s.rootMode = m
	s.mu.Unlock()
}

// Root returns the root key and mode.
func (s *Stack[T]) Root() (Key, mode.Mode) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.root, s.rootMode
}

// Open pushes a frame for key above the current top. The frame mode is
// derived from the parent (top frame or root) with mode.Nested. Keys already
// open return ErrAlreadyOpen together with the existing frame when there is
// one. A failing build is a no-op.
func (s *Stack[T]) Open(key Key, build Builder[T]) (Frame[T], error) {
	if !key.valid() {
		return Frame[T]{}, ErrInvalidKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.lookupLocked(key); ok {
		s.logger.Debug("refusing to reopen record", zap.Stringer("key", key))
		return existing, fmt.Errorf("%w: %s", ErrAlreadyOpen, key)
	}

	parentMode := s.rootMode
	if n := len(s.frames); n > 0 {
		parentMode = s.frames[n-1].Mode
	}
	childMode := mode.Nested(parentMode)

	value, err := build(key, childMode)
	if err != nil {
		s.logger.Info("nested frame not opened", zap.Stringer("key", key), zap.Error(err))
		return Frame[T]{}, fmt.Errorf("navigation: open %s: %w", key, err)
	}

	frame := Frame[T]{ID: uuid.NewString(), Key: key, Mode: childMode, Value: value}
	s.frames = append(s.frames, frame)
	return frame, nil
}

func (s *Stack[T]) lookupLocked(key Key) (Frame[T], bool) {
	if s.root.valid() && s.root == key {
		return Frame[T]{Key: key, Mode: s.rootMode}, true
	}
	for _, frame := range s.frames {
		if frame.Key == key {
			return frame, true
		}
	}
	return Frame[T]{}, false
}

// Close pops the top frame and returns it. The parent frames are untouched.
func (s *Stack[T]) Close() (Frame[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.frames)
	if n == 0 {
		return Frame[T]{}, ErrEmpty
	}
	top := s.frames[n-1]
	s.frames[n-1] = Frame[T]{}
	s.frames = s.frames[:n-1]
	return top, nil
}

// Top returns the innermost frame.
func (s *Stack[T]) Top() (Frame[T], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.frames) == 0 {
		return Frame[T]{}, false
	}
	return s.frames[len(s.frames)-1], true
}

// Depth returns the number of nested frames.
func (s *Stack[T]) Depth() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.frames)
}

// Frames returns the frames from outermost to innermost.
func (s *Stack[T]) Frames() []Frame[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Frame[T](nil), s.frames...)
}

// Contains reports whether key is the root or on the stack.
func (s *Stack[T]) Contains(key Key) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.lookupLocked(key)
	return ok
}

// SetMode records a mode change of the frame holding key, or of the root.
// Frames opened afterwards derive their mode from it. It reports whether key
// was found.
func (s *Stack[T]) SetMode(key Key, m mode.Mode) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.frames {
		if s.frames[i].Key == key {
			s.frames[i].Mode = m
			return true
		}
	}
	if s.root == key {
		s.rootMode = m
		return true
	}
	return false
}
