package validation

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-dialogform/pkg/model"
)

// FormKey collects messages that do not belong to a single field.
const FormKey = "_form"

// ErrInvalid is matched by every *Error.
var ErrInvalid = errors.New("validation: record invalid")

// Errors maps field names to their messages.
type Errors map[string][]string

// Add appends messages to field, trimming blanks and dropping duplicates.
func (e Errors) Add(field string, messages ...string) {
	if e == nil {
		return
	}
	merged := normalizeMessages(append(append([]string(nil), e[field]...), messages...))
	if len(merged) == 0 {
		return
	}
	e[field] = merged
}

// Merge adds every message of other.
func (e Errors) Merge(other Errors) {
	for field, messages := range other {
		e.Add(field, messages...)
	}
}

// Empty reports whether no field carries a message.
func (e Errors) Empty() bool {
	for _, messages := range e {
		if len(messages) > 0 {
			return false
		}
	}
	return true
}

// For returns the messages attached to field.
func (e Errors) For(field string) []string {
	if e == nil {
		return nil
	}
	return e[field]
}

// Fields returns the names with at least one message, sorted.
func (e Errors) Fields() []string {
	out := make([]string, 0, len(e))
	for field, messages := range e {
		if len(messages) > 0 {
			out = append(out, field)
		}
	}
	sort.Strings(out)
	return out
}

// Clone returns a deep copy.
func (e Errors) Clone() Errors {
	out := make(Errors, len(e))
	for field, messages := range e {
		if len(messages) == 0 {
			continue
		}
		out[field] = append([]string(nil), messages...)
	}
	return out
}

// Error reports that submission was blocked by validation messages.
type Error struct {
	Fields Errors
}

func (e *Error) Error() string {
	if e == nil {
		return ErrInvalid.Error()
	}
	names := e.Fields.Fields()
	return fmt.Sprintf("validation: %d field(s) invalid: %s", len(names), strings.Join(names, ", "))
}

func (e *Error) Unwrap() error { return ErrInvalid }

// FieldErrors is returned by submit handlers when the backing store rejected
// the record with per-field messages. Paths may use dotted, bracketed or JSON
// pointer notation and can be wrapped in body/data envelopes.
type FieldErrors struct {
	Message string
	Payload map[string][]string
}

func (e *FieldErrors) Error() string {
	if e == nil || strings.TrimSpace(e.Message) == "" {
		return "validation: record rejected"
	}
	return e.Message
}

// AsFieldErrors extracts a *FieldErrors from err's chain.
func AsFieldErrors(err error) (*FieldErrors, bool) {
	var target *FieldErrors
	if errors.As(err, &target) && target != nil {
		return target, true
	}
	return nil, false
}

// MapPayload normalises an error payload onto the given field names. Paths
// that do not resolve to a known field, and form-level keys, collect under
// FormKey so no message is lost.
func MapPayload(fields []model.Field, payload map[string][]string) Errors {
	out := make(Errors)
	if len(payload) == 0 {
		return out
	}

	known := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		if name := strings.TrimSpace(field.Name); name != "" {
			known[name] = struct{}{}
		}
	}

	for raw, messages := range payload {
		field, ok := mapErrorPath(raw, known)
		if !ok {
			field = FormKey
		}
		out.Add(field, messages...)
	}
	return out
}

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}

	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))
	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

func mapErrorPath(raw string, known map[string]struct{}) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if isFormLevelKey(trimmed) {
		return "", false
	}

	segments := parsePathSegments(trimmed)
	for _, variant := range [][]string{segments, dropWrapperSegments(segments)} {
		for _, segment := range variant {
			if _, err := strconv.Atoi(segment); err == nil {
				continue
			}
			if _, ok := known[segment]; ok {
				return segment, true
			}
			break
		}
	}
	return "", false
}

func parsePathSegments(path string) []string {
	clean := strings.TrimSpace(path)
	for strings.HasPrefix(clean, "#") || strings.HasPrefix(clean, "/") || strings.HasPrefix(clean, ".") || strings.HasPrefix(clean, "$") {
		clean = clean[1:]
	}

	replacer := strings.NewReplacer("[", ".", "]", "")
	clean = strings.Trim(replacer.Replace(clean), "./")
	if clean == "" {
		return nil
	}

	parts := strings.FieldsFunc(clean, func(r rune) bool {
		return r == '.' || r == '/'
	})
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		segment := strings.TrimSpace(part)
		if segment == "" {
			continue
		}
		segment = strings.ReplaceAll(segment, "~1", "/")
		segment = strings.ReplaceAll(segment, "~0", "~")
		out = append(out, segment)
	}
	return out
}

func dropWrapperSegments(segments []string) []string {
	out := segments
	for len(out) > 0 {
		switch strings.ToLower(out[0]) {
		case "body", "request", "payload", "data", "attributes", "record":
			out = out[1:]
			continue
		}
		break
	}
	return out
}

func isFormLevelKey(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "", ".", "/", "#", "$", "form", FormKey, "base", "__all__", "non_field_errors", "non-field-errors":
		return true
	default:
		return false
	}
}
