package model

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Reference is the normalised shape of an EntityReference.
type Reference struct {
	ID    string `json:"id" yaml:"id"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

// NormalizeReference accepts a raw identifier or an {id, label} pair and
// returns the Reference it denotes. Values without a usable identifier return
// false.
func NormalizeReference(value any) (Reference, bool) {
	switch typed := value.(type) {
	case nil:
		return Reference{}, false
	case Reference:
		typed.ID = strings.TrimSpace(typed.ID)
		return typed, typed.ID != ""
	case *Reference:
		if typed == nil {
			return Reference{}, false
		}
		return NormalizeReference(*typed)
	case Option:
		return NormalizeReference(Reference{ID: typed.ID, Label: typed.Label})
	case string:
		id := strings.TrimSpace(typed)
		return Reference{ID: id}, id != ""
	case int:
		return Reference{ID: strconv.Itoa(typed)}, true
	case int64:
		return Reference{ID: strconv.FormatInt(typed, 10)}, true
	case float64:
		if typed == math.Trunc(typed) {
			return Reference{ID: strconv.FormatInt(int64(typed), 10)}, true
		}
		return Reference{ID: strconv.FormatFloat(typed, 'f', -1, 64)}, true
	case map[string]any:
		id, ok := NormalizeReference(firstPresent(typed, "id", "ID", "value"))
		if !ok {
			return Reference{}, false
		}
		if label, ok := firstPresent(typed, "label", "name", "title").(string); ok {
			id.Label = strings.TrimSpace(label)
		}
		return id, true
	case map[string]string:
		converted := make(map[string]any, len(typed))
		for k, v := range typed {
			converted[k] = v
		}
		return NormalizeReference(converted)
	default:
		return Reference{}, false
	}
}

// References normalises a single or multi valued selection into a slice,
// dropping entries without an identifier.
func References(value any) []Reference {
	if value == nil {
		return nil
	}
	switch typed := value.(type) {
	case []Reference:
		return collectRefs(len(typed), func(i int) any { return typed[i] })
	case []string:
		return collectRefs(len(typed), func(i int) any { return typed[i] })
	case []any:
		return collectRefs(len(typed), func(i int) any { return typed[i] })
	case []map[string]any:
		return collectRefs(len(typed), func(i int) any { return typed[i] })
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Slice {
		return collectRefs(rv.Len(), func(i int) any { return rv.Index(i).Interface() })
	}
	if ref, ok := NormalizeReference(value); ok {
		return []Reference{ref}
	}
	return nil
}

// ReferenceIDs returns the identifiers of References(value).
func ReferenceIDs(value any) []string {
	refs := References(value)
	if len(refs) == 0 {
		return nil
	}
	out := make([]string, len(refs))
	for i, ref := range refs {
		out[i] = ref.ID
	}
	return out
}

// SameReference compares two EntityReferences by identifier.
func SameReference(a, b any) bool {
	left, lok := NormalizeReference(a)
	right, rok := NormalizeReference(b)
	return lok && rok && left.ID == right.ID
}

func collectRefs(n int, at func(int) any) []Reference {
	out := make([]Reference, 0, n)
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		ref, ok := NormalizeReference(at(i))
		if !ok {
			continue
		}
		if _, dup := seen[ref.ID]; dup {
			continue
		}
		seen[ref.ID] = struct{}{}
		out = append(out, ref)
	}
	return out
}

func firstPresent(m map[string]any, keys ...string) any {
	for _, key := range keys {
		if v, ok := m[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

// IsEmpty reports whether value counts as "no value" for required checks.
// Zero numbers and false are values; blank strings and empty collections are
// not.
func IsEmpty(value any) bool {
	switch typed := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(typed) == ""
	case Reference:
		return strings.TrimSpace(typed.ID) == ""
	case *Reference:
		return typed == nil || strings.TrimSpace(typed.ID) == ""
	case *float64:
		return typed == nil
	case fmt.Stringer:
		return strings.TrimSpace(typed.String()) == ""
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
