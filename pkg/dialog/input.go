package dialog

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-dialogform/pkg/model"
	"github.com/goliatone/go-dialogform/pkg/state"
)

// ErrInvalidInput is returned when raw input cannot be read as the field's
// kind.
var ErrInvalidInput = errors.New("dialog: invalid input")

// Coerce converts raw form input into the value stored for field.
//
//	numeric          empty → nil, otherwise float64
//	single choice    empty → nil, otherwise the option id
//	multi choice     ids, deduplicated, nil when none
//	free tags        comma separated entries, trimmed and deduplicated
//	date, dateTime   canonical layouts, empty → nil
//
// Text kinds keep the input as typed.
func Coerce(field model.Field, raw []string) (any, error) {
	first := ""
	if len(raw) > 0 {
		first = raw[0]
	}
	trimmed := strings.TrimSpace(first)

	switch ctrl := field.Control.(type) {
	case nil, model.PlainText, model.LongText:
		return first, nil
	case model.Numeric:
		if trimmed == "" {
			return nil, nil
		}
		n, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be a number", ErrInvalidInput, field.DisplayLabel())
		}
		return n, nil
	case model.SingleChoice:
		if trimmed == "" {
			return nil, nil
		}
		return trimmed, nil
	case model.MultiChoice:
		return uniqueStrings(raw, false), nil
	case model.FreeTags:
		return uniqueStrings(raw, true), nil
	case model.Date:
		return parseTime(field, trimmed, model.DateLayout, model.DateLayout)
	case model.DateTime:
		return parseTime(field, trimmed, model.DateTimeLayout, model.DateTimeLayout, time.RFC3339, "2006-01-02 15:04")
	case model.StaticDisplay:
		return nil, fmt.Errorf("%w: %q", state.ErrFieldLocked, field.Name)
	case model.Custom:
		if len(raw) > 1 {
			return append([]string(nil), raw...), nil
		}
		return first, nil
	default:
		return nil, fmt.Errorf("%w: unsupported control %T", ErrInvalidInput, ctrl)
	}
}

func parseTime(field model.Field, s, out string, layouts ...string) (any, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range layouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.Format(out), nil
		}
	}
	return nil, fmt.Errorf("%w: %s is not a valid date", ErrInvalidInput, field.DisplayLabel())
}

func uniqueStrings(raw []string, split bool) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	for _, entry := range raw {
		if !split {
			add(entry)
			continue
		}
		for _, part := range strings.Split(entry, ",") {
			add(part)
		}
	}
	return out
}
