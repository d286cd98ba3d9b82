package validation

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/goliatone/go-dialogform/pkg/model"
)

// compileRules turns declarative rules, and the bounds carried by numeric
// controls, into validators. Rules only run against present values.
func compileRules(field model.Field) ([]model.Validator, error) {
	var out []model.Validator

	if numeric, ok := field.Control.(model.Numeric); ok {
		out = append(out, numberCheck(numeric.Integer))
		if numeric.Min != nil {
			out = append(out, minCheck(*numeric.Min, ""))
		}
		if numeric.Max != nil {
			out = append(out, maxCheck(*numeric.Max, ""))
		}
	}

	for _, rule := range field.Rules {
		message := rule.Params["message"]
		switch rule.Kind {
		case model.ValidationRuleMin, model.ValidationRuleMax:
			bound, err := strconv.ParseFloat(strings.TrimSpace(rule.Params["value"]), 64)
			if err != nil {
				return nil, fmt.Errorf("rule %s: invalid value %q", rule.Kind, rule.Params["value"])
			}
			if rule.Kind == model.ValidationRuleMin {
				out = append(out, minCheck(bound, message))
			} else {
				out = append(out, maxCheck(bound, message))
			}
		case model.ValidationRuleMinLength, model.ValidationRuleMaxLength,
			model.ValidationRuleMinItems, model.ValidationRuleMaxItems:
			limit, err := strconv.Atoi(strings.TrimSpace(rule.Params["value"]))
			if err != nil || limit < 0 {
				return nil, fmt.Errorf("rule %s: invalid value %q", rule.Kind, rule.Params["value"])
			}
			out = append(out, lengthCheck(rule.Kind, limit, message))
		case model.ValidationRulePattern:
			re, err := regexp.Compile(rule.Params["pattern"])
			if err != nil {
				return nil, fmt.Errorf("rule pattern: %w", err)
			}
			out = append(out, patternCheck(re, message))
		default:
			return nil, fmt.Errorf("unknown rule %q", rule.Kind)
		}
	}
	return out, nil
}

func always(check func(value any) string) model.Validator {
	return model.Validator{
		Timing: model.TimingAlways,
		Check: func(value any, _ map[string]any) []string {
			if msg := check(value); msg != "" {
				return []string{msg}
			}
			return nil
		},
	}
}

func pick(message, fallback string) string {
	if strings.TrimSpace(message) != "" {
		return message
	}
	return fallback
}

func numberCheck(integer bool) model.Validator {
	return always(func(value any) string {
		n, ok := toFloat(value)
		if !ok {
			return "must be a number"
		}
		if integer && n != float64(int64(n)) {
			return "must be a whole number"
		}
		return ""
	})
}

func minCheck(bound float64, message string) model.Validator {
	return always(func(value any) string {
		if n, ok := toFloat(value); ok && n < bound {
			return pick(message, fmt.Sprintf("must be at least %s", formatFloat(bound)))
		}
		return ""
	})
}

func maxCheck(bound float64, message string) model.Validator {
	return always(func(value any) string {
		if n, ok := toFloat(value); ok && n > bound {
			return pick(message, fmt.Sprintf("must be at most %s", formatFloat(bound)))
		}
		return ""
	})
}

func lengthCheck(kind string, limit int, message string) model.Validator {
	return always(func(value any) string {
		switch kind {
		case model.ValidationRuleMinLength:
			if s, ok := value.(string); ok && utf8.RuneCountInString(s) < limit {
				return pick(message, fmt.Sprintf("must be at least %d characters", limit))
			}
		case model.ValidationRuleMaxLength:
			if s, ok := value.(string); ok && utf8.RuneCountInString(s) > limit {
				return pick(message, fmt.Sprintf("must be at most %d characters", limit))
			}
		case model.ValidationRuleMinItems:
			if n, ok := itemCount(value); ok && n < limit {
				return pick(message, fmt.Sprintf("select at least %d", limit))
			}
		case model.ValidationRuleMaxItems:
			if n, ok := itemCount(value); ok && n > limit {
				return pick(message, fmt.Sprintf("select at most %d", limit))
			}
		}
		return ""
	})
}

func patternCheck(re *regexp.Regexp, message string) model.Validator {
	return always(func(value any) string {
		if s, ok := value.(string); ok && !re.MatchString(s) {
			return pick(message, "has an invalid format")
		}
		return ""
	})
}

func toFloat(value any) (float64, bool) {
	switch n := value.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func itemCount(value any) (int, bool) {
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		return rv.Len(), true
	}
	return 0, false
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
