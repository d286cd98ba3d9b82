// Package visibility compiles the small boolean rules catalogs use to show a
// field only when other values of the record allow it.
//
// Supported forms:
//   - truthiness: `endOfLife`
//   - comparisons: `status == "retired"`, `cost != 0`, `owner == null`
//   - composition: `a == true && b != false`, `a || !b`, parentheses
//
// Identifiers are record keys. Dotted paths walk nested maps unless the record
// holds the dotted key itself. A comparison against a slice value matches when
// any element matches.
package visibility

import "strings"

// Predicate reports whether a field is visible for record.
type Predicate func(record map[string]any) bool

// Always is the predicate of an empty rule.
func Always(map[string]any) bool { return true }

// Compile parses rule once. An empty rule compiles to Always.
func Compile(rule string) (Predicate, error) {
	trimmed := strings.TrimSpace(rule)
	if trimmed == "" {
		return Always, nil
	}
	tokens, err := tokenize(trimmed)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return Always, nil
	}
	node, err := parse(tokens)
	if err != nil {
		return nil, err
	}
	return node.eval, nil
}

// MustCompile is Compile for rules known at build time.
func MustCompile(rule string) Predicate {
	p, err := Compile(rule)
	if err != nil {
		panic(err)
	}
	return p
}
