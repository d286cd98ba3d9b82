package model

import "strings"

// Kind identifies the Control variant bound to a field.
type Kind string

const (
	KindPlainText     Kind = "plainText"
	KindLongText      Kind = "longText"
	KindNumeric       Kind = "numeric"
	KindSingleChoice  Kind = "singleChoice"
	KindMultiChoice   Kind = "multiChoice"
	KindFreeTags      Kind = "freeTags"
	KindDate          Kind = "date"
	KindDateTime      Kind = "dateTime"
	KindStaticDisplay Kind = "staticDisplay"
	KindCustom        Kind = "custom"
)

// Kinds lists every supported kind in declaration order.
func Kinds() []Kind {
	return []Kind{
		KindPlainText, KindLongText, KindNumeric, KindSingleChoice, KindMultiChoice,
		KindFreeTags, KindDate, KindDateTime, KindStaticDisplay, KindCustom,
	}
}

// Valid reports whether k names a supported kind.
func (k Kind) Valid() bool {
	for _, known := range Kinds() {
		if k == known {
			return true
		}
	}
	return false
}

// Timing selects when a field validator runs.
type Timing uint8

const (
	TimingChange Timing = 1 << iota
	TimingSubmit

	TimingAlways = TimingChange | TimingSubmit
)

// Has reports whether t includes the other timing bit.
func (t Timing) Has(other Timing) bool {
	return t&other != 0
}

// Validator checks a single field value. Check receives the whole record so
// validators can compare against sibling values, and returns zero or more
// messages.
type Validator struct {
	Timing Timing
	Check  func(value any, record map[string]any) []string
}

// Canonical rule identifiers understood by the validation package.
const (
	ValidationRuleMin       = "min"
	ValidationRuleMax       = "max"
	ValidationRuleMinLength = "minLength"
	ValidationRuleMaxLength = "maxLength"
	ValidationRulePattern   = "pattern"
	ValidationRuleMinItems  = "minItems"
	ValidationRuleMaxItems  = "maxItems"
)

// ValidationRule is a declarative constraint. Numeric thresholds live in
// Params["value"] and pattern rules keep their expression in Params["pattern"].
// An optional Params["message"] overrides the default message.
type ValidationRule struct {
	Kind   string            `json:"kind" yaml:"kind"`
	Params map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
}

// Tab is an ordered, purely presentational field grouping.
type Tab struct {
	ID    string `json:"id" yaml:"id"`
	Label string `json:"label" yaml:"label"`
	// Icon is sanitised SVG markup shown next to the label.
	Icon string `json:"icon,omitempty" yaml:"icon,omitempty"`
}

// Option is a selectable entry of a choice control.
type Option struct {
	ID    string `json:"id" yaml:"id"`
	Label string `json:"label" yaml:"label"`
}

// Field describes a single record attribute and how it is edited. Names are
// unique within one record.
type Field struct {
	Name        string
	Label       string
	TabID       string
	Required    bool
	Disabled    bool
	ReadOnly    bool
	Placeholder string
	HelpText    string
	Rules       []ValidationRule
	Validators  []Validator
	// OnChange runs after the field value changed and returns additional
	// updates to apply to sibling fields in the same event.
	OnChange func(value any, record map[string]any) map[string]any
	// Visible hides the field from rendering and validation when it returns
	// false.
	Visible func(record map[string]any) bool
	Control Control
}

// Kind returns the kind of the bound control. Fields without a control are
// treated as plain text.
func (f Field) Kind() Kind {
	if f.Control == nil {
		return KindPlainText
	}
	return f.Control.Kind()
}

// DisplayLabel returns the configured label or one derived from the name.
func (f Field) DisplayLabel() string {
	if label := strings.TrimSpace(f.Label); label != "" {
		return label
	}
	return DefaultLabeler(f.Name)
}

// IsVisible evaluates the Visible callback against record.
func (f Field) IsVisible(record map[string]any) bool {
	if f.Visible == nil {
		return true
	}
	return f.Visible(record)
}

// Editable reports whether the field accepts user input at all.
func (f Field) Editable() bool {
	if f.Disabled || f.ReadOnly {
		return false
	}
	switch f.Control.(type) {
	case StaticDisplay:
		return false
	}
	return true
}

// Lookup returns the field named name.
func Lookup(fields []Field, name string) (Field, bool) {
	for _, field := range fields {
		if field.Name == name {
			return field, true
		}
	}
	return Field{}, false
}

// Names returns the field names in declaration order.
func Names(fields []Field) []string {
	out := make([]string, 0, len(fields))
	for _, field := range fields {
		out = append(out, field.Name)
	}
	return out
}
