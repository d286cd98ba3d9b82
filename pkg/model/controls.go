package model

// Layouts used for date and date-time values on the wire.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02T15:04"
)

// Control is the tagged variant describing how a field value is edited. The
// set of implementations is closed; see the Kind constants.
type Control interface {
	Kind() Kind
	isControl()
}

// PlainText is a single line text input.
type PlainText struct {
	MaxLength int
}

// LongText is a multi-line text area.
type LongText struct {
	Rows int
}

// Numeric holds numbers. Empty input is stored as an absent value, never as
// zero.
type Numeric struct {
	Integer bool
	Min     *float64
	Max     *float64
	Step    float64
	Unit    string
}

// OptionSource tells a choice control where its options come from. Static
// options are used as-is; a non-empty Loader names an asynchronous loader
// resolved by the dialog.
type OptionSource struct {
	Static []Option
	Loader string
	Params map[string]string
}

// SingleChoice selects at most one option.
type SingleChoice struct {
	Source OptionSource
	// Target is the entity type selections refer to, if any.
	Target  string
	Equal   func(a, b any) bool
	LabelOf func(value any) string
}

// MultiChoice selects any number of options. With Tokens set the selections
// render as clickable tokens that open the referenced entity.
type MultiChoice struct {
	Source  OptionSource
	Target  string
	Tokens  bool
	Equal   func(a, b any) bool
	LabelOf func(value any) string
}

// FreeTags accepts arbitrary strings, offering Suggestions without
// restricting input to them.
type FreeTags struct {
	Suggestions []string
}

// Date holds a calendar date formatted with DateLayout.
type Date struct{}

// DateTime holds a local timestamp formatted with DateTimeLayout.
type DateTime struct{}

// StaticDisplay renders a read-only representation of the value.
type StaticDisplay struct {
	Format func(value any, record map[string]any) string
}

// Custom delegates rendering to a named component registered with the
// renderer.
type Custom struct {
	Component string
	Config    map[string]any
}

func (PlainText) Kind() Kind     { return KindPlainText }
func (LongText) Kind() Kind      { return KindLongText }
func (Numeric) Kind() Kind       { return KindNumeric }
func (SingleChoice) Kind() Kind  { return KindSingleChoice }
func (MultiChoice) Kind() Kind   { return KindMultiChoice }
func (FreeTags) Kind() Kind      { return KindFreeTags }
func (Date) Kind() Kind          { return KindDate }
func (DateTime) Kind() Kind      { return KindDateTime }
func (StaticDisplay) Kind() Kind { return KindStaticDisplay }
func (Custom) Kind() Kind        { return KindCustom }

func (PlainText) isControl()     {}
func (LongText) isControl()      {}
func (Numeric) isControl()       {}
func (SingleChoice) isControl()  {}
func (MultiChoice) isControl()   {}
func (FreeTags) isControl()      {}
func (Date) isControl()          {}
func (DateTime) isControl()      {}
func (StaticDisplay) isControl() {}
func (Custom) isControl()        {}

// Choice is the common view over SingleChoice and MultiChoice controls.
type Choice struct {
	Source   OptionSource
	Target   string
	Multiple bool
	Tokens   bool
	Equal    func(a, b any) bool
	LabelOf  func(value any) string
}

// ChoiceOf extracts the choice configuration of a control.
func ChoiceOf(c Control) (Choice, bool) {
	switch typed := c.(type) {
	case SingleChoice:
		return Choice{
			Source:  typed.Source,
			Target:  typed.Target,
			Equal:   typed.Equal,
			LabelOf: typed.LabelOf,
		}, true
	case MultiChoice:
		return Choice{
			Source:   typed.Source,
			Target:   typed.Target,
			Multiple: true,
			Tokens:   typed.Tokens,
			Equal:    typed.Equal,
			LabelOf:  typed.LabelOf,
		}, true
	default:
		return Choice{}, false
	}
}

// Same compares two selection values using the configured Equal function or
// reference identity.
func (c Choice) Same(a, b any) bool {
	if c.Equal != nil {
		return c.Equal(a, b)
	}
	return SameReference(a, b)
}

// Label resolves the display label of a selection. Lookup order: LabelOf, the
// label carried by the reference, a matching option, the raw identifier.
func (c Choice) Label(value any, options []Option) string {
	if c.LabelOf != nil {
		if label := c.LabelOf(value); label != "" {
			return label
		}
	}
	ref, ok := NormalizeReference(value)
	if !ok {
		return ""
	}
	if ref.Label != "" {
		return ref.Label
	}
	for _, option := range options {
		if option.ID == ref.ID {
			return option.Label
		}
	}
	return ref.ID
}

// Selected reports whether option is part of value.
func (c Choice) Selected(value any, option Option) bool {
	for _, ref := range References(value) {
		if c.Same(ref, option.ID) {
			return true
		}
	}
	return false
}
