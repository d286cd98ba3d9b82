package render

// View is the renderer-neutral description of one dialog frame. Dialogs
// build it from their current state; renderers only read it.
type View struct {
	ID          string    `json:"id"`
	EntityType  string    `json:"entityType"`
	EntityID    string    `json:"entityId,omitempty"`
	Title       string    `json:"title"`
	Mode        string    `json:"mode"`
	Tabs        []TabView `json:"tabs"`
	FormErrors  []string  `json:"formErrors,omitempty"`
	Submitting  bool      `json:"submitting"`
	Dirty       bool      `json:"dirty"`
	Valid       bool      `json:"valid"`
	CanEdit     bool      `json:"canEdit"`
	CanSubmit   bool      `json:"canSubmit"`
	CanDelete   bool      `json:"canDelete"`
	Breadcrumbs []Crumb   `json:"breadcrumbs,omitempty"`
}

// Fields returns every field of every tab in display order.
func (v View) Fields() []FieldView {
	var out []FieldView
	for _, tab := range v.Tabs {
		out = append(out, tab.Fields...)
	}
	return out
}

// Field looks up a field by name.
func (v View) Field(name string) (FieldView, bool) {
	for _, tab := range v.Tabs {
		for _, field := range tab.Fields {
			if field.Name == name {
				return field, true
			}
		}
	}
	return FieldView{}, false
}

// TabView is one tab and its visible fields. An ungrouped dialog has a single
// TabView with an empty ID.
type TabView struct {
	ID     string      `json:"id"`
	Label  string      `json:"label"`
	Icon   string      `json:"icon,omitempty"`
	Fields []FieldView `json:"fields"`
}

// FieldView carries everything a renderer needs for one control.
type FieldView struct {
	Name        string         `json:"name"`
	Label       string         `json:"label"`
	Kind        string         `json:"kind"`
	Value       any            `json:"value,omitempty"`
	Text        string         `json:"text"`
	Values      []string       `json:"values,omitempty"`
	Placeholder string         `json:"placeholder,omitempty"`
	HelpText    string         `json:"helpText,omitempty"`
	Required    bool           `json:"required"`
	Disabled    bool           `json:"disabled"`
	Errors      []string       `json:"errors,omitempty"`
	Options     []OptionView   `json:"options,omitempty"`
	Loading     bool           `json:"loading"`
	Multiple    bool           `json:"multiple"`
	Tokens      []Token        `json:"tokens,omitempty"`
	Suggestions []string       `json:"suggestions,omitempty"`
	Numeric     *NumericView   `json:"numeric,omitempty"`
	Rows        int            `json:"rows,omitempty"`
	MaxLength   int            `json:"maxLength,omitempty"`
	Component   string         `json:"component,omitempty"`
	Config      map[string]any `json:"config,omitempty"`
}

// NumericView holds the bounds of numeric inputs.
type NumericView struct {
	Integer bool     `json:"integer"`
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
	Step    float64  `json:"step,omitempty"`
	Unit    string   `json:"unit,omitempty"`
}

// OptionView is a selectable option.
type OptionView struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

// Token is one selected reference of a multi-choice field. Navigable tokens
// open the referenced record in a nested dialog.
type Token struct {
	ID         string `json:"id"`
	Label      string `json:"label"`
	EntityType string `json:"entityType,omitempty"`
	Navigable  bool   `json:"navigable"`
}

// Crumb is one level of the navigation chain, outermost first.
type Crumb struct {
	EntityType string `json:"entityType"`
	EntityID   string `json:"entityId,omitempty"`
	Title      string `json:"title"`
	Mode       string `json:"mode"`
}
