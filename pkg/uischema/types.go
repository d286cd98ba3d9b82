package uischema

import (
	"sort"

	"github.com/goliatone/go-dialogform/pkg/model"
)

// Store keeps the parsed entities. It is safe for concurrent readers when
// treated as immutable after construction.
type Store struct {
	entities map[string]Entity
}

// Entity is the declarative description of one entity type.
type Entity struct {
	Type        string
	Source      string
	Title       string
	Tabs        []TabConfig
	Fields      []FieldConfig
	Defaults    map[string]any
	EntityTypes map[string]string
	Schema      SchemaConfig
	Deletable   bool
}

// TabConfig declares a tab. Icon holds optional inline SVG markup, sanitised
// on load.
type TabConfig struct {
	ID    string `json:"id" yaml:"id"`
	Label string `json:"label" yaml:"label"`
	Icon  string `json:"icon,omitempty" yaml:"icon,omitempty"`
}

// SchemaConfig embeds a CUE schema. Path selects the value inside the source
// that records are unified with.
type SchemaConfig struct {
	CUE  string `json:"cue,omitempty" yaml:"cue,omitempty"`
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// FieldConfig declares one field. Kind may be omitted, in which case Type,
// Format and the option settings are used as hints to resolve it.
type FieldConfig struct {
	Name        string            `json:"name" yaml:"name"`
	Label       string            `json:"label,omitempty" yaml:"label,omitempty"`
	Kind        string            `json:"kind,omitempty" yaml:"kind,omitempty"`
	Type        string            `json:"type,omitempty" yaml:"type,omitempty"`
	Format      string            `json:"format,omitempty" yaml:"format,omitempty"`
	Tab         string            `json:"tab,omitempty" yaml:"tab,omitempty"`
	Required    bool              `json:"required,omitempty" yaml:"required,omitempty"`
	Disabled    bool              `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	ReadOnly    bool              `json:"readOnly,omitempty" yaml:"readOnly,omitempty"`
	Placeholder string            `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	HelpText    string            `json:"helpText,omitempty" yaml:"helpText,omitempty"`
	Rules       map[string]string `json:"rules,omitempty" yaml:"rules,omitempty"`

	Options []model.Option `json:"options,omitempty" yaml:"options,omitempty"`
	Loader  string         `json:"loader,omitempty" yaml:"loader,omitempty"`
	Target  string         `json:"target,omitempty" yaml:"target,omitempty"`
	Tokens  bool           `json:"tokens,omitempty" yaml:"tokens,omitempty"`

	Integer bool     `json:"integer,omitempty" yaml:"integer,omitempty"`
	Min     *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max     *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Step    float64  `json:"step,omitempty" yaml:"step,omitempty"`
	Unit    string   `json:"unit,omitempty" yaml:"unit,omitempty"`

	Rows        int            `json:"rows,omitempty" yaml:"rows,omitempty"`
	MaxLength   int            `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	Suggestions []string       `json:"suggestions,omitempty" yaml:"suggestions,omitempty"`
	Component   string         `json:"component,omitempty" yaml:"component,omitempty"`
	Config      map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
	// Display selects the static formatter: "text", "date", "list".
	Display string `json:"display,omitempty" yaml:"display,omitempty"`
	// VisibleWhen is a visibility rule over the record, e.g.
	// `status == "retired"`.
	VisibleWhen string `json:"visibleWhen,omitempty" yaml:"visibleWhen,omitempty"`
}

// Entity returns the configuration of entityType.
func (s *Store) Entity(entityType string) (Entity, bool) {
	if s == nil {
		return Entity{}, false
	}
	e, ok := s.entities[entityType]
	return e, ok
}

// Types returns the entity types, sorted.
func (s *Store) Types() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.entities))
	for name := range s.entities {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Empty reports whether the store holds any entity.
func (s *Store) Empty() bool {
	return s == nil || len(s.entities) == 0
}
