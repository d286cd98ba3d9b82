package adapter

import (
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/goliatone/go-dialogform/pkg/model"
	"github.com/goliatone/go-dialogform/pkg/uischema"
	"github.com/goliatone/go-dialogform/pkg/validation"
	"github.com/goliatone/go-dialogform/pkg/visibility"
	"github.com/goliatone/go-dialogform/pkg/widgets"
)

// CatalogOption configures catalog conversion.
type CatalogOption func(*catalogConfig)

type catalogConfig struct {
	kinds *widgets.Registry
}

// WithKinds overrides the registry used to resolve omitted kinds.
func WithKinds(reg *widgets.Registry) CatalogOption {
	return func(cfg *catalogConfig) {
		if reg != nil {
			cfg.kinds = reg
		}
	}
}

func newCatalogConfig(opts []CatalogOption) *catalogConfig {
	cfg := &catalogConfig{kinds: widgets.NewRegistry()}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg
}

// LoadCatalog parses every catalog document in fsys and registers one
// adapter per entity.
func LoadCatalog(fsys fs.FS, opts ...CatalogOption) (*Registry, error) {
	store, err := uischema.LoadFS(fsys)
	if err != nil {
		return nil, err
	}
	return FromStore(store, opts...)
}

// FromStore registers one adapter per entity of a parsed catalog.
func FromStore(store *uischema.Store, opts ...CatalogOption) (*Registry, error) {
	reg := NewRegistry()
	for _, entityType := range store.Types() {
		entity, _ := store.Entity(entityType)
		def, err := FromEntity(entity, opts...)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(def); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// FromEntity converts a catalog entity into a Definition. A CUE schema, when
// present, becomes the record validator.
func FromEntity(entity uischema.Entity, opts ...CatalogOption) (*Definition, error) {
	cfg := newCatalogConfig(opts)

	def := &Definition{
		Type:          entity.Type,
		Label:         entity.Title,
		DefaultValues: entity.Defaults,
		EntityTypes:   entity.EntityTypes,
		AllowDelete:   entity.Deletable,
	}
	for _, tab := range entity.Tabs {
		def.TabList = append(def.TabList, model.Tab{ID: tab.ID, Label: tab.Label, Icon: tab.Icon})
	}
	for _, fieldCfg := range entity.Fields {
		field, err := buildField(fieldCfg, cfg.kinds)
		if err != nil {
			return nil, fmt.Errorf("adapter: %s (%s): %w", entity.Type, entity.Source, err)
		}
		def.FieldList = append(def.FieldList, field)
	}

	if strings.TrimSpace(entity.Schema.CUE) != "" {
		v, err := validation.NewCUEValidator(entity.Schema.CUE, validation.WithCUEPath(entity.Schema.Path))
		if err != nil {
			return nil, fmt.Errorf("adapter: %s: %w", entity.Type, err)
		}
		def.Validator = v
	}

	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}

func buildField(cfg uischema.FieldConfig, kinds *widgets.Registry) (model.Field, error) {
	field := model.Field{
		Name:        cfg.Name,
		Label:       cfg.Label,
		TabID:       cfg.Tab,
		Required:    cfg.Required,
		Disabled:    cfg.Disabled,
		ReadOnly:    cfg.ReadOnly,
		Placeholder: cfg.Placeholder,
		HelpText:    cfg.HelpText,
		Rules:       rulesFromMap(cfg.Rules),
	}
	if cfg.Kind != "" && !model.Kind(cfg.Kind).Valid() {
		return model.Field{}, fmt.Errorf("field %q: unknown kind %q", cfg.Name, cfg.Kind)
	}
	if strings.TrimSpace(cfg.VisibleWhen) != "" {
		visible, err := visibility.Compile(cfg.VisibleWhen)
		if err != nil {
			return model.Field{}, fmt.Errorf("field %q: visibleWhen: %w", cfg.Name, err)
		}
		field.Visible = visible
	}

	kind, _ := kinds.Resolve(widgets.Hint{
		Name:      cfg.Name,
		Type:      cfg.Type,
		Format:    cfg.Format,
		Enum:      len(cfg.Options) > 0 || cfg.Loader != "",
		ItemsEnum: cfg.Type == "array" && (len(cfg.Options) > 0 || cfg.Loader != ""),
		MaxLength: cfg.MaxLength,
		Entity:    cfg.Target,
		Kind:      cfg.Kind,
	})

	source := model.OptionSource{Static: cfg.Options, Loader: cfg.Loader}
	switch kind {
	case model.KindLongText:
		field.Control = model.LongText{Rows: cfg.Rows}
	case model.KindNumeric:
		field.Control = model.Numeric{
			Integer: cfg.Integer || cfg.Type == "integer",
			Min:     cfg.Min,
			Max:     cfg.Max,
			Step:    cfg.Step,
			Unit:    cfg.Unit,
		}
	case model.KindSingleChoice:
		field.Control = model.SingleChoice{Source: source, Target: cfg.Target}
	case model.KindMultiChoice:
		field.Control = model.MultiChoice{Source: source, Target: cfg.Target, Tokens: cfg.Tokens}
	case model.KindFreeTags:
		field.Control = model.FreeTags{Suggestions: cfg.Suggestions}
	case model.KindDate:
		field.Control = model.Date{}
	case model.KindDateTime:
		field.Control = model.DateTime{}
	case model.KindStaticDisplay:
		field.Control = model.StaticDisplay{Format: StaticFormatter(cfg.Display)}
	case model.KindCustom:
		if strings.TrimSpace(cfg.Component) == "" {
			return model.Field{}, fmt.Errorf("field %q: custom kind requires a component", cfg.Name)
		}
		field.Control = model.Custom{Component: cfg.Component, Config: cfg.Config}
	default:
		field.Control = model.PlainText{MaxLength: cfg.MaxLength}
		if cfg.MaxLength > 0 && cfg.Rules[model.ValidationRuleMaxLength] == "" {
			field.Rules = append(field.Rules, model.ValidationRule{
				Kind:   model.ValidationRuleMaxLength,
				Params: map[string]string{"value": fmt.Sprint(cfg.MaxLength)},
			})
		}
	}
	return field, nil
}

func rulesFromMap(raw map[string]string) []model.ValidationRule {
	if len(raw) == 0 {
		return nil
	}
	kinds := make([]string, 0, len(raw))
	for kind := range raw {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	out := make([]model.ValidationRule, 0, len(kinds))
	for _, kind := range kinds {
		param := "value"
		if kind == model.ValidationRulePattern {
			param = "pattern"
		}
		out = append(out, model.ValidationRule{Kind: kind, Params: map[string]string{param: raw[kind]}})
	}
	return out
}

// StaticFormatter returns the display function for a static field.
// "date" renders RFC 3339 or date-only strings as "2 Jan 2006", "list" joins
// reference labels or ids, anything else prints the value.
func StaticFormatter(display string) func(value any, record map[string]any) string {
	switch strings.ToLower(strings.TrimSpace(display)) {
	case "date":
		return func(value any, _ map[string]any) string {
			s, _ := value.(string)
			for _, layout := range []string{time.RFC3339, model.DateTimeLayout, model.DateLayout} {
				if ts, err := time.Parse(layout, s); err == nil {
					return ts.Format("2 Jan 2006")
				}
			}
			return s
		}
	case "list":
		return func(value any, _ map[string]any) string {
			refs := model.References(value)
			parts := make([]string, 0, len(refs))
			for _, ref := range refs {
				if ref.Label != "" {
					parts = append(parts, ref.Label)
				} else {
					parts = append(parts, ref.ID)
				}
			}
			return strings.Join(parts, ", ")
		}
	default:
		return func(value any, _ map[string]any) string {
			if value == nil {
				return ""
			}
			return fmt.Sprint(value)
		}
	}
}
