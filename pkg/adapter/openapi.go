package adapter

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-dialogform/pkg/model"
	"github.com/goliatone/go-dialogform/pkg/visibility"
	"github.com/goliatone/go-dialogform/pkg/widgets"
)

// OpenAPI extension keys understood on component schemas and properties.
const (
	ExtEntity      = "x-dialog-entity"
	ExtTabs        = "x-dialog-tabs"
	ExtTab         = "x-dialog-tab"
	ExtKind        = "x-dialog-kind"
	ExtOrder       = "x-dialog-order"
	ExtLoader      = "x-dialog-loader"
	ExtTokens      = "x-dialog-tokens"
	ExtVisibleWhen = "x-dialog-visible-when"
)

// LoadOpenAPI parses and validates an OpenAPI 3 document and registers an
// adapter for every component schema carrying x-dialog-entity.
func LoadOpenAPI(ctx context.Context, data []byte, opts ...CatalogOption) (*Registry, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("adapter: load openapi: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("adapter: invalid openapi document: %w", err)
	}
	if doc.Components == nil {
		return NewRegistry(), nil
	}

	names := make([]string, 0, len(doc.Components.Schemas))
	for name, ref := range doc.Components.Schemas {
		if ref != nil && ref.Value != nil && extString(ref.Value.Extensions, ExtEntity) != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	reg := NewRegistry()
	for _, name := range names {
		def, err := FromOpenAPI(doc, name, opts...)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(def); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// FromOpenAPI derives a Definition from the component schema named
// schemaName. Property order follows x-dialog-order, then name.
func FromOpenAPI(doc *openapi3.T, schemaName string, opts ...CatalogOption) (*Definition, error) {
	if doc == nil || doc.Components == nil {
		return nil, errors.New("adapter: openapi document has no components")
	}
	ref, ok := doc.Components.Schemas[schemaName]
	if !ok || ref == nil || ref.Value == nil {
		return nil, fmt.Errorf("adapter: schema %q not found", schemaName)
	}
	cfg := newCatalogConfig(opts)
	schema := ref.Value

	entityType := extString(schema.Extensions, ExtEntity)
	if entityType == "" {
		entityType = lowerFirst(schemaName)
	}
	def := &Definition{
		Type:          entityType,
		Label:         schema.Title,
		TabList:       extTabs(schema.Extensions),
		DefaultValues: make(map[string]any),
		EntityTypes:   make(map[string]string),
	}

	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}

	for _, name := range orderedProperties(schema.Properties) {
		prop := schema.Properties[name]
		if prop == nil || prop.Value == nil {
			continue
		}
		field, target := openapiField(doc, name, prop.Value, cfg.kinds)
		field.Required = required[name]
		if rule := extString(prop.Value.Extensions, ExtVisibleWhen); rule != "" {
			visible, err := visibility.Compile(rule)
			if err != nil {
				return nil, fmt.Errorf("adapter: schema %q field %q: %w", schemaName, name, err)
			}
			field.Visible = visible
		}
		def.FieldList = append(def.FieldList, field)
		if target != "" {
			def.EntityTypes[name] = target
		}
		if prop.Value.Default != nil {
			def.DefaultValues[name] = prop.Value.Default
		}
	}

	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}

func openapiField(doc *openapi3.T, name string, s *openapi3.Schema, kinds *widgets.Registry) (model.Field, string) {
	field := model.Field{
		Name:     name,
		Label:    s.Title,
		TabID:    extString(s.Extensions, ExtTab),
		HelpText: s.Description,
		ReadOnly: s.ReadOnly,
		Rules:    schemaRules(s),
	}

	hint := widgets.Hint{
		Name:     name,
		Type:     schemaType(s),
		Format:   s.Format,
		Enum:     len(s.Enum) > 0,
		Entity:   extString(s.Extensions, ExtEntity),
		ReadOnly: s.ReadOnly,
		Kind:     extString(s.Extensions, ExtKind),
	}
	if s.MaxLength != nil {
		hint.MaxLength = int(*s.MaxLength)
	}

	var itemOptions []model.Option
	if s.Items != nil && s.Items.Value != nil {
		items := s.Items.Value
		hint.ItemsType = schemaType(items)
		hint.ItemsEnum = len(items.Enum) > 0
		itemOptions = enumOptions(items.Enum)
		if hint.Entity == "" {
			hint.Entity = referencedEntity(doc, s.Items)
		}
	}

	kind, _ := kinds.Resolve(hint)
	loader := extString(s.Extensions, ExtLoader)
	if loader == "" && hint.Entity != "" {
		loader = hint.Entity
	}

	switch kind {
	case model.KindStaticDisplay:
		field.Control = model.StaticDisplay{Format: StaticFormatter(s.Format)}
	case model.KindMultiChoice:
		source := model.OptionSource{Static: itemOptions}
		if len(itemOptions) == 0 {
			source.Loader = loader
		}
		field.Control = model.MultiChoice{Source: source, Target: hint.Entity, Tokens: hint.Entity != "" || extBool(s.Extensions, ExtTokens)}
	case model.KindFreeTags:
		field.Control = model.FreeTags{}
	case model.KindSingleChoice:
		source := model.OptionSource{Static: enumOptions(s.Enum)}
		if hint.Type == "boolean" {
			source.Static = []model.Option{{ID: "true", Label: "Yes"}, {ID: "false", Label: "No"}}
		}
		if len(source.Static) == 0 {
			source.Loader = loader
		}
		field.Control = model.SingleChoice{Source: source, Target: hint.Entity}
	case model.KindDate:
		field.Control = model.Date{}
	case model.KindDateTime:
		field.Control = model.DateTime{}
	case model.KindNumeric:
		field.Control = model.Numeric{Integer: hint.Type == "integer", Min: s.Min, Max: s.Max}
	case model.KindLongText:
		field.Control = model.LongText{}
	default:
		field.Control = model.PlainText{MaxLength: hint.MaxLength}
	}
	return field, hint.Entity
}

func schemaRules(s *openapi3.Schema) []model.ValidationRule {
	var out []model.ValidationRule
	add := func(kind, param, value string) {
		out = append(out, model.ValidationRule{Kind: kind, Params: map[string]string{param: value}})
	}
	if s.MinLength > 0 {
		add(model.ValidationRuleMinLength, "value", fmt.Sprint(s.MinLength))
	}
	if s.MaxLength != nil {
		add(model.ValidationRuleMaxLength, "value", fmt.Sprint(*s.MaxLength))
	}
	if s.Pattern != "" {
		add(model.ValidationRulePattern, "pattern", s.Pattern)
	}
	if s.MinItems > 0 {
		add(model.ValidationRuleMinItems, "value", fmt.Sprint(s.MinItems))
	}
	if s.MaxItems != nil {
		add(model.ValidationRuleMaxItems, "value", fmt.Sprint(*s.MaxItems))
	}
	return out
}

func schemaType(s *openapi3.Schema) string {
	if s == nil || s.Type == nil {
		return ""
	}
	for _, typ := range s.Type.Slice() {
		if typ != "null" {
			return typ
		}
	}
	return ""
}

func enumOptions(values []any) []model.Option {
	out := make([]model.Option, 0, len(values))
	for _, v := range values {
		id := fmt.Sprint(v)
		out = append(out, model.Option{ID: id, Label: model.DefaultLabeler(id)})
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// referencedEntity resolves the entity type behind a $ref to another
// component schema.
func referencedEntity(doc *openapi3.T, ref *openapi3.SchemaRef) string {
	if ref == nil || ref.Ref == "" {
		return ""
	}
	name := ref.Ref[strings.LastIndex(ref.Ref, "/")+1:]
	if target, ok := doc.Components.Schemas[name]; ok && target != nil && target.Value != nil {
		if entity := extString(target.Value.Extensions, ExtEntity); entity != "" {
			return entity
		}
	}
	return lowerFirst(name)
}

func orderedProperties(props openapi3.Schemas) []string {
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	order := func(name string) float64 {
		if ref := props[name]; ref != nil && ref.Value != nil {
			if v, ok := ref.Value.Extensions[ExtOrder].(float64); ok {
				return v
			}
		}
		return 1 << 30
	}
	sort.SliceStable(names, func(i, j int) bool {
		oi, oj := order(names[i]), order(names[j])
		if oi != oj {
			return oi < oj
		}
		return names[i] < names[j]
	})
	return names
}

func extString(ext map[string]any, key string) string {
	s, _ := ext[key].(string)
	return strings.TrimSpace(s)
}

func extBool(ext map[string]any, key string) bool {
	b, _ := ext[key].(bool)
	return b
}

func extTabs(ext map[string]any) []model.Tab {
	raw, ok := ext[ExtTabs].([]any)
	if !ok {
		return nil
	}
	var out []model.Tab
	for _, item := range raw {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id, _ := entry["id"].(string)
		label, _ := entry["label"].(string)
		if strings.TrimSpace(id) == "" {
			continue
		}
		out = append(out, model.Tab{ID: id, Label: label})
	}
	return out
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
