package html

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/goliatone/go-dialogform/pkg/model"
	"github.com/goliatone/go-dialogform/pkg/render"
	rendertemplate "github.com/goliatone/go-dialogform/pkg/render/template"
	"github.com/goliatone/go-dialogform/pkg/renderers/html/components"
	"github.com/goliatone/go-dialogform/pkg/uischema"
	theme "github.com/goliatone/go-theme"
)

const (
	dialogTemplate = "templates/dialog.tmpl"
	fieldTemplate  = "templates/field.tmpl"

	// ThemeStylesheetAsset is the asset key resolved through the theme's
	// AssetURL for the dialog stylesheet.
	ThemeStylesheetAsset = "dialog.stylesheet"
)

type Option func(*config)

type config struct {
	templateFS       fs.FS
	templateRenderer rendertemplate.TemplateRenderer
	components       *components.Registry
	sanitizer        *Sanitizer
}

// WithTemplatesFS supplies an alternate template bundle.
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templateFS = files
	}
}

// WithTemplatesDir loads templates from a directory on disk.
func WithTemplatesDir(path string) Option {
	return func(cfg *config) {
		if path == "" {
			return
		}
		cfg.templateFS = os.DirFS(path)
	}
}

// WithTemplateRenderer injects a custom template renderer.
func WithTemplateRenderer(renderer rendertemplate.TemplateRenderer) Option {
	return func(cfg *config) {
		if renderer != nil {
			cfg.templateRenderer = renderer
		}
	}
}

// WithComponentRegistry replaces the default component registry.
func WithComponentRegistry(registry *components.Registry) Option {
	return func(cfg *config) {
		if registry != nil {
			cfg.components = registry
		}
	}
}

// WithComponent registers or overrides a single component on top of the
// defaults. Custom controls are looked up by their component name.
func WithComponent(name string, descriptor components.Descriptor) Option {
	return func(cfg *config) {
		if cfg.components == nil {
			cfg.components = components.NewDefaultRegistry()
		}
		cfg.components.MustRegister(name, descriptor)
	}
}

// Renderer emits an HTML dialog that works without JavaScript: every action
// is a form post under RenderOptions.ActionPrefix.
type Renderer struct {
	templates  rendertemplate.TemplateRenderer
	components *components.Registry
	sanitizer  *Sanitizer
	inlineCSS  string
}

var _ render.Renderer = (*Renderer)(nil)

// New constructs the HTML renderer.
func New(options ...Option) (*Renderer, error) {
	cfg := config{templateFS: TemplatesFS()}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}

	templates := cfg.templateRenderer
	if templates == nil {
		if cfg.templateFS == nil {
			return nil, fmt.Errorf("html renderer: templates fs is nil")
		}
		engine, err := rendertemplate.NewEngine(rendertemplate.WithFS(cfg.templateFS))
		if err != nil {
			return nil, fmt.Errorf("html renderer: template engine: %w", err)
		}
		templates = engine
	}
	if cfg.components == nil {
		cfg.components = components.NewDefaultRegistry()
	}
	if cfg.sanitizer == nil {
		cfg.sanitizer = NewSanitizer()
	}

	return &Renderer{
		templates:  templates,
		components: cfg.components,
		sanitizer:  cfg.sanitizer,
		inlineCSS:  defaultStylesheet(),
	}, nil
}

func (r *Renderer) Name() string {
	return "html"
}

func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

// Render writes the dialog. Field controls are rendered first and injected
// into the shell as trusted markup.
func (r *Renderer) Render(ctx context.Context, view render.View, options render.RenderOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	partials := partialResolver(options.Theme)
	data := components.ComponentData{
		Template:     r.templates,
		Partial:      partials,
		Sanitize:     r.sanitizer.Static,
		ActionPrefix: strings.TrimSuffix(options.ActionPrefix, "/"),
	}

	var used []string
	tabs := make([]map[string]any, 0, len(view.Tabs))
	for _, tab := range view.Tabs {
		fields := make([]string, 0, len(tab.Fields))
		for _, field := range tab.Fields {
			name, descriptor := r.descriptorFor(field)
			used = append(used, name)
			markup, err := r.renderField(field, name, descriptor, data)
			if err != nil {
				return nil, err
			}
			fields = append(fields, markup)
		}
		tabs = append(tabs, map[string]any{
			"id":     tab.ID,
			"label":  tab.Label,
			"icon":   uischema.SanitizeIcon(tab.Icon),
			"fields": fields,
		})
	}

	stylesheets := r.components.Stylesheets(used)
	themeData := themeContext(options.Theme)
	inlineCSS := ""
	if href := themeAsset(options.Theme, ThemeStylesheetAsset); href != "" {
		stylesheets = append([]string{href}, stylesheets...)
	} else {
		inlineCSS = r.inlineCSS
	}

	payload := map[string]any{
		"view":        view,
		"tabs":        tabs,
		"action":      data.ActionPrefix,
		"standalone":  options.Standalone,
		"stylesheets": stylesheets,
		"inline_css":  inlineCSS,
		"theme":       themeData,
	}
	out, err := r.templates.RenderTemplate(partials("dialog.shell", dialogTemplate), payload)
	if err != nil {
		return nil, fmt.Errorf("html renderer: render dialog: %w", err)
	}
	return []byte(out), nil
}

// descriptorFor picks the component for a field. Custom controls use their
// component name and degrade to a read-only display when it is unknown.
func (r *Renderer) descriptorFor(field render.FieldView) (string, components.Descriptor) {
	if field.Kind == string(model.KindCustom) && field.Component != "" {
		if descriptor, ok := r.components.Descriptor(field.Component); ok {
			return field.Component, descriptor
		}
	}
	if descriptor, ok := r.components.Descriptor(field.Kind); ok {
		return field.Kind, descriptor
	}
	descriptor, _ := r.components.Descriptor(string(model.KindStaticDisplay))
	return string(model.KindStaticDisplay), descriptor
}

func (r *Renderer) renderField(field render.FieldView, component string, descriptor components.Descriptor, data components.ComponentData) (string, error) {
	if descriptor.Renderer == nil {
		return "", fmt.Errorf("html renderer: no component for field %q (%s)", field.Name, field.Kind)
	}
	var control bytes.Buffer
	if err := descriptor.Renderer(&control, field, data); err != nil {
		return "", fmt.Errorf("html renderer: field %q: %w", field.Name, err)
	}

	payload := map[string]any{
		"field":    field,
		"control":  control.String(),
		"help":     r.sanitizer.Help(field.HelpText),
		"editable": !field.Disabled && component != string(model.KindStaticDisplay),
	}
	out, err := data.Template.RenderTemplate(data.Partial("dialog.field", fieldTemplate), payload)
	if err != nil {
		return "", fmt.Errorf("html renderer: field %q chrome: %w", field.Name, err)
	}
	return out, nil
}

func partialResolver(cfg *theme.RendererConfig) func(key, fallback string) string {
	return func(key, fallback string) string {
		if cfg != nil && cfg.Partials != nil {
			if candidate := strings.TrimSpace(cfg.Partials[key]); candidate != "" {
				return candidate
			}
		}
		return fallback
	}
}

func themeContext(cfg *theme.RendererConfig) map[string]any {
	if cfg == nil {
		return map[string]any{}
	}
	return map[string]any{
		"name":    cfg.Theme,
		"variant": cfg.Variant,
		"style":   cssVarsStyle(cfg.CSSVars),
	}
}

func themeAsset(cfg *theme.RendererConfig, key string) string {
	if cfg == nil || cfg.AssetURL == nil {
		return ""
	}
	return strings.TrimSpace(cfg.AssetURL(key))
}

// cssVarsStyle renders custom properties as an inline style declaration in a
// stable order.
func cssVarsStyle(vars map[string]string) string {
	if len(vars) == 0 {
		return ""
	}
	keys := make([]string, 0, len(vars))
	for key := range vars {
		if strings.HasPrefix(key, "--") {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+": "+vars[key])
	}
	return strings.Join(parts, "; ")
}
