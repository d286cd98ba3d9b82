package orchestrator

import (
	"fmt"
	"path"
	"strings"

	theme "github.com/goliatone/go-theme"
)

// ThemeSelector resolves a theme and variant into a selection. Selectors
// from go-theme satisfy it.
type ThemeSelector interface {
	Select(name, variant string, opts ...theme.QueryOption) (*theme.Selection, error)
}

type themeSettings struct {
	selector       ThemeSelector
	defaultTheme   string
	defaultVariant string
	fallbacks      map[string]string
}

// WithThemeSelector resolves themes through selector. defaultTheme and
// defaultVariant apply when a request names none.
func WithThemeSelector(selector ThemeSelector, defaultTheme, defaultVariant string) Option {
	return func(o *Orchestrator) {
		o.themes.selector = selector
		o.themes.defaultTheme = defaultTheme
		o.themes.defaultVariant = defaultVariant
	}
}

// WithTheme registers manifests directly, the first one being the default
// theme rendered with variant.
func WithTheme(variant string, manifests ...*theme.Manifest) Option {
	return func(o *Orchestrator) {
		sel := manifestSelector{}
		first := ""
		for _, manifest := range manifests {
			if manifest == nil || manifest.Name == "" {
				continue
			}
			if first == "" {
				first = manifest.Name
			}
			sel[manifest.Name] = manifest
		}
		if first == "" {
			return
		}
		WithThemeSelector(sel, first, variant)(o)
	}
}

// WithThemeFallbacks replaces the partials used when a theme does not
// override a template key.
func WithThemeFallbacks(fallbacks map[string]string) Option {
	return func(o *Orchestrator) {
		merged := defaultThemeFallbacks()
		for key, value := range fallbacks {
			merged[key] = value
		}
		o.themes.fallbacks = merged
	}
}

// ThemeConfig resolves name and variant, falling back to the configured
// defaults, into the renderer configuration. It returns nil when no theme
// is configured.
func (o *Orchestrator) ThemeConfig(name, variant string) (*theme.RendererConfig, error) {
	if o.themes.selector == nil {
		return nil, nil
	}
	if name == "" {
		name = o.themes.defaultTheme
	}
	if variant == "" {
		variant = o.themes.defaultVariant
	}
	selection, err := o.themes.selector.Select(name, variant)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: select theme %q: %w", name, err)
	}
	if selection == nil {
		return nil, nil
	}
	return rendererConfig(selection, o.themes.fallbacks), nil
}

// rendererConfig merges the manifest with its selected variant. Variant
// tokens, templates and asset files win over the base manifest.
func rendererConfig(selection *theme.Selection, fallbacks map[string]string) *theme.RendererConfig {
	cfg := &theme.RendererConfig{
		Theme:    selection.Theme,
		Variant:  selection.Variant,
		Partials: make(map[string]string, len(fallbacks)),
		Tokens:   make(map[string]string),
		CSSVars:  make(map[string]string),
	}
	for key, value := range fallbacks {
		cfg.Partials[key] = value
	}

	assets := theme.Assets{Files: make(map[string]string)}
	if manifest := selection.Manifest; manifest != nil {
		if cfg.Theme == "" {
			cfg.Theme = manifest.Name
		}
		mergeStrings(cfg.Tokens, manifest.Tokens)
		mergeStrings(cfg.Partials, manifest.Templates)
		assets.Prefix = manifest.Assets.Prefix
		mergeStrings(assets.Files, manifest.Assets.Files)

		if variant, ok := manifest.Variants[selection.Variant]; ok {
			mergeStrings(cfg.Tokens, variant.Tokens)
			mergeStrings(cfg.Partials, variant.Templates)
			if variant.Assets.Prefix != "" {
				assets.Prefix = variant.Assets.Prefix
			}
			mergeStrings(assets.Files, variant.Assets.Files)
		}
	}

	for key, value := range cfg.Tokens {
		cfg.CSSVars["--"+strings.TrimPrefix(key, "--")] = value
	}
	cfg.AssetURL = assetResolver(assets)
	return cfg
}

func assetResolver(assets theme.Assets) func(string) string {
	return func(key string) string {
		file, ok := assets.Files[key]
		if !ok || file == "" {
			return ""
		}
		if strings.Contains(file, "://") || strings.HasPrefix(file, "/") || assets.Prefix == "" {
			return file
		}
		if strings.Contains(assets.Prefix, "://") {
			return strings.TrimSuffix(assets.Prefix, "/") + "/" + strings.TrimPrefix(file, "/")
		}
		return path.Join(assets.Prefix, file)
	}
}

func mergeStrings(dst, src map[string]string) {
	for key, value := range src {
		if value != "" {
			dst[key] = value
		}
	}
}

// manifestSelector serves manifests registered in process.
type manifestSelector map[string]*theme.Manifest

func (m manifestSelector) Select(name, variant string, _ ...theme.QueryOption) (*theme.Selection, error) {
	manifest, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("theme %q not registered", name)
	}
	if variant != "" {
		if _, ok := manifest.Variants[variant]; !ok {
			return nil, fmt.Errorf("theme %q has no variant %q", name, variant)
		}
	}
	return &theme.Selection{Theme: name, Variant: variant, Manifest: manifest}, nil
}

func defaultThemeFallbacks() map[string]string {
	return map[string]string{
		"dialog.shell":   "templates/dialog.tmpl",
		"dialog.field":   "templates/field.tmpl",
		"forms.input":    "templates/components/input.tmpl",
		"forms.textarea": "templates/components/textarea.tmpl",
		"forms.number":   "templates/components/number.tmpl",
		"forms.select":   "templates/components/select.tmpl",
		"forms.choice":   "templates/components/choice.tmpl",
		"forms.tags":     "templates/components/tags.tmpl",
	}
}
