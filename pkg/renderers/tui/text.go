package tui

import (
	"context"
	"strings"

	"github.com/goliatone/go-dialogform/pkg/render"
)

// Renderer prints a dialog as plain text.
type Renderer struct {
	theme Theme
}

var _ render.Renderer = (*Renderer)(nil)

// NewRenderer returns a text renderer using theme for its markers.
func NewRenderer(theme Theme) *Renderer {
	return &Renderer{theme: theme}
}

func (r *Renderer) Name() string {
	return "tui"
}

func (r *Renderer) ContentType() string {
	return "text/plain; charset=utf-8"
}

// Render ignores theme and action options; the text layout has no use for
// them.
func (r *Renderer) Render(ctx context.Context, view render.View, _ render.RenderOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []byte(r.Format(view)), nil
}

// Format lays the dialog out line by line: breadcrumbs, header, form errors
// and then every tab with its fields.
func (r *Renderer) Format(view render.View) string {
	var b strings.Builder

	if len(view.Breadcrumbs) > 1 {
		titles := make([]string, 0, len(view.Breadcrumbs))
		for _, crumb := range view.Breadcrumbs {
			titles = append(titles, crumb.Title)
		}
		b.WriteString(strings.Join(titles, " / "))
		b.WriteByte('\n')
	}

	b.WriteString("== ")
	b.WriteString(view.Title)
	b.WriteString(" [")
	b.WriteString(view.Mode)
	b.WriteString("]")
	if view.Dirty {
		b.WriteString(" *")
	}
	b.WriteString(" ==\n")

	for _, msg := range view.FormErrors {
		b.WriteString(r.theme.ErrorPrefix)
		b.WriteString(msg)
		b.WriteByte('\n')
	}

	for _, tab := range view.Tabs {
		if tab.ID != "" {
			b.WriteString("[")
			b.WriteString(tab.Label)
			b.WriteString("]\n")
		}
		for _, field := range tab.Fields {
			b.WriteString("  ")
			b.WriteString(field.Label)
			if field.Required {
				b.WriteString("*")
			}
			b.WriteString(": ")
			b.WriteString(r.value(field))
			b.WriteByte('\n')
			for _, msg := range field.Errors {
				b.WriteString("    ")
				b.WriteString(r.theme.ErrorPrefix)
				b.WriteString(msg)
				b.WriteByte('\n')
			}
		}
	}
	return b.String()
}

func (r *Renderer) value(field render.FieldView) string {
	text := field.Text
	if len(field.Tokens) > 0 {
		parts := make([]string, 0, len(field.Tokens))
		for _, token := range field.Tokens {
			if token.Navigable && r.theme.TokenMarker != "" {
				parts = append(parts, token.Label+" "+r.theme.TokenMarker)
				continue
			}
			parts = append(parts, token.Label)
		}
		text = strings.Join(parts, ", ")
	}
	if field.Numeric != nil && field.Numeric.Unit != "" && text != "" {
		text += " " + field.Numeric.Unit
	}
	if text == "" {
		text = "-"
	}
	if field.Loading {
		text += " (loading)"
	}
	return text
}
