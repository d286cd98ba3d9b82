package template

import (
	"io"
)

// TemplateRenderer is the contract renderers use to execute named templates
// and inline snippets. Data is exposed to templates through its JSON shape.
type TemplateRenderer interface {
	RenderTemplate(name string, data any, out ...io.Writer) (string, error)
	RenderString(templateContent string, data any, out ...io.Writer) (string, error)
	RegisterFilter(name string, fn func(input any, param any) (any, error)) error
	GlobalContext(data any) error
}
