// Package render defines the renderer contract shared by the HTML and
// terminal front ends together with the neutral View they consume.
package render

import (
	"context"
)

// Renderer converts a dialog View into a byte representation (HTML, text).
type Renderer interface {
	Name() string
	ContentType() string
	Render(ctx context.Context, view View, options RenderOptions) ([]byte, error)
}
