package render

import (
	theme "github.com/goliatone/go-theme"
)

// RenderOptions describe per-request data that renderers can use to customise
// their output without touching the dialog state.
type RenderOptions struct {
	// Theme carries the resolved theme tokens, CSS variables and asset
	// resolver. Nil renders the unstyled defaults.
	Theme *theme.RendererConfig
	// ActionPrefix is prepended to the action URLs emitted by HTML
	// renderers, e.g. "/dialogs/<session>".
	ActionPrefix string
	// Standalone wraps the dialog in a full HTML document.
	Standalone bool
}
