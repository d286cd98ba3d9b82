// Package dialogform is the top-level entry point: it builds orchestrators
// over entity catalogs and exposes the embedded HTML templates and assets.
package dialogform

import (
	"context"
	"io/fs"

	"github.com/goliatone/go-dialogform/pkg/adapter"
	"github.com/goliatone/go-dialogform/pkg/orchestrator"
	"github.com/goliatone/go-dialogform/pkg/render"
	"github.com/goliatone/go-dialogform/pkg/renderers/html"
)

// RenderOptions describes per-request rendering instructions.
type RenderOptions = render.RenderOptions

// Request describes a dialog to open and render.
type Request = orchestrator.Request

// NewOrchestrator exposes the orchestrator constructor from the top-level
// module.
func NewOrchestrator(options ...orchestrator.Option) *orchestrator.Orchestrator {
	return orchestrator.New(options...)
}

// LoadCatalog reads every catalog document in fsys and returns the entity
// adapters it declares.
func LoadCatalog(fsys fs.FS, options ...adapter.CatalogOption) (*adapter.Registry, error) {
	return adapter.LoadCatalog(fsys, options...)
}

// GenerateHTML renders the record entityType/entityID with the HTML
// renderer. An empty entityID renders a create dialog.
func GenerateHTML(ctx context.Context, entityType, entityID string, options ...orchestrator.Option) ([]byte, error) {
	gen := orchestrator.New(options...)
	return gen.Generate(ctx, orchestrator.Request{
		EntityType: entityType,
		EntityID:   entityID,
		Renderer:   "html",
	})
}

// EmbeddedTemplates exposes the built-in HTML dialog templates so callers can
// reuse or extend them without importing the renderer package directly.
func EmbeddedTemplates() fs.FS {
	return html.TemplatesFS()
}

// AssetsFS exposes the default dialog stylesheet for serving next to rendered
// dialogs.
func AssetsFS() fs.FS {
	return html.AssetsFS()
}
