// Package template holds the template seam used by the markup renderers and a
// pongo2 backed engine that satisfies it.
package template
