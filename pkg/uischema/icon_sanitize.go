package uischema

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	iconPolicyOnce sync.Once
	iconPolicy     *bluemonday.Policy
)

// SanitizeIcon keeps a small SVG subset so catalog authors can decorate
// tabs without being able to inject scripts or event handlers.
func SanitizeIcon(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	return strings.TrimSpace(iconSanitizer().Sanitize(trimmed))
}

func iconSanitizer() *bluemonday.Policy {
	iconPolicyOnce.Do(func() {
		shapes := []string{"path", "circle", "rect", "line", "polyline", "polygon"}

		policy := bluemonday.StrictPolicy()
		policy.AllowElements(append([]string{"svg", "g", "title"}, shapes...)...)
		policy.AllowAttrs(
			"xmlns", "viewBox", "width", "height", "fill", "stroke",
			"stroke-width", "aria-hidden", "role", "class",
		).OnElements("svg")
		policy.AllowAttrs(
			"d", "cx", "cy", "r", "x", "y", "x1", "y1", "x2", "y2",
			"points", "rx", "ry", "fill", "stroke", "stroke-width",
		).OnElements(shapes...)
		policy.AllowAttrs("fill", "stroke").OnElements("g")

		iconPolicy = policy
	})
	return iconPolicy
}
