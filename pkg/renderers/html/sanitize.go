package html

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer cleans author supplied text before it is emitted as markup.
type Sanitizer struct {
	help   *bluemonday.Policy
	static *bluemonday.Policy
}

// NewSanitizer allows basic inline formatting and links in help text while
// static values are reduced to plain text.
func NewSanitizer() *Sanitizer {
	help := bluemonday.NewPolicy()
	help.AllowElements("b", "strong", "i", "em", "code", "br")
	help.AllowAttrs("href").OnElements("a")
	help.AllowStandardURLs()
	help.RequireNoFollowOnLinks(true)
	help.AddTargetBlankToFullyQualifiedLinks(true)

	return &Sanitizer{
		help:   help,
		static: bluemonday.StrictPolicy(),
	}
}

// Help sanitizes help text.
func (s *Sanitizer) Help(raw string) string {
	return strings.TrimSpace(s.help.Sanitize(raw))
}

// Static strips every tag from display-only values.
func (s *Sanitizer) Static(raw string) string {
	return s.static.Sanitize(raw)
}
