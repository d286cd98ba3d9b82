// Package widgets resolves the control kind of a field from schema hints.
// Adapters describe each property with a Hint; registered matchers pick the
// kind, highest priority first.
package widgets

import (
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-dialogform/pkg/model"
)

// Hint summarises what a schema says about one property.
type Hint struct {
	Name string
	// Type is the JSON schema type: string, integer, number, boolean, array,
	// object.
	Type      string
	Format    string
	Enum      bool
	MaxLength int
	ItemsType string
	ItemsEnum bool
	// Entity is the referenced entity type, if the property points at
	// another record.
	Entity   string
	ReadOnly bool
	// Kind is an explicit kind that bypasses matching.
	Kind string
}

// Matcher reports whether a kind handles the hint.
type Matcher func(h Hint) bool

type rule struct {
	kind     model.Kind
	priority int
	match    Matcher
	order    int
}

// Registry selects kinds for hints. Higher priority wins; ties fall back to
// registration order.
type Registry struct {
	mu    sync.RWMutex
	rules []rule
}

// NewRegistry constructs a registry with the built-in matchers registered.
func NewRegistry() *Registry {
	reg := &Registry{}
	reg.registerBuiltins()
	return reg
}

// Register adds a matcher for kind.
func (r *Registry) Register(kind model.Kind, priority int, matcher Matcher) {
	if r == nil || matcher == nil || kind == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rules = append(r.rules, rule{
		kind:     kind,
		priority: priority,
		match:    matcher,
		order:    len(r.rules),
	})
}

// Resolve returns the kind for h. A valid explicit Kind wins over matchers.
func (r *Registry) Resolve(h Hint) (model.Kind, bool) {
	if explicit := model.Kind(strings.TrimSpace(h.Kind)); explicit.Valid() {
		return explicit, true
	}
	if r == nil {
		return "", false
	}
	r.mu.RLock()
	rules := append([]rule(nil), r.rules...)
	r.mu.RUnlock()

	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].priority == rules[j].priority {
			return rules[i].order < rules[j].order
		}
		return rules[i].priority > rules[j].priority
	})
	for _, entry := range rules {
		if entry.match(h) {
			return entry.kind, true
		}
	}
	return "", false
}

func (r *Registry) registerBuiltins() {
	r.Register(model.KindStaticDisplay, 100, func(h Hint) bool {
		return h.ReadOnly
	})

	r.Register(model.KindMultiChoice, 90, func(h Hint) bool {
		return h.Type == "array" && (h.ItemsEnum || h.Entity != "")
	})

	r.Register(model.KindFreeTags, 85, func(h Hint) bool {
		return h.Type == "array" && (h.ItemsType == "" || h.ItemsType == "string")
	})

	r.Register(model.KindSingleChoice, 80, func(h Hint) bool {
		if h.Type == "array" || h.Type == "object" {
			return false
		}
		return h.Enum || h.Entity != "" || h.Type == "boolean"
	})

	r.Register(model.KindDateTime, 70, func(h Hint) bool {
		return h.Type == "string" && strings.EqualFold(h.Format, "date-time")
	})

	r.Register(model.KindDate, 70, func(h Hint) bool {
		return h.Type == "string" && strings.EqualFold(h.Format, "date")
	})

	r.Register(model.KindNumeric, 60, func(h Hint) bool {
		return h.Type == "integer" || h.Type == "number"
	})

	r.Register(model.KindLongText, 50, func(h Hint) bool {
		if h.Type != "" && h.Type != "string" {
			return false
		}
		format := strings.ToLower(strings.TrimSpace(h.Format))
		return format == "textarea" || format == "markdown" || h.MaxLength > 255
	})

	r.Register(model.KindPlainText, 0, func(Hint) bool { return true })
}
