package adapter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-dialogform/pkg/model"
)

// Issue is one finding reported by Lint.
type Issue struct {
	EntityType string `json:"entityType"`
	Field      string `json:"field,omitempty"`
	Message    string `json:"message"`
}

func (i Issue) String() string {
	if i.Field == "" {
		return fmt.Sprintf("%s: %s", i.EntityType, i.Message)
	}
	return fmt.Sprintf("%s.%s: %s", i.EntityType, i.Field, i.Message)
}

// Lint inspects every registered adapter for references that would fail at
// runtime: unknown tabs, unregistered reference targets, choices without a
// source and custom controls without a component.
func Lint(reg *Registry) []Issue {
	if reg == nil {
		return nil
	}
	var issues []Issue
	for _, entityType := range reg.List() {
		a, err := reg.Get(entityType)
		if err != nil {
			continue
		}
		issues = append(issues, lintAdapter(reg, a)...)
	}
	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].EntityType != issues[j].EntityType {
			return issues[i].EntityType < issues[j].EntityType
		}
		return issues[i].Field < issues[j].Field
	})
	return issues
}

func lintAdapter(reg *Registry, a Adapter) []Issue {
	var issues []Issue
	report := func(field, format string, args ...any) {
		issues = append(issues, Issue{EntityType: a.EntityType(), Field: field, Message: fmt.Sprintf(format, args...)})
	}

	tabs := make(map[string]struct{})
	for _, tab := range a.Tabs() {
		tabs[tab.ID] = struct{}{}
	}

	for _, field := range a.Fields() {
		if field.TabID != "" && len(tabs) > 0 {
			if _, ok := tabs[field.TabID]; !ok {
				report(field.Name, "unknown tab %q", field.TabID)
			}
		}
		if field.Control == nil {
			report(field.Name, "missing control")
			continue
		}

		switch ctrl := field.Control.(type) {
		case model.Custom:
			if strings.TrimSpace(ctrl.Component) == "" {
				report(field.Name, "custom control without component")
			}
		case model.SingleChoice, model.MultiChoice:
			choice, _ := model.ChoiceOf(ctrl)
			if len(choice.Source.Static) == 0 && strings.TrimSpace(choice.Source.Loader) == "" {
				report(field.Name, "choice without options or loader")
			}
		}

		if target, ok := a.EntityTypeFor(field.Name); ok && !reg.Has(target) {
			report(field.Name, "references unregistered entity type %q", target)
		}
	}
	return issues
}
