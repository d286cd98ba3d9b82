package components

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/goliatone/go-dialogform/pkg/render"
)

const templatePrefix = "templates/components/"

// NewDefaultRegistry returns a registry with a renderer for every field kind
// plus the bundled custom components.
func NewDefaultRegistry() *Registry {
	registry := New()

	registry.MustRegister("plainText", Descriptor{
		Renderer: inputRenderer("text"),
	})
	registry.MustRegister("date", Descriptor{
		Renderer: inputRenderer("date"),
	})
	registry.MustRegister("dateTime", Descriptor{
		Renderer: inputRenderer("datetime-local"),
	})
	registry.MustRegister("longText", Descriptor{
		Renderer: templateRenderer("forms.textarea", templatePrefix+"textarea.tmpl", nil),
	})
	registry.MustRegister("numeric", Descriptor{
		Renderer: templateRenderer("forms.number", templatePrefix+"number.tmpl", numericPayload),
	})
	registry.MustRegister("singleChoice", Descriptor{
		Renderer: templateRenderer("forms.select", templatePrefix+"select.tmpl", choicePayload),
	})
	registry.MustRegister("multiChoice", Descriptor{
		Renderer: templateRenderer("forms.choice", templatePrefix+"choice.tmpl", choicePayload),
	})
	registry.MustRegister("freeTags", Descriptor{
		Renderer: templateRenderer("forms.tags", templatePrefix+"tags.tmpl", nil),
	})
	registry.MustRegister("staticDisplay", Descriptor{
		Renderer: staticRenderer,
	})

	registry.MustRegister("color", Descriptor{
		Renderer: inputRenderer("color"),
	})
	registry.MustRegister("json", Descriptor{
		Renderer: jsonRenderer,
	})

	return registry
}

type payloadFunc func(field render.FieldView, payload map[string]any)

func inputRenderer(inputType string) Renderer {
	return templateRenderer("forms.input", templatePrefix+"input.tmpl", func(_ render.FieldView, payload map[string]any) {
		payload["type"] = inputType
	})
}

func templateRenderer(partialKey, templateName string, extra payloadFunc) Renderer {
	return func(buf *bytes.Buffer, field render.FieldView, data ComponentData) error {
		if data.Template == nil {
			return fmt.Errorf("components: template renderer not configured for %q", templateName)
		}

		resolved := templateName
		if data.Partial != nil {
			resolved = data.Partial(partialKey, templateName)
		}

		payload := map[string]any{
			"field":  field,
			"config": field.Config,
			"action": data.ActionPrefix,
		}
		if extra != nil {
			extra(field, payload)
		}
		rendered, err := data.Template.RenderTemplate(resolved, payload)
		if err != nil {
			return fmt.Errorf("components: render %q: %w", resolved, err)
		}
		buf.WriteString(rendered)
		return nil
	}
}

func numericPayload(field render.FieldView, payload map[string]any) {
	if field.Numeric == nil {
		return
	}
	if field.Numeric.Min != nil {
		payload["min"] = formatNumber(*field.Numeric.Min)
	}
	if field.Numeric.Max != nil {
		payload["max"] = formatNumber(*field.Numeric.Max)
	}
	switch {
	case field.Numeric.Step > 0:
		payload["step"] = formatNumber(field.Numeric.Step)
	case field.Numeric.Integer:
		payload["step"] = "1"
	default:
		payload["step"] = "any"
	}
	payload["unit"] = field.Numeric.Unit
}

// choicePayload appends selected values that are missing from the loaded
// options so a submit never drops them.
func choicePayload(field render.FieldView, payload map[string]any) {
	choices := append([]render.OptionView(nil), field.Options...)
	known := make(map[string]struct{}, len(choices))
	for _, option := range choices {
		known[option.ID] = struct{}{}
	}
	labels := make(map[string]string, len(field.Tokens))
	for _, token := range field.Tokens {
		labels[token.ID] = token.Label
	}
	for _, id := range field.Values {
		if _, ok := known[id]; ok || id == "" {
			continue
		}
		label := labels[id]
		if label == "" {
			label = id
		}
		choices = append(choices, render.OptionView{ID: id, Label: label, Selected: true})
		known[id] = struct{}{}
	}
	payload["choices"] = choices
}

func staticRenderer(buf *bytes.Buffer, field render.FieldView, data ComponentData) error {
	text := field.Text
	if data.Sanitize != nil {
		text = data.Sanitize(text)
	} else {
		text = html.EscapeString(text)
	}
	buf.WriteString(`<output class="df-static" id="`)
	buf.WriteString(html.EscapeString(ControlID(field.Name)))
	buf.WriteString(`">`)
	buf.WriteString(text)
	buf.WriteString(`</output>`)
	return nil
}

// jsonRenderer edits structured values as indented JSON text.
func jsonRenderer(buf *bytes.Buffer, field render.FieldView, _ ComponentData) error {
	text := field.Text
	if field.Value != nil {
		if _, isString := field.Value.(string); !isString {
			pretty, err := json.MarshalIndent(field.Value, "", "  ")
			if err != nil {
				return fmt.Errorf("components: encode %q: %w", field.Name, err)
			}
			text = string(pretty)
		}
	}
	rows := 6
	if v, ok := field.Config["rows"]; ok {
		if n, err := strconv.Atoi(fmt.Sprint(v)); err == nil && n > 0 {
			rows = n
		}
	}

	buf.WriteString(`<textarea class="df-input df-json" spellcheck="false" id="`)
	buf.WriteString(html.EscapeString(ControlID(field.Name)))
	buf.WriteString(`" name="`)
	buf.WriteString(html.EscapeString(field.Name))
	buf.WriteString(`" rows="`)
	buf.WriteString(strconv.Itoa(rows))
	buf.WriteString(`"`)
	if field.Disabled {
		buf.WriteString(` disabled`)
	}
	buf.WriteString(`>`)
	buf.WriteString(html.EscapeString(text))
	buf.WriteString(`</textarea>`)
	return nil
}

// ControlID is the DOM id of a field's control.
func ControlID(name string) string {
	return "df-" + strings.TrimSpace(name)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
