package validation

import (
	"fmt"

	"github.com/goliatone/go-dialogform/pkg/model"
)

// Trigger identifies the event that requested validation.
type Trigger int

const (
	// TriggerChange runs after a value changed and for the eager pass of
	// create dialogs.
	TriggerChange Trigger = iota
	// TriggerSubmit runs before the submit handler is invoked.
	TriggerSubmit
)

func (t Trigger) timing() model.Timing {
	if t == TriggerSubmit {
		return model.TimingSubmit
	}
	return model.TimingChange
}

func (t Trigger) String() string {
	if t == TriggerSubmit {
		return "submit"
	}
	return "change"
}

// RecordValidator validates the record as a whole and attaches messages to
// field names (or FormKey).
type RecordValidator interface {
	ValidateRecord(record map[string]any) Errors
}

// RecordValidatorFunc adapts a function to RecordValidator.
type RecordValidatorFunc func(record map[string]any) Errors

func (fn RecordValidatorFunc) ValidateRecord(record map[string]any) Errors {
	if fn == nil {
		return nil
	}
	return fn(record)
}

// Chain runs validators in order and merges their messages.
func Chain(validators ...RecordValidator) RecordValidator {
	return RecordValidatorFunc(func(record map[string]any) Errors {
		out := make(Errors)
		for _, v := range validators {
			if v != nil {
				out.Merge(v.ValidateRecord(record))
			}
		}
		return out
	})
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRecordValidator installs the whole-record validator.
func WithRecordValidator(v RecordValidator) Option {
	return func(p *Pipeline) {
		p.record = v
	}
}

// WithRequiredMessage overrides the message used for empty required fields.
func WithRequiredMessage(fn func(model.Field) string) Option {
	return func(p *Pipeline) {
		if fn != nil {
			p.requiredMessage = fn
		}
	}
}

// Pipeline validates records for one set of field descriptors. It is
// immutable after construction and safe for concurrent use.
type Pipeline struct {
	fields          []model.Field
	rules           map[string][]model.Validator
	record          RecordValidator
	requiredMessage func(model.Field) string
}

// NewPipeline compiles the declarative rules of fields. It fails when a rule
// is malformed, e.g. an invalid pattern.
func NewPipeline(fields []model.Field, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		fields:          append([]model.Field(nil), fields...),
		rules:           make(map[string][]model.Validator, len(fields)),
		requiredMessage: defaultRequiredMessage,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	for _, field := range fields {
		compiled, err := compileRules(field)
		if err != nil {
			return nil, fmt.Errorf("validation: field %q: %w", field.Name, err)
		}
		if len(compiled) > 0 {
			p.rules[field.Name] = compiled
		}
	}
	return p, nil
}

// Fields returns the descriptors the pipeline validates.
func (p *Pipeline) Fields() []model.Field {
	return append([]model.Field(nil), p.fields...)
}

// Validate runs every validator whose timing matches trigger, followed by the
// record validator, and returns the collected messages. Hidden and static
// fields are skipped. A required field that is empty reports only the
// required message.
func (p *Pipeline) Validate(record map[string]any, trigger Trigger) Errors {
	out := make(Errors)
	if p == nil {
		return out
	}

	timing := trigger.timing()
	for _, field := range p.fields {
		if !field.IsVisible(record) || field.Kind() == model.KindStaticDisplay {
			continue
		}

		value := record[field.Name]
		empty := model.IsEmpty(value)
		if field.Required && empty {
			out.Add(field.Name, p.requiredMessage(field))
			continue
		}

		if !empty {
			for _, rule := range p.rules[field.Name] {
				out.Add(field.Name, rule.Check(value, record)...)
			}
		}
		for _, validator := range field.Validators {
			if validator.Check == nil || !validator.Timing.Has(timing) {
				continue
			}
			out.Add(field.Name, validator.Check(value, record)...)
		}
	}

	if p.record != nil {
		out.Merge(p.record.ValidateRecord(record))
	}
	return out
}

// RequiredEmpty reports whether field is required and its value empty.
func RequiredEmpty(field model.Field, record map[string]any) bool {
	return field.Required && model.IsEmpty(record[field.Name])
}

func defaultRequiredMessage(field model.Field) string {
	return field.DisplayLabel() + " is required"
}
