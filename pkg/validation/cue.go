package validation

import (
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/goliatone/go-dialogform/pkg/model"
)

// CUEValidator is a RecordValidator backed by a CUE schema. Constraint
// violations are reported against the first path segment below the schema
// root; violations without a path collect under FormKey.
type CUEValidator struct {
	mu     sync.Mutex
	ctx    *cue.Context
	schema cue.Value
	prefix []string
}

// CUEOption configures a CUEValidator.
type CUEOption func(*cueConfig)

type cueConfig struct {
	path string
}

// WithCUEPath selects the schema at path inside the compiled source, e.g.
// "application".
func WithCUEPath(path string) CUEOption {
	return func(cfg *cueConfig) {
		cfg.path = strings.TrimSpace(path)
	}
}

// NewCUEValidator compiles source and resolves the optional schema path.
func NewCUEValidator(source string, opts ...CUEOption) (*CUEValidator, error) {
	cfg := &cueConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(source)
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("validation: compile cue schema: %w", err)
	}

	var prefix []string
	if cfg.path != "" {
		path := cue.ParsePath(cfg.path)
		if err := path.Err(); err != nil {
			return nil, fmt.Errorf("validation: cue path %q: %w", cfg.path, err)
		}
		schema = schema.LookupPath(path)
		if !schema.Exists() {
			return nil, fmt.Errorf("validation: cue path %q not found", cfg.path)
		}
		for _, sel := range path.Selectors() {
			prefix = append(prefix, sel.String())
		}
	}

	return &CUEValidator{ctx: ctx, schema: schema, prefix: prefix}, nil
}

// ValidateRecord unifies the non-empty values of record with the schema.
// Empty values are left out so optional constraints do not fire on them;
// presence is the job of the required check.
func (v *CUEValidator) ValidateRecord(record map[string]any) Errors {
	out := make(Errors)
	if v == nil {
		return out
	}

	data := make(map[string]any, len(record))
	for key, value := range record {
		if model.IsEmpty(value) {
			continue
		}
		data[key] = value
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	encoded := v.ctx.Encode(data)
	if err := encoded.Err(); err != nil {
		out.Add(FormKey, err.Error())
		return out
	}

	err := v.schema.Unify(encoded).Validate()
	if err == nil {
		return out
	}
	for _, cerr := range cueerrors.Errors(err) {
		format, args := cerr.Msg()
		out.Add(v.fieldFor(cerr.Path()), fmt.Sprintf(format, args...))
	}
	return out
}

func (v *CUEValidator) fieldFor(path []string) string {
	rest := path
	if len(rest) >= len(v.prefix) && equalPrefix(rest, v.prefix) {
		rest = rest[len(v.prefix):]
	}
	if len(rest) == 0 {
		return FormKey
	}
	return rest[0]
}

func equalPrefix(path, prefix []string) bool {
	for i := range prefix {
		if path[i] != prefix[i] {
			return false
		}
	}
	return true
}
