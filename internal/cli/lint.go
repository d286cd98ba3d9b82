package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-dialogform/internal/catalog"
	"github.com/goliatone/go-dialogform/pkg/adapter"
	"github.com/goliatone/go-dialogform/pkg/model"
	"github.com/goliatone/go-dialogform/pkg/uischema"
)

type violation struct {
	source  string
	entity  string
	field   string
	message string
}

func (v violation) String() string {
	if v.field == "" {
		return fmt.Sprintf("%s: %s: %s", v.source, v.entity, v.message)
	}
	return fmt.Sprintf("%s: %s.%s: %s", v.source, v.entity, v.field, v.message)
}

type linted struct {
	source string
	reg    *adapter.Registry
}

func newLintCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lint [paths...]",
		Short: "Check catalog and OpenAPI documents",
		Long: `lint loads catalog directories, catalog files and OpenAPI documents and
reports unknown tabs, reference fields whose target entity type or option
loader is not defined and controls missing their options or component. Without paths it checks the configured catalog.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var docs []linted
			if len(args) == 0 {
				reg, err := loadAdapters(cmd.Context(), root.cfg.Catalog)
				if err != nil {
					return err
				}
				source := root.cfg.Catalog.Dir
				if source == "" {
					source = "embedded catalog"
				}
				docs = append(docs, linted{source: source, reg: reg})
			}
			for _, path := range args {
				reg, err := lintLoad(cmd.Context(), path)
				if err != nil {
					return fmt.Errorf("lint %s: %w", path, err)
				}
				docs = append(docs, linted{source: path, reg: reg})
			}

			loaders := []string{catalog.TimezoneLoader}
			for name := range root.cfg.Options.Endpoints {
				loaders = append(loaders, name)
			}
			problems := checkReferences(docs, loaders)
			return report(cmd.OutOrStdout(), docs, problems)
		},
	}
}

func lintLoad(ctx context.Context, path string) (*adapter.Registry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return adapter.LoadCatalog(os.DirFS(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if isOpenAPI(data) {
		return adapter.LoadOpenAPI(ctx, data)
	}
	store, err := uischema.Parse(data, filepath.Base(path))
	if err != nil {
		return nil, err
	}
	return adapter.FromStore(store)
}

func isOpenAPI(data []byte) bool {
	var head struct {
		OpenAPI string `yaml:"openapi"`
	}
	return yaml.Unmarshal(data, &head) == nil && head.OpenAPI != ""
}

// checkReferences merges every document into one registry, runs the adapter
// lint over it and then checks option loaders. Every entity type doubles as a
// loader name, the way the record loaders are registered.
func checkReferences(docs []linted, extraLoaders []string) []violation {
	merged := adapter.NewRegistry()
	sources := make(map[string]string)
	for _, doc := range docs {
		for _, entityType := range doc.reg.List() {
			a, err := doc.reg.Get(entityType)
			if err != nil {
				continue
			}
			if err := merged.Register(a); err != nil {
				continue
			}
			sources[entityType] = doc.source
		}
	}

	loaders := make(map[string]struct{}, len(sources)+len(extraLoaders))
	for entityType := range sources {
		loaders[entityType] = struct{}{}
	}
	for _, name := range extraLoaders {
		loaders[name] = struct{}{}
	}

	var out []violation
	for _, issue := range adapter.Lint(merged) {
		out = append(out, violation{sources[issue.EntityType], issue.EntityType, issue.Field, issue.Message})
	}
	for _, entityType := range merged.List() {
		a, err := merged.Get(entityType)
		if err != nil {
			continue
		}
		for _, field := range a.Fields() {
			choice, ok := model.ChoiceOf(field.Control)
			if !ok || choice.Source.Loader == "" {
				continue
			}
			if _, known := loaders[choice.Source.Loader]; !known {
				out = append(out, violation{sources[entityType], entityType, field.Name, fmt.Sprintf("unknown option loader %q", choice.Source.Loader)})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func report(w io.Writer, docs []linted, problems []violation) error {
	for _, doc := range docs {
		if _, err := fmt.Fprintf(w, "ok   %s (%d entity types)\n", doc.source, len(doc.reg.List())); err != nil {
			return err
		}
	}
	for _, p := range problems {
		if _, err := fmt.Fprintf(w, "FAIL %s\n", p); err != nil {
			return err
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%d problem(s) found", len(problems))
	}
	return nil
}
