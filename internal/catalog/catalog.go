// Package catalog embeds the enterprise architecture entity definitions and
// demo records served by the dialogform command.
package catalog

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-dialogform/components/timezones"
	"github.com/goliatone/go-dialogform/pkg/adapter"
	"github.com/goliatone/go-dialogform/pkg/model"
	"github.com/goliatone/go-dialogform/pkg/options"
	"github.com/goliatone/go-dialogform/pkg/session"
)

//go:embed entities/*.yaml
var entitiesFS embed.FS

//go:embed seed/records.yaml
var seedData []byte

// TimezoneLoader names the loader serving IANA zone options.
const TimezoneLoader = "timezone"

// FS returns the embedded entity definitions.
func FS() fs.FS {
	sub, err := fs.Sub(entitiesFS, "entities")
	if err != nil {
		panic(err)
	}
	return sub
}

// Load registers the embedded entity types.
func Load(opts ...adapter.CatalogOption) (*adapter.Registry, error) {
	return adapter.LoadCatalog(FS(), opts...)
}

// Seed saves the demo records into store. Existing records with the same
// ids are overwritten.
func Seed(ctx context.Context, store session.Store) error {
	var records map[string]map[string]map[string]any
	if err := yaml.Unmarshal(seedData, &records); err != nil {
		return fmt.Errorf("catalog: parse seed: %w", err)
	}

	types := make([]string, 0, len(records))
	for entityType := range records {
		types = append(types, entityType)
	}
	sort.Strings(types)

	for _, entityType := range types {
		for id, values := range records[entityType] {
			if err := ctx.Err(); err != nil {
				return err
			}
			if _, err := store.Save(ctx, entityType, id, values); err != nil {
				return fmt.Errorf("catalog: seed %s/%s: %w", entityType, id, err)
			}
		}
	}
	return nil
}

// RecordLister lists stored records as options.
type RecordLister interface {
	Options(ctx context.Context, entityType string) []model.Option
}

// Loaders registers one loader per entity type of reg, named after the type
// and backed by records, plus the timezone loader.
func Loaders(reg *adapter.Registry, records RecordLister) *options.Registry {
	out := options.NewRegistry()
	for _, entityType := range reg.List() {
		out.MustRegister(entityType, RecordLoader(records, entityType))
	}
	out.MustRegister(TimezoneLoader, timezones.Loader(
		timezones.WithDefaultLimit(500),
		timezones.WithMaxLimit(500),
	))
	return out
}

// RecordLoader serves the records of entityType filtered by the query.
func RecordLoader(records RecordLister, entityType string) options.Loader {
	return options.LoaderFunc(func(ctx context.Context, req options.Request) ([]model.Option, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return options.Filter(records.Options(ctx, entityType), req.Query), nil
	})
}
