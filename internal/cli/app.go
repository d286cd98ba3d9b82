package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-dialogform/internal/catalog"
	"github.com/goliatone/go-dialogform/pkg/adapter"
	"github.com/goliatone/go-dialogform/pkg/options"
	"github.com/goliatone/go-dialogform/pkg/orchestrator"
	"github.com/goliatone/go-dialogform/pkg/session"
)

// app wires the collaborators shared by every command.
type app struct {
	cfg      Config
	logger   *zap.Logger
	adapters *adapter.Registry
	store    *session.MemoryStore
	loaders  *options.Registry
	orch     *orchestrator.Orchestrator
}

func newApp(ctx context.Context, cfg Config, logger *zap.Logger) (*app, error) {
	adapters, err := loadAdapters(ctx, cfg.Catalog)
	if err != nil {
		return nil, err
	}

	store := session.NewMemoryStore()
	if cfg.Seed {
		if err := catalog.Seed(ctx, store); err != nil {
			return nil, err
		}
	}

	loaders := catalog.Loaders(adapters, store)
	if err := registerEndpoints(loaders, cfg.Options.Endpoints); err != nil {
		return nil, err
	}

	orchOpts := []orchestrator.Option{
		orchestrator.WithAdapters(adapters),
		orchestrator.WithStore(store),
		orchestrator.WithOptionLoaders(loaders),
		orchestrator.WithLogger(logger),
	}
	if cfg.Theme.Manifest != "" {
		manifest, err := loadManifest(cfg.Theme.Manifest)
		if err != nil {
			return nil, err
		}
		orchOpts = append(orchOpts, orchestrator.WithTheme(cfg.Theme.Variant, manifest))
	}

	logger.Debug("catalog loaded",
		zap.Strings("entity_types", adapters.List()),
		zap.Strings("loaders", loaders.List()),
		zap.Bool("seeded", cfg.Seed),
	)
	return &app{
		cfg:      cfg,
		logger:   logger,
		adapters: adapters,
		store:    store,
		loaders:  loaders,
		orch:     orchestrator.New(orchOpts...),
	}, nil
}

// loadAdapters reads the catalog directory, or the embedded catalog, and
// adds the entity schemas of the OpenAPI document when one is configured.
func loadAdapters(ctx context.Context, cfg CatalogConfig) (*adapter.Registry, error) {
	var (
		reg *adapter.Registry
		err error
	)
	if cfg.Dir != "" {
		reg, err = adapter.LoadCatalog(os.DirFS(cfg.Dir))
	} else {
		reg, err = catalog.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}

	if cfg.OpenAPI == "" {
		return reg, nil
	}
	data, err := os.ReadFile(cfg.OpenAPI)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	extra, err := adapter.LoadOpenAPI(ctx, data)
	if err != nil {
		return nil, err
	}
	for _, entityType := range extra.List() {
		a, err := extra.Get(entityType)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(a); err != nil {
			return nil, fmt.Errorf("catalog: openapi %s: %w", cfg.OpenAPI, err)
		}
	}
	return reg, nil
}

// registerEndpoints adds remote loaders. An endpoint named after an existing
// loader replaces it.
func registerEndpoints(reg *options.Registry, endpoints map[string]EndpointConfig) error {
	names := make([]string, 0, len(endpoints))
	for name := range endpoints {
		names = append(names, name)
	}
	sort.Strings(names)

	client := &http.Client{Timeout: 10 * time.Second}
	for _, name := range names {
		ep := endpoints[name]
		loader, err := options.NewHTTPLoader(client, options.Endpoint{
			URL:         ep.URL,
			Method:      ep.Method,
			ResultsPath: ep.ResultsPath,
			ValueField:  ep.ValueField,
			LabelField:  ep.LabelField,
			QueryParam:  ep.QueryParam,
			Params:      ep.Params,
		})
		if err != nil {
			return fmt.Errorf("options endpoint %q: %w", name, err)
		}
		if err := reg.Replace(name, loader); err != nil {
			return fmt.Errorf("options endpoint %q: %w", name, err)
		}
	}
	return nil
}
