package uischema

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFS walks fsys and parses every JSON/YAML catalog document. Entity types
// must be unique across files; field names and tab ids must be unique within
// an entity. A nil fsys yields an empty store.
func LoadFS(fsys fs.FS) (*Store, error) {
	store := &Store{entities: make(map[string]Entity)}
	if fsys == nil {
		return store, nil
	}

	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isCatalogFile(path) {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("uischema: read %s: %w", path, err)
		}
		return store.add(data, path)
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

// Parse reads a single catalog document. source names it in errors.
func Parse(data []byte, source string) (*Store, error) {
	store := &Store{entities: make(map[string]Entity)}
	if err := store.add(data, source); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *Store) add(data []byte, source string) error {
	doc, err := parseDocument(data, source)
	if err != nil {
		return err
	}
	for rawType, raw := range doc.Entities {
		entityType := strings.TrimSpace(rawType)
		if entityType == "" {
			return fmt.Errorf("uischema: file %s defines an empty entity type", source)
		}
		if _, exists := s.entities[entityType]; exists {
			return fmt.Errorf("uischema: duplicate entity %q (file %s)", entityType, source)
		}
		entity, err := normaliseEntity(raw, entityType, source)
		if err != nil {
			return err
		}
		s.entities[entityType] = entity
	}
	return nil
}

type documentFile struct {
	Entities map[string]entityFile `json:"entities" yaml:"entities"`
}

type entityFile struct {
	Title       string            `json:"title" yaml:"title"`
	Tabs        []TabConfig       `json:"tabs" yaml:"tabs"`
	Fields      []FieldConfig     `json:"fields" yaml:"fields"`
	Defaults    map[string]any    `json:"defaults" yaml:"defaults"`
	EntityTypes map[string]string `json:"entityTypes" yaml:"entityTypes"`
	Schema      SchemaConfig      `json:"schema" yaml:"schema"`
	Deletable   bool              `json:"deletable" yaml:"deletable"`
}

func parseDocument(data []byte, source string) (documentFile, error) {
	var doc documentFile
	if len(strings.TrimSpace(string(data))) == 0 {
		return documentFile{}, fmt.Errorf("uischema: file %s is empty", source)
	}
	if err := json.Unmarshal(data, &doc); err == nil {
		return doc, nil
	}
	doc = documentFile{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return documentFile{}, fmt.Errorf("uischema: parse %s: %w", source, err)
	}
	return doc, nil
}

func normaliseEntity(raw entityFile, entityType, source string) (Entity, error) {
	entity := Entity{
		Type:        entityType,
		Source:      source,
		Title:       strings.TrimSpace(raw.Title),
		Defaults:    raw.Defaults,
		EntityTypes: raw.EntityTypes,
		Schema:      raw.Schema,
		Deletable:   raw.Deletable,
	}

	tabIDs := make(map[string]struct{}, len(raw.Tabs))
	for _, tab := range raw.Tabs {
		tab.ID = strings.TrimSpace(tab.ID)
		if tab.ID == "" {
			return Entity{}, fmt.Errorf("uischema: entity %q (file %s) declares a tab without id", entityType, source)
		}
		if _, exists := tabIDs[tab.ID]; exists {
			return Entity{}, fmt.Errorf("uischema: entity %q (file %s) declares duplicate tab %q", entityType, source, tab.ID)
		}
		tabIDs[tab.ID] = struct{}{}
		tab.Icon = SanitizeIcon(tab.Icon)
		entity.Tabs = append(entity.Tabs, tab)
	}

	names := make(map[string]struct{}, len(raw.Fields))
	for idx, field := range raw.Fields {
		field.Name = strings.TrimSpace(field.Name)
		if field.Name == "" {
			return Entity{}, fmt.Errorf("uischema: entity %q (file %s) field %d has no name", entityType, source, idx)
		}
		if _, exists := names[field.Name]; exists {
			return Entity{}, fmt.Errorf("uischema: entity %q (file %s) defines duplicate field %q", entityType, source, field.Name)
		}
		names[field.Name] = struct{}{}
		entity.Fields = append(entity.Fields, field)
	}
	return entity, nil
}

func isCatalogFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
