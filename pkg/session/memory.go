package session

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/goliatone/go-dialogform/pkg/model"
)

// MemoryStore is an in-process Store. Records are copied on the way in and
// out.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]map[string]map[string]any
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]map[string]map[string]any)}
}

// Load returns a copy of the record.
func (m *MemoryStore) Load(_ context.Context, entityType, id string) (map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	record, ok := m.records[entityType][id]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrRecordNotFound, entityType, id)
	}
	return copyRecord(record), nil
}

// Save stores values under id, generating one when id is empty. The id is
// also written to the "id" key of the stored record.
func (m *MemoryStore) Save(_ context.Context, entityType, id string, values map[string]any) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}
	record := copyRecord(values)
	record["id"] = id

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.records[entityType] == nil {
		m.records[entityType] = make(map[string]map[string]any)
	}
	m.records[entityType][id] = record
	return id, nil
}

// Delete removes the record.
func (m *MemoryStore) Delete(_ context.Context, entityType, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[entityType][id]; !ok {
		return fmt.Errorf("%w: %s/%s", ErrRecordNotFound, entityType, id)
	}
	delete(m.records[entityType], id)
	return nil
}

// List returns the records of entityType sorted by id.
func (m *MemoryStore) List(entityType string) []map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.records[entityType]))
	for id := range m.records[entityType] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		out = append(out, copyRecord(m.records[entityType][id]))
	}
	return out
}

// Options lists the records of entityType as options labelled by their
// "name" value.
func (m *MemoryStore) Options(_ context.Context, entityType string) []model.Option {
	var out []model.Option
	for _, record := range m.List(entityType) {
		id, _ := record["id"].(string)
		label, _ := record["name"].(string)
		if label == "" {
			label = id
		}
		out = append(out, model.Option{ID: id, Label: label})
	}
	return out
}

func copyRecord(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		return copyRecord(typed)
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = copyValue(item)
		}
		return out
	case []string:
		return append([]string(nil), typed...)
	default:
		return v
	}
}
