package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/utsingh/portfolio-api/internal/portfolio"
)

// MemoryRepo keeps the portfolio document in process memory. It follows the
// same rules as MongoRepo and backs unit tests and STORE_BACKEND=memory.
// Values are deep-copied on the way in and out so callers never share state
// with the store.
type MemoryRepo struct {
	mu  sync.RWMutex
	doc *portfolio.Document
	now func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{now: func() time.Time { return time.Now().UTC() }}
}

func (m *MemoryRepo) GetData(ctx context.Context) (map[string]interface{}, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.doc == nil || m.doc.Data == nil {
		return map[string]interface{}{}, nil
	}
	return copyMap(m.doc.Data), nil
}

func (m *MemoryRepo) GetDocument(ctx context.Context) (*portfolio.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.doc == nil {
		return nil, ErrNotFound
	}
	d := *m.doc
	d.Data = copyMap(m.doc.Data)
	return &d, nil
}

func (m *MemoryRepo) ReplaceData(ctx context.Context, data map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.upsert()
	d.Data = copyMap(data)
	if d.Data == nil {
		d.Data = map[string]interface{}{}
	}
	return nil
}

func (m *MemoryRepo) GetSection(ctx context.Context, t portfolio.Target) (interface{}, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.doc == nil {
		return nil, ErrNotFound
	}
	v, ok := m.doc.Data[t.Section]
	if !ok || v == nil {
		return nil, ErrNotFound
	}
	return copyValue(v), nil
}

func (m *MemoryRepo) ReplaceSection(ctx context.Context, t portfolio.Target, value interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.upsert()
	d.Data[t.Section] = copyValue(value)
	return nil
}

func (m *MemoryRepo) AddItem(ctx context.Context, t portfolio.Target, item map[string]interface{}) (map[string]interface{}, error) {
	if !t.IsArray() {
		return nil, fmt.Errorf("%w: %q has no array field", portfolio.ErrInvalidTarget, t.String())
	}
	item = portfolio.WithItemID(item)

	m.mu.Lock()
	defer m.mu.Unlock()

	// validate before upserting so a rejected push leaves no trace
	var section map[string]interface{}
	if m.doc != nil {
		if raw, ok := m.doc.Data[t.Section]; ok {
			s, isMap := raw.(map[string]interface{})
			if !isMap {
				return nil, fmt.Errorf("%w: section %q is not an object", ErrNotArray, t.Section)
			}
			section = s
		}
	}
	var arr []interface{}
	if section != nil {
		if raw, ok := section[t.Field]; ok {
			a, isArr := asArray(raw)
			if !isArr {
				return nil, fmt.Errorf("%w: %q", ErrNotArray, t.String())
			}
			arr = a
		}
	}

	d := m.upsert()
	if section == nil {
		section = map[string]interface{}{}
		d.Data[t.Section] = section
	}
	section[t.Field] = append(arr, copyValue(item))
	return item, nil
}

func (m *MemoryRepo) RemoveItem(ctx context.Context, t portfolio.Target, id portfolio.Identifier) error {
	if !t.IsArray() {
		return fmt.Errorf("%w: %q has no array field", portfolio.ErrInvalidTarget, t.String())
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.doc == nil {
		return ErrNotFound
	}
	section, ok := m.doc.Data[t.Section].(map[string]interface{})
	if !ok {
		return ErrNotFound
	}
	arr, ok := asArray(section[t.Field])
	if !ok {
		return ErrNotFound
	}
	kept := make([]interface{}, 0, len(arr))
	for _, el := range arr {
		if obj, isObj := el.(map[string]interface{}); isObj && id.Matches(obj[portfolio.ItemIDField]) {
			continue
		}
		kept = append(kept, el)
	}
	if len(kept) == len(arr) {
		return ErrNotFound
	}
	section[t.Field] = kept
	m.doc.UpdatedAt = m.now()
	return nil
}

func (m *MemoryRepo) ReplaceItem(ctx context.Context, t portfolio.Target, id portfolio.Identifier, item map[string]interface{}) (map[string]interface{}, error) {
	if !t.IsArray() {
		return nil, fmt.Errorf("%w: %q has no array field", portfolio.ErrInvalidTarget, t.String())
	}
	item = withID(item, id)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.doc == nil {
		return nil, ErrNotFound
	}
	section, ok := m.doc.Data[t.Section].(map[string]interface{})
	if !ok {
		return nil, ErrNotFound
	}
	arr, ok := asArray(section[t.Field])
	if !ok {
		return nil, ErrNotFound
	}
	replaced := false
	for i, el := range arr {
		if obj, isObj := el.(map[string]interface{}); isObj && id.Matches(obj[portfolio.ItemIDField]) {
			arr[i] = copyValue(item)
			replaced = true
		}
	}
	if !replaced {
		return nil, ErrNotFound
	}
	m.doc.UpdatedAt = m.now()
	return item, nil
}

func (m *MemoryRepo) Seed(ctx context.Context, data map[string]interface{}) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.doc != nil {
		return false, nil
	}
	now := m.now()
	m.doc = &portfolio.Document{
		ID:        primitive.NewObjectID(),
		Type:      portfolio.DocumentType,
		Data:      copyMap(data),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if m.doc.Data == nil {
		m.doc.Data = map[string]interface{}{}
	}
	return true, nil
}

// upsert returns the document, creating it on first write, and refreshes
// updatedAt. Callers hold m.mu.
func (m *MemoryRepo) upsert() *portfolio.Document {
	now := m.now()
	if m.doc == nil {
		m.doc = &portfolio.Document{
			ID:        primitive.NewObjectID(),
			Type:      portfolio.DocumentType,
			Data:      map[string]interface{}{},
			CreatedAt: now,
		}
	}
	m.doc.UpdatedAt = now
	return m.doc
}

func asArray(v interface{}) ([]interface{}, bool) {
	switch a := v.(type) {
	case []interface{}:
		return a, true
	case primitive.A:
		return []interface{}(a), true
	}
	return nil, false
}

func copyMap(in map[string]interface{}) map[string]interface{} {
	if in == nil {
		return nil
	}
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v interface{}) interface{} {
	switch x := v.(type) {
	case map[string]interface{}:
		return copyMap(x)
	case primitive.M:
		return copyMap(map[string]interface{}(x))
	case []interface{}:
		out := make([]interface{}, len(x))
		for i, el := range x {
			out[i] = copyValue(el)
		}
		return out
	case primitive.A:
		return copyValue([]interface{}(x))
	}
	return v
}
