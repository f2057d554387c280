package scenarios

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-process Store for local development and tests
type MemoryStore struct {
	mu      sync.RWMutex
	public  map[string]Document
	private map[string]privateDoc
}

type privateDoc struct {
	owner string
	doc   Document
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		public:  make(map[string]Document),
		private: make(map[string]privateDoc),
	}
}

// PutPublic stores doc in the public space under id
func (s *MemoryStore) PutPublic(id string, doc Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.public[id] = withID(doc, id)
}

// PutPrivate stores doc in owner's private space under id
func (s *MemoryStore) PutPrivate(id, owner string, doc Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := withID(doc, id)
	stored[KeyOwner] = owner
	s.private[id] = privateDoc{owner: owner, doc: stored}
}

func (s *MemoryStore) FindPublic(ctx context.Context, id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.public[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(doc), nil
}

func (s *MemoryStore) FindPrivate(ctx context.Context, id, ownerID string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.private[id]
	if !ok || p.owner != ownerID {
		return nil, ErrNotFound
	}
	return clone(p.doc), nil
}

func (s *MemoryStore) ListPublic(ctx context.Context, modelID string) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Document
	for _, id := range sortedKeys(s.public) {
		doc := s.public[id]
		if modelID == "" || doc.ModelID() == modelID {
			out = append(out, doc.Summary(false))
		}
	}
	return out, nil
}

func (s *MemoryStore) ListPrivate(ctx context.Context, ownerID, modelID string) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Document
	for _, id := range sortedKeys(s.private) {
		p := s.private[id]
		if p.owner != ownerID {
			continue
		}
		if modelID == "" || p.doc.ModelID() == modelID {
			out = append(out, p.doc.Summary(true))
		}
	}
	return out, nil
}

func (s *MemoryStore) DeletePrivate(ctx context.Context, id, ownerID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.private[id]
	if !ok || p.owner != ownerID {
		return false, nil
	}
	delete(s.private, id)
	return true, nil
}

func (s *MemoryStore) FilterOutputs(ctx context.Context, ids, names []string, ownerID *string) ([]OutputGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var docs []Document
	for _, id := range ids {
		if ownerID == nil {
			if doc, ok := s.public[id]; ok {
				docs = append(docs, doc)
			}
			continue
		}
		if p, ok := s.private[id]; ok && p.owner == *ownerID {
			docs = append(docs, p.doc)
		}
	}
	return GroupOutputs(docs, names), nil
}

func withID(doc Document, id string) Document {
	out := clone(doc)
	out[KeyID] = id
	return out
}

// clone deep-copies the maps and slices decoded from JSON, so a caller
// editing a nested value never reaches a stored or cached document
func clone(doc Document) Document {
	if doc == nil {
		return nil
	}
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Document:
		return clone(t)
	case map[string]any:
		return map[string]any(clone(t))
	case []any:
		if t == nil {
			return t
		}
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	case []map[string]any:
		if t == nil {
			return t
		}
		out := make([]map[string]any, len(t))
		for i, item := range t {
			out[i] = map[string]any(clone(item))
		}
		return out
	default:
		return v
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
