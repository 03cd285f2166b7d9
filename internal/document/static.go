package document

import (
	"context"
	"sync"
)

// Static serves a fixed, in-memory set of documents. It doubles as the
// echo source used in tests and demos.
type Static struct {
	name string

	mu    sync.RWMutex
	order []string
	docs  map[string]Document
}

// NewStatic returns a provider serving docs in the given order.
func NewStatic(name string, docs ...Document) *Static {
	s := &Static{name: name, docs: make(map[string]Document)}
	for _, d := range docs {
		s.Add(d)
	}
	return s
}

// Add registers or replaces a document.
func (s *Static) Add(d Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.Origin == "" {
		d.Origin = s.name
	}
	if _, ok := s.docs[d.ID]; !ok {
		s.order = append(s.order, d.ID)
	}
	s.docs[d.ID] = d
}

func (s *Static) Name() string { return s.name }

func (s *Static) ListDocuments(ctx context.Context) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Document, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.docs[id])
	}
	return out, nil
}

func (s *Static) FetchDocument(ctx context.Context, id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs[id]
	if !ok {
		return Document{}, &NotFoundError{ID: id}
	}
	return d, nil
}
