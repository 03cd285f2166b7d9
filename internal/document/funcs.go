package document

import (
	"context"
	"fmt"
	"sort"
)

// Builder produces the content of a code-defined document.
type Builder func(ctx context.Context) ([]byte, error)

// FuncEntry describes one code-defined document.
type FuncEntry struct {
	Title    string
	Format   string
	Requires []string
	Build    Builder
}

// Funcs is a provider whose documents are produced by registered
// functions. Documents are listed in id order.
type Funcs struct {
	name    string
	entries map[string]FuncEntry
}

// NewFuncs returns a provider over the given entries keyed by document id.
func NewFuncs(name string, entries map[string]FuncEntry) *Funcs {
	m := make(map[string]FuncEntry, len(entries))
	for id, e := range entries {
		m[id] = e
	}
	return &Funcs{name: name, entries: m}
}

func (f *Funcs) Name() string { return f.name }

func (f *Funcs) ListDocuments(ctx context.Context) ([]Document, error) {
	ids := make([]string, 0, len(f.entries))
	for id := range f.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]Document, 0, len(ids))
	for _, id := range ids {
		d, err := f.build(ctx, id, f.entries[id])
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func (f *Funcs) FetchDocument(ctx context.Context, id string) (Document, error) {
	e, ok := f.entries[id]
	if !ok {
		return Document{}, &NotFoundError{ID: id}
	}
	return f.build(ctx, id, e)
}

func (f *Funcs) build(ctx context.Context, id string, e FuncEntry) (Document, error) {
	var content []byte
	if e.Build != nil {
		var err error
		content, err = e.Build(ctx)
		if err != nil {
			return Document{}, fmt.Errorf("build %s: %w", id, err)
		}
	}
	return Document{
		ID:       id,
		Title:    e.Title,
		Format:   e.Format,
		Requires: e.Requires,
		Content:  content,
		Origin:   f.name,
	}, nil
}
