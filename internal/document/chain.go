package document

import (
	"context"
	"fmt"
)

// Precedence decides which provider's document survives an id collision.
type Precedence int

const (
	// FirstWins keeps the document from the earliest pushed provider.
	FirstWins Precedence = iota
	// LastWins keeps the document from the latest pushed provider.
	LastWins
)

// Chain is an ordered list of providers. Query order is push order.
type Chain struct {
	providers  []Provider
	precedence Precedence
}

// ChainOption configures a Chain.
type ChainOption func(*Chain)

// WithPrecedence overrides the default FirstWins collision policy.
func WithPrecedence(p Precedence) ChainOption {
	return func(c *Chain) { c.precedence = p }
}

// NewChain returns a chain holding providers in the given order.
func NewChain(opts ...ChainOption) *Chain {
	c := &Chain{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Push appends a provider and returns the chain.
func (c *Chain) Push(p Provider) *Chain {
	c.providers = append(c.providers, p)
	return c
}

// Providers returns the providers in query order.
func (c *Chain) Providers() []Provider {
	out := make([]Provider, len(c.providers))
	copy(out, c.providers)
	return out
}

// Len returns the number of providers.
func (c *Chain) Len() int {
	return len(c.providers)
}

// ListAvailable returns every document whose requirements are a subset of
// available, in provider order. Colliding ids are resolved by the chain's
// precedence; the surviving document keeps the position of the first
// occurrence.
func (c *Chain) ListAvailable(ctx context.Context, available []string) ([]Document, error) {
	var out []Document
	index := make(map[string]int)

	for _, p := range c.providers {
		docs, err := p.ListDocuments(ctx)
		if err != nil {
			return nil, fmt.Errorf("list documents from %s: %w", p.Name(), err)
		}
		for _, d := range docs {
			if d.Origin == "" {
				d.Origin = p.Name()
			}
			if i, seen := index[d.ID]; seen {
				if c.precedence == LastWins {
					out[i] = d
				}
				continue
			}
			index[d.ID] = len(out)
			out = append(out, d)
		}
	}

	// Filter after collision resolution so a hidden document cannot
	// resurface through a lower-precedence provider.
	filtered := out[:0]
	for _, d := range out {
		if d.Satisfied(available) {
			filtered = append(filtered, d)
		}
	}
	return filtered, nil
}

// Get fetches one document by id, honoring the same precedence and
// availability filter as ListAvailable.
func (c *Chain) Get(ctx context.Context, id string, available []string) (Document, error) {
	order := c.providers
	if c.precedence == LastWins {
		order = make([]Provider, len(c.providers))
		for i, p := range c.providers {
			order[len(c.providers)-1-i] = p
		}
	}

	for _, p := range order {
		d, err := p.FetchDocument(ctx, id)
		if IsNotFound(err) {
			continue
		}
		if err != nil {
			return Document{}, fmt.Errorf("fetch document %s from %s: %w", id, p.Name(), err)
		}
		if d.Origin == "" {
			d.Origin = p.Name()
		}
		if !d.Satisfied(available) {
			return Document{}, &NotFoundError{ID: id, Missing: d.Missing(available)}
		}
		return d, nil
	}
	return Document{}, &NotFoundError{ID: id}
}
