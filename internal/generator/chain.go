package generator

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// Chain runs its generators concurrently against the same content and
// returns their artifacts in push order. The first failure cancels the
// rest and no artifacts are returned.
type Chain struct {
	gens        []Generator
	concurrency int
}

// ChainOption configures a Chain.
type ChainOption func(*Chain)

// WithConcurrency bounds how many generators run at once. n <= 0 means one
// goroutine per generator.
func WithConcurrency(n int) ChainOption {
	return func(c *Chain) { c.concurrency = n }
}

func NewChain(opts ...ChainOption) *Chain {
	c := &Chain{}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Push appends a generator.
func (c *Chain) Push(g Generator) *Chain {
	c.gens = append(c.gens, g)
	return c
}

func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.gens)
}

// Identity lists generator names in push order.
func (c *Chain) Identity() string {
	if c == nil {
		return ""
	}
	names := make([]string, len(c.gens))
	for i, g := range c.gens {
		names[i] = g.Name() + ":" + g.Format()
	}
	return strings.Join(names, ",")
}

// Generate invokes every generator. When several fail, the one with the
// lowest push index is reported; failures caused only by the chain's own
// cancellation are not counted.
func (c *Chain) Generate(ctx context.Context, content []byte) ([]Artifact, error) {
	n := c.Len()
	if n == 0 {
		return nil, nil
	}
	limit := c.concurrency
	if limit <= 0 || limit > n {
		limit = n
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]Artifact, n)
	errs := make([]error, n)
	// induced marks failures caused by a sibling cancelling the chain.
	induced := make([]bool, n)
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup

	for i, g := range c.gens {
		wg.Add(1)
		go func(i int, g Generator) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-runCtx.Done():
				errs[i], induced[i] = runCtx.Err(), ctx.Err() == nil
				return
			}
			defer func() { <-sem }()
			if err := runCtx.Err(); err != nil {
				errs[i], induced[i] = err, ctx.Err() == nil
				return
			}

			a, err := g.Generate(runCtx, content)
			if err != nil {
				errs[i] = err
				induced[i] = ctx.Err() == nil && runCtx.Err() != nil && errors.Is(err, context.Canceled)
				cancel()
				return
			}
			if a.Generator == "" {
				a.Generator = g.Name()
			}
			if a.Format == "" {
				a.Format = g.Format()
			}
			results[i] = a
		}(i, g)
	}
	wg.Wait()

	first := -1
	for i, err := range errs {
		if err != nil && !induced[i] {
			first = i
			break
		}
	}
	if first < 0 {
		for i, err := range errs {
			if err != nil {
				first = i
				break
			}
		}
	}
	if first >= 0 {
		return nil, &Error{Index: first, Name: c.gens[first].Name(), Err: errs[first]}
	}
	return results, nil
}
