package transform

import "strings"

// Chain is an ordered list of transformers. Execution order is push order.
type Chain struct {
	stages []Transformer
}

// NewChain returns an empty chain.
func NewChain() *Chain {
	return &Chain{}
}

// Push appends a transformer and returns the chain.
func (c *Chain) Push(t Transformer) *Chain {
	c.stages = append(c.stages, t)
	return c
}

// Len returns the number of transformers across both phases.
func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.stages)
}

// Apply runs every transformer registered for phase, each consuming the
// previous output. The first failure aborts the chain. A nil chain
// returns content unchanged.
func (c *Chain) Apply(phase Phase, content []byte) ([]byte, error) {
	if c == nil {
		return content, nil
	}
	out := content
	for i, t := range c.stages {
		if t.Phase() != phase {
			continue
		}
		next, err := t.Transform(out)
		if err != nil {
			return nil, &Error{Index: i, Name: t.Name(), Err: err}
		}
		out = next
	}
	return out, nil
}

// Identity describes the chain for cache fingerprints.
func (c *Chain) Identity() string {
	if c == nil {
		return ""
	}
	parts := make([]string, 0, len(c.stages))
	for _, t := range c.stages {
		parts = append(parts, t.Name()+"@"+t.Phase().String())
	}
	return strings.Join(parts, ",")
}
