// Package engine binds one template parser to one generator chain.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgallion1/docmerge/internal/generator"
	"github.com/dgallion1/docmerge/internal/parser"
	"github.com/dgallion1/docmerge/internal/placeholder"
	"github.com/dgallion1/docmerge/internal/transform"
)

// Engine is one output pipeline, e.g. "print" or "email". It is immutable
// once built and safe for concurrent use.
type Engine struct {
	id     string
	parser parser.Parser
	gens   *generator.Chain
}

// New builds an engine. The generator chain must not be pushed to after
// this call.
func New(id string, p parser.Parser, g *generator.Chain) (*Engine, error) {
	if id == "" {
		return nil, errors.New("engine id is required")
	}
	if p == nil {
		return nil, fmt.Errorf("engine %s: parser is required", id)
	}
	if g == nil {
		g = generator.NewChain()
	}
	return &Engine{id: id, parser: p, gens: g}, nil
}

// MustNew is New for static wiring.
func MustNew(id string, p parser.Parser, g *generator.Chain) *Engine {
	e, err := New(id, p, g)
	if err != nil {
		panic(err)
	}
	return e
}

func (e *Engine) ID() string { return e.id }

// Parser returns the engine's template parser.
func (e *Engine) Parser() parser.Parser { return e.parser }

// Identity describes the parser and generators for cache fingerprints.
func (e *Engine) Identity() string {
	return fmt.Sprintf("%s|%s|%s", e.id, e.parser.Name(), e.gens.Identity())
}

// Render parses content, runs post-parse transformers, then generates.
// post may be nil.
func (e *Engine) Render(ctx context.Context, content []byte, c placeholder.Collection, post *transform.Chain) ([]generator.Artifact, error) {
	parsed, err := e.parser.Parse(content, c)
	if err != nil {
		return nil, err
	}
	parsed, err = post.Apply(transform.PostParse, parsed)
	if err != nil {
		return nil, err
	}
	return e.gens.Generate(ctx, parsed)
}
