package generator

import (
	"context"
	"errors"
	"fmt"
	"maps"
)

// Artifact is one rendered output produced by one generator.
type Artifact struct {
	Format      string            `json:"format"`
	MediaType   string            `json:"media_type"`
	Generator   string            `json:"generator"`
	Data        []byte            `json:"data"`
	Fingerprint string            `json:"fingerprint,omitempty"`
	Meta        map[string]string `json:"meta,omitempty"`
}

// Clone returns a deep copy so callers can't mutate shared results.
func (a Artifact) Clone() Artifact {
	out := a
	out.Data = append([]byte(nil), a.Data...)
	if a.Meta != nil {
		out.Meta = maps.Clone(a.Meta)
	}
	return out
}

// CloneAll deep-copies a slice of artifacts.
func CloneAll(in []Artifact) []Artifact {
	if in == nil {
		return nil
	}
	out := make([]Artifact, len(in))
	for i, a := range in {
		out[i] = a.Clone()
	}
	return out
}

// Generator turns parsed content into one artifact. Generators in a chain
// all receive the same input and must not depend on each other.
type Generator interface {
	Name() string
	Format() string
	Generate(ctx context.Context, content []byte) (Artifact, error)
}

type funcGenerator struct {
	name, format, mediaType string
	fn                      func(ctx context.Context, content []byte) ([]byte, error)
}

// Func adapts a function into a Generator.
func Func(name, format, mediaType string, fn func(ctx context.Context, content []byte) ([]byte, error)) Generator {
	return &funcGenerator{name: name, format: format, mediaType: mediaType, fn: fn}
}

func (g *funcGenerator) Name() string   { return g.name }
func (g *funcGenerator) Format() string { return g.format }

func (g *funcGenerator) Generate(ctx context.Context, content []byte) (Artifact, error) {
	data, err := g.fn(ctx, content)
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{Format: g.format, MediaType: g.mediaType, Generator: g.name, Data: data}, nil
}

// Error reports which generator in a chain failed.
type Error struct {
	Index int
	Name  string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("generator %d (%s): %v", e.Index, e.Name, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsGenerationError checks if err is or wraps a generator Error.
func IsGenerationError(err error) bool {
	var target *Error
	return errors.As(err, &target)
}
