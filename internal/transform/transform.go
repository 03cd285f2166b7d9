package transform

import (
	"errors"
	"fmt"
	"strings"
)

// Phase selects where in the pipeline a transformer runs.
type Phase int

const (
	// PreParse transformers see the raw template before placeholders are
	// resolved.
	PreParse Phase = iota
	// PostParse transformers see parsed content before it reaches the
	// generators.
	PostParse
)

func (p Phase) String() string {
	switch p {
	case PreParse:
		return "pre-parse"
	case PostParse:
		return "post-parse"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// ParsePhase converts "pre-parse" / "post-parse" into a Phase.
func ParsePhase(s string) (Phase, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pre-parse", "pre", "":
		return PreParse, nil
	case "post-parse", "post":
		return PostParse, nil
	}
	return 0, fmt.Errorf("unknown transformer phase %q", s)
}

// Transformer rewrites document content.
type Transformer interface {
	Name() string
	Phase() Phase
	Transform(content []byte) ([]byte, error)
}

type funcTransformer struct {
	name  string
	phase Phase
	fn    func([]byte) ([]byte, error)
}

// Func adapts a function into a Transformer.
func Func(name string, phase Phase, fn func([]byte) ([]byte, error)) Transformer {
	return &funcTransformer{name: name, phase: phase, fn: fn}
}

func (f *funcTransformer) Name() string                       { return f.name }
func (f *funcTransformer) Phase() Phase                       { return f.phase }
func (f *funcTransformer) Transform(b []byte) ([]byte, error) { return f.fn(b) }

type phased struct {
	Transformer
	phase Phase
}

func (p phased) Phase() Phase { return p.phase }

// WithPhase overrides the phase t runs in.
func WithPhase(t Transformer, phase Phase) Transformer {
	return phased{Transformer: t, phase: phase}
}

// Error reports a transformer that rejected content. It aborts the render.
type Error struct {
	Index int
	Name  string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transformer %d (%s): %v", e.Index, e.Name, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsTransformError checks if err is or wraps a transform Error.
func IsTransformError(err error) bool {
	var target *Error
	return errors.As(err, &target)
}
