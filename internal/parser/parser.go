package parser

import (
	"errors"
	"fmt"

	"github.com/dgallion1/docmerge/internal/placeholder"
)

// Parser resolves placeholder expressions embedded in content. Parsing
// must be deterministic and free of side effects.
type Parser interface {
	Name() string
	Parse(content []byte, c placeholder.Collection) ([]byte, error)
}

// UnresolvedError reports an expression that references a placeholder
// missing from the collection.
type UnresolvedError struct {
	Name     string
	Position int
}

func (e *UnresolvedError) Error() string {
	if e.Position >= 0 {
		return fmt.Sprintf("unresolved placeholder %q at offset %d", e.Name, e.Position)
	}
	return fmt.Sprintf("unresolved placeholder %q", e.Name)
}

// SyntaxError reports a malformed expression.
type SyntaxError struct {
	Expression string
	Position   int
	Message    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at offset %d in %q: %s", e.Position, e.Expression, e.Message)
}

// IsUnresolved checks if err is or wraps an UnresolvedError.
func IsUnresolved(err error) bool {
	var target *UnresolvedError
	return errors.As(err, &target)
}

// IsSyntax checks if err is or wraps a SyntaxError.
func IsSyntax(err error) bool {
	var target *SyntaxError
	return errors.As(err, &target)
}
