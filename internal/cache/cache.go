// Package cache stores rendered artifacts by fingerprint. Every backend is
// best effort: callers treat errors as misses.
package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgallion1/docmerge/internal/generator"
)

// Cache is an external artifact store keyed by render fingerprint.
type Cache interface {
	Get(ctx context.Context, key string) ([]generator.Artifact, bool, error)
	Put(ctx context.Context, key string, artifacts []generator.Artifact) error
}

// Error reports a failed cache operation.
type Error struct {
	Backend string
	Op      string
	Key     string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("cache %s %s %s: %v", e.Backend, e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsCacheError checks if err is or wraps a cache Error.
func IsCacheError(err error) bool {
	var target *Error
	return errors.As(err, &target)
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]generator.Artifact, bool, error) { return nil, false, nil }
func (Nop) Put(context.Context, string, []generator.Artifact) error         { return nil }
