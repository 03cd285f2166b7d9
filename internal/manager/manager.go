// Package manager sequences document lookup, transformation, parsing and
// generation, with availability filtering and artifact caching.
package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dgallion1/docmerge/internal/cache"
	"github.com/dgallion1/docmerge/internal/document"
	"github.com/dgallion1/docmerge/internal/engine"
	"github.com/dgallion1/docmerge/internal/generator"
	"github.com/dgallion1/docmerge/internal/placeholder"
	"github.com/dgallion1/docmerge/internal/stats"
	"github.com/dgallion1/docmerge/internal/transform"
)

// ErrUnknownEngine is returned when a render names an engine that was
// never registered.
var ErrUnknownEngine = errors.New("unknown engine")

// Manager is the entry point for document discovery and rendering.
type Manager struct {
	docs          *document.Chain
	engines       map[string]*engine.Engine
	engineOrder   []string
	defaultEngine string
	transformers  *transform.Chain
	cache         cache.Cache
	stats         *stats.RenderStats
	log           *slog.Logger

	mu         sync.RWMutex
	persistent *placeholder.Set
	factory    placeholder.Factory

	flight singleflight.Group
}

// Option configures a Manager.
type Option func(*Manager) error

// WithEngine registers an engine under key. The first registered engine is
// the default unless WithDefaultEngine says otherwise.
func WithEngine(key string, e *engine.Engine) Option {
	return func(m *Manager) error {
		if e == nil {
			return fmt.Errorf("engine %q is nil", key)
		}
		if _, dup := m.engines[key]; dup {
			return fmt.Errorf("engine %q registered twice", key)
		}
		m.engines[key] = e
		m.engineOrder = append(m.engineOrder, key)
		return nil
	}
}

// WithDefaultEngine selects the engine used when a render doesn't name one.
func WithDefaultEngine(key string) Option {
	return func(m *Manager) error {
		m.defaultEngine = key
		return nil
	}
}

// WithTransformers sets the transformer chain. Pre-parse stages run on the
// raw document, post-parse stages run inside the engine.
func WithTransformers(c *transform.Chain) Option {
	return func(m *Manager) error {
		m.transformers = c
		return nil
	}
}

// WithCache enables artifact caching.
func WithCache(c cache.Cache) Option {
	return func(m *Manager) error {
		m.cache = c
		return nil
	}
}

// WithLogger sets the logger for render and cache events.
func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) error {
		m.log = log
		return nil
	}
}

// WithPlaceholderFactory sets the initial factory for raw mappings.
func WithPlaceholderFactory(fn placeholder.Factory) Option {
	return func(m *Manager) error {
		m.factory = fn
		return nil
	}
}

// WithStats records every render outcome into s.
func WithStats(s *stats.RenderStats) Option {
	return func(m *Manager) error {
		m.stats = s
		return nil
	}
}

// New builds a manager over a provider chain.
func New(docs *document.Chain, opts ...Option) (*Manager, error) {
	if docs == nil {
		docs = document.NewChain()
	}
	m := &Manager{
		docs:       docs,
		engines:    make(map[string]*engine.Engine),
		persistent: placeholder.NewSet(),
		factory:    placeholder.DefaultFactory,
		log:        slog.Default(),
	}
	for _, o := range opts {
		if err := o(m); err != nil {
			return nil, err
		}
	}
	if m.factory == nil {
		m.factory = placeholder.DefaultFactory
	}
	if m.defaultEngine == "" && len(m.engineOrder) > 0 {
		m.defaultEngine = m.engineOrder[0]
	}
	if m.defaultEngine != "" {
		if _, ok := m.engines[m.defaultEngine]; !ok {
			return nil, fmt.Errorf("default engine: %w: %q", ErrUnknownEngine, m.defaultEngine)
		}
	}
	return m, nil
}

// Engines returns registered engine keys in registration order.
func (m *Manager) Engines() []string {
	return append([]string(nil), m.engineOrder...)
}

// DefaultEngine returns the key used when a render names no engine.
func (m *Manager) DefaultEngine() string { return m.defaultEngine }

// SetPersistentPlaceholders replaces the baseline placeholders merged under
// every call. nil clears them.
func (m *Manager) SetPersistentPlaceholders(input any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if input == nil {
		m.persistent = placeholder.NewSet()
		return nil
	}
	c, err := placeholder.Resolve(input, m.factory)
	if err != nil {
		return err
	}
	m.persistent = placeholder.Clone(c)
	return nil
}

// PersistentPlaceholders returns a copy of the baseline placeholders.
func (m *Manager) PersistentPlaceholders() placeholder.Collection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return placeholder.Clone(m.persistent)
}

// SetPlaceholderFactory changes how raw mappings become collections. nil
// restores the default.
func (m *Manager) SetPlaceholderFactory(fn placeholder.Factory) {
	if fn == nil {
		fn = placeholder.DefaultFactory
	}
	m.mu.Lock()
	m.factory = fn
	m.mu.Unlock()
}

// Effective merges call placeholders over the persistent ones. input may
// be nil, a Collection or a raw mapping.
func (m *Manager) Effective(input any) (placeholder.Collection, error) {
	m.mu.RLock()
	base := m.persistent
	factory := m.factory
	m.mu.RUnlock()

	var call placeholder.Collection
	if input != nil {
		c, err := placeholder.Resolve(input, factory)
		if err != nil {
			return nil, err
		}
		call = c
	}
	// base is never mutated in place, so merging outside the lock is safe.
	return placeholder.Merge(base, call, placeholder.Override), nil
}

// DocumentList returns the documents whose requirements are met by the
// effective placeholders, in provider order.
func (m *Manager) DocumentList(ctx context.Context, input any) ([]document.Summary, error) {
	eff, err := m.Effective(input)
	if err != nil {
		return nil, err
	}
	docs, err := m.docs.ListAvailable(ctx, eff.Names())
	if err != nil {
		return nil, err
	}
	out := make([]document.Summary, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Summary())
	}
	return out, nil
}

type renderOptions struct {
	engine string
}

// RenderOption adjusts a single render call.
type RenderOption func(*renderOptions)

// UsingEngine selects a registered engine for one render.
func UsingEngine(key string) RenderOption {
	return func(o *renderOptions) { o.engine = key }
}

// Render produces every artifact of the selected engine for a document.
// Either all generators succeed or an error is returned. Stage errors are
// returned unchanged.
func (m *Manager) Render(ctx context.Context, name string, input any, opts ...RenderOption) ([]generator.Artifact, error) {
	ro := renderOptions{engine: m.defaultEngine}
	for _, o := range opts {
		o(&ro)
	}
	eng, ok := m.engines[ro.engine]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, ro.engine)
	}
	log := m.log.With("document", name, "engine", ro.engine)
	start := time.Now()

	eff, err := m.Effective(input)
	if err != nil {
		return nil, err
	}
	doc, err := m.docs.Get(ctx, name, eff.Names())
	if err != nil {
		return nil, err
	}

	fp := Fingerprint(doc.ID, doc.Content, eff, eng.Identity(), m.transformers.Identity())
	if arts, ok := m.cacheGet(ctx, log, fp); ok {
		log.Debug("cache hit", "fingerprint", fp)
		m.stats.Record(ro.engine, time.Since(start), stats.CacheHit)
		return arts, nil
	}

	// The shared render is detached from any one caller, so a departing
	// leader doesn't fail the callers waiting on the same fingerprint.
	flightCtx := context.WithoutCancel(ctx)
	ch := m.flight.DoChan(fp, func() (any, error) {
		// A caller that finished between our miss and this call already
		// filled the cache.
		if arts, ok := m.cacheGet(flightCtx, log, fp); ok {
			return arts, nil
		}
		content, err := m.transformers.Apply(transform.PreParse, doc.Content)
		if err != nil {
			return nil, err
		}
		arts, err := eng.Render(flightCtx, content, eff, m.transformers)
		if err != nil {
			return nil, err
		}
		for i := range arts {
			arts[i].Fingerprint = fp
		}
		if m.cache != nil {
			if err := m.cache.Put(flightCtx, fp, arts); err != nil {
				log.Warn("cache put failed", "fingerprint", fp, "error", err)
			}
		}
		log.Info("rendered document", "artifacts", len(arts), "duration_ms", time.Since(start).Milliseconds())
		return arts, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		m.stats.Record(ro.engine, time.Since(start), stats.Failed)
		log.Debug("render abandoned", "error", ctx.Err())
		return nil, ctx.Err()
	}
	if res.Err != nil {
		m.stats.Record(ro.engine, time.Since(start), stats.Failed)
		log.Debug("render failed", "error", res.Err, "shared", res.Shared)
		return nil, res.Err
	}
	m.stats.Record(ro.engine, time.Since(start), stats.Generated)
	return generator.CloneAll(res.Val.([]generator.Artifact)), nil
}

// cacheGet treats every cache failure as a miss.
func (m *Manager) cacheGet(ctx context.Context, log *slog.Logger, fp string) ([]generator.Artifact, bool) {
	if m.cache == nil {
		return nil, false
	}
	arts, ok, err := m.cache.Get(ctx, fp)
	if err != nil {
		log.Warn("cache get failed", "fingerprint", fp, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return generator.CloneAll(arts), true
}
