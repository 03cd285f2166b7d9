// Package app wires configuration into a ready document manager. The HTTP
// server and the CLI share it.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dgallion1/docmerge/internal/cache"
	"github.com/dgallion1/docmerge/internal/config"
	"github.com/dgallion1/docmerge/internal/document"
	"github.com/dgallion1/docmerge/internal/engine"
	"github.com/dgallion1/docmerge/internal/generator"
	"github.com/dgallion1/docmerge/internal/manager"
	"github.com/dgallion1/docmerge/internal/parser"
	"github.com/dgallion1/docmerge/internal/stats"
	"github.com/dgallion1/docmerge/internal/transform"
)

// Engine keys registered by Build.
const (
	EnginePrint = "print"
	EngineEmail = "email"
	EngineText  = "text"
)

// App holds the wired manager and the resources it owns.
type App struct {
	Manager *manager.Manager
	Stats   *stats.RenderStats

	closers []func() error
}

// Build constructs providers, engines, transformers and the artifact
// cache from cfg.
func Build(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	a := &App{Stats: stats.NewRenderStats(cfg.StatsWindow)}

	docs, err := a.providers(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	c, err := a.openCache(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	transformers := transform.NewChain().
		Push(transform.NewMarkdown()).
		Push(transform.CodeLineNumbers{})

	printGens := generator.NewChain(generator.WithConcurrency(2)).
		Push(generator.NewPDF(cfg.WkhtmltopdfPath)).
		Push(generator.DOCX{})
	emailGens := generator.NewChain().
		Push(generator.NewEmail(cfg.EmailFrom)).
		Push(generator.NewHTML())
	textGens := generator.NewChain().Push(generator.Text{})

	markup, plain := templateParsers(cfg.TemplateSyntax)

	opts := []manager.Option{
		manager.WithLogger(log),
		manager.WithStats(a.Stats),
		manager.WithTransformers(transformers),
		manager.WithEngine(EnginePrint, engine.MustNew(EnginePrint, markup, printGens)),
		manager.WithEngine(EngineEmail, engine.MustNew(EngineEmail, markup, emailGens)),
		manager.WithEngine(EngineText, engine.MustNew(EngineText, plain, textGens)),
	}
	if c != nil {
		opts = append(opts, manager.WithCache(c))
	}

	mgr, err := manager.New(docs, opts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Manager = mgr

	log.Info("document manager ready",
		"providers", docs.Len(),
		"engines", mgr.Engines(),
		"cache", cfg.CacheBackend,
	)
	return a, nil
}

// templateParsers returns the parser for HTML-bound engines and the one
// for plain text output.
func templateParsers(syntax string) (markup, plain parser.Parser) {
	if syntax == "gotemplate" {
		p := parser.NewGoTemplate()
		return p, p
	}
	return parser.NewHTMLBraces(), parser.NewBraces()
}

func (a *App) providers(cfg config.Config) (*document.Chain, error) {
	docs := document.NewChain()
	if cfg.TemplateDir != "" {
		var opts []document.FSOption
		// Go templates declare requirements in front matter only.
		if cfg.TemplateSyntax != "gotemplate" {
			opts = append(opts, document.WithDependencyScan(parser.NewBraces().Dependencies))
		}
		docs.Push(document.NewFS(cfg.TemplateDir, opts...))
	}
	if cfg.TemplateDB != "" {
		db, err := document.OpenSQLite(cfg.TemplateDB)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		docs.Push(db)
	}
	if docs.Len() == 0 {
		return nil, fmt.Errorf("no template source configured")
	}
	return docs, nil
}

func (a *App) openCache(ctx context.Context, cfg config.Config) (cache.Cache, error) {
	switch cfg.CacheBackend {
	case "none":
		return nil, nil
	case "", "memory":
		return cache.NewMemory(cache.MemoryConfig{MaxEntries: cfg.CacheMaxEntries, TTL: cfg.CacheTTL}), nil
	case "sqlite":
		c, err := cache.OpenSQLite(cfg.CacheDB, cfg.CacheTTL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, c.Close)
		return c, nil
	case "s3":
		c, err := cache.NewS3(ctx, cache.S3Config{
			Region:          cfg.S3Region,
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Endpoint:        cfg.S3Endpoint,
			UsePathStyle:    cfg.S3UsePathStyle,
			TTL:             cfg.CacheTTL,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	case "kv":
		c := cache.NewKV(cfg.KVURL, cfg.KVAPIKey, "docmerge/artifacts", cfg.CacheTTL)
		a.closers = append(a.closers, func() error { c.Close(); return nil })
		return c, nil
	}
	return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
}

// Close releases databases and connections in reverse open order.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
