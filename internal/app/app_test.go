package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docmerge/internal/config"
	"github.com/dgallion1/docmerge/internal/manager"
)

const welcome = `---
title: Welcome
---
<meta name="email-to" content="{{ email }}">

# Hello {{ customer }}

Thanks for joining.
`

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "welcome.md"), []byte(welcome), 0o644))
	return config.Config{
		TemplateDir:     dir,
		CacheBackend:    "memory",
		CacheMaxEntries: 10,
		CacheTTL:        time.Hour,
		EmailFrom:       "noreply@example.com",
		StatsWindow:     time.Hour,
	}
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuild_EmailRender(t *testing.T) {
	a, err := Build(context.Background(), testConfig(t), quiet())
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, []string{EnginePrint, EngineEmail, EngineText}, a.Manager.Engines())
	assert.Equal(t, EnginePrint, a.Manager.DefaultEngine())

	ctx := context.Background()
	list, err := a.Manager.DocumentList(ctx, map[string]any{"customer": "Ada"})
	require.NoError(t, err)
	assert.Empty(t, list, "expected welcome to need the email placeholder")

	input := map[string]any{"customer": "Ada", "email": "ada@example.com"}
	list, err = a.Manager.DocumentList(ctx, input)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Welcome", list[0].Title)

	arts, err := a.Manager.Render(ctx, "welcome", input, manager.UsingEngine(EngineEmail))
	require.NoError(t, err)
	require.Len(t, arts, 2)
	assert.Equal(t, "eml", arts[0].Format)
	assert.Contains(t, string(arts[0].Data), "To: <ada@example.com>")
	assert.Equal(t, "html", arts[1].Format)
	assert.Contains(t, string(arts[1].Data), "<h1>Hello Ada</h1>")

	_, err = a.Manager.Render(ctx, "welcome", input, manager.UsingEngine(EngineEmail))
	require.NoError(t, err)
	snap := a.Stats.Snapshot(EngineEmail)
	assert.Equal(t, 2, snap.Count)
	assert.Equal(t, 1, snap.Cached)
}

func TestBuild_TextEngine(t *testing.T) {
	a, err := Build(context.Background(), testConfig(t), quiet())
	require.NoError(t, err)
	defer a.Close()

	arts, err := a.Manager.Render(context.Background(), "welcome",
		map[string]any{"customer": "Ada & Co", "email": "ada@example.com"},
		manager.UsingEngine(EngineText))
	require.NoError(t, err)
	require.Len(t, arts, 1)
	text := string(arts[0].Data)
	assert.Contains(t, text, "Hello Ada & Co\n==============")
	assert.Contains(t, text, "Thanks for joining.")
}

func TestBuild_GoTemplateSyntax(t *testing.T) {
	cfg := testConfig(t)
	cfg.TemplateSyntax = "gotemplate"
	require.NoError(t, os.WriteFile(filepath.Join(cfg.TemplateDir, "note.txt"),
		[]byte("---\nrequires: [name]\n---\nHi {{ title .name }}\n"), 0o644))

	a, err := Build(context.Background(), cfg, quiet())
	require.NoError(t, err)
	defer a.Close()

	arts, err := a.Manager.Render(context.Background(), "note", map[string]any{"name": "grace"}, manager.UsingEngine(EngineText))
	require.NoError(t, err)
	assert.Equal(t, "Hi Grace\n", string(arts[0].Data))
}

func TestBuild_SQLiteSources(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()
	cfg.TemplateDB = filepath.Join(dir, "templates.db")
	cfg.CacheBackend = "sqlite"
	cfg.CacheDB = filepath.Join(dir, "cache.db")

	a, err := Build(context.Background(), cfg, quiet())
	require.NoError(t, err)
	list, err := a.Manager.DocumentList(context.Background(), map[string]any{"customer": "x", "email": "x@example.com"})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.NoError(t, a.Close())
}

func TestBuild_Errors(t *testing.T) {
	cfg := testConfig(t)
	cfg.CacheBackend = "redis"
	_, err := Build(context.Background(), cfg, quiet())
	assert.Error(t, err)

	_, err = Build(context.Background(), config.Config{}, quiet())
	assert.Error(t, err)
}

func TestBuild_NoCache(t *testing.T) {
	cfg := testConfig(t)
	cfg.CacheBackend = "none"
	a, err := Build(context.Background(), cfg, quiet())
	require.NoError(t, err)
	defer a.Close()

	input := map[string]any{"customer": "Ada", "email": "ada@example.com"}
	for range 2 {
		_, err := a.Manager.Render(context.Background(), "welcome", input, manager.UsingEngine(EngineEmail))
		require.NoError(t, err)
	}
	assert.Equal(t, 0, a.Stats.Snapshot(EngineEmail).Cached)
}
