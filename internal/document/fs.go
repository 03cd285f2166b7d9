package document

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"go.yaml.in/yaml/v3"
)

// SupportedExtensions maps template file extensions to document formats.
var SupportedExtensions = map[string]string{
	".md":       "markdown",
	".markdown": "markdown",
	".html":     "html",
	".htm":      "html",
	".txt":      "text",
	".tmpl":     "text",
	".docx":     "docx",
}

// FrontMatter is the optional YAML header of a template file.
type FrontMatter struct {
	Title    string   `yaml:"title"`
	Format   string   `yaml:"format"`
	Requires []string `yaml:"requires"`
}

// FS serves templates from a directory tree. A document's id is its path
// relative to the root, slash separated, without extension.
type FS struct {
	name string
	fsys fs.FS
	deps func([]byte) []string
}

// FSOption configures an FS provider.
type FSOption func(*FS)

// WithDependencyScan infers Requires from template content when the front
// matter does not declare them.
func WithDependencyScan(fn func([]byte) []string) FSOption {
	return func(p *FS) { p.deps = fn }
}

// NewFS returns a provider over the directory at root.
func NewFS(root string, opts ...FSOption) *FS {
	return NewFSFrom("fs:"+root, os.DirFS(root), opts...)
}

// NewFSFrom returns a provider over an arbitrary file system.
func NewFSFrom(name string, fsys fs.FS, opts ...FSOption) *FS {
	p := &FS{name: name, fsys: fsys}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *FS) Name() string { return p.name }

func (p *FS) ListDocuments(ctx context.Context) ([]Document, error) {
	var files []string
	err := fs.WalkDir(p.fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if name != "." && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		if _, ok := SupportedExtensions[strings.ToLower(path.Ext(name))]; ok {
			files = append(files, name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan templates: %w", err)
	}
	sort.Strings(files)

	out := make([]Document, 0, len(files))
	seen := make(map[string]bool)
	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		d, err := p.load(name)
		if err != nil {
			return nil, err
		}
		// foo.md and foo.html share an id; the lexically first file wins.
		if seen[d.ID] {
			continue
		}
		seen[d.ID] = true
		out = append(out, d)
	}
	return out, nil
}

func (p *FS) FetchDocument(ctx context.Context, id string) (Document, error) {
	if !fs.ValidPath(id) {
		return Document{}, &NotFoundError{ID: id}
	}
	matches, err := fs.Glob(p.fsys, globEscape(id)+".*")
	if err != nil {
		return Document{}, fmt.Errorf("lookup template %s: %w", id, err)
	}
	sort.Strings(matches)
	for _, name := range matches {
		if _, ok := SupportedExtensions[strings.ToLower(path.Ext(name))]; !ok {
			continue
		}
		if strings.TrimSuffix(name, path.Ext(name)) != id {
			continue
		}
		return p.load(name)
	}
	return Document{}, &NotFoundError{ID: id}
}

func (p *FS) load(name string) (Document, error) {
	raw, err := fs.ReadFile(p.fsys, name)
	if err != nil {
		return Document{}, fmt.Errorf("read template %s: %w", name, err)
	}
	ext := strings.ToLower(path.Ext(name))
	d := Document{
		ID:     strings.TrimSuffix(filepath.ToSlash(name), path.Ext(name)),
		Format: SupportedExtensions[ext],
		Origin: p.name,
	}

	if ext == ".docx" {
		content, title, err := docxToHTML(raw)
		if err != nil {
			return Document{}, fmt.Errorf("read docx template %s: %w", name, err)
		}
		d.Content = content
		d.Title = title
		d.Format = "html"
	} else {
		fm, body, err := splitFrontMatter(raw)
		if err != nil {
			return Document{}, fmt.Errorf("front matter in %s: %w", name, err)
		}
		d.Content = body
		d.Title = fm.Title
		d.Requires = fm.Requires
		if fm.Format != "" {
			d.Format = fm.Format
		}
	}

	if d.Title == "" {
		d.Title = path.Base(d.ID)
	}
	if d.Requires == nil && p.deps != nil {
		d.Requires = p.deps(d.Content)
	}
	return d, nil
}

var fmDelim = []byte("---")

// splitFrontMatter separates a leading "---" YAML block from the body.
func splitFrontMatter(raw []byte) (FrontMatter, []byte, error) {
	var fm FrontMatter
	trimmed := bytes.TrimPrefix(raw, []byte("\ufeff"))
	if !bytes.HasPrefix(trimmed, fmDelim) {
		return fm, raw, nil
	}
	rest := trimmed[len(fmDelim):]
	nl := bytes.IndexByte(rest, '\n')
	if nl < 0 || len(bytes.TrimSpace(rest[:nl])) != 0 {
		return fm, raw, nil
	}
	rest = rest[nl+1:]

	end := bytes.Index(rest, []byte("\n---"))
	var header []byte
	if bytes.HasPrefix(rest, fmDelim) {
		header, end = nil, 0
	} else if end < 0 {
		return fm, nil, fmt.Errorf("unterminated front matter")
	} else {
		header = rest[:end+1]
		end++
	}
	body := rest[end+len(fmDelim):]
	if i := bytes.IndexByte(body, '\n'); i >= 0 {
		body = body[i+1:]
	} else {
		body = nil
	}

	if err := yaml.Unmarshal(header, &fm); err != nil {
		return fm, nil, err
	}
	return fm, body, nil
}

func globEscape(s string) string {
	r := strings.NewReplacer(`*`, `\*`, `?`, `\?`, `[`, `\[`, `\`, `\\`)
	return r.Replace(s)
}
