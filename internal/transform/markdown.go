package transform

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	mdhtml "github.com/yuin/goldmark/renderer/html"
)

// Markdown converts Markdown content into an HTML fragment. Raw HTML in
// the source is passed through so templates can mix both.
type Markdown struct {
	md goldmark.Markdown
}

// NewMarkdown returns a GFM-flavoured Markdown transformer.
func NewMarkdown() *Markdown {
	return &Markdown{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(mdhtml.WithUnsafe()),
		),
	}
}

func (m *Markdown) Name() string { return "markdown" }
func (m *Markdown) Phase() Phase { return PreParse }

func (m *Markdown) Transform(content []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := m.md.Convert(content, &buf); err != nil {
		return nil, fmt.Errorf("convert markdown: %w", err)
	}
	return buf.Bytes(), nil
}

// TrimSpace strips leading and trailing white space.
var TrimSpace = Func("trim-space", PreParse, func(b []byte) ([]byte, error) {
	return bytes.TrimSpace(b), nil
})
