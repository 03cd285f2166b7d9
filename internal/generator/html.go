package generator

import (
	"bytes"
	"context"
	"fmt"

	"golang.org/x/net/html"

	"github.com/dgallion1/docmerge/internal/doctree"
)

const (
	FormatHTML    = "html"
	MediaTypeHTML = "text/html; charset=utf-8"
)

// HTML wraps parsed fragments into a standalone HTML document. Content
// that is already a full document is passed through.
type HTML struct {
	Stylesheet string // Inlined into a <style> element when set
}

func NewHTML() *HTML { return &HTML{} }

func (g *HTML) Name() string   { return "html" }
func (g *HTML) Format() string { return FormatHTML }

func (g *HTML) Generate(_ context.Context, content []byte) (Artifact, error) {
	doc, err := g.document(content)
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{Format: FormatHTML, MediaType: MediaTypeHTML, Generator: g.Name(), Data: doc}, nil
}

func (g *HTML) document(content []byte) ([]byte, error) {
	if isFullDocument(content) {
		return content, nil
	}
	tree, err := doctree.FromHTML(content, "")
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	if tree.Title != "" {
		fmt.Fprintf(&buf, "<title>%s</title>\n", html.EscapeString(tree.Title))
	}
	if g.Stylesheet != "" {
		fmt.Fprintf(&buf, "<style>\n%s\n</style>\n", g.Stylesheet)
	}
	buf.WriteString("</head>\n<body>\n")
	buf.Write(bytes.TrimSpace(content))
	buf.WriteString("\n</body>\n</html>\n")
	return buf.Bytes(), nil
}

func isFullDocument(content []byte) bool {
	head := bytes.ToLower(bytes.TrimSpace(content))
	if len(head) > 512 {
		head = head[:512]
	}
	return bytes.HasPrefix(head, []byte("<!doctype html")) || bytes.HasPrefix(head, []byte("<html"))
}
