package transform

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// EscapeHTML escapes markup so plain-text templates can be embedded in
// HTML output.
type EscapeHTML struct{}

func (EscapeHTML) Name() string { return "escape-html" }
func (EscapeHTML) Phase() Phase { return PreParse }

func (EscapeHTML) Transform(content []byte) ([]byte, error) {
	return []byte(html.EscapeString(string(content))), nil
}

// CodeLineNumbers wraps every line of <pre><code> blocks in a numbered
// span: <span class="line" data-line="1">...</span>.
type CodeLineNumbers struct{}

func (CodeLineNumbers) Name() string { return "code-line-numbers" }
func (CodeLineNumbers) Phase() Phase { return PostParse }

func (CodeLineNumbers) Transform(content []byte) ([]byte, error) {
	if !bytes.Contains(content, []byte("<pre")) {
		return content, nil
	}

	nodes, full, err := parseHTML(content)
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		numberCodeBlocks(n)
	}

	var buf bytes.Buffer
	for _, n := range nodes {
		if err := html.Render(&buf, n); err != nil {
			return nil, fmt.Errorf("render html: %w", err)
		}
	}
	if !full && bytes.HasSuffix(content, []byte("\n")) {
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// parseHTML parses a full document or a body fragment.
func parseHTML(content []byte) ([]*html.Node, bool, error) {
	if bytes.Contains(bytes.ToLower(content), []byte("<html")) {
		doc, err := html.Parse(bytes.NewReader(content))
		if err != nil {
			return nil, true, fmt.Errorf("parse html: %w", err)
		}
		return []*html.Node{doc}, true, nil
	}
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(bytes.NewReader(content), body)
	if err != nil {
		return nil, false, fmt.Errorf("parse html fragment: %w", err)
	}
	return nodes, false, nil
}

func numberCodeBlocks(n *html.Node) {
	if n.Type == html.ElementNode && n.DataAtom == atom.Code && n.Parent != nil && n.Parent.DataAtom == atom.Pre {
		numberLines(n)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		numberCodeBlocks(c)
	}
}

func numberLines(code *html.Node) {
	text := textContent(code)
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")

	for c := code.FirstChild; c != nil; {
		next := c.NextSibling
		code.RemoveChild(c)
		c = next
	}
	for i, line := range lines {
		span := &html.Node{
			Type:     html.ElementNode,
			Data:     "span",
			DataAtom: atom.Span,
			Attr: []html.Attribute{
				{Key: "class", Val: "line"},
				{Key: "data-line", Val: strconv.Itoa(i + 1)},
			},
		}
		span.AppendChild(&html.Node{Type: html.TextNode, Data: line})
		code.AppendChild(span)
		code.AppendChild(&html.Node{Type: html.TextNode, Data: "\n"})
	}
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return buf.String()
}
