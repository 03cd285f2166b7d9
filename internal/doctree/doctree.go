package doctree

import (
	"strings"
)

// DocTree is the heading structure of a rendered document.
type DocTree struct {
	Title    string     // From <title>, the first h1, or the caller's fallback
	Children []*DocNode // Top-level sections
}

// DocNode is a recursive section in the document tree.
type DocNode struct {
	Title    string     // Section heading (empty for leaf text)
	Level    int        // Heading level 1-6, 0 for leaf text
	Text     string     // Paragraphs joined by blank lines
	Children []*DocNode // Subsections
}

// Block is one heading or paragraph in document order.
type Block struct {
	Level int    // Heading level, 0 for paragraphs
	Text  string // Heading title or paragraph text
}

// Heading reports whether the block is a section heading.
func (b Block) Heading() bool { return b.Level > 0 }

// Walk visits every node in pre-order.
func (t *DocTree) Walk(fn func(n *DocNode, depth int)) {
	var visit func(nodes []*DocNode, depth int)
	visit = func(nodes []*DocNode, depth int) {
		for _, n := range nodes {
			fn(n, depth)
			visit(n.Children, depth+1)
		}
	}
	visit(t.Children, 0)
}

// Flatten linearizes the tree into heading and paragraph blocks.
func (t *DocTree) Flatten() []Block {
	var out []Block
	t.Walk(func(n *DocNode, _ int) {
		if n.Title != "" {
			out = append(out, Block{Level: max(n.Level, 1), Text: n.Title})
		}
		for _, p := range paragraphs(n.Text) {
			out = append(out, Block{Text: p})
		}
	})
	return out
}

// PlainText renders the tree as text. Level 1 and 2 headings are underlined
// with '=' and '-', deeper headings are prefixed with '#' marks.
func (t *DocTree) PlainText() string {
	var b strings.Builder
	for i, blk := range t.Flatten() {
		if i > 0 {
			b.WriteString("\n\n")
		}
		switch {
		case blk.Level == 1:
			b.WriteString(blk.Text + "\n" + strings.Repeat("=", len([]rune(blk.Text))))
		case blk.Level == 2:
			b.WriteString(blk.Text + "\n" + strings.Repeat("-", len([]rune(blk.Text))))
		case blk.Level > 2:
			b.WriteString(strings.Repeat("#", blk.Level) + " " + blk.Text)
		default:
			b.WriteString(blk.Text)
		}
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	return b.String()
}

func paragraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
