package doctree

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// FromHTML builds a tree from heading tags. Text in p, li, td, pre and
// blockquote elements is attached to the closest preceding heading.
func FromHTML(content []byte, fallbackTitle string) (*DocTree, error) {
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	tree := &DocTree{Title: fallbackTitle}
	if title := findTitle(doc); title != "" {
		tree.Title = title
	}

	type stackEntry struct {
		node  *DocNode
		level int
	}
	root := &DocNode{}
	stack := []stackEntry{{node: root, level: 0}}
	var currentText strings.Builder
	seenH1 := false

	flushText := func() {
		t := strings.TrimSpace(currentText.String())
		if t != "" {
			top := stack[len(stack)-1].node
			if top.Text != "" {
				top.Text += "\n\n" + t
			} else {
				top.Text = t
			}
		}
		currentText.Reset()
	}
	addText := func(t string) {
		if t == "" {
			return
		}
		if currentText.Len() > 0 {
			currentText.WriteString("\n\n")
		}
		currentText.WriteString(t)
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			if level := headingLevel(n.Data); level > 0 {
				flushText()
				title := collapse(textContent(n))
				if level == 1 && !seenH1 && tree.Title == fallbackTitle {
					tree.Title = title
				}
				seenH1 = seenH1 || level == 1

				newNode := &DocNode{Title: title, Level: level}
				for len(stack) > 1 && stack[len(stack)-1].level >= level {
					stack = stack[:len(stack)-1]
				}
				parent := stack[len(stack)-1].node
				parent.Children = append(parent.Children, newNode)
				stack = append(stack, stackEntry{node: newNode, level: level})
				return
			}

			switch n.Data {
			case "head", "script", "style", "nav":
				return
			case "pre":
				addText(strings.Trim(textContent(n), "\n"))
				return
			case "p", "li", "td", "blockquote":
				addText(collapse(textContent(n)))
				return
			}
		case html.TextNode:
			// Loose text directly under body or a div.
			addText(collapse(n.Data))
			return
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	if body := findBody(doc); body != nil {
		walk(body)
	} else {
		walk(doc)
	}
	flushText()

	tree.Children = root.Children
	if root.Text != "" {
		tree.Children = append([]*DocNode{{Text: root.Text}}, tree.Children...)
	}
	return tree, nil
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		if n.Type == html.ElementNode && n.Data == "br" {
			buf.WriteString("\n")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return buf.String()
}

// collapse folds runs of whitespace into single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return collapse(textContent(n))
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
