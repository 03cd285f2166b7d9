package document

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/fumiama/go-docx"
)

// Quotes are left alone so expressions such as {{ x | default "y" }}
// survive the conversion.
var docxTextEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// docxToHTML flattens a .docx template into heading and paragraph HTML.
// The first heading, if any, becomes the document title.
func docxToHTML(raw []byte) ([]byte, string, error) {
	doc, err := docx.Parse(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, "", fmt.Errorf("parse docx: %w", err)
	}

	var buf bytes.Buffer
	var title string
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		text := docxParagraphText(para)
		if text == "" {
			continue
		}
		if level := docxHeadingLevel(para); level > 0 {
			if title == "" {
				title = text
			}
			fmt.Fprintf(&buf, "<h%d>%s</h%d>\n", level, docxTextEscaper.Replace(text), level)
			continue
		}
		fmt.Fprintf(&buf, "<p>%s</p>\n", docxTextEscaper.Replace(text))
	}
	return buf.Bytes(), title, nil
}

func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	if !strings.HasPrefix(style, "heading") {
		return 0
	}
	switch strings.TrimPrefix(style, "heading") {
	case "1":
		return 1
	case "2":
		return 2
	case "3":
		return 3
	case "4":
		return 4
	case "5":
		return 5
	case "6":
		return 6
	}
	return 0
}

// docxParagraphText joins the text runs of a paragraph. Word often splits
// a single {{ expression }} across runs, so runs are concatenated before
// any parsing happens.
func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
