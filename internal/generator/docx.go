package generator

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/fumiama/go-docx"

	"github.com/dgallion1/docmerge/internal/doctree"
)

const (
	FormatDOCX    = "docx"
	MediaTypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// DOCX writes the heading and paragraph structure of HTML content into a
// Word document. Inline formatting is not carried over.
type DOCX struct{}

func (DOCX) Name() string   { return "docx" }
func (DOCX) Format() string { return FormatDOCX }

func (d DOCX) Generate(_ context.Context, content []byte) (Artifact, error) {
	tree, err := doctree.FromHTML(content, "")
	if err != nil {
		return Artifact{}, err
	}

	w := docx.New().WithDefaultTheme()
	blocks := tree.Flatten()
	for _, b := range blocks {
		para := w.AddParagraph()
		if b.Heading() {
			para.Properties = &docx.ParagraphProperties{
				Style: &docx.Style{Val: "Heading" + strconv.Itoa(b.Level)},
			}
		}
		para.AddText(b.Text)
	}

	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return Artifact{}, fmt.Errorf("write docx: %w", err)
	}
	return Artifact{
		Format:    FormatDOCX,
		MediaType: MediaTypeDOCX,
		Generator: d.Name(),
		Data:      buf.Bytes(),
		Meta:      map[string]string{"paragraphs": strconv.Itoa(len(blocks))},
	}, nil
}
