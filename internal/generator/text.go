package generator

import (
	"context"

	"github.com/dgallion1/docmerge/internal/doctree"
)

const (
	FormatText    = "text"
	MediaTypeText = "text/plain; charset=utf-8"
)

// Text renders HTML content as plain text with underlined headings.
type Text struct{}

func (Text) Name() string   { return "text" }
func (Text) Format() string { return FormatText }

func (t Text) Generate(_ context.Context, content []byte) (Artifact, error) {
	tree, err := doctree.FromHTML(content, "")
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{
		Format:    FormatText,
		MediaType: MediaTypeText,
		Generator: t.Name(),
		Data:      []byte(tree.PlainText()),
	}, nil
}
