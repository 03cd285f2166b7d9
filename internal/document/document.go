package document

import (
	"context"
	"errors"
	"fmt"
)

// Document is a template offered by a provider.
type Document struct {
	ID    string
	Title string
	// Format is a hint about the raw content ("markdown", "html", "text", "docx").
	Format string
	// Requires lists the placeholder names that must be present for the
	// document to be offered.
	Requires []string
	Content  []byte
	// Origin names the provider that produced the document. Diagnostics only.
	Origin string
}

// Summary is the listing view of a Document without its content.
type Summary struct {
	ID       string   `json:"id"`
	Title    string   `json:"title,omitempty"`
	Format   string   `json:"format,omitempty"`
	Requires []string `json:"requires"`
	Origin   string   `json:"origin"`
}

// Summary returns the listing view of d.
func (d Document) Summary() Summary {
	req := d.Requires
	if req == nil {
		req = []string{}
	}
	return Summary{
		ID:       d.ID,
		Title:    d.Title,
		Format:   d.Format,
		Requires: req,
		Origin:   d.Origin,
	}
}

// Satisfied reports whether every required name is in available.
func (d Document) Satisfied(available []string) bool {
	if len(d.Requires) == 0 {
		return true
	}
	have := make(map[string]struct{}, len(available))
	for _, n := range available {
		have[n] = struct{}{}
	}
	for _, r := range d.Requires {
		if _, ok := have[r]; !ok {
			return false
		}
	}
	return true
}

// Missing returns the required names not in available.
func (d Document) Missing(available []string) []string {
	have := make(map[string]struct{}, len(available))
	for _, n := range available {
		have[n] = struct{}{}
	}
	var missing []string
	for _, r := range d.Requires {
		if _, ok := have[r]; !ok {
			missing = append(missing, r)
		}
	}
	return missing
}

// Provider is a source of documents.
type Provider interface {
	Name() string
	ListDocuments(ctx context.Context) ([]Document, error)
	// FetchDocument returns a *NotFoundError when id is unknown.
	FetchDocument(ctx context.Context, id string) (Document, error)
}

// NotFoundError reports an unknown document or one whose dependencies are
// not satisfied by the active placeholders.
type NotFoundError struct {
	ID      string
	Missing []string
}

func (e *NotFoundError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("document %q not found: missing placeholders %v", e.ID, e.Missing)
	}
	return fmt.Sprintf("document %q not found", e.ID)
}

// IsNotFound checks if err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}
