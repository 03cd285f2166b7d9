package document

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func ids(docs []Document) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.ID)
	}
	return out
}

type failingProvider struct{}

func (failingProvider) Name() string { return "broken" }
func (failingProvider) ListDocuments(context.Context) ([]Document, error) {
	return nil, errors.New("connection refused")
}
func (failingProvider) FetchDocument(context.Context, string) (Document, error) {
	return Document{}, errors.New("connection refused")
}

func testChain(opts ...ChainOption) *Chain {
	db := NewStatic("database",
		Document{ID: "invoice", Requires: []string{"customer", "order"}, Content: []byte("db invoice")},
		Document{ID: "welcome", Requires: []string{"customer"}, Content: []byte("db welcome")},
	)
	files := NewStatic("files",
		Document{ID: "welcome", Content: []byte("file welcome")},
		Document{ID: "notice", Content: []byte("file notice")},
	)
	return NewChain(opts...).Push(db).Push(files)
}

func TestChain_ListAvailable_FiltersByRequirements(t *testing.T) {
	ctx := context.Background()
	c := testChain()

	tests := []struct {
		names []string
		want  []string
	}{
		{nil, []string{"notice"}},
		{[]string{"customer"}, []string{"welcome", "notice"}},
		{[]string{"customer", "order"}, []string{"invoice", "welcome", "notice"}},
		{[]string{"order"}, []string{"notice"}},
	}
	for _, tt := range tests {
		docs, err := c.ListAvailable(ctx, tt.names)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff(tt.want, ids(docs)); diff != "" {
			t.Errorf("names=%v: mismatch (-want +got):\n%s", tt.names, diff)
		}
	}
}

func TestChain_ListAvailable_FirstProviderWins(t *testing.T) {
	docs, err := testChain().ListAvailable(context.Background(), []string{"customer"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if docs[0].ID != "welcome" || docs[0].Origin != "database" {
		t.Fatalf("expected welcome from database, got %s from %s", docs[0].ID, docs[0].Origin)
	}
	if string(docs[0].Content) != "db welcome" {
		t.Errorf("expected database content, got %q", docs[0].Content)
	}
}

func TestChain_ListAvailable_HiddenDocumentDoesNotResurface(t *testing.T) {
	// The database welcome needs "customer"; the file welcome does not.
	// Without "customer" the winning document is filtered out and the
	// shadowed one must not take its place.
	docs, err := testChain().ListAvailable(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"notice"}, ids(docs)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestChain_LastWinsPrecedence(t *testing.T) {
	c := testChain(WithPrecedence(LastWins))

	docs, err := c.ListAvailable(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"welcome", "notice"}, ids(docs)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if docs[0].Origin != "files" {
		t.Errorf("expected welcome from files, got %s", docs[0].Origin)
	}

	d, err := c.Get(context.Background(), "welcome", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Origin != "files" {
		t.Errorf("expected Get to honor LastWins, got %s", d.Origin)
	}
}

func TestChain_Get(t *testing.T) {
	ctx := context.Background()
	c := testChain()

	d, err := c.Get(ctx, "welcome", []string{"customer"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Origin != "database" {
		t.Errorf("expected database origin, got %s", d.Origin)
	}

	_, err = c.Get(ctx, "welcome", nil)
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError for unsatisfied dependency, got %v", err)
	}
	if diff := cmp.Diff([]string{"customer"}, nf.Missing); diff != "" {
		t.Errorf("missing mismatch (-want +got):\n%s", diff)
	}

	if _, err := c.Get(ctx, "unknown", []string{"customer"}); !IsNotFound(err) {
		t.Errorf("expected NotFoundError for unknown id, got %v", err)
	}
}

func TestChain_ProviderErrorsPropagate(t *testing.T) {
	c := NewChain().Push(failingProvider{})

	if _, err := c.ListAvailable(context.Background(), nil); err == nil || IsNotFound(err) {
		t.Errorf("expected provider error, got %v", err)
	}
	if _, err := c.Get(context.Background(), "x", nil); err == nil || IsNotFound(err) {
		t.Errorf("expected provider error, got %v", err)
	}
}

func TestChain_PushOrderIsQueryOrder(t *testing.T) {
	a := NewStatic("a")
	b := NewStatic("b")
	c := NewChain().Push(a).Push(b)
	got := c.Providers()
	if len(got) != 2 || got[0].Name() != "a" || got[1].Name() != "b" {
		t.Errorf("expected providers [a b], got %v", got)
	}
}

func TestFuncs_Provider(t *testing.T) {
	p := NewFuncs("methods", map[string]FuncEntry{
		"receipt": {
			Title:    "Receipt",
			Requires: []string{"order"},
			Build: func(context.Context) ([]byte, error) {
				return []byte("Order {{ order.id }}"), nil
			},
		},
		"broken": {
			Build: func(context.Context) ([]byte, error) { return nil, errors.New("boom") },
		},
	})

	d, err := p.FetchDocument(context.Background(), "receipt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(d.Content) != "Order {{ order.id }}" || d.Origin != "methods" {
		t.Errorf("unexpected document: %+v", d)
	}
	if _, err := p.FetchDocument(context.Background(), "nope"); !IsNotFound(err) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
	if _, err := p.ListDocuments(context.Background()); err == nil {
		t.Error("expected build error to surface from ListDocuments")
	}
}

func TestDocument_SummaryRequiresNotNil(t *testing.T) {
	s := Document{ID: "x"}.Summary()
	if s.Requires == nil {
		t.Error("expected non-nil requires slice in summary")
	}
}
