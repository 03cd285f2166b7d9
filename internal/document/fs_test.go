package document

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/fumiama/go-docx"
	"github.com/google/go-cmp/cmp"
)

func TestSplitFrontMatter(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		title    string
		requires []string
		body     string
	}{
		{
			name:     "full header",
			input:    "---\ntitle: Welcome\nrequires: [customer, appName]\n---\nHello {{ customer.name }}\n",
			title:    "Welcome",
			requires: []string{"customer", "appName"},
			body:     "Hello {{ customer.name }}\n",
		},
		{
			name:  "empty header",
			input: "---\n---\nBody",
			body:  "Body",
		},
		{
			name:  "no header",
			input: "Plain body\n",
			body:  "Plain body\n",
		},
		{
			name:  "horizontal rule is not a header",
			input: "--- not yaml\ntext",
			body:  "--- not yaml\ntext",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fm, body, err := splitFrontMatter([]byte(tt.input))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if fm.Title != tt.title {
				t.Errorf("expected title %q, got %q", tt.title, fm.Title)
			}
			if diff := cmp.Diff(tt.requires, fm.Requires); diff != "" {
				t.Errorf("requires mismatch (-want +got):\n%s", diff)
			}
			if string(body) != tt.body {
				t.Errorf("expected body %q, got %q", tt.body, body)
			}
		})
	}
}

func TestSplitFrontMatter_Unterminated(t *testing.T) {
	if _, _, err := splitFrontMatter([]byte("---\ntitle: x\nbody")); err == nil {
		t.Error("expected error for unterminated front matter")
	}
}

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"welcome.md":          {Data: []byte("---\ntitle: Welcome\nrequires: [customer]\n---\n# Hi {{ customer.name }}\n")},
		"letters/notice.html": {Data: []byte("<p>Notice for {{ appName }}</p>")},
		"letters/notice.txt":  {Data: []byte("shadowed by notice.html")},
		"plain.txt":           {Data: []byte("no placeholders")},
		"image.png":           {Data: []byte{0x89, 0x50}},
		".git/config.txt":     {Data: []byte("hidden")},
	}
}

func TestFS_ListDocuments(t *testing.T) {
	p := NewFSFrom("test", testFS())
	docs, err := p.ListDocuments(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"letters/notice", "plain", "welcome"}, ids(docs)); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}

	notice := docs[0]
	if notice.Format != "html" {
		t.Errorf("expected html format, got %q", notice.Format)
	}
	if notice.Title != "notice" {
		t.Errorf("expected title from file name, got %q", notice.Title)
	}

	welcome := docs[2]
	if welcome.Title != "Welcome" || welcome.Format != "markdown" {
		t.Errorf("unexpected welcome metadata: %+v", welcome.Summary())
	}
	if diff := cmp.Diff([]string{"customer"}, welcome.Requires); diff != "" {
		t.Errorf("requires mismatch (-want +got):\n%s", diff)
	}
	if !strings.HasPrefix(string(welcome.Content), "# Hi") {
		t.Errorf("expected front matter stripped, got %q", welcome.Content)
	}
}

func TestFS_DependencyScan(t *testing.T) {
	scan := func(b []byte) []string {
		if bytes.Contains(b, []byte("appName")) {
			return []string{"appName"}
		}
		return nil
	}
	p := NewFSFrom("test", testFS(), WithDependencyScan(scan))

	d, err := p.FetchDocument(context.Background(), "letters/notice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"appName"}, d.Requires); diff != "" {
		t.Errorf("requires mismatch (-want +got):\n%s", diff)
	}

	// Declared requirements are not replaced by the scan.
	w, err := p.FetchDocument(context.Background(), "welcome")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"customer"}, w.Requires); diff != "" {
		t.Errorf("requires mismatch (-want +got):\n%s", diff)
	}
}

func TestFS_FetchDocument_NotFound(t *testing.T) {
	p := NewFSFrom("test", testFS())
	for _, id := range []string{"missing", "image", "../etc/passwd", "letters"} {
		if _, err := p.FetchDocument(context.Background(), id); !IsNotFound(err) {
			t.Errorf("id %q: expected NotFoundError, got %v", id, err)
		}
	}
}

func writeDocx(t *testing.T, path string) {
	t.Helper()
	w := docx.New().WithDefaultTheme()
	h := w.AddParagraph()
	h.Properties = &docx.ParagraphProperties{Style: &docx.Style{Val: "Heading1"}}
	h.AddText("Dear {{ customer.name }}")
	w.AddParagraph().AddText("Your order {{ order.id }} & more")

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := w.WriteTo(f); err != nil {
		t.Fatal(err)
	}
}

func TestFS_DocxTemplate(t *testing.T) {
	dir := t.TempDir()
	writeDocx(t, filepath.Join(dir, "letter.docx"))

	p := NewFS(dir)
	d, err := p.FetchDocument(context.Background(), "letter")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Format != "html" {
		t.Errorf("expected html format, got %q", d.Format)
	}
	if d.Title != "Dear {{ customer.name }}" {
		t.Errorf("expected title from first heading, got %q", d.Title)
	}
	want := "<h1>Dear {{ customer.name }}</h1>\n<p>Your order {{ order.id }} &amp; more</p>\n"
	if string(d.Content) != want {
		t.Errorf("expected content %q, got %q", want, d.Content)
	}
}
