package transform

import (
	"errors"
	"strings"
	"testing"
)

func appendT(name, suffix string) Transformer {
	return Func(name, PreParse, func(b []byte) ([]byte, error) {
		return append(append([]byte{}, b...), suffix...), nil
	})
}

var upper = Func("upper", PreParse, func(b []byte) ([]byte, error) {
	return []byte(strings.ToUpper(string(b))), nil
})

func TestChain_AppliesInPushOrder(t *testing.T) {
	c := NewChain().Push(appendT("t1", "-one")).Push(appendT("t2", "-two"))
	got, err := c.Apply(PreParse, []byte("X"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "X-one-two" {
		t.Errorf("expected %q, got %q", "X-one-two", got)
	}
}

func TestChain_OrderMattersForNonCommuting(t *testing.T) {
	a, err := NewChain().Push(appendT("suffix", "-x")).Push(upper).Apply(PreParse, []byte("doc"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewChain().Push(upper).Push(appendT("suffix", "-x")).Apply(PreParse, []byte("doc"))
	if err != nil {
		t.Fatal(err)
	}
	if string(a) != "DOC-X" || string(b) != "DOC-x" {
		t.Errorf("expected DOC-X and DOC-x, got %q and %q", a, b)
	}
}

func TestChain_PhaseFiltering(t *testing.T) {
	c := NewChain().
		Push(appendT("pre", "-pre")).
		Push(WithPhase(appendT("post", "-post"), PostParse))

	pre, err := c.Apply(PreParse, []byte("c"))
	if err != nil {
		t.Fatal(err)
	}
	if string(pre) != "c-pre" {
		t.Errorf("expected pre-parse output %q, got %q", "c-pre", pre)
	}
	post, err := c.Apply(PostParse, []byte("c"))
	if err != nil {
		t.Fatal(err)
	}
	if string(post) != "c-post" {
		t.Errorf("expected post-parse output %q, got %q", "c-post", post)
	}
}

func TestChain_ErrorAborts(t *testing.T) {
	called := false
	boom := errors.New("rejected")
	c := NewChain().
		Push(appendT("ok", "!")).
		Push(Func("reject", PreParse, func([]byte) ([]byte, error) { return nil, boom })).
		Push(Func("after", PreParse, func(b []byte) ([]byte, error) { called = true; return b, nil }))

	out, err := c.Apply(PreParse, []byte("x"))
	if out != nil {
		t.Errorf("expected no output on failure, got %q", out)
	}
	var te *Error
	if !errors.As(err, &te) {
		t.Fatalf("expected transform Error, got %v", err)
	}
	if te.Index != 1 || te.Name != "reject" {
		t.Errorf("expected failure at index 1 (reject), got %d (%s)", te.Index, te.Name)
	}
	if !errors.Is(err, boom) {
		t.Error("expected cause to be preserved")
	}
	if called {
		t.Error("expected later transformers to be skipped")
	}
}

func TestChain_Nil(t *testing.T) {
	var c *Chain
	got, err := c.Apply(PreParse, []byte("same"))
	if err != nil || string(got) != "same" {
		t.Errorf("expected passthrough, got %q, %v", got, err)
	}
	if c.Identity() != "" || c.Len() != 0 {
		t.Error("expected empty identity for nil chain")
	}
}

func TestChain_Identity(t *testing.T) {
	c := NewChain().Push(NewMarkdown()).Push(CodeLineNumbers{})
	want := "markdown@pre-parse,code-line-numbers@post-parse"
	if c.Identity() != want {
		t.Errorf("expected identity %q, got %q", want, c.Identity())
	}
}

func TestParsePhase(t *testing.T) {
	tests := map[string]Phase{"pre-parse": PreParse, "": PreParse, "POST": PostParse, "post-parse": PostParse}
	for in, want := range tests {
		got, err := ParsePhase(in)
		if err != nil || got != want {
			t.Errorf("ParsePhase(%q): expected %v, got %v (%v)", in, want, got, err)
		}
	}
	if _, err := ParsePhase("during"); err == nil {
		t.Error("expected error for unknown phase")
	}
}

func TestMarkdown_KeepsPlaceholders(t *testing.T) {
	out, err := NewMarkdown().Transform([]byte("# Hello {{ customer.name }}\n\nWelcome to *{{ appName }}*.\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := string(out)
	if !strings.Contains(s, "<h1>Hello {{ customer.name }}</h1>") {
		t.Errorf("expected heading with placeholder, got %q", s)
	}
	if !strings.Contains(s, "<em>{{ appName }}</em>") {
		t.Errorf("expected emphasis around placeholder, got %q", s)
	}
}

func TestMarkdown_PassesRawHTML(t *testing.T) {
	out, err := NewMarkdown().Transform([]byte("<div class=\"sig\">Regards</div>\n"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), `<div class="sig">Regards</div>`) {
		t.Errorf("expected raw HTML to pass through, got %q", out)
	}
}

func TestEscapeHTML(t *testing.T) {
	out, err := EscapeHTML{}.Transform([]byte(`<b>Tom & Jerry</b>`))
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "&lt;b&gt;Tom &amp; Jerry&lt;/b&gt;" {
		t.Errorf("unexpected escape output %q", out)
	}
}

func TestCodeLineNumbers(t *testing.T) {
	in := "<p>Code:</p><pre><code>GET /a\nPOST /b\n</code></pre>\n"
	out, err := CodeLineNumbers{}.Transform([]byte(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `<p>Code:</p><pre><code><span class="line" data-line="1">GET /a</span>` + "\n" +
		`<span class="line" data-line="2">POST /b</span>` + "\n" + "</code></pre>\n"
	if string(out) != want {
		t.Errorf("expected\n%q\ngot\n%q", want, out)
	}
}

func TestCodeLineNumbers_NoCodeIsUntouched(t *testing.T) {
	in := []byte("<p>nothing &amp; here</p>")
	out, err := CodeLineNumbers{}.Transform(in)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != string(in) {
		t.Errorf("expected untouched content, got %q", out)
	}
}

func TestCodeLineNumbers_InlineCodeSkipped(t *testing.T) {
	out, err := CodeLineNumbers{}.Transform([]byte("<pre>x</pre><p><code>inline</code></p>"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(out), "data-line") {
		t.Errorf("expected no numbering outside pre>code, got %q", out)
	}
}
