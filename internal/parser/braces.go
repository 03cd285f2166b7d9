package parser

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/net/html"

	"github.com/dgallion1/docmerge/internal/placeholder"
)

// Braces resolves {{ path }} expressions. A path is a placeholder name
// optionally followed by dotted field access, and may be piped through
// filters:
//
//	{{ customer.name | upper }}
//	{{ customer.title | default "Customer" }}
//
// Empty {{ }} pairs are kept as literal text.
type Braces struct {
	// Escape, when set, is applied to every substituted value.
	Escape func(string) string
}

var exprRegex = regexp.MustCompile(`\{\{([^}]*)\}\}`)

// NewBraces returns a parser that substitutes values verbatim.
func NewBraces() *Braces {
	return &Braces{}
}

// NewHTMLBraces returns a parser that HTML-escapes substituted values.
func NewHTMLBraces() *Braces {
	return &Braces{Escape: html.EscapeString}
}

func (b *Braces) Name() string {
	if b.Escape != nil {
		return "braces+escape"
	}
	return "braces"
}

func (b *Braces) Parse(content []byte, c placeholder.Collection) ([]byte, error) {
	if c == nil {
		c = placeholder.NewSet()
	}
	matches := exprRegex.FindAllSubmatchIndex(content, -1)
	if len(matches) == 0 {
		return content, nil
	}

	var buf bytes.Buffer
	buf.Grow(len(content))
	last := 0
	for _, m := range matches {
		buf.Write(content[last:m[0]])
		last = m[1]

		raw := string(content[m[2]:m[3]])
		if strings.TrimSpace(raw) == "" {
			buf.Write(content[m[0]:m[1]])
			continue
		}
		ex, err := parseExpression(raw, m[0])
		if err != nil {
			return nil, err
		}
		val, err := ex.eval(c)
		if err != nil {
			return nil, err
		}
		if b.Escape != nil {
			val = b.Escape(val)
		}
		buf.WriteString(val)
	}
	buf.Write(content[last:])
	return buf.Bytes(), nil
}

// Dependencies returns the placeholder names content needs, in first-use
// order. Expressions with a default filter are optional and not listed.
func (b *Braces) Dependencies(content []byte) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range exprRegex.FindAllSubmatchIndex(content, -1) {
		raw := string(content[m[2]:m[3]])
		if strings.TrimSpace(raw) == "" {
			continue
		}
		ex, err := parseExpression(raw, m[0])
		if err != nil || ex.hasDefault() {
			continue
		}
		root := placeholder.Root(ex.path)
		if !seen[root] {
			seen[root] = true
			out = append(out, root)
		}
	}
	return out
}

type filter struct {
	name string
	arg  string
}

type expression struct {
	source  string
	pos     int
	path    string
	filters []filter
}

var pathRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z0-9_]+)*$`)

// parseExpression splits "path | filter arg | filter". Content may have
// been through an HTML renderer, so entities are decoded first.
func parseExpression(raw string, pos int) (*expression, error) {
	src := html.UnescapeString(raw)
	parts := splitPipes(src)

	ex := &expression{source: strings.TrimSpace(src), pos: pos, path: strings.TrimSpace(parts[0])}
	if !pathRegex.MatchString(ex.path) {
		return nil, &SyntaxError{Expression: ex.source, Position: pos, Message: fmt.Sprintf("invalid placeholder path %q", ex.path)}
	}
	for _, p := range parts[1:] {
		p = strings.TrimSpace(p)
		name, arg, _ := strings.Cut(p, " ")
		arg = strings.TrimSpace(arg)
		f := filter{name: name}
		switch name {
		case "default":
			s, err := strconv.Unquote(arg)
			if err != nil {
				return nil, &SyntaxError{Expression: ex.source, Position: pos, Message: "default needs a quoted string argument"}
			}
			f.arg = s
		case "upper", "lower", "trim", "title":
			if arg != "" {
				return nil, &SyntaxError{Expression: ex.source, Position: pos, Message: fmt.Sprintf("%s takes no argument", name)}
			}
		default:
			return nil, &SyntaxError{Expression: ex.source, Position: pos, Message: fmt.Sprintf("unknown filter %q", name)}
		}
		ex.filters = append(ex.filters, f)
	}
	return ex, nil
}

// splitPipes splits on '|' outside double-quoted strings.
func splitPipes(s string) []string {
	var parts []string
	var cur strings.Builder
	inQuote := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch == '\\' && inQuote && i+1 < len(s):
			cur.WriteByte(ch)
			i++
			cur.WriteByte(s[i])
			continue
		case ch == '"':
			inQuote = !inQuote
		case ch == '|' && !inQuote:
			parts = append(parts, cur.String())
			cur.Reset()
			continue
		}
		cur.WriteByte(ch)
	}
	return append(parts, cur.String())
}

func (ex *expression) hasDefault() bool {
	for _, f := range ex.filters {
		if f.name == "default" {
			return true
		}
	}
	return false
}

func (ex *expression) eval(c placeholder.Collection) (string, error) {
	v, ok := placeholder.Lookup(c, ex.path)
	var s string
	if ok {
		s = format(v)
	}
	for _, f := range ex.filters {
		switch f.name {
		case "default":
			if !ok || s == "" {
				s, ok = f.arg, true
			}
		case "upper":
			s = strings.ToUpper(s)
		case "lower":
			s = strings.ToLower(s)
		case "trim":
			s = strings.TrimSpace(s)
		case "title":
			s = titleCase(s)
		}
	}
	if !ok {
		return "", &UnresolvedError{Name: ex.path, Position: ex.pos}
	}
	return s, nil
}

func format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
