package parser

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"text/template"

	"github.com/dgallion1/docmerge/internal/placeholder"
)

// GoTemplate parses content as a text/template with the collection's
// values as the data map. Missing keys are errors rather than "<no value>".
type GoTemplate struct {
	funcs template.FuncMap
}

// NewGoTemplate returns a text/template parser with a small function set
// mirroring the Braces filters.
func NewGoTemplate() *GoTemplate {
	return &GoTemplate{
		funcs: template.FuncMap{
			"upper": strings.ToUpper,
			"lower": strings.ToLower,
			"trim":  strings.TrimSpace,
			"title": titleCase,
		},
	}
}

func (g *GoTemplate) Name() string { return "gotemplate" }

var missingKeyRegex = regexp.MustCompile(`map has no entry for key "([^"]+)"`)

func (g *GoTemplate) Parse(content []byte, c placeholder.Collection) ([]byte, error) {
	tmpl, err := template.New("document").
		Option("missingkey=error").
		Funcs(g.funcs).
		Parse(string(content))
	if err != nil {
		return nil, &SyntaxError{Expression: firstLine(err.Error()), Position: -1, Message: "template parse failed"}
	}

	data := map[string]any{}
	if c != nil {
		for name, v := range c.Values() {
			data[name] = placeholder.Plain(v)
		}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		if m := missingKeyRegex.FindStringSubmatch(err.Error()); len(m) == 2 {
			return nil, &UnresolvedError{Name: m[1], Position: -1}
		}
		return nil, fmt.Errorf("execute template: %w", err)
	}
	return buf.Bytes(), nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
