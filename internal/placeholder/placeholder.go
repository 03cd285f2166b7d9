package placeholder

import (
	"fmt"
	"sort"
)

// Placeholder is a single named substitution value. The value is opaque to
// the pipeline and only interpreted by parsers and transformers.
type Placeholder struct {
	Name  string
	Value any
}

// Collection is an ordered, name-keyed set of placeholder values.
type Collection interface {
	// Names returns the available names in enumeration order.
	Names() []string
	Get(name string) (any, bool)
	// Values returns a copy of the name/value mapping.
	Values() map[string]any
	Len() int
}

// Set is the standard Collection implementation. Insertion order is kept
// for enumeration; setting an existing name replaces its value in place.
type Set struct {
	order  []string
	values map[string]any
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{values: make(map[string]any)}
}

// FromPairs builds a Set preserving the order of the given placeholders.
// A later duplicate name overrides the earlier value.
func FromPairs(pairs ...Placeholder) *Set {
	s := NewSet()
	for _, p := range pairs {
		s.Set(p.Name, p.Value)
	}
	return s
}

// FromMap builds a Set from a name/value mapping. Names are enumerated in
// lexical order so the result is stable across calls.
func FromMap(values map[string]any) *Set {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	s := NewSet()
	for _, name := range names {
		s.Set(name, values[name])
	}
	return s
}

// FromValue converts any supported placeholder source into a Collection.
// Unsupported sources yield an InvalidInputError.
func FromValue(v any) (Collection, error) {
	switch src := v.(type) {
	case nil:
		return NewSet(), nil
	case Collection:
		return src, nil
	case map[string]any:
		return FromMap(src), nil
	case map[string]string:
		m := make(map[string]any, len(src))
		for k, val := range src {
			m[k] = val
		}
		return FromMap(m), nil
	case []Placeholder:
		return FromPairs(src...), nil
	default:
		return nil, &InvalidInputError{Got: fmt.Sprintf("%T", v)}
	}
}

// Set stores value under name.
func (s *Set) Set(name string, value any) *Set {
	if _, ok := s.values[name]; !ok {
		s.order = append(s.order, name)
	}
	s.values[name] = value
	return s
}

func (s *Set) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

func (s *Set) Get(name string) (any, bool) {
	v, ok := s.values[name]
	return v, ok
}

func (s *Set) Values() map[string]any {
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

func (s *Set) Len() int {
	return len(s.order)
}

// Has reports whether every name is present in c.
func Has(c Collection, names ...string) bool {
	for _, n := range names {
		if _, ok := c.Get(n); !ok {
			return false
		}
	}
	return true
}

// Clone copies c into a new Set, keeping its enumeration order.
func Clone(c Collection) *Set {
	s := NewSet()
	if c == nil {
		return s
	}
	for _, name := range c.Names() {
		v, _ := c.Get(name)
		s.Set(name, v)
	}
	return s
}
