package placeholder

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFromPairs_PreservesOrder(t *testing.T) {
	s := FromPairs(
		Placeholder{Name: "zeta", Value: 1},
		Placeholder{Name: "alpha", Value: 2},
		Placeholder{Name: "zeta", Value: 3},
	)
	if diff := cmp.Diff([]string{"zeta", "alpha"}, s.Names()); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
	if v, _ := s.Get("zeta"); v != 3 {
		t.Errorf("expected zeta=3, got %v", v)
	}
}

func TestFromMap_SortedNames(t *testing.T) {
	s := FromMap(map[string]any{"c": 1, "a": 2, "b": 3})
	if diff := cmp.Diff([]string{"a", "b", "c"}, s.Names()); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestNames_ReturnsCopy(t *testing.T) {
	s := FromPairs(Placeholder{Name: "a"}, Placeholder{Name: "b"})
	names := s.Names()
	names[0] = "mutated"
	if s.Names()[0] != "a" {
		t.Errorf("expected Names to be side-effect free, got %v", s.Names())
	}
}

func TestMerge_OverrideOnConflict(t *testing.T) {
	persistent := FromPairs(Placeholder{"a", 1}, Placeholder{"b", 2})
	call := FromPairs(Placeholder{"b", 3}, Placeholder{"c", 4})

	got := Merge(persistent, call, Override)

	want := map[string]any{"a": 1, "b": 3, "c": 4}
	if diff := cmp.Diff(want, got.Values()); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, got.Names()); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	// Inputs are untouched.
	if v, _ := persistent.Get("b"); v != 2 {
		t.Errorf("expected base to keep b=2, got %v", v)
	}
}

func TestMerge_KeepExisting(t *testing.T) {
	got := Merge(FromPairs(Placeholder{"a", 1}), FromPairs(Placeholder{"a", 9}, Placeholder{"b", 2}), KeepExisting)
	if v, _ := got.Get("a"); v != 1 {
		t.Errorf("expected a=1, got %v", v)
	}
	if v, _ := got.Get("b"); v != 2 {
		t.Errorf("expected b=2, got %v", v)
	}
}

func TestMerge_NilSides(t *testing.T) {
	if got := Merge(nil, nil, Override); got.Len() != 0 {
		t.Errorf("expected empty merge, got %d names", got.Len())
	}
	if got := Merge(nil, FromPairs(Placeholder{"x", 1}), Override); got.Len() != 1 {
		t.Errorf("expected 1 name, got %d", got.Len())
	}
}

func TestFromValue(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    []string
		invalid bool
	}{
		{"nil", nil, []string{}, false},
		{"any map", map[string]any{"b": 1, "a": 2}, []string{"a", "b"}, false},
		{"string map", map[string]string{"x": "1"}, []string{"x"}, false},
		{"pairs", []Placeholder{{Name: "q"}}, []string{"q"}, false},
		{"collection", FromPairs(Placeholder{Name: "k"}), []string{"k"}, false},
		{"string", "customer", nil, true},
		{"slice", []int{1, 2}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := FromValue(tt.in)
			if tt.invalid {
				if !IsInvalidInput(err) {
					t.Fatalf("expected InvalidInputError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, c.Names()); diff != "" {
				t.Errorf("names mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolve_UsesFactory(t *testing.T) {
	called := 0
	factory := func(m map[string]any) (Collection, error) {
		called++
		return FromMap(m).Set("injected", true), nil
	}

	c, err := Resolve(map[string]any{"a": 1}, factory)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called != 1 {
		t.Errorf("expected factory to be called once, got %d", called)
	}
	if !Has(c, "a", "injected") {
		t.Errorf("expected factory output, got %v", c.Names())
	}

	// Collections bypass the factory.
	if _, err := Resolve(FromPairs(), factory); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called != 1 {
		t.Errorf("expected factory not to be called for collections, got %d calls", called)
	}
}

type address struct {
	City string
	zip  string
}

type customer struct {
	Name    string
	Address *address
}

func TestLookup_DottedPaths(t *testing.T) {
	c := FromPairs(
		Placeholder{"customer", customer{Name: "Ada", Address: &address{City: "London", zip: "N1"}}},
		Placeholder{"order", map[string]any{"id": 42, "lines": map[string]string{"first": "tea"}}},
		Placeholder{"appName", "Mail Merge"},
	)

	tests := []struct {
		path string
		want any
		ok   bool
	}{
		{"appName", "Mail Merge", true},
		{"customer.Name", "Ada", true},
		{"customer.Address.City", "London", true},
		{"customer.Address.zip", nil, false},
		{"customer.Missing", nil, false},
		{"order.id", 42, true},
		{"order.lines.first", "tea", true},
		{"missing.path", nil, false},
	}
	for _, tt := range tests {
		got, ok := Lookup(c, tt.path)
		if ok != tt.ok {
			t.Errorf("Lookup(%q): expected ok=%v, got %v", tt.path, tt.ok, ok)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("Lookup(%q): expected %v, got %v", tt.path, tt.want, got)
		}
	}
}

func TestPlain(t *testing.T) {
	var nilSet *Set
	in := map[string]any{
		"customer": FromMap(map[string]any{
			"name":    "Ada",
			"address": FromMap(map[string]any{"city": "London"}),
		}),
		"tags":  []string{"vip"},
		"lines": []any{FromMap(map[string]any{"sku": "tea"})},
		"empty": nilSet,
		"count": 3,
	}
	want := map[string]any{
		"customer": map[string]any{
			"name":    "Ada",
			"address": map[string]any{"city": "London"},
		},
		"tags":  []any{"vip"},
		"lines": []any{map[string]any{"sku": "tea"}},
		"empty": nil,
		"count": 3,
	}
	if diff := cmp.Diff(want, Plain(in)); diff != "" {
		t.Errorf("plain mismatch (-want +got):\n%s", diff)
	}

	c := customer{Name: "Ada"}
	if got := Plain(c); got != any(c) {
		t.Errorf("expected structs unchanged, got %#v", got)
	}
}

func TestReadCSV(t *testing.T) {
	input := "name, email\nAda,ada@example.com\nGrace\n"
	rows, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if diff := cmp.Diff([]string{"name", "email"}, rows[0].Names()); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}
	if v, _ := rows[1].Get("email"); v != "" {
		t.Errorf("expected short row to be padded, got %q", v)
	}
}

func TestReadCSV_Errors(t *testing.T) {
	for _, input := range []string{"a,,c\n1,2,3\n", "a\n1,2\n"} {
		if _, err := ReadCSV(strings.NewReader(input)); !IsInvalidInput(err) {
			t.Errorf("input %q: expected InvalidInputError, got %v", input, err)
		}
	}
}
