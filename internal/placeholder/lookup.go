package placeholder

import (
	"reflect"
	"strings"
)

// Lookup resolves a dotted path such as "customer.address.city" against c.
// The first segment names a placeholder; later segments walk maps and
// exported struct fields.
func Lookup(c Collection, path string) (any, bool) {
	parts := strings.Split(path, ".")
	v, ok := c.Get(parts[0])
	if !ok {
		return nil, false
	}
	for _, part := range parts[1:] {
		v, ok = field(v, part)
		if !ok {
			return nil, false
		}
	}
	return v, true
}

// Root returns the placeholder name a dotted path starts with.
func Root(path string) string {
	if i := strings.IndexByte(path, '.'); i >= 0 {
		return path[:i]
	}
	return path
}

func field(v any, name string) (any, bool) {
	switch m := v.(type) {
	case map[string]any:
		r, ok := m[name]
		return r, ok
	case map[string]string:
		r, ok := m[name]
		return r, ok
	case Collection:
		return m.Get(name)
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Struct:
		f := rv.FieldByName(name)
		if !f.IsValid() || !f.CanInterface() {
			return nil, false
		}
		return f.Interface(), true
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		r := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
		if !r.IsValid() {
			return nil, false
		}
		return r.Interface(), true
	}
	return nil, false
}

// Plain rewrites v into plain maps and slices, replacing every nested
// Collection with a map of its values. Scalars, structs and types with
// methods come back unchanged.
func Plain(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case Collection:
		if rv := reflect.ValueOf(x); rv.Kind() == reflect.Pointer && rv.IsNil() {
			return nil
		}
		out := make(map[string]any, x.Len())
		for _, name := range x.Names() {
			val, _ := x.Get(name)
			out[name] = Plain(val)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = Plain(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = Plain(val)
		}
		return out
	case string, []byte, map[string]string:
		return v
	}

	rv := reflect.ValueOf(v)
	// Named types with methods keep their own marshalling and template behaviour.
	if rv.Type().NumMethod() > 0 {
		return v
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = Plain(iter.Value().Interface())
		}
		return out
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return v
		}
		out := make([]any, rv.Len())
		for i := range rv.Len() {
			out[i] = Plain(rv.Index(i).Interface())
		}
		return out
	}
	return v
}
