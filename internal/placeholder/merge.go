package placeholder

// Strategy decides which value survives a name collision in Merge.
type Strategy int

const (
	// Override lets the later collection win. This is the default.
	Override Strategy = iota
	// KeepExisting keeps the value from the base collection.
	KeepExisting
)

// Merge combines base and over into a new Set. Names from base come first
// in their original order, followed by names only present in over.
func Merge(base, over Collection, strategy Strategy) *Set {
	out := Clone(base)
	if over == nil {
		return out
	}
	for _, name := range over.Names() {
		v, _ := over.Get(name)
		if _, exists := out.Get(name); exists && strategy == KeepExisting {
			continue
		}
		out.Set(name, v)
	}
	return out
}

// Factory converts a raw mapping into a Collection. Managers hold one so
// callers can substitute their own collection type.
type Factory func(map[string]any) (Collection, error)

// DefaultFactory builds the standard Set.
func DefaultFactory(values map[string]any) (Collection, error) {
	return FromMap(values), nil
}

// Resolve turns v into a Collection, routing raw mappings through factory.
func Resolve(v any, factory Factory) (Collection, error) {
	if factory == nil {
		factory = DefaultFactory
	}
	switch src := v.(type) {
	case map[string]any:
		return factory(src)
	case map[string]string:
		m := make(map[string]any, len(src))
		for k, val := range src {
			m[k] = val
		}
		return factory(m)
	}
	return FromValue(v)
}
