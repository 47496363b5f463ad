package codec

// Wrapper is the small sealed hierarchy spec.md §4.1 describes: a codec, or
// one of a closed set of wrappers around another Wrapper (intersection,
// exact, partial, refinement, readonly). Resolution of a single property's
// sub-codec is a pattern match over this hierarchy, per spec.md §9
// ("Replacing codec-walking via structural tags").
//
// Go has no library modeling composable structural-schema wrappers this way
// (they are a TypeScript codec-library concept); this is a small
// stdlib-only closed-type switch, not a stand-in for a missing ecosystem
// dependency — see DESIGN.md.
type Wrapper interface {
	// PropsOf returns the wrapper's visible property names.
	PropsOf() []string
	// TryEncodeProp attempts to encode a single property. ok is false when
	// this wrapper has no rule for key, signalling the caller to try the
	// next wrapper (or fall back to the raw value unchanged).
	TryEncodeProp(key string, value any) (encoded any, ok bool)
}

// wrapperOf adapts *Codec[T] to Wrapper.
type wrapperOf[T any] struct{ c *Codec[T] }

// AsWrapper exposes c through the Wrapper interface for composition.
func AsWrapper[T any](c *Codec[T]) Wrapper { return wrapperOf[T]{c} }

func (w wrapperOf[T]) PropsOf() []string { return w.c.PropsOf() }

// TryEncodeProp is the leaf case of the wrapper walk: it does not call back
// into Codec.EncodeProp (which is itself built on this wrapper), it just
// reports whether key belongs to the wrapped codec's declared schema.
func (w wrapperOf[T]) TryEncodeProp(key string, value any) (any, bool) {
	if _, ok := w.c.byName[key]; !ok {
		return nil, false
	}
	return value, true
}

// Exact marks a wrapper as exact: EncodeProp for a key outside its declared
// properties never falls through to Inner's other declared names — it is
// already the terminal case, matching spec.md's "exact(codec)" contract.
type Exact struct{ Inner Wrapper }

func (e Exact) PropsOf() []string { return e.Inner.PropsOf() }
func (e Exact) TryEncodeProp(key string, value any) (any, bool) {
	return e.Inner.TryEncodeProp(key, value)
}

// Partial relaxes decode-time requiredness of Inner's properties. It does
// not change encode-time property resolution, so it delegates unchanged.
type Partial struct{ Inner Wrapper }

func (p Partial) PropsOf() []string { return p.Inner.PropsOf() }
func (p Partial) TryEncodeProp(key string, value any) (any, bool) {
	return p.Inner.TryEncodeProp(key, value)
}

// Readonly marks Inner's properties as immutable after construction. Encode
// resolution is unaffected.
type Readonly struct{ Inner Wrapper }

func (r Readonly) PropsOf() []string { return r.Inner.PropsOf() }
func (r Readonly) TryEncodeProp(key string, value any) (any, bool) {
	return r.Inner.TryEncodeProp(key, value)
}

// Refinement layers an additional decode-time predicate over Inner without
// changing its declared properties or encode resolution.
type Refinement struct {
	Inner Wrapper
	Check func(value any) error
}

func (r Refinement) PropsOf() []string { return r.Inner.PropsOf() }
func (r Refinement) TryEncodeProp(key string, value any) (any, bool) {
	return r.Inner.TryEncodeProp(key, value)
}

// Intersection composes two wrappers' property sets; EncodeProp tries A
// first, then B — the first match wins, mirroring union member-decode
// ordering (model.Union) rather than a merge.
type Intersection struct{ A, B Wrapper }

func (i Intersection) PropsOf() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, w := range []Wrapper{i.A, i.B} {
		for _, name := range w.PropsOf() {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}

func (i Intersection) TryEncodeProp(key string, value any) (any, bool) {
	if v, ok := i.A.TryEncodeProp(key, value); ok {
		return v, true
	}
	return i.B.TryEncodeProp(key, value)
}

// EncodeProp walks root through the wrapper hierarchy looking for a sub-codec
// matching key. If none matches, value is returned unchanged — the second
// sanctioned silent fallback from spec.md §7.
func EncodeProp(root Wrapper, key string, value any) any {
	if v, ok := root.TryEncodeProp(key, value); ok {
		return v
	}
	return value
}
