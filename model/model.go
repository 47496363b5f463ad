// Package model binds a codec, a stable tag, and a key-derivation strategy
// into a constructible record type (Model[T]), and composes models into a
// polymorphic decoder (Union). It generalizes jacentio-trellis's Entity
// capability interfaces (store/entity.go) and its Registry's ordered
// lookup-by-name shape (store/registry.go) into a generic seam usable by
// any typed record, not just the teacher's parent/child entity hierarchy.
package model

import "github.com/jacentio/weave/codec"

// AnyModel is the type-erased view of a Model[T], letting a Union hold
// heterogeneous members and the storage client route decoded rows without
// further type information.
type AnyModel interface {
	Tag() string
	DecodeAny(raw codec.RawObject) (AnyInstance, error)
	EncodeAny(inst AnyInstance) codec.RawObject
	IsAny(v any) bool
	EncodeProp(key string, value any) any
}

// Model constructs and decodes typed records of T, and carries whatever
// class/instance capabilities its Provider supplies. The zero value is not
// usable; build one with New.
type Model[T any] struct {
	tag      string
	codec    codec.CodecLike[T]
	keys     KeyProvider[T]
	provider Provider[T]
}

// New builds a Model bound to tag, validating and encoding records with c,
// and deriving each instance's index attributes with keys. c is any
// CodecLike[T] — a bare *codec.Codec[T], or the result of Model.Pipe — so a
// piped codec chain can be bound to a fresh Model the same way a plain one
// can. provider may be nil (equivalent to NopProvider[T]{}).
func New[T any](tag string, c codec.CodecLike[T], keys KeyProvider[T], provider Provider[T]) *Model[T] {
	if keys == nil {
		panic("model: New: keys must not be nil")
	}
	return &Model[T]{tag: tag, codec: c, keys: keys, provider: provider}
}

// Tag returns the model's stable, union-unique tag.
func (m *Model[T]) Tag() string { return m.tag }

// New constructs an instance directly from a typed value with no
// validation, matching the "construction from a typed input" half of the
// lifecycle contract (used e.g. for a freshly built row before its first
// put).
func (m *Model[T]) New(value T) *Instance[T] {
	return &Instance[T]{model: m, value: value, keys: m.keys.Keys(value)}
}

// Decode validates raw against the codec and, on success, wraps the result
// in an instance. This is the "decoding from a raw object" half of the
// lifecycle contract; unlike the source material's separate from/
// decodeOrThrow/decode statics, Go's error return already forces callers to
// handle failure, so all three collapse into this one method.
func (m *Model[T]) Decode(raw codec.RawObject) (*Instance[T], error) {
	value, err := m.codec.Decode(raw)
	if err != nil {
		return nil, err
	}
	inst := &Instance[T]{model: m, value: value, keys: m.keys.Keys(value)}
	if dv, ok := raw["_docVersion"]; ok {
		if n, ok := toInt64(dv); ok {
			inst.docVersion = n
		}
	}
	if da, ok := raw["_deletedAt"].(string); ok && da != "" {
		inst.deletedAt = &da
	}
	return inst, nil
}

// DecodeAny is Decode with the result type-erased to AnyInstance, letting
// Union dispatch across heterogeneous members.
func (m *Model[T]) DecodeAny(raw codec.RawObject) (AnyInstance, error) {
	return m.Decode(raw)
}

// FromValues decodes values (schema-only, no _tag/_docVersion metadata) and
// assigns docVersion explicitly, used by the update flow to build a
// post-image instance whose version is the caller-computed next version
// rather than whatever (if anything) values happens to carry.
func (m *Model[T]) FromValues(values codec.RawObject, docVersion int64) (*Instance[T], error) {
	value, err := m.codec.Decode(values)
	if err != nil {
		return nil, err
	}
	return &Instance[T]{model: m, value: value, keys: m.keys.Keys(value), docVersion: docVersion}, nil
}

// Encode delegates to inst.Encode(); it exists as a Model-level static to
// mirror the source's `Model.encode(instance)` entry point.
func (m *Model[T]) Encode(inst *Instance[T]) codec.RawObject { return inst.Encode() }

// EncodeAny is Encode accepting a type-erased instance, used by Union and
// by the storage client's generic write path.
func (m *Model[T]) EncodeAny(inst AnyInstance) codec.RawObject { return inst.Encode() }

// Is reports whether v is an *Instance[T] produced by this model.
func (m *Model[T]) Is(v any) bool {
	inst, ok := v.(*Instance[T])
	return ok && inst.model == m
}

// IsAny is Is over an untyped value, used by Union.Is.
func (m *Model[T]) IsAny(v any) bool { return m.Is(v) }

// EncodeProp best-effort encodes a single named property's value via the
// underlying codec, returning value unchanged if key is not declared.
func (m *Model[T]) EncodeProp(key string, value any) any {
	return m.codec.EncodeProp(key, value)
}

// PropsOf returns the codec-declared schema property names.
func (m *Model[T]) PropsOf() []string { return m.codec.PropsOf() }

// Validate runs the codec's structural validation on value without
// constructing an instance.
func (m *Model[T]) Validate(value T) error { return m.codec.Validate(value) }

// Pipe composes the model's codec with an additional codec ab, returning
// the chained codec per spec.md §4.2's pipe(ab) contract ("compose with an
// additional codec to form a new codec chain"). It hands back the chain
// itself rather than a new Model — a caller wanting a Model bound to it
// constructs one with New(tag, m.Pipe(ab), keys, provider), since
// codec.Piped[T] is itself a codec.CodecLike[T].
func (m *Model[T]) Pipe(ab codec.CodecLike[T]) *codec.Piped[T] {
	return codec.Pipe(m.codec, ab)
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}
