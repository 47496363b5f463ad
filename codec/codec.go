// Package codec validates, encodes, and decodes typed records against a
// structural schema derived from Go struct tags. It underpins model.Model,
// which binds a Codec to a tag and a set of storage capabilities.
package codec

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jacentio/weave/weaveerr"
)

// RawObject is an untyped, JSON-like view of an encoded or to-be-decoded
// record — the shape items travel in on the wire between the engine and the
// store, and the shape codec.Decode accepts as input.
type RawObject = map[string]any

// CodecLike is the contract model.Model needs from whatever validates,
// encodes, and decodes its records — satisfied by both *Codec[T] and, via
// Pipe, *Piped[T]. Modeling it as an interface (rather than binding Model
// directly to *Codec[T]) is what lets pipe(ab)'s composed chain stand in
// anywhere a bare codec could, per spec.md §4.2.
type CodecLike[T any] interface {
	Decode(RawObject) (T, error)
	Validate(T) error
	Encode(T) RawObject
	Is(any) bool
	PropsOf() []string
	EncodeProp(key string, value any) any
}

// FieldSpec describes one schema-declared property of T.
type FieldSpec struct {
	// Name is the wire attribute name (from the `weave` tag, or the Go
	// field name with its first letter lowercased if untagged).
	Name string
	// Index is the reflect.StructField index path for this field.
	Index []int
	// Type is the field's static Go type.
	Type reflect.Type
}

// Codec validates, decodes, and encodes records of type T. The zero value is
// not usable; construct one with New.
type Codec[T any] struct {
	typ      reflect.Type
	fields   []FieldSpec
	byName   map[string]FieldSpec
	validate *validator.Validate
}

// New builds a Codec for T by reflecting its exported fields. Fields tagged
// `weave:"-"` are excluded from the schema (and so from encode/decode/props).
// All other exported fields participate, using `weave:"name"` for the wire
// name when present, or `validate:"..."` tags for go-playground/validator/v10
// structural rules.
func New[T any]() *Codec[T] {
	var zero T
	typ := reflect.TypeOf(zero)
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		panic(fmt.Sprintf("codec: New[%s]: type must be a struct", typ))
	}

	c := &Codec[T]{
		typ:      typ,
		byName:   make(map[string]FieldSpec),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	walkFields(typ, nil, func(sf reflect.StructField, index []int) {
		if sf.PkgPath != "" {
			return // unexported
		}
		tag := sf.Tag.Get("weave")
		if tag == "-" {
			return
		}
		name := tag
		if name == "" {
			name = strings.ToLower(sf.Name[:1]) + sf.Name[1:]
		}
		fs := FieldSpec{Name: name, Index: append([]int(nil), index...), Type: sf.Type}
		c.fields = append(c.fields, fs)
		c.byName[name] = fs
	})
	return c
}

func walkFields(typ reflect.Type, prefix []int, visit func(reflect.StructField, []int)) {
	for i := 0; i < typ.NumField(); i++ {
		sf := typ.Field(i)
		idx := append(append([]int(nil), prefix...), i)
		visit(sf, idx)
	}
}

// PropsOf returns the declared schema property names, in struct declaration
// order.
func (c *Codec[T]) PropsOf() []string {
	names := make([]string, len(c.fields))
	for i, f := range c.fields {
		names[i] = f.Name
	}
	return names
}

// Is reports whether v is a value of T that satisfies this codec's
// validation rules.
func (c *Codec[T]) Is(v any) bool {
	t, ok := v.(T)
	if !ok {
		return false
	}
	return c.validate.Struct(t) == nil
}

// Decode validates raw against the schema and, on success, populates a new T
// from its declared properties. Extra keys in raw are ignored (the codec is
// exact on encode, not strict on decode input).
func (c *Codec[T]) Decode(raw RawObject) (T, error) {
	var out T
	outVal := reflect.New(c.typ).Elem()

	for _, f := range c.fields {
		rv, present := raw[f.Name]
		if !present {
			continue
		}
		fieldVal := outVal.FieldByIndex(f.Index)
		if err := assign(fieldVal, rv); err != nil {
			return out, weaveerr.NewValidationError(c.typ.Name(),
				fmt.Sprintf("property %q: %v", f.Name, err))
		}
	}

	result := outVal.Interface().(T)
	if err := c.validate.Struct(result); err != nil {
		return out, decodeValidationError(c.typ.Name(), err)
	}
	return result, nil
}

func decodeValidationError(tag string, err error) *weaveerr.ValidationError {
	var issues []string
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			issues = append(issues, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
		}
	} else {
		issues = []string{err.Error()}
	}
	return weaveerr.NewValidationError(tag, issues...)
}

// Validate runs decode-time validation on an already-constructed value,
// mirroring the codec-compatible `validate` contract models delegate to.
func (c *Codec[T]) Validate(v T) error {
	if err := c.validate.Struct(v); err != nil {
		return decodeValidationError(c.typ.Name(), err)
	}
	return nil
}

// Encode returns the schema-declared attributes of item as a RawObject.
// Properties outside the declared schema are never emitted (the "exact"
// contract from spec.md's Codec description).
func (c *Codec[T]) Encode(item T) RawObject {
	val := reflect.ValueOf(item)
	out := make(RawObject, len(c.fields))
	for _, f := range c.fields {
		out[f.Name] = val.FieldByIndex(f.Index).Interface()
	}
	return out
}

// EncodeProp best-effort encodes a single named property's value by
// resolving key through the exact(codec) wrapper compose.go builds around
// this codec, per spec.md §4.1(c)/§9's "descend through intersection,
// exact, partial, refinement, and readonly wrappers and return the first
// match". A bare Codec has nothing to descend into beyond itself, so this
// is the base case that composed wrappers (Intersect, Partial, Readonly,
// Refine) ultimately bottom out on. If key is not part of the declared
// schema, value is returned unchanged — one of the two sanctioned silent
// fallbacks (spec.md §7).
func (c *Codec[T]) EncodeProp(key string, value any) any {
	return EncodeProp(Exact{Inner: AsWrapper(c)}, key, value)
}

// assign coerces rv into dst, following the same map[string]any decoding
// path attributevalue.UnmarshalMap uses: exact type match or numeric
// widening only, never silent lossy conversion.
func assign(dst reflect.Value, rv any) error {
	if rv == nil {
		return nil
	}
	val := reflect.ValueOf(rv)
	if val.Type().AssignableTo(dst.Type()) {
		dst.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(dst.Type()) &&
		(isNumericKind(val.Kind()) && isNumericKind(dst.Kind())) {
		dst.Set(val.Convert(dst.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %s into %s", val.Type(), dst.Type())
}

// Piped chains two CodecLikes of the same shape T, per spec.md §4.2's
// `pipe(ab)`: "compose with an additional codec to form a new codec chain."
// Decode/Validate run through a first, then re-validate the result against
// b — the composed chain, not a merge of the two schemas — while Encode,
// PropsOf, and EncodeProp stay a's, since b exists only to layer additional
// decode-time constraints on a's already-declared schema. A *Piped[T] is
// itself a CodecLike[T], so chains compose (Pipe(Pipe(a, b), c)) the same
// way spec.md's source pipes compose. The zero value is not usable; build
// one with Pipe.
type Piped[T any] struct {
	a, b CodecLike[T]
}

// Pipe composes a with an additional codec b, returning the chain. Either
// argument may itself be the result of a prior Pipe.
func Pipe[T any](a, b CodecLike[T]) *Piped[T] {
	return &Piped[T]{a: a, b: b}
}

// Decode runs raw through a, then re-validates the result against b's
// rules before returning it.
func (p *Piped[T]) Decode(raw RawObject) (T, error) {
	v, err := p.a.Decode(raw)
	if err != nil {
		return v, err
	}
	if err := p.b.Validate(v); err != nil {
		return v, err
	}
	return v, nil
}

// Validate runs v through both a's and b's validation rules in order.
func (p *Piped[T]) Validate(v T) error {
	if err := p.a.Validate(v); err != nil {
		return err
	}
	return p.b.Validate(v)
}

// Encode delegates to a — the chain's Encode contract belongs to the
// schema-defining codec, not the codec layered on top of it.
func (p *Piped[T]) Encode(item T) RawObject { return p.a.Encode(item) }

// Is reports whether v satisfies both a's and b's rules.
func (p *Piped[T]) Is(v any) bool {
	t, ok := v.(T)
	if !ok {
		return false
	}
	return p.a.Is(t) && p.b.Validate(t) == nil
}

// PropsOf returns a's declared schema property names.
func (p *Piped[T]) PropsOf() []string { return p.a.PropsOf() }

// EncodeProp delegates to a, matching Encode's precedence.
func (p *Piped[T]) EncodeProp(key string, value any) any { return p.a.EncodeProp(key, value) }

func isNumericKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}
