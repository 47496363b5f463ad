package model

import "github.com/jacentio/weave/codec"

// AnyInstance is the type-erased view of an Instance[T], letting Union hold
// heterogeneous members. Every Instance[T] satisfies it.
type AnyInstance interface {
	Tag() string
	Values() codec.RawObject
	Encode() codec.RawObject
	Keys() Keys
	DocVersion() int64
	DeletedAt() *string
}

// Instance is one decoded or constructed record of a Model[T]. The zero
// value is not usable; obtain one via Model.New or Model.Decode.
type Instance[T any] struct {
	model      *Model[T]
	value      T
	keys       Keys
	docVersion int64
	deletedAt  *string
}

// Tag returns the owning Model's tag.
func (i *Instance[T]) Tag() string { return i.model.tag }

// Model returns the Model that produced this instance, letting generic
// callers (e.g. the update flow) re-derive keys or decode a sibling
// instance without threading the Model through separately.
func (i *Instance[T]) Model() *Model[T] { return i.model }

// Value returns the underlying typed record.
func (i *Instance[T]) Value() T { return i.value }

// Keys returns the derived index attributes.
func (i *Instance[T]) Keys() Keys { return i.keys }

// DocVersion returns the optimistic-concurrency version last observed or
// assigned for this instance.
func (i *Instance[T]) DocVersion() int64 { return i.docVersion }

// DeletedAt returns the soft-delete timestamp, or nil if the item is live.
func (i *Instance[T]) DeletedAt() *string { return i.deletedAt }

// Values returns only the codec-declared schema attributes.
func (i *Instance[T]) Values() codec.RawObject {
	return i.model.codec.Encode(i.value)
}

// ClassOps returns the Model's static capabilities, or nil if it has none.
func (i *Instance[T]) ClassOps() any {
	if i.model.provider == nil {
		return nil
	}
	return i.model.provider.ClassOps()
}

// InstanceOps returns this item's provider-supplied capabilities, or nil.
func (i *Instance[T]) InstanceOps() any {
	if i.model.provider == nil {
		return nil
	}
	return i.model.provider.InstanceOps(i.value)
}

// Encode returns the codec-declared schema attributes annotated with `_tag`
// and nothing else, per "encode() returns exact(codec).encode(this) merged
// with {_tag}": derived index attributes, `_docVersion`, and `_deletedAt`
// are transport-owned, not schema, and are folded onto the stored item by
// the write paths themselves (via Keys(), DocVersion(), DeletedAt()) rather
// than by Encode.
func (i *Instance[T]) Encode() codec.RawObject {
	out := i.Values()
	out["_tag"] = i.model.tag
	return out
}

// SoftDeleted returns a copy of i with `$$DELETED$$`-prefixed keys and a
// deletion timestamp set, per applySoftDeletionFields.
func (i *Instance[T]) SoftDeleted(deletedAt string) *Instance[T] {
	cp := *i
	cp.keys = i.keys.softDeleted()
	cp.deletedAt = &deletedAt
	return &cp
}
