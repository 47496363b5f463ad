package model

import (
	"fmt"

	"github.com/jacentio/weave/codec"
	"github.com/jacentio/weave/weaveerr"
)

// Union composes N≥2 models into a single polymorphic decoder. It holds
// members in declaration order plus a tag lookup, the same ordered-slice-
// plus-map shape as jacentio-trellis's Registry (store/registry.go), here
// generalized from "children by parent type" to "members by tag". There is
// deliberately no exported constructor for a bare Union value; use NewUnion.
type Union struct {
	members []AnyModel
	byTag   map[string]AnyModel
}

// NewUnion builds a Union over members, which must number at least two and carry
// distinct tags. Declaration order is preserved for the fallback decode walk.
func NewUnion(members ...AnyModel) *Union {
	if len(members) < 2 {
		panic("model: NewUnion: requires at least two members")
	}
	u := &Union{
		members: append([]AnyModel(nil), members...),
		byTag:   make(map[string]AnyModel, len(members)),
	}
	for _, m := range members {
		if _, dup := u.byTag[m.Tag()]; dup {
			panic(fmt.Sprintf("model: NewUnion: duplicate tag %q", m.Tag()))
		}
		u.byTag[m.Tag()] = m
	}
	return u
}

// Members returns the union's members in declaration order.
func (u *Union) Members() []AnyModel { return append([]AnyModel(nil), u.members...) }

// Decode implements the tag-first, declaration-order-tiebreak,
// first-match-wins algorithm from the union decoding contract:
//  1. if raw carries a string _tag matching a member, try that member first;
//  2. otherwise, or on that member's failure, try the rest in declaration
//     order and return the first success;
//  3. if none succeed, fail with a ValidationError.
func (u *Union) Decode(raw codec.RawObject) (AnyInstance, error) {
	tried := make(map[AnyModel]struct{}, len(u.members))

	if tagVal, ok := raw["_tag"].(string); ok {
		if m, ok := u.byTag[tagVal]; ok {
			tried[m] = struct{}{}
			if inst, err := m.DecodeAny(raw); err == nil {
				return inst, nil
			}
		}
	}

	for _, m := range u.members {
		if _, skip := tried[m]; skip {
			continue
		}
		if inst, err := m.DecodeAny(raw); err == nil {
			return inst, nil
		}
	}

	return nil, weaveerr.NewValidationError("union",
		"Couldn't decode using any of the provided union types.")
}

// Encode delegates to the instance's own Encode, since a decoded instance
// already knows which member produced it.
func (u *Union) Encode(inst AnyInstance) codec.RawObject { return inst.Encode() }

// Is reports whether v is an instance of any member.
func (u *Union) Is(v any) bool {
	for _, m := range u.members {
		if m.IsAny(v) {
			return true
		}
	}
	return false
}

// MemberByTag returns the member registered under tag, if any.
func (u *Union) MemberByTag(tag string) (AnyModel, bool) {
	m, ok := u.byTag[tag]
	return m, ok
}
