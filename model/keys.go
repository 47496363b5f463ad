package model

// Keys holds the derived index attributes written alongside a codec-encoded
// item: the mandatory primary pair, plus up to four optional secondary
// pairs. A nil GSI pointer means that index is not populated for this item.
type Keys struct {
	PK string
	SK string

	GSI2PK *string
	GSI2SK *string
	GSI3PK *string
	GSI3SK *string
	GSI4PK *string
	GSI4SK *string
	GSI5PK *string
	GSI5SK *string
}

// KeyProvider derives an item's index attributes from its typed value. Every
// Model requires one; there is no default because PK/SK derivation is
// always domain-specific (see spec's S1 scenario: PK = "PK#"+foo).
type KeyProvider[T any] interface {
	Keys(item T) Keys
}

// KeyProviderFunc adapts a plain function to KeyProvider.
type KeyProviderFunc[T any] func(item T) Keys

func (f KeyProviderFunc[T]) Keys(item T) Keys { return f(item) }

// AsMap flattens k into the wire-format entries the storage client writes.
// Absent optional pairs are omitted rather than written as empty strings.
func (k Keys) AsMap() map[string]string {
	out := map[string]string{"PK": k.PK, "SK": k.SK}
	pairs := []struct {
		name string
		val  *string
	}{
		{"GSI2PK", k.GSI2PK}, {"GSI2SK", k.GSI2SK},
		{"GSI3PK", k.GSI3PK}, {"GSI3SK", k.GSI3SK},
		{"GSI4PK", k.GSI4PK}, {"GSI4SK", k.GSI4SK},
		{"GSI5PK", k.GSI5PK}, {"GSI5SK", k.GSI5SK},
	}
	for _, p := range pairs {
		if p.val != nil {
			out[p.name] = *p.val
		}
	}
	return out
}

// deletedPrefix is prepended to every present index attribute by soft
// delete, per the stored-item-shape contract.
const deletedPrefix = "$$DELETED$$"

// softDeleted returns a copy of k with every present attribute prefixed.
func (k Keys) softDeleted() Keys {
	prefix := func(s string) string { return deletedPrefix + s }
	prefixPtr := func(s *string) *string {
		if s == nil {
			return nil
		}
		v := prefix(*s)
		return &v
	}
	return Keys{
		PK:     prefix(k.PK),
		SK:     prefix(k.SK),
		GSI2PK: prefixPtr(k.GSI2PK), GSI2SK: prefixPtr(k.GSI2SK),
		GSI3PK: prefixPtr(k.GSI3PK), GSI3SK: prefixPtr(k.GSI3SK),
		GSI4PK: prefixPtr(k.GSI4PK), GSI4SK: prefixPtr(k.GSI4SK),
		GSI5PK: prefixPtr(k.GSI5PK), GSI5SK: prefixPtr(k.GSI5SK),
	}
}
