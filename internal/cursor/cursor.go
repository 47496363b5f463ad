// Package cursor encodes and decodes opaque pagination cursors: base64 JSON
// of an item's keys, optionally AES-256-CTR encrypted under a fixed
// synthetic IV so the same item always yields the same cursor.
//
// No repo in the retrieval pack performs item-key encryption, so this stays
// on the standard library (crypto/aes, crypto/cipher) rather than adopting
// an unrelated ecosystem dependency just to have one — see DESIGN.md.
package cursor

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"encoding/json"

	"github.com/jacentio/weave/weaveerr"
)

// syntheticIV is fixed rather than random: cursors must be deterministic
// across calls for the same item (retained per the open-question decision
// in DESIGN.md — cursors are opaque, not secret).
var syntheticIV = [aes.BlockSize]byte{
	0x77, 0x65, 0x61, 0x76, 0x65, 0x2d, 0x63, 0x75,
	0x72, 0x73, 0x6f, 0x72, 0x2d, 0x69, 0x76, 0x00,
}

// KeySize is the required AES-256 key length for an encrypted cursor.
const KeySize = 32

// Payload is the set of key attributes a cursor round-trips: PK and SK for
// a primary-index query, plus an index's GSI pair when paginating a
// secondary index.
type Payload struct {
	PK     string  `json:"PK"`
	SK     string  `json:"SK"`
	GSIPK  *string `json:"GSInPK,omitempty"`
	GSISK  *string `json:"GSInSK,omitempty"`
}

// Encode serializes p to base64 JSON, encrypting under key first if key is
// non-nil (must be KeySize bytes).
func Encode(p Payload, key []byte) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", weaveerr.NewPaginationError("couldn't encode cursor")
	}
	if key != nil {
		data, err = encrypt(data, key)
		if err != nil {
			return "", err
		}
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// Decode reverses Encode. Any failure — bad base64, bad ciphertext, bad
// JSON — surfaces as the single PaginationError the pagination contract
// mandates, never a lower-level error.
func Decode(s string, key []byte) (Payload, error) {
	var out Payload
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return out, weaveerr.NewPaginationError("Couldn't decode cursor")
	}
	if key != nil {
		data, err = decrypt(data, key)
		if err != nil {
			return out, weaveerr.NewPaginationError("Couldn't decode cursor")
		}
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, weaveerr.NewPaginationError("Couldn't decode cursor")
	}
	return out, nil
}

func encrypt(plaintext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, weaveerr.NewPaginationError("invalid cursor encryption key")
	}
	stream := cipher.NewCTR(block, syntheticIV[:])
	out := make([]byte, len(plaintext))
	stream.XORKeyStream(out, plaintext)
	return out, nil
}

func decrypt(ciphertext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, weaveerr.NewPaginationError("invalid cursor encryption key")
	}
	stream := cipher.NewCTR(block, syntheticIV[:])
	out := make([]byte, len(ciphertext))
	stream.XORKeyStream(out, ciphertext)
	return out, nil
}
