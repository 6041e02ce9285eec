package hash

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// ---------------------------------------------------------------------------
// Deterministic serialization of the frozen hashing AST.
//
// Encoding: one HashVersion byte followed by the canonical CBOR encoding of
// the HNode tree. Canonical mode sorts map keys and uses the shortest
// integer and float forms, so equal trees always produce equal bytes.
// ---------------------------------------------------------------------------

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("hash: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// ErrVersion is returned by Decode when the version prefix is unknown.
var ErrVersion = errors.New("hash: unsupported serialization version")

// Serialize produces a deterministic byte serialization of an HNode tree.
func Serialize(node *HNode) ([]byte, error) {
	body, err := encMode.Marshal(node)
	if err != nil {
		return nil, fmt.Errorf("hash: marshal: %w", err)
	}
	out := make([]byte, 0, len(body)+1)
	out = append(out, HashVersion)
	return append(out, body...), nil
}

// Decode reverses Serialize.
func Decode(data []byte) (*HNode, error) {
	if len(data) == 0 || data[0] != HashVersion {
		return nil, ErrVersion
	}
	var n HNode
	if err := cbor.Unmarshal(data[1:], &n); err != nil {
		return nil, fmt.Errorf("hash: unmarshal: %w", err)
	}
	return &n, nil
}
