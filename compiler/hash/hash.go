package hash

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/chazu/bluejay/compiler"
)

// Fingerprint computes the SHA-256 structural hash of a program.
//
// Two programs that differ only in layout, comments, or statement
// terminators produce the same fingerprint.
func Fingerprint(stmts []compiler.Stmt) ([32]byte, error) {
	data, err := Serialize(Normalize(stmts))
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(data), nil
}

// FingerprintSource parses source and fingerprints the result. Syntax
// errors are returned as compiler.Diagnostics.
func FingerprintSource(source string) ([32]byte, error) {
	stmts, diags := compiler.ParseSource(source)
	if err := diags.Err(); err != nil {
		return [32]byte{}, err
	}
	return Fingerprint(stmts)
}

// Hex renders a fingerprint as lowercase hex.
func Hex(sum [32]byte) string {
	return hex.EncodeToString(sum[:])
}
