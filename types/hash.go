package types

// hash.go — fixed-length hash types. Grounded on core/common_structs.go's
// Hash [32]byte; split into Hash256/Hash160 per the Grug data model.

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // teacher pattern: retained for Address derivation
)

// Hash256 is a 32-byte digest, typically a SHA-256 output.
type Hash256 [32]byte

// Hash160 is a 20-byte digest, typically RIPEMD-160(SHA-256(x)).
type Hash160 [20]byte

// ZeroHash256 is the zero root used before any commit has happened.
func ZeroHash256() Hash256 { return Hash256{} }

func (h Hash256) String() string { return hex.EncodeToString(h[:]) }
func (h Hash160) String() string { return hex.EncodeToString(h[:]) }

func (h Hash256) Bytes() []byte { return h[:] }
func (h Hash160) Bytes() []byte { return h[:] }

func (h Hash256) IsZero() bool { return h == Hash256{} }

// Sha256 computes the SHA-256 digest of data.
func Sha256(data []byte) Hash256 {
	return Hash256(sha256.Sum256(data))
}

// Ripemd160Sha256 computes RIPEMD-160(SHA-256(data)), the hash chain
// used throughout Grug for address derivation.
func Ripemd160Sha256(data []byte) Hash160 {
	sum := sha256.Sum256(data)
	h := ripemd160.New()
	h.Write(sum[:])
	var out Hash160
	copy(out[:], h.Sum(nil))
	return out
}

// Hash256FromBytes builds a Hash256, zero-padding or erroring is the
// caller's choice; len(b) must equal 32.
func Hash256FromBytes(b []byte) (Hash256, bool) {
	var h Hash256
	if len(b) != len(h) {
		return h, false
	}
	copy(h[:], b)
	return h, true
}
