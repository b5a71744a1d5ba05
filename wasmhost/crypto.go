package wasmhost

// crypto.go — secp256k1/secp256r1/ed25519 verify & recover host
// imports (spec §4.3 table). Grounded on core/utility_functions.go's
// opECRECOVER (extracted into this file before that file's deletion,
// see DESIGN.md) using github.com/ethereum/go-ethereum/crypto for
// recovery and github.com/decred/dcrd/dcrec/secp256k1/v4 for plain
// verify; ed25519 uses the stdlib (justified: idiomatic even in
// CometBFT itself, no ecosystem wrapper appears in the pack for it).

import (
	"crypto/ed25519"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"grug/apperror"
)

// Algorithm enumerates the signature schemes the host dispatches.
type Algorithm string

const (
	AlgSecp256k1 Algorithm = "secp256k1"
	AlgSecp256r1 Algorithm = "secp256r1"
	AlgEd25519   Algorithm = "ed25519"
)

// VerifyResult mirrors the ABI contract: 0 on success, nonzero on
// failure (spec §4.3).
const (
	VerifyOK    uint32 = 0
	VerifyFail  uint32 = 1
)

// Verify checks sig over msgHash under pubkey for the given algorithm.
func Verify(alg Algorithm, msgHash, sig, pubkey []byte) (uint32, error) {
	switch alg {
	case AlgSecp256k1:
		return verifySecp256k1(msgHash, sig, pubkey), nil
	case AlgSecp256r1:
		// Reserved per spec §9 Open Question: kept in the dispatch
		// table but not mandated until a contract declares it.
		return VerifyFail, apperror.Host("secp256r1 verify not implemented", nil)
	case AlgEd25519:
		return verifyEd25519(msgHash, sig, pubkey), nil
	default:
		return VerifyFail, apperror.Argument("unknown signature algorithm")
	}
}

func verifySecp256k1(msgHash, sig, pubkey []byte) uint32 {
	pk, err := secp256k1.ParsePubKey(pubkey)
	if err != nil {
		return VerifyFail
	}
	s, err := ecdsa.ParseDERSignature(sig)
	if err != nil {
		// try compact 64-byte (r||s) form
		if len(sig) == 64 {
			var r, ss secp256k1.ModNScalar
			r.SetByteSlice(sig[:32])
			ss.SetByteSlice(sig[32:64])
			s = ecdsa.NewSignature(&r, &ss)
		} else {
			return VerifyFail
		}
	}
	if s.Verify(msgHash, pk) {
		return VerifyOK
	}
	return VerifyFail
}

func verifyEd25519(msgHash, sig, pubkey []byte) uint32 {
	if len(pubkey) != ed25519.PublicKeySize {
		return VerifyFail
	}
	if ed25519.Verify(ed25519.PublicKey(pubkey), msgHash, sig) {
		return VerifyOK
	}
	return VerifyFail
}

// Recover recovers the public key from a secp256k1 signature over
// msgHash, returning its uncompressed serialization. Grounded on
// opECRECOVER's use of go-ethereum's crypto.SigToPub/PubkeyToAddress.
func Recover(msgHash, sig []byte, recoveryID byte) ([]byte, error) {
	full := append(append([]byte(nil), sig...), recoveryID)
	pub, err := ethcrypto.SigToPub(msgHash, full)
	if err != nil {
		return nil, apperror.Host("ecrecover failed", err)
	}
	return ethcrypto.FromECDSAPub(pub), nil
}
