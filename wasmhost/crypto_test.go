package wasmhost

import (
	"crypto/ed25519"
	"crypto/sha256"
	"testing"
)

func TestVerifyEd25519RoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	msgHash := sha256.Sum256([]byte("grug"))
	sig := ed25519.Sign(priv, msgHash[:])

	result, err := Verify(AlgEd25519, msgHash[:], sig, pub)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if result != VerifyOK {
		t.Fatalf("expected VerifyOK, got %d", result)
	}
}

func TestVerifyEd25519RejectsTamperedSignature(t *testing.T) {
	pub, priv, _ := ed25519.GenerateKey(nil)
	msgHash := sha256.Sum256([]byte("grug"))
	sig := ed25519.Sign(priv, msgHash[:])
	sig[0] ^= 0xFF

	result, _ := Verify(AlgEd25519, msgHash[:], sig, pub)
	if result != VerifyFail {
		t.Fatalf("expected VerifyFail for a tampered signature")
	}
}

func TestVerifySecp256r1ReservedNotImplemented(t *testing.T) {
	if _, err := Verify(AlgSecp256r1, nil, nil, nil); err == nil {
		t.Fatalf("expected secp256r1 to be reserved-but-unimplemented")
	}
}

func TestVerifyUnknownAlgorithmIsArgumentError(t *testing.T) {
	if _, err := Verify(Algorithm("bogus"), nil, nil, nil); err == nil {
		t.Fatalf("expected an error for an unknown signature algorithm")
	}
}
