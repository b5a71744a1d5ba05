package types

// address_test.go — DeriveContractAddress determinism and the address
// hex round-trip, styled after dex/auction_test.go's plain Go helpers.

import "testing"

func TestDeriveContractAddressIsDeterministic(t *testing.T) {
	deployer := Address{1, 2, 3}
	codeHash := Sha256([]byte("some wasm bytecode"))
	salt := []byte("instance-1")

	a := DeriveContractAddress(deployer, codeHash, salt)
	b := DeriveContractAddress(deployer, codeHash, salt)
	if a != b {
		t.Fatalf("DeriveContractAddress not deterministic: %s != %s", a, b)
	}
}

func TestDeriveContractAddressVariesWithEachInput(t *testing.T) {
	deployer := Address{1, 2, 3}
	otherDeployer := Address{9, 9, 9}
	codeHash := Sha256([]byte("some wasm bytecode"))
	otherCodeHash := Sha256([]byte("other wasm bytecode"))
	salt := []byte("instance-1")
	otherSalt := []byte("instance-2")

	base := DeriveContractAddress(deployer, codeHash, salt)

	if got := DeriveContractAddress(otherDeployer, codeHash, salt); got == base {
		t.Fatal("expected address to change when deployer changes")
	}
	if got := DeriveContractAddress(deployer, otherCodeHash, salt); got == base {
		t.Fatal("expected address to change when code hash changes")
	}
	if got := DeriveContractAddress(deployer, codeHash, otherSalt); got == base {
		t.Fatal("expected address to change when salt changes")
	}
}

func TestAddressHexRoundTrip(t *testing.T) {
	want := Address{0xde, 0xad, 0xbe, 0xef}
	parsed, err := ParseAddress(want.String())
	if err != nil {
		t.Fatalf("ParseAddress(%q): %v", want.String(), err)
	}
	if parsed != want {
		t.Fatalf("round trip mismatch: got %s, want %s", parsed, want)
	}
}
