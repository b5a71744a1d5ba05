package types

// address.go — the Address primitive and contract-address derivation.
//
// Grounded on core/common_structs.go's `Address [20]byte` and
// core/contracts.go's DeriveContractAddress (which used
// sha256(creator‖code)[:20]; adapted here to the spec's exact
// ripemd160(sha256(deployer‖code_hash‖salt)) formula — see DESIGN.md).

import (
	"encoding/hex"
	"encoding/json"
	"strings"

	"grug/apperror"
)

// Address is a 20-byte chain identifier, displayed as lowercase hex
// with a "0x" prefix.
type Address [20]byte

func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

func (a Address) Bytes() []byte { return a[:] }

func (a Address) IsZero() bool { return a == Address{} }

// ParseAddress parses the "0x"-prefixed lowercase-hex form.
func ParseAddress(s string) (Address, error) {
	var a Address
	s = strings.TrimPrefix(s, "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return a, apperror.Argument("malformed address: " + err.Error())
	}
	if len(b) != len(a) {
		return a, apperror.Argument("address must be 20 bytes")
	}
	copy(a[:], b)
	return a, nil
}

// AddressFromHash truncates/adapts a 20-byte digest into an Address.
func AddressFromHash(h Hash160) Address {
	return Address(h)
}

// MarshalJSON renders the address as a "0x"-prefixed hex string.
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON parses the "0x"-prefixed hex string form.
func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseAddress(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// DeriveContractAddress computes the deterministic contract address:
// ripemd160(sha256(deployer ‖ code_hash ‖ salt)).
func DeriveContractAddress(deployer Address, codeHash Hash256, salt []byte) Address {
	preimage := make([]byte, 0, len(deployer)+len(codeHash)+len(salt))
	preimage = append(preimage, deployer[:]...)
	preimage = append(preimage, codeHash[:]...)
	preimage = append(preimage, salt...)
	return AddressFromHash(Ripemd160Sha256(preimage))
}
