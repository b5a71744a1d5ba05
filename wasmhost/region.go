// Package wasmhost implements the WASM host runtime of spec §4.3:
// instance construction, host imports, gas metering, memory limits,
// and nested call/query guards.
//
// Grounded on core/virtual_machine.go's registerHost/HeavyVM/wasmer
// ImportObject construction (kept HOW: wasmer-go instance building and
// an "env"-namespaced import table; replaced WHAT: EVM-opcode-stack
// semantics are gone, host imports now match spec §4.3's exact table).
package wasmhost

// region.go — the {offset, capacity, length} memory-region descriptor
// validated on every host<->guest data handoff (spec §4.3), confirmed
// in more detail by original_source's grug/vm/wasm/src/region.rs and
// crates/vm/wasm/src/imports.rs.

import "grug/apperror"

// Region describes a guest memory buffer the host reads from or
// writes into.
type Region struct {
	Offset   uint32
	Capacity uint32
	Length   uint32
}

// Validate enforces the three checks spec §4.3 and the original
// source's region.rs both apply: offset>0, length<=capacity,
// offset+capacity<=u32::MAX.
func (r Region) Validate() error {
	if r.Offset == 0 {
		return apperror.Host("memory region offset must be non-zero", nil)
	}
	if r.Length > r.Capacity {
		return apperror.Host("memory region length exceeds capacity", nil)
	}
	if uint64(r.Offset)+uint64(r.Capacity) > uint64(^uint32(0)) {
		return apperror.Host("memory region exceeds addressable range", nil)
	}
	return nil
}

// EncodeRegion writes the region descriptor as three little-endian
// u32 fields, the layout the host's allocate() convention expects.
func EncodeRegion(r Region) []byte {
	out := make([]byte, 12)
	putU32(out[0:4], r.Offset)
	putU32(out[4:8], r.Capacity)
	putU32(out[8:12], r.Length)
	return out
}

func DecodeRegion(b []byte) (Region, error) {
	if len(b) != 12 {
		return Region{}, apperror.Host("malformed region descriptor", nil)
	}
	return Region{
		Offset:   getU32(b[0:4]),
		Capacity: getU32(b[4:8]),
		Length:   getU32(b[8:12]),
	}, nil
}

func putU32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func getU32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
