package wasmhost

import "testing"

func TestRegionValidateRejectsZeroOffset(t *testing.T) {
	r := Region{Offset: 0, Capacity: 10, Length: 5}
	if err := r.Validate(); err == nil {
		t.Fatalf("expected error for zero offset")
	}
}

func TestRegionValidateRejectsLengthOverCapacity(t *testing.T) {
	r := Region{Offset: 4, Capacity: 4, Length: 8}
	if err := r.Validate(); err == nil {
		t.Fatalf("expected error for length exceeding capacity")
	}
}

func TestRegionEncodeDecodeRoundTrip(t *testing.T) {
	r := Region{Offset: 100, Capacity: 64, Length: 32}
	enc := EncodeRegion(r)
	if len(enc) != 12 {
		t.Fatalf("expected a 12-byte encoding, got %d", len(enc))
	}
	dec, err := DecodeRegion(enc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dec != r {
		t.Fatalf("round trip mismatch: got %+v, want %+v", dec, r)
	}
}

func TestDecodeRegionRejectsWrongLength(t *testing.T) {
	if _, err := DecodeRegion([]byte{1, 2, 3}); err == nil {
		t.Fatalf("expected error for malformed region bytes")
	}
}
