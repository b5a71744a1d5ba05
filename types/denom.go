package types

// denom.go — Denom is a length-bounded, slash-separated ASCII coin
// denomination identifier. Grounded on the checked-construction idiom
// of core/coin.go (amount/cap checks before mutation).

import (
	"strings"

	"grug/apperror"
)

const (
	minDenomLen = 1
	maxDenomLen = 128
)

// Denom is a validated denomination string, e.g. "uatom" or
// "factory/0xabc.../subdenom".
type Denom struct {
	value string
}

// NewDenom validates and constructs a Denom. Each slash-separated part
// must be non-empty ASCII alphanumerics (plus '.', '-', '_').
func NewDenom(s string) (Denom, error) {
	if len(s) < minDenomLen || len(s) > maxDenomLen {
		return Denom{}, apperror.Argument("denom length out of bounds")
	}
	parts := strings.Split(s, "/")
	for _, p := range parts {
		if p == "" {
			return Denom{}, apperror.Argument("denom part must not be empty")
		}
		for _, r := range p {
			if !isDenomRune(r) {
				return Denom{}, apperror.Argument("denom contains invalid character")
			}
		}
	}
	return Denom{value: s}, nil
}

func isDenomRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
	case r >= 'A' && r <= 'Z':
	case r >= '0' && r <= '9':
	case r == '.' || r == '-' || r == '_':
	default:
		return false
	}
	return true
}

func (d Denom) String() string { return d.value }

func (d Denom) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.value + `"`), nil
}

func (d *Denom) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := NewDenom(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
