// Package canonicaljson produces the deterministic JSON serialization
// Grug requires for sign-doc hashing and wire responses (spec §6 /
// SPEC_FULL.md §12): alphabetically-sorted object keys, no
// insignificant whitespace, snake_case tags, and numbers rendered as
// strings once they reach or exceed 2^53 so JavaScript clients don't
// lose precision.
//
// No ecosystem canonical-JSON library appears anywhere in the
// retrieval pack — every pack repo that touches JSON uses stdlib
// encoding/json directly (e.g. core/contracts.go's Ricardian-contract
// JSON handling) — so this package is a thin deterministic pass on
// top of encoding/json rather than a hand-rolled parser.
package canonicaljson

import (
	"bytes"
	"encoding/json"
	"sort"
)

const maxSafeInteger = int64(1) << 53

// Marshal serializes v using encoding/json (which already sorts map
// keys and preserves no insignificant whitespace with Compact) and
// then canonicalizes any object key ordering that came from struct
// field declaration order rather than alphabetical order.
func Marshal(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	canon := canonicalize(generic)
	var buf bytes.Buffer
	if err := encode(&buf, canon); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// canonicalize walks a decoded JSON value recursively; maps are
// already map[string]any keyed by their JSON field name, so sorting
// happens at encode time.
func canonicalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return t
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = canonicalize(e)
		}
		return out
	default:
		return v
	}
}

func encode(buf *bytes.Buffer, v any) error {
	switch t := v.(type) {
	case nil:
		buf.WriteString("null")
		return nil
	case bool:
		if t {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
		return nil
	case string:
		b, err := json.Marshal(t)
		if err != nil {
			return err
		}
		buf.Write(b)
		return nil
	case float64:
		return encodeNumber(buf, t)
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := encode(buf, t[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	case []any:
		buf.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encode(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return err
		}
		buf.Write(b)
		return nil
	}
}

// encodeNumber renders integral values ≥ 2^53 as a quoted string
// (spec §6); all other numbers use Go's default float formatting,
// matching encoding/json's behaviour for the common case.
func encodeNumber(buf *bytes.Buffer, f float64) error {
	if f == float64(int64(f)) {
		i := int64(f)
		if i >= maxSafeInteger || i <= -maxSafeInteger {
			b, err := json.Marshal(intToString(i))
			if err != nil {
				return err
			}
			buf.Write(b)
			return nil
		}
	}
	b, err := json.Marshal(f)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

func intToString(i int64) string {
	b, _ := json.Marshal(i)
	return string(b)
}
