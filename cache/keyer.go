package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Keyer derives cache keys from request identity.
//
// Contract:
// - Determinism: same inputs must produce same key, regardless of map iteration order.
// - Distinctness: different verbs, addresses or payloads must produce different keys.
// - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	// Key derives the key for a request.
	Key(verb, address string, body any) (string, error)
}

// RequestKeyer generates SHA-256 based request keys.
type RequestKeyer struct{}

// NewRequestKeyer creates a new request keyer.
func NewRequestKeyer() *RequestKeyer {
	return &RequestKeyer{}
}

// Key generates a deterministic cache key.
// Format: cache:<VERB>:<hash>
// where hash is the hex SHA-256 of the address and the canonical body.
// An empty verb is treated as GET.
func (k *RequestKeyer) Key(verb, address string, body any) (string, error) {
	canonical, err := canonicalize(body)
	if err != nil {
		return "", fmt.Errorf("cache: failed to canonicalize body: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(address))
	h.Write([]byte{0})
	h.Write(canonical)

	return fmt.Sprintf("cache:%s:%s", NormalizeVerb(verb), hex.EncodeToString(h.Sum(nil))), nil
}

// NormalizeVerb upper-cases verb and maps empty to GET.
func NormalizeVerb(verb string) string {
	verb = strings.ToUpper(strings.TrimSpace(verb))
	if verb == "" {
		return "GET"
	}
	return verb
}

// canonicalize produces a deterministic representation of the body.
// Maps are sorted by key. Raw strings and byte slices are tagged so they
// never collide with a JSON encoding of the same text.
func canonicalize(v any) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}

	switch val := v.(type) {
	case []byte:
		return append([]byte("raw:"), val...), nil
	case json.RawMessage:
		decoded, err := decodeGeneric(val)
		if err != nil {
			return append([]byte("raw:"), val...), nil
		}
		return canonicalize(decoded)
	case json.Number:
		return []byte(val.String()), nil
	case map[string]any:
		return canonicalizeMap(val)
	case []any:
		return canonicalizeSlice(val)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		// Round-trip structs through a generic value so field order and
		// nested maps are canonical too.
		decoded, err := decodeGeneric(encoded)
		if err != nil {
			return encoded, nil
		}
		switch decoded.(type) {
		case map[string]any, []any:
			return canonicalize(decoded)
		}
		return encoded, nil
	}
}

// decodeGeneric decodes JSON keeping numbers as json.Number, so integers
// beyond float64 precision stay distinct.
func decodeGeneric(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return nil, err
	}
	return decoded, nil
}

func canonicalizeMap(m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := []byte("{")
	for i, k := range keys {
		if i > 0 {
			result = append(result, ',')
		}

		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		result = append(result, keyBytes...)
		result = append(result, ':')

		valBytes, err := canonicalize(m[k])
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	result = append(result, '}')

	return result, nil
}

func canonicalizeSlice(s []any) ([]byte, error) {
	result := []byte("[")
	for i, v := range s {
		if i > 0 {
			result = append(result, ',')
		}

		valBytes, err := canonicalize(v)
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	result = append(result, ']')

	return result, nil
}

var _ Keyer = (*RequestKeyer)(nil)
