package cache

import (
	"bytes"
	"crypto/sha1" // #nosec G505 -- key derivation, not a security boundary.
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"sort"
	"strconv"
)

// Keyer generates deterministic cache keys from a namespace and an input.
//
// Contract:
// - Determinism: same inputs must produce same key, regardless of map iteration order.
// - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	// Key generates a cache key from a namespace (the tool name) and input.
	Key(namespace string, input any) (string, error)
}

// DefaultKeyer generates SHA-1 based cache keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates a new default keyer.
func NewDefaultKeyer() *DefaultKeyer {
	return &DefaultKeyer{}
}

// Key generates a deterministic cache key.
// Format: <namespace>:<hash>
// where hash is the lowercase hex SHA-1 of the canonical JSON of input.
func (k *DefaultKeyer) Key(namespace string, input any) (string, error) {
	canonical, err := Canonicalize(input)
	if err != nil {
		return "", fmt.Errorf("cache: failed to canonicalize input: %w", err)
	}

	// #nosec G401 -- collision-acceptable sharding key.
	hash := sha1.Sum(canonical)
	key := namespace + ":" + hex.EncodeToString(hash[:])

	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return key, nil
}

// Canonicalize produces a deterministic JSON representation of v.
// Object keys are sorted at every level; array order is preserved.
// Values that are not plain JSON (structs, typed maps) are first reduced to
// their JSON form so that equal shapes yield equal bytes.
func Canonicalize(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return []byte("null"), nil
	case map[string]any:
		return canonicalizeMap(val)
	case []any:
		return canonicalizeSlice(val)
	case string, bool:
		return json.Marshal(val)
	case json.Number:
		return canonicalNumber(val)
	case float64:
		return canonicalNumber(json.Number(strconv.FormatFloat(val, 'g', -1, 64)))
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}
	return Canonicalize(generic)
}

// canonicalNumber renders numbers that are equal as JSON values identically:
// 1, 1.0 and 1e0 all become 1. Integers keep every digit.
func canonicalNumber(n json.Number) ([]byte, error) {
	r, ok := new(big.Rat).SetString(n.String())
	if !ok {
		return nil, fmt.Errorf("invalid number %q", n)
	}
	if r.IsInt() {
		return []byte(r.Num().String()), nil
	}
	f, _ := r.Float64()
	return json.Marshal(f)
}

func canonicalizeMap(m map[string]any) ([]byte, error) {
	// Sort keys
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// Build ordered JSON object
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

		// Value (recursively canonicalize)
		valBytes, err := Canonicalize(m[k])
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

		valBytes, err := Canonicalize(v)
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	result = append(result, ']')

	return result, nil
}

// Ensure DefaultKeyer implements Keyer
var _ Keyer = (*DefaultKeyer)(nil)
