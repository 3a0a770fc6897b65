package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Normalize converts v into its JSON value form: nil, bool, json.Number,
// string, []any or map[string]any. Values already in that form are returned
// without copying; anything else (structs, typed maps, Go numbers) takes a
// JSON round trip. Numbers stay json.Number so integers beyond 2^53 keep
// every digit.
func Normalize(v any) (any, error) {
	if isJSONValue(v) {
		return v, nil
	}

	var data []byte
	switch raw := v.(type) {
	case json.RawMessage:
		data = raw
	default:
		var err error
		data, err = json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotJSON, err)
		}
	}
	return Unmarshal(data)
}

// Unmarshal decodes one JSON document into its normalized value form.
func Unmarshal(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotJSON, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after JSON value", ErrNotJSON)
	}
	return out, nil
}

// Decode converts a JSON value into T using the value's JSON encoding.
func Decode[T any](v any) (T, error) {
	var out T
	if typed, ok := v.(T); ok {
		return typed, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return out, fmt.Errorf("%w: %v", ErrNotJSON, err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&out); err != nil {
		return out, fmt.Errorf("schema: decode into %T: %w", out, err)
	}
	return out, nil
}

func isJSONValue(v any) bool {
	switch val := v.(type) {
	case nil, bool, string, json.Number:
		return true
	case []any:
		for _, item := range val {
			if !isJSONValue(item) {
				return false
			}
		}
		return true
	case map[string]any:
		for _, item := range val {
			if !isJSONValue(item) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
