package schema

import (
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// For infers a schema from the Go type T and compiles it.
//
// Structs become closed objects: exported fields are properties, fields
// without "omitempty" are required, and unknown properties are rejected.
// A "jsonschema" struct tag supplies the property description.
func For[T any]() (*Schema, error) {
	native, err := jsonschema.For[T](nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	return Compile(native)
}

// MustFor is like For but panics on error.
func MustFor[T any]() *Schema {
	s, err := For[T]()
	if err != nil {
		panic(err)
	}
	return s
}
