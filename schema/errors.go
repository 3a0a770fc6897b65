package schema

import "errors"

// Sentinel errors for schema compilation.
var (
	// ErrInvalidSchema indicates the schema document is malformed.
	ErrInvalidSchema = errors.New("schema: invalid schema")

	// ErrUnsupportedRef indicates a $ref that does not point into the same document.
	ErrUnsupportedRef = errors.New("schema: unsupported $ref")

	// ErrNotJSON indicates a value cannot be represented as JSON.
	ErrNotJSON = errors.New("schema: value is not JSON-encodable")
)
