package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	validator "github.com/santhosh-tekuri/jsonschema/v6"
)

// resourceURL names the document inside each schema's private compiler.
// Nothing is ever fetched from it.
const resourceURL = "https://toolinvoke.local/schema.json"

// Violation describes one failed constraint.
type Violation struct {
	// Path locates the offending value, e.g. "properties.age" or
	// "properties.tags.items.2". The root value has an empty path.
	Path string `json:"path"`

	// Message is a human-readable description of the failure.
	Message string `json:"message"`
}

func (v Violation) String() string {
	if v.Path == "" {
		return v.Message
	}
	return v.Path + ": " + v.Message
}

// Validator checks values against a compiled schema.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: Check never panics; it returns an empty slice for valid values.
// - Ordering: violations are reported in a deterministic order.
type Validator interface {
	Check(value any) []Violation
}

// Schema is a compiled schema. It is immutable and safe for concurrent use.
type Schema struct {
	native   *jsonschema.Schema
	compiled *validator.Schema
}

// Compile normalizes a portable or native schema and compiles it.
//
// Accepted forms:
//   - nil: accepts every value
//   - *Schema: returned as is
//   - *jsonschema.Schema, jsonschema.Schema: native form (cloned, never mutated)
//   - json.RawMessage, []byte, string: JSON Schema documents
//   - any other value (typically map[string]any): marshaled to JSON first
//
// Documents without "$schema" are draft 2020-12. "format" is asserted.
// A $ref must resolve inside the document; nothing is loaded from the
// network or the file system.
func Compile(v any) (*Schema, error) {
	var (
		native *jsonschema.Schema
		data   []byte
		err    error
	)
	switch s := v.(type) {
	case *Schema:
		if s == nil {
			return Compile(nil)
		}
		return s, nil
	case nil:
		native = &jsonschema.Schema{}
	case *jsonschema.Schema:
		if s == nil {
			native = &jsonschema.Schema{}
		} else {
			native = s.CloneSchemas()
		}
	case jsonschema.Schema:
		native = s.CloneSchemas()
	default:
		data, err = portableBytes(v)
		if err != nil {
			return nil, err
		}
		native = &jsonschema.Schema{}
		if err := json.Unmarshal(data, native); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
		}
	}

	if data == nil {
		data, err = json.Marshal(native)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
		}
	}

	compiled, err := compileDocument(data)
	if err != nil {
		return nil, err
	}
	return &Schema{native: native, compiled: compiled}, nil
}

func compileDocument(data []byte) (*validator.Schema, error) {
	doc, err := validator.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}

	c := validator.NewCompiler()
	c.DefaultDraft(validator.Draft2020)
	c.AssertFormat()
	c.UseLoader(nil)
	if err := c.AddResource(resourceURL, doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	compiled, err := c.Compile(resourceURL)
	if err != nil {
		var loadErr *validator.LoadURLError
		if errors.As(err, &loadErr) {
			return nil, fmt.Errorf("%w: %w: %s", ErrInvalidSchema, ErrUnsupportedRef, loadErr.URL)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	return compiled, nil
}

// MustCompile is like Compile but panics on error.
// It is intended for package-level schema variables.
func MustCompile(v any) *Schema {
	s, err := Compile(v)
	if err != nil {
		panic(err)
	}
	return s
}

// Check validates value and returns every violation found.
// Values are normalized to their JSON form before checking, so structs and
// typed maps are validated by their JSON shape.
func (s *Schema) Check(value any) []Violation {
	if s == nil || s.compiled == nil {
		return nil
	}
	normalized, err := Normalize(value)
	if err != nil {
		return []Violation{{Message: err.Error()}}
	}

	err = s.compiled.Validate(normalized)
	if err == nil {
		return nil
	}
	var verr *validator.ValidationError
	if !errors.As(err, &verr) {
		return []Violation{{Message: err.Error()}}
	}
	return violations(verr, normalized)
}

// Valid reports whether value satisfies the schema.
func (s *Schema) Valid(value any) bool {
	return len(s.Check(value)) == 0
}

// Native returns a copy of the native schema this Schema was compiled from.
func (s *Schema) Native() *jsonschema.Schema {
	if s == nil || s.native == nil {
		return &jsonschema.Schema{}
	}
	return s.native.CloneSchemas()
}

// MarshalJSON renders the schema as a JSON Schema document.
func (s *Schema) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Native())
}

// Ensure Schema implements Validator
var _ Validator = (*Schema)(nil)

// portableBytes returns the JSON document for a portable schema.
func portableBytes(v any) ([]byte, error) {
	switch p := v.(type) {
	case json.RawMessage:
		return p, nil
	case []byte:
		return p, nil
	case string:
		return []byte(strings.TrimSpace(p)), nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
		}
		return data, nil
	}
}
