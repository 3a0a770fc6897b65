// Package schema compiles tool input and result schemas into validators.
//
// A schema may be supplied in portable form (a JSON Schema document as
// map[string]any, json.RawMessage, []byte or string) or in native form
// (*jsonschema.Schema from github.com/google/jsonschema-go, or a schema
// inferred from a Go type with For). Compile normalizes either form into a
// single *Schema whose Check method reports every violated constraint, not
// just the first.
//
// Validation runs on github.com/santhosh-tekuri/jsonschema/v6, so every
// draft 2020-12 keyword is honored. Its error tree is flattened into
// Violations whose paths read like "properties.tags.items.2".
//
// Compilation happens once; Check never re-parses the schema.
package schema
