package schema

import (
	"encoding/json"
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"

	validator "github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// violations flattens a validation error tree into one Violation per failed
// constraint, sorted by path then message. instance is the normalized value
// that was validated.
func violations(root *validator.ValidationError, instance any) []Violation {
	var out []Violation
	var walk func(e *validator.ValidationError)
	walk = func(e *validator.ValidationError) {
		if len(e.Causes) > 0 && descend(e.ErrorKind) {
			for _, cause := range e.Causes {
				walk(cause)
			}
			return
		}
		out = append(out, describe(e, instance)...)
	}
	walk(root)

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Message < out[j].Message
	})
	return dedupe(out)
}

// descend reports whether the causes of an error carry the real failures.
// anyOf, oneOf, contains and propertyNames are reported as a whole: their
// causes describe alternatives or rejected items, not constraints the value
// must meet.
func descend(k validator.ErrorKind) bool {
	switch k.(type) {
	case *kind.AnyOf, *kind.OneOf, *kind.Contains, *kind.MinContains, *kind.MaxContains, *kind.PropertyNames:
		return false
	default:
		return true
	}
}

func describe(e *validator.ValidationError, instance any) []Violation {
	path, value := locate(instance, e.InstanceLocation)
	at := func(msg string, args ...any) []Violation {
		return []Violation{{Path: path, Message: fmt.Sprintf(msg, args...)}}
	}

	switch k := e.ErrorKind.(type) {
	case *kind.Required:
		return perProperty(path, k.Missing, "is required")
	case *kind.DependentRequired:
		return perProperty(path, k.Missing, fmt.Sprintf("is required when %q is present", k.Prop))
	case *kind.Dependency:
		return perProperty(path, k.Missing, fmt.Sprintf("is required when %q is present", k.Prop))
	case *kind.AdditionalProperties:
		return perProperty(path, k.Properties, "is not an allowed property")
	case *kind.PropertyNames:
		return []Violation{{
			Path:    join(path, "properties", k.Property),
			Message: "is not an allowed property name: " + causeMessages(e, k.Property),
		}}
	case *kind.Type:
		return at("expected %s, got %s", strings.Join(k.Want, " or "), typeOf(value))
	case *kind.Const:
		return at("must be %s", render(k.Want))
	case *kind.Enum:
		return at("must be one of %s", renderList(k.Want))
	case *kind.MinLength:
		return at("must be at least %d characters", k.Want)
	case *kind.MaxLength:
		return at("must be at most %d characters", k.Want)
	case *kind.Pattern:
		return at("must match pattern %q", k.Want)
	case *kind.Format:
		return at("must be a valid %s", k.Want)
	case *kind.Minimum:
		return at("must be >= %s", formatRat(k.Want))
	case *kind.Maximum:
		return at("must be <= %s", formatRat(k.Want))
	case *kind.ExclusiveMinimum:
		return at("must be > %s", formatRat(k.Want))
	case *kind.ExclusiveMaximum:
		return at("must be < %s", formatRat(k.Want))
	case *kind.MultipleOf:
		return at("must be a multiple of %s", formatRat(k.Want))
	case *kind.MinItems:
		return at("must have at least %d items", k.Want)
	case *kind.MaxItems:
		return at("must have at most %d items", k.Want)
	case *kind.UniqueItems:
		return []Violation{{
			Path:    join(path, "items", strconv.Itoa(k.Duplicates[1])),
			Message: fmt.Sprintf("duplicates item %d", k.Duplicates[0]),
		}}
	case *kind.Contains:
		return at("must contain a matching item")
	case *kind.MinContains:
		return at("must contain at least %d matching items", k.Want)
	case *kind.MaxContains:
		return at("must contain at most %d matching items", k.Want)
	case *kind.MinProperties:
		return at("must have at least %d properties", k.Want)
	case *kind.MaxProperties:
		return at("must have at most %d properties", k.Want)
	case *kind.AnyOf:
		return at("must match at least one of %d schemas", len(e.Causes))
	case *kind.OneOf:
		if len(k.Subschemas) == 0 {
			return at("must match exactly one of %d schemas, matched none", len(e.Causes))
		}
		return at("must match exactly one schema, matched %d and %d", k.Subschemas[0], k.Subschemas[1])
	case *kind.Not:
		return at("must not match the excluded schema")
	case *kind.FalseSchema:
		return at("value is not allowed")
	default:
		return at("%s", e.ErrorKind.LocalizedString(printer))
	}
}

// locate maps an instance location onto the dotted path form and returns
// the value found there.
func locate(instance any, location []string) (string, any) {
	path, cur := "", instance
	for _, seg := range location {
		switch val := cur.(type) {
		case []any:
			path = join(path, "items", seg)
			if i, err := strconv.Atoi(seg); err == nil && i >= 0 && i < len(val) {
				cur = val[i]
			} else {
				cur = nil
			}
		case map[string]any:
			path = join(path, "properties", seg)
			cur = val[seg]
		default:
			path = join(path, seg)
			cur = nil
		}
	}
	return path, cur
}

func perProperty(path string, names []string, msg string) []Violation {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	out := make([]Violation, 0, len(sorted))
	for _, name := range sorted {
		out = append(out, Violation{Path: join(path, "properties", name), Message: msg})
	}
	return out
}

// causeMessages renders the leaf failures below e against value.
func causeMessages(e *validator.ValidationError, value any) string {
	var msgs []string
	for _, cause := range e.Causes {
		for _, v := range violations(cause, value) {
			msgs = append(msgs, v.Message)
		}
	}
	if len(msgs) == 0 {
		return e.ErrorKind.LocalizedString(printer)
	}
	return strings.Join(msgs, "; ")
}

func dedupe(in []Violation) []Violation {
	if len(in) < 2 {
		return in
	}
	out := in[:1]
	for _, v := range in[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

func join(path string, segments ...string) string {
	rest := strings.Join(segments, ".")
	if path == "" {
		return rest
	}
	return path + "." + rest
}

func typeOf(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case json.Number:
		if r, ok := new(big.Rat).SetString(val.String()); ok && r.IsInt() {
			return "integer"
		}
		return "number"
	case float64:
		if r := new(big.Rat); r.SetFloat64(val) != nil && r.IsInt() {
			return "integer"
		}
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func formatRat(r *big.Rat) string {
	if r == nil {
		return "?"
	}
	if r.IsInt() {
		return r.Num().String()
	}
	f, _ := r.Float64()
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func render(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func renderList(values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = render(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
