package cache

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestKeyer_Format(t *testing.T) {
	keyer := NewDefaultKeyer()

	tests := []struct {
		name  string
		ns    string
		input any
		want  string
	}{
		{"object", "greet", map[string]any{"name": "Alice"}, "greet:c97c9005456ff2065ba65850b4f6d3f64b4b6091"},
		{"nested", "calc", map[string]any{"b": []any{2, 3}, "a": 1}, "calc:1a1c6f1c3c983c5d2d551e3ee20772c33fa86044"},
		{"nil input", "ping", nil, "ping:2be88ca4242c76e8253ac62474851065032d6833"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := keyer.Key(tt.ns, tt.input)
			if err != nil {
				t.Fatalf("Key() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Key() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestKeyer_DeterministicForMaps(t *testing.T) {
	keyer := NewDefaultKeyer()

	// Same content, different insertion order
	map1 := map[string]any{"b": 2, "a": 1, "c": map[string]any{"y": 1, "x": 2}}
	map2 := map[string]any{"c": map[string]any{"x": 2, "y": 1}, "a": 1, "b": 2}

	key1, err := keyer.Key("test-tool", map1)
	if err != nil {
		t.Fatalf("Key() error = %v", err)
	}
	for i := 0; i < 50; i++ {
		key2, err := keyer.Key("test-tool", map2)
		if err != nil {
			t.Fatalf("Key() error = %v", err)
		}
		if key1 != key2 {
			t.Fatalf("Keys should be equal for same content:\n  key1=%s\n  key2=%s", key1, key2)
		}
	}
}

func TestKeyer_ArrayOrderPreserved(t *testing.T) {
	keyer := NewDefaultKeyer()

	key1, err := keyer.Key("test-tool", map[string]any{"items": []any{1, 2, 3}})
	if err != nil {
		t.Fatalf("Key() error = %v", err)
	}
	key2, err := keyer.Key("test-tool", map[string]any{"items": []any{3, 2, 1}})
	if err != nil {
		t.Fatalf("Key() error = %v", err)
	}

	if key1 == key2 {
		t.Errorf("Keys should differ for different array order:\n  key1=%s\n  key2=%s", key1, key2)
	}
}

func TestKeyer_NamespaceScopesKey(t *testing.T) {
	keyer := NewDefaultKeyer()
	input := map[string]any{"q": "x"}

	a, _ := keyer.Key("tool-a", input)
	b, _ := keyer.Key("tool-b", input)

	if a == b {
		t.Error("keys from different namespaces should differ")
	}
	if !strings.HasPrefix(a, "tool-a:") {
		t.Errorf("key %q should start with namespace", a)
	}
}

type lookup struct {
	Name  string `json:"name"`
	Limit int    `json:"limit"`
}

// TestKeyer_StructMatchesEquivalentMap verifies keys depend on the JSON shape,
// not on the Go type that carries it.
func TestKeyer_StructMatchesEquivalentMap(t *testing.T) {
	keyer := NewDefaultKeyer()

	fromStruct, err := keyer.Key("search", lookup{Name: "go", Limit: 10})
	if err != nil {
		t.Fatalf("Key() error = %v", err)
	}
	fromMap, err := keyer.Key("search", map[string]any{"limit": 10.0, "name": "go"})
	if err != nil {
		t.Fatalf("Key() error = %v", err)
	}
	if fromStruct != fromMap {
		t.Errorf("struct key %s != map key %s", fromStruct, fromMap)
	}
}

func TestKeyer_UnencodableInput(t *testing.T) {
	keyer := NewDefaultKeyer()
	_, err := keyer.Key("bad", map[string]any{"ch": make(chan int)})
	if err == nil {
		t.Fatal("expected error for unencodable input")
	}
}

func TestKeyer_KeyTooLong(t *testing.T) {
	keyer := NewDefaultKeyer()
	_, err := keyer.Key(strings.Repeat("n", MaxKeyLength), nil)
	if !errors.Is(err, ErrKeyTooLong) {
		t.Errorf("Key() error = %v, want %v", err, ErrKeyTooLong)
	}
}

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"sorted keys", map[string]any{"b": 1, "a": "x"}, `{"a":"x","b":1}`},
		{"nested", map[string]any{"z": []any{map[string]any{"d": true, "c": nil}}}, `{"z":[{"c":null,"d":true}]}`},
		{"scalar", "hello", `"hello"`},
		{"integer", 42, `42`},
		{"typed map", map[string]int{"b": 2, "a": 1}, `{"a":1,"b":2}`},
		{"big integer", int64(9007199254740993), `9007199254740993`},
		{"json number", json.Number("9007199254740993"), `9007199254740993`},
		{"integral float", 30.0, `30`},
		{"integral number", json.Number("30.0"), `30`},
		{"fraction", json.Number("1.50"), `1.5`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Canonicalize(tt.input)
			if err != nil {
				t.Fatalf("Canonicalize() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Canonicalize() = %s, want %s", got, tt.want)
			}
		})
	}
}

// TestKeyer_DistinguishesLargeIntegers verifies integers that collapse to the
// same float64 still get distinct keys.
func TestKeyer_DistinguishesLargeIntegers(t *testing.T) {
	keyer := NewDefaultKeyer()

	a, err := keyer.Key("ids", map[string]any{"id": int64(9007199254740993)})
	if err != nil {
		t.Fatalf("Key() error = %v", err)
	}
	b, err := keyer.Key("ids", map[string]any{"id": int64(9007199254740992)})
	if err != nil {
		t.Fatalf("Key() error = %v", err)
	}
	if a == b {
		t.Errorf("distinct inputs share key %s", a)
	}

	c, err := keyer.Key("ids", map[string]any{"id": json.Number("9007199254740993")})
	if err != nil {
		t.Fatalf("Key() error = %v", err)
	}
	if a != c {
		t.Errorf("int64 and json.Number forms differ: %s vs %s", a, c)
	}
}
