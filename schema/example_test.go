package schema_test

import (
	"fmt"

	"github.com/jonwraymond/toolinvoke/schema"
)

func ExampleCompile() {
	s, err := schema.Compile(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name": map[string]any{"type": "string"},
			"age":  map[string]any{"type": "number"},
		},
		"required":             []any{"name"},
		"additionalProperties": false,
	})
	if err != nil {
		fmt.Println("compile:", err)
		return
	}

	for _, v := range s.Check(map[string]any{"age": "old", "nick": "x"}) {
		fmt.Println(v)
	}
	// Output:
	// properties.age: expected number, got string
	// properties.name: is required
	// properties.nick: is not an allowed property
}

func ExampleFor() {
	type Query struct {
		Term  string `json:"term"`
		Limit int    `json:"limit,omitempty"`
	}

	s := schema.MustFor[Query]()
	fmt.Println(s.Valid(Query{Term: "go"}))
	fmt.Println(s.Valid(map[string]any{"limit": 1.5}))
	// Output:
	// true
	// false
}
