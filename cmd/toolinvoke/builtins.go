package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jonwraymond/toolinvoke/manifest"
)

// builtinFuncs are the implementations available to "func:" manifest entries.
func builtinFuncs() manifest.Funcs {
	return manifest.Funcs{
		"echo":  echo,
		"greet": greet,
		"now":   now,
	}
}

func echo(_ context.Context, input any) (any, error) {
	return input, nil
}

// greet expects {"name": string, "age"?: number}.
func greet(_ context.Context, input any) (any, error) {
	in, ok := input.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("greet: expected an object, got %T", input)
	}
	name, _ := in["name"].(string)
	msg := "Hello, " + name
	switch age := in["age"].(type) {
	case json.Number:
		if n, err := age.Float64(); err == nil {
			msg += fmt.Sprintf("! You are %d years old.", int(n))
		}
	case float64:
		msg += fmt.Sprintf("! You are %d years old.", int(age))
	}
	return msg, nil
}

func now(context.Context, any) (any, error) {
	return time.Now().UTC().Format(time.RFC3339), nil
}
