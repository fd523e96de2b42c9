//go:build !rsflowfastjson

// Package jsonx picks the JSON codec at build time. Build with the
// rsflowfastjson tag to use sonic.
package jsonx

import "encoding/json"

func Marshal(v any) ([]byte, error)   { return json.Marshal(v) }
func Unmarshal(b []byte, v any) error { return json.Unmarshal(b, v) }
