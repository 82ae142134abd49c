package mcp

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"

	"github.com/a3tai/mcp-pdf-graphics/internal/pdf"
)

// arguments wraps tool call arguments. Clients send numbers as JSON
// numbers or strings and lists as arrays or comma separated strings, so
// every accessor coerces through cast.
type arguments map[string]any

func (a arguments) has(key string) bool {
	v, ok := a[key]
	return ok && v != nil
}

func (a arguments) str(key string) string {
	if !a.has(key) {
		return ""
	}
	return strings.TrimSpace(cast.ToString(a[key]))
}

func (a arguments) requireStr(key string) (string, error) {
	s := a.str(key)
	if s == "" {
		return "", fmt.Errorf("required argument %q not found", key)
	}
	return s, nil
}

func (a arguments) integer(key string) (int, error) {
	if !a.has(key) {
		return 0, nil
	}
	n, err := cast.ToIntE(a[key])
	if err != nil {
		return 0, fmt.Errorf("argument %q must be an integer: %w", key, err)
	}
	return n, nil
}

func (a arguments) optionalInt(key string) (*int, error) {
	if !a.has(key) {
		return nil, nil
	}
	n, err := a.integer(key)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (a arguments) float(key string) (float64, error) {
	if !a.has(key) {
		return 0, nil
	}
	f, err := cast.ToFloat64E(a[key])
	if err != nil {
		return 0, fmt.Errorf("argument %q must be a number: %w", key, err)
	}
	return f, nil
}

func (a arguments) boolean(key string) (bool, error) {
	if !a.has(key) {
		return false, nil
	}
	b, err := cast.ToBoolE(a[key])
	if err != nil {
		return false, fmt.Errorf("argument %q must be a boolean: %w", key, err)
	}
	return b, nil
}

// list returns an array argument, splitting strings on commas
func (a arguments) list(key string) any {
	s, ok := a[key].(string)
	if !ok {
		return a[key]
	}
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (a arguments) strings(key string) ([]string, error) {
	if !a.has(key) {
		return nil, nil
	}
	out, err := cast.ToStringSliceE(a.list(key))
	if err != nil {
		return nil, fmt.Errorf("argument %q must be a list of strings: %w", key, err)
	}
	return out, nil
}

func (a arguments) ints(key string) ([]int, error) {
	if !a.has(key) {
		return nil, nil
	}
	out, err := cast.ToIntSliceE(a.list(key))
	if err != nil {
		return nil, fmt.Errorf("argument %q must be a list of integers: %w", key, err)
	}
	return out, nil
}

// floats reads a fixed size number array
func (a arguments) floats(key string, n int) ([]float64, error) {
	if !a.has(key) {
		return nil, nil
	}
	out, err := cast.ToFloat64SliceE(a.list(key))
	if err != nil {
		return nil, fmt.Errorf("argument %q must be a list of numbers: %w", key, err)
	}
	if len(out) != n {
		return nil, fmt.Errorf("argument %q must have %d numbers, got %d", key, n, len(out))
	}
	return out, nil
}

// scope reads the session_id, page, form and container arguments
func (a arguments) scope() (pdf.ScopeRef, error) {
	var ref pdf.ScopeRef
	var err error

	if ref.SessionID, err = a.requireStr("session_id"); err != nil {
		return ref, err
	}
	if ref.Page, err = a.integer("page"); err != nil {
		return ref, err
	}
	ref.Form = a.str("form")
	if ref.Container, err = a.ints("container"); err != nil {
		return ref, err
	}
	return ref, nil
}
