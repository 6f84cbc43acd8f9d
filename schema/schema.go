// Package schema defines the validation contract used by the client to check
// and transform request parameters, request bodies and response payloads.
//
// A Schema receives a loosely typed value (nil meaning "absent") and returns
// either the validated, possibly transformed value or a *ValidationError.
// Adapters are provided for OpenAPI schema objects (kin-openapi) along with a
// handful of combinators for transformations that OpenAPI cannot express,
// such as parsing timestamps or decoding into Go types.
package schema

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Issue kinds reported by the built-in schemas.
const (
	KindRequired   = "required"
	KindType       = "type"
	KindFormat     = "format"
	KindEnum       = "enum"
	KindConstraint = "constraint"
	KindTransform  = "transform"
)

// Schema validates and optionally transforms a value.
type Schema interface {
	Validate(ctx context.Context, value any) (any, error)
}

// Func adapts a function to Schema.
type Func func(ctx context.Context, value any) (any, error)

// Validate implements Schema.
func (f Func) Validate(ctx context.Context, value any) (any, error) {
	return f(ctx, value)
}

// Issue is one structural or value failure. Path is a JSON pointer relative
// to the validated value ("" for the value itself).
type Issue struct {
	Kind    string `json:"kind"`
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	if i.Path == "" {
		return fmt.Sprintf("%s: %s", i.Kind, i.Message)
	}
	return fmt.Sprintf("%s at %s: %s", i.Kind, i.Path, i.Message)
}

// ValidationError is the structured failure returned by every Schema in this
// package.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Issues) == 0 {
		return "schema: validation failed"
	}
	parts := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		parts[i] = issue.String()
	}
	return "schema: " + strings.Join(parts, "; ")
}

// Fail builds a ValidationError with a single issue.
func Fail(kind, path, message string) *ValidationError {
	return &ValidationError{Issues: []Issue{{Kind: kind, Path: path, Message: message}}}
}

// AsValidationError extracts a ValidationError, wrapping any other error as a
// single issue of kind "transform".
func AsValidationError(err error) *ValidationError {
	if err == nil {
		return nil
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr
	}
	return Fail(KindTransform, "", err.Error())
}

// prefix rewrites issue paths as children of path.
func prefix(err error, path string) *ValidationError {
	verr := AsValidationError(err)
	out := &ValidationError{Issues: make([]Issue, len(verr.Issues))}
	for i, issue := range verr.Issues {
		issue.Path = path + issue.Path
		out.Issues[i] = issue
	}
	return out
}

// maxExactInt is the largest integer magnitude a float64 holds exactly.
const maxExactInt = 1 << 53

// Normalize converts arbitrary Go values into the JSON data model
// (nil, bool, float64, string, []any, map[string]any). Integers beyond
// ±2^53 are kept as json.Number so they are sent back unchanged.
func Normalize(value any) (any, error) {
	switch v := value.(type) {
	case nil, bool, float64, string:
		return v, nil
	case json.Number:
		return number(v), nil
	case json.RawMessage:
		return DecodeJSON(v)
	}

	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return DecodeJSON(data)
}

// DecodeJSON decodes a single JSON document into the data model of
// Normalize.
func DecodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("invalid data after top-level JSON value")
	}
	return numbers(out), nil
}

func numbers(value any) any {
	switch v := value.(type) {
	case json.Number:
		return number(v)
	case map[string]any:
		for k, item := range v {
			v[k] = numbers(item)
		}
	case []any:
		for i, item := range v {
			v[i] = numbers(item)
		}
	}
	return value
}

func number(n json.Number) any {
	if i, err := n.Int64(); err == nil && (i > maxExactInt || i < -maxExactInt) {
		return n
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n
}

func escapePointer(token string) string {
	token = strings.ReplaceAll(token, "~", "~0")
	return strings.ReplaceAll(token, "/", "~1")
}
