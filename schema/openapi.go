package schema

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// OpenAPISchema validates values against an OpenAPI 3 schema object using
// kin-openapi. Defaults declared on object properties are filled in, so the
// returned value may differ from the input.
type OpenAPISchema struct {
	schema *openapi3.Schema
	coerce bool
	opts   []openapi3.SchemaValidationOption
}

// OpenAPIOption configures an OpenAPISchema.
type OpenAPIOption func(*OpenAPISchema)

// WithCoercion converts string inputs to the scalar type the schema declares
// before validating. Use it for query and header parameters.
func WithCoercion() OpenAPIOption {
	return func(s *OpenAPISchema) {
		s.coerce = true
	}
}

// WithValidationOptions appends raw kin-openapi validation options.
func WithValidationOptions(opts ...openapi3.SchemaValidationOption) OpenAPIOption {
	return func(s *OpenAPISchema) {
		s.opts = append(s.opts, opts...)
	}
}

// OpenAPI wraps an OpenAPI schema object.
func OpenAPI(s *openapi3.Schema, opts ...OpenAPIOption) *OpenAPISchema {
	out := &OpenAPISchema{
		schema: s,
		opts:   []openapi3.SchemaValidationOption{openapi3.MultiErrors(), openapi3.DefaultsSet(func() {})},
	}
	for _, opt := range opts {
		opt(out)
	}
	return out
}

// Raw returns the wrapped schema object.
func (s *OpenAPISchema) Raw() *openapi3.Schema {
	return s.schema
}

// Validate implements Schema.
func (s *OpenAPISchema) Validate(_ context.Context, value any) (any, error) {
	if s.schema == nil {
		return value, nil
	}
	if value == nil {
		if s.schema.Nullable || typeIncludes(s.schema, "null") {
			return nil, nil
		}
		return nil, Fail(KindRequired, "", "value is required")
	}

	normalized, err := Normalize(value)
	if err != nil {
		return nil, Fail(KindType, "", err.Error())
	}
	if s.coerce {
		normalized = coerce(s.schema, normalized)
	}

	if err := s.schema.VisitJSON(normalized, s.opts...); err != nil {
		return nil, fromOpenAPIError(err)
	}
	return normalized, nil
}

func fromOpenAPIError(err error) *ValidationError {
	var multi openapi3.MultiError
	if errors.As(err, &multi) {
		out := &ValidationError{}
		for _, e := range multi {
			out.Issues = append(out.Issues, fromOpenAPIError(e).Issues...)
		}
		return out
	}

	var serr *openapi3.SchemaError
	if errors.As(err, &serr) {
		path := ""
		if pointer := serr.JSONPointer(); len(pointer) > 0 {
			escaped := make([]string, len(pointer))
			for i, token := range pointer {
				escaped[i] = escapePointer(token)
			}
			path = "/" + strings.Join(escaped, "/")
		}
		return Fail(kindForField(serr.SchemaField), path, serr.Reason)
	}

	return Fail(KindConstraint, "", err.Error())
}

func kindForField(field string) string {
	switch field {
	case "type", "nullable":
		return KindType
	case "required":
		return KindRequired
	case "format", "pattern":
		return KindFormat
	case "enum":
		return KindEnum
	default:
		return KindConstraint
	}
}

func typeIncludes(s *openapi3.Schema, typ string) bool {
	return s.Type != nil && s.Type.Includes(typ)
}

// coerce converts query-string style values into the types the schema asks for.
func coerce(s *openapi3.Schema, value any) any {
	switch v := value.(type) {
	case string:
		switch {
		case typeIncludes(s, "string"):
			return v
		case typeIncludes(s, "integer"), typeIncludes(s, "number"):
			if i, err := strconv.ParseInt(v, 10, 64); err == nil {
				return number(json.Number(strconv.FormatInt(i, 10)))
			}
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f
			}
		case typeIncludes(s, "boolean"):
			if b, err := strconv.ParseBool(v); err == nil {
				return b
			}
		case typeIncludes(s, "array"):
			if s.Items != nil && s.Items.Value != nil {
				return []any{coerce(s.Items.Value, v)}
			}
		}
		return v
	case []any:
		if !typeIncludes(s, "array") || s.Items == nil || s.Items.Value == nil {
			return v
		}
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = coerce(s.Items.Value, item)
		}
		return out
	default:
		return v
	}
}

// String renders the schema type for diagnostics.
func (s *OpenAPISchema) String() string {
	if s.schema == nil || s.schema.Type == nil {
		return "openapi(any)"
	}
	return fmt.Sprintf("openapi(%s)", strings.Join(s.schema.Type.Slice(), "|"))
}
