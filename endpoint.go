package zodios

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/astahmer/zodios/schema"
)

// Method is a lower-case HTTP method.
type Method string

const (
	MethodGet     Method = "get"
	MethodHead    Method = "head"
	MethodOptions Method = "options"
	MethodPost    Method = "post"
	MethodPut     Method = "put"
	MethodPatch   Method = "patch"
	MethodDelete  Method = "delete"
)

// ParseMethod normalizes s and checks it is a supported method.
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case MethodGet, MethodHead, MethodOptions, MethodPost, MethodPut, MethodPatch, MethodDelete:
		return m, nil
	}
	return "", fmt.Errorf("zodios: unsupported method %q", s)
}

// IsMutation reports whether calls with this method carry a body.
func (m Method) IsMutation() bool {
	switch m {
	case MethodPost, MethodPut, MethodPatch, MethodDelete:
		return true
	}
	return false
}

// RequestFormat controls body serialization.
type RequestFormat string

const (
	FormatJSON     RequestFormat = "json"
	FormatFormData RequestFormat = "form-data"
	FormatFormURL  RequestFormat = "form-url"
	FormatBinary   RequestFormat = "binary"
	FormatText     RequestFormat = "text"
)

// ParamType says where a parameter lives.
type ParamType string

const (
	ParamQuery  ParamType = "Query"
	ParamBody   ParamType = "Body"
	ParamHeader ParamType = "Header"
)

// Parameter is one declared endpoint input.
type Parameter struct {
	Name        string
	Description string
	Type        ParamType
	Schema      schema.Schema
}

// DefaultStatus matches any status without a dedicated ErrorSchema.
const DefaultStatus = 0

// ErrorSchema describes the body of an error status. Status DefaultStatus
// stands for "default".
type ErrorSchema struct {
	Status      int
	Description string
	Schema      schema.Schema
}

// IsDefault reports whether e is the fallback entry.
func (e ErrorSchema) IsDefault() bool {
	return e.Status == DefaultStatus
}

// StatusLabel renders the status as declared ("404" or "default").
func (e ErrorSchema) StatusLabel() string {
	if e.IsDefault() {
		return "default"
	}
	return strconv.Itoa(e.Status)
}

// Endpoint is the declarative description of one API route.
type Endpoint struct {
	Method        Method
	Path          string
	Alias         string
	Description   string
	RequestFormat RequestFormat
	Immutable     bool
	Parameters    []Parameter
	Response      schema.Schema
	Status        int
	Errors        []ErrorSchema
}

// String renders "METHOD path".
func (e *Endpoint) String() string {
	return strings.ToUpper(string(e.Method)) + " " + e.Path
}

// Format returns the request format, json when unset.
func (e *Endpoint) Format() RequestFormat {
	if e.RequestFormat == "" {
		return FormatJSON
	}
	return e.RequestFormat
}

// SuccessStatus returns the declared success status, 200 when unset.
func (e *Endpoint) SuccessStatus() int {
	if e.Status == 0 {
		return 200
	}
	return e.Status
}

// BodyParameter returns the Body parameter, if declared.
func (e *Endpoint) BodyParameter() (Parameter, bool) {
	for _, p := range e.Parameters {
		if p.Type == ParamBody {
			return p, true
		}
	}
	return Parameter{}, false
}

// ErrorSchemaFor returns the error schema for status: an exact match first,
// then the default entry.
func (e *Endpoint) ErrorSchemaFor(status int) (ErrorSchema, bool) {
	var fallback *ErrorSchema
	for i := range e.Errors {
		switch {
		case e.Errors[i].Status == status && status != DefaultStatus:
			return e.Errors[i], true
		case e.Errors[i].IsDefault() && fallback == nil:
			fallback = &e.Errors[i]
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return ErrorSchema{}, false
}

// PathParams lists the ":name" placeholders of the path template in order.
func (e *Endpoint) PathParams() []string {
	return pathParams(e.Path)
}

func pathParams(path string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, segment := range splitPlaceholders(path) {
		if segment.param && !seen[segment.text] {
			seen[segment.text] = true
			names = append(names, segment.text)
		}
	}
	return names
}

type pathSegment struct {
	text  string
	param bool
}

// splitPlaceholders cuts a template into literal text and ":name" tokens.
// Names are letters, digits and underscores.
func splitPlaceholders(path string) []pathSegment {
	var out []pathSegment
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] != ':' {
			continue
		}
		j := i + 1
		for j < len(path) && isParamChar(path[j]) {
			j++
		}
		if j == i+1 {
			continue
		}
		if start < i {
			out = append(out, pathSegment{text: path[start:i]})
		}
		out = append(out, pathSegment{text: path[i+1 : j], param: true})
		start = j
		i = j - 1
	}
	if start < len(path) {
		out = append(out, pathSegment{text: path[start:]})
	}
	return out
}

func isParamChar(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
