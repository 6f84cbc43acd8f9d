// Package catalog loads endpoint descriptions from files: the catalog YAML
// format and OpenAPI 3 documents.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/goccy/go-yaml"

	"github.com/astahmer/zodios"
	"github.com/astahmer/zodios/schema"
)

const refPrefix = "#/schemas/"

// File is the catalog YAML document.
type File struct {
	Schemas   map[string]map[string]any `yaml:"schemas"`
	Endpoints []EndpointSpec            `yaml:"endpoints"`
}

// EndpointSpec is one endpoint as written in the catalog file.
type EndpointSpec struct {
	Method        string          `yaml:"method"`
	Path          string          `yaml:"path"`
	Alias         string          `yaml:"alias"`
	Description   string          `yaml:"description"`
	RequestFormat string          `yaml:"requestFormat"`
	Immutable     bool            `yaml:"immutable"`
	Parameters    []ParameterSpec `yaml:"parameters"`
	Response      map[string]any  `yaml:"response"`
	Status        int             `yaml:"status"`
	Errors        []ErrorSpec     `yaml:"errors"`
}

// ParameterSpec is one endpoint parameter. Query and Header parameters are
// optional and coerced from strings unless stated otherwise; Body
// parameters are required.
type ParameterSpec struct {
	Name        string         `yaml:"name"`
	Type        string         `yaml:"type"`
	Description string         `yaml:"description"`
	Required    *bool          `yaml:"required"`
	Coerce      *bool          `yaml:"coerce"`
	Schema      map[string]any `yaml:"schema"`
}

// ErrorSpec declares an error body. Status is a number or "default".
type ErrorSpec struct {
	Status      any            `yaml:"status"`
	Description string         `yaml:"description"`
	Schema      map[string]any `yaml:"schema"`
}

// LoadFile reads a catalog from path. OpenAPI documents, in YAML or JSON,
// are recognized by their top-level openapi field.
func LoadFile(path string) ([]zodios.Endpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}
	if isOpenAPI(data) {
		return FromOpenAPI(data)
	}
	return Parse(data)
}

// Parse decodes a catalog YAML document.
func Parse(data []byte) ([]zodios.Endpoint, error) {
	var file File
	if err := yaml.UnmarshalWithOptions(data, &file, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("%w: %v", zodios.ErrInvalidCatalog, err)
	}
	return file.Build()
}

// Build converts the document into endpoints, resolving schema references.
func (f *File) Build() ([]zodios.Endpoint, error) {
	r := &resolver{named: f.Schemas}
	out := make([]zodios.Endpoint, 0, len(f.Endpoints))
	for i, spec := range f.Endpoints {
		endpoint, err := spec.build(r)
		if err != nil {
			name := spec.Alias
			if name == "" {
				name = "#" + strconv.Itoa(i)
			}
			return nil, fmt.Errorf("%w: endpoint %s: %v", zodios.ErrInvalidCatalog, name, err)
		}
		out = append(out, endpoint)
	}
	return out, nil
}

func (s EndpointSpec) build(r *resolver) (zodios.Endpoint, error) {
	method, err := zodios.ParseMethod(s.Method)
	if err != nil {
		return zodios.Endpoint{}, err
	}
	endpoint := zodios.Endpoint{
		Method:        method,
		Path:          s.Path,
		Alias:         s.Alias,
		Description:   s.Description,
		RequestFormat: zodios.RequestFormat(s.RequestFormat),
		Immutable:     s.Immutable,
		Status:        s.Status,
		Response:      schema.Any(),
	}

	if s.Response != nil {
		if endpoint.Response, err = r.schema(s.Response, false); err != nil {
			return zodios.Endpoint{}, fmt.Errorf("response: %w", err)
		}
	}

	for _, p := range s.Parameters {
		param, err := p.build(r)
		if err != nil {
			return zodios.Endpoint{}, fmt.Errorf("parameter %s: %w", p.Name, err)
		}
		endpoint.Parameters = append(endpoint.Parameters, param)
	}

	for _, e := range s.Errors {
		status, err := parseStatus(e.Status)
		if err != nil {
			return zodios.Endpoint{}, err
		}
		es := zodios.ErrorSchema{Status: status, Description: e.Description, Schema: schema.Any()}
		if e.Schema != nil {
			if es.Schema, err = r.schema(e.Schema, false); err != nil {
				return zodios.Endpoint{}, fmt.Errorf("error %s: %w", es.StatusLabel(), err)
			}
		}
		endpoint.Errors = append(endpoint.Errors, es)
	}
	return endpoint, nil
}

func (p ParameterSpec) build(r *resolver) (zodios.Parameter, error) {
	var typ zodios.ParamType
	switch strings.ToLower(p.Type) {
	case "query":
		typ = zodios.ParamQuery
	case "header":
		typ = zodios.ParamHeader
	case "body":
		typ = zodios.ParamBody
	default:
		return zodios.Parameter{}, fmt.Errorf("unknown parameter type %q", p.Type)
	}

	required := typ == zodios.ParamBody
	if p.Required != nil {
		required = *p.Required
	}
	coerce := typ != zodios.ParamBody
	if p.Coerce != nil {
		coerce = *p.Coerce
	}

	var s schema.Schema = schema.Any()
	if p.Schema != nil {
		var err error
		if s, err = r.schema(p.Schema, coerce); err != nil {
			return zodios.Parameter{}, err
		}
	}
	if !required {
		s = schema.Optional(s)
	}
	return zodios.Parameter{Name: p.Name, Description: p.Description, Type: typ, Schema: s}, nil
}

func parseStatus(v any) (int, error) {
	switch s := v.(type) {
	case nil:
		return 0, fmt.Errorf("error status is missing")
	case string:
		if strings.EqualFold(s, "default") {
			return zodios.DefaultStatus, nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("invalid error status %q", s)
		}
		return checkStatus(n)
	case int:
		return checkStatus(s)
	case int64:
		return checkStatus(int(s))
	case uint64:
		return checkStatus(int(s))
	case float64:
		return checkStatus(int(s))
	default:
		return 0, fmt.Errorf("invalid error status %v", v)
	}
}

func checkStatus(n int) (int, error) {
	if n < 100 || n > 599 {
		return 0, fmt.Errorf("invalid error status %d", n)
	}
	return n, nil
}

// resolver inlines "#/schemas/Name" references and converts schema maps to
// OpenAPI schema objects.
type resolver struct {
	named map[string]map[string]any
}

func (r *resolver) schema(raw map[string]any, coerce bool) (schema.Schema, error) {
	inlined, err := r.inline(raw, nil)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(inlined)
	if err != nil {
		return nil, err
	}
	var s openapi3.Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}

	var opts []schema.OpenAPIOption
	if coerce {
		opts = append(opts, schema.WithCoercion())
	}
	return schema.OpenAPI(&s, opts...), nil
}

func (r *resolver) inline(value any, stack []string) (any, error) {
	switch v := value.(type) {
	case map[string]any:
		if ref, ok := v["$ref"].(string); ok {
			name, found := strings.CutPrefix(ref, refPrefix)
			if !found {
				return nil, fmt.Errorf("unsupported reference %q", ref)
			}
			for _, seen := range stack {
				if seen == name {
					return nil, fmt.Errorf("circular reference %s", strings.Join(append(stack, name), " -> "))
				}
			}
			target, ok := r.named[name]
			if !ok {
				return nil, fmt.Errorf("unknown schema %q", name)
			}
			return r.inline(target, append(stack, name))
		}
		out := make(map[string]any, len(v))
		for _, k := range sortedKeys(v) {
			item, err := r.inline(v[k], stack)
			if err != nil {
				return nil, err
			}
			out[k] = item
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			inlined, err := r.inline(item, stack)
			if err != nil {
				return nil, err
			}
			out[i] = inlined
		}
		return out, nil
	default:
		return v, nil
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func isOpenAPI(data []byte) bool {
	var probe struct {
		OpenAPI string `yaml:"openapi" json:"openapi"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return false
	}
	return probe.OpenAPI != ""
}
