package catalog

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/astahmer/zodios"
	"github.com/astahmer/zodios/schema"
)

// ImmutableExtension marks a non-GET operation whose response may be cached.
const ImmutableExtension = "x-zodios-immutable"

var templateParam = regexp.MustCompile(`\{([^{}]+)\}`)

var bodyFormats = []struct {
	mediaType string
	format    zodios.RequestFormat
}{
	{"application/json", zodios.FormatJSON},
	{"multipart/form-data", zodios.FormatFormData},
	{"application/x-www-form-urlencoded", zodios.FormatFormURL},
	{"application/octet-stream", zodios.FormatBinary},
	{"text/plain", zodios.FormatText},
}

// FromOpenAPI converts the operations of an OpenAPI 3 document, JSON or
// YAML, into endpoints. operationId becomes the alias and {name} path
// templates become :name. The lowest 2xx response is the success schema;
// other numeric statuses and default become error schemas.
func FromOpenAPI(data []byte) ([]zodios.Endpoint, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing OpenAPI document: %v", zodios.ErrInvalidCatalog, err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("%w: invalid OpenAPI document: %v", zodios.ErrInvalidCatalog, err)
	}
	return FromOpenAPIDocument(doc)
}

// FromOpenAPIDocument converts an already loaded document. Endpoints are
// ordered by path, then method.
func FromOpenAPIDocument(doc *openapi3.T) ([]zodios.Endpoint, error) {
	if doc.Paths == nil {
		return nil, nil
	}
	paths := doc.Paths.Map()
	keys := make([]string, 0, len(paths))
	for k := range paths {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []zodios.Endpoint
	for _, path := range keys {
		item := paths[path]
		ops := item.Operations()
		methods := make([]string, 0, len(ops))
		for m := range ops {
			methods = append(methods, m)
		}
		sort.Strings(methods)

		for _, m := range methods {
			endpoint, err := operationEndpoint(path, m, item, ops[m])
			if err != nil {
				return nil, fmt.Errorf("%w: %s %s: %v", zodios.ErrInvalidCatalog, m, path, err)
			}
			out = append(out, endpoint)
		}
	}
	return out, nil
}

func operationEndpoint(path, method string, item *openapi3.PathItem, op *openapi3.Operation) (zodios.Endpoint, error) {
	m, err := zodios.ParseMethod(method)
	if err != nil {
		return zodios.Endpoint{}, err
	}
	endpoint := zodios.Endpoint{
		Method:      m,
		Path:        templateParam.ReplaceAllString(path, ":$1"),
		Alias:       op.OperationID,
		Description: firstNonEmpty(op.Summary, op.Description),
		Response:    schema.Any(),
	}
	if v, ok := op.Extensions[ImmutableExtension].(bool); ok {
		endpoint.Immutable = v
	}

	for _, ref := range append(append(openapi3.Parameters{}, item.Parameters...), op.Parameters...) {
		if ref == nil || ref.Value == nil {
			continue
		}
		param, ok := openAPIParameter(ref.Value)
		if ok {
			endpoint.Parameters = upsertParameter(endpoint.Parameters, param)
		}
	}

	if op.RequestBody != nil && op.RequestBody.Value != nil {
		if param, format, ok := openAPIBody(op.RequestBody.Value); ok {
			endpoint.Parameters = append(endpoint.Parameters, param)
			endpoint.RequestFormat = format
		}
	}

	if op.Responses != nil {
		applyResponses(&endpoint, op.Responses.Map())
	}
	return endpoint, nil
}

// openAPIParameter keeps query and header parameters; path values come from
// the call's params and cookies are not supported.
func openAPIParameter(p *openapi3.Parameter) (zodios.Parameter, bool) {
	var typ zodios.ParamType
	switch p.In {
	case openapi3.ParameterInQuery:
		typ = zodios.ParamQuery
	case openapi3.ParameterInHeader:
		typ = zodios.ParamHeader
	default:
		return zodios.Parameter{}, false
	}

	var s schema.Schema = schema.Any()
	if p.Schema != nil && p.Schema.Value != nil {
		s = schema.OpenAPI(p.Schema.Value, schema.WithCoercion())
	}
	if !p.Required {
		s = schema.Optional(s)
	}
	return zodios.Parameter{Name: p.Name, Description: p.Description, Type: typ, Schema: s}, true
}

func upsertParameter(params []zodios.Parameter, p zodios.Parameter) []zodios.Parameter {
	for i, existing := range params {
		if existing.Type == p.Type && existing.Name == p.Name {
			params[i] = p
			return params
		}
	}
	return append(params, p)
}

func openAPIBody(body *openapi3.RequestBody) (zodios.Parameter, zodios.RequestFormat, bool) {
	for _, candidate := range bodyFormats {
		media := body.Content.Get(candidate.mediaType)
		if media == nil {
			continue
		}
		var s schema.Schema = schema.Any()
		if media.Schema != nil && media.Schema.Value != nil {
			s = schema.OpenAPI(media.Schema.Value)
		}
		if !body.Required {
			s = schema.Optional(s)
		}
		return zodios.Parameter{Name: "body", Description: body.Description, Type: zodios.ParamBody, Schema: s}, candidate.format, true
	}
	return zodios.Parameter{}, "", false
}

func applyResponses(endpoint *zodios.Endpoint, responses map[string]*openapi3.ResponseRef) {
	success := 0
	statuses := make([]int, 0, len(responses))
	for key := range responses {
		if strings.EqualFold(key, "default") {
			continue
		}
		code, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		statuses = append(statuses, code)
		if code >= 200 && code < 300 && (success == 0 || code < success) {
			success = code
		}
	}
	sort.Ints(statuses)

	if success != 0 {
		endpoint.Status = success
		endpoint.Response = responseSchema(responses[strconv.Itoa(success)])
	}
	for _, code := range statuses {
		if code == success {
			continue
		}
		ref := responses[strconv.Itoa(code)]
		endpoint.Errors = append(endpoint.Errors, zodios.ErrorSchema{
			Status:      code,
			Description: responseDescription(ref),
			Schema:      responseSchema(ref),
		})
	}
	if ref, ok := responses["default"]; ok {
		endpoint.Errors = append(endpoint.Errors, zodios.ErrorSchema{
			Status:      zodios.DefaultStatus,
			Description: responseDescription(ref),
			Schema:      responseSchema(ref),
		})
	}
}

func responseSchema(ref *openapi3.ResponseRef) schema.Schema {
	if ref == nil || ref.Value == nil {
		return schema.Any()
	}
	media := ref.Value.Content.Get("application/json")
	if media == nil {
		for _, mt := range sortedContent(ref.Value.Content) {
			media = ref.Value.Content[mt]
			break
		}
	}
	if media == nil || media.Schema == nil || media.Schema.Value == nil {
		return schema.Any()
	}
	return schema.OpenAPI(media.Schema.Value)
}

func responseDescription(ref *openapi3.ResponseRef) string {
	if ref == nil || ref.Value == nil || ref.Value.Description == nil {
		return ""
	}
	return *ref.Value.Description
}

func sortedContent(content openapi3.Content) []string {
	keys := make([]string, 0, len(content))
	for k := range content {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Load builds a catalog from a catalog file or OpenAPI document.
func Load(path string) (*zodios.Catalog, error) {
	endpoints, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return zodios.NewCatalog(endpoints...)
}
