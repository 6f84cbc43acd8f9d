package zodios

import (
	"errors"
	"fmt"

	"github.com/astahmer/zodios/schema"
	"github.com/astahmer/zodios/transport"
)

// Sentinel errors matched by the typed errors below through errors.Is.
var (
	ErrEndpointNotFound    = errors.New("zodios: endpoint not found")
	ErrParameterValidation = errors.New("zodios: parameter validation failed")
	ErrMissingPathParam    = errors.New("zodios: missing path parameter")
	ErrEncoding            = errors.New("zodios: body encoding failed")
	ErrResponseValidation  = errors.New("zodios: response validation failed")
	ErrHTTPStatus          = errors.New("zodios: http error status")
	ErrAlreadyRetried      = errors.New("zodios: request already retried")
	ErrPluginNotFound      = errors.New("zodios: plugin not found")
	ErrInvalidCatalog      = errors.New("zodios: invalid catalog")
)

// EndpointNotFoundError is returned when no endpoint matches a call.
type EndpointNotFoundError struct {
	Method Method
	Path   string
	Alias  string
}

func (e *EndpointNotFoundError) Error() string {
	if e.Alias != "" {
		return fmt.Sprintf("zodios: no endpoint with alias %q", e.Alias)
	}
	return fmt.Sprintf("zodios: no endpoint %s %s", e.Method, e.Path)
}

func (e *EndpointNotFoundError) Is(target error) bool {
	return target == ErrEndpointNotFound
}

// ParameterValidationError reports a caller value rejected by a parameter schema.
type ParameterValidationError struct {
	Name  string
	Type  ParamType
	Cause error
}

func (e *ParameterValidationError) Error() string {
	return fmt.Sprintf("zodios: invalid %s parameter %q: %v", e.Type, e.Name, e.Cause)
}

func (e *ParameterValidationError) Unwrap() error { return e.Cause }

func (e *ParameterValidationError) Is(target error) bool {
	return target == ErrParameterValidation
}

// Issues returns the schema issues behind the failure.
func (e *ParameterValidationError) Issues() []schema.Issue {
	return schema.AsValidationError(e.Cause).Issues
}

// MissingPathParamError is returned when a path placeholder has no value.
type MissingPathParamError struct {
	Name string
	Path string
}

func (e *MissingPathParamError) Error() string {
	return fmt.Sprintf("zodios: missing path parameter %q for %s", e.Name, e.Path)
}

func (e *MissingPathParamError) Is(target error) bool {
	return target == ErrMissingPathParam
}

// EncodingError is returned when a body cannot be serialized in its request format.
type EncodingError struct {
	Format RequestFormat
	Cause  error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("zodios: cannot encode %s body: %v", e.Format, e.Cause)
}

func (e *EncodingError) Unwrap() error { return e.Cause }

func (e *EncodingError) Is(target error) bool {
	return target == ErrEncoding
}

// ResponseValidationError is returned when a response body, or the body of
// a matched error status, does not satisfy its declared schema. It unwraps
// to both the schema failure and, for error statuses, the transport error.
type ResponseValidationError struct {
	Endpoint string
	Status   int
	Cause    *schema.ValidationError
	Err      error
}

func (e *ResponseValidationError) Error() string {
	return fmt.Sprintf("zodios: invalid response from %s (status %d): %v", e.Endpoint, e.Status, e.Cause)
}

func (e *ResponseValidationError) Unwrap() []error {
	errs := []error{e.Cause}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func (e *ResponseValidationError) Is(target error) bool {
	return target == ErrResponseValidation
}

// HTTPError is a non-2xx response whose body matched a declared error schema.
// Payload holds the validated (or, with validation off, decoded) body.
type HTTPError struct {
	Status   int
	Payload  any
	Endpoint string
	Response *Response
	Cause    error
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("zodios: %s returned status %d", e.Endpoint, e.Status)
}

func (e *HTTPError) Unwrap() error { return e.Cause }

func (e *HTTPError) Is(target error) bool {
	return target == ErrHTTPStatus
}

// TransportError is a failed dispatch. Request is the request that was sent,
// which differs from the original one after a Resend.
type TransportError struct {
	Request *Request
	Err     error
}

func (e *TransportError) Error() string {
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

// Response returns the HTTP response carried by the failure, if any.
func (e *TransportError) Response() *Response {
	var terr *transport.Error
	if errors.As(e.Err, &terr) && terr.Response != nil {
		return newResponse(terr.Response)
	}
	return nil
}

// CatalogError reports an endpoint list that breaks a catalog invariant.
type CatalogError struct {
	Endpoint string
	Reason   string
}

func (e *CatalogError) Error() string {
	return fmt.Sprintf("zodios: invalid endpoint %s: %s", e.Endpoint, e.Reason)
}

func (e *CatalogError) Is(target error) bool {
	return target == ErrInvalidCatalog
}

// StatusCode returns the HTTP status behind err, or 0.
func StatusCode(err error) int {
	var herr *HTTPError
	if errors.As(err, &herr) {
		return herr.Status
	}
	var rerr *ResponseValidationError
	if errors.As(err, &rerr) && rerr.Err != nil {
		return rerr.Status
	}
	var terr *transport.Error
	if errors.As(err, &terr) {
		return terr.StatusCode()
	}
	return 0
}
