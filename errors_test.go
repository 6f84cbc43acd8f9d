package zodios

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/astahmer/zodios/schema"
	"github.com/astahmer/zodios/transport"
)

func TestErrorsMatchSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"endpoint not found", &EndpointNotFoundError{Alias: "x"}, ErrEndpointNotFound},
		{"parameter validation", &ParameterValidationError{Name: "id", Type: ParamQuery, Cause: schema.Fail(schema.KindType, "", "bad")}, ErrParameterValidation},
		{"missing path param", &MissingPathParamError{Name: "id", Path: "/posts/:id"}, ErrMissingPathParam},
		{"encoding", &EncodingError{Format: FormatFormURL, Cause: errors.New("boom")}, ErrEncoding},
		{"response validation", &ResponseValidationError{Endpoint: "GET /", Cause: schema.Fail(schema.KindType, "", "bad")}, ErrResponseValidation},
		{"http status", &HTTPError{Status: 404, Endpoint: "GET /"}, ErrHTTPStatus},
		{"catalog", &CatalogError{Endpoint: "GET /", Reason: "duplicate"}, ErrInvalidCatalog},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("Expected %v to match %v", tt.err, tt.sentinel)
			}
			if !strings.HasPrefix(tt.err.Error(), "zodios: ") {
				t.Errorf("Expected zodios prefix, got %q", tt.err.Error())
			}
		})
	}
}

func TestEndpointNotFoundMessage(t *testing.T) {
	if got := (&EndpointNotFoundError{Alias: "getUser"}).Error(); !strings.Contains(got, `"getUser"`) {
		t.Errorf("Unexpected alias message %q", got)
	}
	if got := (&EndpointNotFoundError{Method: MethodGet, Path: "/x"}).Error(); !strings.Contains(got, "get /x") {
		t.Errorf("Unexpected route message %q", got)
	}
}

func TestResponseValidationErrorUnwrapsBoth(t *testing.T) {
	cause := schema.Fail(schema.KindType, "/id", "expected integer")
	terr := &transport.Error{Kind: transport.KindStatus, Response: &transport.Response{Status: 500}}
	err := &ResponseValidationError{Endpoint: "GET /posts", Status: 500, Cause: cause, Err: terr}

	var verr *schema.ValidationError
	if !errors.As(err, &verr) || verr != cause {
		t.Error("Expected to unwrap the schema failure")
	}
	var got *transport.Error
	if !errors.As(err, &got) || got != terr {
		t.Error("Expected to unwrap the transport error")
	}
	if StatusCode(err) != 500 {
		t.Errorf("Expected status 500, got %d", StatusCode(err))
	}
}

func TestTransportErrorResponse(t *testing.T) {
	wire := &transport.Response{
		Status: http.StatusBadGateway,
		Header: http.Header{"Content-Type": {"application/json"}},
		Body:   []byte(`{"error":"upstream"}`),
	}
	err := &TransportError{Err: &transport.Error{Kind: transport.KindStatus, Message: "bad gateway", Response: wire}}

	resp := err.Response()
	if resp == nil || resp.Status != http.StatusBadGateway {
		t.Fatalf("Expected a 502 response, got %+v", resp)
	}
	if data, ok := resp.Data.(map[string]any); !ok || data["error"] != "upstream" {
		t.Errorf("Expected decoded body, got %#v", resp.Data)
	}
	if StatusCode(err) != http.StatusBadGateway {
		t.Errorf("Expected status 502, got %d", StatusCode(err))
	}

	network := &TransportError{Err: &transport.Error{Kind: transport.KindNetwork, Message: "refused"}}
	if network.Response() != nil {
		t.Error("Expected no response for a network failure")
	}
	if StatusCode(network) != 0 {
		t.Errorf("Expected status 0, got %d", StatusCode(network))
	}
}

func TestStatusCodeUnknownError(t *testing.T) {
	if StatusCode(errors.New("plain")) != 0 || StatusCode(nil) != 0 {
		t.Error("Expected 0 for errors without a status")
	}
}
