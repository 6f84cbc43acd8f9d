package zodios

import (
	"encoding/json"
	"mime"
	"net/http"
	"strings"

	"github.com/astahmer/zodios/schema"
	"github.com/astahmer/zodios/transport"
)

// Response is what response interceptors see and rewrite. Data is the
// decoded body: JSON when the body is JSON, otherwise the body as a string.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
	Data   any
}

// NewResponse builds a response from already decoded data, for interceptors
// that answer without the network. The body is the JSON encoding of data.
func NewResponse(status int, data any) *Response {
	body, _ := json.Marshal(data)
	return &Response{
		Status: status,
		Header: http.Header{"Content-Type": {"application/json"}},
		Body:   body,
		Data:   data,
	}
}

// Clone returns a shallow copy with its own header.
func (r *Response) Clone() *Response {
	out := *r
	out.Header = r.Header.Clone()
	return &out
}

// Wire converts r back to a transport response.
func (r *Response) Wire() *transport.Response {
	return &transport.Response{Status: r.Status, Header: r.Header.Clone(), Body: append([]byte(nil), r.Body...)}
}

func newResponse(t *transport.Response) *Response {
	return &Response{
		Status: t.Status,
		Header: t.Header,
		Body:   t.Body,
		Data:   decodeBody(t.Header, t.Body),
	}
}

func decodeBody(header http.Header, body []byte) any {
	if len(body) == 0 {
		return nil
	}
	if isJSON(header.Get("Content-Type")) || json.Valid(body) {
		if out, err := schema.DecodeJSON(body); err == nil {
			return out
		}
	}
	return string(body)
}

func isJSON(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}
