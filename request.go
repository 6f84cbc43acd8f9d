package zodios

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/astahmer/zodios/transport"
)

// Transport performs the network call for a fully assembled request.
// *transport.Client implements it.
type Transport interface {
	Send(ctx context.Context, req *transport.Request) (*transport.Response, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, req *transport.Request) (*transport.Response, error)

func (f TransportFunc) Send(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	return f(ctx, req)
}

// RequestConfig is what a caller supplies for one call. Method and URL are
// only read by Client.Request; URL is the path template exactly as declared.
type RequestConfig struct {
	Method  Method
	URL     string
	Params  map[string]any
	Queries map[string]any
	Headers map[string]string
	Data    any
	BaseURL string
	Timeout time.Duration
}

// Request is the canonical request seen by plugins. URL stays the path
// template; Params are substituted, URL-escaped, when the request is sent.
type Request struct {
	ID      string
	Method  Method
	URL     string
	Params  map[string]any
	Queries map[string]any
	Headers http.Header
	Data    any
	Format  RequestFormat
	BaseURL string
	Timeout time.Duration
	// Retried marks a request that was already sent again once. Plugins
	// that resend must check it, and Resend refuses to resend twice.
	Retried bool
	// Adapter, when set by a request interceptor, answers this request
	// instead of the client transport.
	Adapter  Transport
	Endpoint *Endpoint

	client *Client
}

// Clone returns a copy whose maps and headers can be changed freely.
func (r *Request) Clone() *Request {
	out := *r
	out.Params = cloneMap(r.Params)
	out.Queries = cloneMap(r.Queries)
	out.Headers = r.Headers.Clone()
	if out.Headers == nil {
		out.Headers = http.Header{}
	}
	return &out
}

// Resend dispatches a copy of r marked Retried straight to the transport,
// skipping plugins. Use it from error interceptors, e.g. after refreshing
// credentials on the clone returned by prepare.
func (r *Request) Resend(ctx context.Context, prepare ...func(*Request)) (*Response, error) {
	if r.Retried {
		return nil, ErrAlreadyRetried
	}
	if r.client == nil {
		return nil, fmt.Errorf("zodios: request %s was not created by a client", r.ID)
	}
	next := r.Clone()
	next.Retried = true
	for _, fn := range prepare {
		fn(next)
	}
	return r.client.dispatch(ctx, next)
}

// DefaultTransport returns the client transport, which answers the request
// when no Adapter is set. Adapters wrap it to add behavior around the call.
func (r *Request) DefaultTransport() Transport {
	if r.client == nil {
		return nil
	}
	return r.client.transport
}

// Route renders "METHOD path" with the path template.
func (r *Request) Route() string {
	return strings.ToUpper(string(r.Method)) + " " + r.URL
}

// ResolvedURL joins BaseURL, the substituted path and the encoded queries.
func (r *Request) ResolvedURL() (string, error) {
	path, err := substitutePath(r.URL, r.Params)
	if err != nil {
		return "", err
	}

	out := strings.TrimRight(r.BaseURL, "/") + path
	if q := encodeQuery(r.Queries); q != "" {
		sep := "?"
		if strings.Contains(out, "?") {
			sep = "&"
		}
		out += sep + q
	}
	return out, nil
}

func (r *Request) transportRequest() (*transport.Request, error) {
	target, err := r.ResolvedURL()
	if err != nil {
		return nil, err
	}
	header := r.Headers.Clone()
	if header == nil {
		header = http.Header{}
	}

	body, contentType, err := encodeBody(r.Format, r.Data)
	if err != nil {
		return nil, err
	}
	if contentType != "" && header.Get("Content-Type") == "" {
		header.Set("Content-Type", contentType)
	}

	return &transport.Request{
		ID:      r.ID,
		Method:  strings.ToUpper(string(r.Method)),
		URL:     target,
		Header:  header,
		Body:    body,
		Timeout: r.Timeout,
		Route:   r.Route(),
	}, nil
}

func substitutePath(template string, params map[string]any) (string, error) {
	var b strings.Builder
	for _, segment := range splitPlaceholders(template) {
		if !segment.param {
			b.WriteString(segment.text)
			continue
		}
		value, ok := params[segment.text]
		if !ok || value == nil {
			return "", &MissingPathParamError{Name: segment.text, Path: template}
		}
		b.WriteString(url.PathEscape(formatValue(value)))
	}
	return b.String(), nil
}

// encodeQuery encodes slices as repeated keys and drops nil values.
func encodeQuery(queries map[string]any) string {
	if len(queries) == 0 {
		return ""
	}
	keys := make([]string, 0, len(queries))
	for k := range queries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := url.Values{}
	for _, k := range keys {
		v := queries[k]
		if v == nil {
			continue
		}
		rv := reflect.ValueOf(v)
		if (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) && rv.Type().Elem().Kind() != reflect.Uint8 {
			for i := 0; i < rv.Len(); i++ {
				values.Add(k, formatValue(rv.Index(i).Interface()))
			}
			continue
		}
		values.Add(k, formatValue(v))
	}
	return values.Encode()
}

// formatValue renders a scalar for a path, query or header.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(v)
	}
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
