package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astahmer/zodios"
)

const testCatalog = `
schemas:
  Post:
    type: object
    required: [id, title]
    properties:
      id: {type: integer}
      title: {type: string}
endpoints:
  - method: get
    path: /posts/:id
    alias: getPost
    parameters:
      - name: X-Api-Key
        type: Header
        schema: {type: string}
    response: {$ref: "#/schemas/Post"}
    errors:
      - status: 404
        schema:
          type: object
          properties:
            message: {type: string}
  - method: post
    path: /posts
    alias: createPost
    status: 201
    parameters:
      - name: body
        type: Body
        schema:
          type: object
          required: [title]
          properties:
            title: {type: string}
    response: {$ref: "#/schemas/Post"}
`

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /posts/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.PathValue("id") != "1" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"message":"no such post"}`)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":    1,
			"title": "hello " + r.Header.Get("X-Api-Key") + r.Header.Get("Authorization"),
		})
	})
	mux.HandleFunc("POST /posts", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 2, "title": body["title"]})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeCatalog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "api.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testCatalog), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := New(WithOutput(&out, &errOut)).Execute(context.Background(), args)
	return out.String(), errOut.String(), err
}

func TestCallByAlias(t *testing.T) {
	srv := newServer(t)
	out, _, err := run(t, "call", "getPost", "-c", writeCatalog(t), "--base-url", srv.URL, "-p", "id=1", "-H", "X-Api-Key=k1", "-o", "json")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, map[string]any{"id": float64(1), "title": "hello k1"}, got)
}

func TestCallByMethodAndPath(t *testing.T) {
	srv := newServer(t)
	out, _, err := run(t, "call", "post", "/posts", "-c", writeCatalog(t), "--base-url", srv.URL, "-d", `{"title":"new"}`, "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "title: new")
	assert.Contains(t, out, "id: 2")
}

func TestCallBodyFromFile(t *testing.T) {
	srv := newServer(t)
	body := filepath.Join(t.TempDir(), "post.json")
	require.NoError(t, os.WriteFile(body, []byte(`{"title":"from file"}`), 0o600))

	out, _, err := run(t, "call", "createPost", "-c", writeCatalog(t), "--base-url", srv.URL, "-d", "@"+body, "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"from file"`)
}

func TestCallRejectsInvalidBody(t *testing.T) {
	srv := newServer(t)
	_, _, err := run(t, "call", "createPost", "-c", writeCatalog(t), "--base-url", srv.URL, "-d", `{"other":1}`)
	assert.ErrorIs(t, err, zodios.ErrParameterValidation)
}

func TestCallTypedHTTPError(t *testing.T) {
	srv := newServer(t)
	_, errOut, err := run(t, "call", "getPost", "-c", writeCatalog(t), "--base-url", srv.URL, "-p", "id=9")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, zodios.StatusCode(err))
	assert.Contains(t, errOut, "HTTP 404")
	assert.Contains(t, errOut, "no such post")
}

func TestCallConfigFromEnvAndFile(t *testing.T) {
	srv := newServer(t)
	t.Setenv("ZODIOS_BASE_URL", srv.URL)
	t.Setenv("ZODIOS_CATALOG", writeCatalog(t))

	config := filepath.Join(t.TempDir(), "zodios.yaml")
	require.NoError(t, os.WriteFile(config, []byte("headers:\n  X-Api-Key: from-config\noutput: json\n"), 0o600))

	out, _, err := run(t, "call", "getPost", "--config", config, "-p", "id=1", "--token", "t0")
	require.NoError(t, err)
	assert.Contains(t, out, `"hello from-configBearer t0"`)
}

func TestCallRequiresCatalogAndBaseURL(t *testing.T) {
	_, _, err := run(t, "call", "getPost")
	assert.ErrorIs(t, err, errNoCatalog)

	_, _, err = run(t, "call", "getPost", "-c", writeCatalog(t))
	assert.ErrorContains(t, err, "no base URL")
}

func TestCallUnknownAlias(t *testing.T) {
	_, _, err := run(t, "call", "nope", "-c", writeCatalog(t), "--base-url", "http://127.0.0.1:1")
	assert.ErrorIs(t, err, zodios.ErrEndpointNotFound)
}

func TestEndpointsCommand(t *testing.T) {
	out, _, err := run(t, "endpoints", "-c", writeCatalog(t), "-o", "json")
	require.NoError(t, err)

	var rows []map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "GET", rows[0]["method"])
	assert.Equal(t, "/posts/:id", rows[0]["path"])
	assert.Equal(t, "header:X-Api-Key", rows[0]["parameters"])
	assert.Equal(t, "404", rows[0]["errors"])
	assert.Equal(t, "201", rows[1]["status"])
}

func TestEndpointsTable(t *testing.T) {
	out, _, err := run(t, "endpoints", "-c", writeCatalog(t), "-o", "table")
	require.NoError(t, err)
	assert.Contains(t, out, "getPost")
	assert.Contains(t, out, "createPost")
}

func TestEndpointsInvalidCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("endpoints:\n  - method: get\n    path: /a\n  - method: get\n    path: /a\n"), 0o600))

	_, _, err := run(t, "endpoints", "-c", path)
	assert.ErrorIs(t, err, zodios.ErrInvalidCatalog)
}

func TestVersionCommand(t *testing.T) {
	out, _, err := run(t, "version", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"version": "`+zodios.Version+`"`)

	out, _, err = run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "zodios "+zodios.Version)
}

func TestUnknownOutputFormat(t *testing.T) {
	_, _, err := run(t, "endpoints", "-c", writeCatalog(t), "-o", "xml")
	assert.ErrorContains(t, err, "unknown output format")
}

func TestParsePairs(t *testing.T) {
	got, err := parsePairs([]string{"a=1", "b=x=y", "a=2", "a=3"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": []string{"1", "2", "3"}, "b": "x=y"}, got)

	_, err = parsePairs([]string{"novalue"})
	assert.Error(t, err)

	got, err = parsePairs(nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestParseData(t *testing.T) {
	v, err := parseData(`{"a":[1,2]}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": []any{float64(1), float64(2)}}, v)

	v, err = parseData("plain text")
	require.NoError(t, err)
	assert.Equal(t, "plain text", v)

	_, err = parseData("@/does/not/exist")
	assert.Error(t, err)
}
