package catalog_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astahmer/zodios"
	"github.com/astahmer/zodios/catalog"
)

const postsCatalog = `
schemas:
  Post:
    type: object
    required: [id, title]
    properties:
      id: {type: integer}
      title: {type: string}
  Error:
    type: object
    required: [message]
    properties:
      message: {type: string}
endpoints:
  - method: get
    path: /posts
    alias: getPosts
    parameters:
      - name: limit
        type: Query
        schema: {type: integer, minimum: 1}
    response:
      type: array
      items: {$ref: "#/schemas/Post"}
  - method: get
    path: /posts/:id
    alias: getPost
    response: {$ref: "#/schemas/Post"}
    errors:
      - status: 404
        schema: {$ref: "#/schemas/Error"}
      - status: default
        description: anything else
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

func TestParseCatalog(t *testing.T) {
	endpoints, err := catalog.Parse([]byte(postsCatalog))
	require.NoError(t, err)
	require.Len(t, endpoints, 3)

	getPost := endpoints[1]
	assert.Equal(t, zodios.MethodGet, getPost.Method)
	assert.Equal(t, "/posts/:id", getPost.Path)
	assert.Equal(t, "getPost", getPost.Alias)
	require.Len(t, getPost.Errors, 2)
	assert.Equal(t, 404, getPost.Errors[0].Status)
	assert.True(t, getPost.Errors[1].IsDefault())
	assert.Equal(t, "anything else", getPost.Errors[1].Description)

	ctx := context.Background()
	out, err := getPost.Response.Validate(ctx, map[string]any{"id": 1, "title": "hello"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": float64(1), "title": "hello"}, out)

	_, err = getPost.Response.Validate(ctx, map[string]any{"id": "x"})
	assert.Error(t, err)

	assert.Equal(t, 201, endpoints[2].Status)
	body, ok := endpoints[2].BodyParameter()
	require.True(t, ok)
	_, err = body.Schema.Validate(ctx, nil)
	assert.Error(t, err, "body parameters are required by default")
}

func TestParseCatalogQueryParameters(t *testing.T) {
	endpoints, err := catalog.Parse([]byte(postsCatalog))
	require.NoError(t, err)

	limit := endpoints[0].Parameters[0]
	assert.Equal(t, zodios.ParamQuery, limit.Type)

	ctx := context.Background()
	out, err := limit.Schema.Validate(ctx, "5")
	require.NoError(t, err)
	assert.Equal(t, float64(5), out)

	out, err = limit.Schema.Validate(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, out)

	_, err = limit.Schema.Validate(ctx, "0")
	assert.Error(t, err)
}

func TestParseCatalogErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown field", "endpoints:\n  - method: get\n    path: /a\n    bogus: 1\n"},
		{"bad method", "endpoints:\n  - method: fetch\n    path: /a\n"},
		{"bad parameter type", "endpoints:\n  - method: get\n    path: /a\n    parameters:\n      - name: x\n        type: Path\n"},
		{"unknown ref", "endpoints:\n  - method: get\n    path: /a\n    response: {$ref: \"#/schemas/Nope\"}\n"},
		{"foreign ref", "endpoints:\n  - method: get\n    path: /a\n    response: {$ref: \"other.yaml#/X\"}\n"},
		{"bad status", "endpoints:\n  - method: get\n    path: /a\n    errors:\n      - status: teapot\n"},
		{"circular ref", "schemas:\n  A: {$ref: \"#/schemas/B\"}\n  B: {$ref: \"#/schemas/A\"}\nendpoints:\n  - method: get\n    path: /a\n    response: {$ref: \"#/schemas/A\"}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := catalog.Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, zodios.ErrInvalidCatalog)
		})
	}
}

const petstore = `
openapi: 3.0.3
info:
  title: pets
  version: 1.0.0
paths:
  /pets/{petId}:
    parameters:
      - name: X-Tenant
        in: header
        schema: {type: string}
    get:
      operationId: getPet
      summary: Find a pet
      parameters:
        - name: petId
          in: path
          required: true
          schema: {type: integer}
        - name: expand
          in: query
          required: true
          schema: {type: boolean}
      responses:
        "200":
          description: ok
          content:
            application/json:
              schema:
                type: object
                required: [id]
                properties:
                  id: {type: integer}
        "404":
          description: missing
          content:
            application/json:
              schema:
                type: object
                properties:
                  message: {type: string}
        default:
          description: unexpected
  /pets:
    post:
      operationId: createPet
      x-zodios-immutable: false
      requestBody:
        required: true
        content:
          application/x-www-form-urlencoded:
            schema:
              type: object
              properties:
                name: {type: string}
      responses:
        "201":
          description: created
        "202":
          description: accepted
  /search:
    post:
      operationId: searchPets
      x-zodios-immutable: true
      requestBody:
        content:
          application/json:
            schema: {type: object}
      responses:
        "200":
          description: ok
`

func TestFromOpenAPI(t *testing.T) {
	endpoints, err := catalog.FromOpenAPI([]byte(petstore))
	require.NoError(t, err)
	require.Len(t, endpoints, 3)

	byAlias := map[string]zodios.Endpoint{}
	for _, e := range endpoints {
		byAlias[e.Alias] = e
	}

	getPet := byAlias["getPet"]
	assert.Equal(t, zodios.MethodGet, getPet.Method)
	assert.Equal(t, "/pets/:petId", getPet.Path)
	assert.Equal(t, "Find a pet", getPet.Description)
	assert.Equal(t, 200, getPet.Status)
	require.Len(t, getPet.Parameters, 2)
	assert.Equal(t, "X-Tenant", getPet.Parameters[0].Name)
	assert.Equal(t, zodios.ParamHeader, getPet.Parameters[0].Type)
	assert.Equal(t, "expand", getPet.Parameters[1].Name)
	require.Len(t, getPet.Errors, 2)
	assert.Equal(t, 404, getPet.Errors[0].Status)
	assert.True(t, getPet.Errors[1].IsDefault())

	ctx := context.Background()
	out, err := getPet.Parameters[1].Schema.Validate(ctx, "true")
	require.NoError(t, err)
	assert.Equal(t, true, out)
	_, err = getPet.Parameters[1].Schema.Validate(ctx, nil)
	assert.Error(t, err)

	createPet := byAlias["createPet"]
	assert.Equal(t, zodios.FormatFormURL, createPet.RequestFormat)
	assert.Equal(t, 201, createPet.Status)
	require.Len(t, createPet.Errors, 1)
	assert.Equal(t, 202, createPet.Errors[0].Status)
	assert.False(t, createPet.Immutable)

	search := byAlias["searchPets"]
	assert.True(t, search.Immutable)
	body, ok := search.BodyParameter()
	require.True(t, ok)
	out, err = body.Schema.Validate(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestFromOpenAPIInvalid(t *testing.T) {
	_, err := catalog.FromOpenAPI([]byte("openapi: 3.0.3\ninfo: {}\npaths: {}\n"))
	assert.ErrorIs(t, err, zodios.ErrInvalidCatalog)
}

func TestLoadDetectsFormat(t *testing.T) {
	dir := t.TempDir()
	native := filepath.Join(dir, "api.yaml")
	openapi := filepath.Join(dir, "openapi.yaml")
	require.NoError(t, os.WriteFile(native, []byte(postsCatalog), 0o600))
	require.NoError(t, os.WriteFile(openapi, []byte(petstore), 0o600))

	c, err := catalog.Load(native)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Len())
	_, err = c.FindByAlias("createPost")
	assert.NoError(t, err)

	c, err = catalog.Load(openapi)
	require.NoError(t, err)
	_, err = c.FindByAlias("getPet")
	assert.NoError(t, err)

	_, err = catalog.Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
