package zodios

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"reflect"
	"sort"

	"github.com/astahmer/zodios/schema"
)

// File is a form-data part carrying file content.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// encodeBody serializes data for format and returns the body with its
// content type. A nil body yields no content.
func encodeBody(format RequestFormat, data any) ([]byte, string, error) {
	if data == nil {
		return nil, "", nil
	}
	var (
		body        []byte
		contentType string
		err         error
	)
	switch format {
	case "", FormatJSON:
		body, err = json.Marshal(data)
		contentType = "application/json"
	case FormatFormURL:
		body, err = encodeFormURL(data)
		contentType = "application/x-www-form-urlencoded"
	case FormatFormData:
		body, contentType, err = encodeFormData(data)
	case FormatBinary:
		body, err = encodeBinary(data)
		contentType = "application/octet-stream"
	case FormatText:
		body = []byte(formatText(data))
		contentType = "text/plain; charset=utf-8"
	default:
		err = fmt.Errorf("unknown request format %q", format)
	}
	if err != nil {
		return nil, "", &EncodingError{Format: format, Cause: err}
	}
	return body, contentType, nil
}

func encodeFormURL(data any) ([]byte, error) {
	fields, err := formFields(data)
	if err != nil {
		return nil, err
	}
	values := url.Values{}
	for _, key := range sortedKeys(fields) {
		for _, v := range flatten(fields[key]) {
			s, err := formString(v)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", key, err)
			}
			values.Add(key, s)
		}
	}
	return []byte(values.Encode()), nil
}

func encodeFormData(data any) ([]byte, string, error) {
	fields, err := formFields(data)
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, key := range sortedKeys(fields) {
		for _, v := range flatten(fields[key]) {
			if err := writePart(w, key, v); err != nil {
				return nil, "", fmt.Errorf("field %q: %w", key, err)
			}
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func writePart(w *multipart.Writer, key string, v any) error {
	var file *File
	switch x := v.(type) {
	case File:
		file = &x
	case *File:
		file = x
	case []byte:
		file = &File{Name: key, Data: x}
	case io.Reader:
		data, err := io.ReadAll(x)
		if err != nil {
			return err
		}
		file = &File{Name: key, Data: data}
	}

	if file == nil {
		s, err := formString(v)
		if err != nil {
			return err
		}
		return w.WriteField(key, s)
	}

	h := make(textproto.MIMEHeader)
	name := file.Name
	if name == "" {
		name = key
	}
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, key, name))
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = part.Write(file.Data)
	return err
}

// formFields turns a map or struct into top-level form fields. Maps keep
// their values as-is so file parts survive; structs go through JSON.
func formFields(data any) (map[string]any, error) {
	switch x := data.(type) {
	case map[string]any:
		return x, nil
	case map[string]string:
		out := make(map[string]any, len(x))
		for k, v := range x {
			out[k] = v
		}
		return out, nil
	case url.Values:
		out := make(map[string]any, len(x))
		for k, v := range x {
			out[k] = v
		}
		return out, nil
	}

	normalized, err := schema.Normalize(data)
	if err != nil {
		return nil, err
	}
	obj, ok := normalized.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected an object, got %T", data)
	}
	return obj, nil
}

// flatten expands slices into repeated values, leaving bytes and files whole.
func flatten(v any) []any {
	if v == nil {
		return nil
	}
	switch v.(type) {
	case []byte, string:
		return []any{v}
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{v}
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

// formString renders a form value; nested objects are sent as JSON.
func formString(v any) (string, error) {
	switch x := v.(type) {
	case map[string]any, []any:
		data, err := json.Marshal(x)
		return string(data), err
	case File, *File, io.Reader:
		return "", errors.New("file values need form-data")
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Struct || rv.Kind() == reflect.Map {
		data, err := json.Marshal(v)
		return string(data), err
	}
	return formatValue(v), nil
}

func encodeBinary(data any) ([]byte, error) {
	switch x := data.(type) {
	case []byte:
		return x, nil
	case string:
		return []byte(x), nil
	case io.Reader:
		return io.ReadAll(x)
	case File:
		return x.Data, nil
	case *File:
		return x.Data, nil
	default:
		return nil, fmt.Errorf("binary body must be []byte, string, io.Reader or File, got %T", data)
	}
}

func formatText(data any) string {
	switch x := data.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	default:
		return formatValue(x)
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
