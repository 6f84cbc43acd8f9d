package schema

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"
)

// Any accepts every value, including absence.
func Any() Schema {
	return Func(func(_ context.Context, value any) (any, error) {
		return value, nil
	})
}

// Optional lets absence (nil) through and validates everything else with s.
func Optional(s Schema) Schema {
	return Func(func(ctx context.Context, value any) (any, error) {
		if value == nil {
			return nil, nil
		}
		return s.Validate(ctx, value)
	})
}

// Transform validates with s and then maps the validated value through fn.
// An error from fn is reported as a "transform" issue.
func Transform(s Schema, fn func(any) (any, error)) Schema {
	return Func(func(ctx context.Context, value any) (any, error) {
		out, err := s.Validate(ctx, value)
		if err != nil {
			return nil, err
		}
		res, err := fn(out)
		if err != nil {
			return nil, AsValidationError(err)
		}
		return res, nil
	})
}

// String accepts string values.
func String() Schema {
	return Func(func(_ context.Context, value any) (any, error) {
		switch v := value.(type) {
		case nil:
			return nil, Fail(KindRequired, "", "value is required")
		case string:
			return v, nil
		default:
			return nil, Fail(KindType, "", fmt.Sprintf("expected string, got %T", value))
		}
	})
}

// Number accepts any Go numeric value and returns it as float64. Numeric
// strings are rejected; use Coerce for query-string style inputs.
func Number() Schema {
	return Func(func(_ context.Context, value any) (any, error) {
		if value == nil {
			return nil, Fail(KindRequired, "", "value is required")
		}
		f, ok := toFloat(value)
		if !ok {
			return nil, Fail(KindType, "", fmt.Sprintf("expected number, got %T", value))
		}
		return f, nil
	})
}

// Integer accepts whole numbers and returns them as int64.
func Integer() Schema {
	return Func(func(_ context.Context, value any) (any, error) {
		if value == nil {
			return nil, Fail(KindRequired, "", "value is required")
		}
		if n, ok := exactInt(value); ok {
			return n, nil
		}
		f, ok := toFloat(value)
		if !ok {
			return nil, Fail(KindType, "", fmt.Sprintf("expected integer, got %T", value))
		}
		if f != math.Trunc(f) {
			return nil, Fail(KindType, "", fmt.Sprintf("expected integer, got %v", f))
		}
		if f >= math.MaxInt64 || f < math.MinInt64 {
			return nil, Fail(KindConstraint, "", fmt.Sprintf("integer %v out of range", f))
		}
		return int64(f), nil
	})
}

// Boolean accepts bool values.
func Boolean() Schema {
	return Func(func(_ context.Context, value any) (any, error) {
		switch v := value.(type) {
		case nil:
			return nil, Fail(KindRequired, "", "value is required")
		case bool:
			return v, nil
		default:
			return nil, Fail(KindType, "", fmt.Sprintf("expected boolean, got %T", value))
		}
	})
}

// Coerce converts string inputs ("42", "true") to numbers or booleans
// before handing them to s. Non-string inputs are passed unchanged.
func Coerce(s Schema) Schema {
	return Func(func(ctx context.Context, value any) (any, error) {
		if str, ok := value.(string); ok {
			if b, err := strconv.ParseBool(str); err == nil {
				if out, verr := s.Validate(ctx, b); verr == nil {
					return out, nil
				}
			}
			if n, err := strconv.ParseInt(str, 10, 64); err == nil {
				if out, verr := s.Validate(ctx, n); verr == nil {
					return out, nil
				}
			}
			if f, err := strconv.ParseFloat(str, 64); err == nil {
				if out, verr := s.Validate(ctx, f); verr == nil {
					return out, nil
				}
			}
		}
		return s.Validate(ctx, value)
	})
}

// DateTime parses an RFC 3339 timestamp string into a time.Time.
func DateTime() Schema {
	return Func(func(_ context.Context, value any) (any, error) {
		switch v := value.(type) {
		case nil:
			return nil, Fail(KindRequired, "", "value is required")
		case time.Time:
			return v, nil
		case string:
			t, err := time.Parse(time.RFC3339Nano, v)
			if err != nil {
				return nil, Fail(KindFormat, "", fmt.Sprintf("expected RFC 3339 date-time, got %q", v))
			}
			return t, nil
		default:
			return nil, Fail(KindType, "", fmt.Sprintf("expected date-time string, got %T", value))
		}
	})
}

// Object validates a JSON object property by property. Every declared
// property is validated (absent ones as nil, so non-optional schemas make
// them required); undeclared properties are kept as-is. Struct and map
// inputs are normalized to map[string]any first.
func Object(props map[string]Schema) Schema {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return Func(func(ctx context.Context, value any) (any, error) {
		if value == nil {
			return nil, Fail(KindRequired, "", "value is required")
		}
		normalized, err := Normalize(value)
		if err != nil {
			return nil, Fail(KindType, "", err.Error())
		}
		obj, ok := normalized.(map[string]any)
		if !ok {
			return nil, Fail(KindType, "", fmt.Sprintf("expected object, got %T", value))
		}

		out := make(map[string]any, len(obj))
		for k, v := range obj {
			out[k] = v
		}

		var issues []Issue
		for _, key := range keys {
			res, err := props[key].Validate(ctx, obj[key])
			if err != nil {
				issues = append(issues, prefix(err, "/"+escapePointer(key)).Issues...)
				continue
			}
			if res == nil {
				if _, present := obj[key]; !present {
					continue
				}
			}
			out[key] = res
		}
		if len(issues) > 0 {
			return nil, &ValidationError{Issues: issues}
		}
		return out, nil
	})
}

// Array validates each element of a JSON array with items.
func Array(items Schema) Schema {
	return Func(func(ctx context.Context, value any) (any, error) {
		if value == nil {
			return nil, Fail(KindRequired, "", "value is required")
		}
		normalized, err := Normalize(value)
		if err != nil {
			return nil, Fail(KindType, "", err.Error())
		}
		list, ok := normalized.([]any)
		if !ok {
			return nil, Fail(KindType, "", fmt.Sprintf("expected array, got %T", value))
		}

		out := make([]any, len(list))
		var issues []Issue
		for i, item := range list {
			res, err := items.Validate(ctx, item)
			if err != nil {
				issues = append(issues, prefix(err, "/"+strconv.Itoa(i)).Issues...)
				continue
			}
			out[i] = res
		}
		if len(issues) > 0 {
			return nil, &ValidationError{Issues: issues}
		}
		return out, nil
	})
}

// Decode validates with s and decodes the result into a T through a JSON
// round trip, so callers receive a concrete Go type.
func Decode[T any](s Schema) Schema {
	return Func(func(ctx context.Context, value any) (any, error) {
		out, err := s.Validate(ctx, value)
		if err != nil {
			return nil, err
		}
		if typed, ok := out.(T); ok {
			return typed, nil
		}
		data, err := json.Marshal(out)
		if err != nil {
			return nil, Fail(KindTransform, "", err.Error())
		}
		var typed T
		if err := json.Unmarshal(data, &typed); err != nil {
			return nil, Fail(KindTransform, "", err.Error())
		}
		return typed, nil
	})
}

// exactInt returns integer inputs without a float64 round trip.
func exactInt(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return int64(v), uint64(v) <= math.MaxInt64
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		return int64(v), v <= math.MaxInt64
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	}
	return 0, false
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}
