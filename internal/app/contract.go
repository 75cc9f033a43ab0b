package app

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"reviewhub/internal/apperr"
	"reviewhub/internal/domain"
)

type fieldKind uint8

const (
	kindString fieldKind = iota
	kindInt
	kindFloat
	kindBool
	kindTime
)

type field struct {
	key      string
	kind     fieldKind
	required bool
}

func required(key string, k fieldKind) field { return field{key: key, kind: k, required: true} }
func optional(key string, k fieldKind) field { return field{key: key, kind: k} }

// contract is the declared field set of one transfer object. Augmented
// conversions resolve a row plus caller-supplied extras against it.
type contract struct {
	dto    string
	fields []field
}

// values holds every contract key after resolution. Strings, int64, float64,
// bool and canonical time strings are the only value types; absent optional
// fields are nil.
type values map[string]any

// resolve merges row and extra (extra wins), coerces each declared field and
// fails on the first required field without a source. Extra keys outside the
// contract are rejected; unknown row columns are ignored.
func (c contract) resolve(row domain.Row, extra map[string]any) (values, error) {
	declared := make(map[string]struct{}, len(c.fields))
	for _, f := range c.fields {
		declared[f.key] = struct{}{}
	}
	for k := range extra {
		if _, ok := declared[k]; !ok {
			return nil, apperr.Conversion(c.dto, k, "extra key is not part of the contract")
		}
	}

	out := make(values, len(c.fields))
	for _, f := range c.fields {
		raw, ok := extra[f.key]
		if !ok || raw == nil {
			raw = row[f.key]
		}
		if raw == nil {
			if f.required {
				return nil, apperr.Conversion(c.dto, f.key, "required field has no source")
			}
			out[f.key] = nil
			continue
		}
		v, err := coerce(f.kind, raw)
		if err != nil {
			return nil, apperr.Conversion(c.dto, f.key, err.Error())
		}
		out[f.key] = v
	}
	return out, nil
}

// augment resolves row+extra against c and hands the result to build.
func augment[T any](c contract, row domain.Row, extra map[string]any, build func(values) T) (T, error) {
	v, err := c.resolve(row, extra)
	if err != nil {
		var zero T
		return zero, err
	}
	return build(v), nil
}

func coerce(k fieldKind, raw any) (any, error) {
	switch k {
	case kindString:
		switch v := raw.(type) {
		case string:
			return v, nil
		case []byte:
			return string(v), nil
		case fmt.Stringer:
			return v.String(), nil
		}
	case kindInt:
		switch v := raw.(type) {
		case int:
			return int64(v), nil
		case int32:
			return int64(v), nil
		case int64:
			return v, nil
		case uint64:
			return int64(v), nil
		case float64:
			if v == float64(int64(v)) {
				return int64(v), nil
			}
		case string, []byte:
			if n, err := strconv.ParseInt(strings.TrimSpace(asString(v)), 10, 64); err == nil {
				return n, nil
			}
		}
	case kindFloat:
		switch v := raw.(type) {
		case float64:
			return v, nil
		case float32:
			return float64(v), nil
		case int64:
			return float64(v), nil
		case int:
			return float64(v), nil
		case string, []byte:
			s := strings.TrimSpace(strings.ReplaceAll(asString(v), ",", "."))
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return f, nil
			}
		}
	case kindBool:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case int64:
			return v != 0, nil
		case string, []byte:
			if b, err := strconv.ParseBool(strings.TrimSpace(asString(v))); err == nil {
				return b, nil
			}
		}
	case kindTime:
		switch v := raw.(type) {
		case time.Time:
			if !v.IsZero() {
				return canonicalTime(v), nil
			}
		case string, []byte:
			if t, ok := parseTime(asString(v)); ok {
				return canonicalTime(t), nil
			}
		}
	}
	return nil, fmt.Errorf("cannot use %T as %s", raw, k)
}

func (k fieldKind) String() string {
	switch k {
	case kindInt:
		return "int"
	case kindFloat:
		return "float"
	case kindBool:
		return "bool"
	case kindTime:
		return "time"
	}
	return "string"
}

func asString(v any) string {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	s, _ := v.(string)
	return s
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02"}

func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func canonicalTime(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func (v values) str(k string) string {
	s, _ := v[k].(string)
	return s
}

func (v values) strPtr(k string) *string {
	s, ok := v[k].(string)
	if !ok {
		return nil
	}
	return &s
}

func (v values) int64(k string) int64 {
	n, _ := v[k].(int64)
	return n
}

func (v values) floatPtr(k string) *float64 {
	f, ok := v[k].(float64)
	if !ok {
		return nil
	}
	return &f
}
