package models

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// ToMap renders e as its full dictionary form: every attribute, the
// timestamps in TimeFormat and the __class__ discriminator. This is the
// form written to the backing file.
func ToMap(e Entity) map[string]any {
	b := e.Meta()
	m := map[string]any{
		ClassKey:     string(e.Kind()),
		"id":         b.ID,
		"created_at": b.CreatedAt.UTC().Format(TimeFormat),
		"updated_at": b.UpdatedAt.UTC().Format(TimeFormat),
	}
	for _, f := range schemas[e.Kind()] {
		m[f.Name] = e.get(f.Name)
	}
	return m
}

// PublicMap is ToMap without secret attributes, for client responses.
func PublicMap(e Entity) map[string]any {
	m := ToMap(e)
	for _, f := range schemas[e.Kind()] {
		if f.Secret {
			delete(m, f.Name)
		}
	}
	return m
}

// FromMap rebuilds an entity from its dictionary form, dispatching on the
// __class__ discriminator. Values are assigned as stored: passwords are not
// re-hashed.
func FromMap(m map[string]any) (Entity, error) {
	class, _ := m[ClassKey].(string)
	k, err := ParseKind(class)
	if err != nil {
		return nil, err
	}
	e, err := New(k)
	if err != nil {
		return nil, err
	}

	b := e.Meta()
	id, _ := m["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("%s: missing id", k)
	}
	b.ID = id
	if v, ok := m["created_at"]; ok {
		if b.CreatedAt, err = parseTime(v); err != nil {
			return nil, fmt.Errorf("%s.%s: created_at: %w", k, id, err)
		}
	}
	if v, ok := m["updated_at"]; ok {
		if b.UpdatedAt, err = parseTime(v); err != nil {
			return nil, fmt.Errorf("%s.%s: updated_at: %w", k, id, err)
		}
	}

	for _, f := range schemas[k] {
		raw, ok := m[f.Name]
		if !ok || raw == nil {
			continue
		}
		v, ok := coerce(f.Type, raw)
		if !ok {
			return nil, fmt.Errorf("%s.%s: bad value for %s", k, id, f.Name)
		}
		e.set(f.Name, v)
	}
	return e, nil
}

func parseTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		if ts, err := time.Parse(TimeFormat, t); err == nil {
			return ts, nil
		}
		return time.Parse(time.RFC3339Nano, t)
	case []byte:
		return parseTime(string(t))
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp %T", v)
}

// coerce converts a decoded JSON or database value to the Go type of t.
func coerce(t FieldType, v any) (any, bool) {
	switch t {
	case String:
		switch s := v.(type) {
		case string:
			return s, true
		case []byte:
			return string(s), true
		}
	case Int:
		switch n := v.(type) {
		case int:
			return n, true
		case int32:
			return int(n), true
		case int64:
			return int(n), true
		case float64:
			// 2^63 is exactly representable; anything at or past it overflows.
			if n == math.Trunc(n) && n >= math.MinInt64 && n < math.MaxInt64 {
				return int(n), true
			}
		case json.Number:
			if i, err := n.Int64(); err == nil {
				return int(i), true
			}
		}
	case Float:
		switch n := v.(type) {
		case float64:
			return n, true
		case float32:
			return float64(n), true
		case int:
			return float64(n), true
		case int64:
			return float64(n), true
		case json.Number:
			if f, err := n.Float64(); err == nil {
				return f, true
			}
		}
	case StringList:
		switch l := v.(type) {
		case []string:
			return append([]string{}, l...), true
		case []any:
			out := make([]string, 0, len(l))
			for _, item := range l {
				s, ok := item.(string)
				if !ok {
					return nil, false
				}
				out = append(out, s)
			}
			return out, true
		case string:
			var out []string
			if err := json.Unmarshal([]byte(l), &out); err != nil {
				return nil, false
			}
			if out == nil {
				out = []string{}
			}
			return out, true
		case []byte:
			return coerce(t, string(l))
		}
	}
	return nil, false
}
