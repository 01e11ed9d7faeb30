package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind identifies the value kind of a field. The closed set of scalar
// kinds maps to native SQLite column types; everything else is stored as
// an opaque JSON blob in a side table.
type Kind int

const (
	// KindAny holds any JSON-serializable value. Always stored as an
	// attribute blob.
	KindAny Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindBytes
	KindDate
	KindTime
	KindUUID
	KindEmail
	// KindRef holds a reference to another stored instance. Persisted
	// as a (type, key) token; resolved non-strictly on read, so a
	// deleted referent reads back as nil.
	KindRef
	// KindMap holds a string-keyed map. Always stored as an attribute
	// blob.
	KindMap
)

// String returns the kind name as used in blueprints and diagnostics.
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindDate:
		return "date"
	case KindTime:
		return "time"
	case KindUUID:
		return "uuid"
	case KindEmail:
		return "email"
	case KindRef:
		return "ref"
	case KindMap:
		return "map"
	default:
		return "any"
	}
}

// ColumnType returns the SQLite column type backing a core field of this
// kind.
func (k Kind) ColumnType() string {
	switch k {
	case KindBool, KindInt:
		return "INTEGER"
	case KindFloat:
		return "REAL"
	case KindString, KindEmail, KindUUID, KindDate, KindTime:
		return "TEXT"
	default:
		return "BLOB"
	}
}

// Generic returns whether values of this kind require generic
// serialization and therefore live in an attribute table.
func (k Kind) Generic() bool {
	return k == KindAny || k == KindMap || k == KindRef
}

const (
	timeLayout = time.RFC3339Nano
	dateLayout = "2006-01-02"
)

// Coerce normalizes a caller-supplied value to the canonical in-memory
// representation for the kind: int64 for KindInt, float64 for KindFloat,
// time.Time for KindDate/KindTime, uuid.UUID for KindUUID, and so on.
// A nil value passes through for every kind.
func Coerce(k Kind, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch k {
	case KindBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case KindInt:
		switch n := v.(type) {
		case int:
			return int64(n), nil
		case int32:
			return int64(n), nil
		case int64:
			return n, nil
		case float64:
			if n == float64(int64(n)) {
				return int64(n), nil
			}
		case json.Number:
			i, err := n.Int64()
			if err == nil {
				return i, nil
			}
		}
	case KindFloat:
		switch n := v.(type) {
		case float32:
			return float64(n), nil
		case float64:
			return n, nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		}
	case KindString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case KindEmail:
		if s, ok := v.(string); ok {
			if !strings.Contains(s, "@") {
				return nil, fmt.Errorf("%w: %q is not an email address", ErrValueKind, s)
			}
			return s, nil
		}
	case KindBytes:
		if b, ok := v.([]byte); ok {
			return b, nil
		}
		if s, ok := v.(string); ok {
			return []byte(s), nil
		}
	case KindDate, KindTime:
		switch t := v.(type) {
		case time.Time:
			if k == KindDate {
				return t.Truncate(24 * time.Hour), nil
			}
			return t, nil
		case string:
			layout := timeLayout
			if k == KindDate {
				layout = dateLayout
			}
			parsed, err := time.Parse(layout, t)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrValueKind, err)
			}
			return parsed, nil
		}
	case KindUUID:
		switch u := v.(type) {
		case uuid.UUID:
			return u, nil
		case string:
			parsed, err := uuid.Parse(u)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrValueKind, err)
			}
			return parsed, nil
		}
	case KindRef:
		if inst, ok := v.(*Instance); ok {
			return inst, nil
		}
	case KindMap:
		switch m := v.(type) {
		case map[string]any:
			return m, nil
		}
	case KindAny:
		return v, nil
	}
	return nil, fmt.Errorf("%w: cannot store %T as %s", ErrValueKind, v, k)
}

// EncodeColumn converts a canonical value into its native column
// representation for a core field.
func EncodeColumn(k Kind, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch k {
	case KindBool:
		if v.(bool) {
			return int64(1), nil
		}
		return int64(0), nil
	case KindInt:
		return v.(int64), nil
	case KindFloat:
		return v.(float64), nil
	case KindString, KindEmail:
		return v.(string), nil
	case KindBytes:
		return v.([]byte), nil
	case KindTime:
		return v.(time.Time).Format(timeLayout), nil
	case KindDate:
		return v.(time.Time).Format(dateLayout), nil
	case KindUUID:
		return v.(uuid.UUID).String(), nil
	}
	// Core columns never hold generic kinds; the registry routes them
	// to attribute storage.
	return nil, fmt.Errorf("%w: kind %s has no column form", ErrValueKind, k)
}

// DecodeColumn converts a scanned column value back to its canonical
// in-memory representation.
func DecodeColumn(k Kind, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch k {
	case KindBool:
		return v.(int64) != 0, nil
	case KindInt:
		return v.(int64), nil
	case KindFloat:
		switch f := v.(type) {
		case float64:
			return f, nil
		case int64:
			return float64(f), nil
		}
	case KindString, KindEmail:
		return columnString(v), nil
	case KindBytes:
		switch b := v.(type) {
		case []byte:
			return b, nil
		case string:
			return []byte(b), nil
		}
	case KindTime:
		return time.Parse(timeLayout, columnString(v))
	case KindDate:
		return time.Parse(dateLayout, columnString(v))
	case KindUUID:
		return uuid.Parse(columnString(v))
	}
	return nil, fmt.Errorf("%w: cannot decode %T as %s", ErrValueKind, v, k)
}

func columnString(v any) string {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v.(string)
}

// refToken is the persisted form of a KindRef value.
type refToken struct {
	Type string         `json:"type"`
	Key  map[string]any `json:"key"`
}

// EncodeBlob serializes a canonical value into the JSON blob stored in an
// attribute or indexed-attribute row.
func EncodeBlob(k Kind, v any) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	switch k {
	case KindTime:
		return json.Marshal(v.(time.Time).Format(timeLayout))
	case KindDate:
		return json.Marshal(v.(time.Time).Format(dateLayout))
	case KindUUID:
		return json.Marshal(v.(uuid.UUID).String())
	case KindRef:
		inst := v.(*Instance)
		return json.Marshal(refToken{Type: inst.TypeName(), Key: inst.Key().Map()})
	}
	return json.Marshal(v)
}

// DecodeBlob deserializes an attribute blob. KindRef blobs decode to a
// *RefValue token; the engine resolves tokens to instances.
func DecodeBlob(k Kind, blob []byte) (any, error) {
	if len(blob) == 0 || string(blob) == "null" {
		return nil, nil
	}
	switch k {
	case KindRef:
		var tok refToken
		if err := json.Unmarshal(blob, &tok); err != nil {
			return nil, fmt.Errorf("decoding reference: %w", err)
		}
		return &RefValue{Type: tok.Type, Key: tok.Key}, nil
	case KindMap:
		var m map[string]any
		if err := json.Unmarshal(blob, &m); err != nil {
			return nil, fmt.Errorf("decoding map attribute: %w", err)
		}
		return m, nil
	case KindBytes:
		var b []byte
		if err := json.Unmarshal(blob, &b); err != nil {
			return nil, fmt.Errorf("decoding bytes attribute: %w", err)
		}
		return b, nil
	case KindAny:
		var v any
		if err := json.Unmarshal(blob, &v); err != nil {
			return nil, fmt.Errorf("decoding attribute: %w", err)
		}
		return v, nil
	}
	var raw any
	if err := json.Unmarshal(blob, &raw); err != nil {
		return nil, fmt.Errorf("decoding attribute: %w", err)
	}
	return Coerce(k, raw)
}

// RefValue is the unresolved form of a stored reference, produced by
// DecodeBlob and consumed by the engine's reference resolution.
type RefValue struct {
	Type string
	Key  map[string]any
}

// FormatValue renders a canonical value in the stable textual form used
// for identity tuples and cache keys.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case time.Time:
		return t.Format(timeLayout)
	case []byte:
		return fmt.Sprintf("%x", t)
	case uuid.UUID:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}
