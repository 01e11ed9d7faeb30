package types

import "strings"

// Key is an identity tuple: the ordered primary-key field names and
// values that identify one stored instance within its base type.
type Key struct {
	fields []string
	values []any
}

// NewKey builds a key from parallel field and value slices.
func NewKey(fields []string, values []any) Key {
	return Key{fields: fields, values: values}
}

// IsZero reports whether the key carries no fields.
func (k Key) IsZero() bool { return len(k.fields) == 0 }

// Fields returns the primary-key field names in order.
func (k Key) Fields() []string { return k.fields }

// Values returns the primary-key values in field order.
func (k Key) Values() []any { return k.values }

// Map returns the key as a field-to-value map.
func (k Key) Map() map[string]any {
	m := make(map[string]any, len(k.fields))
	for i, f := range k.fields {
		m[f] = k.values[i]
	}
	return m
}

// String renders the key in the stable form used by caches and ledgers,
// e.g. "id=42".
func (k Key) String() string {
	parts := make([]string, len(k.fields))
	for i, f := range k.fields {
		parts[i] = f + "=" + FormatValue(k.values[i])
	}
	return strings.Join(parts, "&")
}
