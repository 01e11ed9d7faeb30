package types

import "fmt"

// Instance is a materialized entity: one in-memory object per stored
// identity, handed out by the Store. Field writes go through Set, which
// routes to Store.Update so every write is explicit and observable; Apply
// is the in-memory escape hatch the engine uses during materialization
// and cascading repair.
type Instance struct {
	typeName string
	key      Key
	values   map[string]any
	store    Store
}

// NewInstance builds an empty instance of the named type bound to a
// store. Backends call this during materialization; application code
// obtains instances from Store.Create and Store.Get.
func NewInstance(typeName string, store Store) *Instance {
	return &Instance{
		typeName: typeName,
		values:   make(map[string]any),
		store:    store,
	}
}

// TypeName returns the concrete entity type name.
func (i *Instance) TypeName() string { return i.typeName }

// Key returns the identity tuple.
func (i *Instance) Key() Key { return i.key }

// BindKey fixes the identity tuple. For engine use on materialization.
func (i *Instance) BindKey(k Key) { i.key = k }

// Store returns the store the instance is bound to.
func (i *Instance) Store() Store { return i.store }

// Get returns the in-memory value of a field, nil when unset.
func (i *Instance) Get(field string) any { return i.values[field] }

// Set writes a field through the store, persisting it to the correct
// physical location and refreshing the cache entry.
func (i *Instance) Set(field string, value any) error {
	if i.store == nil {
		return fmt.Errorf("instance %s[%s] is not bound to a store", i.typeName, i.key)
	}
	return i.store.Update(i, field, value)
}

// Apply sets the in-memory value without persisting. Engine use only:
// materialization, refresh, and rollback repair go through here.
func (i *Instance) Apply(field string, value any) {
	i.values[field] = value
}

// Fields returns a copy of the current in-memory field values.
func (i *Instance) Fields() map[string]any {
	out := make(map[string]any, len(i.values))
	for k, v := range i.values {
		out[k] = v
	}
	return out
}

// Int returns the field as an int64, zero when unset.
func (i *Instance) Int(field string) int64 {
	n, _ := i.values[field].(int64)
	return n
}

// String returns the field as a string, empty when unset.
func (i *Instance) String(field string) string {
	s, _ := i.values[field].(string)
	return s
}

// Bool returns the field as a bool, false when unset.
func (i *Instance) Bool(field string) bool {
	b, _ := i.values[field].(bool)
	return b
}

// Ref returns a reference-typed field as an instance, nil when the
// referent is unset or has been deleted.
func (i *Instance) Ref(field string) *Instance {
	inst, _ := i.values[field].(*Instance)
	return inst
}

// Map returns a map-kinded field, nil when unset.
func (i *Instance) Map(field string) map[string]any {
	m, _ := i.values[field].(map[string]any)
	return m
}
