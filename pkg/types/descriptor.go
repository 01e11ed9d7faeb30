package types

// Reserved field and column names injected or managed by the registry.
const (
	// DiscriminatorColumn tags shared-table rows with the concrete
	// subtype name.
	DiscriminatorColumn = "type_name"

	// Containment state fields injected into located descriptors.
	FieldLocationID     = "location_id"
	FieldLocationIndex  = "location_index"
	FieldLocationFilter = "location_filter"

	// FieldStackables holds a container's stackable ledger, persisted
	// as a map attribute on the container itself.
	FieldStackables = "stackables"

	// FieldStackable, when declared by a type, overrides the
	// descriptor-level Stackable flag per instance.
	FieldStackable = "stackable"
)

// Descriptor declares an entity type: its name, optional base type,
// fields, and behavioral flags. Register validates it and fills in the
// computed parts; a registered descriptor must not be mutated.
type Descriptor struct {
	// Name is the type name, unique within a registry.
	Name string
	// Base names the first-class base type whose physical tables this
	// type shares. Empty means the type is its own base (first-class).
	Base string
	// Located types carry containment state and participate in the
	// Locator hierarchy. Implied when Base is located.
	Located bool
	// Stackable types are counted in container ledgers instead of being
	// placed directly.
	Stackable bool
	// Fields declares the type's own fields. Subtypes inherit the base
	// type's fields; their own extra fields are forced to attribute
	// storage because the shared main table carries only base columns.
	Fields []Field

	// Computed by Register.
	firstClass bool
	base       *Descriptor
	children   []string
	fields     []Field
	fieldIndex map[string]int
	pkFields   []string
	uniques    []string
	hasExt     bool
	hasIndexed bool
}

// FirstClass reports whether the type owns its physical tables.
func (d *Descriptor) FirstClass() bool { return d.firstClass }

// BaseDescriptor returns the first-class base descriptor (the receiver
// itself when first-class).
func (d *Descriptor) BaseDescriptor() *Descriptor { return d.base }

// Children returns the names of registered subtypes, in registration
// order. Only meaningful on first-class descriptors.
func (d *Descriptor) Children() []string { return d.children }

// AllFields returns the effective field list: inherited base fields
// followed by the type's own additions.
func (d *Descriptor) AllFields() []Field { return d.fields }

// Field returns the effective field with the given name.
func (d *Descriptor) Field(name string) (*Field, bool) {
	i, ok := d.fieldIndex[name]
	if !ok {
		return nil, false
	}
	return &d.fields[i], true
}

// PrimaryKeys returns the names of the primary-key fields.
func (d *Descriptor) PrimaryKeys() []string { return d.pkFields }

// UniqueFields returns the names of the unique (non-primary-key) fields.
func (d *Descriptor) UniqueFields() []string { return d.uniques }

// HasExternal reports whether any field lives in the attribute table.
func (d *Descriptor) HasExternal() bool { return d.hasExt }

// HasIndexed reports whether any field lives in the indexed-attribute
// table.
func (d *Descriptor) HasIndexed() bool { return d.hasIndexed }

// SinglePrimaryKey returns the lone primary-key field, or ErrAmbiguousKey
// when the identity tuple is composite.
func (d *Descriptor) SinglePrimaryKey() (*Field, error) {
	if len(d.pkFields) != 1 {
		return nil, ErrAmbiguousKey
	}
	f, _ := d.Field(d.pkFields[0])
	return f, nil
}

// KeyOf builds the identity tuple for a value map, in primary-key order.
func (d *Descriptor) KeyOf(values map[string]any) Key {
	vals := make([]any, len(d.pkFields))
	for i, name := range d.pkFields {
		vals[i] = values[name]
	}
	return Key{fields: d.pkFields, values: vals}
}
