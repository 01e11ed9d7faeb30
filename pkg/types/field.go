package types

// Storage classifies where a field's value physically lives. The registry
// computes it once at registration time; nothing re-derives it per call.
type Storage int

const (
	// StorageCore fields occupy a native column in the owning base
	// type's main table.
	StorageCore Storage = iota
	// StorageAttribute fields occupy a (name, value, owner) row in the
	// attribute side table.
	StorageAttribute
	// StorageIndexedAttribute fields occupy an attribute row plus an
	// indexed-attribute row unique per (name, value, discriminator),
	// enabling lookup by value.
	StorageIndexedAttribute
)

// String returns the storage class name.
func (s Storage) String() string {
	switch s {
	case StorageAttribute:
		return "attribute"
	case StorageIndexedAttribute:
		return "indexed-attribute"
	default:
		return "core"
	}
}

// Field declares one field of an entity type. Name, Kind and the flag set
// are supplied by the caller; Storage is computed by Registry.Register.
type Field struct {
	Name string
	Kind Kind

	// PrimaryKey marks the field as part of the identity tuple.
	PrimaryKey bool
	// AutoAssign marks a single integer primary key as engine-assigned.
	AutoAssign bool
	// Unique requests a uniqueness guarantee: a unique column for core
	// fields, an indexed-attribute row for external ones.
	Unique bool
	// External forces attribute storage even for scalar kinds.
	External bool
	// Ref names the referenced entity type for KindRef fields.
	Ref string
	// BlueprintKey marks the field as part of the find-or-create key
	// used by the blueprint loader.
	BlueprintKey bool
	// Default is applied on create when the caller supplies no value.
	Default any

	// Storage is fixed by Registry.Register for the type's lifetime.
	Storage Storage
}
