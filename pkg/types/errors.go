package types

import "errors"

// Standard errors shared by every backend. Callers match them with
// errors.Is; backends wrap them with context where useful.
var (
	// ErrNotFound is returned by strict lookups that match no row.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when a create or update would violate a
	// unique or indexed-attribute constraint.
	ErrDuplicate = errors.New("duplicate value for unique field")

	// ErrCycle is returned by Locator.Move when the destination is
	// directly or transitively contained in the node being moved.
	ErrCycle = errors.New("containment cycle")

	// ErrStackable is returned when direct placement is attempted on a
	// stackable entity.
	ErrStackable = errors.New("entity is stackable and cannot be placed directly")

	// ErrNotStackable is returned when ledger operations are attempted
	// on a non-stackable entity.
	ErrNotStackable = errors.New("entity is not stackable")

	// ErrAmbiguousKey is returned by single-key helpers invoked on a
	// composite-key type.
	ErrAmbiguousKey = errors.New("type has a composite primary key")

	// ErrCorrupt is returned when the backing store holds more than one
	// row for a single logical identity.
	ErrCorrupt = errors.New("store corruption: identity is not unique")

	// ErrUnknownType is returned when a type name is not registered.
	ErrUnknownType = errors.New("unknown entity type")

	// ErrUnknownField is returned when a field name is not declared on
	// the entity type.
	ErrUnknownField = errors.New("unknown field")

	// ErrReservedField is returned when a descriptor declares a field
	// name the registry injects itself.
	ErrReservedField = errors.New("reserved field name")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("store is closed")

	// ErrNoTransaction is returned by Commit or Rollback without a
	// matching Begin.
	ErrNoTransaction = errors.New("no transaction in progress")

	// ErrTransactionOpen is returned by Begin while a transaction is
	// already in progress.
	ErrTransactionOpen = errors.New("transaction already in progress")

	// ErrNotLocated is returned by Locator operations on a type that
	// carries no containment state.
	ErrNotLocated = errors.New("entity type has no location")
)

// Descriptor validation errors.
var (
	ErrNoPrimaryKey   = errors.New("descriptor declares no primary key")
	ErrBadDescriptor  = errors.New("invalid descriptor")
	ErrAlreadyBound   = errors.New("type already registered")
	ErrValueKind      = errors.New("value does not match field kind")
	ErrMissingKey     = errors.New("primary key value required")
	ErrAssignedKey    = errors.New("primary key is engine-assigned")
)
