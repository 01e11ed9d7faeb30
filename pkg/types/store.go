package types

// Op is a comparison operator usable in select and count conditions.
type Op string

const (
	OpEq   Op = "="
	OpNe   Op = "!="
	OpLt   Op = "<"
	OpLe   Op = "<="
	OpGt   Op = ">"
	OpGe   Op = ">="
	OpLike Op = "LIKE"
)

// Cond is one predicate condition over a core field. Conditions in a
// slice are AND-ed.
type Cond struct {
	Field string
	Op    Op
	Value any
}

// Eq is shorthand for an equality condition.
func Eq(field string, value any) Cond {
	return Cond{Field: field, Op: OpEq, Value: value}
}

// Content is one entry of a container's contents: a placed node with
// quantity 1, or a stackable node with its ledger quantity.
type Content struct {
	Node     *Instance
	Quantity int64
	Filter   string
}

// Store is the storage engine handle passed explicitly to every consumer;
// there is no process-wide singleton. A Store is safe for a single logical
// writer only.
type Store interface {
	// Registry returns the schema registry the store was opened with.
	Registry() *Registry

	// Create validates and persists a new instance: engine-assigned
	// primary keys must be absent, caller-assigned ones present.
	// Returns ErrDuplicate on unique collisions.
	Create(typeName string, fields map[string]any) (*Instance, error)

	// Get returns the instance matching the filters, which must be the
	// primary-key tuple or a single unique field. A miss returns
	// ErrNotFound when strict, else (nil, nil). The requested type must
	// be the instance's concrete type; a row tagged with a sibling
	// subtype does not match.
	Get(typeName string, strict bool, filters map[string]any) (*Instance, error)

	// Select returns the deduplicated instances matching the
	// conditions; cached identities win over freshly materialized
	// duplicates. On a shared table the concrete subtype of each row is
	// resolved from the discriminator.
	Select(typeName string, conds []Cond) ([]*Instance, error)

	// Count returns the number of matching rows without materializing.
	Count(typeName string, conds []Cond) (int64, error)

	// Update routes one field write to its storage location and
	// refreshes the cache entry.
	Update(inst *Instance, field string, value any) error

	// Delete removes the instance's core and attribute rows, evicts it
	// from the cache, and repairs every cached instance that referenced
	// it.
	Delete(inst *Instance) error

	// Locator returns the containment hierarchy layered over the store.
	Locator() Locator

	// Begin, Commit and Rollback scope a transaction. Rollback discards
	// pending writes and unconditionally clears the identity cache.
	Begin() error
	Commit() error
	Rollback() error

	// ClearCache drops every cached identity and materialized contents
	// list.
	ClearCache()

	// Close releases the backing store.
	Close() error
}

// Locator maintains the spatial containment hierarchy: ordered, filterable
// children for placed nodes and a quantity ledger for stackables.
type Locator interface {
	// GetAt returns the container's children ordered by location index.
	// A non-empty filter narrows to children tagged with that sub-slot.
	GetAt(container *Instance, filter string) ([]*Instance, error)

	// Move places node inside container at the end of the sibling
	// order, after verifying the move creates no containment cycle.
	// Stackable nodes are rejected with ErrStackable.
	Move(node *Instance, container *Instance, filter string) error

	// Unplace removes the node from whatever container holds it.
	Unplace(node *Instance) error

	// Location returns the node's current container, nil when unplaced.
	Location(node *Instance) (*Instance, error)

	// Add increases the container's ledger quantity for a stackable.
	Add(container, content *Instance, quantity int64, filter string) error

	// Remove decreases the ledger quantity, returning how many were
	// actually removed (0 when absent).
	Remove(container, content *Instance, quantity int64, filter string) (int64, error)

	// Transfer moves quantity of a stackable from origin's ledger into
	// the receiver container's, atomically; a nil origin only
	// increments. Non-stackable content is moved directly instead and
	// the returned quantity is 1.
	Transfer(container, content, origin *Instance, quantity int64, filter string) (int64, error)

	// HowMany returns the ledger quantity for stackables, else 1 or 0
	// membership.
	HowMany(container, content *Instance, filter string) (int64, error)

	// AllContents returns placed children and ledger entries together.
	AllContents(container *Instance) ([]Content, error)

	// IsStackable reports the instance-level flag when declared, else
	// the type-level one.
	IsStackable(node *Instance) bool
}
