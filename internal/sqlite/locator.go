package sqlite

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/quillmud/worldstore/pkg/types"
)

// locator layers the containment hierarchy over the engine: placed nodes
// carry location fields in their base table, stackables are counted in
// their container's ledger attribute. Contents lists are cached per
// container and invalidated on every placement change.
type locator struct {
	e        *Engine
	contents map[string][]int64
}

func newLocator(e *Engine) *locator {
	return &locator{e: e, contents: make(map[string][]int64)}
}

var _ types.Locator = (*locator)(nil)

func (l *locator) clear() {
	l.contents = make(map[string][]int64)
}

// contentsKey identifies a container across located hierarchies.
func contentsKey(base string, id int64) string {
	return base + "|" + strconv.FormatInt(id, 10)
}

// locatedBase resolves the located base descriptor and binding for a
// node, rejecting types outside the hierarchy.
func (l *locator) locatedBase(node *types.Instance) (*binding, *types.Descriptor, error) {
	desc, err := l.e.registry.Lookup(node.TypeName())
	if err != nil {
		return nil, nil, err
	}
	if !desc.Located {
		return nil, nil, fmt.Errorf("%w: %s", types.ErrNotLocated, node.TypeName())
	}
	base := desc.BaseDescriptor()
	b, _, err := l.e.binding(base.Name)
	if err != nil {
		return nil, nil, err
	}
	return b, base, nil
}

func nodeID(node *types.Instance) int64 {
	vals := node.Key().Values()
	if len(vals) == 1 {
		if id, ok := vals[0].(int64); ok {
			return id
		}
	}
	return 0
}

// IsStackable reports the instance-level flag when the type declares
// one and the instance has it set, else the type-level flag.
func (l *locator) IsStackable(node *types.Instance) bool {
	desc, err := l.e.registry.Lookup(node.TypeName())
	if err != nil {
		return false
	}
	if f, ok := desc.Field(types.FieldStackable); ok && f != nil {
		if v := node.Get(types.FieldStackable); v != nil {
			return node.Bool(types.FieldStackable)
		}
	}
	return desc.Stackable
}

// Location returns the node's container, nil when unplaced.
func (l *locator) Location(node *types.Instance) (*types.Instance, error) {
	b, _, err := l.e.binding(mustBase(l.e, node))
	if err != nil {
		return nil, err
	}
	v := node.Get(types.FieldLocationID)
	if v == nil {
		return nil, nil
	}
	id, ok := v.(int64)
	if !ok {
		return nil, fmt.Errorf("%w: %s has a malformed location", types.ErrCorrupt, node.TypeName())
	}
	return l.e.fetchByID(b, id)
}

func mustBase(e *Engine, node *types.Instance) string {
	desc, err := e.registry.Lookup(node.TypeName())
	if err != nil {
		return node.TypeName()
	}
	return desc.BaseDescriptor().Name
}

// Move places node inside container at the end of the sibling order.
// Stackables are counted in ledgers, never placed.
func (l *locator) Move(node *types.Instance, container *types.Instance, filter string) error {
	b, nodeBase, err := l.locatedBase(node)
	if err != nil {
		return err
	}
	if l.IsStackable(node) {
		return fmt.Errorf("%w: %s must be added to a ledger", types.ErrStackable, node.TypeName())
	}
	_, containerBase, err := l.locatedBase(container)
	if err != nil {
		return err
	}
	if nodeBase.Name != containerBase.Name {
		return fmt.Errorf("cannot place %s inside %s: different hierarchies", node.TypeName(), container.TypeName())
	}
	if err := l.checkCycle(node, container); err != nil {
		return err
	}

	old, err := l.Location(node)
	if err != nil {
		return err
	}

	var next int64
	row := l.e.queryRow(
		"SELECT COALESCE(MAX("+types.FieldLocationIndex+"), -1) + 1 FROM "+b.main+
			" WHERE "+types.FieldLocationID+" = ?", nodeID(container))
	if err := row.Scan(&next); err != nil {
		return fmt.Errorf("ordering contents of %s: %w", container.TypeName(), err)
	}

	if err := node.Set(types.FieldLocationID, nodeID(container)); err != nil {
		return err
	}
	if err := node.Set(types.FieldLocationIndex, next); err != nil {
		return err
	}
	if err := node.Set(types.FieldLocationFilter, filter); err != nil {
		return err
	}

	if old != nil {
		delete(l.contents, contentsKey(nodeBase.Name, nodeID(old)))
	}
	delete(l.contents, contentsKey(nodeBase.Name, nodeID(container)))
	return nil
}

// checkCycle walks the container's ancestor chain and rejects the move
// if node already sits on it.
func (l *locator) checkCycle(node *types.Instance, container *types.Instance) error {
	id := nodeID(node)
	seen := make(map[int64]bool)
	for cur := container; cur != nil; {
		cid := nodeID(cur)
		if cid == id {
			return fmt.Errorf("%w: %s already contains %s", types.ErrCycle, node.TypeName(), container.TypeName())
		}
		if seen[cid] {
			return fmt.Errorf("%w: containment chain loops at %s", types.ErrCorrupt, cur.TypeName())
		}
		seen[cid] = true
		next, err := l.Location(cur)
		if err != nil {
			return err
		}
		cur = next
	}
	return nil
}

// Unplace removes the node from its container.
func (l *locator) Unplace(node *types.Instance) error {
	_, base, err := l.locatedBase(node)
	if err != nil {
		return err
	}
	old, err := l.Location(node)
	if err != nil {
		return err
	}
	if err := node.Set(types.FieldLocationID, nil); err != nil {
		return err
	}
	if err := node.Set(types.FieldLocationIndex, nil); err != nil {
		return err
	}
	if err := node.Set(types.FieldLocationFilter, nil); err != nil {
		return err
	}
	if old != nil {
		delete(l.contents, contentsKey(base.Name, nodeID(old)))
	}
	return nil
}

// GetAt returns the container's children in placement order. A non-empty
// filter narrows to children tagged with that sub-slot.
func (l *locator) GetAt(container *types.Instance, filter string) ([]*types.Instance, error) {
	b, base, err := l.locatedBase(container)
	if err != nil {
		return nil, err
	}
	ids, err := l.childIDs(b, base, container)
	if err != nil {
		return nil, err
	}
	out := make([]*types.Instance, 0, len(ids))
	for _, id := range ids {
		child, err := l.e.fetchByID(b, id)
		if err != nil {
			return nil, err
		}
		if child == nil {
			continue
		}
		if filter != "" && child.String(types.FieldLocationFilter) != filter {
			continue
		}
		out = append(out, child)
	}
	return out, nil
}

// childIDs returns the ordered child list, from cache when present.
func (l *locator) childIDs(b *binding, base *types.Descriptor, container *types.Instance) ([]int64, error) {
	key := contentsKey(base.Name, nodeID(container))
	if ids, ok := l.contents[key]; ok {
		return ids, nil
	}
	groups, err := l.e.queryRows(b, false,
		[]string{"m." + types.FieldLocationID + " = ?"}, []any{nodeID(container)})
	if err != nil {
		return nil, err
	}
	type placed struct {
		id    int64
		index int64
	}
	rows := make([]placed, 0, len(groups))
	pk := base.PrimaryKeys()[0]
	for _, g := range groups {
		id, _ := g.core[pk].(int64)
		idx, _ := g.core[types.FieldLocationIndex].(int64)
		rows = append(rows, placed{id: id, index: idx})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].index < rows[j].index })
	ids := make([]int64, len(rows))
	for i, r := range rows {
		ids[i] = r.id
	}
	l.contents[key] = ids
	return ids, nil
}

// forget drops cached contents lists touching a deleted node.
func (l *locator) forget(inst *types.Instance) {
	desc, err := l.e.registry.Lookup(inst.TypeName())
	if err != nil || !desc.Located {
		return
	}
	base := desc.BaseDescriptor().Name
	delete(l.contents, contentsKey(base, nodeID(inst)))
	if v, ok := inst.Get(types.FieldLocationID).(int64); ok {
		delete(l.contents, contentsKey(base, v))
	}
}

// ledgerKey identifies one stackable entry in a container's ledger.
func ledgerKey(content *types.Instance, filter string) string {
	return strconv.FormatInt(nodeID(content), 10) + "|" + filter
}

func ledgerQuantity(m map[string]any, key string) int64 {
	switch q := m[key].(type) {
	case int64:
		return q
	case float64:
		return int64(q)
	}
	return 0
}

// Add increases the container's ledger quantity for a stackable.
func (l *locator) Add(container, content *types.Instance, quantity int64, filter string) error {
	if _, _, err := l.locatedBase(container); err != nil {
		return err
	}
	if !l.IsStackable(content) {
		return fmt.Errorf("%w: %s", types.ErrNotStackable, content.TypeName())
	}
	if quantity <= 0 {
		return fmt.Errorf("quantity must be positive, got %d", quantity)
	}
	m := container.Map(types.FieldStackables)
	if m == nil {
		m = make(map[string]any)
	}
	key := ledgerKey(content, filter)
	m[key] = ledgerQuantity(m, key) + quantity
	return container.Set(types.FieldStackables, m)
}

// Remove decreases the ledger quantity and returns how many were
// actually removed; removing more than present drains the entry.
func (l *locator) Remove(container, content *types.Instance, quantity int64, filter string) (int64, error) {
	if _, _, err := l.locatedBase(container); err != nil {
		return 0, err
	}
	if !l.IsStackable(content) {
		return 0, fmt.Errorf("%w: %s", types.ErrNotStackable, content.TypeName())
	}
	if quantity <= 0 {
		return 0, fmt.Errorf("quantity must be positive, got %d", quantity)
	}
	m := container.Map(types.FieldStackables)
	key := ledgerKey(content, filter)
	have := ledgerQuantity(m, key)
	if have == 0 {
		return 0, nil
	}
	removed := quantity
	if removed > have {
		removed = have
	}
	if have-removed == 0 {
		delete(m, key)
	} else {
		m[key] = have - removed
	}
	var v any = m
	if len(m) == 0 {
		v = nil
	}
	if err := container.Set(types.FieldStackables, v); err != nil {
		return 0, err
	}
	return removed, nil
}

// Transfer moves up to quantity of a stackable from origin's ledger
// into the receiver's. A nil origin mints the quantity. Non-stackable
// content moves directly and counts as 1.
func (l *locator) Transfer(container, content, origin *types.Instance, quantity int64, filter string) (int64, error) {
	if !l.IsStackable(content) {
		if err := l.Move(content, container, filter); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if origin == nil {
		if err := l.Add(container, content, quantity, filter); err != nil {
			return 0, err
		}
		return quantity, nil
	}
	moved, err := l.Remove(origin, content, quantity, filter)
	if err != nil {
		return 0, err
	}
	if moved == 0 {
		return 0, nil
	}
	if err := l.Add(container, content, moved, filter); err != nil {
		// Put the removed quantity back so the ledgers stay balanced.
		if rerr := l.Add(origin, content, moved, filter); rerr != nil {
			return 0, fmt.Errorf("restoring origin ledger: %v: %w", rerr, err)
		}
		return 0, err
	}
	return moved, nil
}

// HowMany returns the ledger quantity for stackables. For placed nodes
// it reports membership: 1 when the node sits in the container.
func (l *locator) HowMany(container, content *types.Instance, filter string) (int64, error) {
	if l.IsStackable(content) {
		m := container.Map(types.FieldStackables)
		return ledgerQuantity(m, ledgerKey(content, filter)), nil
	}
	loc, err := l.Location(content)
	if err != nil {
		return 0, err
	}
	if loc == nil || nodeID(loc) != nodeID(container) {
		return 0, nil
	}
	if filter != "" && content.String(types.FieldLocationFilter) != filter {
		return 0, nil
	}
	return 1, nil
}

// AllContents returns placed children and ledger entries together.
func (l *locator) AllContents(container *types.Instance) ([]types.Content, error) {
	b, _, err := l.locatedBase(container)
	if err != nil {
		return nil, err
	}
	placed, err := l.GetAt(container, "")
	if err != nil {
		return nil, err
	}
	out := make([]types.Content, 0, len(placed))
	for _, child := range placed {
		out = append(out, types.Content{
			Node:     child,
			Quantity: 1,
			Filter:   child.String(types.FieldLocationFilter),
		})
	}

	ledger := container.Map(types.FieldStackables)
	keys := make([]string, 0, len(ledger))
	for k := range ledger {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		id, filter, err := splitLedgerKey(k)
		if err != nil {
			return nil, fmt.Errorf("%w: %s ledger entry %q", types.ErrCorrupt, container.TypeName(), k)
		}
		node, err := l.e.fetchByID(b, id)
		if err != nil {
			return nil, err
		}
		if node == nil {
			continue
		}
		out = append(out, types.Content{Node: node, Quantity: ledgerQuantity(ledger, k), Filter: filter})
	}
	return out, nil
}

func splitLedgerKey(key string) (int64, string, error) {
	head, filter, ok := strings.Cut(key, "|")
	if !ok {
		return 0, "", fmt.Errorf("missing separator")
	}
	id, err := strconv.ParseInt(head, 10, 64)
	if err != nil {
		return 0, "", err
	}
	return id, filter, nil
}
