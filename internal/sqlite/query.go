package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/quillmud/worldstore/pkg/types"
)

// rowGroup is the joined result for one stored identity: the main-table
// columns plus every attribute row that came back with it.
type rowGroup struct {
	core  map[string]any
	attrs map[string][]byte
}

// Get returns the instance matching the filters: the primary-key tuple or
// a single unique field (core or indexed attribute). A miss returns
// ErrNotFound when strict, else a nil instance. The requested type must
// be the row's concrete type.
func (e *Engine) Get(typeName string, strict bool, filters map[string]any) (*types.Instance, error) {
	if e.db == nil {
		return nil, types.ErrClosed
	}
	b, desc, err := e.binding(typeName)
	if err != nil {
		return nil, err
	}

	coerced := make(map[string]any, len(filters))
	indexedField := ""
	for name, v := range filters {
		f, ok := desc.Field(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s.%s", types.ErrUnknownField, typeName, name)
		}
		cv, err := types.Coerce(f.Kind, v)
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", name, err)
		}
		coerced[name] = cv
		switch f.Storage {
		case types.StorageIndexedAttribute:
			indexedField = name
		case types.StorageAttribute:
			return nil, fmt.Errorf("cannot look up %s by non-indexed attribute field %s", typeName, name)
		}
	}

	if inst, hit := e.cacheLookup(desc, coerced); hit {
		if inst != nil && inst.TypeName() == typeName {
			return inst, nil
		}
		// Cached under this identity but as a different concrete type.
		return e.miss(typeName, strict)
	}

	groups, err := e.fetch(b, desc, typeName, coerced, indexedField)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return e.miss(typeName, strict)
	}
	if len(groups) > 1 {
		return nil, fmt.Errorf("%w: %s matched %d rows", types.ErrCorrupt, typeName, len(groups))
	}
	inst, err := e.materialize(b, groups[0])
	if err != nil {
		return nil, err
	}
	if inst.TypeName() != typeName {
		return e.miss(typeName, strict)
	}
	return inst, nil
}

func (e *Engine) miss(typeName string, strict bool) (*types.Instance, error) {
	if strict {
		return nil, fmt.Errorf("%s: %w", typeName, types.ErrNotFound)
	}
	return nil, nil
}

// cacheLookup tries the identity cache: by primary-key tuple when the
// filters cover it, else by a single unique field. The second return
// reports a hit.
func (e *Engine) cacheLookup(desc *types.Descriptor, filters map[string]any) (*types.Instance, bool) {
	covered := true
	for _, name := range desc.PrimaryKeys() {
		if _, ok := filters[name]; !ok {
			covered = false
			break
		}
	}
	if covered && len(filters) > 0 {
		key := desc.KeyOf(filters)
		if inst := e.cache.byKey(desc.BaseDescriptor().Name, key.String()); inst != nil {
			return inst, true
		}
		return nil, false
	}
	if len(filters) == 1 {
		for name, v := range filters {
			if f, _ := desc.Field(name); f != nil && f.Unique {
				if inst := e.cache.byUnique(desc.Name, name, v); inst != nil {
					return inst, true
				}
			}
		}
	}
	return nil, false
}

// fetch issues the join across main and attribute tables for a single
// identity lookup.
func (e *Engine) fetch(b *binding, desc *types.Descriptor, typeName string, filters map[string]any, indexedField string) ([]*rowGroup, error) {
	var where []string
	var args []any

	for name, v := range filters {
		f, _ := desc.Field(name)
		if name == indexedField {
			blob, err := types.EncodeBlob(f.Kind, v)
			if err != nil {
				return nil, fmt.Errorf("encoding filter %s: %w", name, err)
			}
			where = append(where, "i.name = ?", "i.value = ?", "i."+types.DiscriminatorColumn+" = ?")
			args = append(args, name, blob, typeName)
			continue
		}
		enc, err := types.EncodeColumn(f.Kind, v)
		if err != nil {
			return nil, fmt.Errorf("encoding filter %s: %w", name, err)
		}
		where = append(where, "m."+name+" = ?")
		args = append(args, enc)
	}
	if b.discriminated() {
		where = append(where, "m."+types.DiscriminatorColumn+" = ?")
		args = append(args, typeName)
	}
	return e.queryRows(b, indexedField != "", where, args)
}

// Select returns the deduplicated instances matching the conditions.
// Selecting a first-class base with subtypes is polymorphic: each row
// materializes as its concrete subtype, resolved from the discriminator.
func (e *Engine) Select(typeName string, conds []types.Cond) ([]*types.Instance, error) {
	if e.db == nil {
		return nil, types.ErrClosed
	}
	b, desc, err := e.binding(typeName)
	if err != nil {
		return nil, err
	}
	where, args, err := condClauses(desc, conds)
	if err != nil {
		return nil, err
	}
	if !desc.FirstClass() {
		where = append(where, "m."+types.DiscriminatorColumn+" = ?")
		args = append(args, typeName)
	}

	groups, err := e.queryRows(b, false, where, args)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(groups))
	out := make([]*types.Instance, 0, len(groups))
	for _, g := range groups {
		inst, err := e.materialize(b, g)
		if err != nil {
			return nil, err
		}
		id := inst.Key().String()
		if !seen[id] {
			seen[id] = true
			out = append(out, inst)
		}
	}
	return out, nil
}

// Count returns the number of matching rows without materializing them.
func (e *Engine) Count(typeName string, conds []types.Cond) (int64, error) {
	if e.db == nil {
		return 0, types.ErrClosed
	}
	b, desc, err := e.binding(typeName)
	if err != nil {
		return 0, err
	}
	where, args, err := condClauses(desc, conds)
	if err != nil {
		return 0, err
	}
	if !desc.FirstClass() {
		where = append(where, "m."+types.DiscriminatorColumn+" = ?")
		args = append(args, typeName)
	}

	q := "SELECT COUNT(m." + desc.PrimaryKeys()[0] + ") FROM " + b.main + " m"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	var n int64
	if err := e.queryRow(q, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s: %w", typeName, err)
	}
	return n, nil
}

// condClauses translates predicate conditions into SQL over core columns.
func condClauses(desc *types.Descriptor, conds []types.Cond) ([]string, []any, error) {
	var where []string
	var args []any
	for _, c := range conds {
		f, ok := desc.Field(c.Field)
		if !ok {
			return nil, nil, fmt.Errorf("%w: %s.%s", types.ErrUnknownField, desc.Name, c.Field)
		}
		if f.Storage != types.StorageCore {
			return nil, nil, fmt.Errorf("cannot filter on attribute field %s.%s", desc.Name, c.Field)
		}
		switch c.Op {
		case types.OpEq, types.OpNe, types.OpLt, types.OpLe, types.OpGt, types.OpGe, types.OpLike:
		default:
			return nil, nil, fmt.Errorf("unsupported operator %q", c.Op)
		}
		if c.Value == nil {
			switch c.Op {
			case types.OpEq:
				where = append(where, "m."+c.Field+" IS NULL")
			case types.OpNe:
				where = append(where, "m."+c.Field+" IS NOT NULL")
			default:
				return nil, nil, fmt.Errorf("operator %q does not accept nil", c.Op)
			}
			continue
		}
		cv, err := types.Coerce(f.Kind, c.Value)
		if err != nil {
			return nil, nil, fmt.Errorf("condition on %s: %w", c.Field, err)
		}
		enc, err := types.EncodeColumn(f.Kind, cv)
		if err != nil {
			return nil, nil, fmt.Errorf("condition on %s: %w", c.Field, err)
		}
		where = append(where, "m."+c.Field+" "+string(c.Op)+" ?")
		args = append(args, enc)
	}
	return where, args, nil
}

// queryRows runs the main+attribute join and groups the result rows by
// identity, preserving row order.
func (e *Engine) queryRows(b *binding, joinIndexed bool, where []string, args []any) ([]*rowGroup, error) {
	cols := coreColumns(b)
	sel := make([]string, 0, len(cols)+2)
	for _, c := range cols {
		sel = append(sel, "m."+c)
	}
	withAttr := b.attr != ""
	if withAttr {
		sel = append(sel, "a.name", "a.value")
	}

	pk := b.desc.PrimaryKeys()
	q := "SELECT " + strings.Join(sel, ", ") + " FROM " + b.main + " m"
	if joinIndexed {
		q += " JOIN " + b.iattr + " i ON i.model = m." + pk[0]
	}
	if withAttr {
		q += " LEFT JOIN " + b.attr + " a ON a.model = m." + pk[0]
	}
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	order := make([]string, len(pk))
	for i, p := range pk {
		order[i] = "m." + p
	}
	q += " ORDER BY " + strings.Join(order, ", ")

	rows, err := e.query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", b.main, err)
	}
	defer rows.Close()

	pkIdx := make([]int, len(pk))
	for i, p := range pk {
		for j, c := range cols {
			if c == p {
				pkIdx[i] = j
			}
		}
	}

	var groups []*rowGroup
	index := make(map[string]*rowGroup)
	vals := make([]any, len(cols))
	scan := make([]any, 0, len(cols)+2)
	for i := range vals {
		scan = append(scan, &vals[i])
	}
	var aname sql.NullString
	var avalue []byte
	if withAttr {
		scan = append(scan, &aname, &avalue)
	}

	for rows.Next() {
		if err := rows.Scan(scan...); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", b.main, err)
		}
		var kp []string
		for _, i := range pkIdx {
			kp = append(kp, types.FormatValue(vals[i]))
		}
		id := strings.Join(kp, "&")
		g, ok := index[id]
		if !ok {
			g = &rowGroup{core: make(map[string]any, len(cols)), attrs: make(map[string][]byte)}
			for i, c := range cols {
				g.core[c] = vals[i]
			}
			index[id] = g
			groups = append(groups, g)
		}
		if withAttr && aname.Valid {
			g.attrs[aname.String] = append([]byte(nil), avalue...)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading %s rows: %w", b.main, err)
	}
	return groups, nil
}

// materialize turns a row group into a cached instance, resolving the
// concrete subtype from the discriminator when the main table is shared.
// An already-cached identity wins over the fresh rows.
func (e *Engine) materialize(b *binding, g *rowGroup) (*types.Instance, error) {
	e.startLoading()
	defer e.stopLoading()

	concrete := b.desc
	if b.discriminated() {
		if tag := columnTag(g.core[types.DiscriminatorColumn]); tag != "" {
			d, err := e.registry.Lookup(tag)
			if err != nil {
				return nil, fmt.Errorf("%w: row tagged with unknown type %q", types.ErrCorrupt, tag)
			}
			concrete = d
		}
	}

	decoded := make(map[string]any, len(g.core))
	for _, f := range concrete.AllFields() {
		if f.Storage != types.StorageCore {
			continue
		}
		v, err := types.DecodeColumn(f.Kind, g.core[f.Name])
		if err != nil {
			return nil, fmt.Errorf("decoding %s.%s: %w", concrete.Name, f.Name, err)
		}
		decoded[f.Name] = v
	}

	key := concrete.KeyOf(decoded)
	if cached := e.cache.byKey(concrete.BaseDescriptor().Name, key.String()); cached != nil {
		return cached, nil
	}

	inst := types.NewInstance(concrete.Name, e)
	for name, v := range decoded {
		inst.Apply(name, v)
	}
	inst.BindKey(key)
	// Cache before reading attributes so reference cycles resolve to
	// this instance instead of recursing.
	e.cache.put(inst)

	for name, blob := range g.attrs {
		f, ok := concrete.Field(name)
		if !ok {
			continue
		}
		v, err := types.DecodeBlob(f.Kind, blob)
		if err != nil {
			return nil, fmt.Errorf("decoding %s.%s: %w", concrete.Name, name, err)
		}
		if rv, ok := v.(*types.RefValue); ok {
			v, err = e.resolveRef(rv)
			if err != nil {
				return nil, err
			}
		}
		inst.Apply(name, v)
	}
	// Reference fields may have appeared after the first put.
	e.cache.put(inst)
	return inst, nil
}

func columnTag(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	}
	return ""
}

// resolveRef resolves a stored reference token non-strictly: a deleted
// referent yields nil rather than an error.
func (e *Engine) resolveRef(rv *types.RefValue) (*types.Instance, error) {
	desc, err := e.registry.Lookup(rv.Type)
	if err != nil {
		return nil, nil
	}
	filters := make(map[string]any, len(rv.Key))
	for _, name := range desc.PrimaryKeys() {
		f, _ := desc.Field(name)
		cv, err := types.Coerce(f.Kind, rv.Key[name])
		if err != nil {
			return nil, fmt.Errorf("reference key %s.%s: %w", rv.Type, name, err)
		}
		filters[name] = cv
	}
	return e.Get(rv.Type, false, filters)
}

// fetchByID loads a node of a located base table polymorphically by its
// integer key, for the locator's ancestor walks and ledger resolution.
func (e *Engine) fetchByID(b *binding, id int64) (*types.Instance, error) {
	pk := b.desc.PrimaryKeys()[0]
	key := types.NewKey([]string{pk}, []any{id})
	if cached := e.cache.byKey(b.desc.Name, key.String()); cached != nil {
		return cached, nil
	}
	groups, err := e.queryRows(b, false, []string{"m." + pk + " = ?"}, []any{id})
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, nil
	}
	return e.materialize(b, groups[0])
}
