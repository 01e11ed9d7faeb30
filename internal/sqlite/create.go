package sqlite

import (
	"fmt"
	"strings"

	"github.com/quillmud/worldstore/pkg/types"
)

// Create inserts a new instance. Auto-assigned keys must be absent and
// are filled from the database; declared keys must be present. Unique
// fields are checked up front so a collision reports ErrDuplicate before
// anything is written.
func (e *Engine) Create(typeName string, fields map[string]any) (*types.Instance, error) {
	if e.db == nil {
		return nil, types.ErrClosed
	}
	b, desc, err := e.binding(typeName)
	if err != nil {
		return nil, err
	}

	vals := make(map[string]any, len(fields))
	for name, v := range fields {
		f, ok := desc.Field(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s.%s", types.ErrUnknownField, typeName, name)
		}
		cv, err := types.Coerce(f.Kind, v)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}
		vals[name] = cv
	}
	for _, f := range desc.AllFields() {
		if f.Default == nil || vals[f.Name] != nil {
			continue
		}
		cv, err := types.Coerce(f.Kind, f.Default)
		if err != nil {
			return nil, fmt.Errorf("default for %s: %w", f.Name, err)
		}
		vals[f.Name] = cv
	}

	auto := ""
	for _, name := range desc.PrimaryKeys() {
		f, _ := desc.Field(name)
		if f.AutoAssign {
			if vals[name] != nil {
				return nil, fmt.Errorf("%w: %s.%s", types.ErrAssignedKey, typeName, name)
			}
			auto = name
			continue
		}
		if vals[name] == nil {
			return nil, fmt.Errorf("%w: %s.%s", types.ErrMissingKey, typeName, name)
		}
	}

	for _, name := range desc.UniqueFields() {
		if vals[name] == nil {
			continue
		}
		taken, err := e.uniqueTaken(b, desc, name, vals[name], nil)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, fmt.Errorf("%w: %s.%s = %v", types.ErrDuplicate, typeName, name, vals[name])
		}
	}

	var cols []string
	var args []any
	for _, f := range desc.AllFields() {
		if f.Storage != types.StorageCore || f.Name == auto || vals[f.Name] == nil {
			continue
		}
		enc, err := types.EncodeColumn(f.Kind, vals[f.Name])
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", f.Name, err)
		}
		cols = append(cols, f.Name)
		args = append(args, enc)
	}
	if b.discriminated() {
		cols = append(cols, types.DiscriminatorColumn)
		args = append(args, typeName)
	}

	var q string
	if len(cols) == 0 {
		q = "INSERT INTO " + b.main + " DEFAULT VALUES"
	} else {
		ph := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
		q = "INSERT INTO " + b.main + " (" + strings.Join(cols, ", ") + ") VALUES (" + ph + ")"
	}
	res, err := e.exec(q, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", types.ErrDuplicate, typeName)
		}
		return nil, fmt.Errorf("inserting %s: %w", typeName, err)
	}
	if auto != "" {
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("reading assigned key for %s: %w", typeName, err)
		}
		vals[auto] = id
	}

	if err := e.insertAttrs(b, desc, typeName, vals); err != nil {
		return nil, err
	}

	inst := types.NewInstance(typeName, e)
	for name, v := range vals {
		inst.Apply(name, v)
	}
	inst.BindKey(desc.KeyOf(vals))
	e.cache.put(inst)
	return inst, nil
}

// insertAttrs writes the side-table rows for every non-core field with a
// value. Indexed attribute rows additionally carry the concrete type so
// unique lookups stay scoped per type.
func (e *Engine) insertAttrs(b *binding, desc *types.Descriptor, typeName string, vals map[string]any) error {
	if b.attr == "" && b.iattr == "" {
		return nil
	}
	pk, err := desc.SinglePrimaryKey()
	if err != nil {
		return err
	}
	model, err := types.EncodeColumn(pk.Kind, vals[pk.Name])
	if err != nil {
		return fmt.Errorf("encoding key for %s: %w", typeName, err)
	}

	for _, f := range desc.AllFields() {
		if f.Storage == types.StorageCore || vals[f.Name] == nil {
			continue
		}
		blob, err := types.EncodeBlob(f.Kind, vals[f.Name])
		if err != nil {
			return fmt.Errorf("encoding %s.%s: %w", typeName, f.Name, err)
		}
		// Every external field gets an attribute row; indexed fields
		// additionally get the index row that backs unique lookups.
		_, err = e.exec("INSERT INTO "+b.attr+" (name, value, model) VALUES (?, ?, ?)", f.Name, blob, model)
		if err == nil && f.Storage == types.StorageIndexedAttribute {
			_, err = e.exec("INSERT INTO "+b.iattr+" (name, value, "+types.DiscriminatorColumn+", model) VALUES (?, ?, ?, ?)", f.Name, blob, typeName, model)
		}
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %s.%s", types.ErrDuplicate, typeName, f.Name)
			}
			return fmt.Errorf("inserting attribute %s.%s: %w", typeName, f.Name, err)
		}
	}
	return nil
}

// uniqueTaken reports whether another row already holds the value for a
// unique field. exclude, when set, names the key of the row being
// updated so it does not collide with itself.
func (e *Engine) uniqueTaken(b *binding, desc *types.Descriptor, name string, value any, exclude *types.Key) (bool, error) {
	f, _ := desc.Field(name)
	var q string
	var args []any
	switch f.Storage {
	case types.StorageCore:
		enc, err := types.EncodeColumn(f.Kind, value)
		if err != nil {
			return false, fmt.Errorf("encoding %s: %w", name, err)
		}
		q = "SELECT COUNT(*) FROM " + b.main + " WHERE " + name + " = ?"
		args = append(args, enc)
		if exclude != nil {
			for i, kf := range exclude.Fields() {
				q += " AND " + kf + " != ?"
				kd, _ := desc.Field(kf)
				enc, err := types.EncodeColumn(kd.Kind, exclude.Values()[i])
				if err != nil {
					return false, fmt.Errorf("encoding key %s: %w", kf, err)
				}
				args = append(args, enc)
			}
		}
	case types.StorageIndexedAttribute:
		blob, err := types.EncodeBlob(f.Kind, value)
		if err != nil {
			return false, fmt.Errorf("encoding %s: %w", name, err)
		}
		q = "SELECT COUNT(*) FROM " + b.iattr + " WHERE name = ? AND value = ? AND " + types.DiscriminatorColumn + " = ?"
		args = append(args, name, blob, desc.Name)
		if exclude != nil {
			pk, err := desc.SinglePrimaryKey()
			if err != nil {
				return false, err
			}
			enc, err := types.EncodeColumn(pk.Kind, exclude.Values()[0])
			if err != nil {
				return false, fmt.Errorf("encoding key: %w", err)
			}
			q += " AND model != ?"
			args = append(args, enc)
		}
	default:
		return false, nil
	}
	var n int64
	if err := e.queryRow(q, args...).Scan(&n); err != nil {
		return false, fmt.Errorf("checking unique %s.%s: %w", desc.Name, name, err)
	}
	return n > 0, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
