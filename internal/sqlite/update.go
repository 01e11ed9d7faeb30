package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/quillmud/worldstore/pkg/types"
)

// Update writes a single field back to storage. Attribute rows are
// upserted so a field set for the first time after creation gains its
// side-table row. During materialization writes are suppressed: the
// values are already on disk.
func (e *Engine) Update(inst *types.Instance, field string, value any) error {
	if e.db == nil {
		return types.ErrClosed
	}
	if e.loading > 0 {
		return nil
	}
	b, desc, err := e.binding(inst.TypeName())
	if err != nil {
		return err
	}
	f, ok := desc.Field(field)
	if !ok {
		return fmt.Errorf("%w: %s.%s", types.ErrUnknownField, inst.TypeName(), field)
	}
	if f.PrimaryKey {
		return fmt.Errorf("cannot update key field %s.%s", inst.TypeName(), field)
	}

	var cv any
	if value != nil {
		if cv, err = types.Coerce(f.Kind, value); err != nil {
			return fmt.Errorf("field %s: %w", field, err)
		}
	}
	if f.Unique && cv != nil {
		key := inst.Key()
		taken, err := e.uniqueTaken(b, desc, field, cv, &key)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: %s.%s = %v", types.ErrDuplicate, inst.TypeName(), field, cv)
		}
	}

	switch f.Storage {
	case types.StorageCore:
		err = e.updateCore(b, desc, inst, f, cv)
	case types.StorageAttribute:
		err = e.upsertAttr(b, desc, inst, f, cv)
	case types.StorageIndexedAttribute:
		err = e.upsertIndexedAttr(b, desc, inst, f, cv)
	}
	if err != nil {
		return err
	}
	inst.Apply(field, cv)
	e.cache.put(inst)
	return nil
}

func (e *Engine) updateCore(b *binding, desc *types.Descriptor, inst *types.Instance, f *types.Field, cv any) error {
	var enc any
	if cv != nil {
		var err error
		if enc, err = types.EncodeColumn(f.Kind, cv); err != nil {
			return fmt.Errorf("encoding %s: %w", f.Name, err)
		}
	}
	where, args, err := keyClause(desc, inst.Key())
	if err != nil {
		return err
	}
	_, err = e.exec("UPDATE "+b.main+" SET "+f.Name+" = ? WHERE "+where, append([]any{enc}, args...)...)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s.%s", types.ErrDuplicate, inst.TypeName(), f.Name)
		}
		return fmt.Errorf("updating %s.%s: %w", inst.TypeName(), f.Name, err)
	}
	return nil
}

func (e *Engine) upsertAttr(b *binding, desc *types.Descriptor, inst *types.Instance, f *types.Field, cv any) error {
	model, err := e.modelKey(desc, inst)
	if err != nil {
		return err
	}
	if cv == nil {
		if _, err := e.exec("DELETE FROM "+b.attr+" WHERE name = ? AND model = ?", f.Name, model); err != nil {
			return fmt.Errorf("clearing %s.%s: %w", inst.TypeName(), f.Name, err)
		}
		return nil
	}
	blob, err := types.EncodeBlob(f.Kind, cv)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", f.Name, err)
	}
	_, err = e.exec(
		"INSERT INTO "+b.attr+" (name, value, model) VALUES (?, ?, ?)"+
			" ON CONFLICT (name, model) DO UPDATE SET value = excluded.value",
		f.Name, blob, model)
	if err != nil {
		return fmt.Errorf("writing %s.%s: %w", inst.TypeName(), f.Name, err)
	}
	return nil
}

// upsertIndexedAttr maintains both rows of an indexed field: the
// attribute row holding the value and the index row backing lookups.
func (e *Engine) upsertIndexedAttr(b *binding, desc *types.Descriptor, inst *types.Instance, f *types.Field, cv any) error {
	model, err := e.modelKey(desc, inst)
	if err != nil {
		return err
	}
	if cv == nil {
		if _, err := e.exec("DELETE FROM "+b.iattr+" WHERE name = ? AND model = ?", f.Name, model); err != nil {
			return fmt.Errorf("clearing %s.%s: %w", inst.TypeName(), f.Name, err)
		}
		if _, err := e.exec("DELETE FROM "+b.attr+" WHERE name = ? AND model = ?", f.Name, model); err != nil {
			return fmt.Errorf("clearing %s.%s: %w", inst.TypeName(), f.Name, err)
		}
		return nil
	}
	blob, err := types.EncodeBlob(f.Kind, cv)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", f.Name, err)
	}
	res, err := e.exec("UPDATE "+b.iattr+" SET value = ? WHERE name = ? AND model = ?", blob, f.Name, model)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s.%s", types.ErrDuplicate, inst.TypeName(), f.Name)
		}
		return fmt.Errorf("updating %s.%s: %w", inst.TypeName(), f.Name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		_, err = e.exec(
			"INSERT INTO "+b.iattr+" (name, value, "+types.DiscriminatorColumn+", model) VALUES (?, ?, ?, ?)",
			f.Name, blob, inst.TypeName(), model)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %s.%s", types.ErrDuplicate, inst.TypeName(), f.Name)
			}
			return fmt.Errorf("writing %s.%s: %w", inst.TypeName(), f.Name, err)
		}
	}
	_, err = e.exec(
		"INSERT INTO "+b.attr+" (name, value, model) VALUES (?, ?, ?)"+
			" ON CONFLICT (name, model) DO UPDATE SET value = excluded.value",
		f.Name, blob, model)
	if err != nil {
		return fmt.Errorf("writing %s.%s: %w", inst.TypeName(), f.Name, err)
	}
	return nil
}

// Delete removes the instance's rows, evicts it from the cache, and
// repairs every cached field that referenced it.
func (e *Engine) Delete(inst *types.Instance) error {
	if e.db == nil {
		return types.ErrClosed
	}
	b, desc, err := e.binding(inst.TypeName())
	if err != nil {
		return err
	}
	if b.attr != "" || b.iattr != "" {
		model, err := e.modelKey(desc, inst)
		if err != nil {
			return err
		}
		if b.attr != "" {
			if _, err := e.exec("DELETE FROM "+b.attr+" WHERE model = ?", model); err != nil {
				return fmt.Errorf("deleting attributes of %s: %w", inst.TypeName(), err)
			}
		}
		if b.iattr != "" {
			if _, err := e.exec("DELETE FROM "+b.iattr+" WHERE model = ?", model); err != nil {
				return fmt.Errorf("deleting indexed attributes of %s: %w", inst.TypeName(), err)
			}
		}
	}
	where, args, err := keyClause(desc, inst.Key())
	if err != nil {
		return err
	}
	if _, err := e.exec("DELETE FROM "+b.main+" WHERE "+where, args...); err != nil {
		return fmt.Errorf("deleting %s: %w", inst.TypeName(), err)
	}

	e.loc.forget(inst)
	e.cache.evict(inst, e.refreshField)
	return nil
}

// refreshField re-reads one field of a cached instance from storage and
// applies the fresh value in place. Used after a referent is deleted so
// dangling references resolve to nil.
func (e *Engine) refreshField(inst *types.Instance, field string) {
	b, desc, err := e.binding(inst.TypeName())
	if err != nil {
		return
	}
	f, ok := desc.Field(field)
	if !ok {
		return
	}
	e.startLoading()
	defer e.stopLoading()

	if f.Storage == types.StorageCore {
		where, args, err := keyClause(desc, inst.Key())
		if err != nil {
			return
		}
		var raw any
		err = e.queryRow("SELECT "+field+" FROM "+b.main+" WHERE "+where, args...).Scan(&raw)
		if err != nil {
			return
		}
		if v, err := types.DecodeColumn(f.Kind, raw); err == nil {
			inst.Apply(field, v)
		}
		return
	}

	model, err := e.modelKey(desc, inst)
	if err != nil {
		return
	}
	var blob []byte
	err = e.queryRow("SELECT value FROM "+b.attr+" WHERE name = ? AND model = ?", field, model).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		inst.Apply(field, nil)
		return
	}
	if err != nil {
		return
	}
	v, err := types.DecodeBlob(f.Kind, blob)
	if err != nil {
		return
	}
	if rv, ok := v.(*types.RefValue); ok {
		if v, err = e.resolveRef(rv); err != nil {
			return
		}
	}
	inst.Apply(field, v)
}

// modelKey encodes the single-column key an attribute row points at.
func (e *Engine) modelKey(desc *types.Descriptor, inst *types.Instance) (any, error) {
	pk, err := desc.SinglePrimaryKey()
	if err != nil {
		return nil, err
	}
	v := inst.Key().Map()[pk.Name]
	enc, err := types.EncodeColumn(pk.Kind, v)
	if err != nil {
		return nil, fmt.Errorf("encoding key for %s: %w", desc.Name, err)
	}
	return enc, nil
}

// keyClause builds the WHERE fragment matching a full primary key.
func keyClause(desc *types.Descriptor, key types.Key) (string, []any, error) {
	fields := key.Fields()
	values := key.Values()
	clause := ""
	args := make([]any, 0, len(fields))
	for i, name := range fields {
		f, ok := desc.Field(name)
		if !ok {
			return "", nil, fmt.Errorf("%w: %s.%s", types.ErrUnknownField, desc.Name, name)
		}
		enc, err := types.EncodeColumn(f.Kind, values[i])
		if err != nil {
			return "", nil, fmt.Errorf("encoding key %s: %w", name, err)
		}
		if clause != "" {
			clause += " AND "
		}
		clause += name + " = ?"
		args = append(args, enc)
	}
	return clause, args, nil
}
