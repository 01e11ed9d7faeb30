package sqlite

import (
	"fmt"
	"strings"

	"github.com/quillmud/worldstore/pkg/types"
)

// binding maps a first-class type to its three physical stores. Subtypes
// of a bound base resolve to the same binding.
type binding struct {
	desc  *types.Descriptor // first-class base descriptor
	main  string
	attr  string // empty when no field needs attribute storage
	iattr string // empty when no field is an indexed attribute
}

// discriminated reports whether the main table carries a type_name column.
func (b *binding) discriminated() bool {
	return len(b.desc.Children()) > 0
}

// binding resolves the physical binding for a type name.
func (e *Engine) binding(typeName string) (*binding, *types.Descriptor, error) {
	desc, err := e.registry.Lookup(typeName)
	if err != nil {
		return nil, nil, err
	}
	b, ok := e.bindings[desc.BaseDescriptor().Name]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s is not bound", types.ErrUnknownType, typeName)
	}
	return b, desc, nil
}

// bind creates (or looks up) the physical tables for every first-class
// type: a main table of native columns, an attribute table, and an
// indexed-attribute table.
func (e *Engine) bind() error {
	for _, desc := range e.registry.All() {
		if !desc.FirstClass() {
			continue
		}
		b, err := e.bindType(desc)
		if err != nil {
			return fmt.Errorf("binding %s: %w", desc.Name, err)
		}
		e.bindings[desc.Name] = b
	}
	return nil
}

func (e *Engine) bindType(desc *types.Descriptor) (*binding, error) {
	b := &binding{desc: desc, main: desc.Name}

	// Any field of the base or of a subtype sharing its table may
	// require side-table storage.
	needAttr := desc.HasExternal()
	needIndexed := desc.HasIndexed()
	for _, child := range desc.Children() {
		sub, err := e.registry.Lookup(child)
		if err != nil {
			return nil, err
		}
		needAttr = needAttr || sub.HasExternal()
		needIndexed = needIndexed || sub.HasIndexed()
	}

	if _, err := e.exec(mainDDL(desc, b.discriminated())); err != nil {
		return nil, fmt.Errorf("creating table %s: %w", b.main, err)
	}

	if needAttr || needIndexed {
		pk, err := desc.SinglePrimaryKey()
		if err != nil {
			return nil, fmt.Errorf("external fields on composite-key type %s: %w", desc.Name, err)
		}
		b.attr = desc.Name + "_attr"
		if _, err := e.exec(attrDDL(b.attr, b.main, pk)); err != nil {
			return nil, fmt.Errorf("creating table %s: %w", b.attr, err)
		}
		if needIndexed {
			b.iattr = desc.Name + "_iattr"
			if _, err := e.exec(iattrDDL(b.iattr, b.main, pk)); err != nil {
				return nil, fmt.Errorf("creating table %s: %w", b.iattr, err)
			}
		}
	}
	return b, nil
}

// mainDDL builds the main-table DDL: one native column per core field,
// the primary key, unique constraints, and the subtype discriminator when
// the base has children.
func mainDDL(desc *types.Descriptor, discriminated bool) string {
	var cols []string
	var constraints []string

	pks := desc.PrimaryKeys()
	single, _ := desc.SinglePrimaryKey()

	for _, f := range desc.AllFields() {
		if f.Storage != types.StorageCore {
			continue
		}
		col := f.Name + " " + f.Kind.ColumnType()
		if single != nil && f.Name == single.Name {
			col += " PRIMARY KEY"
			if f.AutoAssign {
				col += " AUTOINCREMENT"
			}
		} else if f.Unique {
			col += " UNIQUE"
		}
		cols = append(cols, col)
	}
	if discriminated {
		cols = append(cols, types.DiscriminatorColumn+" TEXT")
	}
	if single == nil {
		constraints = append(constraints, "PRIMARY KEY ("+strings.Join(pks, ", ")+")")
	}

	all := append(cols, constraints...)
	return "CREATE TABLE IF NOT EXISTS " + desc.Name + " (\n    " +
		strings.Join(all, ",\n    ") + "\n)"
}

// attrDDL builds the attribute table: (name, value, owner), unique per
// (name, owner).
func attrDDL(name, main string, pk *types.Field) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    value BLOB,
    model %s NOT NULL REFERENCES %s(%s),
    UNIQUE (name, model)
)`, name, pk.Kind.ColumnType(), main, pk.Name)
}

// iattrDDL builds the indexed-attribute table: like the attribute table
// but additionally unique per (name, value, discriminator) so external
// unique fields support lookup by value.
func iattrDDL(name, main string, pk *types.Field) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    value BLOB,
    %s TEXT NOT NULL,
    model %s NOT NULL REFERENCES %s(%s),
    UNIQUE (name, value, %s)
)`, name, types.DiscriminatorColumn, pk.Kind.ColumnType(), main, pk.Name, types.DiscriminatorColumn)
}

// coreColumns lists the main-table columns for a binding, in declaration
// order, with the discriminator last when present.
func coreColumns(b *binding) []string {
	var cols []string
	for _, f := range b.desc.AllFields() {
		if f.Storage == types.StorageCore {
			cols = append(cols, f.Name)
		}
	}
	if b.discriminated() {
		cols = append(cols, types.DiscriminatorColumn)
	}
	return cols
}
