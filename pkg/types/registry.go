package types

import "fmt"

// Registry holds the registered entity descriptors. Registration computes
// each field's storage classification, resolves the base type, and records
// subtype links; the result is fixed for the type's lifetime.
type Registry struct {
	types map[string]*Descriptor
	order []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]*Descriptor)}
}

// locationFields are injected into first-class located descriptors.
// location_id references the container; location_index orders siblings;
// location_filter names an optional sub-slot; stackables holds the
// container's quantity ledger.
var locationFields = []Field{
	{Name: FieldLocationID, Kind: KindInt},
	{Name: FieldLocationIndex, Kind: KindInt},
	{Name: FieldLocationFilter, Kind: KindString},
	{Name: FieldStackables, Kind: KindMap, External: true},
}

// Register validates the descriptor and computes its fixed schema: base
// resolution, effective field list, per-field storage classification, and
// primary-key and unique sets. Base types must be registered before their
// subtypes.
func (r *Registry) Register(d *Descriptor) error {
	if d.Name == "" {
		return fmt.Errorf("%w: empty type name", ErrBadDescriptor)
	}
	if _, dup := r.types[d.Name]; dup {
		return fmt.Errorf("%w: %s", ErrAlreadyBound, d.Name)
	}
	for i := range d.Fields {
		if reservedField(d.Fields[i].Name) {
			return fmt.Errorf("%w: %s", ErrReservedField, d.Fields[i].Name)
		}
	}

	if d.Base != "" && d.Base != d.Name {
		base, ok := r.types[d.Base]
		if !ok {
			return fmt.Errorf("%w: base %s of %s", ErrUnknownType, d.Base, d.Name)
		}
		if !base.firstClass {
			return fmt.Errorf("%w: base %s of %s is not first-class", ErrBadDescriptor, d.Base, d.Name)
		}
		d.firstClass = false
		d.base = base
		d.Located = d.Located || base.Located
	} else {
		d.firstClass = true
		d.base = d
		d.Base = d.Name
	}

	if err := r.computeFields(d); err != nil {
		return err
	}
	if d.Located {
		if _, err := d.SinglePrimaryKey(); err != nil {
			return fmt.Errorf("located type %s: %w", d.Name, err)
		}
		if pk, _ := d.SinglePrimaryKey(); pk.Kind != KindInt {
			return fmt.Errorf("%w: located type %s needs an integer primary key", ErrBadDescriptor, d.Name)
		}
	}

	// Only a fully validated subtype joins its base.
	if !d.firstClass {
		d.base.children = append(d.base.children, d.Name)
	}
	r.types[d.Name] = d
	r.order = append(r.order, d.Name)
	return nil
}

// computeFields builds the effective field list and classifies storage.
func (r *Registry) computeFields(d *Descriptor) error {
	var fields []Field
	if d.firstClass {
		fields = append(fields, d.Fields...)
		if d.Located {
			fields = append(fields, locationFields...)
		}
	} else {
		// Subtypes inherit the base layout; their own additions cannot
		// occupy main-table columns, so they are forced external.
		fields = append(fields, d.base.fields...)
		inherited := make(map[string]bool, len(fields))
		for _, f := range fields {
			inherited[f.Name] = true
		}
		for _, f := range d.Fields {
			if inherited[f.Name] {
				return fmt.Errorf("%w: %s redeclares base field %s", ErrBadDescriptor, d.Name, f.Name)
			}
			if f.PrimaryKey {
				return fmt.Errorf("%w: %s declares primary key outside base", ErrBadDescriptor, d.Name)
			}
			f.External = true
			fields = append(fields, f)
		}
	}

	d.fields = fields
	d.fieldIndex = make(map[string]int, len(fields))
	d.pkFields = nil
	d.uniques = nil
	d.hasExt = false
	d.hasIndexed = false

	for i := range d.fields {
		f := &d.fields[i]
		if _, dup := d.fieldIndex[f.Name]; dup {
			return fmt.Errorf("%w: duplicate field %s on %s", ErrBadDescriptor, f.Name, d.Name)
		}
		d.fieldIndex[f.Name] = i

		switch {
		case f.PrimaryKey:
			if f.External || f.Kind.Generic() {
				return fmt.Errorf("%w: primary key %s cannot be external", ErrBadDescriptor, f.Name)
			}
			f.Storage = StorageCore
			d.pkFields = append(d.pkFields, f.Name)
		case f.External || f.Kind.Generic():
			if f.Unique {
				f.Storage = StorageIndexedAttribute
				d.hasIndexed = true
			} else {
				f.Storage = StorageAttribute
			}
			d.hasExt = true
		default:
			f.Storage = StorageCore
		}
		if f.Unique && !f.PrimaryKey {
			d.uniques = append(d.uniques, f.Name)
		}
	}

	if len(d.pkFields) == 0 {
		return fmt.Errorf("%w: %s", ErrNoPrimaryKey, d.Name)
	}
	if pk, err := d.SinglePrimaryKey(); err == nil {
		if pk.AutoAssign && pk.Kind != KindInt {
			return fmt.Errorf("%w: auto-assigned key %s must be an integer", ErrBadDescriptor, pk.Name)
		}
	} else {
		for _, name := range d.pkFields {
			if f, _ := d.Field(name); f.AutoAssign {
				return fmt.Errorf("%w: composite key field %s cannot be auto-assigned", ErrBadDescriptor, name)
			}
		}
	}
	return nil
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (*Descriptor, error) {
	d, ok := r.types[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, name)
	}
	return d, nil
}

// All returns every registered descriptor in registration order, which
// places base types before their subtypes.
func (r *Registry) All() []*Descriptor {
	out := make([]*Descriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.types[name])
	}
	return out
}

func reservedField(name string) bool {
	switch name {
	case DiscriminatorColumn, FieldLocationID, FieldLocationIndex,
		FieldLocationFilter, FieldStackables:
		return true
	}
	return false
}
