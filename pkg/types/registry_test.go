package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterClassification(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&Descriptor{
		Name: "account",
		Fields: []Field{
			{Name: "id", Kind: KindInt, PrimaryKey: true, AutoAssign: true},
			{Name: "username", Kind: KindString, Unique: true},
			{Name: "email", Kind: KindEmail, Unique: true, External: true},
			{Name: "password", Kind: KindBytes, External: true},
			{Name: "options", Kind: KindMap},
		},
	}))

	d, err := reg.Lookup("account")
	require.NoError(t, err)

	want := map[string]Storage{
		"id":       StorageCore,
		"username": StorageCore,
		"email":    StorageIndexedAttribute,
		"password": StorageAttribute,
		"options":  StorageAttribute,
	}
	for name, storage := range want {
		f, ok := d.Field(name)
		require.True(t, ok, name)
		assert.Equal(t, storage, f.Storage, name)
	}
	assert.True(t, d.HasExternal())
	assert.True(t, d.HasIndexed())
	assert.Equal(t, []string{"id"}, d.PrimaryKeys())
	assert.ElementsMatch(t, []string{"username", "email"}, d.UniqueFields())
}

func TestRegisterSubtypes(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&Descriptor{
		Name:    "node",
		Located: true,
		Fields: []Field{
			{Name: "id", Kind: KindInt, PrimaryKey: true, AutoAssign: true},
			{Name: "name", Kind: KindString},
		},
	}))
	require.NoError(t, reg.Register(&Descriptor{
		Name: "room",
		Base: "node",
		Fields: []Field{
			{Name: "title", Kind: KindString},
		},
	}))

	node, err := reg.Lookup("node")
	require.NoError(t, err)
	room, err := reg.Lookup("room")
	require.NoError(t, err)

	assert.True(t, node.FirstClass())
	assert.False(t, room.FirstClass())
	assert.Same(t, node, room.BaseDescriptor())
	assert.Equal(t, []string{"room"}, node.Children())

	// Subtypes inherit location state and the base layout; their own
	// fields leave the shared table.
	assert.True(t, room.Located)
	title, ok := room.Field("title")
	require.True(t, ok)
	assert.Equal(t, StorageAttribute, title.Storage)
	_, ok = room.Field("name")
	assert.True(t, ok)

	// The located base gained the injected containment fields.
	for _, name := range []string{FieldLocationID, FieldLocationIndex, FieldLocationFilter, FieldStackables} {
		_, ok := node.Field(name)
		assert.True(t, ok, name)
	}
}

func TestRegisterRejections(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&Descriptor{
		Name:    "node",
		Located: true,
		Fields:  []Field{{Name: "id", Kind: KindInt, PrimaryKey: true, AutoAssign: true}},
	}))

	cases := []struct {
		name string
		desc *Descriptor
		want error
	}{
		{"empty name", &Descriptor{}, ErrBadDescriptor},
		{"duplicate registration", &Descriptor{
			Name:   "node",
			Fields: []Field{{Name: "id", Kind: KindInt, PrimaryKey: true}},
		}, ErrAlreadyBound},
		{"no primary key", &Descriptor{
			Name:   "orphan",
			Fields: []Field{{Name: "name", Kind: KindString}},
		}, ErrNoPrimaryKey},
		{"reserved field", &Descriptor{
			Name: "bad",
			Fields: []Field{
				{Name: "id", Kind: KindInt, PrimaryKey: true},
				{Name: FieldLocationID, Kind: KindInt},
			},
		}, ErrReservedField},
		{"unknown base", &Descriptor{
			Name: "sub",
			Base: "missing",
		}, ErrUnknownType},
		{"subtype primary key", &Descriptor{
			Name:   "sub",
			Base:   "node",
			Fields: []Field{{Name: "code", Kind: KindString, PrimaryKey: true}},
		}, ErrBadDescriptor},
		{"subtype redeclares base field", &Descriptor{
			Name:   "sub",
			Base:   "node",
			Fields: []Field{{Name: "id", Kind: KindInt}},
		}, ErrBadDescriptor},
		{"generic primary key", &Descriptor{
			Name:   "blobkey",
			Fields: []Field{{Name: "id", Kind: KindMap, PrimaryKey: true}},
		}, ErrBadDescriptor},
		{"located composite key", &Descriptor{
			Name:    "zone",
			Located: true,
			Fields: []Field{
				{Name: "realm", Kind: KindString, PrimaryKey: true},
				{Name: "name", Kind: KindString, PrimaryKey: true},
			},
		}, ErrAmbiguousKey},
		{"located string key", &Descriptor{
			Name:    "tag",
			Located: true,
			Fields:  []Field{{Name: "id", Kind: KindString, PrimaryKey: true}},
		}, ErrBadDescriptor},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, reg.Register(tc.desc), tc.want)
		})
	}
}

func TestSinglePrimaryKey(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&Descriptor{
		Name: "setting",
		Fields: []Field{
			{Name: "realm", Kind: KindString, PrimaryKey: true},
			{Name: "name", Kind: KindString, PrimaryKey: true},
		},
	}))
	d, err := reg.Lookup("setting")
	require.NoError(t, err)
	_, err = d.SinglePrimaryKey()
	assert.ErrorIs(t, err, ErrAmbiguousKey)

	key := d.KeyOf(map[string]any{"realm": "combat", "name": "damage", "value": "x"})
	assert.Equal(t, []string{"realm", "name"}, key.Fields())
	assert.Equal(t, []any{"combat", "damage"}, key.Values())
}

func TestRegistrationOrder(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&Descriptor{
		Name:   "base",
		Fields: []Field{{Name: "id", Kind: KindInt, PrimaryKey: true, AutoAssign: true}},
	}))
	require.NoError(t, reg.Register(&Descriptor{Name: "sub", Base: "base"}))

	all := reg.All()
	require.Len(t, all, 2)
	assert.Equal(t, "base", all[0].Name)
	assert.Equal(t, "sub", all[1].Name)
}
