// Package world declares the built-in entity types of a game world:
// player accounts and the located node hierarchy of rooms, characters
// and items. Games extend the registry with their own descriptors; these
// are the ones every world starts from.
package world

import (
	"fmt"

	"github.com/quillmud/worldstore/pkg/types"
)

// Type names of the built-in descriptors.
const (
	TypeAccount   = "account"
	TypeNode      = "node"
	TypeRoom      = "room"
	TypeCharacter = "character"
	TypeItem      = "item"
)

// Register adds the built-in descriptors to the registry, bases before
// subtypes.
func Register(reg *types.Registry) error {
	for _, d := range Descriptors() {
		if err := reg.Register(d); err != nil {
			return fmt.Errorf("registering %s: %w", d.Name, err)
		}
	}
	return nil
}

// NewRegistry returns a registry holding exactly the built-in types.
func NewRegistry() (*types.Registry, error) {
	reg := types.NewRegistry()
	if err := Register(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// Descriptors returns fresh copies of the built-in descriptors in
// registration order.
func Descriptors() []*types.Descriptor {
	return []*types.Descriptor{
		{
			Name: TypeAccount,
			Fields: []types.Field{
				{Name: "id", Kind: types.KindUUID, PrimaryKey: true},
				{Name: "username", Kind: types.KindString, Unique: true, BlueprintKey: true},
				{Name: "email", Kind: types.KindEmail, Unique: true, External: true},
				{Name: "password", Kind: types.KindBytes, External: true},
				{Name: "created_at", Kind: types.KindTime},
				{Name: "options", Kind: types.KindMap},
			},
		},
		{
			Name:    TypeNode,
			Located: true,
			Fields: []types.Field{
				{Name: "id", Kind: types.KindInt, PrimaryKey: true, AutoAssign: true},
			},
		},
		{
			Name: TypeRoom,
			Base: TypeNode,
			Fields: []types.Field{
				{Name: "barcode", Kind: types.KindString, Unique: true, BlueprintKey: true},
				{Name: "title", Kind: types.KindString},
				{Name: "description", Kind: types.KindString},
			},
		},
		{
			Name: TypeCharacter,
			Base: TypeNode,
			Fields: []types.Field{
				{Name: "name", Kind: types.KindString, Unique: true, BlueprintKey: true},
				{Name: "account", Kind: types.KindRef, Ref: TypeAccount},
			},
		},
		{
			Name: TypeItem,
			Base: TypeNode,
			Fields: []types.Field{
				{Name: "barcode", Kind: types.KindString, Unique: true, BlueprintKey: true},
				{Name: "name", Kind: types.KindString},
				{Name: types.FieldStackable, Kind: types.KindBool},
			},
			Stackable: false,
		},
	}
}
