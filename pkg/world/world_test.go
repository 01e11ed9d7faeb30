package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillmud/worldstore/pkg/types"
)

func TestNewRegistry(t *testing.T) {
	reg, err := NewRegistry()
	require.NoError(t, err)

	node, err := reg.Lookup(TypeNode)
	require.NoError(t, err)
	assert.True(t, node.FirstClass())
	assert.True(t, node.Located)
	assert.ElementsMatch(t, []string{TypeRoom, TypeCharacter, TypeItem}, node.Children())

	for _, name := range []string{TypeRoom, TypeCharacter, TypeItem} {
		d, err := reg.Lookup(name)
		require.NoError(t, err)
		assert.True(t, d.Located, name)
		assert.Same(t, node, d.BaseDescriptor(), name)
	}
}

func TestAccountSchema(t *testing.T) {
	reg, err := NewRegistry()
	require.NoError(t, err)
	acct, err := reg.Lookup(TypeAccount)
	require.NoError(t, err)

	username, ok := acct.Field("username")
	require.True(t, ok)
	assert.Equal(t, types.StorageCore, username.Storage)
	assert.True(t, username.BlueprintKey)

	email, ok := acct.Field("email")
	require.True(t, ok)
	assert.Equal(t, types.StorageIndexedAttribute, email.Storage)

	password, ok := acct.Field("password")
	require.True(t, ok)
	assert.Equal(t, types.StorageAttribute, password.Storage)
}

func TestItemStackableOverride(t *testing.T) {
	reg, err := NewRegistry()
	require.NoError(t, err)
	item, err := reg.Lookup(TypeItem)
	require.NoError(t, err)

	assert.False(t, item.Stackable)
	f, ok := item.Field(types.FieldStackable)
	require.True(t, ok)
	assert.Equal(t, types.StorageAttribute, f.Storage)
}

func TestCharacterReferencesAccount(t *testing.T) {
	reg, err := NewRegistry()
	require.NoError(t, err)
	char, err := reg.Lookup(TypeCharacter)
	require.NoError(t, err)

	account, ok := char.Field("account")
	require.True(t, ok)
	assert.Equal(t, types.KindRef, account.Kind)
	assert.Equal(t, TypeAccount, account.Ref)
	assert.Equal(t, types.StorageAttribute, account.Storage)
}

func TestDescriptorsAreFresh(t *testing.T) {
	// Registration mutates descriptors, so each registry needs its own
	// copies.
	first, err := NewRegistry()
	require.NoError(t, err)
	second, err := NewRegistry()
	require.NoError(t, err)

	a, err := first.Lookup(TypeNode)
	require.NoError(t, err)
	b, err := second.Lookup(TypeNode)
	require.NoError(t, err)
	assert.NotSame(t, a, b)
	assert.Equal(t, a.Children(), b.Children())
}
