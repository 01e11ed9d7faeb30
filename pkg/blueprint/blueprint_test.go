package blueprint

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillmud/worldstore/pkg/sqlite"
	"github.com/quillmud/worldstore/pkg/types"
	"github.com/quillmud/worldstore/pkg/world"
)

func testStore(t *testing.T) types.Store {
	t.Helper()
	reg, err := world.NewRegistry()
	require.NoError(t, err)
	store, err := sqlite.Open(types.Config{Memory: true}, reg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

const roomsYAML = `
type: room
barcode: start
title: The Square
description: Cobblestones stretch in every direction.
---
type: room
barcode: tavern
title: The Rusty Tankard
`

func TestLoadCreatesInstances(t *testing.T) {
	store := testStore(t)
	loader := NewLoader(store, nil)

	applied, err := loader.Load(strings.NewReader(roomsYAML), "rooms.yml")
	require.NoError(t, err)
	assert.Equal(t, 2, applied)

	room, err := store.Get(world.TypeRoom, true, map[string]any{"barcode": "start"})
	require.NoError(t, err)
	assert.Equal(t, "The Square", room.String("title"))
	assert.Equal(t, "Cobblestones stretch in every direction.", room.String("description"))
}

func TestLoadIsIdempotent(t *testing.T) {
	store := testStore(t)
	loader := NewLoader(store, nil)

	_, err := loader.Load(strings.NewReader(roomsYAML), "rooms.yml")
	require.NoError(t, err)

	// A second pass with a changed title updates in place.
	updated := strings.Replace(roomsYAML, "The Square", "The Plaza", 1)
	applied, err := loader.Load(strings.NewReader(updated), "rooms.yml")
	require.NoError(t, err)
	assert.Equal(t, 2, applied)

	n, err := store.Count(world.TypeRoom, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	room, err := store.Get(world.TypeRoom, true, map[string]any{"barcode": "start"})
	require.NoError(t, err)
	assert.Equal(t, "The Plaza", room.String("title"))
}

func TestLoadSkipsBadDocuments(t *testing.T) {
	store := testStore(t)
	loader := NewLoader(store, nil)

	input := `
type: dragon
barcode: smaug
---
type: room
title: Keyless Room
---
type: room
barcode: kept
title: Kept Room
altitude: 9000
`
	applied, err := loader.Load(strings.NewReader(input), "mixed.yml")
	require.NoError(t, err)
	assert.Equal(t, 1, applied)

	// The unknown field on the kept document was skipped, the rest took.
	room, err := store.Get(world.TypeRoom, true, map[string]any{"barcode": "kept"})
	require.NoError(t, err)
	assert.Equal(t, "Kept Room", room.String("title"))
}

func TestLoadStopsOnMalformedYAML(t *testing.T) {
	store := testStore(t)
	loader := NewLoader(store, nil)

	_, err := loader.Load(strings.NewReader("type: [unclosed"), "broken.yml")
	assert.Error(t, err)
}

func TestApplier(t *testing.T) {
	store := testStore(t)
	loader := NewLoader(store, nil)
	loader.RegisterApplier(world.TypeAccount, "password", ApplierFunc(
		func(inst *types.Instance, value any) error {
			// Stand-in for a real hash.
			return inst.Set("password", []byte("hashed:"+value.(string)))
		}))

	input := `
type: account
id: 6ba7b810-9dad-11d1-80b4-00c04fd430c8
username: kredh
password: secret
`
	applied, err := loader.Load(strings.NewReader(input), "accounts.yml")
	require.NoError(t, err)
	assert.Equal(t, 1, applied)

	acct, err := store.Get(world.TypeAccount, true, map[string]any{"username": "kredh"})
	require.NoError(t, err)
	assert.Equal(t, []byte("hashed:secret"), acct.Get("password"))
}
