package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillmud/worldstore/pkg/types"
)

func newRoom(t *testing.T, e *Engine, name string) *types.Instance {
	t.Helper()
	room, err := e.Create("room", map[string]any{"name": name})
	require.NoError(t, err)
	return room
}

func newMob(t *testing.T, e *Engine, name string) *types.Instance {
	t.Helper()
	mob, err := e.Create("mob", map[string]any{"name": name})
	require.NoError(t, err)
	return mob
}

func TestMoveAndLocation(t *testing.T) {
	e := testStore(t)
	loc := e.Locator()
	hall := newRoom(t, e, "hall")
	rat := newMob(t, e, "rat")

	at, err := loc.Location(rat)
	require.NoError(t, err)
	assert.Nil(t, at)

	require.NoError(t, loc.Move(rat, hall, ""))
	at, err = loc.Location(rat)
	require.NoError(t, err)
	assert.Same(t, hall, at)

	// Moving to another container leaves the first.
	cellar := newRoom(t, e, "cellar")
	require.NoError(t, loc.Move(rat, cellar, ""))
	contents, err := loc.GetAt(hall, "")
	require.NoError(t, err)
	assert.Empty(t, contents)

	require.NoError(t, loc.Unplace(rat))
	at, err = loc.Location(rat)
	require.NoError(t, err)
	assert.Nil(t, at)
}

func TestContentsOrdering(t *testing.T) {
	e := testStore(t)
	loc := e.Locator()
	hall := newRoom(t, e, "hall")

	first := newMob(t, e, "first")
	second := newMob(t, e, "second")
	third := newMob(t, e, "third")
	for _, mob := range []*types.Instance{first, second, third} {
		require.NoError(t, loc.Move(mob, hall, ""))
	}

	contents, err := loc.GetAt(hall, "")
	require.NoError(t, err)
	require.Len(t, contents, 3)
	assert.Same(t, first, contents[0])
	assert.Same(t, second, contents[1])
	assert.Same(t, third, contents[2])

	// Re-placing an occupant moves it to the end.
	require.NoError(t, loc.Move(first, hall, ""))
	contents, err = loc.GetAt(hall, "")
	require.NoError(t, err)
	require.Len(t, contents, 3)
	assert.Same(t, second, contents[0])
	assert.Same(t, third, contents[1])
	assert.Same(t, first, contents[2])

	// The placement order survives a cold read.
	e.ClearCache()
	contents, err = loc.GetAt(hall, "")
	require.NoError(t, err)
	require.Len(t, contents, 3)
	assert.Equal(t, "second", contents[0].String("name"))
	assert.Equal(t, "third", contents[1].String("name"))
	assert.Equal(t, "first", contents[2].String("name"))
}

func TestContentsFilter(t *testing.T) {
	e := testStore(t)
	loc := e.Locator()
	knight := newMob(t, e, "knight")
	sword := newMob(t, e, "sword")
	shield := newMob(t, e, "shield")
	require.NoError(t, loc.Move(sword, knight, "right_hand"))
	require.NoError(t, loc.Move(shield, knight, "left_hand"))

	right, err := loc.GetAt(knight, "right_hand")
	require.NoError(t, err)
	require.Len(t, right, 1)
	assert.Same(t, sword, right[0])

	all, err := loc.GetAt(knight, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestCycleRejection(t *testing.T) {
	e := testStore(t)
	loc := e.Locator()
	outer := newRoom(t, e, "outer")
	inner := newRoom(t, e, "inner")

	require.NoError(t, loc.Move(inner, outer, ""))
	assert.ErrorIs(t, loc.Move(outer, inner, ""), types.ErrCycle)
	assert.ErrorIs(t, loc.Move(outer, outer, ""), types.ErrCycle)

	// Deeper chains are walked all the way up.
	innermost := newRoom(t, e, "innermost")
	require.NoError(t, loc.Move(innermost, inner, ""))
	assert.ErrorIs(t, loc.Move(outer, innermost, ""), types.ErrCycle)
}

func TestStackableLedger(t *testing.T) {
	e := testStore(t)
	loc := e.Locator()
	center := newRoom(t, e, "center")
	side := newRoom(t, e, "side")
	dime, err := e.Create("coin", map[string]any{"name": "dime"})
	require.NoError(t, err)

	// Stackables never occupy a slot of their own.
	assert.ErrorIs(t, loc.Move(dime, side, ""), types.ErrStackable)

	require.NoError(t, loc.Add(side, dime, 5, ""))
	n, err := loc.HowMany(side, dime, "")
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	moved, err := loc.Transfer(center, dime, side, 3, "")
	require.NoError(t, err)
	assert.Equal(t, int64(3), moved)

	n, err = loc.HowMany(side, dime, "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	n, err = loc.HowMany(center, dime, "")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	// Ledger entries never surface as placed contents.
	placed, err := loc.GetAt(side, "")
	require.NoError(t, err)
	assert.Empty(t, placed)
	placed, err = loc.GetAt(center, "")
	require.NoError(t, err)
	assert.Empty(t, placed)

	// Transferring more than present moves what is there.
	moved, err = loc.Transfer(center, dime, side, 10, "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), moved)
	n, err = loc.HowMany(side, dime, "")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
	n, err = loc.HowMany(center, dime, "")
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	// A drained origin transfers nothing.
	moved, err = loc.Transfer(center, dime, side, 1, "")
	require.NoError(t, err)
	assert.Equal(t, int64(0), moved)
}

func TestLedgerPersists(t *testing.T) {
	e := testStore(t)
	loc := e.Locator()
	vault := newRoom(t, e, "vault")
	coin, err := e.Create("coin", map[string]any{"name": "florin"})
	require.NoError(t, err)
	require.NoError(t, loc.Add(vault, coin, 7, ""))

	e.ClearCache()
	fresh, err := e.Get("room", true, map[string]any{"id": vault.Int("id")})
	require.NoError(t, err)
	n, err := loc.HowMany(fresh, coin, "")
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
}

func TestRemoveFromLedger(t *testing.T) {
	e := testStore(t)
	loc := e.Locator()
	purse := newRoom(t, e, "purse")
	coin, err := e.Create("coin", map[string]any{"name": "penny"})
	require.NoError(t, err)

	removed, err := loc.Remove(purse, coin, 1, "")
	require.NoError(t, err)
	assert.Equal(t, int64(0), removed)

	require.NoError(t, loc.Add(purse, coin, 4, ""))
	removed, err = loc.Remove(purse, coin, 9, "")
	require.NoError(t, err)
	assert.Equal(t, int64(4), removed)
	n, err := loc.HowMany(purse, coin, "")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestNonStackableLedgerRejected(t *testing.T) {
	e := testStore(t)
	loc := e.Locator()
	hall := newRoom(t, e, "hall")
	rat := newMob(t, e, "rat")
	assert.ErrorIs(t, loc.Add(hall, rat, 1, ""), types.ErrNotStackable)
	_, err := loc.Remove(hall, rat, 1, "")
	assert.ErrorIs(t, err, types.ErrNotStackable)
}

func TestTransferPlacesNonStackables(t *testing.T) {
	e := testStore(t)
	loc := e.Locator()
	hall := newRoom(t, e, "hall")
	cellar := newRoom(t, e, "cellar")
	rat := newMob(t, e, "rat")
	require.NoError(t, loc.Move(rat, hall, ""))

	moved, err := loc.Transfer(cellar, rat, hall, 1, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), moved)
	at, err := loc.Location(rat)
	require.NoError(t, err)
	assert.Same(t, cellar, at)
}

func TestInstanceStackableOverride(t *testing.T) {
	e := testStore(t)
	loc := e.Locator()
	plain, err := e.Create("relic", map[string]any{"name": "statue"})
	require.NoError(t, err)
	assert.False(t, loc.IsStackable(plain))

	bead, err := e.Create("relic", map[string]any{"name": "bead", "stackable": true})
	require.NoError(t, err)
	assert.True(t, loc.IsStackable(bead))

	shrine := newRoom(t, e, "shrine")
	require.NoError(t, loc.Add(shrine, bead, 3, ""))
	assert.ErrorIs(t, loc.Add(shrine, plain, 1, ""), types.ErrNotStackable)
}

func TestHowManyPlacedMembership(t *testing.T) {
	e := testStore(t)
	loc := e.Locator()
	hall := newRoom(t, e, "hall")
	cellar := newRoom(t, e, "cellar")
	rat := newMob(t, e, "rat")
	require.NoError(t, loc.Move(rat, hall, "corner"))

	n, err := loc.HowMany(hall, rat, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = loc.HowMany(hall, rat, "corner")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = loc.HowMany(hall, rat, "alcove")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
	n, err = loc.HowMany(cellar, rat, "")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestAllContents(t *testing.T) {
	e := testStore(t)
	loc := e.Locator()
	hall := newRoom(t, e, "hall")
	rat := newMob(t, e, "rat")
	require.NoError(t, loc.Move(rat, hall, "corner"))
	coin, err := e.Create("coin", map[string]any{"name": "ducat"})
	require.NoError(t, err)
	require.NoError(t, loc.Add(hall, coin, 12, "floor"))

	contents, err := loc.AllContents(hall)
	require.NoError(t, err)
	require.Len(t, contents, 2)

	assert.Same(t, rat, contents[0].Node)
	assert.Equal(t, int64(1), contents[0].Quantity)
	assert.Equal(t, "corner", contents[0].Filter)

	assert.Same(t, coin, contents[1].Node)
	assert.Equal(t, int64(12), contents[1].Quantity)
	assert.Equal(t, "floor", contents[1].Filter)
}

func TestUnlocatedTypesRejected(t *testing.T) {
	e := testStore(t)
	loc := e.Locator()
	a, err := e.Create("pet", map[string]any{"name": "barky"})
	require.NoError(t, err)
	hall := newRoom(t, e, "hall")

	assert.ErrorIs(t, loc.Move(a, hall, ""), types.ErrNotLocated)
	assert.ErrorIs(t, loc.Unplace(a), types.ErrNotLocated)
	_, err = loc.GetAt(a, "")
	assert.ErrorIs(t, err, types.ErrNotLocated)
}
