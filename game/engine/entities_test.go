package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func coloredKey(t *testing.T, g *Grid, color string) Entity {
	t.Helper()
	k, err := NewConfigured(g, KindSmallKey, map[string]string{"color": color})
	require.NoError(t, err)
	return k
}

func TestColoredDoor_Lifecycle(t *testing.T) {
	g := newClearGrid(3, 1)
	door := NewColoredDoor(g)
	require.Equal(t, Red, door.Color())
	require.Equal(t, KindSmallKey, door.RequiredKey())

	holder := NewPlayer(g)
	require.NoError(t, holder.PushInventory(coloredKey(t, g, "red")))
	door.OnCollisionWith(g, holder)
	assert.True(t, door.Passage().Allows(KindPlayer))

	empty := NewPlayer(g)
	door.OnCollisionWith(g, empty)
	assert.False(t, door.Passage().Allows(KindPlayer), "revoked after a bump without the key")

	wrong := NewPlayer(g)
	require.NoError(t, wrong.PushInventory(coloredKey(t, g, "blue")))
	door.OnCollisionWith(g, holder)
	door.OnCollisionWith(g, wrong)
	assert.False(t, door.Passage().Allows(KindPlayer), "color must match")
}

func TestColoredDoor_TracksKindsIndependently(t *testing.T) {
	g := newClearGrid(3, 1)
	door := NewColoredDoor(g)

	player := NewPlayer(g)
	require.NoError(t, player.PushInventory(coloredKey(t, g, "red")))
	drone := NewAllyDrone(g)

	door.OnCollisionWith(g, player)
	door.OnCollisionWith(g, drone)
	assert.True(t, door.Passage().Allows(KindPlayer))
	assert.False(t, door.Passage().Allows(KindAllyDrone))
}

func TestColoredDoor_BlockedBumpThenPass(t *testing.T) {
	g := newClearGrid(3, 1)
	p := NewPlayer(g)
	door := NewColoredDoor(g)
	require.NoError(t, g.PlaceForced(Coord{0, 0}, p))
	require.NoError(t, g.PlaceForced(Coord{1, 0}, door))

	_, err := g.Move(p, Right)
	assert.ErrorIs(t, err, ErrBlocked)

	require.NoError(t, p.PushInventory(coloredKey(t, g, "red")))
	out, err := g.Move(p, Right)
	require.NoError(t, err)
	assert.True(t, out.Moved)
}

func TestKeyDoor_RebuiltOnEveryCollision(t *testing.T) {
	g := newClearGrid(3, 1)
	door := NewKeyDoor(g)

	holder := NewPlayer(g)
	require.NoError(t, holder.PushInventory(NewSmallKey(g)))
	door.OnCollisionWith(g, holder)
	assert.Equal(t, []Kind{KindPlayer}, door.Passage().Kinds())

	door.OnCollisionWith(g, NewWall(g))
	assert.Empty(t, door.Passage().Kinds(), "a collider without an inventory locks it")

	require.NoError(t, Configure(door, map[string]string{"required_key_name": "big_key"}))
	door.OnCollisionWith(g, holder)
	assert.False(t, door.Passage().Allows(KindPlayer))
}

func TestChangingColoredDoor_CyclesQueue(t *testing.T) {
	g := newClearGrid(1, 1)
	door := NewChangingColoredDoor(g)
	assert.Equal(t, []Color{White, Green, Red}, door.ColorQueue())

	want := []Color{Green, Red, White, Green}
	for i, c := range want {
		door.Behavior(g, Input{})
		assert.Equal(t, c, door.Color(), "tick %d", i+1)
	}
	assert.Equal(t, 1, door.ColorIndex())

	require.NoError(t, Configure(door, map[string]string{"color_queue": "aqua #ff0000"}))
	assert.Equal(t, 1, door.ColorIndex())
	door.Behavior(g, Input{})
	assert.Equal(t, Aqua, door.Color())

	err := Configure(door, map[string]string{"color_index": "5"})
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestChangingColoredDoor_ActsAsColoredDoor(t *testing.T) {
	g := newClearGrid(1, 1)
	door := NewChangingColoredDoor(g)
	door.Behavior(g, Input{}) // green

	p := NewPlayer(g)
	require.NoError(t, p.PushInventory(coloredKey(t, g, "green")))
	door.OnCollisionWith(g, p)
	assert.True(t, door.Passage().Allows(KindPlayer))

	door.Behavior(g, Input{}) // red
	door.OnCollisionWith(g, p)
	assert.False(t, door.Passage().Allows(KindPlayer))
}

func TestAllyDrone_Chase(t *testing.T) {
	tests := []struct {
		name   string
		drone  Coord
		player Coord
		want   Coord
	}{
		{"y axis farther", Coord{0, 0}, Coord{0, 5}, Coord{0, 1}},
		{"x axis farther", Coord{0, 0}, Coord{3, 1}, Coord{1, 0}},
		{"tie goes to y", Coord{2, 2}, Coord{0, 0}, Coord{2, 1}},
		{"left", Coord{4, 1}, Coord{0, 1}, Coord{3, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newClearGrid(6, 6)
			d := NewAllyDrone(g)
			require.NoError(t, g.PlaceForced(tt.drone, d))
			require.NoError(t, g.PlaceForced(tt.player, NewPlayer(g)))

			d.Behavior(g, Input{})
			at, err := g.Locate(d.ID())
			require.NoError(t, err)
			assert.Equal(t, tt.want, at)
		})
	}
}

func TestAllyDrone_DropsItemOnPlayer(t *testing.T) {
	g := newClearGrid(3, 1)
	p := NewPlayer(g)
	d := NewAllyDrone(g)
	key := coloredKey(t, g, "orange")
	require.NoError(t, d.Inventory().Push(key))
	require.NoError(t, g.PlaceForced(Coord{0, 0}, p))
	require.NoError(t, g.PlaceForced(Coord{1, 0}, d))

	out, err := g.Move(p, Right)
	require.NoError(t, err)
	assert.True(t, out.Moved)
	assert.False(t, g.Contains(d), "drone replaced by its cargo")
	assert.Same(t, key, p.Stacked())

	p.Behavior(g, Input{Direction: Left})
	assert.Same(t, key, g.At(Coord{1, 0}))
}

func TestAllyDrone_EmptyDropWhenChasing(t *testing.T) {
	g := newClearGrid(2, 1)
	p := NewPlayer(g)
	d := NewAllyDrone(g)
	require.NoError(t, g.PlaceForced(Coord{0, 0}, p))
	require.NoError(t, g.PlaceForced(Coord{1, 0}, d))

	d.Behavior(g, Input{})
	assert.False(t, g.Contains(d))
	assert.Equal(t, KindEmpty, g.At(Coord{1, 0}).Kind())
	assert.Same(t, p, g.At(Coord{0, 0}))
}

func TestComputer_PickupEnablesConsole(t *testing.T) {
	g := newClearGrid(2, 1)
	p := NewPlayer(g)
	c := NewComputer(g)
	require.NoError(t, g.PlaceForced(Coord{0, 0}, p))
	require.NoError(t, g.PlaceForced(Coord{1, 0}, c))

	out, err := g.Move(p, Right)
	require.NoError(t, err)
	assert.Contains(t, out.Signals, Signal{Kind: SignalConsole, On: true})
	assert.True(t, p.Has(KindComputer))
	assert.Equal(t, KindEmpty, p.Stacked().Kind())

	blocked := newClearGrid(2, 1)
	w := NewWall(blocked)
	comp := NewComputer(blocked)
	require.NoError(t, blocked.PlaceForced(Coord{0, 0}, w))
	require.NoError(t, blocked.PlaceForced(Coord{1, 0}, comp))
	_, err = blocked.Move(w, Right)
	assert.ErrorIs(t, err, ErrBlocked, "computer is passable for the player only")
}

func TestExit_SignalsTransition(t *testing.T) {
	g := newClearGrid(2, 1)
	p := NewPlayer(g)
	e := NewExit(g)
	require.NoError(t, Configure(e, map[string]string{"target_level": "level2"}))
	require.NoError(t, g.PlaceForced(Coord{0, 0}, p))
	require.NoError(t, g.PlaceForced(Coord{1, 0}, e))

	out, err := g.Move(p, Right)
	require.NoError(t, err)
	assert.Equal(t, []Signal{{Kind: SignalLevelTransition, Target: "level2"}}, out.Signals)
}

func TestFluxBarrier_StripsItems(t *testing.T) {
	g := newClearGrid(3, 1)
	p := NewPlayer(g)
	require.NoError(t, p.PushInventory(NewSmallKey(g)))
	require.NoError(t, p.PushInventory(NewBigKey(g)))
	f := NewFluxBarrier(g)
	require.NoError(t, Configure(f, map[string]string{"items_removed": "small_key"}))
	require.NoError(t, g.PlaceForced(Coord{0, 0}, p))
	require.NoError(t, g.PlaceForced(Coord{1, 0}, f))

	_, err := g.Move(p, Right)
	require.NoError(t, err)
	assert.False(t, p.Has(KindSmallKey))
	assert.True(t, p.Has(KindBigKey))
}

func TestMazeGenerator_RebuildsArea(t *testing.T) {
	g := newClearGrid(5, 4)
	m := NewMazeGenerator(g)
	require.NoError(t, Configure(m, map[string]string{
		"working_area": "0,0,3,3",
		"path":         "0,0:rr",
	}))
	p := NewPlayer(g)
	require.NoError(t, g.PlaceForced(Coord{4, 3}, m))
	require.NoError(t, g.PlaceForced(Coord{1, 1}, p))

	m.Behavior(g, Input{})

	assert.Equal(t, []string{
		"   ",
		"#▲#",
		"###",
	}, trimRows(g.Rows()[:3], 3))
	assert.Same(t, p, g.At(Coord{1, 1}))
	assert.Equal(t, KindEmpty, g.At(Coord{3, 0}).Kind(), "outside the half-open area")

	require.NoError(t, Configure(m, map[string]string{"maze_block": "flux_barrier"}))
	m.Behavior(g, Input{})
	assert.Equal(t, KindFluxBarrier, g.At(Coord{0, 2}).Kind())

	assert.ErrorIs(t, Configure(m, map[string]string{"maze_block": "player"}), ErrInvalidValue)
}

func trimRows(rows []string, n int) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = string([]rune(r)[:n])
	}
	return out
}

func TestParsePath(t *testing.T) {
	p, err := ParsePath("3,5:ddrr")
	require.NoError(t, err)
	assert.Equal(t, []Coord{{3, 5}, {3, 6}, {3, 7}, {4, 7}, {5, 7}}, p.Cells())
	assert.Equal(t, "3,5:ddrr", p.String())

	_, err = ParsePath("3:dd")
	assert.ErrorIs(t, err, ErrInvalidValue)
	_, err = ParsePath("1,1:x")
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestHackable_AllowList(t *testing.T) {
	g := newClearGrid(1, 1)
	k := NewSmallKey(g)
	require.NoError(t, Configure(k, map[string]string{"hackable": "color"}))

	require.NoError(t, k.Set("color", "green"))
	assert.Equal(t, Green, k.Color())

	err := k.Set("symbol", "x")
	assert.ErrorIs(t, err, ErrInvalidHackTarget)
	assert.Equal(t, 'k', k.Symbol())

	err = k.Set("color", "not-a-color")
	assert.ErrorIs(t, err, ErrInvalidValue)
	assert.Equal(t, Green, k.Color())

	attrs := Attributes(k)
	require.NotEmpty(t, attrs)
	assert.Equal(t, "color", attrs[0].Name)
	assert.True(t, attrs[0].Hackable)
}

func TestConfigure_Errors(t *testing.T) {
	g := newClearGrid(1, 1)

	err := Configure(NewWall(g), map[string]string{"nope": "1"})
	assert.ErrorIs(t, err, ErrUnknownAttribute)

	err = Configure(NewPlayer(g), map[string]string{"inventory": "small_key"})
	assert.ErrorIs(t, err, ErrUnknownAttribute, "read-only attribute")

	w := NewWall(g)
	require.NoError(t, Configure(w, map[string]string{"passable_for": "player, ally_drone"}))
	assert.Equal(t, "ally_drone,player", w.Passage().String())
	assert.ErrorIs(t, Configure(w, map[string]string{"passable_for": "ghost"}), ErrUnknownKind)
	require.NoError(t, Configure(w, map[string]string{"passable_for": "none"}))
	assert.Equal(t, "none", w.Passage().String())
	assert.False(t, w.Passage().Allows(KindPlayer))

	_, err = New(g, Kind("ghost"))
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestNew_EveryKind(t *testing.T) {
	g := newClearGrid(1, 1)
	for _, k := range Kinds {
		e, err := New(g, k)
		require.NoError(t, err, k)
		assert.Equal(t, k, e.Kind())
	}
}

func TestParseColorAndKind(t *testing.T) {
	for in, want := range map[string]Color{
		"red":         Red,
		" Aqua ":      Aqua,
		"#ff6400":     Orange,
		"0,0,56":      Navy,
		"(255,51,0)":  Scarlet,
		"12, 34, 56 ": {12, 34, 56},
	} {
		got, err := ParseColor(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseColor("256,0,0")
	assert.ErrorIs(t, err, ErrInvalidValue)

	k, err := ParseKind("SmallKey")
	require.NoError(t, err)
	assert.Equal(t, KindSmallKey, k)
	assert.Equal(t, "navy", Navy.String())
	assert.Equal(t, "#0c2238", Color{12, 34, 56}.String())
}
