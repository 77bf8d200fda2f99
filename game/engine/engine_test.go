package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLevels() StaticLevels {
	legend := func(extra map[string]LegendEntry) map[string]LegendEntry {
		m := map[string]LegendEntry{
			"p": {Kind: "player"},
			".": {Kind: "empty"},
			"#": {Kind: "wall"},
		}
		for k, v := range extra {
			m[k] = v
		}
		return m
	}
	return StaticLevels{
		"start": {
			Name:           "start",
			DisableConsole: true,
			Layout:         []string{"p.e"},
			Legend: legend(map[string]LegendEntry{
				"e": {Kind: "exit", Params: map[string]string{"target_level": "lab"}},
			}),
		},
		"lab": {
			Name:   "lab",
			Layout: []string{"pck", "..."},
			Legend: legend(map[string]LegendEntry{
				"c": {Kind: "computer"},
				"k": {Kind: "small_key", Hackable: []string{"color"}},
			}),
		},
		"chase": {
			Name:   "chase",
			Layout: []string{"d..p"},
			Legend: legend(map[string]LegendEntry{"d": {Kind: "ally_drone"}}),
		},
		"broken": {
			Name:   "broken",
			Layout: []string{"pe"},
			Legend: legend(map[string]LegendEntry{
				"e": {Kind: "exit", Params: map[string]string{"target_level": "nowhere"}},
			}),
		},
	}
}

func newTestEngine(t *testing.T, start string) *GameEngine {
	t.Helper()
	e, err := NewEngine(testLevels(), 6, 4, start)
	require.NoError(t, err)
	return e
}

func TestNewEngine_Errors(t *testing.T) {
	_, err := NewEngine(nil, 5, 5, "start")
	assert.Error(t, err)

	_, err = NewEngine(testLevels(), 0, 5, "start")
	assert.ErrorIs(t, err, ErrInvalidValue)

	_, err = NewEngine(testLevels(), 5, 5, "missing")
	assert.ErrorIs(t, err, ErrLevelNotFound)

	_, err = NewEngine(testLevels(), 2, 2, "start")
	assert.ErrorIs(t, err, ErrInvalidLevel, "layout wider than the grid")
}

func TestEngine_TickMovesAndTransitions(t *testing.T) {
	e := newTestEngine(t, "start")
	assert.Equal(t, "start", e.LevelName())

	res, err := e.Tick(Input{Direction: Right})
	require.NoError(t, err)
	assert.True(t, res.Moved)
	assert.Equal(t, Coord{1, 0}, res.To)
	assert.False(t, res.LevelChanged)

	res, err = e.Tick(Input{Direction: Right})
	require.NoError(t, err)
	assert.True(t, res.LevelChanged)
	assert.Equal(t, "lab", res.Level)
	assert.Equal(t, "lab", e.LevelName())

	_, at, err := e.Player()
	require.NoError(t, err)
	assert.Equal(t, Coord{0, 0}, at)

	assert.Equal(t, 2, e.TotalMoves())
	assert.Len(t, e.MoveHistory(), 2)
	assert.Empty(t, e.CurrentMoves(), "segment restarts with the level")
	assert.Equal(t, 2, e.Ticks())
}

func TestEngine_BlockedMoveIsRecorded(t *testing.T) {
	e := newTestEngine(t, "start")
	res, err := e.Tick(Input{Direction: Up})
	require.NoError(t, err)
	assert.False(t, res.Moved)
	assert.NotEmpty(t, res.MoveError)

	hist := e.MoveHistory()
	require.Len(t, hist, 1)
	assert.False(t, hist[0].Success)
	assert.Equal(t, hist[0].FromPosition, hist[0].ToPosition)
	assert.Equal(t, 1, hist[0].MoveNumber)
}

func TestEngine_ConsoleAndHack(t *testing.T) {
	e := newTestEngine(t, "lab")
	keyAt := Coord{2, 0}

	assert.ErrorIs(t, e.Hack(keyAt, "color", "red"), ErrConsoleDisabled)

	_, err := e.Tick(Input{Direction: Right})
	require.NoError(t, err)
	require.True(t, e.ConsoleEnabled())

	require.NoError(t, e.Hack(keyAt, "color", "red"))
	assert.Equal(t, Red, e.Grid().At(keyAt).Color())

	assert.ErrorIs(t, e.Hack(keyAt, "symbol", "x"), ErrInvalidHackTarget)
	assert.ErrorIs(t, e.Hack(Coord{9, 9}, "color", "red"), ErrOutOfBounds)
}

func TestEngine_DisableConsoleLevel(t *testing.T) {
	e := newTestEngine(t, "lab")
	e.SetConsole(true)

	require.NoError(t, e.LoadLevel("start"))
	assert.False(t, e.ConsoleEnabled())
}

func TestEngine_DynamicEntitiesRunOncePerTick(t *testing.T) {
	e := newTestEngine(t, "chase")

	_, err := e.Tick(Input{})
	require.NoError(t, err)

	at, err := e.Grid().Find(func(ent Entity) bool { return ent.Kind() == KindAllyDrone })
	require.NoError(t, err)
	assert.Equal(t, Coord{1, 0}, at, "one step even though it moved ahead in scan order")
	assert.Empty(t, e.MoveHistory(), "waiting is not a move")
}

func TestEngine_RestartLevel(t *testing.T) {
	e := newTestEngine(t, "lab")
	_, err := e.Tick(Input{Direction: Down})
	require.NoError(t, err)
	require.Len(t, e.CurrentMoves(), 1)

	require.NoError(t, e.RestartLevel())
	_, at, err := e.Player()
	require.NoError(t, err)
	assert.Equal(t, Coord{0, 0}, at)
	assert.Empty(t, e.CurrentMoves())
	assert.Equal(t, 1, e.TotalMoves())
}

func TestEngine_FailedTransitionKeepsLevel(t *testing.T) {
	e := newTestEngine(t, "broken")
	res, err := e.Tick(Input{Direction: Right})
	assert.ErrorIs(t, err, ErrLevelNotFound)
	assert.False(t, res.LevelChanged)
	assert.Equal(t, "broken", e.LevelName())
}

func TestEngine_State(t *testing.T) {
	e := newTestEngine(t, "lab")
	_, err := e.Tick(Input{Direction: Right})
	require.NoError(t, err)

	st := e.State()
	assert.Equal(t, "lab", st.Level)
	assert.Equal(t, 6, st.Width)
	assert.Equal(t, 4, st.Height)
	require.Len(t, st.Rows, 4)
	assert.Equal(t, " ▶k   ", st.Rows[0])
	assert.True(t, st.ConsoleEnabled)
	assert.NotEmpty(t, st.Fingerprint)

	require.NotNil(t, st.Player)
	assert.Equal(t, Coord{1, 0}, st.Player.Position)
	require.Len(t, st.Player.Inventory, 1)
	assert.Equal(t, KindComputer, st.Player.Inventory[0].Kind)
	assert.Equal(t, &Coord{2, 0}, st.Player.LookingAt)

	kinds := map[Kind]int{}
	for _, ev := range st.Entities {
		kinds[ev.Kind]++
	}
	assert.Equal(t, map[Kind]int{KindPlayer: 1, KindSmallKey: 1}, kinds)
}
