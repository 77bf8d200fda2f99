package console

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/mcp-training/gridhack/game/engine"
)

func newTestEngine(t *testing.T) *engine.GameEngine {
	t.Helper()
	levels := engine.StaticLevels{
		"lab": {
			Name:   "lab",
			Layout: []string{"p.k", "..."},
			Legend: map[string]engine.LegendEntry{
				"p": {Kind: "player"},
				".": {Kind: "empty"},
				"k": {Kind: "small_key", Hackable: []string{"color"}},
			},
		},
	}
	eng, err := engine.NewEngine(levels, 3, 2, "lab")
	require.NoError(t, err)
	return eng
}

func TestExecute_DisabledConsole(t *testing.T) {
	eng := newTestEngine(t)

	out, err := Execute(eng, "help")
	require.NoError(t, err, "help works without the console")
	assert.Contains(t, out, "inspect X Y")

	for _, line := range []string{"ls", "inspect 2 0", "set 2 0 color red"} {
		_, err := Execute(eng, line)
		assert.ErrorIs(t, err, engine.ErrConsoleDisabled, line)
	}
}

func TestExecute_ListAndInspect(t *testing.T) {
	eng := newTestEngine(t)
	eng.SetConsole(true)

	out, err := Execute(eng, "ls")
	require.NoError(t, err)
	assert.Equal(t, "(2,0) small_key: color", out)

	out, err = Execute(eng, "INSPECT 2 0")
	require.NoError(t, err)
	assert.Contains(t, out, "(2,0) small_key")
	assert.Contains(t, out, "* color = ")
	assert.Contains(t, out, "  symbol = k")

	_, err = Execute(eng, "inspect 9 9")
	assert.ErrorIs(t, err, engine.ErrOutOfBounds)

	_, err = Execute(eng, "inspect a b")
	assert.ErrorIs(t, err, ErrUsage)

	_, err = Execute(eng, "inspect 1 1 extra")
	assert.ErrorIs(t, err, ErrUsage)
}

func TestExecute_Set(t *testing.T) {
	eng := newTestEngine(t)
	eng.SetConsole(true)

	out, err := Execute(eng, "set 2 0 color red")
	require.NoError(t, err)
	assert.Equal(t, "(2,0) small_key.color = red", out)
	assert.Equal(t, engine.Red, eng.Grid().At(engine.Coord{X: 2, Y: 0}).Color())

	_, err = Execute(eng, "set 2 0 symbol x")
	assert.ErrorIs(t, err, engine.ErrInvalidHackTarget)

	_, err = Execute(eng, "set 2 0 color")
	assert.ErrorIs(t, err, ErrUsage)

	_, err = Execute(eng, "set 2 0 color plaid")
	assert.ErrorIs(t, err, engine.ErrInvalidValue)
	assert.Equal(t, engine.Red, eng.Grid().At(engine.Coord{X: 2, Y: 0}).Color())
}

func TestExecute_BadCoordinatesShowUsage(t *testing.T) {
	eng := newTestEngine(t)
	eng.SetConsole(true)

	_, err := Execute(eng, "set a b color red")
	require.ErrorIs(t, err, ErrUsage)
	assert.Contains(t, err.Error(), "set X Y ATTR VALUE")

	_, err = Execute(eng, "inspect 1 y")
	require.ErrorIs(t, err, ErrUsage)
	assert.Contains(t, err.Error(), "inspect X Y")
}

func TestExecute_LookingAtShorthand(t *testing.T) {
	eng := newTestEngine(t)
	eng.SetConsole(true)

	_, err := Execute(eng, "inspect @")
	assert.ErrorIs(t, err, ErrNoTarget, "no move yet")

	_, err = eng.Tick(engine.Input{Direction: engine.Right})
	require.NoError(t, err)

	out, err := Execute(eng, "set @ color 0,0,255")
	require.NoError(t, err)
	assert.Contains(t, out, "(2,0) small_key.color")
	assert.Equal(t, engine.Blue, eng.Grid().At(engine.Coord{X: 2, Y: 0}).Color())
}

func TestExecute_UnknownAndEmpty(t *testing.T) {
	eng := newTestEngine(t)

	out, err := Execute(eng, "   ")
	assert.NoError(t, err)
	assert.Empty(t, out)

	_, err = Execute(eng, "rm -rf /")
	assert.ErrorIs(t, err, ErrUnknownCommand)
}
