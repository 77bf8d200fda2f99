package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies an entity variant. The set is closed: every Kind has exactly
// one constructor registered in the factory table.
type Kind string

const (
	KindEmpty               Kind = "empty"
	KindWall                Kind = "wall"
	KindPlayer              Kind = "player"
	KindItem                Kind = "item"
	KindSmallKey            Kind = "small_key"
	KindBigKey              Kind = "big_key"
	KindKeyDoor             Kind = "key_door"
	KindColoredDoor         Kind = "colored_door"
	KindChangingColoredDoor Kind = "changing_colored_door"
	KindAllyDrone           Kind = "ally_drone"
	KindComputer            Kind = "computer"
	KindMazeGenerator       Kind = "maze_generator"
	KindExit                Kind = "exit"
	KindFluxBarrier         Kind = "flux_barrier"
)

// Kinds lists every entity kind in a stable order.
var Kinds = []Kind{
	KindEmpty, KindWall, KindPlayer, KindItem, KindSmallKey, KindBigKey,
	KindKeyDoor, KindColoredDoor, KindChangingColoredDoor, KindAllyDrone,
	KindComputer, KindMazeGenerator, KindExit, KindFluxBarrier,
}

// ParseKind accepts the snake_case kind name as well as the CamelCase class
// names used by older level files ("SmallKey", "Wall").
func ParseKind(s string) (Kind, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	for _, k := range Kinds {
		if string(k) == norm || strings.ReplaceAll(string(k), "_", "") == norm {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Type governs whether the tick driver invokes an entity's behavior.
type Type int

const (
	TypeStatic Type = iota
	TypeDynamic
	TypePlayer
)

func (t Type) String() string {
	switch t {
	case TypeStatic:
		return "static"
	case TypeDynamic:
		return "dynamic"
	case TypePlayer:
		return "player"
	default:
		return "unknown"
	}
}

// Coord is an (x, y) grid coordinate. X grows to the right, Y grows downward.
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Step returns the adjacent coordinate in the given direction. An invalid
// direction returns c unchanged; check Direction.Valid first.
func (c Coord) Step(d Direction) Coord {
	switch d {
	case Up:
		return Coord{c.X, c.Y - 1}
	case Down:
		return Coord{c.X, c.Y + 1}
	case Left:
		return Coord{c.X - 1, c.Y}
	case Right:
		return Coord{c.X + 1, c.Y}
	}
	return c
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// Direction is one of the four cardinal directions.
type Direction string

const (
	Up    Direction = "up"
	Down  Direction = "down"
	Left  Direction = "left"
	Right Direction = "right"
)

// Directions lists the cardinal directions in a stable order.
var Directions = []Direction{Up, Down, Left, Right}

// Valid reports whether d is one of the four cardinal directions.
func (d Direction) Valid() bool {
	switch d {
	case Up, Down, Left, Right:
		return true
	}
	return false
}

// ParseDirection accepts full names and the single-letter forms u/d/l/r.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "u":
		return Up, nil
	case "down", "d":
		return Down, nil
	case "left", "l":
		return Left, nil
	case "right", "r":
		return Right, nil
	}
	return "", fmt.Errorf("%w: invalid direction %q", ErrInvalidValue, s)
}

// Input is the signal handed to behaviors once per tick. A zero Input means
// no key was pressed; dynamic entities still act.
type Input struct {
	Direction Direction `json:"direction,omitempty"`
}

// Color is an RGB triple.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

var (
	Black   = Color{0, 0, 0}
	DGray   = Color{10, 10, 10}
	MDGray  = Color{30, 30, 30}
	White   = Color{255, 255, 255}
	Orange  = Color{255, 100, 0}
	Magenta = Color{255, 0, 255}
	Yellow  = Color{255, 255, 0}
	Red     = Color{255, 0, 0}
	Green   = Color{0, 255, 0}
	Blue    = Color{0, 0, 255}
	Aqua    = Color{0, 255, 255}
	Navy    = Color{0, 0, 56}
	Scarlet = Color{255, 51, 0}
)

// Palette maps color names accepted in level files and console commands.
var Palette = map[string]Color{
	"black":   Black,
	"d_gray":  DGray,
	"md_gray": MDGray,
	"white":   White,
	"orange":  Orange,
	"magenta": Magenta,
	"yellow":  Yellow,
	"red":     Red,
	"green":   Green,
	"blue":    Blue,
	"aqua":    Aqua,
	"navy":    Navy,
	"scarlet": Scarlet,
}

// ParseColor accepts a palette name, "#rrggbb", or "r,g,b".
func ParseColor(s string) (Color, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := Palette[s]; ok {
		return c, nil
	}
	if strings.HasPrefix(s, "#") && len(s) == 7 {
		v, err := strconv.ParseUint(s[1:], 16, 32)
		if err == nil {
			return Color{uint8(v >> 16), uint8(v >> 8), uint8(v)}, nil
		}
	}
	s = strings.Trim(s, "()[] ")
	parts := strings.Split(s, ",")
	if len(parts) == 3 {
		var rgb [3]uint8
		for i, p := range parts {
			v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 8)
			if err != nil {
				return Color{}, fmt.Errorf("%w: color component %q", ErrInvalidValue, p)
			}
			rgb[i] = uint8(v)
		}
		return Color{rgb[0], rgb[1], rgb[2]}, nil
	}
	return Color{}, fmt.Errorf("%w: color %q", ErrInvalidValue, s)
}

// Hex returns the color as "#rrggbb".
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// String returns the palette name when there is one, otherwise the hex form.
func (c Color) String() string {
	for _, name := range paletteOrder {
		if Palette[name] == c {
			return name
		}
	}
	return c.Hex()
}

var paletteOrder = []string{
	"black", "d_gray", "md_gray", "white", "orange", "magenta", "yellow",
	"red", "green", "blue", "aqua", "navy", "scarlet",
}

// SignalKind names a notification raised by the core for the tick driver.
type SignalKind string

const (
	SignalLevelTransition SignalKind = "level_transition"
	SignalConsole         SignalKind = "console"
	SignalPickup          SignalKind = "pickup"
	SignalInventoryFull   SignalKind = "inventory_full"
)

// Signal is returned from collision handlers and behaviors instead of being
// posted to a global queue. Target carries the level name for transitions and
// the item kind for pickups; On is set for console toggles.
type Signal struct {
	Kind   SignalKind `json:"kind"`
	Target string     `json:"target,omitempty"`
	On     bool       `json:"on,omitempty"`
}
