package engine

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Grid is a fixed-size 2D array of entity slots indexed [x][y].
//
// The grid keeps an id -> coordinate index so Locate does not scan. When an
// entity instance occupies several cells (shared legend instances) the index
// holds the first occurrence in scan order, the same answer a full scan gives.
type Grid struct {
	width  int
	height int
	cells  [][]Entity

	nextID  int
	index   map[int]Coord
	refs    map[int]int
	players map[int]*Player
}

// NewGrid creates a grid with every cell unpopulated.
func NewGrid(width, height int) *Grid {
	cells := make([][]Entity, width)
	for x := range cells {
		cells[x] = make([]Entity, height)
	}
	return &Grid{
		width:   width,
		height:  height,
		cells:   cells,
		index:   make(map[int]Coord),
		refs:    make(map[int]int),
		players: make(map[int]*Player),
	}
}

// NextID returns a fresh entity identity.
func (g *Grid) NextID() int {
	g.nextID++
	return g.nextID
}

func (g *Grid) Width() int { return g.width }
func (g *Grid) Height() int { return g.height }

// InBounds reports whether c lies inside [0,width) x [0,height).
func (g *Grid) InBounds(c Coord) bool {
	return c.X >= 0 && c.X < g.width && c.Y >= 0 && c.Y < g.height
}

func (g *Grid) checkBounds(c Coord) error {
	if !g.InBounds(c) {
		return fmt.Errorf("%w: %s on %dx%d grid", ErrOutOfBounds, c, g.width, g.height)
	}
	return nil
}

// Get returns the occupant of c. A nil entity means the cell is unpopulated.
func (g *Grid) Get(c Coord) (Entity, error) {
	if err := g.checkBounds(c); err != nil {
		return nil, err
	}
	return g.cells[c.X][c.Y], nil
}

// At is Get for renderers: it returns nil for out-of-bounds coordinates.
func (g *Grid) At(c Coord) Entity {
	if !g.InBounds(c) {
		return nil
	}
	return g.cells[c.X][c.Y]
}

// Find returns the first cell, x ascending then y ascending, whose occupant
// satisfies pred.
func (g *Grid) Find(pred func(Entity) bool) (Coord, error) {
	for x := 0; x < g.width; x++ {
		for y := 0; y < g.height; y++ {
			if e := g.cells[x][y]; e != nil && pred(e) {
				return Coord{x, y}, nil
			}
		}
	}
	return Coord{}, ErrNotFound
}

// MatchAll returns every cell whose occupant satisfies pred, in scan order.
func (g *Grid) MatchAll(pred func(Entity) bool) []Coord {
	out := []Coord{}
	for x := 0; x < g.width; x++ {
		for y := 0; y < g.height; y++ {
			if e := g.cells[x][y]; e != nil && pred(e) {
				out = append(out, Coord{x, y})
			}
		}
	}
	return out
}

// Locate returns the position of the entity with the given id.
func (g *Grid) Locate(id int) (Coord, error) {
	c, ok := g.index[id]
	if !ok {
		return Coord{}, fmt.Errorf("%w: entity %d is not on the grid", ErrNotFound, id)
	}
	return c, nil
}

// Contains reports whether e currently occupies any cell.
func (g *Grid) Contains(e Entity) bool {
	if e == nil {
		return false
	}
	_, ok := g.index[e.ID()]
	return ok
}

// Place writes e into c only if the cell is unpopulated or its occupant is
// replaceable. It reports whether the write happened.
func (g *Grid) Place(c Coord, e Entity) (bool, error) {
	if err := g.checkBounds(c); err != nil {
		return false, err
	}
	if cur := g.cells[c.X][c.Y]; cur != nil && !cur.Replaceable() {
		return false, nil
	}
	g.set(c, e)
	return true, nil
}

// PlaceForced overwrites c unconditionally.
func (g *Grid) PlaceForced(c Coord, e Entity) error {
	if err := g.checkBounds(c); err != nil {
		return err
	}
	g.set(c, e)
	return nil
}

// Spawner is what a level loader hands to PlaceSpawn: either a concrete
// Instance or a Factory that builds a fresh entity per cell.
type Spawner interface {
	spawn(g *Grid) (Entity, error)
}

// Instance places the same entity every time it is spawned.
type Instance struct {
	Entity Entity
}

func (i Instance) spawn(*Grid) (Entity, error) { return i.Entity, nil }

// Factory builds a new entity each time it is spawned.
type Factory func(g *Grid) (Entity, error)

func (f Factory) spawn(g *Grid) (Entity, error) { return f(g) }

// PlaceSpawn is Place for loader-supplied spawners. The factory is only
// invoked when the cell accepts a write.
func (g *Grid) PlaceSpawn(c Coord, s Spawner) (bool, error) {
	if err := g.checkBounds(c); err != nil {
		return false, err
	}
	if cur := g.cells[c.X][c.Y]; cur != nil && !cur.Replaceable() {
		return false, nil
	}
	e, err := s.spawn(g)
	if err != nil {
		return false, err
	}
	g.set(c, e)
	return true, nil
}

// Swap exchanges the contents of a and b without touching stacked entities.
func (g *Grid) Swap(a, b Coord) error {
	if err := g.checkBounds(a); err != nil {
		return err
	}
	if err := g.checkBounds(b); err != nil {
		return err
	}
	ea, eb := g.cells[a.X][a.Y], g.cells[b.X][b.Y]
	g.set(a, eb)
	g.set(b, ea)
	return nil
}

// Push is the gameplay movement primitive. The occupant of from moves to to,
// from is restored to the mover's stacked entity, and whatever was at to
// becomes the mover's new stacked entity.
func (g *Grid) Push(from, to Coord) error {
	if err := g.checkBounds(from); err != nil {
		return err
	}
	if err := g.checkBounds(to); err != nil {
		return err
	}
	mover := g.cells[from.X][from.Y]
	if mover == nil {
		return fmt.Errorf("%w: nothing to push at %s", ErrNotFound, from)
	}
	target := g.cells[to.X][to.Y]
	under := mover.Stacked()
	if under == nil {
		under = NewEmpty(g)
	}

	// vacate first so a single-cell mover is re-indexed without a rescan
	g.set(from, under)
	g.set(to, mover)
	mover.SetStacked(target)
	return nil
}

// Neighbors returns the four cardinal neighbors of c without bounds checks.
func (g *Grid) Neighbors(c Coord) map[Direction]Coord {
	out := make(map[Direction]Coord, len(Directions))
	for _, d := range Directions {
		out[d] = c.Step(d)
	}
	return out
}

// Shift pushes the occupant of c one cell in direction d. It refuses moves
// that would leave the grid.
func (g *Grid) Shift(c Coord, d Direction) error {
	to := c.Step(d)
	if err := g.checkBounds(c); err != nil {
		return err
	}
	if err := g.checkBounds(to); err != nil {
		return err
	}
	return g.Push(c, to)
}

// Player returns the player entity and its position. It reads the identity
// index; with several players on the grid the first in scan order wins.
func (g *Grid) Player() (*Player, Coord, error) {
	var (
		found *Player
		at    Coord
	)
	for id, p := range g.players {
		c, ok := g.index[id]
		if !ok {
			continue
		}
		if found == nil || scanBefore(c, at) {
			found, at = p, c
		}
	}
	if found == nil {
		return nil, Coord{}, fmt.Errorf("player: %w", ErrNotFound)
	}
	return found, at, nil
}

// DynamicEntities returns the coordinates of every dynamic entity in scan
// order. The slice is a snapshot; callers re-read the cell before acting.
func (g *Grid) DynamicEntities() []Coord {
	return g.MatchAll(func(e Entity) bool { return e.Type() == TypeDynamic })
}

// Clear fills every cell with a fresh Empty.
func (g *Grid) Clear() {
	for x := 0; x < g.width; x++ {
		for y := 0; y < g.height; y++ {
			g.cells[x][y] = nil
		}
	}
	g.index = make(map[int]Coord)
	g.refs = make(map[int]int)
	g.players = make(map[int]*Player)
	for x := 0; x < g.width; x++ {
		for y := 0; y < g.height; y++ {
			g.set(Coord{x, y}, NewEmpty(g))
		}
	}
}

// Fingerprint hashes the visible state of the grid (kind, symbol and color of
// every cell). Two grids that render the same produce the same value.
// GameState carries a wider fingerprint that also covers attributes.
func (g *Grid) Fingerprint() uint64 {
	d := xxhash.New()
	var buf [8]byte
	for x := 0; x < g.width; x++ {
		for y := 0; y < g.height; y++ {
			e := g.cells[x][y]
			if e == nil {
				_, _ = d.Write([]byte{0})
				continue
			}
			_, _ = d.WriteString(string(e.Kind()))
			binary.LittleEndian.PutUint32(buf[:4], uint32(e.Symbol()))
			buf[4], buf[5], buf[6] = e.Color().R, e.Color().G, e.Color().B
			buf[7] = 0xff
			_, _ = d.Write(buf[:])
		}
	}
	return d.Sum64()
}

// set writes e into c and keeps the identity index consistent.
func (g *Grid) set(c Coord, e Entity) {
	if old := g.cells[c.X][c.Y]; old != nil {
		g.unindex(old, c)
	}
	g.cells[c.X][c.Y] = e
	if e == nil {
		return
	}
	id := e.ID()
	g.refs[id]++
	if p, ok := e.(*Player); ok {
		g.players[id] = p
	}
	if cur, ok := g.index[id]; !ok || scanBefore(c, cur) {
		g.index[id] = c
	}
}

func (g *Grid) unindex(e Entity, c Coord) {
	id := e.ID()
	g.refs[id]--
	if g.refs[id] <= 0 {
		delete(g.refs, id)
		delete(g.index, id)
		delete(g.players, id)
		return
	}
	if g.index[id] != c {
		return
	}
	// the indexed occurrence left; fall back to the next one in scan order
	delete(g.index, id)
	for x := 0; x < g.width; x++ {
		for y := 0; y < g.height; y++ {
			if (Coord{x, y}) == c {
				continue
			}
			if o := g.cells[x][y]; o != nil && o.ID() == id {
				g.index[id] = Coord{x, y}
				return
			}
		}
	}
}

func scanBefore(a, b Coord) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	return a.Y < b.Y
}
