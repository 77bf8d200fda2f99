package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// AllyDrone chases the player one cell per tick. When it meets the player it
// drops its first carried item, or an Empty, onto its own cell.
type AllyDrone struct {
	Base
	inventory *Inventory
}

func NewAllyDrone(ids IDSource) *AllyDrone {
	d := &AllyDrone{inventory: NewInventory(Unbounded)}
	d.init(ids, KindAllyDrone, TypeDynamic, '⌘', Green, PassableFor(KindPlayer))
	d.stacked = NewEmpty(ids)
	d.register("inventory", d.inventory.String, nil)
	return d
}

func (d *AllyDrone) Inventory() *Inventory { return d.inventory }

// StepToward returns the direction of a single greedy step from -> to. The x
// axis wins only when it is strictly farther than the y axis.
func StepToward(from, to Coord) Direction {
	dx, dy := from.X-to.X, from.Y-to.Y
	if abs(dx) > abs(dy) {
		if from.X > to.X {
			return Left
		}
		return Right
	}
	if from.Y > to.Y {
		return Up
	}
	return Down
}

func (d *AllyDrone) Behavior(g *Grid, _ Input) []Signal {
	_, target, err := g.Player()
	if err != nil {
		return nil
	}
	from, err := g.Locate(d.ID())
	if err != nil {
		return nil
	}
	out, _ := g.Move(d, StepToward(from, target))
	return out.Signals
}

func (d *AllyDrone) OnCollisionWith(g *Grid, collider Entity) []Signal {
	if collider.Kind() != KindPlayer {
		return nil
	}
	c, err := g.Locate(d.ID())
	if err != nil {
		return nil
	}
	var drop Entity = d.inventory.PopFirst()
	if drop == nil {
		drop = NewEmpty(g)
	}
	_ = g.PlaceForced(c, drop)
	return nil
}

// MazeGenerator rebuilds the maze in its working area every tick. Each cell
// of the half-open rectangle [x0,x1) x [y0,y1) gets a fresh maze_block,
// except cells on path, which get a fresh Empty, and the player's cell.
type MazeGenerator struct {
	Base
	area  *Rect
	block Kind
	path  *Path
}

// Rect is a half-open rectangle of grid cells.
type Rect struct {
	Min Coord `json:"min"`
	Max Coord `json:"max"`
}

// ParseRect reads "x0,y0,x1,y1".
func ParseRect(s string) (Rect, error) {
	parts := splitList(s)
	if len(parts) != 4 {
		return Rect{}, fmt.Errorf("%w: area %q, want x0,y0,x1,y1", ErrInvalidValue, s)
	}
	var n [4]int
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return Rect{}, fmt.Errorf("%w: area %q", ErrInvalidValue, s)
		}
		n[i] = v
	}
	return Rect{Min: Coord{n[0], n[1]}, Max: Coord{n[2], n[3]}}, nil
}

func (r Rect) String() string {
	return fmt.Sprintf("%d,%d,%d,%d", r.Min.X, r.Min.Y, r.Max.X, r.Max.Y)
}

// Path is a start cell followed by single steps, written "x,y:udlr".
type Path struct {
	Start Coord
	Steps []Direction
}

func ParsePath(s string) (Path, error) {
	start, steps, _ := strings.Cut(strings.TrimSpace(s), ":")
	parts := splitList(start)
	if len(parts) != 2 {
		return Path{}, fmt.Errorf("%w: path %q, want x,y:steps", ErrInvalidValue, s)
	}
	x, errX := strconv.Atoi(parts[0])
	y, errY := strconv.Atoi(parts[1])
	if errX != nil || errY != nil {
		return Path{}, fmt.Errorf("%w: path start %q", ErrInvalidValue, start)
	}
	p := Path{Start: Coord{x, y}}
	for _, r := range strings.TrimSpace(steps) {
		d, err := ParseDirection(string(r))
		if err != nil {
			return Path{}, err
		}
		p.Steps = append(p.Steps, d)
	}
	return p, nil
}

// Cells lists every cell the path visits, start included.
func (p Path) Cells() []Coord {
	out := []Coord{p.Start}
	c := p.Start
	for _, d := range p.Steps {
		c = c.Step(d)
		out = append(out, c)
	}
	return out
}

func (p Path) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d,%d:", p.Start.X, p.Start.Y)
	for _, d := range p.Steps {
		b.WriteByte(string(d)[0])
	}
	return b.String()
}

func NewMazeGenerator(ids IDSource) *MazeGenerator {
	m := &MazeGenerator{block: KindWall}
	m.init(ids, KindMazeGenerator, TypeDynamic, '&', Orange, PassableFor())
	m.register("working_area", func() string {
		if m.area == nil {
			return ""
		}
		return m.area.String()
	}, func(v string) error {
		r, err := ParseRect(v)
		if err != nil {
			return err
		}
		m.area = &r
		return nil
	})
	m.register("maze_block", func() string { return string(m.block) }, func(v string) error {
		k, err := ParseKind(v)
		if err != nil {
			return err
		}
		if k == KindPlayer {
			return fmt.Errorf("%w: maze_block cannot be %s", ErrInvalidValue, k)
		}
		m.block = k
		return nil
	})
	m.register("path", func() string {
		if m.path == nil {
			return ""
		}
		return m.path.String()
	}, func(v string) error {
		if strings.TrimSpace(v) == "" {
			m.path = nil
			return nil
		}
		p, err := ParsePath(v)
		if err != nil {
			return err
		}
		m.path = &p
		return nil
	})
	return m
}

func (m *MazeGenerator) Behavior(g *Grid, _ Input) []Signal {
	if m.area == nil {
		return nil
	}
	open := make(map[Coord]bool)
	if m.path != nil {
		for _, c := range m.path.Cells() {
			open[c] = true
		}
	}
	for x := m.area.Min.X; x < m.area.Max.X; x++ {
		for y := m.area.Min.Y; y < m.area.Max.Y; y++ {
			c := Coord{x, y}
			cur := g.At(c)
			if !g.InBounds(c) || (cur != nil && cur.Kind() == KindPlayer) {
				continue
			}
			var fresh Entity
			if open[c] {
				fresh = NewEmpty(g)
			} else {
				var err error
				if fresh, err = New(g, m.block); err != nil {
					return nil
				}
			}
			_ = g.PlaceForced(c, fresh)
		}
	}
	return nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
