package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// Empty is floor: passable by everything and always replaceable.
type Empty struct{ Base }

func NewEmpty(ids IDSource) *Empty {
	e := &Empty{}
	e.init(ids, KindEmpty, TypeStatic, ' ', White, PassableForAll())
	e.replaceable = true
	return e
}

// Wall blocks everything.
type Wall struct{ Base }

func NewWall(ids IDSource) *Wall {
	w := &Wall{}
	w.init(ids, KindWall, TypeStatic, '#', White, PassableFor())
	return w
}

// Item is a pickable entity. SmallKey and BigKey are Items with their own
// kind and glyph; the color is what colored doors match against.
type Item struct{ Base }

func newItem(ids IDSource, kind Kind, symbol rune) *Item {
	it := &Item{}
	it.init(ids, kind, TypeStatic, symbol, White, PassableForAll())
	return it
}

func NewItem(ids IDSource) *Item { return newItem(ids, KindItem, '*') }
func NewSmallKey(ids IDSource) *Item { return newItem(ids, KindSmallKey, 'k') }
func NewBigKey(ids IDSource) *Item { return newItem(ids, KindBigKey, 'K') }

func (it *Item) OnCollisionWith(g *Grid, collider Entity) []Signal {
	sigs, _ := pickUp(g, it, collider)
	return sigs
}

// pickUp moves self into the colliding player's inventory and forces a fresh
// Empty into the cell self occupied. A full inventory leaves self in place.
func pickUp(g *Grid, self, collider Entity) ([]Signal, bool) {
	if collider.Kind() != KindPlayer {
		return nil, false
	}
	p, ok := collider.(*Player)
	if !ok {
		return nil, false
	}
	if err := p.PushInventory(self); err != nil {
		return []Signal{{Kind: SignalInventoryFull, Target: string(self.Kind())}}, false
	}
	if c, err := g.Locate(self.ID()); err == nil {
		_ = g.PlaceForced(c, NewEmpty(g))
	}
	return []Signal{{Kind: SignalPickup, Target: string(self.Kind())}}, true
}

// Computer is an item only the player can step on. Picking it up enables
// the console.
type Computer struct{ Item }

func NewComputer(ids IDSource) *Computer {
	c := &Computer{}
	c.init(ids, KindComputer, TypeStatic, '@', White, PassableFor(KindPlayer))
	return c
}

func (c *Computer) OnCollisionWith(g *Grid, collider Entity) []Signal {
	sigs, ok := pickUp(g, c, collider)
	if ok {
		sigs = append(sigs, Signal{Kind: SignalConsole, On: true})
	}
	return sigs
}

// Exit requests a level transition when the player bumps into it.
type Exit struct {
	Base
	target string
}

func NewExit(ids IDSource) *Exit {
	e := &Exit{target: "level1"}
	e.init(ids, KindExit, TypeDynamic, '⌼', Color{100, 100, 255}, PassableFor(KindPlayer))
	e.register("target_level", func() string { return e.target }, func(v string) error {
		v = strings.TrimSpace(v)
		if v == "" {
			return fmt.Errorf("%w: target_level is empty", ErrInvalidValue)
		}
		e.target = v
		return nil
	})
	return e
}

func (e *Exit) TargetLevel() string { return e.target }

func (e *Exit) OnCollisionWith(_ *Grid, collider Entity) []Signal {
	if collider.Kind() != KindPlayer {
		return nil
	}
	return []Signal{{Kind: SignalLevelTransition, Target: e.target}}
}

// FluxBarrier strips the listed item kinds from anything passing through.
type FluxBarrier struct {
	Base
	removed []Kind
}

func NewFluxBarrier(ids IDSource) *FluxBarrier {
	f := &FluxBarrier{}
	f.init(ids, KindFluxBarrier, TypeDynamic, '⍂', Color{200, 100, 255}, PassableForAll())
	f.register("items_removed", func() string { return joinKinds(f.removed) }, func(v string) error {
		kinds, err := parseKinds(v)
		if err != nil {
			return err
		}
		f.removed = kinds
		return nil
	})
	return f
}

func (f *FluxBarrier) OnCollisionWith(_ *Grid, collider Entity) []Signal {
	if inv := InventoryOf(collider); inv != nil && len(f.removed) > 0 {
		inv.Remove(f.removed...)
	}
	return nil
}

// Player is the input-driven entity.
type Player struct {
	Base
	inventory *Inventory
	lookingAt *Coord

	last    Outcome
	lastErr error
}

var facing = map[Direction]rune{Up: '▲', Down: '▼', Left: '◀', Right: '▶'}

// DefaultInventorySize is the player's max_inventory_size unless a level
// overrides it.
const DefaultInventorySize = 3

func NewPlayer(ids IDSource) *Player {
	p := &Player{inventory: NewInventory(DefaultInventorySize)}
	p.init(ids, KindPlayer, TypePlayer, '▲', Color{0, 255, 100}, PassableFor())
	p.stacked = NewEmpty(ids)
	p.register("max_inventory_size", func() string { return strconv.Itoa(p.inventory.limit) }, func(v string) error {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n < 0 {
			return fmt.Errorf("%w: max_inventory_size %q", ErrInvalidValue, v)
		}
		p.inventory.limit = n
		return nil
	})
	p.register("inventory", p.inventory.String, nil)
	p.register("looking_at", func() string {
		if p.lookingAt == nil {
			return ""
		}
		return fmt.Sprintf("%d,%d", p.lookingAt.X, p.lookingAt.Y)
	}, nil)
	return p
}

func (p *Player) Inventory() *Inventory { return p.inventory }

// PushInventory adds item to the inventory; see Inventory.Push.
func (p *Player) PushInventory(item Entity) error {
	return p.inventory.Push(item)
}

// Has reports whether the player carries an item of kind k.
func (p *Player) Has(k Kind) bool { return p.inventory.Has(k) }

// LookingAt returns the cell the player faced after its last move attempt.
func (p *Player) LookingAt() (Coord, bool) {
	if p.lookingAt == nil {
		return Coord{}, false
	}
	return *p.lookingAt, true
}

// LastMove returns the outcome of the most recent Behavior call.
func (p *Player) LastMove() (Outcome, error) { return p.last, p.lastErr }

// Behavior moves the player one cell in the input direction and turns it to
// face that way. A zero input does nothing; an invalid one is recorded as a
// failed move without turning the player.
func (p *Player) Behavior(g *Grid, in Input) []Signal {
	if in.Direction == "" {
		p.last, p.lastErr = Outcome{}, nil
		return nil
	}
	p.last, p.lastErr = g.Move(p, in.Direction)
	if !in.Direction.Valid() {
		return nil
	}
	p.symbol = facing[in.Direction]
	if c, err := g.Locate(p.ID()); err == nil {
		next := c.Step(in.Direction)
		p.lookingAt = &next
	}
	return p.last.Signals
}

func parseKinds(s string) ([]Kind, error) {
	var out []Kind
	for _, name := range splitList(s) {
		k, err := ParseKind(name)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, nil
}

func joinKinds(kinds []Kind) string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ",")
}
