package engine

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
)

// Entity is implemented by every object that can occupy a grid cell. The
// interface is sealed: only types embedding Base satisfy it.
//
// Entities never store their coordinates. A position is derived from the
// grid's identity index (Grid.Locate).
type Entity interface {
	ID() int
	Kind() Kind
	Type() Type
	Symbol() rune
	Color() Color
	Passage() *Passage
	Replaceable() bool
	Stacked() Entity
	SetStacked(Entity)

	// Hackable returns the attributes the console is allowed to overwrite.
	Hackable() []string
	// Attr reads any registered attribute.
	Attr(name string) (string, error)
	// Set overwrites a hackable attribute. Attributes outside the allow-list
	// are rejected with ErrInvalidHackTarget and nothing changes.
	Set(name, value string) error

	// OnCollisionWith runs when this entity moves into collider or collider
	// moves into it.
	OnCollisionWith(g *Grid, collider Entity) []Signal
	// Behavior runs once per tick for the player and for dynamic entities.
	Behavior(g *Grid, in Input) []Signal

	base() *Base
}

// IDSource hands out entity identities. *Grid implements it.
type IDSource interface {
	NextID() int
}

type attribute struct {
	get func() string
	set func(string) error
}

// Base carries the state shared by all entity variants.
type Base struct {
	id          int
	kind        Kind
	typ         Type
	symbol      rune
	color       Color
	passage     Passage
	replaceable bool
	stacked     Entity
	hackable    []string

	attrs     map[string]attribute
	attrOrder []string
}

func (b *Base) init(ids IDSource, kind Kind, typ Type, symbol rune, color Color, passage Passage) {
	b.id = ids.NextID()
	b.kind = kind
	b.typ = typ
	b.symbol = symbol
	b.color = color
	b.passage = passage
	b.attrs = make(map[string]attribute)

	b.register("color", func() string { return b.color.String() }, func(v string) error {
		c, err := ParseColor(v)
		if err != nil {
			return err
		}
		b.color = c
		return nil
	})
	b.register("symbol", func() string { return string(b.symbol) }, func(v string) error {
		r := []rune(v)
		if len(r) != 1 {
			return fmt.Errorf("%w: symbol must be a single glyph, got %q", ErrInvalidValue, v)
		}
		b.symbol = r[0]
		return nil
	})
	b.register("passable_for", b.passage.String, func(v string) error {
		p, err := ParsePassage(v)
		if err != nil {
			return err
		}
		b.passage = p
		return nil
	})
	b.register("replaceable", func() string { return strconv.FormatBool(b.replaceable) }, func(v string) error {
		r, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		b.replaceable = r
		return nil
	})
	b.register("hackable", func() string { return strings.Join(b.hackable, ",") }, func(v string) error {
		b.hackable = splitList(v)
		return nil
	})
}

func (b *Base) register(name string, get func() string, set func(string) error) {
	if _, ok := b.attrs[name]; !ok {
		b.attrOrder = append(b.attrOrder, name)
	}
	b.attrs[name] = attribute{get: get, set: set}
}

func (b *Base) base() *Base { return b }

func (b *Base) ID() int { return b.id }
func (b *Base) Kind() Kind { return b.kind }
func (b *Base) Type() Type { return b.typ }
func (b *Base) Symbol() rune { return b.symbol }
func (b *Base) Color() Color { return b.color }
func (b *Base) Passage() *Passage { return &b.passage }
func (b *Base) Replaceable() bool { return b.replaceable }
func (b *Base) Stacked() Entity { return b.stacked }
func (b *Base) SetStacked(e Entity) { b.stacked = e }

func (b *Base) Hackable() []string {
	return slices.Clone(b.hackable)
}

func (b *Base) Attr(name string) (string, error) {
	a, ok := b.attrs[name]
	if !ok {
		return "", fmt.Errorf("%w: %s has no attribute %q", ErrUnknownAttribute, b.kind, name)
	}
	return a.get(), nil
}

func (b *Base) Set(name, value string) error {
	if !slices.Contains(b.hackable, name) {
		return fmt.Errorf("%w: %s.%s", ErrInvalidHackTarget, b.kind, name)
	}
	return b.setAttr(name, value)
}

func (b *Base) setAttr(name, value string) error {
	a, ok := b.attrs[name]
	if !ok || a.set == nil {
		return fmt.Errorf("%w: %s has no attribute %q", ErrUnknownAttribute, b.kind, name)
	}
	if err := a.set(value); err != nil {
		return fmt.Errorf("set %s.%s: %w", b.kind, name, err)
	}
	return nil
}

func (b *Base) OnCollisionWith(*Grid, Entity) []Signal { return nil }

func (b *Base) Behavior(*Grid, Input) []Signal { return nil }

// Configure applies attributes without consulting the hackable allow-list.
// Level loaders use it; the console goes through Entity.Set.
func Configure(e Entity, params map[string]string) error {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k != "hackable" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	// hackable goes last so the allow-list never gates the loader's own writes.
	if _, ok := params["hackable"]; ok {
		keys = append(keys, "hackable")
	}
	for _, k := range keys {
		if err := e.base().setAttr(k, params[k]); err != nil {
			return err
		}
	}
	return nil
}

// Attributes returns every readable attribute of e in registration order.
func Attributes(e Entity) []AttrValue {
	b := e.base()
	out := make([]AttrValue, 0, len(b.attrOrder))
	for _, name := range b.attrOrder {
		out = append(out, AttrValue{
			Name:     name,
			Value:    b.attrs[name].get(),
			Hackable: slices.Contains(b.hackable, name),
		})
	}
	return out
}

// AttrValue is a read-only view of one attribute.
type AttrValue struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Hackable bool   `json:"hackable"`
}

// Passage is an entity's passable_for rule: either everything may enter the
// cell, or only the listed kinds.
type Passage struct {
	all   bool
	kinds map[Kind]bool
}

// PassableForAll lets every kind enter.
func PassableForAll() Passage {
	return Passage{all: true}
}

// PassableFor lets only the given kinds enter. No kinds means impassable.
func PassableFor(kinds ...Kind) Passage {
	p := Passage{kinds: make(map[Kind]bool, len(kinds))}
	for _, k := range kinds {
		p.kinds[k] = true
	}
	return p
}

// ParsePassage reads "all", "none" (or an empty string), or a comma
// separated kind list.
func ParsePassage(s string) (Passage, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "all") {
		return PassableForAll(), nil
	}
	if strings.EqualFold(s, "none") {
		return PassableFor(), nil
	}
	var kinds []Kind
	for _, name := range splitList(s) {
		k, err := ParseKind(name)
		if err != nil {
			return Passage{}, err
		}
		kinds = append(kinds, k)
	}
	return PassableFor(kinds...), nil
}

func (p *Passage) All() bool { return p.all }

// Allows reports whether an entity of kind k may move into the cell.
func (p *Passage) Allows(k Kind) bool {
	return p.all || p.kinds[k]
}

// Grant adds k to an explicit allow-set. It has no effect on "all".
func (p *Passage) Grant(k Kind) {
	if p.all {
		return
	}
	if p.kinds == nil {
		p.kinds = make(map[Kind]bool)
	}
	p.kinds[k] = true
}

// Revoke removes k from an explicit allow-set.
func (p *Passage) Revoke(k Kind) {
	delete(p.kinds, k)
}

// Reset turns the passage into an empty allow-set.
func (p *Passage) Reset() {
	p.all = false
	p.kinds = make(map[Kind]bool)
}

// Kinds returns the allowed kinds sorted by name; nil for "all".
func (p *Passage) Kinds() []Kind {
	if p.all {
		return nil
	}
	out := make([]Kind, 0, len(p.kinds))
	for k := range p.kinds {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

func (p *Passage) String() string {
	if p.all {
		return "all"
	}
	names := make([]string, 0, len(p.kinds))
	for _, k := range p.Kinds() {
		names = append(names, string(k))
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ",")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
