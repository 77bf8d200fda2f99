package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// KeyDoor lets through whatever collides with it while carrying an item of
// kind required_key_name. The allow-set is rebuilt on every collision, so a
// collider without the key locks the door again for everyone.
type KeyDoor struct {
	Base
	keyName Kind
}

func NewKeyDoor(ids IDSource) *KeyDoor {
	d := &KeyDoor{keyName: KindSmallKey}
	d.init(ids, KindKeyDoor, TypeDynamic, '⌻', Color{255, 200, 100}, PassableFor())
	d.register("required_key_name", func() string { return string(d.keyName) }, kindSetter(&d.keyName))
	return d
}

func (d *KeyDoor) RequiredKey() Kind { return d.keyName }

func (d *KeyDoor) OnCollisionWith(_ *Grid, collider Entity) []Signal {
	d.passage.Reset()
	if inv := InventoryOf(collider); inv != nil && inv.Has(d.keyName) {
		d.passage.Grant(collider.Kind())
	}
	return nil
}

// ColoredDoor grants or revokes passage per colliding kind depending on
// whether the collider carries a required_key_name item of the door's color.
type ColoredDoor struct {
	Base
	keyName Kind
}

func NewColoredDoor(ids IDSource) *ColoredDoor {
	d := &ColoredDoor{}
	d.setup(ids, KindColoredDoor)
	return d
}

func (d *ColoredDoor) setup(ids IDSource, kind Kind) {
	d.keyName = KindSmallKey
	d.init(ids, kind, TypeDynamic, '⌻', Red, PassableFor())
	d.register("required_key_name", func() string { return string(d.keyName) }, kindSetter(&d.keyName))
}

func (d *ColoredDoor) RequiredKey() Kind { return d.keyName }

func (d *ColoredDoor) OnCollisionWith(_ *Grid, collider Entity) []Signal {
	if inv := InventoryOf(collider); inv != nil && inv.HasColored(d.keyName, d.color) {
		d.passage.Grant(collider.Kind())
	} else {
		d.passage.Revoke(collider.Kind())
	}
	return nil
}

// ChangingColoredDoor is a ColoredDoor whose color advances through
// color_queue once per tick, wrapping around.
type ChangingColoredDoor struct {
	ColoredDoor
	queue []Color
	index int
}

func NewChangingColoredDoor(ids IDSource) *ChangingColoredDoor {
	d := &ChangingColoredDoor{queue: []Color{White, Green, Red}}
	d.setup(ids, KindChangingColoredDoor)
	d.register("color_queue", func() string {
		names := make([]string, len(d.queue))
		for i, c := range d.queue {
			names[i] = c.String()
		}
		return strings.Join(names, " ")
	}, func(v string) error {
		fields := strings.Fields(v)
		if len(fields) == 0 {
			return fmt.Errorf("%w: color_queue is empty", ErrInvalidValue)
		}
		queue := make([]Color, 0, len(fields))
		for _, f := range fields {
			c, err := ParseColor(f)
			if err != nil {
				return err
			}
			queue = append(queue, c)
		}
		d.queue = queue
		d.index %= len(queue)
		return nil
	})
	d.register("color_index", func() string { return strconv.Itoa(d.index) }, func(v string) error {
		i, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || i < 0 || i >= len(d.queue) {
			return fmt.Errorf("%w: color_index %q for queue of %d", ErrInvalidValue, v, len(d.queue))
		}
		d.index = i
		return nil
	})
	return d
}

func (d *ChangingColoredDoor) ColorQueue() []Color {
	out := make([]Color, len(d.queue))
	copy(out, d.queue)
	return out
}

func (d *ChangingColoredDoor) ColorIndex() int { return d.index }

func (d *ChangingColoredDoor) Behavior(*Grid, Input) []Signal {
	if len(d.queue) == 0 {
		return nil
	}
	d.index = (d.index + 1) % len(d.queue)
	d.color = d.queue[d.index]
	return nil
}

func kindSetter(dst *Kind) func(string) error {
	return func(v string) error {
		k, err := ParseKind(v)
		if err != nil {
			return err
		}
		*dst = k
		return nil
	}
}
