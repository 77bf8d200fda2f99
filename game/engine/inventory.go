package engine

import (
	"fmt"
	"strings"
)

// Inventory is an ordered sequence of carried entities. A negative limit
// means unbounded; a limit of zero holds nothing.
type Inventory struct {
	items []Entity
	limit int
}

// Unbounded is the limit of an inventory that never fills up.
const Unbounded = -1

func NewInventory(limit int) *Inventory {
	return &Inventory{limit: limit}
}

// Items returns a copy of the carried entities in pickup order.
func (inv *Inventory) Items() []Entity {
	out := make([]Entity, len(inv.items))
	copy(out, inv.items)
	return out
}

func (inv *Inventory) Len() int { return len(inv.items) }
func (inv *Inventory) Limit() int { return inv.limit }

// Push appends e. It fails with ErrInventoryFull, changing nothing, once the
// limit is reached.
func (inv *Inventory) Push(e Entity) error {
	if inv.limit >= 0 && len(inv.items) >= inv.limit {
		return fmt.Errorf("%w: %d/%d", ErrInventoryFull, len(inv.items), inv.limit)
	}
	inv.items = append(inv.items, e)
	return nil
}

// Has reports whether an item of kind k is carried.
func (inv *Inventory) Has(k Kind) bool {
	for _, it := range inv.items {
		if it.Kind() == k {
			return true
		}
	}
	return false
}

// HasColored reports whether an item of kind k with color c is carried.
func (inv *Inventory) HasColored(k Kind, c Color) bool {
	for _, it := range inv.items {
		if it.Kind() == k && it.Color() == c {
			return true
		}
	}
	return false
}

// PopFirst removes and returns the oldest item, or nil when empty.
func (inv *Inventory) PopFirst() Entity {
	if len(inv.items) == 0 {
		return nil
	}
	first := inv.items[0]
	inv.items = inv.items[1:]
	return first
}

// Remove drops every item whose kind is in kinds and returns how many went.
func (inv *Inventory) Remove(kinds ...Kind) int {
	drop := make(map[Kind]bool, len(kinds))
	for _, k := range kinds {
		drop[k] = true
	}
	kept := inv.items[:0]
	removed := 0
	for _, it := range inv.items {
		if drop[it.Kind()] {
			removed++
			continue
		}
		kept = append(kept, it)
	}
	inv.items = kept
	return removed
}

func (inv *Inventory) String() string {
	names := make([]string, len(inv.items))
	for i, it := range inv.items {
		names[i] = string(it.Kind())
	}
	return strings.Join(names, ",")
}

// Carrier is implemented by entities that hold an inventory.
type Carrier interface {
	Entity
	Inventory() *Inventory
}

// InventoryOf returns e's inventory, or nil when e carries nothing.
func InventoryOf(e Entity) *Inventory {
	if c, ok := e.(Carrier); ok {
		return c.Inventory()
	}
	return nil
}
