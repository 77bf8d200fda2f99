package engine

import "fmt"

// Outcome describes one resolved move attempt.
type Outcome struct {
	Moved   bool     `json:"moved"`
	From    Coord    `json:"from"`
	To      Coord    `json:"to"`
	Signals []Signal `json:"signals,omitempty"`
}

// Move resolves a move of mover one cell in direction dir.
//
// Both collision callbacks run before passability is checked, mover first,
// so a door can inspect the bumping entity even when the attempt fails. The
// destination's passage is re-read after the callbacks. A refused move
// returns ErrBlocked and leaves the grid as the callbacks left it.
func (g *Grid) Move(mover Entity, dir Direction) (Outcome, error) {
	from, err := g.Locate(mover.ID())
	if err != nil {
		return Outcome{}, err
	}
	if !dir.Valid() {
		return Outcome{From: from, To: from}, fmt.Errorf("%w: %q", ErrInvalidDirection, dir)
	}
	to := from.Step(dir)
	out := Outcome{From: from, To: to}
	if !g.InBounds(to) {
		return out, fmt.Errorf("%w: %s moving %s from %s", ErrOutOfBounds, mover.Kind(), dir, from)
	}

	dest := g.cells[to.X][to.Y]
	if dest != nil {
		out.Signals = append(out.Signals, mover.OnCollisionWith(g, dest)...)
		out.Signals = append(out.Signals, dest.OnCollisionWith(g, mover)...)
		if !dest.Passage().Allows(mover.Kind()) {
			return out, fmt.Errorf("%w: %s cannot enter %s at %s", ErrBlocked, mover.Kind(), dest.Kind(), to)
		}
	}

	// a callback may have moved or removed the mover
	if cur := g.cells[from.X][from.Y]; cur == nil || cur.ID() != mover.ID() {
		return out, fmt.Errorf("%w: %s left %s during collision", ErrBlocked, mover.Kind(), from)
	}
	if err := g.Push(from, to); err != nil {
		return out, err
	}
	out.Moved = true
	return out, nil
}
