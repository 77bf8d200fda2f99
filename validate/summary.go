package validate

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/wricardo/mcp-training/gridhack/game/engine"
)

// Summary is a human-oriented overview of a level as the player first sees
// it.
type Summary struct {
	Name        string
	Description string
	Width       int
	Height      int
	Next        string
	Player      engine.Coord
	Counts      map[engine.Kind]int
	Hackable    []HackTarget
	Exits       []ExitTarget
}

// HackTarget is an entity with at least one hackable attribute.
type HackTarget struct {
	At         engine.Coord
	Kind       engine.Kind
	Attributes []string
	Reach      Reach
}

// ExitTarget is an exit and where it leads.
type ExitTarget struct {
	At     engine.Coord
	Target string
	Reach  Reach
}

// Summarize builds cfg and describes its entities.
func Summarize(cfg *engine.LevelConfig) (*Summary, error) {
	if err := engine.ValidateLevelConfig(cfg); err != nil {
		return nil, err
	}
	g, start, err := settle(cfg)
	if err != nil {
		return nil, err
	}
	reach := Reachability(g, start)

	w, h := cfg.Size()
	s := &Summary{
		Name:        cfg.Name,
		Description: cfg.Description,
		Width:       w,
		Height:      h,
		Next:        cfg.Next,
		Player:      start,
		Counts:      make(map[engine.Kind]int),
	}

	all := g.MatchAll(func(engine.Entity) bool { return true })
	for _, c := range all {
		e := g.At(c)
		s.Counts[e.Kind()]++
		if hack := e.Hackable(); len(hack) > 0 {
			s.Hackable = append(s.Hackable, HackTarget{At: c, Kind: e.Kind(), Attributes: hack, Reach: reach[c]})
		}
		if exit, ok := e.(*engine.Exit); ok {
			s.Exits = append(s.Exits, ExitTarget{At: c, Target: exit.TargetLevel(), Reach: reach[c]})
		}
	}
	return s, nil
}

// Print writes the summary in a compact text form.
func (s *Summary) Print(w io.Writer) {
	fmt.Fprintf(w, "Name: %s\n", s.Name)
	if s.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", s.Description)
	}
	fmt.Fprintf(w, "Grid Size: %d x %d\n", s.Width, s.Height)
	fmt.Fprintf(w, "Player: %s\n", s.Player)
	if s.Next != "" {
		fmt.Fprintf(w, "Next: %s\n", s.Next)
	}

	kinds := make([]string, 0, len(s.Counts))
	for k := range s.Counts {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = fmt.Sprintf("%s=%d", k, s.Counts[engine.Kind(k)])
	}
	fmt.Fprintf(w, "Entities: %s\n", strings.Join(parts, " "))

	for _, e := range s.Exits {
		fmt.Fprintf(w, "Exit %s -> %s (%s)\n", e.At, e.Target, e.Reach)
	}

	if len(s.Hackable) == 0 {
		fmt.Fprintln(w, "Nothing to hack")
		return
	}
	fmt.Fprintf(w, "Hackable: %d entities\n", len(s.Hackable))
	for i, h := range s.Hackable {
		if i == 5 {
			fmt.Fprintf(w, "   ... and %d more\n", len(s.Hackable)-5)
			break
		}
		fmt.Fprintf(w, "   %s %s: %s (%s)\n", h.At, h.Kind, strings.Join(h.Attributes, ", "), h.Reach)
	}
}
