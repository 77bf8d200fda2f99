package engine

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// LevelSource resolves level names to configurations.
type LevelSource interface {
	Level(name string) (*LevelConfig, error)
}

// MoveHistoryEntry records one player input.
type MoveHistoryEntry struct {
	Action       string `json:"action"`
	FromPosition Coord  `json:"from_position"`
	ToPosition   Coord  `json:"to_position"`
	Success      bool   `json:"success"`
	Level        string `json:"level"`
	Tick         int    `json:"tick"`
	Timestamp    int64  `json:"timestamp"`
	MoveNumber   int    `json:"move_number"`
}

// TickResult summarizes one pass of the tick driver.
type TickResult struct {
	Moved        bool     `json:"moved"`
	From         Coord    `json:"from"`
	To           Coord    `json:"to"`
	MoveError    string   `json:"move_error,omitempty"`
	Signals      []Signal `json:"signals,omitempty"`
	LevelChanged bool     `json:"level_changed"`
	Level        string   `json:"level"`
	Message      string   `json:"message"`
}

// GameEngine drives one session: a grid of fixed size, the current level
// and the console state.
type GameEngine struct {
	grid    *Grid
	levels  LevelSource
	level   *LevelConfig
	console bool
	ticks   int
	message string

	moveHistory  []MoveHistoryEntry
	currentMoves []MoveHistoryEntry
	totalMoves   int
}

// NewEngine creates an engine with a width x height grid and loads start.
func NewEngine(levels LevelSource, width, height int, start string) (*GameEngine, error) {
	if levels == nil {
		return nil, errors.New("engine: level source is required")
	}
	if width <= 0 || height <= 0 || width > MaxGridSize || height > MaxGridSize {
		return nil, fmt.Errorf("%w: grid size %dx%d", ErrInvalidValue, width, height)
	}
	e := &GameEngine{
		grid:   NewGrid(width, height),
		levels: levels,
	}
	if err := e.LoadLevel(start); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *GameEngine) Grid() *Grid { return e.grid }
func (e *GameEngine) Level() *LevelConfig { return e.level }
func (e *GameEngine) ConsoleEnabled() bool { return e.console }
func (e *GameEngine) Ticks() int { return e.ticks }
func (e *GameEngine) Message() string { return e.message }
func (e *GameEngine) TotalMoves() int { return e.totalMoves }
func (e *GameEngine) SetConsole(on bool) { e.console = on }
func (e *GameEngine) LevelName() string { return e.level.Name }
func (e *GameEngine) MoveHistory() []MoveHistoryEntry {
	return slices.Clone(e.moveHistory)
}

// CurrentMoves returns the moves made since the level was last (re)started.
func (e *GameEngine) CurrentMoves() []MoveHistoryEntry {
	return slices.Clone(e.currentMoves)
}

// Player returns the player entity and its position.
func (e *GameEngine) Player() (*Player, Coord, error) {
	return e.grid.Player()
}

// LoadLevel clears the grid and builds the named level on it.
func (e *GameEngine) LoadLevel(name string) error {
	cfg, err := e.levels.Level(name)
	if err != nil {
		return fmt.Errorf("load level %q: %w", name, err)
	}
	if err := BuildLevel(e.grid, cfg); err != nil {
		return fmt.Errorf("load level %q: %w", name, err)
	}
	e.level = cfg
	if cfg.DisableConsole {
		e.console = false
	}
	e.currentMoves = nil
	e.message = fmt.Sprintf("Level %s", cfg.Name)
	if cfg.Description != "" {
		e.message += ": " + cfg.Description
	}
	return nil
}

// RestartLevel rebuilds the current level. Cumulative history is kept; the
// current segment starts over.
func (e *GameEngine) RestartLevel() error {
	return e.LoadLevel(e.level.Name)
}

// Tick runs one pass: the player behaves first with in, then every dynamic
// entity present at the start of the pass, in scan order. Entities removed by
// an earlier behavior in the same pass are skipped. Signals are handled after
// the pass; a level transition replaces the grid contents.
//
// Movement failures are reported in the result, not as an error. The error
// is non-nil only when a requested level transition could not be loaded.
func (e *GameEngine) Tick(in Input) (TickResult, error) {
	e.ticks++
	res := TickResult{Level: e.level.Name}

	p, from, err := e.grid.Player()
	if err == nil {
		res.Signals = append(res.Signals, p.Behavior(e.grid, in)...)
		if in.Direction != "" {
			out, moveErr := p.LastMove()
			res.Moved, res.From, res.To = out.Moved, out.From, out.To
			if moveErr != nil {
				res.MoveError = moveErr.Error()
				e.message = fmt.Sprintf("Can't move %s: %v", in.Direction, moveErr)
			} else {
				e.message = fmt.Sprintf("Moved %s to %s", in.Direction, out.To)
			}
			e.recordMove(in.Direction, from, out)
		}
	}

	var dynamic []Entity
	for _, c := range e.grid.DynamicEntities() {
		dynamic = append(dynamic, e.grid.At(c))
	}
	for _, ent := range dynamic {
		if !e.grid.Contains(ent) {
			continue
		}
		res.Signals = append(res.Signals, ent.Behavior(e.grid, in)...)
	}

	transition, err := e.handleSignals(res.Signals)
	if transition != "" {
		res.LevelChanged = err == nil
	}
	res.Level = e.level.Name
	res.Message = e.message
	return res, err
}

func (e *GameEngine) handleSignals(signals []Signal) (string, error) {
	transition := ""
	for _, s := range signals {
		switch s.Kind {
		case SignalConsole:
			if s.On && e.level.DisableConsole {
				continue
			}
			e.console = s.On
			if s.On {
				e.message = "Console enabled"
			}
		case SignalPickup:
			e.message = fmt.Sprintf("Picked up %s", s.Target)
		case SignalInventoryFull:
			e.message = fmt.Sprintf("Inventory full, %s left behind", s.Target)
		case SignalLevelTransition:
			transition = s.Target
		}
	}
	if transition == "" {
		return "", nil
	}
	if err := e.LoadLevel(transition); err != nil {
		e.message = fmt.Sprintf("Exit to %s failed: %v", transition, err)
		return transition, err
	}
	return transition, nil
}

func (e *GameEngine) recordMove(dir Direction, from Coord, out Outcome) {
	to := from
	if out.Moved {
		to = out.To
	}
	e.totalMoves++
	entry := MoveHistoryEntry{
		Action:       string(dir),
		FromPosition: from,
		ToPosition:   to,
		Success:      out.Moved,
		Level:        e.level.Name,
		Tick:         e.ticks,
		Timestamp:    time.Now().Unix(),
		MoveNumber:   e.totalMoves,
	}
	e.moveHistory = append(e.moveHistory, entry)
	e.currentMoves = append(e.currentMoves, entry)
}

// Hack sets a hackable attribute on the entity at c. The console must be
// enabled.
func (e *GameEngine) Hack(c Coord, attr, value string) error {
	if !e.console {
		return ErrConsoleDisabled
	}
	ent, err := e.grid.Get(c)
	if err != nil {
		return err
	}
	if ent == nil {
		return fmt.Errorf("%w: nothing at %s", ErrNotFound, c)
	}
	if err := ent.Set(attr, value); err != nil {
		return err
	}
	e.message = fmt.Sprintf("Hacked %s.%s = %s", ent.Kind(), attr, value)
	return nil
}
