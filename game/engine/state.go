package engine

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// EntityView is the serializable form of one non-empty cell.
type EntityView struct {
	ID         int         `json:"id"`
	Kind       Kind        `json:"kind"`
	Type       string      `json:"type"`
	Symbol     string      `json:"symbol"`
	Color      string      `json:"color"`
	Position   Coord       `json:"position"`
	Passable   string      `json:"passable_for"`
	Hackable   []string    `json:"hackable,omitempty"`
	Attributes []AttrValue `json:"attributes,omitempty"`
}

// ItemView describes one carried item.
type ItemView struct {
	Kind   Kind   `json:"kind"`
	Symbol string `json:"symbol"`
	Color  string `json:"color"`
}

// PlayerView is the player's slice of the state.
type PlayerView struct {
	ID             int        `json:"id"`
	Position       Coord      `json:"position"`
	Symbol         string     `json:"symbol"`
	Inventory      []ItemView `json:"inventory"`
	InventoryLimit int        `json:"inventory_limit"`
	LookingAt      *Coord     `json:"looking_at,omitempty"`
}

// GameState is a point-in-time snapshot of a session, shared by every
// transport.
type GameState struct {
	Level          string       `json:"level"`
	Description    string       `json:"description,omitempty"`
	Width          int          `json:"width"`
	Height         int          `json:"height"`
	Rows           []string     `json:"rows"`
	Entities       []EntityView `json:"entities"`
	Player         *PlayerView  `json:"player,omitempty"`
	ConsoleEnabled bool         `json:"console_enabled"`
	Tick           int          `json:"tick"`
	Message        string       `json:"message"`
	Fingerprint    string       `json:"fingerprint"`

	MoveHistory []MoveHistoryEntry `json:"move_history"`
	TotalMoves  int                `json:"total_moves"`

	// CurrentMoves only covers the moves since the level was last loaded.
	CurrentMoves      []MoveHistoryEntry `json:"current_moves"`
	CurrentMovesCount int                `json:"current_moves_count"`
}

// Rows renders the grid as one string per row. Unpopulated cells are '.'.
func (g *Grid) Rows() []string {
	rows := make([]string, g.height)
	var b strings.Builder
	for y := 0; y < g.height; y++ {
		b.Reset()
		for x := 0; x < g.width; x++ {
			if e := g.cells[x][y]; e != nil {
				b.WriteRune(e.Symbol())
			} else {
				b.WriteByte('.')
			}
		}
		rows[y] = b.String()
	}
	return rows
}

// ViewOf builds the serializable view of e at c.
func ViewOf(e Entity, c Coord) EntityView {
	return EntityView{
		ID:         e.ID(),
		Kind:       e.Kind(),
		Type:       e.Type().String(),
		Symbol:     string(e.Symbol()),
		Color:      e.Color().Hex(),
		Position:   c,
		Passable:   e.Passage().String(),
		Hackable:   e.Hackable(),
		Attributes: Attributes(e),
	}
}

// State builds a snapshot of the engine.
func (e *GameEngine) State() *GameState {
	g := e.grid
	st := &GameState{
		Level:             e.level.Name,
		Description:       e.level.Description,
		Width:             g.Width(),
		Height:            g.Height(),
		Rows:              g.Rows(),
		Entities:          []EntityView{},
		ConsoleEnabled:    e.console,
		Tick:              e.ticks,
		Message:           e.message,
		MoveHistory:       e.MoveHistory(),
		TotalMoves:        e.totalMoves,
		CurrentMoves:      e.CurrentMoves(),
		CurrentMovesCount: len(e.currentMoves),
	}
	if st.MoveHistory == nil {
		st.MoveHistory = []MoveHistoryEntry{}
	}
	if st.CurrentMoves == nil {
		st.CurrentMoves = []MoveHistoryEntry{}
	}

	for _, c := range g.MatchAll(func(ent Entity) bool { return ent.Kind() != KindEmpty }) {
		st.Entities = append(st.Entities, ViewOf(g.At(c), c))
	}

	if p, c, err := g.Player(); err == nil {
		pv := &PlayerView{
			ID:             p.ID(),
			Position:       c,
			Symbol:         string(p.Symbol()),
			Inventory:      []ItemView{},
			InventoryLimit: p.Inventory().Limit(),
		}
		for _, it := range p.Inventory().Items() {
			pv.Inventory = append(pv.Inventory, ItemView{
				Kind:   it.Kind(),
				Symbol: string(it.Symbol()),
				Color:  it.Color().Hex(),
			})
		}
		if la, ok := p.LookingAt(); ok {
			pv.LookingAt = &la
		}
		st.Player = pv
	}
	st.Fingerprint = st.fingerprint()
	return st
}

// fingerprint hashes every field of st except Fingerprint itself, so any
// change a client could see (attributes, inventory, console, tick, history)
// yields a new value.
func (st *GameState) fingerprint() string {
	saved := st.Fingerprint
	st.Fingerprint = ""
	data, err := json.Marshal(st)
	st.Fingerprint = saved
	if err != nil {
		return ""
	}
	return strconv.FormatUint(xxhash.Sum64(data), 16)
}
