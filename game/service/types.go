package service

import (
	"time"

	"github.com/wricardo/mcp-training/gridhack/game/engine"
)

// MaxBulkMoves caps the number of moves executed by a single BulkMove call.
const MaxBulkMoves = 50

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string            `json:"id"`
	StartLevel     string            `json:"start_level"`
	Level          string            `json:"level"`
	CreatedAt      time.Time         `json:"created_at"`
	LastAccessedAt time.Time         `json:"last_accessed_at"`
	GameState      *engine.GameState `json:"game_state"`
}

// MoveResult contains the result of a move or wait operation
type MoveResult struct {
	Success     bool              `json:"success"`
	GameState   *engine.GameState `json:"game_state"`
	Message     string            `json:"message"`
	Events      []GameEvent       `json:"events,omitempty"`
	Step        *StepInfo         `json:"step,omitempty"`
	AttemptedTo *AttemptInfo      `json:"attempted_to,omitempty"`
}

// BulkMoveResult contains the result of multiple moves
type BulkMoveResult struct {
	MovesExecuted  int               `json:"moves_executed"`
	RequestedMoves int               `json:"requested_moves"`
	Success        bool              `json:"success"`
	GameState      *engine.GameState `json:"game_state"`
	Events         []GameEvent       `json:"events"`
	StoppedReason  string            `json:"stopped_reason,omitempty"`
	StopReasonCode string            `json:"stop_reason_code,omitempty"` // blocked_boundary|blocked|invalid_direction|transition_failed
	StoppedOnMove  int               `json:"stopped_on_move,omitempty"`  // 1-based
	Truncated      bool              `json:"truncated,omitempty"`
	Limit          int               `json:"limit,omitempty"`

	StartPos   engine.Coord `json:"start_pos"`
	EndPos     engine.Coord `json:"end_pos"`
	StartLevel string       `json:"start_level"`
	EndLevel   string       `json:"end_level"`

	Steps       []StepInfo   `json:"steps,omitempty"`
	AttemptedTo *AttemptInfo `json:"attempted_to,omitempty"`
	Message     string       `json:"message,omitempty"`
}

// StepInfo is a compact record for each executed move in a call
type StepInfo struct {
	Idx     int          `json:"idx"`
	Dir     string       `json:"dir"`
	From    engine.Coord `json:"from"`
	To      engine.Coord `json:"to"`
	Success bool         `json:"success"`
	Level   string       `json:"level"`
	Pickup  string       `json:"pickup,omitempty"`
	Console bool         `json:"console,omitempty"`
}

// AttemptInfo details the target cell of a failed move
type AttemptInfo struct {
	X        int    `json:"x"`
	Y        int    `json:"y"`
	Kind     string `json:"kind"`
	Symbol   string `json:"symbol"`
	Passable bool   `json:"passable"`
}

// GameEvent represents an event that occurred during gameplay
type GameEvent struct {
	Type      string        `json:"type"` // "move", "blocked", "pickup", "inventory_full", "console", "level", "reset", "wait", "hack"
	Message   string        `json:"message"`
	Timestamp time.Time     `json:"timestamp"`
	Position  *engine.Coord `json:"position,omitempty"`
}

// HistoryOptions configures move history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated move history
type HistoryResponse struct {
	Moves       []engine.MoveHistoryEntry `json:"moves"`
	TotalMoves  int                       `json:"total_moves"`
	Page        int                       `json:"page"`
	PageSize    int                       `json:"page_size"`
	TotalPages  int                       `json:"total_pages"`
	HasNext     bool                      `json:"has_next"`
	HasPrevious bool                      `json:"has_previous"`
}

// LevelInfo describes a level file available to sessions
type LevelInfo struct {
	Filename       string `json:"filename"`
	LevelID        string `json:"level_id"` // identifier to use for session creation
	Name           string `json:"name"`
	Description    string `json:"description"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	Next           string `json:"next,omitempty"`
	DisableConsole bool   `json:"disable_console,omitempty"`
}

// HackRequest sets one hackable attribute on the entity at (X, Y).
type HackRequest struct {
	X         int    `json:"x"`
	Y         int    `json:"y"`
	Attribute string `json:"attribute"`
	Value     string `json:"value"`
}

// HackResult returns the modified entity and the new state.
type HackResult struct {
	Entity    engine.EntityView `json:"entity"`
	GameState *engine.GameState `json:"game_state"`
}

// ConsoleResult is the output of one console command line.
type ConsoleResult struct {
	Output    string            `json:"output"`
	GameState *engine.GameState `json:"game_state"`
}
