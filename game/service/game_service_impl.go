package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wricardo/mcp-training/gridhack/game/console"
	"github.com/wricardo/mcp-training/gridhack/game/engine"
)

var (
	ErrInvalidDirection = errors.New("invalid direction")
	ErrNoLevels         = errors.New("no levels available")
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	levels   LevelManager
	logger   *zap.Logger
	mu       sync.RWMutex
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, levels LevelManager, logger *zap.Logger) GameService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &gameServiceImpl{
		sessions: sessions,
		levels:   levels,
		logger:   logger.Named("service"),
	}
}

// CreateSession creates a new game session starting at levelName, or at the
// default level when levelName is empty
func (s *gameServiceImpl) CreateSession(ctx context.Context, levelName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if levelName == "" {
		levelName = s.levels.GetDefault()
		if levelName == "" {
			return nil, ErrNoLevels
		}
	}

	if _, err := s.levels.Level(levelName); err != nil {
		// Provide helpful error message with available options
		if errors.Is(err, engine.ErrLevelNotFound) {
			if available, listErr := s.levels.ListLevels(); listErr == nil && len(available) > 0 {
				ids := make([]string, 0, len(available))
				for _, lvl := range available {
					ids = append(ids, lvl.LevelID)
				}
				return nil, fmt.Errorf("level '%s' not found, available levels: %v: %w", levelName, ids, err)
			}
		}
		return nil, fmt.Errorf("failed to load level %s: %w", levelName, err)
	}

	// Let session manager generate the ID
	session, err := s.sessions.Create("", levelName)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return sessionInfo(session), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return sessionInfo(session), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, sessionInfo(sess))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sessions.Delete(sessionID)
}

// Move executes a single move for a session
func (s *gameServiceImpl) Move(ctx context.Context, sessionID, direction string, reset bool) (*MoveResult, error) {
	dir, err := parseDirection(direction)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	events := []GameEvent{}
	if reset {
		ev, err := s.restart(sess)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}

	step, tickEvents, attempt := s.step(sess, 1, dir)
	events = append(events, tickEvents...)
	state := sess.Engine.State()

	result := &MoveResult{
		Success:     step.Success,
		GameState:   state,
		Message:     state.Message,
		Events:      events,
		AttemptedTo: attempt,
	}
	if step.Success {
		result.Step = &step
	}
	return result, nil
}

// BulkMove executes moves in sequence and stops at the first one that fails
func (s *gameServiceImpl) BulkMove(ctx context.Context, sessionID string, moves []string, reset bool) (*BulkMoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	result := &BulkMoveResult{
		RequestedMoves: len(moves),
		Events:         make([]GameEvent, 0),
		Success:        true,
	}

	if reset {
		ev, err := s.restart(sess)
		if err != nil {
			return nil, err
		}
		result.Events = append(result.Events, ev)
	}

	_, result.StartPos, _ = sess.Engine.Player()
	result.StartLevel = sess.Engine.LevelName()

	// Limit moves to prevent abuse
	if len(moves) > MaxBulkMoves {
		result.Truncated = true
		result.Limit = MaxBulkMoves
		moves = moves[:MaxBulkMoves]
	}

	for i, move := range moves {
		if err := ctx.Err(); err != nil {
			result.Success = false
			result.StoppedReason = err.Error()
			result.StopReasonCode = "canceled"
			result.StoppedOnMove = i + 1
			break
		}

		dir, err := parseDirection(move)
		if err != nil {
			result.Success = false
			result.StoppedReason = fmt.Sprintf("move %d: %v", i+1, err)
			result.StopReasonCode = "invalid_direction"
			result.StoppedOnMove = i + 1
			break
		}

		step, events, attempt := s.step(sess, i+1, dir)
		result.Events = append(result.Events, events...)

		if !step.Success {
			result.Success = false
			result.StoppedReason = fmt.Sprintf("move %d blocked: %s", i+1, move)
			result.StoppedOnMove = i + 1
			result.AttemptedTo = attempt
			result.StopReasonCode = "blocked"
			if attempt != nil && attempt.Kind == "boundary" {
				result.StopReasonCode = "blocked_boundary"
			}
			break
		}

		result.MovesExecuted++
		result.Steps = append(result.Steps, step)

		if hasEvent(events, "error") {
			result.Success = false
			result.StoppedReason = sess.Engine.Message()
			result.StopReasonCode = "transition_failed"
			result.StoppedOnMove = i + 1
			break
		}
	}

	result.GameState = sess.Engine.State()
	_, result.EndPos, _ = sess.Engine.Player()
	result.EndLevel = sess.Engine.LevelName()
	result.Message = result.GameState.Message

	return result, nil
}

// Wait advances the session by ticks passes without player input
func (s *gameServiceImpl) Wait(ctx context.Context, sessionID string, ticks int) (*MoveResult, error) {
	if ticks <= 0 {
		ticks = 1
	}
	if ticks > MaxBulkMoves {
		ticks = MaxBulkMoves
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	events := []GameEvent{}
	success := true
	for i := 0; i < ticks; i++ {
		res, err := sess.Engine.Tick(engine.Input{})
		events = append(events, signalEvents(res, err)...)
		if err != nil {
			s.logger.Warn("level transition failed", zap.String("session", sess.ID), zap.Error(err))
			success = false
			break
		}
	}
	events = append(events, GameEvent{
		Type:      "wait",
		Message:   fmt.Sprintf("Waited %d tick(s)", ticks),
		Timestamp: time.Now(),
	})

	state := sess.Engine.State()
	return &MoveResult{
		Success:   success,
		GameState: state,
		Message:   state.Message,
		Events:    events,
	}, nil
}

// Reset restarts the session's current level
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.restart(sess); err != nil {
		return nil, err
	}
	return sess.Engine.State(), nil
}

// Hack overwrites one hackable attribute through the session's console
func (s *gameServiceImpl) Hack(ctx context.Context, sessionID string, req HackRequest) (*HackResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	c := engine.Coord{X: req.X, Y: req.Y}
	if err := sess.Engine.Hack(c, req.Attribute, req.Value); err != nil {
		return nil, err
	}
	s.logger.Info("entity hacked",
		zap.String("session", sess.ID),
		zap.Stringer("at", c),
		zap.String("attribute", req.Attribute),
		zap.String("value", req.Value),
	)

	return &HackResult{
		Entity:    engine.ViewOf(sess.Engine.Grid().At(c), c),
		GameState: sess.Engine.State(),
	}, nil
}

// Console runs one console command line
func (s *gameServiceImpl) Console(ctx context.Context, sessionID, line string) (*ConsoleResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	out, err := console.Execute(sess.Engine, line)
	if err != nil {
		return nil, err
	}
	return &ConsoleResult{Output: out, GameState: sess.Engine.State()}, nil
}

// GetGameState retrieves the current game state
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Engine.State(), nil
}

// GetMoveHistory returns paginated move history
func (s *gameServiceImpl) GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	history := sess.Engine.MoveHistory()
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	var moves []engine.MoveHistoryEntry
	if opts.Order == "desc" {
		// Most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			moves = append(moves, history[i])
		}
	} else if start < total {
		moves = history[start:end]
	}

	if moves == nil {
		moves = []engine.MoveHistoryEntry{}
	}

	return &HistoryResponse{
		Moves:       moves,
		TotalMoves:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// ListLevels returns available levels
func (s *gameServiceImpl) ListLevels(ctx context.Context) ([]*LevelInfo, error) {
	return s.levels.ListLevels()
}

// LoadLevel loads a specific level
func (s *gameServiceImpl) LoadLevel(ctx context.Context, levelName string) (*engine.LevelConfig, error) {
	return s.levels.Level(levelName)
}

// SaveLevel validates and stores a level
func (s *gameServiceImpl) SaveLevel(ctx context.Context, levelName string, level *engine.LevelConfig) error {
	return s.levels.SaveLevel(levelName, level)
}

// session looks up a session and touches its access time. Callers hold s.mu.
func (s *gameServiceImpl) session(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)
	return sess, nil
}

func (s *gameServiceImpl) restart(sess *Session) (GameEvent, error) {
	if err := sess.Engine.RestartLevel(); err != nil {
		return GameEvent{}, fmt.Errorf("failed to restart level: %w", err)
	}
	return GameEvent{
		Type:      "reset",
		Message:   fmt.Sprintf("Level %s restarted", sess.Engine.LevelName()),
		Timestamp: time.Now(),
	}, nil
}

// step ticks the engine with one player move and describes what happened.
func (s *gameServiceImpl) step(sess *Session, idx int, dir engine.Direction) (StepInfo, []GameEvent, *AttemptInfo) {
	_, from, _ := sess.Engine.Player()
	res, err := sess.Engine.Tick(engine.Input{Direction: dir})
	if err != nil {
		s.logger.Warn("level transition failed", zap.String("session", sess.ID), zap.Error(err))
	}

	step := StepInfo{
		Idx:     idx,
		Dir:     string(dir),
		From:    from,
		To:      from,
		Success: res.Moved,
		Level:   res.Level,
	}
	var events []GameEvent
	var attempt *AttemptInfo
	if res.Moved {
		step.To = res.To
		to := res.To
		events = append(events, GameEvent{
			Type:      "move",
			Message:   fmt.Sprintf("Moved %s to %s", dir, to),
			Timestamp: time.Now(),
			Position:  &to,
		})
	} else {
		attempt = attemptAt(sess.Engine.Grid(), from.Step(dir))
		events = append(events, GameEvent{
			Type:      "blocked",
			Message:   fmt.Sprintf("Can't move %s: %s", dir, res.MoveError),
			Timestamp: time.Now(),
		})
	}
	for _, sig := range res.Signals {
		switch sig.Kind {
		case engine.SignalPickup:
			step.Pickup = sig.Target
		case engine.SignalConsole:
			step.Console = sig.On
		}
	}
	events = append(events, signalEvents(res, err)...)
	return step, events, attempt
}

// signalEvents turns tick signals into events.
func signalEvents(res engine.TickResult, err error) []GameEvent {
	var events []GameEvent
	now := time.Now()
	for _, sig := range res.Signals {
		switch sig.Kind {
		case engine.SignalPickup:
			events = append(events, GameEvent{Type: "pickup", Message: "Picked up " + sig.Target, Timestamp: now})
		case engine.SignalInventoryFull:
			events = append(events, GameEvent{Type: "inventory_full", Message: "Inventory full, " + sig.Target + " left behind", Timestamp: now})
		case engine.SignalConsole:
			if sig.On {
				events = append(events, GameEvent{Type: "console", Message: "Console enabled", Timestamp: now})
			}
		}
	}
	if res.LevelChanged {
		events = append(events, GameEvent{Type: "level", Message: "Entered level " + res.Level, Timestamp: now})
	}
	if err != nil {
		events = append(events, GameEvent{Type: "error", Message: err.Error(), Timestamp: now})
	}
	return events
}

// attemptAt describes the cell a failed move targeted.
func attemptAt(g *engine.Grid, c engine.Coord) *AttemptInfo {
	info := &AttemptInfo{X: c.X, Y: c.Y}
	e := g.At(c)
	if e == nil {
		info.Kind = "boundary"
		return info
	}
	info.Kind = string(e.Kind())
	info.Symbol = string(e.Symbol())
	info.Passable = e.Passage().Allows(engine.KindPlayer)
	return info
}

func hasEvent(events []GameEvent, typ string) bool {
	for _, ev := range events {
		if ev.Type == typ {
			return true
		}
	}
	return false
}

func parseDirection(s string) (engine.Direction, error) {
	dir, err := engine.ParseDirection(strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDirection, s)
	}
	return dir, nil
}

func sessionInfo(sess *Session) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		StartLevel:     sess.StartLevel,
		Level:          sess.Engine.LevelName(),
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		GameState:      sess.Engine.State(),
	}
}
