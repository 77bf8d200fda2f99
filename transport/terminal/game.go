package terminal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"

	"github.com/wricardo/mcp-training/gridhack/game/engine"
	"github.com/wricardo/mcp-training/gridhack/game/service"
)

const (
	refreshInterval = 250 * time.Millisecond
	consoleLines    = 8
	gridTop         = 2
	gridLeft        = 1
)

var (
	styleDefault = tcell.StyleDefault
	styleHeader  = tcell.StyleDefault.Foreground(tcell.ColorAqua).Bold(true)
	styleDim     = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleWarn    = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	styleLooking = tcell.StyleDefault.Reverse(true)
)

// Game drives one session from a terminal. Arrow keys tick the engine
// through the service, so other transports watching the same session see
// every move.
type Game struct {
	screen    tcell.Screen
	svc       service.GameService
	sessionID string
	sound     Sound
	logger    *zap.Logger

	state  *engine.GameState
	status string

	consoleOpen bool
	input       []rune
	output      []string
}

// New creates a terminal game for an existing session.
func New(screen tcell.Screen, svc service.GameService, sessionID string, sound Sound, logger *zap.Logger) *Game {
	if sound == nil {
		sound = Silent{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Game{
		screen:    screen,
		svc:       svc,
		sessionID: sessionID,
		sound:     sound,
		logger:    logger.Named("terminal"),
	}
}

// Run processes input until Esc, Ctrl-C or ctx is done. The caller owns
// the screen and must Fini it.
func (g *Game) Run(ctx context.Context) error {
	if err := g.refresh(ctx); err != nil {
		return err
	}
	g.draw()

	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	pollCtx, stopPolling := context.WithCancel(ctx)
	defer stopPolling()
	eventChan := make(chan tcell.Event, 100)
	go pollEvents(pollCtx, g.screen, eventChan)

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-eventChan:
			if !ok {
				return nil
			}
			if !g.handleEvent(ctx, ev) {
				return nil
			}
			g.draw()

		case <-ticker.C:
			// Picks up moves made through other transports
			if err := g.refresh(ctx); err != nil {
				return err
			}
			g.draw()
		}
	}
}

func (g *Game) handleEvent(ctx context.Context, ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		return g.handleKey(ctx, ev.Key(), ev.Rune())
	case *tcell.EventResize:
		g.screen.Sync()
	}
	return true
}

// handleKey reports false when the game should exit.
func (g *Game) handleKey(ctx context.Context, key tcell.Key, r rune) bool {
	if key == tcell.KeyCtrlC {
		return false
	}
	if g.consoleOpen {
		g.consoleKey(ctx, key, r)
		return true
	}

	switch key {
	case tcell.KeyEscape:
		return false
	case tcell.KeyUp:
		g.move(ctx, "up")
	case tcell.KeyDown:
		g.move(ctx, "down")
	case tcell.KeyLeft:
		g.move(ctx, "left")
	case tcell.KeyRight:
		g.move(ctx, "right")
	case tcell.KeyF1:
		g.openConsole()
	case tcell.KeyRune:
		switch r {
		case 'q':
			g.restart(ctx)
		case '.', ' ':
			g.wait(ctx)
		}
	}
	return true
}

func (g *Game) consoleKey(ctx context.Context, key tcell.Key, r rune) {
	switch key {
	case tcell.KeyEscape, tcell.KeyF1:
		g.consoleOpen = false
	case tcell.KeyEnter:
		line := strings.TrimSpace(string(g.input))
		g.input = g.input[:0]
		if line != "" {
			g.runConsole(ctx, line)
		}
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if n := len(g.input); n > 0 {
			g.input = g.input[:n-1]
		}
	case tcell.KeyRune:
		g.input = append(g.input, r)
	}
}

func (g *Game) openConsole() {
	if g.state == nil || !g.state.ConsoleEnabled {
		g.status = "console locked: pick up a computer first"
		g.sound.Play(CueBlocked)
		return
	}
	g.consoleOpen = true
	g.status = ""
}

func (g *Game) move(ctx context.Context, dir string) {
	res, err := g.svc.Move(ctx, g.sessionID, dir, false)
	if err != nil {
		g.fail("move", err)
		return
	}
	g.apply(res.GameState, res.Events)
}

func (g *Game) wait(ctx context.Context) {
	res, err := g.svc.Wait(ctx, g.sessionID, 1)
	if err != nil {
		g.fail("wait", err)
		return
	}
	g.apply(res.GameState, res.Events)
}

func (g *Game) restart(ctx context.Context) {
	state, err := g.svc.Reset(ctx, g.sessionID)
	if err != nil {
		g.fail("restart", err)
		return
	}
	g.state = state
	g.status = "level restarted"
}

func (g *Game) runConsole(ctx context.Context, line string) {
	g.appendOutput("> " + line)
	res, err := g.svc.Console(ctx, g.sessionID, line)
	if err != nil {
		g.appendOutput("error: " + err.Error())
		return
	}
	if res.Output != "" {
		g.appendOutput(strings.Split(res.Output, "\n")...)
	}
	g.state = res.GameState
}

func (g *Game) appendOutput(lines ...string) {
	g.output = append(g.output, lines...)
	if extra := len(g.output) - consoleLines; extra > 0 {
		g.output = g.output[extra:]
	}
}

// apply stores the new state and turns events into a status line and cues.
func (g *Game) apply(state *engine.GameState, events []service.GameEvent) {
	g.state = state
	g.status = ""
	for _, ev := range events {
		switch ev.Type {
		case "pickup":
			g.sound.Play(CuePickup)
		case "console":
			g.sound.Play(CueConsole)
		case "level":
			g.sound.Play(CueLevel)
		case "blocked":
			g.sound.Play(CueBlocked)
		case "move", "wait":
			continue
		}
		g.status = ev.Message
	}
}

func (g *Game) fail(op string, err error) {
	g.status = fmt.Sprintf("%s failed: %v", op, err)
	g.logger.Warn("operation failed", zap.String("op", op), zap.String("session", g.sessionID), zap.Error(err))
}

func (g *Game) refresh(ctx context.Context) error {
	state, err := g.svc.GetGameState(ctx, g.sessionID)
	if err != nil {
		return fmt.Errorf("load session %s: %w", g.sessionID, err)
	}
	g.state = state
	return nil
}

// Rendering

func (g *Game) draw() {
	g.screen.Clear()
	st := g.state
	if st == nil {
		g.screen.Show()
		return
	}

	console := "locked"
	if st.ConsoleEnabled {
		console = "F1"
	}
	g.text(0, 0, fmt.Sprintf("gridhack  session %s  level %s  tick %d  moves %d  console %s",
		g.sessionID, st.Level, st.Tick, st.TotalMoves, console), styleHeader)

	colors := make(map[engine.Coord]tcell.Color, len(st.Entities))
	for _, e := range st.Entities {
		colors[e.Position] = tcell.GetColor(e.Color)
	}
	var looking *engine.Coord
	if st.Player != nil {
		looking = st.Player.LookingAt
	}

	for y, row := range st.Rows {
		x := 0
		for _, r := range row {
			style := styleDefault
			c := engine.Coord{X: x, Y: y}
			if col, ok := colors[c]; ok {
				style = style.Foreground(col)
			}
			if looking != nil && *looking == c {
				style = style.Merge(styleLooking)
			}
			g.screen.SetContent(gridLeft+x, gridTop+y, r, nil, style)
			x++
		}
	}

	y := gridTop + len(st.Rows) + 1
	if st.Player != nil {
		g.text(0, y, fmt.Sprintf("inventory %d/%d: %s", len(st.Player.Inventory), st.Player.InventoryLimit, inventoryText(st.Player.Inventory)), styleDefault)
		y++
	}
	if st.Message != "" {
		g.text(0, y, st.Message, styleDefault)
		y++
	}
	if g.status != "" {
		g.text(0, y, g.status, styleWarn)
		y++
	}

	if g.consoleOpen {
		y++
		for _, line := range g.output {
			g.text(0, y, line, styleDefault)
			y++
		}
		g.text(0, y, "$ "+string(g.input), styleHeader)
		y++
	}

	y++
	help := "arrows move  . wait  q restart  F1 console  Esc quit"
	if g.consoleOpen {
		help = "Enter run  Esc/F1 close  help for commands"
	}
	g.text(0, y, help, styleDim)

	g.screen.Show()
}

func (g *Game) text(x, y int, s string, style tcell.Style) {
	for _, r := range s {
		g.screen.SetContent(x, y, r, nil, style)
		x++
	}
}

func inventoryText(items []engine.ItemView) string {
	if len(items) == 0 {
		return "-"
	}
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = it.Symbol + " " + string(it.Kind)
	}
	return strings.Join(parts, ", ")
}

// pollEvents forwards screen events to out until the screen is finalized or
// ctx is done. out is closed when the screen stops delivering events.
func pollEvents(ctx context.Context, screen tcell.Screen, out chan<- tcell.Event) {
	for {
		ev := screen.PollEvent()
		if ev == nil {
			close(out)
			return
		}
		select {
		case out <- ev:
		case <-ctx.Done():
			return
		}
	}
}
