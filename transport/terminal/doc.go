// Package terminal plays a gridhack session in a text terminal.
//
// The game draws the grid with tcell and forwards input to the GameService,
// so a terminal player shares sessions with REST, MCP and websocket
// clients. The screen refreshes periodically to pick up their moves.
//
// Keys:
//   - arrows move the player one cell (one engine tick)
//   - '.' or space waits one tick
//   - q restarts the current level
//   - F1 opens the hacking console once a computer has been picked up
//   - Esc or Ctrl-C quits
//
// Sound cues are optional. NewChimes plays them through the system
// speaker; Silent is used when no audio device is available.
package terminal
