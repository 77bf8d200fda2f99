package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/wricardo/mcp-training/gridhack/game/engine"
	"github.com/wricardo/mcp-training/gridhack/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
	logger     *zap.Logger
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger.Named("mcp"),
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"gridhack",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`gridhack - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Walk the player to the exit of each level. Doors, drones and barriers stand
in the way. Pick up the computer (@) to unlock the console, then hack the
attributes of entities to open a path.

AVAILABLE TOOLS:
- create_session, get_session, list_sessions: session management
- game_state: current grid, entities and inventory
- move / bulk_move: move the player (intent explains your reasoning)
- wait: let the world tick without moving
- reset_game: restart the current level
- move_history: view past moves
- list_levels: available levels
- describe_cell: everything known about one cell, including hackable attributes
- hack: set one hackable attribute (needs the console)
- console: run a console command line (help, ls, inspect, set)
- game_instructions: rules and entity legend`),
	)

	c.registerTools()
}

func sessionProp() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session, optionally starting at a given level",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"level": map[string]interface{}{
					"type":        "string",
					"description": "Level to start at (optional, defaults to the first level)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProp()},
			Required:   []string{"session_id"},
		},
	}, c.handleGetSession)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current game state",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProp()},
			Required:   []string{"session_id"},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move",
		Description: "Move the player one cell. Every move advances the world by one tick.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"direction": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"up", "down", "left", "right"},
					"description": "Direction to move",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of the intent behind this move",
				},
				"reset": map[string]interface{}{
					"type":        "boolean",
					"description": "Restart the level before moving",
				},
			},
			Required: []string{"session_id", "direction"},
		},
	}, c.handleMove)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "bulk_move",
		Description: fmt.Sprintf("Execute up to %d moves in sequence. Stops at the first blocked move.", service.MaxBulkMoves),
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"moves": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "string",
						"enum": []string{"up", "down", "left", "right"},
					},
					"description": "Array of moves",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of the intent behind this sequence of moves",
				},
				"reset": map[string]interface{}{
					"type":        "boolean",
					"description": "Restart the level before moving",
				},
			},
			Required: []string{"session_id", "moves"},
		},
	}, c.handleBulkMove)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "wait",
		Description: "Advance the world without moving the player",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"ticks": map[string]interface{}{
					"type":        "integer",
					"description": "Number of ticks to wait (default 1)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleWait)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_game",
		Description: "Restart the current level",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProp()},
			Required:   []string{"session_id"},
		},
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move_history",
		Description: "Get move history for a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"page": map[string]interface{}{
					"type":        "integer",
					"description": "Page number",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Items per page",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleMoveHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_levels",
		Description: "List available levels",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListLevels)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get game instructions, rules and the entity legend",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_cell",
		Description: "Describe the entity at a cell: kind, symbol, who may pass, and its attributes with the hackable ones marked",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"x": map[string]interface{}{
					"type":        "integer",
					"description": "X coordinate (column, 0-based)",
				},
				"y": map[string]interface{}{
					"type":        "integer",
					"description": "Y coordinate (row, 0-based)",
				},
			},
			Required: []string{"session_id", "x", "y"},
		},
	}, c.handleDescribeCell)

	// Console
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "hack",
		Description: "Set a hackable attribute of the entity at (x, y). Requires the console.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"x": map[string]interface{}{
					"type":        "integer",
					"description": "X coordinate (column, 0-based)",
				},
				"y": map[string]interface{}{
					"type":        "integer",
					"description": "Y coordinate (row, 0-based)",
				},
				"attribute": map[string]interface{}{
					"type":        "string",
					"description": "Attribute name, for example passable_for, color, symbol",
				},
				"value": map[string]interface{}{
					"type":        "string",
					"description": "New value in the attribute's text form",
				},
			},
			Required: []string{"session_id", "x", "y", "attribute", "value"},
		},
	}, c.handleHack)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "console",
		Description: "Run a console command line: help, ls, inspect <x> <y>|@, set <x> <y>|@ <attr> <value>",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"command": map[string]interface{}{
					"type":        "string",
					"description": "Command line to run",
				},
			},
			Required: []string{"session_id", "command"},
		},
	}, c.handleConsole)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		c.logger.Debug("api error", zap.String("path", path), zap.Int("status", resp.StatusCode))
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

func sessionPath(sessionID, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

// intArg reads a JSON number argument.
func intArg(args map[string]interface{}, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	level, _ := args["level"].(string)

	body := map[string]string{}
	if level != "" {
		body["level"] = level
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nLevel: %s\n\n%s", session.ID, session.Level, formatGameState(session.GameState))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		fmt.Fprintf(&b, "- %s (Level: %s, Created: %s)\n", s.ID, s.Level, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (c *Client) handleMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	direction, _ := args["direction"].(string)
	reset, _ := args["reset"].(bool)
	if intent, _ := args["intent"].(string); intent != "" {
		c.logger.Debug("move intent", zap.String("session", sessionID), zap.String("intent", intent))
	}

	body := map[string]interface{}{
		"direction": direction,
		"reset":     reset,
	}

	var result service.MoveResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/move"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatMoveResult(&result)), nil
}

func (c *Client) handleBulkMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	movesRaw, _ := args["moves"].([]interface{})
	reset, _ := args["reset"].(bool)
	if intent, _ := args["intent"].(string); intent != "" {
		c.logger.Debug("bulk move intent", zap.String("session", sessionID), zap.String("intent", intent))
	}

	moves := make([]string, 0, len(movesRaw))
	for _, m := range movesRaw {
		if move, ok := m.(string); ok {
			moves = append(moves, move)
		}
	}

	body := map[string]interface{}{
		"moves": moves,
		"reset": reset,
	}

	var result service.BulkMoveResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/bulk-move"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatBulkMoveResult(sessionID, &result)), nil
}

func (c *Client) handleWait(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	ticks, _ := intArg(args, "ticks")

	var result service.MoveResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/wait"), map[string]int{"ticks": ticks}, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatMoveResult(&result)), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var response struct {
		Message string            `json:"message"`
		State   *engine.GameState `json:"state"`
	}

	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/reset"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("%s\n\n%s", response.Message, formatGameState(response.State))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleMoveHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)

	params := url.Values{}
	if page, ok := intArg(args, "page"); ok {
		params.Set("page", fmt.Sprint(page))
	}
	if limit, ok := intArg(args, "limit"); ok {
		params.Set("limit", fmt.Sprint(limit))
	}
	path := sessionPath(sessionID, "/history")
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := formatHistory(&history)

	// The live state carries the moves since the level was loaded
	var state engine.GameState
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &state); err == nil {
		result += "\n" + formatCurrentSegment(&state)
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListLevels(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var levels []service.LevelInfo
	if err := c.apiCall(ctx, "GET", "/api/levels", nil, &levels); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Levels:\n\n")
	for _, l := range levels {
		fmt.Fprintf(&b, "• %s (%s)\n", l.LevelID, l.Filename)
		if l.Description != "" {
			fmt.Fprintf(&b, "  %s\n", l.Description)
		}
		fmt.Fprintf(&b, "  Layout: %dx%d", l.Width, l.Height)
		if l.Next != "" {
			fmt.Fprintf(&b, ", next: %s", l.Next)
		}
		if l.DisableConsole {
			b.WriteString(", console disabled")
		}
		b.WriteString("\n\n")
	}

	return mcp.NewToolResultText(b.String()), nil
}

const instructions = `gridhack - Instructions

OBJECTIVE:
Reach the exit (⌼) of every level. Each move or wait advances the world one
tick: drones walk, doors react to what is next to them, barriers flicker.

LEGEND:
• ▲ ▶ ▼ ◀  the player, pointing where it last moved (the cell it is looking at)
• #        wall
• k K *    small key, big key, generic item (walk over to pick up)
• @        computer (pick up to enable the console)
• ⌻        door: key doors open for a carrier holding a matching key,
           colored doors open for a carrier of the same color
• ⌘        ally drone: walks a fixed route and hands over its cargo on contact
• &        maze generator: rebuilds the maze in its working area
• ⍂        flux barrier: alternates between passable and solid
• ⌼        exit: loads the next level

CONSOLE:
The console starts disabled. Once you hold a computer you can:
• help                          list commands
• ls                            every entity with hackable attributes
• inspect <x> <y> | inspect @   all attributes of one entity (* marks hackable)
• set <x> <y> <attr> <value>    change a hackable attribute
• set @ <attr> <value>          same, on the cell the player is looking at

Common attributes:
• passable_for  "all", "none", or a comma list of kinds (player,ally_drone)
• color         a name (red, green, blue) or #rrggbb
• symbol        one character
• target_level  where an exit leads

STRATEGY:
• describe_cell shows exactly what blocks a path and what can be hacked
• bulk_move stops at the first blocked move and reports what was in the way
• wait is useful for timing flux barriers and drone routes
• reset_game restarts the current level if you get stuck`

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(instructions), nil
}

func (c *Client) handleDescribeCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	x, okX := intArg(args, "x")
	y, okY := intArg(args, "y")
	if !okX || !okY {
		return mcp.NewToolResultError("x and y are required"), nil
	}

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(describeCell(&state, x, y)), nil
}

func (c *Client) handleHack(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	x, _ := intArg(args, "x")
	y, _ := intArg(args, "y")
	attr, _ := args["attribute"].(string)
	value, _ := args["value"].(string)

	req := service.HackRequest{X: x, Y: y, Attribute: attr, Value: value}

	var result service.HackResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/hack"), req, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text := fmt.Sprintf("Hacked (%d,%d) %s.%s = %s\n\n%s",
		x, y, result.Entity.Kind, attr, value, formatEntity(result.Entity))
	return mcp.NewToolResultText(text), nil
}

func (c *Client) handleConsole(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	command, _ := args["command"].(string)

	var result service.ConsoleResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/console"), map[string]string{"command": command}, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	output := result.Output
	if output == "" {
		output = "(no output)"
	}
	return mcp.NewToolResultText("> " + command + "\n" + output), nil
}

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nStart level: %s\nCreated: %s\n\n%s",
		session.ID, session.StartLevel,
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		formatGameState(session.GameState))
}

func formatGameState(state *engine.GameState) string {
	if state == nil {
		return "No game state available"
	}

	var b strings.Builder

	fmt.Fprintf(&b, "Level: %s | Tick: %d | Moves: %d\n", state.Level, state.Tick, state.TotalMoves)
	if state.Description != "" {
		fmt.Fprintf(&b, "%s\n", state.Description)
	}

	if p := state.Player; p != nil {
		fmt.Fprintf(&b, "Player: (%d,%d) %s", p.Position.X, p.Position.Y, p.Symbol)
		if p.LookingAt != nil {
			fmt.Fprintf(&b, " looking at (%d,%d)", p.LookingAt.X, p.LookingAt.Y)
		}
		b.WriteString("\n")
		fmt.Fprintf(&b, "Inventory (%d/%d): %s\n", len(p.Inventory), p.InventoryLimit, formatInventory(p.Inventory))
	}

	if state.ConsoleEnabled {
		b.WriteString("Console: enabled\n")
	} else {
		b.WriteString("Console: disabled\n")
	}
	b.WriteString("\n")

	for y, row := range state.Rows {
		fmt.Fprintf(&b, "%2d %s\n", y, row)
	}

	if state.Message != "" {
		fmt.Fprintf(&b, "\nMessage: %s", state.Message)
	}

	return b.String()
}

func formatInventory(items []engine.ItemView) string {
	if len(items) == 0 {
		return "empty"
	}
	names := make([]string, len(items))
	for i, it := range items {
		names[i] = fmt.Sprintf("%s(%s)", it.Kind, it.Symbol)
	}
	return strings.Join(names, ", ")
}

func formatEntity(e engine.EntityView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s #%d at (%d,%d)\n", e.Kind, e.ID, e.Position.X, e.Position.Y)
	fmt.Fprintf(&b, "Symbol: %s  Color: %s  Type: %s\n", e.Symbol, e.Color, e.Type)
	fmt.Fprintf(&b, "Passable for: %s\n", e.Passable)
	if len(e.Attributes) > 0 {
		b.WriteString("Attributes (* = hackable):\n")
		for _, a := range e.Attributes {
			mark := " "
			if a.Hackable {
				mark = "*"
			}
			fmt.Fprintf(&b, "%s %s = %s\n", mark, a.Name, a.Value)
		}
	}
	return b.String()
}

// describeCell renders what the state knows about (x, y).
func describeCell(state *engine.GameState, x, y int) string {
	if x < 0 || y < 0 || x >= state.Width || y >= state.Height {
		return fmt.Sprintf("Coordinates (%d, %d) are out of bounds. Grid is %dx%d (x 0-%d, y 0-%d)",
			x, y, state.Width, state.Height, state.Width-1, state.Height-1)
	}

	if p := state.Player; p != nil && p.Position.X == x && p.Position.Y == y {
		return fmt.Sprintf("Cell (%d, %d): the player %s\nInventory: %s", x, y, p.Symbol, formatInventory(p.Inventory))
	}

	for _, e := range state.Entities {
		if e.Position.X == x && e.Position.Y == y {
			return fmt.Sprintf("Cell (%d, %d):\n%s", x, y, formatEntity(e))
		}
	}
	return fmt.Sprintf("Cell (%d, %d): empty, passable for all", x, y)
}

func formatMoveResult(result *service.MoveResult) string {
	var b strings.Builder
	if result.Success {
		b.WriteString("✓ Move successful\n")
	} else {
		b.WriteString("✗ Move failed\n")
	}

	if s := result.Step; s != nil {
		fmt.Fprintf(&b, "Step: %s (%d,%d)→(%d,%d) level=%s %s\n",
			s.Dir, s.From.X, s.From.Y, s.To.X, s.To.Y, s.Level, mark(s.Success))
	}

	if a := result.AttemptedTo; a != nil {
		fmt.Fprintf(&b, "Blocked: attempted (%d,%d) %s %s\n", a.X, a.Y, a.Kind, a.Symbol)
	}

	writeEvents(&b, result.Events)

	b.WriteString("\n")
	b.WriteString(formatGameState(result.GameState))
	return b.String()
}

func formatBulkMoveResult(sessionID string, result *service.BulkMoveResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Session: %s • Level: %s → %s\n", sessionID, result.StartLevel, result.EndLevel)
	fmt.Fprintf(&b, "Executed %d/%d moves", result.MovesExecuted, result.RequestedMoves)
	if result.Truncated {
		fmt.Fprintf(&b, " (truncated to %d)", result.Limit)
	}
	b.WriteString("\n")
	if result.StoppedReason != "" {
		fmt.Fprintf(&b, "Stopped on move %d: %s\n", result.StoppedOnMove, result.StoppedReason)
	}
	if a := result.AttemptedTo; a != nil {
		fmt.Fprintf(&b, "Blocked: attempted (%d,%d) %s %s\n", a.X, a.Y, a.Kind, a.Symbol)
	}

	if len(result.Steps) > 0 {
		b.WriteString("\nSteps:\n")
		for _, s := range result.Steps {
			fmt.Fprintf(&b, "%d. %s (%d,%d)→(%d,%d) %s", s.Idx, s.Dir, s.From.X, s.From.Y, s.To.X, s.To.Y, mark(s.Success))
			if s.Pickup != "" {
				fmt.Fprintf(&b, " picked up %s", s.Pickup)
			}
			if s.Console {
				b.WriteString(" console enabled")
			}
			b.WriteString("\n")
		}
	}

	writeEvents(&b, result.Events)

	b.WriteString("\n")
	b.WriteString(formatGameState(result.GameState))
	return b.String()
}

func writeEvents(b *strings.Builder, events []service.GameEvent) {
	if len(events) == 0 {
		return
	}
	b.WriteString("Events:\n")
	for _, event := range events {
		fmt.Fprintf(b, "- %s: %s\n", event.Type, event.Message)
	}
}

func mark(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Move History (Page %d/%d), total: %d\n\n", history.Page, history.TotalPages, history.TotalMoves)

	for _, move := range history.Moves {
		fmt.Fprintf(&b, "%d. %s %s [%s tick %d]\n", move.MoveNumber, move.Action, mark(move.Success), move.Level, move.Tick)
	}

	return b.String()
}

func formatCurrentSegment(state *engine.GameState) string {
	if state == nil {
		return "Current level moves: unavailable"
	}
	moves := state.CurrentMoves
	header := fmt.Sprintf("Current level moves: %d\n", state.CurrentMovesCount)
	if len(moves) == 0 {
		return header + "(no moves on this level yet)"
	}
	var b strings.Builder
	b.WriteString(header)
	for i, move := range moves {
		fmt.Fprintf(&b, "%d. %s %s\n", i+1, move.Action, mark(move.Success))
	}
	return b.String()
}

// ServeHTTP answers one JSON-RPC message per POST.
func (c *Client) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	response := c.mcpServer.HandleMessage(r.Context(), body)

	responseData, err := json.Marshal(response)
	if err != nil {
		http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(responseData)
}
