package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/wricardo/mcp-training/gridhack/api"
	"github.com/wricardo/mcp-training/gridhack/game/config"
	"github.com/wricardo/mcp-training/gridhack/game/engine"
	"github.com/wricardo/mcp-training/gridhack/game/service"
	"github.com/wricardo/mcp-training/gridhack/game/session"
)

func toolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil || len(result.Content) == 0 {
		t.Fatal("Expected result content")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatal("Expected text content in result")
	}
	return text.Text
}

func TestNewClient(t *testing.T) {
	baseURL := "http://localhost:8080/"
	client := NewClient(baseURL, nil)

	if client == nil {
		t.Fatal("Expected client to be created")
	}

	if client.baseURL != "http://localhost:8080" {
		t.Errorf("Expected trailing slash trimmed, got %s", client.baseURL)
	}

	if client.httpClient == nil {
		t.Error("Expected HTTP client to be initialized")
	}

	if client.GetMCPServer() == nil {
		t.Error("Expected MCP server to be initialized")
	}
}

func TestClient_apiCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Expected JSON content type, got %q", r.Header.Get("Content-Type"))
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		json.NewEncoder(w).Encode(map[string]string{"echo": body["ping"]})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)
	var result map[string]string
	if err := client.apiCall(context.Background(), "POST", "/anything", map[string]string{"ping": "pong"}, &result); err != nil {
		t.Fatalf("apiCall failed: %v", err)
	}
	if result["echo"] != "pong" {
		t.Errorf("Expected echo pong, got %q", result["echo"])
	}
}

func TestClient_apiCall_Error(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", nil)
	if err := client.apiCall(context.Background(), "GET", "/api/sessions", nil, nil); err == nil {
		t.Error("Expected connection error")
	}
}

func TestClient_apiCall_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/plain" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "session not found"})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)

	err := client.apiCall(context.Background(), "GET", "/api/sessions/x", nil, nil)
	if err == nil || err.Error() != "session not found" {
		t.Errorf("Expected API error message, got %v", err)
	}

	err = client.apiCall(context.Background(), "GET", "/plain", nil, nil)
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Errorf("Expected status code error, got %v", err)
	}
}

func TestClient_createSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" || r.URL.Path != "/api/sessions" {
			t.Errorf("Expected POST /api/sessions, got %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)

		resp := service.SessionInfo{
			ID:         "a1b2",
			StartLevel: body["level"],
			Level:      body["level"],
			GameState:  &engine.GameState{Level: body["level"]},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)

	result, err := client.handleCreateSession(context.Background(), toolRequest("create_session", map[string]interface{}{
		"level": "level3",
	}))
	if err != nil {
		t.Fatalf("createSession failed: %v", err)
	}

	text := resultText(t, result)
	if !strings.Contains(text, "a1b2") || !strings.Contains(text, "Level: level3") {
		t.Errorf("Expected session ID and level in result, got: %s", text)
	}
}

func TestClient_nilArguments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(service.SessionInfo{ID: "zzzz"})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)
	result, err := client.handleCreateSession(context.Background(), toolRequest("create_session", nil))
	if err != nil {
		t.Fatalf("createSession failed: %v", err)
	}
	if !strings.Contains(resultText(t, result), "zzzz") {
		t.Error("Expected session id in result")
	}
}

func TestFormatGameState(t *testing.T) {
	state := &engine.GameState{
		Level:      "level2",
		Tick:       4,
		TotalMoves: 4,
		Width:      3,
		Height:     2,
		Rows:       []string{"#▶k", "..."},
		Player: &engine.PlayerView{
			Position:       engine.Coord{X: 1, Y: 0},
			Symbol:         "▶",
			Inventory:      []engine.ItemView{{Kind: engine.KindComputer, Symbol: "@"}},
			InventoryLimit: 2,
			LookingAt:      &engine.Coord{X: 2, Y: 0},
		},
		ConsoleEnabled: true,
		Message:        "console online",
	}

	out := formatGameState(state)
	for _, want := range []string{
		"Level: level2 | Tick: 4",
		"Player: (1,0) ▶ looking at (2,0)",
		"Inventory (1/2): computer(@)",
		"Console: enabled",
		" 0 #▶k",
		"Message: console online",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output:\n%s", want, out)
		}
	}

	if formatGameState(nil) != "No game state available" {
		t.Error("Expected placeholder for nil state")
	}
}

func TestDescribeCell(t *testing.T) {
	state := &engine.GameState{
		Width:  3,
		Height: 2,
		Player: &engine.PlayerView{Position: engine.Coord{X: 0, Y: 0}, Symbol: "▲"},
		Entities: []engine.EntityView{
			{
				ID:       7,
				Kind:     engine.KindWall,
				Type:     "static",
				Symbol:   "#",
				Position: engine.Coord{X: 2, Y: 1},
				Passable: "none",
				Attributes: []engine.AttrValue{
					{Name: "passable_for", Value: "none", Hackable: true},
					{Name: "symbol", Value: "#"},
				},
			},
		},
	}

	tests := []struct {
		name string
		x, y int
		want []string
	}{
		{name: "out of bounds", x: 3, y: 0, want: []string{"out of bounds", "Grid is 3x2"}},
		{name: "player", x: 0, y: 0, want: []string{"the player ▲"}},
		{name: "entity", x: 2, y: 1, want: []string{"wall #7 at (2,1)", "Passable for: none", "* passable_for = none", "  symbol = #"}},
		{name: "empty", x: 1, y: 1, want: []string{"empty, passable for all"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := describeCell(state, tt.x, tt.y)
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("Expected %q in:\n%s", w, out)
				}
			}
		})
	}
}

func TestFormatMoveResult(t *testing.T) {
	result := &service.MoveResult{
		Success:   true,
		GameState: &engine.GameState{Level: "level1"},
		Step:      &service.StepInfo{Dir: "right", From: engine.Coord{X: 1, Y: 1}, To: engine.Coord{X: 2, Y: 1}, Success: true, Level: "level1"},
		Events:    []service.GameEvent{{Type: "pickup", Message: "picked up small_key"}},
	}

	out := formatMoveResult(result)
	if !strings.Contains(out, "✓ Move successful") {
		t.Error("Expected success marker")
	}
	if !strings.Contains(out, "Step: right (1,1)→(2,1) level=level1 ✓") {
		t.Errorf("Expected step line, got:\n%s", out)
	}
	if !strings.Contains(out, "- pickup: picked up small_key") {
		t.Error("Expected pickup event")
	}
}

func TestFormatMoveResult_Failed(t *testing.T) {
	result := &service.MoveResult{
		Success:     false,
		GameState:   &engine.GameState{},
		AttemptedTo: &service.AttemptInfo{X: 0, Y: 1, Kind: "wall", Symbol: "#"},
	}

	out := formatMoveResult(result)
	if !strings.Contains(out, "✗ Move failed") {
		t.Error("Expected failure marker")
	}
	if !strings.Contains(out, "Blocked: attempted (0,1) wall #") {
		t.Errorf("Expected blocked diagnostic, got:\n%s", out)
	}
}

func TestFormatBulkMoveResult(t *testing.T) {
	result := &service.BulkMoveResult{
		MovesExecuted:  2,
		RequestedMoves: 60,
		Truncated:      true,
		Limit:          service.MaxBulkMoves,
		StoppedReason:  "blocked by wall at (3,1)",
		StoppedOnMove:  3,
		StartLevel:     "level1",
		EndLevel:       "level1",
		Steps: []service.StepInfo{
			{Idx: 1, Dir: "right", To: engine.Coord{X: 1}, Success: true, Pickup: "computer", Console: true},
			{Idx: 2, Dir: "right", From: engine.Coord{X: 1}, To: engine.Coord{X: 2}, Success: true},
		},
		GameState: &engine.GameState{},
	}

	out := formatBulkMoveResult("ab12", result)
	for _, want := range []string{
		"Session: ab12 • Level: level1 → level1",
		"Executed 2/60 moves (truncated to 50)",
		"Stopped on move 3: blocked by wall",
		"1. right (0,0)→(1,0) ✓ picked up computer console enabled",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output:\n%s", want, out)
		}
	}
}

func TestClient_handleGameInstructions(t *testing.T) {
	client := NewClient("http://localhost:8080", nil)

	result, err := client.handleGameInstructions(context.Background(), toolRequest("game_instructions", nil))
	if err != nil {
		t.Fatalf("handleGameInstructions failed: %v", err)
	}

	text := resultText(t, result)
	for _, want := range []string{"exit", "console", "passable_for", "inspect"} {
		if !strings.Contains(text, want) {
			t.Errorf("Instructions should mention %q", want)
		}
	}
}

// newLiveAPI serves the real API over a single small level.
func newLiveAPI(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	level := `{
  "name": "hop",
  "layout": ["#####", "#p.e#", "#####"],
  "legend": {
    "#": {"kind": "wall", "hackable": ["passable_for"]},
    ".": "empty",
    "p": "player",
    "e": {"kind": "exit", "params": {"target_level": "hop"}}
  }
}`
	if err := os.WriteFile(filepath.Join(dir, "hop.json"), []byte(level), 0644); err != nil {
		t.Fatal(err)
	}

	levels, err := config.NewManager(dir, nil)
	if err != nil {
		t.Fatalf("level manager: %v", err)
	}
	sessions := session.NewManager(levels, 5, 3, nil)
	svc := service.NewGameService(sessions, levels, nil)

	server := httptest.NewServer(api.NewServer(svc, nil, nil))
	t.Cleanup(server.Close)
	return server.URL
}

func TestClient_Integration(t *testing.T) {
	client := NewClient(newLiveAPI(t), nil)
	ctx := context.Background()

	var created service.SessionInfo
	if err := client.apiCall(ctx, "POST", "/api/sessions", map[string]string{}, &created); err != nil {
		t.Fatalf("create session: %v", err)
	}
	id := created.ID

	result, err := client.handleGameState(ctx, toolRequest("game_state", map[string]interface{}{"session_id": id}))
	if err != nil {
		t.Fatal(err)
	}
	if text := resultText(t, result); !strings.Contains(text, "Level: hop") {
		t.Errorf("Expected level hop in state:\n%s", text)
	}

	result, _ = client.handleMove(ctx, toolRequest("move", map[string]interface{}{
		"session_id": id, "direction": "right", "intent": "toward the exit",
	}))
	if result.IsError {
		t.Fatalf("move failed: %s", resultText(t, result))
	}
	if text := resultText(t, result); !strings.Contains(text, "✓ Move successful") {
		t.Errorf("Expected successful move:\n%s", text)
	}

	result, _ = client.handleMove(ctx, toolRequest("move", map[string]interface{}{
		"session_id": id, "direction": "up",
	}))
	if text := resultText(t, result); !strings.Contains(text, "Blocked: attempted (2,0) wall") {
		t.Errorf("Expected wall block:\n%s", text)
	}

	result, _ = client.handleDescribeCell(ctx, toolRequest("describe_cell", map[string]interface{}{
		"session_id": id, "x": float64(0), "y": float64(0),
	}))
	if text := resultText(t, result); !strings.Contains(text, "* passable_for = none") {
		t.Errorf("Expected hackable wall attribute:\n%s", text)
	}

	result, _ = client.handleConsole(ctx, toolRequest("console", map[string]interface{}{
		"session_id": id, "command": "ls",
	}))
	if !result.IsError || !strings.Contains(resultText(t, result), "console is disabled") {
		t.Errorf("Expected console disabled error, got: %s", resultText(t, result))
	}

	result, _ = client.handleGameState(ctx, toolRequest("game_state", map[string]interface{}{"session_id": "nope"}))
	if !result.IsError {
		t.Error("Expected error for unknown session")
	}
}

func TestClient_ServeHTTP(t *testing.T) {
	client := NewClient("http://localhost:8080", nil)

	w := httptest.NewRecorder()
	client.ServeHTTP(w, httptest.NewRequest("GET", "/mcp", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405 for GET, got %d", w.Code)
	}

	initMsg := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"1"}}}`
	w = httptest.NewRecorder()
	client.ServeHTTP(w, httptest.NewRequest("POST", "/mcp", strings.NewReader(initMsg)))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"gridhack"`) {
		t.Errorf("Expected server info in response, got %s", w.Body.String())
	}
}
