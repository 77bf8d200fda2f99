package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wricardo/mcp-training/gridhack/game/engine"
)

func newTestClient(hub *Hub, sessionID string) *Client {
	return &Client{
		id:        "client-" + sessionID,
		hub:       hub,
		sessionID: sessionID,
		send:      make(chan []byte, 256),
	}
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub
}

func testState(level string, fingerprint string) *engine.GameState {
	return &engine.GameState{
		Level:       level,
		Width:       3,
		Height:      1,
		Rows:        []string{"▲  "},
		Fingerprint: fingerprint,
		Player:      &engine.PlayerView{Position: engine.Coord{X: 0, Y: 0}},
	}
}

func TestNewHub(t *testing.T) {
	hub := NewHub(nil)

	if hub.sessions == nil {
		t.Error("Hub sessions map is nil")
	}
	if hub.broadcast == nil || hub.register == nil || hub.unregister == nil {
		t.Error("Hub channels must be initialized")
	}
}

func TestHubRegisterClient(t *testing.T) {
	hub := NewHub(nil)
	client := newTestClient(hub, "test-session")

	hub.registerClient(client)

	if !hub.sessions["test-session"][client] {
		t.Error("Client was not registered in session")
	}
	if hub.ClientCount("test-session") != 1 {
		t.Errorf("Expected 1 client in session, got %d", hub.ClientCount("test-session"))
	}
}

func TestHubUnregisterClient(t *testing.T) {
	hub := NewHub(nil)
	client := newTestClient(hub, "test-session")

	hub.registerClient(client)
	hub.unregisterClient(client)

	if _, exists := hub.sessions["test-session"]; exists {
		t.Error("Session should have been cleaned up after last client unregistered")
	}
	if _, ok := <-client.send; ok {
		t.Error("Send channel should be closed")
	}

	// A second unregister is a no-op
	hub.unregisterClient(client)
}

func TestHubMultipleClientsInSession(t *testing.T) {
	hub := NewHub(nil)
	client1 := newTestClient(hub, "multi")
	client2 := newTestClient(hub, "multi")

	hub.registerClient(client1)
	hub.registerClient(client2)
	if hub.ClientCount("multi") != 2 {
		t.Errorf("Expected 2 clients in session, got %d", hub.ClientCount("multi"))
	}

	hub.unregisterClient(client1)
	if hub.ClientCount("multi") != 1 || !hub.sessions["multi"][client2] {
		t.Error("client2 should still be registered")
	}
}

func TestHubBroadcastToSession(t *testing.T) {
	hub := NewHub(nil)
	client := newTestClient(hub, "broadcast-test")
	other := newTestClient(hub, "other")
	hub.registerClient(client)
	hub.registerClient(other)

	if !hub.BroadcastToSession("broadcast-test", testState("level1", "abc")) {
		t.Fatal("Expected the state to be sent")
	}

	select {
	case data := <-client.send:
		var message Message
		if err := json.Unmarshal(data, &message); err != nil {
			t.Fatalf("Failed to unmarshal message: %v", err)
		}
		if message.SessionID != "broadcast-test" {
			t.Errorf("Expected sessionID broadcast-test, got %s", message.SessionID)
		}
		if message.Event != "state_update" {
			t.Errorf("Expected event 'state_update', got %s", message.Event)
		}
		if message.GameState.Level != "level1" || message.GameState.Rows[0] != "▲  " {
			t.Error("GameState not correctly transmitted")
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("No message received within timeout")
	}

	if len(other.send) != 0 {
		t.Error("Other sessions must not receive the update")
	}
}

func TestHubBroadcastSkipsUnchangedFingerprint(t *testing.T) {
	hub := NewHub(nil)
	client := newTestClient(hub, "dedupe")
	hub.registerClient(client)

	if !hub.BroadcastToSession("dedupe", testState("level1", "f1")) {
		t.Fatal("First state should be sent")
	}
	if hub.BroadcastToSession("dedupe", testState("level1", "f1")) {
		t.Error("Unchanged fingerprint should be skipped")
	}
	if !hub.BroadcastToSession("dedupe", testState("level1", "f2")) {
		t.Error("Changed fingerprint should be sent")
	}
	if len(client.send) != 2 {
		t.Errorf("Expected 2 queued messages, got %d", len(client.send))
	}

	// A new client resets the dedupe so it receives the current state
	hub.registerClient(newTestClient(hub, "dedupe"))
	if !hub.BroadcastToSession("dedupe", testState("level1", "f2")) {
		t.Error("State should be resent after a client joins")
	}
}

func TestHubBroadcastSendsAttributeChanges(t *testing.T) {
	levels := engine.StaticLevels{"gate": &engine.LevelConfig{
		Name:   "gate",
		Layout: []string{"p#."},
		Legend: map[string]engine.LegendEntry{
			"p": {Kind: "player"},
			"#": {Kind: "wall", Hackable: []string{"passable_for"}},
			".": {Kind: "empty"},
		},
	}}
	eng, err := engine.NewEngine(levels, 3, 1, "gate")
	if err != nil {
		t.Fatalf("Failed to build engine: %v", err)
	}
	eng.SetConsole(true)

	hub := NewHub(nil)
	hub.registerClient(newTestClient(hub, "gate"))

	if !hub.BroadcastToSession("gate", eng.State()) {
		t.Fatal("First state should be sent")
	}
	if hub.BroadcastToSession("gate", eng.State()) {
		t.Error("Identical state should be skipped")
	}

	if err := eng.Hack(engine.Coord{X: 1, Y: 0}, "passable_for", "player"); err != nil {
		t.Fatalf("Hack failed: %v", err)
	}
	state := eng.State()
	if !hub.BroadcastToSession("gate", state) {
		t.Error("A hacked passable_for should be sent")
	}

	if _, err := eng.Tick(engine.Input{}); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if !hub.BroadcastToSession("gate", eng.State()) {
		t.Error("A new tick should be sent")
	}
}

func TestHubBroadcastWithoutClients(t *testing.T) {
	hub := NewHub(nil)
	if hub.BroadcastToSession("nobody", testState("level1", "f")) {
		t.Error("Nothing should be sent to an empty session")
	}
}

func TestHubBroadcastEvent(t *testing.T) {
	hub := NewHub(nil)

	hub.BroadcastEvent("event-test", "custom-event", "test-data")

	select {
	case message := <-hub.broadcast:
		if message.SessionID != "event-test" {
			t.Errorf("Expected sessionID 'event-test', got %s", message.SessionID)
		}
		if message.Event != "custom-event" {
			t.Errorf("Expected event 'custom-event', got %s", message.Event)
		}
		if message.Data != "test-data" {
			t.Errorf("Expected data 'test-data', got %v", message.Data)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("No broadcast message received within timeout")
	}
}

func TestHubCloseSession(t *testing.T) {
	hub := NewHub(nil)
	client := newTestClient(hub, "closing")
	hub.registerClient(client)

	hub.CloseSession("closing")
	if hub.ClientCount("closing") != 0 {
		t.Error("Expected no clients after CloseSession")
	}
}

func dialTestServer(t *testing.T, hub *Hub, sessionID string) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, r.URL.Query().Get("session"))
	}))
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?session=" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	return conn
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met within timeout")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWebSocketUpgrade(t *testing.T) {
	hub := startHub(t)
	conn := dialTestServer(t, hub, "ws-test")

	waitFor(t, func() bool { return hub.ClientCount("ws-test") == 1 })

	conn.Close()
	waitFor(t, func() bool { return hub.ClientCount("ws-test") == 0 })
}

func TestWebSocketMessageReceive(t *testing.T) {
	hub := startHub(t)
	conn := dialTestServer(t, hub, "msg-test")
	defer conn.Close()

	waitFor(t, func() bool { return hub.ClientCount("msg-test") == 1 })

	hub.BroadcastToSession("msg-test", testState("level3", "ff"))

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read WebSocket message: %v", err)
	}

	var message Message
	if err := json.Unmarshal(data, &message); err != nil {
		t.Fatalf("Failed to unmarshal message: %v", err)
	}
	if message.SessionID != "msg-test" {
		t.Errorf("Expected sessionID 'msg-test', got %s", message.SessionID)
	}
	if message.GameState.Level != "level3" || message.GameState.Fingerprint != "ff" {
		t.Error("GameState not correctly received")
	}
}
