// Package websocket provides WebSocket transport for gridhack.
//
// The websocket package implements:
//   - Session-aware WebSocket connections
//   - State broadcasting after every change
//   - Connection lifecycle management
//
// Architecture:
//
// A central Hub manages all connections. Each client has a read goroutine
// that keeps the connection alive and a write goroutine that drains its send
// queue and pings the peer.
//
// Message Protocol:
//
// Outgoing messages are JSON:
//
//	{"session_id": "ab12", "event": "state_update", "game_state": {...}}
//
// Incoming messages are read and discarded.
//
// Session Integration:
//
// Clients pass their session ID as a query parameter (?session=ab12). Updates
// go only to clients of the same session. The hub remembers the fingerprint
// of the last state sent to each session and skips a broadcast when the state
// has not changed.
//
// Usage:
//
//	hub := websocket.NewHub(logger)
//	go hub.Run(ctx)
//
//	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("session"))
//	})
//
//	hub.BroadcastToSession(sessionID, state)
package websocket
