// Package mcp exposes gridhack to AI agents over the Model Context Protocol.
//
// The Client is a thin proxy: every tool call becomes a request against the
// REST API, and the JSON answer is rendered as compact text for the agent.
//
// Tools:
//   - create_session, get_session, list_sessions
//   - game_state, describe_cell
//   - move, bulk_move, wait, reset_game, move_history
//   - hack, console
//   - list_levels, game_instructions
//
// Transport modes:
//   - Stdio: server.ServeStdio(client.GetMCPServer())
//   - HTTP: the Client is an http.Handler for single JSON-RPC messages
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080", logger)
//	mux.Handle("/mcp", client)
package mcp
