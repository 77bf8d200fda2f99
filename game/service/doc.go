// Package service provides the business logic layer for gridhack.
//
// The service package implements:
//   - Multi-session game management
//   - Move, bulk move and wait processing on each session's tick driver
//   - Console commands and attribute hacking
//   - Move history pagination
//   - Level listing, loading and saving
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// LevelManager resolves level names and doubles as the engines' LevelSource.
//
// Architecture:
//
// The service layer sits between the transports (HTTP, WebSocket, MCP and the
// terminal client) and the engine. Engines are not safe for concurrent use,
// so every operation holds the service lock while it touches a session.
//
// Usage:
//
//	levels, _ := config.NewManager("levels", logger)
//	sessions := session.NewManager(levels, 30, 30, logger)
//	gameService := service.NewGameService(sessions, levels, logger)
//
//	info, err := gameService.CreateSession(ctx, "level1")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := gameService.Move(ctx, info.ID, "up", false)
//
// Moves that fail report the attempted cell in AttemptInfo instead of
// returning an error. Errors are reserved for unknown sessions, invalid
// directions and console failures.
package service
