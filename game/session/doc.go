// Package session provides session management for gridhack.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Unique session ID generation
//   - Session lifecycle management and expiry
//
// Core Types:
//
// Manager is the session manager. Each session owns its own engine.GameEngine,
// built on a grid of the manager's fixed size and loading levels from the
// manager's engine.LevelSource.
//
// Session Identifiers:
//
// Sessions use 4-character hex IDs unless the caller supplies one. IDs are
// matched case-insensitively.
//
// Usage:
//
//	manager := session.NewManager(levels, 30, 30, logger)
//
//	sess, err := manager.Create("", "level1")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	sess, err = manager.Get(sess.ID)
//
// Sessions live in memory only.
package session
