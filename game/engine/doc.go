// Package engine provides the grid-entity simulation behind gridhack.
//
// The engine package implements:
//   - Grid: fixed-size spatial storage with an id -> coordinate index
//   - Entity: a sealed interface over a closed set of kinds (walls, keys,
//     doors, drones, computers, maze generators, exits)
//   - Grid.Move: the movement and collision resolver
//   - GameEngine: the tick driver, level transitions and console hacks
//   - LevelConfig: JSON or YAML level files with a character legend
//
// Core Types:
//
// Entities never store their coordinates; Grid.Locate derives a position
// from identity. Collision handlers and behaviors receive the grid
// explicitly and return Signals (level transition, console toggle, pickup)
// instead of posting to a global queue.
//
// Usage:
//
//	cfg, err := engine.LoadLevelConfig("levels/level1.json")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	g := engine.NewGrid(engine.DefaultGridWidth, engine.DefaultGridHeight)
//	if err := engine.BuildLevel(g, cfg); err != nil {
//		log.Fatal(err)
//	}
//
//	p, _, _ := g.Player()
//	out, err := g.Move(p, engine.Right)
//
// Game Rules:
//
// The player walks over floor and items, picking items up while the
// inventory has room. Doors decide on every bump whether the bumping entity
// may pass: key doors look for a key kind, colored doors for a key kind of
// the door's current color. Once a computer is picked up the console may
// overwrite attributes an entity lists as hackable.
package engine
