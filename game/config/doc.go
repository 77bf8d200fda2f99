// Package config provides level file management for gridhack.
//
// The config package handles:
//   - Loading level files (JSON or YAML) from a levels directory
//   - Validation through a trial build of every loaded level
//   - Default level selection
//   - Level discovery, listing and saving
//
// Level Format:
//
// A level is a character layout plus a legend mapping each character to an
// entity kind, optional attribute params, the attributes the console may
// hack, and, for carriers, a starting inventory. A legend value may also be
// a bare kind name:
//
//	{
//	  "name": "level1",
//	  "layout": ["#####", "#p.e#", "#####"],
//	  "legend": {
//	    "#": "wall",
//	    ".": "empty",
//	    "p": "player",
//	    "e": {"kind": "exit", "params": {"target_level": "level2"}}
//	  }
//	}
//
// Usage:
//
//	manager, err := config.NewManager("levels", logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Manager is the engine's LevelSource
//	eng, err := engine.NewEngine(manager, 30, 30, manager.GetDefault())
//
//	// List available levels
//	levels, err := manager.ListLevels()
//
// Caching:
//
// Loaded levels are cached by name. Lookups take a read lock and fall back
// to a double-checked load under the write lock. RefreshCache drops the
// cache so edited files are picked up.
package config
