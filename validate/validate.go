// Package validate checks gridhack level files. Beyond the structural checks
// a real load performs, it verifies:
//   - exactly one player and a legend entry for every layout character
//   - every exit targets a level that exists next to the file
//   - an exit is reachable from the player, treating doors as passable
//   - levels that can only be finished by hacking offer a reachable computer
//
// Reachability runs on a grid built by the engine itself after one idle tick,
// so maze generators have carved their corridors before the flood fill.
package validate

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/wricardo/mcp-training/gridhack/game/engine"
)

// Reach says how hard it is for the player to get somewhere.
type Reach int

const (
	Unreachable Reach = iota
	Direct            // open cells only
	WithKeys          // doors counted as open
	WithHacks         // hackable passable_for and maze areas counted as open
)

func (r Reach) String() string {
	switch r {
	case Direct:
		return "direct"
	case WithKeys:
		return "with keys"
	case WithHacks:
		return "with hacks"
	default:
		return "unreachable"
	}
}

// Result captures the outcome of validating a single file. Info holds
// findings for valid files; Errors is empty when Valid is true.
type Result struct {
	File   string
	Valid  bool
	Errors []string
	Info   []string
}

func (r *Result) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Result) info(format string, args ...interface{}) {
	r.Info = append(r.Info, fmt.Sprintf(format, args...))
}

// LevelFiles lists the level files in dir in name order.
func LevelFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read levels directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".json", ".yaml", ".yml":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// Files validates each file. Exit targets are checked against the level
// files found in the same directory.
func Files(paths []string) []Result {
	known := make(map[string]map[string]bool)
	results := make([]Result, 0, len(paths))
	for _, path := range paths {
		dir := filepath.Dir(path)
		if _, ok := known[dir]; !ok {
			known[dir] = levelNames(dir)
		}
		results = append(results, File(path, known[dir]))
	}
	return results
}

func levelNames(dir string) map[string]bool {
	names := make(map[string]bool)
	files, err := LevelFiles(dir)
	if err != nil {
		return names
	}
	for _, f := range files {
		names[engine.LevelNameFromPath(f)] = true
		if cfg, err := engine.LoadLevelConfig(f); err == nil {
			names[cfg.Name] = true
		}
	}
	return names
}

// File loads and validates one level file. A nil known set skips the exit
// target check.
func File(path string, known map[string]bool) Result {
	result := Result{File: filepath.Base(path), Valid: true}

	cfg, err := engine.LoadLevelConfig(path)
	if err != nil {
		result.fail("%v", err)
		return result
	}
	Level(cfg, known, &result)
	return result
}

// Level validates a loaded level config and appends findings to result.
func Level(cfg *engine.LevelConfig, known map[string]bool, result *Result) {
	if err := engine.ValidateLevelConfig(cfg); err != nil {
		result.fail("%v", err)
		return
	}

	w, h := cfg.Size()
	g, start, err := settle(cfg)
	if err != nil {
		result.fail("%v", err)
		return
	}

	exits := g.MatchAll(func(e engine.Entity) bool { return e.Kind() == engine.KindExit })
	if len(exits) == 0 {
		result.info("no exit: the level is a dead end")
	}
	for _, c := range exits {
		target := g.At(c).(*engine.Exit).TargetLevel()
		if known != nil && !known[target] {
			result.fail("exit at %s targets unknown level %q", c, target)
		}
	}

	if cfg.Next != "" && known != nil && !known[cfg.Next] {
		result.fail("next names unknown level %q", cfg.Next)
	}

	reach := Reachability(g, start)
	if len(exits) > 0 {
		best := Unreachable
		for _, c := range exits {
			if r := reach[c]; r != Unreachable && (best == Unreachable || r < best) {
				best = r
			}
		}
		switch best {
		case Unreachable:
			result.fail("connectivity failure: no exit reachable from the player at %s, even with hacks", start)
		case WithHacks:
			computers := g.MatchAll(func(e engine.Entity) bool { return e.Kind() == engine.KindComputer })
			ok := !cfg.DisableConsole && slices.ContainsFunc(computers, func(c engine.Coord) bool {
				return reach[c] != Unreachable && reach[c] < WithHacks
			})
			if !ok {
				result.fail("exit needs hacking but no computer is reachable without it")
			}
		}
		if best != Unreachable {
			result.info("✓ Exit reachable %s", best)
		}
	}

	if result.Valid {
		result.info("✓ Name: %s", cfg.Name)
		result.info("✓ Grid: %dx%d", w, h)
		if cfg.Next != "" {
			result.info("✓ Next: %s", cfg.Next)
		}
	}
}

// settle builds cfg in a fresh engine and runs one idle tick. It returns the
// grid and the player's position.
func settle(cfg *engine.LevelConfig) (*engine.Grid, engine.Coord, error) {
	w, h := cfg.Size()
	eng, err := engine.NewEngine(engine.StaticLevels{cfg.Name: cfg}, w, h, cfg.Name)
	if err != nil {
		return nil, engine.Coord{}, fmt.Errorf("build failed: %w", err)
	}
	if _, err := eng.Tick(engine.Input{}); err != nil {
		return nil, engine.Coord{}, fmt.Errorf("first tick failed: %w", err)
	}
	g := eng.Grid()
	_, start, err := g.Player()
	if err != nil {
		return nil, engine.Coord{}, fmt.Errorf("player missing after first tick: %w", err)
	}
	return g, start, nil
}

// Reachability flood-fills from start in three widening passes and records
// the easiest pass that reaches each cell. Cells the player can enter
// directly are Direct; doors add WithKeys; hackable passable_for and the
// areas of maze generators with a hackable layout add WithHacks.
func Reachability(g *engine.Grid, start engine.Coord) map[engine.Coord]Reach {
	carvable := carvableCells(g)
	passes := []struct {
		reach Reach
		open  func(engine.Coord, engine.Entity) bool
	}{
		{Direct, func(_ engine.Coord, e engine.Entity) bool { return openDirect(e) }},
		{WithKeys, func(_ engine.Coord, e engine.Entity) bool { return openWithKeys(e) }},
		{WithHacks, func(c engine.Coord, e engine.Entity) bool {
			return openWithKeys(e) || carvable[c] || slices.Contains(e.Hackable(), "passable_for")
		}},
	}

	out := make(map[engine.Coord]Reach)
	for _, p := range passes {
		for c := range flood(g, start, p.open) {
			if _, seen := out[c]; !seen {
				out[c] = p.reach
			}
		}
	}
	return out
}

func openDirect(e engine.Entity) bool {
	return e == nil || e.Passage().Allows(engine.KindPlayer)
}

func isDoor(k engine.Kind) bool {
	switch k {
	case engine.KindKeyDoor, engine.KindColoredDoor, engine.KindChangingColoredDoor:
		return true
	}
	return false
}

func openWithKeys(e engine.Entity) bool {
	return openDirect(e) || isDoor(e.Kind())
}

// carvableCells returns the working areas of maze generators whose path or
// block kind can be hacked.
func carvableCells(g *engine.Grid) map[engine.Coord]bool {
	out := make(map[engine.Coord]bool)
	for _, c := range g.MatchAll(func(e engine.Entity) bool { return e.Kind() == engine.KindMazeGenerator }) {
		gen := g.At(c)
		hack := gen.Hackable()
		if !slices.Contains(hack, "path") && !slices.Contains(hack, "maze_block") {
			continue
		}
		v, err := gen.Attr("working_area")
		if err != nil || v == "" {
			continue
		}
		area, err := engine.ParseRect(v)
		if err != nil {
			continue
		}
		for x := area.Min.X; x < area.Max.X; x++ {
			for y := area.Min.Y; y < area.Max.Y; y++ {
				out[engine.Coord{X: x, Y: y}] = true
			}
		}
	}
	return out
}

// flood returns every cell reachable from start using 4-directional moves
// into cells open reports true for.
func flood(g *engine.Grid, start engine.Coord, open func(engine.Coord, engine.Entity) bool) map[engine.Coord]bool {
	visited := map[engine.Coord]bool{start: true}
	queue := []engine.Coord{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range g.Neighbors(cur) {
			if visited[next] || !g.InBounds(next) || !open(next, g.At(next)) {
				continue
			}
			visited[next] = true
			queue = append(queue, next)
		}
	}
	return visited
}

// Failed counts the invalid results.
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if !r.Valid {
			n++
		}
	}
	return n
}

// Report prints a concise report for results.
func Report(w io.Writer, results []Result) {
	for _, result := range results {
		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)
		if result.Valid {
			fmt.Fprintln(w, "✅ VALID")
			for _, info := range result.Info {
				fmt.Fprintln(w, "  "+info)
			}
			continue
		}
		fmt.Fprintln(w, "❌ INVALID")
		for _, err := range result.Errors {
			fmt.Fprintln(w, "  ❌ "+err)
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	if Failed(results) == 0 {
		fmt.Fprintln(w, "✅ All levels are valid!")
	} else {
		fmt.Fprintln(w, "❌ Some levels have errors")
	}
}
