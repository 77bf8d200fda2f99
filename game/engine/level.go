package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

const (
	DefaultGridWidth  = 30
	DefaultGridHeight = 30
	MaxGridSize       = 100
)

// LevelConfig is a hand-authored level: a character map plus a legend that
// says what each character spawns.
type LevelConfig struct {
	Name           string                 `json:"name" yaml:"name"`
	Description    string                 `json:"description" yaml:"description"`
	Next           string                 `json:"next,omitempty" yaml:"next,omitempty"`
	DisableConsole bool                   `json:"disable_console,omitempty" yaml:"disable_console,omitempty"`
	Layout         []string               `json:"layout" yaml:"layout"`
	Legend         map[string]LegendEntry `json:"legend" yaml:"legend"`
}

// LegendEntry describes what one layout character spawns. Params go through
// Configure; Inventory seeds a carrier's inventory. A Shared entry places one
// instance in every cell that uses the character instead of a fresh entity
// per cell.
type LegendEntry struct {
	Kind      string            `json:"kind" yaml:"kind"`
	Params    map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
	Hackable  []string          `json:"hackable,omitempty" yaml:"hackable,omitempty"`
	Inventory []LegendEntry     `json:"inventory,omitempty" yaml:"inventory,omitempty"`
	Shared    bool              `json:"shared,omitempty" yaml:"shared,omitempty"`
}

type legendEntryAlias LegendEntry

// UnmarshalJSON accepts either a full object or a bare kind name.
func (l *LegendEntry) UnmarshalJSON(data []byte) error {
	var kind string
	if err := json.Unmarshal(data, &kind); err == nil {
		*l = LegendEntry{Kind: kind}
		return nil
	}
	var a legendEntryAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*l = LegendEntry(a)
	return nil
}

// UnmarshalYAML accepts either a mapping or a bare kind name.
func (l *LegendEntry) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*l = LegendEntry{Kind: value.Value}
		return nil
	}
	var a legendEntryAlias
	if err := value.Decode(&a); err != nil {
		return err
	}
	*l = LegendEntry(a)
	return nil
}

// Size returns the layout's width (longest row, in runes) and height.
func (c *LevelConfig) Size() (int, int) {
	w := 0
	for _, row := range c.Layout {
		if n := utf8.RuneCountInString(row); n > w {
			w = n
		}
	}
	return w, len(c.Layout)
}

// ValidateLevelConfig checks structure and does a trial build, so any error
// a real load would hit is reported here.
func ValidateLevelConfig(cfg *LevelConfig) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidLevel)
	}
	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidLevel)
	}
	if len(cfg.Layout) == 0 {
		return fmt.Errorf("%w: layout is empty", ErrInvalidLevel)
	}
	w, h := cfg.Size()
	if w > MaxGridSize || h > MaxGridSize {
		return fmt.Errorf("%w: layout %dx%d exceeds %d", ErrInvalidLevel, w, h, MaxGridSize)
	}
	for key := range cfg.Legend {
		if utf8.RuneCountInString(key) != 1 {
			return fmt.Errorf("%w: legend key %q must be a single character", ErrInvalidLevel, key)
		}
	}

	players := 0
	for y, row := range cfg.Layout {
		for x, ch := range []rune(row) {
			entry, ok := cfg.Legend[string(ch)]
			if !ok {
				return fmt.Errorf("%w: character %q at (%d,%d) has no legend entry", ErrInvalidLevel, ch, x, y)
			}
			kind, err := ParseKind(entry.Kind)
			if err != nil {
				return fmt.Errorf("%w: legend %q: %v", ErrInvalidLevel, ch, err)
			}
			if kind == KindPlayer {
				players++
			}
		}
	}
	if players != 1 {
		return fmt.Errorf("%w: layout must contain exactly one player, got %d", ErrInvalidLevel, players)
	}

	if err := BuildLevel(NewGrid(w, h), cfg); err != nil {
		return err
	}
	return nil
}

// BuildLevel clears g and populates it from cfg. Placement is conditional,
// so a cell filled by an earlier non-replaceable shared instance is kept.
func BuildLevel(g *Grid, cfg *LevelConfig) error {
	w, h := cfg.Size()
	if w > g.Width() || h > g.Height() {
		return fmt.Errorf("%w: layout %dx%d does not fit a %dx%d grid", ErrInvalidLevel, w, h, g.Width(), g.Height())
	}

	spawners := make(map[rune]Spawner, len(cfg.Legend))
	for key, entry := range cfg.Legend {
		s, err := entry.spawner(g)
		if err != nil {
			return fmt.Errorf("%w: legend %q: %v", ErrInvalidLevel, key, err)
		}
		r, _ := utf8.DecodeRuneInString(key)
		spawners[r] = s
	}

	g.Clear()
	for y, row := range cfg.Layout {
		for x, ch := range []rune(row) {
			s, ok := spawners[ch]
			if !ok {
				return fmt.Errorf("%w: character %q at (%d,%d) has no legend entry", ErrInvalidLevel, ch, x, y)
			}
			if _, err := g.PlaceSpawn(Coord{x, y}, s); err != nil {
				return fmt.Errorf("%w: (%d,%d): %v", ErrInvalidLevel, x, y, err)
			}
		}
	}
	return nil
}

func (l LegendEntry) spawner(g *Grid) (Spawner, error) {
	kind, err := ParseKind(l.Kind)
	if err != nil {
		return nil, err
	}
	build := func(g *Grid) (Entity, error) { return l.build(g, kind) }
	if l.Shared {
		e, err := build(g)
		if err != nil {
			return nil, err
		}
		return Instance{Entity: e}, nil
	}
	// build one up front so bad params surface before the grid is cleared
	if _, err := build(g); err != nil {
		return nil, err
	}
	return Factory(build), nil
}

func (l LegendEntry) build(g *Grid, kind Kind) (Entity, error) {
	params := make(map[string]string, len(l.Params)+1)
	for k, v := range l.Params {
		params[k] = v
	}
	if len(l.Hackable) > 0 {
		params["hackable"] = strings.Join(l.Hackable, ",")
	}
	e, err := NewConfigured(g, kind, params)
	if err != nil {
		return nil, err
	}
	if len(l.Inventory) == 0 {
		return e, nil
	}
	inv := InventoryOf(e)
	if inv == nil {
		return nil, fmt.Errorf("%w: %s has no inventory", ErrInvalidValue, kind)
	}
	for _, sub := range l.Inventory {
		subKind, err := ParseKind(sub.Kind)
		if err != nil {
			return nil, err
		}
		item, err := sub.build(g, subKind)
		if err != nil {
			return nil, err
		}
		if err := inv.Push(item); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// LoadLevelConfig reads a level file. The format follows the extension:
// .yaml/.yml is YAML, anything else JSON.
func LoadLevelConfig(path string) (*LevelConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := ParseLevelConfig(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("level file %s: %w", path, err)
	}
	if cfg.Name == "" {
		cfg.Name = LevelNameFromPath(path)
	}
	if err := ValidateLevelConfig(cfg); err != nil {
		return nil, fmt.Errorf("level file %s: %w", path, err)
	}
	return cfg, nil
}

// ParseLevelConfig decodes data as YAML when ext is .yaml or .yml and as
// JSON otherwise. It does not validate.
func ParseLevelConfig(data []byte, ext string) (*LevelConfig, error) {
	var cfg LevelConfig
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidLevel, err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidLevel, err)
		}
	}
	return &cfg, nil
}

// LevelNameFromPath strips directory and extension.
func LevelNameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// LegendKeys returns the legend characters in sorted order.
func (c *LevelConfig) LegendKeys() []string {
	keys := make([]string, 0, len(c.Legend))
	for k := range c.Legend {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// StaticLevels is an in-memory LevelSource keyed by level name.
type StaticLevels map[string]*LevelConfig

func (s StaticLevels) Level(name string) (*LevelConfig, error) {
	cfg, ok := s[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLevelNotFound, name)
	}
	return cfg, nil
}
