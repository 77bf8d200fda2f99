package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/wricardo/mcp-training/gridhack/game/engine"
	"github.com/wricardo/mcp-training/gridhack/game/service"
)

var (
	ErrLevelNotFound = fmt.Errorf("level file %w", engine.ErrLevelNotFound)
	ErrInvalidName   = errors.New("invalid level name")
)

// levelExts are tried in order when resolving a level name to a file.
var levelExts = []string{".json", ".yaml", ".yml"}

// DefaultLevel is used when present; otherwise the first level by name.
const DefaultLevel = "level1"

// Manager handles level file loading and caching
type Manager struct {
	levelsDir    string
	defaultLevel string
	levels       map[string]*engine.LevelConfig
	files        map[string]string
	logger       *zap.Logger
	mu           sync.RWMutex
}

// NewManager creates a level manager over levelsDir
func NewManager(levelsDir string, logger *zap.Logger) (*Manager, error) {
	if _, err := os.Stat(levelsDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("levels directory does not exist: %s", levelsDir)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Manager{
		levelsDir: levelsDir,
		levels:    make(map[string]*engine.LevelConfig),
		files:     make(map[string]string),
		logger:    logger.Named("levels"),
	}

	if err := m.loadDefaultLevel(); err != nil {
		return nil, fmt.Errorf("failed to pick default level: %w", err)
	}

	return m, nil
}

// Level implements engine.LevelSource
func (m *Manager) Level(name string) (*engine.LevelConfig, error) {
	return m.LoadLevel(name)
}

// LoadLevel loads a level by name, from cache when possible
func (m *Manager) LoadLevel(name string) (*engine.LevelConfig, error) {
	name = trimLevelExt(name)
	if err := checkName(name); err != nil {
		return nil, err
	}

	m.mu.RLock()
	if cfg, exists := m.levels[name]; exists {
		m.mu.RUnlock()
		return cfg, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if cfg, exists := m.levels[name]; exists {
		return cfg, nil
	}

	path, err := m.resolve(name)
	if err != nil {
		return nil, err
	}

	cfg, err := engine.LoadLevelConfig(path)
	if err != nil {
		m.logger.Warn("level rejected", zap.String("path", path), zap.Error(err))
		return nil, err
	}

	m.levels[name] = cfg
	m.files[name] = path
	m.logger.Debug("level loaded", zap.String("level", name), zap.String("path", path))
	return cfg, nil
}

// ListLevels returns information about every valid level file
func (m *Manager) ListLevels() ([]*service.LevelInfo, error) {
	entries, err := os.ReadDir(m.levelsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read levels directory: %w", err)
	}

	seen := make(map[string]bool)
	var levels []*service.LevelInfo

	for _, entry := range entries {
		if entry.IsDir() || !isLevelFile(entry.Name()) {
			continue
		}
		id := trimLevelExt(entry.Name())
		if seen[id] {
			continue
		}

		cfg, err := m.LoadLevel(id)
		if err != nil {
			// Skip invalid levels
			continue
		}
		seen[id] = true

		w, h := cfg.Size()
		levels = append(levels, &service.LevelInfo{
			Filename:       entry.Name(),
			LevelID:        id,
			Name:           cfg.Name,
			Description:    cfg.Description,
			Width:          w,
			Height:         h,
			Next:           cfg.Next,
			DisableConsole: cfg.DisableConsole,
		})
	}

	sort.Slice(levels, func(i, j int) bool { return levels[i].LevelID < levels[j].LevelID })
	return levels, nil
}

// GetDefault returns the name of the default level
func (m *Manager) GetDefault() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultLevel
}

// SetDefault sets the default level by name
func (m *Manager) SetDefault(name string) error {
	if _, err := m.LoadLevel(name); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultLevel = trimLevelExt(name)
	return nil
}

// RefreshCache drops every cached level so the next load rereads disk
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.levels = make(map[string]*engine.LevelConfig)
	m.files = make(map[string]string)
	m.mu.Unlock()

	return m.loadDefaultLevel()
}

// SaveLevel validates and writes a level. The format follows the name's
// extension, then the existing file's, then JSON.
func (m *Manager) SaveLevel(name string, cfg *engine.LevelConfig) error {
	ext := strings.ToLower(filepath.Ext(name))
	if !isLevelFile(name) {
		ext = ""
	}
	name = trimLevelExt(name)
	if err := checkName(name); err != nil {
		return err
	}
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", engine.ErrInvalidLevel)
	}
	if cfg.Name == "" {
		cfg.Name = name
	}
	if err := engine.ValidateLevelConfig(cfg); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if ext == "" {
		if existing, err := m.resolve(name); err == nil {
			ext = strings.ToLower(filepath.Ext(existing))
		} else {
			ext = ".json"
		}
	}

	var data []byte
	var err error
	switch ext {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(cfg)
	default:
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal level: %w", err)
	}

	path := filepath.Join(m.levelsDir, name+ext)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write level file: %w", err)
	}

	m.levels[name] = cfg
	m.files[name] = path
	m.logger.Info("level saved", zap.String("level", name), zap.String("path", path))
	return nil
}

// loadDefaultLevel picks DefaultLevel, or the first valid level on disk.
func (m *Manager) loadDefaultLevel() error {
	if _, err := m.LoadLevel(DefaultLevel); err == nil {
		m.mu.Lock()
		m.defaultLevel = DefaultLevel
		m.mu.Unlock()
		return nil
	}

	levels, err := m.ListLevels()
	if err != nil {
		return err
	}
	if len(levels) == 0 {
		m.logger.Warn("no valid levels found", zap.String("dir", m.levelsDir))
		return nil
	}

	m.mu.Lock()
	m.defaultLevel = levels[0].LevelID
	m.mu.Unlock()
	return nil
}

// resolve finds the file backing name. Callers hold the lock.
func (m *Manager) resolve(name string) (string, error) {
	if path, ok := m.files[name]; ok {
		return path, nil
	}
	for _, ext := range levelExts {
		path := filepath.Join(m.levelsDir, name+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrLevelNotFound, name)
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func isLevelFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range levelExts {
		if ext == e {
			return true
		}
	}
	return false
}

func trimLevelExt(name string) string {
	if isLevelFile(name) {
		return strings.TrimSuffix(name, filepath.Ext(name))
	}
	return name
}
