package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/mcp-training/gridhack/game/engine"
)

func createValidLevel(name string) *engine.LevelConfig {
	return &engine.LevelConfig{
		Name:        name,
		Description: "Test level",
		Layout: []string{
			"#####",
			"#p.e#",
			"#####",
		},
		Legend: map[string]engine.LegendEntry{
			"#": {Kind: "wall"},
			".": {Kind: "empty"},
			"p": {Kind: "player"},
			"e": {Kind: "exit", Params: map[string]string{"target_level": name}},
		},
	}
}

func writeLevelFile(t *testing.T, dir, name string, level *engine.LevelConfig) {
	t.Helper()
	data, err := json.MarshalIndent(level, "", "  ")
	require.NoError(t, err)

	filename := name
	if filepath.Ext(filename) == "" {
		filename = name + ".json"
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, filename), data, 0644))
}

func TestNewManager(t *testing.T) {
	t.Run("valid directory", func(t *testing.T) {
		dir := t.TempDir()
		writeLevelFile(t, dir, "level1", createValidLevel("level1"))

		manager, err := NewManager(dir, nil)
		require.NoError(t, err)
		assert.Equal(t, "level1", manager.GetDefault())
	})

	t.Run("non-existent directory", func(t *testing.T) {
		_, err := NewManager("/non/existent/path", nil)
		assert.Error(t, err)
	})

	t.Run("default falls back to first level", func(t *testing.T) {
		dir := t.TempDir()
		writeLevelFile(t, dir, "zeta", createValidLevel("zeta"))
		writeLevelFile(t, dir, "alpha", createValidLevel("alpha"))

		manager, err := NewManager(dir, nil)
		require.NoError(t, err)
		assert.Equal(t, "alpha", manager.GetDefault())
	})

	t.Run("empty directory", func(t *testing.T) {
		manager, err := NewManager(t.TempDir(), nil)
		require.NoError(t, err)
		assert.Empty(t, manager.GetDefault())
	})
}

func TestManager_LoadLevel(t *testing.T) {
	dir := t.TempDir()
	writeLevelFile(t, dir, "level1", createValidLevel("level1"))
	writeLevelFile(t, dir, "keys", createValidLevel("keys"))

	manager, err := NewManager(dir, nil)
	require.NoError(t, err)

	t.Run("load existing level", func(t *testing.T) {
		level, err := manager.LoadLevel("keys")
		require.NoError(t, err)
		assert.Equal(t, "keys", level.Name)
	})

	t.Run("load with extension", func(t *testing.T) {
		level, err := manager.LoadLevel("keys.json")
		require.NoError(t, err)
		assert.Equal(t, "keys", level.Name)
	})

	t.Run("load from cache", func(t *testing.T) {
		a, err := manager.LoadLevel("keys")
		require.NoError(t, err)
		b, err := manager.Level("keys")
		require.NoError(t, err)
		assert.Same(t, a, b)
	})

	t.Run("load non-existent level", func(t *testing.T) {
		_, err := manager.LoadLevel("non-existent")
		assert.ErrorIs(t, err, ErrLevelNotFound)
		assert.ErrorIs(t, err, engine.ErrLevelNotFound)
	})

	t.Run("reject path names", func(t *testing.T) {
		_, err := manager.LoadLevel("../level1")
		assert.ErrorIs(t, err, ErrInvalidName)
	})

	t.Run("load invalid level", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "invalid.json"), []byte(`{"name": "invalid"}`), 0644))
		_, err := manager.LoadLevel("invalid")
		assert.ErrorIs(t, err, engine.ErrInvalidLevel)
	})

	t.Run("load malformed JSON", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "malformed.json"), []byte(`{"name": invalid}`), 0644))
		_, err := manager.LoadLevel("malformed")
		assert.ErrorIs(t, err, engine.ErrInvalidLevel)
	})

	t.Run("load YAML level", func(t *testing.T) {
		yamlLevel := "layout:\n  - \"p.\"\nlegend:\n  p: player\n  .: empty\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, "small.yaml"), []byte(yamlLevel), 0644))
		level, err := manager.LoadLevel("small")
		require.NoError(t, err)
		assert.Equal(t, "small", level.Name, "name taken from the file")
	})
}

func TestManager_ListLevels(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"level1", "level2", "level3"} {
		writeLevelFile(t, dir, name, createValidLevel(name))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("readme"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0644))

	manager, err := NewManager(dir, nil)
	require.NoError(t, err)

	levels, err := manager.ListLevels()
	require.NoError(t, err)
	require.Len(t, levels, 3)

	assert.Equal(t, "level1", levels[0].LevelID)
	assert.Equal(t, "level1.json", levels[0].Filename)
	assert.Equal(t, 5, levels[0].Width)
	assert.Equal(t, 3, levels[0].Height)
	assert.Equal(t, "level3", levels[2].LevelID)
}

func TestManager_SaveLevel(t *testing.T) {
	dir := t.TempDir()
	writeLevelFile(t, dir, "level1", createValidLevel("level1"))

	manager, err := NewManager(dir, nil)
	require.NoError(t, err)

	t.Run("json by default", func(t *testing.T) {
		require.NoError(t, manager.SaveLevel("custom", createValidLevel("custom")))
		assert.FileExists(t, filepath.Join(dir, "custom.json"))

		require.NoError(t, manager.RefreshCache())
		level, err := manager.LoadLevel("custom")
		require.NoError(t, err)
		assert.Equal(t, "custom", level.Name)
	})

	t.Run("yaml by extension", func(t *testing.T) {
		require.NoError(t, manager.SaveLevel("yamlish.yaml", createValidLevel("yamlish")))
		path := filepath.Join(dir, "yamlish.yaml")
		assert.FileExists(t, path)

		level, err := engine.LoadLevelConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "exit", level.Legend["e"].Kind)
	})

	t.Run("invalid level is not written", func(t *testing.T) {
		bad := createValidLevel("bad")
		bad.Layout = []string{"..."}
		err := manager.SaveLevel("bad", bad)
		assert.ErrorIs(t, err, engine.ErrInvalidLevel)
		assert.NoFileExists(t, filepath.Join(dir, "bad.json"))
	})
}

func TestManager_SetDefault(t *testing.T) {
	dir := t.TempDir()
	writeLevelFile(t, dir, "level1", createValidLevel("level1"))
	writeLevelFile(t, dir, "level2", createValidLevel("level2"))

	manager, err := NewManager(dir, nil)
	require.NoError(t, err)

	require.NoError(t, manager.SetDefault("level2"))
	assert.Equal(t, "level2", manager.GetDefault())
	assert.ErrorIs(t, manager.SetDefault("missing"), ErrLevelNotFound)
	assert.Equal(t, "level2", manager.GetDefault())
}

func TestManager_ReloadLevel(t *testing.T) {
	dir := t.TempDir()
	level := createValidLevel("level1")
	writeLevelFile(t, dir, "level1", level)

	manager, err := NewManager(dir, nil)
	require.NoError(t, err)

	level.Description = "changed"
	writeLevelFile(t, dir, "level1", level)

	cached, err := manager.LoadLevel("level1")
	require.NoError(t, err)
	assert.Equal(t, "Test level", cached.Description)

	require.NoError(t, manager.ReloadLevel("level1"))
	reloaded, err := manager.LoadLevel("level1")
	require.NoError(t, err)
	assert.Equal(t, "changed", reloaded.Description)
}

func TestManager_ConcurrentAccess(t *testing.T) {
	dir := t.TempDir()
	for i := 1; i <= 5; i++ {
		name := fmt.Sprintf("level%d", i)
		writeLevelFile(t, dir, name, createValidLevel(name))
	}

	manager, err := NewManager(dir, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 50)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if _, err := manager.LoadLevel(fmt.Sprintf("level%d", id%5+1)); err != nil {
				errs <- err
			}
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Unexpected error during concurrent access: %v", err)
	}
	assert.Equal(t, 5, manager.Count())
}

// Test-only helpers

func (m *Manager) ReloadLevel(name string) error {
	m.mu.Lock()
	delete(m.levels, name)
	m.mu.Unlock()

	_, err := m.LoadLevel(name)
	return err
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.levels)
}
