package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func createValidGrid() *GridConfig {
	return &GridConfig{
		ID:          "test",
		Name:        "Test Grid",
		Description: "Test layout",
		Layout: []string{
			"C....",
			".##..",
			"....C",
		},
	}
}

func writeYAML(t *testing.T, dir, name string, grid *GridConfig) {
	t.Helper()
	data, err := yaml.Marshal(grid)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0644))
}

func writeJSON(t *testing.T, dir, name string, grid *GridConfig) {
	t.Helper()
	data, err := json.Marshal(grid)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0644))
}

func TestNewManager(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		_, err := NewManager(filepath.Join(t.TempDir(), "nope"))
		assert.Error(t, err)
	})

	t.Run("empty directory uses built-in default", func(t *testing.T) {
		m, err := NewManager(t.TempDir())
		require.NoError(t, err)
		def := m.GetDefault()
		require.NotNil(t, def)
		assert.Equal(t, DefaultGridID, def.ID)
		assert.Equal(t, "Default Warehouse", def.Name)
	})

	t.Run("default file overrides built-in", func(t *testing.T) {
		dir := t.TempDir()
		grid := createValidGrid()
		grid.ID = "default"
		grid.Name = "Custom Default"
		writeYAML(t, dir, "default.yaml", grid)

		m, err := NewManager(dir)
		require.NoError(t, err)
		assert.Equal(t, "Custom Default", m.GetDefault().Name)
	})

	t.Run("built-in default wins over other grids", func(t *testing.T) {
		dir := t.TempDir()
		grid := createValidGrid()
		grid.ID = "alpha"
		writeYAML(t, dir, "alpha.yaml", grid)

		m, err := NewManager(dir)
		require.NoError(t, err)
		assert.Equal(t, DefaultGridID, m.GetDefault().ID)
	})
}

func TestManager_LoadGrid(t *testing.T) {
	dir := t.TempDir()
	writeYAML(t, dir, "yamlgrid.yaml", createValidGrid())

	jsonGrid := createValidGrid()
	jsonGrid.ID = ""
	jsonGrid.Name = "JSON Grid"
	writeJSON(t, dir, "jsongrid.json", jsonGrid)

	invalid := createValidGrid()
	invalid.Layout = []string{"C..", ".."}
	writeYAML(t, dir, "broken.yml", invalid)

	m, err := NewManager(dir)
	require.NoError(t, err)

	t.Run("yaml", func(t *testing.T) {
		grid, err := m.LoadGrid("yamlgrid")
		require.NoError(t, err)
		assert.Equal(t, "Test Grid", grid.Name)
		assert.Len(t, grid.Layout, 3)
	})

	t.Run("json fills missing id from filename", func(t *testing.T) {
		grid, err := m.LoadGrid("jsongrid")
		require.NoError(t, err)
		assert.Equal(t, "jsongrid", grid.ID)
		assert.Equal(t, "JSON Grid", grid.Name)
	})

	t.Run("cached", func(t *testing.T) {
		first, err := m.LoadGrid("yamlgrid")
		require.NoError(t, err)
		second, err := m.LoadGrid("yamlgrid")
		require.NoError(t, err)
		assert.Same(t, first, second)
	})

	t.Run("invalid grid", func(t *testing.T) {
		_, err := m.LoadGrid("broken")
		assert.ErrorIs(t, err, ErrInvalidGrid)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := m.LoadGrid("missing")
		assert.ErrorIs(t, err, ErrGridNotFound)
	})

	t.Run("path traversal", func(t *testing.T) {
		_, err := m.LoadGrid("../etc/passwd")
		assert.ErrorIs(t, err, ErrGridNotFound)
	})

	t.Run("built-in default", func(t *testing.T) {
		grid, err := m.LoadGrid(DefaultGridID)
		require.NoError(t, err)
		assert.Equal(t, "Default Warehouse", grid.Name)
	})
}

func TestManager_ListGrids(t *testing.T) {
	dir := t.TempDir()

	b := createValidGrid()
	b.ID = "bravo"
	writeYAML(t, dir, "bravo.yaml", b)

	a := createValidGrid()
	a.ID = "alpha"
	writeJSON(t, dir, "alpha.json", a)

	invalid := createValidGrid()
	invalid.Name = ""
	writeYAML(t, dir, "invalid.yaml", invalid)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.yaml"), 0755))

	m, err := NewManager(dir)
	require.NoError(t, err)

	infos, err := m.ListGrids()
	require.NoError(t, err)
	require.Len(t, infos, 3)

	assert.Equal(t, "alpha", infos[0].GridID)
	assert.Equal(t, "alpha.json", infos[0].Filename)
	assert.Equal(t, "bravo", infos[1].GridID)
	assert.Equal(t, DefaultGridID, infos[2].GridID)
	assert.Empty(t, infos[2].Filename)

	assert.Equal(t, 5, infos[0].Width)
	assert.Equal(t, 3, infos[0].Height)
	assert.Equal(t, 2, infos[0].Chargers)
	assert.Equal(t, 11, infos[0].Walkable)
}

func TestManager_SaveGrid(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir)
	require.NoError(t, err)

	t.Run("valid grid is written as yaml", func(t *testing.T) {
		require.NoError(t, m.SaveGrid("saved", createValidGrid()))

		_, err := os.Stat(filepath.Join(dir, "saved.yaml"))
		require.NoError(t, err)

		grid, err := m.LoadGrid("saved")
		require.NoError(t, err)
		assert.Equal(t, "saved", grid.ID)
	})

	t.Run("replaces json version", func(t *testing.T) {
		writeJSON(t, dir, "swap.json", createValidGrid())
		require.NoError(t, m.SaveGrid("swap", createValidGrid()))

		_, err := os.Stat(filepath.Join(dir, "swap.json"))
		assert.True(t, os.IsNotExist(err))
		_, err = os.Stat(filepath.Join(dir, "swap.yaml"))
		assert.NoError(t, err)
	})

	t.Run("reload after refresh", func(t *testing.T) {
		m.RefreshCache()
		grid, err := m.LoadGrid("saved")
		require.NoError(t, err)
		assert.Equal(t, "Test Grid", grid.Name)
	})

	for _, id := range []string{"", "a/b", `a\b`, "a.b"} {
		t.Run("invalid id "+id, func(t *testing.T) {
			assert.ErrorIs(t, m.SaveGrid(id, createValidGrid()), ErrInvalidGrid)
		})
	}

	t.Run("invalid grid", func(t *testing.T) {
		bad := createValidGrid()
		bad.Layout = []string{"C.X"}
		assert.ErrorIs(t, m.SaveGrid("bad", bad), ErrInvalidGrid)
	})
}

func TestManager_SetDefault(t *testing.T) {
	dir := t.TempDir()
	writeYAML(t, dir, "other.yaml", createValidGrid())

	m, err := NewManager(dir)
	require.NoError(t, err)

	require.NoError(t, m.SetDefault("other"))
	assert.Equal(t, "Test Grid", m.GetDefault().Name)

	assert.ErrorIs(t, m.SetDefault("missing"), ErrGridNotFound)
}

func TestManager_ConcurrentAccess(t *testing.T) {
	dir := t.TempDir()
	writeYAML(t, dir, "shared.yaml", createValidGrid())

	m, err := NewManager(dir)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.LoadGrid("shared")
			assert.NoError(t, err)
			_, err = m.ListGrids()
			assert.NoError(t, err)
			m.GetDefault()
		}()
	}
	wg.Wait()
}
