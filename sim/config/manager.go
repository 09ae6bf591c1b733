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

	"gopkg.in/yaml.v3"
)

var (
	ErrGridNotFound = errors.New("grid not found")
	ErrInvalidGrid  = errors.New("invalid grid")
)

// DefaultGridID names the built-in grid
const DefaultGridID = "default"

var gridExtensions = []string{".yaml", ".yml", ".json"}

// Manager handles grid definition loading and caching
type Manager struct {
	gridDir     string
	defaultGrid *GridConfig
	grids       map[string]*GridConfig
	mu          sync.RWMutex
}

// NewManager creates a new grid manager reading from gridDir
func NewManager(gridDir string) (*Manager, error) {
	if _, err := os.Stat(gridDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("grid directory does not exist: %s", gridDir)
	}

	m := &Manager{
		gridDir: gridDir,
		grids:   make(map[string]*GridConfig),
	}

	m.loadDefaultGrid()
	return m, nil
}

// LoadGrid loads a grid by id. The built-in default is returned for
// DefaultGridID when no file overrides it.
func (m *Manager) LoadGrid(id string) (*GridConfig, error) {
	id = strings.TrimSpace(id)

	m.mu.RLock()
	if grid, exists := m.grids[id]; exists {
		m.mu.RUnlock()
		return grid, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if grid, exists := m.grids[id]; exists {
		return grid, nil
	}

	path, ok := m.findFile(id)
	if !ok {
		if id == DefaultGridID {
			return defaultGrid(), nil
		}
		return nil, fmt.Errorf("%w: %s", ErrGridNotFound, id)
	}

	grid, err := ReadGridFile(path)
	if err != nil {
		return nil, err
	}
	if grid.ID == "" {
		grid.ID = id
	}

	m.grids[id] = grid
	return grid, nil
}

// ListGrids returns information about every valid grid in the directory
// plus the built-in default
func (m *Manager) ListGrids() ([]*GridInfo, error) {
	entries, err := os.ReadDir(m.gridDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read grid directory: %w", err)
	}

	var grids []*GridInfo
	seen := make(map[string]bool)

	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || !isGridExtension(ext) {
			continue
		}

		id := strings.TrimSuffix(entry.Name(), ext)
		if seen[id] {
			continue
		}

		grid, err := m.LoadGrid(id)
		if err != nil {
			// Skip invalid grids
			continue
		}

		seen[id] = true
		grids = append(grids, grid.Info(entry.Name()))
	}

	if !seen[DefaultGridID] {
		grids = append(grids, defaultGrid().Info(""))
	}

	sort.Slice(grids, func(i, j int) bool {
		return grids[i].GridID < grids[j].GridID
	})
	return grids, nil
}

// GetDefault returns the default grid
func (m *Manager) GetDefault() *GridConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultGrid
}

// SetDefault sets the default grid by id
func (m *Manager) SetDefault(id string) error {
	grid, err := m.LoadGrid(id)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultGrid = grid
	return nil
}

// SaveGrid validates a grid and writes it to disk as YAML
func (m *Manager) SaveGrid(id string, grid *GridConfig) error {
	id = strings.TrimSpace(id)
	if id == "" || strings.ContainsAny(id, `/\.`) {
		return fmt.Errorf("%w: invalid grid id %q", ErrInvalidGrid, id)
	}

	if err := ValidateGridConfig(grid); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidGrid, err)
	}

	saved := *grid
	saved.ID = id

	data, err := yaml.Marshal(&saved)
	if err != nil {
		return fmt.Errorf("failed to marshal grid: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, ext := range gridExtensions {
		if ext == ".yaml" {
			continue
		}
		if err := os.Remove(filepath.Join(m.gridDir, id+ext)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to replace grid file: %w", err)
		}
	}

	if err := os.WriteFile(filepath.Join(m.gridDir, id+".yaml"), data, 0644); err != nil {
		return fmt.Errorf("failed to write grid file: %w", err)
	}

	m.grids[id] = &saved
	return nil
}

// RefreshCache drops all cached grids so they are re-read from disk
func (m *Manager) RefreshCache() {
	m.mu.Lock()
	m.grids = make(map[string]*GridConfig)
	m.mu.Unlock()

	m.loadDefaultGrid()
}

// loadDefaultGrid picks the default grid file, falling back to the first
// available grid and then to the built-in layout
func (m *Manager) loadDefaultGrid() {
	grid, err := m.LoadGrid(DefaultGridID)
	if err == nil {
		m.setDefault(grid)
		return
	}

	infos, err := m.ListGrids()
	if err == nil && len(infos) > 0 {
		if grid, err := m.LoadGrid(infos[0].GridID); err == nil {
			m.setDefault(grid)
			return
		}
	}

	m.setDefault(defaultGrid())
}

func (m *Manager) setDefault(grid *GridConfig) {
	m.mu.Lock()
	m.defaultGrid = grid
	m.mu.Unlock()
}

// findFile must be called with m.mu held
func (m *Manager) findFile(id string) (string, bool) {
	if id == "" || strings.ContainsAny(id, `/\`) {
		return "", false
	}
	for _, ext := range gridExtensions {
		path := filepath.Join(m.gridDir, id+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// ReadGridFile reads and validates a YAML or JSON grid definition
func ReadGridFile(path string) (*GridConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read grid file: %w", err)
	}

	var grid GridConfig
	if filepath.Ext(path) == ".json" {
		err = json.Unmarshal(data, &grid)
	} else {
		err = yaml.Unmarshal(data, &grid)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse grid %s: %w", filepath.Base(path), err)
	}

	if err := ValidateGridConfig(&grid); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGrid, err)
	}

	return &grid, nil
}

func isGridExtension(ext string) bool {
	for _, e := range gridExtensions {
		if e == ext {
			return true
		}
	}
	return false
}
