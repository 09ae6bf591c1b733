package config

import (
	"fmt"

	"github.com/wricardo/warehouse-sim/sim/state"
)

// Grid size limits
const (
	MinGridSize = 1
	MaxGridSize = 100
)

// GridConfig is a named warehouse layout as stored on disk
type GridConfig struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Layout      []string `json:"layout" yaml:"layout"`
}

// GridInfo describes an available grid for listings
type GridInfo struct {
	Filename    string `json:"filename"`
	GridID      string `json:"grid_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Chargers    int    `json:"chargers"`
	Walkable    int    `json:"walkable"`
}

// Cells parses the layout into a state grid
func (c *GridConfig) Cells() (state.Grid, error) {
	return state.ParseLayout(c.Layout)
}

// Info summarizes the grid for listings
func (c *GridConfig) Info(filename string) *GridInfo {
	info := &GridInfo{
		Filename:    filename,
		GridID:      c.ID,
		Name:        c.Name,
		Description: c.Description,
		Height:      len(c.Layout),
	}
	if len(c.Layout) > 0 {
		info.Width = len(c.Layout[0])
	}
	if grid, err := c.Cells(); err == nil {
		info.Chargers = state.CountCellType(grid, state.ChargingStation)
		info.Walkable = state.CountCellType(grid, state.Walkable)
	}
	return info
}

// ValidateGridConfig checks a grid definition for structural correctness
func ValidateGridConfig(config *GridConfig) error {
	if config.Name == "" {
		return fmt.Errorf("grid validation: name is required")
	}

	height := len(config.Layout)
	if height < MinGridSize || height > MaxGridSize {
		return fmt.Errorf("grid validation: layout must have between %d and %d rows, got %d", MinGridSize, MaxGridSize, height)
	}

	width := len(config.Layout[0])
	if width < MinGridSize || width > MaxGridSize {
		return fmt.Errorf("grid validation: rows must have between %d and %d cells, got %d", MinGridSize, MaxGridSize, width)
	}

	for i, row := range config.Layout {
		if len(row) != width {
			return fmt.Errorf("grid validation: row %d must have %d characters, got %d", i+1, width, len(row))
		}
	}

	grid, err := state.ParseLayout(config.Layout)
	if err != nil {
		return fmt.Errorf("grid validation: %w", err)
	}

	if state.CountCellType(grid, state.Walkable) == 0 {
		return fmt.Errorf("grid validation: layout must contain at least one walkable (%c) cell", state.WalkableChar)
	}

	return nil
}

// defaultGrid is always available, even with an empty grid directory
func defaultGrid() *GridConfig {
	return &GridConfig{
		ID:          "default",
		Name:        "Default Warehouse",
		Description: "Small warehouse with two chargers and a central shelf",
		Layout: []string{
			"C.......",
			"..####..",
			"........",
			"..####..",
			".......C",
		},
	}
}
