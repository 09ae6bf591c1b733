// Package config provides grid definitions and simulation settings.
//
// The config package handles:
//   - Loading warehouse grids from YAML or JSON files
//   - Grid validation (rectangular layout, legal characters, walkable cells)
//   - Default grid management and grid discovery
//   - Simulation settings from YAML files and WAREHOUSE_* variables
//
// Grid Format:
//
// Each grid file holds an id, a name, a description and a layout. Layout rows
// use one character per cell:
//
//	.  walkable floor
//	#  wall
//	C  charging station
//	_  empty (space is accepted too)
//
// Example:
//
//	id: small
//	name: Small Warehouse
//	description: Two aisles and one charger
//	layout:
//	  - "C....."
//	  - ".##.#."
//	  - "......"
//
// Usage:
//
//	manager, err := config.NewManager("grids")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	grid, err := manager.LoadGrid("small")
//	cells, err := grid.Cells()
//
//	settings, err := config.LoadSettings("settings.yaml")
//	err = settings.ApplyEnv()
package config
