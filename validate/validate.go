// Command validate checks the warehouse grid definitions in a directory
// (default ../grids). For every YAML or JSON file it checks:
//   - structure, required fields and allowed characters (., #, C, _)
//   - rectangular rows within the size limits
//   - at least one charging station
//   - connectivity: every walkable cell has a path to a charging station
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wricardo/warehouse-sim/sim/config"
	"github.com/wricardo/warehouse-sim/sim/pathfinding"
	"github.com/wricardo/warehouse-sim/sim/state"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Messages holds informational lines; otherwise it
// holds the validation errors that were found.
type ValidationResult struct {
	File     string
	Valid    bool
	Messages []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Messages = append(r.Messages, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) info(format string, args ...interface{}) {
	r.Messages = append(r.Messages, "✓ "+fmt.Sprintf(format, args...))
}

// validateGridFile loads and validates a single grid file
func validateGridFile(path string) ValidationResult {
	result := ValidationResult{
		File:     filepath.Base(path),
		Valid:    true,
		Messages: []string{},
	}

	grid, err := config.ReadGridFile(path)
	if err != nil {
		result.fail("%v", err)
		return result
	}

	cells, err := grid.Cells()
	if err != nil {
		result.fail("%v", err)
		return result
	}

	chargers := state.CountCellType(cells, state.ChargingStation)
	if chargers == 0 {
		result.fail("Must have at least 1 charging station (%c)", state.ChargerChar)
		return result
	}

	connectivity := validateConnectivity(cells)
	if !connectivity.Valid {
		result.Valid = false
	}
	result.Messages = append(result.Messages, connectivity.Messages...)

	if result.Valid {
		result.info("Name: %s", grid.Name)
		result.info("Grid: %dx%d", cells.Width(), cells.Height())
		result.info("Walkable cells: %d", state.CountCellType(cells, state.Walkable))
		result.info("Charging stations: %d", chargers)
		result.info("Walls: %d", state.CountCellType(cells, state.Wall))
	}

	return result
}

// validateConnectivity ensures every walkable cell has a path to at least
// one charging station
func validateConnectivity(grid state.Grid) ValidationResult {
	result := ValidationResult{Valid: true, Messages: []string{}}

	var chargers, walkable []state.Coordinates
	for _, row := range grid {
		for _, cell := range row {
			switch cell.Type {
			case state.ChargingStation:
				chargers = append(chargers, cell.Coordinates)
			case state.Walkable:
				walkable = append(walkable, cell.Coordinates)
			}
		}
	}

	if len(chargers) == 0 {
		result.fail("No charging stations found for connectivity test")
		return result
	}

	// every cell on a path to a charger is itself connected
	reachable := make(map[state.Coordinates]bool)
	var unreachable []state.Coordinates

	for _, cell := range walkable {
		if reachable[cell] {
			continue
		}
		found := false
		for _, charger := range chargers {
			path, err := pathfinding.FindPath(grid, cell, charger)
			if err != nil || len(path) == 0 {
				continue
			}
			for _, p := range path {
				reachable[p] = true
			}
			found = true
			break
		}
		if !found {
			unreachable = append(unreachable, cell)
		}
	}

	if len(unreachable) > 0 {
		sort.Slice(unreachable, func(i, j int) bool {
			if unreachable[i].Y != unreachable[j].Y {
				return unreachable[i].Y < unreachable[j].Y
			}
			return unreachable[i].X < unreachable[j].X
		})
		result.fail("Connectivity failure: %d/%d walkable cells cannot reach a charging station", len(unreachable), len(walkable))
		for _, c := range unreachable {
			result.fail("Unreachable: (%d,%d)", c.X, c.Y)
		}
	} else {
		result.info("Connectivity: all %d walkable cells reach a charging station", len(walkable))
	}

	return result
}

// gridFiles lists the grid definitions in dir
func gridFiles(dir string) ([]string, error) {
	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml", "*.json"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

// main validates each grid file, printing a concise report and exiting
// with non-zero status if any are invalid
func main() {
	gridDir := "../grids"
	if len(os.Args) > 1 {
		gridDir = os.Args[1]
	}

	files, err := gridFiles(gridDir)
	if err != nil {
		fmt.Printf("Error finding grid files: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Printf("No grid files found in %s\n", gridDir)
		os.Exit(1)
	}

	allValid := true
	for _, file := range files {
		result := validateGridFile(file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Messages {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, msg := range result.Messages {
				if !strings.HasPrefix(msg, "✓") {
					fmt.Println("  ❌ " + msg)
				}
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All grids are valid!")
	} else {
		fmt.Println("❌ Some grids have errors")
		os.Exit(1)
	}
}
