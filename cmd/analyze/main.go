// Command analyze prints quick, human-readable heuristics about the grid
// definitions in a directory (default grids). It summarizes dimensions,
// cell counts and the walkable cell farthest from any charging station,
// and flags cells a fully charged robot cannot reach and return from.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/wricardo/warehouse-sim/sim/config"
	"github.com/wricardo/warehouse-sim/sim/pathfinding"
	"github.com/wricardo/warehouse-sim/sim/state"
)

// Analysis summarizes one grid
type Analysis struct {
	Name       string
	Width      int
	Height     int
	Walkable   int
	Walls      int
	Chargers   int
	Empty      int
	Farthest   state.Coordinates
	MaxSteps   int
	OutOfReach []state.Coordinates
	Isolated   []state.Coordinates
}

func main() {
	gridDir := "grids"
	if len(os.Args) > 1 {
		gridDir = os.Args[1]
	}

	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml", "*.json"} {
		matches, _ := filepath.Glob(filepath.Join(gridDir, pattern))
		files = append(files, matches...)
	}
	sort.Strings(files)

	settings := config.DefaultSettings()
	for _, file := range files {
		fmt.Printf("\n=== Analyzing %s ===\n", filepath.Base(file))
		grid, err := config.ReadGridFile(file)
		if err != nil {
			fmt.Printf("Error reading grid: %v\n", err)
			continue
		}
		analysis, err := analyzeGrid(grid, settings)
		if err != nil {
			fmt.Printf("Error parsing grid: %v\n", err)
			continue
		}
		printAnalysis(os.Stdout, analysis, settings)
	}
}

// analyzeGrid measures path distances from every walkable cell to its
// nearest charging station. A cell is out of reach when a robot leaving a
// charger at full battery cannot get there and back.
func analyzeGrid(grid *config.GridConfig, settings config.Settings) (*Analysis, error) {
	cells, err := grid.Cells()
	if err != nil {
		return nil, err
	}

	a := &Analysis{
		Name:     grid.Name,
		Width:    cells.Width(),
		Height:   cells.Height(),
		Walkable: state.CountCellType(cells, state.Walkable),
		Walls:    state.CountCellType(cells, state.Wall),
		Chargers: state.CountCellType(cells, state.ChargingStation),
		Empty:    state.CountCellType(cells, state.Empty),
	}

	var chargers []state.Coordinates
	for _, row := range cells {
		for _, cell := range row {
			if cell.Type == state.ChargingStation {
				chargers = append(chargers, cell.Coordinates)
			}
		}
	}

	roundTrip := func(steps int) float64 {
		return 2*float64(steps)*settings.MovementCostPerCell + settings.TaskBatteryCost
	}

	for _, row := range cells {
		for _, cell := range row {
			if cell.Type != state.Walkable {
				continue
			}

			steps := -1
			for _, charger := range chargers {
				path, err := pathfinding.FindPath(cells, cell.Coordinates, charger)
				if err != nil || len(path) == 0 {
					continue
				}
				if steps < 0 || len(path)-1 < steps {
					steps = len(path) - 1
				}
			}

			if steps < 0 {
				a.Isolated = append(a.Isolated, cell.Coordinates)
				continue
			}
			if steps > a.MaxSteps {
				a.MaxSteps = steps
				a.Farthest = cell.Coordinates
			}
			if roundTrip(steps) > settings.RobotMaxBattery {
				a.OutOfReach = append(a.OutOfReach, cell.Coordinates)
			}
		}
	}

	return a, nil
}

func printAnalysis(w io.Writer, a *Analysis, settings config.Settings) {
	fmt.Fprintf(w, "Name: %s\n", a.Name)
	fmt.Fprintf(w, "Grid Size: %d x %d\n", a.Width, a.Height)
	fmt.Fprintf(w, "Walkable: %d | Walls: %d | Chargers: %d | Empty: %d\n", a.Walkable, a.Walls, a.Chargers, a.Empty)
	fmt.Fprintf(w, "Farthest walkable cell: (%d, %d), %d steps from the nearest charger\n", a.Farthest.X, a.Farthest.Y, a.MaxSteps)

	if len(a.Isolated) > 0 {
		fmt.Fprintf(w, "⚠️  CRITICAL: %d walkable cells have no path to any charger\n", len(a.Isolated))
		printPoints(w, a.Isolated)
	}

	if len(a.OutOfReach) > 0 {
		fmt.Fprintf(w, "⚠️  WARNING: %d cells are too far for a round trip on a full battery (%.0f)\n", len(a.OutOfReach), settings.RobotMaxBattery)
		printPoints(w, a.OutOfReach)
	} else if len(a.Isolated) == 0 {
		fmt.Fprintf(w, "✅ Every walkable cell is within a round trip of a charger\n")
	}
}

func printPoints(w io.Writer, points []state.Coordinates) {
	for i, p := range points {
		if i == 5 {
			fmt.Fprintf(w, "   ... and %d more\n", len(points)-5)
			return
		}
		fmt.Fprintf(w, "   (%d, %d)\n", p.X, p.Y)
	}
}
