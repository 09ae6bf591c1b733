package state

// IsValidPlacement reports whether a robot (allowCharger true) or a task
// (allowCharger false) may be placed at location
func (s *Store) IsValidPlacement(location Coordinates, allowCharger bool) bool {
	if s.grid == nil {
		return false
	}

	cell, ok := cellAt(s.grid, location)
	if !ok {
		return false
	}

	switch cell.Type {
	case Walkable:
		return true
	case ChargingStation:
		return allowCharger
	default:
		return false
	}
}

// IsTraversable reports whether a robot may stand on or pass through location
func (s *Store) IsTraversable(location Coordinates) bool {
	cell, ok := cellAt(s.grid, location)
	return ok && cell.Type.Traversable()
}

// ChargingStations returns every charging station in row-major order
func (s *Store) ChargingStations() []Coordinates {
	var stations []Coordinates
	for y, row := range s.grid {
		for x, cell := range row {
			if cell.Type == ChargingStation {
				stations = append(stations, Coordinates{X: x, Y: y})
			}
		}
	}
	return stations
}

// Traversable reports whether robots can move through cells of this type
func (t CellType) Traversable() bool {
	return t == Walkable || t == ChargingStation
}

// CountCellType counts the cells of a specific type in the grid
func CountCellType(grid Grid, cellType CellType) int {
	count := 0
	for _, row := range grid {
		for _, cell := range row {
			if cell.Type == cellType {
				count++
			}
		}
	}
	return count
}

// cellAt returns the cell at location, handling ragged rows and bounds
func cellAt(grid Grid, location Coordinates) (Cell, bool) {
	if location.Y < 0 || location.Y >= len(grid) {
		return Cell{}, false
	}
	row := grid[location.Y]
	if location.X < 0 || location.X >= len(row) {
		return Cell{}, false
	}
	return row[location.X], true
}
