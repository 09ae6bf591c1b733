package state

import "fmt"

// Layout characters used by grid definition files
const (
	WalkableChar = '.'
	WallChar     = '#'
	ChargerChar  = 'C'
	EmptyChar    = '_'
)

// ParseLayout converts layout rows into a grid. Rows may differ in length;
// ragged rows leave missing cells that are treated as blocked.
func ParseLayout(rows []string) (Grid, error) {
	grid := make(Grid, len(rows))
	for y, row := range rows {
		grid[y] = make([]Cell, 0, len(row))
		for x, char := range []byte(row) {
			cellType, ok := cellTypeFor(char)
			if !ok {
				return nil, fmt.Errorf("invalid character '%c' at row %d, col %d", char, y+1, x+1)
			}
			grid[y] = append(grid[y], Cell{
				Type:        cellType,
				Coordinates: Coordinates{X: x, Y: y},
			})
		}
	}
	return grid, nil
}

// MustParseLayout is ParseLayout for literals known to be valid
func MustParseLayout(rows ...string) Grid {
	grid, err := ParseLayout(rows)
	if err != nil {
		panic(err)
	}
	return grid
}

func cellTypeFor(char byte) (CellType, bool) {
	switch char {
	case WalkableChar:
		return Walkable, true
	case WallChar:
		return Wall, true
	case ChargerChar:
		return ChargingStation, true
	case EmptyChar, ' ':
		return Empty, true
	default:
		return "", false
	}
}
