package pathfinding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/warehouse-sim/sim/state"
)

func at(x, y int) state.Coordinates {
	return state.Coordinates{X: x, Y: y}
}

func assertContiguous(t *testing.T, grid state.Grid, path []state.Coordinates) {
	t.Helper()
	for i, c := range path {
		assert.True(t, grid[c.Y][c.X].Type.Traversable(), "step %d at %v is not traversable", i, c)
		if i == 0 {
			continue
		}
		prev := path[i-1]
		assert.Equal(t, 1, abs(c.X-prev.X)+abs(c.Y-prev.Y), "step %d from %v to %v is not adjacent", i, prev, c)
	}
}

func TestFindPathStraightLine(t *testing.T) {
	grid := state.MustParseLayout(".....")

	path, err := FindPath(grid, at(0, 0), at(4, 0))
	require.NoError(t, err)
	assert.Equal(t, []state.Coordinates{at(0, 0), at(1, 0), at(2, 0), at(3, 0), at(4, 0)}, path)
}

func TestFindPathSameCell(t *testing.T) {
	grid := state.MustParseLayout("...")

	path, err := FindPath(grid, at(1, 0), at(1, 0))
	require.NoError(t, err)
	assert.Equal(t, []state.Coordinates{at(1, 0)}, path)
}

func TestFindPathAroundWalls(t *testing.T) {
	grid := state.MustParseLayout(
		".#.",
		".#.",
		"...",
	)

	path, err := FindPath(grid, at(0, 0), at(2, 0))
	require.NoError(t, err)
	require.Len(t, path, 7)
	assert.Equal(t, at(0, 0), path[0])
	assert.Equal(t, at(2, 0), path[len(path)-1])
	assertContiguous(t, grid, path)
}

func TestFindPathThroughCharger(t *testing.T) {
	grid := state.MustParseLayout(
		"#.#",
		".C.",
		"#.#",
	)

	path, err := FindPath(grid, at(0, 1), at(2, 1))
	require.NoError(t, err)
	assert.Equal(t, []state.Coordinates{at(0, 1), at(1, 1), at(2, 1)}, path)
}

func TestFindPathUnreachable(t *testing.T) {
	grid := state.MustParseLayout(
		"..#..",
		"..#..",
		"..#..",
	)

	path, err := FindPath(grid, at(0, 0), at(4, 0))
	require.NoError(t, err)
	assert.NotNil(t, path)
	assert.Empty(t, path)
}

func TestFindPathBlockedEndpoint(t *testing.T) {
	grid := state.MustParseLayout(
		"..#",
		"._.",
	)

	tests := []struct {
		name       string
		start, end state.Coordinates
	}{
		{"end on wall", at(0, 0), at(2, 0)},
		{"start on wall", at(2, 0), at(0, 0)},
		{"end on empty", at(0, 0), at(1, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, err := FindPath(grid, tt.start, tt.end)
			require.NoError(t, err)
			assert.NotNil(t, path)
			assert.Empty(t, path)
		})
	}
}

func TestFindPathMalformedGrid(t *testing.T) {
	_, err := FindPath(state.Grid{}, at(0, 0), at(0, 0))
	assert.ErrorIs(t, err, ErrMalformedGrid)

	_, err = FindPath(state.Grid{{}}, at(0, 0), at(0, 0))
	assert.ErrorIs(t, err, ErrMalformedGrid)
}

func TestFindPathInvalidCoordinates(t *testing.T) {
	grid := state.MustParseLayout(
		"...",
		"...",
	)

	tests := []struct {
		name       string
		start, end state.Coordinates
	}{
		{"start negative", at(-1, 0), at(1, 1)},
		{"end beyond width", at(0, 0), at(3, 0)},
		{"end beyond height", at(0, 0), at(0, 2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FindPath(grid, tt.start, tt.end)
			assert.ErrorIs(t, err, ErrInvalidCoordinates)
		})
	}
}

func TestFindPathRaggedRow(t *testing.T) {
	grid := state.MustParseLayout(
		"...",
		".",
		"...",
	)

	path, err := FindPath(grid, at(2, 0), at(2, 2))
	require.NoError(t, err)
	assert.Equal(t, []state.Coordinates{at(2, 0), at(1, 0), at(0, 0), at(0, 1), at(0, 2), at(1, 2), at(2, 2)}, path)
}

func TestFindPathDeterministicTieBreak(t *testing.T) {
	grid := state.MustParseLayout(
		"...",
		"...",
		"...",
	)

	// right is expanded before down when f and h tie
	path, err := FindPath(grid, at(0, 0), at(1, 1))
	require.NoError(t, err)
	assert.Equal(t, []state.Coordinates{at(0, 0), at(1, 0), at(1, 1)}, path)

	for i := 0; i < 10; i++ {
		again, err := FindPath(grid, at(0, 0), at(2, 2))
		require.NoError(t, err)
		first, _ := FindPath(grid, at(0, 0), at(2, 2))
		assert.Equal(t, first, again)
		assert.Len(t, again, 5)
	}
}

func TestFindPathIsShortest(t *testing.T) {
	grid := state.MustParseLayout(
		"C.....#...",
		".####...#.",
		".#....#.#.",
		".#.####.#.",
		"...#....#C",
	)

	path, err := FindPath(grid, at(0, 0), at(9, 4))
	require.NoError(t, err)
	require.NotEmpty(t, path)
	assertContiguous(t, grid, path)
	assert.Equal(t, at(9, 4), path[len(path)-1])

	// compare against a breadth-first distance
	assert.Equal(t, bfsDistance(grid, at(0, 0), at(9, 4))+1, len(path))
}

func bfsDistance(grid state.Grid, start, end state.Coordinates) int {
	dist := map[state.Coordinates]int{start: 0}
	queue := []state.Coordinates{start}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == end {
			return dist[c]
		}
		for _, d := range directions {
			n := at(c.X+d.X, c.Y+d.Y)
			if n.Y < 0 || n.Y >= len(grid) || n.X < 0 || n.X >= len(grid[n.Y]) {
				continue
			}
			if !grid[n.Y][n.X].Type.Traversable() {
				continue
			}
			if _, seen := dist[n]; seen {
				continue
			}
			dist[n] = dist[c] + 1
			queue = append(queue, n)
		}
	}
	return -1
}
