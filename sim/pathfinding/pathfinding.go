package pathfinding

import (
	"container/heap"
	"errors"
	"fmt"

	"github.com/wricardo/warehouse-sim/sim/state"
)

var (
	ErrMalformedGrid      = errors.New("malformed grid")
	ErrInvalidCoordinates = errors.New("coordinates outside grid")
)

// up, right, down, left
var directions = [4]state.Coordinates{
	{X: 0, Y: -1},
	{X: 1, Y: 0},
	{X: 0, Y: 1},
	{X: -1, Y: 0},
}

// FindPath returns the shortest path from start to end inclusive of both
// endpoints. An unreachable end, or a blocked endpoint, yields an empty
// path and no error.
func FindPath(grid state.Grid, start, end state.Coordinates) ([]state.Coordinates, error) {
	if len(grid) == 0 || len(grid[0]) == 0 {
		return nil, ErrMalformedGrid
	}

	width, height := len(grid[0]), len(grid)
	for _, c := range []state.Coordinates{start, end} {
		if c.X < 0 || c.X >= width || c.Y < 0 || c.Y >= height {
			return nil, fmt.Errorf("%w: (%d,%d) in %dx%d", ErrInvalidCoordinates, c.X, c.Y, width, height)
		}
	}

	if start == end {
		return []state.Coordinates{start}, nil
	}

	passable := traversability(grid, width, height)
	if !passable[start.Y][start.X] || !passable[end.Y][end.X] {
		return []state.Coordinates{}, nil
	}

	return search(passable, width, height, start, end), nil
}

// traversability builds a width x height passable matrix
func traversability(grid state.Grid, width, height int) [][]bool {
	passable := make([][]bool, height)
	for y := 0; y < height; y++ {
		passable[y] = make([]bool, width)
		row := grid[y]
		for x := 0; x < width && x < len(row); x++ {
			passable[y][x] = row[x].Type.Traversable()
		}
	}
	return passable
}

// node for priority queue
type node struct {
	pos    state.Coordinates
	g      int
	h      int
	seq    int
	parent *node
	index  int
}

// openSet implements heap.Interface
type openSet []*node

func (o openSet) Len() int { return len(o) }
func (o openSet) Less(i, j int) bool {
	fi, fj := o[i].g+o[i].h, o[j].g+o[j].h
	if fi != fj {
		return fi < fj
	}
	if o[i].h != o[j].h {
		return o[i].h < o[j].h
	}
	return o[i].seq < o[j].seq
}
func (o openSet) Swap(i, j int) {
	o[i], o[j] = o[j], o[i]
	o[i].index = i
	o[j].index = j
}
func (o *openSet) Push(x any) {
	n := x.(*node)
	n.index = len(*o)
	*o = append(*o, n)
}
func (o *openSet) Pop() any {
	old := *o
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*o = old[0 : n-1]
	return x
}

func search(passable [][]bool, width, height int, start, end state.Coordinates) []state.Coordinates {
	manhattan := func(c state.Coordinates) int {
		return abs(c.X-end.X) + abs(c.Y-end.Y)
	}

	bestG := make([][]int, height)
	closed := make([][]bool, height)
	for y := range bestG {
		bestG[y] = make([]int, width)
		closed[y] = make([]bool, width)
		for x := range bestG[y] {
			bestG[y][x] = -1
		}
	}

	seq := 0
	open := &openSet{}
	heap.Push(open, &node{pos: start, h: manhattan(start), seq: seq})
	bestG[start.Y][start.X] = 0

	for open.Len() > 0 {
		current := heap.Pop(open).(*node)
		if closed[current.pos.Y][current.pos.X] {
			continue
		}
		if current.pos == end {
			return reconstruct(current)
		}
		closed[current.pos.Y][current.pos.X] = true

		for _, d := range directions {
			next := state.Coordinates{X: current.pos.X + d.X, Y: current.pos.Y + d.Y}
			if next.X < 0 || next.X >= width || next.Y < 0 || next.Y >= height {
				continue
			}
			if !passable[next.Y][next.X] || closed[next.Y][next.X] {
				continue
			}

			g := current.g + 1
			if prev := bestG[next.Y][next.X]; prev >= 0 && prev <= g {
				continue
			}
			bestG[next.Y][next.X] = g

			seq++
			heap.Push(open, &node{pos: next, g: g, h: manhattan(next), seq: seq, parent: current})
		}
	}

	return []state.Coordinates{}
}

func reconstruct(n *node) []state.Coordinates {
	var reversed []state.Coordinates
	for ; n != nil; n = n.parent {
		reversed = append(reversed, n.pos)
	}
	path := make([]state.Coordinates, len(reversed))
	for i, c := range reversed {
		path[len(reversed)-1-i] = c
	}
	return path
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
