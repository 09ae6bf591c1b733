// Package pathfinding computes shortest grid paths for robots.
//
// FindPath runs A* over the 4-connected grid with unit step cost and a
// Manhattan heuristic. Walkable cells and charging stations are passable;
// walls, empty cells and holes left by ragged rows are not.
//
// Results are deterministic: open nodes are ordered by f, then h, then
// insertion order, and neighbours are expanded up, right, down, left.
//
// Usage:
//
//	path, err := pathfinding.FindPath(grid, robot.CurrentLocation, task.Location)
//	if err != nil {
//		// malformed grid or coordinates outside it
//	}
//	if len(path) == 0 {
//		// unreachable
//	}
package pathfinding
