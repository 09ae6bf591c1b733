// Package state holds the canonical in-memory model of a warehouse simulation.
//
// The state package implements:
//   - The typed grid (walkable cells, walls, charging stations, empty cells)
//   - Robots with battery budgets and a per-robot status machine
//   - Spatially located tasks with work duration and battery cost
//   - Strategy, run status and the simulation clock
//   - Placement validation shared by robot and task placement
//
// Core Types:
//
// Store is the sole owner of mutable simulation state. Every other component
// reads and writes through it; accessors hand out defensive copies so callers
// cannot bypass the mutators. Snapshot is the serializable view broadcast to
// observers after each tick.
//
// Usage:
//
//	store := state.New(state.DefaultDefaults())
//	store.InitializeSimulation("small", "Small Warehouse", grid)
//
//	robot := store.AddRobot(state.Coordinates{X: 1, Y: 1}, "forklift")
//	if robot == nil {
//		// placement rejected: out of bounds, wall or empty cell
//	}
//	task := store.AddTask(state.Coordinates{X: 4, Y: 2})
//
// Concurrency:
//
// Store does no locking of its own. A running simulation serializes all
// access through its engine (see engine.Engine.Exclusive).
package state
