// Package engine drives a warehouse simulation through discrete ticks.
//
// The engine implements:
//   - The per-tick robot update: movement along planned paths, work on
//     tasks, charging, low-battery routing and reassignment
//   - Run control: start, pause, resume, reset and speed changes
//   - A single-consumer scheduler so ticks never overlap
//   - End-of-run detection and final metrics
//
// Core Types:
//
// Engine owns the timer and serializes every access to its state.Store.
// Commands from outside the tick loop go through Exclusive so they never
// interleave with a running tick. Observer receives a snapshot after every
// executed tick and the final metrics when a run ends.
//
// Usage:
//
//	store := state.New(state.DefaultDefaults())
//	eng := engine.New(store, assign.NewService(store, logger), engine.Options{
//		BaseStepInterval: 500 * time.Millisecond,
//		Observer:         observer,
//	})
//	eng.Initialize("small", "Small Warehouse", grid)
//	eng.Exclusive(func(s *state.Store) {
//		s.AddRobot(state.Coordinates{X: 0, Y: 0}, "forklift")
//		s.AddTask(state.Coordinates{X: 4, Y: 2})
//		_ = s.SetStrategy(state.StrategyNearest)
//	})
//	if err := eng.Start(); err != nil {
//		log.Fatal(err)
//	}
//	defer eng.Close()
//
// Observers run on the tick goroutine and must not block.
package engine
