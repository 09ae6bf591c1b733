// Package service provides the command layer for warehouse simulations.
//
// The service package implements:
//   - Multi-session simulation management
//   - Grid selection and initialization
//   - Robot and task placement and removal
//   - Strategy selection and run control
//   - Run history lookup
//
// Core Interfaces:
//
// SimulationService is the main service interface used by the REST API and
// MCP tools. SessionManager stores sessions, GridManager provides grid
// definitions and RunStore persists the final metrics of finished runs.
//
// Architecture:
//
// The service layer sits between the transports and the simulation engine.
// Each session owns its own store, assigner and engine; every call that
// touches state goes through the engine so commands never interleave with a
// running tick.
//
// Errors:
//
// Failures are reported with sentinel errors (ErrSessionNotFound,
// ErrInvalidPlacement, ErrRobotNotFound, engine.ErrNoGrid, ...) wrapped with
// context. Transports map them to status codes with errors.Is.
//
// Usage:
//
//	sessions := session.NewManager(session.ManagerOptions{Settings: settings})
//	grids, _ := config.NewManager("grids")
//	svc := service.NewSimulationService(sessions, grids, runs, logger)
//
//	info, err := svc.CreateSession(ctx, "default")
//	robot, err := svc.PlaceRobot(ctx, info.ID, state.Coordinates{X: 0, Y: 0}, "forklift")
//	_, err = svc.SetStrategy(ctx, info.ID, state.StrategyNearest)
//	_, err = svc.Start(ctx, info.ID)
package service
