// Package session provides session management for warehouse simulations.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Unique session ID generation
//   - Per-session wiring of store, assigner and engine
//   - Session cleanup and expiration
//
// Core Types:
//
// Manager is the main session manager that handles all session operations.
// Each session runs an independent simulation: its own state.Store and
// assign.Service behind an engine.Engine, with an observer supplied by the
// manager's ObserverFactory. Get, List and Create hand out copies of the
// session record; the store is only reachable through the engine.
//
// Session Identifiers:
//
// Sessions use 4-character hex IDs for easy reference. Lookups are
// case-insensitive.
//
// Usage:
//
//	manager := session.NewManager(session.ManagerOptions{
//		Settings: settings,
//		ObserverFactory: func(id string) engine.Observer {
//			return hub.Observer(id)
//		},
//	})
//
//	sess, err := manager.Create("", grid)
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Cleanup:
//
// Deleting a session stops its engine. CleanupExpiredSessions removes
// sessions that are not running and have not been accessed recently.
package session
