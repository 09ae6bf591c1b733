// Package websocket pushes live simulation state to browser subscribers.
//
// A Hub groups connections into one room per session. Each connection has
// a listen goroutine (control frames, disconnect detection) and a flush
// goroutine (queued frames, keepalive pings); only the Run loop touches the
// rooms.
//
// Every frame is a JSON Envelope:
//   - state_update: the full state.Snapshot after a tick or a mutation
//   - simulation_ended: engine.FinalMetrics of a finished run
//   - session_deleted: the session is gone and the subscriber should disconnect
//
// Payloads sent by subscribers are discarded.
//
// Subscribers pick a session with the session query parameter. Hub.Observer
// adapts the hub to engine.Observer so every tick reaches the session's room:
//
//	hub := websocket.NewHub(logger)
//	go hub.Run()
//
//	manager := session.NewManager(session.ManagerOptions{ObserverFactory: hub.Observer})
//
// Broadcasting never blocks the caller. The engine notifies observers while
// holding its lock, so when the hub falls behind updates are dropped and a
// warning is logged.
package websocket
