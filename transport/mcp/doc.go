// Package mcp exposes the warehouse simulation to AI agents over the Model
// Context Protocol.
//
// Client is a thin proxy: every tool call is translated into a request
// against the REST API, so the MCP server can run in a separate process
// from the simulation.
//
// MCP Tools:
//   - create_session, list_sessions: session management
//   - simulation_state: rendered grid with robots, tasks and run status
//   - place_robot, place_task, delete_robot, delete_task: setup
//   - set_strategy: nearest or round-robin task assignment
//   - control: start, pause, resume or reset a run
//   - set_speed: change the tick rate
//   - list_grids, describe_cell: grid inspection
//   - list_runs: final metrics of finished runs
//
// Tool failures, including REST errors, are returned as MCP error results
// rather than protocol errors.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
