// Package api provides HTTP REST API handlers for the warehouse simulation.
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create a session, optionally on {"grid_id": "..."}
//   - GET /api/sessions - List sessions (sort=created|accessed, order, limit)
//   - GET /api/sessions/unified - Aggregate view (sessionIds=a,b or gridId=...)
//   - GET /api/sessions/{id} - Get a session
//   - DELETE /api/sessions/{id} - Delete a session and stop its engine
//
// Setup:
//   - GET /api/sessions/{id}/state - Current snapshot
//   - POST /api/sessions/{id}/initialize - Load a grid and clear robots and tasks
//   - POST /api/sessions/{id}/robots - Place a robot: {"x": 1, "y": 2, "icon_type": "forklift"}
//   - DELETE /api/sessions/{id}/robots/{rid}
//   - POST /api/sessions/{id}/tasks - Place a task: {"x": 3, "y": 4}
//   - DELETE /api/sessions/{id}/tasks/{tid}
//   - PUT /api/sessions/{id}/strategy - {"strategy": "nearest|round-robin"}
//   - GET /api/sessions/{id}/cells/{x}/{y} - Cell type and occupants
//
// Run Control:
//   - POST /api/sessions/{id}/start|pause|resume|reset
//   - PUT /api/sessions/{id}/speed - {"factor": 2}
//
// Grids and History:
//   - GET /api/grids, GET /api/grids/{id}, POST /api/grids
//   - GET /api/runs?limit=N - Finished runs from the metrics store
//
// Every mutation pushes the new snapshot to the session's WebSocket clients
// (GET /ws?session={id}).
//
// Error Handling:
//
// Errors are returned as JSON, {"error": "message"}. Unknown sessions, robots,
// tasks and grids are 404. Invalid placements, strategies, coordinates, speed
// factors and grids are 400. Operations that need a grid on a session without
// one are 409.
package api
