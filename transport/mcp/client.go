package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/warehouse-sim/sim/config"
	"github.com/wricardo/warehouse-sim/sim/metrics"
	"github.com/wricardo/warehouse-sim/sim/service"
	"github.com/wricardo/warehouse-sim/sim/state"
)

// Version reported to MCP clients
const Version = "1.0.0"

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Warehouse Robot Simulation",
		Version,
		server.WithToolCapabilities(true),
		server.WithInstructions(`Warehouse Robot Simulation - MCP Interface

This is a thin client that proxies all requests to the REST API server.

A session holds one warehouse grid with robots and tasks. Robots move one
cell per tick, drain battery while moving and working, and recharge at
charging stations (C). A run ends when every task is completed.

TYPICAL FLOW:
1. create_session (optionally with grid_id from list_grids)
2. place_robot / place_task on walkable cells (.)
3. set_strategy: nearest or round-robin
4. control action=start, then poll simulation_state
5. list_runs shows final metrics of finished runs

Use describe_cell to check a coordinate before placing something on it.`),
	)

	c.registerTools()
}

func sessionProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

func coordinateProperty(axis string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": fmt.Sprintf("%s coordinate (0-based)", axis),
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new simulation session, optionally on a named grid",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"grid_id": map[string]interface{}{
					"type":        "string",
					"description": "Grid to load (optional, see list_grids)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active simulation sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "simulation_state",
		Description: "Get the grid, robots, tasks and run status of a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleSimulationState)

	// Setup
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "place_robot",
		Description: "Place a robot on a walkable cell or charging station",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"x":          coordinateProperty("X"),
				"y":          coordinateProperty("Y"),
				"icon_type": map[string]interface{}{
					"type":        "string",
					"description": "Display icon (optional)",
				},
			},
			Required: []string{"session_id", "x", "y"},
		},
	}, c.handlePlaceRobot)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "place_task",
		Description: "Place a task on a walkable cell",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"x":          coordinateProperty("X"),
				"y":          coordinateProperty("Y"),
			},
			Required: []string{"session_id", "x", "y"},
		},
	}, c.handlePlaceTask)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "delete_robot",
		Description: "Remove a robot. Its assigned task goes back to unassigned",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"robot_id": map[string]interface{}{
					"type":        "string",
					"description": "Robot ID",
				},
			},
			Required: []string{"session_id", "robot_id"},
		},
	}, c.handleDeleteRobot)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "delete_task",
		Description: "Remove a task. A robot working on it becomes idle",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"task_id": map[string]interface{}{
					"type":        "string",
					"description": "Task ID",
				},
			},
			Required: []string{"session_id", "task_id"},
		},
	}, c.handleDeleteTask)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "set_strategy",
		Description: "Choose the task assignment strategy",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"strategy": map[string]interface{}{
					"type":        "string",
					"enum":        []string{string(state.StrategyNearest), string(state.StrategyRoundRobin)},
					"description": "Assignment strategy",
				},
			},
			Required: []string{"session_id", "strategy"},
		},
	}, c.handleSetStrategy)

	// Run control
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "control",
		Description: "Start, pause, resume or reset the simulation",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"action": map[string]interface{}{
					"type":        "string",
					"enum":        controlActions,
					"description": "Run control action",
				},
			},
			Required: []string{"session_id", "action"},
		},
	}, c.handleControl)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "set_speed",
		Description: "Change the tick rate. Factor 2 runs twice as fast",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"factor": map[string]interface{}{
					"type":        "number",
					"description": "Speed factor, greater than 0",
				},
			},
			Required: []string{"session_id", "factor"},
		},
	}, c.handleSetSpeed)

	// Grids and cells
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_grids",
		Description: "List available warehouse grids",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListGrids)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_cell",
		Description: "Get the type of a grid cell and the robots and tasks on it",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"x":          coordinateProperty("X"),
				"y":          coordinateProperty("Y"),
			},
			Required: []string{"session_id", "x", "y"},
		},
	}, c.handleDescribeCell)

	// History
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_runs",
		Description: "List final metrics of finished runs, most recent first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of runs (optional)",
				},
			},
		},
	}, c.handleListRuns)
}

var controlActions = []string{"start", "pause", "resume", "reset"}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

func stringArg(args map[string]interface{}, name string) (string, error) {
	value, _ := args[name].(string)
	if value == "" {
		return "", fmt.Errorf("%s is required", name)
	}
	return value, nil
}

// intArg accepts JSON numbers and numeric strings
func intArg(args map[string]interface{}, name string) (int, error) {
	switch v := args[name].(type) {
	case float64:
		return int(v), nil
	case int:
		return v, nil
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("%s must be an integer", name)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%s is required", name)
	}
}

func location(args map[string]interface{}) (int, int, error) {
	x, err := intArg(args, "x")
	if err != nil {
		return 0, 0, err
	}
	y, err := intArg(args, "y")
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

func sessionPath(sessionID, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	gridID, _ := args["grid_id"].(string)

	body := map[string]string{}
	if gridID != "" {
		body["grid_id"] = gridID
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var resp struct {
		Sessions []*service.SessionInfo `json:"sessions"`
	}
	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(resp.Sessions) == 0 {
		return mcp.NewToolResultText("No active sessions"), nil
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("Active sessions: %d\n", len(resp.Sessions)))
	for _, session := range resp.Sessions {
		status := state.RunIdle
		robots, tasks := 0, 0
		if session.Snapshot != nil {
			status = session.Snapshot.RunStatus
			robots = len(session.Snapshot.Robots)
			tasks = len(session.Snapshot.Tasks)
		}
		result.WriteString(fmt.Sprintf("- %s: grid=%s status=%s robots=%d tasks=%d\n",
			session.ID, session.GridID, status, robots, tasks))
	}

	return mcp.NewToolResultText(result.String()), nil
}

func (c *Client) handleSimulationState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := stringArg(arguments(request), "session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var snap state.Snapshot
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &snap); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSnapshot(&snap)), nil
}

func (c *Client) handlePlaceRobot(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, err := stringArg(args, "session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	x, y, err := location(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	body := map[string]interface{}{"x": x, "y": y}
	if icon, _ := args["icon_type"].(string); icon != "" {
		body["icon_type"] = icon
	}

	var robot state.Robot
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/robots"), body, &robot); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Placed robot %s at (%d,%d) with battery %.0f/%.0f",
		robot.ID, robot.CurrentLocation.X, robot.CurrentLocation.Y, robot.Battery, robot.MaxBattery)), nil
}

func (c *Client) handlePlaceTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, err := stringArg(args, "session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	x, y, err := location(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var task state.Task
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/tasks"), map[string]int{"x": x, "y": y}, &task); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Placed task %s at (%d,%d): %d ticks of work, battery cost %.0f",
		task.ID, task.Location.X, task.Location.Y, task.WorkDuration, task.BatteryCostToPerform)), nil
}

func (c *Client) handleDeleteRobot(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.deleteEntity(ctx, request, "robot_id", "/robots/")
}

func (c *Client) handleDeleteTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.deleteEntity(ctx, request, "task_id", "/tasks/")
}

func (c *Client) deleteEntity(ctx context.Context, request mcp.CallToolRequest, idArg, prefix string) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, err := stringArg(args, "session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := stringArg(args, idArg)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var resp map[string]string
	if err := c.apiCall(ctx, "DELETE", sessionPath(sessionID, prefix+url.PathEscape(id)), nil, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(resp["message"]), nil
}

func (c *Client) handleSetStrategy(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, err := stringArg(args, "session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	strategy, err := stringArg(args, "strategy")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var snap state.Snapshot
	if err := c.apiCall(ctx, "PUT", sessionPath(sessionID, "/strategy"), map[string]string{"strategy": strategy}, &snap); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Strategy set to %s", snap.Strategy)), nil
}

func (c *Client) handleControl(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, err := stringArg(args, "session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	action, err := stringArg(args, "action")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	valid := false
	for _, a := range controlActions {
		if a == action {
			valid = true
			break
		}
	}
	if !valid {
		return mcp.NewToolResultError(fmt.Sprintf("unknown action %q, expected one of %s",
			action, strings.Join(controlActions, ", "))), nil
	}

	var snap state.Snapshot
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/"+action), nil, &snap); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSnapshot(&snap)), nil
}

func (c *Client) handleSetSpeed(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, err := stringArg(args, "session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	factor, ok := args["factor"].(float64)
	if !ok {
		return mcp.NewToolResultError("factor is required"), nil
	}

	var speed service.SpeedInfo
	if err := c.apiCall(ctx, "PUT", sessionPath(sessionID, "/speed"), map[string]float64{"factor": factor}, &speed); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Speed factor %g, one tick every %dms (%s)",
		speed.SpeedFactor, speed.IntervalMS, speed.RunStatus)), nil
}

func (c *Client) handleListGrids(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var grids []*config.GridInfo
	if err := c.apiCall(ctx, "GET", "/api/grids", nil, &grids); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("Available grids: %d\n", len(grids)))
	for _, grid := range grids {
		result.WriteString(fmt.Sprintf("- %s (%s): %dx%d, %d chargers, %d walkable cells\n",
			grid.GridID, grid.Name, grid.Width, grid.Height, grid.Chargers, grid.Walkable))
		if grid.Description != "" {
			result.WriteString("  " + grid.Description + "\n")
		}
	}

	return mcp.NewToolResultText(result.String()), nil
}

func (c *Client) handleDescribeCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, err := stringArg(args, "session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	x, y, err := location(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var cell service.CellInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, fmt.Sprintf("/cells/%d/%d", x, y)), nil, &cell); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatCellInfo(&cell)), nil
}

func (c *Client) handleListRuns(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := "/api/runs"
	if limit, err := intArg(arguments(request), "limit"); err == nil && limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	var resp struct {
		Runs []metrics.Run `json:"runs"`
	}
	if err := c.apiCall(ctx, "GET", path, nil, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(resp.Runs) == 0 {
		return mcp.NewToolResultText("No finished runs recorded"), nil
	}

	var result strings.Builder
	for _, run := range resp.Runs {
		result.WriteString(fmt.Sprintf("#%d session=%s grid=%s strategy=%s time=%d recharges=%d ended=%s\n",
			run.ID, run.SessionID, run.GridID, run.Strategy, run.TotalTime, run.TotalRecharges,
			run.EndedAt.Format("2006-01-02 15:04:05")))
	}

	return mcp.NewToolResultText(result.String()), nil
}

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nGrid: %s\nCreated: %s\n\n%s",
		session.ID, session.GridID,
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		formatSnapshot(session.Snapshot))
}

func formatSnapshot(snap *state.Snapshot) string {
	if snap == nil {
		return "No simulation state available"
	}

	var result strings.Builder

	strategy := string(snap.Strategy)
	if strategy == "" {
		strategy = "none"
	}
	result.WriteString(fmt.Sprintf("Grid: %s | Status: %s | Time: %d | Strategy: %s\n\n",
		snap.GridID, snap.RunStatus, snap.SimulationTime, strategy))

	if len(snap.Grid) == 0 {
		result.WriteString("No grid loaded\n")
		return result.String()
	}

	result.WriteString(renderGrid(snap))
	result.WriteString("\nLegend: R robot, T open task, * completed task, C charger, # wall, . walkable\n")

	if len(snap.Robots) > 0 {
		result.WriteString("\nRobots:\n")
		for _, robot := range snap.Robots {
			line := fmt.Sprintf("- %s at (%d,%d) %s battery %.0f/%.0f",
				robot.ID, robot.CurrentLocation.X, robot.CurrentLocation.Y,
				robot.Status, robot.Battery, robot.MaxBattery)
			if robot.AssignedTaskID != "" {
				line += " task " + robot.AssignedTaskID
			}
			result.WriteString(line + "\n")
		}
	}

	if len(snap.Tasks) > 0 {
		completed := 0
		result.WriteString("\nTasks:\n")
		for _, task := range snap.Tasks {
			if task.Status == state.TaskCompleted {
				completed++
			}
			result.WriteString(fmt.Sprintf("- %s at (%d,%d) %s\n",
				task.ID, task.Location.X, task.Location.Y, task.Status))
		}
		result.WriteString(fmt.Sprintf("\nCompleted %d/%d tasks\n", completed, len(snap.Tasks)))
	}

	return result.String()
}

// renderGrid draws the layout with robots over tasks over cells
func renderGrid(snap *state.Snapshot) string {
	rows := make([][]byte, len(snap.Grid))
	for y, row := range snap.Grid {
		rows[y] = make([]byte, len(row))
		for x, cell := range row {
			rows[y][x] = cellChar(cell.Type)
		}
	}

	mark := func(loc state.Coordinates, char byte) {
		if loc.Y >= 0 && loc.Y < len(rows) && loc.X >= 0 && loc.X < len(rows[loc.Y]) {
			rows[loc.Y][loc.X] = char
		}
	}
	for _, task := range snap.Tasks {
		if task.Status == state.TaskCompleted {
			mark(task.Location, '*')
		} else {
			mark(task.Location, 'T')
		}
	}
	for _, robot := range snap.Robots {
		mark(robot.CurrentLocation, 'R')
	}

	var result strings.Builder
	for _, row := range rows {
		result.Write(row)
		result.WriteString("\n")
	}
	return result.String()
}

func cellChar(cellType state.CellType) byte {
	switch cellType {
	case state.Walkable:
		return state.WalkableChar
	case state.Wall:
		return state.WallChar
	case state.ChargingStation:
		return state.ChargerChar
	default:
		return state.EmptyChar
	}
}

func formatCellInfo(cell *service.CellInfo) string {
	var result strings.Builder
	result.WriteString(fmt.Sprintf("Cell (%d,%d): %s\n", cell.Coordinates.X, cell.Coordinates.Y, cell.Type))
	if cell.Traversable {
		result.WriteString("Traversable: yes\n")
	} else {
		result.WriteString("Traversable: no\n")
	}

	switch cell.Type {
	case state.Walkable:
		result.WriteString("Robots and tasks can be placed here\n")
	case state.ChargingStation:
		result.WriteString("Robots can be placed here and recharge here; tasks cannot\n")
	default:
		result.WriteString("Nothing can be placed here\n")
	}

	if len(cell.RobotIDs) > 0 {
		result.WriteString("Robots: " + strings.Join(cell.RobotIDs, ", ") + "\n")
	}
	if len(cell.TaskIDs) > 0 {
		result.WriteString("Tasks: " + strings.Join(cell.TaskIDs, ", ") + "\n")
	}
	return result.String()
}
