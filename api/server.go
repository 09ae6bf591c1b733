package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/wricardo/warehouse-sim/sim/config"
	"github.com/wricardo/warehouse-sim/sim/engine"
	"github.com/wricardo/warehouse-sim/sim/service"
	"github.com/wricardo/warehouse-sim/sim/state"
	"github.com/wricardo/warehouse-sim/transport/websocket"
)

// Broadcaster pushes session updates to connected clients
type Broadcaster interface {
	BroadcastSnapshot(sessionID string, snapshot state.Snapshot)
	BroadcastEvent(sessionID string, event string, data interface{})
	ServeWS(w http.ResponseWriter, r *http.Request, sessionID string)
}

// Server represents the REST API server
type Server struct {
	service service.SimulationService
	hub     Broadcaster
	router  *mux.Router
	logger  logrus.FieldLogger
}

// NewServer creates a new API server. hub may be nil, which disables
// broadcasting and the /ws endpoint.
func NewServer(simService service.SimulationService, hub Broadcaster, logger logrus.FieldLogger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &Server{
		service: simService,
		hub:     hub,
		router:  mux.NewRouter(),
		logger:  logger.WithField("component", "api"),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	// Must be before the {id} pattern
	api.HandleFunc("/sessions/unified", s.handleUnifiedSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// Setup
	api.HandleFunc("/sessions/{id}/state", s.handleGetState).Methods("GET")
	api.HandleFunc("/sessions/{id}/initialize", s.handleInitialize).Methods("POST")
	api.HandleFunc("/sessions/{id}/robots", s.handlePlaceRobot).Methods("POST")
	api.HandleFunc("/sessions/{id}/robots/{rid}", s.handleDeleteRobot).Methods("DELETE")
	api.HandleFunc("/sessions/{id}/tasks", s.handlePlaceTask).Methods("POST")
	api.HandleFunc("/sessions/{id}/tasks/{tid}", s.handleDeleteTask).Methods("DELETE")
	api.HandleFunc("/sessions/{id}/strategy", s.handleSetStrategy).Methods("PUT")
	api.HandleFunc("/sessions/{id}/cells/{x}/{y}", s.handleDescribeCell).Methods("GET")

	// Run control
	api.HandleFunc("/sessions/{id}/start", s.handleStart).Methods("POST")
	api.HandleFunc("/sessions/{id}/pause", s.handlePause).Methods("POST")
	api.HandleFunc("/sessions/{id}/resume", s.handleResume).Methods("POST")
	api.HandleFunc("/sessions/{id}/reset", s.handleReset).Methods("POST")
	api.HandleFunc("/sessions/{id}/speed", s.handleSetSpeed).Methods("PUT")

	// Grids
	api.HandleFunc("/grids", s.handleListGrids).Methods("GET")
	api.HandleFunc("/grids", s.handleCreateGrid).Methods("POST")
	api.HandleFunc("/grids/{id}", s.handleGetGrid).Methods("GET")

	// Run history
	api.HandleFunc("/runs", s.handleListRuns).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps service errors to HTTP status codes
func (s *Server) respondServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.WithError(err).Error("request failed")
	}
	respondError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrRobotNotFound),
		errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, config.ErrGridNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidPlacement),
		errors.Is(err, service.ErrInvalidStrategy),
		errors.Is(err, service.ErrInvalidCoordinate),
		errors.Is(err, engine.ErrInvalidSpeedFactor),
		errors.Is(err, config.ErrInvalidGrid):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrNoGrid):
		return http.StatusConflict
	case errors.Is(err, service.ErrRunsUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// broadcast pushes the current snapshot of a session after a mutation
func (s *Server) broadcast(r *http.Request, sessionID string) {
	if s.hub == nil {
		return
	}
	snap, err := s.service.GetSnapshot(r.Context(), sessionID)
	if err != nil {
		return
	}
	s.hub.BroadcastSnapshot(sessionID, *snap)
}

func (s *Server) broadcastSnapshot(sessionID string, snap *state.Snapshot) {
	if s.hub == nil || snap == nil {
		return
	}
	s.hub.BroadcastSnapshot(sessionID, *snap)
}

// decodeBody decodes an optional JSON body into v
func decodeBody(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

type locationRequest struct {
	X        *int   `json:"x"`
	Y        *int   `json:"y"`
	IconType string `json:"icon_type,omitempty"`
}

func (l locationRequest) coordinates() (state.Coordinates, error) {
	if l.X == nil || l.Y == nil {
		return state.Coordinates{}, errors.New("x and y are required")
	}
	return state.Coordinates{X: *l.X, Y: *l.Y}, nil
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GridID string `json:"grid_id,omitempty"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	session, err := s.service.CreateSession(r.Context(), req.GridID)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, session)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	query := r.URL.Query()
	sortBy := query.Get("sort")    // "created", "accessed" (default)
	order := query.Get("order")    // "asc", "desc" (default: "desc")
	limitStr := query.Get("limit") // number of sessions to return

	if sortBy == "" {
		sortBy = "accessed"
	}
	if order == "" {
		order = "desc"
	}

	sort.Slice(sessions, func(i, j int) bool {
		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = sessions[i].CreatedAt, sessions[j].CreatedAt
		} else {
			ti, tj = sessions[i].LastAccessedAt, sessions[j].LastAccessedAt
		}

		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	total := len(sessions)
	limit := total
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < total {
			limit = l
		}
	}
	sessions = sessions[:limit]

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"sort":     sortBy,
		"order":    order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	session, err := s.service.GetSession(r.Context(), sessionID)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		s.respondServiceError(w, err)
		return
	}

	if s.hub != nil {
		s.hub.BroadcastEvent(sessionID, websocket.EventSessionDeleted, nil)
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// Setup Handlers

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	snap, err := s.service.GetSnapshot(r.Context(), sessionID)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, snap)
}

func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		GridID string `json:"grid_id,omitempty"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	snap, err := s.service.Initialize(r.Context(), sessionID, req.GridID)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.broadcastSnapshot(sessionID, snap)
	respondJSON(w, http.StatusOK, snap)
}

func (s *Server) handlePlaceRobot(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req locationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	loc, err := req.coordinates()
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	robot, err := s.service.PlaceRobot(r.Context(), sessionID, loc, req.IconType)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.broadcast(r, sessionID)
	respondJSON(w, http.StatusCreated, robot)
}

func (s *Server) handleDeleteRobot(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sessionID := vars["id"]

	if err := s.service.DeleteRobot(r.Context(), sessionID, vars["rid"]); err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.broadcast(r, sessionID)
	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Robot %s deleted", vars["rid"]),
	})
}

func (s *Server) handlePlaceTask(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req locationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	loc, err := req.coordinates()
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	task, err := s.service.PlaceTask(r.Context(), sessionID, loc)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.broadcast(r, sessionID)
	respondJSON(w, http.StatusCreated, task)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sessionID := vars["id"]

	if err := s.service.DeleteTask(r.Context(), sessionID, vars["tid"]); err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.broadcast(r, sessionID)
	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Task %s deleted", vars["tid"]),
	})
}

func (s *Server) handleSetStrategy(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		Strategy state.Strategy `json:"strategy"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	snap, err := s.service.SetStrategy(r.Context(), sessionID, req.Strategy)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.broadcastSnapshot(sessionID, snap)
	respondJSON(w, http.StatusOK, snap)
}

func (s *Server) handleDescribeCell(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	x, errX := strconv.Atoi(vars["x"])
	y, errY := strconv.Atoi(vars["y"])
	if errX != nil || errY != nil {
		respondError(w, http.StatusBadRequest, "x and y must be integers")
		return
	}

	cell, err := s.service.DescribeCell(r.Context(), vars["id"], state.Coordinates{X: x, Y: y})
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cell)
}

// Run Control Handlers

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	s.handleControl(w, r, s.service.Start)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.handleControl(w, r, s.service.Pause)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.handleControl(w, r, s.service.Resume)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.handleControl(w, r, s.service.Reset)
}

type controlFunc func(ctx context.Context, sessionID string) (*state.Snapshot, error)

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request, fn controlFunc) {
	sessionID := mux.Vars(r)["id"]

	snap, err := fn(r.Context(), sessionID)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.broadcastSnapshot(sessionID, snap)
	respondJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSetSpeed(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		Factor float64 `json:"factor"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	speed, err := s.service.SetSpeedFactor(r.Context(), sessionID, req.Factor)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, speed)
}

// Grid Handlers

func (s *Server) handleListGrids(w http.ResponseWriter, r *http.Request) {
	grids, err := s.service.ListGrids(r.Context())
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, grids)
}

func (s *Server) handleGetGrid(w http.ResponseWriter, r *http.Request) {
	gridID := mux.Vars(r)["id"]

	// Tolerate a file extension
	for _, ext := range []string{".yaml", ".yml", ".json"} {
		gridID = strings.TrimSuffix(gridID, ext)
	}

	grid, err := s.service.LoadGrid(r.Context(), gridID)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, grid)
}

func (s *Server) handleCreateGrid(w http.ResponseWriter, r *http.Request) {
	var grid config.GridConfig
	if err := json.NewDecoder(r.Body).Decode(&grid); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if grid.ID == "" {
		respondError(w, http.StatusBadRequest, "Grid id is required")
		return
	}

	if err := s.service.SaveGrid(r.Context(), grid.ID, &grid); err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Grid saved successfully",
		"grid_id": grid.ID,
	})
}

// Run History Handler

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	runs, err := s.service.ListRuns(r.Context(), limit)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(runs),
		"runs":  runs,
	})
}

// Unified Sessions Handler

func (s *Server) handleUnifiedSessions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var sessions []*service.SessionInfo

	if sessionIDs := query.Get("sessionIds"); sessionIDs != "" {
		ids := strings.Split(sessionIDs, ",")
		sessions = make([]*service.SessionInfo, 0, len(ids))
		for _, id := range ids {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			if session, err := s.service.GetSession(r.Context(), id); err == nil {
				sessions = append(sessions, session)
			}
		}
	} else {
		all, err := s.service.ListSessions(r.Context())
		if err != nil {
			s.respondServiceError(w, err)
			return
		}
		gridID := query.Get("gridId")
		sessions = make([]*service.SessionInfo, 0, len(all))
		for _, session := range all {
			if gridID == "" || session.GridID == gridID {
				sessions = append(sessions, session)
			}
		}
	}

	gridID := ""
	totalTasks := 0
	completedTasks := 0
	if len(sessions) > 0 {
		gridID = sessions[0].GridID
	}

	entries := make([]map[string]interface{}, 0, len(sessions))
	for _, session := range sessions {
		if session.Snapshot != nil {
			for _, task := range session.Snapshot.Tasks {
				totalTasks++
				if task.Status == state.TaskCompleted {
					completedTasks++
				}
			}
		}
		entries = append(entries, map[string]interface{}{
			"session_id":    session.ID,
			"grid_id":       session.GridID,
			"snapshot":      session.Snapshot,
			"created_at":    session.CreatedAt,
			"last_accessed": session.LastAccessedAt,
		})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"grid_id":         gridID,
		"total_tasks":     totalTasks,
		"completed_tasks": completedTasks,
		"sessions":        entries,
	})
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "websocket disabled", http.StatusNotFound)
		return
	}

	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	session, err := s.service.GetSession(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}

	s.hub.ServeWS(w, r, session.ID)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
