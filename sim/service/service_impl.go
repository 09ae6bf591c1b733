package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/wricardo/warehouse-sim/sim/config"
	"github.com/wricardo/warehouse-sim/sim/engine"
	"github.com/wricardo/warehouse-sim/sim/metrics"
	"github.com/wricardo/warehouse-sim/sim/state"
)

// simulationServiceImpl implements the SimulationService interface
type simulationServiceImpl struct {
	sessions SessionManager
	grids    GridManager
	runs     RunStore
	logger   logrus.FieldLogger
}

// NewSimulationService creates a new simulation service. runs may be nil,
// in which case ListRuns reports ErrRunsUnavailable.
func NewSimulationService(sessions SessionManager, grids GridManager, runs RunStore, logger logrus.FieldLogger) SimulationService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &simulationServiceImpl{
		sessions: sessions,
		grids:    grids,
		runs:     runs,
		logger:   logger.WithField("component", "service"),
	}
}

// CreateSession creates a new session loaded with gridID, or the default grid
func (s *simulationServiceImpl) CreateSession(ctx context.Context, gridID string) (*SessionInfo, error) {
	grid, err := s.resolveGrid(gridID)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.Create("", grid)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.logger.WithFields(logrus.Fields{"session": session.ID, "grid": grid.ID}).Info("session created")
	return sessionInfo(session), nil
}

// GetSession retrieves session information
func (s *simulationServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return sessionInfo(session), nil
}

// ListSessions returns all active sessions
func (s *simulationServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, sessionInfo(sess))
	}
	return result, nil
}

// DeleteSession removes a session and stops its simulation
func (s *simulationServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(sessionID); err != nil {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	s.logger.WithField("session", sessionID).Info("session deleted")
	return nil
}

// Initialize loads a grid into an existing session, clearing robots and tasks
func (s *simulationServiceImpl) Initialize(ctx context.Context, sessionID, gridID string) (*state.Snapshot, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	grid, err := s.resolveGrid(gridID)
	if err != nil {
		return nil, err
	}
	cells, err := grid.Cells()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidGrid, err)
	}

	session.Engine.Initialize(grid.ID, grid.Name, cells)
	snap := session.Engine.Snapshot()
	return &snap, nil
}

// PlaceRobot adds a robot on a walkable cell or charging station
func (s *simulationServiceImpl) PlaceRobot(ctx context.Context, sessionID string, location state.Coordinates, iconType string) (*state.Robot, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	var robot *state.Robot
	var placeErr error
	session.Engine.Exclusive(func(st *state.Store) {
		if !st.HasGrid() {
			placeErr = engine.ErrNoGrid
			return
		}
		robot = st.AddRobot(location, iconType)
		if robot == nil {
			placeErr = fmt.Errorf("%w: robot at (%d,%d)", ErrInvalidPlacement, location.X, location.Y)
		}
	})
	if placeErr != nil {
		return nil, placeErr
	}
	return robot, nil
}

// PlaceTask adds a task on a walkable cell
func (s *simulationServiceImpl) PlaceTask(ctx context.Context, sessionID string, location state.Coordinates) (*state.Task, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	var task *state.Task
	var placeErr error
	session.Engine.Exclusive(func(st *state.Store) {
		if !st.HasGrid() {
			placeErr = engine.ErrNoGrid
			return
		}
		task = st.AddTask(location)
		if task == nil {
			placeErr = fmt.Errorf("%w: task at (%d,%d)", ErrInvalidPlacement, location.X, location.Y)
		}
	})
	if placeErr != nil {
		return nil, placeErr
	}
	return task, nil
}

// DeleteRobot removes a robot, returning its task to the unassigned pool
func (s *simulationServiceImpl) DeleteRobot(ctx context.Context, sessionID, robotID string) error {
	session, err := s.session(sessionID)
	if err != nil {
		return err
	}

	var deleted bool
	session.Engine.Exclusive(func(st *state.Store) {
		deleted = st.DeleteRobot(robotID)
	})
	if !deleted {
		return fmt.Errorf("%w: %s", ErrRobotNotFound, robotID)
	}
	return nil
}

// DeleteTask removes a task, releasing the robot assigned to it
func (s *simulationServiceImpl) DeleteTask(ctx context.Context, sessionID, taskID string) error {
	session, err := s.session(sessionID)
	if err != nil {
		return err
	}

	var deleted bool
	session.Engine.Exclusive(func(st *state.Store) {
		deleted = st.DeleteTask(taskID)
	})
	if !deleted {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	return nil
}

// SetStrategy selects the assignment strategy
func (s *simulationServiceImpl) SetStrategy(ctx context.Context, sessionID string, strategy state.Strategy) (*state.Snapshot, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	var setErr error
	session.Engine.Exclusive(func(st *state.Store) {
		setErr = st.SetStrategy(strategy)
	})
	if errors.Is(setErr, state.ErrUnknownStrategy) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStrategy, strategy)
	}
	if setErr != nil {
		return nil, setErr
	}

	snap := session.Engine.Snapshot()
	return &snap, nil
}

// Start begins the run
func (s *simulationServiceImpl) Start(ctx context.Context, sessionID string) (*state.Snapshot, error) {
	return s.control(sessionID, func(e *engine.Engine) error {
		return e.Start()
	})
}

// Pause stops the timer, keeping state
func (s *simulationServiceImpl) Pause(ctx context.Context, sessionID string) (*state.Snapshot, error) {
	return s.control(sessionID, func(e *engine.Engine) error {
		e.Pause()
		return nil
	})
}

// Resume re-arms the timer of a paused run
func (s *simulationServiceImpl) Resume(ctx context.Context, sessionID string) (*state.Snapshot, error) {
	return s.control(sessionID, func(e *engine.Engine) error {
		e.Resume()
		return nil
	})
}

// Reset restores every robot and task to its placed state
func (s *simulationServiceImpl) Reset(ctx context.Context, sessionID string) (*state.Snapshot, error) {
	return s.control(sessionID, func(e *engine.Engine) error {
		e.Reset()
		return nil
	})
}

// SetSpeedFactor scales the tick rate of a session
func (s *simulationServiceImpl) SetSpeedFactor(ctx context.Context, sessionID string, factor float64) (*SpeedInfo, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	if err := session.Engine.SetSpeedFactor(factor); err != nil {
		return nil, err
	}

	snap := session.Engine.Snapshot()
	return &SpeedInfo{
		SpeedFactor: session.Engine.SpeedFactor(),
		IntervalMS:  session.Engine.Interval().Milliseconds(),
		RunStatus:   snap.RunStatus,
	}, nil
}

// GetSnapshot returns the full simulation state
func (s *simulationServiceImpl) GetSnapshot(ctx context.Context, sessionID string) (*state.Snapshot, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	snap := session.Engine.Snapshot()
	return &snap, nil
}

// DescribeCell reports a cell's type and the robots and tasks on it
func (s *simulationServiceImpl) DescribeCell(ctx context.Context, sessionID string, location state.Coordinates) (*CellInfo, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	snap := session.Engine.Snapshot()
	if location.Y < 0 || location.Y >= len(snap.Grid) || location.X < 0 || location.X >= len(snap.Grid[location.Y]) {
		return nil, fmt.Errorf("%w: (%d,%d)", ErrInvalidCoordinate, location.X, location.Y)
	}

	cell := snap.Grid[location.Y][location.X]
	info := &CellInfo{
		Coordinates: location,
		Type:        cell.Type,
		Traversable: cell.Type.Traversable(),
	}
	for _, r := range snap.Robots {
		if r.CurrentLocation == location {
			info.RobotIDs = append(info.RobotIDs, r.ID)
		}
	}
	for _, t := range snap.Tasks {
		if t.Location == location {
			info.TaskIDs = append(info.TaskIDs, t.ID)
		}
	}
	return info, nil
}

// ListGrids returns all available grid definitions
func (s *simulationServiceImpl) ListGrids(ctx context.Context) ([]*config.GridInfo, error) {
	return s.grids.ListGrids()
}

// LoadGrid loads a specific grid definition
func (s *simulationServiceImpl) LoadGrid(ctx context.Context, gridID string) (*config.GridConfig, error) {
	return s.grids.LoadGrid(gridID)
}

// SaveGrid validates and stores a grid definition
func (s *simulationServiceImpl) SaveGrid(ctx context.Context, gridID string, grid *config.GridConfig) error {
	if err := s.grids.SaveGrid(gridID, grid); err != nil {
		return err
	}
	s.logger.WithField("grid", gridID).Info("grid saved")
	return nil
}

// ListRuns returns recorded runs, newest first
func (s *simulationServiceImpl) ListRuns(ctx context.Context, limit int) ([]metrics.Run, error) {
	if s.runs == nil {
		return nil, ErrRunsUnavailable
	}
	return s.runs.List(ctx, limit)
}

// session looks up a session and marks it accessed
// session touches the session and returns its current state
func (s *simulationServiceImpl) session(sessionID string) (*Session, error) {
	if err := s.sessions.UpdateLastAccessed(sessionID); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return session, nil
}

func (s *simulationServiceImpl) control(sessionID string, fn func(e *engine.Engine) error) (*state.Snapshot, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	if err := fn(session.Engine); err != nil {
		return nil, err
	}
	snap := session.Engine.Snapshot()
	return &snap, nil
}

// resolveGrid loads gridID, or the default grid when it is empty. A missing
// grid error names the available ids.
func (s *simulationServiceImpl) resolveGrid(gridID string) (*config.GridConfig, error) {
	if gridID == "" {
		return s.grids.GetDefault(), nil
	}

	grid, err := s.grids.LoadGrid(gridID)
	if err == nil {
		return grid, nil
	}
	if errors.Is(err, config.ErrGridNotFound) {
		if infos, listErr := s.grids.ListGrids(); listErr == nil && len(infos) > 0 {
			ids := make([]string, 0, len(infos))
			for _, info := range infos {
				ids = append(ids, info.GridID)
			}
			return nil, fmt.Errorf("%w: %q (available: %v)", config.ErrGridNotFound, gridID, ids)
		}
	}
	return nil, err
}

func sessionInfo(session *Session) *SessionInfo {
	snap := session.Engine.Snapshot()
	return &SessionInfo{
		ID:             session.ID,
		GridID:         snap.GridID,
		CreatedAt:      session.CreatedAt,
		LastAccessedAt: session.LastAccessedAt,
		SpeedFactor:    session.Engine.SpeedFactor(),
		Snapshot:       &snap,
	}
}
