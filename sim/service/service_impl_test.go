package service_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/warehouse-sim/sim/assign"
	"github.com/wricardo/warehouse-sim/sim/config"
	"github.com/wricardo/warehouse-sim/sim/engine"
	"github.com/wricardo/warehouse-sim/sim/metrics"
	"github.com/wricardo/warehouse-sim/sim/service"
	"github.com/wricardo/warehouse-sim/sim/state"
)

// MockSessionManager implements service.SessionManager for testing
type MockSessionManager struct {
	sessions map[string]*service.Session
}

func NewMockSessionManager() *MockSessionManager {
	return &MockSessionManager{
		sessions: make(map[string]*service.Session),
	}
}

func (m *MockSessionManager) Create(id string, grid *config.GridConfig) (*service.Session, error) {
	if id == "" {
		id = fmt.Sprintf("s%03d", len(m.sessions)+1)
	}
	if _, exists := m.sessions[id]; exists {
		return nil, errors.New("session already exists")
	}

	cells, err := grid.Cells()
	if err != nil {
		return nil, err
	}

	logger, _ := test.NewNullLogger()
	store := state.New(state.DefaultDefaults())
	assigner := assign.NewService(store, logger)
	eng := engine.New(store, assigner, engine.Options{BaseStepInterval: time.Hour, Logger: logger})
	eng.Initialize(grid.ID, grid.Name, cells)

	session := &service.Session{
		ID:             id,
		Engine:         eng,
		CreatedAt:      time.Now(),
		LastAccessedAt: time.Now(),
	}
	m.sessions[id] = session
	return session, nil
}

func (m *MockSessionManager) Get(id string) (*service.Session, error) {
	session, exists := m.sessions[id]
	if !exists {
		return nil, service.ErrSessionNotFound
	}
	return session, nil
}

func (m *MockSessionManager) GetOrCreate(id string, grid *config.GridConfig) (*service.Session, error) {
	if session, err := m.Get(id); err == nil {
		return session, nil
	}
	return m.Create(id, grid)
}

func (m *MockSessionManager) List() []*service.Session {
	sessions := make([]*service.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	return sessions
}

func (m *MockSessionManager) Delete(id string) error {
	session, exists := m.sessions[id]
	if !exists {
		return service.ErrSessionNotFound
	}
	session.Engine.Close()
	delete(m.sessions, id)
	return nil
}

func (m *MockSessionManager) UpdateLastAccessed(id string) error {
	session, exists := m.sessions[id]
	if !exists {
		return service.ErrSessionNotFound
	}
	session.LastAccessedAt = time.Now()
	return nil
}

// MockGridManager implements service.GridManager for testing
type MockGridManager struct {
	grids map[string]*config.GridConfig
	saved map[string]*config.GridConfig
}

func NewMockGridManager() *MockGridManager {
	return &MockGridManager{
		grids: map[string]*config.GridConfig{
			"default": {
				ID:     "default",
				Name:   "Default",
				Layout: []string{"C....", ".....", "....C"},
			},
			"aisle": {
				ID:     "aisle",
				Name:   "Aisle",
				Layout: []string{"C.#..", "..#..", "....."},
			},
		},
		saved: make(map[string]*config.GridConfig),
	}
}

func (m *MockGridManager) LoadGrid(id string) (*config.GridConfig, error) {
	grid, ok := m.grids[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", config.ErrGridNotFound, id)
	}
	return grid, nil
}

func (m *MockGridManager) ListGrids() ([]*config.GridInfo, error) {
	infos := make([]*config.GridInfo, 0, len(m.grids))
	for _, id := range []string{"aisle", "default"} {
		infos = append(infos, m.grids[id].Info(id+".yaml"))
	}
	return infos, nil
}

func (m *MockGridManager) GetDefault() *config.GridConfig {
	return m.grids["default"]
}

func (m *MockGridManager) SaveGrid(id string, grid *config.GridConfig) error {
	if err := config.ValidateGridConfig(grid); err != nil {
		return fmt.Errorf("%w: %v", config.ErrInvalidGrid, err)
	}
	m.saved[id] = grid
	return nil
}

// MockRunStore implements service.RunStore for testing
type MockRunStore struct {
	runs []metrics.Run
}

func (m *MockRunStore) Record(ctx context.Context, sessionID string, fm engine.FinalMetrics) error {
	m.runs = append(m.runs, metrics.Run{SessionID: sessionID, GridID: fm.GridID, TotalTime: fm.TotalTime})
	return nil
}

func (m *MockRunStore) List(ctx context.Context, limit int) ([]metrics.Run, error) {
	if limit > 0 && limit < len(m.runs) {
		return m.runs[:limit], nil
	}
	return m.runs, nil
}

func newTestService(t *testing.T, runs service.RunStore) (service.SimulationService, *MockSessionManager, *MockGridManager) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	sessions := NewMockSessionManager()
	grids := NewMockGridManager()
	t.Cleanup(func() {
		for _, s := range sessions.sessions {
			s.Engine.Close()
		}
	})
	return service.NewSimulationService(sessions, grids, runs, logger), sessions, grids
}

func at(x, y int) state.Coordinates {
	return state.Coordinates{X: x, Y: y}
}

func TestSimulationService_CreateSession(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	tests := []struct {
		name     string
		gridID   string
		wantGrid string
		wantErr  error
	}{
		{"default grid", "", "default", nil},
		{"named grid", "aisle", "aisle", nil},
		{"unknown grid", "missing", "", config.ErrGridNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := svc.CreateSession(ctx, tt.gridID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, info.ID)
			assert.Equal(t, tt.wantGrid, info.GridID)
			assert.Equal(t, 1.0, info.SpeedFactor)
			require.NotNil(t, info.Snapshot)
			assert.Equal(t, state.RunIdle, info.Snapshot.RunStatus)
		})
	}

	t.Run("unknown grid names the available ones", func(t *testing.T) {
		_, err := svc.CreateSession(ctx, "missing")
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "aisle"), err.Error())
	})
}

func TestSimulationService_SessionLifecycle(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	info, err := svc.CreateSession(ctx, "")
	require.NoError(t, err)

	got, err := svc.GetSession(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, info.ID, got.ID)
	assert.False(t, got.LastAccessedAt.Before(info.LastAccessedAt))

	list, err := svc.ListSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.DeleteSession(ctx, info.ID))
	_, err = svc.GetSession(ctx, info.ID)
	assert.ErrorIs(t, err, service.ErrSessionNotFound)
	assert.ErrorIs(t, svc.DeleteSession(ctx, info.ID), service.ErrSessionNotFound)
}

func TestSimulationService_Placement(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	info, err := svc.CreateSession(ctx, "aisle")
	require.NoError(t, err)

	tests := []struct {
		name    string
		robot   bool
		loc     state.Coordinates
		wantErr error
	}{
		{"robot on walkable", true, at(1, 0), nil},
		{"robot on charger", true, at(0, 0), nil},
		{"robot on wall", true, at(2, 0), service.ErrInvalidPlacement},
		{"robot out of bounds", true, at(9, 9), service.ErrInvalidPlacement},
		{"task on walkable", false, at(4, 2), nil},
		{"task on charger", false, at(0, 0), service.ErrInvalidPlacement},
		{"task on wall", false, at(2, 1), service.ErrInvalidPlacement},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.robot {
				robot, err := svc.PlaceRobot(ctx, info.ID, tt.loc, "forklift")
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
					assert.Nil(t, robot)
					return
				}
				require.NoError(t, err)
				assert.Equal(t, tt.loc, robot.CurrentLocation)
				assert.Equal(t, "forklift", robot.IconType)
				return
			}

			task, err := svc.PlaceTask(ctx, info.ID, tt.loc)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, task)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, state.TaskUnassigned, task.Status)
		})
	}

	_, err = svc.PlaceRobot(ctx, "nope", at(1, 0), "")
	assert.ErrorIs(t, err, service.ErrSessionNotFound)
}

func TestSimulationService_PlacementWithoutGrid(t *testing.T) {
	svc, sessions, _ := newTestService(t, nil)
	ctx := context.Background()

	logger, _ := test.NewNullLogger()
	store := state.New(state.DefaultDefaults())
	assigner := assign.NewService(store, logger)
	sessions.sessions["bare"] = &service.Session{
		ID:     "bare",
		Engine: engine.New(store, assigner, engine.Options{BaseStepInterval: time.Hour, Logger: logger}),
	}

	_, err := svc.PlaceRobot(ctx, "bare", at(0, 0), "")
	assert.ErrorIs(t, err, engine.ErrNoGrid)
	_, err = svc.PlaceTask(ctx, "bare", at(0, 0))
	assert.ErrorIs(t, err, engine.ErrNoGrid)
	_, err = svc.Start(ctx, "bare")
	assert.ErrorIs(t, err, engine.ErrNoGrid)
}

func TestSimulationService_Delete(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	info, err := svc.CreateSession(ctx, "")
	require.NoError(t, err)

	robot, err := svc.PlaceRobot(ctx, info.ID, at(1, 0), "")
	require.NoError(t, err)
	task, err := svc.PlaceTask(ctx, info.ID, at(3, 0))
	require.NoError(t, err)

	require.NoError(t, svc.DeleteRobot(ctx, info.ID, robot.ID))
	assert.ErrorIs(t, svc.DeleteRobot(ctx, info.ID, robot.ID), service.ErrRobotNotFound)

	require.NoError(t, svc.DeleteTask(ctx, info.ID, task.ID))
	assert.ErrorIs(t, svc.DeleteTask(ctx, info.ID, task.ID), service.ErrTaskNotFound)

	snap, err := svc.GetSnapshot(ctx, info.ID)
	require.NoError(t, err)
	assert.Empty(t, snap.Robots)
	assert.Empty(t, snap.Tasks)
}

func TestSimulationService_SetStrategy(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	info, err := svc.CreateSession(ctx, "")
	require.NoError(t, err)

	snap, err := svc.SetStrategy(ctx, info.ID, state.StrategyRoundRobin)
	require.NoError(t, err)
	assert.Equal(t, state.StrategyRoundRobin, snap.Strategy)

	_, err = svc.SetStrategy(ctx, info.ID, state.Strategy("random"))
	assert.ErrorIs(t, err, service.ErrInvalidStrategy)
}

func TestSimulationService_RunControl(t *testing.T) {
	svc, sessions, _ := newTestService(t, nil)
	ctx := context.Background()

	info, err := svc.CreateSession(ctx, "")
	require.NoError(t, err)

	_, err = svc.PlaceRobot(ctx, info.ID, at(1, 0), "")
	require.NoError(t, err)
	_, err = svc.PlaceTask(ctx, info.ID, at(3, 0))
	require.NoError(t, err)
	_, err = svc.SetStrategy(ctx, info.ID, state.StrategyNearest)
	require.NoError(t, err)

	snap, err := svc.Start(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, state.RunRunning, snap.RunStatus)
	assert.Equal(t, state.RobotOnTaskWay, snap.Robots[0].Status)

	snap, err = svc.Pause(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, state.RunPaused, snap.RunStatus)

	snap, err = svc.Resume(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, state.RunRunning, snap.RunStatus)

	sessions.sessions[info.ID].Engine.Step()

	snap, err = svc.Reset(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, state.RunIdle, snap.RunStatus)
	assert.Equal(t, 0, snap.SimulationTime)
	assert.Equal(t, at(1, 0), snap.Robots[0].CurrentLocation)
	assert.Equal(t, state.TaskUnassigned, snap.Tasks[0].Status)
}

func TestSimulationService_Initialize(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	info, err := svc.CreateSession(ctx, "")
	require.NoError(t, err)
	_, err = svc.PlaceRobot(ctx, info.ID, at(1, 0), "")
	require.NoError(t, err)

	snap, err := svc.Initialize(ctx, info.ID, "aisle")
	require.NoError(t, err)
	assert.Equal(t, "aisle", snap.GridID)
	assert.Empty(t, snap.Robots)

	got, err := svc.GetSession(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, "aisle", got.GridID)

	_, err = svc.Initialize(ctx, info.ID, "missing")
	assert.ErrorIs(t, err, config.ErrGridNotFound)
}

func TestSimulationService_SetSpeedFactor(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	info, err := svc.CreateSession(ctx, "")
	require.NoError(t, err)

	speed, err := svc.SetSpeedFactor(ctx, info.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4.0, speed.SpeedFactor)
	assert.Equal(t, (15 * time.Minute).Milliseconds(), speed.IntervalMS)
	assert.Equal(t, state.RunIdle, speed.RunStatus)

	_, err = svc.SetSpeedFactor(ctx, info.ID, 0)
	assert.ErrorIs(t, err, engine.ErrInvalidSpeedFactor)
	_, err = svc.SetSpeedFactor(ctx, info.ID, -2)
	assert.ErrorIs(t, err, engine.ErrInvalidSpeedFactor)
}

func TestSimulationService_DescribeCell(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	info, err := svc.CreateSession(ctx, "aisle")
	require.NoError(t, err)
	robot, err := svc.PlaceRobot(ctx, info.ID, at(0, 0), "")
	require.NoError(t, err)
	task, err := svc.PlaceTask(ctx, info.ID, at(1, 1))
	require.NoError(t, err)

	cell, err := svc.DescribeCell(ctx, info.ID, at(0, 0))
	require.NoError(t, err)
	assert.Equal(t, state.ChargingStation, cell.Type)
	assert.True(t, cell.Traversable)
	assert.Equal(t, []string{robot.ID}, cell.RobotIDs)
	assert.Empty(t, cell.TaskIDs)

	cell, err = svc.DescribeCell(ctx, info.ID, at(1, 1))
	require.NoError(t, err)
	assert.Equal(t, []string{task.ID}, cell.TaskIDs)

	cell, err = svc.DescribeCell(ctx, info.ID, at(2, 0))
	require.NoError(t, err)
	assert.Equal(t, state.Wall, cell.Type)
	assert.False(t, cell.Traversable)

	_, err = svc.DescribeCell(ctx, info.ID, at(5, 0))
	assert.ErrorIs(t, err, service.ErrInvalidCoordinate)
}

func TestSimulationService_Grids(t *testing.T) {
	svc, _, grids := newTestService(t, nil)
	ctx := context.Background()

	infos, err := svc.ListGrids(ctx)
	require.NoError(t, err)
	assert.Len(t, infos, 2)

	grid, err := svc.LoadGrid(ctx, "aisle")
	require.NoError(t, err)
	assert.Equal(t, "Aisle", grid.Name)

	valid := &config.GridConfig{Name: "Tiny", Layout: []string{"C.", ".."}}
	require.NoError(t, svc.SaveGrid(ctx, "tiny", valid))
	assert.Contains(t, grids.saved, "tiny")

	invalid := &config.GridConfig{Name: "Bad", Layout: []string{"C.", "."}}
	assert.ErrorIs(t, svc.SaveGrid(ctx, "bad", invalid), config.ErrInvalidGrid)
}

func TestSimulationService_ListRuns(t *testing.T) {
	t.Run("without run store", func(t *testing.T) {
		svc, _, _ := newTestService(t, nil)
		_, err := svc.ListRuns(context.Background(), 10)
		assert.ErrorIs(t, err, service.ErrRunsUnavailable)
	})

	t.Run("with run store", func(t *testing.T) {
		runs := &MockRunStore{}
		require.NoError(t, runs.Record(context.Background(), "s1", engine.FinalMetrics{GridID: "default", TotalTime: 9}))
		svc, _, _ := newTestService(t, runs)

		got, err := svc.ListRuns(context.Background(), 10)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, 9, got[0].TotalTime)
	})
}
