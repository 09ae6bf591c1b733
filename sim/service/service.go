package service

import (
	"context"
	"errors"
	"time"

	"github.com/wricardo/warehouse-sim/sim/config"
	"github.com/wricardo/warehouse-sim/sim/engine"
	"github.com/wricardo/warehouse-sim/sim/metrics"
	"github.com/wricardo/warehouse-sim/sim/state"
)

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrInvalidPlacement  = errors.New("invalid placement")
	ErrRobotNotFound     = errors.New("robot not found")
	ErrTaskNotFound      = errors.New("task not found")
	ErrInvalidStrategy   = errors.New("invalid strategy")
	ErrRunsUnavailable   = errors.New("run history is not enabled")
	ErrInvalidCoordinate = errors.New("coordinates outside grid")
)

// SimulationService defines all simulation operations
type SimulationService interface {
	// Session Management
	CreateSession(ctx context.Context, gridID string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Setup
	Initialize(ctx context.Context, sessionID, gridID string) (*state.Snapshot, error)
	PlaceRobot(ctx context.Context, sessionID string, location state.Coordinates, iconType string) (*state.Robot, error)
	PlaceTask(ctx context.Context, sessionID string, location state.Coordinates) (*state.Task, error)
	DeleteRobot(ctx context.Context, sessionID, robotID string) error
	DeleteTask(ctx context.Context, sessionID, taskID string) error
	SetStrategy(ctx context.Context, sessionID string, strategy state.Strategy) (*state.Snapshot, error)

	// Run Control
	Start(ctx context.Context, sessionID string) (*state.Snapshot, error)
	Pause(ctx context.Context, sessionID string) (*state.Snapshot, error)
	Resume(ctx context.Context, sessionID string) (*state.Snapshot, error)
	Reset(ctx context.Context, sessionID string) (*state.Snapshot, error)
	SetSpeedFactor(ctx context.Context, sessionID string, factor float64) (*SpeedInfo, error)

	// State
	GetSnapshot(ctx context.Context, sessionID string) (*state.Snapshot, error)
	DescribeCell(ctx context.Context, sessionID string, location state.Coordinates) (*CellInfo, error)

	// Grids
	ListGrids(ctx context.Context) ([]*config.GridInfo, error)
	LoadGrid(ctx context.Context, gridID string) (*config.GridConfig, error)
	SaveGrid(ctx context.Context, gridID string, grid *config.GridConfig) error

	// Run History
	ListRuns(ctx context.Context, limit int) ([]metrics.Run, error)
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, grid *config.GridConfig) (*Session, error)
	Get(id string) (*Session, error)
	GetOrCreate(id string, grid *config.GridConfig) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
}

// GridManager handles grid definition loading
type GridManager interface {
	LoadGrid(id string) (*config.GridConfig, error)
	ListGrids() ([]*config.GridInfo, error)
	GetDefault() *config.GridConfig
	SaveGrid(id string, grid *config.GridConfig) error
}

// RunStore persists final metrics of finished runs
type RunStore interface {
	Record(ctx context.Context, sessionID string, m engine.FinalMetrics) error
	List(ctx context.Context, limit int) ([]metrics.Run, error)
}

// Session is a copy of one simulation's bookkeeping. Engine is shared and
// is the only way to reach the simulation state.
type Session struct {
	ID             string
	Engine         *engine.Engine
	CreatedAt      time.Time
	LastAccessedAt time.Time
}
