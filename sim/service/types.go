package service

import (
	"time"

	"github.com/wricardo/warehouse-sim/sim/state"
)

// SessionInfo provides information about a simulation session
type SessionInfo struct {
	ID             string          `json:"id"`
	GridID         string          `json:"grid_id"`
	CreatedAt      time.Time       `json:"created_at"`
	LastAccessedAt time.Time       `json:"last_accessed_at"`
	SpeedFactor    float64         `json:"speed_factor"`
	Snapshot       *state.Snapshot `json:"snapshot"`
}

// SpeedInfo reports the tick rate after a speed change
type SpeedInfo struct {
	SpeedFactor float64         `json:"speed_factor"`
	IntervalMS  int64           `json:"interval_ms"`
	RunStatus   state.RunStatus `json:"run_status"`
}

// CellInfo describes one grid cell and what occupies it
type CellInfo struct {
	Coordinates state.Coordinates `json:"coordinates"`
	Type        state.CellType    `json:"type"`
	Traversable bool              `json:"traversable"`
	RobotIDs    []string          `json:"robot_ids,omitempty"`
	TaskIDs     []string          `json:"task_ids,omitempty"`
}
