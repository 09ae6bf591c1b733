package state

// CellType represents the kind of a grid cell
type CellType string

const (
	Walkable        CellType = "walkable"
	Wall            CellType = "wall"
	ChargingStation CellType = "chargingStation"
	Empty           CellType = "empty"
)

// RobotStatus is the state of a robot's status machine
type RobotStatus string

const (
	RobotIdle           RobotStatus = "idle"
	RobotOnTaskWay      RobotStatus = "onTaskWay"
	RobotPerformingTask RobotStatus = "performingTask"
	RobotOnChargingWay  RobotStatus = "onChargingWay"
	RobotCharging       RobotStatus = "charging"
)

// TaskStatus is the lifecycle status of a task
type TaskStatus string

const (
	TaskUnassigned TaskStatus = "unassigned"
	TaskAssigned   TaskStatus = "assigned"
	TaskInProgress TaskStatus = "inProgress"
	TaskCompleted  TaskStatus = "completed"
)

// Strategy selects the task assignment policy. The zero value means no
// strategy has been chosen yet.
type Strategy string

const (
	StrategyNone       Strategy = ""
	StrategyNearest    Strategy = "nearest"
	StrategyRoundRobin Strategy = "round-robin"
)

// RunStatus is the run state of a simulation
type RunStatus string

const (
	RunIdle    RunStatus = "idle"
	RunRunning RunStatus = "running"
	RunPaused  RunStatus = "paused"
)

// Default values for newly placed robots and tasks
const (
	DefaultRobotMaxBattery     = 100
	DefaultMovementCostPerCell = 1
	DefaultTaskWorkDuration    = 3
	DefaultTaskBatteryCost     = 5
)

// Coordinates is a grid-relative x,y position
type Coordinates struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Cell represents a single grid cell
type Cell struct {
	Type        CellType    `json:"type"`
	Coordinates Coordinates `json:"coordinates"`
}

// Grid is a row-major matrix of cells, indexed [y][x]
type Grid [][]Cell

// Height returns the number of rows
func (g Grid) Height() int {
	return len(g)
}

// Width returns the length of the first row, or 0 for an empty grid
func (g Grid) Width() int {
	if len(g) == 0 {
		return 0
	}
	return len(g[0])
}

// Robot is a mobile unit that travels the grid to perform tasks
type Robot struct {
	ID                   string        `json:"id"`
	IconType             string        `json:"icon_type"`
	Battery              float64       `json:"battery"`
	MaxBattery           float64       `json:"max_battery"`
	Status               RobotStatus   `json:"status"`
	AssignedTaskID       string        `json:"assigned_task_id,omitempty"`
	CurrentTarget        *Coordinates  `json:"current_target,omitempty"`
	CurrentPath          []Coordinates `json:"current_path,omitempty"`
	MovementCostPerCell  float64       `json:"movement_cost_per_cell"`
	ConsecutiveWaitSteps int           `json:"consecutive_wait_steps"`
	WorkProgress         int           `json:"work_progress"`
	CurrentLocation      Coordinates   `json:"current_location"`
	InitialLocation      Coordinates   `json:"initial_location"`
}

// Task is a unit of work located on a walkable cell
type Task struct {
	ID                   string      `json:"id"`
	Location             Coordinates `json:"location"`
	Status               TaskStatus  `json:"status"`
	WorkDuration         int         `json:"work_duration"`
	BatteryCostToPerform float64     `json:"battery_cost_to_perform"`
}

// RobotPatch is a merge-patch for a robot. Nil fields are left untouched and
// a robot's ID can never be patched.
type RobotPatch struct {
	IconType             *string
	Battery              *float64
	MaxBattery           *float64
	Status               *RobotStatus
	AssignedTaskID       *string
	CurrentTarget        *Coordinates
	ClearTarget          bool
	CurrentPath          *[]Coordinates
	MovementCostPerCell  *float64
	ConsecutiveWaitSteps *int
	WorkProgress         *int
	CurrentLocation      *Coordinates
}

// TaskPatch is a merge-patch for a task
type TaskPatch struct {
	Location             *Coordinates
	Status               *TaskStatus
	WorkDuration         *int
	BatteryCostToPerform *float64
}

// Snapshot is the full serializable simulation state
type Snapshot struct {
	Grid           Grid      `json:"grid"`
	GridID         string    `json:"grid_id"`
	GridName       string    `json:"grid_name"`
	Robots         []Robot   `json:"robots"`
	Tasks          []Task    `json:"tasks"`
	Strategy       Strategy  `json:"strategy"`
	RunStatus      RunStatus `json:"run_status"`
	SimulationTime int       `json:"simulation_time"`
}

// Defaults configures the attributes given to newly placed robots and tasks
type Defaults struct {
	RobotMaxBattery     float64
	MovementCostPerCell float64
	TaskWorkDuration    int
	TaskBatteryCost     float64
}

// DefaultDefaults returns the built-in robot and task defaults
func DefaultDefaults() Defaults {
	return Defaults{
		RobotMaxBattery:     DefaultRobotMaxBattery,
		MovementCostPerCell: DefaultMovementCostPerCell,
		TaskWorkDuration:    DefaultTaskWorkDuration,
		TaskBatteryCost:     DefaultTaskBatteryCost,
	}
}

// Ptr returns a pointer to v, for building patches
func Ptr[T any](v T) *T {
	return &v
}
