package state

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var ErrUnknownStrategy = errors.New("unknown strategy")

// Store owns the mutable state of one simulation instance
type Store struct {
	grid      Grid
	gridID    string
	gridName  string
	robots    []Robot
	tasks     []Task
	strategy  Strategy
	runStatus RunStatus
	simTime   int
	defaults  Defaults
}

// New creates an empty store with no grid loaded
func New(defaults Defaults) *Store {
	if defaults.RobotMaxBattery <= 0 {
		defaults.RobotMaxBattery = DefaultRobotMaxBattery
	}
	if defaults.MovementCostPerCell < 0 {
		defaults.MovementCostPerCell = DefaultMovementCostPerCell
	}
	if defaults.TaskWorkDuration <= 0 {
		defaults.TaskWorkDuration = DefaultTaskWorkDuration
	}
	if defaults.TaskBatteryCost < 0 {
		defaults.TaskBatteryCost = DefaultTaskBatteryCost
	}
	return &Store{
		robots:    []Robot{},
		tasks:     []Task{},
		runStatus: RunIdle,
		defaults:  defaults,
	}
}

// InitializeSimulation replaces the grid and clears robots, tasks and strategy
func (s *Store) InitializeSimulation(gridID, name string, layout Grid) {
	s.grid = copyGrid(layout)
	s.gridID = gridID
	s.gridName = name
	s.robots = []Robot{}
	s.tasks = []Task{}
	s.strategy = StrategyNone
	s.runStatus = RunIdle
	s.simTime = 0
}

// HasGrid reports whether a grid is loaded
func (s *Store) HasGrid() bool {
	return s.grid != nil
}

// AddRobot places a new robot, returning nil if the location is rejected
func (s *Store) AddRobot(location Coordinates, iconType string) *Robot {
	if !s.IsValidPlacement(location, true) {
		return nil
	}

	robot := Robot{
		ID:                  uuid.NewString(),
		IconType:            iconType,
		Battery:             s.defaults.RobotMaxBattery,
		MaxBattery:          s.defaults.RobotMaxBattery,
		Status:              RobotIdle,
		MovementCostPerCell: s.defaults.MovementCostPerCell,
		CurrentLocation:     location,
		InitialLocation:     location,
	}
	s.robots = append(s.robots, robot)

	out := copyRobot(robot)
	return &out
}

// AddTask places a new task, returning nil if the location is rejected.
// Tasks can never sit on a charging station.
func (s *Store) AddTask(location Coordinates) *Task {
	if !s.IsValidPlacement(location, false) {
		return nil
	}

	task := Task{
		ID:                   uuid.NewString(),
		Location:             location,
		Status:               TaskUnassigned,
		WorkDuration:         s.defaults.TaskWorkDuration,
		BatteryCostToPerform: s.defaults.TaskBatteryCost,
	}
	s.tasks = append(s.tasks, task)

	out := task
	return &out
}

// DeleteRobot removes a robot. A task it was still working towards goes back
// to unassigned.
func (s *Store) DeleteRobot(id string) bool {
	idx := s.robotIndex(id)
	if idx < 0 {
		return false
	}

	if taskID := s.robots[idx].AssignedTaskID; taskID != "" {
		if t := s.taskIndex(taskID); t >= 0 && s.tasks[t].Status != TaskCompleted {
			s.tasks[t].Status = TaskUnassigned
		}
	}

	s.robots = append(s.robots[:idx], s.robots[idx+1:]...)
	return true
}

// DeleteTask removes a task. A robot assigned to it is released back to idle.
func (s *Store) DeleteTask(id string) bool {
	idx := s.taskIndex(id)
	if idx < 0 {
		return false
	}

	for i := range s.robots {
		if s.robots[i].AssignedTaskID == id {
			releaseRobot(&s.robots[i])
		}
	}

	s.tasks = append(s.tasks[:idx], s.tasks[idx+1:]...)
	return true
}

// UpdateRobotState merges patch into the robot with the given id
func (s *Store) UpdateRobotState(id string, patch RobotPatch) *Robot {
	idx := s.robotIndex(id)
	if idx < 0 {
		return nil
	}

	r := &s.robots[idx]
	if patch.IconType != nil {
		r.IconType = *patch.IconType
	}
	if patch.Battery != nil {
		r.Battery = *patch.Battery
	}
	if patch.MaxBattery != nil {
		r.MaxBattery = *patch.MaxBattery
	}
	if patch.Status != nil {
		r.Status = *patch.Status
	}
	if patch.AssignedTaskID != nil {
		r.AssignedTaskID = *patch.AssignedTaskID
	}
	if patch.ClearTarget {
		r.CurrentTarget = nil
	}
	if patch.CurrentTarget != nil {
		target := *patch.CurrentTarget
		r.CurrentTarget = &target
	}
	if patch.CurrentPath != nil {
		r.CurrentPath = copyPath(*patch.CurrentPath)
	}
	if patch.MovementCostPerCell != nil {
		r.MovementCostPerCell = *patch.MovementCostPerCell
	}
	if patch.ConsecutiveWaitSteps != nil {
		r.ConsecutiveWaitSteps = *patch.ConsecutiveWaitSteps
	}
	if patch.WorkProgress != nil {
		r.WorkProgress = *patch.WorkProgress
	}
	if patch.CurrentLocation != nil {
		r.CurrentLocation = *patch.CurrentLocation
	}

	out := copyRobot(*r)
	return &out
}

// UpdateTaskState merges patch into the task with the given id. A patch
// moving the task off a walkable cell is rejected whole and returns nil.
func (s *Store) UpdateTaskState(id string, patch TaskPatch) *Task {
	idx := s.taskIndex(id)
	if idx < 0 {
		return nil
	}
	if patch.Location != nil && !s.IsValidPlacement(*patch.Location, false) {
		return nil
	}

	t := &s.tasks[idx]
	if patch.Location != nil {
		t.Location = *patch.Location
	}
	if patch.Status != nil {
		t.Status = *patch.Status
	}
	if patch.WorkDuration != nil {
		t.WorkDuration = *patch.WorkDuration
	}
	if patch.BatteryCostToPerform != nil {
		t.BatteryCostToPerform = *patch.BatteryCostToPerform
	}

	out := *t
	return &out
}

// Grid returns a copy of the loaded grid
func (s *Store) Grid() Grid {
	return copyGrid(s.grid)
}

// GridID returns the id of the loaded grid
func (s *Store) GridID() string {
	return s.gridID
}

// GridName returns the display name of the loaded grid
func (s *Store) GridName() string {
	return s.gridName
}

// Robots returns a copy of all robots in placement order
func (s *Store) Robots() []Robot {
	out := make([]Robot, len(s.robots))
	for i, r := range s.robots {
		out[i] = copyRobot(r)
	}
	return out
}

// Tasks returns a copy of all tasks in placement order
func (s *Store) Tasks() []Task {
	out := make([]Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Robot returns a copy of the robot with the given id
func (s *Store) Robot(id string) (Robot, bool) {
	idx := s.robotIndex(id)
	if idx < 0 {
		return Robot{}, false
	}
	return copyRobot(s.robots[idx]), true
}

// Task returns a copy of the task with the given id
func (s *Store) Task(id string) (Task, bool) {
	idx := s.taskIndex(id)
	if idx < 0 {
		return Task{}, false
	}
	return s.tasks[idx], true
}

// Strategy returns the active assignment strategy
func (s *Store) Strategy() Strategy {
	return s.strategy
}

// SetStrategy selects the assignment strategy
func (s *Store) SetStrategy(strategy Strategy) error {
	switch strategy {
	case StrategyNone, StrategyNearest, StrategyRoundRobin:
		s.strategy = strategy
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}
}

// RunStatus returns the run status
func (s *Store) RunStatus() RunStatus {
	return s.runStatus
}

// SetSimulationStatus sets the run status
func (s *Store) SetSimulationStatus(status RunStatus) {
	s.runStatus = status
}

// SimulationTime returns the number of ticks executed since the last reset
func (s *Store) SimulationTime() int {
	return s.simTime
}

// IncrementSimulationTime advances the clock by one tick
func (s *Store) IncrementSimulationTime() {
	s.simTime++
}

// ResetSimulationTime sets the clock back to zero
func (s *Store) ResetSimulationTime() {
	s.simTime = 0
}

// ResetSimulationSetup restores every robot and task to its placed state
// without removing any of them
func (s *Store) ResetSimulationSetup() {
	for i := range s.robots {
		r := &s.robots[i]
		releaseRobot(r)
		r.CurrentLocation = r.InitialLocation
		r.Battery = r.MaxBattery
		r.ConsecutiveWaitSteps = 0
	}
	for i := range s.tasks {
		s.tasks[i].Status = TaskUnassigned
	}
	s.simTime = 0
	s.runStatus = RunIdle
}

// Snapshot returns the full state for broadcasting
func (s *Store) Snapshot() Snapshot {
	return Snapshot{
		Grid:           s.Grid(),
		GridID:         s.gridID,
		GridName:       s.gridName,
		Robots:         s.Robots(),
		Tasks:          s.Tasks(),
		Strategy:       s.strategy,
		RunStatus:      s.runStatus,
		SimulationTime: s.simTime,
	}
}

func (s *Store) robotIndex(id string) int {
	for i := range s.robots {
		if s.robots[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) taskIndex(id string) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// releaseRobot drops any assignment and movement plan and returns the robot to idle
func releaseRobot(r *Robot) {
	r.Status = RobotIdle
	r.AssignedTaskID = ""
	r.CurrentTarget = nil
	r.CurrentPath = nil
	r.WorkProgress = 0
}

func copyRobot(r Robot) Robot {
	if r.CurrentTarget != nil {
		target := *r.CurrentTarget
		r.CurrentTarget = &target
	}
	r.CurrentPath = copyPath(r.CurrentPath)
	return r
}

func copyPath(path []Coordinates) []Coordinates {
	if path == nil {
		return nil
	}
	out := make([]Coordinates, len(path))
	copy(out, path)
	return out
}

func copyGrid(g Grid) Grid {
	if g == nil {
		return nil
	}
	out := make(Grid, len(g))
	for y, row := range g {
		out[y] = make([]Cell, len(row))
		copy(out[y], row)
	}
	return out
}
