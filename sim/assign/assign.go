package assign

import (
	"github.com/sirupsen/logrus"

	"github.com/wricardo/warehouse-sim/sim/pathfinding"
	"github.com/wricardo/warehouse-sim/sim/state"
)

// Assigner is the contract the engine uses to hand out work
type Assigner interface {
	// AssignTasksOnInit performs the initial pass when a run starts
	AssignTasksOnInit()
	// FindAndAssignTaskForIdleRobot tries to give the robot a task
	FindAndAssignTaskForIdleRobot(robotID string)
}

// strategy is one assignment policy
type strategy interface {
	assignOnInit(s *Service)
	assignIdle(s *Service, robot state.Robot)
}

// Service assigns tasks to robots over a store
type Service struct {
	store  *state.Store
	logger logrus.FieldLogger
	cursor int
}

// NewService creates an assignment service. A nil logger uses the standard logger.
func NewService(store *state.Store, logger logrus.FieldLogger) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{
		store:  store,
		logger: logger.WithField("component", "assign"),
	}
}

// AssignTasksOnInit resets the round-robin cursor and runs the initial
// assignment pass of the active strategy
func (s *Service) AssignTasksOnInit() {
	s.cursor = 0

	strat := s.strategy()
	if strat == nil {
		return
	}
	strat.assignOnInit(s)
}

// FindAndAssignTaskForIdleRobot gives an idle robot a task under the active
// strategy. Unknown or busy robots are ignored.
func (s *Service) FindAndAssignTaskForIdleRobot(robotID string) {
	robot, ok := s.store.Robot(robotID)
	if !ok || robot.Status != state.RobotIdle {
		return
	}

	strat := s.strategy()
	if strat == nil {
		return
	}
	strat.assignIdle(s, robot)
}

// Cursor returns the round-robin cursor
func (s *Service) Cursor() int {
	return s.cursor
}

func (s *Service) strategy() strategy {
	switch s.store.Strategy() {
	case state.StrategyNearest:
		return nearestStrategy{}
	case state.StrategyRoundRobin:
		return roundRobinStrategy{}
	default:
		s.logger.Debug("no assignment strategy selected")
		return nil
	}
}

// planPath computes the robot's path to a task and reports whether the
// robot can afford it
func (s *Service) planPath(robot state.Robot, task state.Task) ([]state.Coordinates, bool) {
	log := s.logger.WithFields(logrus.Fields{"robot": robot.ID, "task": task.ID})

	path, err := pathfinding.FindPath(s.store.Grid(), robot.CurrentLocation, task.Location)
	if err != nil {
		log.WithError(err).Debug("pathfinding failed")
		return nil, false
	}
	if len(path) == 0 {
		log.Debug("task unreachable")
		return nil, false
	}

	if !Feasible(robot, task, path) {
		log.WithField("battery", robot.Battery).Debug("insufficient battery for task")
		return nil, false
	}
	return path, true
}

// assign commits a planned assignment to the store
func (s *Service) assign(robot state.Robot, task state.Task, path []state.Coordinates) {
	target := task.Location
	s.store.UpdateRobotState(robot.ID, state.RobotPatch{
		Status:         state.Ptr(state.RobotOnTaskWay),
		AssignedTaskID: state.Ptr(task.ID),
		CurrentTarget:  &target,
		CurrentPath:    &path,
	})
	s.store.UpdateTaskState(task.ID, state.TaskPatch{Status: state.Ptr(state.TaskAssigned)})

	s.logger.WithFields(logrus.Fields{
		"robot": robot.ID,
		"task":  task.ID,
		"steps": len(path) - 1,
	}).Debug("task assigned")
}

// tryAssign plans and, if feasible, commits a single assignment
func (s *Service) tryAssign(robot state.Robot, task state.Task) bool {
	path, ok := s.planPath(robot, task)
	if !ok {
		return false
	}
	s.assign(robot, task, path)
	return true
}

// Feasible reports whether robot can travel path and then perform task.
// The battery must strictly exceed the total cost.
func Feasible(robot state.Robot, task state.Task, path []state.Coordinates) bool {
	if len(path) == 0 {
		return false
	}
	travel := float64(len(path)-1) * robot.MovementCostPerCell
	return robot.Battery > travel+task.BatteryCostToPerform
}

func unassignedTasks(tasks []state.Task) []state.Task {
	var out []state.Task
	for _, t := range tasks {
		if t.Status == state.TaskUnassigned {
			out = append(out, t)
		}
	}
	return out
}
