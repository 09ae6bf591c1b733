package engine

import (
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wricardo/warehouse-sim/sim/pathfinding"
	"github.com/wricardo/warehouse-sim/sim/state"
)

// tickLoop is one armed timer. Each loop has its own stop channel so a
// stale loop can tell it has been replaced.
type tickLoop struct {
	stop chan struct{}
}

func (e *Engine) startTimerLocked() {
	l := &tickLoop{stop: make(chan struct{})}
	e.loop = l
	go e.run(l, e.intervalLocked())
}

func (e *Engine) stopTimerLocked() {
	if e.loop == nil {
		return
	}
	close(e.loop.stop)
	e.loop = nil
}

func (e *Engine) run(l *tickLoop, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			if !e.tick(l) {
				return
			}
		}
	}
}

// tick runs one step if l is still the armed loop
func (e *Engine) tick(l *tickLoop) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.loop != l {
		return false
	}
	e.stepLocked()
	return e.loop == l
}

func (e *Engine) stepLocked() {
	if e.store.RunStatus() != state.RunRunning {
		e.logger.Debug("step skipped, simulation not running")
		return
	}

	e.store.IncrementSimulationTime()
	tick := e.store.SimulationTime()

	for _, r := range e.store.Robots() {
		e.stepRobot(r.ID, tick)
	}

	if e.allTasksCompleted() {
		e.endSimulationLocked()
	}

	e.observer.StateChanged(e.store.Snapshot())
}

// stepRobot advances a single robot by one tick
func (e *Engine) stepRobot(id string, tick int) {
	robot, ok := e.store.Robot(id)
	if !ok {
		return
	}
	log := e.logger.WithFields(logrus.Fields{"robot": id, "tick": tick})

	if len(robot.CurrentPath) > 0 {
		var moved bool
		robot, moved = e.advance(robot, log)
		if !moved {
			return
		}
	}

	if robot.Status == state.RobotIdle && robot.AssignedTaskID != "" && atTarget(robot) {
		robot = *e.store.UpdateRobotState(id, state.RobotPatch{Status: state.Ptr(state.RobotPerformingTask)})
	}

	handled := false
	switch robot.Status {
	case state.RobotPerformingTask:
		handled = e.work(robot, log)
	case state.RobotCharging:
		e.charge(robot, log)
		return
	}

	robot, ok = e.store.Robot(id)
	if !ok || handled || robot.Status != state.RobotIdle {
		return
	}

	if robot.Battery < e.options.LowBatteryThreshold {
		e.routeToCharger(robot, log)
		return
	}
	e.assigner.FindAndAssignTaskForIdleRobot(id)
}

// advance moves the robot one cell along its path. It reports false when
// the robot is blocked and must wait.
func (e *Engine) advance(robot state.Robot, log logrus.FieldLogger) (state.Robot, bool) {
	path := robot.CurrentPath
	if path[0] == robot.CurrentLocation {
		path = path[1:]
	}

	if len(path) == 0 {
		empty := []state.Coordinates{}
		robot = *e.store.UpdateRobotState(robot.ID, state.RobotPatch{CurrentPath: &empty})
		return e.arrive(robot, log), true
	}

	next := path[0]
	if !e.store.IsTraversable(next) || !adjacent(robot.CurrentLocation, next) || robot.Battery < robot.MovementCostPerCell {
		log.WithField("next", next).Debug("robot blocked, waiting")
		e.store.UpdateRobotState(robot.ID, state.RobotPatch{
			ConsecutiveWaitSteps: state.Ptr(robot.ConsecutiveWaitSteps + 1),
		})
		return robot, false
	}

	rest := path[1:]
	robot = *e.store.UpdateRobotState(robot.ID, state.RobotPatch{
		CurrentLocation:      &next,
		Battery:              state.Ptr(robot.Battery - robot.MovementCostPerCell),
		ConsecutiveWaitSteps: state.Ptr(0),
		CurrentPath:          &rest,
	})

	if len(rest) == 0 {
		robot = e.arrive(robot, log)
	}
	return robot, true
}

// arrive handles a robot whose path is exhausted
func (e *Engine) arrive(robot state.Robot, log logrus.FieldLogger) state.Robot {
	if !atTarget(robot) {
		return robot
	}

	switch robot.Status {
	case state.RobotOnTaskWay:
		if robot.AssignedTaskID != "" {
			e.store.UpdateTaskState(robot.AssignedTaskID, state.TaskPatch{Status: state.Ptr(state.TaskInProgress)})
		}
		log.WithField("task", robot.AssignedTaskID).Debug("robot arrived at task")
		return *e.store.UpdateRobotState(robot.ID, state.RobotPatch{Status: state.Ptr(state.RobotPerformingTask)})
	case state.RobotOnChargingWay:
		e.recharges++
		log.Debug("robot arrived at charger")
		return *e.store.UpdateRobotState(robot.ID, state.RobotPatch{Status: state.Ptr(state.RobotCharging)})
	}
	return robot
}

// work advances task progress. It reports true when the task completed and
// the robot has already been offered new work this tick.
func (e *Engine) work(robot state.Robot, log logrus.FieldLogger) bool {
	task, ok := e.store.Task(robot.AssignedTaskID)
	if !ok {
		log.Debug("assigned task vanished, releasing robot")
		e.release(robot.ID)
		return false
	}

	if task.Status != state.TaskInProgress {
		e.store.UpdateTaskState(task.ID, state.TaskPatch{Status: state.Ptr(state.TaskInProgress)})
	}

	progress := robot.WorkProgress + 1
	if progress < task.WorkDuration {
		e.store.UpdateRobotState(robot.ID, state.RobotPatch{WorkProgress: &progress})
		return false
	}

	e.store.UpdateTaskState(task.ID, state.TaskPatch{Status: state.Ptr(state.TaskCompleted)})
	e.store.UpdateRobotState(robot.ID, state.RobotPatch{
		Battery: state.Ptr(math.Max(0, robot.Battery-task.BatteryCostToPerform)),
	})
	e.release(robot.ID)
	log.WithField("task", task.ID).Info("task completed")

	e.assigner.FindAndAssignTaskForIdleRobot(robot.ID)
	return true
}

// charge adds one recharge increment, releasing the robot when full
func (e *Engine) charge(robot state.Robot, log logrus.FieldLogger) {
	battery := math.Min(robot.MaxBattery, robot.Battery+e.options.RechargeIncrement)
	if battery < robot.MaxBattery {
		e.store.UpdateRobotState(robot.ID, state.RobotPatch{Battery: &battery})
		return
	}

	e.store.UpdateRobotState(robot.ID, state.RobotPatch{
		Battery:     &battery,
		Status:      state.Ptr(state.RobotIdle),
		ClearTarget: true,
	})
	log.Debug("robot fully charged")
}

// routeToCharger sends the robot to the charger with the shortest path.
// Ties go to the first station in row-major order. With a uniform cost per
// cell the shortest path is also the cheapest, so no other charger is
// affordable when this one is not.
func (e *Engine) routeToCharger(robot state.Robot, log logrus.FieldLogger) {
	grid := e.store.Grid()

	var best []state.Coordinates
	for _, station := range e.store.ChargingStations() {
		path, err := pathfinding.FindPath(grid, robot.CurrentLocation, station)
		if err != nil || len(path) == 0 {
			continue
		}
		if best == nil || len(path) < len(best) {
			best = path
		}
	}

	if best == nil {
		log.WithField("battery", robot.Battery).Warn("low battery and no reachable charger")
		return
	}

	target := best[len(best)-1]
	if cost := float64(len(best)-1) * robot.MovementCostPerCell; robot.Battery < cost {
		// the robot sets off anyway and will wait where its battery runs out
		log.WithFields(logrus.Fields{
			"battery": robot.Battery,
			"needed":  cost,
			"charger": target,
		}).Warn("battery too low to reach the nearest charger")
	}
	e.store.UpdateRobotState(robot.ID, state.RobotPatch{
		Status:        state.Ptr(state.RobotOnChargingWay),
		CurrentTarget: &target,
		CurrentPath:   &best,
	})
	log.WithFields(logrus.Fields{"battery": robot.Battery, "charger": target}).Debug("robot heading to charger")
}

// release returns the robot to idle with no assignment or plan
func (e *Engine) release(id string) {
	empty := []state.Coordinates{}
	e.store.UpdateRobotState(id, state.RobotPatch{
		Status:         state.Ptr(state.RobotIdle),
		AssignedTaskID: state.Ptr(""),
		ClearTarget:    true,
		CurrentPath:    &empty,
		WorkProgress:   state.Ptr(0),
	})
}

func (e *Engine) allTasksCompleted() bool {
	for _, t := range e.store.Tasks() {
		if t.Status != state.TaskCompleted {
			return false
		}
	}
	return true
}

func atTarget(robot state.Robot) bool {
	return robot.CurrentTarget != nil && *robot.CurrentTarget == robot.CurrentLocation
}

func adjacent(a, b state.Coordinates) bool {
	dx, dy := a.X-b.X, a.Y-b.Y
	return dx*dx+dy*dy == 1
}
