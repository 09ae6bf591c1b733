package assign

import "github.com/wricardo/warehouse-sim/sim/state"

// nearestStrategy gives each idle robot the unassigned task with the
// shortest feasible path. Ties go to the task placed first.
type nearestStrategy struct{}

func (nearestStrategy) assignOnInit(s *Service) {
	for _, robot := range s.store.Robots() {
		if robot.Status == state.RobotIdle {
			s.FindAndAssignTaskForIdleRobot(robot.ID)
		}
	}
}

func (nearestStrategy) assignIdle(s *Service, robot state.Robot) {
	var (
		best     state.Task
		bestPath []state.Coordinates
		found    bool
	)

	for _, task := range unassignedTasks(s.store.Tasks()) {
		path, ok := s.planPath(robot, task)
		if !ok {
			continue
		}
		if !found || len(path) < len(bestPath) {
			best, bestPath, found = task, path, true
		}
	}

	if !found {
		return
	}
	s.assign(robot, best, bestPath)
}

// roundRobinStrategy lets robots take turns in list order
type roundRobinStrategy struct{}

func (roundRobinStrategy) assignOnInit(s *Service) {
	for _, task := range unassignedTasks(s.store.Tasks()) {
		robots := s.store.Robots()
		if len(robots) == 0 {
			return
		}

		for scanned := 0; scanned < len(robots); scanned++ {
			robot := robots[s.cursor%len(robots)]
			s.cursor = (s.cursor + 1) % len(robots)

			if robot.Status == state.RobotIdle {
				s.tryAssign(robot, task)
				break
			}
		}
	}
}

func (roundRobinStrategy) assignIdle(s *Service, robot state.Robot) {
	robots := s.store.Robots()
	if len(robots) == 0 {
		return
	}
	if robots[s.cursor%len(robots)].ID != robot.ID {
		return
	}

	if tasks := unassignedTasks(s.store.Tasks()); len(tasks) > 0 {
		s.tryAssign(robot, tasks[0])
	}
	s.cursor = (s.cursor + 1) % len(robots)
}
