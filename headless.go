package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/warehouse-sim/sim/assign"
	"github.com/wricardo/warehouse-sim/sim/config"
	"github.com/wricardo/warehouse-sim/sim/engine"
	"github.com/wricardo/warehouse-sim/sim/metrics"
	"github.com/wricardo/warehouse-sim/sim/state"
)

// headlessSessionID labels runs recorded by the run command
const headlessSessionID = "headless"

var errInvalidTaskCell = errors.New("invalid task cell")

// gridLoader is the part of config.Manager the run command needs
type gridLoader interface {
	LoadGrid(id string) (*config.GridConfig, error)
}

type headlessOptions struct {
	GridID    string
	Strategy  state.Strategy
	Tasks     []state.Coordinates
	TaskEvery int
	MaxTicks  int
}

type headlessResult struct {
	Metrics        engine.FinalMetrics `json:"metrics"`
	Robots         int                 `json:"robots"`
	Tasks          int                 `json:"tasks"`
	CompletedTasks int                 `json:"completed_tasks"`
	Finished       bool                `json:"finished"`
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "run one simulation headless and print its final metrics",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "grid", Value: config.DefaultGridID, Usage: "grid to load"},
			&cli.StringFlag{Name: "strategy", Value: string(state.StrategyNearest), Usage: "nearest or round-robin"},
			&cli.StringSliceFlag{Name: "task", Usage: "task cell as x,y (repeatable)"},
			&cli.IntFlag{Name: "task-every", Value: 5, Usage: "without --task, place a task on every Nth walkable cell"},
			&cli.IntFlag{Name: "max-ticks", Value: 10000, Usage: "stop after this many ticks"},
			&cli.BoolFlag{Name: "json", Usage: "print the result as JSON"},
		},
		Action: runAction,
	}
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}

	settings, err := loadSettings(cmd.String("settings"))
	if err != nil {
		return err
	}

	grids, err := config.NewManager(cmd.String("grid-dir"))
	if err != nil {
		return err
	}

	tasks, err := parseTaskCells(cmd.StringSlice("task"))
	if err != nil {
		return err
	}

	result, err := runHeadless(grids, settings, headlessOptions{
		GridID:    cmd.String("grid"),
		Strategy:  state.Strategy(cmd.String("strategy")),
		Tasks:     tasks,
		TaskEvery: int(cmd.Int("task-every")),
		MaxTicks:  int(cmd.Int("max-ticks")),
	}, logger)
	if err != nil {
		return err
	}

	if path := cmd.String("metrics-db"); path != "" && result.Finished {
		if err := recordRun(ctx, path, result.Metrics, logger); err != nil {
			logger.WithError(err).Warn("run not recorded")
		}
	}

	return printResult(os.Stdout, result, cmd.Bool("json"))
}

// runHeadless drives a fresh simulation tick by tick without a timer.
// Robots are placed on every charging station.
func runHeadless(grids gridLoader, settings config.Settings, opts headlessOptions, logger logrus.FieldLogger) (*headlessResult, error) {
	grid, err := grids.LoadGrid(opts.GridID)
	if err != nil {
		return nil, err
	}
	layout, err := grid.Cells()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidGrid, err)
	}

	log := logger.WithField("session", headlessSessionID)
	store := state.New(settings.StateDefaults())

	engineOpts := settings.EngineOptions()
	// the timer never fires; ticks are driven by Step
	engineOpts.BaseStepInterval = time.Hour
	engineOpts.Logger = log
	eng := engine.New(store, assign.NewService(store, log), engineOpts)
	defer eng.Close()

	eng.Initialize(grid.ID, grid.Name, layout)

	var setupErr error
	eng.Exclusive(func(s *state.Store) {
		for _, charger := range s.ChargingStations() {
			s.AddRobot(charger, "")
		}

		cells := opts.Tasks
		if len(cells) == 0 {
			cells = everyNthWalkable(s.Grid(), opts.TaskEvery)
		}
		for _, cell := range cells {
			if s.AddTask(cell) == nil {
				setupErr = fmt.Errorf("%w: (%d,%d)", errInvalidTaskCell, cell.X, cell.Y)
				return
			}
		}

		setupErr = s.SetStrategy(opts.Strategy)
	})
	if setupErr != nil {
		return nil, setupErr
	}

	if err := eng.Start(); err != nil {
		return nil, err
	}

	for tick := 0; tick < opts.MaxTicks && eng.Snapshot().RunStatus == state.RunRunning; tick++ {
		eng.Step()
	}

	snap := eng.Snapshot()
	result := &headlessResult{
		Metrics:  eng.FinalMetrics(),
		Robots:   len(snap.Robots),
		Tasks:    len(snap.Tasks),
		Finished: snap.RunStatus != state.RunRunning,
	}
	for _, task := range snap.Tasks {
		if task.Status == state.TaskCompleted {
			result.CompletedTasks++
		}
	}

	log.WithFields(logrus.Fields{
		"finished":   result.Finished,
		"total_time": result.Metrics.TotalTime,
		"completed":  result.CompletedTasks,
	}).Info("headless run done")

	return result, nil
}

// everyNthWalkable returns every nth walkable cell in row-major order,
// starting with the first
func everyNthWalkable(grid state.Grid, n int) []state.Coordinates {
	if n <= 0 {
		n = 1
	}
	var cells []state.Coordinates
	i := 0
	for _, row := range grid {
		for _, cell := range row {
			if cell.Type != state.Walkable {
				continue
			}
			if i%n == 0 {
				cells = append(cells, cell.Coordinates)
			}
			i++
		}
	}
	return cells
}

// parseTaskCells parses "x,y" pairs
func parseTaskCells(values []string) ([]state.Coordinates, error) {
	cells := make([]state.Coordinates, 0, len(values))
	for _, v := range values {
		parts := strings.Split(v, ",")
		if len(parts) != 2 {
			return nil, fmt.Errorf("%w: %q, expected x,y", errInvalidTaskCell, v)
		}
		x, errX := strconv.Atoi(strings.TrimSpace(parts[0]))
		y, errY := strconv.Atoi(strings.TrimSpace(parts[1]))
		if errX != nil || errY != nil {
			return nil, fmt.Errorf("%w: %q, expected integers", errInvalidTaskCell, v)
		}
		cells = append(cells, state.Coordinates{X: x, Y: y})
	}
	return cells, nil
}

func recordRun(ctx context.Context, path string, m engine.FinalMetrics, logger logrus.FieldLogger) error {
	runs, err := metrics.Open(metrics.Config{Path: path, PoolSize: 1, Logger: logger})
	if err != nil {
		return err
	}
	defer runs.Close()
	return runs.Record(ctx, headlessSessionID, m)
}

func printResult(w io.Writer, result *headlessResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	status := "finished"
	if !result.Finished {
		status = "stopped at tick limit"
	}
	_, err := fmt.Fprintf(w, "Grid: %s (%s)\nStrategy: %s\nStatus: %s\nRobots: %d\nTasks completed: %d/%d\nTotal time: %d\nTotal recharges: %d\n",
		result.Metrics.GridName, result.Metrics.GridID, result.Metrics.Strategy, status,
		result.Robots, result.CompletedTasks, result.Tasks,
		result.Metrics.TotalTime, result.Metrics.TotalRecharges)
	return err
}
