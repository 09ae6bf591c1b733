package engine

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wricardo/warehouse-sim/sim/assign"
	"github.com/wricardo/warehouse-sim/sim/state"
)

// Engine advances one simulation and guards its store
type Engine struct {
	mu          sync.Mutex
	store       *state.Store
	assigner    assign.Assigner
	observer    Observer
	options     Options
	speedFactor float64
	loop        *tickLoop
	recharges   int
	logger      logrus.FieldLogger
}

// New creates an engine over store. A non-positive interval or recharge
// increment, or a negative threshold, falls back to the default.
func New(store *state.Store, assigner assign.Assigner, opts Options) *Engine {
	if opts.BaseStepInterval <= 0 {
		opts.BaseStepInterval = DefaultBaseStepInterval
	}
	if opts.LowBatteryThreshold < 0 {
		opts.LowBatteryThreshold = DefaultLowBatteryThreshold
	}
	if opts.RechargeIncrement <= 0 {
		opts.RechargeIncrement = DefaultRechargeIncrement
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	observer := opts.Observer
	if observer == nil {
		observer = noopObserver{}
	}

	return &Engine{
		store:       store,
		assigner:    assigner,
		observer:    observer,
		options:     opts,
		speedFactor: 1,
		logger:      opts.Logger.WithField("component", "engine"),
	}
}

// Initialize stops any running timer and loads a new grid, clearing robots
// and tasks
func (e *Engine) Initialize(gridID, name string, layout state.Grid) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopTimerLocked()
	e.recharges = 0
	e.store.InitializeSimulation(gridID, name, layout)

	e.logger.WithFields(logrus.Fields{"grid": gridID, "rows": len(layout)}).Info("simulation initialized")
}

// Start begins a run. Starting a running simulation is a no-op.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.store.HasGrid() {
		e.logger.Warn("cannot start simulation without a grid")
		return ErrNoGrid
	}
	if e.store.RunStatus() == state.RunRunning {
		return nil
	}

	e.store.SetSimulationStatus(state.RunRunning)
	e.assigner.AssignTasksOnInit()
	e.startTimerLocked()

	e.logger.WithFields(logrus.Fields{
		"strategy": e.store.Strategy(),
		"robots":   len(e.store.Robots()),
		"tasks":    len(e.store.Tasks()),
	}).Info("simulation started")
	return nil
}

// Pause disarms the timer. An in-flight tick finishes first.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopTimerLocked()
	e.store.SetSimulationStatus(state.RunPaused)
	e.logger.Info("simulation paused")
}

// Resume re-arms the timer of a paused simulation
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.store.RunStatus() != state.RunPaused || e.loop != nil || !e.store.HasGrid() {
		return
	}

	e.store.SetSimulationStatus(state.RunRunning)
	e.startTimerLocked()
	e.logger.Info("simulation resumed")
}

// Reset stops the timer and restores every robot and task to its placed state
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopTimerLocked()
	e.store.ResetSimulationSetup()
	e.recharges = 0
	e.logger.Info("simulation reset")
}

// SetSpeedFactor scales the tick rate. A running timer is re-armed with the
// new interval.
func (e *Engine) SetSpeedFactor(factor float64) error {
	if math.IsNaN(factor) || math.IsInf(factor, 0) || factor <= 0 {
		e.logger.WithField("factor", factor).Warn("ignoring invalid speed factor")
		return fmt.Errorf("%w: %v", ErrInvalidSpeedFactor, factor)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.speedFactor = factor
	if e.store.RunStatus() == state.RunRunning && e.loop != nil {
		e.stopTimerLocked()
		e.startTimerLocked()
	}

	e.logger.WithFields(logrus.Fields{"factor": factor, "interval": e.intervalLocked()}).Info("speed factor changed")
	return nil
}

// SpeedFactor returns the current speed factor
func (e *Engine) SpeedFactor() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speedFactor
}

// Interval returns the current tick interval
func (e *Engine) Interval() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.intervalLocked()
}

// Step executes a single tick. It does nothing unless the simulation is running.
func (e *Engine) Step() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stepLocked()
}

// Exclusive runs fn with sole access to the store
func (e *Engine) Exclusive(fn func(s *state.Store)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.store)
}

// Snapshot returns the current state
func (e *Engine) Snapshot() state.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Snapshot()
}

// FinalMetrics returns the metrics of the current run so far
func (e *Engine) FinalMetrics() FinalMetrics {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.metricsLocked()
}

// Running reports whether the tick timer is armed
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loop != nil
}

// Close stops the timer
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopTimerLocked()
}

func (e *Engine) intervalLocked() time.Duration {
	interval := time.Duration(float64(e.options.BaseStepInterval) / e.speedFactor)
	if interval <= 0 {
		return e.options.BaseStepInterval
	}
	return interval
}

func (e *Engine) metricsLocked() FinalMetrics {
	return FinalMetrics{
		GridID:         e.store.GridID(),
		GridName:       e.store.GridName(),
		Strategy:       e.store.Strategy(),
		TotalTime:      e.store.SimulationTime(),
		TotalRecharges: e.recharges,
		EndedAt:        time.Now().UTC(),
	}
}

// endSimulationLocked stops the run and reports metrics without blocking the tick
func (e *Engine) endSimulationLocked() {
	e.stopTimerLocked()
	e.store.SetSimulationStatus(state.RunIdle)

	metrics := e.metricsLocked()
	e.logger.WithFields(logrus.Fields{
		"total_time":      metrics.TotalTime,
		"total_recharges": metrics.TotalRecharges,
	}).Info("simulation finished")

	observer := e.observer
	go observer.SimulationEnded(metrics)
}
