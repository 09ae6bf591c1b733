package engine

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wricardo/warehouse-sim/sim/state"
)

var (
	ErrNoGrid             = errors.New("no grid loaded")
	ErrInvalidSpeedFactor = errors.New("speed factor must be a finite number greater than zero")
)

// Engine defaults
const (
	DefaultBaseStepInterval    = time.Second
	DefaultLowBatteryThreshold = 20
	DefaultRechargeIncrement   = 10
)

// Observer is notified of simulation progress. Implementations must return
// quickly; StateChanged runs while the engine lock is held.
type Observer interface {
	StateChanged(snapshot state.Snapshot)
	SimulationEnded(metrics FinalMetrics)
}

// FinalMetrics summarizes a finished run
type FinalMetrics struct {
	GridID         string         `json:"grid_id"`
	GridName       string         `json:"grid_name"`
	Strategy       state.Strategy `json:"strategy"`
	TotalTime      int            `json:"total_time"`
	TotalRecharges int            `json:"total_recharges"`
	EndedAt        time.Time      `json:"ended_at"`
}

// Options configures an engine
type Options struct {
	BaseStepInterval    time.Duration
	LowBatteryThreshold float64
	RechargeIncrement   float64
	Observer            Observer
	Logger              logrus.FieldLogger
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	OnStateChanged    func(state.Snapshot)
	OnSimulationEnded func(FinalMetrics)
}

func (o ObserverFuncs) StateChanged(snapshot state.Snapshot) {
	if o.OnStateChanged != nil {
		o.OnStateChanged(snapshot)
	}
}

func (o ObserverFuncs) SimulationEnded(metrics FinalMetrics) {
	if o.OnSimulationEnded != nil {
		o.OnSimulationEnded(metrics)
	}
}

// Observers fans out to several observers in order
type Observers []Observer

func (o Observers) StateChanged(snapshot state.Snapshot) {
	for _, obs := range o {
		obs.StateChanged(snapshot)
	}
}

func (o Observers) SimulationEnded(metrics FinalMetrics) {
	for _, obs := range o {
		obs.SimulationEnded(metrics)
	}
}

type noopObserver struct{}

func (noopObserver) StateChanged(state.Snapshot)  {}
func (noopObserver) SimulationEnded(FinalMetrics) {}
