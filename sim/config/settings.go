package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wricardo/warehouse-sim/sim/engine"
	"github.com/wricardo/warehouse-sim/sim/state"
)

// Environment variables overriding settings
const (
	EnvBaseStepInterval    = "WAREHOUSE_BASE_STEP_INTERVAL"
	EnvRobotMaxBattery     = "WAREHOUSE_ROBOT_MAX_BATTERY"
	EnvMovementCostPerCell = "WAREHOUSE_MOVEMENT_COST_PER_CELL"
	EnvTaskWorkDuration    = "WAREHOUSE_TASK_WORK_DURATION"
	EnvTaskBatteryCost     = "WAREHOUSE_TASK_BATTERY_COST"
	EnvLowBatteryThreshold = "WAREHOUSE_LOW_BATTERY_THRESHOLD"
	EnvRechargeIncrement   = "WAREHOUSE_RECHARGE_INCREMENT"
)

// Settings holds the tunable simulation constants
type Settings struct {
	BaseStepInterval    time.Duration `yaml:"base_step_interval"`
	RobotMaxBattery     float64       `yaml:"robot_max_battery"`
	MovementCostPerCell float64       `yaml:"movement_cost_per_cell"`
	TaskWorkDuration    int           `yaml:"task_work_duration"`
	TaskBatteryCost     float64       `yaml:"task_battery_cost"`
	LowBatteryThreshold float64       `yaml:"low_battery_threshold"`
	RechargeIncrement   float64       `yaml:"recharge_increment"`
}

// DefaultSettings returns the built-in settings
func DefaultSettings() Settings {
	return Settings{
		BaseStepInterval:    engine.DefaultBaseStepInterval,
		RobotMaxBattery:     state.DefaultRobotMaxBattery,
		MovementCostPerCell: state.DefaultMovementCostPerCell,
		TaskWorkDuration:    state.DefaultTaskWorkDuration,
		TaskBatteryCost:     state.DefaultTaskBatteryCost,
		LowBatteryThreshold: engine.DefaultLowBatteryThreshold,
		RechargeIncrement:   engine.DefaultRechargeIncrement,
	}
}

// LoadSettings reads a YAML settings file on top of the defaults. An empty
// path returns the defaults.
func LoadSettings(path string) (Settings, error) {
	settings := DefaultSettings()
	if path == "" {
		return settings, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return settings, fmt.Errorf("reading settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return settings, fmt.Errorf("parsing settings: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return settings, err
	}
	return settings, nil
}

// ApplyEnv overrides settings from WAREHOUSE_* environment variables
func (s *Settings) ApplyEnv() error {
	if v := os.Getenv(EnvBaseStepInterval); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvBaseStepInterval, err)
		}
		s.BaseStepInterval = d
	}

	floats := []struct {
		name string
		dst  *float64
	}{
		{EnvRobotMaxBattery, &s.RobotMaxBattery},
		{EnvMovementCostPerCell, &s.MovementCostPerCell},
		{EnvTaskBatteryCost, &s.TaskBatteryCost},
		{EnvLowBatteryThreshold, &s.LowBatteryThreshold},
		{EnvRechargeIncrement, &s.RechargeIncrement},
	}
	for _, f := range floats {
		v := os.Getenv(f.name)
		if v == "" {
			continue
		}
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = parsed
	}

	if v := os.Getenv(EnvTaskWorkDuration); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTaskWorkDuration, err)
		}
		s.TaskWorkDuration = n
	}

	return s.Validate()
}

// Validate checks settings ranges
func (s Settings) Validate() error {
	switch {
	case s.BaseStepInterval <= 0:
		return fmt.Errorf("base_step_interval must be positive, got %s", s.BaseStepInterval)
	case s.RobotMaxBattery <= 0:
		return fmt.Errorf("robot_max_battery must be positive, got %g", s.RobotMaxBattery)
	case s.MovementCostPerCell < 0:
		return fmt.Errorf("movement_cost_per_cell must not be negative, got %g", s.MovementCostPerCell)
	case s.TaskWorkDuration <= 0:
		return fmt.Errorf("task_work_duration must be positive, got %d", s.TaskWorkDuration)
	case s.TaskBatteryCost < 0:
		return fmt.Errorf("task_battery_cost must not be negative, got %g", s.TaskBatteryCost)
	case s.LowBatteryThreshold < 0 || s.LowBatteryThreshold > s.RobotMaxBattery:
		return fmt.Errorf("low_battery_threshold must be between 0 and robot_max_battery, got %g", s.LowBatteryThreshold)
	case s.RechargeIncrement <= 0:
		return fmt.Errorf("recharge_increment must be positive, got %g", s.RechargeIncrement)
	}
	return nil
}

// StateDefaults returns the attributes for newly placed robots and tasks
func (s Settings) StateDefaults() state.Defaults {
	return state.Defaults{
		RobotMaxBattery:     s.RobotMaxBattery,
		MovementCostPerCell: s.MovementCostPerCell,
		TaskWorkDuration:    s.TaskWorkDuration,
		TaskBatteryCost:     s.TaskBatteryCost,
	}
}

// EngineOptions returns engine options without observer or logger
func (s Settings) EngineOptions() engine.Options {
	return engine.Options{
		BaseStepInterval:    s.BaseStepInterval,
		LowBatteryThreshold: s.LowBatteryThreshold,
		RechargeIncrement:   s.RechargeIncrement,
	}
}
