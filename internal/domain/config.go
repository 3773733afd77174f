package domain

import (
	"fmt"
	"time"
)

const (
	DefaultCheckIntervalSeconds   = 30
	DefaultMaxConsecutiveFailures = 3
	MinCheckIntervalSeconds       = 5
	MinMaxConsecutiveFailures     = 1
)

// MonitorConfig holds the process-wide scheduling settings.
type MonitorConfig struct {
	CheckIntervalSeconds   int `json:"check_interval"`
	MaxConsecutiveFailures int `json:"max_failures"`
}

func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		CheckIntervalSeconds:   DefaultCheckIntervalSeconds,
		MaxConsecutiveFailures: DefaultMaxConsecutiveFailures,
	}
}

func (c MonitorConfig) Validate() error {
	if c.CheckIntervalSeconds < MinCheckIntervalSeconds {
		return fmt.Errorf("%w: check interval must be at least %d seconds, got %d",
			ErrInvalidSettings, MinCheckIntervalSeconds, c.CheckIntervalSeconds)
	}
	if c.MaxConsecutiveFailures < MinMaxConsecutiveFailures {
		return fmt.Errorf("%w: max failures must be at least %d, got %d",
			ErrInvalidSettings, MinMaxConsecutiveFailures, c.MaxConsecutiveFailures)
	}
	return nil
}

func (c MonitorConfig) Interval() time.Duration {
	return time.Duration(c.CheckIntervalSeconds) * time.Second
}

// State is the persisted form of the registry. Only membership and settings
// survive a restart.
type State struct {
	Servers       []string `json:"servers"`
	CheckInterval int      `json:"check_interval"`
	MaxFailures   int      `json:"max_failures"`
}

func DefaultState() State {
	return State{
		Servers:       []string{},
		CheckInterval: DefaultCheckIntervalSeconds,
		MaxFailures:   DefaultMaxConsecutiveFailures,
	}
}

// Config returns the settings in s, substituting defaults for values that
// are missing or out of range.
func (s State) Config() MonitorConfig {
	cfg := DefaultMonitorConfig()
	if s.CheckInterval >= MinCheckIntervalSeconds {
		cfg.CheckIntervalSeconds = s.CheckInterval
	}
	if s.MaxFailures >= MinMaxConsecutiveFailures {
		cfg.MaxConsecutiveFailures = s.MaxFailures
	}
	return cfg
}
