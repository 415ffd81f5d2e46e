package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the top-level simulation configuration.
type Config struct {
	// Frequency is the tick frequency in Hz. Defaults to 100.
	Frequency int64 `yaml:"frequency"`
	// Calibrate runs the busy-wait calibration once the driver is ticking.
	Calibrate bool            `yaml:"calibrate"`
	Logging   LoggingConfig   `yaml:"logging"`
	Sleepers  []SleeperConfig `yaml:"sleepers"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // "err", "warning", "notice", "info", "debug", "trace"
}

// SleeperConfig defines one simulated thread. Exactly one of the duration
// fields should be positive.
type SleeperConfig struct {
	Name   string `yaml:"name"`
	Ticks  int64  `yaml:"ticks"`
	Millis int64  `yaml:"millis"`
	Micros int64  `yaml:"micros"`
}

// DefaultConfig returns the built-in demo scenario, used when no config file
// is given.
func DefaultConfig() *Config {
	return &Config{
		Frequency: 100,
		Calibrate: true,
		Sleepers: []SleeperConfig{
			{Name: "ticks-5", Ticks: 5},
			{Name: "ticks-20", Ticks: 20},
			{Name: "millis-500", Millis: 500},
			{Name: "micros-1", Micros: 1},
		},
	}
}

// LoadConfig reads and validates a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Config{Frequency: 100}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	for i, sleeper := range cfg.Sleepers {
		if sleeper.Ticks <= 0 && sleeper.Millis <= 0 && sleeper.Micros <= 0 {
			return nil, fmt.Errorf("sleeper %d (%s): one of ticks, millis, or micros must be positive", i, sleeper.Name)
		}
	}

	return &cfg, nil
}
