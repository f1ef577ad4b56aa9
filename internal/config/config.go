// Package config defines the simulator's configuration object and an
// optional YAML loader. Parsing configuration files is explicitly an
// external-collaborator concern (spec.md §1); the Simulator itself only
// ever consumes a Config value, never a file path, so this loader is a
// convenience for callers (matching the pack's only YAML-config idiom,
// brianmickel-battery-backtest/internal/config/config.go) rather than a
// required part of the core.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ChargingStationConfig describes one fixed charging location.
type ChargingStationConfig struct {
	LocationZone    int     `yaml:"location"`
	Ports           int     `yaml:"ports"`
	MaxPortPowerKW  float64 `yaml:"max_port_power"`
	MaxTotalPowerKW float64 `yaml:"max_total_power"`
	Efficiency      float64 `yaml:"efficiency"`
}

// FleetConfig describes the vehicles to place at reset.
type FleetConfig struct {
	Size          int    `yaml:"size"`
	Vehicle       string `yaml:"vehicle"` // named model id, e.g. "byd_e6"; empty uses VehicleParams below.
	VehicleParams *struct {
		CapacityKWh            float64 `yaml:"capacity"`
		EfficiencyKWhPer100Km float64 `yaml:"efficiency"`
	} `yaml:"vehicle_params,omitempty"`
	BatteryModel string `yaml:"battery_model"` // e.g. "multistage"
}

// Config is the abstract configuration object of spec.md §6.
type Config struct {
	StartT time.Time `yaml:"start_t"`
	EndT   time.Time `yaml:"end_t"`
	DeltaT float64   `yaml:"delta_t"`

	City   string `yaml:"city"`   // resolves to a region map file.
	Demand string `yaml:"demand"` // trip log path.

	Fleet FleetConfig `yaml:"fleet"`

	ChargingStations []ChargingStationConfig `yaml:"charging_stations"`

	AmbientC float64 `yaml:"ambient_c"`
}

// LoadUnchecked parses a YAML file into a Config without validating it,
// mirroring brianmickel-battery-backtest's Load/LoadUnchecked split so
// callers can inspect a partially-valid config before failing.
func LoadUnchecked(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &c, nil
}

// Load parses and validates a YAML config file.
func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return c, nil
}

// Validate checks the recognized options of spec.md §6 for the minimal
// well-formedness the simulator requires before reset() can proceed.
// Failures here are ConfigurationError (spec.md §7): fatal, before
// reset returns.
func (c *Config) Validate() error {
	if !c.EndT.After(c.StartT) {
		return fmt.Errorf("end_t must be after start_t")
	}
	if c.DeltaT <= 0 {
		return fmt.Errorf("delta_t must be positive")
	}
	if c.City == "" {
		return fmt.Errorf("city must resolve to a region map")
	}
	if c.Demand == "" {
		return fmt.Errorf("demand path is required")
	}
	if c.Fleet.Size <= 0 {
		return fmt.Errorf("fleet.size must be positive")
	}
	if c.Fleet.Vehicle == "" && c.Fleet.VehicleParams == nil {
		return fmt.Errorf("fleet.vehicle or fleet.vehicle_params is required")
	}
	for i, s := range c.ChargingStations {
		if s.Ports <= 0 {
			return fmt.Errorf("charging_stations[%d]: ports must be positive", i)
		}
		if s.MaxPortPowerKW <= 0 {
			return fmt.Errorf("charging_stations[%d]: max_port_power must be positive", i)
		}
		if s.MaxTotalPowerKW <= 0 {
			return fmt.Errorf("charging_stations[%d]: max_total_power must be positive", i)
		}
	}
	return nil
}
