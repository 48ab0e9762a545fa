package sensorlog

import (
	"github.com/ghalamif/sensorlog/internal/adapters/serialport"
	"github.com/ghalamif/sensorlog/internal/app/config"
	"github.com/ghalamif/sensorlog/internal/ports"
)

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	// Policy controls how the loop reacts to device read failures.
	Policy = ports.Policy
	// SerialConfig holds the device address and line framing.
	SerialConfig = serialport.Config
	// OutputConfig names and formats the session file.
	OutputConfig = config.OutputConfig
	// TimescaleConfig configures the optional database mirror.
	TimescaleConfig = config.TimescaleConfig
	// MetricsConfig configures the metrics HTTP server.
	MetricsConfig = config.MetricsConfig
	// LogConfig selects diagnostic log level and format.
	LogConfig = config.LogConfig
)

// LoadConfig loads YAML from disk using the internal config reader.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// DefaultConfig returns a config with every default applied.
func DefaultConfig() *Config {
	return config.Default()
}

// ListPorts returns the serial ports visible to the OS.
func ListPorts() ([]string, error) {
	return serialport.ListPorts()
}
