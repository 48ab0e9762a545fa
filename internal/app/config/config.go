package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ghalamif/sensorlog/internal/adapters/codec"
	"github.com/ghalamif/sensorlog/internal/adapters/serialport"
)

type Config struct {
	Serial    serialport.Config `yaml:"serial"`
	Output    OutputConfig      `yaml:"output"`
	Timescale TimescaleConfig   `yaml:"timescale"`
	Metrics   MetricsConfig     `yaml:"metrics"`
	Log       LogConfig         `yaml:"log"`
}

type OutputConfig struct {
	Dir        string   `yaml:"dir"`
	Prefix     string   `yaml:"prefix"`
	Header     []string `yaml:"header"`
	LineEnding string   `yaml:"line_ending"` // "crlf" or "lf"
	Sync       bool     `yaml:"sync"`
}

// TimescaleConfig enables the optional database mirror when ConnString is set.
type TimescaleConfig struct {
	ConnString string `yaml:"conn_string"`
	Table      string `yaml:"table"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns a config with every default applied.
func Default() *Config {
	var cfg Config
	cfg.ApplyDefaults()
	return &cfg
}

func (c *Config) ApplyDefaults() {
	if c.Output.Dir == "" {
		c.Output.Dir = "."
	}
	if c.Output.Prefix == "" {
		c.Output.Prefix = "data"
	}
	if len(c.Output.Header) == 0 {
		c.Output.Header = []string{"Timestamp", "Sensor1", "Sensor2"}
	}
	if c.Output.LineEnding == "" {
		c.Output.LineEnding = "crlf"
	}
	if c.Timescale.Table == "" {
		c.Timescale.Table = "records"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	c.Serial.ApplyDefaults()
}

func (c *Config) Validate() error {
	if err := c.Serial.Validate(); err != nil {
		return fmt.Errorf("serial config: %w", err)
	}
	if _, err := codec.NewDecoder(c.Serial.Encoding); err != nil {
		return fmt.Errorf("serial config: %w", err)
	}
	if c.Output.Dir == "" {
		return errors.New("output.dir is required")
	}
	if strings.ContainsAny(c.Output.Prefix, `/\`) {
		return fmt.Errorf("output.prefix %q must not contain path separators", c.Output.Prefix)
	}
	switch strings.ToLower(c.Output.LineEnding) {
	case "crlf", "lf":
	default:
		return fmt.Errorf("output.line_ending must be crlf or lf, got %q", c.Output.LineEnding)
	}
	if c.Timescale.ConnString != "" && c.Timescale.Table == "" {
		return errors.New("timescale.table is required when conn_string is set")
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// CRLF reports whether rows end with \r\n.
func (o OutputConfig) CRLF() bool {
	return strings.EqualFold(o.LineEnding, "crlf")
}
