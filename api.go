package sensorlog

import (
	"time"

	base "github.com/ghalamif/sensorlog/pkg/sensorlog"
)

// Re-exported errors for convenience.
var (
	ErrNoData            = base.ErrNoData
	ErrChannelSinkClosed = base.ErrChannelSinkClosed
	ErrChannelSinkFull   = base.ErrChannelSinkFull
)

// Type aliases so consumers can import github.com/ghalamif/sensorlog directly.
type (
	Config          = base.Config
	Policy          = base.Policy
	SerialConfig    = base.SerialConfig
	OutputConfig    = base.OutputConfig
	TimescaleConfig = base.TimescaleConfig
	MetricsConfig   = base.MetricsConfig
	LogConfig       = base.LogConfig
	Session         = base.Session
	SessionOption   = base.SessionOption
	Record          = base.Record
	RecordHandler   = base.RecordHandler
	Source          = base.Source
	Decoder         = base.Decoder
	Sink            = base.Sink
	Display         = base.Display
	Observability   = base.Observability
	Field           = base.Field
	ConnectionError = base.ConnectionError
	IOError         = base.IOError
	DecodeError     = base.DecodeError
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

func DefaultConfig() *Config {
	return base.DefaultConfig()
}

// Session and options.
func NewSession(cfg *Config, opts ...SessionOption) (*Session, error) {
	return base.NewSession(cfg, opts...)
}

func WithSource(src Source) SessionOption {
	return base.WithSource(src)
}

func WithSink(s Sink) SessionOption {
	return base.WithSink(s)
}

func WithMirror(s Sink) SessionOption {
	return base.WithMirror(s)
}

func WithDisplay(d Display) SessionOption {
	return base.WithDisplay(d)
}

func WithObservability(obs Observability) SessionOption {
	return base.WithObservability(obs)
}

func WithClock(now func() time.Time) SessionOption {
	return base.WithClock(now)
}

// Sink adapters.
func NewCallbackSink(name string, fn RecordHandler) Sink {
	return base.NewCallbackSink(name, fn)
}

func NewChannelSink(name string, buffer int) (Sink, <-chan Record, func()) {
	return base.NewChannelSink(name, buffer)
}

// ListPorts returns the serial ports visible to the OS.
func ListPorts() ([]string, error) {
	return base.ListPorts()
}
