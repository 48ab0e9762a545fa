package sensorlog

import (
	"github.com/ghalamif/sensorlog/internal/domain"
	"github.com/ghalamif/sensorlog/internal/ports"
)

// Record is one timestamped line from the device.
type Record = domain.Record

// Source yields raw lines from a device (serial port, simulator, replay file).
type Source = ports.Source

// Decoder turns raw line bytes into text.
type Decoder = ports.Decoder

// Sink persists records. The session owns exactly one primary sink and any
// number of mirrors.
type Sink = ports.Sink

// Display echoes accepted records to the operator.
type Display = ports.Display

// Observability emits metrics/logs about reads, skips and writes.
type Observability = ports.Observability

// Field is a structured log field used by Observability implementations.
type Field = ports.Field

// Error types surfaced by a session.
type (
	ConnectionError = domain.ConnectionError
	IOError         = domain.IOError
	DecodeError     = domain.DecodeError
)

// ErrNoData is returned by a Source when its read timeout elapsed.
var ErrNoData = domain.ErrNoData
