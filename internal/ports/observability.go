package ports

import "github.com/ghalamif/sensorlog/internal/domain"

type Observability interface {
	LogInfo(msg string, fields ...Field)
	LogError(msg string, err error, fields ...Field)
	LogCritical(msg string, err error, fields ...Field)

	IncCounter(name string, v float64)
	ObserveLatency(name string, seconds float64)

	SetGauge(name string, v float64)

	RecordSkip(reason string, err error)
	RecordWritten(r *domain.Record)
}

type Field struct {
	Key   string
	Value any
}

// Metric names understood by Observability implementations.
const (
	MetricRecordsWritten   = "sensorlog_records_written_total"
	MetricLinesSkipped     = "sensorlog_lines_skipped_total"
	MetricDecodeErrors     = "sensorlog_decode_errors_total"
	MetricReadTimeouts     = "sensorlog_read_timeouts_total"
	MetricReadErrors       = "sensorlog_read_errors_total"
	MetricMirrorErrors     = "sensorlog_mirror_errors_total"
	MetricOutputBytes      = "sensorlog_output_bytes"
	MetricSinkWriteLatency = "sensorlog_sink_write_latency_seconds"
)

// Reasons passed to RecordSkip.
const (
	SkipEmpty  = "empty"
	SkipDecode = "decode"
)
