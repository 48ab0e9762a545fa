package observability

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ghalamif/sensorlog/internal/domain"
	"github.com/ghalamif/sensorlog/internal/ports"
)

type PromObs struct {
	logger   *slog.Logger
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
	skipped  *prometheus.CounterVec
}

// NewPromObs registers the sensorlog collectors on reg and logs through
// slog.Default().
func NewPromObs(reg prometheus.Registerer) *PromObs {
	written := prometheus.NewCounter(prometheus.CounterOpts{
		Name: ports.MetricRecordsWritten,
		Help: "Records appended to the session file.",
	})
	skipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: ports.MetricLinesSkipped,
		Help: "Lines discarded without producing a record, by reason.",
	}, []string{"reason"})
	decodeErrs := prometheus.NewCounter(prometheus.CounterOpts{
		Name: ports.MetricDecodeErrors,
		Help: "Lines that could not be decoded in the configured encoding.",
	})
	timeouts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: ports.MetricReadTimeouts,
		Help: "Reads that hit the read timeout without a full line.",
	})
	readErrs := prometheus.NewCounter(prometheus.CounterOpts{
		Name: ports.MetricReadErrors,
		Help: "Device reads that failed.",
	})
	mirrorErrs := prometheus.NewCounter(prometheus.CounterOpts{
		Name: ports.MetricMirrorErrors,
		Help: "Records a mirror sink failed to store.",
	})
	outBytes := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: ports.MetricOutputBytes,
		Help: "Size of the session file in bytes.",
	})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    ports.MetricSinkWriteLatency,
		Help:    "Time spent appending one record to the session file.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
	})

	reg.MustRegister(written, skipped, decodeErrs, timeouts, readErrs, mirrorErrs, outBytes, latency)

	return &PromObs{
		logger: slog.Default(),
		counters: map[string]prometheus.Counter{
			ports.MetricRecordsWritten: written,
			ports.MetricDecodeErrors:   decodeErrs,
			ports.MetricReadTimeouts:   timeouts,
			ports.MetricReadErrors:     readErrs,
			ports.MetricMirrorErrors:   mirrorErrs,
		},
		gauges: map[string]prometheus.Gauge{
			ports.MetricOutputBytes: outBytes,
		},
		histos: map[string]prometheus.Observer{
			ports.MetricSinkWriteLatency: latency,
		},
		skipped: skipped,
	}
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	p.logger.Info(msg, attrs(fields)...)
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	if err != nil {
		p.logger.Error(msg, append(attrs(fields), slog.Any("error", err))...)
	}
}

func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	if err != nil {
		p.logger.Error(msg, append(attrs(fields), slog.Any("error", err), slog.Bool("critical", true))...)
	}
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func (p *PromObs) RecordSkip(reason string, err error) {
	p.skipped.WithLabelValues(reason).Inc()
	if reason == ports.SkipDecode {
		p.IncCounter(ports.MetricDecodeErrors, 1)
	}
	if err != nil {
		p.logger.Debug("line skipped", slog.String("reason", reason), slog.Any("error", err))
	}
}

func (p *PromObs) RecordWritten(r *domain.Record) {
	p.IncCounter(ports.MetricRecordsWritten, 1)
	p.logger.Debug("record written", slog.Uint64("seq", r.Seq), slog.Int("fields", len(r.Fields)))
}

func attrs(fields []ports.Field) []any {
	out := make([]any, 0, len(fields))
	for _, f := range fields {
		out = append(out, slog.Any(f.Key, f.Value))
	}
	return out
}

var _ ports.Observability = (*PromObs)(nil)
