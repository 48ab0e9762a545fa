package sensorlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ghalamif/sensorlog/internal/adapters/codec"
	"github.com/ghalamif/sensorlog/internal/adapters/console"
	"github.com/ghalamif/sensorlog/internal/adapters/observability"
	"github.com/ghalamif/sensorlog/internal/adapters/serialport"
	"github.com/ghalamif/sensorlog/internal/adapters/sink"
	"github.com/ghalamif/sensorlog/internal/app/pipeline"
	"github.com/ghalamif/sensorlog/internal/ports"
)

// SessionOption customizes the dependencies used by Session.
type SessionOption func(*sessionOverrides)

type sessionOverrides struct {
	source        Source
	sink          Sink
	mirrors       []Sink
	display       Display
	observability Observability
	clock         func() time.Time
}

// WithSource injects a custom line source (simulator, replay file, TCP bridge).
func WithSource(src Source) SessionOption {
	return func(o *sessionOverrides) {
		o.source = src
	}
}

// WithSink replaces the session CSV file as the primary sink.
func WithSink(s Sink) SessionOption {
	return func(o *sessionOverrides) {
		o.sink = s
	}
}

// WithMirror adds a sink that receives every record after the primary sink.
// Mirror write failures are logged, never fatal.
func WithMirror(s Sink) SessionOption {
	return func(o *sessionOverrides) {
		if s != nil {
			o.mirrors = append(o.mirrors, s)
		}
	}
}

// WithDisplay overrides the stdout echo.
func WithDisplay(d Display) SessionOption {
	return func(o *sessionOverrides) {
		o.display = d
	}
}

// WithObservability plugs in a custom observability backend. The metrics
// endpoint is only served for the default Prometheus backend.
func WithObservability(obs Observability) SessionOption {
	return func(o *sessionOverrides) {
		o.observability = obs
	}
}

// WithClock sets the time source used for the file name and record stamps.
func WithClock(now func() time.Time) SessionOption {
	return func(o *sessionOverrides) {
		o.clock = now
	}
}

// Session owns one device connection and one output file for the lifetime
// of a single logging run.
type Session struct {
	id         string
	cfg        *Config
	startedAt  time.Time
	policy     ports.Policy
	obs        ports.Observability
	registry   *prometheus.Registry
	source     ports.Source
	decoder    ports.Decoder
	sink       ports.Sink
	mirrors    []ports.Sink
	display    ports.Display
	now        func() time.Time
	outputPath string
	metricsSrv *http.Server
	loop       *pipeline.LoggerLoop
}

// NewSession builds the default adapters (serial source, CSV session file,
// optional Timescale mirror, Prometheus observability, stdout echo). Nothing
// is opened until Run.
func NewSession(cfg *Config, opts ...SessionOption) (*Session, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var overrides sessionOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	now := overrides.clock
	if now == nil {
		now = time.Now
	}

	s := &Session{
		id:        uuid.NewString(),
		cfg:       cfg,
		startedAt: now(),
		policy:    ports.Policy{ReadErrorBackoff: cfg.Serial.ReadTimeout},
		now:       now,
	}

	s.obs = overrides.observability
	if s.obs == nil {
		s.registry = prometheus.NewRegistry()
		s.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		s.obs = observability.NewPromObs(s.registry)
	}

	dec, err := codec.NewDecoder(cfg.Serial.Encoding)
	if err != nil {
		return nil, err
	}
	s.decoder = dec

	s.source = overrides.source
	if s.source == nil {
		s.source, err = serialport.NewSource(cfg.Serial)
		if err != nil {
			return nil, err
		}
	}

	s.sink = overrides.sink
	if s.sink == nil {
		path := sink.SessionFileName(cfg.Output.Dir, cfg.Output.Prefix, s.startedAt)
		s.sink = sink.NewCSVSink(path,
			sink.WithHeader(cfg.Output.Header),
			sink.WithCRLF(cfg.Output.CRLF()),
			sink.WithSync(cfg.Output.Sync),
		)
	}
	if p, ok := s.sink.(interface{ Path() string }); ok {
		s.outputPath = p.Path()
	}

	s.mirrors = overrides.mirrors
	if cfg.Timescale.ConnString != "" {
		db, err := sql.Open("postgres", cfg.Timescale.ConnString)
		if err != nil {
			return nil, err
		}
		s.mirrors = append(s.mirrors, sink.NewTimescaleSink(db, cfg.Timescale.Table, s.id))
	}

	s.display = overrides.display
	if s.display == nil {
		s.display = console.New(nil)
	}

	return s, nil
}

// ID identifies the session in logs and mirror rows.
func (s *Session) ID() string { return s.id }

// StartedAt is the time the session file name was derived from.
func (s *Session) StartedAt() time.Time { return s.startedAt }

// OutputPath is the session file location, empty when a custom sink without
// a path is used.
func (s *Session) OutputPath() string { return s.outputPath }

// Written reports how many records were persisted.
func (s *Session) Written() uint64 {
	if s.loop == nil {
		return 0
	}
	return s.loop.Written()
}

// Run opens the device and the output, then reads until ctx is cancelled.
// Startup failures are returned before any line is read. Whatever was opened
// is released on every return path.
func (s *Session) Run(ctx context.Context) (err error) {
	if s == nil {
		return fmt.Errorf("session is nil")
	}

	if err := s.source.Open(); err != nil {
		return err
	}
	opened := []ports.Sink{}
	saved := false
	defer func() {
		err = errors.Join(err, s.release(opened, saved))
	}()

	// Interrupted while the device was settling: leave any existing file alone.
	if ctx.Err() != nil {
		s.display.Notice("\nStopped by user.")
		return nil
	}

	// Mirrors first so a mirror failure never leaves a header-only file behind.
	for i, m := range s.mirrors {
		if err := m.Open(); err != nil {
			for _, rest := range s.mirrors[i:] {
				_ = rest.Close()
			}
			return fmt.Errorf("mirror %s: %w", m.Name(), err)
		}
		opened = append(opened, m)
	}
	if err := s.sink.Open(); err != nil {
		return err
	}
	opened = append(opened, s.sink)
	saved = true

	s.startMetrics()

	s.obs.LogInfo("session_started",
		ports.Field{Key: "session", Value: s.id},
		ports.Field{Key: "source", Value: s.source.Name()},
		ports.Field{Key: "output", Value: s.outputPath},
		ports.Field{Key: "mirrors", Value: len(s.mirrors)})
	s.display.Notice("Reading from %s and saving to %s (Press Ctrl+C to stop)...", s.source.Name(), s.outputName())

	s.loop = &pipeline.LoggerLoop{
		Source:  s.source,
		Decoder: s.decoder,
		Sink:    s.sink,
		Mirrors: s.mirrors,
		Display: s.display,
		Policy:  s.policy,
		Obs:     s.obs,
		Now:     s.now,
	}
	if err := s.loop.Run(ctx); err != nil {
		return err
	}

	s.display.Notice("\nStopped by user.")
	return nil
}

// release closes sinks in reverse order, then the device, then the metrics
// server. The save notice is only printed once the session file was opened.
func (s *Session) release(opened []ports.Sink, saved bool) error {
	var errs []error

	for i := len(opened) - 1; i >= 0; i-- {
		if err := opened[i].Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", opened[i].Name(), err))
		}
	}

	if err := s.source.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close %s: %w", s.source.Name(), err))
	}

	if s.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.metricsSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
		s.metricsSrv = nil
	}

	err := errors.Join(errs...)
	s.obs.LogInfo("session_closed",
		ports.Field{Key: "session", Value: s.id},
		ports.Field{Key: "records", Value: s.Written()})
	if saved {
		s.display.Notice("Data saved to %s", s.outputName())
	}
	return err
}

func (s *Session) outputName() string {
	if s.outputPath != "" {
		return s.outputPath
	}
	return s.sink.Name()
}

func (s *Session) startMetrics() {
	if s.cfg.Metrics.Addr == "" || s.registry == nil {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.metricsSrv = &http.Server{
		Addr:              s.cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	srv := s.metricsSrv
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.obs.LogError("metrics_server_exited", err)
		}
	}()
}
