package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ghalamif/sensorlog/internal/domain"
	"github.com/ghalamif/sensorlog/internal/ports"
)

// LoggerLoop pulls lines from an opened source and appends them to an opened
// sink. It never opens or closes the adapters it is given.
type LoggerLoop struct {
	Source  ports.Source
	Decoder ports.Decoder
	Sink    ports.Sink
	Mirrors []ports.Sink
	Display ports.Display
	Policy  ports.Policy
	Obs     ports.Observability
	Now     func() time.Time

	seq  uint64
	last time.Time
}

// Run iterates until ctx is cancelled, checking it once per read. Read and
// decode failures skip the line; a failed write to Sink ends the loop with
// that error.
func (l *LoggerLoop) Run(ctx context.Context) error {
	if l.Now == nil {
		l.Now = time.Now
	}
	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := l.step(ctx); err != nil {
			return err
		}
	}
}

// Written is the number of records persisted so far.
func (l *LoggerLoop) Written() uint64 { return l.seq }

func (l *LoggerLoop) step(ctx context.Context) error {
	raw, err := l.Source.ReadLine()
	if errors.Is(err, domain.ErrNoData) {
		l.Obs.IncCounter(ports.MetricReadTimeouts, 1)
		return nil
	}
	if err != nil {
		l.Obs.IncCounter(ports.MetricReadErrors, 1)
		l.Obs.LogError("read_failed", err, ports.Field{Key: "source", Value: l.Source.Name()})
		l.backoff(ctx)
		return nil
	}

	text, err := l.Decoder.Decode(raw)
	if err != nil {
		l.Obs.RecordSkip(ports.SkipDecode, err)
		return nil
	}

	rec, ok := domain.NewRecord(text, l.stamp())
	if !ok {
		l.Obs.RecordSkip(ports.SkipEmpty, nil)
		return nil
	}
	l.seq++
	rec.Seq = l.seq

	start := time.Now()
	if err := l.Sink.WriteRecord(rec); err != nil {
		l.Obs.LogCritical("sink_write_failed", err, ports.Field{Key: "sink", Value: l.Sink.Name()})
		return fmt.Errorf("write record %d to %s: %w", rec.Seq, l.Sink.Name(), err)
	}
	l.Obs.ObserveLatency(ports.MetricSinkWriteLatency, time.Since(start).Seconds())
	l.Obs.RecordWritten(rec)
	if sized, ok := l.Sink.(interface{ BytesWritten() int64 }); ok {
		l.Obs.SetGauge(ports.MetricOutputBytes, float64(sized.BytesWritten()))
	}

	for _, m := range l.Mirrors {
		if err := m.WriteRecord(rec); err != nil {
			l.Obs.IncCounter(ports.MetricMirrorErrors, 1)
			l.Obs.LogError("mirror_write_failed", err,
				ports.Field{Key: "mirror", Value: m.Name()},
				ports.Field{Key: "seq", Value: rec.Seq})
		}
	}

	if l.Display != nil {
		l.Display.Show(rec)
	}
	return nil
}

// stamp returns the receipt time, never earlier than the previous record's.
func (l *LoggerLoop) stamp() time.Time {
	now := l.Now()
	if now.Before(l.last) {
		now = l.last
	}
	l.last = now
	return now
}

func (l *LoggerLoop) backoff(ctx context.Context) {
	if l.Policy.ReadErrorBackoff <= 0 {
		return
	}
	t := time.NewTimer(l.Policy.ReadErrorBackoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
