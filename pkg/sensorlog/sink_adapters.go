package sensorlog

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ghalamif/sensorlog/internal/domain"
)

var (
	// ErrChannelSinkClosed is returned when a channel sink is written to after being closed.
	ErrChannelSinkClosed = errors.New("sensorlog: channel sink closed")
	// ErrChannelSinkFull is returned when the consumer has fallen behind and
	// the record was dropped.
	ErrChannelSinkFull = errors.New("sensorlog: channel sink full")
)

// RecordHandler receives a copy of every persisted record.
type RecordHandler func(Record) error

// NewCallbackSink adapts a RecordHandler into a Sink so callers can mirror
// records into arbitrary code without defining structs.
func NewCallbackSink(name string, fn RecordHandler) Sink {
	if name == "" {
		name = "callback"
	}
	return &callbackSink{name: name, fn: fn}
}

// NewChannelSink exposes records via a channel; it returns the sink, the read-only channel,
// and a close function that the caller should invoke during shutdown. A record
// that does not fit in the buffer is dropped with ErrChannelSinkFull.
func NewChannelSink(name string, buffer int) (Sink, <-chan Record, func()) {
	if name == "" {
		name = "channel"
	}
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan Record, buffer)
	s := &channelSink{
		name:   name,
		ch:     ch,
		closed: make(chan struct{}),
	}
	return s, ch, func() { s.close() }
}

type callbackSink struct {
	name string
	fn   RecordHandler
}

func (s *callbackSink) Open() error {
	if s.fn == nil {
		return fmt.Errorf("callback sink %q: nil handler", s.name)
	}
	return nil
}

func (s *callbackSink) WriteRecord(r *domain.Record) error {
	if s.fn == nil {
		return fmt.Errorf("callback sink %q: nil handler", s.name)
	}
	return s.fn(copyRecord(r))
}

func (s *callbackSink) Close() error { return nil }
func (s *callbackSink) Name() string { return s.name }

type channelSink struct {
	name   string
	ch     chan Record
	closed chan struct{}
	once   sync.Once
}

func (s *channelSink) Open() error { return nil }

func (s *channelSink) WriteRecord(r *domain.Record) error {
	select {
	case <-s.closed:
		return ErrChannelSinkClosed
	default:
	}

	select {
	case <-s.closed:
		return ErrChannelSinkClosed
	case s.ch <- copyRecord(r):
		return nil
	default:
		return ErrChannelSinkFull
	}
}

func (s *channelSink) Close() error { return nil }
func (s *channelSink) Name() string { return s.name }

func (s *channelSink) close() {
	s.once.Do(func() {
		close(s.closed)
		close(s.ch)
	})
}

func copyRecord(r *domain.Record) Record {
	out := *r
	out.Fields = append([]string(nil), r.Fields...)
	return out
}
