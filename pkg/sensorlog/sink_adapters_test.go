package sensorlog

import (
	"errors"
	"testing"
	"time"
)

func TestNewCallbackSink(t *testing.T) {
	var received []Record
	sink := NewCallbackSink("cb", func(r Record) error {
		received = append(received, r)
		return nil
	})
	if err := sink.Open(); err != nil {
		t.Fatalf("Open returned error: %v", err)
	}

	input := &Record{
		Seq:       42,
		Timestamp: time.Unix(1, 0),
		Fields:    []string{"512", "300"},
	}

	if err := sink.WriteRecord(input); err != nil {
		t.Fatalf("WriteRecord returned error: %v", err)
	}
	if len(received) != 1 {
		t.Fatalf("expected 1 record, got %d", len(received))
	}
	got := received[0]
	if got.Seq != input.Seq || len(got.Fields) != 2 {
		t.Fatalf("mismatched record payload: %+v vs %+v", got, input)
	}

	input.Fields[0] = "mutated"
	if got.Fields[0] != "512" {
		t.Fatalf("expected fields to be copied, got %v", got.Fields)
	}
}

func TestNewCallbackSinkNilHandler(t *testing.T) {
	sink := NewCallbackSink("", nil)
	if sink.Name() != "callback" {
		t.Fatalf("expected default name, got %s", sink.Name())
	}
	if err := sink.Open(); err == nil {
		t.Fatalf("expected error when callback is nil")
	}
	if err := sink.WriteRecord(&Record{}); err == nil {
		t.Fatalf("expected error when callback is nil")
	}
}

func TestNewChannelSink(t *testing.T) {
	sink, ch, closeFn := NewChannelSink("chan", 1)
	defer closeFn()

	input := &Record{Seq: 7, Fields: []string{"1"}}
	errCh := make(chan error, 1)

	go func() {
		errCh <- sink.WriteRecord(input)
	}()

	var rec Record
	select {
	case rec = <-ch:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel record")
	}

	if err := <-errCh; err != nil {
		t.Fatalf("WriteRecord returned error: %v", err)
	}
	if rec.Seq != input.Seq {
		t.Fatalf("unexpected record data: %+v", rec)
	}

	closeFn()
	if err := sink.WriteRecord(input); !errors.Is(err, ErrChannelSinkClosed) {
		t.Fatalf("expected ErrChannelSinkClosed, got %v", err)
	}
}

func TestChannelSinkDropsWhenFull(t *testing.T) {
	sink, ch, closeFn := NewChannelSink("chan", 1)
	defer closeFn()

	if err := sink.WriteRecord(&Record{Seq: 1}); err != nil {
		t.Fatalf("first write returned error: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- sink.WriteRecord(&Record{Seq: 2})
	}()

	select {
	case err := <-done:
		if !errors.Is(err, ErrChannelSinkFull) {
			t.Fatalf("expected ErrChannelSinkFull, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("write blocked on a full channel")
	}

	if rec := <-ch; rec.Seq != 1 {
		t.Fatalf("expected buffered record 1, got %d", rec.Seq)
	}
}
