package sink

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/ghalamif/sensorlog/internal/domain"
)

func TestTimescaleSinkOpenEnsuresTable(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}

	sink := NewTimescaleSink(db, "records", "session-1")

	mock.ExpectPing()
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "records"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := sink.Open(); err != nil {
		t.Fatalf("open: %v", err)
	}

	mock.ExpectClose()
	if err := sink.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTimescaleSinkOpenPingFailure(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	err = NewTimescaleSink(db, "records", "session-1").Open()
	var ioErr *domain.IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("expected IOError, got %v", err)
	}
	if ioErr.Path != "timescale:records" {
		t.Fatalf("unexpected target %s", ioErr.Path)
	}
}

func TestTimescaleSinkWriteRecord(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	sink := NewTimescaleSink(db, "records", "session-1")
	ts := time.Now()

	expectedQuery := regexp.QuoteMeta(`INSERT INTO "records" (session_id, seq, ts, fields) VALUES ($1,$2,$3,$4) ON CONFLICT (session_id, seq) DO NOTHING`)
	mock.ExpectExec(expectedQuery).
		WithArgs("session-1", int64(3), ts, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	rec := &domain.Record{Seq: 3, Timestamp: ts, Fields: []string{"512", "300"}}
	if err := sink.WriteRecord(rec); err != nil {
		t.Fatalf("write record: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTimescaleSinkWriteRecordTimesOut(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	sink := NewTimescaleSink(db, "records", "session-1")
	sink.writeTimeout = 50 * time.Millisecond

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "records"`)).
		WillDelayFor(3 * time.Second).
		WillReturnResult(sqlmock.NewResult(1, 1))

	start := time.Now()
	err = sink.WriteRecord(&domain.Record{Seq: 1, Timestamp: start, Fields: []string{"512"}})
	elapsed := time.Since(start)

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if elapsed > time.Second {
		t.Fatalf("write blocked for %s despite a %s timeout", elapsed, sink.writeTimeout)
	}
}

func TestTimescaleSinkName(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer db.Close()

	sink := NewTimescaleSink(db, "records", "s")
	if sink.Name() != "timescaledb" {
		t.Fatalf("expected sink name timescaledb, got %s", sink.Name())
	}
}
