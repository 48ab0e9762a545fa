package sink

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/ghalamif/sensorlog/internal/domain"
	"github.com/ghalamif/sensorlog/internal/ports"
)

const (
	pingTimeout  = 5 * time.Second
	writeTimeout = 2 * time.Second
)

// TimescaleSink mirrors records into a Postgres/TimescaleDB table keyed by
// session and sequence number.
type TimescaleSink struct {
	db           *sql.DB
	tableName    string
	sessionID    string
	writeTimeout time.Duration
}

func NewTimescaleSink(db *sql.DB, table, sessionID string) *TimescaleSink {
	return &TimescaleSink{db: db, tableName: table, sessionID: sessionID, writeTimeout: writeTimeout}
}

func (t *TimescaleSink) Name() string { return "timescaledb" }

// Open checks connectivity and makes sure the table exists.
func (t *TimescaleSink) Open() error {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := t.db.PingContext(ctx); err != nil {
		return &domain.IOError{Path: t.target(), Err: fmt.Errorf("ping: %w", err)}
	}

	ddl := "CREATE TABLE IF NOT EXISTS " + pq.QuoteIdentifier(t.tableName) +
		" (session_id TEXT NOT NULL, seq BIGINT NOT NULL, ts TIMESTAMPTZ NOT NULL, fields TEXT[] NOT NULL, PRIMARY KEY (session_id, seq))"
	if _, err := t.db.ExecContext(ctx, ddl); err != nil {
		return &domain.IOError{Path: t.target(), Err: fmt.Errorf("ensure table: %w", err)}
	}
	return nil
}

// WriteRecord inserts one row and gives up after writeTimeout.
func (t *TimescaleSink) WriteRecord(r *domain.Record) error {
	ctx, cancel := context.WithTimeout(context.Background(), t.writeTimeout)
	defer cancel()

	// Replays of the same (session_id, seq) are ignored.
	query := "INSERT INTO " + pq.QuoteIdentifier(t.tableName) +
		" (session_id, seq, ts, fields) VALUES ($1,$2,$3,$4) ON CONFLICT (session_id, seq) DO NOTHING"

	_, err := t.db.ExecContext(ctx, query, t.sessionID, int64(r.Seq), r.Timestamp, pq.Array(r.Fields))
	if err != nil && ctx.Err() != nil {
		return fmt.Errorf("insert seq %d: %w", r.Seq, ctx.Err())
	}
	return err
}

func (t *TimescaleSink) Close() error {
	return t.db.Close()
}

func (t *TimescaleSink) target() string {
	return "timescale:" + t.tableName
}

var _ ports.Sink = (*TimescaleSink)(nil)
