package ports

import "github.com/ghalamif/sensorlog/internal/domain"

type Sink interface {
	Open() error
	WriteRecord(r *domain.Record) error
	Close() error
	Name() string
}

// Display shows accepted records to the operator.
type Display interface {
	Show(r *domain.Record)
	Notice(format string, args ...any)
}
