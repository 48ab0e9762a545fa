package ports

// Source yields raw lines from a device. ReadLine blocks until a full line is
// available or the read timeout elapses, in which case it returns
// domain.ErrNoData.
type Source interface {
	Open() error
	ReadLine() ([]byte, error)
	Close() error
	Name() string
}
