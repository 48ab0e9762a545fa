package domain

import (
	"errors"
	"fmt"
)

// ErrNoData is returned by a source when the read timeout elapsed without a
// complete line.
var ErrNoData = errors.New("sensorlog: no data before read timeout")

// ConnectionError reports a device endpoint that could not be opened.
type ConnectionError struct {
	Port string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("open device %s: %v", e.Port, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// IOError reports an output destination that could not be created or written.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("output %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// DecodeError reports a line whose bytes are not valid in the configured encoding.
type DecodeError struct {
	Encoding string
	Line     []byte
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %d bytes as %s: %v", len(e.Line), e.Encoding, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
