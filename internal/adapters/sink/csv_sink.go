package sink

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ghalamif/sensorlog/internal/domain"
	"github.com/ghalamif/sensorlog/internal/ports"
)

// FileNameLayout renders the session start time inside the output file name.
const FileNameLayout = "2006-01-02_15-04"

// DefaultHeader is written once as the first row of every session file.
var DefaultHeader = []string{"Timestamp", "Sensor1", "Sensor2"}

// SessionFileName returns <dir>/<prefix>_<YYYY-MM-DD_HH-MM>.csv.
func SessionFileName(dir, prefix string, start time.Time) string {
	if prefix == "" {
		prefix = "data"
	}
	return filepath.Join(dir, fmt.Sprintf("%s_%s.csv", prefix, start.Format(FileNameLayout)))
}

// CSVOption configures a CSVSink.
type CSVOption func(*CSVSink)

// WithCRLF selects \r\n row terminators.
func WithCRLF(crlf bool) CSVOption {
	return func(s *CSVSink) { s.crlf = crlf }
}

// WithSync fsyncs the file after every row.
func WithSync(sync bool) CSVOption {
	return func(s *CSVSink) { s.sync = sync }
}

// WithHeader overrides the header row.
func WithHeader(header []string) CSVOption {
	return func(s *CSVSink) {
		if len(header) > 0 {
			s.header = append([]string(nil), header...)
		}
	}
}

// CSVSink writes one row per record to a session file, flushing each row.
type CSVSink struct {
	mu      sync.Mutex
	path    string
	header  []string
	crlf    bool
	sync    bool
	file    *os.File
	counter *countingWriter
	writer  *csv.Writer
}

func NewCSVSink(path string, opts ...CSVOption) *CSVSink {
	s := &CSVSink{
		path:   path,
		header: append([]string(nil), DefaultHeader...),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *CSVSink) Name() string { return "csv" }

// Path is the session file location.
func (s *CSVSink) Path() string { return s.path }

// Open creates (or truncates) the session file and writes the header.
func (s *CSVSink) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file != nil {
		return &domain.IOError{Path: s.path, Err: fmt.Errorf("already open")}
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &domain.IOError{Path: s.path, Err: err}
		}
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return &domain.IOError{Path: s.path, Err: err}
	}

	s.file = f
	s.counter = &countingWriter{w: f}
	s.writer = csv.NewWriter(s.counter)
	s.writer.UseCRLF = s.crlf

	if err := s.writeRowLocked(s.header); err != nil {
		_ = f.Close()
		s.file, s.counter, s.writer = nil, nil, nil
		return err
	}
	return nil
}

func (s *CSVSink) WriteRecord(r *domain.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writer == nil {
		return &domain.IOError{Path: s.path, Err: fmt.Errorf("not open")}
	}
	return s.writeRowLocked(r.Row())
}

// BytesWritten reports how many bytes reached the file so far.
func (s *CSVSink) BytesWritten() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.counter == nil {
		return 0
	}
	return s.counter.n
}

func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}

	s.writer.Flush()
	flushErr := s.writer.Error()
	closeErr := s.file.Close()
	s.file, s.writer = nil, nil

	if flushErr != nil {
		return &domain.IOError{Path: s.path, Err: flushErr}
	}
	if closeErr != nil {
		return &domain.IOError{Path: s.path, Err: closeErr}
	}
	return nil
}

func (s *CSVSink) writeRowLocked(row []string) error {
	if err := s.writer.Write(row); err != nil {
		return &domain.IOError{Path: s.path, Err: err}
	}
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		return &domain.IOError{Path: s.path, Err: err}
	}
	if s.sync {
		if err := s.file.Sync(); err != nil {
			return &domain.IOError{Path: s.path, Err: err}
		}
	}
	return nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

var _ ports.Sink = (*CSVSink)(nil)
