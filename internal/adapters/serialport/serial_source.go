package serialport

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.bug.st/serial"

	"github.com/ghalamif/sensorlog/internal/domain"
	"github.com/ghalamif/sensorlog/internal/ports"
)

// Config captures how the device endpoint is opened and framed.
type Config struct {
	Port         string        `yaml:"port"`
	BaudRate     int           `yaml:"baud_rate"`
	DataBits     int           `yaml:"data_bits"`
	Parity       string        `yaml:"parity"`
	StopBits     string        `yaml:"stop_bits"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	SettleDelay  time.Duration `yaml:"settle_delay"`
	Encoding     string        `yaml:"encoding"`
	MaxLineBytes int           `yaml:"max_line_bytes"`
}

func (c *Config) ApplyDefaults() {
	if c.Port == "" {
		c.Port = "/dev/ttyUSB0"
	}
	if c.BaudRate == 0 {
		c.BaudRate = 9600
	}
	if c.DataBits == 0 {
		c.DataBits = 8
	}
	if c.Parity == "" {
		c.Parity = "none"
	}
	if c.StopBits == "" {
		c.StopBits = "1"
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = time.Second
	}
	if c.SettleDelay == 0 {
		c.SettleDelay = 2 * time.Second
	}
	if c.Encoding == "" {
		c.Encoding = "utf-8"
	}
	if c.MaxLineBytes == 0 {
		c.MaxLineBytes = 4096
	}
}

func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if c.BaudRate <= 0 {
		return fmt.Errorf("baud_rate must be > 0, got %d", c.BaudRate)
	}
	if c.DataBits < 5 || c.DataBits > 8 {
		return fmt.Errorf("data_bits must be between 5 and 8, got %d", c.DataBits)
	}
	if _, err := parseParity(c.Parity); err != nil {
		return err
	}
	if _, err := parseStopBits(c.StopBits); err != nil {
		return err
	}
	if c.ReadTimeout < 0 {
		return errors.New("read_timeout must not be negative")
	}
	if c.SettleDelay < 0 {
		return errors.New("settle_delay must not be negative")
	}
	if c.MaxLineBytes <= 0 {
		return errors.New("max_line_bytes must be > 0")
	}
	return nil
}

// Mode converts the framing options into a serial.Mode.
func (c *Config) Mode() (*serial.Mode, error) {
	parity, err := parseParity(c.Parity)
	if err != nil {
		return nil, err
	}
	stop, err := parseStopBits(c.StopBits)
	if err != nil {
		return nil, err
	}
	return &serial.Mode{
		BaudRate: c.BaudRate,
		DataBits: c.DataBits,
		Parity:   parity,
		StopBits: stop,
	}, nil
}

// port is the subset of serial.Port the source relies on.
type port interface {
	Read(p []byte) (int, error)
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
	Close() error
}

var openPort = func(name string, mode *serial.Mode) (port, error) {
	return serial.Open(name, mode)
}

var sleep = time.Sleep

// Source reads newline-framed lines from a serial device.
type Source struct {
	cfg     Config
	mu      sync.Mutex
	port    port
	buf     []byte
	pending []byte
}

func NewSource(cfg Config) (*Source, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Source{
		cfg: cfg,
		buf: make([]byte, 256),
	}, nil
}

func (s *Source) Name() string { return s.cfg.Port }

// Open connects to the device, applies the read timeout and waits for the
// settle delay. Anything the device emitted while booting is discarded.
func (s *Source) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port != nil {
		return fmt.Errorf("serial source %s already open", s.cfg.Port)
	}

	mode, err := s.cfg.Mode()
	if err != nil {
		return &domain.ConnectionError{Port: s.cfg.Port, Err: err}
	}
	p, err := openPort(s.cfg.Port, mode)
	if err != nil {
		return &domain.ConnectionError{Port: s.cfg.Port, Err: describeOpenError(err)}
	}
	if err := p.SetReadTimeout(s.cfg.ReadTimeout); err != nil {
		_ = p.Close()
		return &domain.ConnectionError{Port: s.cfg.Port, Err: fmt.Errorf("set read timeout: %w", err)}
	}

	if s.cfg.SettleDelay > 0 {
		sleep(s.cfg.SettleDelay)
	}
	if err := p.ResetInputBuffer(); err != nil {
		_ = p.Close()
		return &domain.ConnectionError{Port: s.cfg.Port, Err: fmt.Errorf("reset input buffer: %w", err)}
	}

	s.port = p
	s.pending = s.pending[:0]
	return nil
}

// ReadLine returns the next line including its terminator. A partial line
// is kept across timeouts until its newline arrives or it reaches
// MaxLineBytes.
func (s *Source) ReadLine() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return nil, fmt.Errorf("serial source %s not open", s.cfg.Port)
	}

	for {
		if i := bytes.IndexByte(s.pending, '\n'); i >= 0 {
			return s.take(i + 1), nil
		}
		if len(s.pending) >= s.cfg.MaxLineBytes {
			return s.take(cutPoint(s.pending, s.cfg.MaxLineBytes)), nil
		}

		n, err := s.port.Read(s.buf)
		if n > 0 {
			s.pending = append(s.pending, s.buf[:n]...)
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", s.cfg.Port, err)
		}
		if n == 0 {
			return nil, domain.ErrNoData
		}
	}
}

func (s *Source) take(n int) []byte {
	line := make([]byte, n)
	copy(line, s.pending[:n])
	s.pending = append(s.pending[:0], s.pending[n:]...)
	return line
}

// cutPoint moves a cut at limit back to the start of a multi-byte UTF-8
// sequence that would otherwise be split.
func cutPoint(b []byte, limit int) int {
	start := limit - 1
	for start > 0 && limit-start < utf8.UTFMax && !utf8.RuneStart(b[start]) {
		start--
	}
	if start > 0 && !utf8.FullRune(b[start:limit]) {
		return start
	}
	return limit
}

func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	s.pending = s.pending[:0]
	return err
}

// ListPorts returns the serial ports visible to the OS.
func ListPorts() ([]string, error) {
	return serial.GetPortsList()
}

func describeOpenError(err error) error {
	var perr *serial.PortError
	if !errors.As(err, &perr) {
		return err
	}
	switch perr.Code() {
	case serial.PortNotFound:
		return fmt.Errorf("device not found: %w", err)
	case serial.PermissionDenied:
		return fmt.Errorf("permission denied: %w", err)
	case serial.PortBusy:
		return fmt.Errorf("device busy: %w", err)
	default:
		return err
	}
}

func parseParity(p string) (serial.Parity, error) {
	switch strings.ToLower(p) {
	case "", "none", "n":
		return serial.NoParity, nil
	case "odd", "o":
		return serial.OddParity, nil
	case "even", "e":
		return serial.EvenParity, nil
	case "mark", "m":
		return serial.MarkParity, nil
	case "space", "s":
		return serial.SpaceParity, nil
	default:
		return 0, fmt.Errorf("unknown parity %q", p)
	}
}

func parseStopBits(s string) (serial.StopBits, error) {
	switch s {
	case "", "1":
		return serial.OneStopBit, nil
	case "1.5":
		return serial.OnePointFiveStopBits, nil
	case "2":
		return serial.TwoStopBits, nil
	default:
		return 0, fmt.Errorf("unknown stop_bits %q", s)
	}
}

var _ ports.Source = (*Source)(nil)
