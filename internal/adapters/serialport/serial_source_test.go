package serialport

import (
	"errors"
	"testing"
	"time"
	"unicode/utf8"

	"go.bug.st/serial"

	"github.com/ghalamif/sensorlog/internal/domain"
)

// fakePort replays scripted reads. An empty chunk simulates a read timeout.
type fakePort struct {
	chunks     [][]byte
	readErr    error
	timeout    time.Duration
	resets     int
	closed     bool
	openedName string
	openedMode *serial.Mode
}

func (f *fakePort) Read(p []byte) (int, error) {
	if len(f.chunks) == 0 {
		if f.readErr != nil {
			return 0, f.readErr
		}
		return 0, nil
	}
	chunk := f.chunks[0]
	n := copy(p, chunk)
	if n < len(chunk) {
		f.chunks[0] = chunk[n:]
	} else {
		f.chunks = f.chunks[1:]
	}
	return n, nil
}

func (f *fakePort) SetReadTimeout(t time.Duration) error {
	f.timeout = t
	return nil
}

func (f *fakePort) ResetInputBuffer() error {
	f.resets++
	return nil
}

func (f *fakePort) Close() error {
	f.closed = true
	return nil
}

func withFakePort(t *testing.T, fp *fakePort, openErr error) *[]time.Duration {
	t.Helper()
	origOpen, origSleep := openPort, sleep
	t.Cleanup(func() {
		openPort = origOpen
		sleep = origSleep
	})

	var slept []time.Duration
	sleep = func(d time.Duration) { slept = append(slept, d) }
	openPort = func(name string, mode *serial.Mode) (port, error) {
		if openErr != nil {
			return nil, openErr
		}
		fp.openedName = name
		fp.openedMode = mode
		return fp, nil
	}
	return &slept
}

func TestSourceOpenAppliesModeTimeoutAndSettleDelay(t *testing.T) {
	fp := &fakePort{}
	slept := withFakePort(t, fp, nil)

	src, err := NewSource(Config{Port: "COM6", Parity: "even", StopBits: "2"})
	if err != nil {
		t.Fatalf("new source: %v", err)
	}
	if err := src.Open(); err != nil {
		t.Fatalf("open: %v", err)
	}
	defer src.Close()

	if fp.openedName != "COM6" {
		t.Fatalf("expected port COM6, got %s", fp.openedName)
	}
	if fp.openedMode.BaudRate != 9600 || fp.openedMode.DataBits != 8 {
		t.Fatalf("unexpected mode: %+v", fp.openedMode)
	}
	if fp.openedMode.Parity != serial.EvenParity || fp.openedMode.StopBits != serial.TwoStopBits {
		t.Fatalf("unexpected framing: %+v", fp.openedMode)
	}
	if fp.timeout != time.Second {
		t.Fatalf("expected 1s read timeout, got %s", fp.timeout)
	}
	if len(*slept) != 1 || (*slept)[0] != 2*time.Second {
		t.Fatalf("expected a single 2s settle delay, got %v", *slept)
	}
	if fp.resets != 1 {
		t.Fatalf("expected input buffer reset after settling, got %d", fp.resets)
	}
}

func TestSourceOpenFailureIsConnectionError(t *testing.T) {
	withFakePort(t, &fakePort{}, &serial.PortError{})

	src, err := NewSource(Config{Port: "/dev/ttyACM9"})
	if err != nil {
		t.Fatalf("new source: %v", err)
	}
	err = src.Open()
	var connErr *domain.ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected ConnectionError, got %v", err)
	}
	if connErr.Port != "/dev/ttyACM9" {
		t.Fatalf("expected port in error, got %s", connErr.Port)
	}
}

func TestSourceReadLineFramesAcrossChunks(t *testing.T) {
	fp := &fakePort{chunks: [][]byte{
		[]byte("51"),
		[]byte("2,300\r\n7"),
		{},
		[]byte("1,2\n"),
	}}
	withFakePort(t, fp, nil)

	src, _ := NewSource(Config{Port: "/dev/ttyUSB0"})
	if err := src.Open(); err != nil {
		t.Fatalf("open: %v", err)
	}

	line, err := src.ReadLine()
	if err != nil || string(line) != "512,300\r\n" {
		t.Fatalf("first line = %q, %v", line, err)
	}

	if _, err := src.ReadLine(); !errors.Is(err, domain.ErrNoData) {
		t.Fatalf("expected ErrNoData on timeout, got %v", err)
	}

	line, err = src.ReadLine()
	if err != nil || string(line) != "71,2\n" {
		t.Fatalf("partial line should be kept across the timeout, got %q, %v", line, err)
	}

	if _, err := src.ReadLine(); !errors.Is(err, domain.ErrNoData) {
		t.Fatalf("expected ErrNoData when idle, got %v", err)
	}

	if err := src.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !fp.closed {
		t.Fatalf("expected port to be closed")
	}
}

func TestSourceReadLineCapsLongLines(t *testing.T) {
	fp := &fakePort{chunks: [][]byte{[]byte("abcdefgh")}}
	withFakePort(t, fp, nil)

	src, _ := NewSource(Config{Port: "/dev/ttyUSB0", MaxLineBytes: 5})
	if err := src.Open(); err != nil {
		t.Fatalf("open: %v", err)
	}
	defer src.Close()

	line, err := src.ReadLine()
	if err != nil || string(line) != "abcde" {
		t.Fatalf("expected capped line, got %q, %v", line, err)
	}
}

func TestSourceReadLineCapKeepsRunesWhole(t *testing.T) {
	fp := &fakePort{chunks: [][]byte{[]byte("abc°def")}}
	withFakePort(t, fp, nil)

	src, _ := NewSource(Config{Port: "/dev/ttyUSB0", MaxLineBytes: 4})
	if err := src.Open(); err != nil {
		t.Fatalf("open: %v", err)
	}
	defer src.Close()

	for _, want := range []string{"abc", "°de"} {
		line, err := src.ReadLine()
		if err != nil || string(line) != want {
			t.Fatalf("expected %q, got %q, %v", want, line, err)
		}
		if !utf8.Valid(line) {
			t.Fatalf("cut split a rune: % x", line)
		}
	}
}

func TestCutPoint(t *testing.T) {
	cases := []struct {
		in    string
		limit int
		want  int
	}{
		{"abcdef", 4, 4},
		{"abc°d", 4, 3},
		{"ab°cd", 4, 4},
		{"a€bc", 3, 1},
		{"€€", 2, 2},
	}
	for _, c := range cases {
		if got := cutPoint([]byte(c.in), c.limit); got != c.want {
			t.Fatalf("cutPoint(%q, %d) = %d, want %d", c.in, c.limit, got, c.want)
		}
	}
}

func TestSourceReadLinePropagatesReadErrors(t *testing.T) {
	cause := errors.New("device unplugged")
	fp := &fakePort{readErr: cause}
	withFakePort(t, fp, nil)

	src, _ := NewSource(Config{Port: "/dev/ttyUSB0"})
	if err := src.Open(); err != nil {
		t.Fatalf("open: %v", err)
	}
	defer src.Close()

	if _, err := src.ReadLine(); !errors.Is(err, cause) {
		t.Fatalf("expected wrapped read error, got %v", err)
	}
}

func TestSourceReadBeforeOpen(t *testing.T) {
	src, _ := NewSource(Config{})
	if _, err := src.ReadLine(); err == nil {
		t.Fatalf("expected error reading closed source")
	}
	if err := src.Close(); err != nil {
		t.Fatalf("closing an unopened source should be a no-op, got %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	bad := []Config{
		{Port: "x", BaudRate: -1},
		{Port: "x", DataBits: 9},
		{Port: "x", Parity: "sometimes"},
		{Port: "x", StopBits: "3"},
		{Port: "x", ReadTimeout: -time.Second},
	}
	for _, cfg := range bad {
		cfg.ApplyDefaults()
		if err := cfg.Validate(); err == nil {
			t.Fatalf("expected validation error for %+v", cfg)
		}
	}
}
