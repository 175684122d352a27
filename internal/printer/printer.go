// Package printer wraps the thermal receipt printer for slip output.
//
// It provides a single "print this text and cut" operation over an ESC/POS
// device, plus a console backend that renders slips to a terminal for
// development rigs without hardware attached.
package printer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/kenshaw/escpos"
	"go.bug.st/serial"
)

// Constants for printer configuration
const (
	// DefaultDevicePath is the default character device for a USB thermal printer.
	DefaultDevicePath = "/dev/usb/lp0"
	// DefaultFeedLines is how many lines to feed after the body so the text
	// clears the tear bar before the cut.
	DefaultFeedLines = 5
)

// Error variables for better error handling and testability
var (
	// ErrEmptyBody indicates a print was attempted with no slip text.
	ErrEmptyBody = errors.New("slip body cannot be empty")
	// ErrNotInitialized indicates the printer device was never opened.
	ErrNotInitialized = errors.New("printer device not initialized")
)

// SlipPrinter is the interface the pipeline prints through (for production and testing).
type SlipPrinter interface {
	Print(ctx context.Context, body string) error
	Describe() string
}

// Opts holds configuration options for the printer client.
type Opts struct {
	DevicePath string // character device or serial port path
	BaudRate   int    // nonzero selects serial transport at this rate
	FeedLines  int    // blank lines fed after the body
	Cut        bool   // whether to cut the paper after feeding
}

// Option defines a configuration option for the printer client.
type Option func(*Opts)

// WithDevicePath sets the device or serial port path.
func WithDevicePath(path string) Option {
	return func(o *Opts) {
		o.DevicePath = path
	}
}

// WithBaudRate selects serial transport with the given baud rate. A zero rate
// keeps plain character-device writes.
func WithBaudRate(rate int) Option {
	return func(o *Opts) {
		o.BaudRate = rate
	}
}

// WithFeedLines sets how many lines to feed after the slip body.
func WithFeedLines(lines int) Option {
	return func(o *Opts) {
		o.FeedLines = lines
	}
}

// WithCut controls whether the paper is cut after feeding.
func WithCut(enabled bool) Option {
	return func(o *Opts) {
		o.Cut = enabled
	}
}

// errWriter folds the first write error and swallows subsequent writes, so a
// full ESC/POS command sequence can run before the error is inspected.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) Write(p []byte) (int, error) {
	if ew.err != nil {
		return 0, ew.err
	}
	n, err := ew.w.Write(p)
	if err != nil {
		ew.err = err
	}
	return n, err
}

// Read exists only because escpos.New demands an io.ReadWriter; the print
// path never reads from the device.
func (ew *errWriter) Read(p []byte) (int, error) {
	return 0, io.EOF
}

// Client drives an ESC/POS thermal printer over a character device or serial
// port. Print is serialized: the device carries one job at a time.
type Client struct {
	mu         sync.Mutex
	dev        io.WriteCloser
	devicePath string
	feedLines  int
	cut        bool
}

// NewClient opens the printer device, applying any provided options for
// customization. A nonzero baud rate opens the path as a serial port;
// otherwise it is treated as a plain character device.
func NewClient(opts ...Option) (*Client, error) {
	cfg := Opts{
		DevicePath: DefaultDevicePath,
		FeedLines:  DefaultFeedLines,
		Cut:        true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("printer.NewClient options set",
		"device", cfg.DevicePath, "baud", cfg.BaudRate, "feedLines", cfg.FeedLines, "cut", cfg.Cut)

	var dev io.WriteCloser
	if cfg.BaudRate > 0 {
		port, err := serial.Open(cfg.DevicePath, &serial.Mode{BaudRate: cfg.BaudRate})
		if err != nil {
			return nil, fmt.Errorf("printer.NewClient: failed to open serial port %s: %w", cfg.DevicePath, err)
		}
		dev = port
		slog.Info("printer.NewClient: serial printer opened", "device", cfg.DevicePath, "baud", cfg.BaudRate)
	} else {
		f, err := os.OpenFile(cfg.DevicePath, os.O_RDWR, 0)
		if err != nil {
			return nil, fmt.Errorf("printer.NewClient: failed to open printer device %s: %w", cfg.DevicePath, err)
		}
		dev = f
		slog.Info("printer.NewClient: printer device opened", "device", cfg.DevicePath)
	}

	return &Client{
		dev:        dev,
		devicePath: cfg.DevicePath,
		feedLines:  cfg.FeedLines,
		cut:        cfg.Cut,
	}, nil
}

// Print writes one slip to the device: initialize, body, feed, cut. The write
// is not retried; any device error fails the job.
func (c *Client) Print(ctx context.Context, body string) error {
	if c.dev == nil {
		return fmt.Errorf("printer.Print: %w", ErrNotInitialized)
	}
	if body == "" {
		return fmt.Errorf("printer.Print: %w", ErrEmptyBody)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("printer.Print: canceled before writing: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	slog.Debug("printer.Print: writing slip", "device", c.devicePath, "chars", len(body))
	ew := &errWriter{w: c.dev}
	p := escpos.New(ew)
	p.Init()
	p.Write(body)
	if !strings.HasSuffix(body, "\n") {
		p.Write("\n")
	}
	if c.feedLines > 0 {
		p.FormfeedN(c.feedLines)
	}
	if c.cut {
		p.Cut()
	}
	p.End()

	if ew.err != nil {
		slog.Error("printer.Print: device write failed", "device", c.devicePath, "error", ew.err)
		return fmt.Errorf("printer.Print: device write failed: %w", ew.err)
	}
	slog.Debug("printer.Print: slip written", "device", c.devicePath)
	return nil
}

// Describe names the backend and device for health reporting.
func (c *Client) Describe() string {
	return "escpos:" + c.devicePath
}

// Close releases the printer device.
func (c *Client) Close() error {
	if c.dev == nil {
		return nil
	}
	return c.dev.Close()
}

// ConsolePrinter renders slips to a writer instead of hardware. It is the
// development backend: the slip body followed by a tear-off marker.
type ConsolePrinter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsolePrinter creates a console printer writing to w, or stdout when w
// is nil.
func NewConsolePrinter(w io.Writer) *ConsolePrinter {
	if w == nil {
		w = os.Stdout
	}
	return &ConsolePrinter{w: w}
}

// Print renders one slip to the console.
func (p *ConsolePrinter) Print(ctx context.Context, body string) error {
	if body == "" {
		return fmt.Errorf("printer.ConsolePrinter.Print: %w", ErrEmptyBody)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("printer.ConsolePrinter.Print: canceled before writing: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := fmt.Fprintf(p.w, "%s\n- - - - - - - - ✂ - - - - - - - -\n", body); err != nil {
		return fmt.Errorf("printer.ConsolePrinter.Print: write failed: %w", err)
	}
	return nil
}

// Describe names the backend for health reporting.
func (p *ConsolePrinter) Describe() string {
	return "console"
}

// MockPrinter implements SlipPrinter and records jobs without touching any
// device (for tests).
type MockPrinter struct {
	mu   sync.Mutex
	Jobs []string
	Err  error
}

// NewMockPrinter creates a mock printer.
func NewMockPrinter() *MockPrinter {
	return &MockPrinter{}
}

// Print records the job, or returns the configured error without recording.
func (m *MockPrinter) Print(ctx context.Context, body string) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Jobs = append(m.Jobs, body)
	return nil
}

// Describe names the backend for health reporting.
func (m *MockPrinter) Describe() string {
	return "mock"
}
