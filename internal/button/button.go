// Package button watches a GPIO pin for the physical trigger button. The
// button grounds the pin when pressed, so the watcher arms a pull-up and
// reacts to falling edges, debounced so a mashed button fires once.
package button

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/spoolghost/gritd/internal/models"
)

const (
	// DefaultPin is the header name of the button pin on a Raspberry Pi.
	DefaultPin = "GPIO17"
	// DefaultDebounce is the hold-off after an accepted press. Generous on
	// purpose: gallery visitors lean on the button.
	DefaultDebounce = 2 * time.Second

	// pressChannelSize bounds queued presses between watcher and consumer.
	pressChannelSize = 8
	// edgePollTimeout caps each WaitForEdge so the loop notices shutdown.
	edgePollTimeout = time.Second
)

// Opts holds configuration options for the button watcher.
type Opts struct {
	Pin      string
	Debounce time.Duration
}

// Option defines a configuration option for the button watcher.
type Option func(*Opts)

// WithPin sets the GPIO pin name to watch.
func WithPin(name string) Option {
	return func(o *Opts) { o.Pin = name }
}

// WithDebounce sets the hold-off window after an accepted press.
func WithDebounce(d time.Duration) Option {
	return func(o *Opts) { o.Debounce = d }
}

// edgePin is the slice of gpio.PinIO the watcher uses.
type edgePin interface {
	In(pull gpio.Pull, edge gpio.Edge) error
	WaitForEdge(timeout time.Duration) bool
	Read() gpio.Level
}

// debouncer suppresses presses inside the hold-off window.
type debouncer struct {
	window time.Duration
	last   time.Time
	now    func() time.Time
}

func (d *debouncer) allow() bool {
	t := d.now()
	if !d.last.IsZero() && t.Sub(d.last) < d.window {
		return false
	}
	d.last = t
	return true
}

// Watcher emits debounced button presses from a GPIO pin.
type Watcher struct {
	pin      edgePin
	name     string
	debounce debouncer
	presses  chan models.ButtonPress
	stop     chan struct{}
	wg       sync.WaitGroup
}

// NewWatcher initializes the GPIO host, claims the configured pin and arms it
// for falling edges. It fails when no such pin exists, which is the normal
// case on non-Pi hardware.
func NewWatcher(opts ...Option) (*Watcher, error) {
	cfg := Opts{Pin: DefaultPin, Debounce: DefaultDebounce}
	for _, opt := range opts {
		opt(&cfg)
	}

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize GPIO host: %w", err)
	}
	pin := gpioreg.ByName(cfg.Pin)
	if pin == nil {
		return nil, fmt.Errorf("no GPIO pin named %s", cfg.Pin)
	}
	if err := pin.In(gpio.PullUp, gpio.FallingEdge); err != nil {
		return nil, fmt.Errorf("failed to arm pin %s: %w", cfg.Pin, err)
	}

	slog.Info("Button.NewWatcher: pin armed", "pin", cfg.Pin, "debounce", cfg.Debounce)
	return newWatcher(pin, cfg.Pin, cfg.Debounce), nil
}

// newWatcher wires a watcher over an already-armed pin.
func newWatcher(pin edgePin, name string, debounce time.Duration) *Watcher {
	return &Watcher{
		pin:      pin,
		name:     name,
		debounce: debouncer{window: debounce, now: time.Now},
		presses:  make(chan models.ButtonPress, pressChannelSize),
		stop:     make(chan struct{}),
	}
}

// Start launches the watch loop. Presses arrive on Presses until Stop is
// called or ctx is canceled, after which the channel is closed.
func (w *Watcher) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.watch(ctx)
}

// Presses returns the channel of debounced button presses.
func (w *Watcher) Presses() <-chan models.ButtonPress {
	return w.presses
}

// Stop ends the watch loop and waits for it to exit.
func (w *Watcher) Stop() {
	close(w.stop)
	w.wg.Wait()
}

func (w *Watcher) watch(ctx context.Context) {
	defer w.wg.Done()
	defer close(w.presses)

	for {
		select {
		case <-ctx.Done():
			slog.Debug("Button.watch: context canceled, stopping", "pin", w.name)
			return
		case <-w.stop:
			slog.Debug("Button.watch: stopped", "pin", w.name)
			return
		default:
		}

		if !w.pin.WaitForEdge(edgePollTimeout) {
			continue
		}
		if w.pin.Read() != gpio.Low {
			// Rising edge noise on release; only a held-low pin is a press.
			continue
		}
		if !w.debounce.allow() {
			slog.Debug("Button.watch: press inside debounce window, ignoring", "pin", w.name)
			continue
		}

		press := models.ButtonPress{Pin: w.name, Time: time.Now().Unix()}
		select {
		case w.presses <- press:
			slog.Info("Button.watch: press detected", "pin", w.name)
		default:
			slog.Warn("Button.watch: press channel full, dropping press", "pin", w.name)
		}
	}
}
