// Package api provides the HTTP control surface and the composition root for
// gritd. Run wires the catalog, generator, printer, journal, button and
// ambient schedules together and serves the control endpoints until the
// process is told to stop. RunOnce drives a single trigger for command-line
// use.
package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/mdp/qrterminal/v3"
	"github.com/robfig/cron/v3"

	"github.com/spoolghost/gritd/internal/alerts"
	"github.com/spoolghost/gritd/internal/button"
	"github.com/spoolghost/gritd/internal/catalog"
	"github.com/spoolghost/gritd/internal/genai"
	"github.com/spoolghost/gritd/internal/lockfile"
	"github.com/spoolghost/gritd/internal/metrics"
	"github.com/spoolghost/gritd/internal/models"
	"github.com/spoolghost/gritd/internal/press"
	"github.com/spoolghost/gritd/internal/printer"
	"github.com/spoolghost/gritd/internal/scheduler"
	"github.com/spoolghost/gritd/internal/store"
)

const (
	// DefaultAddr is the default listen address for the control API.
	DefaultAddr = ":8080"
	// DefaultShutdownTimeout bounds graceful HTTP shutdown.
	DefaultShutdownTimeout = 10 * time.Second
	// DefaultTriggerTimeout bounds one background trigger (button or
	// ambient): generation plus a slow serial printer, with slack.
	DefaultTriggerTimeout = 2 * time.Minute
)

// Printer backend names accepted by WithPrinterBackend.
const (
	PrinterBackendESCPOS  = "escpos"
	PrinterBackendConsole = "console"
	PrinterBackendMock    = "mock"
)

// Generation backend names accepted by WithGenAIBackend.
const (
	GenAIBackendOpenAI = "openai"
	GenAIBackendGemini = "gemini"
)

// Opts holds configuration options for the API server.
type Opts struct {
	Addr           string
	StateDir       string
	PrinterBackend string
	GenAIBackend   string
	ButtonPin      string
	QRBaseURL      string
	Ambient        []string
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address for the control API.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithStateDir sets the directory holding the instance lock. Empty disables
// locking.
func WithStateDir(dir string) Option {
	return func(o *Opts) { o.StateDir = dir }
}

// WithPrinterBackend selects the printer backend (escpos, console or mock).
func WithPrinterBackend(backend string) Option {
	return func(o *Opts) { o.PrinterBackend = backend }
}

// WithGenAIBackend selects the generation backend (openai or gemini).
func WithGenAIBackend(backend string) Option {
	return func(o *Opts) { o.GenAIBackend = backend }
}

// WithButtonPin enables the physical button watcher on the named GPIO pin.
func WithButtonPin(pin string) Option {
	return func(o *Opts) { o.ButtonPin = pin }
}

// WithQRBaseURL renders a QR code of the trigger endpoint at startup, for
// taping to the machine.
func WithQRBaseURL(baseURL string) Option {
	return func(o *Opts) { o.QRBaseURL = baseURL }
}

// WithAmbientSchedule registers a cron expression that makes the machine
// print unprompted. May be given more than once.
func WithAmbientSchedule(expr string) Option {
	return func(o *Opts) { o.Ambient = append(o.Ambient, expr) }
}

// Server handles the control API endpoints.
type Server struct {
	press   *press.Press
	catalog *catalog.Catalog
	journal store.Store
	metrics *metrics.Metrics
	sched   *scheduler.Scheduler
	started time.Time

	mu      sync.Mutex
	ambient map[cron.EntryID]models.AmbientJob
}

// NewServer creates a control API server over an assembled pipeline.
func NewServer(p *press.Press, cat *catalog.Catalog, journal store.Store, m *metrics.Metrics, sched *scheduler.Scheduler) *Server {
	return &Server{
		press:   p,
		catalog: cat,
		journal: journal,
		metrics: m,
		sched:   sched,
		started: time.Now(),
		ambient: make(map[cron.EntryID]models.AmbientJob),
	}
}

// routes builds the request mux for the control API.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/print", s.printHandler)
	mux.HandleFunc("/categories", s.categoriesHandler)
	mux.HandleFunc("/journal", s.journalHandler)
	mux.HandleFunc("/ambient", s.ambientHandler)
	mux.HandleFunc("/ambient/", s.ambientHandler)
	mux.HandleFunc("/health", s.healthHandler)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics.Handler())
	}
	return mux
}

// Run assembles the full installation and serves the control API until
// SIGINT or SIGTERM. The option slices configure the printer, journal store
// and generation backend the same way the command-line flags hand them over.
func Run(printerOpts []printer.Option, storeOpts []store.Option, genaiOpts []genai.Option, apiOpts []Option) error {
	cfg := Opts{Addr: DefaultAddr}
	for _, opt := range apiOpts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}

	if cfg.StateDir != "" {
		lock, err := lockfile.Acquire(cfg.StateDir)
		if err != nil {
			return fmt.Errorf("failed to lock state directory: %w", err)
		}
		defer lock.Release()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	journal, err := buildStore(storeOpts)
	if err != nil {
		return err
	}
	defer journal.Close()

	generator, err := buildGenerator(ctx, cfg.GenAIBackend, genaiOpts)
	if err != nil {
		return err
	}
	if closer, ok := generator.(io.Closer); ok {
		defer closer.Close()
	}

	device, err := buildPrinter(cfg.PrinterBackend, printerOpts)
	if err != nil {
		return err
	}
	if closer, ok := device.(io.Closer); ok {
		defer closer.Close()
	}

	cat := catalog.New()
	m := metrics.New()

	pressOpts := []press.Option{press.WithJournal(journal), press.WithMetrics(m)}
	if os.Getenv("TWILIO_ACCOUNT_SID") != "" {
		notifier, alertErr := alerts.NewTwilioNotifier()
		if alertErr != nil {
			slog.Warn("api.Run: failure alerts disabled", "error", alertErr)
		} else {
			pressOpts = append(pressOpts, press.WithNotifier(notifier))
			slog.Info("api.Run: failure alerts enabled")
		}
	}

	pr, err := press.New(cat, generator, device, pressOpts...)
	if err != nil {
		return err
	}

	sched := scheduler.NewScheduler()
	defer sched.Stop()

	srv := NewServer(pr, cat, journal, m, sched)

	for _, expr := range cfg.Ambient {
		if _, err := srv.registerAmbient(models.AmbientRequest{Schedule: expr}); err != nil {
			return fmt.Errorf("invalid ambient schedule %q: %w", expr, err)
		}
	}

	if cfg.ButtonPin != "" {
		watcher, btnErr := button.NewWatcher(button.WithPin(cfg.ButtonPin))
		if btnErr != nil {
			// Normal on non-Pi hardware; the API and schedules still work.
			slog.Warn("api.Run: button disabled", "pin", cfg.ButtonPin, "error", btnErr)
		} else {
			watcher.Start(ctx)
			defer watcher.Stop()
			go srv.consumePresses(watcher.Presses())
		}
	}

	slog.Info("api.Run: gritd assembled",
		"generator", pr.Generator(), "printer", pr.Printer(), "addr", cfg.Addr,
		"ambient_schedules", len(cfg.Ambient))

	httpSrv := &http.Server{Addr: cfg.Addr, Handler: srv.routes()}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("api.Run: control API listening", "addr", cfg.Addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	if cfg.QRBaseURL != "" {
		printTriggerQR(cfg.QRBaseURL)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-errCh:
		return fmt.Errorf("control API server failed: %w", err)
	case sig := <-stop:
		slog.Info("api.Run: signal received, shutting down", "signal", sig.String())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("api.Run: shutdown incomplete", "error", err)
		return err
	}
	slog.Info("api.Run: shutdown complete")
	return nil
}

// RunOnce drives one trigger through the pipeline and returns when the slip
// has printed. No control API, no button, no schedules, no instance lock; it
// is the command-line path and exits with the pipeline's verdict.
func RunOnce(printerOpts []printer.Option, storeOpts []store.Option, genaiOpts []genai.Option, apiOpts []Option, category string, temperature float64) error {
	var cfg Opts
	for _, opt := range apiOpts {
		opt(&cfg)
	}

	ctx, cancel := context.WithTimeout(context.Background(), DefaultTriggerTimeout)
	defer cancel()

	journal, err := buildStore(storeOpts)
	if err != nil {
		return err
	}
	defer journal.Close()

	generator, err := buildGenerator(ctx, cfg.GenAIBackend, genaiOpts)
	if err != nil {
		return err
	}
	if closer, ok := generator.(io.Closer); ok {
		defer closer.Close()
	}

	device, err := buildPrinter(cfg.PrinterBackend, printerOpts)
	if err != nil {
		return err
	}
	if closer, ok := device.(io.Closer); ok {
		defer closer.Close()
	}

	pr, err := press.New(catalog.New(), generator, device, press.WithJournal(journal))
	if err != nil {
		return err
	}

	slip, err := pr.Trigger(ctx, press.Request{
		Category:    category,
		Temperature: temperature,
		Source:      models.SourceCLI,
	})
	if err != nil {
		return err
	}

	slog.Info("api.RunOnce: slip printed", "slip_id", slip.ID, "category", slip.Category, "chars", slip.Chars())
	return nil
}

// buildStore constructs the journal store from the configured options,
// sniffing the DSN to pick the backend. No DSN means the journal lives and
// dies with the process.
func buildStore(storeOpts []store.Option) (store.Store, error) {
	var cfg store.Opts
	for _, opt := range storeOpts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		slog.Info("api.buildStore: no DSN configured, journal kept in memory")
		return store.NewInMemoryStore(), nil
	}
	switch store.DetectDSNType(cfg.DSN) {
	case "postgres":
		slog.Debug("api.buildStore: using PostgreSQL journal", "dsn_set", true)
		return store.NewPostgresStore(storeOpts...)
	default:
		slog.Debug("api.buildStore: using SQLite journal", "path", cfg.DSN)
		return store.NewSQLiteStore(storeOpts...)
	}
}

// buildGenerator constructs the generation backend.
func buildGenerator(ctx context.Context, backend string, genaiOpts []genai.Option) (press.Generator, error) {
	switch backend {
	case "", GenAIBackendOpenAI:
		return genai.NewClient(genaiOpts...)
	case GenAIBackendGemini:
		return genai.NewGeminiClient(ctx, genaiOpts...)
	default:
		return nil, fmt.Errorf("unknown generation backend %q", backend)
	}
}

// buildPrinter constructs the printer backend.
func buildPrinter(backend string, printerOpts []printer.Option) (printer.SlipPrinter, error) {
	switch backend {
	case "", PrinterBackendESCPOS:
		return printer.NewClient(printerOpts...)
	case PrinterBackendConsole:
		return printer.NewConsolePrinter(nil), nil
	case PrinterBackendMock:
		return printer.NewMockPrinter(), nil
	default:
		return nil, fmt.Errorf("unknown printer backend %q", backend)
	}
}

// printTriggerQR renders the trigger URL as a terminal QR code, sized for
// taping a photo of it next to the machine.
func printTriggerQR(baseURL string) {
	url := strings.TrimRight(baseURL, "/") + "/print"
	fmt.Fprintf(os.Stdout, "\nTrigger endpoint (POST): %s\n", url)
	qrterminal.GenerateHalfBlock(url, qrterminal.L, os.Stdout)
}

// consumePresses feeds button presses into the pipeline until the press
// channel closes. A press during an in-flight slip is dropped, not queued.
func (s *Server) consumePresses(presses <-chan models.ButtonPress) {
	for p := range presses {
		ctx, cancel := context.WithTimeout(context.Background(), DefaultTriggerTimeout)
		if _, err := s.press.Trigger(ctx, press.Request{Source: models.SourceButton}); err != nil {
			if isBusy(err) {
				slog.Info("Server.consumePresses: press ignored, slip in flight", "pin", p.Pin)
			} else {
				slog.Error("Server.consumePresses: trigger failed", "pin", p.Pin, "error", err)
			}
		}
		cancel()
	}
}
