// Package press runs the trigger-to-print pipeline: resolve a category,
// generate the slip text, hand it to the printer. One trigger produces at
// most one generation call and at most one device write, in that order, and
// both failures are terminal. The machine stays silent rather than repeating
// itself.
package press

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spoolghost/gritd/internal/alerts"
	"github.com/spoolghost/gritd/internal/catalog"
	"github.com/spoolghost/gritd/internal/metrics"
	"github.com/spoolghost/gritd/internal/models"
	"github.com/spoolghost/gritd/internal/printer"
	"github.com/spoolghost/gritd/internal/store"
	"github.com/spoolghost/gritd/internal/util"
)

// Pipeline stage names used in logs, metrics and alerts.
const (
	StageGeneration = "generation"
	StagePrint      = "print"
)

var (
	// ErrBusy indicates a slip is already in flight. Triggers arriving while
	// the machine is working are rejected, never queued.
	ErrBusy = errors.New("a slip is already in progress")
	// ErrEmptySlip indicates the generator returned nothing printable.
	ErrEmptySlip = errors.New("generator returned an empty slip")
)

// Generator produces slip text from a category instruction.
type Generator interface {
	// Generate returns the completion for the given prompts. A temperature of
	// 0 means the generator's configured default.
	Generate(ctx context.Context, systemPrompt, userPrompt string, temperature float64) (string, error)
	// Describe identifies the backend for logs and health reporting.
	Describe() string
}

// Request describes a single trigger of the installation.
type Request struct {
	// Category names the slip to print. Empty means weighted-random
	// selection; an unknown name falls back to weighted-random.
	Category string
	// Temperature overrides the generator default when greater than zero.
	Temperature float64
	// Source records what fired the trigger.
	Source models.TriggerSource
}

// Opts holds configuration options for the press.
type Opts struct {
	Journal  store.Store
	Metrics  *metrics.Metrics
	Notifier alerts.Notifier
}

// Option defines a configuration option for the press.
type Option func(*Opts)

// WithJournal records attempt metadata to the given store. Slip bodies are
// never written to it.
func WithJournal(s store.Store) Option {
	return func(o *Opts) { o.Journal = s }
}

// WithMetrics publishes pipeline counters and stage timings.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Opts) { o.Metrics = m }
}

// WithNotifier sends operator alerts on pipeline failures.
func WithNotifier(n alerts.Notifier) Option {
	return func(o *Opts) { o.Notifier = n }
}

// Press drives slips from trigger to paper.
type Press struct {
	catalog   *catalog.Catalog
	generator Generator
	printer   printer.SlipPrinter
	journal   store.Store
	metrics   *metrics.Metrics
	notifier  alerts.Notifier

	// busy serializes the whole pipeline. Held for the full trigger so a
	// second press lands on ErrBusy instead of a queue.
	busy sync.Mutex
}

// New creates a press over the given catalog, generator and printer. The
// journal, metrics and notifier are optional.
func New(cat *catalog.Catalog, gen Generator, prn printer.SlipPrinter, opts ...Option) (*Press, error) {
	if cat == nil {
		return nil, fmt.Errorf("press requires a catalog")
	}
	if gen == nil {
		return nil, fmt.Errorf("press requires a generator")
	}
	if prn == nil {
		return nil, fmt.Errorf("press requires a printer")
	}

	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Press{
		catalog:   cat,
		generator: gen,
		printer:   prn,
		journal:   cfg.Journal,
		metrics:   cfg.Metrics,
		notifier:  cfg.Notifier,
	}, nil
}

// Trigger runs one trigger through the pipeline and returns the slip that
// reached the printer. The returned slip is the only copy of the text; the
// journal keeps metadata, never the body.
//
// Exactly one of three things happens: the slip prints, generation fails and
// the printer is never touched, or the single print attempt fails and is not
// repeated. A trigger arriving while another is in flight returns ErrBusy
// with no side effects.
func (p *Press) Trigger(ctx context.Context, req Request) (models.Slip, error) {
	if !p.busy.TryLock() {
		if p.metrics != nil {
			p.metrics.TriggersRejected.Inc()
		}
		slog.Info("Press.Trigger: busy, rejecting trigger", "source", req.Source, "category", req.Category)
		return models.Slip{}, ErrBusy
	}
	defer p.busy.Unlock()

	category := p.catalog.Resolve(req.Category)
	instruction, ok := p.catalog.Instruction(category)
	if !ok {
		// Resolve only hands out catalog members, so this is unreachable
		// short of a catalog bug.
		return models.Slip{}, fmt.Errorf("no instruction for category %s", category)
	}

	slog.Info("Press.Trigger: generating slip",
		"category", category, "source", req.Source, "generator", p.generator.Describe())

	start := time.Now()
	body, err := p.generator.Generate(ctx, p.catalog.SystemPrompt(), instruction, req.Temperature)
	p.observeStage(StageGeneration, time.Since(start))
	if err != nil {
		p.failGeneration(ctx, category, req.Source, err)
		return models.Slip{}, fmt.Errorf("failed to generate slip for category %s: %w", category, err)
	}
	body = strings.TrimSpace(body)
	if body == "" {
		p.failGeneration(ctx, category, req.Source, ErrEmptySlip)
		return models.Slip{}, fmt.Errorf("generation for category %s: %w", category, ErrEmptySlip)
	}

	slip := models.Slip{
		ID:        util.GenerateSlipID(),
		Category:  string(category),
		Body:      body,
		Source:    req.Source,
		CreatedAt: time.Now().UTC(),
	}

	start = time.Now()
	err = p.printer.Print(ctx, slip.Body)
	p.observeStage(StagePrint, time.Since(start))
	if err != nil {
		p.failPrint(ctx, slip, err)
		return models.Slip{}, fmt.Errorf("failed to print slip %s: %w", slip.ID, err)
	}

	p.recordPrinted(slip)
	slog.Info("Press.Trigger: slip printed",
		"slip_id", slip.ID, "category", slip.Category, "chars", slip.Chars(), "source", req.Source)
	return slip, nil
}

// Generator returns the backend description, for health reporting.
func (p *Press) Generator() string {
	return p.generator.Describe()
}

// Printer returns the printer description, for health reporting.
func (p *Press) Printer() string {
	return p.printer.Describe()
}

func (p *Press) failGeneration(ctx context.Context, category catalog.Category, source models.TriggerSource, cause error) {
	slog.Error("Press.Trigger: generation failed", "category", category, "source", source, "error", cause)
	p.journalRecord(models.SlipRecord{
		Category: string(category),
		Source:   source,
		Status:   models.SlipStatusGenerationFailed,
		Time:     time.Now().Unix(),
	})
	if p.metrics != nil {
		p.metrics.GenerationFailures.Inc()
	}
	p.notify(ctx, StageGeneration, cause)
}

func (p *Press) failPrint(ctx context.Context, slip models.Slip, cause error) {
	slog.Error("Press.Trigger: print failed",
		"slip_id", slip.ID, "category", slip.Category, "chars", slip.Chars(), "error", cause)
	p.journalRecord(models.SlipRecord{
		Category: slip.Category,
		Source:   slip.Source,
		Status:   models.SlipStatusPrintFailed,
		Chars:    slip.Chars(),
		Time:     time.Now().Unix(),
	})
	if p.metrics != nil {
		p.metrics.PrintFailures.Inc()
	}
	p.notify(ctx, StagePrint, cause)
}

func (p *Press) recordPrinted(slip models.Slip) {
	p.journalRecord(models.SlipRecord{
		Category: slip.Category,
		Source:   slip.Source,
		Status:   models.SlipStatusPrinted,
		Chars:    slip.Chars(),
		Time:     time.Now().Unix(),
	})
	if p.metrics != nil {
		p.metrics.SlipsPrinted.WithLabelValues(slip.Category, string(slip.Source)).Inc()
	}
}

// journalRecord writes best-effort: a broken journal must not stop the show.
func (p *Press) journalRecord(rec models.SlipRecord) {
	if p.journal == nil {
		return
	}
	if err := p.journal.AddSlipRecord(rec); err != nil {
		slog.Warn("Press.journalRecord: failed to record attempt",
			"category", rec.Category, "status", rec.Status, "error", err)
	}
}

func (p *Press) notify(ctx context.Context, stage string, cause error) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.NotifyFailure(ctx, stage, cause); err != nil {
		slog.Warn("Press.notify: failed to send alert", "stage", stage, "error", err)
	}
}

func (p *Press) observeStage(stage string, d time.Duration) {
	if p.metrics != nil {
		p.metrics.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
	}
}
