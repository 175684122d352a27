// Package alerts notifies the operator over SMS when the installation fails.
// The machine lives in a gallery; nobody is watching a terminal, so a failed
// generation or a jammed printer has to reach a phone.
package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// DefaultCooldown is the minimum gap between two alert messages. A dead
// printer fails every trigger; without a window the operator's phone would
// buzz once per button press.
const DefaultCooldown = 15 * time.Minute

// Notifier delivers failure notices to whoever tends the machine.
type Notifier interface {
	// NotifyFailure reports that the named pipeline stage failed with cause.
	// Implementations may coalesce repeated failures.
	NotifyFailure(ctx context.Context, stage string, cause error) error
}

// Opts holds configuration options for the Twilio notifier.
type Opts struct {
	AccountSID string
	AuthToken  string
	From       string
	To         string
	Cooldown   time.Duration
}

// Option defines a configuration option for the Twilio notifier.
type Option func(*Opts)

// WithAccountSID sets the Twilio account SID.
func WithAccountSID(sid string) Option {
	return func(o *Opts) { o.AccountSID = sid }
}

// WithAuthToken sets the Twilio auth token.
func WithAuthToken(token string) Option {
	return func(o *Opts) { o.AuthToken = token }
}

// WithFrom sets the sending phone number.
func WithFrom(from string) Option {
	return func(o *Opts) { o.From = from }
}

// WithTo sets the operator's phone number.
func WithTo(to string) Option {
	return func(o *Opts) { o.To = to }
}

// WithCooldown overrides the minimum gap between alert messages.
func WithCooldown(d time.Duration) Option {
	return func(o *Opts) { o.Cooldown = d }
}

// smsSender is the piece of the Twilio client the notifier actually uses.
type smsSender interface {
	send(params *twilioApi.CreateMessageParams) error
}

type twilioSender struct {
	client *twilio.RestClient
}

func (s *twilioSender) send(params *twilioApi.CreateMessageParams) error {
	_, err := s.client.Api.CreateMessage(params)
	return err
}

// TwilioNotifier sends failure notices as plain SMS through Twilio.
type TwilioNotifier struct {
	sender   smsSender
	from     string
	to       string
	cooldown time.Duration

	mu       sync.Mutex
	lastSent time.Time
	now      func() time.Time
}

// NewTwilioNotifier creates a Twilio-backed notifier. Credentials fall back
// to the TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN, TWILIO_FROM_NUMBER and
// ALERT_TO_NUMBER environment variables when not provided via options.
func NewTwilioNotifier(opts ...Option) (*TwilioNotifier, error) {
	cfg := Opts{Cooldown: DefaultCooldown}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.AccountSID == "" {
		cfg.AccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	}
	if cfg.AuthToken == "" {
		cfg.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	}
	if cfg.From == "" {
		cfg.From = os.Getenv("TWILIO_FROM_NUMBER")
	}
	if cfg.To == "" {
		cfg.To = os.Getenv("ALERT_TO_NUMBER")
	}
	slog.Debug("Alerts.NewTwilioNotifier: config loaded",
		"accountSID_set", cfg.AccountSID != "",
		"authToken_set", cfg.AuthToken != "",
		"from_set", cfg.From != "",
		"to_set", cfg.To != "")

	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("account SID and auth token must be provided")
	}
	if cfg.From == "" || cfg.To == "" {
		return nil, fmt.Errorf("from and to numbers must be provided")
	}

	client := twilio.NewRestClientWithParams(
		twilio.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		},
	)

	return &TwilioNotifier{
		sender:   &twilioSender{client: client},
		from:     cfg.From,
		to:       cfg.To,
		cooldown: cfg.Cooldown,
		now:      time.Now,
	}, nil
}

// NotifyFailure sends one SMS describing the failure. Failures inside the
// cooldown window are dropped: a failed send still consumes the window, so a
// Twilio outage never turns into a retry storm on top of a printer outage.
func (n *TwilioNotifier) NotifyFailure(ctx context.Context, stage string, cause error) error {
	n.mu.Lock()
	if n.now().Sub(n.lastSent) < n.cooldown {
		n.mu.Unlock()
		slog.Debug("Alerts.NotifyFailure: within cooldown, dropping alert", "stage", stage, "error", cause)
		return nil
	}
	n.lastSent = n.now()
	n.mu.Unlock()

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(n.to)
	params.SetFrom(n.from)
	params.SetBody(fmt.Sprintf("gritd: %s failed: %v", stage, cause))

	if err := n.sender.send(params); err != nil {
		slog.Error("Alerts.NotifyFailure: failed to send SMS", "stage", stage, "to", n.to, "error", err)
		return fmt.Errorf("failed to send alert for %s failure: %w", stage, err)
	}

	slog.Info("Alerts.NotifyFailure: alert sent", "stage", stage, "to", n.to)
	return nil
}

// FailureAlert is one recorded call to a MockNotifier.
type FailureAlert struct {
	Stage string
	Cause error
}

// MockNotifier implements Notifier for testing.
type MockNotifier struct {
	Alerts []FailureAlert
	Err    error
}

// NewMockNotifier creates a mock notifier.
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{Alerts: []FailureAlert{}}
}

// NotifyFailure records the alert, or returns the configured error.
func (m *MockNotifier) NotifyFailure(ctx context.Context, stage string, cause error) error {
	if m.Err != nil {
		return m.Err
	}
	m.Alerts = append(m.Alerts, FailureAlert{Stage: stage, Cause: cause})
	return nil
}
