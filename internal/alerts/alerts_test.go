package alerts

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

type fakeSender struct {
	calls  int
	bodies []string
	to     string
	from   string
	err    error
}

func (f *fakeSender) send(params *twilioApi.CreateMessageParams) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	if params.Body != nil {
		f.bodies = append(f.bodies, *params.Body)
	}
	if params.To != nil {
		f.to = *params.To
	}
	if params.From != nil {
		f.from = *params.From
	}
	return nil
}

func newTestNotifier(sender smsSender, cooldown time.Duration, now func() time.Time) *TwilioNotifier {
	return &TwilioNotifier{
		sender:   sender,
		from:     "+15550001111",
		to:       "+15552223333",
		cooldown: cooldown,
		now:      now,
	}
}

func TestNotifyFailureSendsSMS(t *testing.T) {
	fake := &fakeSender{}
	n := newTestNotifier(fake, time.Minute, time.Now)

	err := n.NotifyFailure(context.Background(), "generation", errors.New("model unreachable"))
	if err != nil {
		t.Fatalf("NotifyFailure returned error: %v", err)
	}
	if fake.calls != 1 {
		t.Fatalf("expected 1 send, got %d", fake.calls)
	}
	if fake.to != "+15552223333" || fake.from != "+15550001111" {
		t.Errorf("unexpected addressing: to=%q from=%q", fake.to, fake.from)
	}
	body := fake.bodies[0]
	if !strings.Contains(body, "generation") || !strings.Contains(body, "model unreachable") {
		t.Errorf("alert body missing stage or cause: %q", body)
	}
}

func TestNotifyFailureCooldown(t *testing.T) {
	fake := &fakeSender{}
	now := time.Unix(1000, 0)
	n := newTestNotifier(fake, time.Minute, func() time.Time { return now })

	if err := n.NotifyFailure(context.Background(), "print", errors.New("paper out")); err != nil {
		t.Fatalf("first NotifyFailure returned error: %v", err)
	}
	now = now.Add(30 * time.Second)
	if err := n.NotifyFailure(context.Background(), "print", errors.New("paper out")); err != nil {
		t.Fatalf("cooled-down NotifyFailure returned error: %v", err)
	}
	if fake.calls != 1 {
		t.Fatalf("expected alert within cooldown to be dropped, got %d sends", fake.calls)
	}

	now = now.Add(time.Minute)
	if err := n.NotifyFailure(context.Background(), "print", errors.New("paper out")); err != nil {
		t.Fatalf("post-cooldown NotifyFailure returned error: %v", err)
	}
	if fake.calls != 2 {
		t.Fatalf("expected alert after cooldown to send, got %d sends", fake.calls)
	}
}

func TestNotifyFailureFailedSendConsumesWindow(t *testing.T) {
	fake := &fakeSender{err: errors.New("twilio down")}
	now := time.Unix(1000, 0)
	n := newTestNotifier(fake, time.Minute, func() time.Time { return now })

	if err := n.NotifyFailure(context.Background(), "print", errors.New("paper out")); err == nil {
		t.Fatal("expected error from failed send")
	}
	now = now.Add(time.Second)
	if err := n.NotifyFailure(context.Background(), "print", errors.New("paper out")); err != nil {
		t.Fatalf("expected dropped alert inside window, got error: %v", err)
	}
	if fake.calls != 1 {
		t.Fatalf("expected failed send to consume the window, got %d sends", fake.calls)
	}
}

func TestNotifyFailureSendError(t *testing.T) {
	fake := &fakeSender{err: errors.New("twilio down")}
	n := newTestNotifier(fake, time.Minute, time.Now)

	err := n.NotifyFailure(context.Background(), "generation", errors.New("boom"))
	if err == nil {
		t.Fatal("expected error from failed send")
	}
	if !strings.Contains(err.Error(), "failed to send alert") {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestNewTwilioNotifierMissingCredentials(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "")
	t.Setenv("TWILIO_AUTH_TOKEN", "")
	t.Setenv("TWILIO_FROM_NUMBER", "")
	t.Setenv("ALERT_TO_NUMBER", "")

	if _, err := NewTwilioNotifier(); err == nil {
		t.Fatal("expected error when credentials are missing")
	}
	if _, err := NewTwilioNotifier(WithAccountSID("AC123"), WithAuthToken("secret")); err == nil {
		t.Fatal("expected error when numbers are missing")
	}
}

func TestNewTwilioNotifierWithOptions(t *testing.T) {
	n, err := NewTwilioNotifier(
		WithAccountSID("AC123"),
		WithAuthToken("secret"),
		WithFrom("+15550001111"),
		WithTo("+15552223333"),
		WithCooldown(5*time.Minute),
	)
	if err != nil {
		t.Fatalf("NewTwilioNotifier returned error: %v", err)
	}
	if n.cooldown != 5*time.Minute {
		t.Errorf("expected cooldown 5m, got %v", n.cooldown)
	}
	if n.from != "+15550001111" || n.to != "+15552223333" {
		t.Errorf("unexpected addressing: from=%q to=%q", n.from, n.to)
	}
}

func TestMockNotifier(t *testing.T) {
	m := NewMockNotifier()
	if err := m.NotifyFailure(context.Background(), "generation", errors.New("boom")); err != nil {
		t.Fatalf("NotifyFailure returned error: %v", err)
	}
	if len(m.Alerts) != 1 || m.Alerts[0].Stage != "generation" {
		t.Fatalf("expected one recorded generation alert, got %+v", m.Alerts)
	}

	m.Err = errors.New("forced")
	if err := m.NotifyFailure(context.Background(), "print", errors.New("boom")); err == nil {
		t.Fatal("expected configured error")
	}
	if len(m.Alerts) != 1 {
		t.Errorf("failed notify must not record, got %d alerts", len(m.Alerts))
	}
}
