package printer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

// nopWriteCloser adapts a buffer into the client's device slot.
type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// failWriter fails every write with a fixed error.
type failWriter struct {
	err    error
	writes int
}

func (f *failWriter) Write(p []byte) (int, error) {
	f.writes++
	return 0, f.err
}

func newBufferClient(buf *bytes.Buffer) *Client {
	return &Client{
		dev:        nopWriteCloser{buf},
		devicePath: "/dev/test",
		feedLines:  DefaultFeedLines,
		cut:        true,
	}
}

func TestClientPrintWritesBodyExactlyOnce(t *testing.T) {
	var buf bytes.Buffer
	c := newBufferClient(&buf)

	const body = "AS ABOVE, SO BELOW, SO THE RIBBON STAINS"
	if err := c.Print(context.Background(), body); err != nil {
		t.Fatalf("Print() error = %v", err)
	}

	if got := bytes.Count(buf.Bytes(), []byte(body)); got != 1 {
		t.Errorf("device received the body %d times, want exactly 1", got)
	}
	if !bytes.Contains(buf.Bytes(), []byte(body+"\n")) {
		t.Error("device output missing the newline terminator after the body")
	}
}

func TestClientPrintKeepsExistingNewline(t *testing.T) {
	var buf bytes.Buffer
	c := newBufferClient(&buf)

	const body = "line one\nline two\n"
	if err := c.Print(context.Background(), body); err != nil {
		t.Fatalf("Print() error = %v", err)
	}
	if bytes.Contains(buf.Bytes(), []byte(body+"\n")) {
		t.Error("device output doubled the trailing newline")
	}
	if !bytes.Contains(buf.Bytes(), []byte(body)) {
		t.Error("device output missing the body")
	}
}

func TestClientPrintEmptyBody(t *testing.T) {
	var buf bytes.Buffer
	c := newBufferClient(&buf)

	err := c.Print(context.Background(), "")
	if !errors.Is(err, ErrEmptyBody) {
		t.Errorf("Print(\"\") error = %v, want %v", err, ErrEmptyBody)
	}
	if buf.Len() != 0 {
		t.Error("empty body still reached the device")
	}
}

func TestClientPrintNotInitialized(t *testing.T) {
	c := &Client{}
	err := c.Print(context.Background(), "anything")
	if !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Print() on zero client error = %v, want %v", err, ErrNotInitialized)
	}
}

func TestClientPrintCanceledContext(t *testing.T) {
	var buf bytes.Buffer
	c := newBufferClient(&buf)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Print(ctx, "never printed")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Print() with canceled context error = %v, want context.Canceled", err)
	}
	if buf.Len() != 0 {
		t.Error("canceled print still reached the device")
	}
}

func TestClientPrintDeviceWriteError(t *testing.T) {
	devErr := errors.New("paper jam")
	c := &Client{
		dev:        nopWriteCloser{&failWriter{err: devErr}},
		devicePath: "/dev/test",
		feedLines:  1,
		cut:        true,
	}

	err := c.Print(context.Background(), "doomed slip")
	if !errors.Is(err, devErr) {
		t.Errorf("Print() error = %v, want wrapped %v", err, devErr)
	}
}

func TestErrWriterLatchesFirstError(t *testing.T) {
	devErr := errors.New("unplugged")
	fw := &failWriter{err: devErr}
	ew := &errWriter{w: fw}

	if _, err := ew.Write([]byte("a")); !errors.Is(err, devErr) {
		t.Fatalf("first Write() error = %v, want %v", err, devErr)
	}
	if _, err := ew.Write([]byte("b")); !errors.Is(err, devErr) {
		t.Fatalf("second Write() error = %v, want %v", err, devErr)
	}
	if fw.writes != 1 {
		t.Errorf("underlying writer called %d times after first error, want 1", fw.writes)
	}
}

func TestConsolePrinter(t *testing.T) {
	var buf bytes.Buffer
	p := NewConsolePrinter(&buf)

	const body = "RECEIPT FOR ONE (1) HAUNTING"
	if err := p.Print(context.Background(), body); err != nil {
		t.Fatalf("Print() error = %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, body+"\n") {
		t.Errorf("console output = %q, want it to start with the body", out)
	}
	if !strings.Contains(out, "✂") {
		t.Error("console output missing the tear-off marker")
	}
}

func TestConsolePrinterEmptyBody(t *testing.T) {
	p := NewConsolePrinter(&bytes.Buffer{})
	if err := p.Print(context.Background(), ""); !errors.Is(err, ErrEmptyBody) {
		t.Errorf("Print(\"\") error = %v, want %v", err, ErrEmptyBody)
	}
}

func TestMockPrinter(t *testing.T) {
	m := NewMockPrinter()

	if err := m.Print(context.Background(), "slip one"); err != nil {
		t.Fatalf("Print() error = %v", err)
	}
	if len(m.Jobs) != 1 || m.Jobs[0] != "slip one" {
		t.Errorf("Jobs = %v, want [slip one]", m.Jobs)
	}

	m.Err = errors.New("offline")
	if err := m.Print(context.Background(), "slip two"); err == nil {
		t.Error("expected configured error, got nil")
	}
	if len(m.Jobs) != 1 {
		t.Errorf("failed print still recorded a job: %v", m.Jobs)
	}
}

func TestDescribe(t *testing.T) {
	c := &Client{devicePath: "/dev/usb/lp0"}
	if c.Describe() != "escpos:/dev/usb/lp0" {
		t.Errorf("Client.Describe() = %q", c.Describe())
	}
	if NewConsolePrinter(nil).Describe() != "console" {
		t.Errorf("ConsolePrinter.Describe() = %q", NewConsolePrinter(nil).Describe())
	}
	if NewMockPrinter().Describe() != "mock" {
		t.Errorf("MockPrinter.Describe() = %q", NewMockPrinter().Describe())
	}
}
