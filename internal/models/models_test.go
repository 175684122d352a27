package models

import (
	"errors"
	"testing"
)

func TestIsValidTriggerSource(t *testing.T) {
	tests := []struct {
		name   string
		source TriggerSource
		want   bool
	}{
		{"button source", SourceButton, true},
		{"api source", SourceAPI, true},
		{"cron source", SourceCron, true},
		{"cli source", SourceCLI, true},
		{"empty source", TriggerSource(""), false},
		{"unknown source", TriggerSource("carrier-pigeon"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidTriggerSource(tt.source); got != tt.want {
				t.Errorf("IsValidTriggerSource(%q) = %v, want %v", tt.source, got, tt.want)
			}
		})
	}
}

func TestIsValidSlipStatus(t *testing.T) {
	tests := []struct {
		name   string
		status SlipStatus
		want   bool
	}{
		{"printed", SlipStatusPrinted, true},
		{"generation failed", SlipStatusGenerationFailed, true},
		{"print failed", SlipStatusPrintFailed, true},
		{"empty status", SlipStatus(""), false},
		{"unknown status", SlipStatus("queued"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidSlipStatus(tt.status); got != tt.want {
				t.Errorf("IsValidSlipStatus(%q) = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestPrintRequestValidate(t *testing.T) {
	longName := make([]byte, MaxCategoryNameLength+1)
	for i := range longName {
		longName[i] = 'x'
	}

	tests := []struct {
		name    string
		request PrintRequest
		wantErr error
	}{
		{"empty request is valid", PrintRequest{}, nil},
		{"category only", PrintRequest{Category: "paranoid_prophecy"}, nil},
		{"temperature in range", PrintRequest{Temperature: 1.3}, nil},
		{"temperature at upper bound", PrintRequest{Temperature: 2.0}, nil},
		{"negative temperature", PrintRequest{Temperature: -0.5}, ErrInvalidTemperature},
		{"temperature too high", PrintRequest{Temperature: 2.5}, ErrInvalidTemperature},
		{"category too long", PrintRequest{Category: string(longName)}, ErrCategoryNameTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.request.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAmbientRequestValidate(t *testing.T) {
	longSchedule := make([]byte, MaxScheduleLength+1)
	for i := range longSchedule {
		longSchedule[i] = '*'
	}

	tests := []struct {
		name    string
		request AmbientRequest
		wantErr error
	}{
		{"schedule only", AmbientRequest{Schedule: "0 * * * *"}, nil},
		{"schedule with category", AmbientRequest{Schedule: "*/30 * * * *", Category: "actual_receipt"}, nil},
		{"missing schedule", AmbientRequest{Category: "confession"}, ErrEmptySchedule},
		{"schedule too long", AmbientRequest{Schedule: string(longSchedule)}, ErrScheduleTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.request.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSlipChars(t *testing.T) {
	slip := Slip{Body: "VOID WHERE PROHIBITED"}
	if got := slip.Chars(); got != 21 {
		t.Errorf("Chars() = %d, want 21", got)
	}

	empty := Slip{}
	if got := empty.Chars(); got != 0 {
		t.Errorf("Chars() on empty slip = %d, want 0", got)
	}
}

func TestAPIResponseBuilders(t *testing.T) {
	success := Success(PrintResult{Category: "rituals", Chars: 42})
	if success.Status != string(APIStatusOK) {
		t.Errorf("Success status = %q, want %q", success.Status, APIStatusOK)
	}
	if success.Result == nil {
		t.Error("Success should carry result data")
	}

	withMessage := SuccessWithMessage("slip printed", nil)
	if withMessage.Message != "slip printed" {
		t.Errorf("SuccessWithMessage message = %q, want %q", withMessage.Message, "slip printed")
	}

	errResp := Error("printer unreachable")
	if errResp.Status != string(APIStatusError) {
		t.Errorf("Error status = %q, want %q", errResp.Status, APIStatusError)
	}
	if errResp.Message != "printer unreachable" {
		t.Errorf("Error message = %q, want %q", errResp.Message, "printer unreachable")
	}

	busy := Busy("print in progress")
	if busy.Status != string(APIStatusBusy) {
		t.Errorf("Busy status = %q, want %q", busy.Status, APIStatusBusy)
	}

	scheduled := ScheduledWithMessage("ambient job registered", AmbientJob{ID: 3})
	if scheduled.Status != string(APIStatusScheduled) {
		t.Errorf("ScheduledWithMessage status = %q, want %q", scheduled.Status, APIStatusScheduled)
	}
}
