package util

import (
	"strings"
	"testing"
)

func TestGenerateRandomID(t *testing.T) {
	tests := []struct {
		name       string
		prefix     string
		hexLength  int
		wantPrefix string
		wantLength int // expected total length: prefix + hexLength
	}{
		{
			name:       "slip ID format",
			prefix:     "slip_",
			hexLength:  12,
			wantPrefix: "slip_",
			wantLength: 17, // 5 + 12
		},
		{
			name:       "custom prefix",
			prefix:     "test_",
			hexLength:  16,
			wantPrefix: "test_",
			wantLength: 21, // 5 + 16
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GenerateRandomID(tt.prefix, tt.hexLength)

			if !strings.HasPrefix(got, tt.wantPrefix) {
				t.Errorf("GenerateRandomID() = %v, want prefix %v", got, tt.wantPrefix)
			}

			if len(got) != tt.wantLength {
				t.Errorf("GenerateRandomID() length = %v, want %v", len(got), tt.wantLength)
			}

			// Check that the hex part is valid
			hexPart := got[len(tt.wantPrefix):]
			if !isValidHex(hexPart) {
				t.Errorf("GenerateRandomID() hex part = %v is not valid hex", hexPart)
			}
		})
	}
}

func TestGenerateRandomHex(t *testing.T) {
	tests := []struct {
		name   string
		length int
		want   int
	}{
		{"zero length", 0, 0},
		{"negative length", -1, 0},
		{"small length", 8, 8},
		{"medium length", 16, 16},
		{"large length", 64, 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GenerateRandomHex(tt.length)

			if len(got) != tt.want {
				t.Errorf("GenerateRandomHex() length = %v, want %v", len(got), tt.want)
			}

			if tt.want > 0 && !isValidHex(got) {
				t.Errorf("GenerateRandomHex() = %v is not valid hex", got)
			}
		})
	}
}

func TestGenerateSlipID(t *testing.T) {
	got := GenerateSlipID()

	if !strings.HasPrefix(got, "slip_") {
		t.Errorf("GenerateSlipID() = %v, want prefix slip_", got)
	}

	if len(got) != 17 { // "slip_" + 12 hex chars
		t.Errorf("GenerateSlipID() length = %v, want 17", len(got))
	}

	hexPart := got[5:] // Remove "slip_" prefix
	if !isValidHex(hexPart) {
		t.Errorf("GenerateSlipID() hex part = %v is not valid hex", hexPart)
	}
}

func TestRandomIDUniqueness(t *testing.T) {
	const iterations = 1000
	seen := make(map[string]bool)

	for i := 0; i < iterations; i++ {
		id := GenerateRandomID("test_", 16)
		if seen[id] {
			t.Errorf("GenerateRandomID() generated duplicate: %v", id)
		}
		seen[id] = true
	}
}

// Helper function to validate hex strings
func isValidHex(s string) bool {
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}
