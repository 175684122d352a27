// Package util provides utility functions for the gritd application.
package util

import (
	"math/rand/v2"
	"strings"
)

// GenerateRandomID generates a random ID with the specified prefix and hex length.
// The returned ID will be in the format: "{prefix}{hex_string}".
func GenerateRandomID(prefix string, hexLength int) string {
	return prefix + GenerateRandomHex(hexLength)
}

// GenerateRandomHex generates a random hexadecimal string of the specified length.
// Uses math/rand/v2; the IDs are for log correlation, not for cryptographic use.
func GenerateRandomHex(length int) string {
	if length <= 0 {
		return ""
	}

	const hexChars = "0123456789abcdef"
	var builder strings.Builder
	builder.Grow(length)

	for i := 0; i < length; i++ {
		builder.WriteByte(hexChars[rand.IntN(16)])
	}

	return builder.String()
}

// GenerateSlipID generates a unique slip ID with "slip_" prefix.
func GenerateSlipID() string {
	return GenerateRandomID("slip_", 12)
}
