package util

import (
	"fmt"
	"strings"
)

// ErrEmptyDeviceID is returned for empty or whitespace-only device ids.
// It is a distinct error so callers can map it to the dedicated
// "please enter a device ID" user message.
var ErrEmptyDeviceID = fmt.Errorf("device id cannot be empty")

// ValidateDeviceID checks a device identifier supplied by the user.
// Device ids are opaque to us beyond being non-empty, free of whitespace,
// and reasonably short.
func ValidateDeviceID(id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrEmptyDeviceID
	}
	if strings.ContainsAny(id, " \t\n") {
		return fmt.Errorf("device id must not contain whitespace")
	}
	if len(id) > MaxDeviceIDLength {
		return fmt.Errorf("device id exceeds %d characters", MaxDeviceIDLength)
	}
	return nil
}
