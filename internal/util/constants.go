// Package util provides common utility functions and constants used across
// the tunnel-manager application. This package is intentionally kept
// dependency-free (no imports from other internal/* packages) to serve as a
// shared foundation without introducing circular dependencies.
package util

import "time"

const (
	// TokenEnvVar is the environment variable through which the source
	// access token is handed to the localproxy process. Tokens are only
	// ever passed through the environment, never as an argument, so they
	// cannot leak through process listings.
	TokenEnvVar = "AWSIOT_TUNNEL_ACCESS_TOKEN"

	// MaxDeviceIDLength bounds device identifiers accepted from user
	// input. Real device ids are short ("G111070"); the bound only guards
	// against pasting garbage into the input field.
	MaxDeviceIDLength = 64

	// DefaultRefreshSeconds is the fallback interval (in seconds) for the
	// TUI's periodic session status refresh, used when config.yaml has an
	// invalid or missing refresh_seconds value.
	DefaultRefreshSeconds = 3

	// LoginTimeout caps the external `aws sso login` flow. The command
	// opens a browser and waits for the user, so the bound is generous.
	LoginTimeout = 5 * time.Minute
)
