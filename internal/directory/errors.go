package directory

import (
	"errors"
	"fmt"
)

// ErrorKind classifies directory service failures. The reconciler and
// orchestrator branch on it.
type ErrorKind int

const (
	// KindOperation means the service received and rejected the request
	// (malformed input, not found, quota). Fatal for the attempt.
	KindOperation ErrorKind = iota
	// KindAuth means the request never reached the service: credential
	// resolution or dispatch failed. Triggers the login recovery flow.
	KindAuth
)

// Error wraps a failed directory call with the operation name and the
// tunnel or device id involved. Token values never appear here: the
// wrapped SDK errors carry request metadata, not response bodies.
type Error struct {
	Kind     ErrorKind
	Op       string
	TunnelID string
	DeviceID string
	Err      error
}

func (e *Error) Error() string {
	target := e.TunnelID
	if target == "" {
		target = e.DeviceID
	}
	if target == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, target, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsAuth reports whether err (anywhere in its chain) is a directory
// authentication/dispatch failure.
func IsAuth(err error) bool {
	var de *Error
	return errors.As(err, &de) && de.Kind == KindAuth
}
