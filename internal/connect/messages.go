package connect

import (
	"errors"

	"github.com/rosterloh/tunnel-manager/internal/directory"
	"github.com/rosterloh/tunnel-manager/internal/reconcile"
	"github.com/rosterloh/tunnel-manager/internal/security"
	"github.com/rosterloh/tunnel-manager/internal/util"
)

// UserMessage converts a connect/disconnect error into the small closed
// set of user-facing messages. Authentication outcomes get a distinct
// "try again" message because the login flow has already run; everything
// else shows the underlying operation's message, redacted.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, util.ErrEmptyDeviceID):
		return "Please enter a device ID"
	case errors.Is(err, reconcile.ErrRetryAfterLogin):
		return "Authentication required. Please try connecting again."
	case directory.IsAuth(err):
		return "Authentication required. Please try connecting again."
	case errors.Is(err, ErrSessionActive):
		return "Already connected. Disconnect before starting a new session."
	case errors.Is(err, ErrNoSession):
		return "Not connected."
	default:
		return "Failed to connect: " + security.UserMessage(err, true)
	}
}

// Retryable reports whether the error means a retry of the same connect
// call is expected to succeed now that recovery has run.
func Retryable(err error) bool {
	return errors.Is(err, reconcile.ErrRetryAfterLogin)
}
