// Package reconcile converges remote tunnel state for one device onto a
// single usable tunnel.
//
// The directory service keeps historical tunnel records per device, but
// only one should be live. Reconciliation favors reuse over creation:
// an existing open tunnel keeps its routing and only gets fresh tokens,
// while stale records passed over on the way to it are garbage-collected.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rosterloh/tunnel-manager/internal/directory"
	"github.com/rosterloh/tunnel-manager/internal/model"
)

// ErrRetryAfterLogin signals that the directory rejected our credentials,
// the login flow has already run successfully, and the caller should
// retry the whole operation. It is deliberately not retried internally.
var ErrRetryAfterLogin = errors.New("login successful, please try again")

// Recoverer runs the external re-authentication flow.
type Recoverer interface {
	Recover(ctx context.Context) error
}

// Reconciler determines the single tunnel that should be active for a
// device and returns a fresh source token for it.
type Reconciler struct {
	dir      directory.Client
	recovery Recoverer
	services []string
}

// New creates a Reconciler. services is the ordered list of service names
// requested in every open/rotate destination config.
func New(dir directory.Client, recovery Recoverer, services []string) *Reconciler {
	return &Reconciler{dir: dir, recovery: recovery, services: services}
}

// Reconcile lists the device's tunnels and converges them: the first open
// tunnel is reused with rotated tokens, every non-open tunnel scanned
// before it is closed, and a new tunnel is opened only when no open one
// exists. Tunnels listed after the first open one are left untouched;
// the scan stops at the reuse point.
//
// A close failure aborts the attempt rather than continuing with an
// inconsistent view of the device's tunnels.
func (r *Reconciler) Reconcile(ctx context.Context, deviceID string) (model.TunnelCredential, error) {
	tunnels, err := r.dir.ListTunnels(ctx, deviceID)
	if err != nil {
		if directory.IsAuth(err) {
			if rerr := r.recovery.Recover(ctx); rerr != nil {
				return model.TunnelCredential{}, fmt.Errorf("authentication recovery: %w", rerr)
			}
			return model.TunnelCredential{}, ErrRetryAfterLogin
		}
		return model.TunnelCredential{}, fmt.Errorf("reconcile %s: %w", deviceID, err)
	}

	dest := model.DestinationConfig{DeviceID: deviceID, Services: r.services}

	for _, t := range tunnels {
		if t.Status == model.StatusOpen {
			slog.Info("reusing open tunnel", "tunnel", t.TunnelID, "device", deviceID)
			pair, err := r.dir.RotateTokens(ctx, t.TunnelID, dest)
			if err != nil {
				return model.TunnelCredential{}, fmt.Errorf("reconcile %s: %w", deviceID, err)
			}
			return model.TunnelCredential{TunnelID: t.TunnelID, SourceToken: pair.SourceToken}, nil
		}

		slog.Info("closing stale tunnel", "tunnel", t.TunnelID, "device", deviceID, "status", t.Status)
		if err := r.dir.CloseTunnel(ctx, t.TunnelID); err != nil {
			return model.TunnelCredential{}, fmt.Errorf("reconcile %s: %w", deviceID, err)
		}
	}

	if len(tunnels) == 0 {
		slog.Info("no tunnels found", "device", deviceID)
	}
	cred, err := r.dir.OpenTunnel(ctx, dest)
	if err != nil {
		return model.TunnelCredential{}, fmt.Errorf("reconcile %s: %w", deviceID, err)
	}
	slog.Info("opened tunnel", "tunnel", cred.TunnelID, "device", deviceID)
	return cred, nil
}
