// Package connect composes the directory client, reconciler, recovery
// flow, and proxy launcher into the single public connect/disconnect
// surface used by the CLI and TUI.
package connect

import (
	"context"
	"fmt"
	"time"

	"github.com/rosterloh/tunnel-manager/internal/localproxy"
	"github.com/rosterloh/tunnel-manager/internal/model"
	"github.com/rosterloh/tunnel-manager/internal/util"
)

// Session is an owned handle on an established connection: the running
// proxy process plus the tunnel it is bridging. Whoever holds the session
// is responsible for terminating it.
type Session struct {
	DeviceID  string
	TunnelID  string
	Region    string
	StartedAt time.Time
	Proc      *localproxy.Process
}

// Reconciler yields the tunnel credential the session should use.
type Reconciler interface {
	Reconcile(ctx context.Context, deviceID string) (model.TunnelCredential, error)
}

// ProxyStarter launches the local proxy process.
type ProxyStarter interface {
	Start(ctx context.Context, region, sourceToken string) (*localproxy.Process, error)
}

// Orchestrator performs one connection attempt end to end: validate,
// reconcile, launch. It holds no session state; the Manager does.
type Orchestrator struct {
	reconciler Reconciler
	launcher   ProxyStarter
	region     string
}

// NewOrchestrator wires a reconciler and launcher for the given region.
func NewOrchestrator(rec Reconciler, launcher ProxyStarter, region string) *Orchestrator {
	return &Orchestrator{reconciler: rec, launcher: launcher, region: region}
}

// Connect establishes a session for the device. The steps are strictly
// sequential: reconcile the device's tunnels, then launch the proxy with
// the rotated source token. Repeated calls converge on one open tunnel at
// the directory, but each call spawns a fresh proxy process, so callers
// must disconnect before connecting again.
//
// A reconcile outcome of reconcile.ErrRetryAfterLogin passes through
// untouched: the retry decision belongs to the user, not this code.
func (o *Orchestrator) Connect(ctx context.Context, deviceID string) (*Session, error) {
	if err := util.ValidateDeviceID(deviceID); err != nil {
		return nil, err
	}

	cred, err := o.reconciler.Reconcile(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	proc, err := o.launcher.Start(ctx, o.region, cred.SourceToken)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", deviceID, err)
	}

	return &Session{
		DeviceID:  deviceID,
		TunnelID:  cred.TunnelID,
		Region:    o.region,
		StartedAt: time.Now(),
		Proc:      proc,
	}, nil
}
