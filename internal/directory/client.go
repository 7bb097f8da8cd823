// Package directory talks to the cloud tunnel directory service.
//
// The Client interface is the only surface the rest of the application
// uses; the AWS IoT Secure Tunneling implementation lives behind it and a
// programmable Fake substitutes for it in tests. Every operation is a
// single network round trip with no implicit retry.
package directory

import (
	"context"

	"github.com/rosterloh/tunnel-manager/internal/model"
)

// Client is the capability set the reconciler needs from the tunnel
// directory service.
type Client interface {
	// ListTunnels returns all tunnel records for a device, newest first
	// as the service reports them. Order is not otherwise meaningful.
	ListTunnels(ctx context.Context, deviceID string) ([]model.TunnelSummary, error)

	// OpenTunnel creates a new tunnel for the destination and returns its
	// id together with a fresh token pair's source token.
	OpenTunnel(ctx context.Context, dest model.DestinationConfig) (model.TunnelCredential, error)

	// RotateTokens invalidates a tunnel's current tokens and issues a new
	// pair for both ends.
	RotateTokens(ctx context.Context, tunnelID string, dest model.DestinationConfig) (model.TokenPair, error)

	// CloseTunnel closes a tunnel record. Closing an already-closed
	// tunnel is an operation failure from the service, not a no-op.
	CloseTunnel(ctx context.Context, tunnelID string) error
}
