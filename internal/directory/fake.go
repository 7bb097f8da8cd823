package directory

import (
	"context"
	"fmt"

	"github.com/rosterloh/tunnel-manager/internal/model"
)

// Fake is a programmable in-memory Client for tests. Responses are canned
// per operation and every call is recorded, so tests can assert exactly
// which directory operations a connection attempt issued.
//
// The zero value lists no tunnels and succeeds on every call, handing out
// generated ids and tokens.
type Fake struct {
	Tunnels []model.TunnelSummary
	ListErr error

	OpenCredential model.TunnelCredential
	OpenErr        error

	RotatePair model.TokenPair
	RotateErr  error

	CloseErr error

	ListCalls int
	Opened    []model.DestinationConfig
	Rotated   []string
	Closed    []string
}

var _ Client = (*Fake)(nil)

func (f *Fake) ListTunnels(ctx context.Context, deviceID string) ([]model.TunnelSummary, error) {
	f.ListCalls++
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	return f.Tunnels, nil
}

func (f *Fake) OpenTunnel(ctx context.Context, dest model.DestinationConfig) (model.TunnelCredential, error) {
	f.Opened = append(f.Opened, dest)
	if f.OpenErr != nil {
		return model.TunnelCredential{}, f.OpenErr
	}
	cred := f.OpenCredential
	if cred.TunnelID == "" {
		cred.TunnelID = fmt.Sprintf("fake-tunnel-%d", len(f.Opened))
	}
	if cred.SourceToken == "" {
		cred.SourceToken = fmt.Sprintf("fake-src-token-%d", len(f.Opened))
	}
	return cred, nil
}

func (f *Fake) RotateTokens(ctx context.Context, tunnelID string, dest model.DestinationConfig) (model.TokenPair, error) {
	f.Rotated = append(f.Rotated, tunnelID)
	if f.RotateErr != nil {
		return model.TokenPair{}, f.RotateErr
	}
	pair := f.RotatePair
	if pair.SourceToken == "" {
		pair.SourceToken = "rotated-src-token-" + tunnelID
	}
	if pair.DestinationToken == "" {
		pair.DestinationToken = "rotated-dst-token-" + tunnelID
	}
	return pair, nil
}

func (f *Fake) CloseTunnel(ctx context.Context, tunnelID string) error {
	f.Closed = append(f.Closed, tunnelID)
	return f.CloseErr
}
