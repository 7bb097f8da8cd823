package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/iotsecuretunneling"
	"github.com/aws/aws-sdk-go-v2/service/iotsecuretunneling/types"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/rosterloh/tunnel-manager/internal/model"
)

// AWSClient implements Client over AWS IoT Secure Tunneling.
type AWSClient struct {
	api    *iotsecuretunneling.Client
	region string
}

// NewAWSClient loads shared AWS configuration for the given profile and
// region and returns a directory client bound to it. Loading reads local
// credential state only; the first network round trip happens on the
// first operation.
func NewAWSClient(ctx context.Context, profile, region string) (*AWSClient, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithSharedConfigProfile(profile),
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config for profile %s: %w", profile, err)
	}
	return &AWSClient{
		api:    iotsecuretunneling.NewFromConfig(cfg),
		region: cfg.Region,
	}, nil
}

// Region returns the resolved region, which the localproxy must be told.
func (c *AWSClient) Region() string { return c.region }

func (c *AWSClient) ListTunnels(ctx context.Context, deviceID string) ([]model.TunnelSummary, error) {
	out, err := c.api.ListTunnels(ctx, &iotsecuretunneling.ListTunnelsInput{
		ThingName: aws.String(deviceID),
	})
	if err != nil {
		return nil, classify("list tunnels", "", deviceID, err)
	}
	summaries := make([]model.TunnelSummary, 0, len(out.TunnelSummaries))
	for _, ts := range out.TunnelSummaries {
		s := model.TunnelSummary{
			TunnelID: aws.ToString(ts.TunnelId),
			DeviceID: deviceID,
			Status:   statusFromAPI(ts.Status),
		}
		if ts.CreatedAt != nil {
			s.CreatedAt = *ts.CreatedAt
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}

func (c *AWSClient) OpenTunnel(ctx context.Context, dest model.DestinationConfig) (model.TunnelCredential, error) {
	out, err := c.api.OpenTunnel(ctx, &iotsecuretunneling.OpenTunnelInput{
		DestinationConfig: destinationFromModel(dest),
	})
	if err != nil {
		return model.TunnelCredential{}, classify("open tunnel", "", dest.DeviceID, err)
	}
	return model.TunnelCredential{
		TunnelID:    aws.ToString(out.TunnelId),
		SourceToken: aws.ToString(out.SourceAccessToken),
	}, nil
}

func (c *AWSClient) RotateTokens(ctx context.Context, tunnelID string, dest model.DestinationConfig) (model.TokenPair, error) {
	out, err := c.api.RotateTunnelAccessToken(ctx, &iotsecuretunneling.RotateTunnelAccessTokenInput{
		TunnelId:          aws.String(tunnelID),
		ClientMode:        types.ClientModeAll,
		DestinationConfig: destinationFromModel(dest),
	})
	if err != nil {
		return model.TokenPair{}, classify("rotate tokens", tunnelID, dest.DeviceID, err)
	}
	return model.TokenPair{
		SourceToken:      aws.ToString(out.SourceAccessToken),
		DestinationToken: aws.ToString(out.DestinationAccessToken),
	}, nil
}

func (c *AWSClient) CloseTunnel(ctx context.Context, tunnelID string) error {
	_, err := c.api.CloseTunnel(ctx, &iotsecuretunneling.CloseTunnelInput{
		TunnelId: aws.String(tunnelID),
	})
	if err != nil {
		return classify("close tunnel", tunnelID, "", err)
	}
	return nil
}

func destinationFromModel(dest model.DestinationConfig) *types.DestinationConfig {
	return &types.DestinationConfig{
		ThingName: aws.String(dest.DeviceID),
		Services:  dest.Services,
	}
}

func statusFromAPI(s types.TunnelStatus) model.TunnelStatus {
	switch s {
	case types.TunnelStatusOpen:
		return model.StatusOpen
	case types.TunnelStatusClosed:
		return model.StatusClosed
	default:
		return model.StatusUnknown
	}
}

// classify wraps an SDK error as a directory.Error. If the chain carries
// an HTTP response error the request reached the service, so the service
// rejected it; anything else (credential resolution, dispatch) means the
// caller's session with AWS needs refreshing and is treated as an
// authentication failure.
func classify(op, tunnelID, deviceID string, err error) error {
	kind := KindAuth
	var re *smithyhttp.ResponseError
	if errors.As(err, &re) {
		kind = KindOperation
	}
	return &Error{Kind: kind, Op: op, TunnelID: tunnelID, DeviceID: deviceID, Err: err}
}
