package secrets

import (
	"context"
	"fmt"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

// GCPResolver reads secrets from Google Cloud Secret Manager. References are
// full version resource names, e.g.
// projects/<project>/secrets/<name>/versions/latest.
type GCPResolver struct {
	access func(ctx context.Context, name string) ([]byte, error)
	close  func() error
	logger *logrus.Logger
}

// NewGCPResolver creates a Secret Manager client using application default
// credentials, or credentialsFile when it is set.
func NewGCPResolver(ctx context.Context, credentialsFile string, logger *logrus.Logger) (*GCPResolver, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create secret manager client: %w", err)
	}
	access := func(ctx context.Context, name string) ([]byte, error) {
		resp, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
		if err != nil {
			return nil, err
		}
		return resp.GetPayload().GetData(), nil
	}
	return &GCPResolver{access: access, close: client.Close, logger: logger}, nil
}

// Resolve returns the payload of the secret version named by ref.
func (g *GCPResolver) Resolve(ctx context.Context, ref string) (string, error) {
	g.logger.WithField("provider", "gcp").Debug("Accessing secret version")
	data, err := g.access(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("failed to access secret version: %w", err)
	}
	return string(data), nil
}

// Close releases the Secret Manager client.
func (g *GCPResolver) Close() error {
	if g.close == nil {
		return nil
	}
	return g.close()
}
