package secrets

import (
	"context"
	"fmt"

	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/config"
	"github.com/sirupsen/logrus"
)

// ResolverFactoryImpl implements ResolverFactory with the cloud SDK clients.
type ResolverFactoryImpl struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// NewResolverFactory creates a new resolver factory instance
func NewResolverFactory(cfg *config.Config, logger *logrus.Logger) ResolverFactory {
	return &ResolverFactoryImpl{cfg: cfg, logger: logger}
}

// CreateResolver creates a resolver for the given scheme
func (f *ResolverFactoryImpl) CreateResolver(ctx context.Context, scheme Scheme) (Resolver, error) {
	switch scheme {
	case SchemeGCP:
		return NewGCPResolver(ctx, f.cfg.GoogleCredentialsFile, f.logger)
	case SchemeAzure:
		return NewAzureResolver(f.cfg.AzureKeyVaultURL, f.logger)
	default:
		return nil, fmt.Errorf("unsupported secret scheme: %s", scheme)
	}
}
