package secrets

import (
	"context"
	"fmt"
	"strings"

	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/config"
	"github.com/sirupsen/logrus"
)

// Scheme identifies the secret backend a reference points to.
type Scheme string

const (
	SchemeGCP   Scheme = "gcp-sm"
	SchemeAzure Scheme = "azure-kv"
)

// Resolver fetches the plaintext value of a secret reference.
type Resolver interface {
	// Resolve returns the secret named by ref (the part after "<scheme>://").
	Resolve(ctx context.Context, ref string) (string, error)

	// Close releases the underlying client.
	Close() error
}

// ResolverFactory creates a resolver for a scheme.
type ResolverFactory interface {
	CreateResolver(ctx context.Context, scheme Scheme) (Resolver, error)
}

// ParseReference splits "<scheme>://<ref>" into its parts. ok is false for
// plain values.
func ParseReference(value string) (Scheme, string, bool) {
	for _, scheme := range []Scheme{SchemeGCP, SchemeAzure} {
		prefix := string(scheme) + "://"
		if strings.HasPrefix(value, prefix) {
			return scheme, strings.TrimPrefix(value, prefix), true
		}
	}
	return "", "", false
}

// ResolveConfig replaces every secret reference in cfg with its value.
// Resolvers are created lazily, so a config without references needs no cloud
// credentials.
func ResolveConfig(ctx context.Context, cfg *config.Config, factory ResolverFactory, logger *logrus.Logger) error {
	resolvers := map[Scheme]Resolver{}
	defer func() {
		for _, r := range resolvers {
			_ = r.Close()
		}
	}()

	for key, field := range cfg.SecretFields() {
		scheme, ref, ok := ParseReference(*field)
		if !ok {
			continue
		}
		resolver, exists := resolvers[scheme]
		if !exists {
			created, err := factory.CreateResolver(ctx, scheme)
			if err != nil {
				return fmt.Errorf("failed to create %s resolver: %w", scheme, err)
			}
			resolvers[scheme] = created
			resolver = created
		}
		value, err := resolver.Resolve(ctx, ref)
		if err != nil {
			logger.WithFields(logrus.Fields{
				"key":    key,
				"scheme": scheme,
				"error":  err.Error(),
			}).Error("Failed to resolve secret reference")
			return fmt.Errorf("failed to resolve %s: %w", key, err)
		}
		*field = value
		logger.WithFields(logrus.Fields{
			"key":    key,
			"scheme": scheme,
		}).Info("Resolved secret reference")
	}
	return nil
}
