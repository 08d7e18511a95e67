// Package guard runs read-modify-write sequences under a keyed lock with
// version-checked retries, and turns store errors into API errors.
package guard

import (
	"context"
	"errors"

	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/docstore"
	apierrors "github.com/UofT-ClubHub/Campus-Compass-sub000/internal/errors"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/lock"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/metrics"
	"github.com/sirupsen/logrus"
)

// Guard is shared by every component that writes more than one document.
type Guard struct {
	locker  lock.Locker
	policy  docstore.RetryPolicy
	metrics *metrics.Metrics
	logger  *logrus.Logger
}

// New creates a Guard.
func New(locker lock.Locker, policy docstore.RetryPolicy, m *metrics.Metrics, logger *logrus.Logger) *Guard {
	if locker == nil {
		locker = lock.Nop{}
	}
	return &Guard{locker: locker, policy: policy, metrics: m, logger: logger}
}

// Run holds keys and runs fn, retrying it while it fails with
// docstore.ErrVersionMismatch. fn must re-read what it writes on every attempt.
// The returned error is always an *APIError or wraps one.
func (g *Guard) Run(ctx context.Context, operation string, keys []string, fn func(ctx context.Context) error) error {
	unlock, err := g.hold(ctx, operation, keys)
	if err != nil {
		return err
	}
	defer unlock()

	err = docstore.RetryOnConflict(ctx, g.retryPolicy(operation), fn)
	return g.Translate(operation, err)
}

// Update is Run for a single document: it reads collection/id, merges what
// mutate returns and writes it back guarded by the version it read. A missing
// document is reported as notFound.
func (g *Guard) Update(ctx context.Context, operation string, store docstore.Store, collection, id string, notFound error, mutate docstore.Mutator) (*docstore.Document, error) {
	unlock, err := g.hold(ctx, operation, []string{lock.Key(collection, id)})
	if err != nil {
		return nil, err
	}
	defer unlock()

	doc, err := docstore.WithOptimisticUpdate(ctx, store, g.retryPolicy(operation), collection, id, mutate)
	if err != nil {
		if notFound != nil && errors.Is(err, docstore.ErrNotFound) {
			return nil, notFound
		}
		return nil, g.Translate(operation, err)
	}
	return doc, nil
}

func (g *Guard) hold(ctx context.Context, operation string, keys []string) (func(), error) {
	unlock, err := g.locker.Lock(ctx, keys...)
	if err != nil {
		g.logger.WithFields(logrus.Fields{
			"operation": operation,
			"keys":      keys,
			"error":     err.Error(),
		}).Warn("Failed to acquire entity lock")
		return nil, apierrors.ErrConcurrentUpdate
	}
	return unlock, nil
}

func (g *Guard) retryPolicy(operation string) docstore.RetryPolicy {
	policy := g.policy
	policy.OnRetry = func(err error) {
		g.metrics.OptimisticRetry(operation)
		g.logger.WithField("operation", operation).Debug("Retrying after version mismatch")
	}
	return policy
}

// Commit commits b and records the outcome.
func (g *Guard) Commit(ctx context.Context, operation string, b docstore.Batch) error {
	err := b.Commit(ctx)
	g.metrics.BatchCommit(operation, err)
	return err
}

// Translate maps a store error onto an APIError. Unexpected errors are logged
// and reported as internal errors.
func (g *Guard) Translate(operation string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *apierrors.APIError
	if errors.As(err, &apiErr) {
		return err
	}
	if errors.Is(err, docstore.ErrVersionMismatch) {
		g.logger.WithField("operation", operation).Warn("Optimistic retries exhausted")
		return apierrors.ErrConcurrentUpdate
	}
	if errors.Is(err, docstore.ErrNotFound) {
		return apierrors.ErrNotFound
	}
	g.logger.WithFields(logrus.Fields{
		"operation": operation,
		"error":     err.Error(),
	}).Error("Document store operation failed")
	return apierrors.ErrInternalServer
}

// Skipped records a dangling reference that an operation stepped over.
func (g *Guard) Skipped(operation, reason string, fields logrus.Fields) {
	g.metrics.SkippedReference(operation, reason)
	entry := g.logger.WithFields(fields)
	entry.WithFields(logrus.Fields{"operation": operation, "reason": reason}).Warn("Skipped dangling reference")
}
