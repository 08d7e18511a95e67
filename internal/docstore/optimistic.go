package docstore

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds optimistic read-modify-write retries.
type RetryPolicy struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// OnRetry is called before every retry caused by a version mismatch.
	OnRetry func(err error)
}

// DefaultRetryPolicy retries five times starting at 10ms, capped at 500ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 5, InitialInterval: 10 * time.Millisecond, MaxInterval: 500 * time.Millisecond}
}

// RetryOnConflict runs fn until it succeeds, fails with an error other than
// ErrVersionMismatch, or exhausts the policy. fn must re-read every document it
// writes on each attempt. When retries run out ErrVersionMismatch is returned.
func RetryOnConflict(ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) error) error {
	exp := backoff.NewExponentialBackOff()
	if policy.InitialInterval > 0 {
		exp.InitialInterval = policy.InitialInterval
	}
	if policy.MaxInterval > 0 {
		exp.MaxInterval = policy.MaxInterval
	}
	exp.MaxElapsedTime = 0
	maxRetries := policy.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	b := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(maxRetries)), ctx)

	op := func() error {
		err := fn(ctx)
		if err == nil || errors.Is(err, ErrVersionMismatch) {
			return err
		}
		return backoff.Permanent(err)
	}
	notify := func(err error, _ time.Duration) {
		if policy.OnRetry != nil {
			policy.OnRetry(err)
		}
	}
	return backoff.RetryNotify(op, b, notify)
}

// Mutator computes the fields to merge into a freshly read document. Returning
// nil fields skips the write.
type Mutator func(doc *Document) (Fields, error)

// WithOptimisticUpdate reads collection/id, applies mutate and writes the
// result guarded by the version that was read, retrying on concurrent change.
// It returns the document as written.
func WithOptimisticUpdate(ctx context.Context, store Store, policy RetryPolicy, collection, id string, mutate Mutator) (*Document, error) {
	var out *Document
	err := RetryOnConflict(ctx, policy, func(ctx context.Context) error {
		doc, err := store.Get(ctx, collection, id)
		if err != nil {
			return err
		}
		fields, err := mutate(doc)
		if err != nil {
			return err
		}
		if fields == nil {
			out = doc
			return nil
		}
		b := store.Batch()
		b.Update(collection, id, fields, IfVersion(doc.Version))
		if err := b.Commit(ctx); err != nil {
			return err
		}
		merged := doc.Fields.Clone()
		for k, v := range fields {
			merged[k] = cloneValue(v)
		}
		out = &Document{Collection: collection, ID: id, Fields: merged}
		return nil
	})
	return out, err
}
