// Package lock serializes read-modify-write sequences on the same entities
// within a deployment. Version preconditions on the store remain the
// correctness guarantee; the lock only keeps concurrent requests from
// burning their retries against each other.
package lock

import (
	"context"
	"sort"
)

// Locker acquires a set of keys together.
type Locker interface {
	// Lock blocks until every key is held or ctx is done. The returned func
	// releases all keys and is safe to call more than once.
	Lock(ctx context.Context, keys ...string) (func(), error)
}

// Key builds a lock key for an entity.
func Key(collection, id string) string {
	return collection + "/" + id
}

// normalize sorts and de-duplicates keys so that every caller acquires them
// in the same order.
func normalize(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Nop never blocks.
type Nop struct{}

func (Nop) Lock(ctx context.Context, keys ...string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return func() {}, nil
}
