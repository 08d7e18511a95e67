// Package docstore defines the document store capability the relationship core
// writes through, and its backends.
package docstore

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("docstore: document not found")
	// ErrVersionMismatch is returned when a version precondition fails. The
	// whole batch carrying the precondition is discarded.
	ErrVersionMismatch = errors.New("docstore: document version mismatch")
	// ErrBatchTooLarge is returned when a batch exceeds the backend's write limit.
	ErrBatchTooLarge = errors.New("docstore: batch exceeds backend write limit")
	// ErrInvalidWrite is returned for writes without a collection or id.
	ErrInvalidWrite = errors.New("docstore: collection and id are required")
)

// Fields is the schemaless content of a document.
type Fields map[string]interface{}

// Document is a stored document. Version changes on every write and is used
// for optimistic preconditions.
type Document struct {
	Collection string
	ID         string
	Fields     Fields
	Version    int64
}

// Op is a query operator.
type Op string

const (
	OpEqual         Op = "=="
	OpArrayContains Op = "array-contains"
)

// Store is the document store capability. Single-document calls are atomic;
// Batch commits are atomic across documents. There are no cross-call
// transactions.
type Store interface {
	// Get returns the document or ErrNotFound.
	Get(ctx context.Context, collection, id string) (*Document, error)

	// Query returns every document of collection whose field matches value
	// under op. Results are ordered by id.
	Query(ctx context.Context, collection, field string, op Op, value interface{}) ([]*Document, error)

	// Set creates or fully replaces a document.
	Set(ctx context.Context, collection, id string, fields Fields) error

	// Update merges top-level fields into an existing document, or returns
	// ErrNotFound.
	Update(ctx context.Context, collection, id string, fields Fields) error

	// Delete removes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error

	// Batch starts a new atomic write batch.
	Batch() Batch
}

// Batch queues writes that are applied all together or not at all.
type Batch interface {
	Set(collection, id string, fields Fields)
	Update(collection, id string, fields Fields, preconds ...Precondition)
	Delete(collection, id string, preconds ...Precondition)

	// Len returns the number of distinct documents the batch writes.
	Len() int

	// Commit applies every queued write atomically.
	Commit(ctx context.Context) error
}

// Precondition guards a batched write.
type Precondition func(*preconditions)

type preconditions struct {
	version    int64
	hasVersion bool
}

// IfVersion makes the write fail with ErrVersionMismatch unless the document
// still has version v.
func IfVersion(v int64) Precondition {
	return func(p *preconditions) {
		p.version = v
		p.hasVersion = true
	}
}

func applyPreconditions(opts []Precondition) preconditions {
	var p preconditions
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// Clone returns a deep copy of f.
func (f Fields) Clone() Fields {
	if f == nil {
		return Fields{}
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(t))
		for k, e := range t {
			out[k] = e
		}
		return out
	case map[string]interface{}:
		return map[string]interface{}(Fields(t).Clone())
	case Fields:
		return t.Clone()
	default:
		return v
	}
}
