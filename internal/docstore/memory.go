package docstore

import (
	"context"
	"reflect"
	"sort"
	"sync"
	"time"
)

type memDoc struct {
	fields  Fields
	version int64
}

// MemoryStore is an in-process Store. Documents are copied on the way in and
// out, so callers never share state with the store. Versions come from one
// store-wide counter, so a deleted and recreated document never reuses a
// version.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[docKey]*memDoc
	seq  int64
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: map[docKey]*memDoc{}}
}

func (s *MemoryStore) nextVersion() int64 {
	s.seq++
	return s.seq
}

// Get returns a copy of the document.
func (s *MemoryStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs[docKey{collection, id}]
	if !ok {
		return nil, ErrNotFound
	}
	return &Document{Collection: collection, ID: id, Fields: d.fields.Clone(), Version: d.version}, nil
}

// Query scans the collection for matching documents.
func (s *MemoryStore) Query(ctx context.Context, collection, field string, op Op, value interface{}) ([]*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Document
	for key, d := range s.docs {
		if key.collection != collection || !matches(d.fields, field, op, value) {
			continue
		}
		out = append(out, &Document{Collection: collection, ID: key.id, Fields: d.fields.Clone(), Version: d.version})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) Set(ctx context.Context, collection, id string, fields Fields) error {
	b := s.Batch()
	b.Set(collection, id, fields)
	return b.Commit(ctx)
}

func (s *MemoryStore) Update(ctx context.Context, collection, id string, fields Fields) error {
	b := s.Batch()
	b.Update(collection, id, fields)
	return b.Commit(ctx)
}

func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	b := s.Batch()
	b.Delete(collection, id)
	return b.Commit(ctx)
}

// Batch starts a new batch against the store.
func (s *MemoryStore) Batch() Batch {
	return &memoryBatch{store: s, writeBuffer: newWriteBuffer()}
}

// Len returns the number of documents held, for tests and diagnostics.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

type memoryBatch struct {
	store *MemoryStore
	writeBuffer
}

// Commit checks every precondition before applying any write.
func (b *memoryBatch) Commit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.err != nil {
		return b.err
	}
	s := b.store
	s.mu.Lock()
	defer s.mu.Unlock()

	writes := b.list()
	for _, w := range writes {
		cur, exists := s.docs[docKey{w.collection, w.id}]
		if w.pre.hasVersion && (!exists || cur.version != w.pre.version) {
			return ErrVersionMismatch
		}
		if w.kind == writeUpdate && !exists {
			return ErrNotFound
		}
	}
	for _, w := range writes {
		key := docKey{w.collection, w.id}
		switch w.kind {
		case writeSet:
			s.docs[key] = &memDoc{fields: w.fields.Clone(), version: s.nextVersion()}
		case writeUpdate:
			cur := s.docs[key]
			merged := cur.fields.Clone()
			for k, v := range w.fields {
				merged[k] = cloneValue(v)
			}
			s.docs[key] = &memDoc{fields: merged, version: s.nextVersion()}
		case writeDelete:
			delete(s.docs, key)
		}
	}
	return nil
}

func matches(fields Fields, field string, op Op, value interface{}) bool {
	v, ok := fields[field]
	if !ok {
		return false
	}
	switch op {
	case OpEqual:
		return equalValues(v, value)
	case OpArrayContains:
		switch arr := v.(type) {
		case []string:
			for _, e := range arr {
				if equalValues(e, value) {
					return true
				}
			}
		case []interface{}:
			for _, e := range arr {
				if equalValues(e, value) {
					return true
				}
			}
		}
	}
	return false
}

func equalValues(a, b interface{}) bool {
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		return ok && af == bf
	}
	if at, ok := a.(time.Time); ok {
		bt, ok := b.(time.Time)
		return ok && at.Equal(bt)
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
