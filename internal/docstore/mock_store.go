package docstore

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockStore is a mock implementation of the Store interface for testing
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	args := m.Called(ctx, collection, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Document), args.Error(1)
}

func (m *MockStore) Query(ctx context.Context, collection, field string, op Op, value interface{}) ([]*Document, error) {
	args := m.Called(ctx, collection, field, op, value)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Document), args.Error(1)
}

func (m *MockStore) Set(ctx context.Context, collection, id string, fields Fields) error {
	args := m.Called(ctx, collection, id, fields)
	return args.Error(0)
}

func (m *MockStore) Update(ctx context.Context, collection, id string, fields Fields) error {
	args := m.Called(ctx, collection, id, fields)
	return args.Error(0)
}

func (m *MockStore) Delete(ctx context.Context, collection, id string) error {
	args := m.Called(ctx, collection, id)
	return args.Error(0)
}

func (m *MockStore) Batch() Batch {
	args := m.Called()
	return args.Get(0).(Batch)
}

// MockBatch records queued writes and returns a configured commit error.
type MockBatch struct {
	mock.Mock
	writeBuffer
}

// NewMockBatch returns a batch whose Commit is driven by the mock.
func NewMockBatch() *MockBatch {
	return &MockBatch{writeBuffer: newWriteBuffer()}
}

func (m *MockBatch) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Queued returns the collection/id of every queued write in order.
func (m *MockBatch) Queued() []string {
	out := make([]string, 0, len(m.order))
	for _, k := range m.order {
		out = append(out, k.collection+"/"+k.id)
	}
	return out
}

// FailingStore wraps a Store and fails batch commits with Err. Reads go to the
// wrapped store, so services can be driven up to the commit.
type FailingStore struct {
	Store
	Err error
}

func (f *FailingStore) Batch() Batch {
	return &failingBatch{err: f.Err, writeBuffer: newWriteBuffer()}
}

func (f *FailingStore) Set(ctx context.Context, collection, id string, fields Fields) error {
	return f.Err
}

func (f *FailingStore) Update(ctx context.Context, collection, id string, fields Fields) error {
	return f.Err
}

func (f *FailingStore) Delete(ctx context.Context, collection, id string) error {
	return f.Err
}

type failingBatch struct {
	err error
	writeBuffer
}

func (b *failingBatch) Commit(ctx context.Context) error {
	return b.err
}
