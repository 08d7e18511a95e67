package guard

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/docstore"
	apierrors "github.com/UofT-ClubHub/Campus-Compass-sub000/internal/errors"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/lock"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestGuard(retries int) (*Guard, *metrics.Metrics) {
	m := metrics.New()
	policy := docstore.RetryPolicy{MaxRetries: retries, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
	return New(lock.NewLocal(), policy, m, logrus.New()), m
}

func TestGuard_Run(t *testing.T) {
	tests := []struct {
		name    string
		results []error
		wantErr error
	}{
		{"success", []error{nil}, nil},
		{"retried mismatch", []error{docstore.ErrVersionMismatch, nil}, nil},
		{"exhausted retries", []error{docstore.ErrVersionMismatch, docstore.ErrVersionMismatch, docstore.ErrVersionMismatch}, apierrors.ErrConcurrentUpdate},
		{"api error passes through", []error{apierrors.ErrPostNotFound}, apierrors.ErrPostNotFound},
		{"store not found", []error{docstore.ErrNotFound}, apierrors.ErrNotFound},
		{"unexpected error", []error{errors.New("disk on fire")}, apierrors.ErrInternalServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, _ := newTestGuard(2)
			attempt := 0
			err := g.Run(context.Background(), "test", []string{"Posts/p1"}, func(ctx context.Context) error {
				res := tt.results[attempt]
				attempt++
				return res
			})
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

type wrappedConflict struct{ id string }

func (w *wrappedConflict) Error() string { return "conflict with " + w.id }
func (w *wrappedConflict) Unwrap() error { return apierrors.ErrDuplicateCalendarEvent }

func TestGuard_TranslateKeepsTypedErrors(t *testing.T) {
	g, _ := newTestGuard(0)
	original := &wrappedConflict{id: "e1"}

	err := g.Translate("test", fmt.Errorf("outer: %w", original))

	var typed *wrappedConflict
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, "e1", typed.id)
}

func TestGuard_LockTimeout(t *testing.T) {
	g, _ := newTestGuard(0)
	locker := g.locker.(*lock.Local)
	unlock, err := locker.Lock(context.Background(), "Organizations/o1")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err = g.Run(ctx, "test", []string{"Organizations/o1"}, func(ctx context.Context) error { return nil })

	assert.ErrorIs(t, err, apierrors.ErrConcurrentUpdate)
}

func TestGuard_CommitRecordsOutcome(t *testing.T) {
	g, m := newTestGuard(0)
	b := docstore.NewMockBatch()
	b.On("Commit", mock.Anything).Return(errors.New("unavailable")).Once()
	b.On("Commit", mock.Anything).Return(nil).Once()

	assert.Error(t, g.Commit(context.Background(), "op", b))
	assert.NoError(t, g.Commit(context.Background(), "op", b))

	series, err := testutil.GatherAndCount(m.Registry(), "clubhub_batch_commits_total")
	require.NoError(t, err)
	assert.Equal(t, 2, series)
	b.AssertExpectations(t)
}

func TestGuard_Update(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		id      string
		mutate  docstore.Mutator
		wantErr error
		want    string
	}{
		{
			name: "merges returned fields",
			id:   "p1",
			mutate: func(doc *docstore.Document) (docstore.Fields, error) {
				return docstore.Fields{"title": "Renamed"}, nil
			},
			want: "Renamed",
		},
		{
			name:    "missing document",
			id:      "ghost",
			mutate:  func(doc *docstore.Document) (docstore.Fields, error) { return docstore.Fields{"title": "x"}, nil },
			wantErr: apierrors.ErrPostNotFound,
		},
		{
			name: "mutator error passes through",
			id:   "p1",
			mutate: func(doc *docstore.Document) (docstore.Fields, error) {
				return nil, apierrors.NewValidationError("title: this field is required")
			},
			wantErr: apierrors.ErrValidation,
			want:    "Original",
		},
		{
			name:   "nil fields skip the write",
			id:     "p1",
			mutate: func(doc *docstore.Document) (docstore.Fields, error) { return nil, nil },
			want:   "Original",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, _ := newTestGuard(2)
			store := docstore.NewMemoryStore()
			require.NoError(t, store.Set(ctx, "Posts", "p1", docstore.Fields{"title": "Original"}))

			doc, err := g.Update(ctx, "test", store, "Posts", tt.id, apierrors.ErrPostNotFound, tt.mutate)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, doc.Fields["title"])
			}

			if tt.want != "" {
				stored, err := store.Get(ctx, "Posts", "p1")
				require.NoError(t, err)
				assert.Equal(t, tt.want, stored.Fields["title"])
			}
		})
	}
}

func TestGuard_UpdateRetriesConcurrentWrite(t *testing.T) {
	ctx := context.Background()
	g, m := newTestGuard(2)
	store := docstore.NewMemoryStore()
	require.NoError(t, store.Set(ctx, "Posts", "p1", docstore.Fields{"title": "Original", "likes": 1}))

	attempts := 0
	doc, err := g.Update(ctx, "test", store, "Posts", "p1", nil, func(doc *docstore.Document) (docstore.Fields, error) {
		attempts++
		if attempts == 1 {
			// a writer slips in between the read and the commit
			require.NoError(t, store.Update(ctx, "Posts", "p1", docstore.Fields{"likes": 2}))
		}
		return docstore.Fields{"title": "Renamed"}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, "Renamed", doc.Fields["title"])
	assert.Equal(t, 2, doc.Fields["likes"])
	series, err := testutil.GatherAndCount(m.Registry(), "clubhub_optimistic_retries_total")
	require.NoError(t, err)
	assert.Equal(t, 1, series)
}

func TestGuard_UpdateMissingWithoutOverride(t *testing.T) {
	g, _ := newTestGuard(0)
	_, err := g.Update(context.Background(), "test", docstore.NewMemoryStore(), "Posts", "ghost", nil,
		func(doc *docstore.Document) (docstore.Fields, error) { return docstore.Fields{}, nil })
	assert.ErrorIs(t, err, apierrors.ErrNotFound)
}
