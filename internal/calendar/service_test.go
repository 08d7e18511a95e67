package calendar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/docstore"
	apierrors "github.com/UofT-ClubHub/Campus-Compass-sub000/internal/errors"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/guard"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/lock"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/metrics"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/model"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(store docstore.Store) *Service {
	logger := logrus.New()
	policy := docstore.RetryPolicy{MaxRetries: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
	svc := NewService(store, guard.New(lock.NewLocal(), policy, metrics.New(), logger), logger)
	svc.now = func() time.Time { return time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC) }
	return svc
}

func seedPost(t *testing.T, store docstore.Store, id string, p model.Post) {
	t.Helper()
	p.OrganizationID = "o1"
	require.NoError(t, store.Set(context.Background(), model.CollectionPosts, id, p.ToFields()))
}

func timePtr(t time.Time) *time.Time { return &t }

func TestService_CreateFromPost(t *testing.T) {
	tests := []struct {
		name      string
		post      model.Post
		wantTitle string
		wantDate  string
		wantStart string
	}{
		{
			name:      "timed event",
			post:      model.Post{Title: "Game night", Details: "Bring snacks", Campus: "UTM", OccursAt: timePtr(time.Date(2025, 3, 14, 18, 30, 0, 0, time.UTC))},
			wantTitle: "Game night",
			wantDate:  "2025-03-14",
			wantStart: "18:30",
		},
		{
			name:      "all day event without title",
			post:      model.Post{Details: "Fair", Campus: "UTSC", OccursAt: timePtr(time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC))},
			wantTitle: DefaultTitle,
			wantDate:  "2025-04-02",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := docstore.NewMemoryStore()
			seedPost(t, store, "p1", tt.post)

			view, err := newTestService(store).CreateFromPost(context.Background(), "m1", "p1")
			require.NoError(t, err)
			assert.Equal(t, tt.wantTitle, view.Title)
			assert.Equal(t, tt.wantDate, view.Date)
			assert.Equal(t, tt.wantStart, view.StartTime)
			assert.Equal(t, tt.post.Details, view.Description)
			assert.Equal(t, tt.post.Campus, view.Location)
			assert.Equal(t, "o1", view.OrganizationID)
			assert.Equal(t, "p1", view.SourcePostID)
			assert.False(t, view.PostDeleted)

			doc, err := store.Get(context.Background(), model.CollectionCalendarEvents, view.ID)
			require.NoError(t, err)
			stored, err := model.DecodeCalendarEvent(doc)
			require.NoError(t, err)
			assert.Equal(t, "m1", stored.OwnerMemberID)
			assert.Equal(t, tt.wantDate, stored.Date)
		})
	}
}

func TestService_CreateFromPost_Errors(t *testing.T) {
	store := docstore.NewMemoryStore()
	seedPost(t, store, "undated", model.Post{Title: "Announcement"})
	svc := newTestService(store)

	_, err := svc.CreateFromPost(context.Background(), "m1", "missing")
	assert.ErrorIs(t, err, apierrors.ErrPostNotFound)

	_, err = svc.CreateFromPost(context.Background(), "m1", "undated")
	assert.ErrorIs(t, err, apierrors.ErrPostHasNoEventDate)
	assert.ErrorIs(t, err, apierrors.ErrValidation)

	events, err := svc.ListMine(context.Background(), "m1")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestService_CreateFromPost_Duplicate(t *testing.T) {
	store := docstore.NewMemoryStore()
	seedPost(t, store, "p1", model.Post{Title: "Gala", OccursAt: timePtr(time.Date(2025, 5, 1, 19, 0, 0, 0, time.UTC))})
	svc := newTestService(store)

	first, err := svc.CreateFromPost(context.Background(), "m1", "p1")
	require.NoError(t, err)

	_, err = svc.CreateFromPost(context.Background(), "m1", "p1")
	var dup *DuplicateEventError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, first.ID, dup.EventID)
	assert.ErrorIs(t, err, apierrors.ErrDuplicateCalendarEvent)
	assert.ErrorIs(t, err, apierrors.ErrConflict)

	// another member may still add the same post
	_, err = svc.CreateFromPost(context.Background(), "m2", "p1")
	require.NoError(t, err)

	events, err := svc.ListMine(context.Background(), "m1")
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestService_OnPostDeleted(t *testing.T) {
	store := docstore.NewMemoryStore()
	seedPost(t, store, "p1", model.Post{Title: "Gala", OccursAt: timePtr(time.Date(2025, 5, 1, 19, 0, 0, 0, time.UTC))})
	seedPost(t, store, "p2", model.Post{Title: "Picnic", OccursAt: timePtr(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))})
	svc := newTestService(store)
	ctx := context.Background()

	e1, err := svc.CreateFromPost(ctx, "m1", "p1")
	require.NoError(t, err)
	_, err = svc.CreateFromPost(ctx, "m2", "p1")
	require.NoError(t, err)
	other, err := svc.CreateFromPost(ctx, "m1", "p2")
	require.NoError(t, err)

	n, err := svc.OnPostDeleted(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// already flagged events are left alone
	n, err = svc.OnPostDeleted(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	events, err := svc.ListMine(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	flags := map[string]bool{}
	for _, e := range events {
		flags[e.ID] = e.PostDeleted
	}
	assert.True(t, flags[e1.ID])
	assert.False(t, flags[other.ID])
	// the snapshot survives
	assert.Equal(t, "Gala", events[0].Title)
}

func TestService_OnPostDeleted_CommitFailure(t *testing.T) {
	base := docstore.NewMemoryStore()
	seedPost(t, base, "p1", model.Post{Title: "Gala", OccursAt: timePtr(time.Date(2025, 5, 1, 19, 0, 0, 0, time.UTC))})
	_, err := newTestService(base).CreateFromPost(context.Background(), "m1", "p1")
	require.NoError(t, err)

	failing := &docstore.FailingStore{Store: base, Err: errors.New("unavailable")}
	_, err = newTestService(failing).OnPostDeleted(context.Background(), "p1")
	assert.ErrorIs(t, err, apierrors.ErrInternalServer)

	events, err := newTestService(base).ListMine(context.Background(), "m1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.False(t, events[0].PostDeleted)
}

func strPtr(s string) *string { return &s }

func seedEvent(t *testing.T, store docstore.Store, id string, e model.CalendarEvent) {
	t.Helper()
	require.NoError(t, store.Set(context.Background(), model.CollectionCalendarEvents, id, e.ToFields()))
}

func TestService_Create(t *testing.T) {
	tests := []struct {
		name    string
		req     EventRequest
		wantErr error
	}{
		{"timed event", EventRequest{Title: "Study group", Date: "2025-03-10", StartTime: "14:00", Location: "Robarts"}, nil},
		{"all day event", EventRequest{Title: "Reading week", Date: "2025-02-17"}, nil},
		{"missing title", EventRequest{Date: "2025-03-10"}, apierrors.ErrValidation},
		{"malformed date", EventRequest{Title: "Study group", Date: "10/03/2025"}, apierrors.ErrValidation},
		{"malformed start time", EventRequest{Title: "Study group", Date: "2025-03-10", StartTime: "2pm"}, apierrors.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := docstore.NewMemoryStore()
			view, err := newTestService(store).Create(context.Background(), "m1", tt.req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, 0, store.Len())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "m1", view.OwnerMemberID)
			assert.Equal(t, tt.req.Title, view.Title)
			assert.Equal(t, tt.req.StartTime, view.StartTime)
			assert.Empty(t, view.SourcePostID)
			assert.False(t, view.PostDeleted)

			got, err := newTestService(store).Get(context.Background(), "m1", view.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.req.Date, got.Date)
		})
	}
}

func TestService_Update(t *testing.T) {
	created := time.Date(2025, 1, 5, 9, 0, 0, 0, time.UTC)
	manual := model.CalendarEvent{OwnerMemberID: "m1", Title: "Study group", Date: "2025-03-10", StartTime: "14:00", CreatedAt: created, UpdatedAt: created}
	orphaned := model.CalendarEvent{OwnerMemberID: "m1", SourcePostID: "p1", OrganizationID: "o1", Title: "Gala", Date: "2025-05-01", PostDeleted: true, CreatedAt: created, UpdatedAt: created}

	tests := []struct {
		name      string
		seed      model.CalendarEvent
		memberID  string
		eventID   string
		req       EventUpdateRequest
		wantErr   error
		wantTitle string
		wantDate  string
	}{
		{
			name:      "owner renames",
			seed:      manual,
			memberID:  "m1",
			eventID:   "e1",
			req:       EventUpdateRequest{Title: strPtr("Exam review")},
			wantTitle: "Exam review",
			wantDate:  "2025-03-10",
		},
		{
			name:      "owner moves a post event",
			seed:      orphaned,
			memberID:  "m1",
			eventID:   "e1",
			req:       EventUpdateRequest{Date: strPtr("2025-05-02")},
			wantTitle: "Gala",
			wantDate:  "2025-05-02",
		},
		{
			name:     "another member",
			seed:     manual,
			memberID: "m2",
			eventID:  "e1",
			req:      EventUpdateRequest{Title: strPtr("Mine now")},
			wantErr:  apierrors.ErrCalendarEventNotFound,
		},
		{
			name:     "missing event",
			seed:     manual,
			memberID: "m1",
			eventID:  "ghost",
			req:      EventUpdateRequest{Title: strPtr("Exam review")},
			wantErr:  apierrors.ErrCalendarEventNotFound,
		},
		{
			name:     "blank title",
			seed:     manual,
			memberID: "m1",
			eventID:  "e1",
			req:      EventUpdateRequest{Title: strPtr("")},
			wantErr:  apierrors.ErrValidation,
		},
		{
			name:     "malformed date",
			seed:     manual,
			memberID: "m1",
			eventID:  "e1",
			req:      EventUpdateRequest{Date: strPtr("March 10")},
			wantErr:  apierrors.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := docstore.NewMemoryStore()
			seedEvent(t, store, "e1", tt.seed)
			svc := newTestService(store)

			view, err := svc.Update(context.Background(), tt.memberID, tt.eventID, tt.req)

			doc, getErr := store.Get(context.Background(), model.CollectionCalendarEvents, "e1")
			require.NoError(t, getErr)
			stored, decodeErr := model.DecodeCalendarEvent(doc)
			require.NoError(t, decodeErr)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.seed.Title, stored.Title)
				assert.Equal(t, tt.seed.Date, stored.Date)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTitle, view.Title)
			assert.Equal(t, tt.wantDate, view.Date)
			assert.Equal(t, tt.wantTitle, stored.Title)
			assert.Equal(t, tt.wantDate, stored.Date)
			assert.Equal(t, tt.seed.PostDeleted, stored.PostDeleted)
			assert.Equal(t, tt.seed.SourcePostID, stored.SourcePostID)
			assert.Equal(t, tt.seed.OrganizationID, stored.OrganizationID)
			assert.True(t, stored.CreatedAt.Equal(created))
			assert.True(t, stored.UpdatedAt.After(created))
		})
	}
}

func TestService_UpdateKeepsFlagSetDuringEdit(t *testing.T) {
	store := docstore.NewMemoryStore()
	seedPost(t, store, "p1", model.Post{Title: "Gala", OccursAt: timePtr(time.Date(2025, 5, 1, 19, 0, 0, 0, time.UTC))})
	svc := newTestService(store)
	ctx := context.Background()

	event, err := svc.CreateFromPost(ctx, "m1", "p1")
	require.NoError(t, err)
	_, err = svc.OnPostDeleted(ctx, "p1")
	require.NoError(t, err)

	view, err := svc.Update(ctx, "m1", event.ID, EventUpdateRequest{Location: strPtr("Hart House")})
	require.NoError(t, err)
	assert.True(t, view.PostDeleted)
	assert.Equal(t, "Hart House", view.Location)
	assert.Equal(t, "p1", view.SourcePostID)
}

func TestService_Delete(t *testing.T) {
	tests := []struct {
		name      string
		memberID  string
		eventID   string
		wantErr   error
		wantStays bool
	}{
		{"owner deletes", "m1", "e1", nil, false},
		{"another member", "m2", "e1", apierrors.ErrCalendarEventNotFound, true},
		{"missing event", "m1", "ghost", apierrors.ErrCalendarEventNotFound, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := docstore.NewMemoryStore()
			seedEvent(t, store, "e1", model.CalendarEvent{OwnerMemberID: "m1", Title: "Study group", Date: "2025-03-10"})

			err := newTestService(store).Delete(context.Background(), tt.memberID, tt.eventID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			_, getErr := store.Get(context.Background(), model.CollectionCalendarEvents, "e1")
			if tt.wantStays {
				assert.NoError(t, getErr)
			} else {
				assert.ErrorIs(t, getErr, docstore.ErrNotFound)
			}
		})
	}
}

func TestService_Get_OtherMember(t *testing.T) {
	store := docstore.NewMemoryStore()
	seedEvent(t, store, "e1", model.CalendarEvent{OwnerMemberID: "m1", Title: "Study group", Date: "2025-03-10"})

	_, err := newTestService(store).Get(context.Background(), "m2", "e1")
	assert.ErrorIs(t, err, apierrors.ErrCalendarEventNotFound)
	assert.ErrorIs(t, err, apierrors.ErrNotFound)
}
