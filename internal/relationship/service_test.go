package relationship

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/authz"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/docstore"
	apierrors "github.com/UofT-ClubHub/Campus-Compass-sub000/internal/errors"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/guard"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/lock"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/metrics"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/model"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var admin = authz.Identity{MemberID: "admin", IsAdmin: true}

func newTestService(store docstore.Store) *Service {
	logger := logrus.New()
	policy := docstore.RetryPolicy{MaxRetries: 10, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}
	return NewService(store, guard.New(lock.NewLocal(), policy, metrics.New(), logger), logger)
}

func seedMember(t *testing.T, store docstore.Store, m model.Member) {
	t.Helper()
	require.NoError(t, store.Set(context.Background(), model.CollectionMembers, m.ID, m.ToFields()))
}

func seedOrganization(t *testing.T, store docstore.Store, o model.Organization) {
	t.Helper()
	if o.Name == "" {
		o.Name = "Org " + o.ID
	}
	require.NoError(t, store.Set(context.Background(), model.CollectionOrganizations, o.ID, o.ToFields()))
}

func seedPost(t *testing.T, store docstore.Store, p model.Post) {
	t.Helper()
	require.NoError(t, store.Set(context.Background(), model.CollectionPosts, p.ID, p.ToFields()))
}

func loadMember(t *testing.T, store docstore.Store, id string) *model.Member {
	t.Helper()
	m, err := model.LoadMember(context.Background(), store, id)
	require.NoError(t, err)
	return m
}

func loadOrganization(t *testing.T, store docstore.Store, id string) *model.Organization {
	t.Helper()
	o, err := model.LoadOrganization(context.Background(), store, id)
	require.NoError(t, err)
	return o
}

func TestService_SetExecutives(t *testing.T) {
	store := docstore.NewMemoryStore()
	seedOrganization(t, store, model.Organization{ID: "o1", Executives: []string{"m1", "m3"}})
	seedMember(t, store, model.Member{ID: "m1", IsExecutive: true, ManagedOrganizations: []string{"o1", "o2"}})
	seedMember(t, store, model.Member{ID: "m2"})
	seedMember(t, store, model.Member{ID: "m3", IsExecutive: true, ManagedOrganizations: []string{"o1"}})

	res, err := newTestService(store).SetExecutives(context.Background(), "o1", []string{"m2", "ghost", "m2"})
	require.NoError(t, err)

	assert.Equal(t, []string{"m2"}, res.Executives)
	assert.Equal(t, []string{"m2"}, res.Added)
	assert.ElementsMatch(t, []string{"m1", "m3"}, res.Removed)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "ghost", res.Skipped[0].ID)
	assert.Equal(t, metrics.ReasonMemberNotFound, res.Skipped[0].Reason)

	assert.Equal(t, []string{"m2"}, loadOrganization(t, store, "o1").Executives)

	m1 := loadMember(t, store, "m1")
	assert.Equal(t, []string{"o2"}, m1.ManagedOrganizations)
	assert.True(t, m1.IsExecutive)

	m2 := loadMember(t, store, "m2")
	assert.Equal(t, []string{"o1"}, m2.ManagedOrganizations)
	assert.True(t, m2.IsExecutive)

	m3 := loadMember(t, store, "m3")
	assert.Empty(t, m3.ManagedOrganizations)
	assert.False(t, m3.IsExecutive)
}

func TestService_SetExecutives_Errors(t *testing.T) {
	tests := []struct {
		name    string
		store   func(base *docstore.MemoryStore) docstore.Store
		orgID   string
		wantErr error
	}{
		{
			name:    "organization not found",
			store:   func(base *docstore.MemoryStore) docstore.Store { return base },
			orgID:   "missing",
			wantErr: apierrors.ErrOrganizationNotFound,
		},
		{
			name: "commit failure",
			store: func(base *docstore.MemoryStore) docstore.Store {
				return &docstore.FailingStore{Store: base, Err: errors.New("unavailable")}
			},
			orgID:   "o1",
			wantErr: apierrors.ErrInternalServer,
		},
		{
			name: "conflict outlasting retries",
			store: func(base *docstore.MemoryStore) docstore.Store {
				return &docstore.FailingStore{Store: base, Err: docstore.ErrVersionMismatch}
			},
			orgID:   "o1",
			wantErr: apierrors.ErrConcurrentUpdate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := docstore.NewMemoryStore()
			seedOrganization(t, base, model.Organization{ID: "o1"})
			seedMember(t, base, model.Member{ID: "m1"})

			_, err := newTestService(tt.store(base)).SetExecutives(context.Background(), tt.orgID, []string{"m1"})
			assert.ErrorIs(t, err, tt.wantErr)

			// nothing was written
			assert.Empty(t, loadMember(t, base, "m1").ManagedOrganizations)
		})
	}
}

func TestService_SetExecutivesAs(t *testing.T) {
	store := docstore.NewMemoryStore()
	seedOrganization(t, store, model.Organization{ID: "o1", Executives: []string{"exec"}})
	seedOrganization(t, store, model.Organization{ID: "o2"})
	seedMember(t, store, model.Member{ID: "exec", IsExecutive: true, ManagedOrganizations: []string{"o1"}})
	seedMember(t, store, model.Member{ID: "m2"})
	svc := newTestService(store)
	exec := authz.Identity{MemberID: "exec", IsExecutive: true}

	_, err := svc.SetExecutivesAs(context.Background(), exec, "o2", []string{"m2"})
	assert.ErrorIs(t, err, apierrors.ErrNotExecutive)

	res, err := svc.SetExecutivesAs(context.Background(), exec, "o1", []string{"exec", "m2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"exec", "m2"}, res.Executives)

	_, err = svc.SetExecutivesAs(context.Background(), admin, "o2", []string{"m2"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"o1", "o2"}, loadMember(t, store, "m2").ManagedOrganizations)
}

func TestService_SetManagedOrganizations(t *testing.T) {
	tests := []struct {
		name        string
		actor       authz.Identity
		memberID    string
		orgIDs      []string
		wantErr     error
		wantManaged []string
		wantSkipped int
	}{
		{
			name:        "admin grants and revokes",
			actor:       admin,
			memberID:    "m1",
			orgIDs:      []string{"o2", "ghost"},
			wantManaged: []string{"o2"},
			wantSkipped: 1,
		},
		{
			name:     "executive cannot grant foreign organization",
			actor:    authz.Identity{MemberID: "exec", IsExecutive: true},
			memberID: "m1",
			orgIDs:   []string{"o1", "o2"},
			wantErr:  apierrors.ErrNotExecutive,
		},
		{
			name:        "executive grants own organization",
			actor:       authz.Identity{MemberID: "exec", IsExecutive: true},
			memberID:    "m1",
			orgIDs:      []string{"o1", "o3"},
			wantManaged: []string{"o1", "o3"},
		},
		{
			name:        "member steps down",
			actor:       authz.Identity{MemberID: "m1", IsExecutive: true},
			memberID:    "m1",
			orgIDs:      []string{},
			wantManaged: []string{},
		},
		{
			name:     "unknown member",
			actor:    admin,
			memberID: "ghost",
			orgIDs:   []string{"o1"},
			wantErr:  apierrors.ErrMemberNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := docstore.NewMemoryStore()
			seedOrganization(t, store, model.Organization{ID: "o1", Executives: []string{"m1", "exec"}})
			seedOrganization(t, store, model.Organization{ID: "o2"})
			seedOrganization(t, store, model.Organization{ID: "o3", Executives: []string{"exec"}})
			seedMember(t, store, model.Member{ID: "m1", IsExecutive: true, ManagedOrganizations: []string{"o1"}})
			seedMember(t, store, model.Member{ID: "exec", IsExecutive: true, ManagedOrganizations: []string{"o1", "o3"}})

			res, err := newTestService(store).SetManagedOrganizations(context.Background(), tt.actor, tt.memberID, tt.orgIDs)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, []string{"o1"}, loadMember(t, store, "m1").ManagedOrganizations)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantManaged, res.ManagedOrganizations)
			assert.Len(t, res.Skipped, tt.wantSkipped)

			m1 := loadMember(t, store, "m1")
			assert.ElementsMatch(t, tt.wantManaged, m1.ManagedOrganizations)
			assert.Equal(t, len(tt.wantManaged) > 0, m1.IsExecutive)
			for _, id := range []string{"o1", "o2", "o3"} {
				org := loadOrganization(t, store, id)
				assert.Equal(t, containsID(tt.wantManaged, id), containsID(org.Executives, "m1"), "organization %s", id)
			}
		})
	}
}

func TestService_ToggleFollow(t *testing.T) {
	store := docstore.NewMemoryStore()
	seedOrganization(t, store, model.Organization{ID: "o1", FollowerCount: 4})
	seedMember(t, store, model.Member{ID: "m1"})
	svc := newTestService(store)
	ctx := context.Background()

	res, err := svc.ToggleFollow(ctx, "m1", "o1")
	require.NoError(t, err)
	assert.Equal(t, &FollowResult{Following: true, FollowerCount: 5}, res)
	assert.Equal(t, []string{"o1"}, loadMember(t, store, "m1").FollowedOrganizations)

	res, err = svc.ToggleFollow(ctx, "m1", "o1")
	require.NoError(t, err)
	assert.Equal(t, &FollowResult{Following: false, FollowerCount: 4}, res)
	assert.Empty(t, loadMember(t, store, "m1").FollowedOrganizations)
	assert.Equal(t, 4, loadOrganization(t, store, "o1").FollowerCount)
}

func TestService_ToggleFollow_CountNeverNegative(t *testing.T) {
	store := docstore.NewMemoryStore()
	seedOrganization(t, store, model.Organization{ID: "o1", FollowerCount: 0})
	seedMember(t, store, model.Member{ID: "m1", FollowedOrganizations: []string{"o1"}})

	res, err := newTestService(store).ToggleFollow(context.Background(), "m1", "o1")
	require.NoError(t, err)
	assert.False(t, res.Following)
	assert.Equal(t, 0, res.FollowerCount)
}

func TestService_ToggleFollow_NotFound(t *testing.T) {
	store := docstore.NewMemoryStore()
	seedOrganization(t, store, model.Organization{ID: "o1"})
	seedMember(t, store, model.Member{ID: "m1"})
	svc := newTestService(store)

	_, err := svc.ToggleFollow(context.Background(), "ghost", "o1")
	assert.ErrorIs(t, err, apierrors.ErrMemberNotFound)

	_, err = svc.ToggleFollow(context.Background(), "m1", "ghost")
	assert.ErrorIs(t, err, apierrors.ErrOrganizationNotFound)
	assert.Equal(t, 0, loadOrganization(t, store, "o1").FollowerCount)
}

func TestService_ToggleLike(t *testing.T) {
	store := docstore.NewMemoryStore()
	seedPost(t, store, model.Post{ID: "p1", OrganizationID: "o1", LikeCount: 1})
	seedMember(t, store, model.Member{ID: "m1"})
	svc := newTestService(store)

	res, err := svc.ToggleLike(context.Background(), "m1", "p1")
	require.NoError(t, err)
	assert.Equal(t, &LikeResult{Liked: true, LikeCount: 2}, res)

	res, err = svc.ToggleLike(context.Background(), "m1", "p1")
	require.NoError(t, err)
	assert.Equal(t, &LikeResult{Liked: false, LikeCount: 1}, res)

	_, err = svc.ToggleLike(context.Background(), "m1", "missing")
	assert.ErrorIs(t, err, apierrors.ErrPostNotFound)
}

// Concurrent toggles from many members must leave the counter equal to the
// number of members holding the post in their liked list.
func TestService_ToggleLike_ConcurrentCountMatchesMembers(t *testing.T) {
	store := docstore.NewMemoryStore()
	seedPost(t, store, model.Post{ID: "p1", OrganizationID: "o1"})
	const members = 12
	for i := 0; i < members; i++ {
		seedMember(t, store, model.Member{ID: fmt.Sprintf("m%d", i)})
	}
	svc := newTestService(store)

	var wg sync.WaitGroup
	for i := 0; i < members; i++ {
		// odd members toggle twice and end up not liking the post
		toggles := 1 + i%2
		wg.Add(1)
		go func(id string, toggles int) {
			defer wg.Done()
			for j := 0; j < toggles; j++ {
				_, err := svc.ToggleLike(context.Background(), id, "p1")
				assert.NoError(t, err)
			}
		}(fmt.Sprintf("m%d", i), toggles)
	}
	wg.Wait()

	likers, err := store.Query(context.Background(), model.CollectionMembers, model.FieldLikedPosts, docstore.OpArrayContains, "p1")
	require.NoError(t, err)
	post, err := model.LoadPost(context.Background(), store, "p1")
	require.NoError(t, err)
	assert.Len(t, likers, members/2)
	assert.Equal(t, len(likers), post.LikeCount)
}

// Executive edits through both entry points must keep both sides of the
// relationship mirrored.
func TestService_ExecutiveMirrorHoldsAcrossEntryPoints(t *testing.T) {
	store := docstore.NewMemoryStore()
	for _, id := range []string{"o1", "o2"} {
		seedOrganization(t, store, model.Organization{ID: id})
	}
	for _, id := range []string{"m1", "m2", "m3"} {
		seedMember(t, store, model.Member{ID: id})
	}
	svc := newTestService(store)
	ctx := context.Background()

	_, err := svc.SetExecutives(ctx, "o1", []string{"m1", "m2"})
	require.NoError(t, err)
	_, err = svc.SetManagedOrganizations(ctx, admin, "m3", []string{"o1", "o2"})
	require.NoError(t, err)
	_, err = svc.SetExecutives(ctx, "o2", []string{"m1"})
	require.NoError(t, err)
	_, err = svc.SetManagedOrganizations(ctx, admin, "m2", nil)
	require.NoError(t, err)

	for _, orgID := range []string{"o1", "o2"} {
		org := loadOrganization(t, store, orgID)
		for _, memberID := range []string{"m1", "m2", "m3"} {
			m := loadMember(t, store, memberID)
			assert.Equal(t, containsID(org.Executives, memberID), containsID(m.ManagedOrganizations, orgID),
				"member %s organization %s", memberID, orgID)
			assert.Equal(t, len(m.ManagedOrganizations) > 0, m.IsExecutive, "member %s", memberID)
		}
	}
	assert.ElementsMatch(t, []string{"m1", "m3"}, loadOrganization(t, store, "o1").Executives)
	assert.ElementsMatch(t, []string{"m1"}, loadOrganization(t, store, "o2").Executives)
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func orgDocument(id string, o *model.Organization, version int64) *docstore.Document {
	return &docstore.Document{Collection: model.CollectionOrganizations, ID: id, Fields: o.ToFields(), Version: version}
}

func TestService_SetExecutives_MemberReadFailure(t *testing.T) {
	store := new(docstore.MockStore)
	batch := docstore.NewMockBatch()
	store.On("Batch").Return(batch)
	store.On("Get", mock.Anything, model.CollectionOrganizations, "o1").
		Return(orgDocument("o1", &model.Organization{Name: "Chess", Executives: []string{}}, 3), nil)
	store.On("Get", mock.Anything, model.CollectionMembers, "m1").
		Return(nil, errors.New("connection reset by peer"))

	_, err := newTestService(store).SetExecutives(context.Background(), "o1", []string{"m1"})

	assert.ErrorIs(t, err, apierrors.ErrInternalServer)
	assert.NotContains(t, err.Error(), "connection reset")
	batch.AssertNotCalled(t, "Commit", mock.Anything)
	store.AssertExpectations(t)
}

func TestService_SetExecutives_RetriesExhausted(t *testing.T) {
	store := new(docstore.MockStore)
	batch := docstore.NewMockBatch()
	member := &model.Member{Email: "ann@example.com"}
	store.On("Batch").Return(batch)
	store.On("Get", mock.Anything, model.CollectionOrganizations, "o1").
		Return(orgDocument("o1", &model.Organization{Name: "Chess", Executives: []string{}}, 3), nil)
	store.On("Get", mock.Anything, model.CollectionMembers, "m1").
		Return(&docstore.Document{Collection: model.CollectionMembers, ID: "m1", Fields: member.ToFields(), Version: 7}, nil)
	batch.On("Commit", mock.Anything).Return(docstore.ErrVersionMismatch)

	logger := logrus.New()
	policy := docstore.RetryPolicy{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
	svc := NewService(store, guard.New(lock.NewLocal(), policy, metrics.New(), logger), logger)

	_, err := svc.SetExecutives(context.Background(), "o1", []string{"m1"})

	assert.ErrorIs(t, err, apierrors.ErrConcurrentUpdate)
	batch.AssertNumberOfCalls(t, "Commit", 3)
	assert.Equal(t, []string{model.CollectionMembers + "/m1", model.CollectionOrganizations + "/o1"}, batch.Queued())
}
