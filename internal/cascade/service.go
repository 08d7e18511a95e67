// Package cascade deletes organizations and posts and removes every reference
// to them, in one batch per deletion.
package cascade

import (
	"context"
	"errors"

	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/authz"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/calendar"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/docstore"
	apierrors "github.com/UofT-ClubHub/Campus-Compass-sub000/internal/errors"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/guard"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/lock"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/metrics"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/model"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Service runs cascading deletions.
type Service struct {
	store       docstore.Store
	guard       *guard.Guard
	calendar    *calendar.Service
	concurrency int
	logger      *logrus.Logger
}

// NewService creates a new cascade Service. concurrency bounds parallel liker
// lookups; values below one use DefaultQueryConcurrency.
func NewService(store docstore.Store, g *guard.Guard, cal *calendar.Service, concurrency int, logger *logrus.Logger) *Service {
	if concurrency < 1 {
		concurrency = DefaultQueryConcurrency
	}
	return &Service{store: store, guard: g, calendar: cal, concurrency: concurrency, logger: logger}
}

// plan collects the writes of one cascade attempt.
type plan struct {
	s         *Service
	operation string
	edits     map[string]*memberEdit
	order     []string
	skipped   []model.SkippedReference
}

func (s *Service) newPlan(operation string) *plan {
	return &plan{s: s, operation: operation, edits: map[string]*memberEdit{}, skipped: []model.SkippedReference{}}
}

func (p *plan) skip(collection, id, reason string, fields logrus.Fields) {
	fields["id"] = id
	p.s.guard.Skipped(p.operation, reason, fields)
	p.skipped = append(p.skipped, model.SkippedReference{Collection: collection, ID: id, Reason: reason})
}

// adopt registers a member document read by a query. The first read of a
// member wins; its version guards the update.
func (p *plan) adopt(doc *docstore.Document) *memberEdit {
	if e, ok := p.edits[doc.ID]; ok {
		return e
	}
	m, err := model.DecodeMember(doc)
	if err != nil {
		p.skip(model.CollectionMembers, doc.ID, metrics.ReasonUndecodable, logrus.Fields{"error": err.Error()})
		return nil
	}
	e := newMemberEdit(m)
	p.edits[doc.ID] = e
	p.order = append(p.order, doc.ID)
	return e
}

// member returns the edit for id, reading the member if needed. A member that
// does not exist is skipped and nil is returned.
func (p *plan) member(ctx context.Context, id string, fields logrus.Fields) (*memberEdit, error) {
	if e, ok := p.edits[id]; ok {
		return e, nil
	}
	doc, err := p.s.store.Get(ctx, model.CollectionMembers, id)
	if errors.Is(err, docstore.ErrNotFound) {
		p.skip(model.CollectionMembers, id, metrics.ReasonMemberNotFound, fields)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p.adopt(doc), nil
}

// queueMembers adds one update per changed member and returns the number of
// references removed.
func (p *plan) queueMembers(b docstore.Batch) int {
	cleaned := 0
	for _, id := range p.order {
		e := p.edits[id]
		if len(e.fields) == 0 {
			continue
		}
		b.Update(model.CollectionMembers, id, e.fields, docstore.IfVersion(e.member.Version))
		cleaned += e.removed
	}
	return cleaned
}

// unlikePosts removes postIDs from every liker. Liker lookups run in parallel,
// bounded by the service concurrency.
func (p *plan) unlikePosts(ctx context.Context, postIDs []string) error {
	likers := make([][]*docstore.Document, len(postIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.s.concurrency)
	for i, postID := range postIDs {
		g.Go(func() error {
			docs, err := p.s.store.Query(gctx, model.CollectionMembers, model.FieldLikedPosts, docstore.OpArrayContains, postID)
			if err != nil {
				return err
			}
			likers[i] = docs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for i, postID := range postIDs {
		for _, doc := range likers[i] {
			if e := p.adopt(doc); e != nil {
				e.unlike(postID)
			}
		}
	}
	return nil
}

// DeleteOrganization deletes the organization, its posts and positions, and
// removes it and its posts from every member. Events derived from the posts
// are flagged. Everything is committed in one batch. Executives that no longer
// resolve are skipped and reported.
func (s *Service) DeleteOrganization(ctx context.Context, actor authz.Identity, orgID string) (*OrganizationResult, error) {
	var result *OrganizationResult
	err := s.guard.Run(ctx, opDeleteOrganization, []string{lock.Key(model.CollectionOrganizations, orgID)}, func(ctx context.Context) error {
		org, err := model.LoadOrganization(ctx, s.store, orgID)
		if errors.Is(err, docstore.ErrNotFound) {
			return apierrors.ErrOrganizationNotFound
		}
		if err != nil {
			return err
		}
		if err := authz.RequireManager(ctx, s.store, actor, orgID); err != nil {
			return err
		}

		p := s.newPlan(opDeleteOrganization)
		b := s.store.Batch()

		followers, err := s.store.Query(ctx, model.CollectionMembers, model.FieldFollowedOrganizations, docstore.OpArrayContains, orgID)
		if err != nil {
			return err
		}
		for _, doc := range followers {
			if e := p.adopt(doc); e != nil {
				e.unfollow(orgID)
			}
		}

		for _, id := range org.Executives {
			e, err := p.member(ctx, id, logrus.Fields{"orgID": orgID})
			if err != nil {
				return err
			}
			if e != nil {
				e.unmanage(orgID)
			}
		}
		// members whose managed list drifted from the organization's executives
		managers, err := s.store.Query(ctx, model.CollectionMembers, model.FieldManagedOrganizations, docstore.OpArrayContains, orgID)
		if err != nil {
			return err
		}
		for _, doc := range managers {
			if e := p.adopt(doc); e != nil {
				e.unmanage(orgID)
			}
		}

		posts, err := s.store.Query(ctx, model.CollectionPosts, model.FieldOrganizationID, docstore.OpEqual, orgID)
		if err != nil {
			return err
		}
		postIDs := make([]string, 0, len(posts))
		for _, doc := range posts {
			b.Delete(model.CollectionPosts, doc.ID, docstore.IfVersion(doc.Version))
			postIDs = append(postIDs, doc.ID)
		}
		if err := p.unlikePosts(ctx, postIDs); err != nil {
			return err
		}

		positions := 0
		for _, partition := range []model.Partition{model.PartitionOpen, model.PartitionClosed} {
			collection := model.PositionsCollection(orgID, partition)
			docs, err := s.store.Query(ctx, collection, model.FieldOrganizationID, docstore.OpEqual, orgID)
			if err != nil {
				return err
			}
			for _, doc := range docs {
				b.Delete(collection, doc.ID, docstore.IfVersion(doc.Version))
				positions++
			}
		}

		flagged, err := s.calendar.QueueMarkPostDeleted(ctx, b, postIDs)
		if err != nil {
			return err
		}

		cleaned := p.queueMembers(b)
		b.Delete(model.CollectionOrganizations, orgID, docstore.IfVersion(org.Version))
		if err := s.guard.Commit(ctx, opDeleteOrganization, b); err != nil {
			return err
		}

		result = &OrganizationResult{
			OrganizationID:   orgID,
			Cleaned:          cleaned,
			DeletedPosts:     postIDs,
			DeletedPositions: positions,
			FlaggedEvents:    flagged,
			Skipped:          p.skipped,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"orgID":     orgID,
		"actorID":   actor.MemberID,
		"cleaned":   result.Cleaned,
		"posts":     len(result.DeletedPosts),
		"positions": result.DeletedPositions,
		"events":    result.FlaggedEvents,
		"skipped":   len(result.Skipped),
	}).Info("Organization deleted")
	return result, nil
}

// DeletePost deletes the post, removes it from every liker and flags events
// derived from it, in one batch.
func (s *Service) DeletePost(ctx context.Context, actor authz.Identity, postID string) (*PostResult, error) {
	var result *PostResult
	err := s.guard.Run(ctx, opDeletePost, []string{lock.Key(model.CollectionPosts, postID)}, func(ctx context.Context) error {
		post, err := model.LoadPost(ctx, s.store, postID)
		if errors.Is(err, docstore.ErrNotFound) {
			return apierrors.ErrPostNotFound
		}
		if err != nil {
			return err
		}
		if err := authz.RequireManager(ctx, s.store, actor, post.OrganizationID); err != nil {
			return err
		}

		p := s.newPlan(opDeletePost)
		b := s.store.Batch()
		b.Delete(model.CollectionPosts, postID, docstore.IfVersion(post.Version))
		if err := p.unlikePosts(ctx, []string{postID}); err != nil {
			return err
		}
		flagged, err := s.calendar.QueueMarkPostDeleted(ctx, b, []string{postID})
		if err != nil {
			return err
		}
		cleaned := p.queueMembers(b)
		if err := s.guard.Commit(ctx, opDeletePost, b); err != nil {
			return err
		}

		result = &PostResult{PostID: postID, Cleaned: cleaned, FlaggedEvents: flagged, Skipped: p.skipped}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"postID":  postID,
		"actorID": actor.MemberID,
		"cleaned": result.Cleaned,
		"events":  result.FlaggedEvents,
	}).Info("Post deleted")
	return result, nil
}
